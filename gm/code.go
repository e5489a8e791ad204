// Copyright 2026 The LibGM Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package gm

import "github.com/biotomatede/libgm/binio"

// Code is one CODE entry: a name, a bytecode stream, and (2.3+ only)
// locals metadata (spec §4.7 "BytecodeCodec operates per-entry").
type Code struct {
	Name         StringRef
	Instructions []Instruction
	LocalsCount  int32 // 2.3+ only

	bodyStart int // absolute file position the instruction stream began at, as read
}

// decodeInstructionStream decodes one CODE entry's raw bytecode into
// normalized Instructions. For variable/function operands the instance
// type and type byte are decoded and the operand word's position is
// recorded; the word itself is skipped, not resolved to a concrete Ref here: VARI/FUNC are
// decoded separately and each carries the authoritative list of occurrence
// positions, so resolution is a second pass (resolveCodeReferences) that
// matches each instruction's recorded operand position against those lists
// - mirroring the source's own two-pass relationship between CODE and
// VARI/FUNC, just inverted in which side walks the chain.
func decodeInstructionStream(r *binio.Reader, start, end int, legacy bool) ([]Instruction, error) {
	r.Seek(start)
	var out []Instruction
	for r.Pos < end {
		opPos := r.Pos
		raw, err := r.ReadU32()
		if err != nil {
			return nil, withPos(err, opPos)
		}
		wireOp := uint8(raw >> 24)
		arg := int16(raw & 0xFFFF)
		typeByte := uint8((raw >> 16) & 0xFF)

		op := Opcode(wireOp)
		if legacy {
			op = legacyToModern(wireOp)
		}

		in := Instruction{Op: op, VarRef: NoRef[Variable](), FuncRef: NoRef[Function]()}
		switch op {
		case OpConvert:
			in.Kind = KConvert
			in.Type1, in.Type2 = DataType(typeByte&0xF), DataType((typeByte>>4)&0xF)
		case OpMultiply, OpDivide, OpRemainder, OpModulus, OpAdd, OpSubtract, OpAnd, OpOr, OpXor:
			in.Kind = KArithmetic
			if op == OpAnd || op == OpOr || op == OpXor {
				in.Kind = KBitwise
			}
			in.Type1, in.Type2 = DataType(typeByte&0xF), DataType((typeByte>>4)&0xF)
		case OpNegate, OpNot:
			in.Kind = KArithmetic
			if op == OpNot {
				in.Kind = KBitwise
			}
			in.Type1 = DataType(typeByte & 0xF)
		case OpShiftLeft, OpShiftRight:
			in.Kind = KBitwise
			in.Type1, in.Type2 = DataType(typeByte&0xF), DataType((typeByte>>4)&0xF)
		case OpCompare:
			in.Kind = KCompare
			in.Type1, in.Type2 = DataType(typeByte&0xF), DataType((typeByte>>4)&0xF)
			if legacy {
				in.Cmp = compareKindFromLegacy(wireOp)
			} else {
				in.Cmp = compareKind(arg & 0xFF)
			}
		case OpPop:
			in.Kind = KPop
			in.Type1, in.Type2 = DataType(typeByte&0xF), DataType((typeByte>>4)&0xF)
			if in.Type1 == TVariable {
				in.Instance = InstanceType(arg & 0xFF)
				in.varOperandPos = r.Pos
				if _, err := r.ReadU32(); err != nil { // occurrence operand word; resolved in pass 2
					return nil, withPos(err, r.Pos)
				}
			}
		case OpDuplicate:
			in.Kind = KDuplicate
			in.Type1 = DataType(typeByte & 0xF)
			if arg != 0 {
				in.Kind = KDuplicateSwap
			}
		case OpReturn:
			in.Kind = KReturn
			in.Type1 = DataType(typeByte & 0xF)
		case OpExit:
			in.Kind = KExit
		case OpPopDiscard:
			in.Kind = KPopDiscard
			in.Type1 = DataType(typeByte & 0xF)
		case OpBranch, OpBranchIf, OpBranchUnless, OpPushWithCtx:
			in.Kind = branchKind(op)
			in.BranchOffsetWords = signExtend24(raw & 0xFFFFFF)
		case OpPopWithCtx:
			in.Kind = KPopWithContext
			in.BranchOffsetWords = signExtend24(raw & 0xFFFFFF)
			if in.BranchOffsetWords == int32(popWithContextExitSentinel) {
				in.Kind = KPopWithContextExit
			}
		case OpPush, OpPushLocal, OpPushGlobal, OpPushBuiltin, OpPushImmediate:
			in.Kind = pushKind(op)
			in.Type1 = DataType(typeByte)
			switch in.Type1 {
			case TInt16:
				in.Int16Val = arg
			case TVariable:
				in.Instance = InstanceType(arg & 0xFF)
				in.varOperandPos = r.Pos
				if _, err := r.ReadU32(); err != nil {
					return nil, withPos(err, r.Pos)
				}
			case TInt32:
				v, err := r.ReadI32()
				if err != nil {
					return nil, withPos(err, r.Pos)
				}
				in.Int32Val = v
			case TInt64:
				v, err := r.ReadI64()
				if err != nil {
					return nil, withPos(err, r.Pos)
				}
				in.Int64Val = v
			case TFloat:
				v, err := r.ReadF32()
				if err != nil {
					return nil, withPos(err, r.Pos)
				}
				in.FloatVal = v
			case TDouble:
				v, err := r.ReadF64()
				if err != nil {
					return nil, withPos(err, r.Pos)
				}
				in.DoubleVal = v
			case TBoolean:
				v, err := r.ReadI32()
				if err != nil {
					return nil, withPos(err, r.Pos)
				}
				in.Int32Val = v
			case TString:
				v, err := r.ReadU32()
				if err != nil {
					return nil, withPos(err, r.Pos)
				}
				in.Int32Val = int32(v) // raw string operand; StringVal is not filled in
			}
		case OpCall:
			in.Kind = KCall
			in.Type1 = DataType(typeByte & 0xF)
			in.ArgCount = uint8(arg & 0xFF)
			in.funcOperandPos = r.Pos
			if _, err := r.ReadU32(); err != nil { // function occurrence operand; resolved in pass 2
				return nil, withPos(err, r.Pos)
			}
		case OpCallVariable:
			in.Kind = KCallVariable
			in.Type1 = DataType(typeByte & 0xF)
			in.ArgCount = uint8(arg & 0xFF)
		case OpExtended:
			sel := arg
			in.ExtendedSelector = sel
			switch sel {
			case ExtCheckArrayIndex:
				in.Kind = KCheckArrayIndex
			case ExtPushArrayFinal:
				in.Kind = KPushArrayFinal
			case ExtPopArrayFinal:
				in.Kind = KPopArrayFinal
			case ExtPushArrayContainer:
				in.Kind = KPushArrayContainer
			case ExtSetArrayOwner:
				in.Kind = KSetArrayOwner
			case ExtHasStaticInit:
				in.Kind = KHasStaticInitialized
			case ExtSetStaticInit:
				in.Kind = KSetStaticInitialized
			case ExtSaveArrayRef:
				in.Kind = KSaveArrayReference
			case ExtRestoreArrayRef:
				in.Kind = KRestoreArrayReference
			case ExtIsNullishValue:
				in.Kind = KIsNullishValue
			case ExtPushReference:
				in.Kind = KPushReference
				in.RefKind = typeByte
				v, err := r.ReadI32()
				if err != nil {
					return nil, withPos(err, r.Pos)
				}
				in.RefIndex = v
			default:
				return nil, withPos(newErr(ErrIntegrity, "unrecognized extended opcode selector %d", sel), opPos)
			}
		default:
			return nil, withPos(newErr(ErrIntegrity, "unrecognized opcode byte 0x%02X", wireOp), opPos)
		}
		out = append(out, in)
	}
	return out, nil
}

const popWithContextExitSentinel = -0x100000 // sentinel 24-bit value the runtime reserves for "exit with context pop"

func branchKind(op Opcode) Kind {
	switch op {
	case OpBranchIf:
		return KBranchIf
	case OpBranchUnless:
		return KBranchUnless
	case OpPushWithCtx:
		return KPushWithContext
	default:
		return KBranch
	}
}

func pushKind(op Opcode) Kind {
	switch op {
	case OpPushLocal:
		return KPushLocal
	case OpPushGlobal:
		return KPushGlobal
	case OpPushBuiltin:
		return KPushBuiltin
	case OpPushImmediate:
		return KPushImmediate
	default:
		return KPush
	}
}

// signExtend24 sign-extends a 24-bit two's-complement field, used for
// branch jump offsets expressed in 4-byte units (spec §4.7).
func signExtend24(v uint32) int32 {
	if v&0x00800000 != 0 {
		return int32(v | 0xFF000000)
	}
	return int32(v)
}

// resolveCodeReferences is decode's second pass over every instruction's
// variable/function operand: it matches the recorded operand position
// (varOperandPos/funcOperandPos) against the occurrence positions threaded
// through VARI/FUNC and fills in VarRef/FuncRef accordingly (spec §4.4.1;
// mirrors the source's own two-pass relationship between CODE and
// VARI/FUNC, just inverted in which side walks the chain). It must run
// after CODE, VARI, and FUNC have all been decoded.
func resolveCodeReferences(d *Data) error {
	varByPos := make(map[int]int32, len(d.Variables))
	for i := range d.Variables {
		for _, pos := range d.Variables[i].Occurrences {
			varByPos[pos] = int32(i)
		}
	}
	funcByPos := make(map[int]int32, len(d.Functions))
	for i := range d.Functions {
		for _, pos := range d.Functions[i].Occurrences {
			funcByPos[pos] = int32(i)
		}
	}

	for ci := range d.Codes {
		insts := d.Codes[ci].Instructions
		for ii := range insts {
			in := &insts[ii]
			switch in.Kind {
			case KPop, KPopSwap:
				if in.Type1 != TVariable {
					continue
				}
				idx, ok := varByPos[in.varOperandPos]
				if !ok {
					return newErr(ErrReference, "code %q instruction #%d: variable operand at position %d matches no VARI occurrence chain", d.Codes[ci].Name, ii, in.varOperandPos)
				}
				in.VarRef = Ref[Variable](idx)
			case KPush, KPushLocal, KPushGlobal, KPushBuiltin:
				if in.Type1 != TVariable {
					continue
				}
				idx, ok := varByPos[in.varOperandPos]
				if !ok {
					return newErr(ErrReference, "code %q instruction #%d: variable operand at position %d matches no VARI occurrence chain", d.Codes[ci].Name, ii, in.varOperandPos)
				}
				in.VarRef = Ref[Variable](idx)
			case KCall:
				idx, ok := funcByPos[in.funcOperandPos]
				if !ok {
					return newErr(ErrReference, "code %q instruction #%d: function operand at position %d matches no FUNC occurrence chain", d.Codes[ci].Name, ii, in.funcOperandPos)
				}
				in.FuncRef = Ref[Function](idx)
			}
		}
	}
	return nil
}
