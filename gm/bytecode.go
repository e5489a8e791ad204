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

// DataType is one of the eight data types an operand word's type nibble can
// carry (spec §4.7).
type DataType uint8

const (
	TDouble DataType = iota
	TFloat
	TInt32
	TInt64
	TBoolean
	TVariable
	TString
	TInt16
)

// Opcode is the normalized (modern, WAD15+) instruction opcode. Decoded
// instructions always carry this representation; BytecodeCodec translates
// to/from the legacy (WAD14) table at the wire boundary (spec §4.7).
type Opcode uint8

const (
	OpConvert     Opcode = 0x07
	OpMultiply    Opcode = 0x08
	OpDivide      Opcode = 0x09
	OpRemainder   Opcode = 0x0A
	OpModulus     Opcode = 0x0B
	OpAdd         Opcode = 0x0C
	OpSubtract    Opcode = 0x0D
	OpAnd         Opcode = 0x0E
	OpOr          Opcode = 0x0F
	OpXor         Opcode = 0x10
	OpNegate      Opcode = 0x11
	OpNot         Opcode = 0x12
	OpShiftLeft   Opcode = 0x13
	OpShiftRight  Opcode = 0x14
	OpCompare     Opcode = 0x15
	OpPop         Opcode = 0x45
	OpDuplicate   Opcode = 0x86
	OpReturn      Opcode = 0x9C
	OpExit        Opcode = 0x9D
	OpPopDiscard  Opcode = 0x9E
	OpBranch      Opcode = 0xB6
	OpBranchIf    Opcode = 0xB7
	OpBranchUnless Opcode = 0xB8
	OpPushWithCtx Opcode = 0xBA
	OpPopWithCtx  Opcode = 0xBB
	OpPush        Opcode = 0xC0
	OpPushLocal   Opcode = 0xC1
	OpPushGlobal  Opcode = 0xC2
	OpPushBuiltin Opcode = 0xC3
	OpPushImmediate Opcode = 0x84
	OpCall        Opcode = 0xD9
	OpCallVariable Opcode = 0x99
	OpExtended    Opcode = 0xFF
)

// legacyToModern converts a WAD14 on-wire opcode to the normalized modern
// opcode (spec §4.7 "Key mappings"; grounded on opcodes.rs::old_to_new).
func legacyToModern(op uint8) Opcode {
	switch {
	case op == 0x03:
		return OpConvert
	case op >= 0x04 && op < 0x11:
		return Opcode(op + 4)
	case op >= 0x11 && op < 0x17:
		return OpCompare
	case op == 0x41:
		return OpPop
	case op == 0x82:
		return OpDuplicate
	case op == 0xB7:
		return OpBranch
	case op == 0xB8:
		return OpBranchIf
	case op == 0xB9:
		return OpBranchUnless
	case op == 0xBB:
		return OpPushWithCtx
	case op == 0xBC:
		return OpPopWithCtx
	case op == 0x9D:
		return OpReturn
	case op == 0x9E:
		return OpExit
	case op == 0x9F:
		return OpPopDiscard
	case op == 0xDA:
		return OpCall
	default:
		return Opcode(op)
	}
}

// modernToLegacy is the dual of legacyToModern (grounded on
// opcodes.rs::new_to_old). pushKind disambiguates the four modern push
// opcodes, which collapse to the single legacy PUSH opcode.
func modernToLegacy(op Opcode) uint8 {
	switch op {
	case OpConvert:
		return 0x03
	case OpMultiply, OpDivide, OpRemainder, OpModulus, OpAdd, OpSubtract, OpAnd, OpOr, OpXor, OpNegate, OpNot, OpShiftLeft, OpShiftRight:
		return uint8(op) - 4
	case OpCompare:
		return 0 // the comparison-kind byte determines the legacy opcode; see compareOpcodeLegacy
	case OpPop:
		return 0x41
	case OpDuplicate:
		return 0x82
	case OpPushImmediate, OpPushGlobal, OpPushLocal, OpPushBuiltin:
		return uint8(OpPush)
	case OpReturn:
		return 0x9D
	case OpExit:
		return 0x9E
	case OpPopDiscard:
		return 0x9F
	case OpBranch, OpBranchIf, OpBranchUnless, OpPushWithCtx, OpPopWithCtx:
		return uint8(op) + 1
	case OpCall:
		return 0xDA
	default:
		return uint8(op)
	}
}

// compareKind is the comparison byte modern Compare instructions carry in
// the arg field; legacy WAD14 instead used six distinct opcodes (spec §4.7).
type compareKind uint8

const (
	CmpLT compareKind = 1 + iota
	CmpLE
	CmpEQ
	CmpNE
	CmpGE
	CmpGT
)

// compareOpcodeLegacy maps a comparison-kind byte to its legacy 0x11-0x16
// opcode.
func compareOpcodeLegacy(k compareKind) uint8 { return 0x10 + uint8(k) }

// compareKindFromLegacy is the read-side dual.
func compareKindFromLegacy(legacyOp uint8) compareKind { return compareKind(legacyOp - 0x10) }

// InstanceType selects which variable-push/pop instance-type byte an
// operand carries (spec §4.7).
type InstanceType uint8

const (
	InstSelf InstanceType = iota
	InstOther
	InstGlobal
	InstLocal
	InstBuiltin
	InstStackTop
	InstArgument
)

// extended opcode selectors for the 0xFF Extended instruction (spec §4.7;
// grounded on opcodes.rs::extended).
const (
	ExtCheckArrayIndex    int16 = -1
	ExtPushArrayFinal     int16 = -2
	ExtPopArrayFinal      int16 = -3
	ExtPushArrayContainer int16 = -4
	ExtSetArrayOwner      int16 = -5
	ExtHasStaticInit      int16 = -6
	ExtSetStaticInit      int16 = -7
	ExtSaveArrayRef       int16 = -8
	ExtRestoreArrayRef    int16 = -9
	ExtIsNullishValue     int16 = -10
	ExtPushReference      int16 = -11
)

// Kind discriminates Instruction's cases (spec §9 "flatten with tagged
// variants").
type Kind uint8

const (
	KArithmetic Kind = iota // Add, Subtract, Multiply, Divide, Remainder, Modulus, Negate (op carries which one)
	KBitwise                // And, Or, Xor, Not, ShiftLeft, ShiftRight
	KCompare
	KConvert
	KPop
	KPopSwap
	KDuplicate
	KDuplicateSwap
	KReturn
	KExit
	KPopDiscard
	KBranch
	KBranchIf
	KBranchUnless
	KPushWithContext
	KPopWithContext
	KPopWithContextExit
	KPush
	KPushLocal
	KPushGlobal
	KPushBuiltin
	KPushImmediate
	KCall
	KCallVariable
	KCheckArrayIndex
	KPushArrayFinal
	KPopArrayFinal
	KPushArrayContainer
	KSetArrayOwner
	KHasStaticInitialized
	KSetStaticInitialized
	KSaveArrayReference
	KRestoreArrayReference
	KIsNullishValue
	KPushReference
)

// Instruction is the normalized, in-memory form of one bytecode
// instruction (spec §4.7). Only the fields relevant to Kind are populated;
// this mirrors a Rust enum's per-variant payload without the syntactic
// overhead of one Go type per case.
type Instruction struct {
	Kind Kind

	Op   Opcode      // the normalized opcode (redundant with Kind for multi-opcode kinds like Arithmetic/Bitwise)
	Type1 DataType
	Type2 DataType
	Cmp  compareKind

	// Push/Pop operand payload.
	Instance InstanceType
	VarName  StringRef
	VarRef   Ref[Variable]
	NextVarOccurrenceDelta int32 // not set by decode nor read by encode; chains are threaded from Variable.Occurrences

	// varOperandPos is the absolute file position of this instruction's
	// variable occurrence operand word, as read by decodeInstructionStream.
	// resolveCodeReferences matches it against Variable.Occurrences to fill
	// VarRef; it carries no meaning once that pass has run.
	varOperandPos int

	Int16Val  int16
	Int32Val  int32
	Int64Val  int64
	FloatVal  float32
	DoubleVal float64
	StringVal StringRef

	FuncRef Ref[Function]
	ArgCount uint8

	// funcOperandPos is varOperandPos's Call-instruction counterpart,
	// matched against Function.Occurrences to fill FuncRef.
	funcOperandPos int

	BranchOffsetWords int32 // signed, in units of 4 bytes

	ExtendedSelector int16
	RefKind          uint8 // PushReference's asset-kind discriminant
	RefIndex         int32
}

// EncodedSize returns the instruction's on-wire size in bytes, deterministic
// from the decoded instruction alone (spec §4.7: "exposes encoded_size used
// by assemblers and jump-offset fix-up").
func (in Instruction) EncodedSize() uint32 {
	switch in.Kind {
	case KArithmetic, KBitwise, KCompare, KConvert, KPop, KPopSwap, KDuplicate, KDuplicateSwap,
		KReturn, KExit, KPopDiscard:
		if in.Kind == KPop || in.Kind == KPopSwap {
			if in.Type1 == TVariable {
				return 8
			}
			return 4
		}
		return 4
	case KPushImmediate:
		if in.Type1 == TInt16 {
			return 4
		}
		if in.Type1 == TInt64 || in.Type1 == TDouble {
			return 12
		}
		return 8
	case KPush, KPushLocal, KPushGlobal, KPushBuiltin:
		if in.Type1 == TInt16 {
			return 4
		}
		if in.Type1 == TVariable {
			return 8
		}
		if in.Type1 == TInt64 || in.Type1 == TDouble {
			return 12
		}
		return 8
	case KCall:
		return 8
	case KCallVariable:
		return 4
	case KBranch, KBranchIf, KBranchUnless, KPushWithContext, KPopWithContext, KPopWithContextExit:
		return 4
	case KPushReference:
		return 8
	case KCheckArrayIndex, KPushArrayFinal, KPopArrayFinal, KPushArrayContainer, KSetArrayOwner,
		KHasStaticInitialized, KSetStaticInitialized, KSaveArrayReference, KRestoreArrayReference,
		KIsNullishValue:
		return 4
	default:
		return 4
	}
}

// CodeAnalysis summarizes compile-time bytecode properties observed across
// every code entry in a Data (spec §4.7; grounded on gml/analysis.rs).
type CodeAnalysis struct {
	// UsesArrayCopyOnWrite is true if any code entry uses SetArrayOwner.
	UsesArrayCopyOnWrite bool
	// UsesShortCircuit is true unless some code entry contains a boolean
	// And/Or (i.e. `And.b.b` / `Or.b.b` in disassembly notation).
	UsesShortCircuit bool
}

// AnalyzeCode scans every instruction of every code entry and derives a
// CodeAnalysis (spec §4.7).
func AnalyzeCode(codes []Code) CodeAnalysis {
	a := CodeAnalysis{UsesShortCircuit: true}
	for _, c := range codes {
		for _, in := range c.Instructions {
			switch {
			case in.Kind == KSetArrayOwner:
				a.UsesArrayCopyOnWrite = true
			case in.Kind == KBitwise && (in.Op == OpAnd || in.Op == OpOr) && in.Type1 == TBoolean && in.Type2 == TBoolean:
				a.UsesShortCircuit = false
			}
		}
	}
	return a
}
