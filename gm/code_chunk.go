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

// readCodeChunk reads the CODE chunk: a pointer list of per-entry headers,
// each naming a length. Before 2.3 the body follows the length directly;
// from 2.3 on the header adds a locals count and a body offset measured
// from the offset field's own position (spec §4.7; the 2.3+ split between bytecode
// "fragments" and whole entries is out of scope per spec's own Non-goals on
// script fragments - every entry is decoded as one contiguous stream).
func readCodeChunk(r *binio.Reader, chunk chunkRange, strings *StringPool, v Version) ([]Code, error) {
	r.Seek(chunk.Start)
	legacy := !v.IsAtLeast(Req(2, 3))
	return ReadPointerList(r, "CODE", func(r *binio.Reader, i int) (Code, error) {
		namePtr, err := r.ReadU32()
		if err != nil {
			return Code{}, withContext(err, "CODE", i, "name")
		}
		nameRef, err := strings.ResolvePointer(namePtr)
		if err != nil {
			return Code{}, withContext(err, "CODE", i, "name")
		}
		length, err := r.ReadU32()
		if err != nil {
			return Code{}, withContext(err, "CODE", i, "length")
		}
		var locals int32
		bodyStart := r.Pos
		if v.IsAtLeast(Req(2, 3)) {
			localsVal, err := r.ReadI32()
			if err != nil {
				return Code{}, withContext(err, "CODE", i, "locals_count")
			}
			offset, err := r.ReadI32()
			if err != nil {
				return Code{}, withContext(err, "CODE", i, "body_offset")
			}
			locals = localsVal
			bodyStart = r.Pos + int(offset) - 4
		}
		insts, err := decodeInstructionStream(r, bodyStart, bodyStart+int(length), legacy)
		if err != nil {
			return Code{}, withContext(err, "CODE", i, "instructions")
		}
		return Code{Name: nameRef, Instructions: insts, LocalsCount: locals, bodyStart: bodyStart}, nil
	})
}

// writeCodeChunk writes the CODE chunk as a pointer list of per-entry
// headers followed by each entry's bytecode stream (spec §4.7).
func writeCodeChunk(w *binio.Writer, sb *stringBuilder, pt *PointerTable, codes []Code, v Version) error {
	legacy := !v.IsAtLeast(Req(2, 3))
	return WritePointerList(w, pt, "code", codes, func(w *binio.Writer, i int, c Code) error {
		sb.WritePointer(w, c.Name)
		lengthPos := w.Len()
		w.WriteU32(0)
		if v.IsAtLeast(Req(2, 3)) {
			w.WriteI32(c.LocalsCount)
			w.WriteI32(4) // body starts immediately after this header word
		}
		bodyStart := w.Len()
		if err := encodeInstructionStream(w, c.Instructions, legacy); err != nil {
			return withContext(err, "CODE", i, "instructions")
		}
		return w.OverwriteU32At(lengthPos, uint32(w.Len()-bodyStart))
	})
}

// encodeInstructionStream is the write-side dual of decodeInstructionStream.
// Variable/function occurrence operand words are written as zero
// placeholders; the caller (writeVariables/writeFunctions) later threads
// the real chain deltas into these same positions via occurrence
// tracking recorded on each Variable/Function before Encode calls this
// function, matching decode's two-pass relationship in reverse.
func encodeInstructionStream(w *binio.Writer, insts []Instruction, legacy bool) error {
	for _, in := range insts {
		opPos := w.Len()
		op := in.Op
		wireOp := uint8(op)
		if legacy {
			wireOp = modernToLegacy(op)
			if in.Kind == KCompare {
				wireOp = compareOpcodeLegacy(in.Cmp)
			}
		}
		var typeByte uint8
		var arg uint16
		switch in.Kind {
		case KConvert, KArithmetic, KBitwise, KCompare:
			typeByte = uint8(in.Type1) | uint8(in.Type2)<<4
			if in.Kind == KCompare && !legacy {
				arg = uint16(in.Cmp)
			}
		case KPop:
			typeByte = uint8(in.Type1) | uint8(in.Type2)<<4
			if in.Type1 == TVariable {
				arg = uint16(in.Instance)
			}
		case KDuplicate, KDuplicateSwap:
			typeByte = uint8(in.Type1)
			if in.Kind == KDuplicateSwap {
				arg = 1
			}
		case KReturn, KPopDiscard:
			typeByte = uint8(in.Type1)
		case KPush, KPushLocal, KPushGlobal, KPushBuiltin, KPushImmediate:
			typeByte = uint8(in.Type1)
			switch in.Type1 {
			case TInt16:
				arg = uint16(in.Int16Val)
			case TVariable:
				arg = uint16(in.Instance)
			}
		case KCall, KCallVariable:
			typeByte = uint8(in.Type1)
			arg = uint16(in.ArgCount)
		case KCheckArrayIndex, KPushArrayFinal, KPopArrayFinal, KPushArrayContainer, KSetArrayOwner,
			KHasStaticInitialized, KSetStaticInitialized, KSaveArrayReference, KRestoreArrayReference,
			KIsNullishValue, KPushReference:
			arg = uint16(in.ExtendedSelector)
			if in.Kind == KPushReference {
				typeByte = in.RefKind
			}
		}

		word := uint32(wireOp)<<24 | uint32(typeByte)<<16 | uint32(arg)
		switch in.Kind {
		case KBranch, KBranchIf, KBranchUnless, KPushWithContext:
			word = uint32(wireOp)<<24 | (uint32(in.BranchOffsetWords) & 0xFFFFFF)
		case KPopWithContext:
			word = uint32(wireOp)<<24 | (uint32(in.BranchOffsetWords) & 0xFFFFFF)
		case KPopWithContextExit:
			word = uint32(modernToLegacyOrSelf(OpPopWithCtx, legacy))<<24 | (uint32(popWithContextExitSentinel) & 0xFFFFFF)
		}
		w.WriteU32(word)
		_ = opPos

		switch in.Kind {
		case KPop:
			if in.Type1 == TVariable {
				w.WriteU32(0) // occurrence chain placeholder; threaded by writeVariables
			}
		case KPush, KPushLocal, KPushGlobal, KPushBuiltin, KPushImmediate:
			switch in.Type1 {
			case TVariable:
				w.WriteU32(0) // occurrence chain placeholder
			case TInt32, TBoolean:
				w.WriteI32(in.Int32Val)
			case TInt64:
				w.WriteI64(in.Int64Val)
			case TFloat:
				w.WriteF32(in.FloatVal)
			case TDouble:
				w.WriteF64(in.DoubleVal)
			case TString:
				w.WriteI32(in.Int32Val) // raw string operand, written back as decoded
			}
		case KCall:
			w.WriteU32(0) // function occurrence chain placeholder; threaded by writeFunctions
		case KPushReference:
			w.WriteI32(in.RefIndex)
		}
	}
	return nil
}

func modernToLegacyOrSelf(op Opcode, legacy bool) uint8 {
	if legacy {
		return modernToLegacy(op)
	}
	return uint8(op)
}
