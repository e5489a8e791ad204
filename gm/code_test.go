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

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/biotomatede/libgm/binio"
)

// buildPushGlobalWord builds one modern PUSH.V instruction's opcode word:
// a variable-typed push whose instance-type byte selects Global.
func buildPushGlobalWord() uint32 {
	return uint32(OpPush)<<24 | uint32(TVariable)<<16 | uint32(uint16(int16(InstGlobal)))
}

// buildCallWord builds one modern CALL instruction's opcode word with the
// given argument count.
func buildCallWord(argCount uint8) uint32 {
	return uint32(OpCall)<<24 | uint32(argCount)
}

func TestDecodeInstructionStreamPushVariableAndCall(t *testing.T) {
	w := binio.NewWriter(binio.LittleEndian, 32)
	w.WriteU32(buildPushGlobalWord())
	w.WriteU32(0) // occurrence operand word; value irrelevant to decode, only position matters
	w.WriteU32(buildCallWord(2))
	w.WriteU32(0) // occurrence operand word

	r := binio.NewReader(w.Buf, binio.LittleEndian)
	insts, err := decodeInstructionStream(r, 0, len(w.Buf), false)
	require.NoError(t, err)
	require.Len(t, insts, 2)

	require.Equal(t, KPush, insts[0].Kind)
	require.Equal(t, TVariable, insts[0].Type1)
	require.Equal(t, InstGlobal, insts[0].Instance)

	require.Equal(t, KCall, insts[1].Kind)
	require.Equal(t, uint8(2), insts[1].ArgCount)
}

func TestResolveCodeReferencesMatchesOccurrencePositions(t *testing.T) {
	w := binio.NewWriter(binio.LittleEndian, 32)
	w.WriteU32(buildPushGlobalWord()) // at position 0; operand word follows at 4
	w.WriteU32(0)
	w.WriteU32(buildCallWord(1)) // at position 8; operand word follows at 12
	w.WriteU32(0)

	r := binio.NewReader(w.Buf, binio.LittleEndian)
	insts, err := decodeInstructionStream(r, 0, len(w.Buf), false)
	require.NoError(t, err)

	d := &Data{
		Codes:     []Code{{Name: 0, Instructions: insts}},
		Variables: []Variable{{Name: 0, Occurrences: []int{4}}},
		Functions: []Function{{Name: 0, Occurrences: []int{12}}},
	}

	require.NoError(t, resolveCodeReferences(d))
	require.Equal(t, Ref[Variable](0), d.Codes[0].Instructions[0].VarRef)
	require.Equal(t, Ref[Function](0), d.Codes[0].Instructions[1].FuncRef)
}

func TestResolveCodeReferencesFailsOnUnmatchedPosition(t *testing.T) {
	w := binio.NewWriter(binio.LittleEndian, 16)
	w.WriteU32(buildPushGlobalWord())
	w.WriteU32(0)

	r := binio.NewReader(w.Buf, binio.LittleEndian)
	insts, err := decodeInstructionStream(r, 0, len(w.Buf), false)
	require.NoError(t, err)

	d := &Data{
		Codes:     []Code{{Name: 0, Instructions: insts}},
		Variables: []Variable{{Name: 0, Occurrences: []int{999}}}, // does not match varOperandPos=4
	}

	err = resolveCodeReferences(d)
	require.Error(t, err)
	var ce *CodecError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, ErrReference, ce.Kind)
}

func TestDecodeInstructionStreamUnrecognizedOpcodeFails(t *testing.T) {
	w := binio.NewWriter(binio.LittleEndian, 16)
	w.WriteU32(uint32(0xAA) << 24) // not a recognized opcode byte
	r := binio.NewReader(w.Buf, binio.LittleEndian)
	_, err := decodeInstructionStream(r, 0, len(w.Buf), false)
	require.Error(t, err)
	var ce *CodecError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, ErrIntegrity, ce.Kind)
}
