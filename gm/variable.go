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

// Variable is one VARI entry: a name plus its occurrence chain's embedding
// positions within CODE, threaded rather than stored as a pointer list
// (spec §4.4.1; grounded on original_source's variables.rs /
// elements/function.rs sibling logic).
type Variable struct {
	Name         StringRef
	InstanceType InstanceType
	VariableID   int32 // -1 when absent; present from 2.3 onward only

	// Occurrences is populated while VARI is decoded (readVariables walks
	// this variable's occurrence chain and records each operand position)
	// and consumed when VARI is encoded (writeVariables has threadChain patch
	// these positions into a chain). It is not part of the VARI wire record itself.
	Occurrences []int
}

// readVariables reads the VARI chunk: a flat (non-pointer-list) array of
// fixed-size records, one per variable, each carrying its first-occurrence
// position and total occurrence count rather than a nested pointer list
// (spec §3.3 "Flat array", §4.4.1).
func readVariables(r *binio.Reader, chunk chunkRange, strings *StringPool, v Version) ([]Variable, error) {
	r.Seek(chunk.Start)
	hasInstanceFields := v.IsAtLeast(Req(2, 3))
	recordSize := 20
	if !hasInstanceFields {
		recordSize = 12
	}
	n := chunk.length() / recordSize
	out := make([]Variable, 0, n)
	for i := 0; r.Pos+recordSize <= chunk.End; i++ {
		namePtr, err := r.ReadU32()
		if err != nil {
			return nil, withContext(err, "VARI", i, "name")
		}
		nameRef, err := strings.ResolvePointer(namePtr)
		if err != nil {
			return nil, withContext(err, "VARI", i, "name")
		}
		va := Variable{Name: nameRef, VariableID: -1}
		if hasInstanceFields {
			instTy, err := r.ReadI32()
			if err != nil {
				return nil, withContext(err, "VARI", i, "instance_type")
			}
			va.InstanceType = InstanceType(instTy)
			id, err := r.ReadI32()
			if err != nil {
				return nil, withContext(err, "VARI", i, "variable_id")
			}
			va.VariableID = id
		}
		firstPos, err := r.ReadU32()
		if err != nil {
			return nil, withContext(err, "VARI", i, "first_occurrence")
		}
		count, err := r.ReadU32()
		if err != nil {
			return nil, withContext(err, "VARI", i, "occurrence_count")
		}
		if count > 0 {
			adjusted := firstOccurrencePosOnRead(firstPos, v)
			savedPos := r.Pos
			cursor, err := ReadOccurrenceChain(r, adjusted, count)
			if err != nil {
				return nil, withContext(err, "VARI", i, "occurrence_chain")
			}
			r.Seek(savedPos)
			va.Occurrences = cursor.Positions
		}
		out = append(out, va)
	}
	return out, nil
}

// writeVariables writes the VARI chunk body, threading each variable's
// occurrence chain through the positions held in its Occurrences.
func writeVariables(w *binio.Writer, sb *stringBuilder, vars []Variable, v Version) error {
	for i, va := range vars {
		sb.WritePointer(w, va.Name)
		if v.IsAtLeast(Req(2, 3)) {
			w.WriteI32(int32(va.InstanceType))
			w.WriteI32(va.VariableID)
		}
		count := len(va.Occurrences)
		if count == 0 {
			w.WriteI32(0)
			w.WriteU32(0)
			continue
		}
		firstAbs := va.Occurrences[0]
		declared := firstOccurrencePosOnWrite(firstAbs, v)
		w.WriteI32(declared)
		w.WriteU32(uint32(count))
		if err := threadChain(w, va.Occurrences, uint32(va.Name)); err != nil {
			return withContext(err, "VARI", i, "occurrence_chain")
		}
	}
	return nil
}
