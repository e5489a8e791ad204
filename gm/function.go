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

// Function is one FUNC entry (spec §4.4.1; grounded on
// original_source/libgm/src/gamemaker/elements/function.rs).
type Function struct {
	Name        StringRef
	Occurrences []int // CODE positions; populated/consumed exactly like Variable.Occurrences
}

// CodeLocal is one named local-variable slot for a single code entry
// (spec's SUPPLEMENTED FEATURES; grounded on the older functions.rs sibling
// file's GMCodeLocal/GMCodeLocalVariable).
type CodeLocal struct {
	Name       StringRef
	WeirdIndex int32
}

// CodeLocals is the FUNC chunk's trailing per-code-entry locals table,
// present from runtime 2.3 onward.
type CodeLocals struct {
	CodeName StringRef
	Locals   []CodeLocal
}

func readFunctions(r *binio.Reader, chunk chunkRange, strings *StringPool, v Version) ([]Function, error) {
	r.Seek(chunk.Start)
	var out []Function
	for i := 0; r.Pos+12 <= chunk.End; i++ {
		namePtr, err := r.ReadU32()
		if err != nil {
			return nil, withContext(err, "FUNC", i, "name")
		}
		nameRef, err := strings.ResolvePointer(namePtr)
		if err != nil {
			return nil, withContext(err, "FUNC", i, "name")
		}
		firstPos, err := r.ReadU32()
		if err != nil {
			return nil, withContext(err, "FUNC", i, "first_occurrence")
		}
		count, err := r.ReadU32()
		if err != nil {
			return nil, withContext(err, "FUNC", i, "occurrence_count")
		}
		fn := Function{Name: nameRef}
		if count > 0 {
			adjusted := firstOccurrencePosOnRead(firstPos, v)
			savedPos := r.Pos
			cursor, err := ReadOccurrenceChain(r, adjusted, count)
			if err != nil {
				return nil, withContext(err, "FUNC", i, "occurrence_chain")
			}
			r.Seek(savedPos)
			fn.Occurrences = cursor.Positions
		}
		out = append(out, fn)
	}
	return out, nil
}

func writeFunctions(w *binio.Writer, sb *stringBuilder, fns []Function, v Version) error {
	for i, fn := range fns {
		sb.WritePointer(w, fn.Name)
		count := len(fn.Occurrences)
		if count == 0 {
			w.WriteI32(0)
			w.WriteU32(0)
			continue
		}
		declared := firstOccurrencePosOnWrite(fn.Occurrences[0], v)
		w.WriteI32(declared)
		w.WriteU32(uint32(count))
		if err := threadChain(w, fn.Occurrences, uint32(fn.Name)); err != nil {
			return withContext(err, "FUNC", i, "occurrence_chain")
		}
	}
	return nil
}

// readCodeLocals reads the 2.3+ trailing locals table appended after the
// function list within FUNC.
func readCodeLocals(r *binio.Reader, chunkEnd int, strings *StringPool) ([]CodeLocals, error) {
	if r.Pos >= chunkEnd {
		return nil, nil
	}
	count, err := r.ReadU32()
	if err != nil {
		return nil, withContext(err, "FUNC", -1, "code_locals_count")
	}
	if err := checkCount(count, "code locals"); err != nil {
		return nil, err
	}
	out := make([]CodeLocals, count)
	for i := range out {
		codeNamePtr, err := r.ReadU32()
		if err != nil {
			return nil, withContext(err, "FUNC", i, "code_locals.code_name")
		}
		codeNameRef, err := strings.ResolvePointer(codeNamePtr)
		if err != nil {
			return nil, withContext(err, "FUNC", i, "code_locals.code_name")
		}
		localCount, err := r.ReadU32()
		if err != nil {
			return nil, withContext(err, "FUNC", i, "code_locals.count")
		}
		locals := make([]CodeLocal, localCount)
		for j := range locals {
			weird, err := r.ReadI32()
			if err != nil {
				return nil, withContext(err, "FUNC", i, "code_locals.weird_index")
			}
			namePtr, err := r.ReadU32()
			if err != nil {
				return nil, withContext(err, "FUNC", i, "code_locals.name")
			}
			nameRef, err := strings.ResolvePointer(namePtr)
			if err != nil {
				return nil, withContext(err, "FUNC", i, "code_locals.name")
			}
			locals[j] = CodeLocal{Name: nameRef, WeirdIndex: weird}
		}
		out[i] = CodeLocals{CodeName: codeNameRef, Locals: locals}
	}
	return out, nil
}

func writeCodeLocals(w *binio.Writer, sb *stringBuilder, cls []CodeLocals) {
	w.WriteU32(uint32(len(cls)))
	for _, cl := range cls {
		sb.WritePointer(w, cl.CodeName)
		w.WriteU32(uint32(len(cl.Locals)))
		for _, loc := range cl.Locals {
			w.WriteI32(loc.WeirdIndex)
			sb.WritePointer(w, loc.Name)
		}
	}
}
