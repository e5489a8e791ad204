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
	"fmt"

	"github.com/biotomatede/libgm/binio"
)

// pointerTarget identifies, for the lifetime of a single Encode call, one
// element slot within one asset family. In the source language this was the
// in-memory address of the element; the Go port's arena-of-slices model
// (spec §9, "Replace with arena + index") makes (family, index) a simpler
// and equally stable identity, since Data owns every element by value in a
// dense slice for the whole encode pass.
type pointerTarget struct {
	family string
	index  int
}

func (t pointerTarget) String() string { return fmt.Sprintf("%s#%d", t.family, t.index) }

// PointerTable is the encoder-context two-phase pointer resolver (spec
// §4.4): placeholder sites recorded as they are written, resolved positions
// recorded as each target is emitted, and a final Flush that patches every
// placeholder or fails fatally if a target was never emitted.
//
// A PointerTable is created fresh per Encode call (spec §9: "contain within
// an encoder context explicitly threaded through all serialize functions;
// no process-wide state").
type PointerTable struct {
	placeholders []placeholderSite
	resolved     map[pointerTarget]int
}

type placeholderSite struct {
	pos    int
	target pointerTarget
}

// NewPointerTable returns an empty PointerTable sized for n total elements.
func NewPointerTable(n int) *PointerTable {
	return &PointerTable{resolved: make(map[pointerTarget]int, n)}
}

// WritePointer stages a 0xDEADC0DE placeholder word at w's current position
// for the index'th element of family, to be patched once that element is
// emitted.
func (pt *PointerTable) WritePointer(w *binio.Writer, family string, index int) {
	pt.placeholders = append(pt.placeholders, placeholderSite{pos: w.Len(), target: pointerTarget{family, index}})
	w.WriteU32(0xDEADC0DE)
}

// WritePointerOpt is the dual of WritePointer for an optional reference:
// index < 0 writes a null (zero) pointer rather than staging a placeholder.
func (pt *PointerTable) WritePointerOpt(w *binio.Writer, family string, index int) {
	if index < 0 {
		w.WriteI32(0)
		return
	}
	pt.WritePointer(w, family, index)
}

// MarkResolved records that the index'th element of family has just been
// emitted at w's current position. It is a fatal bug (returns ErrReference)
// to resolve the same target twice.
func (pt *PointerTable) MarkResolved(w *binio.Writer, family string, index int) error {
	target := pointerTarget{family, index}
	if _, dup := pt.resolved[target]; dup {
		return newErr(ErrReference, "pointer target %s resolved twice", target)
	}
	pt.resolved[target] = w.Len()
	return nil
}

// Flush patches every staged placeholder with its target's resolved
// position. A placeholder with no matching resolution is a fatal bug
// (spec §4.4: "aborts encoding").
func (pt *PointerTable) Flush(w *binio.Writer) error {
	for _, ph := range pt.placeholders {
		pos, ok := pt.resolved[ph.target]
		if !ok {
			return newErr(ErrReference, "unresolved pointer placeholder for target %s at position %d", ph.target, ph.pos)
		}
		if err := w.OverwriteU32At(ph.pos, uint32(pos)); err != nil {
			return err
		}
	}
	return nil
}

// ReadPointerList reads the "pointer list" container shape (spec §3.3): a
// 32-bit count, n 32-bit offsets, then n elements, each read after seeking
// to its recorded offset. Where the cursor stood before that seek is not
// checked. decode is called once per element, already positioned at its
// offset; its return value is stored in order.
func ReadPointerList[T any](r *binio.Reader, chunk string, decode func(r *binio.Reader, index int) (T, error)) ([]T, error) {
	count, err := r.ReadU32()
	if err != nil {
		return nil, withContext(err, chunk, -1, "count")
	}
	if err := checkCount(count, chunk); err != nil {
		return nil, err
	}
	offsets := make([]uint32, count)
	for i := range offsets {
		v, err := r.ReadU32()
		if err != nil {
			return nil, withContext(err, chunk, int(i), "offset")
		}
		offsets[i] = v
	}
	out := make([]T, count)
	for i, off := range offsets {
		r.Seek(int(off))
		v, err := decode(r, i)
		if err != nil {
			return nil, withContext(err, chunk, i, "element")
		}
		out[i] = v
	}
	return out, nil
}

// WritePointerList writes the "pointer list" container shape: a count, a
// placeholder offset per element, then each element's body in order, with
// the corresponding placeholder resolved immediately before its body is
// emitted.
func WritePointerList[T any](w *binio.Writer, pt *PointerTable, family string, items []T, encode func(w *binio.Writer, index int, v T) error) error {
	w.WriteU32(uint32(len(items)))
	base := w.Len()
	for i := range items {
		_ = base
		pt.WritePointer(w, family, i)
	}
	for i, v := range items {
		if err := pt.MarkResolved(w, family, i); err != nil {
			return err
		}
		if err := encode(w, i, v); err != nil {
			return withContext(err, family, i, "element")
		}
	}
	return nil
}
