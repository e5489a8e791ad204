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
	"sort"

	"github.com/biotomatede/libgm/binio"
)

// StringRef is a reference into the StringPool.
type StringRef = Ref[string]

// StringPool is the order-sensitive sequence of every literal string in a
// DataFile (spec §3.3, §4.3, GLOSSARY). Its wire format is a pointer list
// whose pointers target 4 bytes into each entry - past the length prefix,
// at the string's data - a quirk this type isolates from every caller that
// merely wants "the string at index i".
type StringPool struct {
	Strings []string

	// occurrences maps a wire pointer (to the data region of some STRG
	// entry) to that entry's pool index. Populated while STRG is read, so
	// every other chunk can resolve a string pointer on demand without
	// re-scanning STRG (spec §4.4: "occurrence maps (pointer -> asset
	// index) at pool-read time").
	occurrences map[uint32]int32
}

// ReadStringPool reads the STRG chunk: a pointer list of length-prefixed
// UTF-8 strings. The reader primes the pool's pointer->index occurrence map
// so later chunks can resolve string pointers (spec §2 data flow: "StringPool
// reads first to prime pointers").
func ReadStringPool(r *binio.Reader, chunkStart, chunkEnd int) (*StringPool, error) {
	r.Seek(chunkStart)
	count, err := r.ReadU32()
	if err != nil {
		return nil, withContext(err, "STRG", -1, "count")
	}
	if err := checkCount(count, "string"); err != nil {
		return nil, err
	}
	pointers := make([]uint32, count)
	for i := range pointers {
		v, err := r.ReadU32()
		if err != nil {
			return nil, withContext(err, "STRG", int(i), "pointer")
		}
		pointers[i] = v
	}

	sp := &StringPool{
		Strings:     make([]string, count),
		occurrences: make(map[uint32]int32, count),
	}
	for i, ptr := range pointers {
		// Each pointer targets the string data, 4 bytes past the entry's
		// length prefix. Entries are visited by pointer rather than in file
		// order, since stringBuilder.Flush emits them sorted and shares one
		// entry between duplicates.
		if ptr < 4 {
			return nil, withContext(newErr(ErrReference, "string pointer %d leaves no room for a length prefix", ptr), "STRG", i, "pointer")
		}
		r.Seek(int(ptr) - 4)
		length, err := r.ReadU32()
		if err != nil {
			return nil, withContext(err, "STRG", i, "length")
		}
		dataPos := r.Pos
		s, err := r.ReadLiteralString(int(length))
		if err != nil {
			return nil, withContext(err, "STRG", i, "data")
		}
		// Every GameMaker string is NUL-terminated on the wire.
		if _, err := r.ReadBytes(1); err != nil {
			return nil, withContext(err, "STRG", i, "terminator")
		}
		sp.Strings[i] = s
		sp.occurrences[uint32(dataPos)] = int32(i)
		if r.Pos < chunkEnd {
			if err := r.Align(4); err != nil {
				return nil, withContext(err, "STRG", i, "padding")
			}
		}
	}
	return sp, nil
}

// ResolvePointer looks up a raw wire pointer (as embedded in some other
// element's field) against the occurrence map primed during ReadStringPool,
// returning the pool index it refers to.
func (sp *StringPool) ResolvePointer(ptr uint32) (StringRef, error) {
	idx, ok := sp.occurrences[ptr]
	if !ok {
		return 0, newErr(ErrReference, "string pointer 0x%X does not resolve to any STRG entry", ptr)
	}
	return StringRef(idx), nil
}

// Intern returns the StringRef for s, appending it to the pool if it is not
// already present. Unlike write-time deduplication (which operates on the
// final sorted order), Intern preserves in-memory index stability: the
// returned index never changes once assigned, matching "the in-memory
// sequence order is preserved for external references" (spec §5).
func (sp *StringPool) Intern(s string) StringRef {
	for i, existing := range sp.Strings {
		if existing == s {
			return StringRef(i)
		}
	}
	sp.Strings = append(sp.Strings, s)
	return StringRef(len(sp.Strings) - 1)
}

// stringPlaceholder is a deferred string write: the field's file position
// is fixed by emission order, but its string's file position is not known
// until the STRG chunk is finally emitted (spec §4.3 "build-time").
type stringPlaceholder struct {
	pos   int // position of the placeholder word within w.Buf
	ref   StringRef
	asID  bool // write the pool index instead of the patched file offset
}

// stringBuilder stages placeholders during encoding and resolves them once
// the pool's final (sorted, deduplicated) emission order is known.
type stringBuilder struct {
	pool         *StringPool
	placeholders []stringPlaceholder
}

func newStringBuilder(pool *StringPool) *stringBuilder {
	return &stringBuilder{pool: pool}
}

// WritePointer stages a placeholder word for ref at w's current position.
func (sb *stringBuilder) WritePointer(w *binio.Writer, ref StringRef) {
	sb.placeholders = append(sb.placeholders, stringPlaceholder{pos: w.Len(), ref: ref})
	w.WriteU32(0xDEADC0DE)
}

// WritePointerOpt is the optional-reference dual of WritePointer: an absent
// ref writes -1 rather than staging a placeholder (spec §3.2).
func (sb *stringBuilder) WritePointerOpt(w *binio.Writer, ref StringRef) {
	if !ref.Present() {
		w.WriteI32(-1)
		return
	}
	sb.WritePointer(w, ref)
}

// WriteID stages a placeholder that resolves to the pool index (not the
// file offset) of ref, for the occurrence-chain terminators and other
// "string-ID contexts" (spec §4.3).
func (sb *stringBuilder) WriteID(w *binio.Writer, ref StringRef) {
	sb.placeholders = append(sb.placeholders, stringPlaceholder{pos: w.Len(), ref: ref, asID: true})
	w.WriteU32(0xDEADC0DE)
}

// emittedString is one pool entry as it will be written to STRG.
type emittedString struct {
	text string
	pos  int // position of the length prefix within the STRG payload
}

// Flush deduplicates and sorts the pool's strings, writes the STRG chunk
// body into w, and patches every staged placeholder with the final address
// (or dedup pool index, for WriteID sites) (spec §4.3, §8 property 6).
func (sb *stringBuilder) Flush(w *binio.Writer) error {
	type entry struct {
		text       string
		origIndex  int
	}
	entries := make([]entry, len(sb.pool.Strings))
	for i, s := range sb.pool.Strings {
		entries[i] = entry{text: s, origIndex: i}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].text < entries[j].text })

	// dedup identical strings to their first sorted occurrence.
	dataPosByOrig := make(map[int]uint32, len(entries))
	countStart := w.Len()
	w.WriteU32(uint32(len(sb.pool.Strings)))
	for range sb.pool.Strings {
		w.WriteU32(0) // pointer-list slot, patched below
	}
	pointerSlotPos := countStart + 4

	seen := make(map[string]uint32, len(entries))
	writtenOrder := make([]int, 0, len(entries))
	for _, e := range entries {
		if _, dup := seen[e.text]; dup {
			dataPosByOrig[e.origIndex] = seen[e.text]
			continue
		}
		w.WriteU32(uint32(len(e.text)))
		dataPos := uint32(w.Len())
		w.WriteLiteralString(e.text)
		w.WriteU8(0)
		w.Align(4)
		seen[e.text] = dataPos
		dataPosByOrig[e.origIndex] = dataPos
		writtenOrder = append(writtenOrder, e.origIndex)
	}

	// Patch the pointer-list slots, one per ORIGINAL index (pointer lists
	// are indexed by in-memory order, spec §3.3), to the data position of
	// that string (which may be shared with an earlier duplicate).
	for origIndex := 0; origIndex < len(sb.pool.Strings); origIndex++ {
		if err := w.OverwriteU32At(pointerSlotPos+4*origIndex, dataPosByOrig[origIndex]); err != nil {
			return withContext(err, "STRG", origIndex, "pointer slot")
		}
	}

	for _, ph := range sb.placeholders {
		if ph.asID {
			if err := w.OverwriteU32At(ph.pos, uint32(ph.ref)); err != nil {
				return err
			}
			continue
		}
		pos, ok := dataPosByOrig[int(ph.ref)]
		if !ok {
			return newErr(ErrReference, "string placeholder at %d references unresolved pool index %d", ph.pos, ph.ref)
		}
		if err := w.OverwriteU32At(ph.pos, pos); err != nil {
			return err
		}
	}
	return nil
}
