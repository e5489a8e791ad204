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

// occurrenceOffsetMask is the field width actually used by the runtime for
// the "next occurrence" delta: 27 bits (0x07FFFFFF). spec.md describes this
// as 24 bits for simplicity; the original Rust source's variable and
// function occurrence-chain walkers both mask with 0x07FFFFFF, which this
// port follows (see DESIGN.md).
const occurrenceOffsetMask = 0x07FFFFFF

// occurrenceNameIDMask extracts the chain terminator's name-string index.
const occurrenceNameIDMask = 0x00FFFFFF

// OccurrenceCursor is the read-side walk over a variable/function's
// occurrence chain (spec §4.4.1, GLOSSARY "Occurrence chain", §9 "Iterator-
// based occurrence walks").
type OccurrenceCursor struct {
	Positions    []int  // absolute file positions of every occurrence, in chain order
	NameStringID uint32 // terminator's low-bits payload; readVariables/readFunctions do not compare it with the record's name
}

// ReadOccurrenceChain walks a variable/function occurrence chain starting
// at firstPos (an absolute file position, already adjusted for the pre-2.3
// +4 nuance by the caller), reading count links from the CODE chunk bytes
// in r.Buf. It leaves r's cursor inside the chain, so callers save r.Pos
// before the call and restore it afterwards, matching the source's
// save-chunk/restore-chunk pattern.
func ReadOccurrenceChain(r *binio.Reader, firstPos uint32, count uint32) (OccurrenceCursor, error) {
	if count < 1 {
		return OccurrenceCursor{NameStringID: firstPos}, nil
	}
	positions := make([]int, 0, count)
	pos := firstPos
	var raw int32
	for i := uint32(0); i < count; i++ {
		positions = append(positions, int(pos))
		r.Seek(int(pos))
		v, err := r.ReadI32()
		if err != nil {
			return OccurrenceCursor{}, withPos(withContext(err, "CODE", int(i), "occurrence link"), int(pos))
		}
		raw = v
		offset := raw & occurrenceOffsetMask
		if offset < 1 {
			return OccurrenceCursor{}, newErr(ErrReference, "occurrence chain link at %d has non-positive next offset %d (raw 0x%08X)", pos, offset, uint32(raw))
		}
		pos += uint32(offset)
	}
	return OccurrenceCursor{
		Positions:    positions,
		NameStringID: uint32(raw) & occurrenceNameIDMask,
	}, nil
}

// occurrenceBuilder threads the write-side dual: every reference to a given
// variable/function records its emit position, then after all instructions
// are emitted the per-asset lists are threaded into chains by patching each
// site's low bits with the delta to the next site, terminating with the
// name-string index (spec §4.4.1 "Writers reverse the process").
type occurrenceBuilder struct {
	// sites[family][assetIndex] is the list of CODE-chunk-relative emit
	// positions recorded for that asset, in emission order.
	sites map[string][][]int
}

func newOccurrenceBuilder() *occurrenceBuilder {
	return &occurrenceBuilder{sites: make(map[string][][]int)}
}

// reserve ensures family has room for n assets.
func (ob *occurrenceBuilder) reserve(family string, n int) {
	if len(ob.sites[family]) < n {
		grown := make([][]int, n)
		copy(grown, ob.sites[family])
		ob.sites[family] = grown
	}
}

// record notes that asset `index` of `family` was referenced at CODE-chunk-
// relative position pos.
func (ob *occurrenceBuilder) record(family string, index int, pos int) {
	ob.reserve(family, index+1)
	ob.sites[family][index] = append(ob.sites[family][index], pos)
}

// occurrencesFor returns the recorded emit positions for an asset, in order.
func (ob *occurrenceBuilder) occurrencesFor(family string, index int) []int {
	if index >= len(ob.sites[family]) {
		return nil
	}
	return ob.sites[family][index]
}

// threadChain patches the recorded positions in w's buffer into a linked
// chain: each link's low occurrenceOffsetMask bits become the delta to the
// next link, and the last link's low occurrenceNameIDMask bits become
// nameStringID. positions are absolute offsets into w's buffer, matching
// every other pointer field in this codec.
func threadChain(w *binio.Writer, positions []int, nameStringID uint32) error {
	for i, pos := range positions {
		absPos := pos
		existing, err := peekU32(w, absPos)
		if err != nil {
			return err
		}
		highBits := existing &^ occurrenceOffsetMask
		var low uint32
		if i == len(positions)-1 {
			low = nameStringID & occurrenceNameIDMask
		} else {
			delta := positions[i+1] - pos
			if delta < 1 {
				return newErr(ErrReference, "non-positive occurrence chain delta %d while threading", delta)
			}
			low = uint32(delta) & occurrenceOffsetMask
		}
		if err := w.OverwriteU32At(absPos, highBits|low); err != nil {
			return err
		}
	}
	return nil
}

// peekU32 reads 4 bytes already present in w's buffer without disturbing
// its write position.
func peekU32(w *binio.Writer, pos int) (uint32, error) {
	if pos < 0 || pos+4 > len(w.Buf) {
		return 0, newErr(ErrReference, "occurrence chain position %d out of written range (%d bytes written)", pos, len(w.Buf))
	}
	b := w.Buf[pos : pos+4]
	if w.Endian == binio.BigEndian {
		return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), nil
	}
	return uint32(b[3])<<24 | uint32(b[2])<<16 | uint32(b[1])<<8 | uint32(b[0]), nil
}

// firstOccurrencePosOnRead implements the version nuance of spec §4.4.1: before
// runtime 2.3, the declared first-occurrence position references the
// instruction's opcode word; at 2.3+, it references the operand word 4
// bytes later.
func firstOccurrencePosOnRead(declared uint32, v Version) uint32 {
	if v.IsAtLeast(Req(2, 3)) {
		return declared
	}
	return declared + 4
}

// firstOccurrencePosOnWrite is the write-side dual.
func firstOccurrencePosOnWrite(operandPos int, v Version) int32 {
	if v.IsAtLeast(Req(2, 3)) {
		return int32(operandPos)
	}
	return int32(operandPos) - 4
}
