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

func TestStringPoolReadRoundTrip(t *testing.T) {
	for _, endian := range []binio.Endianness{binio.LittleEndian, binio.BigEndian} {
		w := binio.NewWriter(endian, 256)
		w.WriteU32(2)
		pointerSlot := w.Len()
		w.WriteU32(0)
		w.WriteU32(0)

		w.WriteU32(5)
		pos0 := w.Len()
		w.WriteLiteralString("hello")
		w.WriteU8(0)
		w.Align(4)

		w.WriteU32(3)
		pos1 := w.Len()
		w.WriteLiteralString("abc")
		w.WriteU8(0)
		w.Align(4)

		require.NoError(t, w.OverwriteU32At(pointerSlot, uint32(pos0)))
		require.NoError(t, w.OverwriteU32At(pointerSlot+4, uint32(pos1)))

		r := binio.NewReader(w.Buf, endian)
		sp, err := ReadStringPool(r, 0, len(w.Buf))
		require.NoError(t, err)
		require.Equal(t, []string{"hello", "abc"}, sp.Strings)

		ref, err := sp.ResolvePointer(uint32(pos1))
		require.NoError(t, err)
		require.Equal(t, StringRef(1), ref)

		_, err = sp.ResolvePointer(0xFFFFFFFF)
		require.Error(t, err)
		var ce *CodecError
		require.ErrorAs(t, err, &ce)
		require.Equal(t, ErrReference, ce.Kind)
	}
}

func TestStringPoolInternPreservesStableIndex(t *testing.T) {
	sp := &StringPool{}
	a := sp.Intern("foo")
	b := sp.Intern("bar")
	c := sp.Intern("foo")
	require.Equal(t, a, c, "interning an existing string returns its original index")
	require.NotEqual(t, a, b)
	require.Equal(t, []string{"foo", "bar"}, sp.Strings)
}

func TestStringBuilderFlushDedupsAndSorts(t *testing.T) {
	sp := &StringPool{Strings: []string{"zeta", "alpha", "zeta"}}
	sb := newStringBuilder(sp)

	w := binio.NewWriter(binio.LittleEndian, 256)
	refA := StringRef(0) // "zeta"
	refB := StringRef(1) // "alpha"
	var posA, posB int
	sb.WritePointer(w, refA)
	posA = w.Len() - 4
	sb.WritePointer(w, refB)
	posB = w.Len() - 4

	require.NoError(t, sb.Flush(w))

	r := binio.NewReader(w.Buf, binio.LittleEndian)
	r.Seek(posA)
	ptrA, err := r.ReadU32()
	require.NoError(t, err)
	r.Seek(posB)
	ptrB, err := r.ReadU32()
	require.NoError(t, err)

	require.NotEqual(t, ptrA, ptrB, "distinct strings must resolve to distinct positions")

	// "alpha" sorts before "zeta", so it is emitted first.
	require.Less(t, ptrB, ptrA)

	// The pool's second "zeta" (index 2) shares the first one's entry. Its
	// STRG pointer slot follows the two placeholders and the count, at 20.
	r.Seek(20)
	ptrDup, err := r.ReadU32()
	require.NoError(t, err)
	require.Equal(t, ptrA, ptrDup)

	// Read back both strings to confirm layout.
	readAt := func(pos uint32) string {
		rr := binio.NewReader(w.Buf, binio.LittleEndian)
		rr.Seek(int(pos) - 4)
		length, err := rr.ReadU32()
		require.NoError(t, err)
		s, err := rr.ReadLiteralString(int(length))
		require.NoError(t, err)
		return s
	}
	require.Equal(t, "zeta", readAt(ptrA))
	require.Equal(t, "alpha", readAt(ptrB))
}

func TestStringBuilderFlushDedupsRepeatedString(t *testing.T) {
	sp := &StringPool{Strings: []string{"same", "same"}}
	sb := newStringBuilder(sp)
	w := binio.NewWriter(binio.LittleEndian, 256)
	sb.WritePointer(w, StringRef(0))
	posFirst := w.Len() - 4
	sb.WritePointer(w, StringRef(1))
	posSecond := w.Len() - 4

	require.NoError(t, sb.Flush(w))

	r := binio.NewReader(w.Buf, binio.LittleEndian)
	r.Seek(posFirst)
	ptrFirst, err := r.ReadU32()
	require.NoError(t, err)
	r.Seek(posSecond)
	ptrSecond, err := r.ReadU32()
	require.NoError(t, err)
	require.Equal(t, ptrFirst, ptrSecond, "duplicate strings must dedup to the same data position")
}
