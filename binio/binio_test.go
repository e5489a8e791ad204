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

package binio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadWriteRoundTrip(t *testing.T) {
	for _, endian := range []Endianness{LittleEndian, BigEndian} {
		w := NewWriter(endian, 0)
		w.WriteU32(0xDEADBEEF)
		w.WriteI16(-7)
		w.WriteF64(3.25)
		w.WriteBool32(true)
		w.WriteLiteralString("hi")

		r := NewReader(w.Buf, endian)
		u, err := r.ReadU32()
		require.NoError(t, err)
		assert.Equal(t, uint32(0xDEADBEEF), u)

		i, err := r.ReadI16()
		require.NoError(t, err)
		assert.Equal(t, int16(-7), i)

		f, err := r.ReadF64()
		require.NoError(t, err)
		assert.Equal(t, 3.25, f)

		b, err := r.ReadBool32()
		require.NoError(t, err)
		assert.True(t, b)

		s, err := r.ReadLiteralString(2)
		require.NoError(t, err)
		assert.Equal(t, "hi", s)
	}
}

func TestAlignRoundTrip(t *testing.T) {
	w := NewWriter(LittleEndian, 0)
	w.WriteU8(1)
	w.Align(8)
	assert.Equal(t, 8, w.Len())

	r := NewReader(w.Buf, LittleEndian)
	_, err := r.ReadU8()
	require.NoError(t, err)
	require.NoError(t, r.Align(8))
	assert.Equal(t, 8, r.Pos)
}

func TestAlignRejectsNonZeroPadding(t *testing.T) {
	r := NewReader([]byte{1, 1}, LittleEndian)
	_, err := r.ReadU8()
	require.NoError(t, err)
	err = r.Align(2)
	require.Error(t, err)
	var binErr *Error
	require.ErrorAs(t, err, &binErr)
	assert.Equal(t, ErrAlignment, binErr.Kind)
}

func TestOverwriteU32At(t *testing.T) {
	w := NewWriter(LittleEndian, 0)
	w.WriteU32(0)
	w.WriteU32(0x1234)
	require.NoError(t, w.OverwriteU32At(0, 0xCAFEBABE))

	r := NewReader(w.Buf, LittleEndian)
	v, err := r.ReadU32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0xCAFEBABE), v)
}

func TestReadBoundsError(t *testing.T) {
	r := NewReader([]byte{1, 2}, LittleEndian)
	_, err := r.ReadU32()
	require.Error(t, err)
	var binErr *Error
	require.ErrorAs(t, err, &binErr)
	assert.Equal(t, ErrBounds, binErr.Kind)
}

func TestReadLiteralStringInvalidUTF8(t *testing.T) {
	r := NewReader([]byte{0xFF, 0xFE}, LittleEndian)
	_, err := r.ReadLiteralString(2)
	require.Error(t, err)
	var binErr *Error
	require.ErrorAs(t, err, &binErr)
	assert.Equal(t, ErrEncoding, binErr.Kind)
}
