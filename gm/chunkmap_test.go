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

	"go.uber.org/zap"

	"github.com/stretchr/testify/require"

	"github.com/biotomatede/libgm/binio"
)

// buildForm assembles a minimal FORM container with the given chunks, each
// padded to a 16-byte boundary, matching the teacher-grounded layout
// ReadChunkMap expects.
func buildForm(t *testing.T, endian binio.Endianness, chunks map[string][]byte, order []string) []byte {
	t.Helper()
	w := binio.NewWriter(endian, 256)
	w.WriteBytes(formMagic[:])
	lenPos := w.Len()
	w.WriteU32(0)
	bodyStart := w.Len()
	for i, name := range order {
		if i > 0 {
			w.Align(16)
		}
		w.WriteBytes(chunkNameToWire(name, endian))
		w.WriteU32(uint32(len(chunks[name])))
		w.WriteBytes(chunks[name])
	}
	require.NoError(t, w.OverwriteU32At(lenPos, uint32(w.Len()-bodyStart)))
	return w.Buf
}

func TestChunkMapReadRoundTrip(t *testing.T) {
	for _, endian := range []binio.Endianness{binio.LittleEndian, binio.BigEndian} {
		chunks := map[string][]byte{
			"GEN8": {1, 2, 3, 4},
			"STRG": {5, 6},
			"ZZZZ": {9, 9, 9}, // unknown chunk, preserved opaquely
		}
		order := []string{"GEN8", "STRG", "ZZZZ"}
		buf := buildForm(t, endian, chunks, order)

		r := binio.NewReader(buf, endian)
		cm, err := ReadChunkMap(r, zap.NewNop().Sugar())
		require.NoError(t, err)

		require.True(t, cm.Contains("GEN8"))
		require.True(t, cm.Contains("STRG"))
		require.False(t, cm.Contains("NOPE"))

		genRange, ok := cm.Range("GEN8")
		require.True(t, ok)
		require.Equal(t, []byte{1, 2, 3, 4}, buf[genRange.Start:genRange.End])

		raw, ok := cm.RawBytes(r, "ZZZZ")
		require.True(t, ok)
		require.Equal(t, []byte{9, 9, 9}, raw)

		opaque := cm.OpaqueChunks()
		require.Len(t, opaque, 1)
		require.Equal(t, "ZZZZ", opaque[0].Name)
		require.Equal(t, []byte{9, 9, 9}, opaque[0].Data)
	}
}

func TestChunkMapDuplicateChunkFails(t *testing.T) {
	w := binio.NewWriter(binio.LittleEndian, 128)
	w.WriteBytes(formMagic[:])
	lenPos := w.Len()
	w.WriteU32(0)
	bodyStart := w.Len()
	w.WriteBytes(chunkNameToWire("GEN8", binio.LittleEndian))
	w.WriteU32(2)
	w.WriteBytes([]byte{1, 2})
	w.Align(16)
	w.WriteBytes(chunkNameToWire("GEN8", binio.LittleEndian))
	w.WriteU32(2)
	w.WriteBytes([]byte{3, 4})
	require.NoError(t, w.OverwriteU32At(lenPos, uint32(w.Len()-bodyStart)))

	r := binio.NewReader(w.Buf, binio.LittleEndian)
	_, err := ReadChunkMap(r, zap.NewNop().Sugar())
	require.Error(t, err)
	var ce *CodecError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, ErrIntegrity, ce.Kind)
}

func TestChunkMapBadMagicFails(t *testing.T) {
	w := binio.NewWriter(binio.LittleEndian, 32)
	w.WriteBytes([]byte("NOPE"))
	w.WriteU32(0)
	r := binio.NewReader(w.Buf, binio.LittleEndian)
	_, err := ReadChunkMap(r, zap.NewNop().Sugar())
	require.Error(t, err)
	var ce *CodecError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, ErrIntegrity, ce.Kind)
}
