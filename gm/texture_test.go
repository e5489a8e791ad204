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

func TestTexturePageItemsRoundTrip(t *testing.T) {
	items := []TexturePageItem{
		{SourceX: 0, SourceY: 0, SourceWidth: 32, SourceHeight: 32, TargetX: 0, TargetY: 0, TargetWidth: 32, TargetHeight: 32, BoundingWidth: 32, BoundingHeight: 32, TextureID: 0},
		{SourceX: 32, SourceY: 0, SourceWidth: 16, SourceHeight: 16, TargetX: 0, TargetY: 0, TargetWidth: 16, TargetHeight: 16, BoundingWidth: 16, BoundingHeight: 16, TextureID: 0},
	}

	w := binio.NewWriter(binio.LittleEndian, 256)
	pt := NewPointerTable(len(items))
	require.NoError(t, writeTexturePageItems(w, pt, items))
	require.NoError(t, pt.Flush(w))

	r := binio.NewReader(w.Buf, binio.LittleEndian)
	chunk := chunkRange{Start: 0, End: len(w.Buf)}
	got, err := readTexturePageItems(r, chunk)
	require.NoError(t, err)
	require.Equal(t, items, got)
}

func TestEmbeddedTexturesRoundTripNoImage(t *testing.T) {
	v := Version{Major: 2022, Minor: 9}
	textures := []EmbeddedTexture{
		{Scaled: 1, GeneratedMips: 0, TextureWidth: 256, TextureHeight: 256, IndexInGroup: 0, Image: nil},
		{Scaled: 2, GeneratedMips: 1, TextureWidth: 128, TextureHeight: 128, IndexInGroup: 1, Image: nil},
	}

	w := binio.NewWriter(binio.LittleEndian, 256)
	pt := NewPointerTable(len(textures))
	require.NoError(t, writeTextures(w, pt, textures, v))
	require.NoError(t, pt.Flush(w))

	r := binio.NewReader(w.Buf, binio.LittleEndian)
	chunk := chunkRange{Start: 0, End: len(w.Buf)}
	got, err := readTextures(r, chunk, v)
	require.NoError(t, err)
	require.Equal(t, textures, got)
}

func TestValidateTexturePageBoundsRejectsOutOfRange(t *testing.T) {
	d := &Data{
		Textures: []EmbeddedTexture{{Scaled: 1}}, // Image nil, so bounds check is skipped
	}
	d.TexturePageItems = []TexturePageItem{
		{SourceX: 0, SourceY: 0, SourceWidth: 10, SourceHeight: 10, TextureID: 5}, // out-of-bounds texture index
	}
	err := d.ValidateTexturePageBounds()
	require.Error(t, err)
	var ce *CodecError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, ErrReference, ce.Kind)
}

func TestValidateTexturePageBoundsAcceptsNilImage(t *testing.T) {
	d := &Data{
		Textures:         []EmbeddedTexture{{Scaled: 1, Image: nil}},
		TexturePageItems: []TexturePageItem{{SourceX: 0, SourceY: 0, SourceWidth: 999, SourceHeight: 999, TextureID: 0}},
	}
	require.NoError(t, d.ValidateTexturePageBounds(), "a texture with no decoded image carries no bounds to violate")
}
