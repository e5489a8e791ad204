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
	gmimage "github.com/biotomatede/libgm/gm/image"

	"github.com/biotomatede/libgm/binio"
)

// EmbeddedTexture is one TXTR entry: a texture page's scaling metadata
// plus its lazily-decoded image container (spec §4.8; grounded on
// original_source/src/serialize/embedded_textures.rs's build_texture_page
// / build_texture_page_image).
type EmbeddedTexture struct {
	Scaled        int32
	GeneratedMips int32 // present from runtime 2.0.6 onward

	TextureWidth  int32 // present from runtime 2022.9 onward
	TextureHeight int32
	IndexInGroup  int32

	// Image is nil when this texture page carries no image data.
	Image *gmimage.Image
}

// TexturePageItem is one TPAG entry: a source rectangle within an
// EmbeddedTexture, its placement rectangle, and bounding box (spec §3.4
// "texture-page source-rect bounds").
type TexturePageItem struct {
	SourceX, SourceY, SourceWidth, SourceHeight uint16
	TargetX, TargetY, TargetWidth, TargetHeight uint16
	BoundingWidth, BoundingHeight               uint16
	TextureID                                   Ref[EmbeddedTexture]
}

func readTextures(r *binio.Reader, chunk chunkRange, v Version) ([]EmbeddedTexture, error) {
	r.Seek(chunk.Start)
	big := r.Endian == binio.BigEndian
	hasMips := v.IsAtLeast(Req(2, 0, 6))
	hasDims := v.IsAtLeast(Req(2022, 9))
	hasUncompressed := v.IsAtLeast(Req(2022, 5))

	return ReadPointerList(r, "TXTR", func(r *binio.Reader, i int) (EmbeddedTexture, error) {
		var et EmbeddedTexture
		scaled, err := r.ReadI32()
		if err != nil {
			return EmbeddedTexture{}, withContext(err, "TXTR", i, "scaled")
		}
		et.Scaled = scaled

		if hasMips {
			mips, err := r.ReadI32()
			if err != nil {
				return EmbeddedTexture{}, withContext(err, "TXTR", i, "generated_mips")
			}
			et.GeneratedMips = mips
		}
		if hasDims {
			w, err := r.ReadI32()
			if err != nil {
				return EmbeddedTexture{}, withContext(err, "TXTR", i, "texture_width")
			}
			h, err := r.ReadI32()
			if err != nil {
				return EmbeddedTexture{}, withContext(err, "TXTR", i, "texture_height")
			}
			idx, err := r.ReadI32()
			if err != nil {
				return EmbeddedTexture{}, withContext(err, "TXTR", i, "index_in_group")
			}
			et.TextureWidth, et.TextureHeight, et.IndexInGroup = w, h, idx
		}

		hasImage, err := r.ReadBool32()
		if err != nil {
			return EmbeddedTexture{}, withContext(err, "TXTR", i, "has_image")
		}
		if !hasImage {
			return et, nil
		}
		length, err := r.ReadU32()
		if err != nil {
			return EmbeddedTexture{}, withContext(err, "TXTR", i, "image_length")
		}
		if err := checkCount(length, "texture image byte"); err != nil {
			return EmbeddedTexture{}, withContext(err, "TXTR", i, "image_length")
		}
		raw, err := r.ReadBytesConst(int(length))
		if err != nil {
			return EmbeddedTexture{}, withContext(err, "TXTR", i, "image_data")
		}
		img, err := gmimage.Decode(raw, big, hasUncompressed)
		if err != nil {
			return EmbeddedTexture{}, withContext(err, "TXTR", i, "image_data")
		}
		et.Image = img
		return et, nil
	})
}

func writeTextures(w *binio.Writer, pt *PointerTable, textures []EmbeddedTexture, v Version) error {
	hasMips := v.IsAtLeast(Req(2, 0, 6))
	hasDims := v.IsAtLeast(Req(2022, 9))
	hasUncompressed := v.IsAtLeast(Req(2022, 5))

	return WritePointerList(w, pt, "texture", textures, func(w *binio.Writer, i int, et EmbeddedTexture) error {
		w.WriteI32(et.Scaled)
		if hasMips {
			w.WriteI32(et.GeneratedMips)
		}
		if hasDims {
			w.WriteI32(et.TextureWidth)
			w.WriteI32(et.TextureHeight)
			w.WriteI32(et.IndexInGroup)
		}
		if et.Image == nil {
			w.WriteBool32(false)
			return nil
		}
		w.WriteBool32(true)
		raw, err := et.Image.EncodeWire(hasUncompressed)
		if err != nil {
			return withContext(err, "TXTR", i, "image_data")
		}
		w.WriteU32(uint32(len(raw)))
		w.WriteBytes(raw)
		return nil
	})
}

func readTexturePageItems(r *binio.Reader, chunk chunkRange) ([]TexturePageItem, error) {
	r.Seek(chunk.Start)
	return ReadPointerList(r, "TPAG", func(r *binio.Reader, i int) (TexturePageItem, error) {
		var t TexturePageItem
		for _, f := range []*uint16{
			&t.SourceX, &t.SourceY, &t.SourceWidth, &t.SourceHeight,
			&t.TargetX, &t.TargetY, &t.TargetWidth, &t.TargetHeight,
			&t.BoundingWidth, &t.BoundingHeight,
		} {
			v, err := r.ReadU16()
			if err != nil {
				return TexturePageItem{}, withContext(err, "TPAG", i, "rect")
			}
			*f = v
		}
		texID, err := r.ReadU16()
		if err != nil {
			return TexturePageItem{}, withContext(err, "TPAG", i, "texture_id")
		}
		t.TextureID = Ref[EmbeddedTexture](texID)
		return t, nil
	})
}

func writeTexturePageItems(w *binio.Writer, pt *PointerTable, items []TexturePageItem) error {
	return WritePointerList(w, pt, "texture_page_item", items, func(w *binio.Writer, i int, t TexturePageItem) error {
		for _, v := range []uint16{
			t.SourceX, t.SourceY, t.SourceWidth, t.SourceHeight,
			t.TargetX, t.TargetY, t.TargetWidth, t.TargetHeight,
			t.BoundingWidth, t.BoundingHeight,
		} {
			w.WriteU16(v)
		}
		w.WriteU16(uint16(t.TextureID))
		return nil
	})
}

// ValidateTexturePageBounds enforces spec §3.4's texture-page source-rect
// invariant: every TPAG entry's source rectangle must fit within its
// referenced EmbeddedTexture's decoded image dimensions, when that texture
// carries image data.
func (d *Data) ValidateTexturePageBounds() error {
	for i, t := range d.TexturePageItems {
		et, err := Resolve(d.Textures, t.TextureID)
		if err != nil {
			return withContext(err, "TPAG", i, "texture_id")
		}
		if et == nil || et.Image == nil {
			continue
		}
		w, h := et.Image.Dimensions()
		if int(t.SourceX)+int(t.SourceWidth) > w || int(t.SourceY)+int(t.SourceHeight) > h {
			return newErr(ErrIntegrity,
				"TPAG entry #%d source rect (%d,%d,%d,%d) exceeds texture #%d dimensions %dx%d",
				i, t.SourceX, t.SourceY, t.SourceWidth, t.SourceHeight, t.TextureID, w, h)
		}
	}
	return nil
}
