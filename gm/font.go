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

// Glyph is one font character's source rectangle within its texture page,
// its advance metrics, and its kerning adjustments against other
// characters (spec §3.4 "font glyph-range coherence").
type Glyph struct {
	Character                                   uint16
	SourceX, SourceY, SourceWidth, SourceHeight uint16
	Shift                                        int16
	Offset                                       int16 // present from runtime 2022.2 onward; zero otherwise
	Kerning                                      []KerningPair
}

// KerningPair is one glyph's kerning adjustment against another character.
type KerningPair struct {
	Character uint16
	Amount    int16
}

// Font is one FONT entry: display metadata, the texture page item backing
// its glyph atlas, and its glyph table (spec §4.5 "FONT 2022.2 structural
// check" reads the same glyph layout this reader decodes, once the
// runtime's glyph stride is already known from DetectVersion).
type Font struct {
	Name        StringRef
	DisplayName StringRef
	EmSize      float32
	Bold        bool
	Italic      bool
	RangeStart  uint16
	Charset     uint8
	AntiAlias   uint8
	RangeEnd    uint32
	TextureItem Ref[TexturePageItem]
	ScaleX      float32
	ScaleY      float32
	Ascender    int32
	SDFSpread   int32

	Glyphs []Glyph
}

// fontHeaderSize is the fixed byte length of a Font's header, up to (but
// not including) its glyph count - the same offset checkFont2022_2 seeks
// to while fingerprinting the glyph layout, before any Font is actually
// decoded structurally.
const fontHeaderSize = 48

func readFonts(r *binio.Reader, chunk chunkRange, strings *StringPool, v Version) ([]Font, error) {
	r.Seek(chunk.Start)
	hasOffset := v.IsAtLeast(Req(2022, 2))

	return ReadPointerList(r, "FONT", func(r *binio.Reader, i int) (Font, error) {
		f := Font{}
		namePtr, err := r.ReadU32()
		if err != nil {
			return Font{}, withContext(err, "FONT", i, "name")
		}
		if f.Name, err = strings.ResolvePointer(namePtr); err != nil {
			return Font{}, withContext(err, "FONT", i, "name")
		}
		displayPtr, err := r.ReadU32()
		if err != nil {
			return Font{}, withContext(err, "FONT", i, "display_name")
		}
		if f.DisplayName, err = strings.ResolvePointer(displayPtr); err != nil {
			return Font{}, withContext(err, "FONT", i, "display_name")
		}
		if f.EmSize, err = r.ReadF32(); err != nil {
			return Font{}, withContext(err, "FONT", i, "em_size")
		}
		if f.Bold, err = r.ReadBool32(); err != nil {
			return Font{}, withContext(err, "FONT", i, "bold")
		}
		if f.Italic, err = r.ReadBool32(); err != nil {
			return Font{}, withContext(err, "FONT", i, "italic")
		}
		packed, err := r.ReadU32()
		if err != nil {
			return Font{}, withContext(err, "FONT", i, "range_start")
		}
		f.RangeStart = uint16(packed & 0xFFFF)
		f.Charset = uint8((packed >> 16) & 0xFF)
		f.AntiAlias = uint8((packed >> 24) & 0xFF)
		if f.RangeEnd, err = r.ReadU32(); err != nil {
			return Font{}, withContext(err, "FONT", i, "range_end")
		}
		texPtr, err := r.ReadU32()
		if err != nil {
			return Font{}, withContext(err, "FONT", i, "texture_item")
		}
		f.TextureItem = Ref[TexturePageItem](int32(texPtr))
		if f.ScaleX, err = r.ReadF32(); err != nil {
			return Font{}, withContext(err, "FONT", i, "scale_x")
		}
		if f.ScaleY, err = r.ReadF32(); err != nil {
			return Font{}, withContext(err, "FONT", i, "scale_y")
		}
		if f.Ascender, err = r.ReadI32(); err != nil {
			return Font{}, withContext(err, "FONT", i, "ascender")
		}
		if f.SDFSpread, err = r.ReadI32(); err != nil {
			return Font{}, withContext(err, "FONT", i, "sdf_spread")
		}

		glyphs, err := ReadPointerList(r, "FONT", func(r *binio.Reader, gi int) (Glyph, error) {
			return readGlyph(r, hasOffset)
		})
		if err != nil {
			return Font{}, withContext(err, "FONT", i, "glyphs")
		}
		f.Glyphs = glyphs
		return f, nil
	})
}

func readGlyph(r *binio.Reader, hasOffset bool) (Glyph, error) {
	var g Glyph
	ch, err := r.ReadU16()
	if err != nil {
		return Glyph{}, err
	}
	g.Character = ch
	for _, f := range []*uint16{&g.SourceX, &g.SourceY, &g.SourceWidth, &g.SourceHeight} {
		v, err := r.ReadU16()
		if err != nil {
			return Glyph{}, err
		}
		*f = v
	}
	shift, err := r.ReadI16()
	if err != nil {
		return Glyph{}, err
	}
	g.Shift = shift
	if hasOffset {
		offset, err := r.ReadI16()
		if err != nil {
			return Glyph{}, err
		}
		g.Offset = offset
	}
	kerningLen, err := r.ReadU16()
	if err != nil {
		return Glyph{}, err
	}
	g.Kerning = make([]KerningPair, kerningLen)
	for i := range g.Kerning {
		ch, err := r.ReadU16()
		if err != nil {
			return Glyph{}, err
		}
		amt, err := r.ReadI16()
		if err != nil {
			return Glyph{}, err
		}
		g.Kerning[i] = KerningPair{Character: ch, Amount: amt}
	}
	return g, nil
}

func writeFonts(w *binio.Writer, sb *stringBuilder, pt *PointerTable, fonts []Font, v Version) error {
	hasOffset := v.IsAtLeast(Req(2022, 2))
	return WritePointerList(w, pt, "font", fonts, func(w *binio.Writer, i int, f Font) error {
		sb.WritePointer(w, f.Name)
		sb.WritePointer(w, f.DisplayName)
		w.WriteF32(f.EmSize)
		w.WriteBool32(f.Bold)
		w.WriteBool32(f.Italic)
		w.WriteU32(uint32(f.RangeStart) | uint32(f.Charset)<<16 | uint32(f.AntiAlias)<<24)
		w.WriteU32(f.RangeEnd)
		w.WriteU32(uint32(f.TextureItem))
		w.WriteF32(f.ScaleX)
		w.WriteF32(f.ScaleY)
		w.WriteI32(f.Ascender)
		w.WriteI32(f.SDFSpread)
		glyphFamily := fmt.Sprintf("font_glyph_%d", i)
		return WritePointerList(w, pt, glyphFamily, f.Glyphs, func(w *binio.Writer, gi int, g Glyph) error {
			writeGlyph(w, g, hasOffset)
			return nil
		})
	})
}

func writeGlyph(w *binio.Writer, g Glyph, hasOffset bool) {
	w.WriteU16(g.Character)
	w.WriteU16(g.SourceX)
	w.WriteU16(g.SourceY)
	w.WriteU16(g.SourceWidth)
	w.WriteU16(g.SourceHeight)
	w.WriteI16(g.Shift)
	if hasOffset {
		w.WriteI16(g.Offset)
	}
	w.WriteU16(uint16(len(g.Kerning)))
	for _, k := range g.Kerning {
		w.WriteU16(k.Character)
		w.WriteI16(k.Amount)
	}
}

// ValidateFontGlyphRanges enforces spec §3.4's font glyph-range coherence
// invariant: every glyph's character must fall within its Font's declared
// [RangeStart, RangeEnd] range.
func (d *Data) ValidateFontGlyphRanges() error {
	for i, f := range d.Fonts {
		for gi, g := range f.Glyphs {
			if uint32(g.Character) < uint32(f.RangeStart) || uint32(g.Character) > f.RangeEnd {
				return newErr(ErrIntegrity,
					"font #%d glyph #%d character %d outside declared range [%d,%d]",
					i, gi, g.Character, f.RangeStart, f.RangeEnd)
			}
		}
	}
	return nil
}
