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

func TestFontsRoundTrip(t *testing.T) {
	v := Version{Major: 2022, Minor: 2} // exercises the post-2022.2 glyph Offset field
	sp := &StringPool{}
	nameRef := sp.Intern("Arial")
	displayRef := sp.Intern("Arial Display")

	fonts := []Font{
		{
			Name:        nameRef,
			DisplayName: displayRef,
			EmSize:      12.5,
			Bold:        true,
			Italic:      false,
			RangeStart:  32,
			Charset:     0,
			AntiAlias:   1,
			RangeEnd:    126,
			TextureItem: Ref[TexturePageItem](0),
			ScaleX:      1,
			ScaleY:      1,
			Ascender:    14,
			SDFSpread:   0,
			Glyphs: []Glyph{
				{Character: 65, SourceX: 0, SourceY: 0, SourceWidth: 8, SourceHeight: 10, Shift: 8, Offset: 1,
					Kerning: []KerningPair{{Character: 66, Amount: -1}}},
				{Character: 66, SourceX: 8, SourceY: 0, SourceWidth: 8, SourceHeight: 10, Shift: 8, Offset: 0, Kerning: []KerningPair{}},
			},
		},
	}

	w := binio.NewWriter(binio.LittleEndian, 512)
	sb := newStringBuilder(sp)
	pt := NewPointerTable(4)
	require.NoError(t, writeFonts(w, sb, pt, fonts, v))
	require.NoError(t, pt.Flush(w))

	strgOff := w.Len()
	require.NoError(t, sb.Flush(w))

	r := binio.NewReader(w.Buf, binio.LittleEndian)
	strings, err := ReadStringPool(r, strgOff, len(w.Buf))
	require.NoError(t, err)

	chunk := chunkRange{Start: 0, End: strgOff}
	got, err := readFonts(r, chunk, strings, v)
	require.NoError(t, err)

	require.Len(t, got, 1)
	require.Equal(t, fonts[0].EmSize, got[0].EmSize)
	require.Equal(t, fonts[0].Bold, got[0].Bold)
	require.Equal(t, fonts[0].RangeStart, got[0].RangeStart)
	require.Equal(t, fonts[0].RangeEnd, got[0].RangeEnd)
	require.Equal(t, fonts[0].Charset, got[0].Charset)
	require.Equal(t, fonts[0].AntiAlias, got[0].AntiAlias)
	require.Equal(t, fonts[0].Glyphs, got[0].Glyphs)
	require.Equal(t, "Arial", strings.Strings[got[0].Name])
	require.Equal(t, "Arial Display", strings.Strings[got[0].DisplayName])
}

func TestFontsRoundTripPreOffsetVersion(t *testing.T) {
	v := Version{Major: 2, Minor: 3} // below 2022.2: glyphs carry no Offset field
	sp := &StringPool{}
	nameRef := sp.Intern("Tahoma")

	fonts := []Font{
		{
			Name:       nameRef,
			EmSize:     10,
			RangeStart: 32,
			RangeEnd:   64,
			Glyphs: []Glyph{
				{Character: 40, SourceX: 1, SourceY: 1, SourceWidth: 4, SourceHeight: 5, Shift: 4},
			},
		},
	}

	w := binio.NewWriter(binio.LittleEndian, 256)
	sb := newStringBuilder(sp)
	pt := NewPointerTable(2)
	require.NoError(t, writeFonts(w, sb, pt, fonts, v))
	require.NoError(t, pt.Flush(w))
	strgOff := w.Len()
	require.NoError(t, sb.Flush(w))

	r := binio.NewReader(w.Buf, binio.LittleEndian)
	strings, err := ReadStringPool(r, strgOff, len(w.Buf))
	require.NoError(t, err)

	got, err := readFonts(r, chunkRange{Start: 0, End: strgOff}, strings, v)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, int16(0), got[0].Glyphs[0].Offset, "pre-2022.2 glyphs carry no wire Offset field")
	require.Equal(t, fonts[0].Glyphs[0].Character, got[0].Glyphs[0].Character)
}

func TestValidateFontGlyphRangesRejectsOutOfRange(t *testing.T) {
	d := &Data{
		Fonts: []Font{
			{RangeStart: 32, RangeEnd: 64, Glyphs: []Glyph{{Character: 100}}},
		},
	}
	err := d.ValidateFontGlyphRanges()
	require.Error(t, err)
	var ce *CodecError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, ErrIntegrity, ce.Kind)
}

func TestValidateFontGlyphRangesAcceptsInRange(t *testing.T) {
	d := &Data{
		Fonts: []Font{
			{RangeStart: 32, RangeEnd: 64, Glyphs: []Glyph{{Character: 40}, {Character: 64}}},
		},
	}
	require.NoError(t, d.ValidateFontGlyphRanges())
}
