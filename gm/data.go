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

	"go.uber.org/zap"

	"github.com/biotomatede/libgm/binio"
)

// chunkOrder is the fixed chunk emission order (spec §6.1).
var chunkOrder = []string{
	"GEN8", "OPTN", "EXTN", "SOND", "AGRP", "SPRT", "BGND", "PATH", "SCPT",
	"SHDR", "FONT", "TMLN", "OBJT", "ROOM", "TPAG", "CODE", "VARI", "FUNC",
	"STRG", "TXTR", "AUDO", "SEQN", "PSYS", "PSEM", "LANG", "GLOB", "GMEN",
	"UILR", "EMBI", "TGIN", "TAGS", "FEAT", "FEDS", "ACRV",
}

// structuredChunks is the subset of chunkOrder this codec decodes into
// Go types rather than carrying opaquely.
var structuredChunks = map[string]bool{
	"GEN8": true, "OPTN": true, "STRG": true, "VARI": true, "FUNC": true, "CODE": true,
	"TXTR": true, "TPAG": true, "FONT": true,
}

// Data is the full in-memory representation of one DataFile (spec §3.1).
// Every chunk this codec does not decode into a dedicated element family
// (sprites, rooms, game objects, and the rest of the ~35-chunk vocabulary
// beyond the structured set above - see DESIGN.md for the explicit scope
// decision) is preserved verbatim in RawChunks, keyed by chunk name, and
// re-emitted unchanged: known chunks at their position in chunkOrder,
// unknown ones after the last of those, sorted by name.
type Data struct {
	Endianness binio.Endianness
	Version    Version

	General          *GeneralInfo
	Options          *Options
	Strings          *StringPool
	Variables        []Variable
	Functions        []Function
	Locals           []CodeLocals
	Codes            []Code
	Textures         []EmbeddedTexture
	TexturePageItems []TexturePageItem
	Fonts            []Font

	// RawChunks carries every chunk this codec does not model structurally,
	// including chunks entirely unknown to knownChunkNames.
	RawChunks map[string][]byte

	Padding int
}

// Decode reads a complete DataFile image (spec §2 "top-level Decode").
func Decode(buf []byte, log *zap.SugaredLogger) (*Data, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	// A FORM container carries no explicit endianness flag, only
	// chunk-name byte order (spec §4.2): try little-endian first and fall
	// back to big-endian if that fails to parse.
	endian := binio.LittleEndian
	r := binio.NewReader(buf, endian)
	chunks, err := ReadChunkMap(r, log)
	if err != nil {
		// Retry once under the opposite endianness: a FORM container
		// gives no explicit endianness flag, only chunk-name byte order
		// (spec §4.2).
		r = binio.NewReader(buf, binio.BigEndian)
		chunks, err = ReadChunkMap(r, log)
		if err != nil {
			return nil, err
		}
		endian = binio.BigEndian
	}

	d := &Data{Endianness: endian, Padding: chunks.Padding(), RawChunks: make(map[string][]byte)}

	strgRange, ok := chunks.Range("STRG")
	if !ok {
		return nil, newErr(ErrIntegrity, "DataFile has no STRG chunk")
	}
	strings, err := ReadStringPool(r, strgRange.Start, strgRange.End)
	if err != nil {
		return nil, err
	}
	d.Strings = strings

	genRange, ok := chunks.Range("GEN8")
	if !ok {
		return nil, newErr(ErrIntegrity, "DataFile has no GEN8 chunk")
	}
	gi, err := readGeneralInfo(r, genRange, strings)
	if err != nil {
		return nil, err
	}
	d.General = gi
	d.Version = gi.Version

	if err := DetectVersion(r, chunks, &d.Version, log); err != nil {
		return nil, err
	}
	gi.Version = d.Version

	if optnRange, ok := chunks.Range("OPTN"); ok {
		opt, err := readOptions(r, optnRange, strings, d.Version)
		if err != nil {
			return nil, err
		}
		d.Options = opt
	}

	if codeRange, ok := chunks.Range("CODE"); ok {
		codes, err := readCodeChunk(r, codeRange, strings, d.Version)
		if err != nil {
			return nil, err
		}
		d.Codes = codes
	}

	if variRange, ok := chunks.Range("VARI"); ok {
		vars, err := readVariables(r, variRange, strings, d.Version)
		if err != nil {
			return nil, err
		}
		d.Variables = vars
	}

	if funcRange, ok := chunks.Range("FUNC"); ok {
		r.Seek(funcRange.Start)
		fns, err := readFunctions(r, funcRange, strings, d.Version)
		if err != nil {
			return nil, err
		}
		d.Functions = fns
		if d.Version.IsAtLeast(Req(2, 3)) {
			locals, err := readCodeLocals(r, funcRange.End, strings)
			if err != nil {
				return nil, err
			}
			d.Locals = locals
		}
	}

	if len(d.Codes) > 0 && (len(d.Variables) > 0 || len(d.Functions) > 0) {
		if err := resolveCodeReferences(d); err != nil {
			return nil, err
		}
	}

	if txtrRange, ok := chunks.Range("TXTR"); ok {
		textures, err := readTextures(r, txtrRange, d.Version)
		if err != nil {
			return nil, err
		}
		d.Textures = textures
	}

	if tpagRange, ok := chunks.Range("TPAG"); ok {
		items, err := readTexturePageItems(r, tpagRange)
		if err != nil {
			return nil, err
		}
		d.TexturePageItems = items
	}
	if err := d.ValidateTexturePageBounds(); err != nil {
		return nil, err
	}

	if fontRange, ok := chunks.Range("FONT"); ok {
		fonts, err := readFonts(r, fontRange, strings, d.Version)
		if err != nil {
			return nil, err
		}
		d.Fonts = fonts
	}
	if err := d.ValidateFontGlyphRanges(); err != nil {
		return nil, err
	}

	for _, name := range chunkOrder {
		if structuredChunks[name] {
			continue
		}
		if raw, ok := chunks.RawBytes(r, name); ok {
			d.RawChunks[name] = raw
		}
	}
	for _, oc := range chunks.OpaqueChunks() {
		d.RawChunks[oc.Name] = oc.Data
	}

	return d, nil
}

// Encode writes a complete DataFile image from d (spec §2 "top-level
// Encode"). The emitted byte stream need not be byte-identical to any
// source image, but every chunk's content must round-trip losslessly
// (spec §8).
func Encode(d *Data, log *zap.SugaredLogger) ([]byte, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	w := binio.NewWriter(d.Endianness, 1<<20)
	pt := NewPointerTable(len(d.Codes) + len(d.Variables) + len(d.Functions) + len(d.Textures) + len(d.TexturePageItems) + len(d.Fonts))
	sb := newStringBuilder(d.Strings)

	w.WriteBytes(formMagic[:])
	totalLenPos := w.Len()
	w.WriteU32(0)
	bodyStart := w.Len()

	writeChunk := func(name string, body func() error) error {
		if bodyStart != w.Len() {
			w.Align(d.Padding)
		}
		w.WriteBytes(chunkNameToWire(name, d.Endianness))
		lenPos := w.Len()
		w.WriteU32(0)
		start := w.Len()
		if err := body(); err != nil {
			return err
		}
		length := uint32(w.Len() - start)
		return w.OverwriteU32At(lenPos, length)
	}

	for _, name := range chunkOrder {
		switch name {
		case "GEN8":
			if d.General == nil {
				continue
			}
			if err := writeChunk(name, func() error {
				writeGeneralInfo(w, sb, d.General)
				return nil
			}); err != nil {
				return nil, err
			}
		case "OPTN":
			if d.Options == nil {
				continue
			}
			if err := writeChunk(name, func() error {
				return writeOptions(w, sb, pt, d.Options)
			}); err != nil {
				return nil, err
			}
		case "CODE":
			if err := writeChunk(name, func() error {
				return writeCodeChunk(w, sb, pt, d.Codes, d.Version)
			}); err != nil {
				return nil, err
			}
		case "VARI":
			if err := writeChunk(name, func() error {
				return writeVariables(w, sb, d.Variables, d.Version)
			}); err != nil {
				return nil, err
			}
		case "FUNC":
			if err := writeChunk(name, func() error {
				if err := writeFunctions(w, sb, d.Functions, d.Version); err != nil {
					return err
				}
				if d.Version.IsAtLeast(Req(2, 3)) {
					writeCodeLocals(w, sb, d.Locals)
				}
				return nil
			}); err != nil {
				return nil, err
			}
		case "STRG":
			if err := writeChunk(name, func() error {
				return sb.Flush(w)
			}); err != nil {
				return nil, err
			}
		case "TXTR":
			if len(d.Textures) == 0 {
				continue
			}
			if err := writeChunk(name, func() error {
				return writeTextures(w, pt, d.Textures, d.Version)
			}); err != nil {
				return nil, err
			}
		case "TPAG":
			if len(d.TexturePageItems) == 0 {
				continue
			}
			if err := writeChunk(name, func() error {
				return writeTexturePageItems(w, pt, d.TexturePageItems)
			}); err != nil {
				return nil, err
			}
		case "FONT":
			if len(d.Fonts) == 0 {
				continue
			}
			if err := writeChunk(name, func() error {
				return writeFonts(w, sb, pt, d.Fonts, d.Version)
			}); err != nil {
				return nil, err
			}
		default:
			raw, ok := d.RawChunks[name]
			if !ok {
				continue
			}
			if err := writeChunk(name, func() error {
				w.WriteBytes(raw)
				return nil
			}); err != nil {
				return nil, err
			}
		}
	}

	var unknown []string
	for name := range d.RawChunks {
		if !knownChunkNames[name] {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	for _, name := range unknown {
		raw := d.RawChunks[name]
		if err := writeChunk(name, func() error {
			w.WriteBytes(raw)
			return nil
		}); err != nil {
			return nil, err
		}
	}

	if err := pt.Flush(w); err != nil {
		return nil, err
	}

	totalLen := uint32(w.Len() - bodyStart)
	if err := w.OverwriteU32At(totalLenPos, totalLen); err != nil {
		return nil, err
	}
	return w.Buf, nil
}
