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

// Package image implements the runtime's lazily-decoded texture page image
// container (spec §4.8, §6.3): an image is held as one of four internal
// forms - decoded raster pixels, raw PNG bytes, raw bytes in the runtime's
// QOI variant, or raw BZip2-wrapped QOI bytes carrying its own
// (width, height, uncompressed_size?) header - and decoding to raster is
// deferred until a caller asks for pixels, or asks for a format conversion
// that cannot bypass raster entirely.
//
// This package deliberately does not import the gm package: gm imports
// image (TXTR decoding produces Images), so version gating that a
// caller in gm already knows (e.g. "uncompressed_size present from runtime
// 2022.5 onward") is passed down as a plain bool rather than a gm.Version,
// to avoid an import cycle.
//
// Grounded on original_source/src/serialize/embedded_textures.rs (the
// TXTR wire layout: padding, QOI/BZ2-QOI encode, the bz2-header fields)
// and original_source/libgm/src/gamemaker/elements/embedded_texture/img.rs
// (the GMImage/Format/change_format lazy-container API this package's
// Image/Format/ChangeFormat mirror).
package image

import (
	"bytes"
	stdimage "image"
	stdpng "image/png"
	"io"

	"github.com/dsnet/compress/bzip2"
	"github.com/pkg/errors"

	"github.com/biotomatede/libgm/qoi"
)

// Format is one of the four internal forms a texture image can be held in
// (spec §6.3: "ImageFormat ∈ {Raster, Png, Qoi, Bz2Qoi}").
type Format uint8

const (
	FormatRaster Format = iota
	FormatPng
	FormatQoi
	FormatBz2Qoi
)

func (f Format) String() string {
	switch f {
	case FormatRaster:
		return "raster"
	case FormatPng:
		return "png"
	case FormatQoi:
		return "qoi"
	case FormatBz2Qoi:
		return "bz2-qoi"
	default:
		return "unknown-format"
	}
}

// pngMagic is the standard 8-byte PNG signature.
var pngMagic = [8]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// bz2QoiMagic prefixes a BZ2-QOI payload's own header, ahead of its
// (width, height, uncompressed_size?) fields (spec §4.8). The source
// fragments retrieved for this codec name the wire layout but not this
// tag's exact bytes; "bz2q" is this port's own choice, used consistently
// by both Decode and EncodeWire.
var bz2QoiMagic = [4]byte{'b', 'z', '2', 'q'}

// Image is a lazily-decoded texture page image. The zero value is not
// valid; construct with Decode or FromRaster.
type Image struct {
	format Format
	big    bool // endianness new Qoi/Bz2Qoi payload bytes are (re-)encoded with

	width, height int

	raw              []byte  // raw bytes of the current non-raster form
	uncompressedSize *uint32 // Bz2Qoi only; present iff the caller says runtime >= 2022.5

	raster *qoi.Image // decode cache, populated by Raster and kept once computed
}

// FromRaster wraps an already-decoded raster image as a new Image in
// FormatRaster form, for callers constructing images rather than decoding
// one from a TXTR entry.
func FromRaster(r *qoi.Image, big bool) *Image {
	return &Image{format: FormatRaster, big: big, width: r.Width, height: r.Height, raster: r}
}

// Decode sniffs the on-wire form of data and constructs an Image without
// eagerly decoding to raster (spec §4.8: "decoding is lazy"). big is the
// DataFile's overall endianness, used both to disambiguate a QOI image's
// own endian-sensitive magic and to encode any new Qoi/Bz2Qoi payload this
// Image later produces. hasUncompressedSize selects whether a Bz2Qoi
// header's optional trailing field is present; it is consulted only when
// data sniffs as Bz2Qoi.
func Decode(data []byte, big, hasUncompressedSize bool) (*Image, error) {
	switch {
	case len(data) >= len(pngMagic) && bytes.Equal(data[:len(pngMagic)], pngMagic[:]):
		cfg, err := stdpng.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, errors.Wrap(err, "image: reading PNG header")
		}
		return &Image{
			format: FormatPng,
			big:    big,
			width:  cfg.Width,
			height: cfg.Height,
			raw:    append([]byte(nil), data...),
		}, nil

	case len(data) >= 12 && (bytes.Equal(data[:4], qoi.BigEndianMagic[:]) || bytes.Equal(data[:4], qoi.LittleEndianMagic[:])):
		w, h, err := qoiDimensions(data)
		if err != nil {
			return nil, err
		}
		return &Image{
			format: FormatQoi,
			big:    bytes.Equal(data[:4], qoi.BigEndianMagic[:]),
			width:  w,
			height: h,
			raw:    append([]byte(nil), data...),
		}, nil

	case len(data) >= 4 && bytes.Equal(data[:4], bz2QoiMagic[:]):
		return decodeBz2Header(data, big, hasUncompressedSize)

	default:
		n := len(data)
		if n > 8 {
			n = 8
		}
		return nil, errors.Errorf("image: unrecognized texture image header % X", data[:n])
	}
}

// qoiDimensions reads width/height out of a QOI-variant header without
// decoding the pixel body, matching qoi.Decode's own header layout
// (magic[4], width[4], height[4] - this runtime's QOI variant, unlike the
// reference format, widens both fields to 32 bits).
func qoiDimensions(data []byte) (width, height int, err error) {
	if len(data) < 12 {
		return 0, 0, errors.New("image: QOI header truncated")
	}
	big := bytes.Equal(data[:4], qoi.BigEndianMagic[:])
	u32 := func(b []byte) uint32 {
		if big {
			return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
		}
		return uint32(b[3])<<24 | uint32(b[2])<<16 | uint32(b[1])<<8 | uint32(b[0])
	}
	return int(u32(data[4:8])), int(u32(data[8:12])), nil
}

func decodeBz2Header(data []byte, big, hasUncompressedSize bool) (*Image, error) {
	need := 4 + 2 + 2
	if hasUncompressedSize {
		need += 4
	}
	if len(data) < need {
		return nil, errors.New("image: BZ2-QOI header truncated")
	}
	pos := 4
	width := readU16(data, &pos, big)
	height := readU16(data, &pos, big)
	var size *uint32
	if hasUncompressedSize {
		v := readU32(data, &pos, big)
		size = &v
	}
	return &Image{
		format:           FormatBz2Qoi,
		big:              big,
		width:            int(width),
		height:           int(height),
		raw:              append([]byte(nil), data[pos:]...),
		uncompressedSize: size,
	}, nil
}

// Format reports img's current internal form.
func (img *Image) Format() Format { return img.format }

// Dimensions reports img's pixel dimensions, known regardless of which
// form img currently holds.
func (img *Image) Dimensions() (width, height int) { return img.width, img.height }

// Raster lazily decodes img to its raster pixel form, caching the result.
func (img *Image) Raster() (*qoi.Image, error) {
	if img.raster != nil {
		return img.raster, nil
	}
	switch img.format {
	case FormatRaster:
		return nil, errors.New("image: internal error: FormatRaster image has no cached raster")
	case FormatPng:
		decoded, err := stdpng.Decode(bytes.NewReader(img.raw))
		if err != nil {
			return nil, errors.Wrap(err, "image: decoding PNG")
		}
		img.raster = stdImageToRaster(decoded)
	case FormatQoi:
		decoded, err := qoi.Decode(img.raw)
		if err != nil {
			return nil, errors.Wrap(err, "image: decoding QOI")
		}
		img.raster = decoded
	case FormatBz2Qoi:
		qoiBytes, err := inflateBz2(img.raw)
		if err != nil {
			return nil, errors.Wrap(err, "image: inflating BZ2-QOI")
		}
		decoded, err := qoi.Decode(qoiBytes)
		if err != nil {
			return nil, errors.Wrap(err, "image: decoding BZ2-QOI payload")
		}
		img.raster = decoded
	default:
		return nil, errors.Errorf("image: cannot decode unknown format %d", img.format)
	}
	return img.raster, nil
}

// ChangeFormat converts img to a different internal form (spec §4.8,
// §6.3). Converting between Qoi and Bz2Qoi is a pure (de)compression step
// that bypasses raster decode entirely; every other pair decodes to
// raster first, then re-encodes (grounded on img.rs's change_format_).
// hasUncompressedSize selects whether a Bz2Qoi result's header carries the
// uncompressed_size field, true from runtime 2022.5 onward (spec §4.8).
// Converting to img's current format is a no-op.
func (img *Image) ChangeFormat(to Format, hasUncompressedSize bool) error {
	if img.format == to {
		return nil
	}

	switch {
	case img.format == FormatQoi && to == FormatBz2Qoi:
		return img.qoiToBz2Qoi(hasUncompressedSize)
	case img.format == FormatBz2Qoi && to == FormatQoi:
		return img.bz2QoiToQoi()
	}

	raster, err := img.Raster()
	if err != nil {
		return errors.Wrapf(err, "image: decoding to raster before converting to %s", to)
	}
	switch to {
	case FormatRaster:
		img.format = FormatRaster
		img.raw = nil
		img.uncompressedSize = nil
	case FormatPng:
		var buf bytes.Buffer
		if err := stdpng.Encode(&buf, rasterToStdImage(raster)); err != nil {
			return errors.Wrap(err, "image: encoding PNG")
		}
		img.format = FormatPng
		img.raw = buf.Bytes()
		img.uncompressedSize = nil
	case FormatQoi:
		img.raw = qoi.Encode(raster, img.big)
		img.format = FormatQoi
		img.uncompressedSize = nil
	case FormatBz2Qoi:
		qoiBytes := qoi.Encode(raster, img.big)
		compressed, err := deflateBz2(qoiBytes)
		if err != nil {
			return errors.Wrap(err, "image: compressing BZ2-QOI")
		}
		img.raw = compressed
		img.format = FormatBz2Qoi
		img.uncompressedSize = bz2SizeField(hasUncompressedSize, len(qoiBytes))
	default:
		return errors.Errorf("image: unknown target format %d", to)
	}
	img.raster = raster
	return nil
}

// qoiToBz2Qoi implements ChangeFormat's Qoi -> Bz2Qoi bypass path: a pure
// compression step over the already-held QOI bytes, no raster decode.
func (img *Image) qoiToBz2Qoi(hasUncompressedSize bool) error {
	compressed, err := deflateBz2(img.raw)
	if err != nil {
		return errors.Wrap(err, "image: converting QOI to BZ2-QOI")
	}
	img.uncompressedSize = bz2SizeField(hasUncompressedSize, len(img.raw))
	img.raw = compressed
	img.format = FormatBz2Qoi
	return nil
}

// bz2QoiToQoi implements ChangeFormat's Bz2Qoi -> Qoi bypass path: a pure
// decompression step, no raster decode.
func (img *Image) bz2QoiToQoi() error {
	raw, err := inflateBz2(img.raw)
	if err != nil {
		return errors.Wrap(err, "image: converting BZ2-QOI to QOI")
	}
	img.raw = raw
	img.format = FormatQoi
	img.uncompressedSize = nil
	return nil
}

func bz2SizeField(present bool, size int) *uint32 {
	if !present {
		return nil
	}
	n := uint32(size)
	return &n
}

// EncodeWire serializes img's current form to the bytes a TXTR entry
// stores on the wire, including the BZ2-QOI header when applicable. A
// still-FormatRaster image is encoded to PNG first, matching this port's
// default choice when no form was ever requested (img.rs prefers PNG when
// nothing else has been decided).
func (img *Image) EncodeWire(hasUncompressedSize bool) ([]byte, error) {
	switch img.format {
	case FormatPng, FormatQoi:
		return append([]byte(nil), img.raw...), nil
	case FormatBz2Qoi:
		out := make([]byte, 0, 4+4+4+len(img.raw))
		out = append(out, bz2QoiMagic[:]...)
		out = appendU16(out, uint16(img.width), img.big)
		out = appendU16(out, uint16(img.height), img.big)
		if hasUncompressedSize {
			size := uint32(len(img.raw))
			if img.uncompressedSize != nil {
				size = *img.uncompressedSize
			}
			out = appendU32(out, size, img.big)
		}
		out = append(out, img.raw...)
		return out, nil
	case FormatRaster:
		if err := img.ChangeFormat(FormatPng, hasUncompressedSize); err != nil {
			return nil, err
		}
		return img.EncodeWire(hasUncompressedSize)
	default:
		return nil, errors.Errorf("image: cannot encode unknown format %d", img.format)
	}
}

func inflateBz2(data []byte) ([]byte, error) {
	zr, err := bzip2.NewReader(bytes.NewReader(data), nil)
	if err != nil {
		return nil, errors.Wrap(err, "image: opening BZip2 stream")
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, errors.Wrap(err, "image: inflating BZip2 stream")
	}
	return out, nil
}

func deflateBz2(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := bzip2.NewWriter(&buf, nil)
	if err != nil {
		return nil, errors.Wrap(err, "image: opening BZip2 writer")
	}
	if _, err := zw.Write(data); err != nil {
		return nil, errors.Wrap(err, "image: compressing BZip2 stream")
	}
	if err := zw.Close(); err != nil {
		return nil, errors.Wrap(err, "image: finishing BZip2 stream")
	}
	return buf.Bytes(), nil
}

func stdImageToRaster(src stdimage.Image) *qoi.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	px := make([]qoi.Pixel, 0, w*h)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bch, a := src.At(x, y).RGBA()
			px = append(px, qoi.Pixel{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(bch >> 8), A: uint8(a >> 8)})
		}
	}
	return &qoi.Image{Width: w, Height: h, Pixels: px}
}

func rasterToStdImage(r *qoi.Image) *stdimage.NRGBA {
	out := stdimage.NewNRGBA(stdimage.Rect(0, 0, r.Width, r.Height))
	for i, p := range r.Pixels {
		o := i * 4
		out.Pix[o], out.Pix[o+1], out.Pix[o+2], out.Pix[o+3] = p.R, p.G, p.B, p.A
	}
	return out
}

func readU16(data []byte, pos *int, big bool) uint16 {
	b := data[*pos : *pos+2]
	*pos += 2
	if big {
		return uint16(b[0])<<8 | uint16(b[1])
	}
	return uint16(b[1])<<8 | uint16(b[0])
}

func readU32(data []byte, pos *int, big bool) uint32 {
	b := data[*pos : *pos+4]
	*pos += 4
	if big {
		return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	}
	return uint32(b[3])<<24 | uint32(b[2])<<16 | uint32(b[1])<<8 | uint32(b[0])
}

func appendU16(out []byte, v uint16, big bool) []byte {
	if big {
		return append(out, byte(v>>8), byte(v))
	}
	return append(out, byte(v), byte(v>>8))
}

func appendU32(out []byte, v uint32, big bool) []byte {
	if big {
		return append(out, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	}
	return append(out, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}
