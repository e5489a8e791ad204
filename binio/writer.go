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

import "math"

// Writer is a stateful cursor that appends to a growable byte buffer.
//
// Do not modify its exported fields after calling any of its methods.
type Writer struct {
	// Buf accumulates the encoded bytes. Grows as needed; pre-allocate its
	// capacity (e.g. from Data.OriginalDataSize) to avoid reallocation.
	Buf []byte

	// Endian is the byte order used to encode multi-byte integers.
	Endian Endianness
}

// NewWriter returns a Writer with capacity reserved per sizeHint.
func NewWriter(endian Endianness, sizeHint int) *Writer {
	return &Writer{Buf: make([]byte, 0, sizeHint), Endian: endian}
}

// Len returns the number of bytes written so far; also the position the
// next write will land at.
func (w *Writer) Len() int { return len(w.Buf) }

// WriteBytes appends b verbatim.
func (w *Writer) WriteBytes(b []byte) {
	w.Buf = append(w.Buf, b...)
}

// WriteU8 appends an unsigned 8-bit integer.
func (w *Writer) WriteU8(v uint8) {
	w.Buf = append(w.Buf, v)
}

// WriteU16 appends an unsigned 16-bit integer in the writer's endianness.
func (w *Writer) WriteU16(v uint16) {
	if w.Endian == BigEndian {
		w.Buf = append(w.Buf, byte(v>>8), byte(v))
	} else {
		w.Buf = append(w.Buf, byte(v), byte(v>>8))
	}
}

// WriteU32 appends an unsigned 32-bit integer in the writer's endianness.
func (w *Writer) WriteU32(v uint32) {
	if w.Endian == BigEndian {
		w.Buf = append(w.Buf, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	} else {
		w.Buf = append(w.Buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
	}
}

// WriteU64 appends an unsigned 64-bit integer in the writer's endianness.
func (w *Writer) WriteU64(v uint64) {
	if w.Endian == BigEndian {
		for i := 7; i >= 0; i-- {
			w.Buf = append(w.Buf, byte(v>>(8*uint(i))))
		}
	} else {
		for i := 0; i < 8; i++ {
			w.Buf = append(w.Buf, byte(v>>(8*uint(i))))
		}
	}
}

// WriteI8 appends a signed 8-bit integer.
func (w *Writer) WriteI8(v int8) { w.WriteU8(uint8(v)) }

// WriteI16 appends a signed 16-bit integer.
func (w *Writer) WriteI16(v int16) { w.WriteU16(uint16(v)) }

// WriteI32 appends a signed 32-bit integer.
func (w *Writer) WriteI32(v int32) { w.WriteU32(uint32(v)) }

// WriteI64 appends a signed 64-bit integer.
func (w *Writer) WriteI64(v int64) { w.WriteU64(uint64(v)) }

// WriteF32 appends an IEEE-754 single precision float.
func (w *Writer) WriteF32(v float32) { w.WriteU32(math.Float32bits(v)) }

// WriteF64 appends an IEEE-754 double precision float.
func (w *Writer) WriteF64(v float64) { w.WriteU64(math.Float64bits(v)) }

// WriteBool32 appends a 32-bit integer: 1 for true, 0 for false.
func (w *Writer) WriteBool32(v bool) {
	if v {
		w.WriteU32(1)
	} else {
		w.WriteU32(0)
	}
}

// WriteLiteralString appends s's UTF-8 bytes verbatim, with no length
// prefix or terminator (callers that need one write it separately).
func (w *Writer) WriteLiteralString(s string) {
	w.Buf = append(w.Buf, s...)
}

// Align appends zero bytes until Len() is a multiple of k.
func (w *Writer) Align(k int) {
	for w.Len()%k != 0 {
		w.Buf = append(w.Buf, 0)
	}
}

// OverwriteU32At patches the 4 bytes at pos with v, in the writer's
// endianness. Used for pointer-placeholder fix-up (spec §4.1, §4.4).
func (w *Writer) OverwriteU32At(pos int, v uint32) error {
	if pos < 0 || pos+4 > len(w.Buf) {
		return newErr(ErrBounds, pos, "overwrite target out of range (buffer length %d)", len(w.Buf))
	}
	b := w.Buf[pos : pos+4]
	if w.Endian == BigEndian {
		b[0], b[1], b[2], b[3] = byte(v>>24), byte(v>>16), byte(v>>8), byte(v)
	} else {
		b[0], b[1], b[2], b[3] = byte(v), byte(v>>8), byte(v>>16), byte(v>>24)
	}
	return nil
}

// OverwriteI32At patches the 4 bytes at pos with v, in the writer's
// endianness.
func (w *Writer) OverwriteI32At(pos int, v int32) error {
	return w.OverwriteU32At(pos, uint32(v))
}
