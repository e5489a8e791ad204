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
	"math"
	"unicode/utf8"
)

// Reader is a stateful cursor over an immutable byte buffer.
//
// Do not modify its exported fields after calling any of its methods other
// than Seek.
type Reader struct {
	// Buf is the byte buffer being read from. Nil is an invalid value.
	Buf []byte

	// Endian is the byte order used to decode multi-byte integers.
	Endian Endianness

	// Pos is the current cursor position, in bytes from the start of Buf.
	Pos int
}

// NewReader returns a Reader positioned at the start of buf.
func NewReader(buf []byte, endian Endianness) *Reader {
	return &Reader{Buf: buf, Endian: endian}
}

// Len returns the number of unread bytes remaining.
func (r *Reader) Len() int { return len(r.Buf) - r.Pos }

// Seek repositions the cursor to an absolute offset. It does not validate
// the offset; the next read will fail with ErrBounds if it is out of range.
func (r *Reader) Seek(pos int) { r.Pos = pos }

func (r *Reader) require(n int) error {
	if n < 0 || r.Pos < 0 || r.Pos+n > len(r.Buf) {
		return newErr(ErrBounds, r.Pos, "need %d bytes, have %d", n, r.Len())
	}
	return nil
}

// ReadBytes returns the next n bytes and advances the cursor. The returned
// slice aliases Buf; callers must copy it before it can outlive a write to
// Buf.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if err := r.require(n); err != nil {
		return nil, err
	}
	b := r.Buf[r.Pos : r.Pos+n]
	r.Pos += n
	return b, nil
}

// ReadBytesConst reads exactly n bytes into a freshly allocated slice.
func (r *Reader) ReadBytesConst(n int) ([]byte, error) {
	b, err := r.ReadBytes(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

func (r *Reader) u8() (uint8, error) {
	if err := r.require(1); err != nil {
		return 0, err
	}
	v := r.Buf[r.Pos]
	r.Pos++
	return v, nil
}

func (r *Reader) u16() (uint16, error) {
	if err := r.require(2); err != nil {
		return 0, err
	}
	b := r.Buf[r.Pos : r.Pos+2]
	r.Pos += 2
	if r.Endian == BigEndian {
		return uint16(b[0])<<8 | uint16(b[1]), nil
	}
	return uint16(b[1])<<8 | uint16(b[0]), nil
}

func (r *Reader) u32() (uint32, error) {
	if err := r.require(4); err != nil {
		return 0, err
	}
	b := r.Buf[r.Pos : r.Pos+4]
	r.Pos += 4
	if r.Endian == BigEndian {
		return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), nil
	}
	return uint32(b[3])<<24 | uint32(b[2])<<16 | uint32(b[1])<<8 | uint32(b[0]), nil
}

func (r *Reader) u64() (uint64, error) {
	if err := r.require(8); err != nil {
		return 0, err
	}
	b := r.Buf[r.Pos : r.Pos+8]
	r.Pos += 8
	var v uint64
	if r.Endian == BigEndian {
		for i := 0; i < 8; i++ {
			v = v<<8 | uint64(b[i])
		}
	} else {
		for i := 7; i >= 0; i-- {
			v = v<<8 | uint64(b[i])
		}
	}
	return v, nil
}

// ReadU8 reads an unsigned 8-bit integer.
func (r *Reader) ReadU8() (uint8, error) { return r.u8() }

// ReadU16 reads an unsigned 16-bit integer in the reader's endianness.
func (r *Reader) ReadU16() (uint16, error) { return r.u16() }

// ReadU32 reads an unsigned 32-bit integer in the reader's endianness.
func (r *Reader) ReadU32() (uint32, error) { return r.u32() }

// ReadU64 reads an unsigned 64-bit integer in the reader's endianness.
func (r *Reader) ReadU64() (uint64, error) { return r.u64() }

// ReadI8 reads a signed 8-bit integer.
func (r *Reader) ReadI8() (int8, error) {
	v, err := r.u8()
	return int8(v), err
}

// ReadI16 reads a signed 16-bit integer.
func (r *Reader) ReadI16() (int16, error) {
	v, err := r.u16()
	return int16(v), err
}

// ReadI32 reads a signed 32-bit integer.
func (r *Reader) ReadI32() (int32, error) {
	v, err := r.u32()
	return int32(v), err
}

// ReadI64 reads a signed 64-bit integer.
func (r *Reader) ReadI64() (int64, error) {
	v, err := r.u64()
	return int64(v), err
}

// ReadF32 reads an IEEE-754 single precision float.
func (r *Reader) ReadF32() (float32, error) {
	v, err := r.u32()
	return math.Float32frombits(v), err
}

// ReadF64 reads an IEEE-754 double precision float.
func (r *Reader) ReadF64() (float64, error) {
	v, err := r.u64()
	return math.Float64frombits(v), err
}

// ReadBool32 reads a 32-bit integer and coerces it to a bool: any nonzero
// value reads as true.
func (r *Reader) ReadBool32() (bool, error) {
	v, err := r.u32()
	return v != 0, err
}

// ReadLiteralString reads n bytes and decodes them as UTF-8, failing with
// ErrEncoding on invalid sequences.
func (r *Reader) ReadLiteralString(n int) (string, error) {
	b, err := r.ReadBytes(n)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", newErr(ErrEncoding, r.Pos-n, "invalid UTF-8 in %d-byte literal string", n)
	}
	return string(b), nil
}

// Align advances the cursor to the next k-byte boundary, asserting that
// every skipped padding byte is zero (spec §4.1).
func (r *Reader) Align(k int) error {
	for r.Pos%k != 0 {
		b, err := r.u8()
		if err != nil {
			return err
		}
		if b != 0 {
			return newErr(ErrAlignment, r.Pos-1, "expected zero padding byte, got 0x%02X", b)
		}
	}
	return nil
}
