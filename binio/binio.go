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

// Package binio provides endian-aware cursor types over a byte buffer:
// Reader for decoding a DataFile image, Writer for re-encoding one.
//
// Users typically do not refer to this package directly. Instead, they use
// the higher level "gm" package, which layers chunk, pointer, and element
// semantics on top of these primitives.
package binio

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrKind is the taxonomy of binio failures (spec §7).
type ErrKind int

const (
	// ErrBounds means an offset or size fell outside the buffer, or a
	// failsafe limit (element count, implied total size) tripped.
	ErrBounds ErrKind = iota
	// ErrEncoding means invalid UTF-8 or an invalid enum discriminant.
	ErrEncoding
	// ErrAlignment means a pointer-list entry did not land on the expected
	// alignment, or a padding byte read back non-zero.
	ErrAlignment
)

func (k ErrKind) String() string {
	switch k {
	case ErrBounds:
		return "bounds"
	case ErrEncoding:
		return "encoding"
	case ErrAlignment:
		return "alignment"
	default:
		return "unknown"
	}
}

// Error is a binio failure tagged with its ErrKind and the cursor position
// at which it occurred.
type Error struct {
	Kind ErrKind
	Pos  int
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("binio: %s error at position %d: %s", e.Kind, e.Pos, e.Msg)
}

func newErr(kind ErrKind, pos int, format string, args ...interface{}) error {
	return errors.WithStack(&Error{Kind: kind, Pos: pos, Msg: fmt.Sprintf(format, args...)})
}

// Endianness selects the byte order used for integers and the chunk-name
// byte order of the DataFile container (spec §3.1, §4.2).
type Endianness uint8

const (
	// LittleEndian is the default byte order; chunk names are stored
	// forwards ("FORM", not "MROF").
	LittleEndian Endianness = iota
	// BigEndian reverses chunk-name byte order in the container.
	BigEndian
)

func (e Endianness) String() string {
	if e == BigEndian {
		return "big-endian"
	}
	return "little-endian"
}
