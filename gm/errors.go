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

	"github.com/pkg/errors"
)

// ErrKind is the taxonomy of codec failures beyond the lower-level binio
// kinds (spec §7): Version, Reference, and Integrity.
type ErrKind int

const (
	// ErrVersion means a field required by the detected version was absent
	// in memory at write time, or an unknown-version chunk was encountered.
	ErrVersion ErrKind = iota
	// ErrReference means an asset index was out of bounds against its
	// owning sequence, an occurrence chain terminated prematurely, or a
	// name-string-id cross-check failed.
	ErrReference
	// ErrIntegrity means a duplicate chunk, misaligned chunk boundary, or
	// a total length exceeding the runtime's 2^31-1 limit.
	ErrIntegrity
)

func (k ErrKind) String() string {
	switch k {
	case ErrVersion:
		return "version"
	case ErrReference:
		return "reference"
	case ErrIntegrity:
		return "integrity"
	default:
		return "unknown"
	}
}

// CodecError is a tagged codec failure. It holds only a kind and a message;
// withContext and withPos wrap it in context as the error propagates up
// through chunk -> element -> field call frames.
type CodecError struct {
	Kind ErrKind
	Msg  string
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("gm: %s error: %s", e.Kind, e.Msg)
}

func newErr(kind ErrKind, format string, args ...interface{}) error {
	return errors.WithStack(&CodecError{Kind: kind, Msg: fmt.Sprintf(format, args...)})
}

// withContext wraps err naming the chunk, the element index within it (or
// -1 if not applicable), and the field being decoded/encoded, per the §7
// propagation policy. It is a no-op on a nil err.
func withContext(err error, chunk string, elemIndex int, field string) error {
	if err == nil {
		return nil
	}
	if elemIndex >= 0 {
		return errors.Wrapf(err, "chunk %s, element #%d, field %q", chunk, elemIndex, field)
	}
	return errors.Wrapf(err, "chunk %s, field %q", chunk, field)
}

// withPos additionally names the file position at which the failure was
// observed.
func withPos(err error, pos int) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, "at file position %d", pos)
}
