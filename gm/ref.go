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

const (
	// maxElementCount is the failsafe element-count ceiling (spec §7): a
	// decoded count above this is treated as a corrupt-length bomb, not a
	// legitimate asset family.
	maxElementCount = 500_000

	// maxImpliedSize is the failsafe ceiling on a single decoded blob's
	// implied size in bytes.
	maxImpliedSize = 1 << 20

	// maxTotalLength is the runtime's hard ceiling on a DataFile's total
	// byte length (2^31 - 1), per spec §6.1/§7 (Integrity).
	maxTotalLength = (1 << 31) - 1
)

// Ref is a typed, non-owning index into the homogeneous ordered sequence of
// asset family T (spec §3.2). The zero value is NOT "absent" - use -1 via
// NoRef for that; a bare Ref is resolved purely by array lookup against the
// owning Data.
type Ref[T any] int32

// NoRef is the optional-reference "absent" sentinel, encoded as -1 both on
// the wire and in memory (spec §3.2).
func NoRef[T any]() Ref[T] { return Ref[T](-1) }

// Present reports whether the reference is not the absent sentinel. It does
// not imply the index is in bounds.
func (r Ref[T]) Present() bool { return r >= 0 }

// Resolve looks r up against list, the owning Data's sequence for T. It
// fails with ErrReference if r is out of bounds; an absent r resolves to
// (nil, nil).
func Resolve[T any](list []T, r Ref[T]) (*T, error) {
	if !r.Present() {
		return nil, nil
	}
	if int(r) >= len(list) {
		return nil, newErr(ErrReference, "asset index %d out of bounds (len %d)", int(r), len(list))
	}
	return &list[r], nil
}

// checkCount applies the spec §7 Bounds failsafe to a decoded element count.
func checkCount(n uint32, what string) error {
	if n > maxElementCount {
		return newErr(ErrIntegrity, "refusing to allocate %d %s elements (limit %d)", n, what, maxElementCount)
	}
	return nil
}
