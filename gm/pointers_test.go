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

func TestPointerListRoundTrip(t *testing.T) {
	type widget struct{ V int32 }
	items := []widget{{V: 10}, {V: 20}, {V: 30}}

	w := binio.NewWriter(binio.LittleEndian, 256)
	pt := NewPointerTable(len(items))
	err := WritePointerList(w, pt, "widget", items, func(w *binio.Writer, i int, v widget) error {
		w.WriteI32(v.V)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, pt.Flush(w))

	r := binio.NewReader(w.Buf, binio.LittleEndian)
	got, err := ReadPointerList(r, "widget", func(r *binio.Reader, i int) (widget, error) {
		v, err := r.ReadI32()
		return widget{V: v}, err
	})
	require.NoError(t, err)
	require.Equal(t, items, got)
}

func TestPointerTableUnresolvedPlaceholderFails(t *testing.T) {
	w := binio.NewWriter(binio.LittleEndian, 64)
	pt := NewPointerTable(1)
	pt.WritePointer(w, "widget", 0) // never resolved
	err := pt.Flush(w)
	require.Error(t, err)
	var ce *CodecError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, ErrReference, ce.Kind)
}

func TestPointerTableDoubleResolveFails(t *testing.T) {
	w := binio.NewWriter(binio.LittleEndian, 64)
	pt := NewPointerTable(1)
	require.NoError(t, pt.MarkResolved(w, "widget", 0))
	err := pt.MarkResolved(w, "widget", 0)
	require.Error(t, err)
	var ce *CodecError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, ErrReference, ce.Kind)
}

func TestPointerOptWritesNullForAbsent(t *testing.T) {
	w := binio.NewWriter(binio.LittleEndian, 64)
	pt := NewPointerTable(1)
	pt.WritePointerOpt(w, "widget", -1)
	require.NoError(t, pt.Flush(w)) // no placeholder was staged, so Flush is a no-op

	r := binio.NewReader(w.Buf, binio.LittleEndian)
	v, err := r.ReadI32()
	require.NoError(t, err)
	require.Equal(t, int32(0), v)
}
