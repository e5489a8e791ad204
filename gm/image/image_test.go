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

package image

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/biotomatede/libgm/qoi"
)

func checkerboard(w, h int) *qoi.Image {
	px := make([]qoi.Pixel, w*h)
	for i := range px {
		if i%2 == 0 {
			px[i] = qoi.Pixel{R: 10, G: 20, B: 30, A: 255}
		} else {
			px[i] = qoi.Pixel{R: 200, G: 1, B: 99, A: 255}
		}
	}
	return &qoi.Image{Width: w, Height: h, Pixels: px}
}

// TestChangeFormatBz2QoiRoundTrip covers spec seed scenario S5: an image
// round-trips between Qoi and Bz2Qoi, preserving pixels, with
// uncompressed_size present iff the caller says runtime >= 2022.5.
func TestChangeFormatBz2QoiRoundTrip(t *testing.T) {
	for _, hasSize := range []bool{true, false} {
		img := FromRaster(checkerboard(4, 4), true)
		require.NoError(t, img.ChangeFormat(FormatQoi, hasSize))
		require.Equal(t, FormatQoi, img.Format())

		require.NoError(t, img.ChangeFormat(FormatBz2Qoi, hasSize))
		require.Equal(t, FormatBz2Qoi, img.Format())
		if hasSize {
			require.NotNil(t, img.uncompressedSize)
		} else {
			require.Nil(t, img.uncompressedSize)
		}

		wire, err := img.EncodeWire(hasSize)
		require.NoError(t, err)

		decoded, err := Decode(wire, true, hasSize)
		require.NoError(t, err)
		require.Equal(t, FormatBz2Qoi, decoded.Format())

		require.NoError(t, decoded.ChangeFormat(FormatQoi, hasSize))
		raster, err := decoded.Raster()
		require.NoError(t, err)
		require.Equal(t, checkerboard(4, 4).Pixels, raster.Pixels)
	}
}

// TestChangeFormatIdempotent covers spec §8's format-conversion idempotence
// property: converting to the format an Image already holds is a no-op.
func TestChangeFormatIdempotent(t *testing.T) {
	img := FromRaster(checkerboard(2, 2), false)
	require.NoError(t, img.ChangeFormat(FormatPng, false))
	before := append([]byte(nil), img.raw...)
	require.NoError(t, img.ChangeFormat(FormatPng, false))
	require.Equal(t, before, img.raw)
}

func TestChangeFormatPngThroughRaster(t *testing.T) {
	img := FromRaster(checkerboard(3, 5), false)
	require.NoError(t, img.ChangeFormat(FormatPng, false))
	require.Equal(t, FormatPng, img.Format())

	wire, err := img.EncodeWire(false)
	require.NoError(t, err)
	decoded, err := Decode(wire, false, false)
	require.NoError(t, err)
	w, h := decoded.Dimensions()
	require.Equal(t, 3, w)
	require.Equal(t, 5, h)

	raster, err := decoded.Raster()
	require.NoError(t, err)
	require.Equal(t, checkerboard(3, 5).Pixels, raster.Pixels)
}

func TestDecodeRejectsUnknownHeader(t *testing.T) {
	_, err := Decode([]byte("not an image"), false, false)
	require.Error(t, err)
}
