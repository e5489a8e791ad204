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

package qoi

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func solidImage(w, h int, p Pixel) *Image {
	px := make([]Pixel, w*h)
	for i := range px {
		px[i] = p
	}
	return &Image{Width: w, Height: h, Pixels: px}
}

func TestRoundTripSolidImageLittleEndian(t *testing.T) {
	img := solidImage(4, 4, Pixel{R: 10, G: 20, B: 30, A: 255})
	enc := Encode(img, false)
	dec, err := Decode(enc)
	require.NoError(t, err)
	require.Equal(t, img.Width, dec.Width)
	require.Equal(t, img.Height, dec.Height)
	require.Equal(t, img.Pixels, dec.Pixels)
}

func TestRoundTripSolidImageBigEndian(t *testing.T) {
	img := solidImage(2, 3, Pixel{R: 200, G: 1, B: 50, A: 128})
	enc := Encode(img, true)
	require.Equal(t, byte('q'), enc[0])
	dec, err := Decode(enc)
	require.NoError(t, err)
	require.Equal(t, img.Pixels, dec.Pixels)
}

func TestRoundTripVariedPixels(t *testing.T) {
	px := []Pixel{
		{R: 0, G: 0, B: 0, A: 255},
		{R: 1, G: 0, B: 0, A: 255},
		{R: 1, G: 0, B: 0, A: 255},
		{R: 250, G: 10, B: 5, A: 255},
		{R: 250, G: 10, B: 5, A: 0},
		{R: 0, G: 0, B: 0, A: 255}, // repeats the first pixel, which went out as a run and so never entered the index table; re-sent as a color
	}
	img := &Image{Width: 3, Height: 2, Pixels: px}
	enc := Encode(img, false)
	dec, err := Decode(enc)
	require.NoError(t, err)
	require.Equal(t, px, dec.Pixels)
}

func TestDecodeRejectsUnknownMagic(t *testing.T) {
	_, err := Decode([]byte("bogus...."))
	require.Error(t, err)
}

func TestDecodeRejectsTruncatedHeader(t *testing.T) {
	_, err := Decode([]byte("fioq"))
	require.Error(t, err)
}
