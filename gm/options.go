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

import "github.com/biotomatede/libgm/binio"

// OptionConstant is one entry of the OPTN chunk's name/value constant
// table. Only the modern layout's reader and writer handle this table;
// Options.Constants stays empty for a legacy OPTN chunk.
type OptionConstant struct {
	Name  StringRef
	Value StringRef
}

// Options is the OPTN chunk. Modern archives carry a fixed flags bitmask
// followed by the constant table; legacy (pre-GMS2) archives instead carry
// a flat table of individually-named boolean fields with no bitmask
// (spec SUPPLEMENTED FEATURES, OptionsLegacy variant; grounded on
// original_source/libgm/src/gamemaker/elements/options/old.rs).
type Options struct {
	Legacy bool

	// Modern fields.
	Flags     int64
	ScaleMode int32
	WindowColor int32
	ColorDepth  int32
	Resolution  int32
	Frequency   int32
	SyncVSync   int32

	// Legacy fields (old.rs's flat boolean table), kept distinct from the
	// bitmask rather than folded into Flags so a decoded OptionsLegacy
	// round-trips byte-identical even though the two layouts share no
	// common offsets.
	LegacyFullScreen     bool
	LegacyInterpolate    bool
	LegacyUseNewAudio     bool
	LegacyBorderlessWindow bool

	Constants []OptionConstant
}

func readOptions(r *binio.Reader, chunk chunkRange, strings *StringPool, v Version) (*Options, error) {
	r.Seek(chunk.Start)
	opt := &Options{}
	if !v.IsAtLeast(Req(2, 0)) {
		opt.Legacy = true
		flags := [5]bool{}
		for i := range flags {
			b, err := r.ReadBool32()
			if err != nil {
				return nil, withContext(err, "OPTN", -1, "legacy_flags")
			}
			flags[i] = b
		}
		opt.LegacyFullScreen = flags[0]
		opt.LegacyInterpolate = flags[1]
		opt.LegacyUseNewAudio = flags[2]
		opt.LegacyBorderlessWindow = flags[3]
		return opt, nil
	}
	if _, err := r.ReadBytes(8); err != nil { // unknown/reserved header pair
		return nil, withContext(err, "OPTN", -1, "header")
	}
	flags, err := r.ReadI64()
	if err != nil {
		return nil, withContext(err, "OPTN", -1, "flags")
	}
	opt.Flags = flags
	scaleMode, err := r.ReadI32()
	if err != nil {
		return nil, withContext(err, "OPTN", -1, "scale_mode")
	}
	opt.ScaleMode = scaleMode
	windowColor, err := r.ReadI32()
	if err != nil {
		return nil, withContext(err, "OPTN", -1, "window_color")
	}
	opt.WindowColor = windowColor
	colorDepth, err := r.ReadI32()
	if err != nil {
		return nil, withContext(err, "OPTN", -1, "color_depth")
	}
	opt.ColorDepth = colorDepth
	resolution, err := r.ReadI32()
	if err != nil {
		return nil, withContext(err, "OPTN", -1, "resolution")
	}
	opt.Resolution = resolution
	frequency, err := r.ReadI32()
	if err != nil {
		return nil, withContext(err, "OPTN", -1, "frequency")
	}
	opt.Frequency = frequency
	sync, err := r.ReadI32()
	if err != nil {
		return nil, withContext(err, "OPTN", -1, "sync_vsync")
	}
	opt.SyncVSync = sync

	if r.Pos < chunk.End {
		consts, err := ReadPointerList(r, "OPTN", func(r *binio.Reader, i int) (OptionConstant, error) {
			namePtr, err := r.ReadU32()
			if err != nil {
				return OptionConstant{}, err
			}
			name, err := strings.ResolvePointer(namePtr)
			if err != nil {
				return OptionConstant{}, err
			}
			valPtr, err := r.ReadU32()
			if err != nil {
				return OptionConstant{}, err
			}
			val, err := strings.ResolvePointer(valPtr)
			if err != nil {
				return OptionConstant{}, err
			}
			return OptionConstant{Name: name, Value: val}, nil
		})
		if err != nil {
			return nil, withContext(err, "OPTN", -1, "constants")
		}
		opt.Constants = consts
	}
	return opt, nil
}

func writeOptions(w *binio.Writer, sb *stringBuilder, pt *PointerTable, opt *Options) error {
	if opt.Legacy {
		w.WriteBool32(opt.LegacyFullScreen)
		w.WriteBool32(opt.LegacyInterpolate)
		w.WriteBool32(opt.LegacyUseNewAudio)
		w.WriteBool32(opt.LegacyBorderlessWindow)
		w.WriteBool32(false)
		return nil
	}
	w.WriteU64(0)
	w.WriteI64(opt.Flags)
	w.WriteI32(opt.ScaleMode)
	w.WriteI32(opt.WindowColor)
	w.WriteI32(opt.ColorDepth)
	w.WriteI32(opt.Resolution)
	w.WriteI32(opt.Frequency)
	w.WriteI32(opt.SyncVSync)
	return WritePointerList(w, pt, "option_constant", opt.Constants, func(w *binio.Writer, i int, c OptionConstant) error {
		sb.WritePointer(w, c.Name)
		sb.WritePointer(w, c.Value)
		return nil
	})
}
