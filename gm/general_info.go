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

// GeneralInfo is the GEN8 chunk: top-level metadata identifying the game
// and the runtime that built it (spec §3.1, §4.2; grounded on
// original_source/libgm/src/gamemaker/elements/general_info/*.rs).
type GeneralInfo struct {
	DisableDebugger bool
	BytecodeVersion uint8
	Filename        StringRef
	Config          StringRef
	LastObj         int32
	LastTile        int32
	GameID          int32
	// GMS2 carries the 2023+ GUID/UID fields (spec SUPPLEMENTED FEATURES;
	// the source's DotnetRng-based UID cross-check is not replicated here,
	// see DESIGN.md).
	GameGUID [16]byte
	Name     StringRef
	Version  Version
	Width    int32
	Height   int32

	DebuggerDisabled bool // SUPPLEMENTED FEATURES: actions/toggle_debug.rs
	DebugPort        int32

	LicenseCRC32  int32
	LicenseMD5    [16]byte
	Timestamp     int64
	DisplayName   StringRef
	ActiveTargets int64
	FunctionClassifications int64
	SteamAppID    int32
	DebuggerPort  int32

	RoomOrder []Ref[Room]
}

// Room is a placeholder identity target for GeneralInfo.RoomOrder; the ROOM
// chunk itself is carried opaquely (see DESIGN.md), so this exists purely
// to give RoomOrder's Ref[Room] a concrete type parameter.
type Room struct{}

func readGeneralInfo(r *binio.Reader, chunk chunkRange, strings *StringPool) (*GeneralInfo, error) {
	r.Seek(chunk.Start)
	gi := &GeneralInfo{}
	disableDebugger, err := r.ReadBool32()
	if err != nil {
		return nil, withContext(err, "GEN8", -1, "disable_debugger")
	}
	gi.DisableDebugger = disableDebugger
	bytecodeVer, err := r.ReadU8()
	if err != nil {
		return nil, withContext(err, "GEN8", -1, "bytecode_version")
	}
	gi.BytecodeVersion = bytecodeVer
	if _, err := r.ReadBytes(3); err != nil { // padding to the next u32
		return nil, withContext(err, "GEN8", -1, "padding")
	}
	filenamePtr, err := r.ReadU32()
	if err != nil {
		return nil, withContext(err, "GEN8", -1, "filename")
	}
	if gi.Filename, err = strings.ResolvePointer(filenamePtr); err != nil {
		return nil, withContext(err, "GEN8", -1, "filename")
	}
	configPtr, err := r.ReadU32()
	if err != nil {
		return nil, withContext(err, "GEN8", -1, "config")
	}
	if gi.Config, err = strings.ResolvePointer(configPtr); err != nil {
		return nil, withContext(err, "GEN8", -1, "config")
	}
	if gi.LastObj, err = r.ReadI32(); err != nil {
		return nil, withContext(err, "GEN8", -1, "last_obj")
	}
	if gi.LastTile, err = r.ReadI32(); err != nil {
		return nil, withContext(err, "GEN8", -1, "last_tile")
	}
	if gi.GameID, err = r.ReadI32(); err != nil {
		return nil, withContext(err, "GEN8", -1, "game_id")
	}
	guid, err := r.ReadBytesConst(16)
	if err != nil {
		return nil, withContext(err, "GEN8", -1, "game_guid")
	}
	copy(gi.GameGUID[:], guid)
	namePtr, err := r.ReadU32()
	if err != nil {
		return nil, withContext(err, "GEN8", -1, "name")
	}
	if gi.Name, err = strings.ResolvePointer(namePtr); err != nil {
		return nil, withContext(err, "GEN8", -1, "name")
	}
	major, err := r.ReadI32()
	if err != nil {
		return nil, withContext(err, "GEN8", -1, "version.major")
	}
	minor, err := r.ReadI32()
	if err != nil {
		return nil, withContext(err, "GEN8", -1, "version.minor")
	}
	release, err := r.ReadI32()
	if err != nil {
		return nil, withContext(err, "GEN8", -1, "version.release")
	}
	build, err := r.ReadI32()
	if err != nil {
		return nil, withContext(err, "GEN8", -1, "version.build")
	}
	gi.Version = Version{Major: major, Minor: minor, Release: release, Build: build, Branch: PreLTS}
	if gi.Width, err = r.ReadI32(); err != nil {
		return nil, withContext(err, "GEN8", -1, "window_width")
	}
	if gi.Height, err = r.ReadI32(); err != nil {
		return nil, withContext(err, "GEN8", -1, "window_height")
	}
	// Of the remainder of GEN8, only the license CRC32 is read, and only
	// when the chunk extends past the window height. The later fields
	// (license MD5, timestamp, display name, targets, Steam app ID, room
	// order and the GMS2-only trailer) are not decoded: their GeneralInfo
	// fields keep their zero values, and writeGeneralInfo does not emit them.
	if r.Pos < chunk.End {
		if v, err := r.ReadI32(); err == nil {
			gi.LicenseCRC32 = v
		}
	}
	return gi, nil
}

func writeGeneralInfo(w *binio.Writer, sb *stringBuilder, gi *GeneralInfo) {
	w.WriteBool32(gi.DisableDebugger)
	w.WriteU8(gi.BytecodeVersion)
	w.WriteBytes([]byte{0, 0, 0})
	sb.WritePointer(w, gi.Filename)
	sb.WritePointer(w, gi.Config)
	w.WriteI32(gi.LastObj)
	w.WriteI32(gi.LastTile)
	w.WriteI32(gi.GameID)
	w.WriteBytes(gi.GameGUID[:])
	sb.WritePointer(w, gi.Name)
	w.WriteI32(gi.Version.Major)
	w.WriteI32(gi.Version.Minor)
	w.WriteI32(gi.Version.Release)
	w.WriteI32(gi.Version.Build)
	w.WriteI32(gi.Width)
	w.WriteI32(gi.Height)
	w.WriteI32(gi.LicenseCRC32)
}
