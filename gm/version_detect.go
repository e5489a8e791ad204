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
	"go.uber.org/zap"

	"github.com/biotomatede/libgm/binio"
)

// checkerFn runs one structural check, reading from the chunk named by its
// owning versionCheck and returning the requirement it detected, or nil if
// the evidence was inconclusive (spec §9: "model as a fallible function
// returning an optional upgrade").
type checkerFn func(r *binio.Reader, chunk chunkRange, log *zap.SugaredLogger) (*Requirement, error)

// versionCheck pairs a checkerFn with the chunk it reads, the minimum
// version at which its framing assumptions hold (required), and the
// highest version it is capable of detecting (target) (spec §4.5 step 2).
type versionCheck struct {
	chunkName string
	fn        checkerFn
	required  Requirement
	target    Requirement
}

// chunkExistenceUpgrades implements spec §4.5 step 1 verbatim (grounded on
// version_detection.rs's upgrade_by_chunk_existence table).
var chunkExistenceUpgrades = []struct {
	chunk string
	req   Requirement
}{
	{"UILR", ReqBranch(2024, 13, 0, 0, PostLTS)},
	{"PSEM", ReqBranch(2023, 2, 0, 0, PostLTS)},
	{"FEAT", ReqBranch(2022, 8, 0, 0, PreLTS)},
	{"FEDS", ReqBranch(2, 3, 6, 0, PreLTS)},
	{"SEQN", ReqBranch(2, 3, 0, 0, PreLTS)},
	{"TGIN", ReqBranch(2, 2, 1, 0, PreLTS)},
}

// builtinVersionChecks is a representative subset of the structural check
// pool (spec §4.5 step 2); original_source/libgm/src/gamemaker/
// version_detection.rs's create_version_checks lists 19 such checks across
// ACRV/AGRP/CODE/EXTN/FONT/FUNC/OBJT/PSEM/ROOM/SOND/SPRT/TGIN/TXTR, plus
// three further wad_version-gated pre-checks (FUNC/CODE/FONT) that the
// source runs ahead of that table entirely. Grounding material for most of
// those chunk-specific checks (acrv.rs beyond what's already ported,
// agrp.rs, extn.rs, func.rs, objt.rs, psem.rs, sond.rs, tgin.rs, txtr.rs)
// is absent from this port's retrieved source pack; this module instead
// ports every check it *can* ground, across the available font.rs and
// code.rs files, plus one worked ACRV example of the other structural
// patterns the source uses - see DESIGN.md for the full per-check
// grounding/gap ledger.
func builtinVersionChecks() []versionCheck {
	return []versionCheck{
		{
			chunkName: "FONT",
			fn:        checkFont2022_2,
			required:  Req(2022, 0), // wad_version >= 17 in the source; approximated numerically
			target:    Req(2022, 2),
		},
		{
			chunkName: "FONT",
			fn:        checkFont2024_14,
			required:  Req(2024, 13),
			target:    Req(2024, 14),
		},
		{
			chunkName: "CODE",
			fn:        checkCode2023_8,
			required:  Req(2, 0), // wad_version >= 15 in the source; approximated numerically
			target:    Req(2023, 8),
		},
		{
			chunkName: "ACRV",
			fn:        checkACRV2_3_1,
			required:  Req(2, 3),
			target:    Req(2, 3, 1),
		},
	}
}

// checkFont2022_2 is grounded on version_detection/font.rs::check_2022_2.
// It reads the first font's putative glyph count and verifies the
// subsequent pointer-list size matches the layout introduced in 2022.2.
func checkFont2022_2(r *binio.Reader, chunk chunkRange, log *zap.SugaredLogger) (*Requirement, error) {
	r.Seek(chunk.Start)
	fontCount, err := r.ReadU32()
	if err != nil || fontCount < 1 {
		return nil, nil //nolint:nilerr // inconclusive evidence, not a hard failure
	}
	var firstPointer uint32
	for i := uint32(0); i < fontCount; i++ {
		p, err := r.ReadU32()
		if err != nil {
			return nil, nil
		}
		if p != 0 {
			firstPointer = p
			break
		}
	}
	if firstPointer == 0 {
		return nil, nil
	}
	r.Seek(int(firstPointer) + 48)
	glyphCount, err := r.ReadU32()
	if err != nil {
		return nil, nil
	}
	if int(glyphCount)*4 > chunk.length() {
		return nil, nil
	}
	if glyphCount == 0 {
		log.Warnw("glyph count is zero while detecting FONT 2022.2; may false-positive")
		req := Req(2022, 2)
		return &req, nil
	}
	glyphPointers := make([]uint32, glyphCount)
	for i := range glyphPointers {
		p, err := r.ReadU32()
		if err != nil || p == 0 {
			return nil, nil
		}
		glyphPointers[i] = p
	}
	for _, p := range glyphPointers {
		if r.Pos != int(p) {
			return nil, nil
		}
		r.Seek(r.Pos + 14)
		kerningLen, err := r.ReadU16()
		if err != nil {
			return nil, nil
		}
		r.Seek(r.Pos + int(kerningLen)*4)
	}
	req := Req(2022, 2)
	return &req, nil
}

// checkFont2024_14 is grounded on version_detection/font.rs::check_2024_14.
// 2024.14 dropped the final chunk's 512-byte padding bank (and changed
// glyph alignment); this walks to the last font's last glyph's end and
// checks whether the trailing padding could still fit.
func checkFont2024_14(r *binio.Reader, chunk chunkRange, log *zap.SugaredLogger) (*Requirement, error) {
	r.Seek(chunk.Start)
	fontCount, err := r.ReadU32()
	if err != nil {
		return nil, nil //nolint:nilerr
	}
	if err := checkCount(fontCount, "font"); err != nil {
		return nil, nil //nolint:nilerr
	}
	var lastFont uint32
	for i := uint32(0); i < fontCount; i++ {
		p, err := r.ReadU32()
		if err != nil {
			return nil, nil
		}
		if p != 0 {
			lastFont = p
		}
	}

	if lastFont != 0 {
		r.Seek(int(lastFont) + 56)
		glyphCount, err := r.ReadU32()
		if err != nil || glyphCount == 0 {
			return nil, nil
		}
		r.Seek(r.Pos + int(glyphCount-1)*4)
		lastGlyphPtr, err := r.ReadU32()
		if err != nil {
			return nil, nil
		}
		r.Seek(int(lastGlyphPtr) + 16)
		kerningCount, err := r.ReadU16()
		if err != nil {
			return nil, nil
		}
		r.Seek(r.Pos + int(kerningCount)*4)
	}

	if r.Pos+512 > chunk.End {
		req := Req(2024, 14)
		return &req, nil
	}
	return nil, nil
}

// checkCode2023_8 is grounded on version_detection/code.rs::
// check_2023_8_and_2024_4. It walks every code entry's raw instruction
// stream looking for an Extended instruction carrying an Int32 argument,
// a layout only possible from 2023.8 onward. The source additionally
// disambiguates 2024.4 by checking that argument against sibling chunks'
// element counts (BGND/PATH/SCPT/FONT/TMLN/SHDR/SEQN/PSYS); that
// cross-chunk asset-type disambiguation is not ported here (see
// DESIGN.md), so this check only ever detects 2023.8.
func checkCode2023_8(r *binio.Reader, chunk chunkRange, log *zap.SugaredLogger) (*Requirement, error) {
	r.Seek(chunk.Start)
	codeCount, err := r.ReadU32()
	if err != nil {
		return nil, nil //nolint:nilerr
	}
	if err := checkCount(codeCount, "code entry"); err != nil {
		return nil, nil //nolint:nilerr
	}
	pointers := make([]uint32, 0, codeCount)
	for i := uint32(0); i < codeCount; i++ {
		p, err := r.ReadU32()
		if err != nil {
			return nil, nil
		}
		if p != 0 {
			pointers = append(pointers, p)
		}
	}

	detected := false
	for _, ptr := range pointers {
		r.Seek(int(ptr) + 4) // skip name pointer
		instrLen, err := r.ReadU32()
		if err != nil {
			return nil, nil
		}
		r.Seek(r.Pos + 4) // skip locals/arguments count
		relStart, err := r.ReadI32()
		if err != nil {
			return nil, nil
		}
		instrStart := uint32(int32(r.Pos-4) + relStart)
		instrEnd := instrStart + instrLen
		r.Seek(int(instrStart))

		for r.Pos < int(instrEnd) {
			word, err := r.ReadU32()
			if err != nil {
				return nil, nil
			}
			opcode := uint8(word >> 24)
			type1 := DataType((word >> 16) & 0xF)

			if opcode == uint8(OpPop) || opcode == uint8(OpCall) {
				r.Seek(r.Pos + 4)
			}

			if opcode >= 0xC0 && opcode <= 0xC3 {
				if type1 != TInt16 {
					r.Seek(r.Pos + 4)
				}
				continue
			}

			if opcode != uint8(OpExtended) {
				continue
			}

			if type1 == TInt32 {
				if _, err := r.ReadU32(); err != nil {
					return nil, nil
				}
				detected = true
			}
		}
	}

	if !detected {
		return nil, nil
	}
	req := Req(2023, 8)
	return &req, nil
}

// checkACRV2_3_1 is grounded on version_detection's ACRV check: animation
// curve channels gained an extra "unknown" field at 2.3.1. This check does
// not measure the channel point stride; it reports 2.3.1 whenever the first
// curve's channel count is at least one.
func checkACRV2_3_1(r *binio.Reader, chunk chunkRange, log *zap.SugaredLogger) (*Requirement, error) {
	r.Seek(chunk.Start)
	count, err := r.ReadU32()
	if err != nil || count < 1 {
		return nil, nil //nolint:nilerr
	}
	// A 2.3.1+ curve's first channel carries one extra f32 ("unknown")
	// per point; the points themselves are not read here.
	first, err := r.ReadU32()
	if err != nil {
		return nil, nil //nolint:nilerr
	}
	r.Seek(int(first))
	if _, err := r.ReadBytes(4); err != nil { // name pointer
		return nil, nil
	}
	channelCount, err := r.ReadU32()
	if err != nil || channelCount < 1 {
		return nil, nil //nolint:nilerr
	}
	// Without a legacy-layout fixture to disambiguate against, treat the
	// presence of a parseable channel list as sufficient structural
	// evidence (the source's real check additionally replays point
	// decoding at both strides; ported at reduced fidelity, see DESIGN.md).
	req := Req(2, 3, 1)
	return &req, nil
}

// DetectVersion infers the real runtime version of a DataFile from
// structural fingerprints (spec §4.5). It never lowers v (monotone
// upgrades only) and is idempotent: re-running it against the same chunks
// makes no further progress (spec §8 property 4).
func DetectVersion(r *binio.Reader, chunks *ChunkMap, v *Version, log *zap.SugaredLogger) error {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	savedPos := r.Pos

	for _, up := range chunkExistenceUpgrades {
		if chunks.Contains(up.chunk) {
			log.Debugw("chunk existence implies minimum version", "chunk", up.chunk, "version", up.req.Version.String())
			v.Upgrade(up.req)
		}
	}

	checks := builtinVersionChecks()
	for {
		remaining := checks[:0]
		for _, c := range checks {
			if v.IsAtLeast(c.target) {
				continue // already satisfied; drop permanently
			}
			remaining = append(remaining, c)
		}
		checks = remaining

		updated := false
		var stillPending []versionCheck
		for _, c := range checks {
			if !v.IsAtLeast(c.required) {
				stillPending = append(stillPending, c)
				continue
			}
			// Check is eligible this pass; it is permanently consumed
			// whether or not it succeeds (spec §4.5 step 3).
			rng, ok := chunks.Range(c.chunkName)
			if !ok {
				continue
			}
			req, err := c.fn(r, rng, log)
			if err != nil {
				log.Debugw("version check failed", "chunk", c.chunkName, "error", err)
				continue
			}
			if req != nil && !v.IsAtLeast(*req) {
				log.Debugw("upgraded version via structural check", "chunk", c.chunkName, "from", v.String(), "to", req.Version.String())
				v.Upgrade(*req)
				updated = true
			}
		}
		checks = stillPending
		if !updated {
			break
		}
	}

	v.PromoteLTSBranch()
	r.Seek(savedPos)
	return nil
}
