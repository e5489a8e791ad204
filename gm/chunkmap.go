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
	"sort"

	"go.uber.org/zap"

	"github.com/biotomatede/libgm/binio"
)

// formMagic is the 4-byte container magic, "FORM" in file byte order (not
// reversed even in big-endian DataFiles - only chunk names reverse).
var formMagic = [4]byte{'F', 'O', 'R', 'M'}

// knownChunkNames is the fixed-cardinality (~35) chunk vocabulary this
// codec understands (spec §4.2, §6.1). Anything else is an opaque chunk:
// preserved verbatim, round-tripped unchanged.
var knownChunkNames = map[string]bool{
	"GEN8": true, "OPTN": true, "EXTN": true, "SOND": true, "AGRP": true,
	"SPRT": true, "BGND": true, "PATH": true, "SCPT": true, "SHDR": true,
	"FONT": true, "TMLN": true, "OBJT": true, "ROOM": true, "TPAG": true,
	"CODE": true, "VARI": true, "FUNC": true, "STRG": true, "TXTR": true,
	"AUDO": true, "SEQN": true, "PSYS": true, "PSEM": true, "LANG": true,
	"GLOB": true, "GMEN": true, "UILR": true, "EMBI": true, "TGIN": true,
	"TAGS": true, "FEAT": true, "FEDS": true, "ACRV": true,
}

// chunkRange is the byte extent [Start, End) of one chunk's payload within
// the DataFile image.
type chunkRange struct {
	Start int
	End   int
}

func (c chunkRange) length() int { return c.End - c.Start }

// ChunkMap is the result of scanning a DataFile's FORM container: a mapping
// from 4-character chunk name to its payload byte range, plus the raw bytes
// of any unrecognized chunk (preserved opaquely).
type ChunkMap struct {
	ranges   map[string]chunkRange
	order    []string // discovery order, for opaque round-trip and diagnostics
	opaque   map[string][]byte
	padding  int // observed inter-chunk padding; 16, 4, or 1
	totalLen int // FORM payload length (the stored total-length-minus-8 field)
}

// ReadChunkMap reads the FORM header and walks (name[4], length[4], payload)
// triples, producing a ChunkMap. Duplicate chunk names fail with
// ErrIntegrity (spec §4.2).
func ReadChunkMap(r *binio.Reader, log *zap.SugaredLogger) (*ChunkMap, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	magic, err := r.ReadBytes(4)
	if err != nil {
		return nil, withContext(err, "FORM", -1, "magic")
	}
	if string(magic) != string(formMagic[:]) {
		return nil, newErr(ErrIntegrity, "bad container magic %q, want FORM", magic)
	}
	totalLen, err := r.ReadU32()
	if err != nil {
		return nil, withContext(err, "FORM", -1, "total length")
	}
	if totalLen > maxTotalLength {
		return nil, newErr(ErrIntegrity, "FORM total length %d exceeds runtime limit %d", totalLen, maxTotalLength)
	}

	cm := &ChunkMap{
		ranges:   make(map[string]chunkRange),
		opaque:   make(map[string][]byte),
		padding:  16,
		totalLen: int(totalLen),
	}

	end := r.Pos + int(totalLen)
	firstChunk := true
	for r.Pos < end && r.Len() > 0 {
		if !firstChunk {
			if err := cm.skipPadding(r); err != nil {
				return nil, err
			}
			if r.Pos >= end {
				break
			}
		}
		firstChunk = false

		nameBytes, err := r.ReadBytes(4)
		if err != nil {
			return nil, withContext(err, "FORM", -1, "chunk name")
		}
		name := chunkNameFromWire(nameBytes, r.Endian)

		length, err := r.ReadU32()
		if err != nil {
			return nil, withContext(err, name, -1, "chunk length")
		}
		start := r.Pos
		if _, err := r.ReadBytes(int(length)); err != nil {
			return nil, withContext(err, name, -1, "chunk payload")
		}

		if _, dup := cm.ranges[name]; dup {
			return nil, newErr(ErrIntegrity, "duplicate chunk %q", name)
		}
		cm.ranges[name] = chunkRange{Start: start, End: start + int(length)}
		cm.order = append(cm.order, name)
		if !knownChunkNames[name] {
			log.Infow("preserving unknown chunk verbatim", "chunk", name, "length", length)
			cm.opaque[name] = append([]byte(nil), r.Buf[start:start+int(length)]...)
		}
	}
	return cm, nil
}

// skipPadding advances past zero-byte inter-chunk padding, downgrading the
// observed alignment to 4 or 1 on the first nonzero byte it would otherwise
// have skipped (spec §6.1: "downgraded to 4 or 1 on first nonzero observed
// padding byte").
func (cm *ChunkMap) skipPadding(r *binio.Reader) error {
	for _, candidate := range []int{16, 4, 1} {
		if candidate > cm.padding {
			continue
		}
		target := (r.Pos + candidate - 1) / candidate * candidate
		if target == r.Pos {
			return nil
		}
		break
	}
	for r.Pos%cm.padding != 0 {
		if r.Len() == 0 {
			break
		}
		b := r.Buf[r.Pos]
		if b != 0 {
			// Downgrade alignment assumption and stop padding here.
			if cm.padding == 16 {
				cm.padding = 4
			} else if cm.padding == 4 {
				cm.padding = 1
			}
			if r.Pos%cm.padding == 0 {
				return nil
			}
			continue
		}
		r.Pos++
	}
	return nil
}

// chunkNameFromWire decodes a 4-byte chunk name, reversing it for
// big-endian DataFiles (spec §4.2).
func chunkNameFromWire(b []byte, endian binio.Endianness) string {
	if endian == binio.BigEndian {
		return string([]byte{b[3], b[2], b[1], b[0]})
	}
	return string(b)
}

// chunkNameToWire is the dual of chunkNameFromWire, used while writing.
func chunkNameToWire(name string, endian binio.Endianness) []byte {
	b := []byte(name)
	if endian == binio.BigEndian {
		return []byte{b[3], b[2], b[1], b[0]}
	}
	return b
}

// Contains reports whether the named chunk was present in the DataFile.
func (cm *ChunkMap) Contains(name string) bool {
	_, ok := cm.ranges[name]
	return ok
}

// Range returns the [start, end) byte range of the named chunk.
func (cm *ChunkMap) Range(name string) (chunkRange, bool) {
	r, ok := cm.ranges[name]
	return r, ok
}

// Padding returns the observed inter-chunk alignment (16, 4, or 1).
func (cm *ChunkMap) Padding() int { return cm.padding }

// RawBytes returns the verbatim payload of a known chunk this codec does
// not (yet) decode into a structured element family, so it can still be
// carried through Decode/Encode unchanged (spec §8 property: "chunks this
// codec does not model round-trip byte-identical").
func (cm *ChunkMap) RawBytes(r *binio.Reader, name string) ([]byte, bool) {
	rng, ok := cm.ranges[name]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), r.Buf[rng.Start:rng.End]...), true
}

// OpaqueChunks returns the preserved bytes of every unrecognized chunk,
// sorted by name, for unchanged write-back.
func (cm *ChunkMap) OpaqueChunks() []OpaqueChunk {
	names := make([]string, 0, len(cm.opaque))
	for n := range cm.opaque {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]OpaqueChunk, 0, len(names))
	for _, n := range names {
		out = append(out, OpaqueChunk{Name: n, Data: cm.opaque[n]})
	}
	return out
}

// OpaqueChunk is an unrecognized chunk's name and verbatim payload.
type OpaqueChunk struct {
	Name string
	Data []byte
}
