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

import "fmt"

// Branch identifies which runtime branch a Version belongs to (spec §6.2,
// GLOSSARY "LTS branch"). It participates in version ordering only through
// the post-LTS gating flag, never in the numeric comparison itself.
type Branch uint8

const (
	// PreLTS is the mainline branch below the LTS fork point.
	PreLTS Branch = iota
	// LTS is the long-term-support branch.
	LTS
	// PostLTS is the mainline branch above the LTS fork point.
	PostLTS
)

func (b Branch) String() string {
	switch b {
	case PreLTS:
		return "pre-LTS"
	case LTS:
		return "LTS"
	case PostLTS:
		return "post-LTS"
	default:
		return "unknown-branch"
	}
}

// Version is (major, minor, release, build, branch) (spec §6.2). The stored
// version field in a DataFile is frozen at 2.0.0.0 for all modern runtimes;
// VersionDetector infers the real value.
type Version struct {
	Major   int32
	Minor   int32
	Release int32
	Build   int32
	Branch  Branch
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d (%s)", v.Major, v.Minor, v.Release, v.Build, v.Branch)
}

// tuple returns the numeric (major, minor, release, build) for lexicographic
// comparison, ignoring Branch.
func (v Version) tuple() [4]int32 {
	return [4]int32{v.Major, v.Minor, v.Release, v.Build}
}

// Compare returns -1, 0, or +1 comparing v to o lexicographically by
// (major, minor, release, build). Branch is not compared here.
func (v Version) Compare(o Version) int {
	a, b := v.tuple(), o.tuple()
	for i := 0; i < 4; i++ {
		if a[i] < b[i] {
			return -1
		}
		if a[i] > b[i] {
			return 1
		}
	}
	return 0
}

// Requirement is a minimum Version plus an optional "must not be pre-LTS at
// this numeric level" gate (spec §6.2: "non-LTS" requirements fail against
// the pre-LTS branch at the same numeric level).
type Requirement struct {
	Version  Version
	NonLTS   bool
}

// Req builds a plain numeric Requirement (branch-agnostic).
func Req(major, minor int32, releaseBuild ...int32) Requirement {
	v := Version{Major: major, Minor: minor}
	if len(releaseBuild) > 0 {
		v.Release = releaseBuild[0]
	}
	if len(releaseBuild) > 1 {
		v.Build = releaseBuild[1]
	}
	return Requirement{Version: v}
}

// ReqBranch builds a Requirement pinned to a specific branch, used for the
// chunk-existence upgrades in VersionDetector (spec §4.5 step 1).
func ReqBranch(major, minor, release, build int32, branch Branch) Requirement {
	return Requirement{Version: Version{Major: major, Minor: minor, Release: release, Build: build, Branch: branch}}
}

// IsAtLeast reports whether v satisfies req: v's numeric tuple must be >=
// req's, and if req.NonLTS is set, v must not be on the pre-LTS branch when
// the numeric tuples are equal.
func (v Version) IsAtLeast(req Requirement) bool {
	c := v.Compare(req.Version)
	if c < 0 {
		return false
	}
	if c == 0 && req.NonLTS && v.Branch == PreLTS {
		return false
	}
	return true
}

// Upgrade raises v in place to req.Version if req is strictly higher than v,
// per the "never lowers" monotonicity rule (spec §4.5, §8 property 4). The
// branch is taken from req.Version whenever the numeric tuple actually
// advances, or when v and req are numerically equal but v has not yet been
// assigned a branch more specific than PreLTS.
func (v *Version) Upgrade(req Requirement) {
	c := v.Compare(req.Version)
	if c < 0 {
		*v = req.Version
		return
	}
	if c == 0 && v.Branch == PreLTS && req.Version.Branch != PreLTS {
		v.Branch = req.Version.Branch
	}
}

// PromoteLTSBranch applies the §4.5 step-4 rule: at >= 2023.1 with the
// branch still marked pre-LTS, promote it to LTS.
func (v *Version) PromoteLTSBranch() {
	if v.Branch == PreLTS && v.IsAtLeast(Req(2023, 1)) {
		v.Branch = LTS
	}
}
