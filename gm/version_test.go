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

	"github.com/stretchr/testify/assert"
)

func TestVersionIsAtLeast(t *testing.T) {
	cases := []struct {
		name string
		v    Version
		req  Requirement
		want bool
	}{
		{"equal numeric", Version{Major: 2, Minor: 3}, Req(2, 3), true},
		{"strictly higher", Version{Major: 2023, Minor: 8}, Req(2, 3), true},
		{"strictly lower", Version{Major: 2, Minor: 0}, Req(2, 3), false},
		{"nonLTS equal tuple but preLTS branch fails", Version{Major: 2023, Minor: 1, Branch: PreLTS}, Requirement{Version: Version{Major: 2023, Minor: 1}, NonLTS: true}, false},
		{"nonLTS equal tuple LTS branch passes", Version{Major: 2023, Minor: 1, Branch: LTS}, Requirement{Version: Version{Major: 2023, Minor: 1}, NonLTS: true}, true},
		{"nonLTS strictly higher ignores branch", Version{Major: 2023, Minor: 2, Branch: PreLTS}, Requirement{Version: Version{Major: 2023, Minor: 1}, NonLTS: true}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, c.v.IsAtLeast(c.req))
		})
	}
}

func TestVersionUpgradeNeverLowers(t *testing.T) {
	v := Version{Major: 2023, Minor: 8}
	v.Upgrade(Req(2, 3))
	assert.Equal(t, Version{Major: 2023, Minor: 8}, v, "upgrading to a lower requirement must not lower the version")

	v.Upgrade(Req(2024, 1))
	assert.Equal(t, Version{Major: 2024, Minor: 1}, v, "upgrading to a strictly higher requirement must raise the version")
}

func TestVersionUpgradeAssignsBranchOnTie(t *testing.T) {
	v := Version{Major: 2023, Minor: 1, Branch: PreLTS}
	v.Upgrade(ReqBranch(2023, 1, 0, 0, LTS))
	assert.Equal(t, LTS, v.Branch, "a numerically-tied upgrade should still promote an unset PreLTS branch")
}

func TestVersionPromoteLTSBranch(t *testing.T) {
	cases := []struct {
		name   string
		v      Version
		want   Branch
	}{
		{"below 2023.1 stays pre-LTS", Version{Major: 2022, Minor: 9, Branch: PreLTS}, PreLTS},
		{"at 2023.1 promotes", Version{Major: 2023, Minor: 1, Branch: PreLTS}, LTS},
		{"above 2023.1 promotes", Version{Major: 2023, Minor: 6, Branch: PreLTS}, LTS},
		{"already post-LTS is untouched", Version{Major: 2024, Minor: 1, Branch: PostLTS}, PostLTS},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			v := c.v
			v.PromoteLTSBranch()
			assert.Equal(t, c.want, v.Branch)
		})
	}
}

func TestVersionCompare(t *testing.T) {
	a := Version{Major: 2, Minor: 3, Release: 1, Build: 0}
	b := Version{Major: 2, Minor: 3, Release: 2, Build: 0}
	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, b.Compare(a))
	assert.Equal(t, 0, a.Compare(a))
}
