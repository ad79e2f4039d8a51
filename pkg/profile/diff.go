// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package profile

import (
	"context"
	"encoding/json"
	"os/exec"
	"sort"
	"strings"

	"github.com/trixcli/trix/internal/errors"
	"github.com/trixcli/trix/internal/procenv"
)

// ClosureDiff is one package's presence/version/size change between two
// consecutive generations' store closures.
type ClosureDiff struct {
	Name       string
	OldVersion string
	NewVersion string
	SizeDelta  int64 // bytes; meaningless (0) if either side's size lookup failed
}

// GenerationClosureDiff is the full set of per-package changes between
// one pair of consecutive generations.
type GenerationClosureDiff struct {
	FromGeneration int
	ToGeneration   int
	Changes        []ClosureDiff
}

// ignoredClosureNames are closure members that are artifacts of the
// profile mechanism itself, not an installed package, and so are never
// interesting in a diff.
var ignoredClosureNames = map[string]bool{
	"profile":          true,
	"user-environment": true,
}

// DiffClosures compares every pair of consecutive generations' full
// store closures (not just their top-level manifest entries), surfacing
// transitive dependency changes a manifest-only diff would miss, for
// `trix profile diff`.
func (e *Engine) DiffClosures(ctx context.Context) ([]GenerationClosureDiff, error) {
	generations, err := e.listGenerations()
	if err != nil {
		return nil, err
	}
	if len(generations) < 2 {
		return nil, nil
	}

	var out []GenerationClosureDiff
	for i := 1; i < len(generations); i++ {
		prev, curr := generations[i-1], generations[i]

		prevClosure, err := e.closure(ctx, prev.target)
		if err != nil {
			return nil, err
		}
		currClosure, err := e.closure(ctx, curr.target)
		if err != nil {
			return nil, err
		}

		prevPkgs := GroupByPackage(prevClosure)
		currPkgs := GroupByPackage(currClosure)

		names := map[string]bool{}
		for n := range prevPkgs {
			names[n] = true
		}
		for n := range currPkgs {
			names[n] = true
		}

		sorted := make([]string, 0, len(names))
		for n := range names {
			if !ignoredClosureNames[n] {
				sorted = append(sorted, n)
			}
		}
		sort.Strings(sorted)

		var changes []ClosureDiff
		for _, name := range sorted {
			oldPkg, hadOld := prevPkgs[name]
			newPkg, hasNew := currPkgs[name]

			switch {
			case hadOld && hasNew:
				if oldPkg.StorePath == newPkg.StorePath {
					continue
				}
				oldSize, _ := e.storePathSize(ctx, oldPkg.StorePath)
				newSize, _ := e.storePathSize(ctx, newPkg.StorePath)
				changes = append(changes, ClosureDiff{
					Name: name, OldVersion: oldPkg.Version, NewVersion: newPkg.Version,
					SizeDelta: int64(newSize) - int64(oldSize),
				})
			case !hadOld && hasNew:
				size, _ := e.storePathSize(ctx, newPkg.StorePath)
				changes = append(changes, ClosureDiff{Name: name, NewVersion: newPkg.Version, SizeDelta: int64(size)})
			case hadOld && !hasNew:
				size, _ := e.storePathSize(ctx, oldPkg.StorePath)
				changes = append(changes, ClosureDiff{Name: name, OldVersion: oldPkg.Version, SizeDelta: -int64(size)})
			}
		}

		if len(changes) > 0 {
			out = append(out, GenerationClosureDiff{FromGeneration: prev.number, ToGeneration: curr.number, Changes: changes})
		}
	}
	return out, nil
}

func (e *Engine) closure(ctx context.Context, storePath string) ([]string, error) {
	cmd := exec.CommandContext(ctx, e.nixStore(), "--query", "--requisites", storePath)
	cmd.Env = procenv.Environ()
	out, err := cmd.Output()
	if err != nil {
		return nil, errors.NewProfileError(errors.ProfileManifest, "nix-store --query --requisites failed: "+exitStderr(err), err)
	}
	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return nil, nil
	}
	return lines, nil
}

// pathInfoEntry is the subset of `nix path-info --json`'s output this
// package consumes.
type pathInfoEntry struct {
	NarSize uint64 `json:"narSize"`
}

func (e *Engine) storePathSize(ctx context.Context, storePath string) (uint64, error) {
	cmd := exec.CommandContext(ctx, e.nix(), "path-info", "--json", storePath)
	cmd.Env = procenv.Environ()
	out, err := cmd.Output()
	if err != nil {
		return 0, err
	}
	var entries []pathInfoEntry
	if err := json.Unmarshal(out, &entries); err != nil || len(entries) == 0 {
		return 0, err
	}
	return entries[0].NarSize, nil
}
