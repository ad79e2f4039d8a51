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
	"os"
	"sort"
	"strconv"
	"strings"
)

// GenerationSummary is one entry of `trix profile history`: a
// generation number, the time it was created, whether it is the
// currently active one, and the package-version changes relative to
// the generation immediately before it.
type GenerationSummary struct {
	Number    int
	CreatedAt int64 // Unix seconds, from the generation symlink's own mtime
	Current   bool
	Changes   []PackageChange
}

// ChangeKind classifies one package's transition between two
// generations.
type ChangeKind string

const (
	ChangeAdded      ChangeKind = "added"
	ChangeRemoved    ChangeKind = "removed"
	ChangeUpgraded   ChangeKind = "upgraded"
	ChangeDowngraded ChangeKind = "downgraded"
	// ChangeRebuilt is a package whose version is unchanged but whose
	// store path differs (rebuilt against newer inputs).
	ChangeRebuilt ChangeKind = "rebuilt"
)

// PackageChange describes one package's transition between two
// consecutive generations. Old or New is empty when the package was
// added or removed, respectively.
type PackageChange struct {
	Name string
	Kind ChangeKind
	Old  string
	New  string
}

// History returns every generation in ascending order, each annotated
// with the package-level diff since its predecessor. The first
// generation listed has no predecessor and so carries no changes.
func (e *Engine) History() ([]GenerationSummary, error) {
	generations, err := e.listGenerations()
	if err != nil {
		return nil, err
	}
	if len(generations) == 0 {
		return nil, nil
	}

	current, err := e.CurrentProfilePath()
	if err != nil {
		current = ""
	}

	out := make([]GenerationSummary, 0, len(generations))
	var prev *Manifest

	for _, g := range generations {
		info, statErr := os.Lstat(g.link)
		var mtime int64
		if statErr == nil {
			mtime = info.ModTime().Unix()
		}

		m, readErr := readManifestAt(g.target)
		if readErr != nil {
			m = NewManifest()
		}

		summary := GenerationSummary{
			Number:    g.number,
			CreatedAt: mtime,
			Current:   current != "" && g.target == current,
		}
		if prev != nil {
			summary.Changes = DiffManifests(prev, m)
		}
		out = append(out, summary)
		prev = m
	}
	return out, nil
}

// packageState is one active element's version and primary store path,
// the two facts the diff classifier needs.
type packageState struct {
	version   string
	storePath string
}

func activeStates(m *Manifest) map[string]packageState {
	states := make(map[string]packageState, len(m.Elements))
	for name, elem := range m.Elements {
		if !elem.Active {
			continue
		}
		s := packageState{version: "unknown"}
		if len(elem.StorePaths) > 0 {
			s.storePath = elem.StorePaths[0]
			s.version = ExtractVersion(s.storePath)
		}
		states[name] = s
	}
	return states
}

// DiffManifests classifies each package present in either manifest as
// added, removed, upgraded, downgraded, or rebuilt (same version,
// different store path). Packages identical on both sides are omitted.
func DiffManifests(old, new *Manifest) []PackageChange {
	oldStates := activeStates(old)
	newStates := activeStates(new)

	names := make(map[string]bool, len(oldStates)+len(newStates))
	for n := range oldStates {
		names[n] = true
	}
	for n := range newStates {
		names[n] = true
	}

	sorted := make([]string, 0, len(names))
	for n := range names {
		sorted = append(sorted, n)
	}
	sort.Strings(sorted)

	var changes []PackageChange
	for _, name := range sorted {
		o, hadOld := oldStates[name]
		n, hasNew := newStates[name]
		switch {
		case !hadOld:
			changes = append(changes, PackageChange{Name: name, Kind: ChangeAdded, New: n.version})
		case !hasNew:
			changes = append(changes, PackageChange{Name: name, Kind: ChangeRemoved, Old: o.version})
		case o.version != n.version:
			kind := ChangeUpgraded
			if CompareVersions(o.version, n.version) > 0 {
				kind = ChangeDowngraded
			}
			changes = append(changes, PackageChange{Name: name, Kind: kind, Old: o.version, New: n.version})
		case o.storePath != n.storePath:
			changes = append(changes, PackageChange{Name: name, Kind: ChangeRebuilt, Old: o.version, New: n.version})
		}
	}
	return changes
}

// CompareVersions orders two version strings segment-wise on "."
// boundaries: each segment pair compares numerically when both sides
// parse as integers, lexicographically otherwise. A version that is a
// strict prefix of the other sorts first.
func CompareVersions(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		ai, aerr := strconv.Atoi(as[i])
		bi, berr := strconv.Atoi(bs[i])
		if aerr == nil && berr == nil {
			if ai != bi {
				if ai < bi {
					return -1
				}
				return 1
			}
			continue
		}
		if c := strings.Compare(as[i], bs[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(as) < len(bs):
		return -1
	case len(as) > len(bs):
		return 1
	default:
		return 0
	}
}
