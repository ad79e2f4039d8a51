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
	"path/filepath"
	"sort"

	"github.com/trixcli/trix/internal/errors"
)

// generationEntry is one "profile-N-link" symlink discovered under
// ProfileDir, paired with the store path it points at.
type generationEntry struct {
	number int
	link   string
	target string
}

func (e *Engine) listGenerations() ([]generationEntry, error) {
	entries, err := os.ReadDir(e.Home.ProfileDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewProfileError(errors.ProfileManifest, "list profile directory", err)
	}

	var out []generationEntry
	for _, entry := range entries {
		n, ok := ParseGenerationNumber(entry.Name())
		if !ok {
			continue
		}
		link := filepath.Join(e.Home.ProfileDir, entry.Name())
		target, err := os.Readlink(link)
		if err != nil {
			continue
		}
		out = append(out, generationEntry{number: n, link: link, target: target})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].number < out[j].number })
	return out, nil
}

// Rollback switches to the generation immediately preceding the current
// one, by generation number, and returns that generation's number. It
// fails with ProfileNoProfile-shaped guidance if there is no earlier
// generation to roll back to.
func (e *Engine) Rollback() (int, error) {
	current, err := e.CurrentProfilePath()
	if err != nil {
		return 0, err
	}

	generations, err := e.listGenerations()
	if err != nil {
		return 0, err
	}

	currentIdx := -1
	for i, g := range generations {
		if g.target == current {
			currentIdx = i
		}
	}
	if currentIdx == -1 {
		return 0, errors.NewProfileError(errors.ProfileManifest, "current generation not found among profile links", nil)
	}

	var prev *generationEntry
	for i := currentIdx - 1; i >= 0; i-- {
		if generations[i].number < generations[currentIdx].number {
			prev = &generations[i]
			break
		}
	}
	if prev == nil {
		return 0, errors.NewProfileError(errors.ProfileNoProfile, "no previous generation to roll back to", nil)
	}

	if err := e.SwitchProfile(prev.target); err != nil {
		return 0, err
	}
	return prev.number, nil
}
