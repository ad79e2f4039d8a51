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
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/trixcli/trix/internal/errors"
)

// WipeHistory deletes every non-current generation symlink, optionally
// restricted to ones older than olderThan. With dryRun, nothing is
// deleted; the count returned is still how many would be. Returns 0
// without error if no profile has ever been installed.
func (e *Engine) WipeHistory(olderThan time.Duration, hasOlderThan, dryRun bool) (int, error) {
	current, err := e.CurrentProfilePath()
	if err != nil {
		if te, ok := err.(*errors.TrixError); ok && te.Kind == "ProfileError."+string(errors.ProfileNoProfile) {
			current = ""
		} else {
			return 0, err
		}
	}

	generations, err := e.listGenerations()
	if err != nil {
		return 0, err
	}
	if len(generations) == 0 {
		return 0, nil
	}

	now := time.Now()
	var toDelete []generationEntry
	for _, g := range generations {
		if current != "" && g.target == current {
			continue
		}
		if hasOlderThan {
			info, statErr := os.Lstat(g.link)
			if statErr != nil {
				continue
			}
			if now.Sub(info.ModTime()) < olderThan {
				continue
			}
		}
		toDelete = append(toDelete, g)
	}

	for _, g := range toDelete {
		if dryRun {
			continue
		}
		if err := os.Remove(g.link); err != nil {
			return 0, errors.NewProfileError(errors.ProfileManifest, "remove generation "+strconv.Itoa(g.number), err)
		}
	}
	return len(toDelete), nil
}

// ParseOlderThan parses a "30d"-shaped duration suffix (s/m/h/d/w), the
// grammar of `trix profile wipe-history --older-than`.
func ParseOlderThan(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("empty --older-than value")
	}
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, fmt.Errorf("invalid number in --older-than: %s", s)
	}
	n, err := strconv.ParseInt(s[:i], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number in --older-than: %w", err)
	}

	unit := "d"
	if i < len(s) {
		unit = s[i:]
	}
	var seconds int64
	switch unit {
	case "s":
		seconds = n
	case "m":
		seconds = n * 60
	case "h":
		seconds = n * 3600
	case "d":
		seconds = n * 86400
	case "w":
		seconds = n * 604800
	default:
		return 0, fmt.Errorf("invalid unit in --older-than: %s (expected s, m, h, d, w)", unit)
	}
	return time.Duration(seconds) * time.Second, nil
}
