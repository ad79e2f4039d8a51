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
	"path/filepath"
	"strings"
)

// storeHashLen is the fixed length of a Nix store path's base32 hash
// component, e.g. the "abcdefghijklmnopqrstuvwxyz012345" in
// "/nix/store/abcdefghijklmnopqrstuvwxyz012345-hello-2.12".
const storeHashLen = 32

// ParseStorePath splits a store path's basename into (name, version),
// stripping the leading hash. Returns ok=false if the basename is too
// short to contain a hash prefix.
func ParseStorePath(path string) (name, version string, ok bool) {
	basename := filepath.Base(path)
	if len(basename) <= storeHashLen+1 || basename[storeHashLen] != '-' {
		return "", "", false
	}
	nameVersion := basename[storeHashLen+1:]

	idx := strings.LastIndex(nameVersion, "-")
	if idx < 0 {
		return nameVersion, "", true
	}
	afterDash := nameVersion[idx+1:]
	if len(afterDash) > 0 && afterDash[0] >= '0' && afterDash[0] <= '9' {
		return nameVersion[:idx], afterDash, true
	}
	return nameVersion, "", true
}

// ExtractVersion returns just the version component of a store path's
// basename, or the path itself if it has no recognisable hash prefix.
func ExtractVersion(path string) string {
	if _, version, ok := ParseStorePath(path); ok {
		return version
	}
	return path
}

// PackageVersion pairs a store path with the version extracted from it,
// keyed by package name (the result of grouping a closure).
type PackageVersion struct {
	Version   string
	StorePath string
}

// GroupByPackage maps each closure member's package name to its version
// and store path, for diffing two generations' closures.
func GroupByPackage(closure []string) map[string]PackageVersion {
	out := make(map[string]PackageVersion, len(closure))
	for _, path := range closure {
		name, version, ok := ParseStorePath(path)
		if !ok {
			continue
		}
		out[name] = PackageVersion{Version: version, StorePath: path}
	}
	return out
}

// FormatSize renders a byte count in the largest whole unit that keeps
// it readable (the profile-diff display).
func FormatSize(size uint64) string {
	const unit = 1024
	switch {
	case size < unit:
		return fmt.Sprintf("%d B", size)
	case size < unit*unit:
		return fmt.Sprintf("%.1f KiB", float64(size)/unit)
	case size < unit*unit*unit:
		return fmt.Sprintf("%.1f MiB", float64(size)/(unit*unit))
	default:
		return fmt.Sprintf("%.1f GiB", float64(size)/(unit*unit*unit))
	}
}

// FormatSizeDiff renders a signed size delta, colored red when it grows
// the closure and plain when it shrinks or stays flat.
func FormatSizeDiff(diff int64) string {
	switch {
	case diff > 0:
		return fmt.Sprintf("\x1b[31;1m+%s\x1b[0m", FormatSize(uint64(diff)))
	case diff < 0:
		return fmt.Sprintf("-%s", FormatSize(uint64(-diff)))
	default:
		return "0 B"
	}
}
