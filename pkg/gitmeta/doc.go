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

// Package gitmeta computes the git-derived fields a local flake's
// synthesized self input carries: full and short revision, a dirty
// marker based on tracked-file modifications only, a last-modified
// timestamp and formatted date, and whether the repository uses
// submodules.
//
// Results are memoized per canonical repository path for the lifetime
// of the process, since repeated evaluation of the same flake should
// not repeatedly shell out to git.
//
//	info, err := gitmeta.Inspect(ctx, flakeDir)
//	if err != nil {
//	    // not a git repository, or git is unavailable
//	}
//	if info.Dirty {
//	    useRev := info.DirtyRev
//	} else {
//	    useRev := info.Rev
//	}
package gitmeta
