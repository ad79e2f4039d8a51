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

// Package lock reads and writes flake.lock documents (version 7), and
// provides the graph operations that make the lock store: topological
// ordering, follows resolution, transitive input merging on refresh, and
// cycle detection.
//
// # Reading and writing
//
//	graph, err := lock.Read("flake.lock")   // missing file -> empty root-only graph
//	err = graph.Write("flake.lock")          // atomic: temp file + rename
//
// # Resolving follows
//
//	target, err := graph.ResolveFollows([]string{"nixpkgs"})
//
// An empty path resolves to the distinguished Self sentinel, matching the
// native tool's convention that an empty follows path means "follows the
// root flake itself".
//
// # Refreshing an input
//
//	err := graph.RefreshInput(ctx, "nixpkgs", declaredRef, fetcher)
//
// fetches the concrete source, merges in its own transitive lock graph
// (renaming on name collision), and rewrites cross-references in the
// cloned nodes to the new local names.
package lock
