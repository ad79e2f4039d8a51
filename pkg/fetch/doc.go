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

// Package fetch prefetches flake inputs: it resolves a declared
// reference to a concrete source, shells out to `nix flake prefetch
// --json` to pin a content hash for remote kinds, and reads back the
// fetched tree's own flake.lock (if any) so pkg/lock can merge it
// transitively.
//
// Client implements pkg/lock.Fetcher:
//
//	client := fetch.NewClient(resolver, nil)
//	result, err := client.Fetch(ctx, declaredRef)
//	graph.RefreshInput(ctx, "nixpkgs", declaredRef, client)
package fetch
