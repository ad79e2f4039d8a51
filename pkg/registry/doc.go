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

// Package registry resolves bare identifiers like "nixpkgs" against the
// layered user, system, and global flake registries, and manages the
// user registry's add/remove/pin entries.
//
// # Resolution order
//
//	ref, err := resolver.ResolveBare("nixpkgs", true)
//
// tries the user registry, then the system registry, then (if useGlobal)
// fetches the global registry over HTTP, caching the result in-process
// for one hour. ref is nil with no error when nothing matches.
//
// # Writing the user registry
//
// Add, Remove, and Pin all load the current user registry, mutate the
// in-memory list, and write it back atomically (temp file in the same
// directory, then rename).
package registry
