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

// Package reference parses and formats the installable string grammar: an
// optional scheme prefix, a reference body, and a '#'-separated dotted
// attribute path.
//
// # Grammar
//
//	[scheme:]body[#attr.path]
//
// Recognised schemes are github:, gitlab:, sourcehut:, git+, path:, flake:,
// tarball+, and file:. A bare http(s) URL is classified as a tarball when
// it ends in a known archive suffix, otherwise it is treated as an
// implicit git+ URL. Strings beginning with ".", "/", "./", "../", or "~"
// are local paths.
//
//	ins, err := reference.Parse(".#default")
//	ins, err := reference.Parse("github:NixOS/nixpkgs/nixos-unstable#hello")
//
// Parse performs no I/O: it never touches the filesystem or network, and
// never consults a registry. A bare identifier like "nixpkgs" parses to an
// Indirect reference; resolving it to a concrete source is the registry
// resolver's job.
package reference
