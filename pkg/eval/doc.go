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

// Package eval is the evaluation engine: it synthesizes a single Nix
// expression for a local flake evaluation (never calling
// builtins.getFlake, so the flake directory is never copied into the
// store), shells out to the nix-instantiate/nix-store/nix binaries to
// evaluate and realise it, and exposes the small typed value interface
// the rest of trix is built on.
//
// # Local evaluation
//
//	v, err := evaluator.EvalLocalFlakeAttr(ctx, flakeDir, graph, []string{"packages", "x86_64-linux", "default"}, nil)
//
// constructs the let-block expression described by the no-copy strategy
// and navigates it one attribute at a time; each step checks that the
// attribute exists with its own nix-instantiate call, so a missing one
// yields AttrNotFound.
//
// # Remote evaluation
//
//	v, err := evaluator.EvalRemoteFlakeRef(ctx, "github:NixOS/nixpkgs", []string{"hello"})
//
// # Building
//
//	path, err := evaluator.BuildValue(ctx, v)
//	outputs, err := evaluator.BuildValueOutputs(ctx, v)
package eval
