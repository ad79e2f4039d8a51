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

// Package bootstrap resolves and creates trix's per-user state directories:
// the config directory holding the user registry file, and the profile
// directory holding generation symlinks and manifests.
//
// # Initialization workflow
//
//	home, err := bootstrap.InitHome(bootstrap.HomeConfig{}, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("user registry at:", home.RegistryFile)
//	fmt.Println("profile generations at:", home.ProfileDir)
//
// Later, a read-only command that must not create missing state uses
// OpenHome instead, which fails if ConfigDir does not already exist.
//
// # Idempotency
//
// InitHome is idempotent: calling it repeatedly on an already-initialized
// home is safe and never corrupts an existing registry.json or profile
// generation.
//
// # Configuration
//
// HomeConfig fields are all optional; zero values are resolved from the
// environment:
//
//   - ConfigDir defaults to $XDG_CONFIG_HOME/trix, falling back to
//     $HOME/.config/trix.
//   - ProfileDir defaults to $XDG_STATE_HOME/trix/profiles/default,
//     falling back to $HOME/.local/state/trix/profiles/default.
//   - ProfileLink defaults to $HOME/.nix-profile, matching the native
//     tool's default so an existing PATH setup keeps working unchanged.
package bootstrap
