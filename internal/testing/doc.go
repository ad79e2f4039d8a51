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

// Package testing provides shared fixtures for trix's integration tests:
// scratch git repositories with controllable dirty/clean state, fake
// registry files, and temporary lock/profile directories.
//
// # Quick start
//
//	func TestMyFeature(t *testing.T) {
//	    repo := testing.InitGitFixture(t)
//	    testing.WriteFlakeNix(t, repo.Dir, `{ outputs = { self }: { }; }`)
//	    repo.Commit(t, "initial")
//	    // repo.Dir is a clean git repository; repo.HeadRev() is available.
//	}
//
// Every helper calls t.Helper() and registers t.Cleanup for any resource it
// allocates.
package testing
