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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareVersions(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"1.0", "2.0", -1},
		{"2.0", "1.0", 1},
		{"1.2.3", "1.2.3", 0},
		{"1.9", "1.10", -1},   // numeric, not lexicographic
		{"1.2", "1.2.1", -1},  // prefix sorts first
		{"1.0a", "1.0b", -1},  // non-numeric segments compare lexicographically
		{"2024-01", "2024-02", -1},
		{"unknown", "unknown", 0},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, CompareVersions(c.a, c.b), "%s vs %s", c.a, c.b)
	}
}

func storePathFor(name, version string) string {
	return "/nix/store/abcdefghijklmnopqrstuvwxyz012345-" + name + "-" + version
}

func TestDiffManifests_Classification(t *testing.T) {
	old := NewManifest()
	old.Elements["hello"] = Element{StorePaths: []string{storePathFor("hello", "1.0")}, Active: true, Priority: 5}
	old.Elements["jq"] = Element{StorePaths: []string{storePathFor("jq", "1.7")}, Active: true, Priority: 5}
	old.Elements["ripgrep"] = Element{StorePaths: []string{storePathFor("ripgrep", "14.1")}, Active: true, Priority: 5}

	new := NewManifest()
	new.Elements["hello"] = Element{StorePaths: []string{storePathFor("hello", "2.0")}, Active: true, Priority: 5}
	new.Elements["ripgrep"] = Element{StorePaths: []string{storePathFor("ripgrep", "13.0")}, Active: true, Priority: 5}
	new.Elements["fd"] = Element{StorePaths: []string{storePathFor("fd", "9.0")}, Active: true, Priority: 5}

	changes := DiffManifests(old, new)
	require.Len(t, changes, 4)

	byName := map[string]PackageChange{}
	for _, c := range changes {
		byName[c.Name] = c
	}
	assert.Equal(t, ChangeUpgraded, byName["hello"].Kind)
	assert.Equal(t, ChangeRemoved, byName["jq"].Kind)
	assert.Equal(t, ChangeDowngraded, byName["ripgrep"].Kind)
	assert.Equal(t, ChangeAdded, byName["fd"].Kind)
}

func TestDiffManifests_RebuiltOnStorePathChange(t *testing.T) {
	old := NewManifest()
	old.Elements["hello"] = Element{StorePaths: []string{"/nix/store/abcdefghijklmnopqrstuvwxyz012345-hello-1.0"}, Active: true, Priority: 5}

	new := NewManifest()
	new.Elements["hello"] = Element{StorePaths: []string{"/nix/store/zyxwvutsrqponmlkjihgfedcba543210-hello-1.0"}, Active: true, Priority: 5}

	changes := DiffManifests(old, new)
	require.Len(t, changes, 1)
	assert.Equal(t, ChangeRebuilt, changes[0].Kind)
	assert.Equal(t, "1.0", changes[0].Old)
	assert.Equal(t, "1.0", changes[0].New)
}

func TestDiffManifests_InactiveElementsIgnored(t *testing.T) {
	old := NewManifest()
	new := NewManifest()
	new.Elements["hello"] = Element{StorePaths: []string{storePathFor("hello", "1.0")}, Active: false, Priority: 5}

	assert.Empty(t, DiffManifests(old, new))
}
