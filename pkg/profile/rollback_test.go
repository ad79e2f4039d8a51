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
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedGeneration creates a fake "store path" directory with a
// manifest.json and wires it up as profile-<n>-link under e's
// ProfileDir, without touching ProfileLink.
func seedGeneration(t *testing.T, e *Engine, n int, m *Manifest) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(e.Home.ProfileDir, 0o755))

	storeDir := t.TempDir()
	data, err := json.Marshal(m)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(storeDir, "manifest.json"), data, 0o644))

	link := filepath.Join(e.Home.ProfileDir, generationLinkName(n))
	require.NoError(t, os.Symlink(storeDir, link))
	return storeDir
}

func pointCurrentAt(t *testing.T, e *Engine, storeDir string) {
	t.Helper()
	_ = os.Remove(e.Home.ProfileLink)
	require.NoError(t, os.Symlink(storeDir, e.Home.ProfileLink))
}

func TestRollback_SwitchesToPreviousGeneration(t *testing.T) {
	e := newTestEngine(t)

	m1 := NewManifest()
	m1.Elements["hello"] = Element{StorePaths: []string{"/nix/store/a-hello-1.0"}, Active: true, Priority: 5}
	gen1 := seedGeneration(t, e, 1, m1)

	m2 := NewManifest()
	m2.Elements["hello"] = Element{StorePaths: []string{"/nix/store/b-hello-2.0"}, Active: true, Priority: 5}
	seedGeneration(t, e, 2, m2)

	// Point current at generation 2's store dir, as a real install
	// would have done via SwitchProfile.
	gen2Target, err := os.Readlink(filepath.Join(e.Home.ProfileDir, generationLinkName(2)))
	require.NoError(t, err)
	pointCurrentAt(t, e, gen2Target)

	n, err := e.Rollback()
	require.NoError(t, err)
	assert.Equal(t, 1, n, "rolls back to generation 1's store path")

	current, err := e.CurrentProfilePath()
	require.NoError(t, err)
	assert.Equal(t, gen1, current)
}

func TestRollback_NoPreviousGeneration(t *testing.T) {
	e := newTestEngine(t)
	m := NewManifest()
	gen1 := seedGeneration(t, e, 1, m)
	pointCurrentAt(t, e, gen1)

	_, err := e.Rollback()
	assert.Error(t, err)
}

func TestHistory_ReportsVersionChanges(t *testing.T) {
	e := newTestEngine(t)

	m1 := NewManifest()
	m1.Elements["hello"] = Element{StorePaths: []string{"/nix/store/abcdefghijklmnopqrstuvwxyz012345-hello-1.0"}, Active: true, Priority: 5}
	seedGeneration(t, e, 1, m1)

	m2 := NewManifest()
	m2.Elements["hello"] = Element{StorePaths: []string{"/nix/store/abcdefghijklmnopqrstuvwxyz012345-hello-2.0"}, Active: true, Priority: 5}
	m2.Elements["jq"] = Element{StorePaths: []string{"/nix/store/abcdefghijklmnopqrstuvwxyz012345-jq-1.7"}, Active: true, Priority: 5}
	seedGeneration(t, e, 2, m2)

	history, err := e.History()
	require.NoError(t, err)
	require.Len(t, history, 2)

	assert.Empty(t, history[0].Changes)
	require.Len(t, history[1].Changes, 2)

	byName := map[string]PackageChange{}
	for _, c := range history[1].Changes {
		byName[c.Name] = c
	}
	assert.Equal(t, "1.0", byName["hello"].Old)
	assert.Equal(t, "2.0", byName["hello"].New)
	assert.Equal(t, ChangeUpgraded, byName["hello"].Kind)
	assert.Equal(t, "", byName["jq"].Old)
	assert.Equal(t, "1.7", byName["jq"].New)
	assert.Equal(t, ChangeAdded, byName["jq"].Kind)
}

func TestWipeHistory_KeepsCurrentGeneration(t *testing.T) {
	e := newTestEngine(t)

	m := NewManifest()
	gen1 := seedGeneration(t, e, 1, m)
	seedGeneration(t, e, 2, m)
	pointCurrentAt(t, e, gen1)

	count, err := e.WipeHistory(0, false, false)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = os.Lstat(filepath.Join(e.Home.ProfileDir, generationLinkName(1)))
	assert.NoError(t, err, "current generation is kept")
	_, err = os.Lstat(filepath.Join(e.Home.ProfileDir, generationLinkName(2)))
	assert.True(t, os.IsNotExist(err), "non-current generation is removed")
}

func TestWipeHistory_DryRunDeletesNothing(t *testing.T) {
	e := newTestEngine(t)
	m := NewManifest()
	gen1 := seedGeneration(t, e, 1, m)
	seedGeneration(t, e, 2, m)
	pointCurrentAt(t, e, gen1)

	count, err := e.WipeHistory(0, false, true)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = os.Lstat(filepath.Join(e.Home.ProfileDir, generationLinkName(2)))
	assert.NoError(t, err, "dry run must not delete")
}

func TestWipeHistory_OlderThanFilter(t *testing.T) {
	e := newTestEngine(t)
	m := NewManifest()
	gen1 := seedGeneration(t, e, 1, m)
	pointCurrentAt(t, e, gen1)
	seedGeneration(t, e, 2, m)

	count, err := e.WipeHistory(24*time.Hour, true, false)
	require.NoError(t, err)
	assert.Equal(t, 0, count, "freshly created generation is not older than 24h")
}
