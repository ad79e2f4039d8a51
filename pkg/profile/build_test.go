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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mkStorePath creates a fake store path directory containing the named
// top-level entries (each a file unless content starts with "dir:").
func mkStorePath(t *testing.T, root, name string, entries map[string]string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for entryName, content := range entries {
		require.NoError(t, os.WriteFile(filepath.Join(dir, entryName), []byte(content), 0o644))
	}
	return dir
}

func TestCollectPackagePaths_SingleOwnerWins(t *testing.T) {
	root := t.TempDir()
	a := mkStorePath(t, root, "a-hello-1.0", map[string]string{"bin": "a"})

	m := NewManifest()
	m.Elements["hello"] = Element{StorePaths: []string{a}, Active: true, Priority: 5}

	paths, err := collectPackagePaths(m)
	require.NoError(t, err)
	require.Len(t, paths["bin"], 1)
	assert.Equal(t, filepath.Join(a, "bin"), paths["bin"][0].path)
}

func TestCollectPackagePaths_InactiveIgnored(t *testing.T) {
	root := t.TempDir()
	a := mkStorePath(t, root, "a-hello-1.0", map[string]string{"bin": "a"})

	m := NewManifest()
	m.Elements["hello"] = Element{StorePaths: []string{a}, Active: false, Priority: 5}

	paths, err := collectPackagePaths(m)
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestCollectPackagePaths_PriorityOrdering(t *testing.T) {
	root := t.TempDir()
	low := mkStorePath(t, root, "a-low-1.0", map[string]string{"bin": "low"})
	high := mkStorePath(t, root, "b-high-1.0", map[string]string{"bin": "high"})

	m := NewManifest()
	m.Elements["low"] = Element{StorePaths: []string{low}, Active: true, Priority: 3}
	m.Elements["high"] = Element{StorePaths: []string{high}, Active: true, Priority: 10}

	paths, err := collectPackagePaths(m)
	require.NoError(t, err)
	require.Len(t, paths["bin"], 2)
	assert.Equal(t, filepath.Join(low, "bin"), paths["bin"][0].path, "lowest priority number sorts first")
}

func TestBuildMergedTree_SingleEntrySymlinked(t *testing.T) {
	root := t.TempDir()
	a := mkStorePath(t, root, "a-hello-1.0", map[string]string{"bin": "a"})
	dest := t.TempDir()

	packagePaths := map[string][]prioritizedPath{"bin": {{path: filepath.Join(a, "bin"), priority: 5}}}
	require.NoError(t, buildMergedTree(dest, packagePaths))

	target, err := os.Readlink(filepath.Join(dest, "bin"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(a, "bin"), target)
}

func TestBuildMergedTree_ConflictingFilesHighestPriorityWins(t *testing.T) {
	root := t.TempDir()
	winner := mkStorePath(t, root, "a-hello-1.0", map[string]string{"bin": "winner"})
	loser := mkStorePath(t, root, "b-hello-2.0", map[string]string{"bin": "loser"})
	dest := t.TempDir()

	// Already sorted by ascending priority: winner first.
	packagePaths := map[string][]prioritizedPath{
		"bin": {{path: filepath.Join(winner, "bin"), priority: 3}, {path: filepath.Join(loser, "bin"), priority: 10}},
	}
	require.NoError(t, buildMergedTree(dest, packagePaths))

	target, err := os.Readlink(filepath.Join(dest, "bin"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(winner, "bin"), target)
}

func TestBuildMergedTree_DirectoriesMergedFirstWins(t *testing.T) {
	root := t.TempDir()
	a := mkStorePath(t, root, "a-hello-1.0", nil)
	require.NoError(t, os.MkdirAll(filepath.Join(a, "share"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(a, "share", "only-a"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(a, "share", "both"), []byte("a-version"), 0o644))

	b := mkStorePath(t, root, "b-world-1.0", nil)
	require.NoError(t, os.MkdirAll(filepath.Join(b, "share"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(b, "share", "only-b"), []byte("b"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(b, "share", "both"), []byte("b-version"), 0o644))

	dest := t.TempDir()
	packagePaths := map[string][]prioritizedPath{
		"share": {{path: filepath.Join(a, "share"), priority: 1}, {path: filepath.Join(b, "share"), priority: 5}},
	}
	require.NoError(t, buildMergedTree(dest, packagePaths))

	_, err := os.Lstat(filepath.Join(dest, "share", "only-a"))
	assert.NoError(t, err)
	_, err = os.Lstat(filepath.Join(dest, "share", "only-b"))
	assert.NoError(t, err)

	bothTarget, err := os.Readlink(filepath.Join(dest, "share", "both"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(a, "share", "both"), bothTarget, "first (highest-priority) occurrence wins a conflicting sub-name")
}
