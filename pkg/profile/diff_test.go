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
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClosureTools writes nix-store and nix binaries that answer
// --query --requisites and path-info --json from a fixed script,
// keyed by the store path passed as the last argument.
func fakeClosureTools(t *testing.T, closures map[string]string, sizes map[string]uint64) (nixStore, nix string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fakes are posix-only")
	}
	dir := t.TempDir()

	storeScript := "#!/bin/sh\ncase \"$3\" in\n"
	for path, closure := range closures {
		storeScript += "  '" + path + "') echo '" + closure + "';;\n"
	}
	storeScript += "esac\n"
	nixStorePath := filepath.Join(dir, "nix-store")
	require.NoError(t, os.WriteFile(nixStorePath, []byte(storeScript), 0o755))

	nixScript := "#!/bin/sh\ncase \"$3\" in\n"
	for path, size := range sizes {
		nixScript += "  '" + path + "') printf '[{\"narSize\":" + itoa(size) + "}]';;\n"
	}
	nixScript += "esac\n"
	nixPath := filepath.Join(dir, "nix")
	require.NoError(t, os.WriteFile(nixPath, []byte(nixScript), 0o755))

	return nixStorePath, nixPath
}

func itoa(n uint64) string {
	if n == 0 {
		return "0"
	}
	digits := ""
	for n > 0 {
		digits = string(rune('0'+n%10)) + digits
		n /= 10
	}
	return digits
}

func TestDiffClosures_DetectsAddedAndChangedPackages(t *testing.T) {
	e := newTestEngine(t)

	gen1 := t.TempDir()
	gen2 := t.TempDir()

	m := NewManifest()
	seedGenerationAt(t, e, 1, gen1, m)
	seedGenerationAt(t, e, 2, gen2, m)

	oldHello := "/nix/store/abcdefghijklmnopqrstuvwxyz012345-hello-1.0"
	newHello := "/nix/store/bbcdefghijklmnopqrstuvwxyz012345-hello-2.0"
	newJQ := "/nix/store/abcdefghijklmnopqrstuvwxyz012345-jq-1.7"

	nixStore, nix := fakeClosureTools(t,
		map[string]string{
			gen1: oldHello,
			gen2: newHello + "\n" + newJQ,
		},
		map[string]uint64{oldHello: 100, newHello: 150, newJQ: 50},
	)
	e.NixStoreBin = nixStore
	e.NixBin = nix

	diffs, err := e.DiffClosures(context.Background())
	require.NoError(t, err)
	require.Len(t, diffs, 1)
	assert.Equal(t, 1, diffs[0].FromGeneration)
	assert.Equal(t, 2, diffs[0].ToGeneration)

	byName := map[string]ClosureDiff{}
	for _, c := range diffs[0].Changes {
		byName[c.Name] = c
	}
	assert.Equal(t, "1.0", byName["hello"].OldVersion)
	assert.Equal(t, "2.0", byName["hello"].NewVersion)
	assert.Equal(t, int64(50), byName["hello"].SizeDelta)
	assert.Equal(t, "1.7", byName["jq"].NewVersion)
	assert.Equal(t, int64(50), byName["jq"].SizeDelta)
}

// seedGenerationAt is seedGeneration but lets the caller pin the store
// directory instead of getting a fresh t.TempDir().
func seedGenerationAt(t *testing.T, e *Engine, n int, storeDir string, m *Manifest) {
	t.Helper()
	require.NoError(t, os.MkdirAll(e.Home.ProfileDir, 0o755))
	link := filepath.Join(e.Home.ProfileDir, generationLinkName(n))
	require.NoError(t, os.Symlink(storeDir, link))
}
