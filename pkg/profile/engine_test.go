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

	"github.com/trixcli/trix/internal/bootstrap"
)

func TestParseGenerationNumber(t *testing.T) {
	n, ok := ParseGenerationNumber("profile-1-link")
	assert.True(t, ok)
	assert.Equal(t, 1, n)

	n, ok = ParseGenerationNumber("profile-42-link")
	assert.True(t, ok)
	assert.Equal(t, 42, n)

	_, ok = ParseGenerationNumber("other-file")
	assert.False(t, ok)

	_, ok = ParseGenerationNumber("profile-abc-link")
	assert.False(t, ok)
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	base := t.TempDir()
	home := &bootstrap.Home{
		ProfileDir:  filepath.Join(base, "profiles"),
		ProfileLink: filepath.Join(base, "nix-profile"),
	}
	return NewEngine(home, nil)
}

func TestNextGenerationNumber_EmptyDir(t *testing.T) {
	e := newTestEngine(t)
	n, err := e.NextGenerationNumber()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNextGenerationNumber_SkipsPastGenerations(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, os.MkdirAll(e.Home.ProfileDir, 0o755))
	for _, name := range []string{"profile-1-link", "profile-3-link", "not-a-generation"} {
		require.NoError(t, os.Symlink(t.TempDir(), filepath.Join(e.Home.ProfileDir, name)))
	}
	n, err := e.NextGenerationNumber()
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestCurrentManifest_NoProfileYieldsEmpty(t *testing.T) {
	e := newTestEngine(t)
	m, err := e.CurrentManifest()
	require.NoError(t, err)
	assert.Equal(t, ManifestVersion, m.Version)
	assert.Empty(t, m.Elements)
}
