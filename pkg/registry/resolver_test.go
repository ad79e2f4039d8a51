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

package registry

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trixcli/trix/pkg/reference"
)

func TestIsBareIdentifier(t *testing.T) {
	assert.True(t, IsBareIdentifier("nixpkgs"))
	assert.True(t, IsBareIdentifier("home-manager"))
	assert.False(t, IsBareIdentifier("."))
	assert.False(t, IsBareIdentifier("./foo"))
	assert.False(t, IsBareIdentifier("/foo"))
	assert.False(t, IsBareIdentifier("~/foo"))
	assert.False(t, IsBareIdentifier("github:NixOS/nixpkgs"))
}

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	dir := t.TempDir()
	r := NewResolver(filepath.Join(dir, "registry.json"), nil)
	r.SystemPath = filepath.Join(dir, "system-registry.json")
	return r
}

func TestResolver_AddThenResolveBare(t *testing.T) {
	r := newTestResolver(t)

	target := reference.Reference{Kind: reference.KindGitHub, Owner: "NixOS", Repo: "nixpkgs", Ref: "nixos-unstable"}
	require.NoError(t, r.Add("nixpkgs", target))

	ref, err := r.ResolveBare("nixpkgs", false)
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.Equal(t, target, *ref)
}

func TestResolver_ResolveBare_NotFound(t *testing.T) {
	r := newTestResolver(t)
	ref, err := r.ResolveBare("does-not-exist", false)
	require.NoError(t, err)
	assert.Nil(t, ref)
}

func TestResolver_Remove(t *testing.T) {
	r := newTestResolver(t)
	target := reference.Reference{Kind: reference.KindPath, Path: "/home/user/nixpkgs"}
	require.NoError(t, r.Add("local-nixpkgs", target))

	removed, err := r.Remove("local-nixpkgs")
	require.NoError(t, err)
	assert.True(t, removed)

	ref, err := r.ResolveBare("local-nixpkgs", false)
	require.NoError(t, err)
	assert.Nil(t, ref)

	removedAgain, err := r.Remove("local-nixpkgs")
	require.NoError(t, err)
	assert.False(t, removedAgain)
}

func TestResolver_AddReplacesExistingEntry(t *testing.T) {
	r := newTestResolver(t)
	require.NoError(t, r.Add("nixpkgs", reference.Reference{Kind: reference.KindGitHub, Owner: "NixOS", Repo: "nixpkgs", Ref: "old"}))
	require.NoError(t, r.Add("nixpkgs", reference.Reference{Kind: reference.KindGitHub, Owner: "NixOS", Repo: "nixpkgs", Ref: "new"}))

	ref, err := r.ResolveBare("nixpkgs", false)
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.Equal(t, "new", ref.Ref)

	entries, err := r.List(false)
	require.NoError(t, err)
	count := 0
	for _, e := range entries {
		if e.FromID == "nixpkgs" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestResolver_Pin(t *testing.T) {
	r := newTestResolver(t)
	pinned := reference.Reference{Kind: reference.KindGitHub, Owner: "NixOS", Repo: "nixpkgs", Ref: "abc123"}
	require.NoError(t, r.Pin("nixpkgs", pinned))

	ref, err := r.ResolveBare("nixpkgs", false)
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.Equal(t, "abc123", ref.Ref)
}

func TestResolver_SystemRegistryFallback(t *testing.T) {
	r := newTestResolver(t)

	systemFile := wireFile{
		Version: 2,
		Flakes: []wireEntry{
			{From: wireFrom{Type: "indirect", ID: "from-system"}, To: wireTo{Type: "path", Path: "/opt/nixpkgs"}},
		},
	}
	data, err := encodeFile(systemFile)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(r.SystemPath, data, 0o644))

	ref, err := r.ResolveBare("from-system", false)
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.Equal(t, "/opt/nixpkgs", ref.Path)
}

func TestResolver_UserRegistryTakesPrecedenceOverSystem(t *testing.T) {
	r := newTestResolver(t)

	systemFile := wireFile{Version: 2, Flakes: []wireEntry{
		{From: wireFrom{Type: "indirect", ID: "nixpkgs"}, To: wireTo{Type: "path", Path: "/system/nixpkgs"}},
	}}
	data, err := encodeFile(systemFile)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(r.SystemPath, data, 0o644))

	require.NoError(t, r.Add("nixpkgs", reference.Reference{Kind: reference.KindPath, Path: "/user/nixpkgs"}))

	ref, err := r.ResolveBare("nixpkgs", false)
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.Equal(t, "/user/nixpkgs", ref.Path)
}

func TestResolver_GlobalRegistryFetchAndCache(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		requests++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"version":2,"flakes":[{"from":{"type":"indirect","id":"nixpkgs"},"to":{"type":"github","owner":"NixOS","repo":"nixpkgs"}}]}`))
	}))
	defer srv.Close()

	r := newTestResolver(t)
	r.GlobalURL = srv.URL

	ref, err := r.ResolveBare("nixpkgs", true)
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.Equal(t, "NixOS", ref.Owner)

	_, err = r.ResolveBare("nixpkgs", true)
	require.NoError(t, err)
	assert.Equal(t, 1, requests, "second resolve should hit the in-process cache, not the network")
}
