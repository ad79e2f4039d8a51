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

package lock

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead_MissingFileReturnsEmptyGraph(t *testing.T) {
	g, err := Read(filepath.Join(t.TempDir(), "flake.lock"))
	require.NoError(t, err)
	assert.Equal(t, RootNodeName, g.Root)
	assert.Contains(t, g.Nodes, RootNodeName)
	assert.Equal(t, LockVersion, g.Version)
}

func TestRead_CorruptFileErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flake.lock")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Read(path)
	require.Error(t, err)
}

func TestWriteThenRead_Roundtrip(t *testing.T) {
	g := NewGraph()
	root := g.RootNode()
	root.Inputs["nixpkgs"] = DirectRef("nixpkgs")
	root.Inputs["flake-utils"] = DirectRef("flake-utils")

	g.Nodes["nixpkgs"] = &Node{
		IsFlake: true,
		Locked: &Locked{
			Kind: "github", Owner: "NixOS", Repo: "nixpkgs", Rev: "abc123",
			NarHash: "sha256-xxx", LastModified: 1700000000,
		},
		Original: &Original{Kind: "indirect"},
		Inputs:   map[string]InputRef{},
	}
	g.Nodes["flake-utils"] = &Node{
		IsFlake: true,
		Locked:  &Locked{Kind: "github", Owner: "numtide", Repo: "flake-utils", Rev: "def456", NarHash: "sha256-yyy"},
		Inputs: map[string]InputRef{
			"nixpkgs": FollowsRef([]string{"nixpkgs"}),
		},
	}

	path := filepath.Join(t.TempDir(), "flake.lock")
	require.NoError(t, g.Write(path))

	got, err := Read(path)
	require.NoError(t, err)

	assert.Equal(t, g.Root, got.Root)
	assert.Equal(t, LockVersion, got.Version)
	require.Contains(t, got.Nodes, "nixpkgs")
	require.Contains(t, got.Nodes, "flake-utils")

	assert.Equal(t, DirectRef("nixpkgs"), got.RootNode().Inputs["nixpkgs"])
	assert.Equal(t, FollowsRef([]string{"nixpkgs"}), got.Nodes["flake-utils"].Inputs["nixpkgs"])
	assert.Equal(t, "abc123", got.Nodes["nixpkgs"].Locked.Rev)
}

func TestRead_RejectsDanglingDirectReference(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flake.lock")
	doc := `{"version": 7, "root": "root", "nodes": {
		"root": {"inputs": {"nixpkgs": "nixpkgs"}}
	}}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	_, err := Read(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nixpkgs")
}

func TestRead_RejectsUnresolvableFollows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flake.lock")
	doc := `{"version": 7, "root": "root", "nodes": {
		"root": {"inputs": {"utils": "utils"}},
		"utils": {"inputs": {"systems": ["no-such-input"]}, "locked": {"type": "github", "owner": "numtide", "repo": "flake-utils", "rev": "def456", "narHash": "sha256-yyy"}}
	}}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	_, err := Read(path)
	require.Error(t, err)
}

func TestRead_RejectsCycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flake.lock")
	doc := `{"version": 7, "root": "root", "nodes": {
		"root": {"inputs": {"a": "a"}},
		"a": {"inputs": {"b": "b"}, "locked": {"type": "path", "path": "./a"}},
		"b": {"inputs": {"a": "a"}, "locked": {"type": "path", "path": "./b"}}
	}}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	_, err := Read(path)
	require.Error(t, err)
}

func TestWrite_IsAtomic(t *testing.T) {
	g := NewGraph()
	path := filepath.Join(t.TempDir(), "flake.lock")
	require.NoError(t, g.Write(path))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp", "temp file should have been renamed away")
	}
}

func TestTopoOrder_DependenciesComeFirst(t *testing.T) {
	g := NewGraph()
	root := g.RootNode()
	root.Inputs["a"] = DirectRef("a")

	g.Nodes["a"] = &Node{IsFlake: true, Inputs: map[string]InputRef{"b": DirectRef("b")}}
	g.Nodes["b"] = &Node{IsFlake: true, Inputs: map[string]InputRef{}}

	order, err := g.TopoOrder()
	require.NoError(t, err)

	pos := map[string]int{}
	for i, name := range order {
		pos[name] = i
	}
	assert.Less(t, pos["b"], pos["a"])
	assert.Less(t, pos["a"], pos[RootNodeName])
}

func TestTopoOrder_DetectsCycle(t *testing.T) {
	g := NewGraph()
	root := g.RootNode()
	root.Inputs["a"] = DirectRef("a")

	g.Nodes["a"] = &Node{IsFlake: true, Inputs: map[string]InputRef{"b": DirectRef("b")}}
	g.Nodes["b"] = &Node{IsFlake: true, Inputs: map[string]InputRef{"a": DirectRef("a")}}

	_, err := g.TopoOrder()
	require.Error(t, err)
}
