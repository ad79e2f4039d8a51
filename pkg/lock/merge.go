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
	"context"
	"fmt"
	"sort"

	"github.com/trixcli/trix/pkg/reference"
)

// FetchResult is what a Fetcher returns for one input reference: the
// pinned source descriptor, the reference as the user declared it, and
// (if the fetched source is itself a flake with a lock file) that
// flake's own lock graph, which RefreshInput merges in transitively.
type FetchResult struct {
	Locked    Locked
	Original  Original
	IsFlake   bool
	LockGraph *Graph
}

// Fetcher prefetches a flake reference. pkg/fetch's client satisfies
// this; defining it here (rather than importing pkg/fetch) keeps the
// lock store decoupled from prefetch's network and hashing concerns.
type Fetcher interface {
	Fetch(ctx context.Context, ref reference.Reference) (*FetchResult, error)
}

// RefreshInput fetches declaredRef, pins it as the named input under the
// root node, and, when the fetched flake carries its own flake.lock,
// merges that flake's transitive nodes into the graph, renaming any node
// whose name collides with one already present.
func (g *Graph) RefreshInput(ctx context.Context, name string, declaredRef reference.Reference, fetcher Fetcher) error {
	result, err := fetcher.Fetch(ctx, declaredRef)
	if err != nil {
		return err
	}

	node := &Node{
		Locked:   &result.Locked,
		Original: &result.Original,
		IsFlake:  result.IsFlake,
		Inputs:   map[string]InputRef{},
	}

	if result.LockGraph != nil {
		renames, err := g.mergeTransitive(result.LockGraph, name)
		if err != nil {
			return err
		}
		for inputName, ref := range result.LockGraph.RootNode().Inputs {
			node.Inputs[inputName] = remapRef(ref, renames)
		}
	}

	g.Nodes[name] = node
	root := g.RootNode()
	root.Inputs[name] = DirectRef(name)
	return nil
}

// mergeTransitive copies every non-root node of child into g, renaming
// collisions with the receiver's existing node names. Names are tried as
// "<name>_2".."<name>_99", then "<name>_transitive_<owner>_<n>" as a
// fallback that cannot plausibly collide. It returns the rename map so the caller
// can rewrite cross-references in the nodes it copies.
func (g *Graph) mergeTransitive(child *Graph, ownerPrefix string) (map[string]string, error) {
	renames := map[string]string{}

	childNames := make([]string, 0, len(child.Nodes))
	for name := range child.Nodes {
		if name == child.Root {
			continue
		}
		childNames = append(childNames, name)
	}
	sort.Strings(childNames)

	for _, childName := range childNames {
		finalName := childName
		if _, collide := g.Nodes[finalName]; collide {
			finalName = g.freeName(childName, ownerPrefix)
		}
		renames[childName] = finalName
	}

	for _, childName := range childNames {
		childNode := child.Nodes[childName]
		copied := &Node{
			Locked:   childNode.Locked,
			Original: childNode.Original,
			IsFlake:  childNode.IsFlake,
			Inputs:   make(map[string]InputRef, len(childNode.Inputs)),
		}
		for inputName, ref := range childNode.Inputs {
			copied.Inputs[inputName] = remapRef(ref, renames)
		}
		g.Nodes[renames[childName]] = copied
	}
	return renames, nil
}

// freeName finds a collision-free name for a transitively merged node,
// trying "<base>_2".."<base>_99" before falling back to a
// "<base>_transitive_<owner>_<n>" name, where owner is the name of the
// input whose lock graph is being merged.
func (g *Graph) freeName(base, ownerPrefix string) string {
	for i := 2; i <= 99; i++ {
		candidate := fmt.Sprintf("%s_%d", base, i)
		if _, exists := g.Nodes[candidate]; !exists {
			return candidate
		}
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_transitive_%s_%d", base, ownerPrefix, i)
		if _, exists := g.Nodes[candidate]; !exists {
			return candidate
		}
	}
}

// remapRef rewrites a Direct reference through renames; Follows
// references are left untouched since they address nodes by path from
// root, not by the name being renamed (follows paths are resolved against
// the child graph's own root separately, before merging).
func remapRef(ref InputRef, renames map[string]string) InputRef {
	if ref.IsFollows {
		return ref
	}
	if renamed, ok := renames[ref.Direct]; ok {
		return DirectRef(renamed)
	}
	return ref
}
