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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/trixcli/trix/internal/errors"
)

// wireGraph is the on-disk flake.lock shape.
type wireGraph struct {
	Nodes   map[string]wireNode `json:"nodes"`
	Root    string              `json:"root"`
	Version int                 `json:"version"`
}

type wireNode struct {
	Inputs   map[string]json.RawMessage `json:"inputs,omitempty"`
	Locked   *Locked                    `json:"locked,omitempty"`
	Original *Original                  `json:"original,omitempty"`
	Flake    *bool                      `json:"flake,omitempty"`
}

// Read loads a flake.lock document from path. A missing file is not an
// error: it returns the same empty, root-only graph NewGraph does, so
// callers can treat "never locked" and "locked with nothing pinned yet"
// uniformly.
func Read(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewGraph(), nil
	}
	if err != nil {
		return nil, errors.NewLockError(errors.LockIO, fmt.Sprintf("cannot read lock file %s", path), err.Error(), "check file permissions", err)
	}

	var wg wireGraph
	if err := json.Unmarshal(data, &wg); err != nil {
		return nil, errors.NewLockError(errors.LockParse, fmt.Sprintf("%s is corrupt", path), err.Error(), "delete the lock file and re-lock", err)
	}

	g := &Graph{
		Version: wg.Version,
		Root:    wg.Root,
		Nodes:   make(map[string]*Node, len(wg.Nodes)),
	}
	if g.Root == "" {
		g.Root = RootNodeName
	}
	for name, wn := range wg.Nodes {
		n := &Node{
			Locked:   wn.Locked,
			Original: wn.Original,
			IsFlake:  wn.Flake == nil || *wn.Flake,
			Inputs:   make(map[string]InputRef, len(wn.Inputs)),
		}
		for inputName, raw := range wn.Inputs {
			ref, err := decodeInputRef(raw)
			if err != nil {
				cause := fmt.Sprintf("node %q input %q: %s", name, inputName, err)
				return nil, errors.NewLockError(errors.LockParse, fmt.Sprintf("%s is corrupt", path), cause, "delete the lock file and re-lock", err)
			}
			n.Inputs[inputName] = ref
		}
		g.Nodes[name] = n
	}
	if _, ok := g.Nodes[g.Root]; !ok {
		g.Nodes[g.Root] = newNode()
	}
	if err := g.validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// validate enforces the lock-graph invariants on a freshly parsed
// graph: every Direct reference names an existing node, every follows
// path resolves from the root, and the graph is acyclic.
func (g *Graph) validate() error {
	for name, n := range g.Nodes {
		for inputName, ref := range n.Inputs {
			if ref.IsFollows {
				if _, err := g.ResolveFollows(ref.Follows); err != nil {
					return err
				}
				continue
			}
			if _, ok := g.Nodes[ref.Direct]; !ok {
				return errors.NewLockError(errors.LockDangling,
					fmt.Sprintf("node %q input %q references missing node %q", name, inputName, ref.Direct),
					"", "re-run 'trix flake lock' to repair the lock file", nil)
			}
		}
	}
	_, err := g.TopoOrder()
	return err
}

func decodeInputRef(raw json.RawMessage) (InputRef, error) {
	var direct string
	if err := json.Unmarshal(raw, &direct); err == nil {
		return DirectRef(direct), nil
	}
	var path []string
	if err := json.Unmarshal(raw, &path); err == nil {
		return FollowsRef(path), nil
	}
	return InputRef{}, fmt.Errorf("input reference is neither a node name nor a follows path")
}

func encodeInputRef(ref InputRef) (json.RawMessage, error) {
	if ref.IsFollows {
		path := ref.Follows
		if path == nil {
			path = []string{}
		}
		return json.Marshal(path)
	}
	return json.Marshal(ref.Direct)
}

// Write serializes the graph to path as flake.lock version 7, atomically:
// the document is written to a temp file in the same directory and then
// renamed into place, so a concurrent reader never observes a partial
// write.
func (g *Graph) Write(path string) error {
	wg := wireGraph{
		Version: LockVersion,
		Root:    g.Root,
		Nodes:   make(map[string]wireNode, len(g.Nodes)),
	}
	for name, n := range g.Nodes {
		wn := wireNode{
			Locked:   n.Locked,
			Original: n.Original,
			Inputs:   make(map[string]json.RawMessage, len(n.Inputs)),
		}
		if !n.IsFlake {
			f := false
			wn.Flake = &f
		}
		for inputName, ref := range n.Inputs {
			raw, err := encodeInputRef(ref)
			if err != nil {
				return fmt.Errorf("encode node %q input %q: %w", name, inputName, err)
			}
			wn.Inputs[inputName] = raw
		}
		wg.Nodes[name] = wn
	}

	data, err := json.MarshalIndent(wg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal lock graph: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create lock dir: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write lock temp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename lock file: %w", err)
	}
	return nil
}

// TopoOrder returns node names in dependency order: every node appears
// after all nodes it directly (non-follows) depends on. Ties break by
// name for deterministic output. Nodes only reachable via follows edges
// that resolve to other already-ordered nodes are included once their
// direct dependencies (if any) are satisfied.
func (g *Graph) TopoOrder() ([]string, error) {
	const (
		white = iota
		gray
		black
	)
	state := make(map[string]int, len(g.Nodes))
	var order []string

	names := make([]string, 0, len(g.Nodes))
	for name := range g.Nodes {
		names = append(names, name)
	}
	sort.Strings(names)

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case black:
			return nil
		case gray:
			return errors.NewLockError(errors.LockCycle, fmt.Sprintf("cycle detected at node %q", name), "", "break the cycle by removing the circular input reference", nil)
		}
		state[name] = gray
		n, ok := g.Nodes[name]
		if ok {
			deps := make([]string, 0, len(n.Inputs))
			for _, ref := range n.Inputs {
				if !ref.IsFollows && ref.Direct != "" {
					deps = append(deps, ref.Direct)
				}
			}
			sort.Strings(deps)
			for _, dep := range deps {
				if _, exists := g.Nodes[dep]; !exists {
					continue
				}
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		state[name] = black
		order = append(order, name)
		return nil
	}

	for _, name := range names {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return order, nil
}
