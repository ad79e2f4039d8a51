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

import "sort"

// DependencyPath is one hop in a WhyDepends chain: the input name
// declared on From that leads to To.
type DependencyPath struct {
	From  string
	Input string
	To    string
}

// WhyDepends searches the lock graph for the shortest chain of input
// edges from node "from" to node "to", explaining why one input depends
// on another. It returns nil, nil when no path exists.
func (g *Graph) WhyDepends(from, to string) ([]DependencyPath, error) {
	if from == to {
		return nil, nil
	}
	if _, ok := g.Nodes[from]; !ok {
		return nil, nil
	}
	if _, ok := g.Nodes[to]; !ok {
		return nil, nil
	}

	type frame struct {
		node string
		path []DependencyPath
	}
	visited := map[string]bool{from: true}
	queue := []frame{{node: from}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		node := g.Nodes[cur.node]
		if node == nil {
			continue
		}

		names := make([]string, 0, len(node.Inputs))
		for inputName := range node.Inputs {
			names = append(names, inputName)
		}
		sort.Strings(names)

		for _, inputName := range names {
			ref := node.Inputs[inputName]
			target, err := g.resolveRefTarget(ref)
			if err != nil || target == "" {
				continue
			}
			if visited[target] {
				continue
			}
			step := DependencyPath{From: cur.node, Input: inputName, To: target}
			nextPath := append(append([]DependencyPath{}, cur.path...), step)
			if target == to {
				return nextPath, nil
			}
			visited[target] = true
			queue = append(queue, frame{node: target, path: nextPath})
		}
	}
	return nil, nil
}

func (g *Graph) resolveRefTarget(ref InputRef) (string, error) {
	if !ref.IsFollows {
		return ref.Direct, nil
	}
	name, err := g.ResolveFollows(ref.Follows)
	if err != nil {
		return "", err
	}
	if name == SelfNodeName {
		return g.Root, nil
	}
	return name, nil
}
