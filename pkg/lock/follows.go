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
	"fmt"
	"strings"

	"github.com/trixcli/trix/internal/errors"
)

// SelfNodeName is the distinguished sentinel ResolveFollows returns for
// an empty follows path: "follows the root flake itself".
const SelfNodeName = ""

// ResolveFollows walks path from the root node through each node's
// Inputs map and returns the name of the node the path designates. An
// empty path returns SelfNodeName. A path segment that does not name an
// input of the current node, or that chases a follows-of-follows cycle,
// is a dangling-follows lock error.
func (g *Graph) ResolveFollows(path []string) (string, error) {
	if len(path) == 0 {
		return SelfNodeName, nil
	}
	return g.resolveFrom(g.Root, path, map[string]bool{})
}

func (g *Graph) resolveFrom(current string, path []string, seen map[string]bool) (string, error) {
	if len(path) == 0 {
		return current, nil
	}

	key := current + "/" + strings.Join(path, "/")
	if seen[key] {
		return "", errors.NewLockError(errors.LockDangling,
			fmt.Sprintf("follows path %q forms a cycle", strings.Join(path, "/")),
			"", "fix the circular 'follows' declaration in flake.nix", nil)
	}
	seen[key] = true

	node, ok := g.Nodes[current]
	if !ok {
		return "", errors.NewLockError(errors.LockDangling,
			fmt.Sprintf("follows path references missing node %q", current),
			"", "re-run 'trix flake lock' to repair the lock file", nil)
	}

	head, rest := path[0], path[1:]
	ref, ok := node.Inputs[head]
	if !ok {
		return "", errors.NewLockError(errors.LockDangling,
			fmt.Sprintf("dangling follows: node %q has no input %q", current, head),
			"", "re-run 'trix flake lock' to repair the lock file", nil)
	}

	if ref.IsFollows {
		if len(ref.Follows) == 0 {
			return g.resolveFrom(g.Root, rest, seen)
		}
		target, err := g.resolveFrom(g.Root, ref.Follows, seen)
		if err != nil {
			return "", err
		}
		return g.resolveFrom(target, rest, seen)
	}
	return g.resolveFrom(ref.Direct, rest, seen)
}
