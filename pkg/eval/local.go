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

package eval

import (
	"context"
	"fmt"
	"path/filepath"

	trixerrors "github.com/trixcli/trix/internal/errors"
	"github.com/trixcli/trix/pkg/lock"
)

// EvalLocalFlakeAttr synthesizes the no-copy expression for flakeDir and
// graph and navigates it to attrPath one attribute at a time (see
// Value.NavigateAttrPath).
// overrides maps an input name to a local directory replacing its locked
// source.
func (e *Engine) EvalLocalFlakeAttr(ctx context.Context, flakeDir string, graph *lock.Graph, attrPath []string, overrides map[string]string) (*Value, error) {
	absDir, err := filepath.Abs(flakeDir)
	if err != nil {
		return nil, fmt.Errorf("resolve flake directory %s: %w", flakeDir, err)
	}

	expr, err := SynthesizeExpr(ctx, absDir, graph, nil, overrides)
	if err != nil {
		return nil, err
	}

	root, err := e.EvalString(ctx, expr)
	if err != nil {
		return nil, err
	}
	return root.NavigateAttrPath(ctx, attrPath)
}

// ContextKind selects which candidate attribute-path list AttrCandidates
// expands a bare name into (the installable attribute-path
// expansion).
type ContextKind int

const (
	// ContextBuild covers build/run installables: packages, legacyPackages,
	// then the bare name as a top-level attribute.
	ContextBuild ContextKind = iota
	// ContextDevShell prepends devShells.<system>.<name>.
	ContextDevShell
	// ContextFormatter resolves to formatter.<system> only; name is ignored.
	ContextFormatter
)

// AttrCandidates expands a bare attribute name into the ordered list of
// fully-qualified candidate paths to try, e.g. for ContextBuild and name
// "hello" on "x86_64-linux":
//
//	packages.x86_64-linux.hello
//	legacyPackages.x86_64-linux.hello
//	hello
func AttrCandidates(kind ContextKind, system, name string) [][]string {
	switch kind {
	case ContextFormatter:
		return [][]string{{"formatter", system}}
	case ContextDevShell:
		return [][]string{
			{"devShells", system, name},
			{"packages", system, name},
			{"legacyPackages", system, name},
			{name},
		}
	default:
		return [][]string{
			{"packages", system, name},
			{"legacyPackages", system, name},
			{name},
		}
	}
}

// EvalFirstCandidate tries each of candidates against root in order,
// returning the first one that resolves. An AttrNotFound from one
// candidate is swallowed and the next is tried; any other error aborts
// immediately. If every candidate fails to resolve, a single composite
// AttrNotFound listing all of them is returned; this is the one place
// where a failed lookup is caught and the next candidate tried rather
// than propagated immediately.
func EvalFirstCandidate(ctx context.Context, root *Value, candidates [][]string) (*Value, []string, error) {
	var tried []string
	for _, path := range candidates {
		tried = append(tried, dottedPath(path))
		v, err := root.NavigateAttrPath(ctx, path)
		if err == nil {
			return v, path, nil
		}
		if !isAttrNotFound(err) {
			return nil, nil, err
		}
	}
	return nil, nil, trixerrors.NewAttrNotFound(tried)
}

func isAttrNotFound(err error) bool {
	return trixerrors.IsAttrNotFound(err)
}

func dottedPath(path []string) string {
	out := ""
	for i, p := range path {
		if i > 0 {
			out += "."
		}
		out += p
	}
	return out
}
