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
	"runtime"

	"golang.org/x/sync/errgroup"
)

// StandardOutputCategories are the top-level flake output categories
// `flake show` and `flake check` enumerate, in display order.
var StandardOutputCategories = []string{
	"packages",
	"legacyPackages",
	"devShells",
	"apps",
	"checks",
	"formatter",
	"nixosConfigurations",
	"templates",
	"overlays",
	"lib",
}

// CategoryResult is one category's evaluated shape: either its attribute
// names (directly, or one level down when the category is keyed by
// system) or an error if evaluating it failed.
type CategoryResult struct {
	Category string
	// Systems maps a system triple (or "" for system-independent
	// categories like "overlays"/"lib") to the attribute names found
	// under it.
	Systems map[string][]string
	Err     error
}

// EvalCategories evaluates every entry of StandardOutputCategories
// against root's `outputs` value concurrently on a worker pool bounded
// by GOMAXPROCS. Each worker owns its own Value navigation; nothing is
// shared but the (read-only) root.
func EvalCategories(ctx context.Context, root *Value, systemKeyed map[string]bool) []CategoryResult {
	results := make([]CategoryResult, len(StandardOutputCategories))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, category := range StandardOutputCategories {
		i, category := i, category
		g.Go(func() error {
			results[i] = evalOneCategory(gctx, root, category, systemKeyed[category])
			return nil // errors are captured per-category, never aborting the group
		})
	}
	_ = g.Wait()

	return results
}

func evalOneCategory(ctx context.Context, root *Value, category string, keyedBySystem bool) CategoryResult {
	result := CategoryResult{Category: category, Systems: map[string][]string{}}

	catValue, err := root.GetAttr(ctx, category)
	if err != nil {
		if isAttrNotFound(err) {
			return result // absent category: empty, not an error
		}
		result.Err = err
		return result
	}

	if !keyedBySystem {
		names, err := catValue.GetAttrNames(ctx)
		if err != nil {
			result.Err = err
			return result
		}
		result.Systems[""] = names
		return result
	}

	systems, err := catValue.GetAttrNames(ctx)
	if err != nil {
		result.Err = err
		return result
	}
	for _, system := range systems {
		sysValue, err := catValue.GetAttr(ctx, system)
		if err != nil {
			result.Err = err
			return result
		}
		names, err := sysValue.GetAttrNames(ctx)
		if err != nil {
			result.Err = err
			return result
		}
		result.Systems[system] = names
	}
	return result
}

// CheckTarget is one derivation discovered under `checks.<system>.*`
// awaiting a parallel build.
type CheckTarget struct {
	System string
	Name   string
	Value  *Value
}

// CheckResult is the outcome of building one CheckTarget.
type CheckResult struct {
	Target    CheckTarget
	StorePath string
	Err       error
}

// RunChecks realises every target in parallel on a worker pool bounded
// by GOMAXPROCS, collecting all failures rather than stopping at the
// first one.
func (e *Engine) RunChecks(ctx context.Context, targets []CheckTarget) []CheckResult {
	results := make([]CheckResult, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, target := range targets {
		i, target := i, target
		g.Go(func() error {
			path, err := e.BuildValue(gctx, target.Value)
			results[i] = CheckResult{Target: target, StorePath: path, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}
