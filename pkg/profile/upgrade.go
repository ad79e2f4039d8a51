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

import "context"

// Builder rebuilds a manifest element's installable and returns its
// fresh store path. cmd/trix supplies this: a local element is rebuilt
// through pkg/eval's no-copy evaluation, a remote one through
// pkg/fetch plus a native `nix build`. Keeping the callback injected
// here means this package never imports the evaluation or fetch layers.
type Builder func(ctx context.Context, name string, element Element, refresh bool) (storePath string, err error)

// UpgradeResult tallies how many elements were rebuilt to a new store
// path versus left unchanged or skipped due to a build failure.
type UpgradeResult struct {
	Upgraded int
	Skipped  int
}

// Upgrade rebuilds either one named element or every element in the
// current manifest, replacing any whose freshly built store path
// differs from what is currently installed, then switches to one new
// generation containing every change. A build failure for
// one element is logged and counted as skipped rather than aborting the
// rest, a best-effort-across-all-packages upgrade policy.
func (e *Engine) Upgrade(ctx context.Context, name string, refresh bool, build Builder) (UpgradeResult, error) {
	m, err := e.CurrentManifest()
	if err != nil {
		return UpgradeResult{}, err
	}

	var result UpgradeResult
	changed := false

	for elemName, element := range m.Elements {
		pkgName := lastAttrSegment(element.AttrPath)
		if name != "" && pkgName != name && elemName != name {
			continue
		}

		oldPath := ""
		if len(element.StorePaths) > 0 {
			oldPath = element.StorePaths[0]
		}

		newPath, buildErr := build(ctx, elemName, element, refresh)
		if buildErr != nil {
			e.logger().Warn("profile.upgrade.skip", "name", elemName, "error", buildErr)
			result.Skipped++
			continue
		}

		if newPath == oldPath {
			result.Skipped++
			continue
		}

		e.logger().Info("profile.upgrade", "name", elemName, "old", oldPath, "new", newPath)
		updated := element
		updated.StorePaths = []string{newPath}
		m.Elements[elemName] = updated
		result.Upgraded++
		changed = true
	}

	if !changed {
		return result, nil
	}

	newStorePath, err := e.CreateGenerationStorePath(ctx, m)
	if err != nil {
		return result, err
	}
	if err := e.SwitchProfile(newStorePath); err != nil {
		return result, err
	}
	return result, nil
}
