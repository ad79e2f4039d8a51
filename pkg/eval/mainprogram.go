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
	"regexp"
)

// versionSuffix strips a trailing "-X.Y.Z"-shaped version from a
// derivation's `name` attribute, the same heuristic the native `nix run`
// uses to guess a program name from "hello-2.12.1".
var versionSuffix = regexp.MustCompile(`-[0-9][0-9A-Za-z.+~-]*$`)

// GetMainProgram resolves the executable name for a derivation-shaped
// value: meta.mainProgram, then pname, then name with its version suffix
// stripped, then fallback.
func (e *Engine) GetMainProgram(ctx context.Context, v *Value, fallback string) (string, error) {
	if meta, err := v.GetAttr(ctx, "meta"); err == nil {
		if mainProgram, err := meta.GetAttr(ctx, "mainProgram"); err == nil {
			if s, err := mainProgram.RequireString(ctx); err == nil {
				return s, nil
			}
		}
	}

	if pname, err := v.GetAttr(ctx, "pname"); err == nil {
		if s, err := pname.RequireString(ctx); err == nil {
			return s, nil
		}
	}

	if name, err := v.GetAttr(ctx, "name"); err == nil {
		if s, err := name.RequireString(ctx); err == nil {
			return versionSuffix.ReplaceAllString(s, ""), nil
		}
	}

	return fallback, nil
}
