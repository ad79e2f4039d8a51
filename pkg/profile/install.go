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

import (
	"context"
	"strings"
)

// InstallElement adds or replaces name's manifest element with element,
// then rebuilds and atomically switches to a new generation containing
// it. Building the element's store path (whether by local no-copy
// evaluation or a remote `nix build`) is the caller's
// responsibility; this package only owns manifest bookkeeping and
// generation mechanics, keeping it free of any dependency on the
// evaluation or fetch layers.
func (e *Engine) InstallElement(ctx context.Context, name string, element Element) error {
	m, err := e.CurrentManifest()
	if err != nil {
		return err
	}
	m.Elements[name] = element

	newStorePath, err := e.CreateGenerationStorePath(ctx, m)
	if err != nil {
		return err
	}
	return e.SwitchProfile(newStorePath)
}

// DeriveElementName picks the manifest key for a freshly built
// installable: the last attribute-path segment, unless it is "default",
// in which case the package name parsed out of the store path basename
// is used instead, so `trix profile install .#default` doesn't create a
// package literally named "default".
func DeriveElementName(attrPath, storePath string) string {
	attrName := attrPath
	if idx := strings.LastIndex(attrPath, "."); idx >= 0 {
		attrName = attrPath[idx+1:]
	}
	if attrName != "default" {
		return attrName
	}
	if name, _, ok := ParseStorePath(storePath); ok {
		return name
	}
	return attrName
}
