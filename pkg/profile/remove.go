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

// Remove drops name from the current manifest, first trying it as a
// literal element key, then falling back to matching any element whose
// attrPath's last segment equals name, and switches to a new generation
// without it. Reports false if nothing matched.
func (e *Engine) Remove(ctx context.Context, name string) (bool, error) {
	m, err := e.CurrentManifest()
	if err != nil {
		return false, err
	}

	removed := false
	if _, ok := m.Elements[name]; ok {
		delete(m.Elements, name)
		removed = true
	} else {
		for key, elem := range m.Elements {
			if lastAttrSegment(elem.AttrPath) == name {
				delete(m.Elements, key)
				removed = true
			}
		}
	}
	if !removed {
		return false, nil
	}

	newStorePath, err := e.CreateGenerationStorePath(ctx, m)
	if err != nil {
		return false, err
	}
	if err := e.SwitchProfile(newStorePath); err != nil {
		return false, err
	}
	return true, nil
}

func lastAttrSegment(attrPath string) string {
	if idx := strings.LastIndex(attrPath, "."); idx >= 0 {
		return attrPath[idx+1:]
	}
	return attrPath
}
