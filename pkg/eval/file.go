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
)

// EvalFile imports a standalone Nix file and navigates attrPath against
// its top-level value. The attribute path is always resolved against
// the file's value first; it is never reinterpreted as a flake-output
// path, even when its first segment happens to match one.
func (e *Engine) EvalFile(ctx context.Context, path string, attrPath []string) (*Value, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve file path %s: %w", path, err)
	}

	root, err := e.EvalString(ctx, "import ("+nixPathLiteral(abs)+")")
	if err != nil {
		return nil, err
	}
	return root.NavigateAttrPath(ctx, attrPath)
}
