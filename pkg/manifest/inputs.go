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

package manifest

import (
	"context"
	"fmt"
	"path/filepath"

	trixerrors "github.com/trixcli/trix/internal/errors"
	"github.com/trixcli/trix/pkg/eval"
	"github.com/trixcli/trix/pkg/reference"
)

// DeclaredInput is one entry of a project's `inputs` attribute set, read
// straight out of flake.nix. Exactly one of Ref/FollowsRoot is
// meaningful: an input with a `url` is a real source; an input whose
// only attribute is `follows` redirects to another root input by name.
type DeclaredInput struct {
	Name        string
	Ref         reference.Reference
	FollowsRoot string

	// SubFollows collects this input's own `inputs.<name>.follows`
	// overrides (e.g. `inputs.home-manager.inputs.nixpkgs.follows =
	// "nixpkgs"`), keyed by the nested input name, each naming a root
	// input it should be redirected to. Only single-segment follows
	// ("follows another declared root input") are modeled.
	SubFollows map[string]string
}

// FlakeMeta is what ReadFlakeMeta extracts from flake.nix: its
// top-level `description` string ("" if absent) and its declared inputs.
type FlakeMeta struct {
	Description string
	Inputs      []DeclaredInput
}

// ReadFlakeMeta imports flakeDir/flake.nix read-only and extracts its
// `description` and `inputs` attributes; the file itself is never
// modified. A missing `inputs` attribute yields an empty slice, not an
// error.
func ReadFlakeMeta(ctx context.Context, engine *eval.Engine, flakeDir string) (*FlakeMeta, error) {
	absDir, err := filepath.Abs(flakeDir)
	if err != nil {
		return nil, fmt.Errorf("resolve flake directory %s: %w", flakeDir, err)
	}

	root, err := engine.EvalString(ctx, fmt.Sprintf("import %s", nixPathLiteral(filepath.Join(absDir, "flake.nix"))))
	if err != nil {
		return nil, err
	}

	meta := &FlakeMeta{}

	if desc, err := root.GetAttr(ctx, "description"); err == nil {
		if s, err := desc.RequireString(ctx); err == nil {
			meta.Description = s
		}
	}

	inputsAttr, err := root.GetAttr(ctx, "inputs")
	if err != nil {
		if trixerrors.IsAttrNotFound(err) {
			return meta, nil
		}
		return nil, err
	}

	names, err := inputsAttr.GetAttrNames(ctx)
	if err != nil {
		return nil, err
	}

	for _, name := range names {
		declared, err := inputsAttr.GetAttr(ctx, name)
		if err != nil {
			return nil, err
		}

		di := DeclaredInput{Name: name, SubFollows: map[string]string{}}

		if followsVal, err := declared.GetAttr(ctx, "follows"); err == nil {
			if s, err := followsVal.RequireString(ctx); err == nil {
				di.FollowsRoot = s
				meta.Inputs = append(meta.Inputs, di)
				continue
			}
		}

		urlVal, err := declared.GetAttr(ctx, "url")
		if err != nil {
			// An input declared only as `inputs.nixpkgs = {}` with
			// neither url nor follows is malformed; skip it rather than
			// failing the whole read, matching the tolerant posture the
			// native tool takes toward unusual (but non-fatal) shapes.
			continue
		}
		urlStr, err := urlVal.RequireString(ctx)
		if err != nil {
			continue
		}
		installable, err := reference.Parse(urlStr)
		if err != nil {
			continue
		}
		di.Ref = installable.Ref

		if nestedInputs, err := declared.GetAttr(ctx, "inputs"); err == nil {
			nestedNames, err := nestedInputs.GetAttrNames(ctx)
			if err == nil {
				for _, nestedName := range nestedNames {
					nested, err := nestedInputs.GetAttr(ctx, nestedName)
					if err != nil {
						continue
					}
					if followsVal, err := nested.GetAttr(ctx, "follows"); err == nil {
						if s, err := followsVal.RequireString(ctx); err == nil {
							di.SubFollows[nestedName] = s
						}
					}
				}
			}
		}

		meta.Inputs = append(meta.Inputs, di)
	}

	return meta, nil
}
