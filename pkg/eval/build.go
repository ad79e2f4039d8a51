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

	"github.com/trixcli/trix/internal/errors"
)

// BuildValue instantiates v as a single-output derivation and realises
// it, returning the default output's store path.
func (e *Engine) BuildValue(ctx context.Context, v *Value) (string, error) {
	isDrv, err := v.IsDerivation(ctx)
	if err != nil {
		return "", err
	}
	if !isDrv {
		return "", errors.NewEvalError("value is not a derivation", v.expr, e.Debug)
	}

	drvPaths, err := e.instantiate(ctx, v.expr)
	if err != nil {
		return "", err
	}
	outPaths, err := e.realise(ctx, drvPaths[0])
	if err != nil {
		return "", err
	}
	if len(outPaths) == 0 {
		return "", errors.NewBuildError("realise produced no output path", nil)
	}
	return outPaths[0], nil
}

// BuildValueOutputs realises every output named in v.outputs, returning
// a name -> store path map.
func (e *Engine) BuildValueOutputs(ctx context.Context, v *Value) (map[string]string, error) {
	isDrv, err := v.IsDerivation(ctx)
	if err != nil {
		return nil, err
	}
	if !isDrv {
		return nil, errors.NewEvalError("value is not a derivation", v.expr, e.Debug)
	}

	outputsAttr, err := v.GetAttr(ctx, "outputs")
	if err != nil {
		return nil, err
	}
	size, err := outputsAttr.RequireListSize(ctx)
	if err != nil {
		return nil, err
	}

	result := make(map[string]string, size)
	for i := 0; i < size; i++ {
		elem, err := outputsAttr.RequireElem(ctx, i)
		if err != nil {
			return nil, err
		}
		name, err := elem.RequireString(ctx)
		if err != nil {
			return nil, err
		}

		outputValue, err := v.GetAttr(ctx, name)
		if err != nil {
			return nil, err
		}
		drvPaths, err := e.instantiate(ctx, outputValue.expr)
		if err != nil {
			return nil, err
		}
		outPaths, err := e.realise(ctx, drvPaths[0])
		if err != nil {
			return nil, err
		}
		if len(outPaths) == 0 {
			return nil, errors.NewBuildError(fmt.Sprintf("realise produced no output path for %q", name), nil)
		}
		result[name] = outPaths[0]
	}
	return result, nil
}

// DefaultOutput returns outputs["out"], or the first entry in iteration
// order if there is no "out". Map iteration order is
// nondeterministic in Go, so callers that need determinism should prefer
// "out" explicitly.
func DefaultOutput(outputs map[string]string) string {
	if out, ok := outputs["out"]; ok {
		return out
	}
	for _, path := range outputs {
		return path
	}
	return ""
}

// GetDerivationPath returns v's .drvPath as an evaluated string, without
// realising it, used by diff-style operations that compare derivations
// without building them.
func (e *Engine) GetDerivationPath(ctx context.Context, v *Value) (string, error) {
	drvPath, err := v.GetAttr(ctx, "drvPath")
	if err != nil {
		return "", err
	}
	return drvPath.RequireString(ctx)
}
