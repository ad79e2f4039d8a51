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
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/trixcli/trix/internal/errors"
	"github.com/trixcli/trix/internal/procenv"
)

// EvalRemoteFlakeRef evaluates an attribute of a remote flake reference
// through the native flake API rather than the local-expression
// synthesis used for local installables: remote refs are fetched into
// the store by `nix` itself, so the no-copy guarantee does not apply and
// no special handling is needed. --no-write-lock-file keeps this a
// read-only operation: a remote reference is never re-locked as a side
// effect of evaluating it.
func (e *Engine) EvalRemoteFlakeRef(ctx context.Context, flakeRef string, attrPath []string) (*Value, error) {
	installable := flakeRef
	if len(attrPath) > 0 {
		installable = flakeRef + "#" + strings.Join(attrPath, ".")
	}

	cmd := exec.CommandContext(ctx, e.nix(), "eval", "--json", "--no-write-lock-file", installable)
	cmd.Env = procenv.Environ()
	out, err := cmd.Output()
	if err != nil {
		return nil, e.wrapEvalError(err, installable)
	}

	// The JSON result is wrapped in builtins.fromJSON so the returned
	// Value composes with the rest of the typed-value interface
	// (GetAttr, RequireString, ...) like a locally synthesized one.
	// `nix eval --json` renders a derivation as its output path, so a
	// derivation comes back as a string, not an attribute set.
	literal := strings.ReplaceAll(quoteNixString(strings.TrimSpace(string(out))), "${", `\${`)
	return &Value{engine: e, expr: "builtins.fromJSON " + literal}, nil
}

// remoteFlakeMetadata is the subset of `nix flake metadata --json` this
// package consumes.
type remoteFlakeMetadata struct {
	ResolvedURL string `json:"resolvedUrl"`
	Locked      struct {
		Rev          string `json:"rev"`
		LastModified int64  `json:"lastModified"`
		NarHash      string `json:"narHash"`
	} `json:"locked"`
}

// RemoteFlakeMetadata runs `nix flake metadata --json` for flakeRef,
// used by override resolution and `trix flake metadata` alike.
func (e *Engine) RemoteFlakeMetadata(ctx context.Context, flakeRef string) (*remoteFlakeMetadata, error) {
	cmd := exec.CommandContext(ctx, e.nix(), "flake", "metadata", "--json", "--no-write-lock-file", flakeRef)
	cmd.Env = procenv.Environ()
	out, err := cmd.Output()
	if err != nil {
		return nil, e.wrapEvalError(err, flakeRef)
	}
	var md remoteFlakeMetadata
	if err := json.Unmarshal(out, &md); err != nil {
		return nil, errors.NewEvalError(fmt.Sprintf("malformed flake metadata for %s", flakeRef), err.Error(), e.Debug)
	}
	return &md, nil
}
