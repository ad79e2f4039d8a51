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
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/trixcli/trix/internal/errors"
	"github.com/trixcli/trix/internal/metrics"
	"github.com/trixcli/trix/internal/procenv"
)

// Engine binds to the native Nix evaluator by shelling out to its
// command-line tools, exactly as pkg/gitmeta shells out to git and as
// the no-copy fetch factories in the wider Nix tooling ecosystem shell
// out to `nix print-dev-env`/`nix flake prefetch`. There is no in-process
// evaluator: every typed accessor on Value ultimately runs one of
// nix-instantiate, nix-store, or nix.
type Engine struct {
	// NixInstantiate, NixStore, and Nix name the binaries invoked for
	// evaluation, realisation, and flake-aware operations respectively.
	// They default to the bare names, resolved via $PATH.
	NixInstantiate string
	NixStore       string
	Nix            string

	Logger *slog.Logger

	// Debug includes the synthesized expression in EvalError's Cause.
	Debug bool
}

// NewEngine returns an Engine that invokes the native binaries on $PATH.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		NixInstantiate: "nix-instantiate",
		NixStore:       "nix-store",
		Nix:            "nix",
		Logger:         logger,
	}
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

func (e *Engine) nixInstantiate() string {
	if e.NixInstantiate == "" {
		return "nix-instantiate"
	}
	return e.NixInstantiate
}

func (e *Engine) nixStore() string {
	if e.NixStore == "" {
		return "nix-store"
	}
	return e.NixStore
}

func (e *Engine) nix() string {
	if e.Nix == "" {
		return "nix"
	}
	return e.Nix
}

// EvalString evaluates a standalone piece of Nix source and returns the
// resulting Value. The value is not forced yet: nix-instantiate is only
// invoked once a typed accessor (RequireString, IsAttrs, GetAttr, ...)
// is called on the result, keeping to a "synthesise one expression,
// evaluate it once" discipline: intermediate navigation never
// round-trips through JSON, which would fail for any value
// containing a function or a derivation.
func (e *Engine) EvalString(_ context.Context, expr string) (*Value, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, fmt.Errorf("eval: empty expression")
	}
	return &Value{engine: e, expr: expr}, nil
}

// evalJSON forces expr completely via --strict and returns its JSON
// rendering. Used by every Require*/Is*/GetAttrNames accessor.
func (e *Engine) evalJSON(ctx context.Context, expr string) (json.RawMessage, error) {
	cmd := exec.CommandContext(ctx, e.nixInstantiate(), "--eval", "--json", "--strict", "--expr", expr)
	cmd.Env = procenv.Environ()
	start := time.Now()
	out, err := cmd.Output()
	metrics.RecordEval(time.Since(start).Seconds(), err == nil)
	if err != nil {
		return nil, e.wrapEvalError(err, expr)
	}
	return json.RawMessage(out), nil
}

// instantiate runs nix-instantiate in its default (non-eval) mode: expr
// must evaluate to one or more derivations, and the command prints their
// .drv store paths, one per line.
func (e *Engine) instantiate(ctx context.Context, expr string) ([]string, error) {
	cmd := exec.CommandContext(ctx, e.nixInstantiate(), "--expr", expr)
	cmd.Env = procenv.Environ()
	out, err := cmd.Output()
	if err != nil {
		return nil, e.wrapEvalError(err, expr)
	}
	var drvPaths []string
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			drvPaths = append(drvPaths, line)
		}
	}
	if len(drvPaths) == 0 {
		return nil, errors.NewEvalError("nix-instantiate produced no derivation path", expr, e.Debug)
	}
	return drvPaths, nil
}

// realise builds drvPath via nix-store --realise, returning its output
// store paths.
func (e *Engine) realise(ctx context.Context, drvPath string) ([]string, error) {
	cmd := exec.CommandContext(ctx, e.nixStore(), "--realise", drvPath)
	cmd.Env = procenv.Environ()
	start := time.Now()
	out, err := cmd.Output()
	metrics.RecordBuild(time.Since(start).Seconds(), err == nil)
	if err != nil {
		return nil, errors.NewBuildError(fmt.Sprintf("failed to realise %s", drvPath), wrapStderr(err))
	}
	var paths []string
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			paths = append(paths, line)
		}
	}
	return paths, nil
}

func (e *Engine) wrapEvalError(err error, expr string) error {
	msg := err.Error()
	if ee, ok := err.(*exec.ExitError); ok && len(ee.Stderr) > 0 {
		msg = strings.TrimSpace(string(ee.Stderr))
	}
	return errors.NewEvalError(msg, expr, e.Debug)
}

func wrapStderr(err error) error {
	if ee, ok := err.(*exec.ExitError); ok && len(ee.Stderr) > 0 {
		return fmt.Errorf("%s", strings.TrimSpace(string(ee.Stderr)))
	}
	return err
}
