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

package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/trixcli/trix/internal/output"
	"github.com/trixcli/trix/internal/procenv"
	"github.com/trixcli/trix/internal/ui"
	"github.com/trixcli/trix/pkg/eval"
	"github.com/trixcli/trix/pkg/lock"
	"github.com/trixcli/trix/pkg/reference"
)

// resolvedLocal is what resolveInstallable returns for an installable
// that the no-copy evaluation path owns: a local project directory plus
// the candidate attribute paths to try against it.
type resolvedLocal struct {
	dir        string
	candidates [][]string
}

// resolveInstallable classifies s: a bare identifier is resolved through
// the registry first; anything that is not local after that is the
// remote path, which is explicitly delegated to the native CLI rather
// than reimplemented; the core's job is the local path only.
func resolveInstallable(c *cliContext, s string, kind eval.ContextKind) (*resolvedLocal, string, error) {
	installable, err := reference.Parse(s)
	if err != nil {
		return nil, "", err
	}

	ref := installable.Ref
	if ref.Kind == reference.KindIndirect {
		resolver, err := c.registryResolver()
		if err != nil {
			return nil, "", err
		}
		target, err := resolver.ResolveBare(ref.ID, true)
		if err != nil {
			return nil, "", err
		}
		if target != nil {
			ref = *target
		}
	}

	if !ref.IsLocal() {
		return nil, s, nil
	}

	system, err := currentSystem(c)
	if err != nil {
		return nil, "", err
	}

	var candidates [][]string
	if len(installable.AttrPath) > 0 {
		candidates = [][]string{installable.AttrPath}
	} else {
		candidates = eval.AttrCandidates(kind, system, "default")
	}

	return &resolvedLocal{dir: ref.Path, candidates: candidates}, "", nil
}

func currentSystem(c *cliContext) (string, error) {
	v, err := c.evalEngine().EvalString(c.ctx, "builtins.currentSystem")
	if err != nil {
		return "", err
	}
	return v.RequireString(c.ctx)
}

// evalLocal synthesizes and evaluates a local installable, expanding a
// bare attribute name through every candidate in turn.
func evalLocal(c *cliContext, local *resolvedLocal) (*eval.Value, []string, error) {
	graph, err := lock.Read(filepath.Join(local.dir, "flake.lock"))
	if err != nil {
		return nil, nil, err
	}

	engine := c.evalEngine()
	outputs, err := engine.EvalLocalFlakeAttr(c.ctx, local.dir, graph, nil, nil)
	if err != nil {
		return nil, nil, err
	}
	return eval.EvalFirstCandidate(c.ctx, outputs, local.candidates)
}

// execNativePassthrough hands a remote installable to the native `nix`
// CLI verbatim, inheriting stdio and exit code.
func execNativePassthrough(subcommand string, installable string, extraArgs []string) error {
	args := append([]string{subcommand, installable}, extraArgs...)
	cmd := exec.Command("nix", args...)
	cmd.Env = procenv.Environ()
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			os.Exit(exitErr.ExitCode())
		}
		return fmt.Errorf("exec nix %s: %w", subcommand, err)
	}
	return nil
}

func runBuild(c *cliContext, args []string) error {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	positional := fs.Args()
	if len(positional) != 1 {
		return fmt.Errorf("trix build: usage: trix build <installable>")
	}

	local, remote, err := resolveInstallable(c, positional[0], eval.ContextBuild)
	if err != nil {
		return err
	}
	if local == nil {
		return execNativePassthrough("build", remote, nil)
	}

	value, tried, err := evalLocal(c, local)
	if err != nil {
		return err
	}

	storePath, err := c.evalEngine().BuildValue(c.ctx, value)
	if err != nil {
		return err
	}

	if c.jsonOutput {
		return output.JSON(map[string]any{"attrPath": tried, "storePath": storePath})
	}
	ui.Success(storePath)
	return nil
}

func runEval(c *cliContext, args []string) error {
	fs := flag.NewFlagSet("eval", flag.ContinueOnError)
	file := fs.String("file", "", "Evaluate this Nix file instead of a flake installable")
	if err := fs.Parse(args); err != nil {
		return err
	}
	positional := fs.Args()

	// With --file, the attribute path is navigated against the file's
	// top-level value, never interpreted as a flake-output path.
	if *file != "" {
		if len(positional) > 1 {
			return fmt.Errorf("trix eval: usage: trix eval --file FILE [attr.path]")
		}
		var attrPath []string
		if len(positional) == 1 {
			attrPath = strings.Split(positional[0], ".")
		}
		value, err := c.evalEngine().EvalFile(c.ctx, *file, attrPath)
		if err != nil {
			return err
		}
		return printEvalResult(c, value)
	}

	if len(positional) != 1 {
		return fmt.Errorf("trix eval: usage: trix eval <installable>")
	}

	local, remote, err := resolveInstallable(c, positional[0], eval.ContextBuild)
	if err != nil {
		return err
	}
	if local == nil {
		return execNativePassthrough("eval", remote, []string{"--json"})
	}

	value, _, err := evalLocal(c, local)
	if err != nil {
		return err
	}
	return printEvalResult(c, value)
}

// printEvalResult renders an evaluated value: its coerced string when it
// has one, its expression otherwise. JSON output is compact, matching
// the native `nix eval --json` convention.
func printEvalResult(c *cliContext, value *eval.Value) error {
	s, err := value.CoerceToString(c.ctx)
	if err != nil {
		if c.jsonOutput {
			return output.JSONCompact(map[string]any{"expr": value.Expr()})
		}
		fmt.Println(value.Expr())
		return nil
	}
	if c.jsonOutput {
		return output.JSONCompact(map[string]any{"value": s})
	}
	fmt.Println(s)
	return nil
}

func runRun(c *cliContext, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	positional := fs.Args()
	if len(positional) == 0 {
		return fmt.Errorf("trix run: usage: trix run <installable> [-- args...]")
	}
	installableStr := positional[0]
	programArgs := positional[1:]

	local, remote, err := resolveInstallable(c, installableStr, eval.ContextBuild)
	if err != nil {
		return err
	}
	if local == nil {
		return execNativePassthrough("run", remote, programArgs)
	}

	value, _, err := evalLocal(c, local)
	if err != nil {
		return err
	}

	engine := c.evalEngine()
	storePath, err := engine.BuildValue(c.ctx, value)
	if err != nil {
		return err
	}
	mainProgram, err := engine.GetMainProgram(c.ctx, value, filepath.Base(storePath))
	if err != nil {
		return err
	}

	binPath := filepath.Join(storePath, "bin", mainProgram)
	cmd := exec.Command(binPath, programArgs...)
	cmd.Env = procenv.Environ()
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			os.Exit(exitErr.ExitCode())
		}
		return fmt.Errorf("exec %s: %w", binPath, err)
	}
	return nil
}
