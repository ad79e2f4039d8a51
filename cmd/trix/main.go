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

// Package main implements the trix CLI: a thin dispatcher over the
// no-copy evaluation, lock, registry, and profile engines in pkg/. The
// CLI surface itself (argument parsing, progress UX, shell completion,
// NixOS rebuild glue) is explicitly out of the core's scope; this binary
// exists to give every subcommand a real entry point, not to reproduce
// the native tool's full UX.
//
// Usage:
//
//	trix flake lock [--update-input NAME]   Create or refresh flake.lock
//	trix flake show [--json]                Enumerate flake outputs
//	trix flake check [--json]               Build every checks.<system>.*
//	trix flake metadata [--json]            Print resolved flake metadata
//	trix flake init --template DIR          Scaffold from a template flake
//	trix flake why-depends FROM TO          Explain a lock-graph dependency
//	trix build <installable>                Build to a store path
//	trix eval <installable>                 Evaluate without building
//	trix eval --file FILE [attr.path]       Evaluate a standalone Nix file
//	trix run <installable> [-- ARGS]        Build and exec the main program
//	trix registry add|remove|pin|list       Manage the user registry
//	trix profile install|remove|list|...    Manage the default profile
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	trixerrors "github.com/trixcli/trix/internal/errors"
	"github.com/trixcli/trix/internal/metrics"
	"github.com/trixcli/trix/internal/ui"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	var (
		showVersion = pflag.Bool("version", false, "Show version and exit")
		jsonOutput  = pflag.Bool("json", false, "Emit machine-readable JSON output")
		noColor     = pflag.Bool("no-color", false, "Disable colored output")
		debug       = pflag.Bool("debug", false, "Include synthesized expressions in error output")
		homeDir     = pflag.String("home", "", "Override the trix home directory (default: $XDG_CONFIG_HOME/trix)")
	)

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, `trix - offline-capable frontend for a functional package manager

Usage:
  trix <command> [subcommand] [options]

Commands:
  flake lock                    Create or refresh flake.lock
  flake show                    Enumerate flake outputs
  flake check                   Build every checks.<system>.*
  flake metadata                Print resolved flake metadata
  flake init                    Scaffold a project from a template
  flake why-depends             Explain a lock-graph dependency chain
  build                         Build an installable to a store path
  eval                          Evaluate an installable or a --file without building
  run                           Build and exec an installable's main program
  registry add|remove|pin|list  Manage the user registry
  profile install|remove|list|upgrade|rollback|history|diff|wipe-history

Global Options:
  --json       Emit machine-readable JSON output
  --no-color   Disable colored output
  --debug      Include synthesized expressions in error output
  --home       Override the trix home directory
  --version    Show version and exit

`)
	}

	pflag.Parse()
	ui.InitColors(*noColor)

	if *showVersion {
		fmt.Printf("trix version %s\ncommit: %s\nbuilt: %s\n", version, commit, date)
		os.Exit(trixerrors.ExitSuccess)
	}

	args := pflag.Args()
	if len(args) == 0 {
		pflag.Usage()
		os.Exit(trixerrors.ExitInvalidReference)
	}

	logger := slog.Default()
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	metrics.Serve(ctx, logger)

	cli := &cliContext{
		ctx:        ctx,
		logger:     logger,
		jsonOutput: *jsonOutput,
		debug:      *debug,
		homeDir:    *homeDir,
	}

	command := args[0]
	rest := args[1:]

	var err error
	switch command {
	case "flake":
		err = runFlake(cli, rest)
	case "build":
		err = runBuild(cli, rest)
	case "eval":
		err = runEval(cli, rest)
	case "run":
		err = runRun(cli, rest)
	case "registry":
		err = runRegistry(cli, rest)
	case "profile":
		err = runProfile(cli, rest)
	default:
		fmt.Fprintf(os.Stderr, "trix: unknown command %q\n", command)
		pflag.Usage()
		os.Exit(trixerrors.ExitInvalidReference)
	}

	if err != nil {
		trixerrors.FatalError(err, *jsonOutput)
	}
}
