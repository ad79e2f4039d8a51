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
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/trixcli/trix/internal/output"
	"github.com/trixcli/trix/internal/procenv"
	"github.com/trixcli/trix/internal/ui"
	"github.com/trixcli/trix/pkg/eval"
	"github.com/trixcli/trix/pkg/manifest"
	"github.com/trixcli/trix/pkg/profile"
)

func runProfile(c *cliContext, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("trix profile: missing subcommand (install, remove, list, upgrade, rollback, history, diff, wipe-history)")
	}
	switch args[0] {
	case "install":
		return runProfileInstall(c, args[1:])
	case "remove":
		return runProfileRemove(c, args[1:])
	case "list":
		return runProfileList(c, args[1:])
	case "upgrade":
		return runProfileUpgrade(c, args[1:])
	case "rollback":
		return runProfileRollback(c, args[1:])
	case "history":
		return runProfileHistory(c, args[1:])
	case "diff":
		return runProfileDiff(c, args[1:])
	case "wipe-history":
		return runProfileWipeHistory(c, args[1:])
	default:
		return fmt.Errorf("trix profile: unknown subcommand %q", args[0])
	}
}

// buildInstallable resolves and builds s to a store path, using the
// no-copy local path for local installables and a native `nix build`
// passthrough for remote ones, the same split trix build makes.
func buildInstallable(c *cliContext, s string) (attrPath, storePath string, err error) {
	local, remote, err := resolveInstallable(c, s, eval.ContextBuild)
	if err != nil {
		return "", "", err
	}
	if local == nil {
		path, err := nixBuildRemote(c.ctx, remote)
		return remote, path, err
	}

	value, tried, err := evalLocal(c, local)
	if err != nil {
		return "", "", err
	}
	storePath, err = c.evalEngine().BuildValue(c.ctx, value)
	if err != nil {
		return "", "", err
	}
	return dotted(tried), storePath, nil
}

func dotted(path []string) string {
	out := ""
	for i, p := range path {
		if i > 0 {
			out += "."
		}
		out += p
	}
	return out
}

func runProfileInstall(c *cliContext, args []string) error {
	fs := flag.NewFlagSet("profile install", flag.ContinueOnError)
	priority := fs.Int("priority", profile.DefaultPriority, "Conflict-resolution priority (lower wins)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	positional := fs.Args()
	if len(positional) != 1 {
		return fmt.Errorf("trix profile install: usage: trix profile install <installable>")
	}

	attrPath, storePath, err := buildInstallable(c, positional[0])
	if err != nil {
		return err
	}

	name := profile.DeriveElementName(attrPath, storePath)
	eng, err := c.profileEngine()
	if err != nil {
		return err
	}

	element := profile.Element{
		AttrPath:    attrPath,
		OriginalURL: positional[0],
		URL:         positional[0],
		StorePaths:  []string{storePath},
		Active:      true,
		Priority:    *priority,
	}
	if override, err := manifest.LoadProjectOverride("."); err == nil {
		element.Priority = override.Priority(*priority)
	}

	if err := eng.InstallElement(c.ctx, name, element); err != nil {
		return err
	}
	ui.Successf("installed %s (%s)", name, storePath)
	return nil
}

func runProfileRemove(c *cliContext, args []string) error {
	fs := flag.NewFlagSet("profile remove", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	positional := fs.Args()
	if len(positional) != 1 {
		return fmt.Errorf("trix profile remove: usage: trix profile remove NAME")
	}

	eng, err := c.profileEngine()
	if err != nil {
		return err
	}
	removed, err := eng.Remove(c.ctx, positional[0])
	if err != nil {
		return err
	}
	if !removed {
		ui.Warningf("%s is not installed", positional[0])
		return nil
	}
	ui.Successf("removed %s", positional[0])
	return nil
}

func runProfileList(c *cliContext, args []string) error {
	fs := flag.NewFlagSet("profile list", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	eng, err := c.profileEngine()
	if err != nil {
		return err
	}
	elements, err := eng.ListInstalled()
	if err != nil {
		return err
	}

	if c.jsonOutput {
		return output.JSON(elements)
	}
	ui.Header("Installed packages")
	for _, e := range elements {
		storePath := ""
		if len(e.Element.StorePaths) > 0 {
			storePath = e.Element.StorePaths[0]
		}
		fmt.Printf("%s  priority=%d  %s\n", ui.Label(e.Name), e.Element.Priority, ui.StorePathText(storePath))
	}
	fmt.Printf("%s package(s) installed\n", ui.CountText(len(elements)))
	return nil
}

func runProfileUpgrade(c *cliContext, args []string) error {
	fs := flag.NewFlagSet("profile upgrade", flag.ContinueOnError)
	refresh := fs.Bool("refresh", false, "Passed to the upgrade builder; this command's builder ignores it, so it has no effect")
	if err := fs.Parse(args); err != nil {
		return err
	}
	positional := fs.Args()
	name := ""
	if len(positional) == 1 {
		name = positional[0]
	}

	eng, err := c.profileEngine()
	if err != nil {
		return err
	}

	builder := func(ctx context.Context, elemName string, element profile.Element, refresh bool) (string, error) {
		_, storePath, err := buildInstallable(c, element.OriginalURL)
		return storePath, err
	}

	result, err := eng.Upgrade(c.ctx, name, *refresh, builder)
	if err != nil {
		return err
	}
	if c.jsonOutput {
		return output.JSON(result)
	}
	ui.Successf("upgraded %d, skipped %d", result.Upgraded, result.Skipped)
	return nil
}

func runProfileRollback(c *cliContext, args []string) error {
	fs := flag.NewFlagSet("profile rollback", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	eng, err := c.profileEngine()
	if err != nil {
		return err
	}
	generation, err := eng.Rollback()
	if err != nil {
		return err
	}
	ui.Successf("rolled back to generation %d", generation)
	return nil
}

func runProfileHistory(c *cliContext, args []string) error {
	fs := flag.NewFlagSet("profile history", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	eng, err := c.profileEngine()
	if err != nil {
		return err
	}
	history, err := eng.History()
	if err != nil {
		return err
	}

	if c.jsonOutput {
		return output.JSON(history)
	}
	for _, g := range history {
		marker := "  "
		if g.Current {
			marker = "->"
		}
		fmt.Printf("%s generation %d  (%s)\n", marker, g.Number, time.Unix(g.CreatedAt, 0).Format(time.RFC3339))
		for _, change := range g.Changes {
			switch change.Kind {
			case profile.ChangeAdded:
				fmt.Printf("    + %s %s\n", change.Name, change.New)
			case profile.ChangeRemoved:
				fmt.Printf("    - %s %s\n", change.Name, change.Old)
			case profile.ChangeRebuilt:
				fmt.Printf("    * %s %s (rebuilt)\n", change.Name, change.New)
			default:
				fmt.Printf("    ~ %s %s -> %s (%s)\n", change.Name, change.Old, change.New, change.Kind)
			}
		}
	}
	return nil
}

func runProfileDiff(c *cliContext, args []string) error {
	fs := flag.NewFlagSet("profile diff", flag.ContinueOnError)
	drv := fs.Bool("drv", false, "Diff two derivations' metadata instead of generation closures")
	if err := fs.Parse(args); err != nil {
		return err
	}

	eng, err := c.profileEngine()
	if err != nil {
		return err
	}

	if *drv {
		if fs.NArg() != 2 {
			return fmt.Errorf("trix profile diff --drv: expected exactly two derivation paths")
		}
		diff, err := eng.DiffDerivations(c.ctx, fs.Arg(0), fs.Arg(1))
		if err != nil {
			return err
		}
		if c.jsonOutput {
			return output.JSON(diff)
		}
		return printDerivationDiff(diff)
	}

	closureDiffs, err := eng.DiffClosures(c.ctx)
	if err != nil {
		return err
	}
	if c.jsonOutput {
		return output.JSON(closureDiffs)
	}
	data, err := json.MarshalIndent(closureDiffs, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func printDerivationDiff(diff *profile.DerivationDiff) error {
	for _, f := range diff.Fields {
		fmt.Printf("%s: %s -> %s\n", f.Field, f.Old, f.New)
	}
	for _, d := range diff.InputDrvs {
		switch d.Kind {
		case profile.ChangeAdded:
			fmt.Printf("input +%s (%s)\n", d.Name, d.New)
		case profile.ChangeRemoved:
			fmt.Printf("input -%s (%s)\n", d.Name, d.Old)
		default:
			fmt.Printf("input ~%s: %s -> %s\n", d.Name, d.Old, d.New)
		}
	}
	for _, s := range diff.SrcsAdded {
		fmt.Printf("source +%s\n", s)
	}
	for _, s := range diff.SrcsRemoved {
		fmt.Printf("source -%s\n", s)
	}
	for _, k := range diff.EnvAdded {
		fmt.Printf("env +%s\n", k)
	}
	for _, k := range diff.EnvRemoved {
		fmt.Printf("env -%s\n", k)
	}
	for _, f := range diff.EnvChanged {
		fmt.Printf("env ~%s\n", f.Field)
	}
	return nil
}

func runProfileWipeHistory(c *cliContext, args []string) error {
	fs := flag.NewFlagSet("profile wipe-history", flag.ContinueOnError)
	olderThan := fs.String("older-than", "", "Only wipe generations older than this (e.g. 30d)")
	dryRun := fs.Bool("dry-run", false, "Report what would be removed without removing it")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		duration     time.Duration
		hasOlderThan bool
	)
	if *olderThan != "" {
		d, err := profile.ParseOlderThan(*olderThan)
		if err != nil {
			return err
		}
		duration = d
		hasOlderThan = true
	}

	eng, err := c.profileEngine()
	if err != nil {
		return err
	}
	count, err := eng.WipeHistory(duration, hasOlderThan, *dryRun)
	if err != nil {
		return err
	}
	if *dryRun {
		ui.Infof("would remove %d generation(s)", count)
	} else {
		ui.Successf("removed %d generation(s)", count)
	}
	return nil
}

// nixBuildRemote shells out to the native `nix build` for a remote
// installable and returns the resulting store path: trix's own job stops
// at the local path, so it never reimplements evaluation or building of
// non-local installables.
func nixBuildRemote(ctx context.Context, installable string) (string, error) {
	cmd := exec.CommandContext(ctx, "nix", "build", "--no-link", "--print-out-paths", installable)
	cmd.Env = procenv.Environ()
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &bytes.Buffer{}
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("nix build %s: %w", installable, err)
	}
	return strings.TrimSpace(stdout.String()), nil
}
