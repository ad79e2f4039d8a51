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
	"path/filepath"
	"sort"
	"time"

	trixerrors "github.com/trixcli/trix/internal/errors"
	"github.com/trixcli/trix/internal/metrics"
	"github.com/trixcli/trix/internal/output"
	"github.com/trixcli/trix/internal/ui"
	"github.com/trixcli/trix/pkg/eval"
	"github.com/trixcli/trix/pkg/lock"
	"github.com/trixcli/trix/pkg/manifest"
)

func runFlake(c *cliContext, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("trix flake: missing subcommand (lock, show, check, metadata, init, why-depends)")
	}
	switch args[0] {
	case "lock":
		return runFlakeLock(c, args[1:])
	case "show":
		return runFlakeShow(c, args[1:])
	case "check":
		return runFlakeCheck(c, args[1:])
	case "metadata":
		return runFlakeMetadata(c, args[1:])
	case "init":
		return runFlakeInit(c, args[1:])
	case "why-depends":
		return runFlakeWhyDepends(c, args[1:])
	default:
		return fmt.Errorf("trix flake: unknown subcommand %q", args[0])
	}
}

// refreshInputs reads flakeDir's declared `inputs` and the existing
// flake.lock, refreshes every input named in updateOnly (or all of them
// when updateOnly is empty), applies each input's own sub-follows
// overrides, and writes the result back.
func refreshInputs(c *cliContext, flakeDir string, updateOnly map[string]bool) (*lock.Graph, error) {
	lockPath := filepath.Join(flakeDir, "flake.lock")
	graph, err := lock.Read(lockPath)
	if err != nil {
		return nil, err
	}

	meta, err := manifest.ReadFlakeMeta(c.ctx, c.evalEngine(), flakeDir)
	if err != nil {
		return nil, err
	}
	if err := manifest.WarnUnsupportedNixConfig(c.ctx, c.evalEngine(), flakeDir, c.logger); err != nil {
		c.logger.Warn("flake.nixconfig.warn.failed", "err", err)
	}

	fetcher, err := c.fetchClient()
	if err != nil {
		return nil, err
	}

	root := graph.RootNode()
	declaredNames := map[string]bool{}

	for _, input := range meta.Inputs {
		declaredNames[input.Name] = true

		if input.FollowsRoot != "" {
			root.Inputs[input.Name] = lock.FollowsRef([]string{input.FollowsRoot})
			continue
		}

		_, alreadyLocked := root.Inputs[input.Name]
		if len(updateOnly) > 0 && !updateOnly[input.Name] && alreadyLocked {
			continue
		}

		c.logger.Info("lock.refresh.start", "input", input.Name)
		start := time.Now()
		err := graph.RefreshInput(c.ctx, input.Name, input.Ref, fetcher)
		metrics.RecordLockRefresh(time.Since(start).Seconds(), err == nil)
		if err != nil {
			return nil, err
		}
		c.logger.Info("lock.refresh.done", "input", input.Name)

		node := graph.Nodes[input.Name]
		for subName, rootTarget := range input.SubFollows {
			node.Inputs[subName] = lock.FollowsRef([]string{rootTarget})
		}
	}

	// Prune inputs no longer declared in flake.nix; their nodes are
	// garbage-collected below.
	for name := range root.Inputs {
		if !declaredNames[name] {
			delete(root.Inputs, name)
		}
	}
	gcUnreachable(graph)

	if err := graph.Write(lockPath); err != nil {
		return nil, err
	}
	return graph, nil
}

// gcUnreachable drops every node the root cannot reach through Direct
// input references, matching the "garbage collected" pruning
// rule. Follows edges carry no ownership of a node, so only Direct
// edges count toward reachability.
func gcUnreachable(graph *lock.Graph) {
	reachable := map[string]bool{graph.Root: true}
	queue := []string{graph.Root}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		node, ok := graph.Nodes[cur]
		if !ok {
			continue
		}
		for _, ref := range node.Inputs {
			if ref.IsFollows {
				continue
			}
			if !reachable[ref.Direct] {
				reachable[ref.Direct] = true
				queue = append(queue, ref.Direct)
			}
		}
	}
	for name := range graph.Nodes {
		if !reachable[name] {
			delete(graph.Nodes, name)
		}
	}
}

func runFlakeLock(c *cliContext, args []string) error {
	fs := flag.NewFlagSet("flake lock", flag.ContinueOnError)
	dir := fs.String("dir", ".", "Path to the project containing flake.nix")
	var updateInputs stringListFlag
	fs.Var(&updateInputs, "update-input", "Refresh only this input (repeatable); refreshes all when omitted")
	if err := fs.Parse(args); err != nil {
		return err
	}

	updateOnly := map[string]bool{}
	for _, name := range updateInputs {
		updateOnly[name] = true
	}

	graph, err := refreshInputs(c, *dir, updateOnly)
	if err != nil {
		return err
	}

	if c.jsonOutput {
		return output.JSON(graph)
	}
	ui.Success(fmt.Sprintf("wrote flake.lock with %d input(s)", len(graph.RootNode().Inputs)))
	return nil
}

func runFlakeMetadata(c *cliContext, args []string) error {
	fs := flag.NewFlagSet("flake metadata", flag.ContinueOnError)
	dir := fs.String("dir", ".", "Path to the project containing flake.nix")
	if err := fs.Parse(args); err != nil {
		return err
	}

	graph, err := lock.Read(filepath.Join(*dir, "flake.lock"))
	if err != nil {
		return err
	}
	meta, err := manifest.ReadFlakeMeta(c.ctx, c.evalEngine(), *dir)
	if err != nil {
		return err
	}

	type metadataOutput struct {
		Description string   `json:"description,omitempty"`
		Inputs      []string `json:"inputs"`
		LockVersion int      `json:"lockVersion"`
	}
	names := make([]string, 0, len(meta.Inputs))
	for _, in := range meta.Inputs {
		names = append(names, in.Name)
	}
	sort.Strings(names)
	out := metadataOutput{Description: meta.Description, Inputs: names, LockVersion: graph.Version}

	if c.jsonOutput {
		return output.JSON(out)
	}
	if out.Description != "" {
		fmt.Printf("%s %s\n", ui.Label("Description:"), out.Description)
	}
	fmt.Printf("%s\n", ui.Label("Inputs:"))
	for _, n := range names {
		fmt.Printf("  - %s\n", n)
	}
	return nil
}

func runFlakeShow(c *cliContext, args []string) error {
	fs := flag.NewFlagSet("flake show", flag.ContinueOnError)
	dir := fs.String("dir", ".", "Path to the project containing flake.nix")
	if err := fs.Parse(args); err != nil {
		return err
	}

	graph, err := lock.Read(filepath.Join(*dir, "flake.lock"))
	if err != nil {
		return err
	}

	engine := c.evalEngine()
	root, err := engine.EvalLocalFlakeAttr(c.ctx, *dir, graph, nil, nil)
	if err != nil {
		return err
	}

	systemKeyed := map[string]bool{
		"packages": true, "legacyPackages": true, "devShells": true,
		"apps": true, "checks": true, "formatter": true, "nixosConfigurations": true,
	}
	results := eval.EvalCategories(c.ctx, root, systemKeyed)

	if c.jsonOutput {
		return output.JSON(results)
	}
	for _, r := range results {
		if r.Err != nil || len(r.Systems) == 0 {
			continue
		}
		ui.SubHeader(r.Category)
		for system, names := range r.Systems {
			for _, name := range names {
				if system != "" {
					fmt.Printf("  %s.%s\n", system, name)
				} else {
					fmt.Printf("  %s\n", name)
				}
			}
		}
	}
	return nil
}

func runFlakeCheck(c *cliContext, args []string) error {
	fs := flag.NewFlagSet("flake check", flag.ContinueOnError)
	dir := fs.String("dir", ".", "Path to the project containing flake.nix")
	if err := fs.Parse(args); err != nil {
		return err
	}

	graph, err := lock.Read(filepath.Join(*dir, "flake.lock"))
	if err != nil {
		return err
	}

	engine := c.evalEngine()
	root, err := engine.EvalLocalFlakeAttr(c.ctx, *dir, graph, nil, nil)
	if err != nil {
		return err
	}

	checksValue, err := root.GetAttr(c.ctx, "checks")
	if err != nil {
		if trixerrors.IsAttrNotFound(err) {
			ui.Info("no checks defined")
			return nil
		}
		return err
	}

	systems, err := checksValue.GetAttrNames(c.ctx)
	if err != nil {
		return err
	}

	var targets []eval.CheckTarget
	for _, system := range systems {
		sysValue, err := checksValue.GetAttr(c.ctx, system)
		if err != nil {
			return err
		}
		names, err := sysValue.GetAttrNames(c.ctx)
		if err != nil {
			return err
		}
		for _, name := range names {
			v, err := sysValue.GetAttr(c.ctx, name)
			if err != nil {
				return err
			}
			targets = append(targets, eval.CheckTarget{System: system, Name: name, Value: v})
		}
	}

	results := engine.RunChecks(c.ctx, targets)

	if c.jsonOutput {
		return output.JSON(results)
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			ui.Errorf("%s.%s: %v", r.Target.System, r.Target.Name, r.Err)
			continue
		}
		ui.Successf("%s.%s -> %s", r.Target.System, r.Target.Name, r.StorePath)
	}
	if failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	return nil
}

func runFlakeInit(c *cliContext, args []string) error {
	fs := flag.NewFlagSet("flake init", flag.ContinueOnError)
	template := fs.String("template", "", "Path to the template flake to copy from")
	dir := fs.String("dir", ".", "Destination project directory")
	overwrite := fs.Bool("overwrite", false, "Overwrite existing files (flake new semantics)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *template == "" {
		return fmt.Errorf("trix flake init: --template is required")
	}

	if err := os.MkdirAll(*dir, 0o755); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}
	result, err := lock.InitFromTemplate(*template, *dir, *overwrite)
	if err != nil {
		return err
	}

	if c.jsonOutput {
		return output.JSON(result)
	}
	for _, f := range result.CopiedFiles {
		ui.Successf("wrote %s", f)
	}
	for _, f := range result.SkippedFiles {
		ui.Warningf("skipped existing %s", f)
	}
	return nil
}

func runFlakeWhyDepends(c *cliContext, args []string) error {
	fs := flag.NewFlagSet("flake why-depends", flag.ContinueOnError)
	dir := fs.String("dir", ".", "Path to the project containing flake.nix")
	if err := fs.Parse(args); err != nil {
		return err
	}
	positional := fs.Args()
	if len(positional) != 2 {
		return fmt.Errorf("trix flake why-depends: usage: trix flake why-depends FROM TO")
	}

	graph, err := lock.Read(filepath.Join(*dir, "flake.lock"))
	if err != nil {
		return err
	}

	path, err := graph.WhyDepends(positional[0], positional[1])
	if err != nil {
		return err
	}
	if c.jsonOutput {
		return output.JSON(path)
	}
	if len(path) == 0 {
		fmt.Printf("%s does not depend on %s\n", positional[0], positional[1])
		return nil
	}
	for _, step := range path {
		fmt.Printf("%s -[%s]-> %s\n", step.From, step.Input, step.To)
	}
	return nil
}

// stringListFlag accumulates repeated -flag values into a slice.
type stringListFlag []string

func (s *stringListFlag) String() string { return fmt.Sprint([]string(*s)) }
func (s *stringListFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}
