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

	"github.com/trixcli/trix/internal/output"
	"github.com/trixcli/trix/internal/ui"
	"github.com/trixcli/trix/pkg/reference"
)

func runRegistry(c *cliContext, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("trix registry: missing subcommand (add, remove, pin, list)")
	}
	switch args[0] {
	case "add":
		return runRegistryAdd(c, args[1:])
	case "remove":
		return runRegistryRemove(c, args[1:])
	case "pin":
		return runRegistryPin(c, args[1:])
	case "list":
		return runRegistryList(c, args[1:])
	default:
		return fmt.Errorf("trix registry: unknown subcommand %q", args[0])
	}
}

func runRegistryAdd(c *cliContext, args []string) error {
	fs := flag.NewFlagSet("registry add", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	positional := fs.Args()
	if len(positional) != 2 {
		return fmt.Errorf("trix registry add: usage: trix registry add ID REFERENCE")
	}

	target, err := reference.Parse(positional[1])
	if err != nil {
		return err
	}

	resolver, err := c.registryResolver()
	if err != nil {
		return err
	}
	if err := resolver.Add(positional[0], target.Ref); err != nil {
		return err
	}
	ui.Successf("registered %s -> %s", positional[0], target.Ref.String())
	return nil
}

func runRegistryRemove(c *cliContext, args []string) error {
	fs := flag.NewFlagSet("registry remove", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	positional := fs.Args()
	if len(positional) != 1 {
		return fmt.Errorf("trix registry remove: usage: trix registry remove ID")
	}

	resolver, err := c.registryResolver()
	if err != nil {
		return err
	}
	removed, err := resolver.Remove(positional[0])
	if err != nil {
		return err
	}
	if !removed {
		ui.Warningf("%s was not registered", positional[0])
		return nil
	}
	ui.Successf("removed %s", positional[0])
	return nil
}

func runRegistryPin(c *cliContext, args []string) error {
	fs := flag.NewFlagSet("registry pin", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	positional := fs.Args()
	if len(positional) != 2 {
		return fmt.Errorf("trix registry pin: usage: trix registry pin ID REFERENCE")
	}

	target, err := reference.Parse(positional[1])
	if err != nil {
		return err
	}

	resolver, err := c.registryResolver()
	if err != nil {
		return err
	}

	// Pinning preserves whichever fields the caller already had
	// registered and only overwrites the ones supplied now, rather than
	// replacing the entry wholesale with a rev but no ref.
	if existing, err := resolver.ResolveBare(positional[0], false); err == nil && existing != nil {
		merged := *existing
		if target.Ref.Owner != "" {
			merged.Owner = target.Ref.Owner
		}
		if target.Ref.Repo != "" {
			merged.Repo = target.Ref.Repo
		}
		if target.Ref.Ref != "" {
			merged.Ref = target.Ref.Ref
		}
		if target.Ref.URL != "" {
			merged.URL = target.Ref.URL
		}
		if target.Ref.Path != "" {
			merged.Path = target.Ref.Path
		}
		for k, v := range target.Ref.Params {
			if merged.Params == nil {
				merged.Params = map[string]string{}
			}
			merged.Params[k] = v
		}
		target.Ref = merged
	}

	if err := resolver.Pin(positional[0], target.Ref); err != nil {
		return err
	}
	ui.Successf("pinned %s -> %s", positional[0], target.Ref.String())
	return nil
}

func runRegistryList(c *cliContext, args []string) error {
	fs := flag.NewFlagSet("registry list", flag.ContinueOnError)
	useGlobal := fs.Bool("global", false, "Include the global registry")
	if err := fs.Parse(args); err != nil {
		return err
	}

	resolver, err := c.registryResolver()
	if err != nil {
		return err
	}
	entries, err := resolver.List(*useGlobal)
	if err != nil {
		return err
	}

	if c.jsonOutput {
		return output.JSON(entries)
	}
	for _, e := range entries {
		fmt.Printf("[%s] %s -> %s\n", e.Source, e.FromID, e.ToRef.String())
	}
	return nil
}
