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
	"context"
	"log/slog"

	"github.com/trixcli/trix/internal/bootstrap"
	"github.com/trixcli/trix/pkg/eval"
	"github.com/trixcli/trix/pkg/fetch"
	"github.com/trixcli/trix/pkg/profile"
	"github.com/trixcli/trix/pkg/registry"
)

// cliContext carries the global flags and lazily-constructed engines
// shared by every subcommand. Engines are built on first use so
// subcommands that never touch the registry or profile pay no setup
// cost for them.
type cliContext struct {
	ctx        context.Context
	logger     *slog.Logger
	jsonOutput bool
	debug      bool
	homeDir    string

	home     *bootstrap.Home
	resolver *registry.Resolver
	fetcher  *fetch.Client
	engine   *eval.Engine
	profiles *profile.Engine
}

// openHome resolves (initializing if necessary) trix's per-user home
// directory, caching the result on first call.
func (c *cliContext) openHome() (*bootstrap.Home, error) {
	if c.home != nil {
		return c.home, nil
	}
	home, err := bootstrap.InitHome(bootstrap.HomeConfig{ConfigDir: c.homeDir}, c.logger)
	if err != nil {
		return nil, err
	}
	c.home = home
	return home, nil
}

func (c *cliContext) registryResolver() (*registry.Resolver, error) {
	if c.resolver != nil {
		return c.resolver, nil
	}
	home, err := c.openHome()
	if err != nil {
		return nil, err
	}
	c.resolver = registry.NewResolver(home.RegistryFile, c.logger)
	return c.resolver, nil
}

func (c *cliContext) fetchClient() (*fetch.Client, error) {
	if c.fetcher != nil {
		return c.fetcher, nil
	}
	resolver, err := c.registryResolver()
	if err != nil {
		return nil, err
	}
	c.fetcher = fetch.NewClient(resolver, c.logger)
	return c.fetcher, nil
}

func (c *cliContext) evalEngine() *eval.Engine {
	if c.engine != nil {
		return c.engine
	}
	c.engine = eval.NewEngine(c.logger)
	c.engine.Debug = c.debug
	return c.engine
}

func (c *cliContext) profileEngine() (*profile.Engine, error) {
	if c.profiles != nil {
		return c.profiles, nil
	}
	home, err := c.openHome()
	if err != nil {
		return nil, err
	}
	c.profiles = profile.NewEngine(home, c.logger)
	return c.profiles, nil
}
