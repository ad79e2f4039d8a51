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

package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/trixcli/trix/internal/errors"
	"github.com/trixcli/trix/internal/procenv"
	"github.com/trixcli/trix/pkg/lock"
	"github.com/trixcli/trix/pkg/reference"
	"github.com/trixcli/trix/pkg/registry"
)

// Client prefetches flake references. It satisfies pkg/lock.Fetcher.
type Client struct {
	// NixBin is the `nix` binary invoked for prefetching (default "nix").
	NixBin string

	// Resolver turns a KindIndirect reference into a concrete one before
	// prefetching. May be nil if the caller never passes bare/indirect
	// references (e.g. already resolved upstream).
	Resolver *registry.Resolver

	// UseGlobalRegistry controls whether indirect resolution consults the
	// global registry.
	UseGlobalRegistry bool

	Logger *slog.Logger
}

// NewClient returns a Client using the native `nix` binary.
func NewClient(resolver *registry.Resolver, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{NixBin: "nix", Resolver: resolver, UseGlobalRegistry: true, Logger: logger}
}

func (c *Client) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// Fetch resolves ref (if indirect) and pins it to a content-addressed
// source, reading back the fetched tree's own flake.lock for transitive
// merge. Path references are never copied into the store: they are
// pinned in place and their flake.lock (if any) is read directly from
// the working tree.
func (c *Client) Fetch(ctx context.Context, ref reference.Reference) (*lock.FetchResult, error) {
	runID := uuid.NewString()
	c.logger().Debug("fetch.start", "run_id", runID, "kind", ref.Kind, "ref", ref.String())

	resolved := ref
	if ref.Kind == reference.KindIndirect && c.Resolver != nil {
		target, err := c.Resolver.ResolveBare(ref.ID, c.UseGlobalRegistry)
		if err != nil {
			return nil, errors.NewResolveError(ref.ID, err)
		}
		if target == nil {
			return nil, errors.NewResolveError(ref.ID, nil)
		}
		resolved = *target
	}

	if resolved.IsLocal() {
		return c.fetchLocal(resolved)
	}
	return c.fetchRemote(ctx, runID, resolved)
}

func (c *Client) fetchLocal(ref reference.Reference) (*lock.FetchResult, error) {
	path := ref.Path
	locked := lock.Locked{Kind: "path", Path: path}
	original := lock.Original{Kind: "path", Path: path}

	isFlake := fileExists(filepath.Join(path, "flake.nix"))
	var graph *lock.Graph
	if isFlake {
		g, err := lock.Read(filepath.Join(path, "flake.lock"))
		if err != nil {
			return nil, err
		}
		graph = g
	}

	return &lock.FetchResult{Locked: locked, Original: original, IsFlake: isFlake, LockGraph: graph}, nil
}

// prefetchJSON is the subset of `nix flake prefetch --json`'s output
// this client relies on: the resolved store path and the fields needed
// to populate a Locked descriptor.
type prefetchJSON struct {
	StorePath string            `json:"storePath"`
	Hash      string            `json:"hash"`
	Locked    map[string]any    `json:"locked"`
	Original  map[string]any    `json:"original"`
}

func (c *Client) fetchRemote(ctx context.Context, runID string, ref reference.Reference) (*lock.FetchResult, error) {
	nixBin := c.NixBin
	if nixBin == "" {
		nixBin = "nix"
	}
	cmd := exec.CommandContext(ctx, nixBin, "flake", "prefetch", "--json", "--refresh", ref.String())
	cmd.Env = procenv.Environ()
	out, err := cmd.Output()
	if err != nil {
		return nil, errors.NewFetchError(fmt.Sprintf("prefetch %s failed", ref.String()), exitStderr(err), err)
	}

	var pj prefetchJSON
	if err := json.Unmarshal(out, &pj); err != nil {
		return nil, errors.NewFetchError("prefetch returned malformed JSON", err.Error(), err)
	}

	locked := buildLocked(ref, pj)
	original := buildOriginal(ref)

	isFlake := fileExists(filepath.Join(pj.StorePath, "flake.nix"))
	var graph *lock.Graph
	if isFlake {
		g, err := lock.Read(filepath.Join(pj.StorePath, "flake.lock"))
		if err != nil {
			return nil, err
		}
		graph = g
	}

	c.logger().Debug("fetch.done", "run_id", runID, "store_path", pj.StorePath)
	return &lock.FetchResult{Locked: locked, Original: original, IsFlake: isFlake, LockGraph: graph}, nil
}

func buildLocked(ref reference.Reference, pj prefetchJSON) lock.Locked {
	l := lock.Locked{Kind: string(ref.Kind), NarHash: firstString(pj.Locked, "narHash", "hash")}
	if l.NarHash == "" {
		l.NarHash = pj.Hash
	}
	switch ref.Kind {
	case reference.KindGitHub, reference.KindGitLab, reference.KindSourcehut:
		l.Owner = ref.Owner
		l.Repo = ref.Repo
		l.Rev = firstString(pj.Locked, "rev")
		l.Host = firstString(pj.Locked, "host")
	case reference.KindGit:
		l.URL = ref.URL
		l.Rev = firstString(pj.Locked, "rev")
		l.Ref = firstString(pj.Locked, "ref")
	case reference.KindTarball:
		l.URL = ref.URL
	}
	if lm, ok := pj.Locked["lastModified"].(float64); ok {
		l.LastModified = int64(lm)
	}
	return l
}

func buildOriginal(ref reference.Reference) lock.Original {
	o := lock.Original{Kind: string(ref.Kind)}
	switch ref.Kind {
	case reference.KindGitHub, reference.KindGitLab, reference.KindSourcehut:
		o.Owner, o.Repo, o.Ref = ref.Owner, ref.Repo, ref.Ref
	case reference.KindGit, reference.KindTarball:
		o.URL = ref.URL
		o.Ref = ref.Params["ref"]
	}
	return o
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func exitStderr(err error) string {
	if ee, ok := err.(*exec.ExitError); ok {
		return string(ee.Stderr)
	}
	return err.Error()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
