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

package registry

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/trixcli/trix/internal/contract"
	"github.com/trixcli/trix/pkg/reference"
)

// DefaultGlobalRegistryURL is the global registry the native tool ships
// with. Overridable per-Resolver for testing or air-gapped deployments.
const DefaultGlobalRegistryURL = "https://channels.nixos.org/flake-registry.json"

// DefaultSystemRegistryPath is the well-known system registry location.
const DefaultSystemRegistryPath = "/etc/nix/registry.json"

// globalCacheTTL is how long a fetched global registry is reused before
// the next resolve re-fetches it.
const globalCacheTTL = time.Hour

// Resolver performs layered bare-identifier resolution: user registry,
// then system registry, then (optionally) the global registry fetched
// over HTTP and cached in-process.
type Resolver struct {
	UserPath   string
	SystemPath string
	GlobalURL  string

	httpClient *http.Client
	logger     *slog.Logger

	mu            sync.Mutex
	globalCache   *wireFile
	globalCacheAt time.Time
}

// NewResolver creates a Resolver rooted at userPath (typically
// bootstrap.Home.RegistryFile). SystemPath and GlobalURL default to the
// native tool's well-known locations.
func NewResolver(userPath string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		UserPath:   userPath,
		SystemPath: DefaultSystemRegistryPath,
		GlobalURL:  DefaultGlobalRegistryURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		logger:     logger,
	}
}

// IsBareIdentifier reports whether s has the shape of a registry
// identifier rather than a path or a scheme-qualified reference.
func IsBareIdentifier(s string) bool {
	return contract.ValidateBareIdentifier(s).OK
}

// ResolveBare resolves id against the user registry, then the system
// registry, then (if useGlobal) the global registry. Returns nil, nil
// when no registry maps id.
func (r *Resolver) ResolveBare(id string, useGlobal bool) (*reference.Reference, error) {
	if ref := r.searchFile(r.loadLocalFile(r.UserPath), id); ref != nil {
		return ref, nil
	}
	if ref := r.searchFile(r.loadLocalFile(r.SystemPath), id); ref != nil {
		return ref, nil
	}
	if useGlobal {
		global, err := r.fetchGlobal()
		if err != nil {
			r.logger.Warn("registry.global.fetch.error", "err", err)
			return nil, nil
		}
		if ref := r.searchFile(global, id); ref != nil {
			return ref, nil
		}
	}
	return nil, nil
}

func (r *Resolver) searchFile(f wireFile, id string) *reference.Reference {
	for _, e := range f.entries() {
		if e.FromID == id {
			ref := e.ToRef
			return &ref
		}
	}
	return nil
}

// loadLocalFile reads and parses a registry file from disk, treating a
// missing or malformed file as empty rather than an error, mirroring
// the native tool's tolerant load path.
func (r *Resolver) loadLocalFile(path string) wireFile {
	if path == "" {
		return wireFile{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return wireFile{}
	}
	return decodeFile(data)
}

// fetchGlobal returns the cached global registry if still fresh,
// otherwise fetches it over HTTP and refreshes the cache. A fetch
// failure falls back to the last good cached copy, if any.
func (r *Resolver) fetchGlobal() (wireFile, error) {
	r.mu.Lock()
	if r.globalCache != nil && time.Since(r.globalCacheAt) < globalCacheTTL {
		cached := *r.globalCache
		r.mu.Unlock()
		return cached, nil
	}
	r.mu.Unlock()

	resp, err := r.httpClient.Get(r.GlobalURL)
	if err != nil {
		return r.staleOrEmpty(), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return r.staleOrEmpty(), fmt.Errorf("global registry fetch: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, int64(contract.SoftLimitBytes())))
	if err != nil {
		return r.staleOrEmpty(), nil
	}

	f := decodeFile(body)

	r.mu.Lock()
	r.globalCache = &f
	r.globalCacheAt = time.Now()
	r.mu.Unlock()

	return f, nil
}

func (r *Resolver) staleOrEmpty() wireFile {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.globalCache != nil {
		return *r.globalCache
	}
	return wireFile{}
}

// List returns every entry across the requested sources, tagged with
// which source ("user", "system", "global") it came from.
type ListedEntry struct {
	Entry
	Source string
}

// List returns the user and system registry entries, plus the global
// registry's entries when useGlobal is set.
func (r *Resolver) List(useGlobal bool) ([]ListedEntry, error) {
	var out []ListedEntry
	for _, e := range r.loadLocalFile(r.UserPath).entries() {
		out = append(out, ListedEntry{Entry: e, Source: "user"})
	}
	for _, e := range r.loadLocalFile(r.SystemPath).entries() {
		out = append(out, ListedEntry{Entry: e, Source: "system"})
	}
	if useGlobal {
		global, err := r.fetchGlobal()
		if err != nil {
			r.logger.Warn("registry.global.fetch.error", "err", err)
		} else {
			for _, e := range global.entries() {
				out = append(out, ListedEntry{Entry: e, Source: "global"})
			}
		}
	}
	return out, nil
}

// Add writes (or replaces) a user-registry entry mapping id to target.
func (r *Resolver) Add(id string, target reference.Reference) error {
	f := r.loadLocalFile(r.UserPath)
	if f.Version == 0 {
		f.Version = currentRegistryVersion
	}
	f.Flakes = removeEntry(f.Flakes, id)
	f.Flakes = append(f.Flakes, wireEntry{
		From: wireFrom{Type: "indirect", ID: id},
		To:   fromReference(target),
	})
	return r.writeUserFile(f)
}

// Remove deletes a user-registry entry. Returns false if no entry
// matched id.
func (r *Resolver) Remove(id string) (bool, error) {
	f := r.loadLocalFile(r.UserPath)
	before := len(f.Flakes)
	f.Flakes = removeEntry(f.Flakes, id)
	if len(f.Flakes) == before {
		return false, nil
	}
	return true, r.writeUserFile(f)
}

// Pin behaves like Add: it locks id to a single concrete reference
// (typically one carrying an explicit rev), so future resolution is
// stable until the user re-pins or removes it. Pin and Add share a
// write path since both replace the user-registry entry for id
// wholesale; the caller is expected to merge any fields it wants to
// keep from the existing entry before calling.
func (r *Resolver) Pin(id string, target reference.Reference) error {
	return r.Add(id, target)
}

func removeEntry(entries []wireEntry, id string) []wireEntry {
	out := entries[:0:0]
	for _, e := range entries {
		if e.From.Type == "indirect" && e.From.ID == id {
			continue
		}
		out = append(out, e)
	}
	return out
}

// writeUserFile performs an atomic write: a temp file in the same
// directory as UserPath, then a rename into place.
func (r *Resolver) writeUserFile(f wireFile) error {
	dir := filepath.Dir(r.UserPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create registry dir: %w", err)
	}

	data, err := encodeFile(f)
	if err != nil {
		return err
	}

	tmpPath := r.UserPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write registry temp: %w", err)
	}
	if err := os.Rename(tmpPath, r.UserPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename registry: %w", err)
	}
	return nil
}
