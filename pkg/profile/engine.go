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

package profile

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/trixcli/trix/internal/bootstrap"
	"github.com/trixcli/trix/internal/errors"
)

// Engine binds the profile operations below to one user's home
// (bootstrap.Home), exactly as pkg/registry.Resolver binds registry
// lookups to a config directory.
type Engine struct {
	Home *bootstrap.Home

	// NixStoreBin and NixBin name the native binaries this package
	// shells out to for store adds, closures, and path sizes. They
	// default to the bare names, resolved via $PATH.
	NixStoreBin string
	NixBin      string

	Logger *slog.Logger
}

// NewEngine returns an Engine rooted at home.
func NewEngine(home *bootstrap.Home, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{Home: home, NixStoreBin: "nix-store", NixBin: "nix", Logger: logger}
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

func (e *Engine) nixStore() string {
	if e.NixStoreBin == "" {
		return "nix-store"
	}
	return e.NixStoreBin
}

func (e *Engine) nix() string {
	if e.NixBin == "" {
		return "nix"
	}
	return e.NixBin
}

// generationPrefix and generationSuffix bound the "profile-N-link"
// naming scheme every generation symlink follows.
const (
	generationPrefix = "profile-"
	generationSuffix = "-link"
)

// ParseGenerationNumber extracts N from a "profile-N-link" filename, or
// reports false if name does not match that shape.
func ParseGenerationNumber(name string) (int, bool) {
	if !strings.HasPrefix(name, generationPrefix) || !strings.HasSuffix(name, generationSuffix) {
		return 0, false
	}
	middle := strings.TrimSuffix(strings.TrimPrefix(name, generationPrefix), generationSuffix)
	n, err := strconv.Atoi(middle)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// generationLinkName formats a generation's symlink name.
func generationLinkName(n int) string {
	return fmt.Sprintf("%s%d%s", generationPrefix, n, generationSuffix)
}

// NextGenerationNumber scans ProfileDir for existing "profile-N-link"
// entries and returns one past the highest N found, or 1 if there are
// none.
func (e *Engine) NextGenerationNumber() (int, error) {
	entries, err := os.ReadDir(e.Home.ProfileDir)
	if os.IsNotExist(err) {
		return 1, nil
	}
	if err != nil {
		return 0, errors.NewProfileError(errors.ProfileManifest, "list profile directory", err)
	}

	max := 0
	for _, entry := range entries {
		if n, ok := ParseGenerationNumber(entry.Name()); ok && n > max {
			max = n
		}
	}
	return max + 1, nil
}

// CurrentProfilePath resolves the active generation's store path by
// following the stable ProfileLink symlink. Returns a ProfileNoProfile
// error with a friendly fix hint if no profile has ever been installed.
func (e *Engine) CurrentProfilePath() (string, error) {
	target, err := filepath.EvalSymlinks(e.Home.ProfileLink)
	if err != nil {
		return "", errors.NewProfileError(errors.ProfileNoProfile, "no profile installed yet", err)
	}
	return target, nil
}

// CurrentManifest reads the active generation's manifest.json, returning
// a fresh empty manifest if no profile exists yet: operations on a
// brand-new home start from nothing, not an error.
func (e *Engine) CurrentManifest() (*Manifest, error) {
	target, err := e.CurrentProfilePath()
	if err != nil {
		if te, ok := err.(*errors.TrixError); ok && te.Kind == "ProfileError."+string(errors.ProfileNoProfile) {
			return NewManifest(), nil
		}
		return nil, err
	}
	return readManifestAt(target)
}

// readManifestAt reads manifest.json from a generation's store path
// directory, returning a fresh empty manifest if the file is absent.
func readManifestAt(generationPath string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(generationPath, "manifest.json"))
	if os.IsNotExist(err) {
		return NewManifest(), nil
	}
	if err != nil {
		return nil, errors.NewProfileError(errors.ProfileManifest, "read manifest.json", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.NewProfileError(errors.ProfileManifest, "parse manifest.json", err)
	}
	if m.Elements == nil {
		m.Elements = map[string]Element{}
	}
	return &m, nil
}

// ListInstalled returns the current manifest's elements as a
// name-sorted slice, for stable CLI output.
func (e *Engine) ListInstalled() ([]NamedElement, error) {
	m, err := e.CurrentManifest()
	if err != nil {
		return nil, err
	}
	out := make([]NamedElement, 0, len(m.Elements))
	for name, elem := range m.Elements {
		out = append(out, NamedElement{Name: name, Element: elem})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// NamedElement pairs a manifest key with its element, for ordered
// iteration where a plain map would not do.
type NamedElement struct {
	Name    string
	Element Element
}
