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

package bootstrap

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// HomeConfig controls where bootstrap locates (or creates) trix's
// per-user state: the user registry file, the profile directory, and the
// stable profile symlink.
type HomeConfig struct {
	// ConfigDir holds registry.json. Defaults to $XDG_CONFIG_HOME/trix,
	// falling back to $HOME/.config/trix.
	ConfigDir string

	// ProfileDir holds numbered profile-N-link generation symlinks and
	// each generation's manifest.json. Defaults to
	// $XDG_STATE_HOME/trix/profiles/default, falling back to
	// $HOME/.local/state/trix/profiles/default.
	ProfileDir string

	// ProfileLink is the stable symlink pointing at the active
	// generation. Defaults to $HOME/.nix-profile, matching the native
	// tool's layout so existing PATH setups keep working.
	ProfileLink string
}

// Home is the result of a successful bootstrap: resolved, existing
// directories ready for the registry resolver and profile engine to use.
type Home struct {
	ConfigDir    string
	RegistryFile string
	ProfileDir   string
	ProfileLink  string
}

// InitHome resolves HomeConfig defaults and ensures ConfigDir and
// ProfileDir exist. It is idempotent: calling it repeatedly on an
// already-initialized home is a no-op beyond the directory checks.
//
// Defaults are environment-driven, with a log line on start and success.
func InitHome(cfg HomeConfig, logger *slog.Logger) (*Home, error) {
	if logger == nil {
		logger = slog.Default()
	}

	resolved, err := resolveHomeConfig(cfg)
	if err != nil {
		return nil, err
	}

	logger.Info("bootstrap.home.init.start",
		"config_dir", resolved.ConfigDir,
		"profile_dir", resolved.ProfileDir,
	)

	if err := os.MkdirAll(resolved.ConfigDir, 0o755); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}
	if err := os.MkdirAll(resolved.ProfileDir, 0o755); err != nil {
		return nil, fmt.Errorf("create profile dir: %w", err)
	}

	home := &Home{
		ConfigDir:    resolved.ConfigDir,
		RegistryFile: filepath.Join(resolved.ConfigDir, "registry.json"),
		ProfileDir:   resolved.ProfileDir,
		ProfileLink:  resolved.ProfileLink,
	}

	logger.Info("bootstrap.home.init.success",
		"config_dir", home.ConfigDir,
		"profile_dir", home.ProfileDir,
	)

	return home, nil
}

// OpenHome resolves the same defaults as InitHome but requires ConfigDir
// to already exist; it performs no writes.
func OpenHome(cfg HomeConfig, logger *slog.Logger) (*Home, error) {
	if logger == nil {
		logger = slog.Default()
	}

	resolved, err := resolveHomeConfig(cfg)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(resolved.ConfigDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("trix home not found: %s (run any trix command once to initialize it)", resolved.ConfigDir)
	}

	logger.Debug("bootstrap.home.open",
		"config_dir", resolved.ConfigDir,
		"profile_dir", resolved.ProfileDir,
	)

	return &Home{
		ConfigDir:    resolved.ConfigDir,
		RegistryFile: filepath.Join(resolved.ConfigDir, "registry.json"),
		ProfileDir:   resolved.ProfileDir,
		ProfileLink:  resolved.ProfileLink,
	}, nil
}

// resolveHomeConfig fills in any zero-valued field of cfg from the
// environment (HOME, XDG_CONFIG_HOME, XDG_STATE_HOME).
func resolveHomeConfig(cfg HomeConfig) (HomeConfig, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("get home dir: %w", err)
	}

	if cfg.ConfigDir == "" {
		base := os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			base = filepath.Join(homeDir, ".config")
		}
		cfg.ConfigDir = filepath.Join(base, "trix")
	}
	if cfg.ProfileDir == "" {
		base := os.Getenv("XDG_STATE_HOME")
		if base == "" {
			base = filepath.Join(homeDir, ".local", "state")
		}
		cfg.ProfileDir = filepath.Join(base, "trix", "profiles", "default")
	}
	if cfg.ProfileLink == "" {
		cfg.ProfileLink = filepath.Join(homeDir, ".nix-profile")
	}

	return cfg, nil
}
