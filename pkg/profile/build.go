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
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trixcli/trix/internal/errors"
	"github.com/trixcli/trix/internal/procenv"
)

// prioritizedPath is one package's contribution of a single top-level
// profile entry (a file or directory directly under a store path),
// tagged with the priority of the element that contributed it.
type prioritizedPath struct {
	path     string
	priority int
}

// collectPackagePaths walks every active element's store paths and
// groups their top-level entries by name, so conflicting names can be
// resolved by priority.
func collectPackagePaths(m *Manifest) (map[string][]prioritizedPath, error) {
	result := map[string][]prioritizedPath{}

	for _, element := range m.Elements {
		if !element.Active {
			continue
		}
		for _, storePath := range element.StorePaths {
			info, err := os.Stat(storePath)
			if err != nil {
				if os.IsNotExist(err) {
					continue
				}
				return nil, err
			}
			if !info.IsDir() {
				continue
			}
			entries, err := os.ReadDir(storePath)
			if err != nil {
				return nil, err
			}
			for _, entry := range entries {
				name := entry.Name()
				if name == "manifest.json" || name == "nix-support" {
					continue
				}
				result[name] = append(result[name], prioritizedPath{
					path:     filepath.Join(storePath, name),
					priority: element.Priority,
				})
			}
		}
	}

	for name := range result {
		paths := result[name]
		sort.SliceStable(paths, func(i, j int) bool { return paths[i].priority < paths[j].priority })
		result[name] = paths
	}
	return result, nil
}

// buildMergedTree assembles dir as the merged profile tree: one symlink
// (or merged directory) per entry in packagePaths, the contributor with
// the lowest priority number (the highest priority) winning any name
// conflict.
func buildMergedTree(dir string, packagePaths map[string][]prioritizedPath) error {
	for name, targets := range packagePaths {
		dest := filepath.Join(dir, name)

		if len(targets) == 1 {
			if err := os.Symlink(targets[0].path, dest); err != nil {
				return err
			}
			continue
		}

		allDirs := true
		for _, t := range targets {
			info, err := os.Stat(t.path)
			if err != nil || !info.IsDir() {
				allDirs = false
				break
			}
		}

		if !allDirs {
			// Mixed types: the highest-priority (first, already sorted)
			// entry wins outright.
			if err := os.Symlink(targets[0].path, dest); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(dest, 0o755); err != nil {
			return err
		}
		for _, target := range targets {
			entries, err := os.ReadDir(target.path)
			if err != nil {
				return err
			}
			for _, entry := range entries {
				entryDest := filepath.Join(dest, entry.Name())
				if _, err := os.Lstat(entryDest); err == nil {
					continue // first (highest-priority) occurrence wins
				}
				if err := os.Symlink(filepath.Join(target.path, entry.Name()), entryDest); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// CreateGenerationStorePath builds a new user-environment tree for
// manifest: a scratch directory holding manifest.json plus the
// priority-merged package tree, added to the store as a single path.
// The scratch directory is rooted under /tmp
// explicitly, not whatever TMPDIR happens to point at, matching the
// rest of this module's TMPDIR-avoidance discipline for native-tool
// child processes.
func (e *Engine) CreateGenerationStorePath(ctx context.Context, m *Manifest) (string, error) {
	scratchRoot := filepath.Join("/tmp", "trix-profile-"+uuid.NewString())
	envDir := filepath.Join(scratchRoot, "user-environment")
	if err := os.MkdirAll(envDir, 0o755); err != nil {
		return "", errors.NewProfileError(errors.ProfileBuildFailed, "create scratch directory", err)
	}
	defer os.RemoveAll(scratchRoot)

	manifestJSON, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", errors.NewProfileError(errors.ProfileManifest, "encode manifest.json", err)
	}
	if err := os.WriteFile(filepath.Join(envDir, "manifest.json"), manifestJSON, 0o644); err != nil {
		return "", errors.NewProfileError(errors.ProfileBuildFailed, "write manifest.json", err)
	}

	packagePaths, err := collectPackagePaths(m)
	if err != nil {
		return "", errors.NewProfileError(errors.ProfileBuildFailed, "collect package paths", err)
	}
	if err := buildMergedTree(envDir, packagePaths); err != nil {
		return "", errors.NewProfileError(errors.ProfileBuildFailed, "merge package trees", err)
	}

	cmd := exec.CommandContext(ctx, e.nixStore(), "--add", envDir)
	cmd.Env = procenv.Environ()
	out, err := cmd.Output()
	if err != nil {
		return "", errors.NewProfileError(errors.ProfileBuildFailed, "nix-store --add failed: "+exitStderr(err), err)
	}
	return strings.TrimSpace(string(out)), nil
}

func exitStderr(err error) string {
	if ee, ok := err.(*exec.ExitError); ok {
		return string(ee.Stderr)
	}
	return err.Error()
}
