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

package lock

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// InitResult summarizes what InitFromTemplate did, for the CLI layer to
// report to the user.
type InitResult struct {
	CopiedFiles  []string
	SkippedFiles []string
}

// InitFromTemplate copies every file under templateDir into targetDir,
// preserving relative structure. Existing files are left untouched
// unless overwrite is set, matching `flake init` (skip) versus
// `flake new` (overwrite) in the native tool. Files are copied with a
// writable mode even when the source is read-only, since template
// sources are commonly fetched from a read-only store path.
func InitFromTemplate(templateDir, targetDir string, overwrite bool) (*InitResult, error) {
	result := &InitResult{}

	err := filepath.Walk(templateDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(templateDir, path)
		if err != nil {
			return fmt.Errorf("relativize template path %s: %w", path, err)
		}
		dest := filepath.Join(targetDir, rel)

		if _, err := os.Stat(dest); err == nil && !overwrite {
			result.SkippedFiles = append(result.SkippedFiles, rel)
			return nil
		}

		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return fmt.Errorf("create parent dir for %s: %w", rel, err)
		}
		if err := copyFile(path, dest, info); err != nil {
			return fmt.Errorf("copy %s: %w", rel, err)
		}
		result.CopiedFiles = append(result.CopiedFiles, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func copyFile(src, dest string, info os.FileInfo) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	mode := info.Mode() | 0o200
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Chmod(mode)
}
