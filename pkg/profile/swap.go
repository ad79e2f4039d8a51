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
	"os"
	"path/filepath"

	"github.com/trixcli/trix/internal/errors"
	"github.com/trixcli/trix/internal/metrics"
)

// SwitchProfile atomically makes newStorePath the active generation: it
// creates the next-numbered "profile-N-link" symlink, then rename(2)s a
// freshly-created temp symlink over ProfileLink. rename is the
// linearisation point: a reader following ProfileLink at any instant
// sees either the old generation or the new one, never a half-updated
// state.
func (e *Engine) SwitchProfile(newStorePath string) (err error) {
	defer func() { metrics.RecordProfileSwap(err == nil) }()

	if mkErr := os.MkdirAll(e.Home.ProfileDir, 0o755); mkErr != nil {
		return errors.NewProfileError(errors.ProfileBuildFailed, "create profile directory", mkErr)
	}

	next, genErr := e.NextGenerationNumber()
	if genErr != nil {
		return genErr
	}

	genLink := filepath.Join(e.Home.ProfileDir, generationLinkName(next))
	if linkErr := os.Symlink(newStorePath, genLink); linkErr != nil {
		return errors.NewProfileError(errors.ProfileBuildFailed, "create generation symlink", linkErr)
	}

	tempLink := e.Home.ProfileLink + ".tmp"
	_ = os.Remove(tempLink)
	if linkErr := os.Symlink(genLink, tempLink); linkErr != nil {
		return errors.NewProfileError(errors.ProfileBuildFailed, "create temp profile symlink", linkErr)
	}
	if renErr := os.Rename(tempLink, e.Home.ProfileLink); renErr != nil {
		return errors.NewProfileError(errors.ProfileBuildFailed, "swap profile symlink", renErr)
	}

	e.logger().Info("profile.switch", "generation", next, "store_path", newStorePath)
	return nil
}
