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

package manifest

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	trixerrors "github.com/trixcli/trix/internal/errors"
	"github.com/trixcli/trix/pkg/eval"
)

// supportedNixConfigKeys lists the nixConfig attributes trix honors.
// Everything else is accepted by the native evaluator but has no effect
// here, so it is worth a warning rather than silent divergence.
var supportedNixConfigKeys = map[string]bool{
	"bash-prompt":        true,
	"bash-prompt-prefix": true,
	"bash-prompt-suffix": true,
}

// WarnUnsupportedNixConfig logs a warning for every key under a flake's
// nixConfig attribute that trix does not interpret. It never returns an
// error for an unsupported key, and never fails the caller's operation;
// nixConfig is advisory, and an unsupported key is never promoted to a
// hard error, not even for security-adjacent keys like
// allow-import-from-derivation.
func WarnUnsupportedNixConfig(ctx context.Context, engine *eval.Engine, flakeDir string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	absDir, err := filepath.Abs(flakeDir)
	if err != nil {
		return fmt.Errorf("resolve flake directory %s: %w", flakeDir, err)
	}

	root, err := engine.EvalString(ctx, fmt.Sprintf("import %s", nixPathLiteral(filepath.Join(absDir, "flake.nix"))))
	if err != nil {
		return err
	}

	nixConfig, err := root.GetAttr(ctx, "nixConfig")
	if err != nil {
		if trixerrors.IsAttrNotFound(err) {
			return nil
		}
		return err
	}

	names, err := nixConfig.GetAttrNames(ctx)
	if err != nil {
		return err
	}

	for _, name := range names {
		if !supportedNixConfigKeys[name] {
			logger.Warn("nixConfig key is not supported by trix", "key", name)
		}
	}
	return nil
}

// nixPathLiteral renders an absolute filesystem path as a parenthesized
// Nix path expression: the root path plus the path as a quoted string,
// so paths with spaces or other characters outside Nix's bare path
// syntax are accepted.
func nixPathLiteral(absPath string) string {
	escaped := strings.ReplaceAll(absPath, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "${", `\${`)
	return `(/. + "` + escaped + `")`
}
