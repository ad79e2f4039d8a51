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
	"os"

	"gopkg.in/yaml.v3"
)

// ProjectOverride is the optional trix.yaml file a project may carry
// alongside its flake.nix to adjust install-time defaults without
// touching the flake itself. Every field is optional; a missing file is
// not an error and produces a zero-value ProjectOverride.
type ProjectOverride struct {
	// DefaultPriority overrides the manifest element's default priority
	// (normally 5) applied when this project is installed without an
	// explicit --priority flag.
	DefaultPriority *int `yaml:"defaultPriority"`

	// System is the system triple given in trix.yaml. It is parsed and
	// returned, but attribute-path expansion does not read it.
	System string `yaml:"system"`
}

// LoadProjectOverride reads trix.yaml from projectDir, if present.
func LoadProjectOverride(projectDir string) (*ProjectOverride, error) {
	data, err := os.ReadFile(projectDir + "/trix.yaml")
	if err != nil {
		if os.IsNotExist(err) {
			return &ProjectOverride{}, nil
		}
		return nil, err
	}

	var override ProjectOverride
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, err
	}
	return &override, nil
}

// Priority resolves the effective install priority: the override's
// DefaultPriority if set, otherwise fallback.
func (o *ProjectOverride) Priority(fallback int) int {
	if o == nil || o.DefaultPriority == nil {
		return fallback
	}
	return *o.DefaultPriority
}
