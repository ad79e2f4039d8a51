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

// Package profile implements the user-facing generation system: a
// versioned manifest, numbered generation symlinks, atomic swap of the
// active profile, priority-based conflict resolution, and
// rollback/history/diff over past generations.
package profile

import "encoding/json"

// ManifestVersion is the only manifest schema version this package
// produces or expects to read.
const ManifestVersion = 3

// DefaultPriority is the priority a manifest element receives when the
// caller does not request one explicitly: lower numbers win
// conflicts.
const DefaultPriority = 5

// Manifest is the versioned JSON structure recorded at
// <generation>/manifest.json, mapping an installed package's name to its
// element.
type Manifest struct {
	Version  int                 `json:"version"`
	Elements map[string]Element `json:"elements"`
}

// NewManifest returns an empty, version-3 manifest.
func NewManifest() *Manifest {
	return &Manifest{Version: ManifestVersion, Elements: map[string]Element{}}
}

// Element is one installed package's manifest entry.
//
// Active defaults to true and Priority to DefaultPriority when absent
// from JSON. These are the places this package's wire format diverges
// from a naive zero-value decode, so Element carries a custom
// (Un)MarshalJSON pair to apply those defaults instead of Go's usual
// zero values (false and 0).
type Element struct {
	AttrPath    string          `json:"attrPath,omitempty"`
	OriginalURL string          `json:"originalUrl,omitempty"`
	URL         string          `json:"url,omitempty"`
	Outputs     json.RawMessage `json:"outputs,omitempty"`
	StorePaths  []string        `json:"storePaths"`
	Active      bool            `json:"active"`
	Priority    int             `json:"priority"`
}

// elementWire mirrors Element but with Active as a pointer, so decoding
// can distinguish "absent" (defaults to true) from "explicitly false".
type elementWire struct {
	AttrPath    string          `json:"attrPath,omitempty"`
	OriginalURL string          `json:"originalUrl,omitempty"`
	URL         string          `json:"url,omitempty"`
	Outputs     json.RawMessage `json:"outputs,omitempty"`
	StorePaths  []string        `json:"storePaths"`
	Active      *bool           `json:"active,omitempty"`
	Priority    int             `json:"priority"`
}

// MarshalJSON always writes Active explicitly, never omitting it, so a
// round-tripped manifest is byte-for-byte stable.
func (e Element) MarshalJSON() ([]byte, error) {
	return json.Marshal(elementWire{
		AttrPath:    e.AttrPath,
		OriginalURL: e.OriginalURL,
		URL:         e.URL,
		Outputs:     e.Outputs,
		StorePaths:  e.StorePaths,
		Active:      &e.Active,
		Priority:    e.Priority,
	})
}

// UnmarshalJSON applies Active's true default and Priority's 5 default
// when either key is missing from the input.
func (e *Element) UnmarshalJSON(data []byte) error {
	var wire elementWire
	wire.Priority = DefaultPriority
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	active := true
	if wire.Active != nil {
		active = *wire.Active
	}
	*e = Element{
		AttrPath:    wire.AttrPath,
		OriginalURL: wire.OriginalURL,
		URL:         wire.URL,
		Outputs:     wire.Outputs,
		StorePaths:  wire.StorePaths,
		Active:      active,
		Priority:    wire.Priority,
	}
	return nil
}
