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

package output

import (
	"bytes"
	"strings"
	"testing"
)

// TestJSON verifies that JSON produces pretty-printed output with 2-space indentation.
func TestJSON(t *testing.T) {
	var buf bytes.Buffer

	data := map[string]any{
		"storePath":  "/nix/store/abcdefghijklmnopqrstuvwxyz012345-hello-2.12.1",
		"generation": 4,
	}

	if err := JSONTo(&buf, data); err != nil {
		t.Fatalf("JSONTo failed: %v", err)
	}

	output := buf.String()

	// Check for pretty-printing (2-space indentation)
	if !strings.Contains(output, "  \"storePath\"") {
		t.Errorf("Expected 2-space indentation, got: %s", output)
	}

	// Check for expected content
	if !strings.Contains(output, `"storePath": "/nix/store/abcdefghijklmnopqrstuvwxyz012345-hello-2.12.1"`) {
		t.Errorf("Missing storePath field, got: %s", output)
	}
	if !strings.Contains(output, `"generation": 4`) {
		t.Errorf("Missing generation field, got: %s", output)
	}

	// Check for trailing newline (json.Encoder adds it)
	if !strings.HasSuffix(output, "}\n") {
		t.Errorf("Expected trailing newline, got: %q", output)
	}
}

// TestJSONCompact verifies that JSONCompact produces single-line output,
// the form `trix eval --json` emits.
func TestJSONCompact(t *testing.T) {
	var buf bytes.Buffer

	data := map[string]any{
		"value": "/nix/store/abcdefghijklmnopqrstuvwxyz012345-hello-2.12.1",
	}

	if err := JSONCompactTo(&buf, data); err != nil {
		t.Fatalf("JSONCompactTo failed: %v", err)
	}

	output := buf.String()

	// Compact output should not have indentation
	if strings.Contains(output, "  ") {
		t.Errorf("Compact JSON should not have indentation, got: %s", output)
	}

	// Check for expected content (on single line)
	if !strings.Contains(output, `"value":"/nix/store/`) {
		t.Errorf("Missing value field in compact output, got: %s", output)
	}
}

// TestJSONSpecialCharacters verifies proper handling of special characters,
// which reach this encoder through evaluator error text and file paths.
func TestJSONSpecialCharacters(t *testing.T) {
	var buf bytes.Buffer

	data := map[string]string{
		"error": "attribute \"foo\" missing at <trix>/flake.nix:3",
		"path":  "/home/user/my project\tdir",
	}

	if err := JSONTo(&buf, data); err != nil {
		t.Fatalf("JSONTo failed: %v", err)
	}

	output := buf.String()

	// JSON should properly escape quotes
	if !strings.Contains(output, `\"foo\"`) {
		t.Errorf("Expected escaped quotes, got: %s", output)
	}

	// JSON should properly escape tabs
	if !strings.Contains(output, `\t`) {
		t.Errorf("Expected escaped tab, got: %s", output)
	}
}

// TestJSONStructWithTags verifies that struct JSON tags are respected,
// since the lock-graph and manifest wire structs rely on them.
func TestJSONStructWithTags(t *testing.T) {
	type element struct {
		AttrPath    string `json:"attrPath"`
		Priority    int    `json:"priority"`
		OriginalURL string `json:"originalUrl,omitempty"`
		Scratch     string `json:"-"`
	}

	var buf bytes.Buffer

	data := element{
		AttrPath:    "packages.x86_64-linux.hello",
		Priority:    5,
		OriginalURL: "", // Should be omitted
		Scratch:     "should-not-appear",
	}

	if err := JSONTo(&buf, data); err != nil {
		t.Fatalf("JSONTo failed: %v", err)
	}

	output := buf.String()

	// Check that tags are respected
	if !strings.Contains(output, `"attrPath"`) {
		t.Errorf("Expected attrPath (not AttrPath), got: %s", output)
	}

	// Check omitempty
	if strings.Contains(output, `"originalUrl"`) {
		t.Errorf("Expected originalUrl to be omitted, got: %s", output)
	}

	// Check ignored field
	if strings.Contains(output, "should-not-appear") {
		t.Errorf("Expected Scratch to be excluded, got: %s", output)
	}
}

// TestJSONNestedStructure verifies proper handling of nested structures
// like the lock graph's node map.
func TestJSONNestedStructure(t *testing.T) {
	type locked struct {
		Rev string `json:"rev"`
	}
	type node struct {
		Name   string `json:"name"`
		Locked locked `json:"locked"`
	}

	var buf bytes.Buffer

	data := node{
		Name:   "nixpkgs",
		Locked: locked{Rev: "abc123"},
	}

	if err := JSONTo(&buf, data); err != nil {
		t.Fatalf("JSONTo failed: %v", err)
	}

	output := buf.String()

	if !strings.Contains(output, `"locked": {`) {
		t.Errorf("Expected nested object, got: %s", output)
	}
	if !strings.Contains(output, `"rev": "abc123"`) {
		t.Errorf("Expected nested value, got: %s", output)
	}
}

// TestJSONNilValue verifies proper handling of nil values.
func TestJSONNilValue(t *testing.T) {
	var buf bytes.Buffer

	type maybeNil struct {
		Ptr *string `json:"ptr"`
	}

	data := maybeNil{Ptr: nil}

	if err := JSONTo(&buf, data); err != nil {
		t.Fatalf("JSONTo failed: %v", err)
	}

	output := buf.String()

	if !strings.Contains(output, `"ptr": null`) {
		t.Errorf("Expected null for nil pointer, got: %s", output)
	}
}
