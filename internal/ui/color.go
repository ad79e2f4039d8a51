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

// Package ui provides the trix CLI's terminal output helpers: colored
// status lines for build/lock/profile operations and formatting for the
// store paths and generation listings those operations print.
//
// Colors follow the --no-color flag: InitColors sets fatih/color's
// global NoColor switch to the flag's value, which replaces the
// library's own NO_COLOR and terminal detection.
package ui

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Pre-configured color instances shared by every subcommand's output.
var (
	// Red is used for build and resolution failures.
	Red = color.New(color.FgRed)

	// Yellow is used for warnings (e.g. unsupported nixConfig keys).
	Yellow = color.New(color.FgYellow)

	// Green is used for successful builds, swaps, and lock writes.
	Green = color.New(color.FgGreen)

	// Cyan is used for neutral progress messages.
	Cyan = color.New(color.FgCyan)

	// Bold is used for headers and package names.
	Bold = color.New(color.Bold)

	// Dim is used for store-path hash prefixes and other detail text.
	Dim = color.New(color.Faint)
)

// InitColors configures global color output based on the --no-color
// flag: color.NoColor becomes exactly noColor, overriding the NO_COLOR
// and terminal detection fatih/color performs at start-up. Call it once
// in main() after flag parsing.
func InitColors(noColor bool) {
	color.NoColor = noColor
}

// Success prints a green success message with a checkmark prefix.
//
// Example output: "✓ Built /nix/store/abc123...-hello-2.12.1"
func Success(msg string) {
	_, _ = Green.Println("✓ " + msg)
}

// Successf prints a formatted green success message with a checkmark prefix.
func Successf(format string, args ...any) {
	_, _ = Green.Printf("✓ "+format+"\n", args...)
}

// Warning prints a yellow warning message with a warning symbol prefix.
//
// Example output: "⚠ Unsupported nixConfig key 'trusted-public-keys' ignored"
func Warning(msg string) {
	_, _ = Yellow.Println("⚠ " + msg)
}

// Warningf prints a formatted yellow warning message with a warning symbol prefix.
func Warningf(format string, args ...any) {
	_, _ = Yellow.Printf("⚠ "+format+"\n", args...)
}

// Error prints a red error message with an X prefix.
//
// Example output: "✗ Failed to resolve input 'nixpkgs'"
func Error(msg string) {
	_, _ = Red.Println("✗ " + msg)
}

// Errorf prints a formatted red error message with an X prefix.
func Errorf(format string, args ...any) {
	_, _ = Red.Printf("✗ "+format+"\n", args...)
}

// Info prints a cyan informational message with an info symbol prefix.
//
// Example output: "ℹ Refreshing input 'nixpkgs'..."
func Info(msg string) {
	_, _ = Cyan.Println("ℹ " + msg)
}

// Infof prints a formatted cyan informational message with an info symbol prefix.
func Infof(format string, args ...any) {
	_, _ = Cyan.Printf("ℹ "+format+"\n", args...)
}

// Header prints a bold header with an underline separator.
//
// Example output:
//
//	Installed packages
//	==================
func Header(text string) {
	_, _ = Bold.Println(text)
	fmt.Println(strings.Repeat("=", len(text)))
}

// SubHeader prints a bold sub-header without an underline, used for the
// per-category sections of `flake show`.
func SubHeader(text string) {
	_, _ = Bold.Println(text)
}

// Label returns a bold-formatted label string for inline use.
//
// Example: fmt.Printf("%s %s\n", ui.Label("Description:"), desc)
func Label(text string) string {
	return Bold.Sprint(text)
}

// DimText returns a dim-formatted string for less important text.
func DimText(text string) string {
	return Dim.Sprint(text)
}

// CountText returns a cyan-formatted count value for statistics display.
//
// Example: fmt.Printf("%s package(s) installed\n", ui.CountText(3))
func CountText(count int) string {
	return Cyan.Sprint(count)
}

// storePathPrefixLen is the length of "/nix/store/" plus the 32-char
// base32 hash and its trailing dash.
const storePathPrefixLen = len("/nix/store/") + 32 + 1

// StorePathText renders a store path with its /nix/store/<hash>- prefix
// dimmed, keeping the package name and version prominent. Strings that
// do not look like store paths are returned unchanged.
func StorePathText(path string) string {
	if strings.HasPrefix(path, "/nix/store/") && len(path) > storePathPrefixLen {
		return Dim.Sprint(path[:storePathPrefixLen]) + path[storePathPrefixLen:]
	}
	return path
}
