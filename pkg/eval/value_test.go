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

package eval

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteAttrName(t *testing.T) {
	assert.Equal(t, "hello", quoteAttrName("hello"))
	assert.Equal(t, "x86_64-linux", quoteAttrName("x86_64-linux"))
	assert.Equal(t, `"has space"`, quoteAttrName("has space"))
	assert.Equal(t, `"with\"quote"`, quoteAttrName(`with"quote`))
}

func TestAttrCandidates(t *testing.T) {
	build := AttrCandidates(ContextBuild, "x86_64-linux", "hello")
	assert.Equal(t, [][]string{
		{"packages", "x86_64-linux", "hello"},
		{"legacyPackages", "x86_64-linux", "hello"},
		{"hello"},
	}, build)

	devShell := AttrCandidates(ContextDevShell, "x86_64-linux", "default")
	assert.Equal(t, []string{"devShells", "x86_64-linux", "default"}, devShell[0])

	formatter := AttrCandidates(ContextFormatter, "x86_64-linux", "")
	assert.Equal(t, [][]string{{"formatter", "x86_64-linux"}}, formatter)
}

func TestDefaultOutput(t *testing.T) {
	assert.Equal(t, "/nix/store/out", DefaultOutput(map[string]string{"out": "/nix/store/out", "dev": "/nix/store/dev"}))
	assert.Equal(t, "/nix/store/only", DefaultOutput(map[string]string{"only": "/nix/store/only"}))
	assert.Equal(t, "", DefaultOutput(nil))
}

// fakeNixInstantiate writes a shell script masquerading as nix-instantiate
// that dispatches on a substring of its argument list, letting a test
// script a short sequence of evalJSON calls without a real Nix install.
func fakeNixInstantiate(t *testing.T, cases map[string]string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fakes are posix-only")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "nix-instantiate")

	script := "#!/bin/sh\nARGS=\"$*\"\n"
	for pattern, output := range cases {
		script += "case \"$ARGS\" in\n  *'" + pattern + "'*) printf '%s' '" + output + "'; exit 0;;\nesac\n"
	}
	script += "echo \"unmatched: $ARGS\" >&2\nexit 1\n"

	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestValue_GetAttrAndRequireString(t *testing.T) {
	attrset := `{ hello = "world"; }`
	nested := "(" + attrset + ").hello"

	bin := fakeNixInstantiate(t, map[string]string{
		"typeOf (" + attrset + ")": `"set"`,
		") ? hello":                `true`,
		"typeOf (" + nested + ")":  `"string"`,
		"--expr " + nested:         `"world"`,
	})

	e := &Engine{NixInstantiate: bin}
	root, err := e.EvalString(context.Background(), attrset)
	require.NoError(t, err)

	isAttrs, err := root.IsAttrs(context.Background())
	require.NoError(t, err)
	assert.True(t, isAttrs)

	hello, err := root.GetAttr(context.Background(), "hello")
	require.NoError(t, err)

	s, err := hello.RequireString(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "world", s)
}

func TestValue_GetAttr_NotFound(t *testing.T) {
	attrset := `{ hello = "world"; }`
	bin := fakeNixInstantiate(t, map[string]string{
		"typeOf (" + attrset + ")": `"set"`,
		") ? missing":              `false`,
	})

	e := &Engine{NixInstantiate: bin}
	root, err := e.EvalString(context.Background(), attrset)
	require.NoError(t, err)

	_, err = root.GetAttr(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, isAttrNotFound(err))
}
