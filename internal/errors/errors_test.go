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

package errors

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrixError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *TrixError
		want string
	}{
		{
			name: "with underlying error",
			err:  &TrixError{Message: "cannot open lock file", Err: fmt.Errorf("file locked")},
			want: "cannot open lock file: file locked",
		},
		{
			name: "without underlying error",
			err:  &TrixError{Message: "invalid reference"},
			want: "invalid reference",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestTrixError_Unwrap(t *testing.T) {
	underlying := fmt.Errorf("underlying error")
	withErr := &TrixError{Message: "x", Err: underlying}
	withoutErr := &TrixError{Message: "x"}

	assert.Equal(t, underlying, withErr.Unwrap())
	assert.Nil(t, withoutErr.Unwrap())
}

func TestExitCodes_Unique(t *testing.T) {
	codes := []int{
		ExitInvalidReference, ExitResolve, ExitLock, ExitFetch,
		ExitEval, ExitAttrNotFound, ExitBuild, ExitProfile, ExitInternal,
	}
	seen := make(map[int]bool)
	for _, c := range codes {
		require.False(t, seen[c], "duplicate exit code %d", c)
		seen[c] = true
	}
	assert.Equal(t, 0, ExitSuccess)
}

func TestConstructors(t *testing.T) {
	underlying := fmt.Errorf("boom")

	t.Run("InvalidReference", func(t *testing.T) {
		e := NewInvalidReference("bad installable", "empty string", nil)
		assert.Equal(t, ExitInvalidReference, e.ExitCode)
		assert.Equal(t, "bad installable", e.Message)
		assert.Equal(t, "empty string", e.Cause)
	})

	t.Run("ResolveError", func(t *testing.T) {
		e := NewResolveError("nixpkgs-unstable", nil)
		assert.Equal(t, ExitResolve, e.ExitCode)
		assert.Contains(t, e.Message, "nixpkgs-unstable")
		assert.Contains(t, e.Fix, "trix registry add nixpkgs-unstable")
	})

	t.Run("LockError kinds carry the same exit code", func(t *testing.T) {
		for _, kind := range []LockErrorKind{LockIO, LockParse, LockDangling, LockCycle} {
			e := NewLockError(kind, "bad lock", "cause", "fix", underlying)
			assert.Equal(t, ExitLock, e.ExitCode)
			assert.Equal(t, "LockError."+string(kind), e.Kind)
			assert.ErrorIs(t, e, underlying)
		}
	})

	t.Run("FetchError", func(t *testing.T) {
		e := NewFetchError("hash mismatch", "expected sha256:abc got sha256:def", nil)
		assert.Equal(t, ExitFetch, e.ExitCode)
	})

	t.Run("EvalError without debug omits expression", func(t *testing.T) {
		e := NewEvalError("attribute 'foo' missing", "let x = 1; in x", false)
		assert.Equal(t, ExitEval, e.ExitCode)
		assert.Empty(t, e.Cause)
	})

	t.Run("EvalError with debug includes expression", func(t *testing.T) {
		e := NewEvalError("attribute 'foo' missing", "let x = 1; in x", true)
		assert.Contains(t, e.Cause, "let x = 1; in x")
	})

	t.Run("TypeMismatch names both types", func(t *testing.T) {
		e := NewTypeMismatch("string", "list", "builtins.attrNames x", false)
		assert.Equal(t, "TypeMismatch", e.Kind)
		assert.Equal(t, ExitEval, e.ExitCode)
		assert.Contains(t, e.Message, "expected string")
		assert.Contains(t, e.Message, "got list")
		assert.Empty(t, e.Cause)
	})

	t.Run("TypeMismatch with debug includes the value expression", func(t *testing.T) {
		e := NewTypeMismatch("int", "set", "builtins.attrNames x", true)
		assert.Contains(t, e.Cause, "builtins.attrNames x")
	})

	t.Run("AttrNotFound lists every candidate", func(t *testing.T) {
		e := NewAttrNotFound([]string{"packages.x86_64-linux.foo", "legacyPackages.x86_64-linux.foo", "foo"})
		assert.Equal(t, ExitAttrNotFound, e.ExitCode)
		assert.Contains(t, e.Cause, "packages.x86_64-linux.foo")
		assert.Contains(t, e.Cause, "legacyPackages.x86_64-linux.foo")
	})

	t.Run("BuildError", func(t *testing.T) {
		e := NewBuildError("realise failed", underlying)
		assert.Equal(t, ExitBuild, e.ExitCode)
		assert.ErrorIs(t, e, underlying)
	})

	t.Run("ProfileError NoProfile gets a hint, others do not", func(t *testing.T) {
		noProfile := NewProfileError(ProfileNoProfile, "no active profile", nil)
		assert.NotEmpty(t, noProfile.Fix)

		buildFailed := NewProfileError(ProfileBuildFailed, "build failed", underlying)
		assert.Empty(t, buildFailed.Fix)
		assert.Equal(t, ExitProfile, buildFailed.ExitCode)
	})
}

func TestErrorChain(t *testing.T) {
	sentinel := fmt.Errorf("sentinel error")
	wrapped := fmt.Errorf("wrapped: %w", sentinel)
	trixErr := NewLockError(LockIO, "io error", "cause", "fix", wrapped)

	assert.True(t, errors.Is(trixErr, sentinel))

	var target *TrixError
	require.True(t, errors.As(trixErr, &target))
	assert.Equal(t, ExitLock, target.ExitCode)
}

func TestTrixError_Format(t *testing.T) {
	err := &TrixError{
		Message: "cannot open lock file",
		Cause:   "flake.lock is locked by another process",
		Fix:     "close other trix instances",
	}
	out := err.Format(true)
	assert.Contains(t, out, "error: cannot open lock file")
	assert.Contains(t, out, "cause: flake.lock is locked by another process")
	assert.Contains(t, out, "fix:   close other trix instances")
}

func TestTrixError_Format_NoColorEnv(t *testing.T) {
	oldNoColor := os.Getenv("NO_COLOR")
	defer func() {
		if oldNoColor != "" {
			os.Setenv("NO_COLOR", oldNoColor)
		} else {
			os.Unsetenv("NO_COLOR")
		}
	}()
	os.Setenv("NO_COLOR", "1")

	err := &TrixError{Message: "test error"}
	output := err.Format(false)
	assert.False(t, strings.Contains(output, "\x1b["))
}

func TestTrixError_ToJSON(t *testing.T) {
	err := &TrixError{
		Kind:     "LockError.parse",
		Message:  "flake.lock is corrupt",
		Cause:    "unexpected end of JSON input",
		Fix:      "run trix flake lock",
		ExitCode: ExitLock,
	}
	j := err.ToJSON()
	assert.Equal(t, "LockError.parse", j.Kind)
	assert.Equal(t, "flake.lock is corrupt", j.Error)
	assert.Equal(t, ExitLock, j.ExitCode)
}

func TestFatalError_NilDoesNothing(t *testing.T) {
	FatalError(nil, false)
}
