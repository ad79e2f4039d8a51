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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseStorePath(t *testing.T) {
	name, version, ok := ParseStorePath("/nix/store/abcdefghijklmnopqrstuvwxyz012345-hello-2.10")
	assert.True(t, ok)
	assert.Equal(t, "hello", name)
	assert.Equal(t, "2.10", version)

	name, version, ok = ParseStorePath("/nix/store/abcdefghijklmnopqrstuvwxyz012345-jq")
	assert.True(t, ok)
	assert.Equal(t, "jq", name)
	assert.Equal(t, "", version)

	_, _, ok = ParseStorePath("/nix/store/abc123-hello-2.10")
	assert.False(t, ok)
}

func TestExtractVersion(t *testing.T) {
	assert.Equal(t, "2.10", ExtractVersion("/nix/store/abcdefghijklmnopqrstuvwxyz012345-hello-2.10"))
	assert.Equal(t, "/nix/store/abc123-hello-2.10", ExtractVersion("/nix/store/abc123-hello-2.10"))
}

func TestGroupByPackage(t *testing.T) {
	closure := []string{
		"/nix/store/abcdefghijklmnopqrstuvwxyz012345-hello-2.10",
		"/nix/store/bbcdefghijklmnopqrstuvwxyz012345-jq-1.7",
	}
	grouped := GroupByPackage(closure)
	assert.Equal(t, "2.10", grouped["hello"].Version)
	assert.Equal(t, "1.7", grouped["jq"].Version)
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "500 B", FormatSize(500))
	assert.Equal(t, "2.0 KiB", FormatSize(2048))
	assert.Equal(t, "1.0 MiB", FormatSize(1024*1024))
}

func TestFormatSizeDiff(t *testing.T) {
	assert.Equal(t, "0 B", FormatSizeDiff(0))
	assert.Contains(t, FormatSizeDiff(1024), "+1.0 KiB")
	assert.Equal(t, "-1.0 KiB", FormatSizeDiff(-1024))
}

func TestParseOlderThan(t *testing.T) {
	d, err := ParseOlderThan("30d")
	assert.NoError(t, err)
	assert.Equal(t, int64(30*86400), int64(d.Seconds()))

	d, err = ParseOlderThan("1w")
	assert.NoError(t, err)
	assert.Equal(t, int64(604800), int64(d.Seconds()))

	_, err = ParseOlderThan("5x")
	assert.Error(t, err)
}
