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

// Package contract provides validation constants and utilities shared by
// the reference grammar, lock store, and registry resolver.
//
// This internal package contains configuration constants and validation
// functions that none of those three components should duplicate: how long
// an installable string or bare identifier may be, how large a global
// registry response or flake.lock file may be before it is rejected.
//
// # Size limits
//
//	// Default lock-file size ceiling is 64 MiB
//	limit := contract.SoftLimitBytes()
//
//	// Validate a bare identifier before registry lookup
//	result := contract.ValidateBareIdentifier(id)
//	if !result.OK {
//	    log.Printf("validation failed: %s", result.Message)
//	}
//
// # Configuration via environment
//
// The soft limit can be adjusted via the TRIX_SOFT_LIMIT_BYTES environment
// variable, for environments that fetch unusually large registries or lock
// files:
//
//	export TRIX_SOFT_LIMIT_BYTES=33554432  # 32 MiB
//
// If the environment variable is not set or invalid, the default limit
// of 64 MiB (DefaultSoftLimitBytes) is used.
package contract
