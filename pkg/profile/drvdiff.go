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
	"context"
	"encoding/json"
	"os/exec"
	"sort"
	"strings"

	"github.com/trixcli/trix/internal/errors"
	"github.com/trixcli/trix/internal/procenv"
)

// drvMeta is the subset of `nix derivation show`'s per-derivation JSON
// this diff consumes.
type drvMeta struct {
	System    string              `json:"system"`
	Builder   string              `json:"builder"`
	Args      []string            `json:"args"`
	InputDrvs map[string]struct{} `json:"inputDrvs"`
	InputSrcs []string            `json:"inputSrcs"`
	Env       map[string]string   `json:"env"`
}

// FieldChange is a scalar derivation field whose value differs between
// the two sides.
type FieldChange struct {
	Field string
	Old   string
	New   string
}

// InputDrvChange is one input derivation added, removed, or moved to a
// different version between the two sides. Old/New hold store paths;
// the empty side marks an add or remove.
type InputDrvChange struct {
	Name string
	Kind ChangeKind
	Old  string
	New  string
}

// DerivationDiff is the classified difference between two derivations'
// metadata.
type DerivationDiff struct {
	Fields      []FieldChange
	InputDrvs   []InputDrvChange
	SrcsAdded   []string
	SrcsRemoved []string
	EnvAdded    []string
	EnvRemoved  []string
	EnvChanged  []FieldChange
}

// envIgnored are environment keys that differ between any two
// derivations by construction and so carry no signal in a diff.
var envIgnored = map[string]bool{
	"out":     true,
	"outputs": true,
	"drvPath": true,
	"builder": true,
}

// DiffDerivations reads both derivations' JSON metadata via the native
// tool and classifies what changed: platform/builder/args, input
// derivations (added, removed, or version-changed), input sources, and
// environment variables.
func (e *Engine) DiffDerivations(ctx context.Context, oldDrv, newDrv string) (*DerivationDiff, error) {
	oldMeta, err := e.derivationMeta(ctx, oldDrv)
	if err != nil {
		return nil, err
	}
	newMeta, err := e.derivationMeta(ctx, newDrv)
	if err != nil {
		return nil, err
	}
	return diffDerivationMeta(oldMeta, newMeta), nil
}

func (e *Engine) derivationMeta(ctx context.Context, drvPath string) (*drvMeta, error) {
	cmd := exec.CommandContext(ctx, e.nix(), "derivation", "show", drvPath)
	cmd.Env = procenv.Environ()
	out, err := cmd.Output()
	if err != nil {
		return nil, errors.NewProfileError(errors.ProfileManifest,
			"nix derivation show "+drvPath+" failed: "+exitStderr(err), err)
	}
	var byPath map[string]drvMeta
	if err := json.Unmarshal(out, &byPath); err != nil {
		return nil, errors.NewProfileError(errors.ProfileManifest,
			"unparseable derivation metadata for "+drvPath, err)
	}
	for _, meta := range byPath {
		return &meta, nil
	}
	return nil, errors.NewProfileError(errors.ProfileManifest,
		"no derivation metadata returned for "+drvPath, nil)
}

func diffDerivationMeta(old, new *drvMeta) *DerivationDiff {
	diff := &DerivationDiff{}

	if old.System != new.System {
		diff.Fields = append(diff.Fields, FieldChange{Field: "system", Old: old.System, New: new.System})
	}
	if old.Builder != new.Builder {
		diff.Fields = append(diff.Fields, FieldChange{Field: "builder", Old: old.Builder, New: new.Builder})
	}
	if oldArgs, newArgs := strings.Join(old.Args, " "), strings.Join(new.Args, " "); oldArgs != newArgs {
		diff.Fields = append(diff.Fields, FieldChange{Field: "args", Old: oldArgs, New: newArgs})
	}

	diff.InputDrvs = diffInputDrvs(old.InputDrvs, new.InputDrvs)
	diff.SrcsAdded, diff.SrcsRemoved = diffStringSets(old.InputSrcs, new.InputSrcs)

	envNames := map[string]bool{}
	for k := range old.Env {
		envNames[k] = true
	}
	for k := range new.Env {
		envNames[k] = true
	}
	sortedEnv := make([]string, 0, len(envNames))
	for k := range envNames {
		if !envIgnored[k] {
			sortedEnv = append(sortedEnv, k)
		}
	}
	sort.Strings(sortedEnv)
	for _, k := range sortedEnv {
		oldVal, hadOld := old.Env[k]
		newVal, hasNew := new.Env[k]
		switch {
		case !hadOld:
			diff.EnvAdded = append(diff.EnvAdded, k)
		case !hasNew:
			diff.EnvRemoved = append(diff.EnvRemoved, k)
		case oldVal != newVal:
			diff.EnvChanged = append(diff.EnvChanged, FieldChange{Field: k, Old: oldVal, New: newVal})
		}
	}
	return diff
}

// diffInputDrvs groups both sides' input derivations by package name so
// a dependency that moved to a new version reports as one
// version-change rather than an unrelated add plus remove.
func diffInputDrvs(old, new map[string]struct{}) []InputDrvChange {
	oldByName := inputDrvsByName(old)
	newByName := inputDrvsByName(new)

	names := map[string]bool{}
	for n := range oldByName {
		names[n] = true
	}
	for n := range newByName {
		names[n] = true
	}
	sorted := make([]string, 0, len(names))
	for n := range names {
		sorted = append(sorted, n)
	}
	sort.Strings(sorted)

	var changes []InputDrvChange
	for _, name := range sorted {
		oldPath, hadOld := oldByName[name]
		newPath, hasNew := newByName[name]
		switch {
		case !hadOld:
			changes = append(changes, InputDrvChange{Name: name, Kind: ChangeAdded, New: newPath})
		case !hasNew:
			changes = append(changes, InputDrvChange{Name: name, Kind: ChangeRemoved, Old: oldPath})
		case oldPath != newPath:
			kind := ChangeUpgraded
			if CompareVersions(ExtractVersion(oldPath), ExtractVersion(newPath)) > 0 {
				kind = ChangeDowngraded
			}
			changes = append(changes, InputDrvChange{Name: name, Kind: kind, Old: oldPath, New: newPath})
		}
	}
	return changes
}

func inputDrvsByName(drvs map[string]struct{}) map[string]string {
	byName := make(map[string]string, len(drvs))
	for path := range drvs {
		name, _, ok := ParseStorePath(strings.TrimSuffix(path, ".drv"))
		if !ok {
			name = path
		}
		byName[name] = path
	}
	return byName
}

func diffStringSets(old, new []string) (added, removed []string) {
	oldSet := make(map[string]bool, len(old))
	for _, s := range old {
		oldSet[s] = true
	}
	newSet := make(map[string]bool, len(new))
	for _, s := range new {
		newSet[s] = true
	}
	for _, s := range new {
		if !oldSet[s] {
			added = append(added, s)
		}
	}
	for _, s := range old {
		if !newSet[s] {
			removed = append(removed, s)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}
