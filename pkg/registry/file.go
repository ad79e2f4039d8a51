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

package registry

import (
	"encoding/json"
	"fmt"

	"github.com/trixcli/trix/pkg/reference"
)

// Entry is a single registry mapping: a bare identifier to a concrete
// Reference (the Registry entry).
type Entry struct {
	FromID string
	ToRef  reference.Reference
}

// wireFile is the on-disk JSON shape of a registry.json document.
type wireFile struct {
	Version int         `json:"version"`
	Flakes  []wireEntry `json:"flakes"`
}

type wireEntry struct {
	From wireFrom `json:"from"`
	To   wireTo   `json:"to"`
}

type wireFrom struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type wireTo struct {
	Type  string `json:"type"`
	Path  string `json:"path,omitempty"`
	Owner string `json:"owner,omitempty"`
	Repo  string `json:"repo,omitempty"`
	Ref   string `json:"ref,omitempty"`
	Rev   string `json:"rev,omitempty"`
	URL   string `json:"url,omitempty"`
}

const currentRegistryVersion = 2

// decodeFile parses a registry.json document, returning an empty file on
// malformed JSON rather than erroring; the native tool treats a corrupt
// registry file as if it were absent.
func decodeFile(data []byte) wireFile {
	var f wireFile
	if err := json.Unmarshal(data, &f); err != nil {
		return wireFile{}
	}
	return f
}

func encodeFile(f wireFile) ([]byte, error) {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal registry: %w", err)
	}
	return append(data, '\n'), nil
}

// entries converts the wire file's flakes into Entry values, skipping any
// "from" that is not an indirect identifier reference and any "to" type
// this package does not recognize.
func (f wireFile) entries() []Entry {
	out := make([]Entry, 0, len(f.Flakes))
	for _, we := range f.Flakes {
		if we.From.Type != "indirect" || we.From.ID == "" {
			continue
		}
		ref, ok := toReference(we.To)
		if !ok {
			continue
		}
		out = append(out, Entry{FromID: we.From.ID, ToRef: ref})
	}
	return out
}

func toReference(to wireTo) (reference.Reference, bool) {
	switch to.Type {
	case "path":
		return reference.Reference{Kind: reference.KindPath, Path: to.Path}, true
	case "github":
		return reference.Reference{Kind: reference.KindGitHub, Owner: to.Owner, Repo: to.Repo, Ref: firstNonEmpty(to.Rev, to.Ref)}, true
	case "gitlab":
		return reference.Reference{Kind: reference.KindGitLab, Owner: to.Owner, Repo: to.Repo, Ref: firstNonEmpty(to.Rev, to.Ref)}, true
	case "sourcehut":
		return reference.Reference{Kind: reference.KindSourcehut, Owner: to.Owner, Repo: to.Repo, Ref: firstNonEmpty(to.Rev, to.Ref)}, true
	case "git":
		params := map[string]string{}
		if to.Ref != "" {
			params["ref"] = to.Ref
		}
		if to.Rev != "" {
			params["rev"] = to.Rev
		}
		return reference.Reference{Kind: reference.KindGit, URL: to.URL, Params: params}, true
	case "tarball":
		return reference.Reference{Kind: reference.KindTarball, URL: to.URL}, true
	case "indirect":
		return reference.Reference{Kind: reference.KindIndirect, ID: to.Path, Ref: to.Ref}, true
	default:
		return reference.Reference{}, false
	}
}

func fromReference(ref reference.Reference) wireTo {
	switch ref.Kind {
	case reference.KindPath:
		return wireTo{Type: "path", Path: ref.Path}
	case reference.KindGitHub:
		return wireTo{Type: "github", Owner: ref.Owner, Repo: ref.Repo, Ref: ref.Ref}
	case reference.KindGitLab:
		return wireTo{Type: "gitlab", Owner: ref.Owner, Repo: ref.Repo, Ref: ref.Ref}
	case reference.KindSourcehut:
		return wireTo{Type: "sourcehut", Owner: ref.Owner, Repo: ref.Repo, Ref: ref.Ref}
	case reference.KindGit:
		return wireTo{Type: "git", URL: ref.URL, Ref: ref.Params["ref"], Rev: ref.Params["rev"]}
	case reference.KindTarball:
		return wireTo{Type: "tarball", URL: ref.URL}
	case reference.KindIndirect:
		return wireTo{Type: "indirect", Path: ref.ID, Ref: ref.Ref}
	default:
		return wireTo{Type: "path", Path: ref.Path}
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
