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

package reference

import (
	"os"
	"strings"

	"github.com/trixcli/trix/internal/errors"
)

// Kind discriminates the tagged union of reference variants.
type Kind string

const (
	KindPath      Kind = "path"
	KindGitHub    Kind = "github"
	KindGitLab    Kind = "gitlab"
	KindSourcehut Kind = "sourcehut"
	KindGit       Kind = "git"
	KindTarball   Kind = "tarball"
	KindIndirect  Kind = "indirect"
	KindFile      Kind = "file"
)

// archiveSuffixes are the URL endings that make a bare http(s) URL a
// Tarball reference instead of an implicit git+ reference.
var archiveSuffixes = []string{".tar.gz", ".tar.xz", ".tar.bz2", ".tar", ".tgz", ".zip"}

// Reference is a parsed flake reference, without its attribute path.
//
// Only the fields relevant to Kind are populated; the rest are zero.
type Reference struct {
	Kind Kind

	// Path holds the literal path string for KindPath and KindFile (not
	// yet resolved to an absolute path; see Resolve in the evaluation
	// engine).
	Path string

	// Owner/Repo/Ref apply to KindGitHub, KindGitLab, KindSourcehut.
	// Ref is the optional branch/tag/rev segment after owner/repo.
	Owner string
	Repo  string
	Ref   string

	// URL applies to KindGit and KindTarball.
	URL string

	// ID is the bare identifier for KindIndirect (e.g. "nixpkgs"). Ref
	// carries an optional trailing /ref segment, same as the GitHub forms.
	ID string

	// Params holds the parsed `?k=v&...` query-parameter suffix, present
	// on any variant. Recognised keys (ref, rev, dir, host, narHash) are
	// interpreted by downstream components, not here.
	Params map[string]string
}

// Installable pairs a Reference with its optional dotted attribute path,
// e.g. the ".packages.x86_64-linux.default" behind ".#packages...".
type Installable struct {
	Ref      Reference
	AttrPath []string
}

// IsLocal reports whether r refers to the caller's local filesystem
// (KindPath or KindFile), the distinction the no-copy evaluation strategy
// keys on.
func (r Reference) IsLocal() bool {
	return r.Kind == KindPath || r.Kind == KindFile
}

// Parse parses an installable string into a typed Reference plus
// attribute path. It performs no I/O and never consults a registry or the
// filesystem beyond $HOME lookup for "~" expansion.
func Parse(s string) (*Installable, error) {
	if s == "" {
		return nil, errors.NewInvalidReference("installable string is empty", "", nil)
	}

	refPart, attrPart := splitAttribute(s)
	if refPart == "" {
		return nil, errors.NewInvalidReference("installable string has no reference before '#'", s, nil)
	}

	ref, err := parseReference(refPart)
	if err != nil {
		return nil, err
	}

	return &Installable{
		Ref:      *ref,
		AttrPath: splitAttrPath(attrPart),
	}, nil
}

func splitAttribute(s string) (string, string) {
	if idx := strings.Index(s, "#"); idx >= 0 {
		return s[:idx], s[idx+1:]
	}
	return s, ""
}

func splitAttrPath(attr string) []string {
	if attr == "" {
		return nil
	}
	return strings.Split(attr, ".")
}

func parseReference(s string) (*Reference, error) {
	switch {
	case strings.HasPrefix(s, "github:"):
		return parseForge(KindGitHub, strings.TrimPrefix(s, "github:"), "github:", false)
	case strings.HasPrefix(s, "gitlab:"):
		return parseForge(KindGitLab, strings.TrimPrefix(s, "gitlab:"), "gitlab:", false)
	case strings.HasPrefix(s, "sourcehut:"):
		return parseForge(KindSourcehut, strings.TrimPrefix(s, "sourcehut:"), "sourcehut:", true)
	case strings.HasPrefix(s, "git+"):
		return parseGit(s)
	case strings.HasPrefix(s, "path:"):
		return &Reference{Kind: KindPath, Path: strings.TrimPrefix(s, "path:")}, nil
	case strings.HasPrefix(s, "flake:"):
		return parseIndirect(strings.TrimPrefix(s, "flake:"))
	case strings.HasPrefix(s, "tarball+"):
		url, params := splitQueryParams(strings.TrimPrefix(s, "tarball+"))
		return &Reference{Kind: KindTarball, URL: url, Params: params}, nil
	case strings.HasPrefix(s, "file:"):
		return parseFile(s)
	case strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://"):
		if isTarballURL(s) {
			url, params := splitQueryParams(s)
			return &Reference{Kind: KindTarball, URL: url, Params: params}, nil
		}
		return parseGit("git+" + s)
	case isPathLike(s):
		return &Reference{Kind: KindPath, Path: expandTilde(s)}, nil
	default:
		return parseIndirect(s)
	}
}

func isPathLike(s string) bool {
	if s == "." || strings.HasPrefix(s, "./") || strings.HasPrefix(s, "../") || strings.HasPrefix(s, "/") {
		return true
	}
	if s == "~" || strings.HasPrefix(s, "~/") {
		return true
	}
	return false
}

func expandTilde(s string) string {
	if s != "~" && !strings.HasPrefix(s, "~/") {
		return s
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return s
	}
	if s == "~" {
		return home
	}
	return home + s[1:]
}

// parseForge parses the owner/repo[/ref][?params] body shared by the
// github:, gitlab:, and sourcehut: schemes. requireTildeOwner enforces
// sourcehut's "~"-prefixed owner convention.
func parseForge(kind Kind, body, schemeLabel string, requireTildeOwner bool) (*Reference, error) {
	pathPart, params := splitQueryParams(body)
	segments := strings.Split(pathPart, "/")
	if len(segments) < 2 || segments[0] == "" || segments[1] == "" {
		return nil, errors.NewInvalidReference(
			schemeLabel+" requires an owner/repo reference",
			pathPart, nil)
	}
	owner, repo := segments[0], segments[1]
	if requireTildeOwner && !strings.HasPrefix(owner, "~") {
		return nil, errors.NewInvalidReference(
			"sourcehut: owner must be prefixed with '~'",
			owner, nil)
	}

	ref := ""
	if len(segments) > 2 {
		ref = strings.Join(segments[2:], "/")
	}

	return &Reference{Kind: kind, Owner: owner, Repo: repo, Ref: ref, Params: params}, nil
}

func parseGit(s string) (*Reference, error) {
	body := strings.TrimPrefix(s, "git+")
	if body == "" {
		return nil, errors.NewInvalidReference("git+ reference has an empty URL", s, nil)
	}
	url, params := splitQueryParams(body)
	return &Reference{Kind: KindGit, URL: url, Params: params}, nil
}

func parseFile(s string) (*Reference, error) {
	body := strings.TrimPrefix(s, "file://localhost")
	if body == s {
		body = strings.TrimPrefix(s, "file://")
	}
	if body == s {
		body = strings.TrimPrefix(s, "file:")
	}
	path, params := splitQueryParams(body)
	if path == "" {
		return nil, errors.NewInvalidReference("file: reference has an empty path", s, nil)
	}
	return &Reference{Kind: KindFile, Path: path, Params: params}, nil
}

func parseIndirect(s string) (*Reference, error) {
	pathPart, params := splitQueryParams(s)
	segments := strings.SplitN(pathPart, "/", 2)
	id := segments[0]
	if id == "" {
		return nil, errors.NewInvalidReference("indirect reference has an empty identifier", s, nil)
	}
	ref := ""
	if len(segments) == 2 {
		ref = segments[1]
	}
	return &Reference{Kind: KindIndirect, ID: id, Ref: ref, Params: params}, nil
}

func isTarballURL(s string) bool {
	lower := strings.ToLower(s)
	// Query params or attribute fragments must not defeat suffix matching,
	// but splitAttribute already stripped '#'; query strings are stripped
	// here since the whole s still carries them at this call site.
	if idx := strings.Index(lower, "?"); idx >= 0 {
		lower = lower[:idx]
	}
	for _, suffix := range archiveSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

func splitQueryParams(s string) (string, map[string]string) {
	idx := strings.Index(s, "?")
	if idx < 0 {
		return s, nil
	}
	path := s[:idx]
	query := s[idx+1:]
	params := make(map[string]string)
	for _, part := range strings.Split(query, "&") {
		if part == "" {
			continue
		}
		if eq := strings.Index(part, "="); eq >= 0 {
			params[part[:eq]] = part[eq+1:]
		} else {
			params[part] = ""
		}
	}
	return path, params
}

// String reconstructs the installable string. Parsing the result again
// yields an equivalent Reference for every variant (the round-trip
// property  requires), though query-parameter key order is not
// preserved since Params is a map.
func (i *Installable) String() string {
	var b strings.Builder
	b.WriteString(i.Ref.String())
	if len(i.AttrPath) > 0 {
		b.WriteString("#")
		b.WriteString(strings.Join(i.AttrPath, "."))
	}
	return b.String()
}

// String reconstructs the reference portion alone, without its attribute
// path.
func (r Reference) String() string {
	switch r.Kind {
	case KindPath:
		if !isPathLike(r.Path) {
			return "path:" + r.Path
		}
		return r.Path
	case KindGitHub:
		return formatForge("github:", r.Owner, r.Repo, r.Ref, r.Params)
	case KindGitLab:
		return formatForge("gitlab:", r.Owner, r.Repo, r.Ref, r.Params)
	case KindSourcehut:
		return formatForge("sourcehut:", r.Owner, r.Repo, r.Ref, r.Params)
	case KindGit:
		return "git+" + withQuery(r.URL, r.Params)
	case KindTarball:
		s := withQuery(r.URL, r.Params)
		isHTTP := strings.HasPrefix(r.URL, "http://") || strings.HasPrefix(r.URL, "https://")
		if !isHTTP || !isTarballURL(r.URL) {
			return "tarball+" + s
		}
		return s
	case KindFile:
		return "file://" + withQuery(r.Path, r.Params)
	case KindIndirect:
		s := r.ID
		if r.Ref != "" {
			s += "/" + r.Ref
		}
		return withQuery(s, r.Params)
	default:
		return ""
	}
}

func formatForge(scheme, owner, repo, ref string, params map[string]string) string {
	s := scheme + owner + "/" + repo
	if ref != "" {
		s += "/" + ref
	}
	return withQuery(s, params)
}

func withQuery(s string, params map[string]string) string {
	if len(params) == 0 {
		return s
	}
	pairs := make([]string, 0, len(params))
	for k, v := range params {
		if v == "" {
			pairs = append(pairs, k)
		} else {
			pairs = append(pairs, k+"="+v)
		}
	}
	return s + "?" + strings.Join(pairs, "&")
}
