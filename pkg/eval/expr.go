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
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/trixcli/trix/pkg/gitmeta"
	"github.com/trixcli/trix/pkg/lock"
)

// statFile is a seam for pathExists; a plain var (rather than a direct
// os.Stat call) so tests can stub it if a future fixture needs to probe
// a path that cannot exist on the test filesystem.
var statFile = os.Stat

// sanitizeName converts an input name into a valid Nix identifier by
// replacing '-' with '_'. Original names are preserved as quoted
// attribute keys wherever the synthesized expression needs to expose
// them to flake.nix.
func sanitizeName(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}

// SynthesizeExpr builds the single Nix expression that evaluates
// attrPath of the local flake rooted at flakeDir, using graph to
// reconstruct every input without ever calling builtins.getFlake.
// overrides maps an input name to a local directory that replaces the
// locked source for that input.
func SynthesizeExpr(ctx context.Context, flakeDir string, graph *lock.Graph, attrPath []string, overrides map[string]string) (string, error) {
	order, err := graph.TopoOrder()
	if err != nil {
		return "", fmt.Errorf("order lock graph: %w", err)
	}

	var bindings []string
	for _, name := range order {
		if name == graph.Root {
			continue
		}
		node := graph.Nodes[name]
		if node == nil {
			continue
		}

		if overridePath, ok := overrides[name]; ok {
			expr, err := overrideInputExpr(name, overridePath)
			if err != nil {
				return "", err
			}
			bindings = append(bindings, expr)
			continue
		}

		if node.Locked == nil {
			continue
		}
		srcName := "_src_" + sanitizeName(name)
		bindings = append(bindings, fmt.Sprintf("%s = %s;", srcName, fetchExpr(node.Locked, flakeDir)))

		if node.IsFlake {
			inputExpr, err := inputBuildExpr(srcName, node, graph, "_rootSelf")
			if err != nil {
				return "", fmt.Errorf("build input expression for %q: %w", name, err)
			}
			bindings = append(bindings, fmt.Sprintf("%s = %s;", sanitizeName(name), inputExpr))
		} else {
			bindings = append(bindings, fmt.Sprintf("%s = { outPath = %s; };", sanitizeName(name), srcName))
		}
	}

	var inputAttrs []string
	for inputName, ref := range graph.RootNode().Inputs {
		resolved, err := resolveInputName(graph, ref, "self")
		if err != nil {
			return "", fmt.Errorf("resolve root input %q: %w", inputName, err)
		}
		inputAttrs = append(inputAttrs, fmt.Sprintf("%q = %s;", inputName, resolved))
	}

	gitAttrs := gitAttrsExpr(ctx, flakeDir)

	attrSuffix := ""
	if len(attrPath) > 0 {
		attrSuffix = "." + strings.Join(attrPath, ".")
	}

	expr := fmt.Sprintf(`
let
  flakeDirPath = %s;

  _rootSelf = {
    outPath = flakeDirPath;
    _type = "flake";
    %s
  };

  %s

  self = _rootSelf // {
    inputs = { %s };
  };

  flake = import (flakeDirPath + "/flake.nix");
  outputs = flake.outputs ({ %s } // { self = self // outputs; });

in outputs%s
`, nixPathLiteral(flakeDir), gitAttrs, strings.Join(bindings, "\n  "), strings.Join(inputAttrs, " "), strings.Join(inputAttrs, " "), attrSuffix)

	return expr, nil
}

// nixPathLiteral renders an absolute filesystem path as a Nix path
// literal. Nix path literals must begin with '/' or './'; flakeDir is
// always made absolute by the caller before synthesis.
func nixPathLiteral(dir string) string {
	if filepath.IsAbs(dir) {
		return "/. + " + quoteNixString(dir)
	}
	return "./." + " + " + quoteNixString("/"+dir)
}

func quoteNixString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

// fetchExpr renders the fetch expression for a locked source,
// parameterized by kind.
func fetchExpr(l *lock.Locked, flakeDir string) string {
	switch l.Kind {
	case "github":
		return fetchTarballExpr(fmt.Sprintf("https://github.com/%s/%s/archive/%s.tar.gz", l.Owner, l.Repo, l.Rev), l.NarHash)
	case "gitlab":
		return fetchTarballExpr(fmt.Sprintf("https://gitlab.com/%s/%s/-/archive/%s/%s-%s.tar.gz", l.Owner, l.Repo, l.Rev, l.Repo, l.Rev), l.NarHash)
	case "sourcehut":
		return fetchTarballExpr(fmt.Sprintf("https://git.sr.ht/~%s/%s/archive/%s.tar.gz", l.Owner, l.Repo, l.Rev), l.NarHash)
	case "git":
		refArg := ""
		if l.Ref != "" {
			refArg = fmt.Sprintf(" ref = %s;", quoteNixString(l.Ref))
		}
		hashArg := ""
		if l.NarHash != "" {
			hashArg = fmt.Sprintf(" narHash = %s;", quoteNixString(l.NarHash))
		}
		return fmt.Sprintf("builtins.fetchGit { url = %s; rev = %s;%s%s }", quoteNixString(l.URL), quoteNixString(l.Rev), refArg, hashArg)
	case "path":
		if filepath.IsAbs(l.Path) {
			return "/. + " + quoteNixString(l.Path)
		}
		return "flakeDirPath + " + quoteNixString("/"+l.Path)
	case "tarball":
		return fetchTarballExpr(l.URL, l.NarHash)
	default:
		return fmt.Sprintf(`throw "trix: unresolved input of kind %q"`, l.Kind)
	}
}

func fetchTarballExpr(url, narHash string) string {
	hashArg := ""
	if narHash != "" {
		hashArg = fmt.Sprintf(" hash = %s;", quoteNixString(narHash))
	}
	return fmt.Sprintf("builtins.fetchTarball { url = %s;%s }", quoteNixString(url), hashArg)
}

// inputBuildExpr renders the recursive flake-import expression for one
// non-root flake node, resolving its own inputs against the graph.
// selfName is the identifier nested follows-to-root references should
// use ("_rootSelf" while still inside the outer let, "self" once the
// root binding exists).
func inputBuildExpr(srcName string, node *lock.Node, graph *lock.Graph, selfName string) (string, error) {
	var inputExprs []string
	for inputName, ref := range node.Inputs {
		resolved, err := resolveInputName(graph, ref, selfName)
		if err != nil {
			return "", err
		}
		inputExprs = append(inputExprs, fmt.Sprintf("%q = %s;", inputName, resolved))
	}

	return fmt.Sprintf(`let
    _flake = import (%s + "/flake.nix");
    _inputs = { %s };
    _self = { outPath = %s; inputs = _inputs; _type = "flake"; };
    _outputs = _flake.outputs (_inputs // { self = _self // _outputs; });
  in _outputs // { outPath = %s; inputs = _inputs; outputs = _outputs; _type = "flake"; }`,
		srcName, strings.Join(inputExprs, " "), srcName, srcName), nil
}

// resolveInputName turns an InputRef into the Nix identifier that
// already-synthesized binding represents: the sanitized node name for a
// Direct reference, or selfName for a Follows reference whose path
// resolves to the root.
func resolveInputName(graph *lock.Graph, ref lock.InputRef, selfName string) (string, error) {
	if !ref.IsFollows {
		return sanitizeName(ref.Direct), nil
	}
	target, err := graph.ResolveFollows(ref.Follows)
	if err != nil {
		return "", err
	}
	if target == lock.SelfNodeName {
		return selfName, nil
	}
	return sanitizeName(target), nil
}

// overrideInputExpr renders the expression for an input overridden with
// a local directory. The override is
// imported directly, recursively applying the same no-copy discipline;
// its own flake.lock (if any) drives its nested inputs.
func overrideInputExpr(name, overridePath string) (string, error) {
	sanitized := sanitizeName(name)
	flakeNix := filepath.Join(overridePath, "flake.nix")
	if !pathExists(flakeNix) {
		return fmt.Sprintf("%s = { outPath = %s; };", sanitized, quoteNixString(overridePath)), nil
	}

	lockPath := filepath.Join(overridePath, "flake.lock")
	overrideGraph, err := lock.Read(lockPath)
	if err != nil {
		return "", fmt.Errorf("read override lock %s: %w", lockPath, err)
	}

	inputsExpr, bindings, err := overrideInputsExpr(overrideGraph, overridePath)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(`%s%s = let
    _override_path = %s;
    _flake = import (_override_path + "/flake.nix");
    _inputs = %s;
    _self = { outPath = _override_path; inputs = _inputs; _type = "flake"; };
    _outputs = _flake.outputs (_inputs // { self = _self // _outputs; });
  in _outputs // { outPath = _override_path; inputs = _inputs; outputs = _outputs; _type = "flake"; };`,
		bindings, sanitized, quoteNixString(overridePath), inputsExpr), nil
}

func overrideInputsExpr(graph *lock.Graph, overridePath string) (inputsExpr string, bindings string, err error) {
	root := graph.RootNode()
	if len(root.Inputs) == 0 {
		return "{ }", "", nil
	}

	order, err := graph.TopoOrder()
	if err != nil {
		return "", "", err
	}

	var letBindings []string
	for _, name := range order {
		if name == graph.Root {
			continue
		}
		node := graph.Nodes[name]
		if node == nil || node.Locked == nil {
			continue
		}
		srcName := "_override_src_" + sanitizeName(name)
		letBindings = append(letBindings, fmt.Sprintf("%s = %s;", srcName, fetchExpr(node.Locked, overridePath)))

		if node.IsFlake {
			nested, err := inputBuildExprPrefixed(srcName, node, graph, "_self", "_override_")
			if err != nil {
				return "", "", err
			}
			letBindings = append(letBindings, fmt.Sprintf("_override_%s = %s;", sanitizeName(name), nested))
		} else {
			letBindings = append(letBindings, fmt.Sprintf("_override_%s = { outPath = %s; };", sanitizeName(name), srcName))
		}
	}

	var inputAttrs []string
	for inputName, ref := range root.Inputs {
		resolved, err := resolveOverrideInputName(graph, ref)
		if err != nil {
			return "", "", err
		}
		inputAttrs = append(inputAttrs, fmt.Sprintf("%q = %s;", inputName, resolved))
	}

	bindingsStr := ""
	if len(letBindings) > 0 {
		bindingsStr = strings.Join(letBindings, "\n  ") + "\n  "
	}
	return fmt.Sprintf("{ %s }", strings.Join(inputAttrs, " ")), bindingsStr, nil
}

func resolveOverrideInputName(graph *lock.Graph, ref lock.InputRef) (string, error) {
	if !ref.IsFollows {
		return "_override_" + sanitizeName(ref.Direct), nil
	}
	if len(ref.Follows) == 0 {
		return "_self", nil
	}
	target, err := graph.ResolveFollows(ref.Follows)
	if err != nil {
		return "", err
	}
	if target == lock.SelfNodeName {
		return "_self", nil
	}
	return "_override_" + sanitizeName(target), nil
}

func inputBuildExprPrefixed(srcName string, node *lock.Node, graph *lock.Graph, selfName, prefix string) (string, error) {
	var inputExprs []string
	for inputName, ref := range node.Inputs {
		var resolved string
		var err error
		if !ref.IsFollows {
			resolved = prefix + sanitizeName(ref.Direct)
		} else if len(ref.Follows) == 0 {
			resolved = selfName
		} else {
			var target string
			target, err = graph.ResolveFollows(ref.Follows)
			if err == nil {
				if target == lock.SelfNodeName {
					resolved = selfName
				} else {
					resolved = prefix + sanitizeName(target)
				}
			}
		}
		if err != nil {
			return "", err
		}
		inputExprs = append(inputExprs, fmt.Sprintf("%q = %s;", inputName, resolved))
	}

	return fmt.Sprintf(`let
      _flake = import (%s + "/flake.nix");
      _inputs = { %s };
      _self = { outPath = %s; inputs = _inputs; _type = "flake"; };
      _outputs = _flake.outputs (_inputs // { self = _self // _outputs; });
    in _outputs // { outPath = %s; inputs = _inputs; outputs = _outputs; _type = "flake"; }`,
		srcName, strings.Join(inputExprs, " "), srcName, srcName), nil
}

// gitAttrsExpr renders the git-metadata attribute bindings for
// _rootSelf, or minimal zero-value attributes when flakeDir is not
// inside a git repository.
func gitAttrsExpr(ctx context.Context, flakeDir string) string {
	info, err := gitmeta.Inspect(ctx, flakeDir)
	if err != nil {
		return `lastModified = 0; lastModifiedDate = "19700101000000";`
	}
	var b strings.Builder
	if info.Dirty {
		fmt.Fprintf(&b, "dirtyRev = %s; dirtyShortRev = %s; ", quoteNixString(info.DirtyRev), quoteNixString(info.DirtyShortRev))
	} else {
		fmt.Fprintf(&b, "rev = %s; shortRev = %s; ", quoteNixString(info.Rev), quoteNixString(info.ShortRev))
	}
	fmt.Fprintf(&b, "lastModified = %d; lastModifiedDate = %s; submodules = %t;",
		info.LastModified, quoteNixString(info.LastModifiedDate), info.HasSubmodules)
	return b.String()
}

func pathExists(path string) bool {
	_, err := statFile(path)
	return err == nil
}
