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
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/trixcli/trix/internal/errors"
)

// Value is a handle to a Nix expression, not yet forced. Every
// navigation method (GetAttr, Apply) returns a new Value wrapping a
// larger expression string; no Nix process runs until a terminal
// accessor (RequireString, IsAttrs, GetAttrNames, ...) is called.
type Value struct {
	engine *Engine
	expr   string
}

// Expr returns the Nix source this value denotes, for diagnostics and
// for BuildValue/BuildValueOutputs to hand to nix-instantiate directly.
func (v *Value) Expr() string { return v.expr }

// GetAttr navigates to a single attribute, returning AttrNotFound if it
// is absent. Presence is checked with Nix's `?` operator; the error
// names only the missing attribute.
func (v *Value) GetAttr(ctx context.Context, name string) (*Value, error) {
	isAttrs, err := v.IsAttrs(ctx)
	if err != nil {
		return nil, err
	}
	if !isAttrs {
		return nil, errors.NewEvalError(fmt.Sprintf("value is not an attribute set; cannot select %q", name), v.expr, v.engine.Debug)
	}
	has, err := v.hasAttr(ctx, name)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, errors.NewAttrNotFound([]string{name})
	}
	return &Value{engine: v.engine, expr: fmt.Sprintf("(%s).%s", v.expr, quoteAttrName(name))}, nil
}

// NavigateAttrPath walks a dotted attribute path from v, one GetAttr per
// segment. An empty path returns v itself.
func (v *Value) NavigateAttrPath(ctx context.Context, path []string) (*Value, error) {
	cur := v
	for _, segment := range path {
		next, err := cur.GetAttr(ctx, segment)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

func (v *Value) hasAttr(ctx context.Context, name string) (bool, error) {
	expr := fmt.Sprintf("(%s) ? %s", v.expr, quoteAttrName(name))
	raw, err := v.engine.evalJSON(ctx, expr)
	if err != nil {
		return false, err
	}
	var ok bool
	if err := json.Unmarshal(raw, &ok); err != nil {
		return false, errors.NewEvalError("expected a boolean from '?' test", expr, v.engine.Debug)
	}
	return ok, nil
}

// GetAttrNames returns the sorted attribute names of v, which must be an
// attribute set.
func (v *Value) GetAttrNames(ctx context.Context) ([]string, error) {
	expr := fmt.Sprintf("builtins.attrNames (%s)", v.expr)
	raw, err := v.engine.evalJSON(ctx, expr)
	if err != nil {
		return nil, err
	}
	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		return nil, errors.NewEvalError("expected attrNames to return a list of strings", expr, v.engine.Debug)
	}
	return names, nil
}

// ValueType returns the result of Nix's builtins.typeOf for v (e.g.
// "set", "string", "list", "lambda", "int", "bool", "null").
func (v *Value) ValueType(ctx context.Context) (string, error) {
	expr := fmt.Sprintf("builtins.typeOf (%s)", v.expr)
	raw, err := v.engine.evalJSON(ctx, expr)
	if err != nil {
		return "", err
	}
	var t string
	if err := json.Unmarshal(raw, &t); err != nil {
		return "", errors.NewEvalError("expected typeOf to return a string", expr, v.engine.Debug)
	}
	return t, nil
}

// IsAttrs reports whether v is an attribute set.
func (v *Value) IsAttrs(ctx context.Context) (bool, error) {
	t, err := v.ValueType(ctx)
	if err != nil {
		return false, err
	}
	return t == "set", nil
}

// IsDerivation reports whether v is an attribute set whose `type`
// attribute is "derivation", the convention every Nix derivation
// follows regardless of which builder produced it.
func (v *Value) IsDerivation(ctx context.Context) (bool, error) {
	isAttrs, err := v.IsAttrs(ctx)
	if err != nil || !isAttrs {
		return false, err
	}
	expr := fmt.Sprintf(`(%s) ? type && (%s).type == "derivation"`, v.expr, v.expr)
	raw, err := v.engine.evalJSON(ctx, expr)
	if err != nil {
		return false, err
	}
	var ok bool
	if err := json.Unmarshal(raw, &ok); err != nil {
		return false, errors.NewEvalError("expected a boolean derivation check", expr, v.engine.Debug)
	}
	return ok, nil
}

// RequireString forces v and returns its value as a string, failing with
// a TypeMismatch-flavoured EvalError if v is not a string.
func (v *Value) RequireString(ctx context.Context) (string, error) {
	t, err := v.ValueType(ctx)
	if err != nil {
		return "", err
	}
	if t != "string" && t != "path" {
		return "", mismatch("string", t, v)
	}
	raw, err := v.engine.evalJSON(ctx, v.expr)
	if err != nil {
		return "", err
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", errors.NewEvalError("expected a JSON string", v.expr, v.engine.Debug)
	}
	return s, nil
}

// RequireInt forces v and returns it as an int64.
func (v *Value) RequireInt(ctx context.Context) (int64, error) {
	t, err := v.ValueType(ctx)
	if err != nil {
		return 0, err
	}
	if t != "int" {
		return 0, mismatch("int", t, v)
	}
	raw, err := v.engine.evalJSON(ctx, v.expr)
	if err != nil {
		return 0, err
	}
	var n json.Number
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return 0, errors.NewEvalError("expected a JSON number", v.expr, v.engine.Debug)
	}
	i, err := strconv.ParseInt(n.String(), 10, 64)
	if err != nil {
		return 0, errors.NewEvalError("integer out of range", v.expr, v.engine.Debug)
	}
	return i, nil
}

// RequireBool forces v and returns it as a bool.
func (v *Value) RequireBool(ctx context.Context) (bool, error) {
	t, err := v.ValueType(ctx)
	if err != nil {
		return false, err
	}
	if t != "bool" {
		return false, mismatch("bool", t, v)
	}
	raw, err := v.engine.evalJSON(ctx, v.expr)
	if err != nil {
		return false, err
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false, errors.NewEvalError("expected a JSON boolean", v.expr, v.engine.Debug)
	}
	return b, nil
}

// RequireListSize forces v (which must be a list) and returns its length.
func (v *Value) RequireListSize(ctx context.Context) (int, error) {
	t, err := v.ValueType(ctx)
	if err != nil {
		return 0, err
	}
	if t != "list" {
		return 0, mismatch("list", t, v)
	}
	expr := fmt.Sprintf("builtins.length (%s)", v.expr)
	raw, err := v.engine.evalJSON(ctx, expr)
	if err != nil {
		return 0, err
	}
	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, errors.NewEvalError("expected length to return an int", expr, v.engine.Debug)
	}
	return n, nil
}

// RequireElem returns the i'th element of v (which must be a list),
// unforced.
func (v *Value) RequireElem(_ context.Context, i int) (*Value, error) {
	return &Value{engine: v.engine, expr: fmt.Sprintf("builtins.elemAt (%s) %d", v.expr, i)}, nil
}

// Apply applies v (a function) to arg, returning the unforced result.
func (v *Value) Apply(_ context.Context, argExpr string) (*Value, error) {
	return &Value{engine: v.engine, expr: fmt.Sprintf("(%s) (%s)", v.expr, argExpr)}, nil
}

// CoerceToString forces v through Nix's string-coercion rules
// (builtins.toString for paths, numbers, and derivations with an
// outPath), matching what an antiquoted "${v}" would produce.
func (v *Value) CoerceToString(ctx context.Context) (string, error) {
	expr := fmt.Sprintf("builtins.toString (%s)", v.expr)
	raw, err := v.engine.evalJSON(ctx, expr)
	if err != nil {
		return "", err
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", errors.NewEvalError("expected toString to return a string", expr, v.engine.Debug)
	}
	return s, nil
}

func mismatch(expected, actual string, v *Value) error {
	return errors.NewTypeMismatch(expected, actual, v.expr, v.engine.Debug)
}

// quoteAttrName renders name as a Nix attribute-selector segment. Names
// that are not valid bare identifiers are rendered as a quoted string
// literal, which Nix accepts on both sides of '.' and '?'.
func quoteAttrName(name string) string {
	if isValidIdentifier(name) {
		return name
	}
	escaped := strings.ReplaceAll(name, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	return `"` + escaped + `"`
}

func isValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case r >= '0' && r <= '9' && i > 0:
		case (r == '-' || r == '\'') && i > 0:
		default:
			return false
		}
	}
	return true
}
