// Copyright (C) 2024 comma authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package ctype

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// InvalidTypeError reports an unrecognized format or wire-type token.
type InvalidTypeError struct {
	Token string
}

func (e *InvalidTypeError) Error() string {
	return fmt.Sprintf("ctype: %q is not a known type", e.Token)
}

// MalformedShapeError reports an unparsable array shape prefix, such
// as "(a,b)T" with non-numeric components or "(0,2)u4" with a
// non-positive one. Empty components are skipped, so "(2,)u4" is a
// legal shape of 2.
type MalformedShapeError struct {
	Token string
}

func (e *MalformedShapeError) Error() string {
	return fmt.Sprintf("ctype: malformed shape in %q", e.Token)
}

var ErrEmptyToken = errors.New("ctype: empty type token")

var commaToWire = map[string]string{
	"b":  "i1",
	"ub": "u1",
	"w":  "i2",
	"uw": "u2",
	"i":  "i4",
	"ui": "u4",
	"l":  "i8",
	"ul": "u8",
	"f":  "f4",
	"d":  "f8",
	"t":  "M8[us]",
}

var wireToComma = func() map[string]string {
	m := make(map[string]string, len(commaToWire))
	for k, v := range commaToWire {
		m[v] = k
	}
	return m
}()

var prefixedTokenRe = regexp.MustCompile(`^(\d+)(.+)$`)
var commaStringRe = regexp.MustCompile(`^s\[(\d+)\]$`)
var wireStringRe = regexp.MustCompile(`^S(\d+)$`)
var wireArrayRe = regexp.MustCompile(`^\(([^)]*)\)(.+)$`)

// Expand splits a run-length compressed comma format into one token
// per column, e.g. "3d,2ub,s[5]" -> "d,d,d,ub,ub,s[5]".
func Expand(format string) (string, error) {
	if format == "" {
		return "", nil
	}
	var out []string
	for _, tok := range strings.Split(format, ",") {
		out = append(out, expandToken(tok)...)
	}
	return strings.Join(out, ","), nil
}

func expandToken(tok string) []string {
	if m := prefixedTokenRe.FindStringSubmatch(tok); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil && n > 0 {
			rest := make([]string, n)
			for i := range rest {
				rest[i] = m[2]
			}
			return rest
		}
	}
	return []string{tok}
}

// Compress run-length encodes consecutive identical tokens,
// e.g. "d,d,d,ub,ub,s[5]" -> "3d,2ub,s[5]".
func Compress(format string) (string, error) {
	expanded, err := Expand(format)
	if err != nil {
		return "", err
	}
	if expanded == "" {
		return "", nil
	}
	tokens := strings.Split(expanded, ",")
	var out []string
	i := 0
	for i < len(tokens) {
		j := i + 1
		for j < len(tokens) && tokens[j] == tokens[i] {
			j++
		}
		n := j - i
		if n == 1 {
			out = append(out, tokens[i])
		} else {
			out = append(out, fmt.Sprintf("%d%s", n, tokens[i]))
		}
		i = j
	}
	return strings.Join(out, ","), nil
}

// ToWire expands format and maps every token to its canonical wire
// type string, e.g. "3d,2ub,s[5]" -> ["f8","f8","f8","u1","u1","S5"].
func ToWire(format string) ([]string, error) {
	expanded, err := Expand(format)
	if err != nil {
		return nil, err
	}
	if expanded == "" {
		return nil, nil
	}
	tokens := strings.Split(expanded, ",")
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		wire, err := commaTokenToWire(tok)
		if err != nil {
			return nil, err
		}
		out = append(out, wire)
	}
	return out, nil
}

func commaTokenToWire(tok string) (string, error) {
	if tok == "" {
		return "", ErrEmptyToken
	}
	if wire, ok := commaToWire[tok]; ok {
		return wire, nil
	}
	if m := commaStringRe.FindStringSubmatch(tok); m != nil {
		return "S" + m[1], nil
	}
	return "", &InvalidTypeError{Token: tok}
}

// FromWire maps a (possibly byte-order-prefixed, possibly
// array-shaped) wire format string back to its compact comma form,
// e.g. "f8,f8,f8,u1,u1,S5" -> "3d,2ub,s[5]"; "(2,3)u4" unrolls to six
// copies of "ui" before compression.
func FromWire(wire string) (string, error) {
	if wire == "" {
		return "", nil
	}
	// split on top-level commas only, so an array shape such as
	// "(2,3)u4" stays one token
	var wireToks []string
	depth, start := 0, 0
	for i := 0; i < len(wire); i++ {
		switch wire[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				wireToks = append(wireToks, wire[start:i])
				start = i + 1
			}
		}
	}
	wireToks = append(wireToks, wire[start:])
	var comma []string
	for _, tok := range wireToks {
		tok = stripByteOrderPrefix(strings.TrimSpace(tok))
		toks, err := wireTokenToComma(tok)
		if err != nil {
			return "", err
		}
		comma = append(comma, toks...)
	}
	return Compress(strings.Join(comma, ","))
}

func wireTokenToComma(tok string) ([]string, error) {
	if tok == "" {
		return nil, ErrEmptyToken
	}
	count := 1
	if m := wireArrayRe.FindStringSubmatch(tok); m != nil {
		n, err := shapeCount(m[1])
		if err != nil {
			return nil, err
		}
		count = n
		tok = m[2]
	}
	tok = stripByteOrderPrefix(tok)
	single, err := singleWireToComma(tok)
	if err != nil {
		return nil, err
	}
	out := make([]string, count)
	for i := range out {
		out[i] = single
	}
	return out, nil
}

func singleWireToComma(tok string) (string, error) {
	if comma, ok := wireToComma[tok]; ok {
		return comma, nil
	}
	if m := wireStringRe.FindStringSubmatch(tok); m != nil {
		return "s[" + m[1] + "]", nil
	}
	return "", &InvalidTypeError{Token: tok}
}

func shapeCount(inner string) (int, error) {
	n := 1
	for _, part := range strings.Split(inner, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.Atoi(part)
		if err != nil || v <= 0 {
			return 0, &MalformedShapeError{Token: inner}
		}
		n *= v
	}
	return n, nil
}

func stripByteOrderPrefix(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '<', '>', '|', '=':
		return s[1:]
	}
	return s
}

// TypeOf resolves a single expanded comma token (no run-length
// prefix, no comma) to a Type.
func TypeOf(token string) (Type, error) {
	switch token {
	case "b":
		return Type{Kind: I1}, nil
	case "ub":
		return Type{Kind: U1}, nil
	case "w":
		return Type{Kind: I2}, nil
	case "uw":
		return Type{Kind: U2}, nil
	case "i":
		return Type{Kind: I4}, nil
	case "ui":
		return Type{Kind: U4}, nil
	case "l":
		return Type{Kind: I8}, nil
	case "ul":
		return Type{Kind: U8}, nil
	case "f":
		return Type{Kind: F4}, nil
	case "d":
		return Type{Kind: F8}, nil
	case "t":
		return Type{Kind: Timestamp}, nil
	}
	if m := commaStringRe.FindStringSubmatch(token); m != nil {
		n, _ := strconv.Atoi(m[1])
		return Type{Kind: String, StrLen: n}, nil
	}
	return Type{}, &InvalidTypeError{Token: token}
}

// WireName returns the canonical wire type string for t, e.g. "f8",
// "S12", "M8[us]".
func (t Type) WireName() string {
	switch t.Kind {
	case I1:
		return "i1"
	case U1:
		return "u1"
	case I2:
		return "i2"
	case U2:
		return "u2"
	case I4:
		return "i4"
	case U4:
		return "u4"
	case I8:
		return "i8"
	case U8:
		return "u8"
	case F4:
		return "f4"
	case F8:
		return "f8"
	case Timestamp:
		return "M8[us]"
	case Timedelta:
		return "m8[us]"
	case String:
		return fmt.Sprintf("S%d", t.StrLen)
	}
	panic(fmt.Sprintf("ctype: unhandled kind %v", t.Kind))
}

// CommaToken returns the compact comma format token for t, e.g. "d",
// "s[12]". Timedelta has no comma spelling (it only ever arises from
// timestamp arithmetic inside the expression evaluator) and returns
// an error.
func (t Type) CommaToken() (string, error) {
	switch t.Kind {
	case I1:
		return "b", nil
	case U1:
		return "ub", nil
	case I2:
		return "w", nil
	case U2:
		return "uw", nil
	case I4:
		return "i", nil
	case U4:
		return "ui", nil
	case I8:
		return "l", nil
	case U8:
		return "ul", nil
	case F4:
		return "f", nil
	case F8:
		return "d", nil
	case Timestamp:
		return "t", nil
	case String:
		return fmt.Sprintf("s[%d]", t.StrLen), nil
	}
	return "", fmt.Errorf("ctype: %v has no comma format spelling", t.Kind)
}

// ExpandTokens is Expand split into a slice instead of a rejoined string.
func ExpandTokens(format string) ([]string, error) {
	expanded, err := Expand(format)
	if err != nil {
		return nil, err
	}
	if expanded == "" {
		return nil, nil
	}
	return strings.Split(expanded, ","), nil
}

// TypesOf resolves every expanded token of format to a Type, in order.
func TypesOf(format string) ([]Type, error) {
	tokens, err := ExpandTokens(format)
	if err != nil {
		return nil, err
	}
	out := make([]Type, len(tokens))
	for i, tok := range tokens {
		t, err := TypeOf(tok)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

// FormatOf is the inverse of TypesOf: it builds a (compressed) comma
// format string from a list of Types.
func FormatOf(types []Type) (string, error) {
	toks := make([]string, len(types))
	for i, t := range types {
		tok, err := t.CommaToken()
		if err != nil {
			return "", err
		}
		toks[i] = tok
	}
	return Compress(strings.Join(toks, ","))
}
