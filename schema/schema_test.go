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

package schema

import (
	"testing"

	"github.com/mission-systems-pty-ltd/comma/ctype"
)

func TestFlatFields(t *testing.T) {
	s, err := New("x,y", Scalar(ctype.Type{Kind: ctype.F8}), Scalar(ctype.Type{Kind: ctype.F8}))
	if err != nil {
		t.Fatal(err)
	}
	if s.Format != "2d" {
		t.Fatalf("format: got %q want %q", s.Format, "2d")
	}
	if got, want := s.Fields, []string{"x", "y"}; !equalStrings(got, want) {
		t.Fatalf("fields: got %v want %v", got, want)
	}
}

func TestMissingTypes(t *testing.T) {
	_, err := New("x,y,z", Scalar(ctype.Type{Kind: ctype.F8}))
	var mt *MissingTypesError
	if err == nil {
		t.Fatal("expected MissingTypesError")
	}
	if e, ok := err.(*MissingTypesError); ok {
		mt = e
	} else {
		t.Fatalf("wrong error type: %T", err)
	}
	if got, want := mt.Fields, []string{"y", "z"}; !equalStrings(got, want) {
		t.Fatalf("missing fields: got %v want %v", got, want)
	}
}

func TestDefaultFieldNames(t *testing.T) {
	s, err := New("", Scalar(ctype.Type{Kind: ctype.F8}), Scalar(ctype.Type{Kind: ctype.F8}))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{DefaultFieldNamePrefix + "0", DefaultFieldNamePrefix + "1"}
	if !equalStrings(s.Fields, want) {
		t.Fatalf("got %v want %v", s.Fields, want)
	}
}

func TestSlashRejected(t *testing.T) {
	_, err := New("a/b", Scalar(ctype.Type{Kind: ctype.F8}))
	if err != ErrSlashInFieldName {
		t.Fatalf("got %v want ErrSlashInFieldName", err)
	}
}

func TestNestedShorthandAndAmbiguity(t *testing.T) {
	point, err := New("x,y", Scalar(ctype.Type{Kind: ctype.F8}), Scalar(ctype.Type{Kind: ctype.F8}))
	if err != nil {
		t.Fatal(err)
	}
	s, err := New("first,second", Nested(point), Nested(point))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"first/x", "first/y", "second/x", "second/y"}
	if !equalStrings(s.Fields, want) {
		t.Fatalf("fields: got %v want %v", s.Fields, want)
	}
	if !s.AmbiguousLeaves["x"] || !s.AmbiguousLeaves["y"] {
		t.Fatalf("expected x,y ambiguous, got %v", s.AmbiguousLeaves)
	}
	if got, want := s.Shorthand["first"], []string{"first/x", "first/y"}; !equalStrings(got, want) {
		t.Fatalf("shorthand[first]: got %v want %v", got, want)
	}
	expanded := s.ExpandShorthand("first,second/y")
	if want := []string{"first/x", "first/y", "second/y"}; !equalStrings(expanded, want) {
		t.Fatalf("expand: got %v want %v", expanded, want)
	}
}

// TestDeeplyNestedShorthandIsPrefixed is spec.md §8 scenario 8: a
// sub-schema's shorthand entries, at every nesting depth, must carry
// the full xpath prefix down from the root, not just the sub-schema's
// own local leaf names.
func TestDeeplyNestedShorthandIsPrefixed(t *testing.T) {
	point, err := New("x,y,z",
		Scalar(ctype.Type{Kind: ctype.F8}), Scalar(ctype.Type{Kind: ctype.F8}), Scalar(ctype.Type{Kind: ctype.F8}))
	if err != nil {
		t.Fatal(err)
	}
	event, err := New("t,point", Scalar(ctype.Type{Kind: ctype.Timestamp}), Nested(point))
	if err != nil {
		t.Fatal(err)
	}
	s, err := New("id,event", Scalar(ctype.Type{Kind: ctype.U4}), Nested(event))
	if err != nil {
		t.Fatal(err)
	}
	if got, want := s.Shorthand["event"], []string{"event/t", "event/point/x", "event/point/y", "event/point/z"}; !equalStrings(got, want) {
		t.Fatalf("shorthand[event]: got %v want %v", got, want)
	}
	if got, want := s.Shorthand["event/point"], []string{"event/point/x", "event/point/y", "event/point/z"}; !equalStrings(got, want) {
		t.Fatalf("shorthand[event/point]: got %v want %v", got, want)
	}
	if got, want := s.ExpandShorthand("event/point"), []string{"event/point/x", "event/point/y", "event/point/z"}; !equalStrings(got, want) {
		t.Fatalf("expand_shorthand(event/point): got %v want %v", got, want)
	}
}

func TestUnambiguousLeafResolution(t *testing.T) {
	s, err := New("a,b", Scalar(ctype.Type{Kind: ctype.F8}), Scalar(ctype.Type{Kind: ctype.F8}))
	if err != nil {
		t.Fatal(err)
	}
	if s.XpathOfLeaf["a"] != "a" {
		t.Fatalf("xpath resolution failed: %v", s.XpathOfLeaf)
	}
}

func TestToTuple(t *testing.T) {
	s, err := New("a,b", Scalar(ctype.Type{Kind: ctype.F8}), Scalar(ctype.Type{Kind: ctype.String, StrLen: 4}))
	if err != nil {
		t.Fatal(err)
	}
	b := s.Allocate(1)
	tup, err := s.ToTuple(b)
	if err != nil {
		t.Fatal(err)
	}
	if len(tup) != 2 {
		t.Fatalf("tuple len: got %d want 2", len(tup))
	}
	if _, ok := tup[0].(float64); !ok {
		t.Fatalf("tup[0] not float64: %T", tup[0])
	}
	if _, ok := tup[1].(string); !ok {
		t.Fatalf("tup[1] not string: %T", tup[1])
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
