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

package csveval

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mission-systems-pty-ltd/comma/ctype"
	"github.com/mission-systems-pty-ltd/comma/schema"
	"github.com/mission-systems-pty-ltd/comma/stream"
)

func xySchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.New("x,y", schema.Scalar(ctype.Type{Kind: ctype.F8}), schema.Scalar(ctype.Type{Kind: ctype.F8}))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// TestAppend is spec.md §8 scenario 4: an expression introducing new
// (non-input) names appends them after the input columns.
func TestAppend(t *testing.T) {
	s := xySchema(t)
	in, err := stream.New(s, strings.NewReader("1,2\n3,4\n"), nil, stream.Options{})
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	ev, err := New(in, "a=2/(x+y);b=x-sin(y)*a**2", &out, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := ev.UpdateFields, []string(nil); !equalStrings(got, want) {
		t.Fatalf("UpdateFields: got %v want none", got)
	}
	if got, want := ev.OutputFields, []string{"a", "b"}; !equalStrings(got, want) {
		t.Fatalf("OutputFields: got %v want %v", got, want)
	}
	if err := ev.Run(); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 output lines, got %d: %q", len(lines), out.String())
	}
	if !strings.HasPrefix(lines[0], "1,2,") || !strings.HasPrefix(lines[1], "3,4,") {
		t.Fatalf("output lines should start with the input columns: %v", lines)
	}
}

// TestInPlaceUpdate is spec.md §8 scenario 5: an expression whose
// targets are already input fields rewrites them in place instead of
// appending.
func TestInPlaceUpdate(t *testing.T) {
	s := xySchema(t)
	// with no output fields the evaluator dumps the updated input
	// stream, so the input stream's own target is where rows land
	var out bytes.Buffer
	in, err := stream.New(s, strings.NewReader("1,2\n3,4\n"), &out, stream.Options{})
	if err != nil {
		t.Fatal(err)
	}
	ev, err := New(in, "x=x+y; y=y-1", &out, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := ev.UpdateFields, []string{"x", "y"}; !equalStrings(got, want) {
		t.Fatalf("UpdateFields: got %v want %v", got, want)
	}
	if len(ev.OutputFields) != 0 {
		t.Fatalf("expected no output fields, got %v", ev.OutputFields)
	}
	if err := ev.Run(); err != nil {
		t.Fatal(err)
	}
	want := "3,1\n7,3\n"
	if got := out.String(); got != want {
		t.Fatalf("update: got %q want %q", got, want)
	}
}

// TestSelectMode is spec.md §8 scenario 6.
func TestSelectMode(t *testing.T) {
	s, err := schema.New("a,b", schema.Scalar(ctype.Type{Kind: ctype.I4}), schema.Scalar(ctype.Type{Kind: ctype.I4}))
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	in, err := stream.New(s, strings.NewReader("1,2\n1,3\n1,4\n"), &out, stream.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if err := Select(in, "(a < b - 1) & (b < 4)", false, nil); err != nil {
		t.Fatal(err)
	}
	if want := "1,3\n"; out.String() != want {
		t.Fatalf("select: got %q want %q", out.String(), want)
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
