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

package dtype

import (
	"testing"

	"github.com/mission-systems-pty-ltd/comma/ctype"
)

func TestOffsetsAndItemSize(t *testing.T) {
	d := New([]Field{
		Scalar("id", ctype.Type{Kind: ctype.U4}),
		Scalar("t", ctype.Type{Kind: ctype.Timestamp}),
		Array("xyz", ctype.Type{Kind: ctype.F8}, 3),
	})
	if d.ItemSize != 4+8+3*8 {
		t.Fatalf("itemsize: got %d", d.ItemSize)
	}
	if d.Fields[2].Offset != 12 {
		t.Fatalf("offset: got %d want 12", d.Fields[2].Offset)
	}
}

func TestUnroll(t *testing.T) {
	d := New([]Field{
		Scalar("a", ctype.Type{Kind: ctype.U4}),
		Array("b", ctype.Type{Kind: ctype.F8}, 2, 3),
	})
	u := Unroll(d)
	if len(u.Fields) != 7 {
		t.Fatalf("unrolled field count: got %d want 7", len(u.Fields))
	}
	if u.ItemSize != d.ItemSize {
		t.Fatalf("unrolled itemsize changed: got %d want %d", u.ItemSize, d.ItemSize)
	}
	for i, f := range u.Fields {
		if f.Name != "f"+string(rune('0'+i)) {
			t.Fatalf("field %d named %q", i, f.Name)
		}
	}
}

func TestViewZeroCopy(t *testing.T) {
	d := New([]Field{Scalar("a", ctype.Type{Kind: ctype.F8})})
	b := Allocate(d, 3)
	PutFloat64(b.FieldBytes(1, 0), ctype.Type{Kind: ctype.F8}, 42)
	u := Unroll(d)
	v, err := b.View(u)
	if err != nil {
		t.Fatal(err)
	}
	got := GetFloat64(v.FieldBytes(1, 0), ctype.Type{Kind: ctype.F8})
	if got != 42 {
		t.Fatalf("got %v want 42", got)
	}
}

func TestStringRoundTrip(t *testing.T) {
	buf := make([]byte, 5)
	PutString(buf, "ab")
	if got := GetString(buf); got != "ab" {
		t.Fatalf("got %q want %q", got, "ab")
	}
}

func TestTypesOfDtype(t *testing.T) {
	d := New([]Field{
		Scalar("a", ctype.Type{Kind: ctype.U4}),
		Array("b", ctype.Type{Kind: ctype.F8}, 2, 3),
	})
	if got, want := TypesOf(d, false), []string{"u4", "(2,3)f8"}; !equalStrings(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
	got := TypesOf(d, true)
	want := []string{"u4", "f8", "f8", "f8", "f8", "f8", "f8"}
	if !equalStrings(got, want) {
		t.Fatalf("got %v want %v", got, want)
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
