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

package stream

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mission-systems-pty-ltd/comma/ctype"
	"github.com/mission-systems-pty-ltd/comma/schema"
)

func buildNestedSchema(t *testing.T) *schema.Schema {
	t.Helper()
	point, err := schema.New("x,y,z",
		schema.Scalar(ctype.Type{Kind: ctype.F8}),
		schema.Scalar(ctype.Type{Kind: ctype.F8}),
		schema.Scalar(ctype.Type{Kind: ctype.F8}))
	if err != nil {
		t.Fatal(err)
	}
	event, err := schema.New("t,point",
		schema.Scalar(ctype.Type{Kind: ctype.Timestamp}),
		schema.Nested(point))
	if err != nil {
		t.Fatal(err)
	}
	top, err := schema.New("id,event",
		schema.Scalar(ctype.Type{Kind: ctype.U4}),
		schema.Nested(event))
	if err != nil {
		t.Fatal(err)
	}
	return top
}

func TestAsciiRoundTripWithReordering(t *testing.T) {
	s := buildNestedSchema(t)
	in := strings.NewReader("1.3,7,1.1,20150102T122345.012345,1.2\n")
	rs, err := New(s, in, nil, Options{
		Fields:    "event/point/z,id,event/point/x,event/t,event/point/y",
		FullXpath: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	batch, ok, err := rs.Read(0)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected a record")
	}
	tup, err := s.ToTuple(batch)
	if err != nil {
		t.Fatal(err)
	}
	if got := tup[0].(float64); got != 7 {
		t.Fatalf("id: got %v want 7", got)
	}
	if got := tup[2].(float64); got != 1.1 {
		t.Fatalf("x: got %v want 1.1", got)
	}
	if got := tup[3].(float64); got != 1.2 {
		t.Fatalf("y: got %v want 1.2", got)
	}
	if got := tup[4].(float64); got != 1.3 {
		t.Fatalf("z: got %v want 1.3", got)
	}

	var out bytes.Buffer
	ws, err := New(s, nil, &out, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if err := ws.Write(batch); err != nil {
		t.Fatal(err)
	}
	want := "7,20150102T122345.012345,1.1,1.2,1.3\n"
	if got := out.String(); got != want {
		t.Fatalf("write: got %q want %q", got, want)
	}
}

func TestMissingFieldsWithDefaults(t *testing.T) {
	s, err := schema.New("x,y,z",
		schema.Scalar(ctype.Type{Kind: ctype.F8}),
		schema.Scalar(ctype.Type{Kind: ctype.F8}),
		schema.Scalar(ctype.Type{Kind: ctype.F8}))
	if err != nil {
		t.Fatal(err)
	}
	in := strings.NewReader("1.0\n")
	rs, err := New(s, in, nil, Options{
		Fields:   "x",
		Defaults: map[string]string{"y": "2", "z": "3"},
	})
	if err != nil {
		t.Fatal(err)
	}
	batch, ok, err := rs.Read(0)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected a record")
	}
	tup, err := s.ToTuple(batch)
	if err != nil {
		t.Fatal(err)
	}
	if tup[0].(float64) != 1.0 || tup[1].(float64) != 2.0 || tup[2].(float64) != 3.0 {
		t.Fatalf("got %v", tup)
	}
}

func TestAsciiDumpMasked(t *testing.T) {
	s, err := schema.New("a,b",
		schema.Scalar(ctype.Type{Kind: ctype.I4}),
		schema.Scalar(ctype.Type{Kind: ctype.I4}))
	if err != nil {
		t.Fatal(err)
	}
	in := strings.NewReader("1,2\n1,3\n1,4\n")
	var out bytes.Buffer
	rs, err := New(s, in, &out, Options{Flush: true})
	if err != nil {
		t.Fatal(err)
	}
	for {
		batch, ok, err := rs.Read(3)
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			break
		}
		mask := make([]bool, batch.Len)
		for i := range mask {
			tup, err := s.ToTuple(batch.Slice(i, i+1))
			if err != nil {
				t.Fatal(err)
			}
			a, b := tup[0].(float64), tup[1].(float64)
			mask[i] = a < b-1 && b < 4
		}
		if err := rs.DumpMasked(mask); err != nil {
			t.Fatal(err)
		}
	}
	if got, want := out.String(), "1,3\n"; got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

// TestLastInputRetainedAcrossEmptyRead exercises the resolved Open
// Question (SPEC_FULL.md §7.4): the empty read signalling end of
// stream must not clear the buffered last batch, so a Dump issued
// right after the sentinel still emits it rather than being silently
// empty.
func TestLastInputRetainedAcrossEmptyRead(t *testing.T) {
	s, err := schema.New("a,b",
		schema.Scalar(ctype.Type{Kind: ctype.I4}),
		schema.Scalar(ctype.Type{Kind: ctype.I4}))
	if err != nil {
		t.Fatal(err)
	}
	in := strings.NewReader("1,2\n")
	var out bytes.Buffer
	rs, err := New(s, in, &out, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok, err := rs.Read(0); err != nil || !ok {
		t.Fatalf("first read: ok=%v err=%v", ok, err)
	}
	if _, ok, err := rs.Read(0); err != nil || ok {
		t.Fatalf("second read: expected end of stream, got ok=%v err=%v", ok, err)
	}
	if rs.LastInput() == nil {
		t.Fatal("expected last batch to remain buffered after end of stream")
	}
	if err := rs.Dump(); err != nil {
		t.Fatal(err)
	}
	if got, want := out.String(), "1,2\n"; got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

// TestExtractionDtypeMemoized exercises the dtype.Fingerprint-keyed
// cache: two Streams built over the same schema/fields reordering get
// a structurally-equal (and, since it's a cache hit, identical)
// extraction dtype without either one having to be told about the
// other.
func TestExtractionDtypeMemoized(t *testing.T) {
	s, err := schema.New("x,y,z",
		schema.Scalar(ctype.Type{Kind: ctype.F8}),
		schema.Scalar(ctype.Type{Kind: ctype.F8}),
		schema.Scalar(ctype.Type{Kind: ctype.F8}))
	if err != nil {
		t.Fatal(err)
	}
	opts := Options{Fields: "z,x,y"}
	a, err := New(s, strings.NewReader(""), nil, opts)
	if err != nil {
		t.Fatal(err)
	}
	b, err := New(s, strings.NewReader(""), nil, opts)
	if err != nil {
		t.Fatal(err)
	}
	if a.ExtractionDtype == nil || b.ExtractionDtype == nil {
		t.Fatal("expected both streams to build an extraction dtype")
	}
	if a.ExtractionDtype != b.ExtractionDtype {
		t.Fatal("expected the memoized extraction dtype to be reused across equivalent streams")
	}
}

func TestTiedBindMismatchRejected(t *testing.T) {
	s, err := schema.New("a", schema.Scalar(ctype.Type{Kind: ctype.F8}))
	if err != nil {
		t.Fatal(err)
	}
	a, err := New(s, strings.NewReader(""), nil, Options{Binary: true})
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	b, err := New(s, nil, &buf, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if err := Bind(a, b); err == nil {
		t.Fatal("expected a TiedMismatchError for differing binary modes")
	}
}
