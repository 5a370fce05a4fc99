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

// Package dtype is the record layout descriptor and record-buffer
// allocator: it lays out named, typed, possibly-array columns into a
// fixed-size byte record, and allocates contiguous batches of such
// records. Equal-itemsize dtypes can reinterpret the same backing
// buffer without copying, which is how extraction/unrolled-flat
// projections stay zero-copy.
package dtype

import (
	"fmt"
	"strings"

	"github.com/mission-systems-pty-ltd/comma/ctype"
)

// Field is one named column of a Dtype.
type Field struct {
	Name   string
	Type   ctype.Type
	Shape  []int // nil/empty for a scalar column
	Offset int   // byte offset from the start of a record
}

// Count is the number of primitive elements the field occupies (1
// for a scalar, product(Shape) for an array).
func (f Field) Count() int {
	if len(f.Shape) == 0 {
		return 1
	}
	n := 1
	for _, s := range f.Shape {
		n *= s
	}
	return n
}

// Size is the field's total byte width.
func (f Field) Size() int {
	return f.Count() * f.Type.Size()
}

// Scalar builds a non-array Field.
func Scalar(name string, t ctype.Type) Field {
	return Field{Name: name, Type: t}
}

// Array builds an array Field with the given shape.
func Array(name string, t ctype.Type, shape ...int) Field {
	return Field{Name: name, Type: t, Shape: append([]int{}, shape...)}
}

// Dtype is an ordered, offset-laid-out list of Fields.
type Dtype struct {
	Fields   []Field
	ItemSize int
}

// New lays out fields sequentially (no padding, matching the comma
// wire format) and returns the resulting Dtype.
func New(fields []Field) *Dtype {
	out := make([]Field, len(fields))
	offset := 0
	for i, f := range fields {
		f.Offset = offset
		out[i] = f
		offset += f.Size()
	}
	return &Dtype{Fields: out, ItemSize: offset}
}

// Index returns the position of name in d.Fields, or -1.
func (d *Dtype) Index(name string) int {
	for i, f := range d.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Names returns the field names in order.
func (d *Dtype) Names() []string {
	out := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		out[i] = f.Name
	}
	return out
}

// Concat appends two dtypes' fields and recomputes offsets, as used
// to build a Stream's complete_dtype from input_dtype and
// missing_dtype.
func Concat(a, b *Dtype) *Dtype {
	fields := make([]Field, 0, len(a.Fields)+len(b.Fields))
	fields = append(fields, a.Fields...)
	fields = append(fields, b.Fields...)
	return New(fields)
}

// Unroll expands every array field into Count() consecutive scalar
// fields, renaming every resulting field "f0".."fN-1" in traversal
// order, and preserving byte offsets so the result aliases the same
// buffer as d.
func Unroll(d *Dtype) *Dtype {
	var fields []Field
	idx := 0
	for _, f := range d.Fields {
		count := f.Count()
		elemSize := f.Type.Size()
		for k := 0; k < count; k++ {
			fields = append(fields, Field{
				Name:   fmt.Sprintf("f%d", idx),
				Type:   ctype.Type{Kind: f.Type.Kind, StrLen: f.Type.StrLen},
				Offset: f.Offset + k*elemSize,
			})
			idx++
		}
	}
	return &Dtype{Fields: fields, ItemSize: d.ItemSize}
}

// TypesOf returns, for each field of d, its wire type string. With
// unroll=false an array field is prefixed with its shape (e.g.
// "(2,3)f8"); with unroll=true an array field expands into Count()
// repeated unshaped type strings.
func TypesOf(d *Dtype, unroll bool) []string {
	var out []string
	for _, f := range d.Fields {
		if unroll {
			for k := 0; k < f.Count(); k++ {
				out = append(out, f.Type.WireName())
			}
			continue
		}
		if len(f.Shape) > 0 {
			out = append(out, shapeString(f.Shape)+f.Type.WireName())
		} else {
			out = append(out, f.Type.WireName())
		}
	}
	return out
}

func shapeString(shape []int) string {
	if len(shape) == 1 {
		return fmt.Sprintf("%d", shape[0])
	}
	parts := make([]string, len(shape))
	for i, s := range shape {
		parts[i] = fmt.Sprintf("%d", s)
	}
	return "(" + strings.Join(parts, ",") + ")"
}

// Project builds a view dtype over d's buffer that lists the named
// fields of d in the given order, keeping each field's original byte
// offset (it does not relay out the buffer). The result's ItemSize
// equals d.ItemSize, so a Batch of d can always View() the result: the
// fields are merely reordered/relabeled, not physically moved. This is
// how a Stream's data_extraction_dtype reaches into complete_dtype in
// schema order without copying.
func Project(d *Dtype, names []string) (*Dtype, error) {
	fields := make([]Field, len(names))
	for i, name := range names {
		idx := d.Index(name)
		if idx < 0 {
			return nil, fmt.Errorf("dtype: field %q not found for projection", name)
		}
		fields[i] = d.Fields[idx]
	}
	return &Dtype{Fields: fields, ItemSize: d.ItemSize}, nil
}

// Equal reports whether a and b describe the same layout (names,
// types, shapes, offsets).
func Equal(a, b *Dtype) bool {
	if a.ItemSize != b.ItemSize || len(a.Fields) != len(b.Fields) {
		return false
	}
	for i := range a.Fields {
		fa, fb := a.Fields[i], b.Fields[i]
		if fa.Name != fb.Name || fa.Type != fb.Type || fa.Offset != fb.Offset || len(fa.Shape) != len(fb.Shape) {
			return false
		}
		for j := range fa.Shape {
			if fa.Shape[j] != fb.Shape[j] {
				return false
			}
		}
	}
	return true
}
