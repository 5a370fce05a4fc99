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

// Package schema builds the recursive record-type description (spec.md
// §3 Schema, §4.3): a tree of named fields leading to leaf
// primitive/array types, together with its derived projections (the
// flat list of leaf xpaths, the unrolled scalar dtype, the shorthand
// expansion map, and leaf-to-xpath resolution).
package schema

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mission-systems-pty-ltd/comma/ctype"
	"github.com/mission-systems-pty-ltd/comma/dtype"
	"github.com/mission-systems-pty-ltd/comma/tstamp"
	"golang.org/x/exp/slices"
)

// DefaultFieldNamePrefix names synthetic placeholders substituted for
// blank concise field names.
const DefaultFieldNamePrefix = "comma_struct_default_field_name_"

// LeafType is a primitive leaf type together with an optional array
// shape (spec.md §3 Type).
type LeafType struct {
	Type  ctype.Type
	Shape []int
}

// Count is the number of primitive elements (1 for a scalar).
func (t LeafType) Count() int {
	if len(t.Shape) == 0 {
		return 1
	}
	n := 1
	for _, s := range t.Shape {
		n *= s
	}
	return n
}

// FieldSpec is one entry of a Schema's concise_types: either a leaf
// type or a nested sub-Schema.
type FieldSpec struct {
	Leaf   *LeafType
	Nested *Schema
}

// Scalar builds a non-array leaf FieldSpec.
func Scalar(t ctype.Type) FieldSpec {
	return FieldSpec{Leaf: &LeafType{Type: t}}
}

// Array builds an array leaf FieldSpec.
func Array(t ctype.Type, shape ...int) FieldSpec {
	return FieldSpec{Leaf: &LeafType{Type: t, Shape: append([]int{}, shape...)}}
}

// Nested builds a FieldSpec wrapping a sub-Schema.
func Nested(s *Schema) FieldSpec {
	return FieldSpec{Nested: s}
}

// ErrSlashInFieldName reports a concise field name containing '/'.
var ErrSlashInFieldName = errors.New("schema: concise field names must not contain '/'")

// MissingTypesError reports more concise fields than concise types.
type MissingTypesError struct {
	Fields []string
}

func (e *MissingTypesError) Error() string {
	return fmt.Sprintf("schema: missing types for fields '%s'", strings.Join(e.Fields, ","))
}

// Schema is the recursive record-type description of spec.md §3.
type Schema struct {
	ConciseFields []string
	ConciseTypes  []FieldSpec

	Fields []string   // full xpath leaves, in order
	Types  []LeafType // aligned with Fields
	Format string

	FlatDtype         *dtype.Dtype
	UnrolledFlatDtype *dtype.Dtype

	Shorthand map[string][]string

	Leaves          []string
	AmbiguousLeaves map[string]bool
	XpathOfLeaf     map[string]string
	TypeOfField     map[string]LeafType
}

// New builds a Schema from a comma-joined (or already split) concise
// field list and a positional list of concise types.
func New(concreteFields any, types ...FieldSpec) (*Schema, error) {
	var fields []string
	switch v := concreteFields.(type) {
	case string:
		if v == "" {
			fields = nil
		} else {
			fields = strings.Split(v, ",")
		}
	case []string:
		fields = append([]string{}, v...)
	default:
		return nil, fmt.Errorf("schema: fields must be a string or []string, got %T", concreteFields)
	}
	for _, f := range fields {
		if strings.Contains(f, "/") {
			return nil, ErrSlashInFieldName
		}
	}
	if len(fields) > len(types) {
		return nil, &MissingTypesError{Fields: fields[len(types):]}
	}
	conciseFields := make([]string, len(types))
	for i := range conciseFields {
		if i < len(fields) && fields[i] != "" {
			conciseFields[i] = fields[i]
		} else {
			conciseFields[i] = fmt.Sprintf("%s%d", DefaultFieldNamePrefix, i)
		}
	}

	s := &Schema{
		ConciseFields:   conciseFields,
		ConciseTypes:    types,
		Shorthand:       map[string][]string{},
		AmbiguousLeaves: map[string]bool{},
		XpathOfLeaf:     map[string]string{},
		TypeOfField:     map[string]LeafType{},
	}

	var dfields []dtype.Field
	for i, name := range conciseFields {
		spec := types[i]
		if spec.Nested != nil {
			sub := spec.Nested
			for _, leaf := range sub.Fields {
				xpath := name + "/" + leaf
				lt := sub.TypeOfField[leaf]
				s.Fields = append(s.Fields, xpath)
				s.Types = append(s.Types, lt)
				s.TypeOfField[xpath] = lt
				dfields = append(dfields, dtype.Field{Name: xpath, Type: lt.Type, Shape: lt.Shape})
			}
			prefixed := make([]string, len(sub.Fields))
			for j, leaf := range sub.Fields {
				prefixed[j] = name + "/" + leaf
			}
			s.Shorthand[name] = prefixed
			for subname, subfields := range sub.Shorthand {
				xpath := name + "/" + subname
				rewritten := make([]string, len(subfields))
				for i, f := range subfields {
					rewritten[i] = name + "/" + f
				}
				s.Shorthand[xpath] = rewritten
			}
			continue
		}
		lt := *spec.Leaf
		s.Fields = append(s.Fields, name)
		s.Types = append(s.Types, lt)
		s.TypeOfField[name] = lt
		dfields = append(dfields, dtype.Field{Name: name, Type: lt.Type, Shape: lt.Shape})
	}

	format, err := formatOfLeaves(s.Types)
	if err != nil {
		return nil, err
	}
	s.Format = format
	s.FlatDtype = dtype.New(dfields)
	s.UnrolledFlatDtype = dtype.Unroll(s.FlatDtype)

	leafOf := func(xpath string) string {
		parts := strings.Split(xpath, "/")
		return parts[len(parts)-1]
	}
	counts := map[string]int{}
	s.Leaves = make([]string, len(s.Fields))
	for i, xpath := range s.Fields {
		leaf := leafOf(xpath)
		s.Leaves[i] = leaf
		counts[leaf]++
	}
	for leaf, n := range counts {
		if n > 1 {
			s.AmbiguousLeaves[leaf] = true
		}
	}
	for i, xpath := range s.Fields {
		leaf := s.Leaves[i]
		if !s.AmbiguousLeaves[leaf] {
			s.XpathOfLeaf[leaf] = xpath
		}
	}
	if dup, ok := firstDuplicate(s.Fields); ok {
		return nil, &ErrDuplicateField{Field: dup}
	}
	return s, nil
}

// ErrDuplicateField reports a full xpath that appears twice in the
// schema's own flattened field list (for example a repeated concise
// name), which this implementation rejects rather than silently
// aliasing. Duplicates in a stream's field list are rejected by the
// stream package instead.
type ErrDuplicateField struct {
	Field string
}

func (e *ErrDuplicateField) Error() string {
	return fmt.Sprintf("schema: duplicate field %q", e.Field)
}

func firstDuplicate(fields []string) (string, bool) {
	var seen []string
	for _, f := range fields {
		if slices.Contains(seen, f) {
			return f, true
		}
		seen = append(seen, f)
	}
	return "", false
}

func formatOfLeaves(types []LeafType) (string, error) {
	var toks []string
	for _, t := range types {
		tok, err := t.Type.CommaToken()
		if err != nil {
			return "", err
		}
		for i := 0; i < t.Count(); i++ {
			toks = append(toks, tok)
		}
	}
	return ctype.Compress(strings.Join(toks, ","))
}

// Allocate returns a zero batch of size records laid out by the
// Schema's flat dtype; a size of zero or less allocates one record.
func (s *Schema) Allocate(size int) *dtype.Batch {
	if size <= 0 {
		size = 1
	}
	return dtype.Allocate(s.FlatDtype, size)
}

// ErrNotScalarBatch reports that ToTuple was called on a batch whose
// length is not 1.
var ErrNotScalarBatch = errors.New("schema: expected a single-record batch")

// ToTuple converts a single-record batch into a flat slice of Go
// values: float64 for numeric kinds, string for STRING, time.Time for
// TIMESTAMP (the platform-neutral calendar object), and a raw
// microsecond int64 for TIMEDELTA, in unrolled-flat-dtype order.
func (s *Schema) ToTuple(b *dtype.Batch) ([]any, error) {
	if b.Len != 1 {
		return nil, ErrNotScalarBatch
	}
	v, err := b.View(s.UnrolledFlatDtype)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(v.Dtype.Fields))
	for i, f := range v.Dtype.Fields {
		out[i] = scalarValue(v.FieldBytes(0, i), f.Type)
	}
	return out, nil
}

func scalarValue(buf []byte, t ctype.Type) any {
	switch t.Kind {
	case ctype.String:
		return dtype.GetString(buf)
	case ctype.Timestamp:
		return tstamp.ToTime(dtype.GetInt64(buf, t))
	case ctype.Timedelta:
		return dtype.GetInt64(buf, t)
	default:
		return dtype.GetFloat64(buf, t)
	}
}

// ExpandShorthand splits a comma-joined field spec and substitutes
// any token found in Shorthand with its tuple of leaf xpaths,
// preserving the tokens that aren't shorthand.
func (s *Schema) ExpandShorthand(fieldSpec string) []string {
	var out []string
	for _, name := range splitNonEmpty(fieldSpec) {
		if expanded, ok := s.Shorthand[name]; ok {
			out = append(out, expanded...)
		} else {
			out = append(out, name)
		}
	}
	return out
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// ShapeToString renders a shape tuple the way the format codec wants
// it, e.g. (2,3) -> "(2,3)", (2,) -> "2".
func ShapeToString(shape []int) string {
	if len(shape) == 1 {
		return strconv.Itoa(shape[0])
	}
	parts := make([]string, len(shape))
	for i, s := range shape {
		parts[i] = strconv.Itoa(s)
	}
	return "(" + strings.Join(parts, ",") + ")"
}
