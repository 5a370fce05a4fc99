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

// Package stream is the heart of the engine: it binds a Schema to a
// source and/or target with an effective field list and wire format,
// computes the input/complete/extraction dtypes, and implements
// Read/Write/Dump/masked-Dump and tied-stream composition.
package stream

import (
	"fmt"
	"hash/fnv"
	"io"
	"strings"
	"sync"

	"github.com/mission-systems-pty-ltd/comma/ctype"
	"github.com/mission-systems-pty-ltd/comma/dtype"
	"github.com/mission-systems-pty-ltd/comma/schema"
)

const maxBatchBytes = 65536

// Options configures a Stream at construction time (comma's
// "stream options" of spec.md §3/§4.4).
type Options struct {
	// Fields is the comma-joined effective wire field list. Empty
	// means "use the schema's own field order".
	Fields string
	// FullXpath controls whether Fields entries are resolved as
	// full xpaths (with shorthand expansion) or via leaf lookup.
	FullXpath bool

	// Binary is either a string (an explicit wire format, same as
	// Format), a bool (true: infer a format from the schema; false:
	// force ascii), or nil (unset).
	Binary any
	// Format is an explicit wire format string (binary mode) or ""
	// (ascii mode), used when Binary is nil or true.
	Format string

	Delimiter byte // default ','
	Precision int  // default 12
	Flush     bool

	// Defaults supplies fill text for missing fields, keyed by
	// schema xpath; parsed through the field's own type.
	Defaults map[string]string

	// SourceIsStdin marks src as a non-seekable standard input, which
	// rules out Read's "negative size reads everything" shortcut
	// (io.ReadAll would block waiting for an EOF that a live pipe may
	// never send in the way a regular file's does).
	SourceIsStdin bool

	Verbose bool
}

// Stream binds a Schema to a source and/or target.
type Stream struct {
	Schema *schema.Schema
	Source io.Reader
	Target io.Writer

	SourceIsStdin bool
	Delimiter     byte
	Precision     int
	Flush         bool
	FullXpath     bool
	Verbose       bool
	Defaults      map[string]string

	Tied *Stream

	Fields []string // effective wire fields, schema order not required
	Format string   // binary wire format, "" in ascii mode
	Binary bool

	InputDtype      *dtype.Dtype
	Size            int
	MissingFields   []string
	MissingDtype    *dtype.Dtype
	CompleteDtype   *dtype.Dtype
	ExtractionDtype *dtype.Dtype // nil when Fields == Schema.Fields

	lastInput  *dtype.Batch
	lastLines  []string // ascii mode only: raw lines of the last read, one per row
	missingBuf *dtype.Batch
	chopper    lineChopper
}

// New builds a Stream bound to src and/or tgt.
func New(s *schema.Schema, src io.Reader, tgt io.Writer, opts Options) (*Stream, error) {
	if src == nil && tgt == nil {
		return nil, ErrNoSourceOrTarget
	}
	delim := opts.Delimiter
	if delim == 0 {
		delim = ','
	}
	precision := opts.Precision
	if precision == 0 {
		precision = 12
	}
	st := &Stream{
		Schema:        s,
		Source:        src,
		Target:        tgt,
		Delimiter:     delim,
		Precision:     precision,
		Flush:         opts.Flush,
		FullXpath:     opts.FullXpath,
		Verbose:       opts.Verbose,
		Defaults:      opts.Defaults,
		SourceIsStdin: opts.SourceIsStdin,
	}

	fields, err := resolveFields(s, opts.Fields, opts.FullXpath)
	if err != nil {
		return nil, err
	}
	st.Fields = fields

	format, binary, err := resolveFormat(s, fields, opts.Binary, opts.Format, opts.Verbose)
	if err != nil {
		return nil, err
	}
	st.Format = format
	st.Binary = binary

	inputDtype, err := st.buildInputDtype()
	if err != nil {
		return nil, err
	}
	st.InputDtype = inputDtype

	st.Size = defaultSize(inputDtype, opts.Flush)

	missingFields := missingFields(s, fields)
	st.MissingFields = missingFields
	missingDtype := buildMissingDtype(s, missingFields)
	st.MissingDtype = missingDtype
	st.CompleteDtype = dtype.Concat(inputDtype, missingDtype)

	if !sameFieldOrder(fields, s.Fields) {
		ext, err := extractionDtype(st.CompleteDtype, s.Fields)
		if err != nil {
			return nil, fmt.Errorf("stream: building extraction dtype: %w", err)
		}
		st.ExtractionDtype = ext
	}

	return st, nil
}

// extractionDtypeCache memoizes dtype.Project by (CompleteDtype,
// target names) shape, keyed by dtype.Fingerprint's structural hash
// combined with an FNV hash of the target name order, so that
// repeated Streams built over the same schema/fields combination
// don't recompute the projection table (spec.md §9 "compute, at
// Stream construction, a permutation and offset table").
var extractionDtypeCache sync.Map // map[uint64]*dtype.Dtype

func extractionDtype(complete *dtype.Dtype, names []string) (*dtype.Dtype, error) {
	h := fnv.New64a()
	for _, n := range names {
		h.Write([]byte(n))
		h.Write([]byte{0})
	}
	key := dtype.Fingerprint(complete) ^ h.Sum64()
	if cached, ok := extractionDtypeCache.Load(key); ok {
		return cached.(*dtype.Dtype), nil
	}
	ext, err := dtype.Project(complete, names)
	if err != nil {
		return nil, err
	}
	extractionDtypeCache.Store(key, ext)
	return ext, nil
}

// Bind ties tgt to src as a second, lock-step stream: tgt's output
// rows concatenate with src's buffered input rows.
func Bind(src, tgt *Stream) error {
	if tgt.Binary != src.Binary {
		return &TiedMismatchError{Reason: "binary mode differs"}
	}
	if !tgt.Binary && tgt.Delimiter != src.Delimiter {
		return &TiedMismatchError{Reason: "delimiter differs"}
	}
	tgt.Tied = src
	tgt.Size = src.Size
	return nil
}

func resolveFields(s *schema.Schema, spec string, fullXpath bool) ([]string, error) {
	var resolved []string
	if spec == "" {
		resolved = append([]string{}, s.Fields...)
	} else if fullXpath {
		resolved = s.ExpandShorthand(spec)
	} else {
		for _, tok := range strings.Split(spec, ",") {
			if strings.Contains(tok, "/") {
				return nil, &FieldNameError{Field: tok, Reason: "leaf-mode fields must not contain '/'"}
			}
			if tok == "" {
				resolved = append(resolved, "")
				continue
			}
			if s.AmbiguousLeaves[tok] {
				return nil, &AmbiguousLeafError{Leaf: tok}
			}
			if xpath, ok := s.XpathOfLeaf[tok]; ok {
				resolved = append(resolved, xpath)
			} else {
				resolved = append(resolved, tok)
			}
		}
	}

	seen := map[string]bool{}
	matched := false
	for _, f := range resolved {
		if f == "" {
			continue
		}
		if _, isSchemaField := s.TypeOfField[f]; isSchemaField {
			if seen[f] {
				return nil, &FieldNameError{Field: f, Reason: "schema field appears more than once in fields"}
			}
			seen[f] = true
			matched = true
		}
	}
	if !matched {
		return nil, &FieldNameError{Field: spec, Reason: "resolved fields share no element with the schema"}
	}
	return resolved, nil
}

func resolveFormat(s *schema.Schema, fields []string, binary any, format string, verbose bool) (string, bool, error) {
	switch b := binary.(type) {
	case string:
		if format != "" && format != b && verbose {
			fmt.Fprintf(loggerTarget(), "comma: --binary and --format both given; preferring --binary\n")
		}
		return b, true, nil
	case bool:
		if b {
			if format != "" {
				return format, true, nil
			}
			toks := make([]string, 0, len(fields))
			for _, f := range fields {
				t, ok := s.TypeOfField[f]
				if !ok {
					return "", false, &FieldNameError{Field: f, Reason: "not a schema field; cannot infer binary format"}
				}
				tok, err := t.Type.CommaToken()
				if err != nil {
					return "", false, err
				}
				for i := 0; i < t.Count(); i++ {
					toks = append(toks, tok)
				}
			}
			inferred, err := ctype.Compress(strings.Join(toks, ","))
			if err != nil {
				return "", false, err
			}
			return inferred, true, nil
		}
		return "", false, nil
	default:
		if format != "" {
			return format, true, nil
		}
		return "", false, nil
	}
}

func (st *Stream) buildInputDtype() (*dtype.Dtype, error) {
	if st.Binary {
		types, err := ctype.TypesOf(st.Format)
		if err != nil {
			return nil, err
		}
		if len(types) != len(st.Fields) {
			return nil, &ArityMismatchError{Fields: len(st.Fields), Format: len(types)}
		}
		fields := make([]dtype.Field, len(types))
		for i, t := range types {
			fields[i] = dtype.Field{Name: colName(st.Fields[i], i), Type: t}
		}
		return dtype.New(fields), nil
	}
	fields := make([]dtype.Field, len(st.Fields))
	for i, f := range st.Fields {
		if lt, ok := st.Schema.TypeOfField[f]; ok {
			fields[i] = dtype.Field{Name: colName(f, i), Type: lt.Type, Shape: lt.Shape}
		} else {
			fields[i] = dtype.Field{Name: colName(f, i), Type: ctype.Type{Kind: ctype.String, StrLen: 0}}
		}
	}
	return dtype.New(fields), nil
}

func colName(f string, i int) string {
	if f != "" {
		return f
	}
	return fmt.Sprintf("__col_%d", i)
}

func defaultSize(input *dtype.Dtype, flush bool) int {
	if flush {
		return 1
	}
	if input.ItemSize == 0 {
		return 1
	}
	n := maxBatchBytes / input.ItemSize
	if n < 1 {
		n = 1
	}
	return n
}

func missingFields(s *schema.Schema, fields []string) []string {
	present := map[string]bool{}
	for _, f := range fields {
		present[f] = true
	}
	var out []string
	for _, f := range s.Fields {
		if !present[f] {
			out = append(out, f)
		}
	}
	return out
}

func buildMissingDtype(s *schema.Schema, missing []string) *dtype.Dtype {
	fields := make([]dtype.Field, len(missing))
	for i, f := range missing {
		lt := s.TypeOfField[f]
		fields[i] = dtype.Field{Name: f, Type: lt.Type, Shape: lt.Shape}
	}
	return dtype.New(fields)
}

func sameFieldOrder(a, b []string) bool {
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
