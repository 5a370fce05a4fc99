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
	"io"

	"github.com/mission-systems-pty-ltd/comma/dtype"
)

// Read pulls the next batch of up to size records, projects it into
// schema order, and returns it. A zero size uses the Stream's default
// batch size; ok is false at a clean end of stream.
func (st *Stream) Read(size int) (batch *dtype.Batch, ok bool, err error) {
	if size == 0 {
		size = st.Size
	}
	if size < 0 {
		if st.SourceIsStdin {
			return nil, false, ErrInvalidSize
		}
	}

	var input *dtype.Batch
	if st.Binary {
		input, err = st.readBinary(size)
	} else {
		input, err = st.readAscii(size)
	}
	if err != nil {
		return nil, false, err
	}
	if input == nil || input.Len == 0 {
		// lastInput/lastLines are deliberately left untouched here: a
		// caller inspecting stream state right after the end-of-stream
		// sentinel still sees the last real batch (SPEC_FULL.md §7.4).
		return nil, false, nil
	}
	st.lastInput = input

	if st.ExtractionDtype == nil {
		v, err := input.View(st.Schema.FlatDtype)
		if err != nil {
			return nil, false, err
		}
		return v, true, nil
	}

	complete, err := st.buildCompleteBatch(input)
	if err != nil {
		return nil, false, err
	}
	ext, err := complete.View(st.ExtractionDtype)
	if err != nil {
		return nil, false, err
	}
	out := dtype.Allocate(st.Schema.FlatDtype, complete.Len)
	for i := 0; i < complete.Len; i++ {
		for fi := range st.Schema.FlatDtype.Fields {
			copy(out.FieldBytes(i, fi), ext.FieldBytes(i, fi))
		}
	}
	return out, true, nil
}

// buildCompleteBatch appends, per row, the memoized missing-fields
// fill batch after input's own columns, matching CompleteDtype's
// layout (input_dtype's fields followed by missing_dtype's).
func (st *Stream) buildCompleteBatch(input *dtype.Batch) (*dtype.Batch, error) {
	if st.missingBuf == nil || st.missingBuf.Len != input.Len {
		mb := dtype.Allocate(st.MissingDtype, input.Len)
		for i := 0; i < input.Len; i++ {
			for fi, f := range st.MissingFields {
				lt := st.Schema.TypeOfField[f]
				buf := mb.FieldBytes(i, fi)
				if text, ok := st.Defaults[f]; ok {
					if err := parseColumn(buf, text, lt.Type); err != nil {
						return nil, err
					}
				}
			}
		}
		st.missingBuf = mb
	}
	complete := dtype.Allocate(st.CompleteDtype, input.Len)
	inSize := input.Dtype.ItemSize
	for i := 0; i < input.Len; i++ {
		row := complete.Row(i)
		copy(row[:inSize], input.Row(i))
		copy(row[inSize:], st.missingBuf.Row(i))
	}
	return complete, nil
}

func (st *Stream) readBinary(size int) (*dtype.Batch, error) {
	itemSize := st.InputDtype.ItemSize
	if itemSize == 0 {
		return nil, nil
	}
	if size < 0 {
		buf, err := io.ReadAll(st.Source)
		if err != nil {
			return nil, err
		}
		buf = buf[:len(buf)-len(buf)%itemSize]
		return dtype.Wrap(st.InputDtype, buf)
	}
	buf := make([]byte, size*itemSize)
	n, err := io.ReadFull(st.Source, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	n -= n % itemSize
	return dtype.Wrap(st.InputDtype, buf[:n])
}

func (st *Stream) readAscii(size int) (*dtype.Batch, error) {
	var lines []string
	for size < 0 || len(lines) < size {
		line, ok := st.chopper.getNext(st.Source)
		if !ok {
			break
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return nil, nil
	}
	st.lastLines = lines
	n := len(st.InputDtype.Fields)
	b := dtype.Allocate(st.InputDtype, len(lines))
	for i, line := range lines {
		toks := splitRow(line, st.Delimiter, n)
		for fi, f := range st.InputDtype.Fields {
			if err := parseColumn(b.FieldBytes(i, fi), toks[fi], f.Type); err != nil {
				return nil, err
			}
		}
	}
	return b, nil
}
