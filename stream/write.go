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
	"fmt"
	"strings"

	"github.com/mission-systems-pty-ltd/comma/dtype"
)

type flusher interface {
	Flush() error
}

func (st *Stream) flushTarget() error {
	if f, ok := st.Target.(flusher); ok {
		return f.Flush()
	}
	return nil
}

// Write validates and emits batch, the schema-shaped output of an
// evaluation or a plain copy pipeline. If the Stream is tied, batch's
// rows are concatenated with the tied Stream's last-read input rows,
// in lock-step.
func (st *Stream) Write(batch *dtype.Batch) error {
	if !dtype.Equal(batch.Dtype, st.Schema.FlatDtype) {
		return &ShapeError{Reason: "batch dtype does not equal the stream's schema dtype"}
	}
	if st.Tied != nil {
		if st.Tied.lastInput == nil || st.Tied.lastInput.Len != batch.Len {
			return &ShapeError{Reason: "tied stream's buffered input length does not match batch length"}
		}
	}
	if st.Binary {
		return st.writeBinary(batch)
	}
	return st.writeAscii(batch)
}

func (st *Stream) writeBinary(batch *dtype.Batch) error {
	if st.Tied == nil {
		_, err := st.Target.Write(batch.Buf)
		if err != nil {
			return err
		}
		return st.flushTarget()
	}
	tiedSize := st.Tied.lastInput.Dtype.ItemSize
	ownSize := batch.Dtype.ItemSize
	row := make([]byte, tiedSize+ownSize)
	for i := 0; i < batch.Len; i++ {
		copy(row[:tiedSize], st.Tied.lastInput.Row(i))
		copy(row[tiedSize:], batch.Row(i))
		if _, err := st.Target.Write(row); err != nil {
			return err
		}
	}
	return st.flushTarget()
}

func (st *Stream) writeAscii(batch *dtype.Batch) error {
	u, err := batch.View(st.Schema.UnrolledFlatDtype)
	if err != nil {
		return err
	}
	delim := string(st.Delimiter)
	for i := 0; i < u.Len; i++ {
		toks := make([]string, len(u.Dtype.Fields))
		for fi, f := range u.Dtype.Fields {
			tok, err := formatColumn(u.FieldBytes(i, fi), f.Type, st.Precision)
			if err != nil {
				return err
			}
			toks[fi] = tok
		}
		line := strings.Join(toks, delim)
		if st.Tied != nil {
			line = st.Tied.lastLines[i] + delim + line
		}
		if _, err := fmt.Fprintln(st.Target, line); err != nil {
			return err
		}
	}
	return st.flushTarget()
}

// Dump writes the Stream's last-read input buffer back to the target
// untouched, flushing even when there is nothing buffered (per the
// resolved Open Question in SPEC_FULL.md).
func (st *Stream) Dump() error {
	if st.lastInput == nil {
		return st.flushTarget()
	}
	if st.Binary {
		if _, err := st.Target.Write(st.lastInput.Buf); err != nil {
			return err
		}
		return st.flushTarget()
	}
	for _, line := range st.lastLines {
		if _, err := fmt.Fprintln(st.Target, line); err != nil {
			return err
		}
	}
	return st.flushTarget()
}

// DumpMasked emits only the rows of the last-read input buffer where
// mask[i] is true.
func (st *Stream) DumpMasked(mask []bool) error {
	if st.lastInput == nil {
		if len(mask) != 0 {
			return &MaskSizeMismatchError{MaskLen: len(mask), BatchLen: 0}
		}
		return st.flushTarget()
	}
	if len(mask) != st.lastInput.Len {
		return &MaskSizeMismatchError{MaskLen: len(mask), BatchLen: st.lastInput.Len}
	}
	if st.Binary {
		itemSize := st.lastInput.Dtype.ItemSize
		for i, keep := range mask {
			if !keep {
				continue
			}
			if _, err := st.Target.Write(st.lastInput.Row(i)[:itemSize]); err != nil {
				return err
			}
		}
		return st.flushTarget()
	}
	for i, keep := range mask {
		if !keep {
			continue
		}
		if _, err := fmt.Fprintln(st.Target, st.lastLines[i]); err != nil {
			return err
		}
	}
	return st.flushTarget()
}
