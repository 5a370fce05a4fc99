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
	"strings"

	"github.com/mission-systems-pty-ltd/comma/dtype"
)

// LastInput exposes the Stream's retained input batch, the buffer an
// evaluator's update overlay writes into in-place for binary mode.
func (st *Stream) LastInput() *dtype.Batch { return st.lastInput }

// LastLines exposes the Stream's retained raw ascii lines.
func (st *Stream) LastLines() []string { return st.lastLines }

// InputFieldIndex resolves a schema xpath to its position in
// InputDtype, or -1 if it isn't one of the wire fields.
func (st *Stream) InputFieldIndex(name string) int {
	return st.InputDtype.Index(name)
}

// UpdateAsciiToken rewrites the fieldIdx-th delimiter-split token of
// row's retained raw line with text, the ascii half of the update
// overlay (§4.8 step 4): "for each line, split by delimiter, replace
// tokens at the indices of the updated fields ... rejoin."
func (st *Stream) UpdateAsciiToken(row, fieldIdx int, text string) error {
	if st.Binary {
		return &ShapeError{Reason: "UpdateAsciiToken called on a binary stream"}
	}
	if row < 0 || row >= len(st.lastLines) {
		return &ShapeError{Reason: "row index out of range for retained ascii lines"}
	}
	toks := splitRow(st.lastLines[row], st.Delimiter, len(st.InputDtype.Fields))
	toks[fieldIdx] = text
	st.lastLines[row] = strings.Join(toks, string(st.Delimiter))
	return nil
}
