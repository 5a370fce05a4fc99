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
	"errors"
	"fmt"
)

// ArityMismatchError reports a fields list whose length disagrees
// with a format's column count.
type ArityMismatchError struct {
	Fields int
	Format int
}

func (e *ArityMismatchError) Error() string {
	return fmt.Sprintf("stream: %d fields but format describes %d columns", e.Fields, e.Format)
}

// FieldNameError reports an invalid, reserved, duplicate, or
// slash-containing field name in a stream's effective field list.
type FieldNameError struct {
	Field  string
	Reason string
}

func (e *FieldNameError) Error() string {
	return fmt.Sprintf("stream: field %q: %s", e.Field, e.Reason)
}

// AmbiguousLeafError reports a leaf-mode field resolving to more than
// one schema xpath.
type AmbiguousLeafError struct {
	Leaf string
}

func (e *AmbiguousLeafError) Error() string {
	return fmt.Sprintf("stream: %q is an ambiguous leaf", e.Leaf)
}

// TiedMismatchError reports an incompatible tied-stream pairing.
type TiedMismatchError struct {
	Reason string
}

func (e *TiedMismatchError) Error() string {
	return fmt.Sprintf("stream: tied stream mismatch: %s", e.Reason)
}

// ShapeError reports a batch whose shape does not satisfy an
// operation's precondition.
type ShapeError struct {
	Reason string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("stream: shape error: %s", e.Reason)
}

// MaskSizeMismatchError reports a mask whose length disagrees with
// the retained input batch's length.
type MaskSizeMismatchError struct {
	MaskLen, BatchLen int
}

func (e *MaskSizeMismatchError) Error() string {
	return fmt.Sprintf("stream: mask length %d does not match buffered input length %d", e.MaskLen, e.BatchLen)
}

// UnsupportedTypeForTextError reports a type the ascii writer cannot
// render.
type UnsupportedTypeForTextError struct {
	Field string
}

func (e *UnsupportedTypeForTextError) Error() string {
	return fmt.Sprintf("stream: field %q has no textual representation", e.Field)
}

// ErrInvalidSize reports a negative read size requested against
// stdin, where the "read to end" shortcut isn't meaningful.
var ErrInvalidSize = errors.New("stream: negative size is invalid when reading from stdin")

// ErrNoSourceOrTarget reports a Stream built with neither a source
// nor a target.
var ErrNoSourceOrTarget = errors.New("stream: a Stream needs a source, a target, or both")
