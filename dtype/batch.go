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

import "fmt"

// Batch is a contiguous, row-major record array: Len records of
// Dtype.ItemSize bytes each.
type Batch struct {
	Dtype *Dtype
	Buf   []byte
	Len   int
}

// Allocate returns a zero-initialized Batch of n records laid out by d.
func Allocate(d *Dtype, n int) *Batch {
	return &Batch{Dtype: d, Buf: make([]byte, d.ItemSize*n), Len: n}
}

// Wrap treats an existing buffer as a Batch of d-shaped records. The
// buffer's length must be an exact multiple of d.ItemSize.
func Wrap(d *Dtype, buf []byte) (*Batch, error) {
	if d.ItemSize == 0 {
		return &Batch{Dtype: d, Buf: buf, Len: 0}, nil
	}
	if len(buf)%d.ItemSize != 0 {
		return nil, fmt.Errorf("dtype: buffer of %d bytes is not a multiple of item size %d", len(buf), d.ItemSize)
	}
	return &Batch{Dtype: d, Buf: buf, Len: len(buf) / d.ItemSize}, nil
}

// Row returns the byte slice of the i-th record.
func (b *Batch) Row(i int) []byte {
	off := i * b.Dtype.ItemSize
	return b.Buf[off : off+b.Dtype.ItemSize]
}

// FieldBytes returns the byte slice of field fieldIdx within row i.
func (b *Batch) FieldBytes(row, fieldIdx int) []byte {
	f := b.Dtype.Fields[fieldIdx]
	base := row*b.Dtype.ItemSize + f.Offset
	return b.Buf[base : base+f.Size()]
}

// View reinterprets b's backing buffer under a different, layout
// compatible (equal itemsize) dtype, without copying.
func (b *Batch) View(d *Dtype) (*Batch, error) {
	if d.ItemSize != b.Dtype.ItemSize {
		return nil, fmt.Errorf("dtype: cannot view itemsize %d buffer as itemsize %d dtype", b.Dtype.ItemSize, d.ItemSize)
	}
	return &Batch{Dtype: d, Buf: b.Buf, Len: b.Len}, nil
}

// Clone returns a deep copy of b.
func (b *Batch) Clone() *Batch {
	buf := make([]byte, len(b.Buf))
	copy(buf, b.Buf)
	return &Batch{Dtype: b.Dtype, Buf: buf, Len: b.Len}
}

// Slice returns the sub-batch [lo,hi) sharing the backing buffer.
func (b *Batch) Slice(lo, hi int) *Batch {
	return &Batch{
		Dtype: b.Dtype,
		Buf:   b.Buf[lo*b.Dtype.ItemSize : hi*b.Dtype.ItemSize],
		Len:   hi - lo,
	}
}
