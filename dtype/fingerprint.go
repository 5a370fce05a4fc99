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
	"encoding/binary"

	"github.com/dchest/siphash"
)

// sipKey is a fixed key: the fingerprint only needs to be stable
// within one process (it keys an in-memory projection-table cache),
// not cryptographically secure across processes.
var sipKey0, sipKey1 uint64 = 0x646f74746c617965, 0x777261707065643f

// Fingerprint returns a fast, stable 64-bit hash of d's shape: field
// names, types, shapes and offsets. Stream uses it to memoize the
// (comparatively expensive) data_extraction_dtype projection table so
// that repeated Streams over the same schema/fields combination don't
// recompute it.
func Fingerprint(d *Dtype) uint64 {
	var buf []byte
	var scratch [8]byte
	for _, f := range d.Fields {
		buf = append(buf, f.Name...)
		buf = append(buf, 0)
		binary.LittleEndian.PutUint64(scratch[:], uint64(f.Type.Kind))
		buf = append(buf, scratch[:]...)
		binary.LittleEndian.PutUint64(scratch[:], uint64(f.Type.StrLen))
		buf = append(buf, scratch[:]...)
		binary.LittleEndian.PutUint64(scratch[:], uint64(f.Offset))
		buf = append(buf, scratch[:]...)
		for _, s := range f.Shape {
			binary.LittleEndian.PutUint64(scratch[:], uint64(s))
			buf = append(buf, scratch[:]...)
		}
		buf = append(buf, 0xff)
	}
	return siphash.Hash(sipKey0, sipKey1, buf)
}
