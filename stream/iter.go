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

import "github.com/mission-systems-pty-ltd/comma/dtype"

// Iter repeatedly calls Read(size) and invokes fn with each
// schema-shaped batch until end of stream or fn returns false or a
// non-nil error. Go has no generator/coroutine primitive, so this is
// the callback-driven stand-in for the source's lazy iterator.
func (st *Stream) Iter(size int, fn func(*dtype.Batch) (bool, error)) error {
	for {
		batch, ok, err := st.Read(size)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		cont, err := fn(batch)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
}
