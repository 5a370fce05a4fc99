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
	"bufio"
	"io"
)

// lineChopper reads newline-delimited records from a source and
// skips blank lines, the ascii counterpart of the binary path's fixed
// record size. Modeled on the teacher's CsvChopper (xsv.CsvChopper):
// a small stateful reader that lazily attaches to its io.Reader and
// is safe to call repeatedly across many Stream.Read calls. Unlike
// CsvChopper there is no quoting to worry about, so a bufio.Scanner
// suffices in place of encoding/csv.
type lineChopper struct {
	r  io.Reader
	sc *bufio.Scanner
}

// getNext returns the next non-blank line, or ok=false at end of
// stream.
func (c *lineChopper) getNext(r io.Reader) (string, bool) {
	if c.sc == nil || c.r != r {
		c.r = r
		c.sc = bufio.NewScanner(r)
		c.sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	}
	for c.sc.Scan() {
		line := c.sc.Text()
		if line == "" {
			continue
		}
		return line, true
	}
	return "", false
}
