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

import "os"

// loggerTarget is where a Stream prints --verbose diagnostics; always
// stderr, matching the CLI commands' own fmt.Fprintf(os.Stderr, ...)
// idiom rather than a structured logger (there's no log level or
// rotation concern here, just a one-line warning).
func loggerTarget() *os.File {
	return os.Stderr
}
