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
	"strconv"
	"strings"

	"github.com/mission-systems-pty-ltd/comma/ctype"
	"github.com/mission-systems-pty-ltd/comma/dtype"
	"github.com/mission-systems-pty-ltd/comma/tstamp"
)

// parseColumn decodes one delimiter-split text token into buf under
// type t. An empty token (a short row, or an intentionally blank
// fill value) leaves the column at its zero value, except for a
// Timestamp column, where "" is itself a meaningful sentinel
// (not-a-date-time) handled by tstamp.ToWire.
func parseColumn(buf []byte, tok string, t ctype.Type) error {
	switch t.Kind {
	case ctype.String:
		dtype.PutString(buf, tok)
		return nil
	case ctype.Timestamp:
		us, err := tstamp.ToWire(tok)
		if err != nil {
			return err
		}
		dtype.PutInt64(buf, t, us)
		return nil
	}
	if tok == "" {
		return nil
	}
	switch t.Kind {
	case ctype.Timedelta, ctype.I8, ctype.U8:
		v, err := strconv.ParseInt(strings.TrimSpace(tok), 10, 64)
		if err != nil {
			return err
		}
		dtype.PutInt64(buf, t, v)
	default:
		v, err := strconv.ParseFloat(strings.TrimSpace(tok), 64)
		if err != nil {
			return err
		}
		dtype.PutFloat64(buf, t, v)
	}
	return nil
}

// formatColumn renders one unrolled scalar column as text, per §4.6.
func formatColumn(buf []byte, t ctype.Type, precision int) (string, error) {
	switch t.Kind {
	case ctype.String:
		return dtype.GetString(buf), nil
	case ctype.Timestamp:
		return tstamp.FromWire(dtype.GetInt64(buf, t)), nil
	case ctype.I1, ctype.U1, ctype.I2, ctype.U2, ctype.I4, ctype.U4, ctype.I8, ctype.U8:
		return strconv.FormatInt(dtype.GetInt64(buf, t), 10), nil
	case ctype.F4, ctype.F8:
		return strconv.FormatFloat(dtype.GetFloat64(buf, t), 'g', precision, 64), nil
	}
	return "", &UnsupportedTypeForTextError{Field: t.String()}
}

// splitRow splits line into exactly n tokens by delim, padding with
// empty strings for a short row.
func splitRow(line string, delim byte, n int) []string {
	toks := strings.Split(line, string(delim))
	if len(toks) >= n {
		return toks[:n]
	}
	out := make([]string, n)
	copy(out, toks)
	return out
}
