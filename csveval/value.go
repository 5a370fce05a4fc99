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

package csveval

import (
	"strconv"

	"github.com/mission-systems-pty-ltd/comma/ctype"
	"github.com/mission-systems-pty-ltd/comma/dtype"
	"github.com/mission-systems-pty-ltd/comma/tstamp"
)

// readValue decodes one record-buffer column into an evaluator Value,
// the binding counterpart of a batch row (§4.8 step 3: "f := _input[f]").
func readValue(buf []byte, t ctype.Type) Value {
	switch t.Kind {
	case ctype.String:
		return str(dtype.GetString(buf))
	case ctype.Timestamp, ctype.Timedelta:
		return num(float64(dtype.GetInt64(buf, t)))
	default:
		return num(dtype.GetFloat64(buf, t))
	}
}

// writeValue encodes v into a record-buffer column under t, the
// binary half of the update/output overlay.
func writeValue(buf []byte, t ctype.Type, v Value) {
	switch t.Kind {
	case ctype.String:
		dtype.PutString(buf, v.asString())
	case ctype.Timestamp, ctype.Timedelta:
		dtype.PutInt64(buf, t, int64(v.Num))
	default:
		dtype.PutFloat64(buf, t, v.Num)
	}
}

// formatValueText renders v as the ascii column text stream would,
// mirroring stream's formatColumn so an updated field's retained line
// stays consistent with a freshly read one.
func formatValueText(v Value, t ctype.Type, precision int) string {
	switch t.Kind {
	case ctype.String:
		return v.asString()
	case ctype.Timestamp:
		return tstamp.FromWire(int64(v.Num))
	case ctype.I1, ctype.U1, ctype.I2, ctype.U2, ctype.I4, ctype.U4, ctype.I8, ctype.U8, ctype.Timedelta:
		return strconv.FormatInt(int64(v.Num), 10)
	default:
		return strconv.FormatFloat(v.Num, 'g', precision, 64)
	}
}
