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
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/mission-systems-pty-ltd/comma/ctype"
)

// GetFloat64 decodes buf (which must hold exactly t.Size() bytes) as
// a float64, widening integers and narrower floats as needed.
// TIMESTAMP/TIMEDELTA columns are read as their microsecond int64
// widened to float64 (use GetInt64 to keep full precision). It does
// not handle STRING.
func GetFloat64(buf []byte, t ctype.Type) float64 {
	switch t.Kind {
	case ctype.I1:
		return float64(int8(buf[0]))
	case ctype.U1:
		return float64(buf[0])
	case ctype.I2:
		return float64(int16(binary.LittleEndian.Uint16(buf)))
	case ctype.U2:
		return float64(binary.LittleEndian.Uint16(buf))
	case ctype.I4:
		return float64(int32(binary.LittleEndian.Uint32(buf)))
	case ctype.U4:
		return float64(binary.LittleEndian.Uint32(buf))
	case ctype.I8:
		return float64(int64(binary.LittleEndian.Uint64(buf)))
	case ctype.U8:
		return float64(binary.LittleEndian.Uint64(buf))
	case ctype.F4:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(buf)))
	case ctype.F8:
		return math.Float64frombits(binary.LittleEndian.Uint64(buf))
	case ctype.Timestamp, ctype.Timedelta:
		return float64(int64(binary.LittleEndian.Uint64(buf)))
	}
	panic(fmt.Sprintf("dtype: GetFloat64 unsupported kind %v", t.Kind))
}

// PutFloat64 encodes v into buf as t, narrowing/truncating to the
// integer kind's width when t is an integer type.
func PutFloat64(buf []byte, t ctype.Type, v float64) {
	switch t.Kind {
	case ctype.I1:
		buf[0] = byte(int8(v))
	case ctype.U1:
		buf[0] = byte(uint8(v))
	case ctype.I2:
		binary.LittleEndian.PutUint16(buf, uint16(int16(v)))
	case ctype.U2:
		binary.LittleEndian.PutUint16(buf, uint16(v))
	case ctype.I4:
		binary.LittleEndian.PutUint32(buf, uint32(int32(v)))
	case ctype.U4:
		binary.LittleEndian.PutUint32(buf, uint32(v))
	case ctype.I8:
		binary.LittleEndian.PutUint64(buf, uint64(int64(v)))
	case ctype.U8:
		binary.LittleEndian.PutUint64(buf, uint64(v))
	case ctype.F4:
		binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(v)))
	case ctype.F8:
		binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
	case ctype.Timestamp, ctype.Timedelta:
		binary.LittleEndian.PutUint64(buf, uint64(int64(v)))
	default:
		panic(fmt.Sprintf("dtype: PutFloat64 unsupported kind %v", t.Kind))
	}
}

// GetInt64 decodes an integer or timestamp/timedelta column exactly
// (no float widening, so 64-bit values don't lose precision).
func GetInt64(buf []byte, t ctype.Type) int64 {
	switch t.Kind {
	case ctype.I1:
		return int64(int8(buf[0]))
	case ctype.U1:
		return int64(buf[0])
	case ctype.I2:
		return int64(int16(binary.LittleEndian.Uint16(buf)))
	case ctype.U2:
		return int64(binary.LittleEndian.Uint16(buf))
	case ctype.I4:
		return int64(int32(binary.LittleEndian.Uint32(buf)))
	case ctype.U4:
		return int64(binary.LittleEndian.Uint32(buf))
	case ctype.I8, ctype.Timestamp, ctype.Timedelta:
		return int64(binary.LittleEndian.Uint64(buf))
	case ctype.U8:
		return int64(binary.LittleEndian.Uint64(buf))
	}
	panic(fmt.Sprintf("dtype: GetInt64 unsupported kind %v", t.Kind))
}

// PutInt64 is the integer/timestamp counterpart of PutFloat64.
func PutInt64(buf []byte, t ctype.Type, v int64) {
	PutFloat64(buf, t, float64(v))
	if t.Kind == ctype.I8 || t.Kind == ctype.U8 || t.Kind == ctype.Timestamp || t.Kind == ctype.Timedelta {
		binary.LittleEndian.PutUint64(buf, uint64(v))
	}
}

// GetString decodes a fixed-width NUL-padded STRING column, trimming
// trailing NUL bytes.
func GetString(buf []byte) string {
	i := bytes.IndexByte(buf, 0)
	if i < 0 {
		return string(buf)
	}
	return string(buf[:i])
}

// PutString encodes s into a fixed-width STRING column, truncating
// if s is longer than the column and NUL-padding if shorter.
func PutString(buf []byte, s string) {
	n := copy(buf, s)
	for i := n; i < len(buf); i++ {
		buf[i] = 0
	}
}
