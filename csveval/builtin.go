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
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var identRe = regexp.MustCompile(`^[A-Za-z_]\w*$`)

var builtinConstants = map[string]Value{
	"pi": num(math.Pi),
	"e":  num(math.E),
}

func ipow(base, exp float64) float64 {
	return math.Pow(base, exp)
}

// (*Call).eval implements spec.md §9's required element-wise
// operation set: min/max, clip, where, logical ops (handled as
// operators), sin, cos, and string count/replace.
func (c *Call) eval(env *Env) (Value, error) {
	args := make([]Value, len(c.Args))
	for i, a := range c.Args {
		v, err := a.eval(env)
		if err != nil {
			return Value{}, err
		}
		args[i] = v
	}
	switch c.Name {
	case "sin":
		if err := arity(c.Name, args, 1); err != nil {
			return Value{}, err
		}
		return num(math.Sin(args[0].Num)), nil
	case "cos":
		if err := arity(c.Name, args, 1); err != nil {
			return Value{}, err
		}
		return num(math.Cos(args[0].Num)), nil
	case "abs":
		if err := arity(c.Name, args, 1); err != nil {
			return Value{}, err
		}
		return num(math.Abs(args[0].Num)), nil
	case "minimum":
		if err := arity(c.Name, args, 2); err != nil {
			return Value{}, err
		}
		return num(math.Min(args[0].Num, args[1].Num)), nil
	case "maximum":
		if err := arity(c.Name, args, 2); err != nil {
			return Value{}, err
		}
		return num(math.Max(args[0].Num, args[1].Num)), nil
	case "clip":
		if err := arity(c.Name, args, 3); err != nil {
			return Value{}, err
		}
		v, lo, hi := args[0].Num, args[1].Num, args[2].Num
		if v < lo {
			return num(lo), nil
		}
		if v > hi {
			return num(hi), nil
		}
		return num(v), nil
	case "where":
		if err := arity(c.Name, args, 3); err != nil {
			return Value{}, err
		}
		if args[0].Num != 0 {
			return args[1], nil
		}
		return args[2], nil
	case "count":
		if err := arity(c.Name, args, 2); err != nil {
			return Value{}, err
		}
		return num(float64(strings.Count(args[0].asString(), args[1].asString()))), nil
	case "replace":
		if err := arity(c.Name, args, 3); err != nil {
			return Value{}, err
		}
		return str(strings.ReplaceAll(args[0].asString(), args[1].asString(), args[2].asString())), nil
	case "float":
		if err := arity(c.Name, args, 1); err != nil {
			return Value{}, err
		}
		if args[0].IsStr {
			v, err := strconv.ParseFloat(args[0].Str, 64)
			if err != nil {
				return Value{}, err
			}
			return num(v), nil
		}
		return args[0], nil
	}
	return Value{}, &UserNameError{Name: c.Name, Reason: "unknown function"}
}

func arity(name string, args []Value, n int) error {
	if len(args) != n {
		return fmt.Errorf("csveval: %s expects %d argument(s), got %d", name, n, len(args))
	}
	return nil
}
