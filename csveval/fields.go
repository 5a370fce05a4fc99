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

// InferFields walks prog's statements in order and returns every
// assignment-target name, first-appearance order, duplicates removed
// (§4.8 "field inference from expressions").
func InferFields(prog *Program) []string {
	var out []string
	seen := map[string]bool{}
	for _, s := range prog.Stmts {
		for _, t := range s.targets() {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	return out
}

// ClassifyFields splits inferred assignment targets into update
// fields (already present in the stream's effective field list) and
// output fields (everything else), both in first-appearance order.
func ClassifyFields(inferred, inputFields []string) (update, output []string) {
	present := map[string]bool{}
	for _, f := range inputFields {
		present[f] = true
	}
	for _, f := range inferred {
		if present[f] {
			update = append(update, f)
		} else {
			output = append(output, f)
		}
	}
	return update, output
}
