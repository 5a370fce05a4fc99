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

package main

import (
	"fmt"
	"os"
	"strings"

	"sigs.k8s.io/yaml"
)

// fileConfig is the shape of an optional --config=<file> YAML
// document. Any flag also given on the command line overrides the
// corresponding config entry (spec.md §3 Configuration).
type fileConfig struct {
	DefaultValues string `json:"default-values"`
	Fields        string `json:"fields"`
	OutputFields  string `json:"output-fields"`
	OutputFormat  string `json:"output-format"`
	Delimiter     string `json:"delimiter"`
}

func loadConfig(path string) (*fileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading --config %s: %w", path, err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parsing --config %s: %w", path, err)
	}
	return &cfg, nil
}

// parseDefaultValues turns "field=value,field2=value2" into a map, the
// CLI spelling of Stream Options.Defaults (spec.md §6 --default-values).
func parseDefaultValues(s string) (map[string]string, error) {
	if s == "" {
		return nil, nil
	}
	out := map[string]string{}
	for _, pair := range strings.Split(s, ",") {
		if pair == "" {
			continue
		}
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("--default-values: %q is not of the form field=value", pair)
		}
		out[name] = value
	}
	return out, nil
}

// overrideString returns cliVal if the user explicitly set it (it
// differs from flagDefault), else falls back to the config file's
// value, else flagDefault.
func overrideString(cliVal, flagDefault, fromConfig string) string {
	if cliVal != flagDefault {
		return cliVal
	}
	if fromConfig != "" {
		return fromConfig
	}
	return cliVal
}
