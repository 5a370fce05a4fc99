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

// Command csv-eval reads a delimited or binary record stream,
// evaluates a per-record numerical expression against it (or a
// select/exit-if condition), and writes the resulting records back
// out (spec.md §4.8, §6 CLI surface).
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/mission-systems-pty-ltd/comma/csveval"
	"github.com/mission-systems-pty-ltd/comma/ctype"
	"github.com/mission-systems-pty-ltd/comma/runctx"
	"github.com/mission-systems-pty-ltd/comma/schema"
	"github.com/mission-systems-pty-ltd/comma/stream"
	"github.com/mission-systems-pty-ltd/comma/xfile"
)

var (
	dashFields       string
	dashBinary       string
	dashFormat       string
	dashDelimiter    string
	dashPrecision    int
	dashFlush        bool
	dashOutputFields string
	dashOutputFormat string
	dashSelect       string
	dashExitIf       string
	dashDefaults     string
	dashFullXpath    bool
	dashPermissive   bool
	dashVerbose      bool
	dashConfig       string
	dashInput        string
	dashOutput       string
)

func init() {
	flag.StringVar(&dashFields, "fields", "", "comma-separated input field names (blank entries are unnamed columns)")
	flag.StringVar(&dashBinary, "binary", "", "read/write a binary stream of this comma format (mutually exclusive with --format)")
	flag.StringVar(&dashFormat, "format", "", "ascii stream: comma format of named input fields (default 'd' for each)")
	flag.StringVar(&dashDelimiter, "delimiter", ",", "ascii field delimiter")
	flag.IntVar(&dashPrecision, "precision", 12, "significant digits for floating point ascii output")
	flag.BoolVar(&dashFlush, "flush", false, "read and write one record at a time")
	flag.StringVar(&dashOutputFields, "output-fields", "", "do not infer output fields from the expression; use these instead")
	flag.StringVar(&dashOutputFormat, "output-format", "", "comma format of output fields (default 'd' for each)")
	flag.StringVar(&dashSelect, "select", "", "dump only the records for which <cond> is true; cannot be combined with expressions")
	flag.StringVar(&dashExitIf, "exit-if", "", "dump records verbatim until <cond> is true, then stop; cannot be combined with expressions")
	flag.StringVar(&dashDefaults, "default-values", "", "fill values for missing schema fields, e.g. y=2,z=3")
	flag.BoolVar(&dashFullXpath, "full-xpath", false, "resolve --fields entries as full xpaths instead of leaf names")
	flag.BoolVar(&dashPermissive, "permissive", false, "leave builtins available in the expression sandbox (use with care)")
	flag.BoolVar(&dashVerbose, "verbose", false, "print resolved fields/format to stderr before processing")
	flag.StringVar(&dashConfig, "config", "", "YAML file providing default-values/fields/output-fields/output-format/delimiter")
	flag.StringVar(&dashInput, "input", "-", "input file ('-' or empty for stdin); a .zst suffix is transparently decompressed")
	flag.StringVar(&dashOutput, "output", "-", "output file ('-' or empty for stdout); a .zst suffix is transparently compressed")
}

func main() {
	flag.Parse()
	runID := uuid.NewString()

	if err := run(runID); err != nil {
		fmt.Fprintf(os.Stderr, "csv-eval[%s]: %s\n", runID, err)
		if _, ok := err.(userError); ok {
			os.Exit(1)
		}
		os.Exit(2)
	}
}

// userError marks a validation failure (bad flags, bad fields, bad
// expression) as distinct from an unexpected runtime fault, per
// spec.md §6's exit-code contract (1 vs. nonzero).
type userError struct{ error }

func userErrf(f string, args ...any) error {
	return userError{fmt.Errorf(f, args...)}
}

func run(runID string) error {
	if dashBinary != "" && dashFormat != "" {
		return userErrf("--binary and --format are mutually exclusive")
	}
	if dashSelect != "" && dashExitIf != "" {
		return userErrf("--select and --exit-if cannot be used together")
	}
	expr := strings.Join(flag.Args(), " ")
	conditional := dashSelect != "" || dashExitIf != ""
	if conditional && expr != "" {
		return userErrf("--select/--exit-if cannot be combined with expressions")
	}
	if conditional && (dashOutputFields != "" || dashOutputFormat != "") {
		return userErrf("--select/--exit-if cannot be used with --output-fields or --output-format")
	}
	if !conditional && expr == "" {
		return userErrf("no expression given (see --select/--exit-if for conditional modes)")
	}

	if dashConfig != "" {
		cfg, err := loadConfig(dashConfig)
		if err != nil {
			return userErrf("%s", err)
		}
		dashDefaults = overrideString(dashDefaults, "", cfg.DefaultValues)
		dashFields = overrideString(dashFields, "", cfg.Fields)
		dashOutputFields = overrideString(dashOutputFields, "", cfg.OutputFields)
		dashOutputFormat = overrideString(dashOutputFormat, "", cfg.OutputFormat)
		dashDelimiter = overrideString(dashDelimiter, ",", cfg.Delimiter)
	}

	if dashFields == "" {
		return userErrf("specify input stream fields, e.g. --fields=x,y")
	}
	if len(dashDelimiter) != 1 {
		return userErrf("--delimiter must be a single character")
	}

	defaults, err := parseDefaultValues(dashDefaults)
	if err != nil {
		return userErrf("%s", err)
	}

	binary := dashBinary != ""
	declaredFormat := dashBinary
	if !binary {
		declaredFormat = dashFormat
	}
	fieldFormat, err := formatWithoutBlanks(declaredFormat, dashFields)
	if err != nil {
		return userErrf("%s", err)
	}
	// fieldFormat may describe more columns than dashFields names
	// (a --binary/--format wider than --fields means trailing
	// unnamed wire columns); pad dashFields with blank entries so
	// every wire column the stream sees has a corresponding (even if
	// blank) field slot.
	dashFields = padFields(dashFields, countTokens(fieldFormat))

	inSchema, err := schemaFromFormat(dashFields, fieldFormat)
	if err != nil {
		return userErrf("%s", err)
	}

	src, srcCloser, err := xfile.Source(dashInput)
	if err != nil {
		return err
	}
	defer srcCloser.Close()
	tgt, tgtCloser, err := xfile.Target(dashOutput)
	if err != nil {
		return err
	}
	defer tgtCloser.Close()

	var binaryOpt any = false
	if binary {
		binaryOpt = fieldFormat
	}
	inStream, err := stream.New(inSchema, src, tgt, stream.Options{
		Fields:        dashFields,
		FullXpath:     dashFullXpath,
		Binary:        binaryOpt,
		Delimiter:     dashDelimiter[0],
		Precision:     dashPrecision,
		Flush:         dashFlush,
		Defaults:      defaults,
		SourceIsStdin: dashInput == "" || dashInput == "-",
		Verbose:       dashVerbose,
	})
	if err != nil {
		return userErrf("%s", err)
	}

	sd := &runctx.Shutdown{}
	sd.Install()

	if dashVerbose {
		fmt.Fprintf(os.Stderr, "csv-eval[%s]: input fields: %q\n", runID, strings.Join(inStream.Fields, ","))
		fmt.Fprintf(os.Stderr, "csv-eval[%s]: input format: %q\n", runID, inStream.Format)
	}

	if conditional {
		if dashSelect != "" {
			return csveval.Select(inStream, dashSelect, dashPermissive, sd)
		}
		return csveval.ExitIf(inStream, dashExitIf, dashPermissive, sd)
	}

	var outputFields []string
	if dashOutputFields != "" {
		outputFields = strings.Split(dashOutputFields, ",")
	}
	ev, err := csveval.New(inStream, expr, tgt, csveval.Options{
		OutputFields: outputFields,
		OutputFormat: dashOutputFormat,
		Permissive:   dashPermissive,
		Shutdown:     sd,
	})
	if err != nil {
		return userErrf("%s", err)
	}
	if dashVerbose && ev.Output != nil {
		fmt.Fprintf(os.Stderr, "csv-eval[%s]: output fields: %q\n", runID, strings.Join(ev.Output.Fields, ","))
		fmt.Fprintf(os.Stderr, "csv-eval[%s]: output format: %q\n", runID, ev.Output.Format)
	}
	return ev.Run()
}

// formatWithoutBlanks aligns a (possibly short, possibly empty)
// declared comma format against fieldsCSV: a blank field name gets the
// zero-length string placeholder type, a named field gets its
// declared type or 'd' by default (spec.md §4.8 output format
// inference, generalized here to input fields per
// comma/csv/applications/csv_eval.py's format_without_blanks).
func formatWithoutBlanks(format, fieldsCSV string) (string, error) {
	fields := strings.Split(fieldsCSV, ",")
	var maybeTypes []string
	if format != "" {
		toks, err := ctype.ExpandTokens(format)
		if err != nil {
			return "", err
		}
		maybeTypes = toks
	}
	n := len(fields)
	if len(maybeTypes) > n {
		n = len(maybeTypes)
	}
	types := make([]string, n)
	for i := 0; i < n; i++ {
		var f, maybeType string
		if i < len(fields) {
			f = fields[i]
		}
		if i < len(maybeTypes) {
			maybeType = maybeTypes[i]
		}
		switch {
		case f == "":
			types[i] = "s[0]"
		case maybeType != "":
			types[i] = maybeType
		default:
			types[i] = "d"
		}
	}
	return strings.Join(types, ","), nil
}

// countTokens returns the number of comma-separated tokens in a
// (already-blank-expanded) format string, 0 for "".
func countTokens(format string) int {
	if format == "" {
		return 0
	}
	return strings.Count(format, ",") + 1
}

// padFields extends fieldsCSV with trailing blank entries so it names
// exactly n columns, matching a --binary/--format wider than --fields.
func padFields(fieldsCSV string, n int) string {
	fields := strings.Split(fieldsCSV, ",")
	for len(fields) < n {
		fields = append(fields, "")
	}
	return strings.Join(fields, ",")
}

func schemaFromFormat(fieldsCSV, format string) (*schema.Schema, error) {
	toks, err := ctype.ExpandTokens(format)
	if err != nil {
		return nil, err
	}
	specs := make([]schema.FieldSpec, len(toks))
	for i, tok := range toks {
		t, err := ctype.TypeOf(tok)
		if err != nil {
			return nil, err
		}
		specs[i] = schema.Scalar(t)
	}
	return schema.New(fieldsCSV, specs...)
}
