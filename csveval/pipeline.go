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

// Package csveval is the expression evaluator pipeline (§4.8): a
// small Python-like statement language run once per record against a
// Stream, rewriting input fields in place (the update overlay) and/or
// appending newly computed ones (the output fields).
package csveval

import (
	"fmt"
	"io"
	"strings"

	"github.com/mission-systems-pty-ltd/comma/ctype"
	"github.com/mission-systems-pty-ltd/comma/dtype"
	"github.com/mission-systems-pty-ltd/comma/runctx"
	"github.com/mission-systems-pty-ltd/comma/schema"
	"github.com/mission-systems-pty-ltd/comma/stream"
)

// Options configures an Evaluator at construction time.
type Options struct {
	// UpdateFields/OutputFields override field inference/classification
	// when non-nil (the CLI's --output-fields, say). Nil means "infer
	// from the expression's assignment targets".
	UpdateFields []string
	OutputFields []string

	// OutputFormat is a comma format string, one token per output
	// field. Empty means every output field defaults to double (§4.8).
	OutputFormat string

	Permissive bool

	// Shutdown, if non-nil, is polled between batches (spec.md §4.8
	// Shutdown); Run exits cleanly, without error, once it is set.
	Shutdown *runctx.Shutdown
}

// Evaluator binds a parsed Program to an input Stream and, if the
// expression introduces new fields, a tied output Stream.
type Evaluator struct {
	Input        *stream.Stream
	Output       *stream.Stream
	Program      *Program
	UpdateFields []string
	OutputFields []string
	Permissive   bool
	Shutdown     *runctx.Shutdown

	outDtype *dtype.Dtype
}

// New parses exprText and builds an Evaluator reading from input and,
// if needed, writing newly computed fields to target.
func New(input *stream.Stream, exprText string, target io.Writer, opts Options) (*Evaluator, error) {
	prog, err := Parse(exprText)
	if err != nil {
		return nil, err
	}
	inferred := InferFields(prog)
	for _, f := range inferred {
		if err := CheckIdentifier(f); err != nil {
			return nil, err
		}
	}

	defaultUpdate, defaultOutput := ClassifyFields(inferred, input.Fields)
	updateFields := opts.UpdateFields
	if updateFields == nil {
		updateFields = defaultUpdate
	}
	outputFields := opts.OutputFields
	if outputFields == nil {
		outputFields = defaultOutput
	}

	for _, f := range updateFields {
		if input.InputFieldIndex(f) < 0 {
			return nil, &UserNameError{Name: f, Reason: "update field is not one of the stream's input fields"}
		}
	}
	inputSet := map[string]bool{}
	for _, f := range input.Fields {
		inputSet[f] = true
	}
	for _, f := range outputFields {
		if inputSet[f] {
			return nil, &UserNameError{Name: f, Reason: "output field collides with an input field"}
		}
	}

	ev := &Evaluator{
		Input:        input,
		Program:      prog,
		UpdateFields: updateFields,
		OutputFields: outputFields,
		Permissive:   opts.Permissive,
		Shutdown:     opts.Shutdown,
	}

	if len(outputFields) > 0 {
		types, err := outputTypes(outputFields, opts.OutputFormat)
		if err != nil {
			return nil, err
		}
		outSchema, err := schema.New(strings.Join(outputFields, ","), types...)
		if err != nil {
			return nil, err
		}
		outStream, err := stream.New(outSchema, nil, target, stream.Options{
			Delimiter: input.Delimiter,
			Precision: input.Precision,
			Flush:     input.Flush,
			Binary:    input.Binary,
		})
		if err != nil {
			return nil, err
		}
		if err := stream.Bind(input, outStream); err != nil {
			return nil, err
		}
		ev.Output = outStream
		ev.outDtype = outSchema.FlatDtype
	}

	return ev, nil
}

// outputTypes builds a FieldSpec per output field: double by default,
// or the types named by format if given (§4.8 output-format inference).
func outputTypes(fields []string, format string) ([]schema.FieldSpec, error) {
	if format == "" {
		out := make([]schema.FieldSpec, len(fields))
		for i := range out {
			out[i] = schema.Scalar(ctype.Type{Kind: ctype.F8})
		}
		return out, nil
	}
	toks, err := ctype.ExpandTokens(format)
	if err != nil {
		return nil, err
	}
	if len(toks) != len(fields) {
		return nil, fmt.Errorf("csveval: output-format has %d token(s) for %d output field(s)", len(toks), len(fields))
	}
	out := make([]schema.FieldSpec, len(fields))
	for i, tok := range toks {
		t, err := ctype.TypeOf(tok)
		if err != nil {
			return nil, err
		}
		out[i] = schema.Scalar(t)
	}
	return out, nil
}

// Run drives the full pipeline to end of input: read a batch, evaluate
// every row, apply the update overlay and emit output, repeat.
func (ev *Evaluator) Run() error {
	for {
		if ev.Shutdown != nil && ev.Shutdown.IsSet() {
			return nil
		}
		_, ok, err := ev.Input.Read(0)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := ev.runBatch(); err != nil {
			return err
		}
	}
}

// bindInputRow binds row i of raw into env under the stream's
// effective field names, skipping blanks (§4.8 step 3).
func bindInputRow(env *Env, fields []string, raw *dtype.Batch, i int) {
	for fi, f := range fields {
		if f == "" {
			continue
		}
		env.Set(f, readValue(raw.FieldBytes(i, fi), raw.Dtype.Fields[fi].Type))
	}
}

func (ev *Evaluator) runBatch() error {
	raw := ev.Input.LastInput()
	n := raw.Len

	var out *dtype.Batch
	if ev.Output != nil {
		out = dtype.Allocate(ev.outDtype, n)
	}

	for i := 0; i < n; i++ {
		env := NewEnv(ev.Permissive)
		bindInputRow(env, ev.Input.Fields, raw, i)

		if err := ev.Program.Run(env); err != nil {
			return fmt.Errorf("csveval: row %d: %w", i, err)
		}

		for _, f := range ev.UpdateFields {
			v, err := env.Get(f)
			if err != nil {
				return err
			}
			idx := ev.Input.InputFieldIndex(f)
			t := raw.Dtype.Fields[idx].Type
			writeValue(raw.FieldBytes(i, idx), t, v)
			if !ev.Input.Binary {
				text := formatValueText(v, t, ev.Input.Precision)
				if err := ev.Input.UpdateAsciiToken(i, idx, text); err != nil {
					return err
				}
			}
		}

		for oi, f := range ev.OutputFields {
			v, err := env.Get(f)
			if err != nil {
				return err
			}
			writeValue(out.FieldBytes(i, oi), ev.outDtype.Fields[oi].Type, v)
		}
	}

	if ev.Output != nil {
		return ev.Output.Write(out)
	}
	return ev.Input.Dump()
}
