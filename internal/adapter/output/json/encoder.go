// Package json renders command results as indented JSON on a stream. Every
// machine-facing command (list, test, validate, hook, history) goes through
// the same encoder so output formatting stays consistent.
package json

import (
	"encoding/json"
	"fmt"
	"io"
)

// Encoder writes values as indented JSON to a single stream.
type Encoder struct {
	out io.Writer
}

// NewEncoder creates an encoder over the given stream.
func NewEncoder(out io.Writer) *Encoder {
	return &Encoder{out: out}
}

// Encode writes v followed by a trailing newline.
func (e *Encoder) Encode(v interface{}) error {
	encoder := json.NewEncoder(e.out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode result to json: %w", err)
	}
	return nil
}
