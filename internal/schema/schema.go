// Package schema validates mapping documents against the embedded JSON
// Schema. The schema is the single source of truth for required fields and
// value shapes; the mapping store performs the same checks structurally so a
// load failure always names the offending file.
package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/mappings.schema.json
var schemaFS embed.FS

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

// Mappings returns the compiled schema for mapping documents.
func Mappings() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		raw, err := schemaFS.ReadFile("schemas/mappings.schema.json")
		if err != nil {
			compileErr = fmt.Errorf("read embedded schema: %w", err)
			return
		}

		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("mappings.schema.json", bytes.NewReader(raw)); err != nil {
			compileErr = fmt.Errorf("load mapping schema: %w", err)
			return
		}
		compiled, compileErr = compiler.Compile("mappings.schema.json")
	})
	return compiled, compileErr
}

// ValidateDocument checks raw JSON bytes against the mapping schema.
// A nil return means the document conforms.
func ValidateDocument(raw []byte) error {
	s, err := Mappings()
	if err != nil {
		return err
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decode document for validation: %w", err)
	}

	return s.Validate(doc)
}
