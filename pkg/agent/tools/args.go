package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ValidationError reports tool arguments rejected before any side effect.
type ValidationError struct {
	Tool     string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %s", e.Tool, strings.Join(e.Problems, "; "))
}

// NewValidationError creates a ValidationError with a single problem.
func NewValidationError(tool, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Tool: tool, Problems: []string{fmt.Sprintf(format, args...)}}
}

// ArgDecoder validates raw tool arguments against a compiled JSON schema and
// decodes them into a typed struct.
type ArgDecoder struct {
	tool   string
	schema *gojsonschema.Schema
}

// NewArgDecoder compiles schema for the named tool.
func NewArgDecoder(tool string, schema map[string]interface{}) (*ArgDecoder, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema for %s: %w", tool, err)
	}
	return &ArgDecoder{tool: tool, schema: compiled}, nil
}

// MustArgDecoder is NewArgDecoder for schemas fixed at compile time.
func MustArgDecoder(tool string, schema map[string]interface{}) *ArgDecoder {
	d, err := NewArgDecoder(tool, schema)
	if err != nil {
		panic(err)
	}
	return d
}

// Decode validates raw and unmarshals it into dst. Empty input is treated as
// an empty object. Every failure is a *ValidationError.
func (d *ArgDecoder) Decode(raw json.RawMessage, dst interface{}) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		raw = []byte("{}")
	}

	result, err := d.schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return NewValidationError(d.tool, "arguments are not valid JSON: %v", err)
	}

	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, re := range result.Errors() {
			problems = append(problems, re.String())
		}
		return &ValidationError{Tool: d.tool, Problems: problems}
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return NewValidationError(d.tool, "%v", err)
	}
	return nil
}
