// Package schema validates JSON reports against the embedded report schema.
package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed report-schema.json
var reportSchema []byte

// ErrInvalidJSON is returned when the document is not JSON.
var ErrInvalidJSON = errors.New("invalid JSON")

// FieldError is one schema violation.
type FieldError struct {
	Field       string `json:"field"`
	Description string `json:"description"`
}

// Result is the outcome of a validation.
type Result struct {
	Valid  bool         `json:"valid"`
	Errors []FieldError `json:"errors,omitempty"`
}

// Schema returns the embedded JSON schema.
func Schema() []byte {
	return bytes.Clone(reportSchema)
}

// Validate checks data against the report schema. Schema violations are
// reported in the Result; an error means data could not be validated at all.
func Validate(data []byte) (*Result, error) {
	var doc any

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	err := dec.Decode(&doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidJSON, err)
	}

	res, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(reportSchema), gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("validate report: %w", err)
	}

	out := &Result{Valid: res.Valid()}

	for _, verr := range res.Errors() {
		out.Errors = append(out.Errors, FieldError{Field: verr.Field(), Description: verr.Description()})
	}

	return out, nil
}
