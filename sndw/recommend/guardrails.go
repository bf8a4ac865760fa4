package recommend

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// CandidateSchema requires a non-blank songTitle and artist. Extra fields are allowed.
const CandidateSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["songTitle", "artist"],
  "properties": {
    "songTitle": {"type": "string", "pattern": "\\S"},
    "artist":    {"type": "string", "pattern": "\\S"}
  }
}`

// CandidateValidator checks decoded candidate objects against a JSON schema.
type CandidateValidator struct {
	schema *gojsonschema.Schema
}

// NewCandidateValidator compiles CandidateSchema.
func NewCandidateValidator() (*CandidateValidator, error) {
	return NewSchemaValidator([]byte(CandidateSchema))
}

// NewSchemaValidator compiles an arbitrary candidate schema.
func NewSchemaValidator(schema []byte) (*CandidateValidator, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile candidate schema: %w", err)
	}
	return &CandidateValidator{schema: compiled}, nil
}

// Validate checks one encoded JSON document.
func (v *CandidateValidator) Validate(data []byte) error {
	return v.validate(gojsonschema.NewBytesLoader(data))
}

// ValidateValue checks an already decoded document.
func (v *CandidateValidator) ValidateValue(doc any) error {
	return v.validate(gojsonschema.NewGoLoader(doc))
}

func (v *CandidateValidator) validate(doc gojsonschema.JSONLoader) error {
	result, err := v.schema.Validate(doc)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("schema validation errors: %s", strings.Join(msgs, "; "))
	}

	return nil
}

// OutputPolicy rejects generated text no parser should attempt.
type OutputPolicy struct {
	MaxOutputSize int // bytes; 0 is unbounded
}

var errBlankOutput = errors.New("generator returned no text")

// Check returns an error when text is unusable.
func (p OutputPolicy) Check(text string) error {
	if strings.TrimSpace(text) == "" {
		return errBlankOutput
	}
	if p.MaxOutputSize > 0 && len(text) > p.MaxOutputSize {
		return fmt.Errorf("output size %d exceeds maximum %d", len(text), p.MaxOutputSize)
	}
	return nil
}
