package result

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Stanleyhoo1/Afterversed/pkg/apperr"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaBaseURL = "https://afterversed.local/schemas/"

//go:embed schemas/*.json
var builtinSchemas embed.FS

// Schema is a compiled JSON schema plus its source text, which is shown to
// the decision-maker when the final answer is requested.
type Schema struct {
	name     string
	text     string
	compiled *jsonschema.Schema
}

func Compile(name, text string) (*Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020

	schemaURL := schemaBaseURL + name + ".schema.json"
	if err := c.AddResource(schemaURL, strings.NewReader(text)); err != nil {
		return nil, fmt.Errorf("load schema %s: %w", name, err)
	}

	compiled, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}

	return &Schema{name: name, text: text, compiled: compiled}, nil
}

// Builtin returns one of the embedded task schemas: registrar, catalogue or directory.
func Builtin(name string) (*Schema, error) {
	data, err := builtinSchemas.ReadFile("schemas/" + name + ".json")
	if err != nil {
		return nil, fmt.Errorf("unknown schema %q: %w", name, err)
	}

	return Compile(name, string(data))
}

func (s *Schema) Name() string {
	return s.name
}

func (s *Schema) Text() string {
	return s.text
}

func (s *Schema) Validate(v any) error {
	return s.compiled.Validate(v)
}

// Parse extracts the document from raw and validates it against schema.
// A nil schema only requires well-formed JSON.
func Parse(raw string, schema *Schema) (json.RawMessage, error) {
	const op = "result.Parse"

	doc, err := Extract(raw)
	if err != nil {
		reason := "invalid_json"
		if errors.Is(err, ErrNoJSON) {
			reason = "no_json"
		}

		return nil, apperr.Wrap(op, apperr.CodeSchemaViolation, err, map[string]any{
			apperr.MetaReason: reason,
			apperr.MetaStage:  apperr.StageExtraction,
		})
	}

	if schema == nil {
		return doc, nil
	}

	v, err := decodeDocument(doc)
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeSchemaViolation, err, map[string]any{
			apperr.MetaReason: "invalid_json",
			apperr.MetaStage:  apperr.StageExtraction,
		})
	}

	if err := schema.Validate(v); err != nil {
		return nil, apperr.Wrap(op, apperr.CodeSchemaViolation, err, map[string]any{
			apperr.MetaReason: "schema_mismatch",
			apperr.MetaStage:  apperr.StageExtraction,
			apperr.MetaField:  schema.Name(),
		})
	}

	return doc, nil
}
