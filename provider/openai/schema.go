package openai_provider

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed summary_schema.json
var summarySchemaJSON string

var (
	compileOnce   sync.Once
	summarySchema *jsonschema.Schema
	compileErr    error
)

// SummarySchema returns the compiled JSON Schema for model summaries.
func SummarySchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("summary_schema.json", strings.NewReader(summarySchemaJSON)); err != nil {
			compileErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		schema, err := compiler.Compile("summary_schema.json")
		if err != nil {
			compileErr = fmt.Errorf("compile summary schema: %w", err)
			return
		}
		summarySchema = schema
	})
	return summarySchema, compileErr
}

// validateSummary checks that data is a JSON object shaped like a summary.
func validateSummary(data []byte) error {
	schema, err := SummarySchema()
	if err != nil {
		return err
	}
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("summary is not valid JSON: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("summary does not match schema: %w", err)
	}
	return nil
}
