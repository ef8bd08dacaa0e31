package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.schema.json
var schemaJSON []byte

var (
	catalogSchema *jsonschema.Schema
	compileOnce   sync.Once
	compileErr    error
)

func compileSchema() error {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
		if err != nil {
			compileErr = fmt.Errorf("unmarshal catalog schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("catalog.schema.json", doc); err != nil {
			compileErr = fmt.Errorf("add catalog schema resource: %w", err)
			return
		}
		catalogSchema, compileErr = compiler.Compile("catalog.schema.json")
		if compileErr != nil {
			compileErr = fmt.Errorf("compile catalog schema: %w", compileErr)
		}
	})
	return compileErr
}

// validateSchema checks raw catalog YAML against the embedded JSON schema.
// The YAML document is round-tripped through JSON so number and key types
// match what the validator expects.
func validateSchema(data []byte) error {
	if err := compileSchema(); err != nil {
		return err
	}

	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid YAML: %w", err)
	}
	jsonData, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("convert catalog to JSON: %w", err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("decode catalog document: %w", err)
	}

	if err := catalogSchema.Validate(doc); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}
