package envconfig

import (
	"encoding/json"
	"fmt"
	"sync"

	_ "embed"

	"github.com/santhosh-tekuri/jsonschema/v5"
	sigsyaml "sigs.k8s.io/yaml"
)

//go:embed schema/environments.schema.json
var definitionsSchema string

var (
	schemaOnce     sync.Once
	schemaErr      error
	compiledSchema *jsonschema.Schema
)

func loadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = jsonschema.CompileString("environments.schema.json", definitionsSchema)
	})
	return compiledSchema, schemaErr
}

// validateDefinitionsYAML checks a raw environments file against the embedded
// JSON schema. The YAML document is converted to JSON first so the schema
// applies uniformly to both formats.
func validateDefinitionsYAML(content []byte) error {
	sch, err := loadSchema()
	if err != nil {
		return fmt.Errorf("compile definitions schema: %w", err)
	}

	jsonData, err := sigsyaml.YAMLToJSON(content)
	if err != nil {
		return fmt.Errorf("convert yaml to json: %w", err)
	}

	var document any
	if err := json.Unmarshal(jsonData, &document); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}

	return sch.Validate(document)
}
