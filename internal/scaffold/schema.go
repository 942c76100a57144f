package scaffold

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// FieldSpec is one entity field as declared in the schema file.
type FieldSpec struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Nullable bool   `yaml:"nullable"`
}

// Schema is the YAML input describing the entity to scaffold.
type Schema struct {
	Entity string      `yaml:"entity"`
	Fields []FieldSpec `yaml:"fields"`
}

// LoadSchema reads and parses a schema file.
func LoadSchema(path string) (*Schema, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}

	var schema Schema
	if err := yaml.Unmarshal(raw, &schema); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}

	schema.Entity = strings.TrimSpace(schema.Entity)
	if schema.Entity == "" {
		return nil, fmt.Errorf("schema is missing an entity name")
	}

	return &schema, nil
}
