package scaffold

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
)

// Field is an entity field resolved against both type tables.
type Field struct {
	Name       string
	Pascal     string
	Camel      string
	ServerType string
	ClientType string
	Nullable   bool
}

// Entity is the fully derived template input for one scaffolded entity.
type Entity struct {
	Name        string
	Camel       string
	Kebab       string
	Plural      string
	PluralCamel string
	PluralKebab string
	Identifier  *Field
	Fields      []Field
	Warnings    []string
}

// BuildEntity derives casings, maps field types, and guesses the identifier
// field. Unsupported field types are dropped with a warning; an entity with
// no usable fields is an error.
func BuildEntity(schema *Schema) (*Entity, error) {
	entity := &Entity{
		Name:        PascalCase(schema.Entity),
		Camel:       CamelCase(schema.Entity),
		Kebab:       KebabCase(schema.Entity),
		Plural:      Pluralize(PascalCase(schema.Entity)),
		PluralCamel: Pluralize(CamelCase(schema.Entity)),
		PluralKebab: Pluralize(KebabCase(schema.Entity)),
	}

	var fields []Field
	for _, spec := range schema.Fields {
		name := strings.TrimSpace(spec.Name)
		if name == "" {
			continue
		}

		serverType, clientType, ok := mapTypes(spec.Type)
		if !ok {
			entity.Warnings = append(entity.Warnings,
				fmt.Sprintf("skipping field %q: unsupported type %q", name, spec.Type))
			continue
		}

		fields = append(fields, Field{
			Name:       name,
			Pascal:     PascalCase(name),
			Camel:      CamelCase(name),
			ServerType: serverType,
			ClientType: clientType,
			Nullable:   spec.Nullable,
		})
	}

	if len(fields) == 0 {
		return nil, fmt.Errorf("entity %s has no usable fields", entity.Name)
	}

	// The identifier is guessed as the shortest field name ending in "id".
	identifierIndex := -1
	for i, field := range fields {
		if !strings.HasSuffix(strings.ToLower(field.Name), "id") {
			continue
		}
		if identifierIndex < 0 || len(field.Name) < len(fields[identifierIndex].Name) {
			identifierIndex = i
		}
	}
	if identifierIndex >= 0 {
		identifier := fields[identifierIndex]
		entity.Identifier = &identifier
		fields = append(fields[:identifierIndex], fields[identifierIndex+1:]...)
	}

	if len(fields) == 0 {
		return nil, fmt.Errorf("entity %s has no usable fields beyond its identifier", entity.Name)
	}

	entity.Fields = fields
	return entity, nil
}

// Options configures a generation run.
type Options struct {
	ServerRoot     string
	ClientRoot     string
	Overwrite      bool
	SkipComponents bool
}

// Summary reports the per-file outcome of a generation run.
type Summary struct {
	New       []string
	Changed   []string
	Unchanged []string
}

type plannedFile struct {
	path    string
	content []byte
}

// Generate renders the template set for the entity and writes the results.
// Without Overwrite the run aborts before writing anything if any target
// already exists. With it, only files whose rendered content differs from
// what is on disk are rewritten.
func Generate(entity *Entity, opts Options) (*Summary, error) {
	planned, err := renderAll(entity, opts)
	if err != nil {
		return nil, err
	}

	if !opts.Overwrite {
		var existing []string
		for _, file := range planned {
			if _, err := os.Stat(file.path); err == nil {
				existing = append(existing, file.path)
			}
		}
		if len(existing) > 0 {
			sort.Strings(existing)
			return nil, fmt.Errorf("refusing to overwrite existing files (pass -overwrite to allow): %s",
				strings.Join(existing, ", "))
		}
	}

	summary := &Summary{}
	for _, file := range planned {
		current, err := os.ReadFile(file.path)
		switch {
		case err == nil && bytes.Equal(current, file.content):
			summary.Unchanged = append(summary.Unchanged, file.path)
			continue
		case err == nil:
			summary.Changed = append(summary.Changed, file.path)
		default:
			summary.New = append(summary.New, file.path)
		}

		if err := os.MkdirAll(filepath.Dir(file.path), 0o755); err != nil {
			return nil, fmt.Errorf("create directory: %w", err)
		}
		if err := os.WriteFile(file.path, file.content, 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", file.path, err)
		}
	}

	return summary, nil
}

func renderAll(entity *Entity, opts Options) ([]plannedFile, error) {
	type target struct {
		path     string
		template *template.Template
	}

	serverDir := filepath.Join(opts.ServerRoot, entity.Kebab)
	clientModelDir := filepath.Join(opts.ClientRoot, "models")
	clientServiceDir := filepath.Join(opts.ClientRoot, "services")
	clientComponentDir := filepath.Join(opts.ClientRoot, "components", entity.Kebab)

	targets := []target{
		{filepath.Join(serverDir, "model.go"), serverModelTemplate},
		{filepath.Join(serverDir, "requests.go"), serverRequestsTemplate},
		{filepath.Join(serverDir, "response.go"), serverResponseTemplate},
		{filepath.Join(serverDir, "service.go"), serverServiceTemplate},
		{filepath.Join(serverDir, "handler.go"), serverHandlerTemplate},
		{filepath.Join(serverDir, "routes.go"), serverRoutesTemplate},
		{filepath.Join(clientModelDir, entity.Kebab+".model.ts"), clientModelTemplate},
		{filepath.Join(clientServiceDir, entity.Kebab+".service.ts"), clientDataServiceTemplate},
		{filepath.Join(clientServiceDir, entity.Kebab+"-area.service.ts"), clientAreaServiceTemplate},
	}

	if !opts.SkipComponents {
		targets = append(targets,
			target{filepath.Join(clientComponentDir, entity.Kebab+"-list.component.ts"), clientListComponentTemplate},
			target{filepath.Join(clientComponentDir, entity.Kebab+"-detail.component.ts"), clientDetailComponentTemplate},
			target{filepath.Join(clientComponentDir, entity.Kebab+"-create.component.ts"), clientCreateComponentTemplate},
			target{filepath.Join(clientComponentDir, entity.Kebab+"-edit.component.ts"), clientEditComponentTemplate},
		)
	}

	planned := make([]plannedFile, 0, len(targets))
	for _, tgt := range targets {
		var buf bytes.Buffer
		if err := tgt.template.Execute(&buf, entity); err != nil {
			return nil, fmt.Errorf("render %s: %w", filepath.Base(tgt.path), err)
		}
		planned = append(planned, plannedFile{path: tgt.path, content: buf.Bytes()})
	}

	return planned, nil
}
