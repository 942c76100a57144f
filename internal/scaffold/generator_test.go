package scaffold

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func testSchema() *Schema {
	return &Schema{
		Entity: "purchase_order",
		Fields: []FieldSpec{
			{Name: "purchase_order_id", Type: "long"},
			{Name: "vendor_name", Type: "string"},
			{Name: "total", Type: "decimal"},
			{Name: "notes", Type: "text", Nullable: true},
			{Name: "approved", Type: "bool"},
		},
	}
}

func TestBuildEntityGuessesIdentifier(t *testing.T) {
	schema := testSchema()
	schema.Fields = append(schema.Fields, FieldSpec{Name: "external_vendor_id", Type: "guid"})

	entity, err := BuildEntity(schema)
	require.NoError(t, err)

	require.Equal(t, "PurchaseOrder", entity.Name)
	require.Equal(t, "purchase-order", entity.Kebab)
	require.Equal(t, "PurchaseOrders", entity.Plural)
	require.Equal(t, "purchase-orders", entity.PluralKebab)

	// Both names end in "id"; the shorter one wins.
	require.NotNil(t, entity.Identifier)
	require.Equal(t, "purchase_order_id", entity.Identifier.Name)
	require.Equal(t, "int64", entity.Identifier.ServerType)

	names := make([]string, 0, len(entity.Fields))
	for _, field := range entity.Fields {
		names = append(names, field.Name)
	}
	require.NotContains(t, names, "purchase_order_id")
	require.Contains(t, names, "external_vendor_id")
}

func TestBuildEntitySkipsUnsupportedTypes(t *testing.T) {
	schema := testSchema()
	schema.Fields = append(schema.Fields, FieldSpec{Name: "blob", Type: "bytea"})

	entity, err := BuildEntity(schema)
	require.NoError(t, err)
	require.Len(t, entity.Warnings, 1)
	require.Contains(t, entity.Warnings[0], "bytea")

	_, err = BuildEntity(&Schema{
		Entity: "mystery",
		Fields: []FieldSpec{{Name: "payload", Type: "bytea"}},
	})
	require.Error(t, err)
}

func TestGenerateWritesFullSet(t *testing.T) {
	entity, err := BuildEntity(testSchema())
	require.NoError(t, err)

	root := t.TempDir()
	opts := Options{
		ServerRoot: filepath.Join(root, "server"),
		ClientRoot: filepath.Join(root, "client"),
	}

	summary, err := Generate(entity, opts)
	require.NoError(t, err)
	require.Len(t, summary.New, 13)
	require.Empty(t, summary.Changed)
	require.Empty(t, summary.Unchanged)

	model, err := os.ReadFile(filepath.Join(opts.ServerRoot, "purchase-order", "model.go"))
	require.NoError(t, err)
	require.Contains(t, string(model), "type PurchaseOrder struct")
	require.Contains(t, string(model), "PurchaseOrderId int64")
	require.Contains(t, string(model), "Notes *string")

	tsModel, err := os.ReadFile(filepath.Join(opts.ClientRoot, "models", "purchase-order.model.ts"))
	require.NoError(t, err)
	require.Contains(t, string(tsModel), "purchaseOrderId: number;")
	require.Contains(t, string(tsModel), "approved: boolean;")
	require.Contains(t, string(tsModel), "notes?: string;")
}

func TestGenerateSkipComponents(t *testing.T) {
	entity, err := BuildEntity(testSchema())
	require.NoError(t, err)

	root := t.TempDir()
	summary, err := Generate(entity, Options{
		ServerRoot:     filepath.Join(root, "server"),
		ClientRoot:     filepath.Join(root, "client"),
		SkipComponents: true,
	})
	require.NoError(t, err)
	require.Len(t, summary.New, 9)
	for _, path := range summary.New {
		require.NotContains(t, path, string(filepath.Separator)+"components"+string(filepath.Separator))
	}
}

func TestGenerateRefusesExistingWithoutOverwrite(t *testing.T) {
	entity, err := BuildEntity(testSchema())
	require.NoError(t, err)

	root := t.TempDir()
	opts := Options{
		ServerRoot: filepath.Join(root, "server"),
		ClientRoot: filepath.Join(root, "client"),
	}

	stale := filepath.Join(opts.ServerRoot, "purchase-order", "model.go")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o755))
	require.NoError(t, os.WriteFile(stale, []byte("package old\n"), 0o644))

	_, err = Generate(entity, opts)
	require.Error(t, err)
	require.Contains(t, err.Error(), "refusing to overwrite")

	// The aborted run must not have touched anything, including the stale file.
	entries, err := os.ReadDir(filepath.Dir(stale))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	content, err := os.ReadFile(stale)
	require.NoError(t, err)
	require.Equal(t, "package old\n", string(content))
}

func TestGenerateOverwriteRewritesOnlyChangedFiles(t *testing.T) {
	entity, err := BuildEntity(testSchema())
	require.NoError(t, err)

	root := t.TempDir()
	opts := Options{
		ServerRoot: filepath.Join(root, "server"),
		ClientRoot: filepath.Join(root, "client"),
	}

	_, err = Generate(entity, opts)
	require.NoError(t, err)

	stale := filepath.Join(opts.ServerRoot, "purchase-order", "model.go")
	require.NoError(t, os.WriteFile(stale, []byte("package old\n"), 0o644))

	opts.Overwrite = true
	summary, err := Generate(entity, opts)
	require.NoError(t, err)
	require.Empty(t, summary.New)
	require.Equal(t, []string{stale}, summary.Changed)
	require.Len(t, summary.Unchanged, 12)

	content, err := os.ReadFile(stale)
	require.NoError(t, err)
	require.Contains(t, string(content), "type PurchaseOrder struct")
}

func TestLoadSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	raw := strings.Join([]string{
		"entity: account",
		"fields:",
		"  - name: account_id",
		"    type: long",
		"  - name: name",
		"    type: string",
		"  - name: closed_at",
		"    type: datetime",
		"    nullable: true",
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	schema, err := LoadSchema(path)
	require.NoError(t, err)
	require.Equal(t, "account", schema.Entity)
	require.Len(t, schema.Fields, 3)
	require.True(t, schema.Fields[2].Nullable)

	require.NoError(t, os.WriteFile(path, []byte("fields: []\n"), 0o644))
	_, err = LoadSchema(path)
	require.Error(t, err)
}
