package scaffold

import "strings"

// serverTypes maps schema types to Go types in generated server code.
var serverTypes = map[string]string{
	"string":   "string",
	"text":     "string",
	"guid":     "string",
	"int":      "int",
	"short":    "int",
	"long":     "int64",
	"float":    "float64",
	"double":   "float64",
	"decimal":  "float64",
	"bool":     "bool",
	"datetime": "time.Time",
	"date":     "time.Time",
}

// clientTypes maps schema types to TypeScript types in generated client code.
// The whole numeric family collapses to number and bool to boolean.
var clientTypes = map[string]string{
	"string":   "string",
	"text":     "string",
	"guid":     "string",
	"int":      "number",
	"short":    "number",
	"long":     "number",
	"float":    "number",
	"double":   "number",
	"decimal":  "number",
	"bool":     "boolean",
	"datetime": "Date",
	"date":     "Date",
}

// mapTypes resolves a schema type against both lookup tables. The second
// return reports whether the type is supported.
func mapTypes(schemaType string) (server, client string, ok bool) {
	key := strings.ToLower(strings.TrimSpace(schemaType))
	server, serverOK := serverTypes[key]
	client, clientOK := clientTypes[key]
	return server, client, serverOK && clientOK
}
