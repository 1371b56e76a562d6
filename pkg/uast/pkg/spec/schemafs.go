// Package spec embeds the JSON schema of UAST input trees.
package spec

import "embed"

// SchemaFile is the name of the schema inside UASTSchemaFS.
const SchemaFile = "uast-schema.json"

// UASTSchemaFS contains the embedded UAST JSON schema.
//
//go:embed uast-schema.json
var UASTSchemaFS embed.FS
