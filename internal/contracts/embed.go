package contracts

import "embed"

//go:embed events
var SchemasFS embed.FS
