// Package migrations exposes the embedded SQL migrations for the migrate
// binary.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
