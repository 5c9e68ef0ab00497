// Package migrations embeds the goose SQL migrations for the users, roles
// and user_roles tables.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
