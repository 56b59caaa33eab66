// Package migrations embeds the SQL schema applied by `clinic-server migrate up`.
package migrations

import "embed"

//go:embed *.sql
var Files embed.FS
