// Package migrations embeds the SQL schema migrations so the daemon
// can bring its database up to date at startup without shipping files
// alongside the binary.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
