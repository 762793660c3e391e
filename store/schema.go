// Package store holds the backing schema shared by the user and message
// stores.
package store

import _ "embed"

// Schema creates the tables used by user.SQLStore and message.SQLStore. Every
// statement is idempotent.
//
//go:embed schema.sql
var Schema string
