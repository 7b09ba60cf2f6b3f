// Package database manages the SQLite connection and schema migrations.
//
// The auth core assumes a generic SQL-capable connection rather than one
// fixed schema: the credential store probes several physical layouts at
// query time. This package only guarantees the greenfield schema via
// embedded migrations; legacy deployments bring their own tables.
package database
