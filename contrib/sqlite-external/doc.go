// Package sqliteexternal provides optional external SQLite drivers.
//
// # CGO SQLite Driver
//
// To use the CGO driver (github.com/mattn/go-sqlite3):
//
//	import _ "github.com/FocuswithJustin/corpuspairs/contrib/sqlite-external"
//
// Build with:
//
//	CGO_ENABLED=1 go build -tags cgo_sqlite ./cmd/corpuspairs
//
// # Default Pure Go Driver
//
// By default corpuspairs writes pairs.db with modernc.org/sqlite, which
// needs no C toolchain. See github.com/FocuswithJustin/corpuspairs/core/sqlite.
//
// The CGO driver is faster on large runs (all four corpora into one
// database) and matches the sqlite3 command line tool exactly.
package sqliteexternal
