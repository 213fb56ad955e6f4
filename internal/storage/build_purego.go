//go:build !sqlite_cgo

package storage

// Default build: pure Go SQLite, no C toolchain required.
//
//	CGO_ENABLED=0 go build ./...
//
// Driver used: modernc.org/sqlite

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the database/sql driver name
	DriverName = "sqlite"

	// BuildMode describes the current build configuration
	BuildMode = "purego"
)
