package kv

import (
	"fmt"
	"os"
)

// Driver identifies a concrete key-value backend.
type Driver string

const (
	DriverMemory Driver = "memory" // in-memory only (tests / ephemeral)
	DriverFS     Driver = "fs"     // one file per key under a root dir
	DriverSQLite Driver = "sqlite" // embedded sqlite file
)

// Open selects a backend using environment variables. Defaults to sqlite
// when unset.
//
//	TALENTCORE_KV_DRIVER: memory|fs|sqlite (default sqlite)
//	TALENTCORE_KV_ROOT: root directory when driver=fs (default ./kvdata)
//	TALENTCORE_KV_SQLITE_PATH: path to sqlite file (default ./talentcore.db)
func Open() (Store, error) {
	driver := os.Getenv("TALENTCORE_KV_DRIVER")
	if driver == "" {
		driver = string(DriverSQLite)
	}
	switch Driver(driver) {
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverFS:
		return NewFSStore(os.Getenv("TALENTCORE_KV_ROOT"))
	case DriverSQLite:
		return NewSQLiteStore(os.Getenv("TALENTCORE_KV_SQLITE_PATH"))
	default:
		return nil, fmt.Errorf("unknown kv driver %s", driver)
	}
}
