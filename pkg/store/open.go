package store

import (
	"context"
	"fmt"
)

// Supported storage drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open returns the DB for the named driver.
func Open(ctx context.Context, driver, dsn string) (DB, error) {
	switch driver {
	case "", DriverMemory:
		return NewInMemDB(), nil
	case DriverSQLite:
		db, err := NewSQLiteDB(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return db, nil
	case DriverPostgres:
		db, err := NewPostgresDB(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
