// Package relica provides repository implementations using Relica query builder.
//
// Relica (github.com/coregx/relica) is a lightweight, type-safe database query builder
// for Go with zero production dependencies.
//
// This package provides implementations of the civicpush repository interfaces:
//   - DeviceRepository
//   - MessageRepository
//   - ActivationRepository
//
// Example usage:
//
//	import (
//	    "database/sql"
//	    "github.com/coregx/civicpush"
//	    "github.com/coregx/civicpush/adapters/relica"
//	    _ "github.com/lib/pq"
//	)
//
//	db, err := sql.Open("postgres", "postgres://civicpush@localhost/civicpush?sslmode=disable")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := civicpush.ApplyMigrations(ctx, db, "postgres"); err != nil {
//	    log.Fatal(err)
//	}
//
//	// driverName should be "mysql", "postgres", or "sqlite3"
//	repos := relica.NewRepositories(db, "postgres")
//
//	registry, err := civicpush.NewDeviceRegistry(
//	    civicpush.WithRegistryDevices(repos.Device),
//	    civicpush.WithRegistryLogger(logger),
//	)
//
// MySQL connections need parseTime=true.
package relica
