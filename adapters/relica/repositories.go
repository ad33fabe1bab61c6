package relica

import (
	"database/sql"

	"github.com/coregx/civicpush"
)

// DefaultTablePrefix is the prefix of every table in the embedded migrations.
const DefaultTablePrefix = "civicpush_"

// Repositories holds all repository implementations.
type Repositories struct {
	Device     civicpush.DeviceRepository
	Message    civicpush.MessageRepository
	Activation civicpush.ActivationRepository
}

// NewRepositories creates all repository implementations using Relica.
//
// The db parameter should be an *sql.DB connected to MySQL, PostgreSQL, or SQLite.
// The driverName should be "mysql", "postgres", or "sqlite3".
// The table prefix defaults to "civicpush_" but can be customized.
func NewRepositories(db *sql.DB, driverName string) *Repositories {
	return NewRepositoriesWithPrefix(db, driverName, DefaultTablePrefix)
}

// NewRepositoriesWithPrefix creates all repository implementations with a custom table prefix.
func NewRepositoriesWithPrefix(db *sql.DB, driverName, prefix string) *Repositories {
	return &Repositories{
		Device:     NewDeviceRepositoryWithPrefix(db, driverName, prefix),
		Message:    NewMessageRepositoryWithPrefix(db, driverName, prefix),
		Activation: NewActivationRepositoryWithPrefix(db, driverName, prefix),
	}
}
