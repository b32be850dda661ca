package sqlite

import (
	"database/sql"
	"strings"

	_ "github.com/tursodatabase/libsql-client-go/libsql" // Turso driver
	_ "modernc.org/sqlite"                              // Local SQLite driver
)

// Open connects to a local SQLite file or a remote libSQL database and
// applies the schema.
func Open(dbURL string) (*sql.DB, error) {
	driverName := "sqlite"
	if isRemote(dbURL) {
		driverName = "libsql"
	}

	db, err := sql.Open(driverName, dbURL)
	if err != nil {
		return nil, err
	}

	// a single writer avoids SQLITE_BUSY on local files
	if driverName == "sqlite" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// remoteSchemes are the URL schemes the libSQL client dials.
var remoteSchemes = []string{"libsql://", "https://", "http://", "wss://", "ws://"}

func isRemote(dbURL string) bool {
	lower := strings.ToLower(strings.TrimSpace(dbURL))
	for _, scheme := range remoteSchemes {
		if strings.HasPrefix(lower, scheme) {
			return true
		}
	}
	return false
}

func migrate(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS streams (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		endpoint TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		tags JSON,
		clicks_node INTEGER NOT NULL DEFAULT 0,
		clicks_python INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_streams_created_at ON streams(created_at, id);

	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS usage_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		stream_id TEXT NOT NULL,
		type TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_usage_events_stream_id ON usage_events(stream_id);
	`
	_, err := db.Exec(query)
	return err
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
