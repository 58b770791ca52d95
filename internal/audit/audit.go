// Package audit records the proxy's operational trail — upstream
// (re)connect, attach, detach — to a sqlite3 database, grounded
// on the teacher's db.go/storage.go (database/sql over
// github.com/mattn/go-sqlite3, prepared statements per call). This is
// an operational audit trail, not a persisted copy of world state: the
// world mirror itself is never written here, matching the project's
// no-persistence-of-game-state non-goal.
package audit

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `CREATE TABLE IF NOT EXISTS events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	at INTEGER NOT NULL,
	connection_id TEXT NOT NULL,
	event TEXT NOT NULL,
	detail TEXT NOT NULL
);`

// DB is the audit trail's storage handle.
type DB struct {
	*sql.DB
}

// Open opens (creating if necessary) the sqlite3 database at path and
// ensures its schema exists.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o775); err != nil {
			return nil, fmt.Errorf("audit: creating %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("audit: opening %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit: creating schema: %w", err)
	}

	return &DB{DB: db}, nil
}

// Record appends one event to the trail. atUnix is a Unix timestamp
// supplied by the caller rather than taken internally, so callers that
// need deterministic trails (tests, replay tooling) can control it.
func (db *DB) Record(atUnix int64, connectionID, event, detail string) error {
	const insert = `INSERT INTO events (at, connection_id, event, detail) VALUES (?, ?, ?, ?);`
	stmt, err := db.Prepare(insert)
	if err != nil {
		return fmt.Errorf("audit: preparing insert: %w", err)
	}
	defer stmt.Close()

	if _, err := stmt.Exec(atUnix, connectionID, event, detail); err != nil {
		return fmt.Errorf("audit: recording %s: %w", event, err)
	}
	return nil
}

// Event is one row read back from the trail, e.g. for a console "recent
// activity" command.
type Event struct {
	At           int64
	ConnectionID string
	Event        string
	Detail       string
}

// Recent returns the most recent n events, newest first.
func (db *DB) Recent(n int) ([]Event, error) {
	const query = `SELECT at, connection_id, event, detail FROM events ORDER BY id DESC LIMIT ?;`
	rows, err := db.Query(query, n)
	if err != nil {
		return nil, fmt.Errorf("audit: querying recent events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.At, &e.ConnectionID, &e.Event, &e.Detail); err != nil {
			return nil, fmt.Errorf("audit: scanning event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
