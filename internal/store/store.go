package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/SolomonGao/UniPick-sub000/pkg/models"

	_ "modernc.org/sqlite"
)

// Store wraps the local SQLite database that holds the signed-in session
// and the cached campus coordinate.
type Store struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and runs migrations.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Single writer, many readers.
	conn.SetMaxOpenConns(1)

	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &Store{conn: conn}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// migrate creates tables if they do not exist and applies schema updates.
func migrate(conn *sql.DB) error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS session (
		id            INTEGER PRIMARY KEY CHECK (id = 1),
		access_token  TEXT NOT NULL,
		refresh_token TEXT NOT NULL,
		user_id       TEXT NOT NULL,
		email         TEXT NOT NULL DEFAULT '',
		expires_at    DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS location_cache (
		id         INTEGER PRIMARY KEY CHECK (id = 1),
		latitude   REAL NOT NULL,
		longitude  REAL NOT NULL,
		fetched_at DATETIME NOT NULL
	);
	`
	if _, err := conn.Exec(ddl); err != nil {
		return err
	}

	// Add email column to databases created before it was stored.
	if err := addColumnIfNotExists(conn, "session", "email", "TEXT NOT NULL DEFAULT ''"); err != nil {
		return err
	}

	return nil
}

// addColumnIfNotExists adds a column to a table if it does not already exist.
// SQLite doesn't support IF NOT EXISTS for ALTER TABLE ADD COLUMN, so we
// check the schema first.
func addColumnIfNotExists(conn *sql.DB, table, column, colDef string) error {
	rows, err := conn.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull int
		var dfltValue sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return err
		}
		if name == column {
			return nil // column already exists
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	_, err = conn.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, colDef))
	return err
}

// --- Session operations ---

// SaveSession stores the signed-in session, replacing any previous one.
func (s *Store) SaveSession(sess *models.Session) error {
	const q = `INSERT OR REPLACE INTO session (id, access_token, refresh_token, user_id, email, expires_at)
	           VALUES (1, ?, ?, ?, ?, ?)`
	_, err := s.conn.Exec(q, sess.AccessToken, sess.RefreshToken, sess.UserID, sess.Email, sess.ExpiresAt)
	return err
}

// Session returns the stored session, or nil if nobody is signed in.
func (s *Store) Session() (*models.Session, error) {
	const q = `SELECT access_token, refresh_token, user_id, email, expires_at FROM session WHERE id = 1`
	sess := &models.Session{}
	err := s.conn.QueryRow(q).Scan(&sess.AccessToken, &sess.RefreshToken, &sess.UserID, &sess.Email, &sess.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return sess, err
}

// ClearSession removes the stored session.
func (s *Store) ClearSession() error {
	_, err := s.conn.Exec(`DELETE FROM session WHERE id = 1`)
	return err
}

// --- Location cache operations ---

// CachedCoordinate is a resolved coordinate together with the time it was
// fetched. Freshness policy is decided by the caller.
type CachedCoordinate struct {
	Coord     models.Coordinate
	FetchedAt time.Time
}

// SaveCoordinate stores the resolved coordinate, replacing any previous one.
func (s *Store) SaveCoordinate(c models.Coordinate, fetchedAt time.Time) error {
	const q = `INSERT OR REPLACE INTO location_cache (id, latitude, longitude, fetched_at)
	           VALUES (1, ?, ?, ?)`
	_, err := s.conn.Exec(q, c.Lat, c.Lng, fetchedAt)
	return err
}

// Coordinate returns the cached coordinate, or nil if none has been stored.
func (s *Store) Coordinate() (*CachedCoordinate, error) {
	const q = `SELECT latitude, longitude, fetched_at FROM location_cache WHERE id = 1`
	c := &CachedCoordinate{}
	err := s.conn.QueryRow(q).Scan(&c.Coord.Lat, &c.Coord.Lng, &c.FetchedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}
