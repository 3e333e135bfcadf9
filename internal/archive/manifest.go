package archive

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ManifestName is the database file kept in the archive root.
const ManifestName = "manifest.db"

// Entry maps one archived copy back to the path it came from.
type Entry struct {
	Archived string
	Original string
}

// Manifest persists the archived-name -> original-path mapping. It is the
// only state the recovery operation consumes.
type Manifest struct {
	db   *sql.DB
	stmt *sql.Stmt
}

// OpenManifest opens (or creates) the manifest database at path.
func OpenManifest(path string) (*Manifest, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open manifest %s: %w", path, err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS files (
		archived TEXT PRIMARY KEY,
		original TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create manifest schema: %w", err)
	}

	stmt, err := db.Prepare(`INSERT OR REPLACE INTO files (archived, original, created_at) VALUES (?, ?, ?)`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("prepare manifest insert: %w", err)
	}

	return &Manifest{db: db, stmt: stmt}, nil
}

// Add records one archived copy.
func (m *Manifest) Add(archived, original string) error {
	if _, err := m.stmt.Exec(archived, original, time.Now().UnixNano()); err != nil {
		return fmt.Errorf("record %s: %w", archived, err)
	}
	return nil
}

// Entries returns every recorded mapping.
func (m *Manifest) Entries() ([]Entry, error) {
	rows, err := m.db.Query(`SELECT archived, original FROM files ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Archived, &e.Original); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (m *Manifest) Close() error {
	if m.stmt != nil {
		_ = m.stmt.Close()
	}
	return m.db.Close()
}
