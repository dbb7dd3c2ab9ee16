// Package sidemeta caches parsed sessions-index.json sideband files across
// process restarts, keyed by project directory and the sideband file's own
// mtime, so a bulk pass over an unchanged corpus does not re-parse sideband
// JSON it has already seen.
package sidemeta

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/convoidx/convoidx/internal/corpus"
)

// schemaVersion is bumped whenever the cached row shape changes; a mismatch
// drops and rebuilds the table rather than trying to migrate it in place.
const schemaVersion = 1

const sidebandFileName = "sessions-index.json"

// Cache is a SQLite-backed cache of parsed Sideband values.
type Cache struct {
	db *sql.DB
}

// Open opens (or creates) the cache database at dbPath.
func Open(dbPath string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := createSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Cache{db: db}, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

func createSchema(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS metadata (key TEXT PRIMARY KEY, value TEXT)`); err != nil {
		return err
	}

	var current int
	row := db.QueryRow("SELECT value FROM metadata WHERE key = 'schema_version'")
	if err := row.Scan(&current); err != nil {
		current = 0
	}

	if current != schemaVersion {
		if _, err := db.Exec("DROP TABLE IF EXISTS sidebands"); err != nil {
			return err
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS sidebands (
			project_dir TEXT PRIMARY KEY,
			mtime INTEGER NOT NULL,
			data TEXT NOT NULL
		)
	`
	if _, err := db.Exec(schema); err != nil {
		return err
	}

	_, err := db.Exec("INSERT OR REPLACE INTO metadata (key, value) VALUES ('schema_version', ?)", schemaVersion)
	return err
}

// Load returns the sideband for projectDir, reading from the on-disk
// sessions-index.json if the cached copy is stale or missing, and
// refreshing the cache entry on a successful parse. A missing sideband
// file is not an error: it yields an empty Sideband, same as
// corpus.LoadSideband.
func (c *Cache) Load(projectDir string) (corpus.Sideband, error) {
	path := filepath.Join(projectDir, sidebandFileName)
	info, statErr := os.Stat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return corpus.Sideband{}, nil
		}
		return nil, statErr
	}
	mtime := info.ModTime().Unix()

	if sb, ok := c.lookup(projectDir, mtime); ok {
		return sb, nil
	}

	sb, err := corpus.LoadSideband(projectDir)
	if err != nil {
		return nil, err
	}
	c.store(projectDir, mtime, sb)
	return sb, nil
}

func (c *Cache) lookup(projectDir string, mtime int64) (corpus.Sideband, bool) {
	var cachedMtime int64
	var data string
	row := c.db.QueryRow("SELECT mtime, data FROM sidebands WHERE project_dir = ?", projectDir)
	if err := row.Scan(&cachedMtime, &data); err != nil {
		return nil, false
	}
	if cachedMtime != mtime {
		return nil, false
	}
	var sb corpus.Sideband
	if err := json.Unmarshal([]byte(data), &sb); err != nil {
		return nil, false
	}
	return sb, true
}

func (c *Cache) store(projectDir string, mtime int64, sb corpus.Sideband) {
	data, err := json.Marshal(sb)
	if err != nil {
		return
	}
	_, _ = c.db.Exec(
		"INSERT OR REPLACE INTO sidebands (project_dir, mtime, data) VALUES (?, ?, ?)",
		projectDir, mtime, string(data),
	)
}
