// Package cache is the content-addressed artifact cache under the
// advisory cache directory: finished object bytes keyed by a hash of
// everything that could affect them (source bytes, target triple,
// optimization level). It never stores resolution or type-checking
// state — recompilation always starts from source.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/juju/errors"
	"github.com/juju/loggo"

	_ "modernc.org/sqlite"
)

var logger = loggo.GetLogger("sarn.cache")

// Cache is a sqlite-backed artifact store.
type Cache struct {
	db *sql.DB
}

// Open creates or opens the cache database under dir.
func Open(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Annotate(err, "creating cache directory")
	}
	path := filepath.Join(dir, "artifacts.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Annotate(err, "opening artifact cache")
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS artifacts (
		key   TEXT PRIMARY KEY,
		bytes BLOB NOT NULL,
		size  INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, errors.Annotate(err, "initializing artifact cache schema")
	}
	return &Cache{db: db}, nil
}

// Close releases the database handle.
func (c *Cache) Close() error {
	return errors.Trace(c.db.Close())
}

// Key derives the content address of one artifact.
func Key(source []byte, targetTriple string, optLevel int) string {
	h := sha256.New()
	h.Write(source)
	fmt.Fprintf(h, "|%s|%d", targetTriple, optLevel)
	return hex.EncodeToString(h.Sum(nil))
}

// Get fetches an artifact; ok is false on a miss.
func (c *Cache) Get(key string) (data []byte, ok bool, err error) {
	row := c.db.QueryRow(`SELECT bytes FROM artifacts WHERE key = ?`, key)
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			logger.Debugf("cache miss %s", key)
			return nil, false, nil
		}
		return nil, false, errors.Annotate(err, "reading artifact cache")
	}
	logger.Debugf("cache hit %s (%d bytes)", key, len(data))
	return data, true, nil
}

// Put stores an artifact, replacing any previous entry for key.
func (c *Cache) Put(key string, data []byte) error {
	_, err := c.db.Exec(
		`INSERT OR REPLACE INTO artifacts (key, bytes, size) VALUES (?, ?, ?)`,
		key, data, len(data))
	return errors.Annotate(err, "writing artifact cache")
}

// Size reports the total stored artifact bytes.
func (c *Cache) Size() (uint64, error) {
	row := c.db.QueryRow(`SELECT COALESCE(SUM(size), 0) FROM artifacts`)
	var total uint64
	if err := row.Scan(&total); err != nil {
		return 0, errors.Annotate(err, "sizing artifact cache")
	}
	return total, nil
}
