// Package catalog implements the client for the remote creature API with a
// two-level response cache: an in-memory LRU of decoded records in front of a
// SQLite-backed body cache that survives restarts.
package catalog

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const cacheSchemaSQL = `
CREATE TABLE IF NOT EXISTS http_cache (
	url        TEXT PRIMARY KEY,
	body       BLOB NOT NULL,
	fetched_at DATETIME NOT NULL
);
`

// Cache is the SQLite-backed HTTP response cache. Entries older than the TTL
// are treated as absent and pruned opportunistically.
type Cache struct {
	conn *sql.DB
	ttl  time.Duration
}

// OpenCache opens (or creates) the cache database, applies the schema and
// drops entries that have already expired.
func OpenCache(dsn string, ttl time.Duration) (*Cache, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("catalog: open cache: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("catalog: ping cache: %w", err)
	}
	if _, err := conn.Exec(cacheSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("catalog: apply cache schema: %w", err)
	}
	c := &Cache{conn: conn, ttl: ttl}
	c.prune()
	return c, nil
}

// Close closes the underlying database connection.
func (c *Cache) Close() error {
	return c.conn.Close()
}

// Get returns the cached body for url if present and fresh.
func (c *Cache) Get(url string) ([]byte, bool) {
	var body []byte
	var fetchedAt time.Time
	err := c.conn.QueryRow(`SELECT body, fetched_at FROM http_cache WHERE url = ?`, url).
		Scan(&body, &fetchedAt)
	if err != nil {
		return nil, false
	}
	if time.Since(fetchedAt) > c.ttl {
		_, _ = c.conn.Exec(`DELETE FROM http_cache WHERE url = ?`, url)
		return nil, false
	}
	return body, true
}

// Put stores (or refreshes) the body for url.
func (c *Cache) Put(url string, body []byte) error {
	_, err := c.conn.Exec(`
		INSERT INTO http_cache (url, body, fetched_at)
		VALUES (?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			body       = excluded.body,
			fetched_at = excluded.fetched_at
	`, url, body, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("catalog: cache put: %w", err)
	}
	return nil
}

// prune removes expired rows. Best-effort.
func (c *Cache) prune() {
	cutoff := time.Now().UTC().Add(-c.ttl)
	_, _ = c.conn.Exec(`DELETE FROM http_cache WHERE fetched_at < ?`, cutoff)
}
