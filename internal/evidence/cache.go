package evidence

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"

	_ "modernc.org/sqlite"
)

// Cache is a SQLite-backed memoization layer in front of a Searcher,
// keyed by the exact query string, so re-evaluating the same fact across
// runs (or across facts that happen to generate the same search query)
// doesn't re-spend a paid search API call.
type Cache struct {
	db       *sql.DB
	inner    Searcher
	hitCount int
}

// OpenCache opens (creating if necessary) a SQLite database at path and
// wraps inner with a cache in front of it.
func OpenCache(path string, inner Searcher) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("evidence: opening cache at %s: %w", path, err)
	}

	const schema = `CREATE TABLE IF NOT EXISTS evidence_cache (
		query_hash TEXT PRIMARY KEY,
		query      TEXT NOT NULL,
		result     TEXT NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("evidence: creating cache schema: %w", err)
	}

	return &Cache{db: db, inner: inner}, nil
}

// Close releases the underlying database handle.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Search returns the cached result for query if present, otherwise calls
// the wrapped Searcher and stores the result before returning it.
func (c *Cache) Search(ctx context.Context, query string) (string, error) {
	hash := hashQuery(query)

	var result string
	err := c.db.QueryRowContext(ctx, `SELECT result FROM evidence_cache WHERE query_hash = ?`, hash).Scan(&result)
	if err == nil {
		c.hitCount++
		return result, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("evidence: reading cache: %w", err)
	}

	result, err = c.inner.Search(ctx, query)
	if err != nil {
		return "", err
	}

	if _, err := c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO evidence_cache (query_hash, query, result) VALUES (?, ?, ?)`,
		hash, query, result,
	); err != nil {
		return "", fmt.Errorf("evidence: writing cache: %w", err)
	}

	return result, nil
}

// HitCount returns the number of cache hits served since this Cache was
// opened; useful for reporting search-cost savings.
func (c *Cache) HitCount() int {
	return c.hitCount
}

func hashQuery(query string) string {
	sum := sha256.Sum256([]byte(query))
	return hex.EncodeToString(sum[:])
}
