// Package cache persists results of slow remote queries (listings, entry
// counts) in a DuckDB database, and moves the cache around as a tarball.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/seutils/seu/internal/log"
)

// DatabaseFilename is the name of the database inside the cache directory.
const DatabaseFilename = "seu-cache.duckdb"

const schema = `CREATE TABLE IF NOT EXISTS cache (
	subcache VARCHAR NOT NULL,
	key VARCHAR NOT NULL,
	value VARCHAR NOT NULL,
	written_at TIMESTAMP NOT NULL,
	PRIMARY KEY (subcache, key)
)`

// SubcacheStats summarizes one subcache.
type SubcacheStats struct {
	Name      string
	Entries   int
	LastWrite time.Time
}

// Store is a key/value cache grouped in named subcaches. Values are stored
// as JSON.
type Store struct {
	mu   sync.Mutex
	dir  string
	conn *sql.DB
	now  func() time.Time

	lastWrite    time.Time
	lastDump     time.Time
	lastDumpPath string
}

// Open opens (creating if needed) the cache in dir.
func Open(dir string) (*Store, error) {
	s := &Store{dir: dir, now: time.Now}
	if err := s.open(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) open() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating cache directory %s: %w", s.dir, err)
	}
	conn, err := sql.Open("duckdb", filepath.Join(s.dir, DatabaseFilename))
	if err != nil {
		return fmt.Errorf("opening cache database: %w", err)
	}
	if _, err := conn.ExecContext(context.Background(), schema); err != nil {
		_ = conn.Close()
		return fmt.Errorf("creating cache table: %w", err)
	}
	s.conn = conn
	return nil
}

// Dir returns the cache directory.
func (s *Store) Dir() string {
	return s.dir
}

// Close releases the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

// Get decodes the value stored under subcache/key into dst. It reports
// whether the key was found.
func (s *Store) Get(subcache, key string, dst any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var raw string
	err := s.conn.QueryRowContext(context.Background(),
		"SELECT value FROM cache WHERE subcache = ? AND key = ?", subcache, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading %s from cache %s: %w", key, subcache, err)
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, fmt.Errorf("decoding %s from cache %s: %w", key, subcache, err)
	}
	return true, nil
}

// Put stores value under subcache/key, replacing any previous value.
func (s *Store) Put(subcache, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding %s for cache %s: %w", key, subcache, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	log.Debugf("Writing key %s to cache %s", key, subcache)
	now := s.now()
	if _, err := s.conn.ExecContext(context.Background(),
		"INSERT OR REPLACE INTO cache (subcache, key, value, written_at) VALUES (?, ?, ?, ?)",
		subcache, key, string(raw), now); err != nil {
		return fmt.Errorf("writing %s to cache %s: %w", key, subcache, err)
	}
	s.lastWrite = now
	return nil
}

// Delete removes a single key.
func (s *Store) Delete(subcache, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.conn.ExecContext(context.Background(),
		"DELETE FROM cache WHERE subcache = ? AND key = ?", subcache, key)
	if err == nil {
		s.lastWrite = s.now()
	}
	return err
}

// Clear empties subcache, or the whole cache when subcache is "".
func (s *Store) Clear(subcache string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	if subcache == "" {
		_, err = s.conn.ExecContext(context.Background(), "DELETE FROM cache")
	} else {
		_, err = s.conn.ExecContext(context.Background(), "DELETE FROM cache WHERE subcache = ?", subcache)
	}
	if err == nil {
		s.lastWrite = s.now()
	}
	return err
}

// Stats lists every subcache with its number of entries.
func (s *Store) Stats() ([]SubcacheStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.conn.QueryContext(context.Background(),
		"SELECT subcache, count(*), max(written_at) FROM cache GROUP BY subcache ORDER BY subcache")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var stats []SubcacheStats
	for rows.Next() {
		var st SubcacheStats
		if err := rows.Scan(&st.Name, &st.Entries, &st.LastWrite); err != nil {
			return nil, err
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

// Memo returns the cached value of subcache/key, computing and storing it
// with fn on a miss. A nil store always calls fn.
func Memo[T any](s *Store, subcache, key string, fn func() (T, error)) (T, error) {
	if s == nil {
		return fn()
	}
	var cached T
	ok, err := s.Get(subcache, key, &cached)
	if err != nil {
		log.Warnf("%v", err)
	}
	if ok {
		log.Debugf("Using cached result for %s from cache %s", key, subcache)
		return cached, nil
	}
	value, err := fn()
	if err != nil {
		return value, err
	}
	if err := s.Put(subcache, key, value); err != nil {
		log.Warnf("%v", err)
	}
	return value, nil
}
