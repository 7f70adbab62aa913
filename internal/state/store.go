// Package state keeps replication info records in SQLite as an alternative
// to one text file per record.
//
// The store provides:
//   - Named buckets of versioned key/value entries
//   - A change log with a monotonic version, pruned by age
//   - Snapshots for export and restore
//
// Values are opaque bytes. The channel package stores the same text a
// master.info or relay-log.info file would hold, so records move between
// backends without conversion.
package state

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"grimm.is/rplinfo/internal/clock"
)

// Common errors
var (
	ErrNotFound      = errors.New("key not found")
	ErrBucketExists  = errors.New("bucket already exists")
	ErrBucketMissing = errors.New("bucket does not exist")
	ErrStoreClosed   = errors.New("store is closed")
)

// ChangeType represents the type of state change.
type ChangeType string

const (
	ChangeInsert ChangeType = "insert"
	ChangeUpdate ChangeType = "update"
	ChangeDelete ChangeType = "delete"
)

// Change is one entry of the change log.
type Change struct {
	ID        uint64     `json:"id"`
	Bucket    string     `json:"bucket"`
	Key       string     `json:"key"`
	Type      ChangeType `json:"type"`
	Timestamp time.Time  `json:"timestamp"`
	Version   uint64     `json:"version"`
}

// Snapshot represents a point-in-time copy of every bucket.
type Snapshot struct {
	ID        string            `json:"id"`
	Version   uint64            `json:"version"`
	Timestamp time.Time         `json:"timestamp"`
	Buckets   map[string]Bucket `json:"buckets"`
}

// Bucket represents a collection of key-value pairs.
type Bucket map[string]Entry

// Entry represents a single stored value with metadata.
type Entry struct {
	Value     []byte    `json:"value"`
	Version   uint64    `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is the state storage interface.
type Store interface {
	CreateBucket(name string) error
	ListBuckets() ([]string, error)

	Get(bucket, key string) ([]byte, error)
	GetWithMeta(bucket, key string) (*Entry, error)
	Set(bucket, key string, value []byte) error
	Delete(bucket, key string) error
	ListKeys(bucket string) ([]string, error)

	GetChangesSince(version uint64) ([]Change, error)
	CurrentVersion() uint64

	CreateSnapshot() (*Snapshot, error)
	RestoreSnapshot(snapshot *Snapshot) error

	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	mu      sync.RWMutex
	version uint64
	closed  bool
	clock   clock.Clock
}

// Options configures the SQLite store.
type Options struct {
	Path            string        // Database file path (":memory:" for in-memory)
	WALMode         bool          // Enable WAL mode for better concurrency
	ChangeRetention time.Duration // Change log entries older than this are pruned on open
	Clock           clock.Clock   // Optional: time source (defaults to clock.Default())
}

// DefaultOptions returns sensible defaults.
func DefaultOptions(path string) Options {
	return Options{
		Path:            path,
		WALMode:         true,
		ChangeRetention: 7 * 24 * time.Hour,
	}
}

// NewSQLiteStore opens (creating if needed) a SQLite-backed store.
func NewSQLiteStore(opts Options) (*SQLiteStore, error) {
	dsn := opts.Path
	if opts.WALMode && opts.Path != ":memory:" {
		dsn += "?_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A second connection to ":memory:" would see an empty database.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	clk := opts.Clock
	if clk == nil {
		clk = clock.Default()
	}

	s := &SQLiteStore{
		db:    db,
		clock: clk,
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := s.loadVersion(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load version: %w", err)
	}

	if opts.ChangeRetention > 0 {
		if err := s.Prune(opts.ChangeRetention); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to prune change log: %w", err)
		}
	}

	return s, nil
}

// initSchema creates the database tables.
func (s *SQLiteStore) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS buckets (
			name TEXT PRIMARY KEY,
			created_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS entries (
			bucket TEXT NOT NULL,
			key TEXT NOT NULL,
			value BLOB,
			version INTEGER NOT NULL,
			updated_at DATETIME NOT NULL,
			PRIMARY KEY (bucket, key),
			FOREIGN KEY (bucket) REFERENCES buckets(name) ON DELETE CASCADE
		);

		CREATE TABLE IF NOT EXISTS changes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			bucket TEXT NOT NULL,
			key TEXT NOT NULL,
			change_type TEXT NOT NULL,
			version INTEGER NOT NULL,
			timestamp DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_changes_version ON changes(version);
		CREATE INDEX IF NOT EXISTS idx_changes_timestamp ON changes(timestamp);
	`

	_, err := s.db.Exec(schema)
	return err
}

// loadVersion restores the version counter. Entries keep their version even
// after the change log that produced them has been pruned.
func (s *SQLiteStore) loadVersion() error {
	var version sql.NullInt64
	err := s.db.QueryRow(`
		SELECT MAX(v) FROM (
			SELECT MAX(version) AS v FROM changes
			UNION ALL
			SELECT MAX(version) FROM entries
		)
	`).Scan(&version)
	if err != nil {
		return err
	}
	if version.Valid {
		s.version = uint64(version.Int64)
	}
	return nil
}

// Prune removes change log entries older than retention.
func (s *SQLiteStore) Prune(retention time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	cutoff := s.clock.Now().Add(-retention)
	_, err := s.db.Exec("DELETE FROM changes WHERE timestamp < ?", cutoff)
	return err
}

// CreateBucket creates a new bucket.
func (s *SQLiteStore) CreateBucket(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	result, err := s.db.Exec(
		"INSERT INTO buckets (name, created_at) VALUES (?, ?) ON CONFLICT(name) DO NOTHING",
		name, s.clock.Now(),
	)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrBucketExists
	}
	return nil
}

// ListBuckets returns all bucket names.
func (s *SQLiteStore) ListBuckets() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.Query("SELECT name FROM buckets ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Get retrieves a value by bucket and key.
func (s *SQLiteStore) Get(bucket, key string) ([]byte, error) {
	entry, err := s.GetWithMeta(bucket, key)
	if err != nil {
		return nil, err
	}
	return entry.Value, nil
}

// GetWithMeta retrieves a value with its metadata.
func (s *SQLiteStore) GetWithMeta(bucket, key string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	var entry Entry
	err := s.db.QueryRow(
		"SELECT value, version, updated_at FROM entries WHERE bucket = ? AND key = ?",
		bucket, key,
	).Scan(&entry.Value, &entry.Version, &entry.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Set stores a value. The bucket must exist.
func (s *SQLiteStore) Set(bucket, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	now := s.clock.Now()
	version := s.version + 1

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var one int
	if err := tx.QueryRow("SELECT 1 FROM buckets WHERE name = ?", bucket).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrBucketMissing, bucket)
		}
		return err
	}

	err = tx.QueryRow(
		"SELECT 1 FROM entries WHERE bucket = ? AND key = ?",
		bucket, key,
	).Scan(&one)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	changeType := ChangeInsert
	if err == nil {
		changeType = ChangeUpdate
	}

	_, err = tx.Exec(`
		INSERT INTO entries (bucket, key, value, version, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(bucket, key) DO UPDATE SET
			value = excluded.value,
			version = excluded.version,
			updated_at = excluded.updated_at
	`, bucket, key, value, version, now)
	if err != nil {
		return err
	}

	change := Change{
		Bucket:    bucket,
		Key:       key,
		Type:      changeType,
		Timestamp: now,
		Version:   version,
	}
	if err := recordChangeTx(tx, &change); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	s.version = version
	return nil
}

// Delete removes a key.
func (s *SQLiteStore) Delete(bucket, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		"DELETE FROM entries WHERE bucket = ? AND key = ?",
		bucket, key,
	)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrNotFound
	}

	version := s.version + 1
	change := Change{
		Bucket:    bucket,
		Key:       key,
		Type:      ChangeDelete,
		Timestamp: s.clock.Now(),
		Version:   version,
	}
	if err := recordChangeTx(tx, &change); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	s.version = version
	return nil
}

// ListKeys returns all keys in a bucket.
func (s *SQLiteStore) ListKeys(bucket string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.Query("SELECT key FROM entries WHERE bucket = ? ORDER BY key", bucket)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// recordChangeTx writes a change to the change log inside tx.
func recordChangeTx(tx *sql.Tx, change *Change) error {
	result, err := tx.Exec(`
		INSERT INTO changes (bucket, key, change_type, version, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`, change.Bucket, change.Key, string(change.Type), change.Version, change.Timestamp)
	if err != nil {
		return err
	}

	id, _ := result.LastInsertId()
	change.ID = uint64(id)
	return nil
}

// GetChangesSince returns all changes after version, oldest first.
func (s *SQLiteStore) GetChangesSince(version uint64) ([]Change, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.Query(`
		SELECT id, bucket, key, change_type, version, timestamp
		FROM changes
		WHERE version > ?
		ORDER BY version
	`, version)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var changes []Change
	for rows.Next() {
		var c Change
		var changeType string
		if err := rows.Scan(&c.ID, &c.Bucket, &c.Key, &changeType, &c.Version, &c.Timestamp); err != nil {
			return nil, err
		}
		c.Type = ChangeType(changeType)
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

// CurrentVersion returns the current version number.
func (s *SQLiteStore) CurrentVersion() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// CreateSnapshot creates a point-in-time snapshot.
func (s *SQLiteStore) CreateSnapshot() (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	snapshot := &Snapshot{
		ID:        uuid.NewString(),
		Version:   s.version,
		Timestamp: s.clock.Now(),
		Buckets:   make(map[string]Bucket),
	}

	buckets, err := s.db.Query("SELECT name FROM buckets")
	if err != nil {
		return nil, err
	}
	for buckets.Next() {
		var name string
		if err := buckets.Scan(&name); err != nil {
			buckets.Close()
			return nil, err
		}
		snapshot.Buckets[name] = make(Bucket)
	}
	buckets.Close()
	if err := buckets.Err(); err != nil {
		return nil, err
	}

	rows, err := s.db.Query("SELECT bucket, key, value, version, updated_at FROM entries")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var bucket, key string
		var entry Entry
		if err := rows.Scan(&bucket, &key, &entry.Value, &entry.Version, &entry.UpdatedAt); err != nil {
			return nil, err
		}
		if snapshot.Buckets[bucket] == nil {
			snapshot.Buckets[bucket] = make(Bucket)
		}
		snapshot.Buckets[bucket][key] = entry
	}
	return snapshot, rows.Err()
}

// RestoreSnapshot replaces the contents of the store with snapshot. The
// change log is kept and the version never goes backwards.
func (s *SQLiteStore) RestoreSnapshot(snapshot *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM entries"); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM buckets"); err != nil {
		return err
	}

	now := s.clock.Now()
	for name, bucket := range snapshot.Buckets {
		if _, err := tx.Exec("INSERT INTO buckets (name, created_at) VALUES (?, ?)", name, now); err != nil {
			return err
		}
		for key, entry := range bucket {
			if _, err := tx.Exec(`
				INSERT INTO entries (bucket, key, value, version, updated_at)
				VALUES (?, ?, ?, ?, ?)
			`, name, key, entry.Value, entry.Version, entry.UpdatedAt); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.version = max(s.version, snapshot.Version)
	return nil
}

// Close closes the store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.db.Close()
}
