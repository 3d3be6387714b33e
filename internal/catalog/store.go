package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"video-catalog/internal/logging"
	"video-catalog/internal/metrics"
)

// Default timeout for store operations
const defaultTimeout = 5 * time.Second

// Store manages the durable catalog: entries, tags, notes, and reviews.
// Writes are serialized through a single mutex; SQLite's WAL mode keeps
// readers unblocked.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// Open opens (creating if necessary) the catalog database at dbPath.
// The parent directory must already exist and be writable.
func Open(ctx context.Context, dbPath string) (*Store, error) {
	logging.Info("Catalog database: %s", dbPath)

	// busy_timeout prevents "database is locked" errors when the
	// pipeline and HTTP handlers write concurrently; foreign_keys makes
	// the tag/note/review cascades effective.
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{
		db:     db,
		dbPath: dbPath,
	}

	if err := s.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize catalog schema: %w", err)
	}

	logging.Info("Catalog initialized at %s", dbPath)
	return s, nil
}

func (s *Store) initialize(ctx context.Context) error {
	schema := `
	-- Known media files
	CREATE TABLE IF NOT EXISTS entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		folder TEXT NOT NULL,
		size INTEGER NOT NULL DEFAULT 0,
		duration REAL NOT NULL DEFAULT 0,
		watched INTEGER NOT NULL DEFAULT 0,
		last_watched INTEGER,
		last_position INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		modified_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE INDEX IF NOT EXISTS idx_entries_folder ON entries(folder);
	CREATE INDEX IF NOT EXISTS idx_entries_name ON entries(name COLLATE NOCASE);
	CREATE INDEX IF NOT EXISTS idx_entries_watched ON entries(watched);

	-- Tags
	CREATE TABLE IF NOT EXISTS tags (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE COLLATE NOCASE,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	-- Entry-Tag relationship
	CREATE TABLE IF NOT EXISTS entry_tags (
		entry_id INTEGER NOT NULL,
		tag_id INTEGER NOT NULL,
		PRIMARY KEY (entry_id, tag_id),
		FOREIGN KEY (entry_id) REFERENCES entries(id) ON DELETE CASCADE,
		FOREIGN KEY (tag_id) REFERENCES tags(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_entry_tags_tag ON entry_tags(tag_id);

	-- Free-text notes, one per entry
	CREATE TABLE IF NOT EXISTS notes (
		entry_id INTEGER PRIMARY KEY,
		content TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (entry_id) REFERENCES entries(id) ON DELETE CASCADE
	);

	-- Reviews, many per entry
	CREATE TABLE IF NOT EXISTS reviews (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		entry_id INTEGER NOT NULL,
		rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
		review_text TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		FOREIGN KEY (entry_id) REFERENCES entries(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_reviews_entry ON reviews(entry_id);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// observeQuery records query metrics. Call the returned function with
// the operation's error when it completes.
func observeQuery(operation string) func(err error) {
	start := time.Now()
	return func(err error) {
		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.StoreQueryTotal.WithLabelValues(operation, status).Inc()
		metrics.StoreQueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}
