package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// FindByPath returns the entry for an absolute path, or nil when the
// path is not catalogued.
func (s *Store) FindByPath(ctx context.Context, path string) (*Entry, error) {
	done := observeQuery("find_by_path")

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, path, name, folder, size, duration, watched, last_watched, last_position, created_at, modified_at
		FROM entries WHERE path = ?
	`, path)

	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		done(nil)
		return nil, nil
	}
	done(err)
	if err != nil {
		return nil, fmt.Errorf("find entry by path: %w", err)
	}
	return entry, nil
}

// FindByID returns the entry with the given id, or nil when no such
// entry exists.
func (s *Store) FindByID(ctx context.Context, entryID int64) (*Entry, error) {
	done := observeQuery("find_by_id")

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, path, name, folder, size, duration, watched, last_watched, last_position, created_at, modified_at
		FROM entries WHERE id = ?
	`, entryID)

	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		done(nil)
		return nil, nil
	}
	done(err)
	if err != nil {
		return nil, fmt.Errorf("find entry by id: %w", err)
	}
	return entry, nil
}

// CreateEntry inserts a new entry, or updates the file-derived fields
// in place when the path is already catalogued. Watched state, tags,
// notes, and reviews survive a re-scan. Returns the entry id.
func (s *Store) CreateEntry(ctx context.Context, e NewEntry) (int64, error) {
	done := observeQuery("create_entry")

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO entries (path, name, folder, size, duration, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			name = excluded.name,
			folder = excluded.folder,
			size = excluded.size,
			duration = excluded.duration,
			modified_at = excluded.modified_at
	`, e.Path, e.Name, e.Folder, e.Size, e.Duration, e.CreatedAt.Unix(), e.ModifiedAt.Unix())
	if err != nil {
		done(err)
		return 0, fmt.Errorf("create entry: %w", err)
	}

	var id int64
	err = s.db.QueryRowContext(ctx, "SELECT id FROM entries WHERE path = ?", e.Path).Scan(&id)
	done(err)
	if err != nil {
		return 0, fmt.Errorf("resolve entry id: %w", err)
	}
	return id, nil
}

// SetWatched updates the watched flag, playback position, and
// last-watched timestamp for an entry.
func (s *Store) SetWatched(ctx context.Context, entryID int64, watched bool, position int64, lastWatched time.Time) error {
	done := observeQuery("set_watched")

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var watchedAt interface{}
	if !lastWatched.IsZero() {
		watchedAt = lastWatched.Unix()
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE entries SET watched = ?, last_position = ?, last_watched = ?
		WHERE id = ?
	`, boolToInt(watched), position, watchedAt, entryID)
	if err != nil {
		done(err)
		return fmt.Errorf("set watched: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		err = fmt.Errorf("entry %d not found", entryID)
	}
	done(err)
	return err
}

// UpdatePath rewrites an entry's path, name, and folder after a move or
// rename. The entry id and all attached tags, notes, and reviews are
// preserved.
func (s *Store) UpdatePath(ctx context.Context, entryID int64, newPath, newName, newFolder string) error {
	done := observeQuery("update_path")

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `
		UPDATE entries SET path = ?, name = ?, folder = ?, modified_at = strftime('%s', 'now')
		WHERE id = ?
	`, newPath, newName, newFolder, entryID)
	if err != nil {
		done(err)
		return fmt.Errorf("update path: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		err = fmt.Errorf("entry %d not found", entryID)
	}
	done(err)
	return err
}

// DeleteEntry removes an entry; tags links, notes, and reviews cascade.
func (s *Store) DeleteEntry(ctx context.Context, entryID int64) error {
	done := observeQuery("delete_entry")

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, "DELETE FROM entries WHERE id = ?", entryID)
	done(err)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

// DeleteByPath removes the entry for a path if one exists. Returns true
// when a row was deleted.
func (s *Store) DeleteByPath(ctx context.Context, path string) (bool, error) {
	done := observeQuery("delete_by_path")

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, "DELETE FROM entries WHERE path = ?", path)
	done(err)
	if err != nil {
		return false, fmt.Errorf("delete entry by path: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Search returns entries matching the options, ordered by name. All
// filters combine conjunctively; the tag list matches entries carrying
// any of the named tags.
func (s *Store) Search(ctx context.Context, opts SearchOptions) ([]Entry, error) {
	done := observeQuery("search")

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := "SELECT DISTINCT e.id, e.path, e.name, e.folder, e.size, e.duration, e.watched, e.last_watched, e.last_position, e.created_at, e.modified_at FROM entries e"
	var conditions []string
	var args []interface{}

	if len(opts.Tags) > 0 {
		query += " JOIN entry_tags et ON e.id = et.entry_id JOIN tags t ON et.tag_id = t.id"
		placeholders := make([]string, len(opts.Tags))
		for i, tag := range opts.Tags {
			placeholders[i] = "t.name = ? COLLATE NOCASE"
			args = append(args, tag)
		}
		conditions = append(conditions, "("+strings.Join(placeholders, " OR ")+")")
	}

	if opts.Query != "" {
		conditions = append(conditions, "e.name LIKE ?")
		args = append(args, "%"+opts.Query+"%")
	}
	if opts.Folder != "" {
		conditions = append(conditions, "e.folder = ?")
		args = append(args, opts.Folder)
	}
	if opts.Watched != nil {
		conditions = append(conditions, "e.watched = ?")
		args = append(args, boolToInt(*opts.Watched))
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY e.name COLLATE NOCASE"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		done(err)
		return nil, fmt.Errorf("search entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			done(err)
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, *entry)
	}
	err = rows.Err()
	done(err)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// CalculateStats counts catalog contents.
func (s *Store) CalculateStats(ctx context.Context) (Stats, error) {
	done := observeQuery("calculate_stats")

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var stats Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM entries),
			(SELECT COUNT(*) FROM entries WHERE watched = 1),
			(SELECT COUNT(*) FROM tags),
			(SELECT COUNT(*) FROM reviews)
	`).Scan(&stats.TotalEntries, &stats.TotalWatched, &stats.TotalTags, &stats.TotalReviews)
	done(err)
	if err != nil {
		return Stats{}, fmt.Errorf("calculate stats: %w", err)
	}
	return stats, nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var e Entry
	var watched int
	var lastWatched sql.NullInt64
	var createdAt, modifiedAt int64

	err := row.Scan(&e.ID, &e.Path, &e.Name, &e.Folder, &e.Size, &e.Duration,
		&watched, &lastWatched, &e.LastPosition, &createdAt, &modifiedAt)
	if err != nil {
		return nil, err
	}

	e.Watched = watched != 0
	if lastWatched.Valid {
		e.LastWatched = time.Unix(lastWatched.Int64, 0)
	}
	e.CreatedAt = time.Unix(createdAt, 0)
	e.ModifiedAt = time.Unix(modifiedAt, 0)
	return &e, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
