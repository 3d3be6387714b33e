package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// AddTag attaches a tag to an entry, creating the tag if it does not
// exist. Tag names are case-insensitive and trimmed.
func (s *Store) AddTag(ctx context.Context, entryID int64, tagName string) error {
	done := observeQuery("add_tag")

	tagName = strings.TrimSpace(tagName)
	if tagName == "" {
		err := errors.New("tag name cannot be empty")
		done(err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var tagID int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM tags WHERE name = ? COLLATE NOCASE", tagName,
	).Scan(&tagID)

	if err != nil {
		result, createErr := s.db.ExecContext(ctx, "INSERT INTO tags (name) VALUES (?)", tagName)
		if createErr != nil {
			err = fmt.Errorf("failed to create tag: %w", createErr)
			done(err)
			return err
		}
		tagID, _ = result.LastInsertId()
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO entry_tags (entry_id, tag_id) VALUES (?, ?)",
		entryID, tagID,
	)
	done(err)
	return err
}

// RemoveTag detaches a tag from an entry. Removing a tag the entry does
// not carry is a no-op.
func (s *Store) RemoveTag(ctx context.Context, entryID int64, tagName string) error {
	done := observeQuery("remove_tag")

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		DELETE FROM entry_tags
		WHERE entry_id = ? AND tag_id = (SELECT id FROM tags WHERE name = ? COLLATE NOCASE)
	`, entryID, tagName)
	done(err)
	return err
}

// EntryTags returns the tag names attached to an entry, sorted.
func (s *Store) EntryTags(ctx context.Context, entryID int64) ([]string, error) {
	done := observeQuery("entry_tags")

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT t.name FROM tags t
		JOIN entry_tags et ON t.id = et.tag_id
		WHERE et.entry_id = ?
		ORDER BY t.name COLLATE NOCASE
	`, entryID)
	if err != nil {
		done(err)
		return nil, fmt.Errorf("entry tags: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			done(err)
			return nil, err
		}
		tags = append(tags, name)
	}
	err = rows.Err()
	done(err)
	return tags, err
}

// AllTags returns every tag with its usage count, sorted by name.
func (s *Store) AllTags(ctx context.Context) ([]Tag, error) {
	done := observeQuery("all_tags")

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.name, t.created_at, COUNT(et.entry_id)
		FROM tags t
		LEFT JOIN entry_tags et ON t.id = et.tag_id
		GROUP BY t.id
		ORDER BY t.name COLLATE NOCASE
	`)
	if err != nil {
		done(err)
		return nil, fmt.Errorf("all tags: %w", err)
	}
	defer rows.Close()

	var tags []Tag
	for rows.Next() {
		var tag Tag
		var createdAt int64
		if err := rows.Scan(&tag.ID, &tag.Name, &createdAt, &tag.ItemCount); err != nil {
			done(err)
			return nil, err
		}
		tag.CreatedAt = time.Unix(createdAt, 0)
		tags = append(tags, tag)
	}
	err = rows.Err()
	done(err)
	return tags, err
}

// RenameTag changes a tag's name, keeping all attachments.
func (s *Store) RenameTag(ctx context.Context, oldName, newName string) error {
	done := observeQuery("rename_tag")

	newName = strings.TrimSpace(newName)
	if newName == "" {
		err := errors.New("tag name cannot be empty")
		done(err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx,
		"UPDATE tags SET name = ? WHERE name = ? COLLATE NOCASE", newName, oldName)
	if err != nil {
		done(err)
		return fmt.Errorf("rename tag: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		err = fmt.Errorf("tag %q not found", oldName)
	}
	done(err)
	return err
}

// DeleteTag removes a tag entirely; attachments cascade.
func (s *Store) DeleteTag(ctx context.Context, name string) error {
	done := observeQuery("delete_tag")

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, "DELETE FROM tags WHERE name = ? COLLATE NOCASE", name)
	done(err)
	if err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	return nil
}
