package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SaveNote stores the free-text note for an entry, replacing any
// previous content.
func (s *Store) SaveNote(ctx context.Context, entryID int64, content string) error {
	done := observeQuery("save_note")

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notes (entry_id, content) VALUES (?, ?)
		ON CONFLICT(entry_id) DO UPDATE SET content = excluded.content
	`, entryID, content)
	done(err)
	if err != nil {
		return fmt.Errorf("save note: %w", err)
	}
	return nil
}

// Note returns the note for an entry, or "" when none is stored.
func (s *Store) Note(ctx context.Context, entryID int64) (string, error) {
	done := observeQuery("get_note")

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var content string
	err := s.db.QueryRowContext(ctx, "SELECT content FROM notes WHERE entry_id = ?", entryID).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		done(nil)
		return "", nil
	}
	done(err)
	if err != nil {
		return "", fmt.Errorf("get note: %w", err)
	}
	return content, nil
}

// AddReview records a rating (1-5) with optional text for an entry.
func (s *Store) AddReview(ctx context.Context, entryID int64, rating int, text string) (int64, error) {
	done := observeQuery("add_review")

	if rating < 1 || rating > 5 {
		err := fmt.Errorf("rating %d out of range 1-5", rating)
		done(err)
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO reviews (entry_id, rating, review_text) VALUES (?, ?, ?)
	`, entryID, rating, text)
	done(err)
	if err != nil {
		return 0, fmt.Errorf("add review: %w", err)
	}
	id, _ := result.LastInsertId()
	return id, nil
}

// UpdateReview rewrites an existing review's rating and text.
func (s *Store) UpdateReview(ctx context.Context, reviewID int64, rating int, text string) error {
	done := observeQuery("update_review")

	if rating < 1 || rating > 5 {
		err := fmt.Errorf("rating %d out of range 1-5", rating)
		done(err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx,
		"UPDATE reviews SET rating = ?, review_text = ? WHERE id = ?", rating, text, reviewID)
	if err != nil {
		done(err)
		return fmt.Errorf("update review: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		err = fmt.Errorf("review %d not found", reviewID)
	}
	done(err)
	return err
}

// LatestReview returns the most recent review for an entry, or nil when
// the entry has none.
func (s *Store) LatestReview(ctx context.Context, entryID int64) (*Review, error) {
	done := observeQuery("latest_review")

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var r Review
	var createdAt int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, entry_id, rating, review_text, created_at
		FROM reviews WHERE entry_id = ?
		ORDER BY created_at DESC, id DESC LIMIT 1
	`, entryID).Scan(&r.ID, &r.EntryID, &r.Rating, &r.Text, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		done(nil)
		return nil, nil
	}
	done(err)
	if err != nil {
		return nil, fmt.Errorf("latest review: %w", err)
	}
	r.CreatedAt = time.Unix(createdAt, 0)
	return &r, nil
}

// AllReviews returns every review joined with its entry name, newest
// first.
func (s *Store) AllReviews(ctx context.Context) ([]Review, error) {
	done := observeQuery("all_reviews")

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.entry_id, e.name, r.rating, r.review_text, r.created_at
		FROM reviews r
		JOIN entries e ON r.entry_id = e.id
		ORDER BY r.created_at DESC, r.id DESC
	`)
	if err != nil {
		done(err)
		return nil, fmt.Errorf("all reviews: %w", err)
	}
	defer rows.Close()

	var reviews []Review
	for rows.Next() {
		var r Review
		var createdAt int64
		if err := rows.Scan(&r.ID, &r.EntryID, &r.EntryName, &r.Rating, &r.Text, &createdAt); err != nil {
			done(err)
			return nil, err
		}
		r.CreatedAt = time.Unix(createdAt, 0)
		reviews = append(reviews, r)
	}
	err = rows.Err()
	done(err)
	return reviews, err
}
