// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	_ "modernc.org/sqlite"

	"pollcore/cliparse"
	"pollcore/models"
)

// SQLStore keeps each poll aggregate as one JSON document row. It works
// against PostgreSQL (lib/pq) or SQLite (modernc, no cgo); the SQL sticks
// to what both accept, including $N placeholders.
type SQLStore struct {
	db *sql.DB
}

// Open connects per the config, creates the schema, and verifies the
// connection.
func Open(cfg cliparse.Config) (*SQLStore, error) {
	driver := "postgres"
	if cfg.DatabaseType == "sqlite" {
		driver = "sqlite"
	}

	db, err := sql.Open(driver, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == "sqlite" {
		// SQLite allows one writer at a time; a single connection keeps
		// concurrent writes queued instead of failing with SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	if err := CreateSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) Insert(ctx context.Context, poll *models.Poll) error {
	doc, err := json.Marshal(poll)
	if err != nil {
		return fmt.Errorf("failed to encode poll: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO poll (id, slug, creator_id, privacy, total_votes, expires_at, created_at, updated_at, rev, doc)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1, $9)
	`, poll.ID, poll.Slug, poll.CreatorID, poll.Privacy, poll.TotalVotes,
		nullableTime(poll.ExpiresAt), poll.CreatedAt, poll.UpdatedAt, string(doc))

	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateSlug
		}
		return fmt.Errorf("failed to insert poll: %w", err)
	}
	return nil
}

// Get loads a poll by id or slug and returns the revision the caller must
// present to Update.
func (s *SQLStore) Get(ctx context.Context, idOrSlug string) (*models.Poll, int64, error) {
	var doc string
	var rev int64
	err := s.db.QueryRowContext(ctx, `
		SELECT doc, rev FROM poll WHERE id = $1 OR slug = $1
	`, idOrSlug).Scan(&doc, &rev)

	if err == sql.ErrNoRows {
		return nil, 0, ErrNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query poll: %w", err)
	}

	poll, err := decodePoll(doc)
	if err != nil {
		return nil, 0, err
	}
	return poll, rev, nil
}

// Update writes the aggregate back, conditioned on the revision being
// unchanged. The denormalized columns move in the same statement so the
// discovery surface never lags the document.
func (s *SQLStore) Update(ctx context.Context, poll *models.Poll, rev int64) error {
	doc, err := json.Marshal(poll)
	if err != nil {
		return fmt.Errorf("failed to encode poll: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE poll
		SET slug = $1, privacy = $2, total_votes = $3, expires_at = $4,
		    updated_at = $5, rev = rev + 1, doc = $6
		WHERE id = $7 AND rev = $8
	`, poll.Slug, poll.Privacy, poll.TotalVotes, nullableTime(poll.ExpiresAt),
		poll.UpdatedAt, string(doc), poll.ID, rev)

	if err != nil {
		return fmt.Errorf("failed to update poll: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		// Either the row is gone or another writer bumped the revision
		var exists bool
		err := s.db.QueryRowContext(ctx, `
			SELECT EXISTS(SELECT 1 FROM poll WHERE id = $1)
		`, poll.ID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check poll existence: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrConflict
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, pollID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM poll WHERE id = $1`, pollID)
	if err != nil {
		return fmt.Errorf("failed to delete poll: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListPublic returns public polls newest first, plus the total match count
// for pagination.
func (s *SQLStore) ListPublic(ctx context.Context, f ListFilter) ([]*models.Poll, int, error) {
	where, args := "privacy = $1", []any{models.PrivacyPublic}
	where, args = appendExpiryClause(where, args, f.Expired)
	return s.list(ctx, where, args, f)
}

// ListByCreator returns one creator's polls newest first, regardless of
// privacy.
func (s *SQLStore) ListByCreator(ctx context.Context, creatorID string, f ListFilter) ([]*models.Poll, int, error) {
	where, args := "creator_id = $1", []any{creatorID}
	where, args = appendExpiryClause(where, args, f.Expired)
	return s.list(ctx, where, args, f)
}

func (s *SQLStore) list(ctx context.Context, where string, args []any, f ListFilter) ([]*models.Poll, int, error) {
	var total int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM poll WHERE "+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count polls: %w", err)
	}

	page, limit := f.Page, f.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	query := fmt.Sprintf(
		"SELECT doc FROM poll WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		where, len(args)+1, len(args)+2)
	args = append(args, limit, (page-1)*limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query polls: %w", err)
	}
	defer rows.Close()

	polls := []*models.Poll{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, 0, fmt.Errorf("failed to scan poll: %w", err)
		}
		poll, err := decodePoll(doc)
		if err != nil {
			return nil, 0, err
		}
		polls = append(polls, poll)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate polls: %w", err)
	}

	return polls, total, nil
}

func appendExpiryClause(where string, args []any, expired *bool) (string, []any) {
	if expired == nil {
		return where, args
	}
	n := len(args) + 1
	if *expired {
		where += fmt.Sprintf(" AND expires_at IS NOT NULL AND expires_at < $%d", n)
	} else {
		where += fmt.Sprintf(" AND (expires_at IS NULL OR expires_at > $%d)", n)
	}
	return where, append(args, time.Now().UTC())
}

func decodePoll(doc string) (*models.Poll, error) {
	var poll models.Poll
	if err := json.Unmarshal([]byte(doc), &poll); err != nil {
		return nil, fmt.Errorf("failed to decode poll document: %w", err)
	}
	return &poll, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505" // unique_violation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
