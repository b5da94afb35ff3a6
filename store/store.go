// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"errors"

	"pollcore/models"
)

var (
	// ErrNotFound means no poll matches the given id or slug.
	ErrNotFound = errors.New("poll not found")
	// ErrConflict means the record changed since it was read; the caller
	// should reload and retry.
	ErrConflict = errors.New("poll revision conflict")
	// ErrDuplicateSlug means the slug column's uniqueness was violated.
	ErrDuplicateSlug = errors.New("poll slug already exists")
)

// ListFilter bounds a listing query.
type ListFilter struct {
	Page  int
	Limit int
	// Expired filters on the expiry instant: true returns only expired
	// polls, false only live ones, nil returns both.
	Expired *bool
}

// Store persists poll aggregates, one record per poll. Writes are
// compare-and-swap on the record revision returned by the read methods;
// a stale revision yields ErrConflict.
type Store interface {
	Insert(ctx context.Context, poll *models.Poll) error
	Get(ctx context.Context, idOrSlug string) (*models.Poll, int64, error)
	Update(ctx context.Context, poll *models.Poll, rev int64) error
	Delete(ctx context.Context, pollID string) error
	ListPublic(ctx context.Context, f ListFilter) ([]*models.Poll, int, error)
	ListByCreator(ctx context.Context, creatorID string, f ListFilter) ([]*models.Poll, int, error)
}
