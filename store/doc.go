// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package store persists poll aggregates.

Each poll is one row: a JSON document holding the whole aggregate
(options, ballots, versions) plus denormalized columns for the fields
the discovery surface filters and sorts on (slug, creator, privacy,
vote total, timestamps).

Writes go through a revision check: Get returns the current revision,
Update only lands if it is unchanged, otherwise ErrConflict. Combined
with the poll service's per-poll mutex this makes the dedup read and the
ballot write one atomic unit.

Two drivers are supported, selected by configuration: PostgreSQL via
lib/pq and SQLite via the cgo-free modernc driver. The SQL is written to
run on both.
*/
package store
