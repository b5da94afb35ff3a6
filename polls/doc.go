// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package polls is the poll engine. A Service owns the full lifecycle of a
// poll aggregate: creation, ballot admission and recording, tally reads,
// versioned edits with rollback, and deletion.
//
// Every mutation of a poll runs under a per-poll mutex and commits through
// the store's revision check, so the duplicate-vote scan and the ballot
// append are one atomic unit even across processes. Fan-out events and
// creator notifications go out only after the commit and never fail the
// operation.
//
// Expected outcomes (unknown poll, wrong password, duplicate ballot,
// expired poll, malformed payload) surface as apperr values with a stable
// kind; anything else is a system fault.
package polls
