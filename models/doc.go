// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines the poll domain types shared by every layer.

# Aggregate

Poll is the aggregate root. Options, ballots, and the version log live
inside it and are persisted together as one document:

  - Option: id, text, and a live counter whose meaning depends on the
    voting system (vote count, first-choice display proxy, or score sum)
  - Ballot: one voter's committed submission, with the voter markers
    used for deduplication (user id, device token, hashed address)
  - Version: a pre-edit snapshot appended by every update or rollback

# Vote Payloads

VotePayload is a sealed variant with one concrete type per voting system:

  - SingleChoice: one option id
  - MultipleChoice: a set of option ids
  - RankedChoice: a full ranking, stored verbatim on the ballot
  - ScoreVoting: integer scores from 1 to 10 per option

A payload's System() must match the poll's voting system to be recorded.

# Projections

RedactedPoll is the outward shape: no password material, no raw ballots,
and counters zeroed when the poll's visibility setting hides results.
Results and HistoryPoint carry derived standings from the tally side.
*/
package models
