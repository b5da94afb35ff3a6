// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package polls

import (
	"time"

	"pollcore/apperr"
	"pollcore/models"
)

// record validates the payload against the poll's voting system, applies
// the variant's counter effects, and appends the ballot. Called with the
// poll's write lock held; either everything lands or nothing does.
func record(poll *models.Poll, identity models.Identity, adm admission, payload models.VotePayload) error {
	if payload == nil {
		return apperr.Validation("a vote payload is required")
	}
	if payload.System() != poll.VotingSystem {
		return apperr.Validation("payload does not match voting system %s", poll.VotingSystem)
	}

	ballot := models.Ballot{
		VoterUserID: adm.VoterUserID,
		DeviceToken: adm.DeviceToken,
		IPHash:      adm.IPHash,
		VotedAt:     time.Now().UTC(),
	}

	switch p := payload.(type) {
	case models.SingleChoice:
		opt := poll.FindOption(p.OptionID)
		if opt == nil {
			return apperr.NotFound("option not found")
		}
		opt.Counter++
		ballot.Choices = []models.Choice{{OptionID: p.OptionID}}

	case models.MultipleChoice:
		if len(p.OptionIDs) == 0 {
			return apperr.Validation("select at least one option")
		}
		seen := make(map[string]bool, len(p.OptionIDs))
		for _, id := range p.OptionIDs {
			if seen[id] {
				return apperr.Validation("option %s selected more than once", id)
			}
			seen[id] = true
			if poll.FindOption(id) == nil {
				return apperr.NotFound("option not found")
			}
		}
		for _, id := range p.OptionIDs {
			poll.FindOption(id).Counter++
			ballot.Choices = append(ballot.Choices, models.Choice{OptionID: id})
		}

	case models.RankedChoice:
		if len(p.Ranking) == 0 {
			return apperr.Validation("a ranking is required")
		}
		seen := make(map[string]bool, len(p.Ranking))
		for _, entry := range p.Ranking {
			if entry.Rank < 1 {
				return apperr.Validation("ranks start at 1")
			}
			if seen[entry.OptionID] {
				return apperr.Validation("option %s ranked more than once", entry.OptionID)
			}
			seen[entry.OptionID] = true
			if poll.FindOption(entry.OptionID) == nil {
				return apperr.NotFound("option not found")
			}
		}
		// The full ranking is the ballot of record. The counter bump for
		// the top pick only feeds the quick display; tallies recompute
		// first-round counts from ballots.
		for _, entry := range p.Ranking {
			ballot.Choices = append(ballot.Choices, models.Choice{OptionID: entry.OptionID, Rank: entry.Rank})
			if entry.Rank == 1 {
				poll.FindOption(entry.OptionID).Counter++
			}
		}

	case models.ScoreVoting:
		if len(p.Scores) == 0 {
			return apperr.Validation("at least one score is required")
		}
		seen := make(map[string]bool, len(p.Scores))
		for _, entry := range p.Scores {
			if entry.Score < models.MinScore || entry.Score > models.MaxScore {
				return apperr.Validation("scores must be between %d and %d", models.MinScore, models.MaxScore)
			}
			if seen[entry.OptionID] {
				return apperr.Validation("option %s scored more than once", entry.OptionID)
			}
			seen[entry.OptionID] = true
			if poll.FindOption(entry.OptionID) == nil {
				return apperr.NotFound("option not found")
			}
		}
		for _, entry := range p.Scores {
			poll.FindOption(entry.OptionID).Counter += entry.Score
			ballot.Choices = append(ballot.Choices, models.Choice{OptionID: entry.OptionID, Score: entry.Score})
		}

	default:
		return apperr.Validation("unsupported vote payload")
	}

	poll.Ballots = append(poll.Ballots, ballot)
	poll.TotalVotes++
	return nil
}
