// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package polls

import (
	"math"
	"time"

	"pollcore/auth"
	"pollcore/models"
)

// Tally derives standings from the poll's ballots. Counters are carried
// through for display, but ranked first-round counts and score averages
// are recomputed from the ballots of record, so a rolled-back or edited
// poll still reports honest numbers.
func Tally(poll *models.Poll) *models.Results {
	res := &models.Results{
		PollID:       poll.ID,
		VotingSystem: poll.VotingSystem,
		TotalVotes:   poll.TotalVotes,
		ComputedAt:   time.Now().UTC(),
	}

	counterSum := 0
	for _, opt := range poll.Options {
		counterSum += opt.Counter
	}

	firstRound := make(map[string]int)
	scoreSum := make(map[string]int)
	scoredBy := make(map[string]int)
	if poll.VotingSystem == models.SystemRankedChoice || poll.VotingSystem == models.SystemScoreVoting {
		for i := range poll.Ballots {
			for _, c := range poll.Ballots[i].Choices {
				switch poll.VotingSystem {
				case models.SystemRankedChoice:
					if c.Rank == 1 {
						firstRound[c.OptionID]++
					}
				case models.SystemScoreVoting:
					scoreSum[c.OptionID] += c.Score
					scoredBy[c.OptionID]++
				}
			}
		}
	}

	for _, opt := range poll.Options {
		or := models.OptionResult{
			OptionID: opt.ID,
			Text:     opt.Text,
			Counter:  opt.Counter,
		}
		switch poll.VotingSystem {
		case models.SystemRankedChoice:
			or.FirstRound = firstRound[opt.ID]
			or.Percentage = percent(or.FirstRound, poll.TotalVotes)
		case models.SystemScoreVoting:
			or.ScoredBy = scoredBy[opt.ID]
			if or.ScoredBy > 0 {
				or.AverageScore = round1(float64(scoreSum[opt.ID]) / float64(or.ScoredBy))
			}
		default:
			// Share of all counter increments, not of ballots: a
			// multiple-choice ballot bumps several counters, and the
			// shares still have to sum to 100.
			or.Percentage = percent(opt.Counter, counterSum)
		}
		res.Options = append(res.Options, or)
	}
	return res
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return round1(float64(n) / float64(total) * 100)
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}

// resultsVisible applies the poll's result-visibility setting. Creators
// always see their own numbers.
func (s *Service) resultsVisible(poll *models.Poll, identity models.Identity, now time.Time) bool {
	if identity.UserID != "" && identity.UserID == poll.CreatorID {
		return true
	}
	switch poll.ShowResults {
	case models.ShowAfterVote:
		return hasVoted(poll, identity, s.cfg.IdentitySalt)
	case models.ShowAfterClose:
		return poll.Expired(now)
	default:
		return true
	}
}

func hasVoted(poll *models.Poll, identity models.Identity, salt string) bool {
	adm := admission{
		VoterUserID: identity.UserID,
		DeviceToken: identity.DeviceToken,
	}
	if identity.IP != "" {
		adm.IPHash = auth.HashIP(identity.IP, salt)
	}
	for i := range poll.Ballots {
		if ballotMatches(&poll.Ballots[i], adm) {
			return true
		}
	}
	return false
}

// historyWindow maps a named range onto a bucket width and point count.
var historyWindows = map[string]struct {
	step   time.Duration
	points int
}{
	"1h":  {5 * time.Minute, 12},
	"24h": {2 * time.Hour, 12},
	"7d":  {6 * time.Hour, 28},
	"30d": {24 * time.Hour, 30},
}

// history replays counter increments from ballot timestamps into a
// cumulative time series ending now. Unknown ranges fall back to 24h.
func history(poll *models.Poll, timeRange string, now time.Time) []models.HistoryPoint {
	w, ok := historyWindows[timeRange]
	if !ok {
		w = historyWindows["24h"]
	}

	points := make([]models.HistoryPoint, w.points)
	start := now.Add(-time.Duration(w.points) * w.step)
	for i := range points {
		points[i] = models.HistoryPoint{
			Timestamp: start.Add(time.Duration(i+1) * w.step),
			Counts:    make(map[string]int),
		}
	}

	for bi := range poll.Ballots {
		b := &poll.Ballots[bi]
		// A ballot counts toward the first bucket closing at or after its
		// timestamp, and every later one. Ballots older than the window
		// are folded into the first bucket.
		idx := w.points - 1
		for i := range points {
			if !b.VotedAt.After(points[i].Timestamp) {
				idx = i
				break
			}
		}
		for i := idx; i < w.points; i++ {
			points[i].Total++
			for _, c := range b.Choices {
				points[i].Counts[c.OptionID] += counterDelta(poll.VotingSystem, c)
			}
		}
	}
	return points
}

// counterDelta is the counter effect one recorded choice had, per variant.
func counterDelta(system string, c models.Choice) int {
	switch system {
	case models.SystemRankedChoice:
		if c.Rank == 1 {
			return 1
		}
		return 0
	case models.SystemScoreVoting:
		return c.Score
	default:
		return 1
	}
}
