// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package polls

import (
	"context"
	"math"
	"testing"
	"time"

	"pollcore/apperr"
	"pollcore/models"
	"pollcore/testutil"
)

func resultFor(t *testing.T, res *models.Results, optionID string) models.OptionResult {
	t.Helper()
	for _, or := range res.Options {
		if or.OptionID == optionID {
			return or
		}
	}
	t.Fatalf("results carry no option %q", optionID)
	return models.OptionResult{}
}

func TestTallySingleChoicePercentages(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	poll := mustCreate(t, svc, testutil.CreateRequest("creator-1"))
	cat := optionID(t, poll, "Cat")
	dog := optionID(t, poll, "Dog")

	for i, choice := range []string{cat, cat, dog} {
		_, err := svc.Vote(ctx, poll.ID, models.VoteRequest{
			Identity: models.Identity{UserID: string(rune('a' + i)), IP: "1.1.1." + string(rune('1'+i))},
			Payload:  models.SingleChoice{OptionID: choice},
		})
		if err != nil {
			t.Fatalf("Vote() error = %v", err)
		}
	}

	res, err := svc.Results(ctx, poll.ID, models.Identity{})
	if err != nil {
		t.Fatalf("Results() error = %v", err)
	}
	if res.TotalVotes != 3 {
		t.Errorf("TotalVotes = %d, want 3", res.TotalVotes)
	}
	if got := resultFor(t, res, cat); got.Counter != 2 || got.Percentage != 66.7 {
		t.Errorf("Cat = %+v, want counter 2 at 66.7%%", got)
	}
	if got := resultFor(t, res, dog); got.Counter != 1 || got.Percentage != 33.3 {
		t.Errorf("Dog = %+v, want counter 1 at 33.3%%", got)
	}
}

// A multiple-choice ballot bumps several counters, so shares are computed
// over the counter sum rather than the ballot count; they must still sum
// to 100.
func TestTallyMultipleChoicePercentages(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	req := testutil.CreateRequest("creator-1")
	req.Title = "Toppings"
	req.Options = []string{"Mushroom", "Onion"}
	req.VotingSystem = models.SystemMultipleChoice
	poll := mustCreate(t, svc, req)

	mushroom := optionID(t, poll, "Mushroom")
	onion := optionID(t, poll, "Onion")

	// One ballot selecting both options
	_, err := svc.Vote(ctx, poll.ID, models.VoteRequest{
		Identity: testutil.GuestIdentity("1.2.3.4"),
		Payload:  models.MultipleChoice{OptionIDs: []string{mushroom, onion}},
	})
	if err != nil {
		t.Fatalf("Vote() error = %v", err)
	}

	res, err := svc.Results(ctx, poll.ID, models.Identity{})
	if err != nil {
		t.Fatalf("Results() error = %v", err)
	}
	if got := resultFor(t, res, mushroom).Percentage; got != 50 {
		t.Errorf("Mushroom percentage = %v, want 50", got)
	}
	if got := resultFor(t, res, onion).Percentage; got != 50 {
		t.Errorf("Onion percentage = %v, want 50", got)
	}

	// A second ballot picking only one option shifts the shares
	_, err = svc.Vote(ctx, poll.ID, models.VoteRequest{
		Identity: testutil.GuestIdentity("5.6.7.8"),
		Payload:  models.MultipleChoice{OptionIDs: []string{mushroom}},
	})
	if err != nil {
		t.Fatalf("Vote() error = %v", err)
	}

	res, err = svc.Results(ctx, poll.ID, models.Identity{})
	if err != nil {
		t.Fatalf("Results() error = %v", err)
	}
	var sum float64
	for _, or := range res.Options {
		sum += or.Percentage
	}
	if math.Abs(sum-100) > 0.1 {
		t.Errorf("percentages sum to %v, want 100", sum)
	}
	if got := resultFor(t, res, mushroom).Percentage; got != 66.7 {
		t.Errorf("Mushroom percentage = %v, want 66.7", got)
	}
}

func TestTallyRankedFirstRound(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	req := testutil.CreateRequest("creator-1")
	req.Title = "Ranked"
	req.Options = []string{"A", "B", "C"}
	req.VotingSystem = models.SystemRankedChoice
	poll := mustCreate(t, svc, req)

	a := optionID(t, poll, "A")
	b := optionID(t, poll, "B")
	c := optionID(t, poll, "C")

	_, err := svc.Vote(ctx, poll.ID, models.VoteRequest{
		Identity: testutil.GuestIdentity("1.2.3.4"),
		Payload: models.RankedChoice{Ranking: []models.RankEntry{
			{OptionID: a, Rank: 1}, {OptionID: b, Rank: 2}, {OptionID: c, Rank: 3},
		}},
	})
	if err != nil {
		t.Fatalf("Vote() error = %v", err)
	}

	res, err := svc.Results(ctx, poll.ID, models.Identity{})
	if err != nil {
		t.Fatalf("Results() error = %v", err)
	}
	if res.TotalVotes != 1 {
		t.Errorf("TotalVotes = %d, want 1", res.TotalVotes)
	}
	for id, want := range map[string]int{a: 1, b: 0, c: 0} {
		if got := resultFor(t, res, id).FirstRound; got != want {
			t.Errorf("first round for %s = %d, want %d", id, got, want)
		}
	}

	// The interim counter mirrors only the top pick
	stored, _, _ := svc.store.Get(ctx, poll.ID)
	if got := stored.FindOption(a).Counter; got != 1 {
		t.Errorf("A counter = %d, want 1", got)
	}
	if got := stored.FindOption(b).Counter; got != 0 {
		t.Errorf("B counter = %d, want 0", got)
	}
	// And the full ranking is on the ballot
	if got := len(stored.Ballots[0].Choices); got != 3 {
		t.Errorf("ballot choices = %d, want the verbatim 3-entry ranking", got)
	}
}

func TestTallyScoreAverage(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	req := testutil.CreateRequest("creator-1")
	req.Title = "Scores"
	req.Options = []string{"X", "Y"}
	req.VotingSystem = models.SystemScoreVoting
	poll := mustCreate(t, svc, req)

	x := optionID(t, poll, "X")
	y := optionID(t, poll, "Y")

	_, err := svc.Vote(ctx, poll.ID, models.VoteRequest{
		Identity: testutil.GuestIdentity("1.2.3.4"),
		Payload: models.ScoreVoting{Scores: []models.ScoreEntry{
			{OptionID: x, Score: 8}, {OptionID: y, Score: 3},
		}},
	})
	if err != nil {
		t.Fatalf("Vote() error = %v", err)
	}
	_, err = svc.Vote(ctx, poll.ID, models.VoteRequest{
		Identity: testutil.GuestIdentity("5.6.7.8"),
		Payload: models.ScoreVoting{Scores: []models.ScoreEntry{
			{OptionID: x, Score: 5},
		}},
	})
	if err != nil {
		t.Fatalf("Vote() error = %v", err)
	}

	res, err := svc.Results(ctx, poll.ID, models.Identity{})
	if err != nil {
		t.Fatalf("Results() error = %v", err)
	}

	gotX := resultFor(t, res, x)
	if gotX.AverageScore != 6.5 || gotX.ScoredBy != 2 {
		t.Errorf("X = %+v, want average 6.5 from 2 voters", gotX)
	}
	gotY := resultFor(t, res, y)
	if gotY.AverageScore != 3.0 || gotY.ScoredBy != 1 {
		t.Errorf("Y = %+v, want average 3.0 from 1 voter", gotY)
	}
	if gotX.AverageScore < float64(models.MinScore) || gotX.AverageScore > float64(models.MaxScore) {
		t.Errorf("average %v out of score bounds", gotX.AverageScore)
	}
}

func TestResultsVisibilityAfterVote(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	req := testutil.CreateRequest("creator-1")
	req.ShowResults = models.ShowAfterVote
	poll := mustCreate(t, svc, req)

	stranger := testutil.GuestIdentity("9.9.9.9")

	// Before voting the numbers are withheld
	if _, err := svc.Results(ctx, poll.ID, stranger); !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("Results() before voting error = %v, want forbidden", err)
	}
	got, err := svc.Get(ctx, poll.ID, stranger)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !got.ResultsHidden {
		t.Error("Get() before voting should hide results")
	}

	if _, err := svc.Vote(ctx, poll.ID, models.VoteRequest{
		Identity: stranger,
		Payload:  models.SingleChoice{OptionID: poll.Options[0].ID},
	}); err != nil {
		t.Fatalf("Vote() error = %v", err)
	}

	// Having voted, the same identity sees the tally
	res, err := svc.Results(ctx, poll.ID, stranger)
	if err != nil {
		t.Fatalf("Results() after voting error = %v", err)
	}
	if res.TotalVotes != 1 {
		t.Errorf("TotalVotes = %d, want 1", res.TotalVotes)
	}

	// The creator always sees the tally
	if _, err := svc.Results(ctx, poll.ID, models.Identity{UserID: "creator-1"}); err != nil {
		t.Errorf("Results() for creator error = %v", err)
	}
}

func TestResultsVisibilityAfterClose(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	req := testutil.CreateRequest("creator-1")
	req.ShowResults = models.ShowAfterClose
	poll := mustCreate(t, svc, req)

	voter := testutil.GuestIdentity("9.9.9.9")
	if _, err := svc.Vote(ctx, poll.ID, models.VoteRequest{
		Identity: voter,
		Payload:  models.SingleChoice{OptionID: poll.Options[0].ID},
	}); err != nil {
		t.Fatalf("Vote() error = %v", err)
	}

	// Still open, even the voter waits
	if _, err := svc.Results(ctx, poll.ID, voter); !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("Results() while open error = %v, want forbidden", err)
	}

	// Close it by moving the expiry into the past (expiry stays editable
	// after voting starts)
	past := time.Now().UTC().Add(-time.Minute)
	if _, err := svc.Update(ctx, poll.ID, "creator-1", models.PollUpdate{ExpiresAt: &past}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	res, err := svc.Results(ctx, poll.ID, voter)
	if err != nil {
		t.Fatalf("Results() after close error = %v", err)
	}
	if res.TotalVotes != 1 {
		t.Errorf("TotalVotes = %d, want 1", res.TotalVotes)
	}
}

func TestRedactionHidesCounters(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	req := testutil.CreateRequest("creator-1")
	req.ShowResults = models.ShowAfterVote
	poll := mustCreate(t, svc, req)

	if _, err := svc.Vote(ctx, poll.ID, models.VoteRequest{
		Identity: testutil.GuestIdentity("1.2.3.4"),
		Payload:  models.SingleChoice{OptionID: poll.Options[0].ID},
	}); err != nil {
		t.Fatalf("Vote() error = %v", err)
	}

	got, err := svc.Get(ctx, poll.ID, testutil.GuestIdentity("completely-new"))
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !got.ResultsHidden {
		t.Fatal("expected hidden results for a non-voter")
	}
	if got.TotalVotes != 0 {
		t.Errorf("redacted TotalVotes = %d, want 0", got.TotalVotes)
	}
	for _, opt := range got.Options {
		if opt.Counter != 0 {
			t.Errorf("redacted counter for %s = %d, want 0", opt.Text, opt.Counter)
		}
		if opt.Text == "" {
			t.Error("redaction must keep option text")
		}
	}
}

func TestPrivatePollAccess(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	req := testutil.CreateRequest("creator-1")
	req.Privacy = models.PrivacyPrivate
	poll := mustCreate(t, svc, req)

	if _, err := svc.Get(ctx, poll.ID, models.Identity{UserID: "someone-else"}); !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("Get() by stranger error = %v, want forbidden", err)
	}
	if _, err := svc.Get(ctx, poll.ID, models.Identity{UserID: "creator-1"}); err != nil {
		t.Errorf("Get() by creator error = %v", err)
	}
}

func TestHistory(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	poll := &models.Poll{
		ID:           "p1",
		VotingSystem: models.SystemSingleChoice,
		Options: []models.Option{
			{ID: "a", Text: "A", Counter: 2},
			{ID: "b", Text: "B", Counter: 1},
		},
		TotalVotes: 3,
		Ballots: []models.Ballot{
			{VotedAt: now.Add(-50 * time.Minute), Choices: []models.Choice{{OptionID: "a"}}},
			{VotedAt: now.Add(-20 * time.Minute), Choices: []models.Choice{{OptionID: "b"}}},
			{VotedAt: now.Add(-2 * time.Minute), Choices: []models.Choice{{OptionID: "a"}}},
		},
	}

	points := history(poll, "1h", now)
	if len(points) != 12 {
		t.Fatalf("len(points) = %d, want 12", len(points))
	}

	// The series is cumulative and ends at the live totals
	last := points[len(points)-1]
	if last.Total != 3 || last.Counts["a"] != 2 || last.Counts["b"] != 1 {
		t.Errorf("final point = %+v, want the live totals", last)
	}

	// Midway through the hour only the first two ballots have landed
	mid := points[7] // covers up to -20m
	if mid.Total != 2 || mid.Counts["a"] != 1 || mid.Counts["b"] != 1 {
		t.Errorf("mid point = %+v, want totals as of -20m", mid)
	}

	for i := 1; i < len(points); i++ {
		if points[i].Total < points[i-1].Total {
			t.Fatalf("series not monotonic at %d: %d then %d", i, points[i-1].Total, points[i].Total)
		}
	}

	t.Run("unknown range falls back to 24h", func(t *testing.T) {
		points := history(poll, "fortnight", now)
		if len(points) != 12 {
			t.Errorf("len(points) = %d, want the 24h shape", len(points))
		}
	})
}

func TestHistoryScoreVoting(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	poll := &models.Poll{
		ID:           "p1",
		VotingSystem: models.SystemScoreVoting,
		Options:      []models.Option{{ID: "x", Text: "X", Counter: 8}},
		TotalVotes:   1,
		Ballots: []models.Ballot{
			{VotedAt: now.Add(-5 * time.Minute), Choices: []models.Choice{{OptionID: "x", Score: 8}}},
		},
	}

	points := history(poll, "1h", now)
	last := points[len(points)-1]
	if last.Counts["x"] != 8 {
		t.Errorf("score history counts = %d, want the cumulative score 8", last.Counts["x"])
	}
	if last.Total != 1 {
		t.Errorf("score history total = %d, want 1 ballot", last.Total)
	}
}
