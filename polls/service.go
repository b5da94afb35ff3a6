// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package polls

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"pollcore/apperr"
	"pollcore/auth"
	"pollcore/cliparse"
	"pollcore/events"
	"pollcore/models"
	"pollcore/notify"
	"pollcore/store"
)

// ErrWriteContention is the generic system error returned when optimistic
// writes keep conflicting past the retry budget. Not part of the apperr
// taxonomy.
var ErrWriteContention = errors.New("poll write contention not resolved within retry budget")

// casAttempts bounds the optimistic-concurrency retry loop. The per-poll
// mutex already serializes writers inside this process, so retries only
// fire when another process races us.
const casAttempts = 5

const slugAttempts = 3

// Service is the poll engine: admission, recording, tallying, and
// versioned mutation over a Store, with fan-out and notification
// collaborators invoked after commit.
type Service struct {
	store store.Store
	pub   events.Publisher
	notif notify.Notifier
	cfg   cliparse.Config

	locks sync.Map // poll id -> *sync.Mutex
}

func NewService(st store.Store, pub events.Publisher, notif notify.Notifier, cfg cliparse.Config) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	if notif == nil {
		notif = notify.Nop{}
	}
	return &Service{store: st, pub: pub, notif: notif, cfg: cfg}
}

// Create builds a fully-formed poll (there is no draft state) and persists
// it. The slug is derived from the id and title with a random suffix.
func (s *Service) Create(ctx context.Context, req models.CreatePollRequest) (*models.Poll, error) {
	if req.CreatorID == "" {
		return nil, apperr.Validation("creator is required")
	}
	if req.Title == "" {
		return nil, apperr.Validation("please provide a poll title")
	}
	if len(req.Title) > models.MaxTitleLength {
		return nil, apperr.Validation("title cannot be more than %d characters", models.MaxTitleLength)
	}
	if len(req.Description) > models.MaxDescriptionLength {
		return nil, apperr.Validation("description cannot be more than %d characters", models.MaxDescriptionLength)
	}
	if len(req.Options) < 2 {
		return nil, apperr.Validation("a poll needs at least two options")
	}

	system := req.VotingSystem
	if system == "" {
		system = models.SystemSingleChoice
	}
	if !validVotingSystem(system) {
		return nil, apperr.Validation("unknown voting system: %s", system)
	}

	privacy := req.Privacy
	if privacy == "" {
		privacy = models.PrivacyPublic
	}
	if !validPrivacy(privacy) {
		return nil, apperr.Validation("unknown privacy setting: %s", privacy)
	}
	if privacy == models.PrivacyPasswordProtected && req.Password == "" {
		return nil, apperr.Validation("a password is required for password-protected polls")
	}

	showResults := req.ShowResults
	if showResults == "" {
		showResults = models.ShowAlways
	}
	if !validShowResults(showResults) {
		return nil, apperr.Validation("unknown result visibility: %s", showResults)
	}

	now := time.Now().UTC()
	poll := &models.Poll{
		ID:               uuid.NewString(),
		Title:            req.Title,
		Description:      req.Description,
		CreatorID:        req.CreatorID,
		VotingSystem:     system,
		Privacy:          privacy,
		Category:         req.Category,
		Tags:             req.Tags,
		ExpiresAt:        req.ExpiresAt,
		AllowGuestVoting: req.AllowGuestVoting,
		ShowResults:      showResults,
		Ballots:          []models.Ballot{},
		Versions:         []models.Version{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	for _, text := range req.Options {
		if text == "" {
			return nil, apperr.Validation("option text cannot be empty")
		}
		poll.Options = append(poll.Options, models.Option{ID: uuid.NewString(), Text: text})
	}
	if req.Password != "" {
		poll.PasswordHash = auth.HashPassword(req.Password, s.cfg.IdentitySalt)
	}

	// The random slug suffix makes collisions unlikely; retry a couple of
	// times anyway rather than failing a create on bad luck.
	for attempt := 0; ; attempt++ {
		slug, err := auth.GenerateSlug(poll.ID, poll.Title)
		if err != nil {
			return nil, fmt.Errorf("generate slug: %w", err)
		}
		poll.Slug = slug

		err = s.store.Insert(ctx, poll)
		if err == nil {
			break
		}
		if err == store.ErrDuplicateSlug && attempt < slugAttempts-1 {
			continue
		}
		return nil, fmt.Errorf("persist poll: %w", err)
	}

	slog.Info("poll created", "poll_id", poll.ID, "creator_id", poll.CreatorID, "voting_system", poll.VotingSystem)

	audience := "available to the public"
	if poll.Privacy != models.PrivacyPublic {
		audience = "available to those with access"
	}
	s.notifyCreator(ctx, poll, notify.KindSystem, "Poll Created Successfully",
		fmt.Sprintf("Your poll %q has been created and is now %s", poll.Title, audience))

	return poll, nil
}

// Vote admits and records one ballot. On success the returned device token
// is non-empty when the admission controller minted one for an anonymous
// voter.
func (s *Service) Vote(ctx context.Context, pollID string, req models.VoteRequest) (*models.VoteResult, error) {
	var minted string
	poll, err := s.mutate(ctx, pollID, func(p *models.Poll) error {
		adm, err := s.admit(p, req, time.Now().UTC())
		if err != nil {
			return err
		}
		minted = adm.MintedDeviceToken
		return record(p, req.Identity, adm, req.Payload)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("ballot recorded", "poll_id", poll.ID, "total_votes", poll.TotalVotes)

	s.publishPoll(ctx, poll, events.ActionVote)
	s.notifyCreator(ctx, poll, notify.KindPollVote, "New Vote on Your Poll",
		fmt.Sprintf("Someone just cast the %s vote on your poll: %s",
			humanize.Ordinal(poll.TotalVotes), poll.Title))

	return &models.VoteResult{Poll: poll, DeviceToken: minted}, nil
}

// Get returns the redacted projection of a poll, with results hidden per
// the poll's visibility setting and the requesting identity.
func (s *Service) Get(ctx context.Context, idOrSlug string, identity models.Identity) (*models.RedactedPoll, error) {
	poll, _, err := s.load(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}
	if err := s.checkReadAccess(poll, identity); err != nil {
		return nil, err
	}
	hidden := !s.resultsVisible(poll, identity, time.Now().UTC())
	return poll.Redact(hidden), nil
}

// Results returns derived standings for a poll. When the poll's visibility
// setting hides results from the requesting identity this fails with
// Forbidden rather than returning zeroed numbers.
func (s *Service) Results(ctx context.Context, idOrSlug string, identity models.Identity) (*models.Results, error) {
	poll, _, err := s.load(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}
	if err := s.checkReadAccess(poll, identity); err != nil {
		return nil, err
	}
	if !s.resultsVisible(poll, identity, time.Now().UTC()) {
		return nil, apperr.Forbidden("results are hidden for this poll")
	}
	return Tally(poll), nil
}

// History returns the cumulative counter time series over the requested
// range, derived from ballot timestamps.
func (s *Service) History(ctx context.Context, idOrSlug string, identity models.Identity, timeRange string) ([]models.HistoryPoint, error) {
	poll, _, err := s.load(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}
	if err := s.checkReadAccess(poll, identity); err != nil {
		return nil, err
	}
	return history(poll, timeRange, time.Now().UTC()), nil
}

// List returns public polls for the discovery surface.
func (s *Service) List(ctx context.Context, identity models.Identity, f store.ListFilter) ([]*models.RedactedPoll, int, error) {
	polls, total, err := s.store.ListPublic(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("list polls: %w", err)
	}
	return s.redactAll(polls, identity), total, nil
}

// ListByCreator returns one creator's polls, any privacy, for their
// dashboard. Only the creator may call it for themselves.
func (s *Service) ListByCreator(ctx context.Context, requesterID string, f store.ListFilter) ([]*models.RedactedPoll, int, error) {
	if requesterID == "" {
		return nil, 0, apperr.Forbidden("sign in to list your polls")
	}
	polls, total, err := s.store.ListByCreator(ctx, requesterID, f)
	if err != nil {
		return nil, 0, fmt.Errorf("list polls: %w", err)
	}
	return s.redactAll(polls, models.Identity{UserID: requesterID}), total, nil
}

// Delete removes a poll and everything embedded in it (ballots, versions).
func (s *Service) Delete(ctx context.Context, pollID, requesterID string) error {
	unlock := s.lock(pollID)
	defer unlock()

	poll, _, err := s.load(ctx, pollID)
	if err != nil {
		return err
	}
	if poll.CreatorID != requesterID {
		return apperr.Forbidden("not authorized to delete this poll")
	}

	if err := s.store.Delete(ctx, poll.ID); err != nil {
		if err == store.ErrNotFound {
			return apperr.NotFound("poll not found")
		}
		return fmt.Errorf("delete poll: %w", err)
	}

	slog.Info("poll deleted", "poll_id", poll.ID, "creator_id", requesterID)
	s.publishPoll(ctx, poll, events.ActionDelete)
	return nil
}

// internal plumbing

func (s *Service) load(ctx context.Context, idOrSlug string) (*models.Poll, int64, error) {
	poll, rev, err := s.store.Get(ctx, idOrSlug)
	if err == store.ErrNotFound {
		return nil, 0, apperr.NotFound("poll not found")
	}
	if err != nil {
		return nil, 0, fmt.Errorf("load poll: %w", err)
	}
	return poll, rev, nil
}

func (s *Service) checkReadAccess(poll *models.Poll, identity models.Identity) error {
	if poll.Privacy == models.PrivacyPrivate && identity.UserID != poll.CreatorID {
		return apperr.Forbidden("not authorized to access this poll")
	}
	return nil
}

func (s *Service) redactAll(polls []*models.Poll, identity models.Identity) []*models.RedactedPoll {
	now := time.Now().UTC()
	out := make([]*models.RedactedPoll, len(polls))
	for i, p := range polls {
		out[i] = p.Redact(!s.resultsVisible(p, identity, now))
	}
	return out
}

// lock serializes every mutation of one poll inside this process.
func (s *Service) lock(pollID string) func() {
	v, _ := s.locks.LoadOrStore(pollID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// commitAnyway wraps an expected error whose mutation (an audit snapshot)
// must still be persisted before the error is returned to the caller.
type commitAnyway struct {
	err error
}

func (c commitAnyway) Error() string { return c.err.Error() }

// mutate loads a poll, applies fn, and writes the result back conditioned
// on the revision being unchanged. The dedup read and the write happen
// under one per-poll mutex, and the CAS retry loop re-runs fn on a fresh
// copy when a cross-process writer got in between, so an admission check
// can never act on stale ballots.
func (s *Service) mutate(ctx context.Context, idOrSlug string, fn func(*models.Poll) error) (*models.Poll, error) {
	unlock := s.lock(idOrSlug)
	defer unlock()

	for attempt := 0; attempt < casAttempts; attempt++ {
		poll, rev, err := s.load(ctx, idOrSlug)
		if err != nil {
			return nil, err
		}

		var deferred error
		if err := fn(poll); err != nil {
			ca, ok := err.(commitAnyway)
			if !ok {
				return nil, err
			}
			deferred = ca.err
		}
		poll.UpdatedAt = time.Now().UTC()

		err = s.store.Update(ctx, poll, rev)
		if err == store.ErrConflict {
			continue
		}
		if err == store.ErrNotFound {
			return nil, apperr.NotFound("poll not found")
		}
		if err != nil {
			return nil, fmt.Errorf("persist poll: %w", err)
		}
		if deferred != nil {
			return nil, deferred
		}
		return poll, nil
	}
	return nil, fmt.Errorf("poll %s: %w", idOrSlug, ErrWriteContention)
}

// pollEvent mirrors what live viewers need to refresh their display.
type pollEvent struct {
	PollID     string          `json:"poll_id"`
	Action     string          `json:"action"`
	Title      string          `json:"title"`
	Options    []models.Option `json:"options"`
	TotalVotes int             `json:"total_votes"`
}

// notificationEvent is pushed on the recipient's user channel alongside
// the stored notification.
type notificationEvent struct {
	Kind    string `json:"type"`
	Title   string `json:"title"`
	Message string `json:"message"`
	PollID  string `json:"poll_id"`
}

// publishPoll broadcasts a state change to the poll's live channel. Runs
// after the mutation committed; failures are logged and absorbed.
func (s *Service) publishPoll(ctx context.Context, poll *models.Poll, action string) {
	err := s.pub.Publish(ctx, events.PollChannel(poll.ID), events.EventPollUpdated, pollEvent{
		PollID:     poll.ID,
		Action:     action,
		Title:      poll.Title,
		Options:    poll.Options,
		TotalVotes: poll.TotalVotes,
	})
	if err != nil {
		slog.Warn("failed to publish poll event", "error", err, "poll_id", poll.ID, "action", action)
	}
}

// notifyCreator hands the poll's creator a notification and mirrors it on
// their live channel. Best effort on both legs.
func (s *Service) notifyCreator(ctx context.Context, poll *models.Poll, kind, title, message string) {
	if err := s.notif.Notify(ctx, poll.CreatorID, kind, title, message, poll.ID); err != nil {
		slog.Warn("failed to create notification", "error", err, "poll_id", poll.ID, "recipient", poll.CreatorID)
	}

	err := s.pub.Publish(ctx, events.UserChannel(poll.CreatorID), events.EventNewNotification, notificationEvent{
		Kind:    kind,
		Title:   title,
		Message: message,
		PollID:  poll.ID,
	})
	if err != nil {
		slog.Warn("failed to publish notification event", "error", err, "poll_id", poll.ID)
	}
}

func validVotingSystem(s string) bool {
	switch s {
	case models.SystemSingleChoice, models.SystemMultipleChoice,
		models.SystemRankedChoice, models.SystemScoreVoting:
		return true
	}
	return false
}

func validPrivacy(s string) bool {
	switch s {
	case models.PrivacyPublic, models.PrivacyPrivate, models.PrivacyPasswordProtected:
		return true
	}
	return false
}

func validShowResults(s string) bool {
	switch s {
	case models.ShowAlways, models.ShowAfterVote, models.ShowAfterClose:
		return true
	}
	return false
}
