// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "time"

// Voting system constants
const (
	SystemSingleChoice   = "single-choice"
	SystemMultipleChoice = "multiple-choice"
	SystemRankedChoice   = "ranked-choice"
	SystemScoreVoting    = "score-voting"
)

// Privacy constants
const (
	PrivacyPublic            = "public"
	PrivacyPrivate           = "private"
	PrivacyPasswordProtected = "password-protected"
)

// Result visibility constants
const (
	ShowAlways     = "always"
	ShowAfterVote  = "after-vote"
	ShowAfterClose = "after-close"
)

// Field bounds
const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 500
)

// Score bounds for score-voting ballots
const (
	MinScore = 1
	MaxScore = 10
)

// Domain types

// Poll is the aggregate root. The whole struct is persisted as one record;
// Ballots and Versions are embedded, append-only lists.
type Poll struct {
	ID               string     `json:"id"`
	Slug             string     `json:"slug"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	Options          []Option   `json:"options"`
	CreatorID        string     `json:"creator_id"`
	VotingSystem     string     `json:"voting_system"`
	Privacy          string     `json:"privacy"`
	PasswordHash     string     `json:"password_hash,omitempty"`
	Category         string     `json:"category,omitempty"`
	Tags             []string   `json:"tags,omitempty"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	AllowGuestVoting bool       `json:"allow_guest_voting"`
	ShowResults      string     `json:"show_results"`
	Ballots          []Ballot   `json:"ballots"`
	TotalVotes       int        `json:"total_votes"`
	Versions         []Version  `json:"versions"`
	IsEdited         bool       `json:"is_edited"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Option carries a live counter whose meaning depends on the voting system:
// a plain vote count for single/multiple-choice, a first-choice display
// proxy for ranked-choice, and a cumulative score sum for score-voting.
type Option struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Counter int    `json:"counter"`
}

// Choice is one recorded selection inside a ballot. Rank is set for
// ranked-choice ballots, Score for score-voting ballots.
type Choice struct {
	OptionID string `json:"option"`
	Rank     int    `json:"rank,omitempty"`
	Score    int    `json:"score,omitempty"`
}

// Ballot is one voter's committed submission. Immutable once appended.
// The voter's IP is stored as a salted hash, never raw.
type Ballot struct {
	VoterUserID string    `json:"voter_user_id,omitempty"`
	DeviceToken string    `json:"device_token,omitempty"`
	IPHash      string    `json:"ip_hash,omitempty"`
	VotedAt     time.Time `json:"voted_at"`
	Choices     []Choice  `json:"choices"`
}

// Version is an immutable snapshot of a poll's mutable fields, taken
// immediately before an edit or rollback.
type Version struct {
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	Options          []Option   `json:"options"`
	Privacy          string     `json:"privacy"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	AllowGuestVoting bool       `json:"allow_guest_voting"`
	ShowResults      string     `json:"show_results"`
	EditorID         string     `json:"editor_id"`
	VersionDate      time.Time  `json:"version_date"`
}

// Identity is the resolved requester tuple produced by the identity
// resolver collaborator. The core never authenticates; it only consumes
// this. An empty UserID means the requester is a guest.
type Identity struct {
	UserID      string
	DeviceToken string
	IP          string
}

// Vote payloads

// VotePayload is the tagged variant carried by a vote attempt. Exactly one
// concrete type exists per voting system.
type VotePayload interface {
	votePayload()
	System() string
}

type SingleChoice struct {
	OptionID string
}

type MultipleChoice struct {
	OptionIDs []string
}

type RankEntry struct {
	OptionID string
	Rank     int
}

type RankedChoice struct {
	Ranking []RankEntry
}

type ScoreEntry struct {
	OptionID string
	Score    int
}

type ScoreVoting struct {
	Scores []ScoreEntry
}

func (SingleChoice) votePayload()   {}
func (MultipleChoice) votePayload() {}
func (RankedChoice) votePayload()   {}
func (ScoreVoting) votePayload()    {}

// System returns the voting system a payload belongs to.
func (SingleChoice) System() string   { return SystemSingleChoice }
func (MultipleChoice) System() string { return SystemMultipleChoice }
func (RankedChoice) System() string   { return SystemRankedChoice }
func (ScoreVoting) System() string    { return SystemScoreVoting }

// Request types

type CreatePollRequest struct {
	CreatorID        string
	Title            string
	Description      string
	Options          []string
	VotingSystem     string
	Privacy          string
	Password         string
	Category         string
	Tags             []string
	ExpiresAt        *time.Time
	AllowGuestVoting bool
	ShowResults      string
}

type VoteRequest struct {
	Identity Identity
	Payload  VotePayload
	Password string
	// EmbedContext marks a vote attempt arriving from an embed or preview
	// surface; creators may not vote on their own polls from there.
	EmbedContext bool
}

// PollUpdate carries the fields an edit may change. Nil pointers leave the
// corresponding field untouched; a nil Options slice means no option change
// was requested.
type PollUpdate struct {
	Title            *string
	Description      *string
	Options          []Option
	VotingSystem     *string
	Privacy          *string
	Password         *string
	Category         *string
	Tags             []string
	ExpiresAt        *time.Time
	AllowGuestVoting *bool
	ShowResults      *string
}

// Response types

type VoteResult struct {
	Poll *Poll
	// DeviceToken is set when the admission controller minted a fresh token
	// for an anonymous voter; callers should hand it back to the client for
	// persistent reuse.
	DeviceToken string
}

// RedactedPoll is the outward projection of a poll: no password material,
// no raw ballots. When ResultsHidden is set the option counters and vote
// total are zeroed.
type RedactedPoll struct {
	ID               string     `json:"id"`
	Slug             string     `json:"slug"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	Options          []Option   `json:"options"`
	CreatorID        string     `json:"creator_id"`
	VotingSystem     string     `json:"voting_system"`
	Privacy          string     `json:"privacy"`
	Category         string     `json:"category,omitempty"`
	Tags             []string   `json:"tags,omitempty"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	AllowGuestVoting bool       `json:"allow_guest_voting"`
	ShowResults      string     `json:"show_results"`
	TotalVotes       int        `json:"total_votes"`
	IsEdited         bool       `json:"is_edited"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	ResultsHidden    bool       `json:"results_hidden"`
}

// Redact builds the outward projection. hideResults strips counters and the
// vote total, leaving option ids and text intact.
func (p *Poll) Redact(hideResults bool) *RedactedPoll {
	options := make([]Option, len(p.Options))
	copy(options, p.Options)
	total := p.TotalVotes
	if hideResults {
		for i := range options {
			options[i].Counter = 0
		}
		total = 0
	}

	return &RedactedPoll{
		ID:               p.ID,
		Slug:             p.Slug,
		Title:            p.Title,
		Description:      p.Description,
		Options:          options,
		CreatorID:        p.CreatorID,
		VotingSystem:     p.VotingSystem,
		Privacy:          p.Privacy,
		Category:         p.Category,
		Tags:             p.Tags,
		ExpiresAt:        p.ExpiresAt,
		AllowGuestVoting: p.AllowGuestVoting,
		ShowResults:      p.ShowResults,
		TotalVotes:       total,
		IsEdited:         p.IsEdited,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
		ResultsHidden:    hideResults,
	}
}

// Expired reports whether the poll's expiry instant has passed.
func (p *Poll) Expired(now time.Time) bool {
	return p.ExpiresAt != nil && now.After(*p.ExpiresAt)
}

// FindOption returns the option with the given id, or nil.
func (p *Poll) FindOption(optionID string) *Option {
	for i := range p.Options {
		if p.Options[i].ID == optionID {
			return &p.Options[i]
		}
	}
	return nil
}

// Tally types

// OptionResult is one option's derived standing. FirstRound is only set for
// ranked-choice polls, AverageScore and ScoredBy only for score-voting.
type OptionResult struct {
	OptionID     string  `json:"option_id"`
	Text         string  `json:"text"`
	Counter      int     `json:"counter"`
	Percentage   float64 `json:"percentage"`
	FirstRound   int     `json:"first_round,omitempty"`
	AverageScore float64 `json:"average_score,omitempty"`
	ScoredBy     int     `json:"scored_by,omitempty"`
}

type Results struct {
	PollID       string         `json:"poll_id"`
	VotingSystem string         `json:"voting_system"`
	TotalVotes   int            `json:"total_votes"`
	Options      []OptionResult `json:"options"`
	ComputedAt   time.Time      `json:"computed_at"`
}

// HistoryPoint is one sample of the cumulative per-option counters derived
// from ballot timestamps.
type HistoryPoint struct {
	Timestamp time.Time      `json:"timestamp"`
	Counts    map[string]int `json:"counts"`
	Total     int            `json:"total"`
}
