// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package polls

import (
	"context"
	"log/slog"
	"time"

	"pollcore/apperr"
	"pollcore/auth"
	"pollcore/events"
	"pollcore/models"
)

// Update edits a poll under the snapshot-then-apply discipline: the
// pre-edit state is appended to the version log before any field changes.
// Once ballots exist only title, description, category, tags, and expiry
// may change; a call touching a frozen field is rejected whole, but the
// snapshot it triggered is still persisted as an audit record.
func (s *Service) Update(ctx context.Context, pollID, editorID string, upd models.PollUpdate) (*models.Poll, error) {
	if err := validateUpdate(upd); err != nil {
		return nil, err
	}

	poll, err := s.mutate(ctx, pollID, func(p *models.Poll) error {
		if p.CreatorID != editorID {
			return apperr.Forbidden("not authorized to edit this poll")
		}

		p.Versions = append(p.Versions, snapshotOf(p, editorID, time.Now().UTC()))
		p.IsEdited = true

		if len(p.Ballots) > 0 {
			if field := frozenFieldChange(p, upd); field != "" {
				return commitAnyway{apperr.Validation("%s cannot change after voting has started", field)}
			}
		}

		applyUpdate(p, upd, s.cfg.IdentitySalt)
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("poll updated", "poll_id", poll.ID, "editor_id", editorID, "versions", len(poll.Versions))
	s.publishPoll(ctx, poll, events.ActionUpdate)
	return poll, nil
}

// Rollback restores a prior version. The current state is appended first,
// so a rollback is itself reversible. The has-ballots gating mirrors
// Update: with ballots recorded only title, description, and expiry are
// restored from the target; options and access settings stay as they are.
func (s *Service) Rollback(ctx context.Context, pollID, editorID string, versionIndex int) (*models.Poll, error) {
	poll, err := s.mutate(ctx, pollID, func(p *models.Poll) error {
		if p.CreatorID != editorID {
			return apperr.Forbidden("not authorized to edit this poll")
		}
		if versionIndex < 0 || versionIndex >= len(p.Versions) {
			return apperr.NotFound("version %d not found", versionIndex)
		}

		target := p.Versions[versionIndex]
		p.Versions = append(p.Versions, snapshotOf(p, editorID, time.Now().UTC()))
		p.IsEdited = true

		p.Title = target.Title
		p.Description = target.Description
		p.ExpiresAt = target.ExpiresAt
		if len(p.Ballots) == 0 {
			p.Options = restoreOptions(p.Options, target.Options)
			p.Privacy = target.Privacy
			p.AllowGuestVoting = target.AllowGuestVoting
			p.ShowResults = target.ShowResults
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("poll rolled back", "poll_id", poll.ID, "editor_id", editorID, "version_index", versionIndex)
	s.publishPoll(ctx, poll, events.ActionRollback)
	return poll, nil
}

// Versions returns the poll's version log, creator only.
func (s *Service) Versions(ctx context.Context, pollID, requesterID string) ([]models.Version, error) {
	poll, _, err := s.load(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if poll.CreatorID != requesterID {
		return nil, apperr.Forbidden("not authorized to view poll versions")
	}
	out := make([]models.Version, len(poll.Versions))
	copy(out, poll.Versions)
	return out, nil
}

// snapshotOf captures the mutable surface of a poll, options and counters
// included, as one version entry.
func snapshotOf(p *models.Poll, editorID string, now time.Time) models.Version {
	opts := make([]models.Option, len(p.Options))
	copy(opts, p.Options)
	return models.Version{
		Title:            p.Title,
		Description:      p.Description,
		Options:          opts,
		Privacy:          p.Privacy,
		ExpiresAt:        p.ExpiresAt,
		AllowGuestVoting: p.AllowGuestVoting,
		ShowResults:      p.ShowResults,
		EditorID:         editorID,
		VersionDate:      now,
	}
}

func validateUpdate(upd models.PollUpdate) error {
	if upd.Title != nil {
		if *upd.Title == "" {
			return apperr.Validation("please provide a poll title")
		}
		if len(*upd.Title) > models.MaxTitleLength {
			return apperr.Validation("title cannot be more than %d characters", models.MaxTitleLength)
		}
	}
	if upd.Description != nil && len(*upd.Description) > models.MaxDescriptionLength {
		return apperr.Validation("description cannot be more than %d characters", models.MaxDescriptionLength)
	}
	if upd.Options != nil {
		if len(upd.Options) < 2 {
			return apperr.Validation("a poll needs at least two options")
		}
		seen := make(map[string]bool, len(upd.Options))
		for _, opt := range upd.Options {
			if opt.Text == "" {
				return apperr.Validation("option text cannot be empty")
			}
			if opt.ID != "" && seen[opt.ID] {
				return apperr.Validation("option %s supplied more than once", opt.ID)
			}
			seen[opt.ID] = true
		}
	}
	if upd.VotingSystem != nil && !validVotingSystem(*upd.VotingSystem) {
		return apperr.Validation("unknown voting system: %s", *upd.VotingSystem)
	}
	if upd.Privacy != nil {
		if !validPrivacy(*upd.Privacy) {
			return apperr.Validation("unknown privacy setting: %s", *upd.Privacy)
		}
		if *upd.Privacy == models.PrivacyPasswordProtected && (upd.Password == nil || *upd.Password == "") {
			return apperr.Validation("a password is required for password-protected polls")
		}
	}
	if upd.ShowResults != nil && !validShowResults(*upd.ShowResults) {
		return apperr.Validation("unknown result visibility: %s", *upd.ShowResults)
	}
	return nil
}

// frozenFieldChange names the first frozen field an update would alter on
// a poll that already has ballots, or "" when the update stays inside the
// editable subset. Re-supplying the current value does not count as a
// change.
func frozenFieldChange(p *models.Poll, upd models.PollUpdate) string {
	if upd.Options != nil && !sameOptionSet(p.Options, upd.Options) {
		return "options"
	}
	if upd.VotingSystem != nil && *upd.VotingSystem != p.VotingSystem {
		return "voting system"
	}
	if upd.Privacy != nil && *upd.Privacy != p.Privacy {
		return "privacy"
	}
	if upd.Password != nil {
		return "password"
	}
	if upd.AllowGuestVoting != nil && *upd.AllowGuestVoting != p.AllowGuestVoting {
		return "guest voting"
	}
	if upd.ShowResults != nil && *upd.ShowResults != p.ShowResults {
		return "result visibility"
	}
	return ""
}

func sameOptionSet(current, proposed []models.Option) bool {
	if len(current) != len(proposed) {
		return false
	}
	for i := range current {
		if current[i].ID != proposed[i].ID || current[i].Text != proposed[i].Text {
			return false
		}
	}
	return true
}

func applyUpdate(p *models.Poll, upd models.PollUpdate, salt string) {
	if upd.Title != nil {
		p.Title = *upd.Title
	}
	if upd.Description != nil {
		p.Description = *upd.Description
	}
	if upd.Category != nil {
		p.Category = *upd.Category
	}
	if upd.Tags != nil {
		p.Tags = upd.Tags
	}
	if upd.ExpiresAt != nil {
		p.ExpiresAt = upd.ExpiresAt
	}
	if upd.Options != nil {
		p.Options = restoreOptions(p.Options, upd.Options)
	}
	if upd.VotingSystem != nil {
		p.VotingSystem = *upd.VotingSystem
	}
	if upd.Privacy != nil {
		p.Privacy = *upd.Privacy
		if *upd.Privacy != models.PrivacyPasswordProtected {
			p.PasswordHash = ""
		}
	}
	if upd.Password != nil && *upd.Password != "" {
		p.PasswordHash = auth.HashPassword(*upd.Password, salt)
	}
	if upd.AllowGuestVoting != nil {
		p.AllowGuestVoting = *upd.AllowGuestVoting
	}
	if upd.ShowResults != nil {
		p.ShowResults = *upd.ShowResults
	}
}

// restoreOptions installs a proposed option list, keeping the live counter
// of any option whose id survives and minting ids for brand-new entries.
func restoreOptions(current, proposed []models.Option) []models.Option {
	counters := make(map[string]int, len(current))
	for _, opt := range current {
		counters[opt.ID] = opt.Counter
	}
	out := make([]models.Option, len(proposed))
	for i, opt := range proposed {
		if opt.ID == "" {
			id, err := auth.GenerateID(8)
			if err == nil {
				opt.ID = id
			}
		}
		opt.Counter = counters[opt.ID]
		out[i] = opt
	}
	return out
}
