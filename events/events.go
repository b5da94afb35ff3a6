// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package events carries poll state changes to live subscribers. Publishing
// is best effort: the core issues it after a mutation is durably committed,
// and a failed publish is logged by the caller and never surfaced.
package events

import (
	"context"
	"time"
)

// Event names
const (
	EventPollUpdated     = "poll-updated"
	EventNewNotification = "new-notification"
)

// Actions carried by poll-updated events
const (
	ActionVote     = "vote"
	ActionUpdate   = "update"
	ActionRollback = "rollback"
	ActionDelete   = "delete"
)

// Publisher is the fan-out collaborator contract: at-most-one attempt, no
// return value consumed beyond logging.
type Publisher interface {
	Publish(ctx context.Context, channel, event string, payload any) error
}

// Envelope is the wire shape subscribers receive on a channel.
type Envelope struct {
	Event      string    `json:"event"`
	Payload    any       `json:"payload,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// PollChannel names the channel live viewers of one poll subscribe to.
func PollChannel(pollID string) string {
	return "poll:" + pollID
}

// UserChannel names one user's private notification channel.
func UserChannel(userID string) string {
	return "user:" + userID
}

// Nop discards every event. Used when no fan-out backend is configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, string, any) error {
	return nil
}
