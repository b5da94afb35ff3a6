// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package notify defines the notification collaborator contract. Delivery
// is owned by an external service; the core only hands it fire-and-forget
// messages and swallows its failures.
package notify

import (
	"context"
	"log/slog"
)

// Notification kinds
const (
	KindSystem   = "system"
	KindPollVote = "poll_vote"
)

// Notifier is called after a mutation commits. Implementations must not
// block the request path for long; errors are logged by the caller and
// never propagated.
type Notifier interface {
	Notify(ctx context.Context, recipientID, kind, title, message, pollID string) error
}

// Nop discards every notification.
type Nop struct{}

func (Nop) Notify(context.Context, string, string, string, string, string) error {
	return nil
}

// Log writes notifications to the process log. Stands in for the external
// delivery service in development.
type Log struct{}

func (Log) Notify(_ context.Context, recipientID, kind, title, message, pollID string) error {
	slog.Info("notification",
		"recipient", recipientID,
		"kind", kind,
		"title", title,
		"message", message,
		"poll_id", pollID,
	)
	return nil
}
