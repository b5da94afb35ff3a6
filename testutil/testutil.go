// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"pollcore/cliparse"
	"pollcore/models"
	"pollcore/store"
)

// SetupTestStore opens a throwaway sqlite-backed store with the full
// schema, rooted in the test's temp directory
func SetupTestStore(t *testing.T) *store.SQLStore {
	t.Helper()

	cfg := GetTestConfig()
	cfg.DatabaseURL = filepath.Join(t.TempDir(), "polls.db")

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("Failed to open test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	return st
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		DatabaseType: "sqlite",
		IdentitySalt: "test-identity-salt",
	}
}

// CreateRequest builds a valid single-choice create request with two
// options; tweak fields on the result as needed
func CreateRequest(creatorID string) models.CreatePollRequest {
	return models.CreatePollRequest{
		CreatorID:        creatorID,
		Title:            "Cats or Dogs",
		Options:          []string{"Cat", "Dog"},
		VotingSystem:     models.SystemSingleChoice,
		Privacy:          models.PrivacyPublic,
		AllowGuestVoting: true,
		ShowResults:      models.ShowAlways,
	}
}

// GuestIdentity returns a guest voter identity distinguished only by ip
func GuestIdentity(ip string) models.Identity {
	return models.Identity{IP: ip}
}

// CapturedEvent is one recorded fan-out publish
type CapturedEvent struct {
	Channel string
	Event   string
	Payload any
}

// CapturePublisher records every publish for assertions. Set Err to make
// each call fail after recording.
type CapturePublisher struct {
	mu     sync.Mutex
	Events []CapturedEvent
	Err    error
}

func (c *CapturePublisher) Publish(_ context.Context, channel, event string, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Events = append(c.Events, CapturedEvent{Channel: channel, Event: event, Payload: payload})
	return c.Err
}

// Count returns how many events were published
func (c *CapturePublisher) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Events)
}

// Last returns the most recent event, or a zero value if none
func (c *CapturePublisher) Last() CapturedEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.Events) == 0 {
		return CapturedEvent{}
	}
	return c.Events[len(c.Events)-1]
}

// OnChannel returns the events published to one channel
func (c *CapturePublisher) OnChannel(channel string) []CapturedEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []CapturedEvent
	for _, e := range c.Events {
		if e.Channel == channel {
			out = append(out, e)
		}
	}
	return out
}

// CapturedNotification is one recorded notify call
type CapturedNotification struct {
	RecipientID string
	Kind        string
	Title       string
	Message     string
	PollID      string
}

// CaptureNotifier records every notification for assertions. Set Err to
// make each call fail after recording.
type CaptureNotifier struct {
	mu            sync.Mutex
	Notifications []CapturedNotification
	Err           error
}

func (c *CaptureNotifier) Notify(_ context.Context, recipientID, kind, title, message, pollID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Notifications = append(c.Notifications, CapturedNotification{
		RecipientID: recipientID,
		Kind:        kind,
		Title:       title,
		Message:     message,
		PollID:      pollID,
	})
	return c.Err
}

// Count returns how many notifications were recorded
func (c *CaptureNotifier) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Notifications)
}

// Last returns the most recent notification, or a zero value if none
func (c *CaptureNotifier) Last() CapturedNotification {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.Notifications) == 0 {
		return CapturedNotification{}
	}
	return c.Notifications[len(c.Notifications)-1]
}
