// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"pollcore/cliparse"
)

func TestChannelNames(t *testing.T) {
	if got := PollChannel("abc"); got != "poll:abc" {
		t.Errorf("PollChannel() = %q, want poll:abc", got)
	}
	if got := UserChannel("u1"); got != "user:u1" {
		t.Errorf("UserChannel() = %q, want user:u1", got)
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	env := Envelope{
		Event:      EventPollUpdated,
		Payload:    map[string]any{"poll_id": "p1"},
		OccurredAt: time.Now().UTC(),
	}
	data, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded Envelope
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if decoded.Event != EventPollUpdated {
		t.Errorf("Event = %q, want %q", decoded.Event, EventPollUpdated)
	}
}

func TestNopPublisher(t *testing.T) {
	if err := (Nop{}).Publish(context.Background(), "poll:x", EventPollUpdated, nil); err != nil {
		t.Errorf("Nop.Publish() error = %v, want nil", err)
	}
}

func TestNewFromConfig(t *testing.T) {
	ctx := context.Background()

	pub, err := NewFromConfig(ctx, cliparse.Config{Publisher: cliparse.PublisherNone})
	if err != nil {
		t.Fatalf("NewFromConfig(none) error = %v", err)
	}
	if _, ok := pub.(Nop); !ok {
		t.Errorf("NewFromConfig(none) = %T, want Nop", pub)
	}

	if _, err := NewFromConfig(ctx, cliparse.Config{Publisher: "smoke-signals"}); err == nil {
		t.Error("NewFromConfig() should reject an unknown publisher")
	}
}
