// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"strings"
	"testing"
)

func TestGenerateID(t *testing.T) {
	tests := []struct {
		name    string
		byteLen int
		wantLen int // hex encoded length = byteLen * 2
	}{
		{"8 bytes", 8, 16},
		{"16 bytes", 16, 32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := GenerateID(tt.byteLen)
			if err != nil {
				t.Fatalf("GenerateID() error = %v", err)
			}
			if len(id) != tt.wantLen {
				t.Errorf("GenerateID() length = %d, want %d", len(id), tt.wantLen)
			}
		})
	}

	id1, _ := GenerateID(16)
	id2, _ := GenerateID(16)
	if id1 == id2 {
		t.Error("GenerateID() produced duplicate IDs (extremely unlikely)")
	}
}

func TestGenerateDeviceToken(t *testing.T) {
	tok, err := GenerateDeviceToken()
	if err != nil {
		t.Fatalf("GenerateDeviceToken() error = %v", err)
	}
	if tok == "" {
		t.Fatal("GenerateDeviceToken() returned empty string")
	}
	if strings.ContainsAny(tok, "+/=") {
		t.Errorf("GenerateDeviceToken() = %q, want url-safe base64 without padding", tok)
	}

	tok2, _ := GenerateDeviceToken()
	if tok == tok2 {
		t.Error("GenerateDeviceToken() produced duplicate tokens")
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple", "Cats or Dogs", "cats-or-dogs"},
		{"punctuation collapsed", "What's for lunch??", "what-s-for-lunch"},
		{"leading and trailing noise", "  ...Best Editor...  ", "best-editor"},
		{"already clean", "plain", "plain"},
		{"all noise", "!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slugify(tt.input); got != tt.want {
				t.Errorf("Slugify(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestGenerateSlug(t *testing.T) {
	slug, err := GenerateSlug("abc123", "Cats or Dogs")
	if err != nil {
		t.Fatalf("GenerateSlug() error = %v", err)
	}
	if !strings.HasPrefix(slug, "abc123-cats-or-dogs-") {
		t.Errorf("GenerateSlug() = %q, want prefix %q", slug, "abc123-cats-or-dogs-")
	}

	// Random suffix keeps same-title polls apart
	slug2, _ := GenerateSlug("abc123", "Cats or Dogs")
	if slug == slug2 {
		t.Error("GenerateSlug() produced identical slugs for two calls")
	}
}

func TestHashIP(t *testing.T) {
	h := HashIP("1.2.3.4", "salt")
	if h == "" {
		t.Fatal("HashIP() returned empty string for non-empty ip")
	}
	if h != HashIP("1.2.3.4", "salt") {
		t.Error("HashIP() is not deterministic")
	}
	if h == HashIP("1.2.3.5", "salt") {
		t.Error("HashIP() produced same hash for different ips")
	}
	if h == HashIP("1.2.3.4", "other-salt") {
		t.Error("HashIP() produced same hash for different salts")
	}
	if HashIP("", "salt") != "" {
		t.Error("HashIP() should return empty string for empty ip")
	}
	if strings.Contains(h, "1.2.3.4") {
		t.Error("HashIP() leaked the raw address")
	}
}

func TestVerifyPassword(t *testing.T) {
	digest := HashPassword("hunter2", "salt")

	if !VerifyPassword("hunter2", "salt", digest) {
		t.Error("VerifyPassword() rejected the correct password")
	}
	if VerifyPassword("hunter3", "salt", digest) {
		t.Error("VerifyPassword() accepted a wrong password")
	}
	if VerifyPassword("hunter2", "other-salt", digest) {
		t.Error("VerifyPassword() accepted the right password under a wrong salt")
	}
	if VerifyPassword("", "salt", digest) {
		t.Error("VerifyPassword() accepted an empty password")
	}
}
