// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides token generation and hashing utilities.

# Device Tokens

Device tokens are random 24-byte (192-bit) secrets identifying an
anonymous voter's device:

	token, err := auth.GenerateDeviceToken()

Tokens are URL-safe base64 encoded without padding. They act as a
deduplication marker, so they always come from a cryptographically
secure source.

# Slugs

Poll slugs combine the poll id, a slugified title, and a short random
base62 suffix:

	slug, err := auth.GenerateSlug(pollID, "Cats or Dogs")
	// => "<pollID>-cats-or-dogs-x7Qk"

The suffix keeps polls with identical titles apart; a rare collision is
caught by the store's unique constraint and retried.

# Hashing

Voter addresses are never stored raw. HashIP produces a truncated salted
HMAC good enough for deduplication but useless for recovery. Poll
passwords are stored as full salted HMAC digests and compared in
constant time via VerifyPassword.
*/
package auth
