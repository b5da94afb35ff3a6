// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package testutil provides shared test helpers: a throwaway sqlite
// store per test, fixture builders, and capturing fakes for the fan-out
// publisher and notifier collaborators.
package testutil
