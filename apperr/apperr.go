// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package apperr defines the error taxonomy for expected, recoverable
// outcomes. Every error here carries a stable machine-readable kind plus a
// human-readable message. Storage faults and other unexpected failures are
// plain errors and never carry a Kind.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is a stable machine-readable error category.
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindAlreadyVoted Kind = "already_voted"
	KindExpired      Kind = "expired"
	KindValidation   Kind = "validation"
)

// Error is an expected outcome returned synchronously to the caller.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// New builds a taxonomy error with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, format, args...)
}

func Unauthorized(format string, args ...any) *Error {
	return New(KindUnauthorized, format, args...)
}

func Forbidden(format string, args ...any) *Error {
	return New(KindForbidden, format, args...)
}

func AlreadyVoted(format string, args ...any) *Error {
	return New(KindAlreadyVoted, format, args...)
}

func Expired(format string, args ...any) *Error {
	return New(KindExpired, format, args...)
}

func Validation(format string, args ...any) *Error {
	return New(KindValidation, format, args...)
}

// KindOf returns the taxonomy kind carried by err, or the empty string when
// err is not an expected outcome (including nil).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
