// Package services defines the business logic for view counting and reader
// comments. This file centralizes service-level error values so that they can
// be returned by service methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import "errors"

var (
	// ErrMissingSlug is returned before any store access when the article
	// identifier is empty.
	ErrMissingSlug = errors.New("missing slug")

	// ErrInvalidEmail is returned when a comment email fails the shape check.
	ErrInvalidEmail = errors.New("invalid email")

	// ErrCommentTooShort is returned when comment content has fewer than
	// minCommentRunes characters after sanitizing.
	ErrCommentTooShort = errors.New("comment too short")

	// ErrRateLimited is returned when a (email, origin) pair has already hit
	// the comment quota inside the current window.
	ErrRateLimited = errors.New("too many comments, try later")

	// ErrCommentNotFound indicates that a referenced comment does not exist.
	ErrCommentNotFound = errors.New("comment not found")
)
