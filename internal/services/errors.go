// Package services defines the business logic for listings, reports, and
// conversations. This file centralizes common service-level error values so
// that they can be consistently returned by service methods and checked by
// callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler/controller layer.
package services

import "errors"

// Listing-related errors.
var (
	// ErrNoBookSelected is returned when a create-listing request carries no
	// book candidate (or a candidate with a blank title). Validated before
	// any store call.
	ErrNoBookSelected = errors.New("no book selected")

	// ErrTitleTooLong is returned when a candidate's title exceeds the
	// maximum configured rune length.
	ErrTitleTooLong = errors.New("book title too long")

	// ErrListingNotFound indicates that the requested listing does not exist
	// under the given book.
	ErrListingNotFound = errors.New("listing not found")
)

// Conversation-related errors.
var (
	// ErrMissingParticipant is returned when either side of a conversation
	// has no user identifier.
	ErrMissingParticipant = errors.New("conversation participant missing")

	// ErrSelfConversation is returned when a user attempts to start a
	// conversation with themselves.
	ErrSelfConversation = errors.New("cannot start a conversation with yourself")
)
