// Package feed provides use cases for managing polled RSS/Atom feeds.
// It implements business logic for registering, updating, pausing, and
// deleting feeds, delegating persistence to repository.FeedRepository.
package feed

import "errors"

// Sentinel errors for feed use case operations.
var (
	// ErrFeedNotFound indicates that the requested feed was not found.
	ErrFeedNotFound = errors.New("feed not found")

	// ErrDuplicateFeed indicates that a feed with the same URL already exists.
	ErrDuplicateFeed = errors.New("feed with this URL already exists")
)
