package database

import "errors"

// ErrDuplicateFeed is returned when a user registers a feed URL they
// already have.
var ErrDuplicateFeed = errors.New("feed is already registered")
