package repository

import "errors"

// ErrNotFound is returned when a lookup of a single entity, such as
// GetConversation, finds nothing. It hides the driver's own error
// (sql.ErrNoRows, redis.Nil) from the layers above.
var ErrNotFound = errors.New("repository: not found")
