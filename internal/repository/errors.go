// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers and tools to distinguish between failure scenarios without
// string matching. ErrNotFound covers both genuinely absent rows and
// rows owned by another user, so ownership mismatches do not leak
// resource existence.
package repository

import "errors"

// ErrNotFound is returned when a referenced task, step, log or
// suggestion does not exist or is not visible to the caller. Handlers
// translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned by user creation when the email address
// is already registered. Handlers translate this into HTTP 409.
var ErrEmailExists = errors.New("email already exists")

// ErrInvalidTransition is returned when a task status update would
// move backwards or leave a terminal state. Handlers translate this
// into HTTP 400.
var ErrInvalidTransition = errors.New("invalid status transition")
