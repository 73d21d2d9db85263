// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios and map
// them to HTTP responses. Capacity and duplicate errors are also produced
// when the corresponding schema constraints fire, so the same semantic
// condition surfaces identically regardless of which line of defense
// caught it.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a delete or update cannot be
// performed because of conflicting state. Handlers should
// translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrInsufficientCapacity is returned when a booking requests more
// attendees than the event has spots remaining. Retrying without new
// information will not succeed.
var ErrInsufficientCapacity = errors.New("insufficient capacity")

// ErrDuplicateBooking is returned when the user already holds a
// non-cancelled booking for the event.
var ErrDuplicateBooking = errors.New("duplicate booking")

// ErrLockTimeout is returned when the event row lock could not be
// acquired in time. The operation rolled back cleanly and may be
// retried by the caller with backoff.
var ErrLockTimeout = errors.New("lock wait timeout")

// ErrNotPurchased is returned when no completed order links the user
// to the requested product.
var ErrNotPurchased = errors.New("not purchased")

// ErrDownloadLimitExceeded is returned when the download count for
// (user, product, order) has reached the product's limit.
var ErrDownloadLimitExceeded = errors.New("download limit exceeded")
