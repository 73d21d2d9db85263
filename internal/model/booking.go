package model

import "time"

// Booking statuses.  Bookings are never hard-deleted; cancellation flips
// the status and restores the consumed spots to the event.
const (
    BookingStatusPending   = "PENDING"
    BookingStatusConfirmed = "CONFIRMED"
    BookingStatusCancelled = "CANCELLED"
)

// Booking records a user's reservation of attendees for an event.
//
// Fields:
//  ID              – primary key identifier.
//  EventID         – event being booked.
//  UserID          – user who made the booking.
//  Attendees       – spots consumed from the event's capacity (>= 1).
//  Status          – state of the booking (PENDING, CONFIRMED, CANCELLED).
//  TotalPriceCents – total price in cents for all attendees.
//  CreatedAt       – creation timestamp.
//  UpdatedAt       – last update timestamp.
type Booking struct {
    ID              uint64    // bookings.id
    EventID         uint64    // bookings.event_id
    UserID          uint64    // bookings.user_id
    Attendees       uint32    // bookings.attendees
    Status          string    // bookings.status
    TotalPriceCents uint32    // bookings.total_price_cents
    CreatedAt       time.Time // bookings.created_at
    UpdatedAt       time.Time // bookings.updated_at
}
