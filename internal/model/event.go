package model

import "time"

// Event represents a bookable event with a finite capacity.  The pair of
// counters capacity/available_spots is the single point of contention for
// concurrent bookings: available_spots is only ever mutated inside the
// booking transaction, relative to its stored value, while the event row
// is locked.  The schema additionally enforces
// available_spots BETWEEN 0 AND capacity.
//
// Fields:
//  ID             – primary key identifier.
//  OrganizerID    – user who owns and manages the event.
//  Title          – display title.
//  Description    – free-form description.
//  StartsAt       – when the event begins.
//  Capacity       – total bookable units, set at creation.
//  AvailableSpots – remaining bookable units.
//  PriceCents     – price per attendee in cents.
//  Status         – current state (SCHEDULED, CANCELLED, FINISHED).
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type Event struct {
    ID             uint64    // events.id
    OrganizerID    uint64    // events.organizer_id
    Title          string    // events.title
    Description    string    // events.description
    StartsAt       time.Time // events.starts_at
    Capacity       uint32    // events.capacity
    AvailableSpots uint32    // events.available_spots
    PriceCents     uint32    // events.price_cents
    Status         string    // events.status
    CreatedAt      time.Time // events.created_at
    UpdatedAt      time.Time // events.updated_at
}
