package service

import (
    "context"
    "database/sql"
    "errors"
    "math"

    "github.com/iliyamo/event-commerce/internal/model"
    "github.com/iliyamo/event-commerce/internal/repository"
)

// ErrInvalidAttendees is returned when a booking requests fewer than one
// attendee. Callers validate input before reaching the engine; this guard
// exists so the invariant holds for every path.
var ErrInvalidAttendees = errors.New("attendees must be at least 1")

// ErrBookingTooLarge is returned when attendees times the per-attendee
// price does not fit the total_price_cents column.
var ErrBookingTooLarge = errors.New("booking total exceeds representable price")

// ReservationEngine serializes concurrent bookings against a shared
// finite-capacity event. The whole protocol lives inside one database
// transaction per call: lock the event row, decide under the lock, write,
// commit. Two callers targeting the same event queue up on the row lock;
// callers targeting different events never block each other. The spots
// counter is only ever moved by column-relative updates, so no stale
// snapshot can leak into a write.
type ReservationEngine struct {
    db       *sql.DB
    events   *repository.EventRepo
    bookings *repository.BookingRepo
}

// NewReservationEngine constructs a ReservationEngine. All dependencies
// must be non-nil.
func NewReservationEngine(db *sql.DB, events *repository.EventRepo, bookings *repository.BookingRepo) *ReservationEngine {
    if db == nil || events == nil || bookings == nil {
        panic("nil dependency passed to NewReservationEngine")
    }
    return &ReservationEngine{db: db, events: events, bookings: bookings}
}

// Reserve books attendees spots on an event for a user. On success the
// created booking is returned with status CONFIRMED. Failure modes:
// repository.ErrInsufficientCapacity when fewer spots remain than
// requested, repository.ErrDuplicateBooking when the user already holds a
// non-cancelled booking for the event, repository.ErrConflict when the
// event is not open for booking, repository.ErrLockTimeout when the row
// lock could not be acquired in time, ErrBookingTooLarge when the total
// price would overflow its column. Every failure rolls the whole
// transaction back; no partial state is ever visible to other
// transactions.
func (e *ReservationEngine) Reserve(ctx context.Context, eventID, userID uint64, attendees uint32) (*model.Booking, error) {
    if attendees < 1 {
        return nil, ErrInvalidAttendees
    }
    tx, err := e.db.BeginTx(ctx, nil)
    if err != nil {
        return nil, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    // The locked read is the only capacity value that may be trusted;
    // anything read before this point is stale by definition.
    ev, err := e.events.GetForUpdateTx(ctx, tx, eventID)
    if err != nil {
        return nil, err
    }
    if ev.Status != "SCHEDULED" {
        return nil, repository.ErrConflict
    }
    if ev.AvailableSpots < attendees {
        return nil, repository.ErrInsufficientCapacity
    }
    exists, err := e.bookings.HasActiveTx(ctx, tx, eventID, userID)
    if err != nil {
        return nil, err
    }
    if exists {
        return nil, repository.ErrDuplicateBooking
    }

    // The multiplication runs in uint64 so an oversized total is caught
    // instead of wrapping the uint32 column value.
    total := uint64(ev.PriceCents) * uint64(attendees)
    if total > math.MaxUint32 {
        return nil, ErrBookingTooLarge
    }
    booking := &model.Booking{
        EventID:         eventID,
        UserID:          userID,
        Attendees:       attendees,
        Status:          model.BookingStatusConfirmed,
        TotalPriceCents: uint32(total),
    }
    if err := e.bookings.CreateTx(ctx, tx, booking); err != nil {
        return nil, err
    }
    if err := e.events.AdjustSpotsTx(ctx, tx, eventID, -int32(attendees)); err != nil {
        return nil, err
    }
    if err := tx.Commit(); err != nil {
        return nil, err
    }
    committed = true
    return booking, nil
}

// Cancel flips a booking to CANCELLED and restores its attendees to the
// event's available spots. Cancelling an already-cancelled booking is an
// idempotent no-op: the spots are credited back exactly once. Returns
// sql.ErrNoRows when the booking does not exist and
// repository.ErrForbidden when it belongs to a different user.
func (e *ReservationEngine) Cancel(ctx context.Context, bookingID, userID uint64) error {
    tx, err := e.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    b, err := e.bookings.GetTx(ctx, tx, bookingID)
    if err != nil {
        return err
    }
    if b.UserID != userID {
        return repository.ErrForbidden
    }
    // Take the event lock, then re-read the booking under it. Every flow
    // that touches this booking's status holds the same event lock, so
    // the second read cannot race with a concurrent cancel.
    if _, err := e.events.GetForUpdateTx(ctx, tx, b.EventID); err != nil {
        return err
    }
    b, err = e.bookings.GetTx(ctx, tx, bookingID)
    if err != nil {
        return err
    }
    if b.Status == model.BookingStatusCancelled {
        if err := tx.Commit(); err != nil {
            return err
        }
        committed = true
        return nil
    }
    if err := e.bookings.MarkCancelledTx(ctx, tx, bookingID); err != nil {
        return err
    }
    if err := e.events.AdjustSpotsTx(ctx, tx, b.EventID, int32(b.Attendees)); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}
