package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/iliyamo/event-commerce/internal/model"
)

// BookingRepo provides persistence for bookings. Creation and
// cancellation only ever run inside the booking transaction, so the
// mutating methods are *Tx variants; the caller owns commit/rollback.
// All timestamps are stored in UTC.
type BookingRepo struct {
    db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// CreateTx inserts a new booking within the scope of an existing
// transaction and populates the generated ID and timestamps on the
// provided record. A duplicate key on the active-booking unique index
// is mapped to ErrDuplicateBooking: the schema backstop caught a
// concurrent insert the application-level existence check missed.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
    const q = `INSERT INTO bookings (event_id, user_id, attendees, status, total_price_cents) VALUES (?, ?, ?, ?, ?)`
    res, err := tx.ExecContext(ctx, q, b.EventID, b.UserID, b.Attendees, b.Status, b.TotalPriceCents)
    if err != nil {
        if isDuplicateKey(err) {
            return ErrDuplicateBooking
        }
        return mapLockErr(err)
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    b.ID = uint64(id)
    const sel = `SELECT created_at, updated_at FROM bookings WHERE id = ?`
    return tx.QueryRowContext(ctx, sel, b.ID).Scan(&b.CreatedAt, &b.UpdatedAt)
}

// HasActiveTx reports whether the user already holds a non-cancelled
// booking for the event. Runs under the caller's transaction so the
// answer is consistent with the event row lock already held.
func (r *BookingRepo) HasActiveTx(ctx context.Context, tx *sql.Tx, eventID, userID uint64) (bool, error) {
    const q = `SELECT COUNT(*) FROM bookings WHERE event_id = ? AND user_id = ? AND status <> 'CANCELLED'`
    var n int
    if err := tx.QueryRowContext(ctx, q, eventID, userID).Scan(&n); err != nil {
        return false, err
    }
    return n > 0, nil
}

// GetTx loads a booking by ID inside the caller's transaction. Returns
// sql.ErrNoRows when it does not exist.
func (r *BookingRepo) GetTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Booking, error) {
    const q = `SELECT id, event_id, user_id, attendees, status, total_price_cents, created_at, updated_at
               FROM bookings WHERE id = ?`
    var b model.Booking
    err := tx.QueryRowContext(ctx, q, id).Scan(
        &b.ID, &b.EventID, &b.UserID, &b.Attendees, &b.Status, &b.TotalPriceCents,
        &b.CreatedAt, &b.UpdatedAt,
    )
    if err != nil {
        return nil, err
    }
    return &b, nil
}

// MarkCancelledTx flips the booking to CANCELLED inside the caller's
// transaction. The row is kept; bookings are never hard-deleted.
func (r *BookingRepo) MarkCancelledTx(ctx context.Context, tx *sql.Tx, id uint64) error {
    const q = `UPDATE bookings SET status = 'CANCELLED' WHERE id = ?`
    _, err := tx.ExecContext(ctx, q, id)
    return mapLockErr(err)
}

// BookingDetail pairs a booking with display fields of its event.
// It is returned by ListByUser for the customer's bookings page.
type BookingDetail struct {
    ID              uint64 `json:"id"`
    EventID         uint64 `json:"event_id"`
    EventTitle      string `json:"event_title"`
    StartsAt        string `json:"starts_at"`
    Attendees       uint32 `json:"attendees"`
    Status          string `json:"status"`
    TotalPriceCents uint32 `json:"total_price_cents"`
}

// ListByUser returns all bookings for the given user with event details,
// newest first. When no bookings exist, an empty slice is returned.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]BookingDetail, error) {
    const q = `SELECT b.id, b.event_id, e.title, e.starts_at, b.attendees, b.status, b.total_price_cents
               FROM bookings b
               JOIN events e ON e.id = b.event_id
               WHERE b.user_id = ?
               ORDER BY b.created_at DESC`
    rows, err := r.db.QueryContext(ctx, q, userID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    details := make([]BookingDetail, 0)
    for rows.Next() {
        var d BookingDetail
        var startsAt time.Time
        if err := rows.Scan(&d.ID, &d.EventID, &d.EventTitle, &startsAt, &d.Attendees, &d.Status, &d.TotalPriceCents); err != nil {
            return nil, err
        }
        d.StartsAt = startsAt.UTC().Format(time.RFC3339)
        details = append(details, d)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return details, nil
}

// ListByEventForOrganizer returns all bookings for an event after
// verifying the caller owns it. Returns sql.ErrNoRows when the event
// does not exist and ErrForbidden when it belongs to someone else.
func (r *BookingRepo) ListByEventForOrganizer(ctx context.Context, eventID, organizerID uint64) ([]model.Booking, error) {
    const checkQ = `SELECT organizer_id FROM events WHERE id = ?`
    var actualOrganizerID uint64
    if err := r.db.QueryRowContext(ctx, checkQ, eventID).Scan(&actualOrganizerID); err != nil {
        return nil, err
    }
    if actualOrganizerID != organizerID {
        return nil, ErrForbidden
    }
    const q = `SELECT id, event_id, user_id, attendees, status, total_price_cents, created_at, updated_at
               FROM bookings WHERE event_id = ? ORDER BY created_at DESC`
    rows, err := r.db.QueryContext(ctx, q, eventID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    bookings := make([]model.Booking, 0)
    for rows.Next() {
        var b model.Booking
        if err := rows.Scan(&b.ID, &b.EventID, &b.UserID, &b.Attendees, &b.Status, &b.TotalPriceCents, &b.CreatedAt, &b.UpdatedAt); err != nil {
            return nil, err
        }
        bookings = append(bookings, b)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return bookings, nil
}
