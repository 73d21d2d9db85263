package repository

import (
    "context"
    "database/sql"
    "strings"

    "github.com/iliyamo/event-commerce/internal/model"
)

// EventRepo provides persistence for events. Capacity mutations go
// exclusively through the *Tx methods so that they always happen under
// the row lock taken by GetForUpdateTx; everything else is plain reads
// and organizer CRUD. All timestamps are stored in UTC.
type EventRepo struct {
    db *sql.DB
}

// NewEventRepo returns a new EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions.
func (r *EventRepo) DB() *sql.DB { return r.db }

// Create inserts a new event. available_spots starts equal to capacity.
func (r *EventRepo) Create(ctx context.Context, ev *model.Event) error {
    const q = `INSERT INTO events (organizer_id, title, description, starts_at, capacity, available_spots, price_cents, status)
               VALUES (?, ?, ?, ?, ?, ?, ?, 'SCHEDULED')`
    res, err := r.db.ExecContext(ctx, q,
        ev.OrganizerID, ev.Title, ev.Description, ev.StartsAt.UTC().Format("2006-01-02 15:04:05"),
        ev.Capacity, ev.Capacity, ev.PriceCents)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    ev.ID = uint64(id)
    ev.AvailableSpots = ev.Capacity
    ev.Status = "SCHEDULED"
    return nil
}

// GetByID returns a single event or sql.ErrNoRows.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
    const q = `SELECT id, organizer_id, title, description, starts_at, capacity, available_spots, price_cents, status, created_at, updated_at
               FROM events WHERE id = ?`
    var ev model.Event
    err := r.db.QueryRowContext(ctx, q, id).Scan(
        &ev.ID, &ev.OrganizerID, &ev.Title, &ev.Description, &ev.StartsAt,
        &ev.Capacity, &ev.AvailableSpots, &ev.PriceCents, &ev.Status,
        &ev.CreatedAt, &ev.UpdatedAt,
    )
    if err != nil {
        return nil, err
    }
    return &ev, nil
}

// GetForUpdateTx reads the event row under an exclusive lock. Every
// concurrent booking or cancellation for the same event blocks here
// until the holding transaction commits or rolls back; events lock
// independently of each other. The values read before taking the lock
// must be discarded; only this read is trustworthy for capacity
// decisions. Lock wait timeouts are mapped to ErrLockTimeout.
func (r *EventRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Event, error) {
    const q = `SELECT id, organizer_id, title, description, starts_at, capacity, available_spots, price_cents, status, created_at, updated_at
               FROM events WHERE id = ? FOR UPDATE`
    var ev model.Event
    err := tx.QueryRowContext(ctx, q, id).Scan(
        &ev.ID, &ev.OrganizerID, &ev.Title, &ev.Description, &ev.StartsAt,
        &ev.Capacity, &ev.AvailableSpots, &ev.PriceCents, &ev.Status,
        &ev.CreatedAt, &ev.UpdatedAt,
    )
    if err != nil {
        return nil, mapLockErr(err)
    }
    return &ev, nil
}

// AdjustSpotsTx applies a relative delta to available_spots inside the
// caller's transaction. The new value is computed entirely by the
// storage engine from the stored column value, never from a snapshot
// held in Go. Negative deltas consume spots, positive deltas restore
// them. The schema's CHECK constraint rejects any update that would
// leave the column outside [0, capacity]; that violation is mapped to
// ErrInsufficientCapacity.
func (r *EventRepo) AdjustSpotsTx(ctx context.Context, tx *sql.Tx, eventID uint64, delta int32) error {
    const q = `UPDATE events SET available_spots = available_spots + ? WHERE id = ?`
    _, err := tx.ExecContext(ctx, q, delta, eventID)
    if err != nil {
        if isCheckViolation(err) {
            return ErrInsufficientCapacity
        }
        return mapLockErr(err)
    }
    return nil
}

// ListUpcoming returns scheduled events that have not started yet,
// soonest first. Used by the public catalog.
func (r *EventRepo) ListUpcoming(ctx context.Context) ([]model.Event, error) {
    const q = `SELECT id, organizer_id, title, description, starts_at, capacity, available_spots, price_cents, status, created_at, updated_at
               FROM events
               WHERE status = 'SCHEDULED' AND starts_at > UTC_TIMESTAMP()
               ORDER BY starts_at ASC`
    rows, err := r.db.QueryContext(ctx, q)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    events := make([]model.Event, 0)
    for rows.Next() {
        var ev model.Event
        if err := rows.Scan(
            &ev.ID, &ev.OrganizerID, &ev.Title, &ev.Description, &ev.StartsAt,
            &ev.Capacity, &ev.AvailableSpots, &ev.PriceCents, &ev.Status,
            &ev.CreatedAt, &ev.UpdatedAt,
        ); err != nil {
            return nil, err
        }
        events = append(events, ev)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return events, nil
}

// UpdateForOrganizer updates mutable event fields after verifying
// ownership. Capacity edits also rebase available_spots by the same
// delta so spots already consumed by bookings stay consumed. Returns
// ErrForbidden when the event belongs to a different organizer and
// sql.ErrNoRows when it does not exist.
func (r *EventRepo) UpdateForOrganizer(ctx context.Context, eventID, organizerID uint64, title, description string, startsAt string, capacity, priceCents uint32) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    ev, err := r.GetForUpdateTx(ctx, tx, eventID)
    if err != nil {
        return err
    }
    if ev.OrganizerID != organizerID {
        return ErrForbidden
    }
    // Rebase remaining spots relative to the stored value; reject edits
    // that would cut capacity below what is already booked.
    delta := int64(capacity) - int64(ev.Capacity)
    if delta < 0 && int64(ev.AvailableSpots)+delta < 0 {
        return ErrConflict
    }
    const q = `UPDATE events
               SET title = ?, description = ?, starts_at = ?, capacity = ?,
                   available_spots = available_spots + ?, price_cents = ?
               WHERE id = ?`
    if _, err := tx.ExecContext(ctx, q, title, description, startsAt, capacity, delta, priceCents, eventID); err != nil {
        if isCheckViolation(err) {
            return ErrConflict
        }
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// isCheckViolation reports whether err is a MySQL CHECK constraint
// violation (3819) or an unsigned out-of-range result (1690). Both fire
// for the same semantic condition: the update would leave
// available_spots outside [0, capacity].
func isCheckViolation(err error) bool {
    if err == nil {
        return false
    }
    return strings.Contains(err.Error(), "3819") || strings.Contains(err.Error(), "1690")
}

// isDuplicateKey reports whether err is a MySQL duplicate key error (1062).
func isDuplicateKey(err error) bool {
    return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}

// mapLockErr converts a MySQL lock wait timeout (error 1205) into
// ErrLockTimeout and passes every other error through unchanged.
func mapLockErr(err error) error {
    if err != nil && strings.Contains(err.Error(), "1205") {
        return ErrLockTimeout
    }
    return err
}
