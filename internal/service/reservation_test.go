package service

import (
    "context"
    "database/sql"
    "errors"
    "regexp"
    "testing"
    "time"

    "github.com/DATA-DOG/go-sqlmock"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/event-commerce/internal/model"
    "github.com/iliyamo/event-commerce/internal/repository"
)

const (
    lockEventQ     = `SELECT id, organizer_id, title, description, starts_at, capacity, available_spots, price_cents, status, created_at, updated_at
               FROM events WHERE id = ? FOR UPDATE`
    hasActiveQ     = `SELECT COUNT(*) FROM bookings WHERE event_id = ? AND user_id = ? AND status <> 'CANCELLED'`
    insertBookingQ = `INSERT INTO bookings (event_id, user_id, attendees, status, total_price_cents) VALUES (?, ?, ?, ?, ?)`
    bookingTimesQ  = `SELECT created_at, updated_at FROM bookings WHERE id = ?`
    adjustSpotsQ   = `UPDATE events SET available_spots = available_spots + ? WHERE id = ?`
    getBookingQ    = `SELECT id, event_id, user_id, attendees, status, total_price_cents, created_at, updated_at
               FROM bookings WHERE id = ?`
    cancelBookingQ = `UPDATE bookings SET status = 'CANCELLED' WHERE id = ?`
)

var eventCols = []string{"id", "organizer_id", "title", "description", "starts_at", "capacity", "available_spots", "price_cents", "status", "created_at", "updated_at"}

var bookingCols = []string{"id", "event_id", "user_id", "attendees", "status", "total_price_cents", "created_at", "updated_at"}

func newEngine(t *testing.T) (*ReservationEngine, sqlmock.Sqlmock, func()) {
    t.Helper()
    db, mock, err := sqlmock.New()
    require.NoError(t, err)
    engine := NewReservationEngine(db, repository.NewEventRepo(db), repository.NewBookingRepo(db))
    return engine, mock, func() { db.Close() }
}

func eventRow(available uint32) *sqlmock.Rows {
    now := time.Now().UTC()
    return sqlmock.NewRows(eventCols).
        AddRow(10, 1, "Go Conference", "annual meetup", now.Add(48*time.Hour), 100, available, 2500, "SCHEDULED", now, now)
}

func TestReserveSucceedsAtCapacityBoundary(t *testing.T) {
    engine, mock, done := newEngine(t)
    defer done()
    now := time.Now().UTC()

    mock.ExpectBegin()
    // Exactly 2 spots remain and 2 are requested; the booking must go through.
    mock.ExpectQuery(regexp.QuoteMeta(lockEventQ)).WithArgs(10).WillReturnRows(eventRow(2))
    mock.ExpectQuery(regexp.QuoteMeta(hasActiveQ)).WithArgs(10, 55).
        WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
    mock.ExpectExec(regexp.QuoteMeta(insertBookingQ)).
        WithArgs(10, 55, 2, model.BookingStatusConfirmed, 5000).
        WillReturnResult(sqlmock.NewResult(7, 1))
    mock.ExpectQuery(regexp.QuoteMeta(bookingTimesQ)).WithArgs(7).
        WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
    mock.ExpectExec(regexp.QuoteMeta(adjustSpotsQ)).WithArgs(-2, 10).
        WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectCommit()

    booking, err := engine.Reserve(context.Background(), 10, 55, 2)
    require.NoError(t, err)
    assert.Equal(t, uint64(7), booking.ID)
    assert.Equal(t, model.BookingStatusConfirmed, booking.Status)
    assert.Equal(t, uint32(5000), booking.TotalPriceCents)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveRejectsInsufficientCapacity(t *testing.T) {
    engine, mock, done := newEngine(t)
    defer done()

    mock.ExpectBegin()
    // Only 1 spot remains; a request for 2 must fail before any write.
    mock.ExpectQuery(regexp.QuoteMeta(lockEventQ)).WithArgs(10).WillReturnRows(eventRow(1))
    mock.ExpectRollback()

    _, err := engine.Reserve(context.Background(), 10, 55, 2)
    assert.ErrorIs(t, err, repository.ErrInsufficientCapacity)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveRejectsDuplicateBooking(t *testing.T) {
    engine, mock, done := newEngine(t)
    defer done()

    mock.ExpectBegin()
    mock.ExpectQuery(regexp.QuoteMeta(lockEventQ)).WithArgs(10).WillReturnRows(eventRow(50))
    mock.ExpectQuery(regexp.QuoteMeta(hasActiveQ)).WithArgs(10, 55).
        WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
    mock.ExpectRollback()

    _, err := engine.Reserve(context.Background(), 10, 55, 1)
    assert.ErrorIs(t, err, repository.ErrDuplicateBooking)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveRejectsClosedEvent(t *testing.T) {
    engine, mock, done := newEngine(t)
    defer done()
    now := time.Now().UTC()

    mock.ExpectBegin()
    mock.ExpectQuery(regexp.QuoteMeta(lockEventQ)).WithArgs(10).
        WillReturnRows(sqlmock.NewRows(eventCols).
            AddRow(10, 1, "Go Conference", "annual meetup", now, 100, 100, 2500, "CANCELLED", now, now))
    mock.ExpectRollback()

    _, err := engine.Reserve(context.Background(), 10, 55, 1)
    assert.ErrorIs(t, err, repository.ErrConflict)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveRejectsZeroAttendees(t *testing.T) {
    engine, mock, done := newEngine(t)
    defer done()

    _, err := engine.Reserve(context.Background(), 10, 55, 0)
    assert.ErrorIs(t, err, ErrInvalidAttendees)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveRollsBackWhenSpotUpdateFails(t *testing.T) {
    engine, mock, done := newEngine(t)
    defer done()
    now := time.Now().UTC()

    // The schema backstop fires on the relative update; the booking insert
    // that already happened inside the transaction must be rolled back.
    mock.ExpectBegin()
    mock.ExpectQuery(regexp.QuoteMeta(lockEventQ)).WithArgs(10).WillReturnRows(eventRow(5))
    mock.ExpectQuery(regexp.QuoteMeta(hasActiveQ)).WithArgs(10, 55).
        WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
    mock.ExpectExec(regexp.QuoteMeta(insertBookingQ)).
        WithArgs(10, 55, 3, model.BookingStatusConfirmed, 7500).
        WillReturnResult(sqlmock.NewResult(8, 1))
    mock.ExpectQuery(regexp.QuoteMeta(bookingTimesQ)).WithArgs(8).
        WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
    mock.ExpectExec(regexp.QuoteMeta(adjustSpotsQ)).WithArgs(-3, 10).
        WillReturnError(errors.New("Error 3819: Check constraint 'chk_spots_within_capacity' is violated."))
    mock.ExpectRollback()

    _, err := engine.Reserve(context.Background(), 10, 55, 3)
    assert.ErrorIs(t, err, repository.ErrInsufficientCapacity)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveSurfacesLockTimeout(t *testing.T) {
    engine, mock, done := newEngine(t)
    defer done()

    // A contended event row that could not be locked within
    // innodb_lock_wait_timeout rolls back cleanly and the caller gets the
    // retryable sentinel.
    mock.ExpectBegin()
    mock.ExpectQuery(regexp.QuoteMeta(lockEventQ)).WithArgs(10).
        WillReturnError(errors.New("Error 1205: Lock wait timeout exceeded; try restarting transaction"))
    mock.ExpectRollback()

    _, err := engine.Reserve(context.Background(), 10, 55, 1)
    assert.ErrorIs(t, err, repository.ErrLockTimeout)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveRejectsOverflowingTotal(t *testing.T) {
    engine, mock, done := newEngine(t)
    defer done()
    now := time.Now().UTC()

    // 50,000,000 cents per attendee times 100 attendees overflows the
    // uint32 total; the engine must refuse before writing anything.
    mock.ExpectBegin()
    mock.ExpectQuery(regexp.QuoteMeta(lockEventQ)).WithArgs(10).
        WillReturnRows(sqlmock.NewRows(eventCols).
            AddRow(10, 1, "Gala Dinner", "exclusive", now.Add(48*time.Hour), 200, 200, 50000000, "SCHEDULED", now, now))
    mock.ExpectQuery(regexp.QuoteMeta(hasActiveQ)).WithArgs(10, 55).
        WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
    mock.ExpectRollback()

    _, err := engine.Reserve(context.Background(), 10, 55, 100)
    assert.ErrorIs(t, err, ErrBookingTooLarge)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelRestoresSpots(t *testing.T) {
    engine, mock, done := newEngine(t)
    defer done()
    now := time.Now().UTC()
    confirmed := sqlmock.NewRows(bookingCols).
        AddRow(7, 10, 55, 2, model.BookingStatusConfirmed, 5000, now, now)
    confirmedAgain := sqlmock.NewRows(bookingCols).
        AddRow(7, 10, 55, 2, model.BookingStatusConfirmed, 5000, now, now)

    mock.ExpectBegin()
    mock.ExpectQuery(regexp.QuoteMeta(getBookingQ)).WithArgs(7).WillReturnRows(confirmed)
    mock.ExpectQuery(regexp.QuoteMeta(lockEventQ)).WithArgs(10).WillReturnRows(eventRow(0))
    mock.ExpectQuery(regexp.QuoteMeta(getBookingQ)).WithArgs(7).WillReturnRows(confirmedAgain)
    mock.ExpectExec(regexp.QuoteMeta(cancelBookingQ)).WithArgs(7).
        WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectExec(regexp.QuoteMeta(adjustSpotsQ)).WithArgs(2, 10).
        WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectCommit()

    err := engine.Cancel(context.Background(), 7, 55)
    require.NoError(t, err)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelTwiceIsIdempotent(t *testing.T) {
    engine, mock, done := newEngine(t)
    defer done()
    now := time.Now().UTC()
    cancelled := sqlmock.NewRows(bookingCols).
        AddRow(7, 10, 55, 2, model.BookingStatusCancelled, 5000, now, now)
    cancelledAgain := sqlmock.NewRows(bookingCols).
        AddRow(7, 10, 55, 2, model.BookingStatusCancelled, 5000, now, now)

    // Already cancelled: no status write, no spot credit, still success.
    mock.ExpectBegin()
    mock.ExpectQuery(regexp.QuoteMeta(getBookingQ)).WithArgs(7).WillReturnRows(cancelled)
    mock.ExpectQuery(regexp.QuoteMeta(lockEventQ)).WithArgs(10).WillReturnRows(eventRow(2))
    mock.ExpectQuery(regexp.QuoteMeta(getBookingQ)).WithArgs(7).WillReturnRows(cancelledAgain)
    mock.ExpectCommit()

    err := engine.Cancel(context.Background(), 7, 55)
    require.NoError(t, err)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelForeignBookingForbidden(t *testing.T) {
    engine, mock, done := newEngine(t)
    defer done()
    now := time.Now().UTC()

    mock.ExpectBegin()
    mock.ExpectQuery(regexp.QuoteMeta(getBookingQ)).WithArgs(7).
        WillReturnRows(sqlmock.NewRows(bookingCols).
            AddRow(7, 10, 55, 2, model.BookingStatusConfirmed, 5000, now, now))
    mock.ExpectRollback()

    err := engine.Cancel(context.Background(), 7, 999)
    assert.ErrorIs(t, err, repository.ErrForbidden)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelMissingBooking(t *testing.T) {
    engine, mock, done := newEngine(t)
    defer done()

    mock.ExpectBegin()
    mock.ExpectQuery(regexp.QuoteMeta(getBookingQ)).WithArgs(7).WillReturnError(sql.ErrNoRows)
    mock.ExpectRollback()

    err := engine.Cancel(context.Background(), 7, 55)
    assert.ErrorIs(t, err, sql.ErrNoRows)
    assert.NoError(t, mock.ExpectationsWereMet())
}
