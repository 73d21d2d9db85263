package repository

import (
    "context"
    "database/sql"
    "regexp"
    "testing"
    "time"

    "github.com/DATA-DOG/go-sqlmock"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

const (
    validateQ  = `SELECT user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash = ? LIMIT 1`
    revokeOneQ = `UPDATE refresh_tokens SET revoked_at = UTC_TIMESTAMP() WHERE token_hash = ? AND revoked_at IS NULL`
)

var tokenCols = []string{"user_id", "expires_at", "revoked_at"}

func newTokenRepo(t *testing.T) (*TokenRepo, sqlmock.Sqlmock, func()) {
    t.Helper()
    db, mock, err := sqlmock.New()
    require.NoError(t, err)
    return NewTokenRepo(db), mock, func() { db.Close() }
}

func TestValidateRefreshAcceptsLiveToken(t *testing.T) {
    repo, mock, done := newTokenRepo(t)
    defer done()

    mock.ExpectQuery(regexp.QuoteMeta(validateQ)).WithArgs("abc123").
        WillReturnRows(sqlmock.NewRows(tokenCols).
            AddRow(55, time.Now().UTC().Add(24*time.Hour), nil))

    uid, err := repo.ValidateRefresh(context.Background(), "abc123")
    require.NoError(t, err)
    assert.Equal(t, uint64(55), uid)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateRefreshRejectsRevokedToken(t *testing.T) {
    repo, mock, done := newTokenRepo(t)
    defer done()

    mock.ExpectQuery(regexp.QuoteMeta(validateQ)).WithArgs("abc123").
        WillReturnRows(sqlmock.NewRows(tokenCols).
            AddRow(55, time.Now().UTC().Add(24*time.Hour), time.Now().UTC().Add(-time.Hour)))

    _, err := repo.ValidateRefresh(context.Background(), "abc123")
    assert.ErrorIs(t, err, sql.ErrNoRows)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateRefreshRejectsExpiredToken(t *testing.T) {
    repo, mock, done := newTokenRepo(t)
    defer done()

    mock.ExpectQuery(regexp.QuoteMeta(validateQ)).WithArgs("abc123").
        WillReturnRows(sqlmock.NewRows(tokenCols).
            AddRow(55, time.Now().UTC().Add(-time.Minute), nil))

    _, err := repo.ValidateRefresh(context.Background(), "abc123")
    assert.ErrorIs(t, err, sql.ErrNoRows)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRevokeByHashWritesUTCServerTime(t *testing.T) {
    repo, mock, done := newTokenRepo(t)
    defer done()

    // The revocation timestamp comes from UTC_TIMESTAMP(), not from the
    // server's local clock, so it stays comparable with expires_at.
    mock.ExpectExec(regexp.QuoteMeta(revokeOneQ)).WithArgs("abc123").
        WillReturnResult(sqlmock.NewResult(0, 1))

    err := repo.RevokeByHash(context.Background(), "abc123")
    require.NoError(t, err)
    assert.NoError(t, mock.ExpectationsWereMet())
}
