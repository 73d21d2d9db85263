package service

import (
    "context"
    "regexp"
    "testing"
    "time"

    "github.com/DATA-DOG/go-sqlmock"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/event-commerce/internal/repository"
    "github.com/iliyamo/event-commerce/internal/utils"
)

const (
    getProductQ = `SELECT id, organizer_id, title, sku, description, file_url, price_cents, download_limit, created_at, updated_at
               FROM products WHERE id = ?`
    hasPurchaseQ = `SELECT o.id
               FROM orders o
               JOIN order_items oi ON oi.order_id = o.id
               WHERE o.id = ? AND o.user_id = ? AND oi.product_id = ? AND o.status = 'COMPLETED'
               FOR UPDATE`
    findOrderQ = `SELECT o.id
               FROM orders o
               JOIN order_items oi ON oi.order_id = o.id
               WHERE o.user_id = ? AND oi.product_id = ? AND o.status = 'COMPLETED'
               ORDER BY o.created_at DESC
               LIMIT 1`
    countLogsQ  = `SELECT COUNT(*) FROM download_logs WHERE user_id = ? AND product_id = ? AND order_id = ?`
    insertLogQ  = `INSERT INTO download_logs (public_id, user_id, product_id, order_id, ip_address, user_agent) VALUES (?, ?, ?, ?, ?, ?)`
    grantSecret = "unit-test-secret"
)

var productCols = []string{"id", "organizer_id", "title", "sku", "description", "file_url", "price_cents", "download_limit", "created_at", "updated_at"}

func newDownloadService(t *testing.T) (*DownloadService, sqlmock.Sqlmock, func()) {
    t.Helper()
    db, mock, err := sqlmock.New()
    require.NoError(t, err)
    svc := NewDownloadService(db, grantSecret, 15*time.Minute,
        repository.NewProductRepo(db), repository.NewOrderRepo(db), repository.NewDownloadLogRepo(db))
    return svc, mock, func() { db.Close() }
}

func productRow(downloadLimit uint32) *sqlmock.Rows {
    now := time.Now().UTC()
    return sqlmock.NewRows(productCols).
        AddRow(42, 1, "Go Patterns eBook", "EBOOK-GO-01", "advanced patterns", "https://files.example.com/ebook.pdf", 1900, downloadLimit, now, now)
}

func TestMintGrantRequiresCompletedOrder(t *testing.T) {
    svc, mock, done := newDownloadService(t)
    defer done()

    mock.ExpectQuery(regexp.QuoteMeta(findOrderQ)).WithArgs(99, 42).
        WillReturnRows(sqlmock.NewRows([]string{"id"}))

    _, _, err := svc.MintGrant(context.Background(), 99, 42)
    assert.ErrorIs(t, err, repository.ErrNotPurchased)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMintGrantProducesVerifiableToken(t *testing.T) {
    svc, mock, done := newDownloadService(t)
    defer done()

    mock.ExpectQuery(regexp.QuoteMeta(findOrderQ)).WithArgs(99, 42).
        WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

    token, exp, err := svc.MintGrant(context.Background(), 99, 42)
    require.NoError(t, err)
    require.True(t, exp.After(time.Now()))

    grant, err := utils.VerifyDownloadToken(grantSecret, token, time.Now())
    require.NoError(t, err)
    assert.Equal(t, uint64(42), grant.ProductID)
    assert.Equal(t, uint64(7), grant.OrderID)
    assert.Equal(t, uint64(99), grant.UserID)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthorizeDownloadDelivers(t *testing.T) {
    svc, mock, done := newDownloadService(t)
    defer done()
    token, _ := utils.MintDownloadToken(grantSecret, 42, 7, 99, 15*time.Minute)

    mock.ExpectQuery(regexp.QuoteMeta(getProductQ)).WithArgs(42).WillReturnRows(productRow(3))
    mock.ExpectBegin()
    mock.ExpectQuery(regexp.QuoteMeta(hasPurchaseQ)).WithArgs(7, 99, 42).
        WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
    // Two of three downloads already used; the last one goes through and
    // the delivery is logged in the same transaction.
    mock.ExpectQuery(regexp.QuoteMeta(countLogsQ)).WithArgs(99, 42, 7).
        WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
    mock.ExpectExec(regexp.QuoteMeta(insertLogQ)).
        WithArgs(sqlmock.AnyArg(), 99, 42, 7, "203.0.113.9", "curl/8.0").
        WillReturnResult(sqlmock.NewResult(1, 1))
    mock.ExpectCommit()

    fileURL, grant, err := svc.AuthorizeDownload(context.Background(), 99, token, "203.0.113.9", "curl/8.0")
    require.NoError(t, err)
    assert.Equal(t, "https://files.example.com/ebook.pdf", fileURL)
    assert.Equal(t, uint64(7), grant.OrderID)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthorizeDownloadStopsAtLimit(t *testing.T) {
    svc, mock, done := newDownloadService(t)
    defer done()
    token, _ := utils.MintDownloadToken(grantSecret, 42, 7, 99, 15*time.Minute)

    mock.ExpectQuery(regexp.QuoteMeta(getProductQ)).WithArgs(42).WillReturnRows(productRow(3))
    mock.ExpectBegin()
    mock.ExpectQuery(regexp.QuoteMeta(hasPurchaseQ)).WithArgs(7, 99, 42).
        WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
    // All three downloads used; no log row may be appended.
    mock.ExpectQuery(regexp.QuoteMeta(countLogsQ)).WithArgs(99, 42, 7).
        WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
    mock.ExpectRollback()

    _, _, err := svc.AuthorizeDownload(context.Background(), 99, token, "203.0.113.9", "curl/8.0")
    assert.ErrorIs(t, err, repository.ErrDownloadLimitExceeded)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthorizeDownloadRefundedOrderCutsOff(t *testing.T) {
    svc, mock, done := newDownloadService(t)
    defer done()
    // The grant was minted while the order was COMPLETED; the refund that
    // landed since makes the ownership re-check come up empty.
    token, _ := utils.MintDownloadToken(grantSecret, 42, 7, 99, 15*time.Minute)

    mock.ExpectQuery(regexp.QuoteMeta(getProductQ)).WithArgs(42).WillReturnRows(productRow(3))
    mock.ExpectBegin()
    mock.ExpectQuery(regexp.QuoteMeta(hasPurchaseQ)).WithArgs(7, 99, 42).
        WillReturnRows(sqlmock.NewRows([]string{"id"}))
    mock.ExpectRollback()

    _, _, err := svc.AuthorizeDownload(context.Background(), 99, token, "203.0.113.9", "curl/8.0")
    assert.ErrorIs(t, err, repository.ErrNotPurchased)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthorizeDownloadRejectsForeignGrant(t *testing.T) {
    svc, mock, done := newDownloadService(t)
    defer done()
    // Token minted for user 99 presented by user 100. No database access
    // happens; the scope check fails first.
    token, _ := utils.MintDownloadToken(grantSecret, 42, 7, 99, 15*time.Minute)

    _, _, err := svc.AuthorizeDownload(context.Background(), 100, token, "203.0.113.9", "curl/8.0")
    assert.ErrorIs(t, err, repository.ErrNotPurchased)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthorizeDownloadRejectsExpiredToken(t *testing.T) {
    svc, mock, done := newDownloadService(t)
    defer done()
    token, _ := utils.MintDownloadToken(grantSecret, 42, 7, 99, -time.Minute)

    _, _, err := svc.AuthorizeDownload(context.Background(), 99, token, "203.0.113.9", "curl/8.0")
    assert.ErrorIs(t, err, utils.ErrTokenExpired)
    assert.NoError(t, mock.ExpectationsWereMet())
}
