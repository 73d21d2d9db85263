package service

import (
    "context"
    "database/sql"
    "time"

    "github.com/iliyamo/event-commerce/internal/model"
    "github.com/iliyamo/event-commerce/internal/repository"
    "github.com/iliyamo/event-commerce/internal/utils"
)

// DownloadService mints and redeems download grants for purchased digital
// products. A grant proves that its holder passed the ownership check a
// few minutes ago; it is not itself proof of purchase. Ownership is
// therefore re-checked against the orders table on every redemption, so a
// refund issued after mint cuts off delivery even while the grant is
// still cryptographically valid.
type DownloadService struct {
    db       *sql.DB
    secret   string
    ttl      time.Duration
    products *repository.ProductRepo
    orders   *repository.OrderRepo
    logs     *repository.DownloadLogRepo
}

// NewDownloadService constructs a DownloadService. All dependencies must
// be non-nil and secret non-empty.
func NewDownloadService(db *sql.DB, secret string, ttl time.Duration, products *repository.ProductRepo, orders *repository.OrderRepo, logs *repository.DownloadLogRepo) *DownloadService {
    if db == nil || products == nil || orders == nil || logs == nil {
        panic("nil dependency passed to NewDownloadService")
    }
    if secret == "" {
        panic("empty download token secret")
    }
    return &DownloadService{db: db, secret: secret, ttl: ttl, products: products, orders: orders, logs: logs}
}

// MintGrant verifies that a completed order links the user to the product
// and returns a signed, short-lived download token for that scope.
// Returns repository.ErrNotPurchased when no such order exists.
func (s *DownloadService) MintGrant(ctx context.Context, userID, productID uint64) (string, time.Time, error) {
    orderID, err := s.orders.FindCompletedOrderID(ctx, userID, productID)
    if err != nil {
        return "", time.Time{}, err
    }
    token, exp := utils.MintDownloadToken(s.secret, productID, orderID, userID, s.ttl)
    return token, exp, nil
}

// AuthorizeDownload redeems a grant and returns the product's file URL
// for the caller to redirect to, along with the verified grant scope.
// The checks run in order: token signature/expiry, scope match against
// the authenticated user, ownership re-check, download count against the
// product's limit. Count, check and log insert share one transaction
// holding the order row lock, so two simultaneous redemptions at the
// limit boundary cannot both slip through. Only a delivery that passes
// every check appends a log row and counts toward the limit.
func (s *DownloadService) AuthorizeDownload(ctx context.Context, userID uint64, token, ip, userAgent string) (string, utils.DownloadGrant, error) {
    grant, err := utils.VerifyDownloadToken(s.secret, token, time.Now())
    if err != nil {
        return "", utils.DownloadGrant{}, err
    }
    if grant.UserID != userID {
        return "", grant, repository.ErrNotPurchased
    }
    product, err := s.products.GetByID(ctx, grant.ProductID)
    if err != nil {
        return "", grant, err
    }

    tx, err := s.db.BeginTx(ctx, nil)
    if err != nil {
        return "", grant, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    if err := s.orders.HasCompletedPurchaseTx(ctx, tx, grant.OrderID, userID, grant.ProductID); err != nil {
        return "", grant, err
    }
    used, err := s.logs.CountTx(ctx, tx, userID, grant.ProductID, grant.OrderID)
    if err != nil {
        return "", grant, err
    }
    if used >= product.DownloadLimit {
        return "", grant, repository.ErrDownloadLimitExceeded
    }
    entry := &model.DownloadLog{
        UserID:    userID,
        ProductID: grant.ProductID,
        OrderID:   grant.OrderID,
        IPAddress: ip,
        UserAgent: userAgent,
    }
    if err := s.logs.InsertTx(ctx, tx, entry); err != nil {
        return "", grant, err
    }
    if err := tx.Commit(); err != nil {
        return "", grant, err
    }
    committed = true
    return product.FileURL, grant, nil
}
