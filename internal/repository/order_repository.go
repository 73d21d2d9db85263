package repository

import (
    "context"
    "database/sql"

    "github.com/google/uuid"

    "github.com/iliyamo/event-commerce/internal/model"
)

// OrderRepo provides persistence for orders and order items. Orders are
// the purchase oracle the download flow consults: only a COMPLETED order
// linking user and product authorizes a delivery. The download flow only
// ever reads orders; mutation is confined to checkout and refund.
type OrderRepo struct {
    db *sql.DB
}

// NewOrderRepo returns a new OrderRepo bound to the given database.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions.
func (r *OrderRepo) DB() *sql.DB { return r.db }

// CreateCompleted inserts a COMPLETED order with a single item for the
// given product. Payment capture happens upstream; by the time this is
// called the purchase is final. Both inserts run in one transaction.
func (r *OrderRepo) CreateCompleted(ctx context.Context, userID uint64, productID uint64, priceCents uint32) (*model.Order, error) {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return nil, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    o := &model.Order{
        PublicID:   uuid.NewString(),
        UserID:     userID,
        Status:     model.OrderStatusCompleted,
        TotalCents: priceCents,
    }
    res, err := tx.ExecContext(ctx,
        `INSERT INTO orders (public_id, user_id, status, total_cents) VALUES (?, ?, ?, ?)`,
        o.PublicID, o.UserID, o.Status, o.TotalCents)
    if err != nil {
        return nil, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return nil, err
    }
    o.ID = uint64(id)
    if _, err := tx.ExecContext(ctx,
        `INSERT INTO order_items (order_id, product_id, price_cents) VALUES (?, ?, ?)`,
        o.ID, productID, priceCents); err != nil {
        return nil, err
    }
    if err := tx.Commit(); err != nil {
        return nil, err
    }
    committed = true
    return o, nil
}

// HasCompletedPurchaseTx reports whether the order is COMPLETED, belongs
// to the user and contains the product. It locks the order row so that
// the subsequent download count and log insert see a stable order state
// and concurrent deliveries against the same order serialize. Returns
// ErrNotPurchased when any of the three conditions fails.
func (r *OrderRepo) HasCompletedPurchaseTx(ctx context.Context, tx *sql.Tx, orderID, userID, productID uint64) error {
    const q = `SELECT o.id
               FROM orders o
               JOIN order_items oi ON oi.order_id = o.id
               WHERE o.id = ? AND o.user_id = ? AND oi.product_id = ? AND o.status = 'COMPLETED'
               FOR UPDATE`
    var id uint64
    err := tx.QueryRowContext(ctx, q, orderID, userID, productID).Scan(&id)
    if err == sql.ErrNoRows {
        return ErrNotPurchased
    }
    return mapLockErr(err)
}

// FindCompletedOrderID returns the ID of a COMPLETED order linking the
// user to the product, or ErrNotPurchased. Used at grant-mint time.
func (r *OrderRepo) FindCompletedOrderID(ctx context.Context, userID, productID uint64) (uint64, error) {
    const q = `SELECT o.id
               FROM orders o
               JOIN order_items oi ON oi.order_id = o.id
               WHERE o.user_id = ? AND oi.product_id = ? AND o.status = 'COMPLETED'
               ORDER BY o.created_at DESC
               LIMIT 1`
    var id uint64
    err := r.db.QueryRowContext(ctx, q, userID, productID).Scan(&id)
    if err == sql.ErrNoRows {
        return 0, ErrNotPurchased
    }
    if err != nil {
        return 0, err
    }
    return id, nil
}

// Refund flips a COMPLETED order to REFUNDED after verifying ownership.
// Returns sql.ErrNoRows when the order does not exist, ErrForbidden when
// it belongs to a different user and ErrConflict when it is not in a
// refundable state.
func (r *OrderRepo) Refund(ctx context.Context, orderID, userID uint64) error {
    var ownerID uint64
    var status string
    err := r.db.QueryRowContext(ctx, `SELECT user_id, status FROM orders WHERE id = ?`, orderID).Scan(&ownerID, &status)
    if err != nil {
        return err
    }
    if ownerID != userID {
        return ErrForbidden
    }
    if status != model.OrderStatusCompleted {
        return ErrConflict
    }
    // The read above is unlocked; the status predicate on the UPDATE is
    // what serializes concurrent refunds. A lost race updates zero rows.
    _, err = r.db.ExecContext(ctx, `UPDATE orders SET status = 'REFUNDED' WHERE id = ? AND status = 'COMPLETED'`, orderID)
    return err
}

// ListByUser returns the user's orders with their items' product IDs,
// newest first.
func (r *OrderRepo) ListByUser(ctx context.Context, userID uint64) ([]OrderDetail, error) {
    const q = `SELECT o.id, o.public_id, o.status, o.total_cents, oi.product_id, p.title, o.created_at
               FROM orders o
               JOIN order_items oi ON oi.order_id = o.id
               JOIN products p ON p.id = oi.product_id
               WHERE o.user_id = ?
               ORDER BY o.created_at DESC`
    rows, err := r.db.QueryContext(ctx, q, userID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    details := make([]OrderDetail, 0)
    for rows.Next() {
        var d OrderDetail
        if err := rows.Scan(&d.ID, &d.PublicID, &d.Status, &d.TotalCents, &d.ProductID, &d.ProductTitle, &d.CreatedAt); err != nil {
            return nil, err
        }
        details = append(details, d)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return details, nil
}

// OrderDetail flattens an order and its single item for listing.
type OrderDetail struct {
    ID           uint64 `json:"id"`
    PublicID     string `json:"public_id"`
    Status       string `json:"status"`
    TotalCents   uint32 `json:"total_cents"`
    ProductID    uint64 `json:"product_id"`
    ProductTitle string `json:"product_title"`
    CreatedAt    string `json:"created_at"`
}
