package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/google/uuid"

    "github.com/iliyamo/event-commerce/internal/model"
)

// DownloadLogRepo provides access to the append-only download_logs
// table. Rows are inserted once per authorized delivery and never
// updated or deleted; the count scoped to (user, product, order) is the
// number of downloads already used against the product's limit.
type DownloadLogRepo struct {
    db *sql.DB
}

// NewDownloadLogRepo returns a new DownloadLogRepo bound to the given database.
func NewDownloadLogRepo(db *sql.DB) *DownloadLogRepo { return &DownloadLogRepo{db: db} }

// CountTx returns the number of deliveries already logged for the
// (user, product, order) scope. Runs inside the caller's transaction so
// the count-then-insert pair is serialized by the order row lock the
// caller already holds.
func (r *DownloadLogRepo) CountTx(ctx context.Context, tx *sql.Tx, userID, productID, orderID uint64) (uint32, error) {
    const q = `SELECT COUNT(*) FROM download_logs WHERE user_id = ? AND product_id = ? AND order_id = ?`
    var n uint32
    if err := tx.QueryRowContext(ctx, q, userID, productID, orderID).Scan(&n); err != nil {
        return 0, err
    }
    return n, nil
}

// InsertTx appends a delivery record within the caller's transaction and
// populates the generated ID and public ID on the provided record.
func (r *DownloadLogRepo) InsertTx(ctx context.Context, tx *sql.Tx, l *model.DownloadLog) error {
    l.PublicID = uuid.NewString()
    const q = `INSERT INTO download_logs (public_id, user_id, product_id, order_id, ip_address, user_agent) VALUES (?, ?, ?, ?, ?, ?)`
    res, err := tx.ExecContext(ctx, q, l.PublicID, l.UserID, l.ProductID, l.OrderID, l.IPAddress, l.UserAgent)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    l.ID = uint64(id)
    return nil
}

// ListByUser returns the user's delivery history, newest first.
func (r *DownloadLogRepo) ListByUser(ctx context.Context, userID uint64) ([]model.DownloadLog, error) {
    const q = `SELECT id, public_id, user_id, product_id, order_id, ip_address, user_agent, accessed_at
               FROM download_logs WHERE user_id = ? ORDER BY accessed_at DESC`
    rows, err := r.db.QueryContext(ctx, q, userID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    logs := make([]model.DownloadLog, 0)
    for rows.Next() {
        var l model.DownloadLog
        var accessedAt time.Time
        if err := rows.Scan(&l.ID, &l.PublicID, &l.UserID, &l.ProductID, &l.OrderID, &l.IPAddress, &l.UserAgent, &accessedAt); err != nil {
            return nil, err
        }
        l.AccessedAt = accessedAt.UTC()
        logs = append(logs, l)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return logs, nil
}
