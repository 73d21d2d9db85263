package model

import "time"

// DownloadLog is an append-only record of a successful download delivery.
// Rows are created once per authorized delivery and never mutated or
// deleted; counting rows scoped to (user, product, order) yields the
// downloads used so far against the product's limit.
//
// Fields:
//  ID         – primary key identifier.
//  PublicID   – UUID exposed in audit output.
//  UserID     – user who downloaded.
//  ProductID  – product delivered.
//  OrderID    – order that authorized the delivery.
//  IPAddress  – client address at delivery time.
//  UserAgent  – client user agent at delivery time.
//  AccessedAt – delivery timestamp.
type DownloadLog struct {
    ID         uint64    // download_logs.id
    PublicID   string    // download_logs.public_id
    UserID     uint64    // download_logs.user_id
    ProductID  uint64    // download_logs.product_id
    OrderID    uint64    // download_logs.order_id
    IPAddress  string    // download_logs.ip_address
    UserAgent  string    // download_logs.user_agent
    AccessedAt time.Time // download_logs.accessed_at
}
