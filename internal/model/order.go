package model

import "time"

// Order statuses.  Only COMPLETED orders authorize downloads; a refund
// flips the status to REFUNDED and downloads stop immediately because
// ownership is re-checked at delivery time.
const (
    OrderStatusPending   = "PENDING"
    OrderStatusCompleted = "COMPLETED"
    OrderStatusRefunded  = "REFUNDED"
)

// Order is a purchase record created by checkout.  The delivery engine
// only ever reads orders; it never mutates them.
//
// Fields:
//  ID         – primary key identifier.
//  PublicID   – UUID exposed to clients.
//  UserID     – purchasing user.
//  Status     – PENDING, COMPLETED or REFUNDED.
//  TotalCents – order total in cents.
//  CreatedAt  – creation timestamp.
//  UpdatedAt  – last update timestamp.
type Order struct {
    ID         uint64    // orders.id
    PublicID   string    // orders.public_id
    UserID     uint64    // orders.user_id
    Status     string    // orders.status
    TotalCents uint32    // orders.total_cents
    CreatedAt  time.Time // orders.created_at
    UpdatedAt  time.Time // orders.updated_at
}

// OrderItem links an order to a purchased product at the price paid.
type OrderItem struct {
    ID         uint64    // order_items.id
    OrderID    uint64    // order_items.order_id
    ProductID  uint64    // order_items.product_id
    PriceCents uint32    // order_items.price_cents
    CreatedAt  time.Time // order_items.created_at
}
