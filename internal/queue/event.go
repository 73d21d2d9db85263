// Package queue defines message payloads exchanged over the message broker
// and the publisher/consumer pair that moves them. Booking and download
// activity is fanned out after commit so notification and audit consumers
// never see state that was rolled back.
package queue

// Queue names. One durable queue per activity kind.
const (
    BookingConfirmedQueue  = "booking.confirmed"
    BookingCancelledQueue  = "booking.cancelled"
    DownloadDeliveredQueue = "download.delivered"
)

// BookingEvent is published when a booking is confirmed or cancelled.
// It carries enough information for downstream consumers to log, notify,
// or feed analytics without querying the primary database.
type BookingEvent struct {
    BookingID       uint64 `json:"booking_id"`
    UserID          uint64 `json:"user_id"`
    EventID         uint64 `json:"event_id"`
    EventTitle      string `json:"event_title"`
    Attendees       uint32 `json:"attendees"`
    TotalPriceCents uint32 `json:"total_price_cents"`
    OccurredAt      string `json:"occurred_at"`
}

// DownloadEvent is published after a download delivery is authorized and
// logged.
type DownloadEvent struct {
    UserID     uint64 `json:"user_id"`
    ProductID  uint64 `json:"product_id"`
    OrderID    uint64 `json:"order_id"`
    IPAddress  string `json:"ip_address"`
    OccurredAt string `json:"occurred_at"`
}
