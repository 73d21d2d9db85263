package model

import "time"

// Product represents a purchasable digital good.  FileURL is the storage
// location handed back after a download is authorized; it is never exposed
// without a verified grant.  DownloadLimit caps deliveries per completed
// order.
//
// Fields:
//  ID            – primary key identifier.
//  OrganizerID   – user who owns the product.
//  Title         – display title.
//  Sku           – unique stock keeping unit.
//  Description   – free-form description.
//  FileURL       – location of the underlying file.
//  PriceCents    – price in cents.
//  DownloadLimit – maximum successful deliveries per order.
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type Product struct {
    ID            uint64    // products.id
    OrganizerID   uint64    // products.organizer_id
    Title         string    // products.title
    Sku           string    // products.sku
    Description   string    // products.description
    FileURL       string    // products.file_url
    PriceCents    uint32    // products.price_cents
    DownloadLimit uint32    // products.download_limit
    CreatedAt     time.Time // products.created_at
    UpdatedAt     time.Time // products.updated_at
}
