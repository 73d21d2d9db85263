package repository

import (
    "context"
    "database/sql"

    "github.com/iliyamo/event-commerce/internal/model"
)

// ProductRepo provides persistence for digital products.
type ProductRepo struct {
    db *sql.DB
}

// NewProductRepo returns a new ProductRepo bound to the given database.
func NewProductRepo(db *sql.DB) *ProductRepo { return &ProductRepo{db: db} }

// Create inserts a new product. A duplicate SKU is mapped to ErrConflict.
func (r *ProductRepo) Create(ctx context.Context, p *model.Product) error {
    const q = `INSERT INTO products (organizer_id, title, sku, description, file_url, price_cents, download_limit)
               VALUES (?, ?, ?, ?, ?, ?, ?)`
    res, err := r.db.ExecContext(ctx, q, p.OrganizerID, p.Title, p.Sku, p.Description, p.FileURL, p.PriceCents, p.DownloadLimit)
    if err != nil {
        if isDuplicateKey(err) {
            return ErrConflict
        }
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    p.ID = uint64(id)
    return nil
}

// GetByID returns a single product or sql.ErrNoRows.
func (r *ProductRepo) GetByID(ctx context.Context, id uint64) (*model.Product, error) {
    const q = `SELECT id, organizer_id, title, sku, description, file_url, price_cents, download_limit, created_at, updated_at
               FROM products WHERE id = ?`
    var p model.Product
    err := r.db.QueryRowContext(ctx, q, id).Scan(
        &p.ID, &p.OrganizerID, &p.Title, &p.Sku, &p.Description, &p.FileURL,
        &p.PriceCents, &p.DownloadLimit, &p.CreatedAt, &p.UpdatedAt,
    )
    if err != nil {
        return nil, err
    }
    return &p, nil
}

// List returns every product in the catalog, newest first. FileURL is
// included because this repository is internal; handlers sanitize it
// out of public responses.
func (r *ProductRepo) List(ctx context.Context) ([]model.Product, error) {
    const q = `SELECT id, organizer_id, title, sku, description, file_url, price_cents, download_limit, created_at, updated_at
               FROM products ORDER BY created_at DESC`
    rows, err := r.db.QueryContext(ctx, q)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    products := make([]model.Product, 0)
    for rows.Next() {
        var p model.Product
        if err := rows.Scan(
            &p.ID, &p.OrganizerID, &p.Title, &p.Sku, &p.Description, &p.FileURL,
            &p.PriceCents, &p.DownloadLimit, &p.CreatedAt, &p.UpdatedAt,
        ); err != nil {
            return nil, err
        }
        products = append(products, p)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return products, nil
}

// UpdateForOrganizer updates mutable product fields after verifying
// ownership. Returns sql.ErrNoRows when the product does not exist and
// ErrForbidden when it belongs to a different organizer.
func (r *ProductRepo) UpdateForOrganizer(ctx context.Context, productID, organizerID uint64, title, description, fileURL string, priceCents, downloadLimit uint32) error {
    const checkQ = `SELECT organizer_id FROM products WHERE id = ?`
    var actualOrganizerID uint64
    if err := r.db.QueryRowContext(ctx, checkQ, productID).Scan(&actualOrganizerID); err != nil {
        return err
    }
    if actualOrganizerID != organizerID {
        return ErrForbidden
    }
    const q = `UPDATE products SET title = ?, description = ?, file_url = ?, price_cents = ?, download_limit = ? WHERE id = ?`
    _, err := r.db.ExecContext(ctx, q, title, description, fileURL, priceCents, downloadLimit, productID)
    return err
}
