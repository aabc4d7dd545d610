package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"invoicely-backend/internal/models"
)

type PaymentRepository struct {
	DB *pgxpool.Pool
}

func NewPaymentRepository(db *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{DB: db}
}

// CreateLink records a payment link issued at the gateway
func (r *PaymentRepository) CreateLink(ctx context.Context, link *models.PaymentLink) error {
	return r.DB.QueryRow(ctx,
		`INSERT INTO payment_links(id, invoice_id, provider_ref, short_url, status)
		 VALUES($1, $2, $3, $4, $5)
		 RETURNING created_at, updated_at`,
		link.ID, link.InvoiceID, link.ProviderRef, link.ShortURL, link.Status,
	).Scan(&link.CreatedAt, &link.UpdatedAt)
}

// GetLinkByProviderRef resolves a webhook's payment link id back to a link
func (r *PaymentRepository) GetLinkByProviderRef(ctx context.Context, providerRef string) (*models.PaymentLink, error) {
	var link models.PaymentLink
	err := r.DB.QueryRow(ctx,
		`SELECT id, invoice_id, provider_ref, short_url, status, created_at, updated_at
		 FROM payment_links WHERE provider_ref = $1`, providerRef,
	).Scan(&link.ID, &link.InvoiceID, &link.ProviderRef, &link.ShortURL,
		&link.Status, &link.CreatedAt, &link.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// UpdateLinkStatus advances a link's gateway status
func (r *PaymentRepository) UpdateLinkStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.DB.Exec(ctx,
		`UPDATE payment_links SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListLinks returns all links for an invoice, newest first
func (r *PaymentRepository) ListLinks(ctx context.Context, invoiceID uuid.UUID) ([]*models.PaymentLink, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT id, invoice_id, provider_ref, short_url, status, created_at, updated_at
		 FROM payment_links WHERE invoice_id = $1 ORDER BY created_at DESC`, invoiceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []*models.PaymentLink
	for rows.Next() {
		var link models.PaymentLink
		if err := rows.Scan(&link.ID, &link.InvoiceID, &link.ProviderRef,
			&link.ShortURL, &link.Status, &link.CreatedAt, &link.UpdatedAt); err != nil {
			return nil, err
		}
		links = append(links, &link)
	}
	return links, rows.Err()
}
