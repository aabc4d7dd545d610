package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"invoicely-backend/internal/models"
)

// ErrClientHasInvoices is returned when deleting a client that invoices
// still reference. The supported path is archiving the client instead.
var ErrClientHasInvoices = errors.New("client is referenced by invoices")

type ClientRepository struct {
	DB *pgxpool.Pool
}

func NewClientRepository(db *pgxpool.Pool) *ClientRepository {
	return &ClientRepository{DB: db}
}

// Create inserts a new client
func (r *ClientRepository) Create(ctx context.Context, client *models.Client) error {
	return r.DB.QueryRow(ctx,
		`INSERT INTO clients(id, workspace_id, name, email, phone, company, address, status)
		 VALUES($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING created_at, updated_at`,
		client.ID, client.WorkspaceID, client.Name, client.Email,
		client.Phone, client.Company, client.Address, client.Status,
	).Scan(&client.CreatedAt, &client.UpdatedAt)
}

// Get retrieves a client by ID within a workspace
func (r *ClientRepository) Get(ctx context.Context, workspaceID, id uuid.UUID) (*models.Client, error) {
	var c models.Client
	err := r.DB.QueryRow(ctx,
		`SELECT id, workspace_id, name, email, phone, company, address, status, created_at, updated_at
		 FROM clients WHERE workspace_id = $1 AND id = $2`, workspaceID, id,
	).Scan(&c.ID, &c.WorkspaceID, &c.Name, &c.Email, &c.Phone, &c.Company,
		&c.Address, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns all clients in a workspace
func (r *ClientRepository) List(ctx context.Context, workspaceID uuid.UUID) ([]*models.Client, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT id, workspace_id, name, email, phone, company, address, status, created_at, updated_at
		 FROM clients WHERE workspace_id = $1 ORDER BY created_at DESC`, workspaceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []*models.Client
	for rows.Next() {
		var c models.Client
		if err := rows.Scan(&c.ID, &c.WorkspaceID, &c.Name, &c.Email, &c.Phone,
			&c.Company, &c.Address, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		clients = append(clients, &c)
	}
	return clients, rows.Err()
}

// Update replaces a client's mutable fields
func (r *ClientRepository) Update(ctx context.Context, client *models.Client) error {
	tag, err := r.DB.Exec(ctx,
		`UPDATE clients
		 SET name = $1, email = $2, phone = $3, company = $4, address = $5,
		     status = $6, updated_at = NOW()
		 WHERE workspace_id = $7 AND id = $8`,
		client.Name, client.Email, client.Phone, client.Company, client.Address,
		client.Status, client.WorkspaceID, client.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a client. The invoices foreign key is ON DELETE RESTRICT;
// the violation is mapped to ErrClientHasInvoices.
func (r *ClientRepository) Delete(ctx context.Context, workspaceID, id uuid.UUID) error {
	tag, err := r.DB.Exec(ctx,
		`DELETE FROM clients WHERE workspace_id = $1 AND id = $2`, workspaceID, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrClientHasInvoices
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
