package models

import (
	"time"

	"github.com/google/uuid"
)

type ClientStatus string

const (
	ClientActive   ClientStatus = "ACTIVE"
	ClientInactive ClientStatus = "INACTIVE"
	ClientArchived ClientStatus = "ARCHIVED"
)

// Valid reports whether s is a known client status.
func (s ClientStatus) Valid() bool {
	return s == ClientActive || s == ClientInactive || s == ClientArchived
}

// Client is a billing counterparty owned by a workspace. Invoices reference
// clients; a client with invoice references cannot be deleted, only archived.
type Client struct {
	ID          uuid.UUID    `json:"id"`
	WorkspaceID uuid.UUID    `json:"workspace_id"`
	Name        string       `json:"name"`
	Email       string       `json:"email"`
	Phone       string       `json:"phone,omitempty"`
	Company     string       `json:"company,omitempty"`
	Address     string       `json:"address,omitempty"`
	Status      ClientStatus `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// CreateClientRequest represents the request body for creating a client
type CreateClientRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Company string `json:"company"`
	Address string `json:"address"`
}

// UpdateClientRequest represents the request body for updating a client
type UpdateClientRequest struct {
	Name    string       `json:"name"`
	Email   string       `json:"email"`
	Phone   string       `json:"phone"`
	Company string       `json:"company"`
	Address string       `json:"address"`
	Status  ClientStatus `json:"status"`
}
