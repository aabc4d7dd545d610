package models

import (
	"time"

	"github.com/google/uuid"
)

// Workspace is the tenant boundary: it owns clients and invoices.
type Workspace struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// IsActive marks the caller's currently selected workspace; exactly one
	// membership per user is active at a time.
	IsActive bool `json:"is_active"`
}

// CreateWorkspaceRequest represents the request body for creating a workspace
type CreateWorkspaceRequest struct {
	Name     string `json:"name"`
	Currency string `json:"currency"`
}

// UpdateWorkspaceRequest represents the request body for updating a workspace
type UpdateWorkspaceRequest struct {
	Name     string `json:"name"`
	Currency string `json:"currency"`
}
