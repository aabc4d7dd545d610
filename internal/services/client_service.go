package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"invoicely-backend/internal/cache"
	"invoicely-backend/internal/models"
	"invoicely-backend/internal/repositories"

	"github.com/google/uuid"
)

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ClientService manages workspace clients.
type ClientService struct {
	repo *repositories.ClientRepository
}

func NewClientService(repo *repositories.ClientRepository) *ClientService {
	return &ClientService{repo: repo}
}

func validateClientFields(name, email string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("client name is required")
	}
	if !emailRe.MatchString(email) {
		return fmt.Errorf("invalid email address: %q", email)
	}
	return nil
}

func (s *ClientService) Create(ctx context.Context, workspaceID uuid.UUID, req *models.CreateClientRequest) (*models.Client, error) {
	if err := validateClientFields(req.Name, req.Email); err != nil {
		return nil, err
	}

	client := &models.Client{
		ID:          uuid.New(),
		WorkspaceID: workspaceID,
		Name:        strings.TrimSpace(req.Name),
		Email:       strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:       strings.TrimSpace(req.Phone),
		Company:     strings.TrimSpace(req.Company),
		Address:     strings.TrimSpace(req.Address),
		Status:      models.ClientActive,
	}
	if err := s.repo.Create(ctx, client); err != nil {
		return nil, err
	}
	cache.InvalidateDashboard(ctx, workspaceID)
	return client, nil
}

func (s *ClientService) Get(ctx context.Context, workspaceID, id uuid.UUID) (*models.Client, error) {
	return s.repo.Get(ctx, workspaceID, id)
}

func (s *ClientService) List(ctx context.Context, workspaceID uuid.UUID) ([]*models.Client, error) {
	return s.repo.List(ctx, workspaceID)
}

func (s *ClientService) Update(ctx context.Context, workspaceID, id uuid.UUID, req *models.UpdateClientRequest) (*models.Client, error) {
	if err := validateClientFields(req.Name, req.Email); err != nil {
		return nil, err
	}
	if req.Status != "" && !req.Status.Valid() {
		return nil, fmt.Errorf("invalid client status: %q", req.Status)
	}

	client, err := s.repo.Get(ctx, workspaceID, id)
	if err != nil {
		return nil, err
	}
	client.Name = strings.TrimSpace(req.Name)
	client.Email = strings.ToLower(strings.TrimSpace(req.Email))
	client.Phone = strings.TrimSpace(req.Phone)
	client.Company = strings.TrimSpace(req.Company)
	client.Address = strings.TrimSpace(req.Address)
	if req.Status != "" {
		client.Status = req.Status
	}

	if err := s.repo.Update(ctx, client); err != nil {
		return nil, err
	}
	return client, nil
}

// Delete removes a client without invoices. A referenced client fails with
// ErrClientHasInvoices; Archive is the soft alternative.
func (s *ClientService) Delete(ctx context.Context, workspaceID, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, workspaceID, id); err != nil {
		return err
	}
	cache.InvalidateDashboard(ctx, workspaceID)
	return nil
}

// Archive marks a client ARCHIVED so it stops appearing in pickers while its
// invoice history stays intact.
func (s *ClientService) Archive(ctx context.Context, workspaceID, id uuid.UUID) (*models.Client, error) {
	client, err := s.repo.Get(ctx, workspaceID, id)
	if err != nil {
		return nil, err
	}
	if client.Status == models.ClientArchived {
		return client, nil
	}
	client.Status = models.ClientArchived
	if err := s.repo.Update(ctx, client); err != nil {
		return nil, err
	}
	return client, nil
}
