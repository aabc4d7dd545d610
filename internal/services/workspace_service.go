package services

import (
	"context"
	"fmt"
	"strings"

	"invoicely-backend/internal/models"
	"invoicely-backend/internal/repositories"

	"github.com/google/uuid"
)

// WorkspaceService manages tenants and the caller's active selection.
type WorkspaceService struct {
	repo *repositories.WorkspaceRepository
}

func NewWorkspaceService(repo *repositories.WorkspaceRepository) *WorkspaceService {
	return &WorkspaceService{repo: repo}
}

func normalizeWorkspaceCurrency(currency string) (string, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if len(currency) != 3 {
		return "", fmt.Errorf("invalid currency code: %q", currency)
	}
	return currency, nil
}

// Create opens a workspace owned by userID and makes it their active one.
func (s *WorkspaceService) Create(ctx context.Context, userID uuid.UUID, req *models.CreateWorkspaceRequest) (*models.Workspace, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("workspace name is required")
	}
	currency, err := normalizeWorkspaceCurrency(req.Currency)
	if err != nil {
		return nil, err
	}

	ws := &models.Workspace{
		ID:       uuid.New(),
		Name:     strings.TrimSpace(req.Name),
		OwnerID:  userID,
		Currency: currency,
		IsActive: true,
	}
	if err := s.repo.Create(ctx, ws); err != nil {
		return nil, err
	}
	return ws, nil
}

func (s *WorkspaceService) Get(ctx context.Context, id, userID uuid.UUID) (*models.Workspace, error) {
	return s.repo.Get(ctx, id, userID)
}

func (s *WorkspaceService) List(ctx context.Context, userID uuid.UUID) ([]*models.Workspace, error) {
	return s.repo.List(ctx, userID)
}

func (s *WorkspaceService) Update(ctx context.Context, id, userID uuid.UUID, req *models.UpdateWorkspaceRequest) (*models.Workspace, error) {
	ws, err := s.repo.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Name) != "" {
		ws.Name = strings.TrimSpace(req.Name)
	}
	if strings.TrimSpace(req.Currency) != "" {
		currency, err := normalizeWorkspaceCurrency(req.Currency)
		if err != nil {
			return nil, err
		}
		ws.Currency = currency
	}
	if err := s.repo.Update(ctx, ws); err != nil {
		return nil, err
	}
	return ws, nil
}

// SetActive switches the caller's active workspace; the previous active
// membership is deactivated in the same transaction.
func (s *WorkspaceService) SetActive(ctx context.Context, workspaceID, userID uuid.UUID) error {
	return s.repo.SetActive(ctx, workspaceID, userID)
}

// IsMember reports whether the user belongs to the workspace. Handlers use
// it to fence every workspace-scoped route.
func (s *WorkspaceService) IsMember(ctx context.Context, workspaceID, userID uuid.UUID) (bool, error) {
	return s.repo.IsMember(ctx, workspaceID, userID)
}
