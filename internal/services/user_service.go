package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"invoicely-backend/internal/auth"
	"invoicely-backend/internal/models"
	"invoicely-backend/internal/repositories"

	"github.com/google/uuid"
)

// ErrInvalidCredentials is returned on any login failure; the reason is
// deliberately not distinguished.
var ErrInvalidCredentials = errors.New("invalid email or password")

// UserService handles signup and login.
type UserService struct {
	repo *repositories.UserRepository
	jwt  *auth.JWTManager
}

func NewUserService(repo *repositories.UserRepository, jwt *auth.JWTManager) *UserService {
	return &UserService{repo: repo, jwt: jwt}
}

// Signup registers a user and returns an issued token.
func (s *UserService) Signup(ctx context.Context, req *models.SignupRequest) (*models.AuthResponse, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if !emailRe.MatchString(email) {
		return nil, fmt.Errorf("invalid email address: %q", email)
	}
	if len(req.Password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters")
	}

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("email already registered")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	token, err := s.jwt.GenerateToken(user)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{Token: token, User: user}, nil
}

// Login verifies the credentials and returns an issued token.
func (s *UserService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !auth.VerifyPassword(user.PasswordHash, req.Password) {
		return nil, ErrInvalidCredentials
	}

	token, err := s.jwt.GenerateToken(user)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{Token: token, User: user}, nil
}

// Get returns a user by id.
func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.repo.Get(ctx, id)
}
