package service

import (
	"context"
	"fmt"
	"time"

	"salespro/internal/middleware"
	"salespro/internal/model"
	"salespro/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour
)

// DTOs for request validation
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=6"`
}

type CreateAccountRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"required"`
	FullName string `json:"full_name"`
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AccountResponse returns an account without exposing the password hash.
type AccountResponse struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	FullName string `json:"full_name,omitempty"`
}

// AuthService owns operator accounts and session tokens.
type AuthService interface {
	Login(ctx context.Context, req LoginRequest) (*TokenPair, *AccountResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	ChangePassword(ctx context.Context, userID uint, req ChangePasswordRequest) error
	CreateAccount(ctx context.Context, req CreateAccountRequest) (*AccountResponse, error)
	ListReps(ctx context.Context) ([]AccountResponse, error)
}

type authService struct {
	userRepo repository.UserRepository
}

func NewAuthService(userRepo repository.UserRepository) AuthService {
	return &authService{userRepo: userRepo}
}

func mapAccount(user *model.User) *AccountResponse {
	return &AccountResponse{
		ID:       user.ID,
		Username: user.Username,
		Role:     user.Role,
		FullName: user.FullName,
	}
}

func (s *authService) issueTokens(ctx context.Context, user *model.User) (*TokenPair, error) {
	claims := jwt.MapClaims{
		"sub":  fmt.Sprintf("%d", user.ID),
		"role": user.Role,
		"exp":  time.Now().Add(accessTokenTTL).Unix(),
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString(middleware.GetJWTSecret())
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refresh := &model.RefreshToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(refreshTokenTTL),
	}
	if err := s.userRepo.CreateRefreshToken(ctx, refresh); err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh.Token}, nil
}

func (s *authService) Login(ctx context.Context, req LoginRequest) (*TokenPair, *AccountResponse, error) {
	user, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: invalid username or password", ErrValidation)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, nil, fmt.Errorf("%w: invalid username or password", ErrValidation)
	}

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return tokens, mapAccount(user), nil
}

// Refresh rotates the refresh token: the presented token is consumed and a
// new pair issued. Expired tokens are rejected and deleted.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	// Opportunistic cleanup; a failure here never blocks the refresh.
	_ = s.userRepo.DeleteExpiredRefreshTokens(ctx)

	stored, err := s.userRepo.GetRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: refresh token", ErrNotFound)
	}
	if time.Now().After(stored.ExpiresAt) {
		_ = s.userRepo.DeleteRefreshToken(ctx, refreshToken)
		return nil, fmt.Errorf("%w: refresh token expired", ErrValidation)
	}

	user, err := s.userRepo.GetByID(ctx, stored.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: account", ErrNotFound)
	}

	if err := s.userRepo.DeleteRefreshToken(ctx, refreshToken); err != nil {
		return nil, err
	}
	return s.issueTokens(ctx, user)
}

func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.userRepo.DeleteRefreshToken(ctx, refreshToken)
}

func (s *authService) ChangePassword(ctx context.Context, userID uint, req ChangePasswordRequest) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("%w: account", ErrNotFound)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return fmt.Errorf("%w: current password does not match", ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.userRepo.UpdatePassword(ctx, userID, string(hash))
}

func (s *authService) CreateAccount(ctx context.Context, req CreateAccountRequest) (*AccountResponse, error) {
	if req.Role != model.RoleAdmin && req.Role != model.RoleRep {
		return nil, fmt.Errorf("%w: role must be %s or %s", ErrValidation, model.RoleAdmin, model.RoleRep)
	}
	if _, err := s.userRepo.GetByUsername(ctx, req.Username); err == nil {
		return nil, fmt.Errorf("%w: username already exists", ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Username:     req.Username,
		PasswordHash: string(hash),
		Role:         req.Role,
		FullName:     req.FullName,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return mapAccount(user), nil
}

func (s *authService) ListReps(ctx context.Context) ([]AccountResponse, error) {
	users, err := s.userRepo.ListByRole(ctx, model.RoleRep)
	if err != nil {
		return nil, err
	}
	responses := make([]AccountResponse, 0, len(users))
	for i := range users {
		responses = append(responses, *mapAccount(&users[i]))
	}
	return responses, nil
}
