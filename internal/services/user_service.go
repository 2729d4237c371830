package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"

	"siraqemir/internal/models"
	"siraqemir/internal/repositories"
)

const minPasswordLen = 6

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidRefresh     = errors.New("invalid refresh token")
	ErrRefreshExpired     = errors.New("refresh token expired")
)

type UserService interface {
	Register(ctx context.Context, email, password string) (*models.AuthResponse, error)
	Login(ctx context.Context, email, password string) (*models.AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*models.AuthResponse, error)
	Logout(ctx context.Context, userID string) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

type userService struct {
	repo         repositories.UserRepository
	emailService EmailService
	authService  AuthService
}

// NewUserService wires registration and sessions. emailService may be nil.
func NewUserService(repo repositories.UserRepository, emailService EmailService, authService AuthService) UserService {
	return &userService{
		repo:         repo,
		emailService: emailService,
		authService:  authService,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *userService) Register(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, &models.ValidationError{Field: "email", Message: "invalid email address"}
	}
	if len(strings.TrimSpace(password)) < minPasswordLen {
		return nil, &models.ValidationError{
			Field:   "password",
			Message: fmt.Sprintf("password must be at least %d characters", minPasswordLen),
		}
	}

	hash, err := s.authService.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &models.User{Email: email, PasswordHash: hash}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	if s.emailService != nil {
		if err := s.emailService.SendWelcomeEmail(user.Email); err != nil {
			// warn but do not fail registration
			log.Printf("[auth][register][warn] welcome email to %s failed: %v", user.Email, err)
		}
	}
	return s.startSession(ctx, user)
}

func (s *userService) Login(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	user, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if strings.TrimSpace(user.PasswordHash) == "" || !s.authService.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return s.startSession(ctx, user)
}

func (s *userService) startSession(ctx context.Context, user *models.User) (*models.AuthResponse, error) {
	tokens, refreshExp, err := s.authService.IssueTokens(user)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateRefresh(ctx, user.ID, tokens.RefreshToken, refreshExp); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	return &models.AuthResponse{User: user, Tokens: tokens}, nil
}

// Refresh rotates the refresh token and issues a new access token.
func (s *userService) Refresh(ctx context.Context, refreshToken string) (*models.AuthResponse, error) {
	old := strings.TrimSpace(refreshToken)
	if old == "" {
		return nil, ErrInvalidRefresh
	}
	user, err := s.repo.GetByRefreshToken(ctx, old)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}
	if user.RefreshRevoked || user.RefreshExpiresAt == nil {
		return nil, ErrInvalidRefresh
	}
	if time.Now().After(*user.RefreshExpiresAt) {
		return nil, ErrRefreshExpired
	}

	tokens, refreshExp, err := s.authService.IssueTokens(user)
	if err != nil {
		return nil, err
	}
	rotated, err := s.repo.RotateRefresh(ctx, old, tokens.RefreshToken, refreshExp)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}
	return &models.AuthResponse{User: rotated, Tokens: tokens}, nil
}

func (s *userService) Logout(ctx context.Context, userID string) error {
	return s.repo.ClearRefresh(ctx, userID)
}

func (s *userService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.repo.GetByID(ctx, id)
}
