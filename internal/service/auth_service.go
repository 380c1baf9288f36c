package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bettersystems/crm-api/internal/auth"
	"github.com/bettersystems/crm-api/internal/domain"
	"github.com/bettersystems/crm-api/internal/mapper"
	"github.com/bettersystems/crm-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AuthService verifies admin credentials and issues session tokens
type AuthService struct {
	userRepo *repository.UserRepository
	issuer   *auth.TokenIssuer
	logger   *zap.Logger
}

func NewAuthService(userRepo *repository.UserRepository, issuer *auth.TokenIssuer, logger *zap.Logger) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		issuer:   issuer,
		logger:   logger,
	}
}

// Login checks username and password and returns a signed token. Unknown users
// and wrong passwords return the same error.
func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.AuthTokenDTO, error) {
	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		s.logger.Warn("failed login attempt", zap.String("username", user.Username))
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.issuer.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	if err := s.userRepo.TouchLastLogin(ctx, user.ID, time.Now().UTC()); err != nil {
		s.logger.Warn("failed to record last login", zap.Uint("user_id", user.ID), zap.Error(err))
	}

	s.logger.Info("user logged in", zap.Uint("user_id", user.ID), zap.String("username", user.Username))
	return &domain.AuthTokenDTO{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      mapper.ToUserDTO(user),
	}, nil
}

// Me returns the caller. API key callers get a synthetic system user.
func (s *AuthService) Me(ctx context.Context) (*domain.UserDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	if userCtx.IsSystem {
		return &domain.UserDTO{
			Username: userCtx.Username,
			Email:    userCtx.Email,
			Name:     "System",
			Role:     userCtx.Role,
		}, nil
	}

	user, err := s.userRepo.GetByID(ctx, userCtx.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	dto := mapper.ToUserDTO(user)
	return &dto, nil
}

// CreateUser stores a new admin user with a bcrypt-hashed password
func (s *AuthService) CreateUser(ctx context.Context, username, email, name, password string, role domain.UserRole) (*domain.UserDTO, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}
	if role != domain.UserRoleAdmin && role != domain.UserRoleStaff {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}
	taken, err := s.userRepo.UsernameTaken(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if taken {
		return nil, fmt.Errorf("%w: username %s is taken", ErrConflict, username)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		Username:     username,
		Email:        strings.TrimSpace(email),
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user created", zap.Uint("user_id", user.ID), zap.String("role", string(role)))
	dto := mapper.ToUserDTO(user)
	return &dto, nil
}
