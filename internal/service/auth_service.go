package service

import (
	"context"
	"strings"

	"inventory-service/internal/models"
	"inventory-service/internal/util"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthService checks login credentials against configured bcrypt hashes
type AuthService struct {
	users  map[string]string
	logger *zap.Logger
}

// NewAuthService creates a new auth service from username -> bcrypt hash
func NewAuthService(users map[string]string) *AuthService {
	return &AuthService{users: users, logger: util.GetLogger()}
}

// LoginRequest is the login form
type LoginRequest struct {
	Username string `json:"username" binding:"notblank"`
	Password string `json:"password" binding:"required"`
}

// Login returns nil when the credentials match
func (s *AuthService) Login(ctx context.Context, req LoginRequest) error {
	username := strings.TrimSpace(req.Username)
	hash, ok := s.users[username]
	if !ok {
		s.logger.Info("Login rejected", zap.String("username", username))
		return models.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)); err != nil {
		s.logger.Info("Login rejected", zap.String("username", username))
		return models.ErrInvalidCredentials
	}

	s.logger.Info("Login succeeded", zap.String("username", username))
	return nil
}
