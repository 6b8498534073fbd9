package services

import (
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/momentumclips/booking-backend/internal/database"
	"github.com/momentumclips/booking-backend/internal/models"
	"github.com/momentumclips/booking-backend/pkg/jwt"
)

// ErrInvalidCredentials is returned on any login failure. The cause is not
// distinguished so login probing learns nothing.
var ErrInvalidCredentials = errors.New("invalid email or password")

// userStore is the slice of the user repository the auth service needs
type userStore interface {
	GetByID(userID uuid.UUID) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	UpdateLastLogin(userID uuid.UUID) error
}

// AuthService handles login and token refresh
type AuthService struct {
	users  userStore
	tokens *jwt.Service
	logger *logrus.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(users userStore, tokens *jwt.Service, logger *logrus.Logger) *AuthService {
	return &AuthService{users: users, tokens: tokens, logger: logger}
}

// TokenPair is a successful authentication result
type TokenPair struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         *models.User `json:"user"`
}

// Login verifies credentials and issues a token pair
func (s *AuthService) Login(req *models.LoginRequest) (*TokenPair, error) {
	user, err := s.users.GetByEmail(req.Email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.IsActive || !user.CheckPassword(req.Password) {
		return nil, ErrInvalidCredentials
	}

	access, err := s.tokens.GenerateAccessToken(user.ID, user.Email, user.IsAdmin)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	if err := s.users.UpdateLastLogin(user.ID); err != nil {
		s.logger.WithError(err).Warn("Failed to update last login")
	}

	s.logger.WithField("user_id", user.ID).Info("User logged in")

	return &TokenPair{AccessToken: access, RefreshToken: refresh, User: user}, nil
}

// Refresh exchanges a valid refresh token for a new token pair
func (s *AuthService) Refresh(refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByID(claims.UserID)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	access, err := s.tokens.GenerateAccessToken(user.ID, user.Email, user.IsAdmin)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh, User: user}, nil
}
