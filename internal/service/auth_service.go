package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/noah-isme/roadside-assist-api/internal/models"
	appErrors "github.com/noah-isme/roadside-assist-api/pkg/errors"
)

type authUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// AuthConfig defines token settings.
type AuthConfig struct {
	Secret string
	Issuer string
	Expiry time.Duration
}

// AuthService validates access tokens and issues them for operator tooling.
type AuthService struct {
	users  authUserRepository
	logger *zap.Logger
	config AuthConfig
	now    func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(users authUserRepository, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Expiry <= 0 {
		config.Expiry = 24 * time.Hour
	}
	return &AuthService{users: users, logger: logger, config: config, now: time.Now}
}

// ValidateToken parses an HS256 token and returns its claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now)}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.config.Secret), nil
	}, opts...)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid || claims.UserID == "" || !claims.Role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// IssueToken signs an access token for an active user.
func (s *AuthService) IssueToken(ctx context.Context, userID string) (string, time.Time, error) {
	return s.issue(ctx, func() (*models.User, error) { return s.users.FindByID(ctx, userID) })
}

// IssueTokenForEmail signs an access token for the active user registered under email.
func (s *AuthService) IssueTokenForEmail(ctx context.Context, email string) (string, time.Time, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", time.Time{}, appErrors.Clone(appErrors.ErrValidation, "email is required")
	}
	return s.issue(ctx, func() (*models.User, error) { return s.users.FindByEmail(ctx, email) })
}

func (s *AuthService) issue(ctx context.Context, find func() (*models.User, error)) (string, time.Time, error) {
	if s.config.Secret == "" {
		return "", time.Time{}, appErrors.Internal(errors.New("jwt secret not configured"), "cannot issue token")
	}
	user, err := find()
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", time.Time{}, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return "", time.Time{}, appErrors.Internal(err, "failed to load user")
	}
	if !user.IsActive {
		return "", time.Time{}, appErrors.Clone(appErrors.ErrForbidden, "account is inactive")
	}

	issuedAt := s.now().UTC()
	expiresAt := issuedAt.Add(s.config.Expiry)
	claims := &models.JWTClaims{
		UserID: user.ID,
		Role:   user.Role,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", time.Time{}, appErrors.Internal(fmt.Errorf("sign token: %w", err), "cannot issue token")
	}
	s.logger.Info("access token issued", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return signed, expiresAt, nil
}
