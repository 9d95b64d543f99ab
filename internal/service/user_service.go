package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/roadside-assist-api/internal/models"
	appErrors "github.com/noah-isme/roadside-assist-api/pkg/errors"
)

type userReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// UserService exposes the role specific profile of the caller.
type UserService struct {
	repo   userReader
	logger *zap.Logger
}

// NewUserService constructs a UserService.
func NewUserService(repo userReader, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{repo: repo, logger: logger}
}

// Profile loads the principal's user row and returns its profile variant.
func (s *UserService) Profile(ctx context.Context, principal models.Principal) (models.Profile, error) {
	if principal.ID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	user, err := s.repo.FindByID(ctx, principal.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Internal(err, "failed to load user")
	}
	profile, err := models.NewProfile(*user)
	if err != nil {
		s.logger.Error("user row violates profile rules", zap.String("user_id", user.ID), zap.Error(err))
		return nil, appErrors.Internal(err, "failed to build profile")
	}
	return profile, nil
}
