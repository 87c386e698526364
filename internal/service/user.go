package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smartrecipe/backend/internal/model"
)

// ProfileFields are the editable attributes of a user.
type ProfileFields struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
}

// UserService mirrors identities from the identity provider into the store.
type UserService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewUserService(db *gorm.DB, logger *zap.Logger) *UserService {
	return &UserService{db: db, logger: logger}
}

// EnsureUser returns the user with id, creating it on first sight.
func (s *UserService) EnsureUser(ctx context.Context, id uuid.UUID, username, email string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		username = "user-" + id.String()[:8]
	}
	attrs := model.User{Username: username}
	if email = strings.TrimSpace(email); email != "" {
		attrs.Email = &email
	}

	var user model.User
	err := s.db.WithContext(ctx).
		Where(model.User{ID: id}).
		Attrs(attrs).
		FirstOrCreate(&user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// The provider's username or email is taken locally; keep the account
		// reachable under an id-derived name.
		user = model.User{ID: id, Username: "user-" + id.String()}
		err = s.db.WithContext(ctx).Where(model.User{ID: id}).FirstOrCreate(&user).Error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to provision user: %w", err)
	}
	return &user, nil
}

func (s *UserService) GetProfile(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

// UpdateProfile changes the supplied profile fields. A username or email
// held by another user fails with ErrConflict.
func (s *UserService) UpdateProfile(ctx context.Context, id uuid.UUID, fields ProfileFields) (*model.User, error) {
	updates := map[string]interface{}{}
	if fields.Username != nil {
		username := strings.TrimSpace(*fields.Username)
		if len(username) < 3 || len(username) > 100 {
			return nil, fmt.Errorf("%w: username must be between 3 and 100 characters", ErrInvalidInput)
		}
		updates["username"] = username
	}
	if fields.Email != nil {
		addr, err := mail.ParseAddress(strings.TrimSpace(*fields.Email))
		if err != nil {
			return nil, fmt.Errorf("%w: email is not a valid address", ErrInvalidInput)
		}
		updates["email"] = strings.ToLower(addr.Address)
	}

	if _, err := s.GetProfile(ctx, id); err != nil {
		return nil, err
	}
	if len(updates) > 0 {
		err := s.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(updates).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: username or email already in use", ErrConflict)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to update user: %w", err)
		}
		s.logger.Info("profile updated", zap.String("user_id", id.String()))
	}
	return s.GetProfile(ctx, id)
}
