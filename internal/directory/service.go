package directory

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/meridianhq/portal-backend/internal/database"
	"github.com/meridianhq/portal-backend/internal/entity"
	perrors "github.com/meridianhq/portal-backend/internal/errors"
	"github.com/meridianhq/portal-backend/internal/model"
)

// Attributes carries the identity-provider supplied profile of a user.
type Attributes struct {
	Email      string `json:"email" validate:"required,email"`
	Name       string `json:"name"`
	FamilyName string `json:"family_name"`
	GivenName  string `json:"given_name"`
}

// DisplayName returns the explicit name attribute, or one composed from the
// family and given names.
func (a Attributes) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return fmt.Sprintf("%s %s", a.FamilyName, a.GivenName)
}

// Service keeps the local user directory in sync with the identity
// provider.
type Service struct {
	manager   *database.Manager
	projector *entity.Projector
	validate  *validator.Validate
	logger    *zap.Logger
}

// NewService creates a directory service backed by the application database.
func NewService(manager *database.Manager, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		manager:   manager,
		projector: entity.NewProjector(logger),
		validate:  validator.New(),
		logger:    logger,
	}
}

// Upsert creates the user on first sight and updates name and email in
// place afterwards. Concurrent creates for the same user name are resolved
// by the storage layer's unique constraint.
func (s *Service) Upsert(ctx context.Context, userName string, attrs Attributes) error {
	if userName == "" {
		return perrors.ValidationError{Field: "userName"}
	}
	if err := s.validate.Struct(attrs); err != nil {
		return perrors.ValidationError{Field: "email", Message: fmt.Sprintf("invalid user attributes: %v", err)}
	}

	return s.manager.WithSession(ctx, func(tx *gorm.DB) error {
		user, err := find(tx, userName)
		if err != nil {
			return err
		}

		if user == nil {
			user = &model.UserAccount{
				UserName: userName,
				Name:     attrs.DisplayName(),
				Email:    attrs.Email,
			}
			s.logger.Debug("creating user", zap.String("userName", userName))
			return tx.Create(user).Error
		}

		return tx.Model(user).Updates(map[string]any{
			"name":  attrs.DisplayName(),
			"email": attrs.Email,
		}).Error
	})
}

// Delete removes the user. A missing record is a caller-visible failure.
func (s *Service) Delete(ctx context.Context, userName string) error {
	if userName == "" {
		return perrors.ValidationError{Field: "userName"}
	}

	return s.manager.WithSession(ctx, func(tx *gorm.DB) error {
		user, err := find(tx, userName)
		if err != nil {
			return err
		}
		if user == nil {
			return perrors.RequestError{Message: "User not found"}
		}
		return tx.Delete(user).Error
	})
}

// Get loads the user with its organisation and projects it for transport.
func (s *Service) Get(ctx context.Context, userName string) (map[string]any, error) {
	var result map[string]any
	err := s.manager.WithSession(ctx, func(tx *gorm.DB) error {
		var users []model.UserAccount
		if err := tx.Preload("Organisation").Where("user_name = ?", userName).Limit(1).Find(&users).Error; err != nil {
			return err
		}
		if len(users) == 0 {
			return perrors.RequestError{Message: "Bad Request"}
		}
		result = users[0].ToDict(s.projector, nil)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Find returns the user record by its unique user name, or nil when absent.
func (s *Service) Find(ctx context.Context, userName string) (*model.UserAccount, error) {
	var user *model.UserAccount
	err := s.manager.WithSession(ctx, func(tx *gorm.DB) error {
		found, err := find(tx, userName)
		if err != nil {
			return err
		}
		user = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func find(tx *gorm.DB, userName string) (*model.UserAccount, error) {
	var users []model.UserAccount
	if err := tx.Where("user_name = ?", userName).Limit(1).Find(&users).Error; err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, nil
	}
	return &users[0], nil
}
