package auth

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/security"
)

// Register creates an active shopper account and signs it in.
func (s *service) Register(ctx context.Context, req RegisterRequest) (*TokenResponse, error) {
	email := normalizeEmail(req.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if strings.TrimSpace(req.FirstName) == "" || strings.TrimSpace(req.LastName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "first_name and last_name are required")
	}
	if err := security.ValidatePassword(req.Password); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check user email")
	}

	hash, err := s.passwords.Hash(req.Password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user, err := s.users.Create(ctx, users.CreateUserDTO{
		Email:        email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
	})
	if err != nil {
		// a concurrent registration can win between the lookup and the insert
		if db.IsUniqueViolation(err, "users_email_key", "ux_users_email", "users.email") {
			return nil, ErrEmailTaken
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "user registered")
	}
	return s.issue(ctx, user)
}
