package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/users"
	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const invalidCredentialsMessage = "invalid credentials"

var (
	ErrInvalidCredentials = pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	ErrInvalidRefresh     = pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
	ErrEmailTaken         = pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
)

// Service defines the behavior needed by the auth controller.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*TokenResponse, error)
	Login(ctx context.Context, req LoginRequest) (*TokenResponse, error)
	Refresh(ctx context.Context, req RefreshRequest) (*TokenResponse, error)
	Logout(ctx context.Context, accessID string) error
	Me(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error)
}

type userRepository interface {
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

type sessionManager interface {
	Start(ctx context.Context, userID uuid.UUID) (session.Session, string, error)
	Rotate(ctx context.Context, refreshToken string) (session.Session, string, error)
	Revoke(ctx context.Context, accessID string) error
}

type passwordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
	NeedsRehash(encoded string) bool
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	Users     userRepository
	Sessions  sessionManager
	Passwords passwordHasher
	JWTConfig config.JWTConfig
	Logger    *logger.Logger
	Clock     func() time.Time
}

type service struct {
	users     userRepository
	sessions  sessionManager
	passwords passwordHasher
	signer    *pkgAuth.Signer
	ttl       time.Duration
	logg      *logger.Logger
	now       func() time.Time
}

// NewService constructs the auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if params.Passwords == nil {
		return nil, fmt.Errorf("password hasher is required")
	}
	signer, err := pkgAuth.NewSigner(params.JWTConfig)
	if err != nil {
		return nil, err
	}
	now := params.Clock
	if now == nil {
		now = time.Now
	}
	return &service{
		users:     params.Users,
		sessions:  params.Sessions,
		passwords: params.Passwords,
		signer:    signer,
		ttl:       time.Duration(params.JWTConfig.ExpirationMinutes) * time.Minute,
		logg:      params.Logger,
		now:       now,
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}

	valid, err := s.passwords.Verify(req.Password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid || !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	if s.passwords.NeedsRehash(user.PasswordHash) {
		s.rehash(ctx, user, req.Password)
	}

	now := s.now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update last login")
	}
	user.LastLoginAt = &now

	return s.issue(ctx, user)
}

func (s *service) Refresh(ctx context.Context, req RefreshRequest) (*TokenResponse, error) {
	sess, refreshToken, err := s.sessions.Rotate(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, ErrInvalidRefresh
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate session")
	}

	user, err := s.users.FindByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}
	if !user.IsActive {
		_ = s.sessions.Revoke(ctx, sess.AccessID)
		return nil, ErrInvalidRefresh
	}

	return s.tokens(user, sess, refreshToken)
}

func (s *service) Logout(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session")
	}
	if err := s.sessions.Revoke(ctx, accessID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

func (s *service) Me(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}
	return users.FromModel(user), nil
}

// issue opens a session and mints the access token bound to it.
func (s *service) issue(ctx context.Context, user *models.User) (*TokenResponse, error) {
	sess, refreshToken, err := s.sessions.Start(ctx, user.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "start session")
	}
	return s.tokens(user, sess, refreshToken)
}

func (s *service) tokens(user *models.User, sess session.Session, refreshToken string) (*TokenResponse, error) {
	accessToken, err := s.signer.Mint(s.now(), pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Email:  user.Email,
		JTI:    sess.AccessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return &TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.ttl.Seconds()),
		User:         users.FromModel(user),
	}, nil
}

// rehash upgrades a stored hash after a successful login. Failures only log.
func (s *service) rehash(ctx context.Context, user *models.User, password string) {
	hash, err := s.passwords.Hash(password)
	if err == nil {
		err = s.users.UpdatePasswordHash(ctx, user.ID, hash)
	}
	if err != nil {
		if s.logg != nil {
			s.logg.Error(s.logg.WithUserID(ctx, user.ID.String()), "password rehash failed", err)
		}
		return
	}
	user.PasswordHash = hash
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
