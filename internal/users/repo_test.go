package users

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
)

func TestRepositoryLifecycle(t *testing.T) {
	repo := NewRepository(dbtest.Open(t, "users"))
	ctx := context.Background()

	created, err := repo.Create(ctx, CreateUserDTO{
		Email:        "  Shopper@Example.com ",
		PasswordHash: "hash",
		FirstName:    " Ada ",
		LastName:     "Lovelace",
	})
	require.NoError(t, err)
	require.Equal(t, "shopper@example.com", created.Email)
	require.Equal(t, "Ada", created.FirstName)
	require.True(t, created.IsActive)

	byEmail, err := repo.FindByEmail(ctx, "SHOPPER@example.com")
	require.NoError(t, err)
	require.Equal(t, created.ID, byEmail.ID)

	at := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.UpdateLastLogin(ctx, created.ID, at))

	byID, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, byID.LastLoginAt)
	require.True(t, byID.LastLoginAt.Equal(at))

	require.NoError(t, repo.UpdatePasswordHash(ctx, created.ID, "rehashed"))
	byID, err = repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "rehashed", byID.PasswordHash)

	_, err = repo.Create(ctx, CreateUserDTO{Email: "shopper@example.com", PasswordHash: "x"})
	require.Error(t, err)
}

func TestRepositoryUpdateMissingUser(t *testing.T) {
	repo := NewRepository(dbtest.Open(t, "users"))
	err := repo.UpdateLastLogin(context.Background(), uuid.New(), time.Now())
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
