package stores

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

func newTestService(t *testing.T) (Service, *Repository) {
	t.Helper()
	conn := dbtest.Open(t, "stores")
	repo := NewRepository(conn)
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, repo
}

func TestResolveBySubdomainAndDomain(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	domain := "shop.example.com"
	store := &models.Store{Name: "Example", Subdomain: "example", Domain: &domain, Currency: "USD", IsActive: true}
	if err := repo.Create(ctx, store); err != nil {
		t.Fatalf("seed: %v", err)
	}

	for _, token := range []string{"example", " EXAMPLE ", "shop.example.com"} {
		got, err := svc.Resolve(ctx, token)
		if err != nil {
			t.Fatalf("resolve %q: %v", token, err)
		}
		if got.ID != store.ID {
			t.Fatalf("resolve %q returned %s", token, got.ID)
		}
	}
}

func TestResolveRejectsUnknownAndInactive(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	if err := repo.Create(ctx, &models.Store{Name: "Closed", Subdomain: "closed", Currency: "USD"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, err := svc.Resolve(ctx, "nope")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	_, err = svc.Resolve(ctx, "closed")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestListAndAdmins(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	for _, sub := range []string{"b", "a", "c"} {
		if err := repo.Create(ctx, &models.Store{Name: sub, Subdomain: sub, Currency: "USD", IsActive: true}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	result, err := svc.List(ctx, pagination.Params{Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(result.Stores) != 2 || result.Stores[0].Name != "a" || result.Pagination.Total != 3 {
		t.Fatalf("unexpected list %+v", result)
	}

	user := &models.User{Email: "owner@example.com", PasswordHash: "x", FirstName: "O", LastName: "W", IsActive: true}
	if err := repo.base.DB(ctx).Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	storeID := result.Stores[0].ID
	if ok, err := svc.IsStoreAdmin(ctx, storeID, user.ID); err != nil || ok {
		t.Fatalf("expected no admin yet, got %v %v", ok, err)
	}
	if err := repo.AddAdmin(ctx, storeID, user.ID, enums.StoreRoleOwner); err != nil {
		t.Fatalf("add admin: %v", err)
	}
	if ok, err := svc.IsStoreAdmin(ctx, storeID, user.ID); err != nil || !ok {
		t.Fatalf("expected admin, got %v %v", ok, err)
	}
	if ok, _ := svc.IsStoreAdmin(ctx, uuid.New(), user.ID); ok {
		t.Fatalf("admin role must not leak across stores")
	}
}
