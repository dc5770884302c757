package inventory

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	conn, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("gorm open: %v", err)
	}
	return conn, mock
}

func TestDecrementIssuesGuardedRelativeUpdate(t *testing.T) {
	conn, mock := newMockDB(t)
	id := uuid.New()
	stock := Stock{Name: "Widget", InventoryQuantity: 5, TrackInventory: true}

	mock.ExpectExec(`UPDATE "products" SET "inventory_quantity"=inventory_quantity - \$1 WHERE id = \$2 AND inventory_quantity >= \$3`).
		WithArgs(2, id, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := Decrement(context.Background(), conn, id, stock, 2); err != nil {
		t.Fatalf("decrement: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDecrementZeroRowsIsInsufficient(t *testing.T) {
	conn, mock := newMockDB(t)
	id := uuid.New()

	mock.ExpectExec(`UPDATE "products" SET "inventory_quantity"=inventory_quantity - \$1 WHERE id = \$2 AND inventory_quantity >= \$3`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := Decrement(context.Background(), conn, id, Stock{Name: "Widget", TrackInventory: true}, 9)
	if pkgerrors.CodeOf(err) != pkgerrors.CodeInsufficientInventory {
		t.Fatalf("expected insufficient inventory, got %v", err)
	}
}

func TestDecrementBackorderIsUnguarded(t *testing.T) {
	conn, mock := newMockDB(t)
	id := uuid.New()

	mock.ExpectExec(`UPDATE "products" SET "inventory_quantity"=inventory_quantity - \$1 WHERE id = \$2$`).
		WithArgs(4, id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	stock := Stock{Name: "Preorder", TrackInventory: true, AllowBackorders: true}
	if err := Decrement(context.Background(), conn, id, stock, 4); err != nil {
		t.Fatalf("decrement: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
