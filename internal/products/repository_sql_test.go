package product

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestLockForCheckoutLocksInIDOrder(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	conn, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("gorm open: %v", err)
	}

	storeID, a, b := uuid.New(), uuid.New(), uuid.New()
	mock.ExpectQuery(`SELECT \* FROM "products" WHERE store_id = \$1 AND id IN \(\$2,\$3\) ORDER BY id ASC FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "store_id", "name"}).
			AddRow(a.String(), storeID.String(), "A").
			AddRow(b.String(), storeID.String(), "B"))

	rows, err := NewRepository(conn).LockForCheckout(context.Background(), storeID, []uuid.UUID{b, a})
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
