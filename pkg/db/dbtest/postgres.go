package dbtest

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/storefront-backend/pkg/migrate"
)

// PostgresURLEnv names the database used by OpenPostgres.
const PostgresURLEnv = "STOREFRONT_TEST_DATABASE_URL"

// OpenPostgres migrates a throwaway schema on the database named by
// STOREFRONT_TEST_DATABASE_URL and skips the test when it is unset. Unlike
// Open, the pool is not pinned, so transactions really overlap.
func OpenPostgres(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := os.Getenv(PostgresURLEnv)
	if dsn == "" {
		t.Skipf("%s not set", PostgresURLEnv)
	}
	ctx := context.Background()
	gormCfg := &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	}

	admin, err := gorm.Open(postgres.Open(dsn), gormCfg)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	adminDB, err := admin.DB()
	if err != nil {
		t.Fatalf("postgres handle: %v", err)
	}
	schemaName := "sf_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	if err := admin.Exec("CREATE SCHEMA " + schemaName).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() {
		_ = admin.Exec("DROP SCHEMA " + schemaName + " CASCADE").Error
		_ = adminDB.Close()
	})

	pgCfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		t.Fatalf("parse dsn: %v", err)
	}
	pgCfg.RuntimeParams["search_path"] = schemaName
	sqlDB := stdlib.OpenDB(*pgCfg)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := migrate.Run(ctx, sqlDB, "", "up"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	conn, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), gormCfg)
	if err != nil {
		t.Fatalf("gorm postgres: %v", err)
	}
	return conn
}
