// Package dbtest opens sqlite databases carrying the storefront schema for tests.
package dbtest

import (
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// schema mirrors pkg/migrate/migrations with sqlite types.
var schema = []string{
	`CREATE TABLE users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  phone TEXT,
  is_active BOOLEAN NOT NULL,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE stores (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  subdomain TEXT NOT NULL UNIQUE,
  domain TEXT UNIQUE,
  description TEXT,
  logo_url TEXT,
  currency TEXT NOT NULL,
  is_active BOOLEAN NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE store_admins (
  id TEXT PRIMARY KEY,
  store_id TEXT NOT NULL REFERENCES stores(id),
  user_id TEXT NOT NULL REFERENCES users(id),
  role TEXT NOT NULL,
  created_at DATETIME,
  UNIQUE (store_id, user_id)
);`,
	`CREATE TABLE categories (
  id TEXT PRIMARY KEY,
  store_id TEXT NOT NULL REFERENCES stores(id),
  parent_id TEXT,
  name TEXT NOT NULL,
  slug TEXT NOT NULL,
  description TEXT,
  image_url TEXT,
  sort_order INTEGER NOT NULL DEFAULT 0,
  is_active BOOLEAN NOT NULL,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (store_id, id),
  CHECK (parent_id IS NULL OR parent_id <> id),
  FOREIGN KEY (store_id, parent_id) REFERENCES categories(store_id, id)
);`,
	`CREATE UNIQUE INDEX ux_categories_store_slug ON categories (store_id, slug);`,
	`CREATE TABLE products (
  id TEXT PRIMARY KEY,
  store_id TEXT NOT NULL REFERENCES stores(id),
  category_id TEXT,
  name TEXT NOT NULL,
  slug TEXT NOT NULL,
  sku TEXT,
  description TEXT,
  price_cents INTEGER NOT NULL CHECK (price_cents >= 0),
  compare_at_price_cents INTEGER,
  inventory_quantity INTEGER NOT NULL,
  track_inventory BOOLEAN NOT NULL,
  allow_backorders BOOLEAN NOT NULL,
  is_active BOOLEAN NOT NULL,
  created_at DATETIME,
  updated_at DATETIME,
  FOREIGN KEY (store_id, category_id) REFERENCES categories(store_id, id)
);`,
	`CREATE UNIQUE INDEX ux_products_store_slug ON products (store_id, slug);`,
	`CREATE UNIQUE INDEX ux_products_store_sku ON products (store_id, sku);`,
	`CREATE TABLE carts (
  id TEXT PRIMARY KEY,
  store_id TEXT NOT NULL REFERENCES stores(id),
  owner_key TEXT NOT NULL,
  user_id TEXT,
  session_token TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE UNIQUE INDEX ux_carts_store_owner ON carts (store_id, owner_key);`,
	`CREATE TABLE cart_lines (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL REFERENCES carts(id) ON DELETE CASCADE,
  product_id TEXT NOT NULL REFERENCES products(id),
  variant_id TEXT,
  quantity INTEGER NOT NULL CHECK (quantity >= 1),
  unit_price_cents INTEGER NOT NULL CHECK (unit_price_cents >= 0),
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE UNIQUE INDEX ux_cart_lines_product ON cart_lines (cart_id, product_id, COALESCE(variant_id, ''));`,
	`CREATE TABLE orders (
  id TEXT PRIMARY KEY,
  store_id TEXT NOT NULL REFERENCES stores(id),
  owner_key TEXT NOT NULL,
  user_id TEXT,
  session_token TEXT,
  order_number TEXT NOT NULL,
  status TEXT NOT NULL,
  subtotal_cents INTEGER NOT NULL CHECK (subtotal_cents >= 0),
  tax_cents INTEGER NOT NULL CHECK (tax_cents >= 0),
  shipping_cents INTEGER NOT NULL CHECK (shipping_cents >= 0),
  discount_cents INTEGER NOT NULL CHECK (discount_cents >= 0),
  total_cents INTEGER NOT NULL CHECK (total_cents >= 0),
  currency TEXT NOT NULL,
  shipping_address TEXT NOT NULL,
  billing_address TEXT NOT NULL,
  notes TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE UNIQUE INDEX ux_orders_order_number ON orders (order_number);`,
	`CREATE TABLE order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  product_id TEXT NOT NULL,
  variant_id TEXT,
  product_name TEXT NOT NULL,
  product_sku TEXT,
  quantity INTEGER NOT NULL CHECK (quantity >= 1),
  unit_price_cents INTEGER NOT NULL,
  total_price_cents INTEGER NOT NULL,
  created_at DATETIME
);`,
	`CREATE TABLE payment_transactions (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  payment_method TEXT NOT NULL,
  transaction_id TEXT,
  amount_cents INTEGER NOT NULL CHECK (amount_cents >= 0),
  currency TEXT NOT NULL,
  status TEXT NOT NULL CHECK (status IN ('pending','authorized','captured','failed','refunded')),
  created_at DATETIME
);`,
	`CREATE TABLE outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload BLOB NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`,
	`CREATE TABLE outbox_dlq (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL UNIQUE,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload_json BLOB NOT NULL,
  error_reason TEXT NOT NULL,
  error_message TEXT,
  attempt_count INTEGER NOT NULL,
  failed_at DATETIME,
  created_at DATETIME
);`,
}

// Open returns a private in-memory database with the full schema applied.
// The pool is pinned to one connection so concurrent callers serialize
// instead of failing on sqlite table locks.
func Open(t testing.TB, name string) *gorm.DB {
	t.Helper()

	dsn := "file:" + name + "_" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=1"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	// One connection serializes transactions. Tests that need overlapping
	// transactions use OpenPostgres.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v\n%s", err, stmt)
		}
	}
	return conn
}

// SeedStore inserts an active store with the given subdomain.
func SeedStore(t testing.TB, db *gorm.DB, subdomain string) *models.Store {
	t.Helper()

	store := &models.Store{
		Name:      subdomain + " store",
		Subdomain: subdomain,
		Currency:  "USD",
		IsActive:  true,
	}
	if err := db.Create(store).Error; err != nil {
		t.Fatalf("seed store: %v", err)
	}
	return store
}

// ProductOption adjusts a seeded product before insert.
type ProductOption func(*models.Product)

// Tracked enables inventory tracking with qty units on hand.
func Tracked(qty int) ProductOption {
	return func(p *models.Product) {
		p.TrackInventory = true
		p.InventoryQuantity = qty
	}
}

// Backorders allows selling past zero.
func Backorders() ProductOption {
	return func(p *models.Product) { p.AllowBackorders = true }
}

// Inactive hides the product from the catalog.
func Inactive() ProductOption {
	return func(p *models.Product) { p.IsActive = false }
}

// SeedProduct inserts an active, untracked product unless options say otherwise.
func SeedProduct(t testing.TB, db *gorm.DB, storeID uuid.UUID, name string, priceCents int64, opts ...ProductOption) *models.Product {
	t.Helper()

	sku := "SKU-" + uuid.NewString()[:8]
	product := &models.Product{
		StoreID:    storeID,
		Name:       name,
		Slug:       "p-" + uuid.NewString()[:12],
		SKU:        &sku,
		PriceCents: priceCents,
		IsActive:   true,
	}
	for _, opt := range opts {
		opt(product)
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

// Count returns the row count for model.
func Count(t testing.TB, db *gorm.DB, model any, where ...any) int64 {
	t.Helper()

	q := db.Model(model)
	if len(where) > 0 {
		q = q.Where(where[0], where[1:]...)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}
