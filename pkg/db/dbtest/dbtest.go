// Package dbtest opens in-memory SQLite databases carrying the ledger schema
// for repository and service tests.
package dbtest

import (
	"io"
	"log"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var schema = []string{
	`CREATE TABLE profiles (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL UNIQUE,
		is_vendor BOOLEAN NOT NULL DEFAULT 0,
		vendor_admission BOOLEAN NOT NULL DEFAULT 0,
		wallet_balance NUMERIC NOT NULL DEFAULT 0 CHECK (wallet_balance >= 0),
		referral_code TEXT,
		referred_by_id TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE bank_accounts (
		id TEXT PRIMARY KEY,
		profile_id TEXT NOT NULL,
		bank_name TEXT NOT NULL,
		account_name TEXT NOT NULL,
		account_number TEXT NOT NULL,
		routing_number TEXT,
		swift_code TEXT,
		is_default BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME
	)`,
	`CREATE TABLE products (
		id TEXT PRIMARY KEY,
		vendor_id TEXT NOT NULL,
		name TEXT NOT NULL,
		price NUMERIC NOT NULL,
		discount_price NUMERIC,
		stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE product_sizes (
		id TEXT PRIMARY KEY,
		product_id TEXT NOT NULL,
		size TEXT NOT NULL,
		stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
		price_adjustment NUMERIC NOT NULL DEFAULT 0,
		UNIQUE (product_id, size)
	)`,
	`CREATE TABLE coupons (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		discount_type TEXT NOT NULL,
		discount_value NUMERIC NOT NULL,
		min_purchase NUMERIC NOT NULL DEFAULT 0,
		max_uses INTEGER,
		used_count INTEGER NOT NULL DEFAULT 0,
		valid_from DATETIME NOT NULL,
		valid_to DATETIME NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE orders (
		id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL,
		order_number TEXT NOT NULL UNIQUE,
		status TEXT NOT NULL DEFAULT 'pending',
		subtotal NUMERIC NOT NULL,
		shipping_cost NUMERIC NOT NULL,
		tax NUMERIC NOT NULL,
		discount NUMERIC NOT NULL DEFAULT 0,
		total NUMERIC NOT NULL,
		shipping_address TEXT NOT NULL,
		billing_address TEXT NOT NULL,
		phone TEXT NOT NULL,
		email TEXT NOT NULL,
		notes TEXT,
		coupon_id TEXT,
		payment_method TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE order_details (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL,
		product_id TEXT NOT NULL,
		product_name TEXT NOT NULL,
		size TEXT,
		quantity INTEGER NOT NULL,
		unit_price NUMERIC NOT NULL,
		total_price NUMERIC NOT NULL,
		created_at DATETIME
	)`,
	`CREATE TABLE order_suppliers (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL,
		vendor_id TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		subtotal NUMERIC NOT NULL,
		commission_rate NUMERIC NOT NULL,
		commission_amount NUMERIC NOT NULL,
		payout_amount NUMERIC NOT NULL,
		tracking_number TEXT,
		shipped_at DATETIME,
		delivered_at DATETIME,
		referral_settled_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME,
		UNIQUE (order_id, vendor_id)
	)`,
	`CREATE TABLE order_detail_suppliers (
		id TEXT PRIMARY KEY,
		order_detail_id TEXT NOT NULL UNIQUE,
		order_supplier_id TEXT NOT NULL
	)`,
	`CREATE TABLE payments (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL,
		payment_method TEXT NOT NULL,
		transaction_id TEXT,
		amount NUMERIC NOT NULL,
		currency TEXT NOT NULL DEFAULT 'USD',
		status TEXT NOT NULL DEFAULT 'pending',
		gateway_response TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE vendor_payments (
		id TEXT PRIMARY KEY,
		vendor_id TEXT NOT NULL,
		order_supplier_id TEXT,
		bank_account_id TEXT,
		amount NUMERIC NOT NULL,
		payment_type TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		reference_number TEXT,
		notes TEXT,
		created_at DATETIME,
		processed_at DATETIME
	)`,
	`CREATE TABLE outbox_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload TEXT NOT NULL,
		created_at DATETIME,
		published_at DATETIME,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT
	)`,
	`CREATE TABLE outbox_dlq (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload_json TEXT NOT NULL,
		error_reason TEXT NOT NULL,
		error_message TEXT,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		failed_at DATETIME
	)`,
}

// Open returns a fresh database with every ledger table created. The pool is
// pinned to one connection so transactions serialize like row locks would.
func Open(tb testing.TB) *gorm.DB {
	tb.Helper()

	dsn := "file:ledger_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.New(log.New(io.Discard, "", 0), gormlogger.Config{LogLevel: gormlogger.Silent}),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		tb.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			tb.Fatalf("create schema: %v", err)
		}
	}
	return conn
}
