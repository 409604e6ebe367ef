package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	apperrors "price-tracker/internal/errors"
	"price-tracker/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex // serializes appends from overlapping callers
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Product catalog
	CREATE TABLE IF NOT EXISTS products (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		search_query TEXT,
		category TEXT,
		own_brand INTEGER DEFAULT 0,
		active INTEGER DEFAULT 1,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Per-store canonical product URLs
	CREATE TABLE IF NOT EXISTS product_urls (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		product_id INTEGER NOT NULL REFERENCES products(id),
		store TEXT NOT NULL,
		url TEXT NOT NULL,
		UNIQUE(product_id, store)
	);

	-- Append-only price time series. Rows are never updated; duplicate
	-- (product, store, date) rows from re-runs are resolved at query time.
	CREATE TABLE IF NOT EXISTS prices (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		product_id INTEGER NOT NULL REFERENCES products(id),
		date TEXT NOT NULL,
		store TEXT NOT NULL,
		url TEXT,
		price REAL,
		original_price REAL,
		currency TEXT DEFAULT 'CLP',
		sku TEXT,
		error TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_prices_product ON prices(product_id);
	CREATE INDEX IF NOT EXISTS idx_prices_date ON prices(date);
	CREATE INDEX IF NOT EXISTS idx_prices_store ON prices(store);
	CREATE INDEX IF NOT EXISTS idx_urls_product ON product_urls(product_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ============================================================================
// Catalog Methods
// ============================================================================

// AddProduct inserts a product, or updates its query and URL mapping if a
// product with the same name already exists.
func (s *SQLiteStore) AddProduct(ctx context.Context, product *models.Product) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, apperrors.NewStoreError("add_product", err)
	}
	defer tx.Rollback()

	ownBrand := 0
	if product.OwnBrand {
		ownBrand = 1
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO products (name, search_query, category, own_brand, active)
		VALUES (?, ?, ?, ?, 1)
		ON CONFLICT(name) DO UPDATE SET
			search_query = excluded.search_query,
			category = excluded.category,
			own_brand = excluded.own_brand,
			active = 1
	`, product.Name, product.SearchQuery, product.Category, ownBrand)
	if err != nil {
		return 0, apperrors.NewStoreError("add_product", err)
	}

	productID, err := res.LastInsertId()
	if err != nil || productID == 0 {
		if err := tx.QueryRowContext(ctx, `SELECT id FROM products WHERE name = ?`, product.Name).Scan(&productID); err != nil {
			return 0, apperrors.NewStoreError("add_product", err)
		}
	}

	for storeKey, url := range product.URLs {
		if url == "" {
			continue
		}
		_, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO product_urls (product_id, store, url)
			VALUES (?, ?, ?)
		`, productID, storeKey, url)
		if err != nil {
			return 0, apperrors.NewStoreError("add_product_url", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, apperrors.NewStoreError("add_product", err)
	}

	return productID, nil
}

// GetProduct retrieves a single product with its URL mapping.
func (s *SQLiteStore) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	var p models.Product
	var query, category sql.NullString
	var ownBrand, active int

	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, search_query, category, own_brand, active, created_at
		FROM products WHERE id = ?
	`, id).Scan(&p.ID, &p.Name, &query, &category, &ownBrand, &active, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, apperrors.NewStoreError("get_product", err)
	}

	p.SearchQuery = query.String
	p.Category = category.String
	p.OwnBrand = ownBrand == 1
	p.Active = active == 1

	urls, err := s.productURLs(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	p.URLs = urls

	return &p, nil
}

// ListProducts retrieves products ordered by name, with their URL mappings.
func (s *SQLiteStore) ListProducts(ctx context.Context, activeOnly bool) ([]models.Product, error) {
	query := `SELECT id, name, search_query, category, own_brand, active, created_at FROM products`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.NewStoreError("list_products", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var p models.Product
		var searchQuery, category sql.NullString
		var ownBrand, active int
		if err := rows.Scan(&p.ID, &p.Name, &searchQuery, &category, &ownBrand, &active, &p.CreatedAt); err != nil {
			return nil, apperrors.NewStoreError("list_products", err)
		}
		p.SearchQuery = searchQuery.String
		p.Category = category.String
		p.OwnBrand = ownBrand == 1
		p.Active = active == 1
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStoreError("list_products", err)
	}

	for i := range products {
		urls, err := s.productURLs(ctx, products[i].ID)
		if err != nil {
			return nil, err
		}
		products[i].URLs = urls
	}

	return products, nil
}

func (s *SQLiteStore) productURLs(ctx context.Context, productID int64) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT store, url FROM product_urls WHERE product_id = ?`, productID)
	if err != nil {
		return nil, apperrors.NewStoreError("product_urls", err)
	}
	defer rows.Close()

	urls := make(map[string]string)
	for rows.Next() {
		var store, url string
		if err := rows.Scan(&store, &url); err != nil {
			return nil, apperrors.NewStoreError("product_urls", err)
		}
		urls[store] = url
	}
	return urls, rows.Err()
}

// DeleteProduct removes a product, its URL mapping and all its price
// records in one transaction.
func (s *SQLiteStore) DeleteProduct(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewStoreError("delete_product", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM prices WHERE product_id = ?`, id); err != nil {
		return apperrors.NewStoreError("delete_product", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM product_urls WHERE product_id = ?`, id); err != nil {
		return apperrors.NewStoreError("delete_product", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return apperrors.NewStoreError("delete_product", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.ErrNotFound
	}

	return tx.Commit()
}

// ============================================================================
// Time-Series Methods
// ============================================================================

// AppendPrices inserts the records for one product as a single transaction.
// Pure insert, no dedup at write time.
func (s *SQLiteStore) AppendPrices(ctx context.Context, productID int64, records []models.PriceRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewStoreError("append_prices", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO prices (product_id, date, store, url, price, original_price, currency, sku, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return apperrors.NewStoreError("append_prices", err)
	}
	defer stmt.Close()

	for _, r := range records {
		currency := r.Currency
		if currency == "" {
			currency = models.DefaultCurrency
		}
		_, err := stmt.ExecContext(ctx, productID, r.Date, r.Store, nullString(r.URL),
			nullFloat(r.Price), nullFloat(r.OriginalPrice), currency,
			nullString(r.SKU), nullString(r.Error))
		if err != nil {
			return apperrors.NewStoreError("append_prices", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewStoreError("append_prices", err)
	}

	return nil
}

const recordColumns = `p.id, p.product_id, pr.name, p.date, p.store, p.url,
	p.price, p.original_price, p.currency, p.sku, p.error, p.created_at`

// LatestPerStore returns, for each store, the most recent record with a
// non-null price for the given product. When several records share the
// maximum date the lowest price wins; ties on price fall back to the
// earliest insertion, so the result is deterministic.
func (s *SQLiteStore) LatestPerStore(ctx context.Context, productID int64) ([]models.PriceRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM prices p
		JOIN products pr ON pr.id = p.product_id
		JOIN (
			SELECT store, MAX(date) AS max_date
			FROM prices
			WHERE product_id = ? AND price IS NOT NULL
			GROUP BY store
		) m ON p.store = m.store AND p.date = m.max_date
		WHERE p.product_id = ? AND p.price IS NOT NULL
		ORDER BY p.store, p.price, p.id
	`, productID, productID)
	if err != nil {
		return nil, apperrors.NewStoreError("latest_per_store", err)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}

	return firstPerKey(records, func(r models.PriceRecord) string { return r.Store }), nil
}

// LatestAll returns the latest non-null-price record per (product, store)
// across the whole catalog, ordered by product name then price ascending.
func (s *SQLiteStore) LatestAll(ctx context.Context) ([]models.PriceRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM prices p
		JOIN products pr ON pr.id = p.product_id
		JOIN (
			SELECT product_id, store, MAX(date) AS max_date
			FROM prices
			WHERE price IS NOT NULL
			GROUP BY product_id, store
		) m ON p.product_id = m.product_id AND p.store = m.store AND p.date = m.max_date
		WHERE p.price IS NOT NULL
		ORDER BY pr.name, p.store, p.price, p.id
	`)
	if err != nil {
		return nil, apperrors.NewStoreError("latest_all", err)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}

	latest := firstPerKey(records, func(r models.PriceRecord) string {
		return fmt.Sprintf("%d|%s", r.ProductID, r.Store)
	})

	sort.SliceStable(latest, func(i, j int) bool {
		if latest[i].ProductName != latest[j].ProductName {
			return latest[i].ProductName < latest[j].ProductName
		}
		pi, pj := latest[i].Price, latest[j].Price
		return pi != nil && pj != nil && *pi < *pj
	})

	return latest, nil
}

// History returns records within the trailing window, optionally filtered
// by store, collapsed per (date, store) and ordered by date ascending.
// Duplicate same-day rows from re-runs collapse to the lowest price; rows
// that never resolved a price keep their error for the audit trail.
func (s *SQLiteStore) History(ctx context.Context, filter HistoryFilter) ([]models.PriceRecord, error) {
	cutoff := time.Now().AddDate(0, 0, -filter.Days).Format(models.DateFormat)

	query := `
		SELECT ` + recordColumns + `
		FROM prices p
		JOIN products pr ON pr.id = p.product_id
		WHERE p.product_id = ? AND p.date >= ?`
	args := []interface{}{filter.ProductID, cutoff}

	if filter.Store != "" {
		query += ` AND p.store = ?`
		args = append(args, filter.Store)
	}
	query += ` ORDER BY p.date, p.store, p.price IS NULL, p.price, p.id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewStoreError("history", err)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}

	// Ordering above puts the lowest priced row first within each
	// (date, store) group, with null prices last.
	return firstPerKey(records, func(r models.PriceRecord) string {
		return r.Date + "|" + r.Store
	}), nil
}

// MinPricesByDate returns the minimum non-null price per (product, store)
// for one calendar day.
func (s *SQLiteStore) MinPricesByDate(ctx context.Context, date string) ([]models.PriceRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.product_id, pr.name, p.store, MIN(p.price)
		FROM prices p
		JOIN products pr ON pr.id = p.product_id
		WHERE p.date = ? AND p.price IS NOT NULL
		GROUP BY p.product_id, p.store
		ORDER BY pr.name, p.store
	`, date)
	if err != nil {
		return nil, apperrors.NewStoreError("min_prices_by_date", err)
	}
	defer rows.Close()

	var records []models.PriceRecord
	for rows.Next() {
		var r models.PriceRecord
		var price float64
		if err := rows.Scan(&r.ProductID, &r.ProductName, &r.Store, &price); err != nil {
			return nil, apperrors.NewStoreError("min_prices_by_date", err)
		}
		r.Date = date
		r.Price = &price
		r.Currency = models.DefaultCurrency
		records = append(records, r)
	}

	return records, rows.Err()
}

// Stats returns summary statistics over the stored time series.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM prices`).Scan(&stats.TotalRecords); err != nil {
		return nil, apperrors.NewStoreError("stats", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&stats.TotalProducts); err != nil {
		return nil, apperrors.NewStoreError("stats", err)
	}

	var lastRun sql.NullString
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(date) FROM prices`).Scan(&lastRun); err != nil {
		return nil, apperrors.NewStoreError("stats", err)
	}
	stats.LastRun = lastRun.String

	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT store FROM prices ORDER BY store`)
	if err != nil {
		return nil, apperrors.NewStoreError("stats", err)
	}
	defer rows.Close()

	for rows.Next() {
		var store string
		if err := rows.Scan(&store); err != nil {
			return nil, apperrors.NewStoreError("stats", err)
		}
		stats.Stores = append(stats.Stores, store)
	}

	return stats, rows.Err()
}

// ============================================================================
// Helpers
// ============================================================================

func scanRecords(rows *sql.Rows) ([]models.PriceRecord, error) {
	var records []models.PriceRecord
	for rows.Next() {
		var r models.PriceRecord
		var url, sku, errMsg sql.NullString
		var price, original sql.NullFloat64

		if err := rows.Scan(&r.ID, &r.ProductID, &r.ProductName, &r.Date, &r.Store,
			&url, &price, &original, &r.Currency, &sku, &errMsg, &r.CreatedAt); err != nil {
			return nil, apperrors.NewStoreError("scan_record", err)
		}

		r.URL = url.String
		r.SKU = sku.String
		r.Error = errMsg.String
		if price.Valid {
			r.Price = &price.Float64
		}
		if original.Valid {
			r.OriginalPrice = &original.Float64
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// firstPerKey keeps the first record for each key, preserving input order.
func firstPerKey(records []models.PriceRecord, key func(models.PriceRecord) string) []models.PriceRecord {
	seen := make(map[string]bool, len(records))
	var out []models.PriceRecord
	for _, r := range records {
		k := key(r)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	return out
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}
