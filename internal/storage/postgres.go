package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/pauljones0/gallery-price-sync/internal/models"
	"github.com/pauljones0/gallery-price-sync/internal/util"
)

// uniqueViolation is the PostgreSQL error code for a duplicate key.
const uniqueViolation = "23505"

const (
	pingRetries    = 5
	pingRetryDelay = 500 * time.Millisecond
)

const productSchema = `
CREATE TABLE IF NOT EXISTS product (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	asin TEXT NOT NULL DEFAULT '',
	current_amazon_price NUMERIC(10, 2),
	current_amazon_price_timestamp TIMESTAMPTZ,
	brand_id BIGINT,
	visynet_max_price NUMERIC(10, 2),
	original_number TEXT NOT NULL DEFAULT ''
);`

const productColumns = `id, title, asin, current_amazon_price, current_amazon_price_timestamp, brand_id, visynet_max_price, original_number`

// Postgres stores products in the "product" table.
type Postgres struct {
	db *sql.DB
}

// NewPostgres opens dsn, waits for the server and creates the table if needed.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pingWithRetry(ctx, db.PingContext, pingRetries, pingRetryDelay); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, productSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create product table: %w", err)
	}
	return &Postgres{db: db}, nil
}

// pingWithRetry waits for the server to accept connections, which it may not
// yet do when both start together.
func pingWithRetry(ctx context.Context, ping func(context.Context) error, retries int, delay time.Duration) error {
	return util.RetryWithBackoff(ctx, retries, delay, func(attempt int) error {
		if attempt > 0 {
			slog.Info("Waiting for postgres", "attempt", attempt+1)
		}
		return ping(ctx)
	})
}

func (s *Postgres) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (models.ProductRecord, error) {
	var (
		p         models.ProductRecord
		asin      sql.NullString
		title     sql.NullString
		original  sql.NullString
		current   sql.NullFloat64
		observed  sql.NullTime
		brandID   sql.NullInt64
		threshold sql.NullFloat64
	)
	if err := row.Scan(&p.ID, &title, &asin, &current, &observed, &brandID, &threshold, &original); err != nil {
		return models.ProductRecord{}, err
	}
	p.Title = title.String
	p.ASIN = asin.String
	p.OriginalNumber = original.String
	if current.Valid {
		p.CurrentAmazonPrice = &current.Float64
	}
	if observed.Valid {
		t := observed.Time.UTC()
		p.CurrentAmazonPriceTimestamp = &t
	}
	if brandID.Valid {
		p.BrandID = &brandID.Int64
	}
	if threshold.Valid {
		p.VisynetMaxPrice = &threshold.Float64
	}
	return p, nil
}

// List returns the products with the given ids, or every product when ids is empty.
func (s *Postgres) List(ctx context.Context, ids []string) (map[string]models.ProductRecord, error) {
	query := `SELECT ` + productColumns + ` FROM product`
	var args []any
	if len(ids) > 0 {
		query += ` WHERE id = ANY($1)`
		args = append(args, pq.Array(ids))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	products := make(map[string]models.ProductRecord)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}

func (s *Postgres) Get(ctx context.Context, id string) (models.ProductRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM product WHERE id = $1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ProductRecord{}, models.ErrProductNotFound
	}
	if err != nil {
		return models.ProductRecord{}, fmt.Errorf("get product %s: %w", id, err)
	}
	return p, nil
}

func (s *Postgres) Create(ctx context.Context, p models.ProductRecord) (models.ProductRecord, error) {
	row := s.db.QueryRowContext(ctx, `
INSERT INTO product (id, title, original_number)
VALUES ($1, $2, $3)
RETURNING `+productColumns, p.ID, p.Title, p.OriginalNumber)
	created, err := scanProduct(row)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return models.ProductRecord{}, models.ErrProductExists
		}
		return models.ProductRecord{}, fmt.Errorf("insert product %s: %w", p.ID, err)
	}
	return created, nil
}

func (s *Postgres) Update(ctx context.Context, id string, u models.ProductUpdate) (models.ProductRecord, error) {
	setClause, args := updateClause(u)
	if setClause == "" {
		return s.Get(ctx, id)
	}
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE product SET %s WHERE id = $%d RETURNING %s`, setClause, len(args), productColumns)

	p, err := scanProduct(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return models.ProductRecord{}, models.ErrProductNotFound
	}
	if err != nil {
		return models.ProductRecord{}, fmt.Errorf("update product %s: %w", id, err)
	}
	return p, nil
}

// updateClause builds the SET list for the fields set in u, with numbered
// placeholders starting at $1.
func updateClause(u models.ProductUpdate) (string, []any) {
	var (
		sets []string
		args []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if u.Title != nil {
		add("title", *u.Title)
	}
	if u.ASIN != nil {
		add("asin", *u.ASIN)
	}
	if u.BrandID != nil {
		add("brand_id", *u.BrandID)
	}
	if u.VisynetMaxPrice != nil {
		add("visynet_max_price", *u.VisynetMaxPrice)
	}
	if u.CurrentAmazonPrice != nil {
		add("current_amazon_price", *u.CurrentAmazonPrice)
	}
	if u.CurrentAmazonPriceTimestamp != nil {
		add("current_amazon_price_timestamp", *u.CurrentAmazonPriceTimestamp)
	}
	if u.OriginalNumber != nil {
		add("original_number", *u.OriginalNumber)
	}
	return strings.Join(sets, ", "), args
}

func (s *Postgres) Put(ctx context.Context, p models.ProductRecord) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO product (`+productColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE SET
	title = EXCLUDED.title,
	asin = EXCLUDED.asin,
	current_amazon_price = EXCLUDED.current_amazon_price,
	current_amazon_price_timestamp = EXCLUDED.current_amazon_price_timestamp,
	brand_id = EXCLUDED.brand_id,
	visynet_max_price = EXCLUDED.visynet_max_price,
	original_number = EXCLUDED.original_number`,
		p.ID, p.Title, p.ASIN, p.CurrentAmazonPrice, p.CurrentAmazonPriceTimestamp, p.BrandID, p.VisynetMaxPrice, p.OriginalNumber)
	if err != nil {
		return fmt.Errorf("upsert product %s: %w", p.ID, err)
	}
	return nil
}

func (s *Postgres) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM product WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete product %s: %w", id, err)
	}
	return nil
}

func (s *Postgres) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM product`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}
