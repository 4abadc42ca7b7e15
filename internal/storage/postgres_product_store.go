package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ashendes/order-fulfillment/internal/inventory"
	"github.com/ashendes/order-fulfillment/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresProductStore persists stock records in Postgres. Products are
// locked row by row (FOR UPDATE) so concurrent reserves against the same
// product serialize at the record; committed updates are recorded in the
// inventory_updates ledger for idempotent replay.
//
// Schema:
//
//	CREATE TABLE products (
//	    product_id   TEXT PRIMARY KEY,
//	    quantity     INT NOT NULL CHECK (quantity >= 0),
//	    last_updated TIMESTAMPTZ NOT NULL
//	);
//	CREATE TABLE inventory_updates (
//	    update_key TEXT PRIMARY KEY,
//	    success    BOOLEAN NOT NULL,
//	    updated_at TIMESTAMPTZ NOT NULL
//	);
type PostgresProductStore struct {
	db *pgxpool.Pool
}

// NewPostgresProductStore creates a store over the given pool
func NewPostgresProductStore(db *pgxpool.Pool) *PostgresProductStore {
	return &PostgresProductStore{db: db}
}

// Connect opens a pgx pool against the given DSN
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return pool, nil
}

// Get returns the current record for a product
func (p *PostgresProductStore) Get(ctx context.Context, productID string) (models.Product, bool, error) {
	var product models.Product
	err := p.db.QueryRow(ctx, `
		SELECT product_id, quantity, last_updated
		FROM products WHERE product_id = $1`, productID,
	).Scan(&product.ProductID, &product.Quantity, &product.LastUpdated)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Product{}, false, nil
	}
	if err != nil {
		return models.Product{}, false, fmt.Errorf("query product: %w", err)
	}
	return product, true, nil
}

// ApplyAndRecord implements inventory.ProductStore. The whole item list is
// applied inside one transaction; any shortage rolls everything back.
func (p *PostgresProductStore) ApplyAndRecord(ctx context.Context, key string, deltas []inventory.StockDelta, now time.Time) (models.UpdateInventoryResult, error) {
	tx, err := p.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.UpdateInventoryResult{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var prior models.UpdateInventoryResult
	err = tx.QueryRow(ctx, `
		SELECT success, updated_at FROM inventory_updates
		WHERE update_key = $1`, key,
	).Scan(&prior.Success, &prior.UpdatedAt)
	if err == nil {
		return prior, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return models.UpdateInventoryResult{}, fmt.Errorf("query update ledger: %w", err)
	}

	for _, delta := range deltas {
		var quantity int
		err := tx.QueryRow(ctx, `
			SELECT quantity FROM products
			WHERE product_id = $1 FOR UPDATE`, delta.ProductID,
		).Scan(&quantity)
		if errors.Is(err, pgx.ErrNoRows) {
			if delta.Delta < 0 {
				// reserving an unknown product is a shortage, not an error
				return models.UpdateInventoryResult{Success: false, UpdatedAt: now}, nil
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO products (product_id, quantity, last_updated)
				VALUES ($1, $2, $3)`, delta.ProductID, delta.Delta, now); err != nil {
				return models.UpdateInventoryResult{}, fmt.Errorf("insert product: %w", err)
			}
			continue
		}
		if err != nil {
			return models.UpdateInventoryResult{}, fmt.Errorf("lock product: %w", err)
		}

		if quantity+delta.Delta < 0 {
			// rollback via defer: all-or-nothing across the item list
			return models.UpdateInventoryResult{Success: false, UpdatedAt: now}, nil
		}

		if _, err := tx.Exec(ctx, `
			UPDATE products
			SET quantity = quantity + $2,
			    last_updated = GREATEST(last_updated + interval '1 microsecond', $3)
			WHERE product_id = $1`, delta.ProductID, delta.Delta, now); err != nil {
			return models.UpdateInventoryResult{}, fmt.Errorf("update product: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO inventory_updates (update_key, success, updated_at)
		VALUES ($1, TRUE, $2)
		ON CONFLICT (update_key) DO NOTHING`, key, now); err != nil {
		return models.UpdateInventoryResult{}, fmt.Errorf("record update: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return models.UpdateInventoryResult{}, fmt.Errorf("commit: %w", err)
	}
	return models.UpdateInventoryResult{Success: true, UpdatedAt: now}, nil
}
