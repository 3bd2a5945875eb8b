package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storefront/catalog/internal/domain"
	"storefront/catalog/internal/state"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

const (
	createSnapshotTableSQL = `
	CREATE TABLE IF NOT EXISTS product_snapshots (
		version  TEXT PRIMARY KEY,
		products JSONB NOT NULL,
		saved_at TIMESTAMPTZ NOT NULL
	)`

	loadSnapshotSQL = `SELECT products, saved_at FROM product_snapshots WHERE version = $1`

	saveSnapshotSQL = `
	INSERT INTO product_snapshots (version, products, saved_at)
	VALUES ($1, $2, $3)
	ON CONFLICT (version)
	DO UPDATE SET products = $2, saved_at = $3`

	clearSnapshotSQL = `DELETE FROM product_snapshots WHERE version = $1`
)

var _ state.SnapshotStore = (*SnapshotRepository)(nil)

// SnapshotRepository stores the durable product cache in PostgreSQL, one row
// per cache format version.
type SnapshotRepository struct {
	db      *pgxpool.Pool
	version string
}

func NewSnapshotRepository(db *pgxpool.Pool, version string) *SnapshotRepository {
	return &SnapshotRepository{
		db:      db,
		version: version,
	}
}

// EnsureSchema creates the snapshot table if it does not exist.
func (r *SnapshotRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, createSnapshotTableSQL); err != nil {
		return fmt.Errorf("failed to create product_snapshots table: %w", err)
	}
	return nil
}

func (r *SnapshotRepository) Load(ctx context.Context) (*domain.ProductSnapshot, error) {
	var (
		data    []byte
		savedAt time.Time
	)
	err := r.db.QueryRow(ctx, loadSnapshotSQL, r.version).Scan(&data, &savedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load product snapshot: %w", err)
	}

	var products []domain.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("%w: %v", state.ErrCorruptSnapshot, err)
	}

	return &domain.ProductSnapshot{Products: products, SavedAt: savedAt}, nil
}

func (r *SnapshotRepository) Save(ctx context.Context, snapshot *domain.ProductSnapshot) error {
	data, err := json.Marshal(snapshot.Products)
	if err != nil {
		return fmt.Errorf("failed to encode product snapshot: %w", err)
	}

	if _, err := r.db.Exec(ctx, saveSnapshotSQL, r.version, data, snapshot.SavedAt); err != nil {
		return fmt.Errorf("failed to save product snapshot: %w", err)
	}

	log.Debugf("Saved %d products to product_snapshots (%s)", len(snapshot.Products), r.version)
	return nil
}

func (r *SnapshotRepository) Clear(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, clearSnapshotSQL, r.version); err != nil {
		return fmt.Errorf("failed to clear product snapshot: %w", err)
	}
	return nil
}
