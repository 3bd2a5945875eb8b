// Package state persists the transformed product catalog across restarts.
package state

import (
	"context"
	"errors"

	"storefront/catalog/internal/domain"
)

// ErrCorruptSnapshot is returned when a stored snapshot cannot be decoded.
var ErrCorruptSnapshot = errors.New("corrupt product snapshot")

// SnapshotStore is the durable product cache. Load returns nil without error
// when nothing is stored under the current version.
type SnapshotStore interface {
	Load(ctx context.Context) (*domain.ProductSnapshot, error)
	Save(ctx context.Context, snapshot *domain.ProductSnapshot) error
	Clear(ctx context.Context) error
}
