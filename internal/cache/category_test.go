package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront/catalog/internal/domain"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingFetcher struct {
	calls   int
	folders []domain.Folder
	err     error
}

func (f *countingFetcher) fetch(_ context.Context) ([]domain.Folder, error) {
	f.calls++
	return f.folders, f.err
}

func TestCategoryCacheServesWithinTTL(t *testing.T) {
	mock := clock.NewMock()
	f := &countingFetcher{folders: []domain.Folder{{ID: "1", Name: "A"}}}
	c := NewCategoryCache(f.fetch, 5*time.Minute, mock)
	ctx := context.Background()

	got, err := c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, f.folders, got)
	assert.Equal(t, 1, f.calls)

	mock.Add(5*time.Minute - time.Millisecond)
	_, err = c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, f.calls)

	mock.Add(2 * time.Millisecond)
	_, err = c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, f.calls)
}

func TestCategoryCacheInvalidate(t *testing.T) {
	f := &countingFetcher{}
	c := NewCategoryCache(f.fetch, time.Hour, clock.NewMock())
	ctx := context.Background()

	_, _ = c.Get(ctx)
	c.Invalidate()
	_, _ = c.Get(ctx)
	assert.Equal(t, 2, f.calls)
}

func TestCategoryCacheErrorLeavesSlotEmpty(t *testing.T) {
	f := &countingFetcher{err: errors.New("boom")}
	c := NewCategoryCache(f.fetch, time.Hour, clock.NewMock())
	ctx := context.Background()

	_, err := c.Get(ctx)
	require.Error(t, err)

	f.err = nil
	f.folders = []domain.Folder{{ID: "1"}}
	got, err := c.Get(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 2, f.calls)
}
