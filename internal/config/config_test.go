package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o600))
	return dir
}

func TestLoadFromDefaults(t *testing.T) {
	dir := writeConfig(t, "server:\n  port: 9090\n")

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "localhost:9090", cfg.Server.Addr())
	assert.Equal(t, 1000, cfg.Inventory.FastLoadLimit)
	assert.Equal(t, 30*time.Second, cfg.Inventory.FillRetryInterval)
	assert.Equal(t, 5000, cfg.Inventory.MaxProducts)
	assert.Equal(t, 1000, cfg.Inventory.FolderLimit)
	assert.Equal(t, "updated,desc", cfg.Inventory.ProductOrder)
	assert.Equal(t, time.Hour, cfg.Cache.ProductTTL)
	assert.Equal(t, 5*time.Minute, cfg.Cache.CategoryTTL)
	assert.Equal(t, time.Hour, cfg.Cache.QueryTTL)
	assert.Equal(t, "redis", cfg.Cache.Backend)
}

func TestLoadFromOverrides(t *testing.T) {
	dir := writeConfig(t, `
inventory:
  base_url: http://proxy:8081/api/remap/1.2
  fast_load_limit: 200
  max_products: 800
cache:
  backend: memory
  category_ttl: 30s
  version: v9
`)

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, "http://proxy:8081/api/remap/1.2", cfg.Inventory.BaseURL)
	assert.Equal(t, 200, cfg.Inventory.FastLoadLimit)
	assert.Equal(t, 800, cfg.Inventory.MaxProducts)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 30*time.Second, cfg.Cache.CategoryTTL)
	assert.Equal(t, "v9", cfg.Cache.Version)
}

func TestLoadFromMissingFile(t *testing.T) {
	_, err := LoadFrom(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestLoadFromRejectsUnknownBackend(t *testing.T) {
	dir := writeConfig(t, "cache:\n  backend: memcached\n")

	_, err := LoadFrom(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "memcached")
}

func TestValidateMaxProductsBelowFastLoad(t *testing.T) {
	dir := writeConfig(t, "inventory:\n  fast_load_limit: 1000\n  max_products: 10\n")

	_, err := LoadFrom(dir)
	require.Error(t, err)
}
