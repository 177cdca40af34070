package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("RISKBUCKET_DATA_DIR", dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, 8001, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "anonymous", cfg.DefaultProfile)
	assert.Equal(t, 1000.0, cfg.DefaultBucketCash)
	assert.Equal(t, 10000.0, cfg.DefaultAccountCash)
	assert.Equal(t, 4, cfg.StockSearchLimit)
	assert.Equal(t, "0 22 * * 1-5", cfg.SnapshotSchedule)
}

func TestLoad_Overrides(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	t.Setenv("RISKBUCKET_DATA_DIR", dir)
	t.Setenv("GO_PORT", "9100")
	t.Setenv("DEV_MODE", "true")
	t.Setenv("DEFAULT_BUCKET_CASH", "250.5")
	t.Setenv("STOCK_SEARCH_LIMIT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.DirExists(t, dir)
	assert.Equal(t, 9100, cfg.Port)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, 250.5, cfg.DefaultBucketCash)
	assert.Equal(t, 4, cfg.StockSearchLimit, "unparsable values fall back to the default")
}

func TestValidate(t *testing.T) {
	valid := Config{Port: 8001, StockSearchLimit: 4, DefaultProfile: "p"}
	assert.NoError(t, valid.Validate())

	badPort := valid
	badPort.Port = 0
	assert.Error(t, badPort.Validate())

	badLimit := valid
	badLimit.StockSearchLimit = 0
	assert.Error(t, badLimit.Validate())

	badCash := valid
	badCash.DefaultBucketCash = -1
	assert.Error(t, badCash.Validate())
}
