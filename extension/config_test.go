package extension

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeWithDefaults(t *testing.T) {
	cfg := mergeWithDefaults(Config{MaxTxRetries: 2})
	assert.Equal(t, 2, cfg.MaxTxRetries)
	assert.Equal(t, "/booking", cfg.BasePath)
	assert.Equal(t, time.Minute, cfg.ExpirySweepInterval)
	assert.Equal(t, 500, cfg.ExpiryBatchSize)
}

func TestMergeConfigurations(t *testing.T) {
	yaml := Config{BasePath: "/api/booking", ExpiryBatchSize: 50}
	programmatic := Config{
		DisableMigrate:      true,
		BasePath:            "/ignored",
		ExpirySweepInterval: -1,
		ExpiryBatchSize:     10,
	}

	cfg := mergeConfigurations(yaml, programmatic)
	assert.True(t, cfg.DisableMigrate)
	assert.False(t, cfg.DisableRoutes)
	assert.Equal(t, "/api/booking", cfg.BasePath)
	assert.Equal(t, 50, cfg.ExpiryBatchSize)
	assert.Equal(t, time.Duration(-1), cfg.ExpirySweepInterval)
	assert.Equal(t, 5, cfg.MaxTxRetries)
}

func TestOptionsApplyToConfig(t *testing.T) {
	e := &Extension{}
	for _, opt := range []Option{
		WithDisableRoutes(),
		WithBasePath("/v2"),
		WithMaxTxRetries(7),
		WithExpirySweepInterval(30 * time.Second),
		WithExpiryBatchSize(25),
	} {
		opt(e)
	}

	require.True(t, e.config.DisableRoutes)
	assert.Equal(t, "/v2", e.config.BasePath)
	assert.Equal(t, 7, e.config.MaxTxRetries)
	assert.Equal(t, 30*time.Second, e.config.ExpirySweepInterval)
	assert.Equal(t, 25, e.config.ExpiryBatchSize)
	assert.Len(t, e.buildEngineOpts(), 4)
}
