package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifyhub/xnft-notify/internal/config"
	"github.com/notifyhub/xnft-notify/internal/domain"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(config.New(), "")
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, time.Second, cfg.BatchDelay())
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, config.CacheBackendFile, cfg.CacheBackend)
	assert.Equal(t, "data/userCache.json", cfg.CacheFile)
	assert.Equal(t, "data/example-holders-snapshot.json", cfg.HoldersSnapshot)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("BATCH_SIZE", "25")
	t.Setenv("BATCH_DELAY_MS", "50")
	t.Setenv("HTTP_TIMEOUT", "3s")
	t.Setenv("TITLE", "Drop")
	t.Setenv("CACHE_BACKEND", "redis")

	cfg, err := config.Load(config.New(), "")
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.BatchSize)
	assert.Equal(t, 50*time.Millisecond, cfg.BatchDelay())
	assert.Equal(t, 3*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "Drop", cfg.Title)
	assert.Equal(t, config.CacheBackendRedis, cfg.CacheBackend)
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("MINT=MintFromFile\nSECRET=s3cret\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("MINT")
		os.Unsetenv("SECRET")
	})

	cfg, err := config.Load(config.New(), path)
	require.NoError(t, err)
	assert.Equal(t, "MintFromFile", cfg.Mint)
	assert.Equal(t, "s3cret", cfg.Secret)
}

func TestLoad_MissingEnvFileIsIgnored(t *testing.T) {
	_, err := config.Load(config.New(), filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
}

func TestLoad_UnknownCacheBackend(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "s3")

	_, err := config.Load(config.New(), "")
	require.ErrorIs(t, err, domain.ErrUnknownCacheBackend)
}

func TestValidate(t *testing.T) {
	full := config.Config{
		RPC:                      "http://rpc",
		XNFTProgramID:            "prog",
		Mint:                     "mint",
		UserInfoEndpoint:         "http://users",
		PushNotificationEndpoint: "http://push",
		Secret:                   "s",
	}
	require.NoError(t, full.ValidateScan())
	require.NoError(t, full.ValidateLookup())
	require.NoError(t, full.ValidatePush())

	tests := []struct {
		name    string
		mutate  func(*config.Config)
		check   func(config.Config) error
		wantKey string
	}{
		{"rpc", func(c *config.Config) { c.RPC = "" }, config.Config.ValidateScan, "RPC"},
		{"mint", func(c *config.Config) { c.Mint = "" }, config.Config.ValidateScan, "MINT"},
		{"user info", func(c *config.Config) { c.UserInfoEndpoint = "" }, config.Config.ValidateLookup, "USER_INFO_ENDPOINT"},
		{"secret", func(c *config.Config) { c.Secret = "" }, config.Config.ValidatePush, "SECRET"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := full
			tc.mutate(&c)
			err := tc.check(c)
			require.ErrorIs(t, err, domain.ErrMissingConfig)
			assert.Contains(t, err.Error(), tc.wantKey+" is not defined")
		})
	}
}
