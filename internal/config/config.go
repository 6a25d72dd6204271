package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/notifyhub/xnft-notify/internal/domain"
)

// Config holds all runtime configuration. It is built once in main and passed
// by value into the orchestrator; no other package reads the environment.
type Config struct {
	// Ledger
	RPC           string `mapstructure:"rpc"`
	XNFTProgramID string `mapstructure:"xnft_program_id"`
	Mint          string `mapstructure:"mint"`

	// Notification text
	Title   string `mapstructure:"title"`
	Message string `mapstructure:"message"`

	// External endpoints
	UserInfoEndpoint         string        `mapstructure:"user_info_endpoint"`
	PushNotificationEndpoint string        `mapstructure:"push_notification_endpoint"`
	Secret                   string        `mapstructure:"secret"`
	HTTPTimeout              time.Duration `mapstructure:"http_timeout"`

	// Holder snapshot used by the collection command
	HoldersSnapshot string `mapstructure:"holders_snapshot"`

	// Batching: BatchDelayMS is the pause between batches in milliseconds.
	// LookupRateLimit caps user info lookups per second; 0 disables it.
	BatchSize       int `mapstructure:"batch_size"`
	BatchDelayMS    int `mapstructure:"batch_delay_ms"`
	LookupRateLimit int `mapstructure:"lookup_rate_limit"`

	// Result cache
	CacheBackend  string `mapstructure:"cache_backend"`
	CacheFile     string `mapstructure:"cache_file"`
	DatabaseURL   string `mapstructure:"database_url"`
	DBMaxConns    int32  `mapstructure:"db_max_conns"`
	DBMinConns    int32  `mapstructure:"db_min_conns"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	RedisCacheKey string `mapstructure:"redis_cache_key"`

	// Logging
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
	LogFile   string `mapstructure:"log_file"`

	// Metrics are pushed here at the end of a run when set.
	PushgatewayURL string `mapstructure:"pushgateway_url"`
}

// Cache backends.
const (
	CacheBackendFile     = "file"
	CacheBackendPostgres = "postgres"
	CacheBackendRedis    = "redis"
)

var defaults = map[string]any{
	"rpc":                        "",
	"xnft_program_id":            "",
	"mint":                       "",
	"title":                      "",
	"message":                    "",
	"user_info_endpoint":         "",
	"push_notification_endpoint": "",
	"secret":                     "",
	"http_timeout":               10 * time.Second,
	"holders_snapshot":           "data/example-holders-snapshot.json",
	"batch_size":                 100,
	"batch_delay_ms":             1000,
	"lookup_rate_limit":          0,
	"cache_backend":              CacheBackendFile,
	"cache_file":                 "data/userCache.json",
	"database_url":               "",
	"db_max_conns":               5,
	"db_min_conns":               1,
	"redis_addr":                 "localhost:6379",
	"redis_password":             "",
	"redis_db":                   0,
	"redis_cache_key":            "xnft-notify:resolved_users",
	"log_level":                  "info",
	"log_format":                 "json",
	"log_file":                   "",
	"pushgateway_url":            "",
}

// New returns a viper instance with every key defaulted and bound to the
// environment variable of the same name in upper case (RPC, MINT, ...).
// Callers may bind CLI flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	return v
}

// Load reads envFile (when it exists) into the process environment and
// decodes v into a Config. A missing env file is not an error.
func Load(v *viper.Viper, envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	switch cfg.CacheBackend {
	case CacheBackendFile, CacheBackendPostgres, CacheBackendRedis:
	default:
		return Config{}, fmt.Errorf("%w: %q", domain.ErrUnknownCacheBackend, cfg.CacheBackend)
	}

	return cfg, nil
}

// BatchDelay is BatchDelayMS as a duration.
func (c Config) BatchDelay() time.Duration {
	return time.Duration(c.BatchDelayMS) * time.Millisecond
}

// ValidateScan reports the first missing key needed for a ledger scan.
func (c Config) ValidateScan() error {
	return firstMissing(
		kv{"RPC", c.RPC},
		kv{"XNFT_PROGRAM_ID", c.XNFTProgramID},
		kv{"MINT", c.Mint},
	)
}

// ValidateLookup reports whether the user info endpoint is configured.
func (c Config) ValidateLookup() error {
	return firstMissing(kv{"USER_INFO_ENDPOINT", c.UserInfoEndpoint})
}

// ValidatePush reports the first missing key needed to send a notification.
func (c Config) ValidatePush() error {
	return firstMissing(
		kv{"PUSH_NOTIFICATION_ENDPOINT", c.PushNotificationEndpoint},
		kv{"SECRET", c.Secret},
	)
}

type kv struct {
	key   string
	value string
}

func firstMissing(pairs ...kv) error {
	for _, p := range pairs {
		if p.value == "" {
			return fmt.Errorf("%w: %s is not defined", domain.ErrMissingConfig, p.key)
		}
	}
	return nil
}
