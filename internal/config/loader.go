package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies SUIBID_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known SUIBID_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Sui ──
	setStr(&cfg.Sui.RPCURL, "SUIBID_SUI_RPC_URL")
	setStr(&cfg.Sui.PackageID, "SUIBID_SUI_PACKAGE_ID")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "SUIBID_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "SUIBID_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "SUIBID_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "SUIBID_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "SUIBID_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "SUIBID_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "SUIBID_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "SUIBID_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "SUIBID_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "SUIBID_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "SUIBID_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SUIBID_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SUIBID_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "SUIBID_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "SUIBID_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "SUIBID_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "SUIBID_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "SUIBID_S3_REGION")
	setStr(&cfg.S3.Bucket, "SUIBID_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "SUIBID_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "SUIBID_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "SUIBID_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "SUIBID_S3_FORCE_PATH_STYLE")

	// ── Indexer ──
	setDuration(&cfg.Indexer.PollInterval, "SUIBID_INDEXER_POLL_INTERVAL")
	setInt(&cfg.Indexer.PageSize, "SUIBID_INDEXER_PAGE_SIZE")
	setDuration(&cfg.Indexer.LockTTL, "SUIBID_INDEXER_LOCK_TTL")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "SUIBID_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "SUIBID_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "SUIBID_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "SUIBID_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "SUIBID_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "SUIBID_SERVER_RATE_WINDOW")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "SUIBID_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "SUIBID_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "SUIBID_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "SUIBID_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "SUIBID_MODE")
	setStr(&cfg.LogLevel, "SUIBID_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
