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
// built-in defaults, applies NFTMARKET_* environment variable overrides, and
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

// applyEnvOverrides reads well-known NFTMARKET_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Engine ──
	setUint64(&cfg.Engine.FeeBps, "NFTMARKET_ENGINE_FEE_BPS")
	setStr(&cfg.Engine.Beneficiary, "NFTMARKET_ENGINE_BENEFICIARY")

	// ── Chain ──
	setStr(&cfg.Chain.RPCURL, "NFTMARKET_CHAIN_RPC_URL")
	setInt64(&cfg.Chain.ChainID, "NFTMARKET_CHAIN_CHAIN_ID")
	setUint64(&cfg.Chain.GasLimit, "NFTMARKET_CHAIN_GAS_LIMIT")
	setStr(&cfg.Chain.PrivateKey, "NFTMARKET_CHAIN_PRIVATE_KEY")
	setStr(&cfg.Chain.EncryptedKeyPath, "NFTMARKET_CHAIN_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Chain.KeyPassword, "NFTMARKET_CHAIN_KEY_PASSWORD")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "NFTMARKET_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "NFTMARKET_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "NFTMARKET_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "NFTMARKET_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "NFTMARKET_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "NFTMARKET_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "NFTMARKET_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "NFTMARKET_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "NFTMARKET_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "NFTMARKET_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "NFTMARKET_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "NFTMARKET_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "NFTMARKET_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "NFTMARKET_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "NFTMARKET_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "NFTMARKET_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "NFTMARKET_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "NFTMARKET_S3_REGION")
	setStr(&cfg.S3.Bucket, "NFTMARKET_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "NFTMARKET_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "NFTMARKET_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "NFTMARKET_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "NFTMARKET_S3_FORCE_PATH_STYLE")
	setDuration(&cfg.S3.ArchiveInterval, "NFTMARKET_S3_ARCHIVE_INTERVAL")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "NFTMARKET_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "NFTMARKET_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "NFTMARKET_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "NFTMARKET_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "NFTMARKET_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "NFTMARKET_SERVER_RATE_WINDOW")
	setInt(&cfg.Server.MutateRateLimit, "NFTMARKET_SERVER_MUTATE_RATE_LIMIT")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "NFTMARKET_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "NFTMARKET_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "NFTMARKET_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "NFTMARKET_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "NFTMARKET_MODE")
	setStr(&cfg.LogLevel, "NFTMARKET_LOG_LEVEL")
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

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
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
