package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/alanyoungcy/nftmarket/internal/blob/s3"
	"github.com/alanyoungcy/nftmarket/internal/cache/redis"
	"github.com/alanyoungcy/nftmarket/internal/chain"
	"github.com/alanyoungcy/nftmarket/internal/config"
	"github.com/alanyoungcy/nftmarket/internal/domain"
	"github.com/alanyoungcy/nftmarket/internal/notify"
	"github.com/alanyoungcy/nftmarket/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// Stores
	ItemStore    domain.ItemStore
	AuctionStore domain.AuctionStore
	EventStore   domain.EventStore
	FeeStore     domain.FeeStore

	// Redis
	EventBus    domain.EventBus
	LockManager domain.LockManager
	RateLimiter domain.RateLimiter

	// Chain custody
	Chain     *chain.Client
	Registry  domain.AssetRegistry
	Inspector domain.AssetInspector
	Ledger    domain.ValueLedger

	// Blob storage
	BlobWriter domain.BlobWriter
	BlobReader domain.BlobReader
	Archiver   *s3blob.Archiver

	// Notifications
	Notifier *notify.Notifier
}

// needsChain returns true for modes that settle trades on chain.
func needsChain(mode string) bool {
	switch mode {
	case "serve", "full":
		return true
	default:
		return false
	}
}

// needsRedis returns true for modes that publish events or take distributed
// locks.
func needsRedis(mode string) bool {
	switch mode {
	case "serve", "full":
		return true
	default:
		return false
	}
}

// needsS3 returns true for modes that archive the event journal to object
// storage.
func needsS3(mode string) bool {
	switch mode {
	case "archive", "full":
		return true
	default:
		return false
	}
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL (every mode persists or reads the journal) ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.ItemStore = postgres.NewItemStore(pool)
	deps.AuctionStore = postgres.NewAuctionStore(pool)
	deps.EventStore = postgres.NewEventStore(pool)
	deps.FeeStore = postgres.NewFeeStore(pool)

	// --- Redis (event fan-out, locks, rate limiting) ---
	if needsRedis(cfg.Mode) {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.EventBus = redis.NewEventBus(redisClient)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
	}

	// --- Chain client (custodian wallet, registry, ledger) ---
	if needsChain(cfg.Mode) {
		chainClient, err := chain.Dial(ctx, chain.ClientConfig{
			RPCURL:  cfg.Chain.RPCURL,
			ChainID: cfg.Chain.ChainID,
			Key: chain.KeyConfig{
				RawPrivateKey:    cfg.Chain.PrivateKey,
				EncryptedKeyPath: cfg.Chain.EncryptedKeyPath,
				KeyPassword:      cfg.Chain.KeyPassword,
			},
			GasLimit: cfg.Chain.GasLimit,
		}, logger)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: chain: %w", err)
		}
		closers = append(closers, chainClient.Close)

		registry, err := chain.NewRegistry(chainClient)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: asset registry: %w", err)
		}
		deps.Chain = chainClient
		deps.Registry = registry
		deps.Inspector = registry
		deps.Ledger = chain.NewLedger(chainClient)
	}

	// --- S3 blob storage (event journal archive) ---
	if needsS3(cfg.Mode) {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.BlobWriter = s3blob.NewWriter(s3Client)
		deps.BlobReader = s3blob.NewReader(s3Client)
		deps.Archiver = s3blob.NewArchiver(deps.BlobWriter, deps.EventStore, logger)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
