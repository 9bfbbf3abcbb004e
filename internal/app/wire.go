package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/alanyoungcy/suibid/internal/blob/s3"
	"github.com/alanyoungcy/suibid/internal/cache/redis"
	"github.com/alanyoungcy/suibid/internal/config"
	"github.com/alanyoungcy/suibid/internal/domain"
	"github.com/alanyoungcy/suibid/internal/notify"
	"github.com/alanyoungcy/suibid/internal/platform/sui"
	"github.com/alanyoungcy/suibid/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// Ledger access
	SuiClient *sui.Client
	TxBuilder *sui.TxBuilder

	// Projections and registry (Redis)
	Store       domain.ProjectionStore
	Registry    domain.EntityRegistry
	Board       domain.Leaderboard
	Locks       domain.LockManager
	RateLimiter domain.RateLimiter
	Bus         *redis.UpdateBus

	// Durable journal and cursors (Postgres)
	Journal domain.EventJournal
	Cursors domain.CursorStore

	// Blob storage (optional)
	BlobWriter domain.BlobWriter
	BlobReader domain.BlobReader

	// Notifications
	Notifier *notify.Notifier
}

// needsPostgres returns true for modes that run the indexer and therefore
// require the durable journal.
func needsPostgres(mode string) bool {
	switch mode {
	case "indexer", "full":
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

	// --- Sui ledger access ---
	deps.SuiClient = sui.NewClient(cfg.Sui.RPCURL, cfg.Sui.PackageID)
	deps.TxBuilder = sui.NewTxBuilder(cfg.Sui.PackageID)

	// --- PostgreSQL (only for modes that run the indexer) ---
	if needsPostgres(cfg.Mode) {
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
		deps.Journal = postgres.NewEventJournal(pool)
		deps.Cursors = postgres.NewCursorStore(pool)
	}

	// --- Redis ---
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

	deps.Store = redis.NewProjectionStore(redisClient)
	deps.Registry = redis.NewRegistry(redisClient)
	deps.Board = redis.NewLeaderboard(redisClient)
	deps.Locks = redis.NewLockManager(redisClient)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.Bus = redis.NewUpdateBus(redisClient)

	// --- S3 blob storage (optional, enables the journal archiver) ---
	if needsPostgres(cfg.Mode) && cfg.S3.Bucket != "" {
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
