package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/event-registration/backend/internal/auth"
	"github.com/ayush/event-registration/backend/internal/config"
	"github.com/ayush/event-registration/backend/internal/logging"
	"github.com/ayush/event-registration/backend/internal/server"
	"github.com/ayush/event-registration/backend/internal/store"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSON(os.Stdout, cfg.LogLevel)
	ctx := context.Background()

	if err := cfg.Validate(); err != nil {
		fatal(ctx, logger, "invalid configuration", err)
	}

	// ── PostgreSQL ────────────────────────────────────────────
	pgPool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		fatal(ctx, logger, "postgres connect", err)
	}
	defer pgPool.Close()
	pgStore := store.NewPostgresStore(pgPool)
	if err := pgStore.Migrate(ctx); err != nil {
		fatal(ctx, logger, "postgres migrate", err)
	}

	// ── MongoDB ──────────────────────────────────────────────
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		fatal(ctx, logger, "mongo connect", err)
	}
	defer mongoClient.Disconnect(ctx)
	mongoStore := store.NewMongoStore(mongoClient.Database(cfg.MongoDB))
	if err := mongoStore.EnsureIndexes(ctx, cfg.UniqueRegistrations); err != nil {
		fatal(ctx, logger, "mongo indexes", err)
	}

	// ── MinIO ────────────────────────────────────────────────
	minioStore, err := store.NewMinioStore(
		ctx, cfg.MinioEndpoint, cfg.MinioAccessKey,
		cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL,
	)
	if err != nil {
		fatal(ctx, logger, "minio connect", err)
	}

	deps := server.Deps{
		Users:         pgStore,
		Events:        mongoStore,
		Registrations: mongoStore,
		Files:         minioStore,
		Hasher:        auth.NewBcryptHasher(0),
		Logger:        logger,
	}

	// ── Redis (optional registration lock) ───────────────────
	if cfg.RedisAddr != "" {
		rdb, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			fatal(ctx, logger, "redis connect", err)
		}
		defer rdb.Close()
		deps.Locker = store.NewRedisLocker(rdb)
	}

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.New(cfg, deps),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Minute,
		WriteTimeout:      time.Minute,
	}

	go func() {
		logger.Info(ctx, "backend listening", "port", cfg.Port, "api_base", cfg.APIBasePath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal(ctx, logger, "server error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "shutting down")
	shutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		logger.Error(ctx, "shutdown", "err", err)
	}
}

func fatal(ctx context.Context, logger logging.Logger, msg string, err error) {
	logger.Error(ctx, msg, "err", err)
	os.Exit(1)
}
