package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"anoa.com/notifiq/internal/bootstrap"
	"anoa.com/notifiq/internal/config"
	"anoa.com/notifiq/internal/server"
	"anoa.com/notifiq/pkg/database"
	"anoa.com/notifiq/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) (err error) {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(cfg.LogLevel, cfg.IsDevelopment()); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Sync() // best effort

	log := logger.WithModule("bootstrap")

	db, err := database.Connect(cfg.Database.DSN(), cfg.IsDevelopment())
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, database.Close())
	}()

	if err := bootstrap.Migrate(db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	if err := bootstrap.SeedSuperAdmin(db, cfg.SuperAdminEmail, cfg.SuperAdminPassword); err != nil {
		return fmt.Errorf("failed to seed super admin: %w", err)
	}

	redisClient, err := connectRedis(ctx, cfg.RedisURL)
	if err != nil {
		log.Warn("redis unavailable, continuing without it", zap.Error(err))
	}
	if redisClient != nil {
		defer func() {
			err = multierr.Append(err, redisClient.Close())
		}()
	}

	srv, err := server.NewServer(ctx, cfg, db, redisClient)
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}
	return srv.Run(ctx)
}

func connectRedis(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
