package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rl1809/catalog-service/internal/adapter/storage"
	"github.com/rl1809/catalog-service/internal/config"
	"github.com/rl1809/catalog-service/internal/port"
)

// catalogStore is an opened backend with its migration and cleanup hooks.
type catalogStore struct {
	repo    port.CatalogRepository
	migrate func(context.Context) error
	close   func()
}

func openStore(ctx context.Context, cfg config.StoreConfig) (*catalogStore, error) {
	switch cfg.Driver {
	case config.DriverMySQL:
		dsn, err := storage.MySQLDSN(cfg.MySQLDSN)
		if err != nil {
			return nil, err
		}
		db, err := sql.Open("mysql", dsn)
		if err != nil {
			return nil, fmt.Errorf("open mysql: %w", err)
		}
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("ping mysql: %w", err)
		}
		return &catalogStore{
			repo:    storage.NewMySQLAdapter(db),
			migrate: func(ctx context.Context) error { return storage.MigrateMySQL(ctx, db) },
			close:   func() { db.Close() },
		}, nil

	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		return &catalogStore{
			repo:    storage.NewPostgresAdapter(pool),
			migrate: func(ctx context.Context) error { return storage.MigratePostgres(ctx, pool) },
			close:   pool.Close,
		}, nil

	default:
		return &catalogStore{
			repo:    storage.NewMemoryAdapter(),
			migrate: func(context.Context) error { return nil },
			close:   func() {},
		}, nil
	}
}
