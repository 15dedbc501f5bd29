package main

import (
	"context"
	"flag"

	"go.uber.org/zap"

	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/logger"
	"storefront/internal/migrate"
)

func main() {
	down := flag.Bool("down", false, "revert all applied migrations")
	flag.Parse()

	cfg := config.FromEnv()
	l, err := logger.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer func() { _ = l.Sync() }()
	l = l.Named("migrate")

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		l.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	if *down {
		if err := migrate.Rollback(ctx, pool, l); err != nil {
			l.Fatal("revert migrations", zap.Error(err))
		}
		l.Info("migrations reverted")
		return
	}

	if err := migrate.Apply(ctx, pool, l); err != nil {
		l.Fatal("apply migrations", zap.Error(err))
	}
	l.Info("migrations applied")
}
