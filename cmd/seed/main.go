package main

import (
	"context"

	"go.uber.org/zap"

	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/logger"
	productrepo "storefront/internal/repository/product"
	userrepo "storefront/internal/repository/user"
	"storefront/internal/seed"
)

func main() {
	cfg := config.FromEnv()
	l, err := logger.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer func() { _ = l.Sync() }()

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		l.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	if err := seed.Apply(ctx, productrepo.NewPostgres(pool, l), userrepo.NewPostgres(pool, l), l); err != nil {
		l.Fatal("seed apply", zap.Error(err))
	}

	l.Info("seed applied", zap.String("demo_email", seed.DemoEmail))
}
