package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"storefront/internal/auth"
	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/domain"
	"storefront/internal/events"
	"storefront/internal/httpserver"
	"storefront/internal/idempotency"
	"storefront/internal/logger"
	cartrepo "storefront/internal/repository/cart"
	orderrepo "storefront/internal/repository/order"
	productrepo "storefront/internal/repository/product"
	userrepo "storefront/internal/repository/user"
	cartsvc "storefront/internal/service/cart"
	ordersvc "storefront/internal/service/order"
	productsvc "storefront/internal/service/product"
	usersvc "storefront/internal/service/user"
	"storefront/internal/storage"
)

func main() {
	cfg := config.FromEnv()
	l, err := logger.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer func() { _ = l.Sync() }()

	if err := cfg.Validate(); err != nil {
		l.Fatal("invalid config", zap.Error(err))
	}

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		l.Fatal("connect to db", zap.Error(err))
	}
	defer dbpool.Close()

	var images storage.Store
	if cfg.S3Bucket != "" {
		awsCfg, endpoint, err := storage.LoadAWSConfig(ctx)
		if err != nil {
			l.Fatal("load aws config", zap.Error(err))
		}
		images = storage.NewS3(awsCfg, endpoint, cfg.S3Bucket, cfg.S3PublicBaseURL, l)
	} else {
		l.Warn("S3_BUCKET not set, image uploads disabled")
	}

	orderOpts := []ordersvc.Option{}
	if cfg.RedisURL != "" {
		client, err := idempotency.Connect(ctx, cfg.RedisURL)
		if err != nil {
			l.Fatal("connect to redis", zap.Error(err))
		}
		defer client.Close()
		orderOpts = append(orderOpts, ordersvc.WithKeyStore(idempotency.New(client, cfg.IdempotencyTTL, l)))
	}
	if len(cfg.KafkaBrokers) > 0 {
		producer := events.NewProducer(cfg.KafkaBrokers, cfg.KafkaOrderTopic, l)
		defer func() {
			if err := producer.Close(); err != nil {
				l.Warn("close kafka producer", zap.Error(err))
			}
		}()
		orderOpts = append(orderOpts, ordersvc.WithPublisher(producer))
	}

	tokens := auth.NewManager(cfg.JWTSecret, cfg.JWTTTL)

	userRepo := userrepo.NewPostgres(dbpool, l)
	productRepo := productrepo.NewPostgres(dbpool, l)
	cartRepo := cartrepo.NewPostgres(dbpool, l)
	orderRepo := orderrepo.NewPostgres(dbpool, l)

	srv, err := httpserver.New(cfg.HTTPAddr, l, httpserver.Deps{
		DB:          dbpool,
		Tokens:      tokens,
		Users:       usersvc.New(userRepo, tokens, images, l),
		Products:    productsvc.New(productRepo, images, l),
		Carts:       cartsvc.New(cartRepo, productRepo, totalsMode(cfg.CartTotalsMode), l),
		Orders:      ordersvc.New(orderRepo, cartRepo, l, orderOpts...),
		CORSOrigins: cfg.CORSAllowedOrigins,
	})
	if err != nil {
		l.Fatal("init server", zap.Error(err))
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		l.Info("received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		l.Error("server error", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		l.Error("graceful shutdown failed", zap.Error(err))
	} else {
		l.Info("server stopped")
	}
}

func totalsMode(mode string) domain.TotalsMode {
	if mode == config.TotalsModeSubtract {
		return domain.TotalsSubtract
	}
	return domain.TotalsLineCount
}
