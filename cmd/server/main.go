package main // Entry point package

import (
	"context"   // shutdown deadline
	"errors"    // http.ErrServerClosed check
	"log"       // fallback logging before zap is ready
	"net/http"  // http.ErrServerClosed
	"os"        // process signals
	"os/signal" // signal.NotifyContext
	"syscall"   // SIGTERM
	"time"      // shutdown timeout

	"github.com/labstack/echo/v4" // Echo web framework
	"go.uber.org/zap"             // structured logging

	"github.com/iliyamo/points-ledger/internal/config"     // Internal config loader
	"github.com/iliyamo/points-ledger/internal/database"   // store connection and schema
	"github.com/iliyamo/points-ledger/internal/handler"    // HTTP handlers
	"github.com/iliyamo/points-ledger/internal/logger"     // zap construction
	"github.com/iliyamo/points-ledger/internal/middleware" // rate limiter
	"github.com/iliyamo/points-ledger/internal/queue"      // event publishing and activity consumer
	"github.com/iliyamo/points-ledger/internal/repository" // repositories
	"github.com/iliyamo/points-ledger/internal/router"     // Internal router setup
	"github.com/iliyamo/points-ledger/internal/service"    // points core
)

func main() {
	cfg := config.Load() // Load environment config

	zl, err := logger.New(logger.ConfigFromEnv())
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DB)
	if err != nil {
		zl.Fatal("open database", zap.String("driver", cfg.DB.Driver), zap.Error(err))
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		zl.Fatal("migrate", zap.Error(err))
	}

	accounts := repository.NewAccountRepo(db)
	svc := service.New(db, accounts, repository.NewLedgerRepo(db), repository.NewTokenRepo(db), service.Options{
		BaseGrant:  cfg.Points.BaseGrant,
		MaxBatch:   cfg.Points.MaxBatch,
		CodeLength: cfg.Points.CodeLength,
		CodeFormat: cfg.Points.CodeFormat,
		Logger:     zl.Named("points"),
	})

	var events queue.Publisher = queue.NopPublisher{}
	if cfg.Events.Enabled {
		pub := queue.NewAMQPPublisher(cfg.Events.URL, zl.Named("events"))
		defer pub.Close()
		events = pub
	}
	if cfg.Events.Consumer {
		go func() {
			if err := queue.StartActivityConsumer(ctx, cfg.Events.URL, "logs", zl.Named("activity")); err != nil && !errors.Is(err, context.Canceled) {
				zl.Error("activity consumer stopped", zap.Error(err))
			}
		}()
	}

	var limiter echo.MiddlewareFunc
	if rdb := config.NewRedisClient(); rdb != nil {
		defer rdb.Close()
		limiter = middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, zl.Named("ratelimit"))
	} else {
		zl.Warn("redis unavailable, rate limiting disabled")
	}

	e := router.New(router.Deps{
		DB:        db,
		Auth:      handler.NewAuthHandler(cfg, accounts, zl.Named("auth")),
		Points:    handler.NewPointsHandler(svc, events, zl.Named("points")),
		Admin:     handler.NewAdminTokenHandler(svc, events, zl.Named("admin")),
		JWTSecret: cfg.JWTSecret,
		RateLimit: limiter,
		Log:       zl.Named("http"),
	})

	addr := ":" + cfg.Port // Address string with port
	go func() {
		zl.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("driver", cfg.DB.Driver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zl.Error("shutdown", zap.Error(err))
	}
	zl.Info("stopped")
}
