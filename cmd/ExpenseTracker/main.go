package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sebuszqo/ExpenseTracker/config"
	database "github.com/sebuszqo/ExpenseTracker/db"
	"github.com/sebuszqo/ExpenseTracker/internal/auth"
	"github.com/sebuszqo/ExpenseTracker/internal/finance/application"
	"github.com/sebuszqo/ExpenseTracker/internal/finance/infrastructure"
	"github.com/sebuszqo/ExpenseTracker/internal/finance/interfaces"
	"github.com/sebuszqo/ExpenseTracker/internal/logger"
	"github.com/sebuszqo/ExpenseTracker/internal/respond"
	"github.com/sebuszqo/ExpenseTracker/internal/user"
	"go.uber.org/zap"
)

const revocationCleanupInterval = 10 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Missing configuration, update to start server: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.DB.MigrateOnStart {
		if err := database.RunMigrations(cfg.DB.ConnectionString); err != nil {
			log.Fatal("could not run migrations", zap.Error(err))
		}
		log.Info("database migrations applied")
	}

	dbService, err := database.NewDBService(ctx, cfg.DB, logger.Component(log, "db"))
	if err != nil {
		log.Fatal("could not initialize database", zap.Error(err))
	}
	defer dbService.Close()

	revocations, closeRevocations, err := newRevocationStore(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal("could not initialize session revocation store", zap.Error(err))
	}
	defer closeRevocations()

	verifier, err := auth.NewFirebaseVerifier(ctx, cfg.Auth.FirebaseProjectID, cfg.Auth.JWKSURL,
		&http.Client{Timeout: cfg.Auth.ProviderTimeout})
	if err != nil {
		log.Fatal("could not initialize identity token verifier", zap.Error(err))
	}

	jwtManager, err := auth.NewJWTManager(cfg.Auth.SessionSecret)
	if err != nil {
		log.Fatal("could not initialize session token manager", zap.Error(err))
	}

	userRepo := user.NewUserRepository(dbService.DB)
	userService := user.NewUserService(userRepo)

	authLog := logger.Component(log, "auth")
	authService := auth.NewAuthService(auth.Options{
		Verifier:    verifier,
		Users:       userService,
		Tokens:      jwtManager,
		Revocations: revocations,
		SessionTTL:  cfg.Auth.SessionTTL,
		Logger:      authLog,
	})
	authHandler := auth.NewHandler(authService, cfg.IsProduction(), cfg.Auth.SessionTTL, authLog)

	financeLog := logger.Component(log, "finance")
	categoryRepo := infrastructure.NewCategoryRepository(dbService.DB)
	categoryService := application.NewCategoryService(categoryRepo)
	categoryHandler := interfaces.NewCategoryHandler(categoryService, respond.JSON, respond.Error, financeLog)

	transactionRepo := infrastructure.NewTransactionRepository(dbService.DB)
	transactionService := application.NewTransactionService(transactionRepo, categoryService)
	transactionHandler := interfaces.NewTransactionHandler(transactionService, respond.JSON, respond.Error, financeLog)

	server := NewServer(logger.Component(log, "http"), dbService, cfg.CORSOrigin,
		authHandler, authService, transactionHandler, categoryHandler)
	server.RegisterRoutes()

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      server,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("addr", httpServer.Addr), zap.String("env", cfg.Env))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			log.Fatal("server failed to start", zap.Error(err))
		}
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
		return
	}
	log.Info("server stopped")
}

// newRevocationStore uses Redis when REDIS_URL is set and an in-process map
// otherwise. The in-process store does not survive restarts and is not shared
// between replicas.
func newRevocationStore(ctx context.Context, cfg config.RedisConfig, log *zap.Logger) (auth.RevocationStore, func(), error) {
	if cfg.URL == "" {
		store := auth.NewMemoryRevocationStore()
		store.StartCleanup(ctx, revocationCleanupInterval)
		log.Warn("REDIS_URL not set, session revocations are kept in memory")
		return store, func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}

	log.Info("session revocations stored in redis", zap.String("addr", opts.Addr))
	return auth.NewRedisRevocationStore(client), func() { _ = client.Close() }, nil
}
