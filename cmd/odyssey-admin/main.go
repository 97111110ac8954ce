package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/odyssey-admin/cmd/odyssey-admin/cli"
	"github.com/odyssey-erp/odyssey-admin/internal/admin"
	"github.com/odyssey-erp/odyssey-admin/internal/app"
	"github.com/odyssey-erp/odyssey-admin/internal/audit"
	"github.com/odyssey-erp/odyssey-admin/internal/identity"
	jobmetrics "github.com/odyssey-erp/odyssey-admin/internal/jobs"
	"github.com/odyssey-erp/odyssey-admin/internal/observability"
	"github.com/odyssey-erp/odyssey-admin/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-admin/internal/platform/db"
	"github.com/odyssey-erp/odyssey-admin/internal/policy"
	"github.com/odyssey-erp/odyssey-admin/internal/purge"
	"github.com/odyssey-erp/odyssey-admin/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		if err := runJobs(ctx, cfg, os.Args[2:]); err != nil {
			logger.Error("jobs command", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	if err := serve(ctx, cfg, logger); err != nil {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := db.EnsureSchema(ctx, pool); err != nil {
		return err
	}

	var directoryCache *admin.Cache
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, directory cache disabled", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		directoryCache = admin.NewCache(redisClient, cfg.AdminCacheTTL)
	}

	verifier, err := identity.NewVerifier(identity.Config{
		Secret:   []byte(cfg.TokenSecret),
		Issuer:   cfg.TokenIssuer,
		Audience: cfg.TokenAudience,
		Leeway:   cfg.TokenLeeway,
	})
	if err != nil {
		return err
	}
	ident := identity.Middleware{
		Verifier:   verifier,
		SecretHash: []byte(cfg.AdminSharedSecretHash),
		Logger:     logger,
	}

	directory := admin.NewDirectory(admin.NewRepository(pool), directoryCache, logger)
	evaluator := policy.NewEvaluator(directory, logger)
	sink := audit.NewSink(audit.NewRepository(pool))

	metrics := observability.NewMetrics()
	purgeMetrics := jobmetrics.NewMetrics(metrics.Registerer())
	engine := purge.NewEngine(purge.NewStore(pool), evaluator, sink, purgeMetrics, logger, purge.Config{
		PageSize: cfg.PurgePageSize,
		Budget:   cfg.PurgeBudget,
	})

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:       logger,
		Config:       cfg,
		AdminHandler: admin.NewHandler(logger, directory, evaluator, sink, ident),
		PurgeHandler: purge.NewHandler(logger, engine, ident, cfg.PurgeRateLimit),
		JobHandler:   jobs.NewHandler(inspector, logger),
		Metrics:      metrics,
	})

	writeTimeout := cfg.AppWriteTimeout
	if purgeWrite := cfg.PurgeRequestTimeout() + 5*time.Second; purgeWrite > writeTimeout {
		writeTimeout = purgeWrite
	}
	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: writeTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func runJobs(ctx context.Context, cfg *app.Config, args []string) error {
	jobsCLI, err := cli.NewJobsCLI(cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer func() { _ = jobsCLI.Close() }()
	return jobsCLI.Run(ctx, args, os.Stdout)
}
