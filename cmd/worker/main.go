package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/odyssey-erp/odyssey-admin/internal/app"
	"github.com/odyssey-erp/odyssey-admin/internal/audit"
	jobmetrics "github.com/odyssey-erp/odyssey-admin/internal/jobs"
	"github.com/odyssey-erp/odyssey-admin/internal/platform/db"
	"github.com/odyssey-erp/odyssey-admin/internal/policy"
	"github.com/odyssey-erp/odyssey-admin/internal/purge"
	"github.com/odyssey-erp/odyssey-admin/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()
	if err := db.EnsureSchema(ctx, pool); err != nil {
		logger.Error("ensure schema", slog.Any("error", err))
		os.Exit(1)
	}

	// SystemActor has no email, so the evaluator never needs the directory.
	evaluator := policy.NewEvaluator(nil, logger)
	sink := audit.NewSink(audit.NewRepository(pool))
	engine := purge.NewEngine(purge.NewStore(pool), evaluator, sink,
		jobmetrics.NewMetrics(prometheus.DefaultRegisterer), logger, purge.Config{
			PageSize: cfg.PurgePageSize,
			Budget:   cfg.PurgeBudget,
		})

	retentionJob := jobs.NewPurgeRetentionJob(engine, cfg.PurgeRetention, logger)

	var cron []jobs.CronRegistration
	if cfg.PurgeRetention > 0 && cfg.PurgeRetentionCron != "" {
		retentionTask, err := jobs.NewPurgeRetentionTask(0)
		if err != nil {
			logger.Error("build retention task", slog.Any("error", err))
			os.Exit(1)
		}
		cron = append(cron, jobs.CronRegistration{
			Spec:    cfg.PurgeRetentionCron,
			Task:    retentionTask,
			Options: []asynq.Option{asynq.MaxRetry(0), asynq.Timeout(cfg.PurgeRequestTimeout())},
		})
		logger.Info("retention purge scheduled",
			slog.String("cron", cfg.PurgeRetentionCron),
			slog.Duration("retention", cfg.PurgeRetention),
		)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskPurgeRetention, Handler: retentionJob.Handle},
		},
		Cron: cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
