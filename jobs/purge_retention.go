package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-admin/internal/policy"
	"github.com/odyssey-erp/odyssey-admin/internal/purge"
)

// SystemActor is the identity scheduled purges run as.
var SystemActor = policy.Actor{UID: "system", Role: policy.RoleSuperadmin}

// Purger is the part of purge.Engine the job needs.
type Purger interface {
	Purge(ctx context.Context, actor policy.Actor, mode purge.Mode) (purge.Result, error)
}

// PurgeRetentionJob deletes log records older than the retention window.
type PurgeRetentionJob struct {
	Purger    Purger
	Retention time.Duration
	Logger    *slog.Logger
	clock     func() time.Time
}

// NewPurgeRetentionJob initialises the retention purge handler.
func NewPurgeRetentionJob(purger Purger, retention time.Duration, logger *slog.Logger) *PurgeRetentionJob {
	return &PurgeRetentionJob{
		Purger:    purger,
		Retention: retention,
		Logger:    logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes one retention purge.
func (j *PurgeRetentionJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Purger == nil {
		return errors.New("purge retention: handler not configured")
	}
	var payload PurgeRetentionPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	retention := payload.Retention
	if retention <= 0 {
		retention = j.Retention
	}
	if retention <= 0 {
		j.logger().Info("retention disabled, skipping purge")
		return nil
	}

	cutoff := j.now().Add(-retention)
	logger := j.logger().With(
		slog.Duration("retention", retention),
		slog.Time("cutoff", cutoff),
	)
	logger.Info("starting retention purge")

	result, err := j.Purger.Purge(ctx, SystemActor, purge.BeforeTimestamp{Cutoff: cutoff})
	if err != nil {
		logger.Error("retention purge failed", slog.Any("error", err))
		return err
	}
	logger.Info("completed retention purge", slog.Int("deleted", result.DeletedCount))
	return nil
}

func (j *PurgeRetentionJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskPurgeRetention))
	}
	return slog.Default().With(slog.String("job", TaskPurgeRetention))
}

func (j *PurgeRetentionJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

// WithClock overrides the internal clock for deterministic tests.
func (j *PurgeRetentionJob) WithClock(clock func() time.Time) {
	if j != nil && clock != nil {
		j.clock = clock
	}
}
