package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-admin/jobs"
)

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

type queueInspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
	ListScheduledTasks(queue string, opts ...asynq.ListOption) ([]*asynq.TaskInfo, error)
	Close() error
}

// JobsCLI wraps manual management helpers for Asynq jobs.
type JobsCLI struct {
	client    enqueuer
	inspector queueInspector
}

// NewJobsCLI initialises the CLI helpers using the provided Redis address.
func NewJobsCLI(redisAddr string) (*JobsCLI, error) {
	if redisAddr == "" {
		return nil, errors.New("jobs cli: redis address required")
	}
	opts := asynq.RedisClientOpt{Addr: redisAddr}
	return &JobsCLI{client: asynq.NewClient(opts), inspector: asynq.NewInspector(opts)}, nil
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var err error
	if c.inspector != nil {
		if closeErr := c.inspector.Close(); closeErr != nil {
			err = closeErr
		}
	}
	if c.client != nil {
		if closeErr := c.client.Close(); closeErr != nil {
			err = closeErr
		}
	}
	return err
}

// Run dispatches one subcommand:
//
//	trigger logs:purge_retention [retention]
//	inspect
//	scheduled [size]
func (c *JobsCLI) Run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New("jobs cli: expected trigger, inspect or scheduled")
	}
	switch args[0] {
	case "trigger":
		if len(args) < 2 {
			return errors.New("jobs cli: trigger needs a job name")
		}
		var retention time.Duration
		if len(args) > 2 {
			d, err := time.ParseDuration(args[2])
			if err != nil {
				return fmt.Errorf("jobs cli: retention: %w", err)
			}
			retention = d
		}
		info, err := c.Trigger(ctx, args[1], retention)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
		return err
	case "inspect":
		stats, err := c.InspectQueue(ctx)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
		return err
	case "scheduled":
		size := 0
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("jobs cli: size: %w", err)
			}
			size = n
		}
		tasks, err := c.ListScheduled(ctx, size)
		if err != nil {
			return err
		}
		for _, t := range tasks {
			if _, err := fmt.Fprintf(out, "%s %s next=%s\n", t.ID, t.Type, t.NextProcessAt.UTC().Format(time.RFC3339)); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("jobs cli: unknown command %q", args[0])
	}
}

// Trigger enqueues a supported job by name. A zero retention lets the worker
// apply its configured default.
func (c *JobsCLI) Trigger(ctx context.Context, name string, retention time.Duration) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	var task *asynq.Task
	var err error
	switch name {
	case jobs.TaskPurgeRetention:
		task, err = jobs.NewPurgeRetentionTask(retention)
	default:
		return nil, fmt.Errorf("jobs cli: unsupported job %s", name)
	}
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.Queue(jobs.QueueDefault), asynq.MaxRetry(0))
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string
	Pending   int
	Active    int
	Scheduled int
	Retry     int
}

// InspectQueue reports the queue metrics for the default queue.
func (c *JobsCLI) InspectQueue(ctx context.Context) (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("jobs cli: inspector not configured")
	}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return QueueStats{}, err
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
	}
	return stats, nil
}

// ListScheduled returns scheduled task infos for observability.
func (c *JobsCLI) ListScheduled(ctx context.Context, size int) ([]*asynq.TaskInfo, error) {
	if c == nil || c.inspector == nil {
		return nil, errors.New("jobs cli: inspector not configured")
	}
	if size <= 0 {
		size = 10
	}
	return c.inspector.ListScheduledTasks(jobs.QueueDefault, asynq.PageSize(size), asynq.Page(1))
}
