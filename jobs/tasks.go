package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskPurgeRetention deletes log records older than the retention window.
	TaskPurgeRetention = "logs:purge_retention"
)

// PurgeRetentionPayload configures one retention run. A zero Retention
// falls back to the job default.
type PurgeRetentionPayload struct {
	Retention time.Duration `json:"retention"`
}

// NewPurgeRetentionTask builds the asynq task for a retention run.
func NewPurgeRetentionTask(retention time.Duration) (*asynq.Task, error) {
	if retention < 0 {
		return nil, fmt.Errorf("jobs: negative retention %s", retention)
	}
	data, err := json.Marshal(PurgeRetentionPayload{Retention: retention})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPurgeRetention, data), nil
}
