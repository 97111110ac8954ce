package jobs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-admin/internal/policy"
	"github.com/odyssey-erp/odyssey-admin/internal/purge"
)

type stubPurger struct {
	calls []purge.Mode
	actor policy.Actor
	err   error
}

func (s *stubPurger) Purge(ctx context.Context, actor policy.Actor, mode purge.Mode) (purge.Result, error) {
	s.calls = append(s.calls, mode)
	s.actor = actor
	if s.err != nil {
		return purge.Result{}, s.err
	}
	return purge.Result{Mode: mode.Name(), DeletedCount: 7}, nil
}

func newRetentionJob(purger Purger, retention time.Duration, now time.Time) *PurgeRetentionJob {
	job := NewPurgeRetentionJob(purger, retention, nil)
	job.clock = func() time.Time { return now }
	return job
}

func TestPurgeRetentionUsesCutoffFromClock(t *testing.T) {
	now := time.Date(2024, 6, 1, 3, 0, 0, 0, time.UTC)
	purger := &stubPurger{}
	job := newRetentionJob(purger, 30*24*time.Hour, now)

	task, err := NewPurgeRetentionTask(0)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	require.Len(t, purger.calls, 1)
	assert.Equal(t, purge.BeforeTimestamp{Cutoff: now.Add(-30 * 24 * time.Hour)}, purger.calls[0])
	assert.True(t, policy.IsSuperadminRole(purger.actor.Role))
	assert.True(t, purger.actor.Authenticated())
}

func TestPurgeRetentionPayloadOverridesDefault(t *testing.T) {
	now := time.Date(2024, 6, 1, 3, 0, 0, 0, time.UTC)
	purger := &stubPurger{}
	job := newRetentionJob(purger, 30*24*time.Hour, now)

	task, err := NewPurgeRetentionTask(time.Hour)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, purge.BeforeTimestamp{Cutoff: now.Add(-time.Hour)}, purger.calls[0])
}

func TestPurgeRetentionDisabled(t *testing.T) {
	purger := &stubPurger{}
	job := newRetentionJob(purger, 0, time.Now())
	task, err := NewPurgeRetentionTask(0)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Empty(t, purger.calls)
}

func TestPurgeRetentionPropagatesFailure(t *testing.T) {
	purger := &stubPurger{err: errors.New("boom")}
	job := newRetentionJob(purger, time.Hour, time.Now())
	task, err := NewPurgeRetentionTask(0)
	require.NoError(t, err)
	require.Error(t, job.Handle(context.Background(), task))
}

func TestPurgeRetentionRejectsBadPayload(t *testing.T) {
	job := newRetentionJob(&stubPurger{}, time.Hour, time.Now())
	err := job.Handle(context.Background(), asynq.NewTask(TaskPurgeRetention, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	_, err = NewPurgeRetentionTask(-time.Second)
	assert.Error(t, err)
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func TestJobsHealth(t *testing.T) {
	cases := []struct {
		name      string
		inspector QueueInspector
		status    int
		body      string
	}{
		{"no inspector", nil, http.StatusOK, `"queue":"default"`},
		{"queue info", stubInspector{info: &asynq.QueueInfo{Queue: "default", Pending: 3}}, http.StatusOK, `"pending":3`},
		{"redis down", stubInspector{err: errors.New("dial tcp")}, http.StatusServiceUnavailable, `"ok":false`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := chi.NewRouter()
			r.Route("/jobs", NewHandler(tc.inspector, nil).MountRoutes)
			res := httptest.NewRecorder()
			r.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
			assert.Equal(t, tc.status, res.Code)
			assert.Contains(t, res.Body.String(), tc.body)
		})
	}
}
