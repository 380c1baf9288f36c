package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bettersystems/crm-api/internal/domain"
	"github.com/bettersystems/crm-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type stubSyncer struct {
	calls    int
	lastOpts service.SyncOptions
	err      error
}

func (s *stubSyncer) DefaultOptions() service.SyncOptions {
	return service.SyncOptions{MaxResults: 50, Type: "all", FilterBusinessOnly: true}
}

func (s *stubSyncer) Sync(_ context.Context, opts service.SyncOptions) (*domain.EmailSyncResultDTO, error) {
	s.calls++
	s.lastOpts = opts
	if s.err != nil {
		return nil, s.err
	}
	return &domain.EmailSyncResultDTO{Created: 2, Updated: 1}, nil
}

type funcJob struct {
	name string
	run  func(ctx context.Context) error
}

func (j funcJob) Name() string                  { return j.name }
func (j funcJob) Run(ctx context.Context) error { return j.run(ctx) }

func noop(context.Context) error { return nil }

func TestEmailSyncJob_Run(t *testing.T) {
	t.Run("uses scheduled defaults", func(t *testing.T) {
		syncer := &stubSyncer{}
		job := NewEmailSyncJob(syncer, zap.NewNop())

		require.NoError(t, job.Run(context.Background()))
		assert.Equal(t, EmailSyncJobName, job.Name())
		assert.Equal(t, 1, syncer.calls)
		assert.Equal(t, int64(50), syncer.lastOpts.MaxResults)
		assert.True(t, syncer.lastOpts.FilterBusinessOnly)
	})

	t.Run("returns sync failure", func(t *testing.T) {
		syncer := &stubSyncer{err: errors.New("gmail unavailable")}
		err := NewEmailSyncJob(syncer, zap.NewNop()).Run(context.Background())
		assert.EqualError(t, err, "gmail unavailable")
	})
}

func TestScheduler_RegisterUnregister(t *testing.T) {
	s := NewScheduler(zap.NewNop())

	require.NoError(t, s.Register("0 */30 * * * *", funcJob{EmailSyncJobName, noop}, time.Minute))
	require.NoError(t, s.Register("@every 1h", funcJob{"cleanup", noop}, 0))
	assert.Equal(t, []string{"cleanup", EmailSyncJobName}, s.Names())

	assert.Error(t, s.Register("@hourly", funcJob{EmailSyncJobName, noop}, 0))
	assert.Error(t, s.Register("not a cron", funcJob{"broken", noop}, 0))

	require.NoError(t, s.Unregister("cleanup"))
	assert.Error(t, s.Unregister("cleanup"))
	assert.Equal(t, []string{EmailSyncJobName}, s.Names())

	_, ok := s.NextRun("cleanup")
	assert.False(t, ok)
}

func TestScheduler_RunsWithDeadlineAndLogsFailures(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := NewScheduler(zap.New(core))
	deadlines := make(chan bool, 1)

	require.NoError(t, s.Register("@every 1s", funcJob{"tick", func(ctx context.Context) error {
		_, has := ctx.Deadline()
		select {
		case deadlines <- has:
		default:
		}
		return errors.New("boom")
	}}, time.Minute))
	s.Start()

	next, ok := s.NextRun("tick")
	assert.True(t, ok)
	assert.False(t, next.IsZero())

	select {
	case has := <-deadlines:
		assert.True(t, has)
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}
	<-s.Stop().Done()

	assert.NotEmpty(t, logs.FilterMessage("job failed").FilterField(zap.String("job", "tick")).All())
}
