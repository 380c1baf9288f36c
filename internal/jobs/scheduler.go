// Package jobs runs the CRM's background work on cron schedules.
package jobs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is one unit of scheduled work. Run receives a context bounded by the
// timeout the job was registered with.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler runs registered jobs on cron expressions with a seconds field.
// A job whose previous run is still going skips its tick, and panics are
// recovered and logged.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger

	mu      sync.Mutex
	entries map[string]cron.EntryID
}

func NewScheduler(logger *zap.Logger) *Scheduler {
	cronLog := cronLogger{logger: logger.Named("cron")}
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		logger:  logger,
		entries: make(map[string]cron.EntryID),
	}
}

// Register schedules job. Expressions such as "0 */30 * * * *", "@hourly"
// and "@every 15m" are accepted.
func (s *Scheduler) Register(spec string, job Job, timeout time.Duration) error {
	name := job.Name()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.entries[name]; dup {
		return fmt.Errorf("job %s is already registered", name)
	}

	id, err := s.cron.AddFunc(spec, func() { s.execute(job, timeout) })
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", spec, name, err)
	}
	s.entries[name] = id

	s.logger.Info("job registered",
		zap.String("job", name),
		zap.String("schedule", spec),
		zap.Duration("timeout", timeout))
	return nil
}

// Unregister drops a job; a run already in progress finishes normally.
func (s *Scheduler) Unregister(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.entries[name]
	if !ok {
		return fmt.Errorf("job %s is not registered", name)
	}
	s.cron.Remove(id)
	delete(s.entries, name)
	return nil
}

// Names lists registered jobs alphabetically
func (s *Scheduler) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NextRun returns when name fires next, or false if it is unknown or the
// scheduler has not been started.
func (s *Scheduler) NextRun(name string) (time.Time, bool) {
	s.mu.Lock()
	id, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	next := s.cron.Entry(id).Next
	return next, !next.IsZero()
}

func (s *Scheduler) Start() {
	s.logger.Info("job scheduler started", zap.Strings("jobs", s.Names()))
	s.cron.Start()
}

// Stop halts scheduling. The returned context is done once running jobs return.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("job scheduler stopping")
	return s.cron.Stop()
}

func (s *Scheduler) execute(job Job, timeout time.Duration) {
	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	log := s.logger.With(zap.String("job", job.Name()))
	start := time.Now()
	if err := job.Run(ctx); err != nil {
		log.Error("job failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return
	}
	log.Info("job finished", zap.Duration("duration", time.Since(start)))
}

// cronLogger routes robfig/cron's own logging through zap
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, zap.Any("details", keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, zap.Error(err), zap.Any("details", keysAndValues))
}
