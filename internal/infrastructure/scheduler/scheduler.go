package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrInvalidConfig indicates an invalid scheduler configuration
	ErrInvalidConfig = errors.New("scheduler: invalid configuration")
	// ErrAlreadyRunning indicates Start was called twice
	ErrAlreadyRunning = errors.New("scheduler: already running")
	// ErrJobNotFound indicates TriggerNow was called with an unregistered job name
	ErrJobNotFound = errors.New("scheduler: job not found")
)

// Job is one reconciliation task run on an interval. Run returns a summary
// value for the run history; per-item failures are the job's own business.
type Job interface {
	Name() string
	Run(ctx context.Context) (any, error)
}

// JobFunc adapts a function to the Job interface
type JobFunc struct {
	JobName string
	Fn      func(ctx context.Context) (any, error)
}

func (j JobFunc) Name() string                         { return j.JobName }
func (j JobFunc) Run(ctx context.Context) (any, error) { return j.Fn(ctx) }

// RunRecord is one historical job execution
type RunRecord struct {
	Job        string    `json:"job"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Report     any       `json:"report,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// Config holds the reconciliation scheduler configuration
type Config struct {
	// JobTimeout bounds a single run.
	JobTimeout time.Duration
	// MaxHistory caps the in-memory run history kept for the ops API.
	MaxHistory int
}

// Validate applies defaults and rejects nonsense values
func (c *Config) Validate() error {
	if c.JobTimeout == 0 {
		c.JobTimeout = 15 * time.Minute
	}
	if c.JobTimeout < 0 {
		return ErrInvalidConfig
	}
	if c.MaxHistory == 0 {
		c.MaxHistory = 50
	}
	if c.MaxHistory < 0 {
		return ErrInvalidConfig
	}
	return nil
}

type scheduledJob struct {
	job      Job
	interval time.Duration
}

// Scheduler runs reconciliation jobs on fixed intervals. Each job runs on
// its own ticker; runs of the same job never overlap because the ticker
// loop is sequential.
type Scheduler struct {
	config Config
	logger *zap.Logger

	mu        sync.Mutex
	jobs      []scheduledJob
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	isRunning bool

	historyMu sync.RWMutex
	history   []RunRecord
}

// New creates a reconciliation scheduler
func New(config Config, logger *zap.Logger) (*Scheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Scheduler{
		config:  config,
		logger:  logger,
		history: make([]RunRecord, 0, config.MaxHistory),
	}, nil
}

// Register adds a job to run on the given interval. Must be called before
// Start.
func (s *Scheduler) Register(job Job, interval time.Duration) error {
	if interval <= 0 {
		return ErrInvalidConfig
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return ErrAlreadyRunning
	}
	s.jobs = append(s.jobs, scheduledJob{job: job, interval: interval})
	return nil
}

// Start launches the ticker loops. It returns immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return ErrAlreadyRunning
	}
	s.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for _, sj := range s.jobs {
		s.wg.Add(1)
		go s.loop(ctx, sj)
	}

	s.logger.Info("reconciliation scheduler started",
		zap.Int("jobs", len(s.jobs)),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)
	return nil
}

// Stop cancels the ticker loops and waits for in-flight runs to finish or
// ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("reconciliation scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TriggerNow runs a registered job once, outside its schedule. Used by the
// ops API endpoints.
func (s *Scheduler) TriggerNow(ctx context.Context, name string) (RunRecord, error) {
	s.mu.Lock()
	var found *scheduledJob
	for i := range s.jobs {
		if s.jobs[i].job.Name() == name {
			found = &s.jobs[i]
			break
		}
	}
	s.mu.Unlock()

	if found == nil {
		return RunRecord{}, fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	return s.runOnce(ctx, found.job), nil
}

// History returns the most recent run records, newest first.
func (s *Scheduler) History() []RunRecord {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()
	out := make([]RunRecord, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Scheduler) loop(ctx context.Context, sj scheduledJob) {
	defer s.wg.Done()

	ticker := time.NewTicker(sj.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, sj.job)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, job Job) RunRecord {
	runCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	record := RunRecord{Job: job.Name(), StartedAt: time.Now()}
	report, err := job.Run(runCtx)
	record.FinishedAt = time.Now()
	record.Report = report
	if err != nil {
		record.Error = err.Error()
		s.logger.Warn("reconciliation job failed",
			zap.String("job", job.Name()),
			zap.Error(err),
		)
	} else {
		s.logger.Info("reconciliation job finished",
			zap.String("job", job.Name()),
			zap.Duration("took", record.FinishedAt.Sub(record.StartedAt)),
		)
	}

	s.appendHistory(record)
	return record
}

func (s *Scheduler) appendHistory(record RunRecord) {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()
	s.history = append([]RunRecord{record}, s.history...)
	if len(s.history) > s.config.MaxHistory {
		s.history = s.history[:s.config.MaxHistory]
	}
}
