package campaign

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/config"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/constants"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/metrics"
)

// Job names.
const (
	JobQuote  = "quote"
	JobNews   = "news"
	JobMeme   = "meme"
	JobReveal = "reveal"
	JobQuiz   = "quiz"
)

// Job run statuses.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

var (
	// ErrUnknownJob: no job registered under that name
	ErrUnknownJob = errors.New("unknown campaign job")
	// ErrJobRunning: the previous run of the job has not finished
	ErrJobRunning = errors.New("campaign job already running")
)

// RunRecorder stores the outcome of every job run.
type RunRecorder interface {
	RecordRun(ctx context.Context, job, status string, startedAt time.Time, elapsed time.Duration, runErr error) error
}

// Job is a daily task fired at Hour:Minute in the scheduler location.
type Job struct {
	Name   string
	Hour   int
	Minute int
	Run    func(ctx context.Context) error

	mu sync.Mutex
}

// Scheduler fires daily jobs. Each job skips a firing while its previous run is in progress.
type Scheduler struct {
	jobs     map[string]*Job
	location *time.Location
	timeout  time.Duration
	recorder RunRecorder
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time

	mu     sync.Mutex
	timers map[string]*time.Timer
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a Scheduler in location. recorder may be nil.
func NewScheduler(location *time.Location, recorder RunRecorder, m *metrics.Metrics, logger *slog.Logger) *Scheduler {
	if location == nil {
		location = time.UTC
	}
	return &Scheduler{
		jobs:     make(map[string]*Job),
		location: location,
		timeout:  constants.CampaignConfig.JobTimeout,
		recorder: recorder,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
		timers:   make(map[string]*time.Timer),
	}
}

// Add registers a job at clock (HH:MM).
func (s *Scheduler) Add(name, clock string, run func(ctx context.Context) error) error {
	hour, minute, err := config.ParseClock(clock)
	if err != nil {
		return fmt.Errorf("job %s: %w", name, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already registered", name)
	}
	s.jobs[name] = &Job{Name: name, Hour: hour, Minute: minute, Run: run}
	return nil
}

// Jobs returns the registered job names sorted by firing time.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	jobs := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, j int) bool {
		a, b := jobs[i].Hour*60+jobs[i].Minute, jobs[j].Hour*60+jobs[j].Minute
		if a != b {
			return a < b
		}
		return jobs[i].Name < jobs[j].Name
	})
	names := make([]string, 0, len(jobs))
	for _, job := range jobs {
		names = append(names, job.Name)
	}
	return names
}

// NextRun returns the next firing time of job after now.
func (s *Scheduler) NextRun(name string) (time.Time, error) {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, ErrUnknownJob
	}
	return nextOccurrence(s.now().In(s.location), job.Hour, job.Minute), nil
}

// Start arms every job. Runs stop when ctx is canceled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	for _, job := range s.jobs {
		s.armLocked(job)
	}
	s.logger.Info("CAMPAIGN_SCHEDULER_STARTED",
		slog.String("timezone", s.location.String()),
		slog.Int("jobs", len(s.jobs)),
	)
}

func (s *Scheduler) armLocked(job *Job) {
	if s.ctx == nil || s.ctx.Err() != nil {
		return
	}
	now := s.now().In(s.location)
	next := nextOccurrence(now, job.Hour, job.Minute)
	wait := next.Sub(now)
	s.timers[job.Name] = time.AfterFunc(wait, func() { s.fire(job) })
	s.logger.Debug("CAMPAIGN_JOB_ARMED", slog.String("job", job.Name), slog.Time("next", next))
}

func (s *Scheduler) fire(job *Job) {
	s.mu.Lock()
	ctx := s.ctx
	if ctx == nil || ctx.Err() != nil {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.armLocked(job)
	s.mu.Unlock()

	defer s.wg.Done()
	if err := s.execute(ctx, job); err != nil && !errors.Is(err, ErrJobRunning) {
		s.logger.Error("CAMPAIGN_JOB_FAILED", slog.String("job", job.Name), slog.Any("error", err))
	}
}

// RunNow runs name immediately and waits for it. It returns ErrJobRunning when a run is
// already in progress.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return ErrUnknownJob
	}
	return s.execute(ctx, job)
}

// Trigger starts name in the background and returns as soon as the run holds the job lock.
// The run is bound to the scheduler context, or to the background when the scheduler is not
// started.
func (s *Scheduler) Trigger(name string) error {
	s.mu.Lock()
	job, ok := s.jobs[name]
	ctx := s.ctx
	s.mu.Unlock()
	if !ok {
		return ErrUnknownJob
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if !s.acquire(job) {
		return ErrJobRunning
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer job.mu.Unlock()
		if err := s.run(ctx, job); err != nil {
			s.logger.Error("CAMPAIGN_JOB_FAILED", slog.String("job", job.Name), slog.Any("error", err))
		}
	}()
	return nil
}

func (s *Scheduler) execute(ctx context.Context, job *Job) error {
	if !s.acquire(job) {
		return ErrJobRunning
	}
	defer job.mu.Unlock()
	return s.run(ctx, job)
}

func (s *Scheduler) acquire(job *Job) bool {
	if job.mu.TryLock() {
		return true
	}
	s.logger.Warn("CAMPAIGN_JOB_OVERLAP", slog.String("job", job.Name))
	s.metrics.ObserveJob(job.Name, StatusSkipped)
	return false
}

// run executes job with the job timeout, recovering panics. The caller holds job.mu.
func (s *Scheduler) run(ctx context.Context, job *Job) (err error) {
	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	startedAt := s.now()
	s.logger.Info("CAMPAIGN_JOB_STARTED", slog.String("job", job.Name))

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name, r)
		}
		elapsed := s.now().Sub(startedAt)
		status := StatusSuccess
		if err != nil {
			status = StatusFailed
		}
		s.metrics.ObserveJob(job.Name, status)
		s.logger.Info("CAMPAIGN_JOB_DONE",
			slog.String("job", job.Name),
			slog.String("status", status),
			slog.Duration("elapsed", elapsed),
		)
		if s.recorder != nil {
			if recErr := s.recorder.RecordRun(context.WithoutCancel(ctx), job.Name, status, startedAt, elapsed, err); recErr != nil {
				s.logger.Warn("CAMPAIGN_RUN_RECORD_FAILED", slog.String("job", job.Name), slog.Any("error", recErr))
			}
		}
	}()

	return job.Run(runCtx)
}

// Stop disarms every job and waits for running firings to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	for name, timer := range s.timers {
		timer.Stop()
		delete(s.timers, name)
	}
	s.mu.Unlock()
	s.wg.Wait()
	s.logger.Info("CAMPAIGN_SCHEDULER_STOPPED")
}

// nextOccurrence returns the first hour:minute strictly after now, in now's location.
func nextOccurrence(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = time.Date(now.Year(), now.Month(), now.Day()+1, hour, minute, 0, 0, now.Location())
	}
	return next
}

// Register adds the five daily jobs of engine at the times of schedule.
func Register(s *Scheduler, engine *Engine, schedule config.ScheduleConfig) error {
	jobs := []struct {
		name  string
		clock string
		run   func(ctx context.Context) error
	}{
		{JobQuote, schedule.Quote, engine.SendQuote},
		{JobNews, schedule.News, engine.SendNewsDigest},
		{JobMeme, schedule.Meme, engine.SendMeme},
		{JobReveal, schedule.Reveal, engine.RevealQuiz},
		{JobQuiz, schedule.Quiz, engine.PublishQuiz},
	}
	for _, job := range jobs {
		if err := s.Add(job.name, job.clock, job.run); err != nil {
			return err
		}
	}
	return nil
}
