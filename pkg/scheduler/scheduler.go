// Package scheduler fires stored jobs on cron or fixed-interval
// schedules, publishing proactive message activities into conversations
// captured earlier as conversation references.
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/adhocore/gronx"
	"github.com/google/uuid"

	"github.com/dotsetgreg/agenthost/pkg/bus"
	"github.com/dotsetgreg/agenthost/pkg/logger"
	"github.com/dotsetgreg/agenthost/pkg/schema"
)

type ScheduleKind string

const (
	// KindEvery fires at a fixed millisecond interval.
	KindEvery ScheduleKind = "every"
	// KindCron fires on a standard cron expression.
	KindCron ScheduleKind = "cron"
)

type Schedule struct {
	Kind    ScheduleKind `json:"kind"`
	EveryMS int64        `json:"every_ms,omitempty"`
	Expr    string       `json:"expr,omitempty"`
}

type JobState struct {
	NextRunMS int64 `json:"next_run_ms"`
	LastRunMS int64 `json:"last_run_ms,omitempty"`
	RunCount  int   `json:"run_count"`
}

// Job is one stored proactive message.
type Job struct {
	ID        string                       `json:"id"`
	Name      string                       `json:"name"`
	Schedule  Schedule                     `json:"schedule"`
	Message   string                       `json:"message"`
	Reference schema.ConversationReference `json:"reference"`
	Enabled   bool                         `json:"enabled"`
	State     JobState                     `json:"state"`
}

// Service owns the job store and the tick loop.
type Service struct {
	path   string
	bus    *bus.ActivityBus
	tick   time.Duration
	gron   *gronx.Gronx
	jobs   map[string]*Job
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

func NewService(path string, activityBus *bus.ActivityBus, tick time.Duration) *Service {
	if tick < time.Second {
		tick = time.Second
	}
	return &Service{
		path: path,
		bus:  activityBus,
		tick: tick,
		gron: gronx.New(),
		jobs: make(map[string]*Job),
	}
}

func (s *Service) Start(ctx context.Context) error {
	if err := s.Load(); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.run(runCtx)

	logger.InfoCF("scheduler", "Scheduler started", map[string]any{
		"jobs": len(s.jobs),
		"tick": s.tick.String(),
	})
	return nil
}

func (s *Service) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	logger.InfoC("scheduler", "Scheduler stopped")
}

func (s *Service) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.onTick(now)
		}
	}
}

// AddJob validates the schedule, stores the job, and persists the store.
func (s *Service) AddJob(name string, schedule Schedule, message string, ref schema.ConversationReference) (*Job, error) {
	switch schedule.Kind {
	case KindEvery:
		if schedule.EveryMS <= 0 {
			return nil, fmt.Errorf("every_ms must be positive")
		}
	case KindCron:
		if !s.gron.IsValid(schedule.Expr) {
			return nil, fmt.Errorf("invalid cron expression %q", schedule.Expr)
		}
	default:
		return nil, fmt.Errorf("unknown schedule kind %q", schedule.Kind)
	}

	job := &Job{
		ID:        uuid.New().String(),
		Name:      name,
		Schedule:  schedule,
		Message:   message,
		Reference: ref,
		Enabled:   true,
	}
	next, err := s.nextRun(job, time.Now())
	if err != nil {
		return nil, err
	}
	job.State.NextRunMS = next

	s.mu.Lock()
	s.jobs[job.ID] = job
	err = s.saveLocked()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	logger.InfoCF("scheduler", "Job added", map[string]any{
		"id":   job.ID,
		"name": name,
	})
	return job, nil
}

func (s *Service) RemoveJob(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return fmt.Errorf("job %q not found", id)
	}
	delete(s.jobs, id)
	return s.saveLocked()
}

func (s *Service) EnableJob(id string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("job %q not found", id)
	}
	job.Enabled = enabled
	if enabled {
		next, err := s.nextRun(job, time.Now())
		if err != nil {
			return err
		}
		job.State.NextRunMS = next
	}
	return s.saveLocked()
}

// ListJobs returns the jobs sorted by name for stable display.
func (s *Service) ListJobs() []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Name < jobs[j].Name })
	return jobs
}

func (s *Service) onTick(now time.Time) {
	nowMS := now.UnixMilli()

	s.mu.Lock()
	var due []*Job
	for _, job := range s.jobs {
		if job.Enabled && job.State.NextRunMS > 0 && job.State.NextRunMS <= nowMS {
			due = append(due, job)
		}
	}
	s.mu.Unlock()

	if len(due) == 0 {
		return
	}

	for _, job := range due {
		s.fire(job, now)
	}

	s.mu.Lock()
	if err := s.saveLocked(); err != nil {
		logger.ErrorCF("scheduler", "Failed to persist job store", map[string]any{
			"error": err.Error(),
		})
	}
	s.mu.Unlock()
}

// fire publishes the job's message as an outbound activity addressed
// through its stored conversation reference.
func (s *Service) fire(job *Job, now time.Time) {
	a := &schema.Activity{
		Type: schema.ActivityTypeMessage,
		Text: job.Message,
	}
	schema.ApplyConversationReference(a, job.Reference, false)
	s.bus.PublishOutbound(a)

	s.mu.Lock()
	defer s.mu.Unlock()
	job.State.LastRunMS = now.UnixMilli()
	job.State.RunCount++

	next, err := s.nextRun(job, now)
	if err != nil {
		logger.WarnCF("scheduler", "Disabling job with unschedulable next run", map[string]any{
			"id":    job.ID,
			"error": err.Error(),
		})
		job.Enabled = false
		job.State.NextRunMS = 0
		return
	}
	job.State.NextRunMS = next

	logger.DebugCF("scheduler", "Job fired", map[string]any{
		"id":        job.ID,
		"name":      job.Name,
		"run_count": job.State.RunCount,
	})
}

func (s *Service) nextRun(job *Job, now time.Time) (int64, error) {
	switch job.Schedule.Kind {
	case KindEvery:
		return now.UnixMilli() + job.Schedule.EveryMS, nil
	case KindCron:
		next, err := gronx.NextTickAfter(job.Schedule.Expr, now, false)
		if err != nil {
			return 0, err
		}
		return next.UnixMilli(), nil
	default:
		return 0, fmt.Errorf("unknown schedule kind %q", job.Schedule.Kind)
	}
}

// Load reads the job store from disk. Start calls it; the CLI also uses
// it to manage jobs without running the tick loop.
func (s *Service) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var jobs []*Job
	if err := json.Unmarshal(data, &jobs); err != nil {
		return fmt.Errorf("parse job store: %w", err)
	}
	for _, job := range jobs {
		s.jobs[job.ID] = job
	}
	return nil
}

func (s *Service) saveLocked() error {
	jobs := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].ID < jobs[j].ID })

	data, err := json.MarshalIndent(jobs, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0600)
}
