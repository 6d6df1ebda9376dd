package scheduler

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/tasks"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Enqueuer adds one run of a named task to the task queue.
type Enqueuer interface {
	EnqueueByName(ctx context.Context, name string) (string, error)
}

// Job pairs a task queue name with the cron schedule it runs on.
type Job struct {
	Task     string
	Schedule string
}

// MaintenanceScheduler enqueues the maintenance tasks on their schedules.
// The work itself runs on the task queue workers, not on the cron goroutine.
type MaintenanceScheduler struct {
	queue Enqueuer
	jobs  []Job

	cron       *cron.Cron
	entries    map[string]cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// JobsFromConfig returns the maintenance jobs with a non-empty schedule.
func JobsFromConfig(cfg config.Maintenance) []Job {
	all := []Job{
		{Task: tasks.QueueIntegrityCheck, Schedule: cfg.IntegritySchedule},
		{Task: tasks.QueueCleanupAudit, Schedule: cfg.AuditCleanupSchedule},
		{Task: tasks.QueueCleanupThumbnail, Schedule: cfg.ThumbnailCleanupSchedule},
	}
	jobs := make([]Job, 0, len(all))
	for _, j := range all {
		if j.Schedule != "" {
			jobs = append(jobs, j)
		}
	}
	return jobs
}

// NewMaintenanceScheduler creates a new scheduler instance
func NewMaintenanceScheduler(queue Enqueuer, jobs []Job) *MaintenanceScheduler {
	return &MaintenanceScheduler{
		queue:   queue,
		jobs:    jobs,
		cron:    cron.New(cron.WithParser(parser)),
		entries: make(map[string]cron.EntryID),
	}
}

// ValidateSchedule checks a 5-field cron expression.
func ValidateSchedule(schedule string) error {
	_, err := parser.Parse(schedule)
	return err
}

// Start validates every schedule and begins the cron loop. Nothing is
// scheduled if any schedule is invalid.
func (s *MaintenanceScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if len(s.jobs) == 0 {
		log.Printf("Maintenance scheduler: no jobs configured")
		return nil
	}

	for _, job := range s.jobs {
		if err := ValidateSchedule(job.Schedule); err != nil {
			return fmt.Errorf("invalid cron schedule '%s' for %s: %w", job.Schedule, job.Task, err)
		}
	}

	for _, job := range s.jobs {
		task := job.Task
		entryID, err := s.cron.AddFunc(job.Schedule, func() {
			s.enqueue(task)
		})
		if err != nil {
			return fmt.Errorf("failed to schedule %s: %w", task, err)
		}
		s.entries[task] = entryID
	}

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	for _, job := range s.jobs {
		log.Printf("Maintenance scheduler: %s scheduled at '%s'", job.Task, job.Schedule)
	}

	// Monitor for context cancellation
	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop stops the cron loop and waits for a running enqueue to finish.
func (s *MaintenanceScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	if s.cancelFunc != nil {
		s.cancelFunc()
		s.cancelFunc = nil
	}

	log.Printf("Maintenance scheduler: stopped")
}

// IsRunning returns whether the scheduler is active
func (s *MaintenanceScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRuns returns when each scheduled task runs next, or nil when stopped.
func (s *MaintenanceScheduler) NextRuns() map[string]time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}

	next := make(map[string]time.Time, len(s.entries))
	for task, id := range s.entries {
		next[task] = s.cron.Entry(id).Next
	}
	return next
}

// Tasks lists the scheduled task names in order.
func (s *MaintenanceScheduler) Tasks() []string {
	names := make([]string, 0, len(s.jobs))
	for _, j := range s.jobs {
		names = append(names, j.Task)
	}
	sort.Strings(names)
	return names
}

func (s *MaintenanceScheduler) enqueue(task string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	id, err := s.queue.EnqueueByName(ctx, task)
	if err != nil {
		log.Printf("Maintenance scheduler: failed to enqueue %s: %v", task, err)
		return
	}
	log.Printf("Maintenance scheduler: enqueued %s (%s)", task, id)
}
