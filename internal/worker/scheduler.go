package worker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/martinsuchenak/nsotctl/internal/log"
)

var (
	ErrTaskExists   = errors.New("task already registered")
	ErrTaskNotFound = errors.New("task not found")
)

// Task statuses
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// TaskHandler is the function executed by a task
type TaskHandler func(ctx context.Context, taskID string) error

// Task represents a scheduled task
type Task struct {
	ID       string
	Name     string
	Schedule string // cron expression or @every descriptor
	NextRun  time.Time
	LastRun  *time.Time
	LastErr  error
	Status   string
	Handler  TaskHandler

	entry cron.EntryID
}

// Scheduler runs recurring tasks on cron schedules. A task never overlaps
// with itself; a tick that finds the task still running is skipped.
type Scheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	tasks   map[string]*Task
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler. Task contexts derive from ctx.
func NewScheduler(ctx context.Context) *Scheduler {
	ctx, cancel := context.WithCancel(ctx)
	return &Scheduler{
		cron:   cron.New(),
		tasks:  make(map[string]*Task),
		ctx:    ctx,
		cancel: cancel,
	}
}

// AddTask registers handler under id with a cron schedule such as
// "*/15 * * * *" or "@every 10m".
func (s *Scheduler) AddTask(id, name, schedule string, handler TaskHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; ok {
		return fmt.Errorf("%s: %w", id, ErrTaskExists)
	}

	task := &Task{
		ID:       id,
		Name:     name,
		Schedule: schedule,
		Status:   StatusPending,
		Handler:  handler,
	}
	entry, err := s.cron.AddFunc(schedule, func() { s.trigger(id) })
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}
	task.entry = entry
	s.tasks[id] = task

	log.Info("Task registered", "task_id", id, "schedule", schedule)
	return nil
}

// RemoveTask unregisters a task. A run in progress is allowed to finish.
func (s *Scheduler) RemoveTask(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrTaskNotFound)
	}
	s.cron.Remove(task.entry)
	delete(s.tasks, id)
	return nil
}

// RunNow triggers a task immediately, outside its schedule.
func (s *Scheduler) RunNow(id string) error {
	s.mu.Lock()
	_, ok := s.tasks[id]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrTaskNotFound)
	}
	s.trigger(id)
	return nil
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	log.Info("Starting background scheduler", "tasks", len(s.tasks))
	s.cron.Start()
}

// Stop halts the schedule, cancels running tasks and waits for them to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		s.cancel()
		s.wg.Wait()
		return
	}
	s.running = false
	s.mu.Unlock()

	log.Info("Stopping background scheduler")
	<-s.cron.Stop().Done()
	s.cancel()
	s.wg.Wait()
}

// Tasks returns a copy of the registered tasks ordered by ID.
func (s *Scheduler) Tasks() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		c := *t
		if e := s.cron.Entry(t.entry); e.Valid() {
			c.NextRun = e.Next
		}
		tasks = append(tasks, c)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks
}

// trigger starts a run of the task unless one is already in progress.
func (s *Scheduler) trigger(id string) {
	s.mu.Lock()
	task, ok := s.tasks[id]
	if !ok || s.ctx.Err() != nil {
		s.mu.Unlock()
		return
	}
	if task.Status == StatusRunning {
		s.mu.Unlock()
		log.Warn("Task still running, skipping", "task_id", id)
		return
	}
	task.Status = StatusRunning
	now := time.Now()
	task.LastRun = &now
	handler, name := task.Handler, task.Name
	s.wg.Add(1)
	s.mu.Unlock()

	defer s.wg.Done()

	log.Info("Running task", "task_id", id, "name", name)
	err := handler(s.ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()

	task.LastErr = err
	if err != nil {
		task.Status = StatusFailed
		log.Error("Task failed", "task_id", id, "error", err)
	} else {
		task.Status = StatusCompleted
		log.Info("Task completed", "task_id", id)
	}
}
