package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrSchedulerClosed = errors.New("scheduler closed")
	ErrTaskCanceled    = errors.New("task canceled")
)

// TaskFunc is the work of a delayed task. ctx is canceled when the task is
// canceled while running or when the scheduler shuts down.
type TaskFunc func(ctx context.Context) error

type taskState int

const (
	taskPending taskState = iota
	taskRunning
	taskFinished
)

// Task is a delayed unit of work registered under a key.
type Task struct {
	id     string
	key    string
	fn     TaskFunc
	timer  *time.Timer
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// guarded by Scheduler.mu
	state taskState
	err   error
}

func (t *Task) ID() string  { return t.id }
func (t *Task) Key() string { return t.key }

// Done is closed once the task ran or was canceled.
func (t *Task) Done() <-chan struct{} { return t.done }

// Err returns the task's result. It is only meaningful after Done is closed.
func (t *Task) Err() error {
	<-t.done
	return t.err
}

// Scheduler runs delayed tasks keyed by an identifier. Scheduling a task
// under a key that already has a pending task replaces it.
type Scheduler struct {
	mu     sync.Mutex
	tasks  map[string]*Task
	closed bool
	wg     sync.WaitGroup

	base   context.Context
	stop   context.CancelFunc
	logger *slog.Logger
}

func NewScheduler(logger *slog.Logger) *Scheduler {
	base, stop := context.WithCancel(context.Background())
	return &Scheduler{
		tasks:  make(map[string]*Task),
		base:   base,
		stop:   stop,
		logger: logger,
	}
}

// Schedule runs fn after delay unless the task is canceled first.
func (s *Scheduler) Schedule(key string, delay time.Duration, fn TaskFunc) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSchedulerClosed
	}

	if prev, ok := s.tasks[key]; ok {
		s.logger.Debug("replacing pending task", "key", key, "task_id", prev.id)
		s.cancelLocked(prev)
	}

	ctx, cancel := context.WithCancel(s.base)
	t := &Task{
		id:     uuid.NewString(),
		key:    key,
		fn:     fn,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.tasks[key] = t
	s.wg.Add(1)
	t.timer = time.AfterFunc(delay, func() { s.fire(t) })

	s.logger.Debug("task scheduled", "key", key, "task_id", t.id, "delay", delay)
	return t, nil
}

// Cancel cancels the task registered under key. It returns false when no
// task is registered for that key. A running task has its context canceled.
func (s *Scheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[key]
	if !ok {
		return false
	}
	s.cancelLocked(t)
	return true
}

// Pending returns the number of tasks waiting for their delay to elapse.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tasks {
		if t.state == taskPending {
			n++
		}
	}
	return n
}

// Drain stops accepting tasks, runs every pending task immediately and waits
// for all tasks to finish. If ctx ends first, running tasks are canceled and
// ctx's error is returned once they have returned.
func (s *Scheduler) Drain(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	var flush []*Task
	for _, t := range s.tasks {
		if t.state == taskPending && t.timer.Stop() {
			t.state = taskRunning
			flush = append(flush, t)
		}
	}
	s.mu.Unlock()

	if len(flush) > 0 {
		s.logger.Info("flushing pending tasks", "count", len(flush))
	}
	for _, t := range flush {
		go s.run(t)
	}

	finished := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		s.stop()
		return nil
	case <-ctx.Done():
		s.logger.Warn("drain deadline reached, canceling remaining tasks")
		s.Close()
		<-finished
		return ctx.Err()
	}
}

// Close cancels every pending and running task and waits for them to return.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	for _, t := range s.tasks {
		s.cancelLocked(t)
	}
	s.mu.Unlock()

	s.stop()
	s.wg.Wait()
}

// cancelLocked must be called with s.mu held.
func (s *Scheduler) cancelLocked(t *Task) {
	switch t.state {
	case taskPending:
		// If the timer already fired, fire is waiting for the lock and will
		// find the task finished.
		t.timer.Stop()
		s.finishLocked(t, ErrTaskCanceled)
	case taskRunning:
		t.cancel()
	}
}

func (s *Scheduler) fire(t *Task) {
	s.mu.Lock()
	if t.state != taskPending {
		s.mu.Unlock()
		return
	}
	t.state = taskRunning
	s.mu.Unlock()

	s.run(t)
}

func (s *Scheduler) run(t *Task) {
	err := t.fn(t.ctx)
	if err != nil {
		s.logger.Error("delayed task failed", "key", t.key, "task_id", t.id, "error", err)
	}

	s.mu.Lock()
	s.finishLocked(t, err)
	s.mu.Unlock()
}

// finishLocked must be called with s.mu held.
func (s *Scheduler) finishLocked(t *Task, err error) {
	t.state = taskFinished
	t.err = err
	if s.tasks[t.key] == t {
		delete(s.tasks, t.key)
	}
	t.cancel()
	close(t.done)
	s.wg.Done()
}
