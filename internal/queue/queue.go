package queue

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Handler processes one refresh task. A non-nil error makes the queue
// retry the task until its attempts are exhausted.
type Handler func(username string) error

type Task struct {
	ID       uuid.UUID
	Username string
	Attempts int
}

// Queue is an in-process at-least-once task queue. Tasks carry only a
// username; ordering across usernames is not guaranteed.
type Queue struct {
	tasks       chan Task
	maxAttempts int

	mu     sync.Mutex
	wg     sync.WaitGroup
	closed bool
}

func New(size int, maxAttempts int) *Queue {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Queue{
		tasks:       make(chan Task, size),
		maxAttempts: maxAttempts,
	}
}

// Enqueue schedules a refresh for a username. It never blocks; when the
// queue is full or stopped the task is dropped with a warning, and the
// next staleness check will schedule it again.
func (q *Queue) Enqueue(username string) {
	q.enqueue(Task{ID: uuid.New(), Username: username, Attempts: 0})
}

func (q *Queue) enqueue(task Task) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		log.Warn().Str("username", task.Username).Msg("Queue is stopped, dropping task")
		return
	}

	select {
	case q.tasks <- task:
	default:
		log.Warn().Str("username", task.Username).Msg("Queue is full, dropping task")
	}
}

// Start launches the worker goroutines consuming the queue.
func (q *Queue) Start(workers int, handler Handler) {
	if workers < 1 {
		workers = 1
	}

	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for task := range q.tasks {
				q.run(task, handler)
			}
		}()
	}
}

func (q *Queue) run(task Task, handler Handler) {
	task.Attempts++

	err := handler(task.Username)
	if err == nil {
		return
	}

	if task.Attempts >= q.maxAttempts {
		log.Error().Err(err).Str("username", task.Username).Str("task", task.ID.String()).
			Msgf("Refresh failed after %d attempts, giving up", task.Attempts)
		return
	}

	log.Warn().Err(err).Str("username", task.Username).Str("task", task.ID.String()).
		Msgf("Refresh failed (attempt %d), requeueing", task.Attempts)
	q.enqueue(task)
}

// Stop closes the queue and waits for in-flight tasks to finish. Tasks
// still buffered are drained by the workers before they exit.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.tasks)
	q.mu.Unlock()

	q.wg.Wait()
}
