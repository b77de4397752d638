package workers

import (
	"context"
	"log"
	"sync"

	"etix/src/monitoring"
)

// Queue is a bounded fire-and-forget work queue drained by a fixed pool.
// Enqueue never blocks; when the buffer is full the task is dropped and
// logged. Errors and panics inside tasks stay inside the pool.
type Queue struct {
	tasks  chan task
	wg     sync.WaitGroup
	once   sync.Once
	mu     sync.Mutex
	closed bool
}

type task struct {
	name string
	run  func(ctx context.Context) error
}

func NewQueue(size int, workers int) *Queue {
	q := &Queue{tasks: make(chan task, size)}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
	return q
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()
	for t := range q.tasks {
		q.runTask(id, t)
	}
}

func (q *Queue) runTask(id int, t task) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[worker %d] panic in task %s: %v\n", id, t.name, r)
		}
	}()
	if err := t.run(context.Background()); err != nil {
		log.Printf("[worker %d] task %s failed: %s\n", id, t.name, err.Error())
	}
}

// Enqueue submits a task without blocking. Returns false when the queue is
// full or already shut down.
func (q *Queue) Enqueue(name string, fn func(ctx context.Context) error) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		monitoring.WorkerTasksDropped.Inc()
		log.Printf("worker queue is shut down, dropping task %s\n", name)
		return false
	}
	select {
	case q.tasks <- task{name: name, run: fn}:
		return true
	default:
		monitoring.WorkerTasksDropped.Inc()
		log.Printf("worker queue full, dropping task %s\n", name)
		return false
	}
}

// Shutdown stops accepting tasks and waits for in-flight ones to finish.
func (q *Queue) Shutdown() {
	q.once.Do(func() {
		q.mu.Lock()
		q.closed = true
		close(q.tasks)
		q.mu.Unlock()
	})
	q.wg.Wait()
}

var defaultQueue *Queue

func GetQueue() *Queue {
	if defaultQueue != nil {
		return defaultQueue
	}
	defaultQueue = NewQueue(256, 4)
	return defaultQueue
}

// NewDefaultQueue replaces the singleton, used by tests.
func NewDefaultQueue(q *Queue) *Queue {
	defaultQueue = q
	return defaultQueue
}

func Enqueue(name string, fn func(ctx context.Context) error) bool {
	return GetQueue().Enqueue(name, fn)
}
