package actor

import (
	"errors"
	"sync"
)

// ErrQueueClosed is returned by Enqueue after the queue has been closed.
var ErrQueueClosed = errors.New("actor: update queue closed")

// UpdateQueue serializes document mutations for a single actor. Tasks run on
// one consumer goroutine in FIFO order, so no two mutations for the same
// actor ever interleave. The queue provides ordering only: it never
// deduplicates, and two logically identical tasks enqueued twice both run.
type UpdateQueue struct {
	mu     sync.Mutex
	tasks  chan func()
	closed bool
	done   chan struct{}
}

// NewUpdateQueue creates an UpdateQueue and starts its consumer goroutine.
//
// Precondition: buffer must be >= 0.
func NewUpdateQueue(buffer int) *UpdateQueue {
	q := &UpdateQueue{
		tasks: make(chan func(), buffer),
		done:  make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *UpdateQueue) run() {
	defer close(q.done)
	for task := range q.tasks {
		task()
	}
}

// Enqueue submits a task for exclusive execution. Blocks when the buffer is
// full; returns ErrQueueClosed after Close.
//
// Postcondition: On nil return, task will run after all previously enqueued tasks.
func (q *UpdateQueue) Enqueue(task func()) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	q.tasks <- task
	return nil
}

// Flush blocks until every task enqueued before the call has finished.
func (q *UpdateQueue) Flush() {
	fence := make(chan struct{})
	if err := q.Enqueue(func() { close(fence) }); err != nil {
		return
	}
	<-fence
}

// Close stops accepting tasks and waits for the consumer to drain.
//
// Postcondition: All previously enqueued tasks have run.
func (q *UpdateQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.done
		return
	}
	q.closed = true
	close(q.tasks)
	q.mu.Unlock()
	<-q.done
}

// QueueSet hands out one UpdateQueue per actor ID. Safe for concurrent use.
type QueueSet struct {
	mu     sync.Mutex
	queues map[string]*UpdateQueue
	buffer int
}

// NewQueueSet creates an empty QueueSet whose queues use the given buffer size.
func NewQueueSet(buffer int) *QueueSet {
	return &QueueSet{
		queues: make(map[string]*UpdateQueue),
		buffer: buffer,
	}
}

// Get returns the queue for actorID, creating it on first use.
//
// Precondition: actorID must be non-empty.
func (s *QueueSet) Get(actorID string) *UpdateQueue {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.queues[actorID]
	if !ok {
		q = NewUpdateQueue(s.buffer)
		s.queues[actorID] = q
	}
	return q
}

// Close closes every queue in the set, draining each.
func (s *QueueSet) Close() {
	s.mu.Lock()
	queues := make([]*UpdateQueue, 0, len(s.queues))
	for _, q := range s.queues {
		queues = append(queues, q)
	}
	s.queues = make(map[string]*UpdateQueue)
	s.mu.Unlock()

	for _, q := range queues {
		q.Close()
	}
}
