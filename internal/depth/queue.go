package depth

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrQueueClosed is returned by Send once the receiving side is gone.
var ErrQueueClosed = errors.New("depth queue closed")

// queue is an unbounded FIFO shared by any number of Senders and one Receiver.
type queue struct {
	mu       sync.Mutex
	items    []Snapshot
	senders  int
	rxClosed bool

	// ready wakes the single consumer; capacity 1 so signals coalesce.
	ready chan struct{}
}

// NewQueue returns the two ends of an ingestion queue. Use Sender.Clone to hand
// out more producer handles; the stream ends once every handle is closed.
func NewQueue() (*Sender, *Receiver) {
	q := &queue{senders: 1, ready: make(chan struct{}, 1)}
	return &Sender{q: q}, &Receiver{q: q}
}

func (q *queue) wake() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

type Sender struct {
	q      *queue
	closed atomic.Bool
}

// Send enqueues s without blocking.
func (s *Sender) Send(snap Snapshot) error {
	if s.closed.Load() {
		return ErrQueueClosed
	}
	q := s.q
	q.mu.Lock()
	if q.rxClosed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.items = append(q.items, snap)
	q.mu.Unlock()
	q.wake()
	return nil
}

// Clone registers another producer handle. Cloning a closed handle yields a
// closed handle.
func (s *Sender) Clone() *Sender {
	c := &Sender{q: s.q}
	q := s.q
	q.mu.Lock()
	defer q.mu.Unlock()
	if s.closed.Load() {
		c.closed.Store(true)
		return c
	}
	q.senders++
	return c
}

// Close releases this handle. Safe to call more than once.
func (s *Sender) Close() {
	q := s.q
	q.mu.Lock()
	if s.closed.Swap(true) {
		q.mu.Unlock()
		return
	}
	q.senders--
	q.mu.Unlock()
	q.wake()
}

type Receiver struct {
	q *queue
}

// Receive blocks until a snapshot is available. It reports false when all
// senders are closed and the queue is drained, or when ctx is done.
func (r *Receiver) Receive(ctx context.Context) (Snapshot, bool) {
	q := r.q
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			s := q.items[0]
			q.items[0] = Snapshot{}
			q.items = q.items[1:]
			if len(q.items) == 0 {
				q.items = nil
			}
			q.mu.Unlock()
			return s, true
		}
		done := q.senders == 0 || q.rxClosed
		q.mu.Unlock()
		if done {
			return Snapshot{}, false
		}

		select {
		case <-q.ready:
		case <-ctx.Done():
			return Snapshot{}, false
		}
	}
}

// Close shuts the consumer end; pending snapshots are dropped and further
// sends fail with ErrQueueClosed.
func (r *Receiver) Close() {
	q := r.q
	q.mu.Lock()
	q.rxClosed = true
	q.items = nil
	q.mu.Unlock()
	q.wake()
}

// Len reports how many snapshots are waiting.
func (r *Receiver) Len() int {
	r.q.mu.Lock()
	defer r.q.mu.Unlock()
	return len(r.q.items)
}
