// Package queue is a thread-safe collection of piece tasks with a
// pluggable extraction policy and wake/stop semantics, shared by every
// worker in the pool.
package queue

import (
	"errors"
	"sync"

	"furrent/piece"
	"furrent/registry"
)

// ErrEmpty is returned by TryExtract when the queue holds no items.
var ErrEmpty = errors.New("queue: empty")

// ErrPolicyFailure is returned by TryExtract when items exist but the
// policy declined to pick any of them.
var ErrPolicyFailure = errors.New("queue: policy declined to select")

// PieceTask pairs a torrent ID with the piece to download. Tasks reference
// their torrent only by ID, never by pointer, so a task's lifetime is
// independent of its torrent's.
type PieceTask struct {
	TorrentID registry.TorrentID
	Piece     piece.Piece
}

// Policy selects one item to extract from a read-only view of the queue's
// current contents. Policies are called under the queue's lock and must be
// pure functions of the sequence's contents.
type Policy interface {
	Select(items []PieceTask) (index int, ok bool)
}

type lifoPolicy struct{}

// Select always picks the most recently inserted item, so workers process
// pieces enqueued in the same burst with good cache locality. LIFO can
// starve the head of a long-lived queue; that's acceptable because tasks
// within a torrent are equivalent workloads.
func (lifoPolicy) Select(items []PieceTask) (int, bool) {
	if len(items) == 0 {
		return 0, false
	}
	return len(items) - 1, true
}

// LIFO is the default extraction policy.
var LIFO Policy = lifoPolicy{}

// TaskQueue is a mutex-and-condvar-protected list of PieceTasks. A single
// mutex protects the sequence; a single condition variable wakes waiters.
// Fairness is not guaranteed: any waiter may be woken on insert.
type TaskQueue struct {
	mu   sync.Mutex
	cond *sync.Cond

	items      []PieceTask
	generation uint64
	skip       bool
}

// New builds an empty task queue.
func New() *TaskQueue {
	q := &TaskQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Insert pushes a task and wakes one waiter.
func (q *TaskQueue) Insert(t PieceTask) {
	q.mu.Lock()
	q.items = append(q.items, t)
	q.generation++
	q.mu.Unlock()
	q.cond.Signal()
}

// Emplace constructs and inserts a task in one call.
func (q *TaskQueue) Emplace(tid registry.TorrentID, p piece.Piece) {
	q.Insert(PieceTask{TorrentID: tid, Piece: p})
}

// TryExtract attempts a non-blocking extraction using policy. It returns
// ErrEmpty if the queue holds no items, ErrPolicyFailure if the policy
// declined to pick any of the items present.
func (q *TaskQueue) TryExtract(p Policy) (PieceTask, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return PieceTask{}, ErrEmpty
	}
	idx, ok := p.Select(q.items)
	if !ok {
		return PieceTask{}, ErrPolicyFailure
	}

	t := q.items[idx]
	q.items = append(q.items[:idx], q.items[idx+1:]...)
	return t, nil
}

// WaitWork blocks until Insert is called or BeginSkipWaiting has been set,
// filtering spurious wake-ups by tracking the generation counter observed
// on entry.
func (q *TaskQueue) WaitWork() {
	q.mu.Lock()
	defer q.mu.Unlock()

	gen := q.generation
	for q.generation == gen && !q.skip {
		q.cond.Wait()
	}
}

// Mutate atomically removes every item for which remove returns true,
// preserving the relative order of the rest.
func (q *TaskQueue) Mutate(remove func(PieceTask) bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.items[:0]
	for _, item := range q.items {
		if !remove(item) {
			kept = append(kept, item)
		}
	}
	q.items = kept
}

// BeginSkipWaiting permanently wakes all current and future waiters with no
// work, used during shutdown.
func (q *TaskQueue) BeginSkipWaiting() {
	q.mu.Lock()
	q.skip = true
	q.generation++
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Size returns the current number of items.
func (q *TaskQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
