// SPDX-License-Identifier: AGPL-3.0-only

package scheduler

import "sync"

// WorkQueue is one partition's priority-ordered sequence of queued local
// transactions awaiting execution (§4.4). It is a plain slice under a mutex
// rather than the dimensional, per-worker-cycling broker this codebase's
// query-frontend scheduler uses for its own queues: SES has exactly one
// logical queue per partition, so the multi-dimension cycling those broker
// types exist for has no analogue here — only the single-queue iterator-
// resumption idea is carried over (§4.4 step 2, grounded on that broker's
// dequeueRequestForQuerier resuming from a caller-supplied position).
type WorkQueue struct {
	mu    sync.Mutex
	items []*QueuedTxn
}

// NewWorkQueue returns an empty work queue.
func NewWorkQueue() *WorkQueue {
	return &WorkQueue{}
}

// PushBack enqueues t at the tail, the lowest scheduling priority.
func (q *WorkQueue) PushBack(t *QueuedTxn) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, t)
}

// Len reports the number of queued transactions.
func (q *WorkQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// snapshot returns the current backing slice under lock, for iterator
// construction. The iterator scans this snapshot; removal is applied back
// to the live queue by identity (§4.4 step 5: "remove it via the same
// iterator").
func (q *WorkQueue) snapshot() []*QueuedTxn {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*QueuedTxn, len(q.items))
	copy(out, q.items)
	return out
}

// remove deletes t (by identity) from the live queue, preserving the
// relative order of everything else.
func (q *WorkQueue) remove(t *QueuedTxn) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, item := range q.items {
		if item == t {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return
		}
	}
}

// Iterator is a resumable cursor over a WorkQueue snapshot (§4.4 step 2).
// The FIRST policy caches the last iterator across calls for the same
// stalled distributed transaction, letting repeated scans skip prefixes
// already examined and rejected.
type Iterator struct {
	queue *WorkQueue
	items []*QueuedTxn
	pos   int
}

// NewIterator snapshots queue's current contents in order.
func NewIterator(queue *WorkQueue) *Iterator {
	return &Iterator{queue: queue, items: queue.snapshot()}
}

// Next returns the next queued transaction in scan order, or false when
// exhausted.
func (it *Iterator) Next() (*QueuedTxn, bool) {
	if it.pos >= len(it.items) {
		return nil, false
	}
	t := it.items[it.pos]
	it.pos++
	return t, true
}

// Remove deletes t from the underlying live queue. Used once per Next call,
// on the winning candidate only (§4.4 step 5).
func (it *Iterator) Remove(t *QueuedTxn) {
	it.queue.remove(t)
}
