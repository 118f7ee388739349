// Package scheduler implements the Tick Engine's delayed-action queue: a
// min-heap ordered by due time, drained in bounded batches per tick.
package scheduler

import (
	"container/heap"
	"time"

	"github.com/ambonmud/server/internal/model"
)

// entry wraps a model.ScheduledAction with the heap bookkeeping
// (sequence number for insertion-order tiebreaks, index for
// container/heap's Fix/Remove). No third-party priority-queue library
// appears anywhere in the retrieval pack, so this is one of the few
// pieces of the core built directly on the standard library.
type entry struct {
	action model.ScheduledAction
	seq    uint64
	index  int
}

type entryHeap []*entry

func (h entryHeap) Len() int { return len(h) }
func (h entryHeap) Less(i, j int) bool {
	if h[i].action.DueAt.Equal(h[j].action.DueAt) {
		return h[i].seq < h[j].seq
	}
	return h[i].action.DueAt.Before(h[j].action.DueAt)
}
func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *entryHeap) Push(x interface{}) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// Scheduler is a min-heap keyed by DueAt with O(1) overload tracking: a
// prior design that scanned the queue to detect backlog amplified
// overload instead of reporting it, so this tracks size and a late
// counter incrementally instead.
type Scheduler struct {
	h           entryHeap
	nextSeq     uint64
	lateDrained uint64
}

func New() *Scheduler {
	s := &Scheduler{h: make(entryHeap, 0, 256)}
	heap.Init(&s.h)
	return s
}

// Schedule enqueues action to run at action.DueAt.
func (s *Scheduler) Schedule(action model.ScheduledAction) {
	s.nextSeq++
	heap.Push(&s.h, &entry{action: action, seq: s.nextSeq})
}

// DrainDue pops up to maxPerTick actions whose DueAt has passed, ordered
// by DueAt then insertion order.
func (s *Scheduler) DrainDue(now time.Time, maxPerTick int) []model.ScheduledAction {
	out := make([]model.ScheduledAction, 0, maxPerTick)
	for len(out) < maxPerTick && s.h.Len() > 0 {
		next := s.h[0]
		if next.action.DueAt.After(now) {
			break
		}
		heap.Pop(&s.h)
		out = append(out, next.action)
		if now.Sub(next.action.DueAt) > 0 {
			s.lateDrained++
		}
	}
	return out
}

// QueueSize reports the current backlog size in O(1).
func (s *Scheduler) QueueSize() int { return s.h.Len() }

// LateDrained reports how many drained actions had already missed their
// due time by the time they were drained, an O(1) overload signal.
func (s *Scheduler) LateDrained() uint64 { return s.lateDrained }
