package tasks

import (
	"github.com/zyedidia/generic/heap"
	"github.com/zyedidia/generic/mapset"

	"gridbot.ai/internal/grid"
)

type entry struct {
	task Task
	seq  uint64
}

// Scheduler owns the pending queue, the seen coordinates and the current task.
//
// A coordinate is queued at most once for the lifetime of the scheduler. The
// current task is never preempted; it stays until Complete or Drop clears it.
type Scheduler struct {
	queue   *heap.Heap[entry]
	seen    mapset.Set[grid.Coordinate]
	current *Task
	seq     uint64
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		// Higher priority first; equal priorities pop in insertion order.
		queue: heap.New[entry](func(a, b entry) bool {
			if pa, pb := a.task.Priority(), b.task.Priority(); pa != pb {
				return pa > pb
			}
			return a.seq < b.seq
		}),
		seen: mapset.New[grid.Coordinate](),
	}
}

// Offer queues t unless its target coordinate was seen before. It reports
// whether the task was queued.
func (s *Scheduler) Offer(t Task) bool {
	if s.seen.Has(t.Target) {
		return false
	}
	s.seen.Put(t.Target)
	s.seq++
	s.queue.Push(entry{task: t, seq: s.seq})
	return true
}

// Next fills the current slot from the queue if it is empty and returns the
// current task.
func (s *Scheduler) Next() (Task, bool) {
	if s.current == nil {
		e, ok := s.queue.Pop()
		if !ok {
			return Task{}, false
		}
		t := e.task
		s.current = &t
	}
	return *s.current, true
}

func (s *Scheduler) Current() (Task, bool) {
	if s.current == nil {
		return Task{}, false
	}
	return *s.current, true
}

// Complete clears the current slot after a successful action.
func (s *Scheduler) Complete() { s.current = nil }

// Drop abandons the current task. Its coordinate stays seen.
func (s *Scheduler) Drop() { s.current = nil }

func (s *Scheduler) Pending() int { return s.queue.Size() }

func (s *Scheduler) Seen(c grid.Coordinate) bool { return s.seen.Has(c) }

func (s *Scheduler) SeenCount() int { return s.seen.Size() }
