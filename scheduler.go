package sup

import (
	"runtime"
	"sync"
)

// resumeKind distinguishes a normal resume (deliver a value where the
// Suspend call is parked) from a throw (re-raise an error there instead),
// per the bidirectional-resume contract in spec §4.1.
type resumeKind uint8

const (
	resumeValue resumeKind = iota
	resumeThrow
)

type resumeMsg struct {
	kind  resumeKind
	value any
	err   error
}

// wakeItem is one entry in the scheduler's FIFO run queue: a frame that
// is ready to be handed the baton, and the resume it should be woken
// with.
type wakeItem struct {
	fr     *frame
	resume resumeMsg
}

// scheduler is the single FIFO run queue described in spec §4.3. At most
// one frame's goroutine is ever actively executing user code: the
// scheduler hands a frame the baton by sending on its wake channel, then
// blocks on turnDone until that frame either parks on another Suspend or
// finishes entirely. This is the goroutine-as-coroutine rendezvous
// pattern the Go standard library itself uses for iter.Pull — it lets us
// get single-threaded, deterministic cooperative scheduling without a
// hand-rolled state machine, which is the natural shape for Go even
// though it would not be for a language without goroutines.
type scheduler struct {
	mu         sync.Mutex
	queue      []wakeItem
	turnDone   chan struct{}
	turnBudget int

	closed bool
	idle   chan struct{} // closed (and replaced) on every enqueue

	adapters *adapterPool
}

func newScheduler(turnBudget int) *scheduler {
	if turnBudget <= 0 {
		turnBudget = 4096
	}
	return &scheduler{
		turnDone:   make(chan struct{}),
		turnBudget: turnBudget,
		idle:       make(chan struct{}),
		adapters:   newAdapterPool(),
	}
}

// enqueue appends a wake item to the run queue. Safe to call from any
// goroutine (host timer callbacks, external resolvers, Spawn calls made
// by the currently-running frame).
func (s *scheduler) enqueue(item wakeItem) {
	s.mu.Lock()
	s.queue = append(s.queue, item)
	idle := s.idle
	s.idle = make(chan struct{})
	s.mu.Unlock()
	close(idle)
}

func (s *scheduler) pop() (wakeItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return wakeItem{}, false
	}
	item := s.queue[0]
	s.queue = s.queue[1:]
	return item, true
}

func (s *scheduler) waitForWork() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idle
}

// run drives the scheduler loop until stop is closed and the queue has
// drained, or forever if stop is nil. It is meant to be run on its own
// dedicated goroutine, started by Run.
func (s *scheduler) run(stop <-chan struct{}) {
	resumes := 0
	for {
		item, ok := s.pop()
		if !ok {
			select {
			case <-s.waitForWork():
				continue
			case <-stop:
				return
			}
		}
		item.fr.wake <- item.resume
		<-s.turnDone

		resumes++
		if resumes >= s.turnBudget {
			resumes = 0
			// Yield to the host so real timers/IO callbacks queued
			// behind us get a chance to run even under a runaway
			// chain of synchronously-resolving suspends.
			runtime.Gosched()
		}
	}
}
