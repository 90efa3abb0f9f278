package sup

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

type taskState uint8

const (
	stateRunning taskState = iota
	stateHalting
	stateSettled
)

// settlement is a task's terminal outcome: a value (possibly nil/zero)
// paired with an error, where a nil error means plain success and a
// non-nil one is either Halted or a *TaskError.
type settlement struct {
	value any
	err   error
}

// parkedSuspend describes one outstanding Suspend call: settle is the
// single closure that resumes it (shared between the natural resolver
// path and a halt's forced interrupt, so whichever fires first wins and
// the other becomes a safe no-op), cancel is the optional hook to stop
// whatever external wait is in flight (e.g. a timer).
type parkedSuspend struct {
	settle func(value any, err error)
	cancel func()
}

// task is the internal, non-generic node of the task tree. The public,
// type-safe handle is Task[T]; children are necessarily heterogeneous in
// result type, so the tree itself is typed in terms of `any` and Task[T]
// narrows at the edges.
type task struct {
	id     uint64
	name   string
	path   string
	parent *task
	sched  *scheduler
	tel    telemetry

	fr *frame

	mu          sync.Mutex
	state       taskState
	c           cause
	children    []*task
	resources   []func() error
	onSettleCbs []func()
	settled     bool
	result      settlement

	bodyDone  bool
	bodyValue any
	bodyErr   error

	parked           *parkedSuspend
	pendingInterrupt *parkedSuspend
}

var taskIDs uint64

func nextTaskID() uint64 { return atomic.AddUint64(&taskIDs, 1) }

func autoName() string {
	return fmt.Sprintf("task-%d", nextTaskID())
}

func newTask(sched *scheduler, parent *task, name string, tel telemetry) *task {
	t := &task{
		id:     nextTaskID(),
		name:   name,
		parent: parent,
		sched:  sched,
		tel:    tel,
	}
	if parent == nil {
		t.path = name
	} else {
		t.path = parent.path + "/" + name
	}
	return t
}

func (t *task) isSettled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.settled
}

func (t *task) stateIsHalting() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == stateHalting
}

func (t *task) stateIsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == stateRunning
}

func (t *task) pushResource(release func() error) {
	t.mu.Lock()
	t.resources = append(t.resources, release)
	t.mu.Unlock()
}

func (t *task) releaseResources() error {
	t.mu.Lock()
	resources := t.resources
	t.resources = nil
	t.mu.Unlock()

	var firstErr error
	for i := len(resources) - 1; i >= 0; i-- {
		if err := resources[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// onSettle invokes cb once this task reaches Settled. If it already has,
// cb runs immediately (synchronously, on the caller's goroutine) —
// matching the idempotent-halt law: waiting on an already-done task
// resolves right away.
func (t *task) onSettle(cb func()) {
	t.mu.Lock()
	if t.settled {
		t.mu.Unlock()
		cb()
		return
	}
	t.onSettleCbs = append(t.onSettleCbs, cb)
	t.mu.Unlock()
}

// spawn creates a child task running body, registers it in this task's
// scope, and enqueues its first turn. It never blocks: the caller keeps
// the baton and is handed back a live handle on the same turn.
func (t *task) spawn(name string, body func(*Ctx) (any, error)) *task {
	if name == "" {
		name = autoName()
	}
	child := newTask(t.sched, t, name, t.tel)
	child.fr = newFrame()

	t.mu.Lock()
	t.children = append(t.children, child)
	t.mu.Unlock()

	t.tel.spawned(child.path)
	go runFrame(child, body)
	t.sched.enqueue(wakeItem{fr: child.fr, resume: resumeMsg{}})
	return child
}

// doSuspend is the single mechanism behind every Suspend instruction
// (including the distinguished forever-suspend, whose register always
// returns a nil cancel and never fires on its own). It parks the current
// frame — releasing the scheduler's baton — until register's settle
// callback is invoked, from any goroutine, exactly once.
func (t *task) doSuspend(register func(settle func(any, error)) (cancel func())) (any, error) {
	var once sync.Once

	settle := func(value any, err error) {
		once.Do(func() {
			kind := resumeValue
			if err != nil {
				kind = resumeThrow
			}
			t.sched.enqueue(wakeItem{fr: t.fr, resume: resumeMsg{kind: kind, value: value, err: err}})
		})
	}

	cancel := register(settle)

	t.mu.Lock()
	t.parked = &parkedSuspend{settle: settle, cancel: cancel}
	t.mu.Unlock()

	t.sched.turnDone <- struct{}{}
	msg := <-t.fr.wake

	t.mu.Lock()
	t.parked = nil
	halting := t.state == stateHalting
	t.mu.Unlock()

	if halting {
		t.pumpHalt()
	}

	if msg.kind == resumeThrow {
		return nil, msg.err
	}
	return msg.value, nil
}

// requestHalt begins (or continues) cancelling this task. It is safe to
// call from any goroutine: it only ever touches task bookkeeping —
// including the settlement-cause lattice t.c — under t.mu, and enqueues
// scheduler work. The one piece of caller-supplied code it can run is the
// cancel hook of a parked Suspend whose interrupt it delivers.
func (t *task) requestHalt(causeErr error) {
	t.mu.Lock()
	if t.settled {
		t.mu.Unlock()
		return
	}
	first := t.state != stateHalting
	t.state = stateHalting
	t.c.halt()
	if causeErr != nil {
		t.c.raise(causeErr, false)
	}
	if first {
		t.pendingInterrupt = t.parked
		t.parked = nil
	}
	settlement := t.c.settlement()
	t.mu.Unlock()

	if first {
		t.tel.halting(t.path, settlement)
	}
	t.pumpHalt()
}

// pumpHalt drives the halt cascade forward: children are halted and
// awaited (re-snapshotting on every call, so children spawned mid-
// cleanup are swept in too, which is what makes the cascade re-entrant),
// and once none remain, any owed forced interrupt is delivered exactly
// once. Every read or mutation of t.c happens under t.mu, since this can
// run concurrently with finish() settling the same task from its own
// frame goroutine.
func (t *task) pumpHalt() {
	t.mu.Lock()
	if t.settled {
		t.mu.Unlock()
		return
	}
	var pending []*task
	for _, c := range t.children {
		if !c.isSettled() {
			pending = append(pending, c)
		}
	}
	owed := t.pendingInterrupt
	t.mu.Unlock()

	if len(pending) > 0 {
		for _, c := range pending {
			c.requestHalt(nil)
			c.onSettle(t.pumpHalt)
		}
		return
	}

	if owed != nil {
		t.mu.Lock()
		t.pendingInterrupt = nil
		settlement := t.c.settlement()
		t.mu.Unlock()
		if owed.cancel != nil {
			owed.cancel()
		}
		owed.settle(nil, settlement)
	}
}

// maybeFinish is called once this task's own Operation body has
// returned. It must not settle the task until every descendant —
// including any spawned during this very last turn — has settled too,
// so it drains children the same way pumpHalt does before calling
// finish.
func (t *task) maybeFinish() {
	t.mu.Lock()
	if t.settled || !t.bodyDone {
		t.mu.Unlock()
		return
	}
	var pending []*task
	for _, c := range t.children {
		if !c.isSettled() {
			pending = append(pending, c)
		}
	}
	t.mu.Unlock()

	if len(pending) > 0 {
		for _, c := range pending {
			c.requestHalt(nil)
			c.onSettle(t.maybeFinish)
		}
		return
	}
	t.finish()
}

func (t *task) finish() {
	t.mu.Lock()
	if t.settled {
		t.mu.Unlock()
		return
	}
	wasHalting := t.state == stateHalting
	bodyErr := t.bodyErr
	bodyValue := t.bodyValue
	if bodyErr != nil {
		// A body that merely hands back the cause it was halted with (e.g.
		// a child's error returned from Await) is not a cleanup error.
		fromCleanup := wasHalting && bodyErr != t.c.err
		if fromCleanup {
			markCleanup(bodyErr)
		}
		t.c.raise(bodyErr, fromCleanup)
	}
	t.mu.Unlock()

	// releaseResources runs user cleanup code, which must not run while
	// holding t.mu (a release func may itself touch this task, e.g. via
	// Resource called from a nested Call).
	releaseErr := siftError(t.path, t.releaseResources(), nil)

	t.mu.Lock()
	if releaseErr != nil {
		markCleanup(releaseErr)
		t.c.raise(releaseErr, true)
	}
	finalErr := t.c.settlement()
	t.mu.Unlock()

	if releaseErr != nil {
		t.tel.resourceReleaseFailed(t.path, releaseErr)
	}

	if !wasHalting && bodyErr == nil && releaseErr == nil {
		finalErr = nil
	}

	t.mu.Lock()
	t.state = stateSettled
	t.settled = true
	t.result = settlement{value: bodyValue, err: finalErr}
	cbs := t.onSettleCbs
	t.onSettleCbs = nil
	t.mu.Unlock()

	t.tel.settled(t.path, finalErr)
	for _, cb := range cbs {
		cb()
	}

	if t.parent != nil {
		if finalErr != nil && !errors.Is(finalErr, Halted) {
			t.parent.requestHalt(finalErr)
		}
		t.parent.pumpHalt()
	}
}
