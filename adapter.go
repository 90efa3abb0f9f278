package sup

import (
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// adapterPool tracks the background goroutines host adapters (Sleep,
// Expect) spin up to bridge real time and external futures into the
// scheduler's queue. The scheduler loop itself stays single-threaded;
// this pool only bounds and lets callers join the handful of real
// goroutines that watch a timer or a channel on its behalf, the same
// job an errgroup.Group does for any other bounded worker set.
type adapterPool struct {
	g *errgroup.Group
}

func newAdapterPool() *adapterPool {
	return &adapterPool{g: new(errgroup.Group)}
}

func (p *adapterPool) spawn(fn func()) {
	p.g.Go(func() error {
		fn()
		return nil
	})
}

// wait blocks until every adapter goroutine spawned so far has returned.
// Run does not call this automatically — abandoned adapters (e.g. an
// Expect whose task was halted) are allowed to linger until their
// underlying wait actually completes, per the "cancellation does not
// cancel the external work" rule — but a caller that wants a clean join
// for tests can use it.
func (p *adapterPool) wait() { _ = p.g.Wait() }

// Sleep suspends the current task for d, honoring halt: if the owning
// task is halted while asleep, the timer is stopped and the suspension
// resumes immediately with the halt cause instead of waiting out the
// rest of the duration.
func Sleep(ctx *Ctx, d time.Duration) error {
	t := ctx.t
	_, err := t.doSuspend(func(settle func(any, error)) (cancel func()) {
		timer := time.NewTimer(d)
		done := make(chan struct{})
		t.sched.adapters.spawn(func() {
			select {
			case <-timer.C:
				settle(nil, nil)
			case <-done:
				timer.Stop()
			}
		})
		return func() { close(done) }
	})
	return err
}

// FutureResult is the value delivered on a Future channel: either a
// value or an error, never both.
type FutureResult[T any] struct {
	Value T
	Err   error
}

// Future is a read side of some external, non-cooperative computation —
// a goroutine, an RPC callback, anything outside this package's control.
// Expect bridges it into the scheduler.
type Future[T any] <-chan FutureResult[T]

// Expect suspends until fut delivers a result. Per the halt contract for
// external work: cancellation of the surrounding task does not cancel
// fut's producer, it only abandons waiting for it — there is no general
// way to interrupt arbitrary external work, so Expect does not attempt
// to.
func Expect[T any](ctx *Ctx, fut Future[T]) (T, error) {
	t := ctx.t
	v, err := t.doSuspend(func(settle func(any, error)) (cancel func()) {
		t.sched.adapters.spawn(func() {
			res, ok := <-fut
			if !ok {
				settle(nil, fmt.Errorf("expect: future channel closed without a value"))
				return
			}
			settle(res.Value, res.Err)
		})
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	tv, _ := v.(T)
	return tv, nil
}
