package sup

// Operation is a suspendable computation that, when driven to
// completion, yields a value of type T or an error. It receives a *Ctx
// through which it can Suspend, Spawn children, acquire Resources, and
// Delegate into nested Operations via Call.
type Operation[T any] func(ctx *Ctx) (T, error)

// Call runs op to completion inline, in the same frame — the Delegate
// instruction. In Go this needs no special driver support at all: it is
// simply a function call sharing the same goroutine and stack, which is
// exactly why only Suspend (below) needs any baton-passing machinery.
func Call[T any](ctx *Ctx, op Operation[T]) (T, error) {
	return op(ctx)
}

// Action runs a synchronous, non-suspending step and reports its
// result. It exists to give the Action instruction a name in the API;
// ordinary Go code calling f() directly is equivalent.
func Action[T any](ctx *Ctx, f func() (T, error)) (T, error) {
	return f()
}

// Resource acquires a value and registers its release to run exactly
// once, in reverse acquisition order, no matter how the owning task
// exits — normal return, error, or halt.
func Resource[T any](ctx *Ctx, acquire func() (T, error), release func(T) error) (T, error) {
	v, err := acquire()
	if err != nil {
		var zero T
		return zero, err
	}
	ctx.t.pushResource(func() error { return release(v) })
	return v, nil
}

// Task is the public, type-safe handle to a spawned task. The tree
// underneath is necessarily untyped (children of one task can each
// resolve to a different T), so Task[T] just narrows a *task at the
// edges.
type Task[T any] struct {
	t *task
}

// Name returns this task's own (unqualified) name.
func (h Task[T]) Name() string { return h.t.name }

// Path returns the slash-separated supervision path from the root to this
// task.
func (h Task[T]) Path() string { return h.t.path }

// Spawn creates a child task running op, registers it in the caller's
// scope, and returns a handle immediately — Spawn never suspends the
// caller.
func Spawn[T any](ctx *Ctx, op Operation[T]) Task[T] {
	return SpawnNamed(ctx, "", op)
}

// SpawnNamed is Spawn with an explicit task name, surfaced in the
// slash-separated supervision path returned by Path/ContextPath.
func SpawnNamed[T any](ctx *Ctx, name string, op Operation[T]) Task[T] {
	child := ctx.t.spawn(name, func(c *Ctx) (any, error) {
		return op(c)
	})
	return Task[T]{t: child}
}

// Await suspends the caller until this task settles, then returns its
// value or propagates its error. Using a Task wherever an Operation is
// expected (AsOperation) is just Await wrapped up.
func (h Task[T]) Await(ctx *Ctx) (T, error) {
	return awaitTask[T](ctx, h.t)
}

// AsOperation lets a Task be driven wherever an Operation[T] is
// expected — e.g. passed to Call, or into supervise.ForkJoin.
func (h Task[T]) AsOperation() Operation[T] {
	return func(ctx *Ctx) (T, error) { return h.Await(ctx) }
}

// Halt requests this task's cancellation and returns an Operation that
// completes once it has settled. Halting a task that has already
// settled, or that is already halting, is a no-op that still resolves
// when settlement happens.
//
// Halting oneself is handled specially: a task that halts itself cannot
// also suspend waiting for its own settlement (nothing would ever drive
// that forward), so in that case Halt only marks the task Halting and
// returns immediately, letting the caller's own code continue — and
// unwind — under that state.
func (h Task[T]) Halt() Operation[struct{}] {
	return func(ctx *Ctx) (struct{}, error) {
		h.t.requestHalt(nil)
		if ctx.t == h.t {
			return struct{}{}, nil
		}
		_, err := ctx.t.doSuspend(func(settle func(any, error)) (cancel func()) {
			h.t.onSettle(func() { settle(struct{}{}, nil) })
			return nil
		})
		return struct{}{}, err
	}
}

func awaitTask[T any](ctx *Ctx, t *task) (T, error) {
	t.mu.Lock()
	if t.settled {
		res := t.result
		t.mu.Unlock()
		if res.err != nil {
			var zero T
			return zero, res.err
		}
		v, _ := res.value.(T)
		return v, nil
	}
	t.mu.Unlock()

	v, err := ctx.t.doSuspend(func(settle func(any, error)) (cancel func()) {
		t.onSettle(func() {
			t.mu.Lock()
			res := t.result
			t.mu.Unlock()
			settle(res.value, res.err)
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

// Suspend pauses the current frame until register's settle callback
// fires, or until the owning task is halted — in which case register's
// optional cancel function is invoked and the call resumes immediately
// with the halt cause, exactly once regardless of which fires first.
// Every other instruction in this package is synchronous Go code;
// Suspend is the only one that actually releases the scheduler's baton.
func Suspend[T any](ctx *Ctx, register func(settle func(T, error)) (cancel func())) (T, error) {
	v, err := ctx.t.doSuspend(func(innerSettle func(any, error)) (cancel func()) {
		return register(func(value T, e error) { innerSettle(value, e) })
	})
	if err != nil {
		var zero T
		return zero, err
	}
	tv, _ := v.(T)
	return tv, nil
}

// SuspendForever suspends with no resolver at all — it only ever escapes
// via the owning task being halted. Issuing it while the task is already
// Halting is a no-op that returns immediately, so a cleanup/finally block
// can never deadlock a halt by suspending forever itself.
func SuspendForever(ctx *Ctx) error {
	t := ctx.t
	if t.stateIsHalting() {
		return nil
	}
	_, err := t.doSuspend(func(settle func(any, error)) (cancel func()) { return nil })
	return err
}
