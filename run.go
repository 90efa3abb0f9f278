package sup

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// runConfig holds the knobs Run accepts. The only configuration surface
// this package has is functional RunOptions — no environment variables,
// no flags — mirroring the teacher's own options-func idiom
// (SupervisionOptions).
type runConfig struct {
	telemetry  telemetry
	turnBudget int
}

// RunOption configures a Run call.
type RunOption func(*runConfig)

// WithLogger attaches a zerolog.Logger the scheduler emits task-lifecycle
// events to. Without it, a disabled logger is used and nothing is
// written anywhere.
func WithLogger(l zerolog.Logger) RunOption {
	return func(c *runConfig) { c.telemetry = newTelemetry(&l) }
}

// WithTurnBudget overrides the number of frame resumes the scheduler
// hands out between yields to the host via runtime.Gosched; every resume
// counts, whichever frame it wakes.
func WithTurnBudget(n int) RunOption {
	return func(c *runConfig) { c.turnBudget = n }
}

func buildConfig(opts []RunOption) runConfig {
	cfg := runConfig{telemetry: newTelemetry(nil)}
	for _, o := range opts {
		o(&cfg)
	}
	return cfg
}

// Handle is the externally-visible result of Run: a way for ordinary,
// non-cooperative Go code to await or halt the whole task tree from
// outside the scheduler.
type Handle[T any] struct {
	root     *task
	doneCh   chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
}

// Await blocks the calling goroutine until the root task settles, or
// until ctx is done. It is the one place this package deliberately
// blocks an OS thread, since the caller here is, by construction,
// outside the single-threaded cooperative world the scheduler runs.
func (h *Handle[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-h.doneCh:
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
	h.root.mu.Lock()
	res := h.root.result
	h.root.mu.Unlock()
	h.stopScheduler()

	if res.err != nil {
		var zero T
		return zero, res.err
	}
	v, _ := res.value.(T)
	return v, nil
}

// Halt requests cancellation of the whole run and waits for it to
// settle, returning its final error (typically Halted, unless a cleanup
// block raised something else).
func (h *Handle[T]) Halt(ctx context.Context) error {
	h.root.requestHalt(nil)
	_, err := h.Await(ctx)
	if err == nil || errors.Is(err, Halted) {
		return err
	}
	return err
}

func (h *Handle[T]) stopScheduler() {
	h.stopOnce.Do(func() { close(h.stop) })
}

// Run starts a new task tree rooted at the Operation factory produces,
// and returns immediately with a Handle to await or halt it. factory is
// called inside the root task's body, on that task's own goroutine, so a
// panic inside it becomes an immediate task error rather than a process
// crash.
func Run[T any](factory func() Operation[T], opts ...RunOption) *Handle[T] {
	cfg := buildConfig(opts)
	sched := newScheduler(cfg.turnBudget)

	root := newTask(sched, nil, "root", cfg.telemetry)
	root.fr = newFrame()

	body := func(ctx *Ctx) (any, error) {
		op := factory()
		return op(ctx)
	}

	stop := make(chan struct{})
	go sched.run(stop)
	go runFrame(root, body)
	sched.enqueue(wakeItem{fr: root.fr, resume: resumeMsg{}})

	doneCh := make(chan struct{})
	root.onSettle(func() { close(doneCh) })

	return &Handle[T]{root: root, doneCh: doneCh, stop: stop}
}
