// Package supervise provides the convenience constructors the teacher
// exposed through its Supervisor/SuperviseForkJoin/superviseStream
// types (engineForkJoin.go, engineStream.go), rebuilt on top of the
// engine's own Spawn/Task.Await instead of a dedicated
// context.Context-cancelling goroutine pool. The engine's automatic
// parent-halt-on-child-error cascade already does what those types
// hand-rolled with a reportCh and a groupCancel: a single failing
// member reaches this task's own settlement without Stream or ForkJoin
// needing to watch for it themselves.
package supervise

import (
	"fmt"

	sup "github.com/warpfork/structured-ops"
)

// Result pairs one member's outcome with identifying metadata, the way
// the teacher's reportMsg paired a task with its error.
type Result[T any] struct {
	Name  string
	Value T
	Err   error
}

// ForkJoin runs a fixed, upfront-known set of Operations as children of
// the current task — one Spawn per entry — and waits for every one to
// settle. If any member fails, the engine's halt cascade (a child's
// terminal error makes its parent start Halting) already tears down the
// rest before ForkJoin returns; this mirrors the teacher's
// phase_collecting -> phase_halting transition without needing its own
// copy of that state machine.
func ForkJoin[T any](ctx *sup.Ctx, ops map[string]sup.Operation[T]) ([]Result[T], error) {
	type spawned struct {
		name string
		task sup.Task[T]
	}
	handles := make([]spawned, 0, len(ops))
	for name, op := range ops {
		handles = append(handles, spawned{name: name, task: sup.SpawnNamed(ctx, name, op)})
	}

	results := make([]Result[T], len(handles))
	var firstErr error
	for i, h := range handles {
		v, err := h.task.Await(ctx)
		results[i] = Result[T]{Name: h.name, Value: v, Err: err}
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return results, firstErr
}

// Stream runs an open-ended, lazily-produced set of Operations as
// children of the current task: one Spawn per Operation received from
// feed, until feed is Closed — the spec-shaped equivalent of the
// teacher's TaskGen/superviseStream, fed through this package's own
// Channel primitive instead of a raw Go channel so every wait it does
// (receiving the next Operation, awaiting each child) goes through
// Suspend rather than blocking the task's goroutine natively.
func Stream[T any](ctx *sup.Ctx, feed *sup.Channel[sup.Operation[T]]) ([]Result[T], error) {
	sub := feed.Subscribe()

	type spawned struct {
		name string
		task sup.Task[T]
	}
	var handles []spawned
	i := 0
	for {
		next, err := sub.Next(ctx)
		if err != nil {
			return nil, err
		}
		if next.Done {
			break
		}
		name := fmt.Sprintf("stream-%d", i)
		i++
		handles = append(handles, spawned{name: name, task: sup.SpawnNamed(ctx, name, next.Value)})
	}

	results := make([]Result[T], len(handles))
	var firstErr error
	for idx, h := range handles {
		v, err := h.task.Await(ctx)
		results[idx] = Result[T]{Name: h.name, Value: v, Err: err}
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return results, firstErr
}

// FromMap builds the fixed operation set ForkJoin expects from a map,
// applying fn to every key/value pair — the generic-typed equivalent of
// the teacher's TasksFromMap (taskFactories.go), which used reflection
// because Go generics didn't yet exist when it was written.
func FromMap[K comparable, V, T any](m map[K]V, fn func(ctx *sup.Ctx, k K, v V) (T, error)) map[string]sup.Operation[T] {
	ops := make(map[string]sup.Operation[T], len(m))
	for k, v := range m {
		k, v := k, v
		ops[fmt.Sprint(k)] = func(ctx *sup.Ctx) (T, error) { return fn(ctx, k, v) }
	}
	return ops
}

// FromSlice builds the fixed operation set ForkJoin expects from a
// slice, applying fn to every element and its index — the
// TasksFromSlice the teacher left as panic("not yet implemented").
func FromSlice[V, T any](s []V, fn func(ctx *sup.Ctx, i int, v V) (T, error)) map[string]sup.Operation[T] {
	ops := make(map[string]sup.Operation[T], len(s))
	for i, v := range s {
		i, v := i, v
		ops[fmt.Sprintf("%d", i)] = func(ctx *sup.Ctx) (T, error) { return fn(ctx, i, v) }
	}
	return ops
}
