package tasktree

import (
	"context"
	"fmt"
	"testing"
	"time"

	sup "github.com/warpfork/structured-ops"
)

func TestTaskTree(t *testing.T) {
	h := sup.Run(func() sup.Operation[struct{}] {
		return func(ctx *sup.Ctx) (struct{}, error) {
			// First, just a regular task spawn.
			top := sup.SpawnNamed(ctx, "bapper-0-5", bapper(0, 5))

			// Now a sub-tree: a task whose own body spawns more
			// children beneath it. Nothing special required — Spawn
			// works the same no matter how deep the caller already is
			// in the tree, and the slash-separated Path reflects the nesting.
			sub := sup.SpawnNamed(ctx, "subtree", func(ctx *sup.Ctx) (struct{}, error) {
				fmt.Printf("subtree task launched, named %s\n", sup.ContextPath(ctx))
				a := sup.SpawnNamed(ctx, "bapper-5-10", bapper(5, 5))
				b := sup.SpawnNamed(ctx, "bapper-10-15", bapper(10, 5))
				if _, err := a.Await(ctx); err != nil {
					return struct{}{}, err
				}
				if _, err := b.Await(ctx); err != nil {
					return struct{}{}, err
				}
				fmt.Printf("subtree settled\n")
				return struct{}{}, nil
			})

			if _, err := top.Await(ctx); err != nil {
				return struct{}{}, err
			}
			return sub.Await(ctx)
		}
	})

	_, err := h.Await(context.Background())
	if err != nil {
		t.Fatalf("tasktree run failed: %v", err)
	}
}

// bapper is a silly little side-effecting step repeated count times,
// yielding between each with a real Sleep so it behaves under Halt the
// same way any task waiting on slow I/O would.
func bapper(start, count int) sup.Operation[struct{}] {
	return func(ctx *sup.Ctx) (struct{}, error) {
		for i := start; i < start+count; i++ {
			fmt.Printf("bap! %d from %s\n", i, sup.ContextPath(ctx))
			if err := sup.Sleep(ctx, 10*time.Millisecond); err != nil {
				return struct{}{}, err
			}
		}
		return struct{}{}, nil
	}
}
