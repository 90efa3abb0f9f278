package sup_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	sup "github.com/warpfork/structured-ops"
)

// Resources acquired in a single task release in strict reverse order on
// a clean return.
func TestResourcesReleaseLIFOOnSuccess(t *testing.T) {
	var order []string
	h := sup.Run(func() sup.Operation[struct{}] {
		return func(ctx *sup.Ctx) (struct{}, error) {
			for _, name := range []string{"a", "b", "c"} {
				name := name
				_, err := sup.Resource(ctx,
					func() (struct{}, error) { return struct{}{}, nil },
					func(struct{}) error { order = append(order, name); return nil },
				)
				if err != nil {
					return struct{}{}, err
				}
			}
			return struct{}{}, nil
		}
	})
	_, err := h.Await(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"c", "b", "a"}, order)
}

// Resources still release in LIFO order when the task body errors out,
// and a failure mid-release does not stop the remaining releases from
// running — but the first release error is what the task settles with.
func TestResourcesReleaseLIFOEvenWhenOneReleaseFails(t *testing.T) {
	var order []string
	h := sup.Run(func() sup.Operation[struct{}] {
		return func(ctx *sup.Ctx) (struct{}, error) {
			sup.Resource(ctx,
				func() (struct{}, error) { return struct{}{}, nil },
				func(struct{}) error { order = append(order, "outer"); return nil },
			)
			sup.Resource(ctx,
				func() (struct{}, error) { return struct{}{}, nil },
				func(struct{}) error { order = append(order, "inner"); return errors.New("release failed") },
			)
			return struct{}{}, nil
		}
	})
	_, err := h.Await(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "release failed")
	require.Equal(t, []string{"inner", "outer"}, order)
}
