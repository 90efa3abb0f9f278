package sup_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	sup "github.com/warpfork/structured-ops"
)

// Structural diff over a whole run's collected NextResults, the same way
// the teacher leaned on go-cmp wherever a raw equality check would have
// produced an unreadable failure.
func TestChannelResultsMatchExactSequence(t *testing.T) {
	ch := sup.CreateChannel[string]()
	// Subscribe first: a subscription only sees messages sent after it
	// joined.
	sub := ch.Subscribe()
	if err := ch.Send("a"); err != nil {
		t.Fatalf("send a: %v", err)
	}
	if err := ch.Send("b"); err != nil {
		t.Fatalf("send b: %v", err)
	}
	ch.Close()

	h := sup.Run(func() sup.Operation[[]sup.NextResult[string]] {
		return func(ctx *sup.Ctx) ([]sup.NextResult[string], error) {
			var got []sup.NextResult[string]
			for {
				res, err := sub.Next(ctx)
				if err != nil {
					return nil, err
				}
				got = append(got, res)
				if res.Done {
					return got, nil
				}
			}
		}
	})

	got, err := h.Await(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []sup.NextResult[string]{
		{Value: "a"},
		{Value: "b"},
		{Done: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected result sequence (-want +got):\n%s", diff)
	}
}
