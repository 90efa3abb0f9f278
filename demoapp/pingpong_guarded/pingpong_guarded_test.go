package pingpong

// A ping-pong pair of actors wired together with the library's own
// broadcast Channel, rather than raw Go channels: every send and receive
// goes through Suspend, so a Halt aimed at either actor (or at the whole
// run) interrupts it at the wire instead of leaving it parked on a
// native channel op the scheduler can't see.

import (
	"context"
	"fmt"
	"testing"

	sup "github.com/warpfork/structured-ops"
)

func TestPingpong(t *testing.T) {
	pingCh := sup.CreateChannel[Msg]()
	pongCh := sup.CreateChannel[Msg]()

	pinger := &Actor{wiring: Wiring{Inbox: pongCh, Outbox: pingCh}}
	ponger := &Actor{wiring: Wiring{Inbox: pingCh, Outbox: pongCh}, config: Config{Ponger: true}}

	h := sup.Run(func() sup.Operation[struct{}] {
		return func(ctx *sup.Ctx) (struct{}, error) {
			// Subscribe before spawning either actor, so neither side
			// can miss the message the other sends on its first turn.
			pingerSub := pinger.wiring.Inbox.Subscribe()
			pongerSub := ponger.wiring.Inbox.Subscribe()

			sup.SpawnNamed(ctx, "pinger", func(ctx *sup.Ctx) (struct{}, error) {
				return pinger.run(ctx, pingerSub)
			})
			ponging := sup.SpawnNamed(ctx, "ponger", func(ctx *sup.Ctx) (struct{}, error) {
				return ponger.run(ctx, pongerSub)
			})

			if err := pinger.wiring.Outbox.Send(Msg{}); err != nil {
				return struct{}{}, err
			}
			return ponging.Await(ctx)
		}
	})

	_, err := h.Await(context.Background())
	if err != nil && err != sup.Halted {
		t.Fatalf("pingpong run failed: %v", err)
	}
}

type Actor struct {
	wiring Wiring
	config Config
}

type Wiring struct {
	Inbox  *sup.Channel[Msg]
	Outbox *sup.Channel[Msg]
}

type Config struct {
	Ponger bool
}

type Msg struct {
	Increment int
}

// run plays one side of the exchange: receive, react, send, repeat,
// until the inbox closes or the owning task is halted (sub.Next then
// resolves with the halt cause instead of a message).
func (a *Actor) run(ctx *sup.Ctx, sub sup.Subscription[Msg]) (struct{}, error) {
	for {
		res, err := sub.Next(ctx)
		if err != nil {
			return struct{}{}, err
		}
		if res.Done {
			return struct{}{}, nil
		}
		m := res.Value
		if a.config.Ponger {
			fmt.Printf("Pong %d from %s!\n", m.Increment, sup.ContextName(ctx))
		} else {
			m.Increment++
			fmt.Printf("Ping %d from %s!\n", m.Increment, sup.ContextName(ctx))
		}
		if m.Increment >= 6 {
			a.wiring.Outbox.Close()
			return struct{}{}, nil
		}
		if err := a.wiring.Outbox.Send(m); err != nil {
			return struct{}{}, err
		}
	}
}
