package sup

import (
	"sync"

	"github.com/google/uuid"
)

// NextResult is what Subscription.Next resolves to: either the next
// message broadcast on the channel since this subscriber joined, or Done
// once the channel has been closed and no further messages will arrive.
type NextResult[M any] struct {
	Value M
	Done  bool
}

type subWaiter[M any] struct {
	settle func(any, error)
}

type subState[M any] struct {
	mu      sync.Mutex
	id      uuid.UUID
	cursor  int
	waiting []*subWaiter[M]
}

// Channel is the exemplar multi-producer/multi-subscriber coordination
// primitive: any number of tasks may Send, any number may Subscribe, and
// each subscription gets its own cursor over every message sent since it
// joined — this is the teacher's SenderChannel/ReceiverChannel pairing
// generalized from a single raw `chan T` into a broadcast log, since a
// plain Go channel can only ever be drained once.
type Channel[M any] struct {
	mu     sync.Mutex
	buf    []M
	subs   []*subState[M]
	closed bool
}

// CreateChannel constructs a new, open Channel.
func CreateChannel[M any]() *Channel[M] {
	return &Channel[M]{}
}

// Send appends a message and delivers it to every subscription that is
// currently waiting on Next; subscriptions that aren't waiting right now
// simply pick it up (in order) the next time they call Next. Send never
// suspends and never blocks on a slow subscriber — per-subscriber
// storage is unbounded, exactly matching a broadcast log that always
// accepts a write.
func (ch *Channel[M]) Send(m M) error {
	ch.mu.Lock()
	if ch.closed {
		ch.mu.Unlock()
		return errClosedChannel
	}
	ch.buf = append(ch.buf, m)
	subs := append([]*subState[M](nil), ch.subs...)
	ch.mu.Unlock()

	for _, s := range subs {
		s.mu.Lock()
		if len(s.waiting) > 0 {
			w := s.waiting[0]
			s.waiting = s.waiting[1:]
			s.cursor++
			s.mu.Unlock()
			w.settle(NextResult[M]{Value: m}, nil)
			continue
		}
		s.mu.Unlock()
	}
	return nil
}

// Close marks the channel closed: no further Sends are accepted, and
// every subscriber's in-flight and future Next calls resolve with Done.
func (ch *Channel[M]) Close() {
	ch.mu.Lock()
	if ch.closed {
		ch.mu.Unlock()
		return
	}
	ch.closed = true
	subs := append([]*subState[M](nil), ch.subs...)
	ch.mu.Unlock()

	for _, s := range subs {
		s.mu.Lock()
		waiting := s.waiting
		s.waiting = nil
		s.mu.Unlock()
		for _, w := range waiting {
			w.settle(NextResult[M]{Done: true}, nil)
		}
	}
}

// Subscribe registers a new subscription that will see every message
// sent after this call, identified by a uuid the way the teacher
// identifies supervised tasks by name/pointer.
func (ch *Channel[M]) Subscribe() Subscription[M] {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	st := &subState[M]{id: uuid.New(), cursor: len(ch.buf)}
	ch.subs = append(ch.subs, st)
	return Subscription[M]{ch: ch, st: st}
}

// Subscription is one subscriber's cursor over a Channel's messages.
type Subscription[M any] struct {
	ch *Channel[M]
	st *subState[M]
}

// ID returns this subscription's stable identifier.
func (s Subscription[M]) ID() uuid.UUID { return s.st.id }

// Next is the suspendable operation that delivers the next message this
// subscription hasn't yet seen, or Done once the channel is closed and
// drained. Its resolver is cancelled the instant the owning task enters
// Halting: a consumer blocked in Next is never left stranded past its
// own task's cancellation, which is the "every select also watches for
// cancellation" idea this primitive is grounded on.
func (s Subscription[M]) Next(ctx *Ctx) (NextResult[M], error) {
	st := s.st
	ch := s.ch

	v, err := ctx.t.doSuspend(func(settle func(any, error)) (cancel func()) {
		ch.mu.Lock()
		if st.cursor < len(ch.buf) {
			m := ch.buf[st.cursor]
			st.cursor++
			ch.mu.Unlock()
			settle(NextResult[M]{Value: m}, nil)
			return nil
		}
		if ch.closed {
			ch.mu.Unlock()
			settle(NextResult[M]{Done: true}, nil)
			return nil
		}

		// Register the waiter before releasing ch.mu, so a Send or Close
		// that lands after the checks above always finds it.
		w := &subWaiter[M]{settle: settle}
		st.mu.Lock()
		st.waiting = append(st.waiting, w)
		st.mu.Unlock()
		ch.mu.Unlock()
		return func() {
			st.mu.Lock()
			defer st.mu.Unlock()
			for i, other := range st.waiting {
				if other == w {
					st.waiting = append(st.waiting[:i], st.waiting[i+1:]...)
					break
				}
			}
		}
	})
	if err != nil {
		return NextResult[M]{}, err
	}
	res, _ := v.(NextResult[M])
	return res, nil
}
