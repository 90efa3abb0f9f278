package sup

// frame is the goroutine-rendezvous half of the Suspend contract: each
// task gets exactly one frame, and exactly one dedicated goroutine
// (started by runFrame) drives its Operation body. wake is the channel
// the scheduler uses to hand that goroutine the baton; it is buffered by
// one so a settle fired before the frame finishes parking still lands
// without either side blocking on ordering.
type frame struct {
	wake chan resumeMsg
}

func newFrame() *frame {
	return &frame{wake: make(chan resumeMsg, 1)}
}

// runFrame is the body of every task's dedicated goroutine. It waits for
// the scheduler's initial wake, runs body to completion (recovering any
// panic into a *TaskError the way the teacher's siftError does), records
// the outcome, and lets the task's settlement machinery take it from
// there. Exactly one turnDone signal is sent per baton hand-off: either
// from inside doSuspend when the body parks, or here when it returns for
// good.
func runFrame(t *task, body func(*Ctx) (any, error)) {
	<-t.fr.wake

	ctx := &Ctx{t: t}
	value, err := invokeBody(t, ctx, body)

	t.mu.Lock()
	t.bodyDone = true
	t.bodyValue = value
	t.bodyErr = err
	t.mu.Unlock()

	t.maybeFinish()
	t.sched.turnDone <- struct{}{}
}

func invokeBody(t *task, ctx *Ctx, body func(*Ctx) (any, error)) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = siftError(t.path, nil, r)
			return
		}
		err = siftError(t.path, err, nil)
	}()
	return body(ctx)
}
