package sup

// Ctx is the per-frame handle an Operation uses to reach the primitives
// of the runtime: Suspend, Spawn, Resource acquisition, and Delegate. It
// plays the role the teacher's sup.Context played, but threads
// explicitly through every call instead of riding along on
// context.Context's value-bag, since there is no generator to carry it
// implicitly in Go.
type Ctx struct {
	t *task
}

// ContextName is a shortcut for the owning task's own (unqualified)
// name, mirroring the teacher's ContextName(ctx).
func ContextName(ctx *Ctx) string { return ctx.t.name }

// ContextPath returns the slash-separated supervision path from the root
// to this task (e.g. "root/worker"), the teacher's
// CtxTaskPath/filepath.Join composition reimplemented by joining logical
// (non-filesystem) segments with "/".
func ContextPath(ctx *Ctx) string { return ctx.t.path }

// Halting reports whether this task has been asked to halt. It never
// blocks; use SuspendForever or Suspend if you need to wait on it.
func (c *Ctx) Halting() bool { return c.t.stateIsHalting() }
