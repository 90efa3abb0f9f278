package sup

import (
	"io"

	"github.com/rs/zerolog"
)

// telemetry wraps the structured logger the runtime emits task-lifecycle
// events to. It is always present (never nil) — when the caller doesn't
// configure one via WithLogger, events are sent to a disabled logger, so
// every call site can log unconditionally instead of nil-checking.
type telemetry struct {
	log zerolog.Logger
}

func newTelemetry(l *zerolog.Logger) telemetry {
	if l != nil {
		return telemetry{log: *l}
	}
	return telemetry{log: zerolog.New(io.Discard).Level(zerolog.Disabled)}
}

func (t telemetry) spawned(path string) {
	t.log.Debug().Str("task", path).Msg("task spawned")
}

func (t telemetry) halting(path string, cause error) {
	t.log.Debug().Str("task", path).AnErr("cause", cause).Msg("task halting")
}

func (t telemetry) settled(path string, err error) {
	ev := t.log.Debug()
	if err != nil {
		ev = t.log.Warn().Err(err)
	}
	ev.Str("task", path).Msg("task settled")
}

func (t telemetry) resourceReleaseFailed(path string, err error) {
	t.log.Warn().Str("task", path).Err(err).Msg("resource release failed")
}
