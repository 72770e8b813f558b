// Package events is the fire-and-forget observability side-channel. Emission
// never blocks and never fails the caller; when the queue is full the event
// is counted as dropped and discarded.
package events

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/vistaceo/insight-engine/internal/platform/observability"
)

// Event is the fixed outbound event shape.
type Event struct {
	Category  string
	Severity  string
	Action    string
	SubjectID string
	Payload   map[string]any
}

// Severity levels.
const (
	SeverityInfo  = "info"
	SeverityWarn  = "warn"
	SeverityError = "error"
)

// Emitter accepts events without blocking.
type Emitter interface {
	Emit(ev Event)
}

// NopEmitter discards everything.
type NopEmitter struct{}

func (NopEmitter) Emit(Event) {}

const defaultQueueSize = 256

// LogEmitter drains events onto a structured log from a background goroutine.
type LogEmitter struct {
	queue  chan Event
	logger *zerolog.Logger
}

// NewLogEmitter starts a log-backed emitter that runs until ctx is canceled.
func NewLogEmitter(ctx context.Context, logger *zerolog.Logger) *LogEmitter {
	e := &LogEmitter{
		queue:  make(chan Event, defaultQueueSize),
		logger: logger,
	}

	go e.drain(ctx)

	return e
}

// Emit enqueues the event, dropping it when the queue is full.
func (e *LogEmitter) Emit(ev Event) {
	select {
	case e.queue <- ev:
	default:
		observability.EventsDropped.Inc()
	}
}

func (e *LogEmitter) drain(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-e.queue:
			e.logger.Info().
				Str("category", ev.Category).
				Str("severity", ev.Severity).
				Str("action", ev.Action).
				Str("subject_id", ev.SubjectID).
				Interface("payload", ev.Payload).
				Msg("pipeline event")
		}
	}
}
