package workers

import (
	"chat-hub/contract"
	"chat-hub/domain/event"
	"context"
	"log/slog"
	"time"
)

// EventFanout delivers appended events to the permanent sinks (archive, timeline).
//
// It is best-effort: a failing or slow sink is logged and skipped, never retried.
// Sinks are called one after the other so each of them sees events in sequence order.
type EventFanout struct {
	log         *slog.Logger
	events      <-chan event.Event
	sinks       []contract.EventSink
	sinkTimeout time.Duration
}

func NewEventFanout(log *slog.Logger, events <-chan event.Event, sinkTimeout time.Duration, sinks ...contract.EventSink) *EventFanout {
	return &EventFanout{log: log, events: events, sinks: sinks, sinkTimeout: sinkTimeout}
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case evt, ok := <-w.events:
			if !ok {
				w.log.Debug("Event channel closed, stopping fanout")
				return nil
			}
			w.Fanout(ctx, evt)
		case <-ctx.Done():
			w.log.Debug("Context done, stopping fanout")
			return nil
		}
	}
}

// Fanout hands one event to every sink, each under its own timeout.
func (w *EventFanout) Fanout(ctx context.Context, evt event.Event) {
	for _, sink := range w.sinks {
		sinkCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
		if err := sink.Consume(sinkCtx, evt); err != nil {
			w.log.Warn("Sink failed to consume event",
				"sink", sinkName(sink), "sequence", evt.Sequence(), "error", err)
		}
		cancel()
	}
}

func sinkName(sink contract.EventSink) string {
	if named, ok := sink.(interface{ Name() string }); ok {
		return named.Name()
	}
	return "anonymous"
}
