// Package runtime owns the hub state: connections, participants and the event log.
// It orchestrates the supervised workers without containing transport concerns.
package runtime

import (
	"chat-hub/contract"
	"chat-hub/domain/event"
	"chat-hub/runtime/workers"
	"context"
	"log/slog"
	"sync"
	"time"
)

type OrchestratorConfig struct {
	Hub               HubConfig
	EventLogRetention int
	SinkBufferSize    int
	SinkTimeout       time.Duration
	IdleTimeout       time.Duration
	ReapInterval      time.Duration
	MetricInterval    time.Duration
}

type Orchestrator struct {
	mu             sync.Mutex
	log            *slog.Logger
	hub            *Hub
	supervisor     contract.ISupervisor
	permanentSinks []contract.EventSink
	sinkEvents     chan event.Event
	config         OrchestratorConfig
}

func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor,
	filter contract.TextFilter, config OrchestratorConfig) *Orchestrator {
	sinkEvents := make(chan event.Event, max(config.SinkBufferSize, 1))
	hub := NewHub(log, NewRegistry(), NewEventLog(config.EventLogRetention), sinkEvents, filter, config.Hub)
	return &Orchestrator{
		log:        log,
		hub:        hub,
		supervisor: supervisor,
		sinkEvents: sinkEvents,
		config:     config,
	}
}

func (o *Orchestrator) Hub() *Hub {
	return o.hub
}

// Add registers permanent sinks. They must be added before Start.
func (o *Orchestrator) Add(sinks ...contract.EventSink) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.permanentSinks = append(o.permanentSinks, sinks...)
}

// Start registers the workers and blocks while the supervisor runs them.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	sinks := append([]contract.EventSink(nil), o.permanentSinks...)
	o.supervisor.Add(workers.NewEventFanout(o.log, o.sinkEvents, o.config.SinkTimeout, sinks...))
	if o.config.IdleTimeout > 0 && o.config.ReapInterval > 0 {
		o.supervisor.Add(workers.NewIdleReaper(o.log, o.hub, o.config.IdleTimeout, o.config.ReapInterval))
	}
	if o.config.MetricInterval > 0 {
		o.supervisor.Add(workers.NewChannelCapacityWorker(o.log, o.config.MetricInterval,
			workers.NamedChannel{Name: "sink_events", Channel: o.sinkEvents}))
	}
	o.mu.Unlock()

	o.log.Info("Starting orchestrator and all supervised workers", "sinks", len(sinks))
	o.supervisor.Run(ctx)
	return nil
}

// Stop closes the hub, detaching every connection, then cancels the workers.
// Events still waiting for the sinks at that point are dropped.
func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.hub.Close()
	o.supervisor.Stop()
}
