// Package runtime owns the in-memory side of the chat core: live connections,
// presence state and the push pipeline. It holds no persistence logic.
package runtime

import (
	"chat-presence/contract"
	"chat-presence/domain"
	"chat-presence/runtime/workers"
	"context"
	"log/slog"
	"time"
)

var _ contract.Pusher = (*Orchestrator)(nil)

// Orchestrator queues pushes and runs the supervised fanout workers draining them.
type Orchestrator struct {
	log         *slog.Logger
	supervisor  contract.ISupervisor
	registry    *PresenceRegistry
	pushes      chan domain.Push
	numWorkers  int
	sinkTimeout time.Duration
	// sampleEvery enables queue depth logging when positive.
	sampleEvery time.Duration
}

func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor, registry *PresenceRegistry,
	numWorkers, bufferSize int, sinkTimeout time.Duration) *Orchestrator {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	return &Orchestrator{
		log:         log,
		supervisor:  supervisor,
		registry:    registry,
		pushes:      make(chan domain.Push, bufferSize),
		numWorkers:  numWorkers,
		sinkTimeout: sinkTimeout,
	}
}

// Push enqueues without blocking. A full queue drops the push: presence and read
// notifications are advisory and must never stall the mutation that produced them.
func (o *Orchestrator) Push(push domain.Push) {
	if len(push.Recipients) == 0 {
		return
	}
	select {
	case o.pushes <- push:
	default:
		o.log.Warn("Push queue full, dropping push", "kind", push.Payload.Kind, "topic", push.Payload.TopicID)
	}
}

// WithQueueSampling makes Start also run a worker logging the push queue depth.
func (o *Orchestrator) WithQueueSampling(interval time.Duration) *Orchestrator {
	o.sampleEvery = interval
	return o
}

// Start registers the fanout workers and runs the supervisor until ctx is canceled
// or Stop is called.
func (o *Orchestrator) Start(ctx context.Context) {
	for i := 0; i < o.numWorkers; i++ {
		o.supervisor.Add(workers.NewPushFanout(o.log, o.pushes, o.registry, o.sinkTimeout))
	}
	if o.sampleEvery > 0 {
		o.supervisor.Add(workers.NewChannelCapacityWorker(o.log,
			[]workers.NamedChannel{{Name: "pushes", Channel: o.pushes}}, o.sampleEvery))
	}
	o.log.Info("Starting orchestrator and all supervised workers", "workers", o.numWorkers)
	o.supervisor.Run(ctx)
}

func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.supervisor.Stop()
}
