package workers

import (
	"chat-presence/contract"
	"chat-presence/domain"
	"context"
	"log/slog"
	"time"
)

var _ contract.Worker = (*PushFanout)(nil)

// PushFanout drains the push queue and hands each push to the registry for delivery.
//
// Delivery is best-effort: no retries, no ordering across pushes, no durability.
// A push that cannot be delivered within the delivery timeout is logged and dropped.
// Several PushFanout workers may share one queue.
type PushFanout struct {
	log       *slog.Logger
	pushes    <-chan domain.Push
	deliverer contract.Deliverer
	timeout   time.Duration
}

func NewPushFanout(log *slog.Logger, pushes <-chan domain.Push, deliverer contract.Deliverer, timeout time.Duration) *PushFanout {
	return &PushFanout{log: log, pushes: pushes, deliverer: deliverer, timeout: timeout}
}

func (w *PushFanout) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping push fanout")
			return ctx.Err()
		case push, ok := <-w.pushes:
			if !ok {
				w.log.Debug("Push queue closed")
				return nil
			}
			w.deliver(ctx, push)
		}
	}
}

func (w *PushFanout) deliver(ctx context.Context, push domain.Push) {
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}
	if err := w.deliverer.Deliver(ctx, push); err != nil {
		w.log.Debug("Push partially delivered",
			"kind", push.Payload.Kind, "recipients", len(push.Recipients), "error", err)
	}
}
