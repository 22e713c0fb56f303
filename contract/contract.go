//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-presence/domain"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// It is only used for logging during supervision.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// ConnectionHandle is one physical client connection, handed over by the transport
// once authenticated. Send may block up to the context deadline.
type ConnectionHandle interface {
	Send(ctx context.Context, payload domain.Payload) error
	Close() error
}

// Deliverer resolves a push to live connections and sends it.
type Deliverer interface {
	Deliver(ctx context.Context, push domain.Push) error
}

// Pusher enqueues a push without waiting for its delivery.
type Pusher interface {
	Push(push domain.Push)
}
