package runtime

import (
	"chat-presence/contract"
	"chat-presence/domain"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ConnectionSet holds the live connection handles of one user.
// It is not safe for concurrent use: the PresenceRegistry guards it with its own lock
// and delivers from a Clone once the lock is released.
type ConnectionSet struct {
	handles     map[domain.ConnectionID]contract.ConnectionHandle
	sendTimeout time.Duration
}

func NewConnectionSet(sendTimeout time.Duration) *ConnectionSet {
	return &ConnectionSet{
		handles:     make(map[domain.ConnectionID]contract.ConnectionHandle),
		sendTimeout: sendTimeout,
	}
}

// Add stores the handle under a fresh id unique within this set.
func (c *ConnectionSet) Add(handle contract.ConnectionHandle) domain.ConnectionID {
	for {
		id := domain.ConnectionID(uuid.NewString())
		if _, taken := c.handles[id]; !taken {
			c.handles[id] = handle
			return id
		}
	}
}

// Remove drops the handle if present.
func (c *ConnectionSet) Remove(id domain.ConnectionID) {
	delete(c.handles, id)
}

func (c *ConnectionSet) IsEmpty() bool {
	return len(c.handles) == 0
}

func (c *ConnectionSet) Len() int {
	return len(c.handles)
}

func (c *ConnectionSet) Clone() *ConnectionSet {
	clone := NewConnectionSet(c.sendTimeout)
	for id, h := range c.handles {
		clone.handles[id] = h
	}
	return clone
}

// Broadcast sends the payload to every handle.
func (c *ConnectionSet) Broadcast(ctx context.Context, payload domain.Payload) error {
	return c.BroadcastExcept(ctx, payload, "")
}

// BroadcastExcept sends the payload to every handle but the skipped one.
// Each handle is served by its own goroutine under its own timeout, so a failing or
// stuck handle never holds back the others. Failures are joined into the returned error.
func (c *ConnectionSet) BroadcastExcept(ctx context.Context, payload domain.Payload, skip domain.ConnectionID) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for id, h := range c.handles {
		if id == skip {
			continue
		}
		wg.Add(1)
		go func(id domain.ConnectionID, h contract.ConnectionHandle) {
			defer wg.Done()
			if err := c.send(ctx, h, payload); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("connection %s: %w", id, err))
				mu.Unlock()
			}
		}(id, h)
	}
	wg.Wait()
	return errors.Join(errs...)
}

func (c *ConnectionSet) send(ctx context.Context, h contract.ConnectionHandle, payload domain.Payload) (err error) {
	if c.sendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.sendTimeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("send panicked: %v", r)
		}
	}()
	return h.Send(ctx, payload)
}
