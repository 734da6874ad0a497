// Package bus moves activities between channel adapters and the turn
// pipeline through bounded queues.
package bus

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dotsetgreg/agenthost/pkg/schema"
)

// ActivityBus carries inbound activities from channels to the agent loop
// and outbound activities back. Both directions are bounded; a full queue
// drops after a short grace period rather than blocking a channel adapter.
type ActivityBus struct {
	inbound  chan *schema.Activity
	outbound chan *schema.Activity
	closed   bool
	dropped  droppedCounters
	mu       sync.RWMutex
}

type droppedCounters struct {
	inbound  atomic.Uint64
	outbound atomic.Uint64
}

const publishTimeout = 100 * time.Millisecond

func NewActivityBus() *ActivityBus {
	return &ActivityBus{
		inbound:  make(chan *schema.Activity, 100),
		outbound: make(chan *schema.Activity, 100),
	}
}

func (b *ActivityBus) PublishInbound(a *schema.Activity) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	select {
	case b.inbound <- a:
	default:
		timer := time.NewTimer(publishTimeout)
		defer timer.Stop()
		select {
		case b.inbound <- a:
		case <-timer.C:
			b.dropped.inbound.Add(1)
		}
	}
}

func (b *ActivityBus) ConsumeInbound(ctx context.Context) (*schema.Activity, bool) {
	select {
	case a, ok := <-b.inbound:
		if !ok {
			return nil, false
		}
		return a, true
	case <-ctx.Done():
		return nil, false
	}
}

func (b *ActivityBus) PublishOutbound(a *schema.Activity) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	select {
	case b.outbound <- a:
	default:
		timer := time.NewTimer(publishTimeout)
		defer timer.Stop()
		select {
		case b.outbound <- a:
		case <-timer.C:
			b.dropped.outbound.Add(1)
		}
	}
}

func (b *ActivityBus) SubscribeOutbound(ctx context.Context) (*schema.Activity, bool) {
	select {
	case a, ok := <-b.outbound:
		if !ok {
			return nil, false
		}
		return a, true
	case <-ctx.Done():
		return nil, false
	}
}

func (b *ActivityBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.inbound)
	close(b.outbound)
}

func (b *ActivityBus) DroppedInbound() uint64 {
	return b.dropped.inbound.Load()
}

func (b *ActivityBus) DroppedOutbound() uint64 {
	return b.dropped.outbound.Load()
}
