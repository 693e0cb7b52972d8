package statuschannel

import (
	"sync"

	"go.uber.org/zap"

	"github.com/utkarsh205-ui/order-execution-engine/pkg/engine/model"
)

// Sink is one delivery target, typically a live client connection. Send
// must be safe for concurrent use.
type Sink interface {
	Send(event *model.StatusEvent) error
}

// Channel is the per-order status push channel. At most one sink is bound
// per order id; publishing without a bound sink drops the event. Delivery
// is best-effort: the authoritative outcome is the persisted order record,
// never this stream.
type Channel struct {
	mu    sync.RWMutex
	sinks map[string]Sink
}

func New() *Channel {
	return &Channel{
		sinks: make(map[string]Sink),
	}
}

// Bind associates a sink with an order id, replacing any prior binding.
func (c *Channel) Bind(orderID string, sink Sink) {
	c.mu.Lock()
	c.sinks[orderID] = sink
	total := len(c.sinks)
	c.mu.Unlock()

	zap.S().Debugf("status sink bound for order %s, total bindings: %d", orderID, total)
}

func (c *Channel) Unbind(orderID string) {
	c.mu.Lock()
	delete(c.sinks, orderID)
	total := len(c.sinks)
	c.mu.Unlock()

	zap.S().Debugf("status sink unbound for order %s, total bindings: %d", orderID, total)
}

// Publish delivers the event to the bound sink if any. It never blocks the
// caller on delivery problems and never returns an error.
func (c *Channel) Publish(orderID string, event *model.StatusEvent) {
	c.mu.RLock()
	sink := c.sinks[orderID]
	c.mu.RUnlock()

	if sink == nil {
		zap.S().Debugf("no sink bound for order %s, dropping %s event", orderID, event.Status)
		return
	}
	if err := sink.Send(event); err != nil {
		zap.S().Debugf("sink delivery failed for order %s: %v", orderID, err)
	}
}
