package testutil

import (
	"context"
	"sync"
	"time"
)

// Event is one recorded publish.
type Event struct {
	RoutingKey string
	Payload    any
}

// Publisher records published events.
type Publisher struct {
	mu     sync.Mutex
	Err    error
	events []Event
}

func (p *Publisher) Publish(_ context.Context, routingKey string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.events = append(p.events, Event{RoutingKey: routingKey, Payload: event})
	return nil
}

func (p *Publisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Event(nil), p.events...)
}

// Keys returns the routing keys in publish order.
func (p *Publisher) Keys() []string {
	var out []string
	for _, e := range p.Events() {
		out = append(out, e.RoutingKey)
	}
	return out
}

// Cache is a map-backed count cache that ignores TTLs.
type Cache struct {
	mu   sync.Mutex
	vals map[string]int
	Sets int
}

func (c *Cache) GetCount(_ context.Context, key string) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.vals[key]
	return n, ok
}

func (c *Cache) SetCount(_ context.Context, key string, n int, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.vals == nil {
		c.vals = map[string]int{}
	}
	c.vals[key] = n
	c.Sets++
}
