package app

import "sync"

// Changes fans a "state changed" signal out to subscribers.
//
// Delivery is best effort and coalescing: a subscriber that has not yet
// consumed the previous signal does not get a second one, and a slow
// subscriber never blocks the receive loop.
type Changes struct {
	mu   sync.Mutex
	subs map[int]chan struct{}
	next int
}

func NewChanges() *Changes {
	return &Changes{subs: make(map[int]chan struct{})}
}

// Subscribe returns the signal channel and a func that unsubscribes.
func (c *Changes) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	c.mu.Lock()
	id := c.next
	c.next++
	c.subs[id] = ch
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}

func (c *Changes) Notify() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (c *Changes) Subscribers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}
