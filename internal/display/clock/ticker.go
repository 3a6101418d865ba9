// Package clock owns the per-order stopwatch subscriptions. An order is
// subscribed only while its status keeps the escalation clock running, so a
// tick costs nothing for orders that are already ready or served.
package clock

import (
	"sync"
	"time"
)

type Ticker struct {
	interval time.Duration

	mu   sync.Mutex
	subs map[string]struct{}

	ticks chan []string
	stop  chan struct{}
	done  chan struct{}
}

func New(interval time.Duration) *Ticker {
	if interval <= 0 {
		interval = time.Second
	}
	return &Ticker{
		interval: interval,
		subs:     make(map[string]struct{}),
		ticks:    make(chan []string, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Ticks delivers, once per interval, the ids of every subscribed order.
// A tick is dropped rather than queued when the consumer is busy; the next
// one recomputes from a fresher "now" anyway.
func (t *Ticker) Ticks() <-chan []string { return t.ticks }

func (t *Ticker) Subscribe(orderID string) {
	t.mu.Lock()
	t.subs[orderID] = struct{}{}
	t.mu.Unlock()
}

func (t *Ticker) Unsubscribe(orderID string) {
	t.mu.Lock()
	delete(t.subs, orderID)
	t.mu.Unlock()
}

func (t *Ticker) Subscribed(orderID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.subs[orderID]
	return ok
}

func (t *Ticker) Start() {
	go t.run()
}

func (t *Ticker) Stop() {
	close(t.stop)
	<-t.done
}

func (t *Ticker) run() {
	defer close(t.done)
	tk := time.NewTicker(t.interval)
	defer tk.Stop()
	for {
		select {
		case <-t.stop:
			return
		case <-tk.C:
			ids := t.snapshot()
			if len(ids) == 0 {
				continue
			}
			select {
			case t.ticks <- ids:
			default:
			}
		}
	}
}

func (t *Ticker) snapshot() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]string, 0, len(t.subs))
	for id := range t.subs {
		ids = append(ids, id)
	}
	return ids
}
