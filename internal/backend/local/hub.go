package local

import (
	"sync"

	"github.com/aitteam/whm/internal/backend"
)

// eventBuffer is how many undelivered events a slow subscriber may queue
// before further events to it are dropped.
const eventBuffer = 32

type subscriber struct {
	collection string
	topic      string
	ch         chan backend.Event
}

// hub fans record events out to in-process subscribers.
type hub struct {
	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

func newHub() *hub {
	return &hub{subs: map[*subscriber]struct{}{}}
}

// subscribe starts delivering matching events to handler on a dedicated
// goroutine until the returned cancel func is called.
func (h *hub) subscribe(collection, topic string, handler backend.EventHandler) (cancel func()) {
	sub := &subscriber{collection: collection, topic: topic, ch: make(chan backend.Event, eventBuffer)}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	go func() {
		for ev := range sub.ch {
			handler(ev)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, sub)
			h.mu.Unlock()
			close(sub.ch)
		})
	}
}

func (h *hub) publish(collection string, ev backend.Event) {
	id := ev.Record.ID()
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		if sub.collection != collection {
			continue
		}
		if sub.topic != "*" && sub.topic != id {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
		}
	}
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
