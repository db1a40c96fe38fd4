package pocketbase

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aitteam/whm/internal/backend"
)

const (
	realtimePath   = "/api/realtime"
	connectEvent   = "PB_CONNECT"
	connectTimeout = 10 * time.Second
	maxBackoff     = 30 * time.Second
)

type subscription struct {
	handler backend.EventHandler
}

// realtime multiplexes every subscription of a Client over one SSE stream.
// The server assigns a client id on connect; the subscription set is then
// (re)submitted with a POST carrying that id.
type realtime struct {
	c *Client

	mu       sync.Mutex
	clientID string
	subs     map[string][]*subscription
	cancel   context.CancelFunc
	ready    chan struct{}
	closed   bool
}

func newRealtime(c *Client) *realtime {
	return &realtime{c: c, subs: map[string][]*subscription{}}
}

func (r *realtime) subscribe(ctx context.Context, key string, handler backend.EventHandler) error {
	sub := &subscription{handler: handler}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return errors.New("realtime connection closed")
	}
	r.subs[key] = append(r.subs[key], sub)
	ready := r.connectLocked()
	r.mu.Unlock()

	waitCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	select {
	case <-ready:
	case <-waitCtx.Done():
		r.remove(key, sub)
		return fmt.Errorf("connecting realtime: %w", waitCtx.Err())
	}

	if err := r.submit(ctx); err != nil {
		r.remove(key, sub)
		return err
	}

	go func() {
		<-ctx.Done()
		if r.remove(key, sub) {
			_ = r.submit(context.Background())
		}
	}()
	return nil
}

func (r *realtime) unsubscribe(key string) error {
	r.mu.Lock()
	_, had := r.subs[key]
	delete(r.subs, key)
	if len(r.subs) == 0 {
		r.stopLocked()
	}
	r.mu.Unlock()
	if !had {
		return nil
	}
	return r.submit(context.Background())
}

// remove drops one subscription and reports whether it was still present.
func (r *realtime) remove(key string, sub *subscription) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.subs[key]
	for i, s := range list {
		if s == sub {
			list = append(list[:i], list[i+1:]...)
			if len(list) == 0 {
				delete(r.subs, key)
			} else {
				r.subs[key] = list
			}
			if len(r.subs) == 0 {
				r.stopLocked()
			}
			return true
		}
	}
	return false
}

func (r *realtime) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.subs = map[string][]*subscription{}
	r.stopLocked()
}

// stopLocked tears the stream down once nothing is subscribed.
func (r *realtime) stopLocked() {
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.clientID = ""
}

// connectLocked starts the stream goroutine if it is not running and
// returns a channel closed once the server has assigned a client id.
func (r *realtime) connectLocked() <-chan struct{} {
	if r.cancel != nil {
		return r.ready
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.ready = make(chan struct{})
	go r.run(ctx, r.ready)
	return r.ready
}

// run keeps the stream open, reconnecting with backoff while there are
// subscriptions left.
func (r *realtime) run(ctx context.Context, ready chan struct{}) {
	backoff := time.Second
	first := true
	for {
		err := r.stream(ctx, func() {
			if first {
				close(ready)
				first = false
			} else {
				_ = r.submit(ctx)
			}
			backoff = time.Second
		})
		if ctx.Err() != nil {
			return
		}
		r.c.logger.Warn("realtime stream ended", "error", err, "retry_in", backoff)

		r.mu.Lock()
		r.clientID = ""
		idle := len(r.subs) == 0
		if idle {
			r.stopLocked()
		}
		r.mu.Unlock()
		if idle {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

// stream reads one SSE connection until it ends. onConnect runs after the
// client id is known.
func (r *realtime) stream(ctx context.Context, onConnect func()) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.c.endpoint(realtimePath, nil), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	resp, err := r.c.stream.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("realtime stream status %d", resp.StatusCode)
	}

	return readEvents(resp.Body, func(ev sseEvent) {
		if ev.name == connectEvent {
			var hello struct {
				ClientID string `json:"clientId"`
			}
			if err := json.Unmarshal([]byte(ev.data), &hello); err != nil || hello.ClientID == "" {
				hello.ClientID = ev.id
			}
			r.mu.Lock()
			r.clientID = hello.ClientID
			r.mu.Unlock()
			onConnect()
			return
		}
		r.dispatch(ev)
	})
}

func (r *realtime) dispatch(ev sseEvent) {
	var payload backend.Event
	if err := json.Unmarshal([]byte(ev.data), &payload); err != nil {
		return
	}
	r.mu.Lock()
	handlers := make([]backend.EventHandler, 0, len(r.subs[ev.name]))
	for _, s := range r.subs[ev.name] {
		handlers = append(handlers, s.handler)
	}
	r.mu.Unlock()
	for _, h := range handlers {
		h(payload)
	}
}

// submit posts the current subscription set for the connected client id.
func (r *realtime) submit(ctx context.Context) error {
	r.mu.Lock()
	id := r.clientID
	keys := make([]string, 0, len(r.subs))
	for k := range r.subs {
		keys = append(keys, k)
	}
	r.mu.Unlock()
	if id == "" {
		return nil
	}
	sort.Strings(keys)
	body := map[string]any{"clientId": id, "subscriptions": keys}
	if err := r.c.do(ctx, http.MethodPost, realtimePath, nil, body, nil); err != nil {
		return fmt.Errorf("submitting realtime subscriptions: %w", err)
	}
	return nil
}

type sseEvent struct {
	id   string
	name string
	data string
}

// readEvents parses a text/event-stream body, calling emit per event.
func readEvents(body io.Reader, emit func(sseEvent)) error {
	sc := bufio.NewScanner(body)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)

	var (
		ev   sseEvent
		data []string
	)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			if ev.name != "" || len(data) > 0 {
				ev.data = strings.Join(data, "\n")
				emit(ev)
			}
			ev, data = sseEvent{}, nil
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "id":
			ev.id = value
		case "event":
			ev.name = value
		case "data":
			data = append(data, value)
		}
	}
	return sc.Err()
}
