package httpapi

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/aitteam/whm/internal/backend"
	"github.com/gorilla/websocket"
)

const (
	relayBuffer  = 64
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

func (s *Server) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  4 * 1024,
		WriteBufferSize: 32 * 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if origin == "" || slices.Contains(s.origins, "*") {
				return true
			}
			return slices.Contains(s.origins, origin)
		},
	}
}

// handleRealtime relays backend record events of one collection to a
// websocket as JSON text frames. Browsers cannot set headers on a websocket,
// so the token may also come as the token query parameter.
func (s *Server) handleRealtime(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	collection := q.Get("collection")
	if collection == "" {
		collection = backend.UsersCollection
	}
	topic := q.Get("topic")
	if topic == "" {
		topic = "*"
	}

	client := s.clientFor(r)
	if token := q.Get("token"); token != "" {
		client.SetToken(token)
	}
	if c, ok := client.(interface{ Close() }); ok {
		defer c.Close()
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events := make(chan backend.Event, relayBuffer)
	err := client.Collection(collection).Subscribe(ctx, topic, func(ev backend.Event) {
		select {
		case events <- ev:
		case <-ctx.Done():
		default:
			s.logger.Warn("realtime relay dropped event", "collection", collection, "action", ev.Action)
		}
	})
	if err != nil {
		s.failed(r, "subscribe", err)
		writeError(w, http.StatusInternalServerError, msgSystem)
		return
	}
	defer func() { _ = client.Collection(collection).Unsubscribe(topic) }()

	up := s.upgrader()
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		return
	}
	defer conn.Close()

	s.metrics.streams.Inc()
	defer s.metrics.streams.Dec()

	// The read side only watches for the peer going away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeTimeout))
			return
		case ev := <-events:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
