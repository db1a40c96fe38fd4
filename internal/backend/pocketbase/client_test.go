package pocketbase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aitteam/whm/internal/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{BaseURL: srv.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestNew_RejectsBadURL(t *testing.T) {
	_, err := New(Config{BaseURL: "not a url"})
	assert.Error(t, err)
	_, err = New(Config{BaseURL: ""})
	assert.Error(t, err)
}

func TestGetList_QueryAndAuthHeader(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/collections/ait_whm_works/records", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "10", q.Get("perPage"))
		assert.Equal(t, "-created", q.Get("sort"))
		assert.Equal(t, "own_users,own_projects,own_tasks", q.Get("expand"))
		assert.Equal(t, "tok123", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"page":2,"perPage":10,"totalItems":11,"totalPages":2,"items":[{"id":"w1","name":"Coding","hour":1.5}]}`)
	}))
	c.SetToken("tok123")

	res, err := c.Collection("ait_whm_works").GetList(context.Background(), 2, 10, backend.ListOptions{
		Sort: "-created", Expand: "own_users,own_projects,own_tasks",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalPages)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "w1", res.Items[0].ID())
	assert.Equal(t, 1.5, res.Items[0]["hour"])
}

func TestGetList_EmptyItemsNeverNil(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"page":1,"perPage":10,"totalItems":0,"totalPages":0,"items":null}`)
	}))
	res, err := c.Collection("ait_whm_tasks").GetList(context.Background(), 1, 10, backend.ListOptions{})
	require.NoError(t, err)
	assert.NotNil(t, res.Items)
}

func TestErrorResponse_Decoded(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"code":400,"message":"Failed to create record.","data":{"password":{"code":"validation_length_out_of_range","message":"The length must be between 8 and 72."}}}`)
	}))

	_, err := c.Collection("users").Create(context.Background(), backend.Record{"password": "abcd"})
	var be *backend.Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, http.StatusBadRequest, be.Status)
	fe, ok := be.Field("password")
	require.True(t, ok)
	assert.Equal(t, backend.CodeLengthOutRange, fe.Code)
}

func TestErrorResponse_NonJSONBody(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	_, err := c.Collection("ait_whm_tasks").GetList(context.Background(), 1, 10, backend.ListOptions{})
	assert.Equal(t, http.StatusBadGateway, backend.StatusOf(err))
}

func TestNetworkError_HasNoStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(Config{BaseURL: url, Timeout: time.Second})
	require.NoError(t, err)
	_, err = c.Collection("ait_whm_tasks").GetList(context.Background(), 1, 10, backend.ListOptions{})
	require.Error(t, err)
	assert.Equal(t, 0, backend.StatusOf(err))
}

func TestCRUDRoutes(t *testing.T) {
	var (
		mu    sync.Mutex
		calls []string
	)
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls = append(calls, r.Method+" "+r.URL.Path)
		mu.Unlock()
		switch r.Method {
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		case http.MethodPost, http.MethodPatch:
			var body map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			body["id"] = "t1"
			_ = json.NewEncoder(w).Encode(body)
		default:
			_, _ = io.WriteString(w, `{"id":"t1","name":"Review"}`)
		}
	}))
	tasks := c.Collection("ait_whm_tasks")
	ctx := context.Background()

	rec, err := tasks.Create(ctx, backend.Record{"name": "Review", "type": "URGENT"})
	require.NoError(t, err)
	assert.Equal(t, "URGENT", rec["type"])
	_, err = tasks.Update(ctx, "t1", backend.Record{"name": "Review 2"})
	require.NoError(t, err)
	_, err = tasks.GetOne(ctx, "t1", backend.ListOptions{})
	require.NoError(t, err)
	require.NoError(t, tasks.Delete(ctx, "t1"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		"POST /api/collections/ait_whm_tasks/records",
		"PATCH /api/collections/ait_whm_tasks/records/t1",
		"GET /api/collections/ait_whm_tasks/records/t1",
		"DELETE /api/collections/ait_whm_tasks/records/t1",
	}, calls)

	assert.Error(t, tasks.Delete(ctx, ""))
}

func TestAuthWithPassword(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/collections/users/auth-with-password", r.URL.Path)
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["identity"] != "a@b.com" || body["password"] != "secret1" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"code":400,"message":"Failed to authenticate.","data":{}}`)
			return
		}
		_, _ = io.WriteString(w, `{"token":"jwt","record":{"id":"u1","name":"Amy","email":"a@b.com"}}`)
	}))

	res, err := c.AuthWithPassword(context.Background(), "users", "a@b.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "jwt", res.Token)
	assert.Equal(t, "u1", res.Record.ID())

	_, err = c.AuthWithPassword(context.Background(), "users", "a@b.com", "wrong")
	assert.Equal(t, http.StatusBadRequest, backend.StatusOf(err))
}

func TestAuthMethods_BothLayouts(t *testing.T) {
	bodies := map[string]string{
		"flat":   `{"usernamePassword":false,"emailPassword":true,"authProviders":[{"name":"google","state":"s1","authUrl":"https://accounts.example/auth?x=1&redirect_uri=","codeVerifier":"v1"}]}`,
		"nested": `{"password":{"enabled":true},"oauth2":{"enabled":true,"providers":[{"name":"google","state":"s1","authURL":"https://accounts.example/auth?x=1&redirect_uri=","codeVerifier":"v1"}]}}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, body)
			}))
			m, err := c.AuthMethods(context.Background(), "users")
			require.NoError(t, err)
			assert.True(t, m.Password)
			p, ok := m.Provider("google")
			require.True(t, ok)
			assert.Equal(t, "s1", p.State)
			assert.Equal(t, "v1", p.CodeVerifier)
			assert.True(t, strings.HasSuffix(p.AuthURL, "redirect_uri="))
		})
	}
}

func TestReadEvents(t *testing.T) {
	stream := "id:c1\nevent:PB_CONNECT\ndata:{\"clientId\":\"c1\"}\n\n" +
		": keepalive\n\n" +
		"event:users/*\ndata:{\"action\":\"create\",\ndata:\"record\":{\"id\":\"u1\"}}\n\n"
	var got []sseEvent
	require.NoError(t, readEvents(strings.NewReader(stream), func(ev sseEvent) { got = append(got, ev) }))
	require.Len(t, got, 2)
	assert.Equal(t, "PB_CONNECT", got[0].name)
	assert.Equal(t, "c1", got[0].id)
	assert.Equal(t, "users/*", got[1].name)
	assert.Equal(t, "{\"action\":\"create\",\n\"record\":{\"id\":\"u1\"}}", got[1].data)
}

// realtimeServer emulates the SSE endpoint: it assigns a client id, waits
// for the subscription POST, then pushes one event per subscribed topic.
func realtimeServer(t *testing.T, subscribed chan<- []string) http.Handler {
	pushed := make(chan []string, 1)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			flusher := w.(http.Flusher)
			w.Header().Set("Content-Type", "text/event-stream")
			fmt.Fprint(w, "id:client-1\nevent:PB_CONNECT\ndata:{\"clientId\":\"client-1\"}\n\n")
			flusher.Flush()
			select {
			case keys := <-pushed:
				for _, k := range keys {
					fmt.Fprintf(w, "event:%s\ndata:{\"action\":\"create\",\"record\":{\"id\":\"u9\",\"name\":\"Newbie\"}}\n\n", k)
				}
				flusher.Flush()
			case <-r.Context().Done():
				return
			}
			<-r.Context().Done()
		case http.MethodPost:
			var body struct {
				ClientID      string   `json:"clientId"`
				Subscriptions []string `json:"subscriptions"`
			}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "client-1", body.ClientID)
			subscribed <- body.Subscriptions
			if len(body.Subscriptions) > 0 {
				pushed <- body.Subscriptions
			}
			w.WriteHeader(http.StatusNoContent)
		}
	})
}

func TestRealtime_SubscribeReceivesEvents(t *testing.T) {
	subscribed := make(chan []string, 4)
	c := newTestClient(t, realtimeServer(t, subscribed))
	c.SetToken("tok")

	events := make(chan backend.Event, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, c.Collection("users").Subscribe(ctx, "*", func(ev backend.Event) { events <- ev }))

	assert.Equal(t, []string{"users/*"}, <-subscribed)
	select {
	case ev := <-events:
		assert.Equal(t, backend.ActionCreate, ev.Action)
		assert.Equal(t, "Newbie", ev.Record["name"])
	case <-time.After(3 * time.Second):
		t.Fatal("no event received")
	}

	require.NoError(t, c.Collection("users").Unsubscribe("*"))
}
