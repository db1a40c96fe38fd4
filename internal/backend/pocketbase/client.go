// Package pocketbase implements the backend client contract against a
// hosted PocketBase server over its REST and realtime (SSE) APIs.
package pocketbase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aitteam/whm/internal/backend"
)

// DefaultTimeout bounds every non-streaming request.
const DefaultTimeout = 30 * time.Second

// Config configures a Client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client talks to one PocketBase server. It is safe for concurrent use.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	stream  *http.Client
	logger  *slog.Logger

	mu    sync.RWMutex
	token string

	rt *realtime
}

var _ backend.Client = (*Client)(nil)

// New creates a Client for cfg.BaseURL.
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid backend url %q", cfg.BaseURL)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
			},
		}
	}
	// Streams stay open indefinitely, so they share the transport but not
	// the overall timeout.
	stream := *hc
	stream.Timeout = 0
	requests := *hc
	requests.Timeout = timeout

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &Client{baseURL: base, http: &requests, stream: &stream, logger: logger}
	c.rt = newRealtime(c)
	return c, nil
}

// Factory returns a backend.Factory producing independent clients for the
// same server.
func Factory(cfg Config) (backend.Factory, error) {
	if _, err := New(cfg); err != nil {
		return nil, err
	}
	return func() backend.Client {
		c, _ := New(cfg)
		return c
	}, nil
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Close stops the realtime connection, if any.
func (c *Client) Close() {
	c.rt.close()
}

func (c *Client) Collection(name string) backend.Collection {
	return &collection{c: c, name: name}
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func collectionPath(name string, parts ...string) string {
	p := "/api/collections/" + url.PathEscape(name)
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", token)
	}
	return req, nil
}

// do sends one request and decodes a 2xx JSON body into out (when non-nil).
// Non-2xx responses are returned as *backend.Error.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp.StatusCode, data)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

type errorBody struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// decodeError maps an error response onto *backend.Error. The HTTP status
// always wins over whatever the body claims.
func decodeError(status int, data []byte) *backend.Error {
	out := backend.NewError(status, http.StatusText(status))
	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil {
		return out
	}
	if body.Message != "" {
		out.Message = body.Message
	}
	if len(body.Data) > 0 {
		var fields map[string]backend.FieldError
		if err := json.Unmarshal(body.Data, &fields); err == nil && fields != nil {
			out.Data = fields
		}
	}
	return out
}

func (c *Client) AuthWithPassword(ctx context.Context, collection, identity, password string) (backend.AuthResult, error) {
	var res backend.AuthResult
	body := map[string]string{"identity": identity, "password": password}
	err := c.do(ctx, http.MethodPost, collectionPath(collection, "auth-with-password"), nil, body, &res)
	return res, err
}

// authMethodsJSON accepts both the flat (<= v0.22) and the nested (v0.23+)
// response layouts.
type authMethodsJSON struct {
	EmailPassword    bool                   `json:"emailPassword"`
	UsernamePassword bool                   `json:"usernamePassword"`
	AuthProviders    []backend.AuthProvider `json:"authProviders"`
	Password         *struct {
		Enabled bool `json:"enabled"`
	} `json:"password"`
	OAuth2 *struct {
		Enabled   bool                   `json:"enabled"`
		Providers []backend.AuthProvider `json:"providers"`
	} `json:"oauth2"`
}

func (c *Client) AuthMethods(ctx context.Context, collection string) (backend.AuthMethods, error) {
	var raw authMethodsJSON
	if err := c.do(ctx, http.MethodGet, collectionPath(collection, "auth-methods"), nil, nil, &raw); err != nil {
		return backend.AuthMethods{}, err
	}
	out := backend.AuthMethods{
		Password:  raw.EmailPassword || raw.UsernamePassword,
		Providers: []backend.AuthProvider{},
	}
	providers := raw.AuthProviders
	if raw.Password != nil {
		out.Password = raw.Password.Enabled
	}
	if raw.OAuth2 != nil && raw.OAuth2.Enabled {
		providers = append(providers, raw.OAuth2.Providers...)
	}
	out.Providers = append(out.Providers, providers...)
	return out, nil
}

func (c *Client) AuthWithOAuth2(ctx context.Context, collection string, req backend.OAuth2Request) (backend.AuthResult, error) {
	var res backend.AuthResult
	err := c.do(ctx, http.MethodPost, collectionPath(collection, "auth-with-oauth2"), nil, req, &res)
	return res, err
}

type collection struct {
	c    *Client
	name string
}

func listQuery(opts backend.ListOptions) url.Values {
	q := url.Values{}
	if opts.Sort != "" {
		q.Set("sort", opts.Sort)
	}
	if opts.Expand != "" {
		q.Set("expand", opts.Expand)
	}
	if opts.Filter != "" {
		q.Set("filter", opts.Filter)
	}
	return q
}

func (col *collection) GetList(ctx context.Context, page, perPage int, opts backend.ListOptions) (backend.ListResult, error) {
	q := listQuery(opts)
	q.Set("page", strconv.Itoa(page))
	q.Set("perPage", strconv.Itoa(perPage))

	var res backend.ListResult
	if err := col.c.do(ctx, http.MethodGet, collectionPath(col.name, "records"), q, nil, &res); err != nil {
		return backend.ListResult{}, err
	}
	if res.Items == nil {
		res.Items = []backend.Record{}
	}
	return res, nil
}

func (col *collection) GetOne(ctx context.Context, id string, opts backend.ListOptions) (backend.Record, error) {
	if id == "" {
		return nil, errors.New("record id is required")
	}
	var rec backend.Record
	err := col.c.do(ctx, http.MethodGet, collectionPath(col.name, "records", id), listQuery(opts), nil, &rec)
	return rec, err
}

func (col *collection) Create(ctx context.Context, data backend.Record) (backend.Record, error) {
	var rec backend.Record
	err := col.c.do(ctx, http.MethodPost, collectionPath(col.name, "records"), nil, data, &rec)
	return rec, err
}

func (col *collection) Update(ctx context.Context, id string, data backend.Record) (backend.Record, error) {
	if id == "" {
		return nil, errors.New("record id is required")
	}
	var rec backend.Record
	err := col.c.do(ctx, http.MethodPatch, collectionPath(col.name, "records", id), nil, data, &rec)
	return rec, err
}

func (col *collection) Delete(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("record id is required")
	}
	return col.c.do(ctx, http.MethodDelete, collectionPath(col.name, "records", id), nil, nil, nil)
}

func (col *collection) Subscribe(ctx context.Context, topic string, handler backend.EventHandler) error {
	if topic == "" {
		topic = "*"
	}
	return col.c.rt.subscribe(ctx, col.name+"/"+topic, handler)
}

func (col *collection) Unsubscribe(topic string) error {
	if topic == "" {
		topic = "*"
	}
	return col.c.rt.unsubscribe(col.name + "/" + topic)
}
