// Package backend defines the client contract of the hosted record-and-auth
// backend: paginated record collections, password and OAuth2 authentication,
// and realtime record events.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
)

// UsersCollection is the auth collection holding user accounts.
const UsersCollection = "users"

// Record is one backend record as a field map.
type Record map[string]any

// ID returns the record id, or "" when absent.
func (r Record) ID() string {
	id, _ := r["id"].(string)
	return id
}

// Decode converts a record (or any JSON-shaped value) into out.
func Decode(in any, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding record: %w", err)
	}
	return nil
}

// ListOptions are the query options of GetList.
type ListOptions struct {
	Sort   string
	Expand string
	Filter string
}

// ListResult is one page of records.
type ListResult struct {
	Page       int      `json:"page"`
	PerPage    int      `json:"perPage"`
	TotalItems int      `json:"totalItems"`
	TotalPages int      `json:"totalPages"`
	Items      []Record `json:"items"`
}

// AuthResult is returned by the authentication endpoints.
type AuthResult struct {
	Token  string `json:"token"`
	Record Record `json:"record"`
}

// AuthProvider describes one OAuth2 provider offered by the backend.
type AuthProvider struct {
	Name                string `json:"name"`
	DisplayName         string `json:"displayName"`
	State               string `json:"state"`
	AuthURL             string `json:"authUrl"`
	CodeVerifier        string `json:"codeVerifier"`
	CodeChallenge       string `json:"codeChallenge"`
	CodeChallengeMethod string `json:"codeChallengeMethod"`
}

// AuthMethods lists the login methods enabled on an auth collection.
type AuthMethods struct {
	Password  bool           `json:"password"`
	Providers []AuthProvider `json:"providers"`
}

// Provider returns the named provider, or false.
func (m AuthMethods) Provider(name string) (AuthProvider, bool) {
	for _, p := range m.Providers {
		if p.Name == name {
			return p, true
		}
	}
	return AuthProvider{}, false
}

// OAuth2Request completes an authorization-code exchange.
type OAuth2Request struct {
	Provider     string `json:"provider"`
	Code         string `json:"code"`
	CodeVerifier string `json:"codeVerifier"`
	RedirectURL  string `json:"redirectUrl"`
	CreateData   Record `json:"createData,omitempty"`
}

// Event actions delivered to realtime subscribers.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Event is one realtime record change.
type Event struct {
	Action string `json:"action"`
	Record Record `json:"record"`
}

// EventHandler receives realtime events. It is called off the caller's
// goroutine and must not block for long.
type EventHandler func(Event)

// Client is a session-bound connection to the backend. The token set with
// SetToken is attached to every subsequent request.
type Client interface {
	Collection(name string) Collection
	AuthWithPassword(ctx context.Context, collection, identity, password string) (AuthResult, error)
	AuthMethods(ctx context.Context, collection string) (AuthMethods, error)
	AuthWithOAuth2(ctx context.Context, collection string, req OAuth2Request) (AuthResult, error)
	SetToken(token string)
	Token() string
}

// Collection is the record API of one collection.
type Collection interface {
	GetList(ctx context.Context, page, perPage int, opts ListOptions) (ListResult, error)
	GetOne(ctx context.Context, id string, opts ListOptions) (Record, error)
	Create(ctx context.Context, data Record) (Record, error)
	Update(ctx context.Context, id string, data Record) (Record, error)
	Delete(ctx context.Context, id string) error

	// Subscribe delivers events for topic ("*" or a record id) until ctx
	// is done or Unsubscribe is called for the same topic.
	Subscribe(ctx context.Context, topic string, handler EventHandler) error
	Unsubscribe(topic string) error
}

// Factory creates an independent client, used where each caller carries its
// own token (for example one client per proxied HTTP request).
type Factory func() Client
