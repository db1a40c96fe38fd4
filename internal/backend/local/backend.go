// Package local is a self-hosted implementation of the backend client
// contract on top of SQLite. It mirrors the hosted backend's record API,
// validation codes, access rules and realtime events closely enough that the
// rest of the application cannot tell the two apart.
package local

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aitteam/whm/internal/backend"
	"github.com/aitteam/whm/internal/db"
	"github.com/aitteam/whm/internal/domain"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultPerPage = 30
	maxPerPage     = 500
)

// Backend owns the record store, the signing secret and the realtime hub.
// Clients created with NewClient share all three.
type Backend struct {
	uow       db.UnitOfWork
	schemas   map[string]*schema
	secret    []byte
	tokenTTL  time.Duration
	hub       *hub
	now       func() time.Time
	providers map[string]*OAuthProvider
	logger    *slog.Logger

	passwordCost int
}

type Option func(*Backend)

// WithSecret fixes the token signing secret instead of the persisted one.
func WithSecret(secret []byte) Option {
	return func(b *Backend) { b.secret = secret }
}

func WithClock(now func() time.Time) Option {
	return func(b *Backend) { b.now = now }
}

func WithTokenTTL(ttl time.Duration) Option {
	return func(b *Backend) { b.tokenTTL = ttl }
}

// WithOAuthProvider enables an OAuth2 login provider.
func WithOAuthProvider(p *OAuthProvider) Option {
	return func(b *Backend) { b.providers[p.Name] = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(b *Backend) { b.logger = l }
}

// WithPasswordCost sets the bcrypt cost of stored password hashes.
func WithPasswordCost(cost int) Option {
	return func(b *Backend) { b.passwordCost = cost }
}

// New creates a Backend over a migrated database (see db.OpenDB).
func New(database *sql.DB, opts ...Option) (*Backend, error) {
	return NewWithUoW(db.NewSQLiteUnitOfWork(database), opts...)
}

// NewWithUoW creates a Backend over an existing unit of work.
func NewWithUoW(uow db.UnitOfWork, opts ...Option) (*Backend, error) {
	b := &Backend{
		uow:       uow,
		schemas:   defaultSchemas(),
		tokenTTL:  DefaultTokenTTL,
		hub:       newHub(),
		now:       time.Now,
		providers: map[string]*OAuthProvider{},
		logger:    slog.New(slog.DiscardHandler),

		passwordCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(b)
	}
	if len(b.secret) == 0 {
		secret, err := loadOrCreateSecret(context.Background(), uow)
		if err != nil {
			return nil, err
		}
		b.secret = secret
	}
	return b, nil
}

// NewClient returns a client with its own token.
func (b *Backend) NewClient() backend.Client {
	return &client{b: b, subs: map[string]func(){}}
}

// Factory adapts NewClient to backend.Factory.
func (b *Backend) Factory() backend.Factory {
	return b.NewClient
}

func (b *Backend) timestamp() string {
	return domain.NewDateTime(b.now()).String()
}

func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:15]
}

// CreateAdmin inserts a verified user holding the Admin role, bypassing the
// access rules. It bootstraps a fresh store.
func (b *Backend) CreateAdmin(ctx context.Context, email, password, name string) (backend.Record, error) {
	s := b.schemas[UsersCollection]
	input := backend.Record{
		"email":           email,
		"name":            name,
		"emailVisibility": true,
		"verified":        true,
		"ait_whm_roles":   []string{string(domain.RoleAdmin)},
		"password":        password,
		"passwordConfirm": password,
	}
	rec, err := b.insert(ctx, s, input, true)
	if err != nil {
		return nil, err
	}
	return rec.toRecord(), nil
}

// insert validates input and stores a new record. privileged skips the
// admin-only field reset applied to ordinary callers.
func (b *Backend) insert(ctx context.Context, s *schema, input backend.Record, privileged bool) (*storedRecord, error) {
	values, failures := normalize(s, input, nil)
	if !privileged {
		for _, f := range s.fields {
			if f.adminOnly {
				values[f.name] = zeroValue(f)
			}
		}
	}
	var password string
	if s.auth {
		password = checkPassword(input, failures)
	}
	if len(failures) > 0 {
		return nil, backend.NewValidationError(failures)
	}

	now := b.timestamp()
	rec := &storedRecord{ID: newID(), Collection: s.name, Data: values, Created: now, Updated: now}
	if s.auth {
		hash, err := b.hashPassword(password)
		if err != nil {
			return nil, err
		}
		rec.PasswordHash = hash
	}

	err := b.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		if err := b.checkConstraints(ctx, tx, s, rec); err != nil {
			return err
		}
		return insertRecord(ctx, tx, rec)
	})
	if err != nil {
		return nil, err
	}
	b.hub.publish(s.name, backend.Event{Action: backend.ActionCreate, Record: present(rec, nil)})
	b.logger.Debug("record created", "collection", s.name, "id", rec.ID)
	return rec, nil
}

// checkConstraints enforces unique auth identities and existing relation
// targets inside the write transaction.
func (b *Backend) checkConstraints(ctx context.Context, tx db.DBTX, s *schema, rec *storedRecord) error {
	failures := map[string]backend.FieldError{}
	if s.auth {
		if rec.str("username") == "" {
			rec.Data["username"] = "users" + randomHex(3)
		}
		if email := rec.str("email"); email != "" {
			other, err := findByField(ctx, tx, s.name, "email", email)
			if err != nil {
				return err
			}
			if other != nil && other.ID != rec.ID {
				failures["email"] = backend.FieldError{Code: backend.CodeInvalidEmail, Message: "Invalid or already in use email address."}
			}
		}
		other, err := findByField(ctx, tx, s.name, "username", rec.str("username"))
		if err != nil {
			return err
		}
		if other != nil && other.ID != rec.ID {
			failures["username"] = backend.FieldError{Code: backend.CodeNotUnique, Message: "The username is invalid or already in use."}
		}
	}
	for _, f := range s.fields {
		if f.kind != kindRelation {
			continue
		}
		ids := relationIDs(rec.Data[f.name])
		if len(ids) == 0 {
			continue
		}
		found, err := getMany(ctx, tx, f.target, ids)
		if err != nil {
			return err
		}
		if len(found) != len(ids) {
			failures[f.name] = backend.FieldError{Code: codeMissingRelation, Message: "Failed to find all relation records with the provided ids."}
		}
	}
	if len(failures) > 0 {
		return backend.NewValidationError(failures)
	}
	return nil
}

// detachReferences removes id from every relation field pointing at it.
func (b *Backend) detachReferences(ctx context.Context, tx db.DBTX, target, id string) error {
	for _, s := range b.schemas {
		for _, f := range s.fields {
			if f.kind != kindRelation || f.target != target {
				continue
			}
			op := "="
			if f.multi {
				op = "?="
			}
			recs, _, err := listRecords(ctx, tx, s, 0, -1, backend.ListOptions{Filter: fmt.Sprintf("%s %s %q", f.name, op, id)})
			if err != nil {
				return err
			}
			for _, rec := range recs {
				if f.multi {
					kept := []any{}
					for _, v := range relationIDs(rec.Data[f.name]) {
						if v != id {
							kept = append(kept, v)
						}
					}
					rec.Data[f.name] = kept
				} else {
					rec.Data[f.name] = ""
				}
				rec.Updated = b.timestamp()
				if err := updateRecord(ctx, tx, rec); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// expand attaches related records for the comma-separated relation fields
// in names under each item's "expand" key.
func (b *Backend) expand(ctx context.Context, s *schema, items []backend.Record, names string, caller *storedRecord) error {
	for _, name := range strings.Split(names, ",") {
		name = strings.TrimSpace(name)
		f, ok := s.field(name)
		if !ok || f.kind != kindRelation {
			continue
		}
		var ids []string
		for _, item := range items {
			ids = append(ids, relationIDs(item[name])...)
		}
		related, err := getMany(ctx, b.uow.Reader(), f.target, ids)
		if err != nil {
			return err
		}
		for _, item := range items {
			var value any
			if f.multi {
				list := []backend.Record{}
				for _, id := range relationIDs(item[name]) {
					if rel, ok := related[id]; ok {
						list = append(list, present(rel, caller))
					}
				}
				if len(list) > 0 {
					value = list
				}
			} else if ids := relationIDs(item[name]); len(ids) == 1 {
				if rel, ok := related[ids[0]]; ok {
					value = present(rel, caller)
				}
			}
			if value == nil {
				continue
			}
			ex, _ := item["expand"].(map[string]any)
			if ex == nil {
				ex = map[string]any{}
				item["expand"] = ex
			}
			ex[name] = value
		}
	}
	return nil
}

// client is a token-bearing view of the Backend.
type client struct {
	b *Backend

	mu    sync.RWMutex
	token string
	subs  map[string]func()
}

func (c *client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *client) Collection(name string) backend.Collection {
	return &collection{c: c, name: name, s: c.b.schemas[name]}
}

func (c *client) AuthWithPassword(ctx context.Context, collection, identity, password string) (backend.AuthResult, error) {
	return c.b.authWithPassword(ctx, collection, identity, password)
}

func (c *client) AuthMethods(ctx context.Context, collection string) (backend.AuthMethods, error) {
	if collection != UsersCollection {
		return backend.AuthMethods{}, backend.ErrNotFound()
	}
	return c.b.authMethods(), nil
}

func (c *client) AuthWithOAuth2(ctx context.Context, collection string, req backend.OAuth2Request) (backend.AuthResult, error) {
	if collection != UsersCollection {
		return backend.AuthResult{}, backend.ErrNotFound()
	}
	return c.b.authWithOAuth2(ctx, req)
}

type collection struct {
	c    *client
	name string
	s    *schema
}

func (col *collection) resolve(ctx context.Context) (*Backend, *storedRecord, error) {
	if col.s == nil {
		return nil, nil, backend.NewError(http.StatusNotFound, fmt.Sprintf("Missing collection %q.", col.name))
	}
	b := col.c.b
	return b, b.caller(ctx, col.c.Token()), nil
}

func (col *collection) GetList(ctx context.Context, page, perPage int, opts backend.ListOptions) (backend.ListResult, error) {
	b, caller, err := col.resolve(ctx)
	if err != nil {
		return backend.ListResult{}, err
	}
	if err := canRead(caller); err != nil {
		return backend.ListResult{}, err
	}
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	recs, total, err := listRecords(ctx, b.uow.Reader(), col.s, (page-1)*perPage, perPage, opts)
	if err != nil {
		return backend.ListResult{}, err
	}
	items := make([]backend.Record, 0, len(recs))
	for _, rec := range recs {
		items = append(items, present(rec, caller))
	}
	if opts.Expand != "" {
		if err := b.expand(ctx, col.s, items, opts.Expand, caller); err != nil {
			return backend.ListResult{}, err
		}
	}
	return backend.ListResult{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: domain.TotalPagesFor(total, perPage),
		Items:      items,
	}, nil
}

func (col *collection) GetOne(ctx context.Context, id string, opts backend.ListOptions) (backend.Record, error) {
	b, caller, err := col.resolve(ctx)
	if err != nil {
		return nil, err
	}
	if err := canRead(caller); err != nil {
		return nil, err
	}
	rec, err := getRecord(ctx, b.uow.Reader(), col.name, id)
	if err != nil {
		return nil, err
	}
	out := present(rec, caller)
	if opts.Expand != "" {
		if err := b.expand(ctx, col.s, []backend.Record{out}, opts.Expand, caller); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (col *collection) Create(ctx context.Context, data backend.Record) (backend.Record, error) {
	b, caller, err := col.resolve(ctx)
	if err != nil {
		return nil, err
	}
	if err := canCreate(col.s, caller); err != nil {
		return nil, err
	}
	rec, err := b.insert(ctx, col.s, data, isAdmin(caller))
	if err != nil {
		return nil, err
	}
	return present(rec, caller), nil
}

func (col *collection) Update(ctx context.Context, id string, data backend.Record) (backend.Record, error) {
	b, caller, err := col.resolve(ctx)
	if err != nil {
		return nil, err
	}

	var updated *storedRecord
	err = b.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		rec, err := getRecord(ctx, tx, col.name, id)
		if err != nil {
			return err
		}
		if err := canModify(col.s, rec, caller, false); err != nil {
			return err
		}
		values, failures := normalize(col.s, data, rec.Data)
		if !isAdmin(caller) && adminFieldsChanged(col.s, rec.Data, values) {
			return backend.ErrNotFound()
		}
		if _, changing := data["password"]; col.s.auth && changing {
			if old, _ := data["oldPassword"].(string); !isAdmin(caller) && !checkPasswordHash(rec.PasswordHash, old) {
				failures["oldPassword"] = backend.FieldError{Code: backend.CodeInvalidValue, Message: "Missing or invalid old password."}
			}
			password := checkPassword(data, failures)
			if len(failures) == 0 {
				hash, err := b.hashPassword(password)
				if err != nil {
					return err
				}
				rec.PasswordHash = hash
			}
		}
		if len(failures) > 0 {
			verr := backend.NewValidationError(failures)
			verr.Message = "Failed to update record."
			return verr
		}
		rec.Data = values
		rec.Updated = b.timestamp()
		if err := b.checkConstraints(ctx, tx, col.s, rec); err != nil {
			return err
		}
		updated = rec
		return updateRecord(ctx, tx, rec)
	})
	if err != nil {
		return nil, err
	}
	b.hub.publish(col.name, backend.Event{Action: backend.ActionUpdate, Record: present(updated, nil)})
	return present(updated, caller), nil
}

func (col *collection) Delete(ctx context.Context, id string) error {
	b, caller, err := col.resolve(ctx)
	if err != nil {
		return err
	}

	var deleted *storedRecord
	err = b.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		rec, err := getRecord(ctx, tx, col.name, id)
		if err != nil {
			return err
		}
		if err := canModify(col.s, rec, caller, true); err != nil {
			return err
		}
		if err := deleteRecord(ctx, tx, col.name, id); err != nil {
			return err
		}
		deleted = rec
		return b.detachReferences(ctx, tx, col.name, id)
	})
	if err != nil {
		return err
	}
	b.hub.publish(col.name, backend.Event{Action: backend.ActionDelete, Record: present(deleted, nil)})
	return nil
}

func (col *collection) Subscribe(ctx context.Context, topic string, handler backend.EventHandler) error {
	b, caller, err := col.resolve(ctx)
	if err != nil {
		return err
	}
	if err := canRead(caller); err != nil {
		return err
	}
	if topic == "" {
		topic = "*"
	}
	key := col.name + "/" + topic
	cancel := b.hub.subscribe(col.name, topic, handler)

	c := col.c
	c.mu.Lock()
	if prev, ok := c.subs[key]; ok {
		prev()
	}
	c.subs[key] = cancel
	c.mu.Unlock()

	go func() {
		<-ctx.Done()
		cancel()
	}()
	return nil
}

func (col *collection) Unsubscribe(topic string) error {
	if topic == "" {
		topic = "*"
	}
	key := col.name + "/" + topic
	c := col.c
	c.mu.Lock()
	cancel, ok := c.subs[key]
	delete(c.subs, key)
	c.mu.Unlock()
	if ok {
		cancel()
	}
	return nil
}
