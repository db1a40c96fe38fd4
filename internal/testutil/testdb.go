package testutil

import (
	"context"
	"database/sql"
	"testing"

	"github.com/aitteam/whm/internal/backend"
	"github.com/aitteam/whm/internal/backend/local"
	"github.com/aitteam/whm/internal/db"
	"golang.org/x/crypto/bcrypt"
)

// Default credentials of the accounts created by the helpers below.
const (
	AdminEmail    = "root@whm.dev"
	AdminPassword = "rootpass1"
	UserPassword  = "secret123"
)

// NewTestDB creates an in-memory SQLite database with all migrations applied.
// The database is closed when the test completes.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.OpenDB(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		database.Close()
	})
	return database
}

// NewTestUoW creates a UnitOfWork backed by the given test database.
func NewTestUoW(database *sql.DB) db.UnitOfWork {
	return db.NewSQLiteUnitOfWork(database)
}

// NewTestBackend creates a local backend over a fresh in-memory database.
// Passwords are hashed at the minimum bcrypt cost.
func NewTestBackend(t *testing.T, opts ...local.Option) *local.Backend {
	t.Helper()
	opts = append([]local.Option{local.WithPasswordCost(bcrypt.MinCost)}, opts...)
	b, err := local.New(NewTestDB(t), opts...)
	if err != nil {
		t.Fatalf("failed to create test backend: %v", err)
	}
	return b
}

// SignupUser registers an ordinary account with UserPassword.
func SignupUser(t *testing.T, b *local.Backend, email, name string) backend.Record {
	t.Helper()
	rec, err := b.NewClient().Collection(backend.UsersCollection).Create(context.Background(), backend.Record{
		"email":           email,
		"name":            name,
		"emailVisibility": true,
		"password":        UserPassword,
		"passwordConfirm": UserPassword,
	})
	if err != nil {
		t.Fatalf("signing up %s: %v", email, err)
	}
	return rec
}

// LoginClient returns a client authenticated as email.
func LoginClient(t *testing.T, b *local.Backend, email, password string) backend.Client {
	t.Helper()
	c := b.NewClient()
	res, err := c.AuthWithPassword(context.Background(), backend.UsersCollection, email, password)
	if err != nil {
		t.Fatalf("logging in %s: %v", email, err)
	}
	c.SetToken(res.Token)
	return c
}

// UserClient signs up a fresh user and returns a client logged in as them
// together with the user id.
func UserClient(t *testing.T, b *local.Backend, email, name string) (backend.Client, string) {
	t.Helper()
	rec := SignupUser(t, b, email, name)
	return LoginClient(t, b, email, UserPassword), rec.ID()
}

// AdminClient bootstraps the admin account and returns a client logged in
// as it.
func AdminClient(t *testing.T, b *local.Backend) backend.Client {
	t.Helper()
	if _, err := b.CreateAdmin(context.Background(), AdminEmail, AdminPassword, "Root"); err != nil {
		t.Fatalf("creating admin: %v", err)
	}
	return LoginClient(t, b, AdminEmail, AdminPassword)
}
