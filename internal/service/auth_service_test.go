package service

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/aitteam/whm/internal/backend"
	"github.com/aitteam/whm/internal/backend/local"
	"github.com/aitteam/whm/internal/domain"
	"github.com/aitteam/whm/internal/errclass"
	"github.com/aitteam/whm/internal/session"
	"github.com/aitteam/whm/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newAuth(t *testing.T, b *local.Backend, oauth OAuthConfig) (AuthService, *session.Store, backend.Client) {
	t.Helper()
	store, err := session.Open(session.NewMemoryStorage())
	require.NoError(t, err)
	client := b.NewClient()
	return NewAuthService(client, store, oauth), store, client
}

func TestAuth_LoginPopulatesSession(t *testing.T) {
	b := testutil.NewTestBackend(t)
	rec := testutil.SignupUser(t, b, "a@b.com", "Amy")
	auth, store, client := newAuth(t, b, OAuthConfig{})

	sess, err := auth.Login(context.Background(), "a@b.com", testutil.UserPassword)
	require.NoError(t, err)
	assert.Equal(t, domain.LoginNormal, sess.LoginType)
	assert.Equal(t, rec.ID(), store.UserID())
	assert.Equal(t, "Amy", store.UserName())
	assert.Equal(t, "a@b.com", store.UserEmail())
	assert.Equal(t, sess.Token, client.Token())

	u, err := auth.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Amy", u.Name)
}

func TestAuth_LoginFailureLeavesSessionEmpty(t *testing.T) {
	b := testutil.NewTestBackend(t)
	testutil.SignupUser(t, b, "a@b.com", "Amy")
	auth, store, _ := newAuth(t, b, OAuthConfig{})

	_, err := auth.Login(context.Background(), "a@b.com", "wrong-password")
	require.Error(t, err)
	assert.Equal(t, errclass.MsgLoginFailed, errclass.Message(errclass.OpLogin, err))
	assert.False(t, store.Authenticated())
}

func TestAuth_SignupDoesNotLogIn(t *testing.T) {
	b := testutil.NewTestBackend(t)
	auth, store, _ := newAuth(t, b, OAuthConfig{})

	u, err := auth.Signup(context.Background(), SignupInput{
		Username: "amy", Email: "amy@whm.dev", Name: "Amy",
		Password: "secret123", PasswordConfirm: "secret123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "amy", u.Username)
	assert.False(t, store.Authenticated())
}

func TestAuth_SignupFailures(t *testing.T) {
	b := testutil.NewTestBackend(t)
	testutil.SignupUser(t, b, "taken@whm.dev", "Taken")
	auth, _, _ := newAuth(t, b, OAuthConfig{})

	tests := []struct {
		name string
		in   SignupInput
		want string
	}{
		{"short password", SignupInput{Email: "n@whm.dev", Password: "abcd", PasswordConfirm: "abcd"}, errclass.MsgPasswordLength},
		{"mismatch", SignupInput{Email: "n@whm.dev", Password: "secret123", PasswordConfirm: "secret124"}, errclass.MsgPasswordMismatch},
		{"bad email", SignupInput{Email: "not-an-email", Password: "secret123", PasswordConfirm: "secret123"}, errclass.MsgInvalidEmail},
		{"duplicate email", SignupInput{Email: "taken@whm.dev", Password: "secret123", PasswordConfirm: "secret123"}, errclass.MsgInvalidEmail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.Signup(context.Background(), tt.in)
			require.Error(t, err)
			assert.Equal(t, tt.want, errclass.Message(errclass.OpSignup, err))
		})
	}
}

func TestAuth_LogoutClearsSessionAndToken(t *testing.T) {
	b := testutil.NewTestBackend(t)
	testutil.SignupUser(t, b, "a@b.com", "Amy")
	auth, store, client := newAuth(t, b, OAuthConfig{})

	_, err := auth.Login(context.Background(), "a@b.com", testutil.UserPassword)
	require.NoError(t, err)
	require.NoError(t, auth.Logout())
	assert.False(t, store.Authenticated())
	assert.Empty(t, client.Token())

	_, err = auth.CurrentUser(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestAuth_RestoreAttachesStoredToken(t *testing.T) {
	b := testutil.NewTestBackend(t)
	testutil.SignupUser(t, b, "a@b.com", "Amy")
	storage := session.NewMemoryStorage()

	first, err := session.Open(storage)
	require.NoError(t, err)
	_, err = NewAuthService(b.NewClient(), first, OAuthConfig{}).Login(context.Background(), "a@b.com", testutil.UserPassword)
	require.NoError(t, err)

	reopened, err := session.Open(storage)
	require.NoError(t, err)
	client := b.NewClient()
	auth := NewAuthService(client, reopened, OAuthConfig{})
	auth.Restore()
	assert.Equal(t, reopened.Token(), client.Token())

	u, err := auth.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", u.Email)
}

func TestAuth_LoginWithOAuth(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"at","token_type":"bearer","expires_in":3600}`))
		case "/userinfo":
			_ = json.NewEncoder(w).Encode(map[string]string{"email": "g@example.com", "name": "Gina"})
		default:
			http.NotFound(w, r)
		}
	}))
	defer provider.Close()

	b := testutil.NewTestBackend(t, local.WithOAuthProvider(&local.OAuthProvider{
		Name: "google",
		Config: oauth2.Config{
			ClientID: "cid",
			Endpoint: oauth2.Endpoint{AuthURL: provider.URL + "/auth", TokenURL: provider.URL + "/token", AuthStyle: oauth2.AuthStyleInParams},
		},
		UserInfoURL: provider.URL + "/userinfo",
	}))

	// The fake browser approves immediately by calling the redirect URI.
	browser := func(raw string) error {
		u, err := url.Parse(raw)
		if err != nil {
			return err
		}
		q := u.Query()
		cb := q.Get("redirect_uri") + "?" + url.Values{"code": {"the-code"}, "state": {q.Get("state")}}.Encode()
		go func() {
			resp, err := http.Get(cb)
			if err == nil {
				resp.Body.Close()
			}
		}()
		return nil
	}
	auth, store, _ := newAuth(t, b, OAuthConfig{OpenBrowser: browser, Timeout: 5 * time.Second})

	sess, err := auth.LoginWithOAuth(context.Background(), "google")
	require.NoError(t, err)
	assert.Equal(t, domain.LoginGoogle, sess.LoginType)
	assert.Equal(t, "Gina", store.UserName())
	assert.Equal(t, "g@example.com", store.UserEmail())
}

func TestAuth_LoginWithOAuthRejectsStateMismatch(t *testing.T) {
	b := testutil.NewTestBackend(t, local.WithOAuthProvider(local.GoogleProvider("cid", "secret")))
	browser := func(raw string) error {
		u, _ := url.Parse(raw)
		cb := u.Query().Get("redirect_uri") + "?code=c&state=forged"
		go func() {
			if resp, err := http.Get(cb); err == nil {
				resp.Body.Close()
			}
		}()
		return nil
	}
	auth, store, _ := newAuth(t, b, OAuthConfig{OpenBrowser: browser, Timeout: 5 * time.Second})

	_, err := auth.LoginWithOAuth(context.Background(), "google")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "state mismatch")
	assert.False(t, store.Authenticated())
}

func TestAuth_LoginWithOAuthUnknownProvider(t *testing.T) {
	b := testutil.NewTestBackend(t)
	auth, _, _ := newAuth(t, b, OAuthConfig{OpenBrowser: func(string) error { return nil }})
	_, err := auth.LoginWithOAuth(context.Background(), "google")
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestLoginTypeFor(t *testing.T) {
	assert.Equal(t, domain.LoginGoogle, loginTypeFor("google"))
	assert.Equal(t, domain.LoginType("GITHUB"), loginTypeFor("github"))
}

func TestProviderURL(t *testing.T) {
	assert.Equal(t, "https://p/auth?x=1&redirect_uri=http%3A%2F%2F127.0.0.1%3A9%2Fcallback",
		providerURL("https://p/auth?x=1&redirect_uri=", "http://127.0.0.1:9/callback"))
	assert.Equal(t, "https://p/auth?redirect_uri=http%3A%2F%2Fcb&x=1",
		providerURL("https://p/auth?x=1", "http://cb"))
}

func TestLogUseCaseObserver(t *testing.T) {
	var buf bytes.Buffer
	b := testutil.NewTestBackend(t)
	store, err := session.Open(session.NewMemoryStorage())
	require.NoError(t, err)
	auth := NewAuthService(b.NewClient(), store, OAuthConfig{}, NewLogUseCaseObserver(&buf))

	_, _ = auth.Login(context.Background(), "nobody@whm.dev", "whatever1")
	out := buf.String()
	assert.Contains(t, out, "use_case=auth.login")
	assert.Contains(t, out, "success=false")
	assert.Contains(t, out, "login_type=NORMAL")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "status=400")
}
