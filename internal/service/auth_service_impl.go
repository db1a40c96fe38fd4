package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aitteam/whm/internal/backend"
	"github.com/aitteam/whm/internal/domain"
	"github.com/aitteam/whm/internal/session"
)

// ErrNotAuthenticated is returned by calls that need a signed-in user.
var ErrNotAuthenticated = errors.New("not logged in")

// ErrProviderUnavailable means the backend does not offer the requested
// OAuth2 provider.
var ErrProviderUnavailable = errors.New("oauth provider not available")

type authService struct {
	client   backend.Client
	store    *session.Store
	oauth    OAuthConfig
	observer UseCaseObserver
}

func NewAuthService(client backend.Client, store *session.Store, oauth OAuthConfig, observers ...UseCaseObserver) AuthService {
	if oauth.OpenBrowser == nil {
		oauth.OpenBrowser = OpenBrowser
	}
	return &authService{
		client:   client,
		store:    store,
		oauth:    oauth,
		observer: useCaseObserverOrNoop(observers),
	}
}

func (s *authService) Restore() {
	s.client.SetToken(s.store.Token())
}

func (s *authService) Login(ctx context.Context, email, password string) (sess domain.Session, err error) {
	done := track(ctx, s.observer, "auth.login", map[string]any{"login_type": domain.LoginNormal})
	defer func() { done(err) }()

	res, err := s.client.AuthWithPassword(ctx, backend.UsersCollection, email, password)
	if err != nil {
		return domain.Session{}, fmt.Errorf("authenticating %s: %w", email, err)
	}
	return s.establish(res, domain.LoginNormal)
}

func (s *authService) LoginWithOAuth(ctx context.Context, provider string) (sess domain.Session, err error) {
	done := track(ctx, s.observer, "auth.login_oauth", map[string]any{"provider": provider})
	defer func() { done(err) }()

	methods, err := s.client.AuthMethods(ctx, backend.UsersCollection)
	if err != nil {
		return domain.Session{}, fmt.Errorf("listing auth methods: %w", err)
	}
	p, ok := methods.Provider(provider)
	if !ok {
		return domain.Session{}, fmt.Errorf("%w: %s", ErrProviderUnavailable, provider)
	}

	code, redirectURL, err := authorize(ctx, s.oauth, p)
	if err != nil {
		return domain.Session{}, err
	}
	res, err := s.client.AuthWithOAuth2(ctx, backend.UsersCollection, backend.OAuth2Request{
		Provider:     p.Name,
		Code:         code,
		CodeVerifier: p.CodeVerifier,
		RedirectURL:  redirectURL,
		CreateData:   backend.Record{},
	})
	if err != nil {
		return domain.Session{}, fmt.Errorf("exchanging %s code: %w", provider, err)
	}
	return s.establish(res, loginTypeFor(provider))
}

func loginTypeFor(provider string) domain.LoginType {
	if strings.EqualFold(provider, "google") {
		return domain.LoginGoogle
	}
	return domain.LoginType(strings.ToUpper(provider))
}

func (s *authService) establish(res backend.AuthResult, lt domain.LoginType) (domain.Session, error) {
	var u domain.User
	if err := backend.Decode(res.Record, &u); err != nil {
		return domain.Session{}, err
	}
	sess := domain.Session{
		Token:     res.Token,
		UserID:    u.ID,
		UserName:  u.DisplayName(),
		UserEmail: u.Email,
		LoginType: lt,
	}
	if err := s.store.Set(sess); err != nil {
		return domain.Session{}, err
	}
	s.client.SetToken(sess.Token)
	return sess, nil
}

func (s *authService) Signup(ctx context.Context, in SignupInput) (u *domain.User, err error) {
	done := track(ctx, s.observer, "auth.signup", nil)
	defer func() { done(err) }()

	rec, err := s.client.Collection(backend.UsersCollection).Create(ctx, backend.Record{
		"username":        in.Username,
		"email":           in.Email,
		"emailVisibility": true,
		"password":        in.Password,
		"passwordConfirm": in.PasswordConfirm,
		"name":            in.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("signing up %s: %w", in.Email, err)
	}
	var created domain.User
	if err := backend.Decode(rec, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (s *authService) Logout() error {
	s.client.SetToken("")
	return s.store.Clear()
}

func (s *authService) CurrentUser(ctx context.Context) (*domain.User, error) {
	id := s.store.UserID()
	if !s.store.Authenticated() || id == "" {
		return nil, ErrNotAuthenticated
	}
	rec, err := s.client.Collection(backend.UsersCollection).GetOne(ctx, id, backend.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("loading current user: %w", err)
	}
	var u domain.User
	if err := backend.Decode(rec, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
