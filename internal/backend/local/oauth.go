package local

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/aitteam/whm/internal/backend"
	"golang.org/x/oauth2"
)

// OAuthProvider is an OAuth2 identity provider the local backend can log
// users in with.
type OAuthProvider struct {
	Name        string
	DisplayName string
	Config      oauth2.Config
	// UserInfoURL returns a JSON document with at least "email".
	UserInfoURL string
}

// GoogleProvider configures Google sign-in.
func GoogleProvider(clientID, clientSecret string) *OAuthProvider {
	return &OAuthProvider{
		Name:        "google",
		DisplayName: "Google",
		Config: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:   "https://accounts.google.com/o/oauth2/auth",
				TokenURL:  "https://oauth2.googleapis.com/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
			Scopes: []string{"openid", "email", "profile"},
		},
		UserInfoURL: "https://www.googleapis.com/oauth2/v3/userinfo",
	}
}

// authMethods advertises password login plus one PKCE-ready entry per
// provider. The auth URL ends with an empty redirect_uri parameter that the
// caller completes with its own callback address.
func (b *Backend) authMethods() backend.AuthMethods {
	out := backend.AuthMethods{Password: true, Providers: []backend.AuthProvider{}}
	for _, p := range b.providers {
		state := randomHex(16)
		verifier := oauth2.GenerateVerifier()
		authURL := p.Config.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
		out.Providers = append(out.Providers, backend.AuthProvider{
			Name:                p.Name,
			DisplayName:         p.DisplayName,
			State:               state,
			AuthURL:             authURL + "&redirect_uri=",
			CodeVerifier:        verifier,
			CodeChallenge:       oauth2.S256ChallengeFromVerifier(verifier),
			CodeChallengeMethod: "S256",
		})
	}
	return out
}

type userInfo struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// authWithOAuth2 exchanges the authorization code, looks the user up by the
// provider's email and creates the account on first login.
func (b *Backend) authWithOAuth2(ctx context.Context, req backend.OAuth2Request) (backend.AuthResult, error) {
	p, ok := b.providers[req.Provider]
	if !ok {
		return backend.AuthResult{}, backend.NewError(http.StatusBadRequest, fmt.Sprintf("Provider %q is not enabled.", req.Provider))
	}
	cfg := p.Config
	cfg.RedirectURL = req.RedirectURL

	tok, err := cfg.Exchange(ctx, req.Code, oauth2.VerifierOption(req.CodeVerifier))
	if err != nil {
		b.logger.Warn("oauth2 exchange failed", "provider", p.Name, "error", err)
		return backend.AuthResult{}, authFailed()
	}

	info, err := fetchUserInfo(ctx, cfg.Client(ctx, tok), p.UserInfoURL)
	if err != nil || info.Email == "" {
		b.logger.Warn("oauth2 user info failed", "provider", p.Name, "error", err)
		return backend.AuthResult{}, authFailed()
	}

	rec, err := findByField(ctx, b.uow.Reader(), UsersCollection, "email", strings.ToLower(info.Email))
	if err != nil {
		return backend.AuthResult{}, err
	}
	if rec == nil {
		password := randomHex(16)
		input := backend.Record{
			"email":           info.Email,
			"name":            info.Name,
			"password":        password,
			"passwordConfirm": password,
		}
		for k, v := range req.CreateData {
			input[k] = v
		}
		rec, err = b.insert(ctx, b.schemas[UsersCollection], input, false)
		if err != nil {
			return backend.AuthResult{}, err
		}
	}
	return b.authResult(rec)
}

func fetchUserInfo(ctx context.Context, hc *http.Client, url string) (userInfo, error) {
	var info userInfo
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return info, err
	}
	resp, err := hc.Do(req)
	if err != nil {
		return info, fmt.Errorf("requesting user info: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return info, fmt.Errorf("user info status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return info, fmt.Errorf("decoding user info: %w", err)
	}
	return info, nil
}
