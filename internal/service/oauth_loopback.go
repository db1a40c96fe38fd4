package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/aitteam/whm/internal/backend"
)

// DefaultOAuthTimeout bounds how long the loopback listener waits for the
// browser to come back.
const DefaultOAuthTimeout = 3 * time.Minute

// OAuthConfig configures the loopback redirect used by LoginWithOAuth.
type OAuthConfig struct {
	// Port of the 127.0.0.1 listener; 0 picks a free port.
	Port    int
	Timeout time.Duration
	// OpenBrowser sends the user to the provider's consent page.
	OpenBrowser func(url string) error
}

// OpenBrowser opens url with the platform's default handler.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", "", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	return cmd.Start()
}

type callbackResult struct {
	code string
	err  error
}

const callbackPage = `<!doctype html><meta charset="utf-8"><title>whm</title><p>%s</p>`

// authorize runs the browser leg of the authorization-code flow and returns
// the code together with the redirect URL it was issued for.
func authorize(ctx context.Context, cfg OAuthConfig, p backend.AuthProvider) (string, string, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", cfg.Port))
	if err != nil {
		return "", "", fmt.Errorf("starting oauth callback listener: %w", err)
	}
	redirectURL := fmt.Sprintf("http://%s/callback", ln.Addr().String())

	results := make(chan callbackResult, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var res callbackResult
		switch {
		case q.Get("error") != "":
			res.err = fmt.Errorf("provider denied access: %s", q.Get("error"))
		case p.State != "" && q.Get("state") != p.State:
			res.err = errors.New("oauth state mismatch")
		case q.Get("code") == "":
			res.err = errors.New("oauth callback without code")
		default:
			res.code = q.Get("code")
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if res.err != nil {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintf(w, callbackPage, "登入失敗，請回到終端機")
		} else {
			fmt.Fprintf(w, callbackPage, "登入成功，請回到終端機")
		}
		select {
		case results <- res:
		default:
		}
	})
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go srv.Serve(ln)
	defer srv.Close()

	if err := cfg.OpenBrowser(providerURL(p.AuthURL, redirectURL)); err != nil {
		return "", "", fmt.Errorf("opening browser: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultOAuthTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-results:
		if res.err != nil {
			return "", "", res.err
		}
		return res.code, redirectURL, nil
	case <-timer.C:
		return "", "", errors.New("timed out waiting for oauth callback")
	case <-ctx.Done():
		return "", "", ctx.Err()
	}
}

// providerURL completes an auth URL that ends with an empty redirect_uri
// parameter, or sets the parameter otherwise.
func providerURL(authURL, redirectURL string) string {
	if strings.HasSuffix(authURL, "redirect_uri=") {
		return authURL + url.QueryEscape(redirectURL)
	}
	u, err := url.Parse(authURL)
	if err != nil {
		return authURL
	}
	q := u.Query()
	q.Set("redirect_uri", redirectURL)
	u.RawQuery = q.Encode()
	return u.String()
}
