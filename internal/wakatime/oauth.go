package wakatime

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

const (
	authorizeURL = "https://wakatime.com/oauth/authorize"
	tokenURL     = "https://wakatime.com/oauth/token"

	// WakaTime takes a single comma-separated scope parameter.
	defaultScope = "email,read_logged_time,read_stats,read_orgs"
)

// ErrStateMismatch means the redirect carried a state we did not issue.
var ErrStateMismatch = errors.New("oauth state mismatch")

// OAuthFlow runs the authorization-code flow against a one-shot local
// redirect listener.
type OAuthFlow struct {
	Config     *oauth2.Config
	ListenAddr string
	state      string
}

// NewOAuthFlow builds a flow whose redirect URL points at listenAddr.
func NewOAuthFlow(clientID, clientSecret, listenAddr string) (*OAuthFlow, error) {
	state, err := randomState()
	if err != nil {
		return nil, err
	}
	return &OAuthFlow{
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:   authorizeURL,
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
			RedirectURL: "http://" + listenAddr,
			Scopes:      []string{defaultScope},
		},
		ListenAddr: listenAddr,
		state:      state,
	}, nil
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate oauth state: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// AuthURL is the page the user must open in a browser.
func (f *OAuthFlow) AuthURL() string {
	return f.Config.AuthCodeURL(f.state)
}

type callbackResult struct {
	code string
	err  error
}

// Wait serves the redirect listener until the first callback arrives, then
// exchanges the code for a token. The listener is closed before returning.
func (f *OAuthFlow) Wait(ctx context.Context) (*oauth2.Token, error) {
	listener, err := net.Listen("tcp", f.ListenAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", f.ListenAddr, err)
	}

	results := make(chan callbackResult, 1)
	server := &http.Server{
		Handler:           f.callbackHandler(results),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go server.Serve(listener)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	var res callbackResult
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-results:
	}
	if res.err != nil {
		return nil, res.err
	}

	token, err := f.Config.Exchange(ctx, res.code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}
	return token, nil
}

func (f *OAuthFlow) callbackHandler(results chan<- callbackResult) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		code := q.Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}

		var res callbackResult
		if q.Get("state") != f.state {
			res.err = ErrStateMismatch
			http.Error(w, "state mismatch", http.StatusBadRequest)
		} else {
			res.code = code
			fmt.Fprint(w, "Go back to your terminal :)")
		}

		select {
		case results <- res:
		default:
		}
	})
}
