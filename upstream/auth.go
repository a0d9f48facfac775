package upstream

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// AuthProvider produces the Authorization header value for a backend's
// outbound requests. Adapted from the teacher's AuthProvider (auth.go) —
// same two-method shape — generalized from a single MCP client's auth to
// a per-backend credential the Client Manager attaches when dialing.
type AuthProvider interface {
	GetAuthHeader() (string, error)
	Refresh() error
}

// BearerAuth is a static bearer token, adapted from the teacher's
// BearerTokenAuth (auth_bearer.go).
type BearerAuth struct {
	token string
}

func NewBearerAuth(token string) *BearerAuth {
	return &BearerAuth{token: token}
}

func (b *BearerAuth) GetAuthHeader() (string, error) {
	return fmt.Sprintf("Bearer %s", b.token), nil
}

func (b *BearerAuth) Refresh() error { return nil }

// OAuth2ClientCredentialsAuth authenticates a backend connection via the
// OAuth2 client-credentials flow, adapted from the teacher's OAuth2Auth
// (auth_oauth.go) — trimmed to the machine-to-machine flow a backend
// connection actually needs; the teacher's PKCE/refresh-token constructor
// and RFC 8414/7591 discovery helpers served a user-facing client and have
// no caller in a backend-dialing Client Manager, so they are not carried.
type OAuth2ClientCredentialsAuth struct {
	source oauth2.TokenSource

	mu    sync.RWMutex
	token *oauth2.Token
}

// NewOAuth2ClientCredentialsAuth builds a provider that mints bearer tokens
// against tokenURL using clientID/clientSecret, per the OAuth2 client
// credentials grant.
func NewOAuth2ClientCredentialsAuth(clientID, clientSecret, tokenURL string, scopes []string) *OAuth2ClientCredentialsAuth {
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
		Scopes:       scopes,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	return &OAuth2ClientCredentialsAuth{source: cfg.TokenSource(context.Background())}
}

func (o *OAuth2ClientCredentialsAuth) GetAuthHeader() (string, error) {
	o.mu.RLock()
	token := o.token
	valid := token != nil && token.Valid()
	o.mu.RUnlock()

	if !valid {
		o.mu.Lock()
		if o.token == nil || !o.token.Valid() {
			t, err := o.source.Token()
			if err != nil {
				o.mu.Unlock()
				return "", fmt.Errorf("get oauth2 token: %w", err)
			}
			o.token = t
		}
		token = o.token
		o.mu.Unlock()
	}

	return fmt.Sprintf("Bearer %s", token.AccessToken), nil
}

func (o *OAuth2ClientCredentialsAuth) Refresh() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	t, err := o.source.Token()
	if err != nil {
		return fmt.Errorf("refresh oauth2 token: %w", err)
	}
	o.token = t
	return nil
}
