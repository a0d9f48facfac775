package session

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// JWT is a stateless Manager: the session id itself is a signed token
// carrying every field a lookup needs, so no server-side store is
// required. Adapted from the teacher's JWTSessionManager (session_jwt.go)
// — a claims.signature token signed with crypto/hmac, no
// external JWT library, since the token shape here is fixed and entirely
// internal to the proxy.
type JWT struct {
	signingKey []byte
	ttl        time.Duration
}

type jwtClaims struct {
	Transport      string                 `json:"transport"`
	IsInitialized  bool                   `json:"init"`
	ClientInfo     map[string]interface{} `json:"client_info,omitempty"`
	CreatedAt      int64                  `json:"created_at"`
	LastActivityAt int64                  `json:"last_activity_at"`
	ExpiresAt      int64                  `json:"exp"` // unix milliseconds
}

// NewJWT constructs a JWT manager. signingKey should be at least 32
// cryptographically random bytes.
func NewJWT(signingKey []byte, ttl time.Duration) *JWT {
	return &JWT{signingKey: signingKey, ttl: ttl}
}

// GenerateSigningKey returns a fresh, cryptographically secure key.
func GenerateSigningKey() ([]byte, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate signing key: %w", err)
	}
	return key, nil
}

func (m *JWT) sign(message string) string {
	mac := hmac.New(sha256.New, m.signingKey)
	mac.Write([]byte(message))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (m *JWT) encode(claims jwtClaims) (string, error) {
	claimsJSON, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	encoded := base64.RawURLEncoding.EncodeToString(claimsJSON)
	return encoded + "." + m.sign(encoded), nil
}

func (m *JWT) decode(token string) (jwtClaims, error) {
	parts := strings.SplitN(token, ".", 2)
	if len(parts) != 2 {
		return jwtClaims{}, ErrSessionNotFound
	}
	if m.sign(parts[0]) != parts[1] {
		return jwtClaims{}, ErrSessionNotFound
	}
	claimsJSON, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return jwtClaims{}, ErrSessionNotFound
	}
	var claims jwtClaims
	if err := json.Unmarshal(claimsJSON, &claims); err != nil {
		return jwtClaims{}, ErrSessionNotFound
	}
	if time.Now().UnixMilli() > claims.ExpiresAt {
		return jwtClaims{}, ErrSessionNotFound
	}
	return claims, nil
}

func toSession(id string, c jwtClaims) *Session {
	return &Session{
		ID:             id,
		Transport:      c.Transport,
		IsInitialized:  c.IsInitialized,
		CreatedAt:      time.Unix(c.CreatedAt, 0),
		LastActivityAt: time.Unix(c.LastActivityAt, 0),
		ClientInfo:     c.ClientInfo,
	}
}

func (m *JWT) Create(ctx context.Context, transport string) (*Session, error) {
	now := time.Now()
	claims := jwtClaims{
		Transport:      transport,
		CreatedAt:      now.Unix(),
		LastActivityAt: now.Unix(),
		ExpiresAt:      now.Add(m.ttl).UnixMilli(),
	}
	token, err := m.encode(claims)
	if err != nil {
		return nil, err
	}
	return toSession(token, claims), nil
}

func (m *JWT) Get(ctx context.Context, id string) (*Session, bool, error) {
	claims, err := m.decode(id)
	if err != nil {
		return nil, false, nil
	}
	return toSession(id, claims), true, nil
}

// Initialize always returns ErrStatelessSessionIDChanges: a JWT session is
// the token itself and cannot be updated in place. InitializeToken returns
// the re-signed token with isInitialized set.
func (m *JWT) Initialize(ctx context.Context, id string, clientInfo map[string]interface{}) error {
	return ErrStatelessSessionIDChanges
}

// InitializeToken returns a new token with isInitialized set and
// clientInfo attached, re-signed over the original session's timestamps.
func (m *JWT) InitializeToken(ctx context.Context, id string, clientInfo map[string]interface{}) (string, error) {
	claims, err := m.decode(id)
	if err != nil {
		return "", err
	}
	claims.IsInitialized = true
	claims.ClientInfo = clientInfo
	claims.LastActivityAt = time.Now().Unix()
	return m.encode(claims)
}

func (m *JWT) Touch(ctx context.Context, id string) error {
	_, err := m.decode(id)
	return err
}

func (m *JWT) Delete(ctx context.Context, id string) error {
	return nil // stateless: nothing to delete server-side before natural expiry
}

func (m *JWT) Sweep(ctx context.Context, idleTimeout time.Duration) (int, error) {
	return 0, nil // expiry is enforced on decode; there is no store to sweep
}
