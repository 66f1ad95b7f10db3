// Package auth resolves the current identity from a bearer token. Tokens
// are HS256 JWTs issued by the gateway provider; this client only verifies
// and reads them, it does not manage refresh.
package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pmallory/tripsync/internal/domain"
	"github.com/pmallory/tripsync/internal/gateway"
)

// Claims is the token payload: subject is the user id.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenAuthenticator implements gateway.Authenticator over a stored access
// token. SetToken is called by the login flow; SignOut clears it.
type TokenAuthenticator struct {
	secret []byte

	mu    sync.RWMutex
	token string
}

var _ gateway.Authenticator = (*TokenAuthenticator)(nil)

// NewTokenAuthenticator constructs an authenticator verifying with the
// given HS256 secret.
func NewTokenAuthenticator(secret []byte) *TokenAuthenticator {
	return &TokenAuthenticator{secret: secret}
}

// SetToken installs the access token for subsequent calls. An empty token
// signs out.
func (a *TokenAuthenticator) SetToken(token string) {
	a.mu.Lock()
	a.token = token
	a.mu.Unlock()
}

// CurrentIdentity verifies the stored token and returns its identity.
// A missing, malformed, or expired token is domain.ErrNotAuthenticated.
func (a *TokenAuthenticator) CurrentIdentity(ctx context.Context) (gateway.Identity, error) {
	a.mu.RLock()
	token := a.token
	a.mu.RUnlock()

	if token == "" {
		return gateway.Identity{}, fmt.Errorf("auth.TokenAuthenticator: no token: %w", domain.ErrNotAuthenticated)
	}
	return VerifyToken(a.secret, token)
}

// VerifyToken checks a bearer token against the HS256 secret and returns
// the identity it carries. A malformed, mis-signed, or expired token is
// domain.ErrNotAuthenticated. Used by the client authenticator and by
// gatewayd to authenticate incoming connections.
func VerifyToken(secret []byte, token string) (gateway.Identity, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !parsed.Valid {
		return gateway.Identity{}, fmt.Errorf("auth.VerifyToken: invalid token: %w", domain.ErrNotAuthenticated)
	}
	if claims.Subject == "" {
		return gateway.Identity{}, fmt.Errorf("auth.VerifyToken: token has no subject: %w", domain.ErrNotAuthenticated)
	}

	return gateway.Identity{UserID: claims.Subject, Email: claims.Email}, nil
}

// SignOut discards the stored token.
func (a *TokenAuthenticator) SignOut(ctx context.Context) error {
	a.SetToken("")
	return nil
}

// IssueToken signs a token for the given identity. Used by dev tooling and
// tests; production tokens come from the gateway provider.
func IssueToken(secret []byte, userID, email string, ttl time.Duration) (string, error) {
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("auth.IssueToken: %w", err)
	}
	return signed, nil
}
