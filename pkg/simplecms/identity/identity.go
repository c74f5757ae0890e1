// Package identity supplies the acting principal for repository mutations.
//
// A Gate resolves the principal from an HTTP request and stores it in the
// request context; repositories built with WithIdentity(identity.Context{})
// (or with the Gate itself) then read it back through CurrentPrincipal.
package identity

import (
	"context"
	"errors"
	"net/http"

	"github.com/tendant/simple-cms/pkg/simplecms"
)

var (
	// ErrInvalidCredentials is returned by Authenticate for an unknown email or wrong password
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrSessionNotFound is returned when a session id is unknown or expired
	ErrSessionNotFound = errors.New("session not found")
)

// Authenticator checks a credential pair and returns the matching principal.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (simplecms.Principal, error)
}

// Issuer hands out bearer credentials for an authenticated principal.
type Issuer interface {
	Issue(ctx context.Context, p simplecms.Principal) (string, error)
}

// Revoker invalidates a previously issued credential.
type Revoker interface {
	Revoke(ctx context.Context, credential string) error
}

// Gate is a request-level identity source.
type Gate interface {
	simplecms.IdentityProvider
	Issuer

	// Middleware resolves the principal, if any, and always calls next
	Middleware(next http.Handler) http.Handler

	// Require rejects requests that carry no valid principal
	Require(next http.Handler) http.Handler
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p simplecms.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal stored by WithPrincipal.
func FromContext(ctx context.Context) (simplecms.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(simplecms.Principal)
	if !ok || p.ID == "" {
		return simplecms.Principal{}, false
	}
	return p, true
}

// Context is an IdentityProvider that reads the principal from the context.
type Context struct{}

func (Context) CurrentPrincipal(ctx context.Context) (simplecms.Principal, bool) {
	return FromContext(ctx)
}

// Chain returns the first principal any of providers resolves.
func Chain(providers ...simplecms.IdentityProvider) simplecms.IdentityProvider {
	return chain(providers)
}

type chain []simplecms.IdentityProvider

func (c chain) CurrentPrincipal(ctx context.Context) (simplecms.Principal, bool) {
	for _, p := range c {
		if principal, ok := p.CurrentPrincipal(ctx); ok {
			return principal, true
		}
	}
	return simplecms.Principal{}, false
}

func unauthorized(w http.ResponseWriter) {
	http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
}
