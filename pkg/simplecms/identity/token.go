package identity

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/jwtauth"
	"github.com/tendant/simple-cms/pkg/simplecms"
)

// DefaultTokenTTL is the lifetime of issued tokens.
const DefaultTokenTTL = 12 * time.Hour

// Tokens issues HS256 JWTs and resolves principals from verified claims.
type Tokens struct {
	auth *jwtauth.JWTAuth
	ttl  time.Duration
}

// NewTokens creates a token gate signing with secret. A non-positive ttl
// selects DefaultTokenTTL.
func NewTokens(secret string, ttl time.Duration) *Tokens {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Tokens{auth: jwtauth.New("HS256", []byte(secret), nil), ttl: ttl}
}

// JWTAuth exposes the underlying signer for custom verification chains.
func (t *Tokens) JWTAuth() *jwtauth.JWTAuth {
	return t.auth
}

// Issue encodes p as a signed token.
func (t *Tokens) Issue(_ context.Context, p simplecms.Principal) (string, error) {
	claims := map[string]interface{}{
		"sub":   p.ID,
		"email": p.Email,
	}
	jwtauth.SetIssuedNow(claims)
	jwtauth.SetExpiryIn(claims, t.ttl)

	_, token, err := t.auth.Encode(claims)
	if err != nil {
		return "", err
	}
	return token, nil
}

// Parse verifies a token string outside of a request.
func (t *Tokens) Parse(token string) (simplecms.Principal, error) {
	tok, err := jwtauth.VerifyToken(t.auth, token)
	if err != nil {
		return simplecms.Principal{}, err
	}
	claims, err := tok.AsMap(context.Background())
	if err != nil {
		return simplecms.Principal{}, err
	}
	p, ok := principalFromClaims(claims)
	if !ok {
		return simplecms.Principal{}, ErrInvalidCredentials
	}
	return p, nil
}

// CurrentPrincipal reads the claims stored by the jwtauth verifier.
func (t *Tokens) CurrentPrincipal(ctx context.Context) (simplecms.Principal, bool) {
	if p, ok := FromContext(ctx); ok {
		return p, true
	}
	token, claims, err := jwtauth.FromContext(ctx)
	if err != nil || token == nil {
		return simplecms.Principal{}, false
	}
	return principalFromClaims(claims)
}

// Middleware verifies a bearer token or jwt cookie and stores the principal.
func (t *Tokens) Middleware(next http.Handler) http.Handler {
	resolve := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p, ok := t.CurrentPrincipal(r.Context()); ok {
			r = r.WithContext(WithPrincipal(r.Context(), p))
		}
		next.ServeHTTP(w, r)
	})
	return jwtauth.Verifier(t.auth)(resolve)
}

// Require rejects requests whose token failed verification.
func (t *Tokens) Require(next http.Handler) http.Handler {
	return jwtauth.Authenticator(next)
}

func principalFromClaims(claims map[string]interface{}) (simplecms.Principal, bool) {
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return simplecms.Principal{}, false
	}
	email, _ := claims["email"].(string)
	return simplecms.Principal{ID: sub, Email: email}, true
}

var _ Gate = (*Tokens)(nil)
