package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tendant/simple-cms/pkg/simplecms"
)

const (
	// SessionCookie carries the session id for browser clients.
	SessionCookie = "simplecms_session"

	// DefaultSessionTTL is how long a session lives without activity.
	DefaultSessionTTL = 24 * time.Hour

	defaultKeyPrefix = "simplecms:session:"
	sessionIDBytes   = 32
)

// Sessions stores principals in Redis under random session ids.
type Sessions struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// SessionOption configures Sessions.
type SessionOption func(*Sessions)

// WithSessionTTL overrides DefaultSessionTTL.
func WithSessionTTL(ttl time.Duration) SessionOption {
	return func(s *Sessions) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithKeyPrefix namespaces session keys.
func WithKeyPrefix(prefix string) SessionOption {
	return func(s *Sessions) {
		s.prefix = prefix
	}
}

// NewSessions creates a session gate backed by client.
func NewSessions(client redis.Cmdable, opts ...SessionOption) *Sessions {
	s := &Sessions{client: client, prefix: defaultKeyPrefix, ttl: DefaultSessionTTL}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue creates a session for p and returns its id.
func (s *Sessions) Issue(ctx context.Context, p simplecms.Principal) (string, error) {
	b := make([]byte, sessionIDBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("session create: %w", err)
	}
	id := hex.EncodeToString(b)

	payload, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("session marshal: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+id, payload, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("session store: %w", err)
	}
	return id, nil
}

// Resolve returns the principal of a live session and extends its lifetime.
func (s *Sessions) Resolve(ctx context.Context, id string) (simplecms.Principal, error) {
	if id == "" {
		return simplecms.Principal{}, ErrSessionNotFound
	}
	payload, err := s.client.GetEx(ctx, s.prefix+id, s.ttl).Bytes()
	if errors.Is(err, redis.Nil) {
		return simplecms.Principal{}, ErrSessionNotFound
	}
	if err != nil {
		return simplecms.Principal{}, fmt.Errorf("session get: %w", err)
	}

	var p simplecms.Principal
	if err := json.Unmarshal(payload, &p); err != nil {
		return simplecms.Principal{}, fmt.Errorf("session unmarshal: %w", err)
	}
	return p, nil
}

// Revoke deletes a session. Unknown ids are ignored.
func (s *Sessions) Revoke(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.prefix+id).Err(); err != nil {
		return fmt.Errorf("session delete: %w", err)
	}
	return nil
}

func (s *Sessions) CurrentPrincipal(ctx context.Context) (simplecms.Principal, bool) {
	return FromContext(ctx)
}

// Middleware resolves the session named by the bearer token or cookie.
// Lookup failures leave the request anonymous.
func (s *Sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := SessionID(r); id != "" {
			if p, err := s.Resolve(r.Context(), id); err == nil {
				r = r.WithContext(WithPrincipal(r.Context(), p))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Require rejects requests that Middleware left anonymous.
func (s *Sessions) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := FromContext(r.Context()); !ok {
			unauthorized(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SessionID extracts a session id from the Authorization header or cookie.
func SessionID(r *http.Request) string {
	if h := r.Header.Get("Authorization"); len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

var (
	_ Gate    = (*Sessions)(nil)
	_ Revoker = (*Sessions)(nil)
)
