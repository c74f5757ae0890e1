package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-cms/pkg/simplecms"
)

var admin = simplecms.Principal{ID: "admin@example.com", Email: "admin@example.com"}

func TestContextPrincipal(t *testing.T) {
	ctx := context.Background()
	_, ok := FromContext(ctx)
	assert.False(t, ok)

	_, ok = FromContext(WithPrincipal(ctx, simplecms.Principal{}))
	assert.False(t, ok, "empty principal is anonymous")

	p, ok := Context{}.CurrentPrincipal(WithPrincipal(ctx, admin))
	require.True(t, ok)
	assert.Equal(t, admin, p)
}

type fixed struct {
	p  simplecms.Principal
	ok bool
}

func (f fixed) CurrentPrincipal(context.Context) (simplecms.Principal, bool) { return f.p, f.ok }

func TestChain(t *testing.T) {
	other := simplecms.Principal{ID: "editor"}
	provider := Chain(fixed{}, fixed{p: other, ok: true}, fixed{p: admin, ok: true})

	p, ok := provider.CurrentPrincipal(context.Background())
	require.True(t, ok)
	assert.Equal(t, "editor", p.ID)

	_, ok = Chain().CurrentPrincipal(context.Background())
	assert.False(t, ok)
}

func TestStatic(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)

	static, err := NewStatic("  Admin@Example.com ", hash)
	require.NoError(t, err)

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  bool
	}{
		{"exact", "admin@example.com", "s3cret-pass", false},
		{"email case and spaces ignored", " ADMIN@example.com", "s3cret-pass", false},
		{"wrong password", "admin@example.com", "nope", true},
		{"wrong email", "editor@example.com", "s3cret-pass", true},
		{"empty", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := static.Authenticate(context.Background(), tt.email, tt.password)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidCredentials)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, admin, p)
		})
	}

	t.Run("rejects bad configuration", func(t *testing.T) {
		_, err := NewStatic("admin@example.com", "plaintext")
		assert.Error(t, err)
		_, err = NewStatic("", hash)
		assert.Error(t, err)
	})
}

// echoPrincipal writes the resolved principal id, or "anonymous".
func echoPrincipal(provider simplecms.IdentityProvider) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p, ok := provider.CurrentPrincipal(r.Context()); ok {
			_, _ = w.Write([]byte(p.ID))
			return
		}
		_, _ = w.Write([]byte("anonymous"))
	})
}

func TestTokens(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)
	token, err := tokens.Issue(context.Background(), admin)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	t.Run("parse", func(t *testing.T) {
		p, err := tokens.Parse(token)
		require.NoError(t, err)
		assert.Equal(t, admin, p)

		_, err = NewTokens("other-secret", time.Hour).Parse(token)
		assert.Error(t, err)
	})

	t.Run("middleware resolves bearer token", func(t *testing.T) {
		h := tokens.Middleware(echoPrincipal(Context{}))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, admin.ID, rec.Body.String())
	})

	t.Run("anonymous without token", func(t *testing.T) {
		h := tokens.Middleware(echoPrincipal(tokens))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, "anonymous", rec.Body.String())
	})

	t.Run("require rejects missing and expired tokens", func(t *testing.T) {
		h := tokens.Middleware(tokens.Require(echoPrincipal(tokens)))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		expired, err := NewTokens("test-secret", -time.Minute).Issue(context.Background(), admin)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+expired)
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		req = httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, admin.ID, rec.Body.String())
	})
}

func setupSessions(t *testing.T, opts ...SessionOption) (*Sessions, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessions(client, opts...), mr
}

func TestSessions(t *testing.T) {
	ctx := context.Background()
	sessions, mr := setupSessions(t, WithSessionTTL(time.Hour), WithKeyPrefix("test:"))

	id, err := sessions.Issue(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, id, 64)
	assert.True(t, mr.Exists("test:"+id))

	p, err := sessions.Resolve(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, admin, p)

	t.Run("unknown id", func(t *testing.T) {
		_, err := sessions.Resolve(ctx, "missing")
		assert.ErrorIs(t, err, ErrSessionNotFound)
		_, err = sessions.Resolve(ctx, "")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("expiry", func(t *testing.T) {
		short, err := sessions.Issue(ctx, admin)
		require.NoError(t, err)
		mr.FastForward(2 * time.Hour)
		_, err = sessions.Resolve(ctx, short)
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("revoke", func(t *testing.T) {
		live, err := sessions.Issue(ctx, admin)
		require.NoError(t, err)
		require.NoError(t, sessions.Revoke(ctx, live))
		require.NoError(t, sessions.Revoke(ctx, live))
		_, err = sessions.Resolve(ctx, live)
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})
}

func TestSessionsMiddleware(t *testing.T) {
	sessions, _ := setupSessions(t)
	id, err := sessions.Issue(context.Background(), admin)
	require.NoError(t, err)

	h := sessions.Middleware(sessions.Require(echoPrincipal(sessions)))

	tests := []struct {
		name     string
		prepare  func(r *http.Request)
		wantCode int
		wantBody string
	}{
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+id) }, http.StatusOK, admin.ID},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: SessionCookie, Value: id}) }, http.StatusOK, admin.ID},
		{"unknown", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized, ""},
		{"none", func(*http.Request) {}, http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/admin", nil)
			tt.prepare(req)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}
