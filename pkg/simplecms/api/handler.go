// Package api exposes a simplecms.Repository over HTTP using chi.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/simple-cms/pkg/simplecms"
	"github.com/tendant/simple-cms/pkg/simplecms/identity"
	"github.com/tendant/simple-cms/pkg/simplecms/metrics"
)

// URLTransformer rewrites hosted media URLs for delivery.
type URLTransformer interface {
	ImageURL(url string, width int) string
	VideoURL(url string) string
}

// Handler serves the public site and the admin endpoints.
type Handler struct {
	repo        simplecms.Repository
	gate        identity.Gate
	auth        identity.Authenticator
	transformer URLTransformer
	metrics     *metrics.Metrics
	logger      *slog.Logger
	maxBody     int64
	imageWidth  int
}

// Option configures a Handler.
type Option func(*Handler)

// WithGate sets the request identity source for admin routes.
func WithGate(gate identity.Gate) Option {
	return func(h *Handler) {
		h.gate = gate
	}
}

// WithAuthenticator enables POST /auth/login.
func WithAuthenticator(auth identity.Authenticator) Option {
	return func(h *Handler) {
		h.auth = auth
	}
}

// WithTransformer adds delivery URLs to article responses.
func WithTransformer(t URLTransformer) Option {
	return func(h *Handler) {
		h.transformer = t
	}
}

// WithMetrics records request metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

// WithLogger sets the handler logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithMaxBodyBytes bounds admin request bodies, multipart uploads included.
func WithMaxBodyBytes(n int64) Option {
	return func(h *Handler) {
		h.maxBody = n
	}
}

// DefaultMaxBodyBytes fits one maximum-size video plus one image and the form.
const DefaultMaxBodyBytes = simplecms.DefaultVideoMaxBytes + simplecms.DefaultImageMaxBytes + 1<<20

// NewHandler creates a handler over repo. Without WithGate every request is
// anonymous and admin routes answer 401.
func NewHandler(repo simplecms.Repository, options ...Option) *Handler {
	h := &Handler{
		repo:       repo,
		logger:     slog.Default(),
		maxBody:    DefaultMaxBodyBytes,
		imageWidth: 800,
	}
	for _, option := range options {
		option(h)
	}
	return h
}

// Routes returns the full router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(MetricsMiddleware(h.metrics))
	if h.gate != nil {
		r.Use(h.gate.Middleware)
	}

	r.Get("/healthz", h.Health)
	r.Get("/icons", h.ListIcons)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
	})

	r.Group(func(r chi.Router) {
		r.Use(CacheMiddleware(60))
		r.Get("/articles", h.ListArticles)
		r.Get("/articles/{id}", h.GetArticle)
		r.Get("/categories", h.ListCategories)
		r.Get("/categories/{id}", h.GetCategory)
		r.Get("/categories/{id}/articles", h.ListCategoryArticles)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(h.requirePrincipal)
		r.Use(RequestSizeLimitMiddleware(h.maxBody))
		r.Post("/articles", h.CreateArticle)
		r.Put("/articles/{id}", h.UpdateArticle)
		r.Delete("/articles/{id}", h.DeleteArticle)
		r.Post("/categories", h.CreateCategory)
		r.Put("/categories/{id}", h.UpdateCategory)
		r.Delete("/categories/{id}", h.DeleteCategory)
	})

	return r
}

func (h *Handler) requirePrincipal(next http.Handler) http.Handler {
	if h.gate == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h.writeError(w, r, simplecms.ErrUnauthorized)
		})
	}
	return h.gate.Require(next)
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// statusFor maps repository errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, simplecms.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, simplecms.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, simplecms.ErrTransport):
		// Store errors may wrap a constraint violation; the store is at fault.
		return http.StatusServiceUnavailable
	case errors.Is(err, simplecms.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, simplecms.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, simplecms.ErrUploadFailed):
		return http.StatusBadGateway
	case errors.Is(err, simplecms.ErrNoMediaStore):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	resp := ErrorResponse{Error: err.Error()}

	var verr *simplecms.ValidationError
	if errors.As(err, &verr) {
		resp.Field = verr.Field
	}
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "status", status, "error", err)
		if status == http.StatusInternalServerError {
			resp.Error = http.StatusText(status)
		}
	}

	render.Status(r, status)
	render.JSON(w, r, resp)
}

// HealthResponse reports where the cached collections came from
type HealthResponse struct {
	Status     string `json:"status"`
	Source     string `json:"source"`
	Articles   int    `json:"articles"`
	Categories int    `json:"categories"`
}

// Health reports the cache state
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	snap := h.repo.Snapshot()
	render.JSON(w, r, HealthResponse{
		Status:     "ok",
		Source:     string(snap.Source),
		Articles:   len(snap.Articles),
		Categories: len(snap.Categories),
	})
}

// IconResponse describes one selectable category icon
type IconResponse struct {
	Name  string `json:"name"`
	Glyph string `json:"glyph"`
}

// ListIcons returns the accepted category icons
func (h *Handler) ListIcons(w http.ResponseWriter, r *http.Request) {
	icons := simplecms.Icons()
	resp := make([]IconResponse, 0, len(icons))
	for _, icon := range icons {
		resp = append(resp, IconResponse{Name: string(icon), Glyph: icon.Glyph()})
	}
	render.JSON(w, r, resp)
}
