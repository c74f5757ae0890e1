package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/simple-cms/pkg/simplecms"
)

// CategoryRequest is the request body for creating or renaming a category
type CategoryRequest struct {
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// CategoryResponse is the response body for a category
type CategoryResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Icon      string    `json:"icon"`
	Glyph     string    `json:"glyph"`
	OwnerID   string    `json:"owner_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func categoryResponse(c *simplecms.Category) CategoryResponse {
	return CategoryResponse{
		ID:        c.ID,
		Name:      c.Name,
		Icon:      string(c.Icon),
		Glyph:     c.Icon.Glyph(),
		OwnerID:   c.OwnerID,
		CreatedAt: c.CreatedAt,
	}
}

// ListCategories returns all cached categories
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories := h.repo.Categories()
	resp := make([]CategoryResponse, 0, len(categories))
	for _, c := range categories {
		resp = append(resp, categoryResponse(c))
	}
	render.JSON(w, r, resp)
}

// GetCategory returns one category
func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	category, err := h.repo.Category(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, categoryResponse(category))
}

// ListCategoryArticles returns the articles filed under a category
func (h *Handler) ListCategoryArticles(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.repo.Category(id); err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, h.articleList(r, h.repo.ArticlesByCategory(id)))
}

func decodeCategory(r *http.Request) (CategoryRequest, error) {
	var req CategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, &simplecms.ValidationError{Field: "body", Reason: "invalid JSON"}
	}
	return req, nil
}

// CreateCategory creates a category whose id is derived from its name
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCategory(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	icon := simplecms.Icon(req.Icon)
	if icon == "" {
		icon = simplecms.DefaultIcon
	}

	category, err := h.repo.CreateCategory(r.Context(), simplecms.CategoryDraft{Name: req.Name, Icon: icon})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Category created", "category_id", category.ID)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, categoryResponse(category))
}

// UpdateCategory renames a category or changes its icon; the id is kept
func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCategory(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	current, err := h.repo.Category(id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	next := *current
	if req.Name != "" {
		next.Name = req.Name
	}
	if req.Icon != "" {
		next.Icon = simplecms.Icon(req.Icon)
	}

	category, err := h.repo.UpdateCategory(r.Context(), next)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, categoryResponse(category))
}

// DeleteCategory deletes a category that no article references
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.repo.DeleteCategory(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.logger.InfoContext(r.Context(), "Category deleted", "category_id", id)
	w.WriteHeader(http.StatusNoContent)
}
