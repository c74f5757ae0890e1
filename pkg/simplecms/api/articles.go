package api

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/tendant/simple-cms/pkg/simplecms"
)

// multipartMemory is the part of a multipart form held in memory; larger
// files spill to temporary files.
const multipartMemory = 8 << 20

// ArticleResponse is the response body for an article
type ArticleResponse struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Summary         string    `json:"summary"`
	Content         string    `json:"content"`
	Date            string    `json:"date"`
	ReadTime        string    `json:"read_time"`
	Category        string    `json:"category"`
	ImageURL        string    `json:"image_url,omitempty"`
	VideoURL        string    `json:"video_url,omitempty"`
	ImageDisplayURL string    `json:"image_display_url,omitempty"`
	VideoDisplayURL string    `json:"video_display_url,omitempty"`
	OwnerID         string    `json:"owner_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (h *Handler) articleResponse(a *simplecms.Article, width int) ArticleResponse {
	resp := ArticleResponse{
		ID:        a.ID.String(),
		Title:     a.Title,
		Summary:   a.Summary,
		Content:   a.Content,
		Date:      a.Date,
		ReadTime:  a.ReadTime,
		Category:  a.Category,
		ImageURL:  a.ImageURL,
		VideoURL:  a.VideoURL,
		OwnerID:   a.OwnerID,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
	if h.transformer != nil {
		if a.ImageURL != "" {
			resp.ImageDisplayURL = h.transformer.ImageURL(a.ImageURL, width)
		}
		if a.VideoURL != "" {
			resp.VideoDisplayURL = h.transformer.VideoURL(a.VideoURL)
		}
	}
	return resp
}

func (h *Handler) articleList(r *http.Request, articles []*simplecms.Article) []ArticleResponse {
	width := h.widthParam(r)
	resp := make([]ArticleResponse, 0, len(articles))
	for _, a := range articles {
		resp = append(resp, h.articleResponse(a, width))
	}
	return resp
}

// widthParam reads the optional ?width= display width for images.
func (h *Handler) widthParam(r *http.Request) int {
	if w, err := strconv.Atoi(r.URL.Query().Get("width")); err == nil && w > 0 {
		return w
	}
	return h.imageWidth
}

// ListArticles returns all cached articles, newest first. ?category= filters.
func (h *Handler) ListArticles(w http.ResponseWriter, r *http.Request) {
	var articles []*simplecms.Article
	if category := r.URL.Query().Get("category"); category != "" {
		articles = h.repo.ArticlesByCategory(category)
	} else {
		articles = h.repo.Articles()
	}
	render.JSON(w, r, h.articleList(r, articles))
}

// GetArticle returns one article
func (h *Handler) GetArticle(w http.ResponseWriter, r *http.Request) {
	id, err := articleID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	article, err := h.repo.Article(id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, h.articleResponse(article, h.widthParam(r)))
}

// CreateArticle creates an article from a multipart form with optional
// image and video files
func (h *Handler) CreateArticle(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		h.writeError(w, r, formError(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	uploads, closeFiles, err := formUploads(r.MultipartForm)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer closeFiles()
	uploads.Progress = h.progressLogger(r, "")

	draft := simplecms.ArticleDraft{
		Title:    r.FormValue("title"),
		Summary:  r.FormValue("summary"),
		Content:  r.FormValue("content"),
		Date:     r.FormValue("date"),
		ReadTime: r.FormValue("read_time"),
		Category: r.FormValue("category"),
		ImageURL: r.FormValue("image_url"),
		VideoURL: r.FormValue("video_url"),
	}

	article, err := h.repo.CreateArticle(r.Context(), draft, uploads)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Article created", "article_id", article.ID.String())
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, h.articleResponse(article, h.imageWidth))
}

// UpdateArticle applies the submitted form fields to an existing article.
// Absent fields keep their value; an empty image_url or video_url clears
// the slot.
func (h *Handler) UpdateArticle(w http.ResponseWriter, r *http.Request) {
	id, err := articleID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	current, err := h.repo.Article(id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		h.writeError(w, r, formError(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	uploads, closeFiles, err := formUploads(r.MultipartForm)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer closeFiles()
	uploads.Progress = h.progressLogger(r, id.String())

	article := *current
	fields := map[string]*string{
		"title":     &article.Title,
		"summary":   &article.Summary,
		"content":   &article.Content,
		"date":      &article.Date,
		"read_time": &article.ReadTime,
		"category":  &article.Category,
		"image_url": &article.ImageURL,
		"video_url": &article.VideoURL,
	}
	for name, dst := range fields {
		if values, ok := r.MultipartForm.Value[name]; ok && len(values) > 0 {
			*dst = values[0]
		}
	}

	updated, err := h.repo.UpdateArticle(r.Context(), article, uploads)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Article updated", "article_id", updated.ID.String())
	render.JSON(w, r, h.articleResponse(updated, h.imageWidth))
}

// DeleteArticle deletes an article
func (h *Handler) DeleteArticle(w http.ResponseWriter, r *http.Request) {
	id, err := articleID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.repo.DeleteArticle(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.logger.InfoContext(r.Context(), "Article deleted", "article_id", id.String())
	w.WriteHeader(http.StatusNoContent)
}

func articleID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("article %q: %w", raw, simplecms.ErrNotFound)
	}
	return id, nil
}

// formUploads opens the image and video parts of a multipart form.
func formUploads(form *multipart.Form) (simplecms.Uploads, func(), error) {
	var uploads simplecms.Uploads
	var opened []multipart.File
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}

	for _, kind := range []simplecms.MediaKind{simplecms.MediaKindImage, simplecms.MediaKindVideo} {
		headers := form.File[string(kind)]
		if len(headers) == 0 {
			continue
		}
		fh := headers[0]
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return simplecms.Uploads{}, nil, fmt.Errorf("open %s part: %w", kind, err)
		}
		opened = append(opened, f)

		file := &simplecms.File{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Reader:      f,
		}
		if kind == simplecms.MediaKindImage {
			uploads.Image = file
		} else {
			uploads.Video = file
		}
	}
	return uploads, closeAll, nil
}

func formError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return &simplecms.ValidationError{Field: "body", Reason: fmt.Sprintf("request exceeds %d bytes", tooLarge.Limit)}
	}
	return &simplecms.ValidationError{Field: "body", Reason: "expected multipart/form-data"}
}

// uploadLog reports upload progress of one request at debug level.
type uploadLog struct {
	h         *Handler
	r         *http.Request
	articleID string
	lastStep  int
}

func (h *Handler) progressLogger(r *http.Request, articleID string) simplecms.ProgressObserver {
	return &uploadLog{h: h, r: r, articleID: articleID, lastStep: -1}
}

func (u *uploadLog) Progress(percent float64) {
	// One line per quarter.
	step := int(percent) / 25
	if step == u.lastStep {
		return
	}
	u.lastStep = step
	u.h.logger.DebugContext(u.r.Context(), "Upload progress", "article_id", u.articleID, "percent", int(percent))
}

func (u *uploadLog) Complete(err error) {
	if err != nil {
		u.h.logger.WarnContext(u.r.Context(), "Upload failed", "article_id", u.articleID, "error", err)
		return
	}
	u.h.logger.DebugContext(u.r.Context(), "Upload complete", "article_id", u.articleID)
}
