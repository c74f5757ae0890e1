package simplecms

import (
	"fmt"
	"strings"
)

// Default upload size limits per media kind.
const (
	DefaultImageMaxBytes int64 = 10 << 20
	DefaultVideoMaxBytes int64 = 100 << 20
)

// MediaLimits bounds the size of files accepted for upload.
type MediaLimits struct {
	ImageMaxBytes int64
	VideoMaxBytes int64
}

func (l MediaLimits) max(kind MediaKind) int64 {
	switch kind {
	case MediaKindImage:
		return l.ImageMaxBytes
	case MediaKindVideo:
		return l.VideoMaxBytes
	}
	return 0
}

// validateArticleText checks the text fields shared by create and update.
func validateArticleText(title, summary, content, category, date, readTime string) error {
	fields := []struct {
		name  string
		value string
	}{
		{"title", title},
		{"summary", summary},
		{"content", content},
		{"category", category},
		{"date", date},
		{"readTime", readTime},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return invalid(f.name, "required")
		}
	}
	return nil
}

// validateDraft checks a new article: text fields plus at least one media
// reference, either a URL or a pending file.
func validateDraft(draft ArticleDraft, uploads Uploads) error {
	if err := validateArticleText(draft.Title, draft.Summary, draft.Content, draft.Category, draft.Date, draft.ReadTime); err != nil {
		return err
	}
	if strings.TrimSpace(draft.ImageURL) == "" && strings.TrimSpace(draft.VideoURL) == "" && uploads.empty() {
		return invalid("media", "either an image or a video is required")
	}
	return nil
}

// validateUploads checks every attached file against its kind and limits.
func validateUploads(uploads Uploads, limits MediaLimits) error {
	for _, kind := range []MediaKind{MediaKindImage, MediaKindVideo} {
		f := uploads.file(kind)
		if f == nil {
			continue
		}
		if err := validateFile(kind, f, limits.max(kind)); err != nil {
			return err
		}
	}
	return nil
}

func validateFile(kind MediaKind, f *File, maxBytes int64) error {
	field := string(kind)
	if f.Reader == nil {
		return invalid(field, "file has no content")
	}
	if f.ContentType != "" {
		major, _, _ := strings.Cut(f.ContentType, "/")
		if major != field {
			return invalid(field, fmt.Sprintf("expected a %s file, got %s", kind, f.ContentType))
		}
	}
	if maxBytes > 0 && f.Size > maxBytes {
		return invalid(field, fmt.Sprintf("file size exceeds %dMB limit", maxBytes>>20))
	}
	return nil
}

// validateCategory checks the user-editable fields of a category.
func validateCategory(name string, icon Icon) error {
	if strings.TrimSpace(name) == "" {
		return invalid("name", "required")
	}
	if icon == "" {
		return invalid("icon", "required")
	}
	if !icon.Valid() {
		return invalid("icon", fmt.Sprintf("unknown icon %q", icon))
	}
	return nil
}
