package simplecms

import (
	"io"
	"time"

	"github.com/google/uuid"
)

// MediaKind identifies the media slot a file or URL belongs to.
type MediaKind string

// Media kind constants (typed).
const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
)

// Article is a blog article as held by the backing store.
type Article struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	Content   string    `json:"content"`
	Date      string    `json:"date"`
	ReadTime  string    `json:"read_time"`
	Category  string    `json:"category"`
	ImageURL  string    `json:"image_url,omitempty"`
	VideoURL  string    `json:"video_url,omitempty"`
	OwnerID   string    `json:"owner_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MediaURL returns the URL held in the given slot.
func (a *Article) MediaURL(kind MediaKind) string {
	switch kind {
	case MediaKindImage:
		return a.ImageURL
	case MediaKindVideo:
		return a.VideoURL
	}
	return ""
}

func (a *Article) setMediaURL(kind MediaKind, url string) {
	switch kind {
	case MediaKindImage:
		a.ImageURL = url
	case MediaKindVideo:
		a.VideoURL = url
	}
}

// ArticleDraft holds the caller-supplied fields of a new article. The id,
// owner and timestamps are assigned on creation.
type ArticleDraft struct {
	Title    string `json:"title"`
	Summary  string `json:"summary"`
	Content  string `json:"content"`
	Date     string `json:"date"`
	ReadTime string `json:"read_time"`
	Category string `json:"category"`
	ImageURL string `json:"image_url,omitempty"`
	VideoURL string `json:"video_url,omitempty"`
}

// Category groups articles. Its ID is derived from Name, see CategoryID.
type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Icon      Icon      `json:"icon"`
	OwnerID   string    `json:"owner_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CategoryDraft holds the caller-supplied fields of a new category.
type CategoryDraft struct {
	Name string `json:"name"`
	Icon Icon   `json:"icon"`
}

// File is a pending local payload waiting to be moved to the MediaStore.
// Size may be zero when unknown; progress is then only reported at the end.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// Uploads carries the files attached to an article mutation together with
// the observer that receives combined upload progress.
type Uploads struct {
	Image    *File
	Video    *File
	Progress ProgressObserver
}

func (u Uploads) file(kind MediaKind) *File {
	switch kind {
	case MediaKindImage:
		return u.Image
	case MediaKindVideo:
		return u.Video
	}
	return nil
}

// empty reports whether no file is attached.
func (u Uploads) empty() bool {
	return u.Image == nil && u.Video == nil
}

// ProgressObserver receives upload progress for one logical mutation.
// Progress values are non-decreasing within [0,100]; Complete is called
// exactly once when uploads were attempted, with nil on success.
type ProgressObserver interface {
	Progress(percent float64)
	Complete(err error)
}

// ProgressFunc reports the fractional progress (0-100) of a single upload.
type ProgressFunc func(percent float64)

// Principal is the authenticated actor on whose behalf a mutation runs.
type Principal struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// CacheSource tells where the cached collections came from.
type CacheSource string

const (
	// SourceEmpty means Load has not run yet.
	SourceEmpty CacheSource = ""
	// SourceStore means the collections mirror the backing store.
	SourceStore CacheSource = "store"
	// SourceSeed means the backing store was unreachable on Load and the
	// built-in seed dataset is served instead.
	SourceSeed CacheSource = "seed"
)

// Snapshot is an immutable view of the cached collections. A new Snapshot
// replaces the previous one on every mutation; readers never observe a
// half-applied change.
type Snapshot struct {
	Articles   []*Article
	Categories []*Category
	Source     CacheSource
	LoadedAt   time.Time
}

func (a *Article) clone() *Article {
	c := *a
	return &c
}

func (c *Category) clone() *Category {
	cp := *c
	return &cp
}
