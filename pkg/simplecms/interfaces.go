package simplecms

import (
	"context"

	"github.com/google/uuid"
)

// Store defines the interface for the backing data store holding the
// canonical article and category records.
//
// Implementations return ErrNotFound from updates of unknown records and
// ErrConflict from inserting a category whose id already exists. Any other
// error is treated as a transport failure.
type Store interface {
	// ListArticles returns all articles ordered by creation time, newest first
	ListArticles(ctx context.Context) ([]*Article, error)

	// InsertArticle persists a new article and returns the id it was assigned
	InsertArticle(ctx context.Context, article *Article) (uuid.UUID, error)

	// UpdateArticle replaces the stored record with the same id
	UpdateArticle(ctx context.Context, article *Article) error

	// DeleteArticle removes an article; deleting an unknown id is not an error
	DeleteArticle(ctx context.Context, id uuid.UUID) error

	// ListCategories returns all categories ordered by creation time
	ListCategories(ctx context.Context) ([]*Category, error)

	// InsertCategory persists a new category under its derived id
	InsertCategory(ctx context.Context, category *Category) error

	// UpdateCategory replaces the stored record with the same id
	UpdateCategory(ctx context.Context, category *Category) error

	// DeleteCategory removes a category; deleting an unknown id is not an error
	DeleteCategory(ctx context.Context, id string) error
}

// MediaStore defines the interface for the remote object store that hosts
// uploaded images and videos.
type MediaStore interface {
	// Upload streams file to the store and returns its durable URL. progress
	// may be nil. Failures are reported as *UploadError.
	Upload(ctx context.Context, file *File, kind MediaKind, progress ProgressFunc) (string, error)

	// Remove deletes a previously stored object by its derived id
	Remove(ctx context.Context, objectID string) error

	// DerivedID extracts the store's object id from a URL it issued, or ""
	DerivedID(url string) string

	// Owns reports whether url points at an object hosted by this store
	Owns(url string) bool
}

// IdentityProvider supplies the acting principal for a request.
type IdentityProvider interface {
	// CurrentPrincipal returns the authenticated principal, if any
	CurrentPrincipal(ctx context.Context) (Principal, bool)
}

// Scheduler runs secondary tasks after a primary mutation succeeded.
// Task failures never reach the caller of the mutation.
type Scheduler interface {
	Submit(name string, task func(ctx context.Context) error)
}

// EventSink defines the interface for event handling
type EventSink interface {
	// ArticleCreated is fired when an article is created
	ArticleCreated(ctx context.Context, article *Article) error

	// ArticleUpdated is fired when an article is updated
	ArticleUpdated(ctx context.Context, article *Article) error

	// ArticleDeleted is fired when an article is deleted
	ArticleDeleted(ctx context.Context, articleID uuid.UUID) error

	// CategoryCreated is fired when a category is created
	CategoryCreated(ctx context.Context, category *Category) error

	// CategoryUpdated is fired when a category is updated
	CategoryUpdated(ctx context.Context, category *Category) error

	// CategoryDeleted is fired when a category is deleted
	CategoryDeleted(ctx context.Context, categoryID string) error

	// MediaOrphaned is fired when a hosted media URL loses its last reference
	MediaOrphaned(ctx context.Context, url string) error
}
