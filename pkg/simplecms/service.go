package simplecms

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the main interface of the simple-cms library. It owns
// the cached article and category collections for a session and mediates
// every remote read and write.
type Repository interface {
	// Load fills the cache from the backing store, falling back to the seed
	// dataset when the store cannot be reached
	Load(ctx context.Context) error

	// Article operations
	CreateArticle(ctx context.Context, draft ArticleDraft, uploads Uploads) (*Article, error)
	UpdateArticle(ctx context.Context, article Article, uploads Uploads) (*Article, error)
	DeleteArticle(ctx context.Context, id uuid.UUID) error

	// Category operations
	CreateCategory(ctx context.Context, draft CategoryDraft) (*Category, error)
	UpdateCategory(ctx context.Context, category Category) (*Category, error)
	DeleteCategory(ctx context.Context, id string) error

	// Cached reads
	Snapshot() *Snapshot
	Articles() []*Article
	Article(id uuid.UUID) (*Article, error)
	ArticlesByCategory(categoryID string) []*Article
	Categories() []*Category
	Category(id string) (*Category, error)

	// Close waits for queued cleanup work to finish or ctx to expire
	Close(ctx context.Context) error
}
