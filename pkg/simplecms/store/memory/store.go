package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/tendant/simple-cms/pkg/simplecms"
)

// Store implements simplecms.Store using in-memory storage
type Store struct {
	mu         sync.RWMutex
	articles   map[uuid.UUID]*simplecms.Article
	categories map[string]*simplecms.Category
}

// New creates a new in-memory store
func New() *Store {
	return &Store{
		articles:   make(map[uuid.UUID]*simplecms.Article),
		categories: make(map[string]*simplecms.Category),
	}
}

// NewSeeded creates an in-memory store holding the built-in seed dataset
func NewSeeded() *Store {
	s := New()
	for _, a := range simplecms.SeedArticles() {
		s.articles[a.ID] = a
	}
	for _, c := range simplecms.SeedCategories() {
		s.categories[c.ID] = c
	}
	return s
}

// Article operations

func (s *Store) ListArticles(ctx context.Context) ([]*simplecms.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*simplecms.Article, 0, len(s.articles))
	for _, a := range s.articles {
		// Return a copy to prevent external modifications
		articleCopy := *a
		result = append(result, &articleCopy)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *Store) InsertArticle(ctx context.Context, article *simplecms.Article) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := article.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	if _, exists := s.articles[id]; exists {
		return uuid.Nil, simplecms.ErrConflict
	}

	// Create a copy to avoid external modifications
	articleCopy := *article
	articleCopy.ID = id
	s.articles[id] = &articleCopy
	return id, nil
}

func (s *Store) UpdateArticle(ctx context.Context, article *simplecms.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.articles[article.ID]; !exists {
		return simplecms.ErrNotFound
	}
	articleCopy := *article
	s.articles[article.ID] = &articleCopy
	return nil
}

func (s *Store) DeleteArticle(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.articles, id)
	return nil
}

// Category operations

func (s *Store) ListCategories(ctx context.Context) ([]*simplecms.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*simplecms.Category, 0, len(s.categories))
	for _, c := range s.categories {
		categoryCopy := *c
		result = append(result, &categoryCopy)
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *Store) InsertCategory(ctx context.Context, category *simplecms.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.categories[category.ID]; exists {
		return simplecms.ErrConflict
	}
	categoryCopy := *category
	s.categories[category.ID] = &categoryCopy
	return nil
}

func (s *Store) UpdateCategory(ctx context.Context, category *simplecms.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.categories[category.ID]; !exists {
		return simplecms.ErrNotFound
	}
	categoryCopy := *category
	s.categories[category.ID] = &categoryCopy
	return nil
}

func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.categories, id)
	return nil
}

var _ simplecms.Store = (*Store)(nil)
