package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-cms/pkg/simplecms"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "cms.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedCategory(t *testing.T, s *Store, id string, at time.Time) {
	t.Helper()
	require.NoError(t, s.InsertCategory(context.Background(), &simplecms.Category{
		ID: id, Name: id, Icon: "Tag", OwnerID: "admin", CreatedAt: at,
	}))
}

func TestArticles(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	seedCategory(t, s, "innovation", base)

	first := &simplecms.Article{
		Title: "First", Summary: "s", Content: "c", Date: "d", ReadTime: "r", Category: "innovation",
		ImageURL: "https://cdn/a.jpg", OwnerID: "admin", CreatedAt: base, UpdatedAt: base,
	}
	firstID, err := s.InsertArticle(ctx, first)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, firstID)

	second := *first
	second.Title = "Second"
	second.CreatedAt = base.Add(time.Hour)
	second.UpdatedAt = second.CreatedAt
	_, err = s.InsertArticle(ctx, &second)
	require.NoError(t, err)

	articles, err := s.ListArticles(ctx)
	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Equal(t, "Second", articles[0].Title)
	assert.Equal(t, firstID, articles[1].ID)
	assert.True(t, articles[1].CreatedAt.Equal(base))

	t.Run("update", func(t *testing.T) {
		updated := *articles[1]
		updated.Title = "First, revised"
		updated.VideoURL = "https://cdn/v.mp4"
		require.NoError(t, s.UpdateArticle(ctx, &updated))

		list, err := s.ListArticles(ctx)
		require.NoError(t, err)
		assert.Equal(t, "First, revised", list[1].Title)
		assert.Equal(t, "https://cdn/v.mp4", list[1].VideoURL)
	})

	t.Run("update missing", func(t *testing.T) {
		err := s.UpdateArticle(ctx, &simplecms.Article{ID: uuid.New(), Category: "innovation"})
		assert.ErrorIs(t, err, simplecms.ErrNotFound)
	})

	t.Run("unknown category", func(t *testing.T) {
		bad := *first
		bad.ID = uuid.Nil
		bad.Category = "ghost"
		_, err := s.InsertArticle(ctx, &bad)
		assert.ErrorIs(t, err, simplecms.ErrConflict)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		require.NoError(t, s.DeleteArticle(ctx, firstID))
		require.NoError(t, s.DeleteArticle(ctx, firstID))

		list, err := s.ListArticles(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})
}

func TestCategories(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	seedCategory(t, s, "update", base)
	seedCategory(t, s, "innovation", base)
	seedCategory(t, s, "project", base.Add(time.Minute))

	categories, err := s.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 3)
	assert.Equal(t, []string{"innovation", "update", "project"},
		[]string{categories[0].ID, categories[1].ID, categories[2].ID})

	t.Run("duplicate id", func(t *testing.T) {
		err := s.InsertCategory(ctx, &simplecms.Category{ID: "project", Name: "Project", Icon: "Rocket", CreatedAt: base})
		assert.ErrorIs(t, err, simplecms.ErrConflict)
	})

	t.Run("update", func(t *testing.T) {
		require.NoError(t, s.UpdateCategory(ctx, &simplecms.Category{ID: "project", Name: "Projects", Icon: "Rocket"}))
		list, err := s.ListCategories(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Projects", list[2].Name)
		assert.Equal(t, simplecms.Icon("Rocket"), list[2].Icon)
	})

	t.Run("update missing", func(t *testing.T) {
		err := s.UpdateCategory(ctx, &simplecms.Category{ID: "ghost", Name: "Ghost", Icon: "Tag"})
		assert.ErrorIs(t, err, simplecms.ErrNotFound)
	})

	t.Run("referenced category cannot be deleted", func(t *testing.T) {
		_, err := s.InsertArticle(ctx, &simplecms.Article{
			Title: "t", Summary: "s", Content: "c", Date: "d", ReadTime: "r", Category: "update",
			CreatedAt: base, UpdatedAt: base,
		})
		require.NoError(t, err)

		err = s.DeleteCategory(ctx, "update")
		assert.ErrorIs(t, err, simplecms.ErrConflict)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.DeleteCategory(ctx, "innovation"))
		require.NoError(t, s.DeleteCategory(ctx, "innovation"))
		list, err := s.ListCategories(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 2)
	})
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "cms.db")

	s, err := Open(ctx, path)
	require.NoError(t, err)
	seedCategory(t, s, "innovation", time.Now())
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	categories, err := s.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, 1)
}
