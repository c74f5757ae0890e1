package presets

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-cms/pkg/simplecms"
	"github.com/tendant/simple-cms/pkg/simplecms/config"
	"github.com/tendant/simple-cms/pkg/simplecms/identity"
)

func editor() context.Context {
	return identity.WithPrincipal(context.Background(), simplecms.Principal{ID: "editor", Email: "editor@example.com"})
}

func draft(category string) simplecms.ArticleDraft {
	return simplecms.ArticleDraft{
		Title:    "Hello",
		Summary:  "A summary",
		Content:  "Some content",
		Date:     "March 8, 2025",
		ReadTime: "3 min read",
		Category: category,
	}
}

func image() *simplecms.File {
	return &simplecms.File{Name: "cover.png", ContentType: "image/png", Size: 4, Reader: strings.NewReader("data")}
}

func TestNewDevelopment(t *testing.T) {
	t.Run("default configuration", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "dev-data")
		repo, cleanup, err := NewDevelopment(WithDevStorage(dir), WithDevPort("9090"))
		require.NoError(t, err)
		require.NotNil(t, repo)
		require.NotNil(t, cleanup)

		assert.Len(t, repo.Articles(), 3, "seeded")
		assert.Equal(t, simplecms.SourceStore, repo.Snapshot().Source)

		article, err := repo.CreateArticle(editor(), draft("innovation"), simplecms.Uploads{Image: image()})
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(article.ImageURL, "http://localhost:9090/media/"), article.ImageURL)

		cleanup()

		_, err = os.Stat(dir)
		assert.True(t, os.IsNotExist(err), "media directory should be removed after cleanup")
	})

	t.Run("writes need a principal", func(t *testing.T) {
		repo, cleanup, err := NewDevelopment(WithDevStorage(t.TempDir()))
		require.NoError(t, err)
		defer cleanup()

		_, err = repo.CreateCategory(context.Background(), simplecms.CategoryDraft{Name: "News"})
		assert.ErrorIs(t, err, simplecms.ErrUnauthorized)
	})
}

func TestNewTesting(t *testing.T) {
	t.Run("empty by default", func(t *testing.T) {
		repo, media := NewTesting(t)
		require.NotNil(t, repo)
		assert.Empty(t, repo.Articles())
		assert.Empty(t, repo.Categories())

		ctx := editor()
		category, err := repo.CreateCategory(ctx, simplecms.CategoryDraft{Name: "News", Icon: "Bell"})
		require.NoError(t, err)

		article, err := repo.CreateArticle(ctx, draft(category.ID), simplecms.Uploads{Image: image()})
		require.NoError(t, err)
		assert.True(t, media.Owns(article.ImageURL))
		assert.Equal(t, 1, media.Len())
	})

	t.Run("with fixtures", func(t *testing.T) {
		repo, media := NewTesting(t, WithTestFixtures())
		assert.Len(t, repo.Articles(), 3)
		assert.Len(t, repo.Categories(), 3)
		assert.Zero(t, media.Len())
	})
}

func TestNewProduction(t *testing.T) {
	t.Run("rejects memory database", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "memory")
		t.Setenv("JWT_SECRET", "secret")

		_, err := NewProduction(context.Background())
		assert.ErrorContains(t, err, "DATABASE_URL")
	})

	t.Run("rejects memory media", func(t *testing.T) {
		dir := t.TempDir()
		t.Setenv("DATABASE_URL", "sqlite://"+dir+"/cms.db")
		t.Setenv("MEDIA_URL", "memory://")
		t.Setenv("JWT_SECRET", "secret")

		_, err := NewProduction(context.Background())
		assert.ErrorContains(t, err, "persistent media")
	})

	t.Run("requires a token secret", func(t *testing.T) {
		dir := t.TempDir()
		t.Setenv("DATABASE_URL", "sqlite://"+dir+"/cms.db")
		t.Setenv("MEDIA_URL", "file://"+dir+"/media")
		t.Setenv("JWT_SECRET", "")

		_, err := NewProduction(context.Background())
		assert.Error(t, err)
	})

	t.Run("sqlite with filesystem media", func(t *testing.T) {
		ctx := context.Background()
		dir := t.TempDir()
		t.Setenv("DATABASE_URL", "sqlite://"+dir+"/cms.db")
		t.Setenv("MEDIA_URL", "file://"+dir+"/media")
		t.Setenv("JWT_SECRET", "secret")

		rt, err := NewProduction(ctx, WithProdConfig(config.WithMediaPublicURL("https://cms.example.com/media/")))
		require.NoError(t, err)
		defer rt.Close(ctx)

		assert.Equal(t, simplecms.SourceStore, rt.Repository.Snapshot().Source)
		assert.Empty(t, rt.Repository.Articles())
		assert.True(t, rt.Media.Owns("https://cms.example.com/media/image/x.png"))
	})
}
