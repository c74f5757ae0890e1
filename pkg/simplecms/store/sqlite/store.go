// Package sqlite implements simplecms.Store on a single SQLite file, for
// local development and small single-node deployments.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"github.com/tendant/simple-cms/pkg/simplecms"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Store implements simplecms.Store using SQLite
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database file at path with foreign
// keys enforced and applies pending migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && path != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure data dir: %w", err)
		}
	}

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	db, err := sql.Open("sqlite3", path+sep+"_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return New(db), nil
}

// New wraps an already migrated database.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate applies the embedded goose migrations.
func Migrate(ctx context.Context, db *sql.DB) error {
	sub, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, sub)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) handleSQLiteError(operation string, err error) error {
	var sqErr sqlite3.Error
	if errors.As(err, &sqErr) && sqErr.Code == sqlite3.ErrConstraint {
		switch sqErr.ExtendedCode {
		case sqlite3.ErrConstraintPrimaryKey, sqlite3.ErrConstraintUnique:
			return fmt.Errorf("%s: %w: duplicate id", operation, simplecms.ErrConflict)
		case sqlite3.ErrConstraintForeignKey:
			return fmt.Errorf("%s: %w: foreign key", operation, simplecms.ErrConflict)
		}
	}
	return fmt.Errorf("database error in %s: %w", operation, err)
}

const articleColumns = `id, title, summary, content, date, read_time, category_id,
	image_url, video_url, owner_id, created_at, updated_at`

func (s *Store) ListArticles(ctx context.Context) ([]*simplecms.Article, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+articleColumns+` FROM articles ORDER BY created_at DESC`)
	if err != nil {
		return nil, s.handleSQLiteError("list articles", err)
	}
	defer rows.Close()

	articles := []*simplecms.Article{}
	for rows.Next() {
		var a simplecms.Article
		var id string
		if err := rows.Scan(
			&id, &a.Title, &a.Summary, &a.Content, &a.Date, &a.ReadTime, &a.Category,
			&a.ImageURL, &a.VideoURL, &a.OwnerID, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, s.handleSQLiteError("scan article", err)
		}
		if a.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("scan article: bad id %q: %w", id, err)
		}
		articles = append(articles, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, s.handleSQLiteError("list articles", err)
	}
	return articles, nil
}

func (s *Store) InsertArticle(ctx context.Context, article *simplecms.Article) (uuid.UUID, error) {
	id := article.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO articles (`+articleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id.String(), article.Title, article.Summary, article.Content, article.Date, article.ReadTime,
		article.Category, article.ImageURL, article.VideoURL, article.OwnerID,
		utc(article.CreatedAt), utc(article.UpdatedAt),
	)
	if err != nil {
		return uuid.Nil, s.handleSQLiteError("insert article", err)
	}
	return id, nil
}

func (s *Store) UpdateArticle(ctx context.Context, article *simplecms.Article) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE articles SET
			title = ?, summary = ?, content = ?, date = ?, read_time = ?,
			category_id = ?, image_url = ?, video_url = ?, owner_id = ?, updated_at = ?
		WHERE id = ?`,
		article.Title, article.Summary, article.Content, article.Date, article.ReadTime,
		article.Category, article.ImageURL, article.VideoURL, article.OwnerID, utc(article.UpdatedAt),
		article.ID.String(),
	)
	if err != nil {
		return s.handleSQLiteError("update article", err)
	}
	return requireAffected(res)
}

func (s *Store) DeleteArticle(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM articles WHERE id = ?`, id.String()); err != nil {
		return s.handleSQLiteError("delete article", err)
	}
	return nil
}

func (s *Store) ListCategories(ctx context.Context) ([]*simplecms.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, icon, owner_id, created_at FROM categories ORDER BY created_at, id`)
	if err != nil {
		return nil, s.handleSQLiteError("list categories", err)
	}
	defer rows.Close()

	categories := []*simplecms.Category{}
	for rows.Next() {
		var c simplecms.Category
		var icon string
		if err := rows.Scan(&c.ID, &c.Name, &icon, &c.OwnerID, &c.CreatedAt); err != nil {
			return nil, s.handleSQLiteError("scan category", err)
		}
		c.Icon = simplecms.Icon(icon)
		categories = append(categories, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, s.handleSQLiteError("list categories", err)
	}
	return categories, nil
}

func (s *Store) InsertCategory(ctx context.Context, category *simplecms.Category) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (id, name, icon, owner_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		category.ID, category.Name, string(category.Icon), category.OwnerID, utc(category.CreatedAt),
	)
	if err != nil {
		return s.handleSQLiteError("insert category", err)
	}
	return nil
}

func (s *Store) UpdateCategory(ctx context.Context, category *simplecms.Category) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, icon = ?, owner_id = ? WHERE id = ?`,
		category.Name, string(category.Icon), category.OwnerID, category.ID,
	)
	if err != nil {
		return s.handleSQLiteError("update category", err)
	}
	return requireAffected(res)
}

func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id); err != nil {
		return s.handleSQLiteError("delete category", err)
	}
	return nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return simplecms.ErrNotFound
	}
	return nil
}

// utc keeps stored timestamps in one zone so text ordering matches time order.
func utc(t time.Time) time.Time {
	return t.UTC()
}

var _ simplecms.Store = (*Store)(nil)
