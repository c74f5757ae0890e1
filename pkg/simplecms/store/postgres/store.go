package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-cms/pkg/simplecms"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Store implements simplecms.Store using PostgreSQL
type Store struct {
	db DBTX
}

// New creates a new PostgreSQL store
func New(db DBTX) *Store {
	return &Store{db: db}
}

// NewWithPool creates a new PostgreSQL store with connection pool
func NewWithPool(pool *pgxpool.Pool) *Store {
	return &Store{db: pool}
}

// Error handling helper
func (s *Store) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%s: %w: %s", operation, simplecms.ErrConflict, pgErr.ConstraintName)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%s: %w: referenced by %s", operation, simplecms.ErrConflict, pgErr.ConstraintName)
		case "23502": // not_null_violation
			return fmt.Errorf("%s: required field %s is missing", operation, pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("%s: table does not exist - database migration required", operation)
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

const articleColumns = `id, title, summary, content, date, read_time, category_id,
	image_url, video_url, owner_id, created_at, updated_at`

// Article operations

func (s *Store) ListArticles(ctx context.Context) ([]*simplecms.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles ORDER BY created_at DESC`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, s.handlePostgresError("list articles", err)
	}
	defer rows.Close()

	articles := []*simplecms.Article{}
	for rows.Next() {
		var a simplecms.Article
		if err := rows.Scan(
			&a.ID, &a.Title, &a.Summary, &a.Content, &a.Date, &a.ReadTime, &a.Category,
			&a.ImageURL, &a.VideoURL, &a.OwnerID, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, s.handlePostgresError("scan article", err)
		}
		articles = append(articles, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, s.handlePostgresError("list articles", err)
	}
	return articles, nil
}

func (s *Store) InsertArticle(ctx context.Context, article *simplecms.Article) (uuid.UUID, error) {
	query := `
		INSERT INTO articles (
			title, summary, content, date, read_time, category_id,
			image_url, video_url, owner_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`

	var id uuid.UUID
	err := s.db.QueryRow(ctx, query,
		article.Title, article.Summary, article.Content, article.Date, article.ReadTime, article.Category,
		article.ImageURL, article.VideoURL, article.OwnerID, article.CreatedAt, article.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, s.handlePostgresError("insert article", err)
	}
	return id, nil
}

func (s *Store) UpdateArticle(ctx context.Context, article *simplecms.Article) error {
	query := `
		UPDATE articles SET
			title = $2, summary = $3, content = $4, date = $5, read_time = $6,
			category_id = $7, image_url = $8, video_url = $9, owner_id = $10,
			updated_at = $11
		WHERE id = $1`

	tag, err := s.db.Exec(ctx, query,
		article.ID, article.Title, article.Summary, article.Content, article.Date, article.ReadTime,
		article.Category, article.ImageURL, article.VideoURL, article.OwnerID, article.UpdatedAt,
	)
	if err != nil {
		return s.handlePostgresError("update article", err)
	}
	if tag.RowsAffected() == 0 {
		return simplecms.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteArticle(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM articles WHERE id = $1`, id); err != nil {
		return s.handlePostgresError("delete article", err)
	}
	return nil
}

// Category operations

func (s *Store) ListCategories(ctx context.Context) ([]*simplecms.Category, error) {
	query := `SELECT id, name, icon, owner_id, created_at FROM categories ORDER BY created_at, id`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, s.handlePostgresError("list categories", err)
	}
	defer rows.Close()

	categories := []*simplecms.Category{}
	for rows.Next() {
		var c simplecms.Category
		var icon string
		if err := rows.Scan(&c.ID, &c.Name, &icon, &c.OwnerID, &c.CreatedAt); err != nil {
			return nil, s.handlePostgresError("scan category", err)
		}
		c.Icon = simplecms.Icon(icon)
		categories = append(categories, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, s.handlePostgresError("list categories", err)
	}
	return categories, nil
}

func (s *Store) InsertCategory(ctx context.Context, category *simplecms.Category) error {
	query := `INSERT INTO categories (id, name, icon, owner_id, created_at) VALUES ($1, $2, $3, $4, $5)`

	_, err := s.db.Exec(ctx, query, category.ID, category.Name, string(category.Icon), category.OwnerID, category.CreatedAt)
	if err != nil {
		return s.handlePostgresError("insert category", err)
	}
	return nil
}

func (s *Store) UpdateCategory(ctx context.Context, category *simplecms.Category) error {
	query := `UPDATE categories SET name = $2, icon = $3, owner_id = $4 WHERE id = $1`

	tag, err := s.db.Exec(ctx, query, category.ID, category.Name, string(category.Icon), category.OwnerID)
	if err != nil {
		return s.handlePostgresError("update category", err)
	}
	if tag.RowsAffected() == 0 {
		return simplecms.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id); err != nil {
		return s.handlePostgresError("delete category", err)
	}
	return nil
}

var _ simplecms.Store = (*Store)(nil)
