package simplecms

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// NoopEventSink is a no-operation implementation of EventSink
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

func (n *NoopEventSink) ArticleCreated(ctx context.Context, article *Article) error { return nil }

func (n *NoopEventSink) ArticleUpdated(ctx context.Context, article *Article) error { return nil }

func (n *NoopEventSink) ArticleDeleted(ctx context.Context, articleID uuid.UUID) error { return nil }

func (n *NoopEventSink) CategoryCreated(ctx context.Context, category *Category) error { return nil }

func (n *NoopEventSink) CategoryUpdated(ctx context.Context, category *Category) error { return nil }

func (n *NoopEventSink) CategoryDeleted(ctx context.Context, categoryID string) error { return nil }

func (n *NoopEventSink) MediaOrphaned(ctx context.Context, url string) error { return nil }

// LoggingEventSink is an event sink that logs events but takes no other action.
// Useful for development and debugging.
type LoggingEventSink struct {
	logger *slog.Logger
}

// NewLoggingEventSink creates a new logging event sink. A nil logger uses
// slog.Default().
func NewLoggingEventSink(logger *slog.Logger) EventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingEventSink{logger: logger}
}

// ArticleCreated logs the article creation event
func (l *LoggingEventSink) ArticleCreated(ctx context.Context, article *Article) error {
	l.logger.InfoContext(ctx, "article created", "article_id", article.ID, "title", article.Title, "category_id", article.Category)
	return nil
}

// ArticleUpdated logs the article update event
func (l *LoggingEventSink) ArticleUpdated(ctx context.Context, article *Article) error {
	l.logger.InfoContext(ctx, "article updated", "article_id", article.ID, "title", article.Title)
	return nil
}

// ArticleDeleted logs the article deletion event
func (l *LoggingEventSink) ArticleDeleted(ctx context.Context, articleID uuid.UUID) error {
	l.logger.InfoContext(ctx, "article deleted", "article_id", articleID)
	return nil
}

// CategoryCreated logs the category creation event
func (l *LoggingEventSink) CategoryCreated(ctx context.Context, category *Category) error {
	l.logger.InfoContext(ctx, "category created", "category_id", category.ID, "name", category.Name)
	return nil
}

// CategoryUpdated logs the category update event
func (l *LoggingEventSink) CategoryUpdated(ctx context.Context, category *Category) error {
	l.logger.InfoContext(ctx, "category updated", "category_id", category.ID, "name", category.Name)
	return nil
}

// CategoryDeleted logs the category deletion event
func (l *LoggingEventSink) CategoryDeleted(ctx context.Context, categoryID string) error {
	l.logger.InfoContext(ctx, "category deleted", "category_id", categoryID)
	return nil
}

// MediaOrphaned logs the orphaned media URL
func (l *LoggingEventSink) MediaOrphaned(ctx context.Context, url string) error {
	l.logger.InfoContext(ctx, "media orphaned", "url", url)
	return nil
}
