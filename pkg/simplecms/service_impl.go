package simplecms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tendant/simple-cms/pkg/simplecms/cleanup"
	"github.com/tendant/simple-cms/pkg/simplecms/metrics"
	"github.com/tendant/simple-cms/pkg/simplecms/progress"
)

// Default upload deadlines.
const (
	DefaultUploadTimeout      = 10 * time.Minute
	DefaultUploadStallTimeout = time.Minute
)

// repository implements the Repository interface
type repository struct {
	store     Store
	media     MediaStore
	identity  IdentityProvider
	scheduler Scheduler
	eventSink EventSink
	logger    *slog.Logger
	metrics   *metrics.Metrics
	limits    MediaLimits
	now       func() time.Time

	uploadTimeout      time.Duration
	uploadStallTimeout time.Duration

	// ownScheduler is closed by Close when the repository created it
	ownScheduler *cleanup.Queue

	// mu serialises mutations; readers only load cache
	mu    sync.Mutex
	cache atomic.Pointer[Snapshot]
}

// Option represents a functional option for configuring the repository
type Option func(*repository)

// WithStore sets the backing store
func WithStore(store Store) Option {
	return func(r *repository) {
		r.store = store
	}
}

// WithMediaStore sets the media store used for uploads and orphan removal
func WithMediaStore(media MediaStore) Option {
	return func(r *repository) {
		r.media = media
	}
}

// WithIdentity sets the identity provider consulted by every mutation
func WithIdentity(identity IdentityProvider) Option {
	return func(r *repository) {
		r.identity = identity
	}
}

// WithScheduler sets where orphan removals are queued
func WithScheduler(scheduler Scheduler) Option {
	return func(r *repository) {
		r.scheduler = scheduler
	}
}

// WithEventSink sets the event sink for the repository
func WithEventSink(sink EventSink) Option {
	return func(r *repository) {
		r.eventSink = sink
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(r *repository) {
		r.logger = logger
	}
}

// WithMetrics sets the Prometheus collectors
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *repository) {
		r.metrics = m
	}
}

// WithMediaLimits overrides the per-kind upload size limits
func WithMediaLimits(limits MediaLimits) Option {
	return func(r *repository) {
		r.limits = limits
	}
}

// WithUploadTimeouts bounds every single upload by total duration and by
// the time allowed without any bytes moving. Zero keeps the default.
func WithUploadTimeouts(total, stall time.Duration) Option {
	return func(r *repository) {
		if total > 0 {
			r.uploadTimeout = total
		}
		if stall > 0 {
			r.uploadStallTimeout = stall
		}
	}
}

// WithClock overrides the time source used for timestamps
func WithClock(now func() time.Time) Option {
	return func(r *repository) {
		r.now = now
	}
}

// New creates a new repository instance with the given options. The cache
// is empty until Load is called.
func New(options ...Option) (Repository, error) {
	r := &repository{
		limits: MediaLimits{
			ImageMaxBytes: DefaultImageMaxBytes,
			VideoMaxBytes: DefaultVideoMaxBytes,
		},
		now:                func() time.Time { return time.Now().UTC() },
		uploadTimeout:      DefaultUploadTimeout,
		uploadStallTimeout: DefaultUploadStallTimeout,
	}

	for _, option := range options {
		option(r)
	}

	if r.store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.eventSink == nil {
		r.eventSink = NewNoopEventSink()
	}
	if r.scheduler == nil {
		r.ownScheduler = cleanup.New(cleanup.WithLogger(r.logger))
		r.scheduler = r.ownScheduler
	}

	r.cache.Store(&Snapshot{})
	return r, nil
}

// Load operations

func (r *repository) Load(ctx context.Context) error {
	var (
		articles   []*Article
		categories []*Category
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		articles, err = r.store.ListArticles(gctx)
		if err != nil {
			return &StoreError{Op: "list_articles", Err: err}
		}
		return nil
	})
	g.Go(func() error {
		var err error
		categories, err = r.store.ListCategories(gctx)
		if err != nil {
			return &StoreError{Op: "list_categories", Err: err}
		}
		return nil
	})

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.logger.WarnContext(ctx, "backing store unreachable, serving seed dataset", "source", SourceSeed, "error", err)
		r.metrics.RecordSeedFallback()
		r.cache.Store(&Snapshot{
			Articles:   SeedArticles(),
			Categories: SeedCategories(),
			Source:     SourceSeed,
			LoadedAt:   r.now(),
		})
		return nil
	}

	if articles == nil {
		articles = []*Article{}
	}
	if categories == nil {
		categories = []*Category{}
	}
	r.cache.Store(&Snapshot{
		Articles:   articles,
		Categories: categories,
		Source:     SourceStore,
		LoadedAt:   r.now(),
	})
	r.logger.InfoContext(ctx, "content loaded", "source", SourceStore, "articles", len(articles), "categories", len(categories))
	return nil
}

// Article operations

func (r *repository) CreateArticle(ctx context.Context, draft ArticleDraft, uploads Uploads) (*Article, error) {
	principal, err := r.principal(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateDraft(draft, uploads); err != nil {
		return nil, err
	}
	if err := validateUploads(uploads, r.limits); err != nil {
		return nil, err
	}
	if _, ok := findCategory(r.cache.Load(), draft.Category); !ok {
		return nil, invalid("category", fmt.Sprintf("unknown category %q", draft.Category))
	}

	uploaded, err := r.upload(ctx, uploads)
	if err != nil {
		return nil, err
	}

	now := r.now()
	article := &Article{
		Title:     draft.Title,
		Summary:   draft.Summary,
		Content:   draft.Content,
		Date:      draft.Date,
		ReadTime:  draft.ReadTime,
		Category:  draft.Category,
		ImageURL:  draft.ImageURL,
		VideoURL:  draft.VideoURL,
		OwnerID:   principal.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for kind, url := range uploaded {
		article.setMediaURL(kind, url)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.cache.Load()
	if _, ok := findCategory(snap, article.Category); !ok {
		r.release(ctx, uploaded, "create aborted")
		return nil, invalid("category", fmt.Sprintf("unknown category %q", article.Category))
	}

	id, err := r.store.InsertArticle(ctx, article)
	if err != nil {
		r.release(ctx, uploaded, "create failed")
		return nil, r.storeError(ctx, "insert_article", err)
	}
	article.ID = id

	next := snap.with()
	next.Articles = append([]*Article{article}, snap.Articles...)
	r.cache.Store(next)

	if err := r.eventSink.ArticleCreated(ctx, article); err != nil {
		r.logger.WarnContext(ctx, "event sink failed", "event", "article_created", "article_id", id, "error", err)
	}
	return article.clone(), nil
}

func (r *repository) UpdateArticle(ctx context.Context, article Article, uploads Uploads) (*Article, error) {
	if _, err := r.principal(ctx); err != nil {
		return nil, err
	}
	if _, ok := findArticle(r.cache.Load(), article.ID); !ok {
		return nil, fmt.Errorf("article %s: %w", article.ID, ErrNotFound)
	}
	if err := validateArticleText(article.Title, article.Summary, article.Content, article.Category, article.Date, article.ReadTime); err != nil {
		return nil, err
	}
	if err := validateUploads(uploads, r.limits); err != nil {
		return nil, err
	}
	if _, ok := findCategory(r.cache.Load(), article.Category); !ok {
		return nil, invalid("category", fmt.Sprintf("unknown category %q", article.Category))
	}

	uploaded, err := r.upload(ctx, uploads)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.cache.Load()
	i, ok := findArticle(snap, article.ID)
	if !ok {
		r.release(ctx, uploaded, "update aborted")
		return nil, fmt.Errorf("article %s: %w", article.ID, ErrNotFound)
	}
	prev := snap.Articles[i]

	next := article.clone()
	for kind, url := range uploaded {
		next.setMediaURL(kind, url)
	}
	next.OwnerID = prev.OwnerID
	next.CreatedAt = prev.CreatedAt
	next.UpdatedAt = r.now()

	orphans := Orphans(prev, next, r.owns)

	if err := r.store.UpdateArticle(ctx, next); err != nil {
		r.release(ctx, uploaded, "update failed")
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("article %s: %w", article.ID, ErrNotFound)
		}
		return nil, r.storeError(ctx, "update_article", err)
	}

	updated := snap.with()
	updated.Articles = make([]*Article, len(snap.Articles))
	copy(updated.Articles, snap.Articles)
	updated.Articles[i] = next
	r.cache.Store(updated)

	r.removeOrphans(ctx, orphans)

	if err := r.eventSink.ArticleUpdated(ctx, next); err != nil {
		r.logger.WarnContext(ctx, "event sink failed", "event", "article_updated", "article_id", next.ID, "error", err)
	}
	return next.clone(), nil
}

func (r *repository) DeleteArticle(ctx context.Context, id uuid.UUID) error {
	if _, err := r.principal(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.cache.Load()
	i, ok := findArticle(snap, id)
	if !ok {
		return nil
	}
	deleted := snap.Articles[i]

	if err := r.store.DeleteArticle(ctx, id); err != nil {
		return r.storeError(ctx, "delete_article", err)
	}

	next := snap.with()
	next.Articles = make([]*Article, 0, len(snap.Articles)-1)
	next.Articles = append(next.Articles, snap.Articles[:i]...)
	next.Articles = append(next.Articles, snap.Articles[i+1:]...)
	r.cache.Store(next)

	r.removeOrphans(ctx, Released(deleted, r.owns))

	if err := r.eventSink.ArticleDeleted(ctx, id); err != nil {
		r.logger.WarnContext(ctx, "event sink failed", "event", "article_deleted", "article_id", id, "error", err)
	}
	return nil
}

// Category operations

func (r *repository) CreateCategory(ctx context.Context, draft CategoryDraft) (*Category, error) {
	principal, err := r.principal(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateCategory(draft.Name, draft.Icon); err != nil {
		return nil, err
	}
	id := CategoryID(draft.Name)

	if _, ok := findCategory(r.cache.Load(), id); ok {
		return nil, fmt.Errorf("category %q: %w", id, ErrCategoryExists)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another mutation may have taken the id while waiting for the lock.
	snap := r.cache.Load()
	if _, ok := findCategory(snap, id); ok {
		return nil, fmt.Errorf("category %q: %w", id, ErrCategoryExists)
	}

	category := &Category{
		ID:        id,
		Name:      draft.Name,
		Icon:      draft.Icon,
		OwnerID:   principal.ID,
		CreatedAt: r.now(),
	}
	if err := r.store.InsertCategory(ctx, category); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, fmt.Errorf("category %q: %w", id, ErrCategoryExists)
		}
		return nil, r.storeError(ctx, "insert_category", err)
	}

	next := snap.with()
	next.Categories = make([]*Category, 0, len(snap.Categories)+1)
	next.Categories = append(next.Categories, snap.Categories...)
	next.Categories = append(next.Categories, category)
	r.cache.Store(next)

	if err := r.eventSink.CategoryCreated(ctx, category); err != nil {
		r.logger.WarnContext(ctx, "event sink failed", "event", "category_created", "category_id", id, "error", err)
	}
	return category.clone(), nil
}

func (r *repository) UpdateCategory(ctx context.Context, category Category) (*Category, error) {
	if _, err := r.principal(ctx); err != nil {
		return nil, err
	}
	if err := validateCategory(category.Name, category.Icon); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.cache.Load()
	i, ok := findCategory(snap, category.ID)
	if !ok {
		return nil, fmt.Errorf("category %q: %w", category.ID, ErrNotFound)
	}
	prev := snap.Categories[i]

	// The id stays fixed on rename so article references remain valid.
	next := &Category{
		ID:        prev.ID,
		Name:      category.Name,
		Icon:      category.Icon,
		OwnerID:   prev.OwnerID,
		CreatedAt: prev.CreatedAt,
	}
	if err := r.store.UpdateCategory(ctx, next); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("category %q: %w", category.ID, ErrNotFound)
		}
		return nil, r.storeError(ctx, "update_category", err)
	}

	updated := snap.with()
	updated.Categories = make([]*Category, len(snap.Categories))
	copy(updated.Categories, snap.Categories)
	updated.Categories[i] = next
	r.cache.Store(updated)

	if err := r.eventSink.CategoryUpdated(ctx, next); err != nil {
		r.logger.WarnContext(ctx, "event sink failed", "event", "category_updated", "category_id", next.ID, "error", err)
	}
	return next.clone(), nil
}

func (r *repository) DeleteCategory(ctx context.Context, id string) error {
	if _, err := r.principal(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.cache.Load()
	if !CanDeleteCategory(snap.Articles, id) {
		return fmt.Errorf("category %q: %w", id, ErrCategoryInUse)
	}
	i, ok := findCategory(snap, id)
	if !ok {
		return nil
	}

	if err := r.store.DeleteCategory(ctx, id); err != nil {
		// A store enforcing the reference itself reports articles this
		// session has not seen.
		if errors.Is(err, ErrConflict) {
			return fmt.Errorf("category %q: %w", id, ErrCategoryInUse)
		}
		return r.storeError(ctx, "delete_category", err)
	}

	next := snap.with()
	next.Categories = make([]*Category, 0, len(snap.Categories)-1)
	next.Categories = append(next.Categories, snap.Categories[:i]...)
	next.Categories = append(next.Categories, snap.Categories[i+1:]...)
	r.cache.Store(next)

	if err := r.eventSink.CategoryDeleted(ctx, id); err != nil {
		r.logger.WarnContext(ctx, "event sink failed", "event", "category_deleted", "category_id", id, "error", err)
	}
	return nil
}

// Cached reads

func (r *repository) Snapshot() *Snapshot {
	return r.cache.Load()
}

func (r *repository) Articles() []*Article {
	snap := r.cache.Load()
	out := make([]*Article, len(snap.Articles))
	for i, a := range snap.Articles {
		out[i] = a.clone()
	}
	return out
}

func (r *repository) Article(id uuid.UUID) (*Article, error) {
	snap := r.cache.Load()
	i, ok := findArticle(snap, id)
	if !ok {
		return nil, fmt.Errorf("article %s: %w", id, ErrNotFound)
	}
	return snap.Articles[i].clone(), nil
}

func (r *repository) ArticlesByCategory(categoryID string) []*Article {
	out := []*Article{}
	for _, a := range r.cache.Load().Articles {
		if a.Category == categoryID {
			out = append(out, a.clone())
		}
	}
	return out
}

func (r *repository) Categories() []*Category {
	snap := r.cache.Load()
	out := make([]*Category, len(snap.Categories))
	for i, c := range snap.Categories {
		out[i] = c.clone()
	}
	return out
}

func (r *repository) Category(id string) (*Category, error) {
	snap := r.cache.Load()
	i, ok := findCategory(snap, id)
	if !ok {
		return nil, fmt.Errorf("category %q: %w", id, ErrNotFound)
	}
	return snap.Categories[i].clone(), nil
}

func (r *repository) Close(ctx context.Context) error {
	if r.ownScheduler != nil {
		return r.ownScheduler.Close(ctx)
	}
	return nil
}

// Helper methods

func (r *repository) principal(ctx context.Context) (Principal, error) {
	if r.identity == nil {
		return Principal{}, ErrUnauthorized
	}
	p, ok := r.identity.CurrentPrincipal(ctx)
	if !ok || p.ID == "" {
		return Principal{}, ErrUnauthorized
	}
	return p, nil
}

func (r *repository) owns(url string) bool {
	return r.media != nil && r.media.Owns(url)
}

func (r *repository) storeError(ctx context.Context, op string, err error) error {
	r.metrics.RecordStoreError(op)
	r.logger.ErrorContext(ctx, "store operation failed", "op", op, "error", err)
	return &StoreError{Op: op, Err: err}
}

// upload moves every attached file to the media store, image first. The
// combined progress is apportioned across the files and ends at exactly 100
// on success. On failure the files already stored are released.
func (r *repository) upload(ctx context.Context, uploads Uploads) (map[MediaKind]string, error) {
	uploaded := make(map[MediaKind]string)
	if uploads.empty() {
		return uploaded, nil
	}

	var pending []MediaKind
	for _, kind := range mediaKinds {
		if uploads.file(kind) != nil {
			pending = append(pending, kind)
		}
	}

	observer := uploads.Progress
	phased := progress.NewPhased(len(pending), func(p float64) {
		if observer != nil {
			observer.Progress(p)
		}
	})

	for i, kind := range pending {
		file := uploads.file(kind)
		url, err := r.uploadOne(ctx, file, kind, phased.Phase(i))
		r.metrics.RecordUpload(string(kind), file.Size, err)
		if err != nil {
			r.logger.ErrorContext(ctx, "media upload failed", "kind", kind, "file", file.Name, "error", err)
			r.release(ctx, uploaded, "upload failed")
			if observer != nil {
				observer.Complete(err)
			}
			return nil, err
		}
		uploaded[kind] = url
	}

	phased.Finish()
	if observer != nil {
		observer.Complete(nil)
	}
	return uploaded, nil
}

func (r *repository) uploadOne(ctx context.Context, file *File, kind MediaKind, report func(float64)) (string, error) {
	if r.media == nil {
		return "", &UploadError{Kind: kind, Err: ErrNoMediaStore}
	}

	ctx, cancel := context.WithTimeout(ctx, r.uploadTimeout)
	defer cancel()
	ctx, watchdog := progress.Watch(ctx, r.uploadStallTimeout)
	defer watchdog.Stop()

	watched := *file
	// The stall deadline covers the transfer only; the total timeout bounds
	// the wait for the remote response.
	watched.Reader = progress.NewReader(file.Reader, 0, nil).OnRead(watchdog.Touch).OnEOF(watchdog.Pause)

	url, err := r.media.Upload(ctx, &watched, kind, report)
	if err == nil && url == "" {
		err = errors.New("media store returned no url")
	}
	if err != nil {
		if errors.Is(context.Cause(ctx), progress.ErrStalled) {
			err = fmt.Errorf("%w: %v", progress.ErrStalled, err)
		}
		var uerr *UploadError
		if errors.As(err, &uerr) {
			uerr.Kind = kind
			return "", uerr
		}
		return "", &UploadError{Kind: kind, Err: err}
	}
	return url, nil
}

// release queues removal of freshly uploaded objects whose record was never
// written.
func (r *repository) release(ctx context.Context, uploaded map[MediaKind]string, reason string) {
	var orphans []OrphanedMedia
	for _, kind := range mediaKinds {
		if url, ok := uploaded[kind]; ok {
			orphans = append(orphans, OrphanedMedia{Kind: kind, URL: url})
		}
	}
	if len(orphans) > 0 {
		r.logger.InfoContext(ctx, "releasing uploaded media", "reason", reason, "count", len(orphans))
		r.removeOrphans(ctx, orphans)
	}
}

// removeOrphans queues deletion of every orphan on the scheduler. Failures
// are logged by the task and never reach the caller.
func (r *repository) removeOrphans(ctx context.Context, orphans []OrphanedMedia) {
	if r.media == nil {
		return
	}
	for _, o := range orphans {
		if err := r.eventSink.MediaOrphaned(ctx, o.URL); err != nil {
			r.logger.WarnContext(ctx, "event sink failed", "event", "media_orphaned", "url", o.URL, "error", err)
		}

		objectID := r.media.DerivedID(o.URL)
		if objectID == "" {
			r.logger.WarnContext(ctx, "cannot derive object id from media url", "kind", o.Kind, "url", o.URL)
			continue
		}

		kind := o.Kind
		r.scheduler.Submit("remove "+string(kind)+" "+objectID, func(ctx context.Context) error {
			err := r.media.Remove(ctx, objectID)
			r.metrics.RecordOrphanRemoval(err)
			if err != nil {
				r.logger.WarnContext(ctx, "media removal failed", "kind", kind, "object_id", objectID, "error", err)
				if errors.Is(err, ErrRemoveUnsupported) {
					return cleanup.Permanent(err)
				}
				return err
			}
			r.logger.InfoContext(ctx, "media removed", "kind", kind, "object_id", objectID)
			return nil
		})
	}
}

// Snapshot helpers

// with returns a shallow copy of s that shares the unchanged collection.
func (s *Snapshot) with() *Snapshot {
	c := *s
	return &c
}

func findArticle(s *Snapshot, id uuid.UUID) (int, bool) {
	for i, a := range s.Articles {
		if a.ID == id {
			return i, true
		}
	}
	return -1, false
}

func findCategory(s *Snapshot, id string) (int, bool) {
	for i, c := range s.Categories {
		if c.ID == id {
			return i, true
		}
	}
	return -1, false
}
