// Package memory provides an in-memory MediaStore for tests and
// single-process development setups.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/tendant/simple-cms/pkg/simplecms"
	"github.com/tendant/simple-cms/pkg/simplecms/progress"
)

// DefaultBaseURL prefixes every URL issued by the store.
const DefaultBaseURL = "memory://media/"

// Object is a stored payload.
type Object struct {
	Kind        simplecms.MediaKind
	ContentType string
	Data        []byte
}

// Store implements simplecms.MediaStore in memory
type Store struct {
	mu      sync.RWMutex
	baseURL string
	objects map[string]*Object
	removed []string

	// UploadErr, when set, fails every upload
	UploadErr error
	// RemoveErr, when set, fails every removal
	RemoveErr error
}

// New creates a new in-memory media store. An empty baseURL uses
// DefaultBaseURL.
func New(baseURL string) *Store {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Store{
		baseURL: baseURL,
		objects: make(map[string]*Object),
	}
}

func (s *Store) Upload(ctx context.Context, file *simplecms.File, kind simplecms.MediaKind, report simplecms.ProgressFunc) (string, error) {
	if s.UploadErr != nil {
		return "", &simplecms.UploadError{Kind: kind, Err: s.UploadErr}
	}

	r := progress.NewReader(file.Reader, file.Size, report)
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, &contextReader{ctx: ctx, r: r}); err != nil {
		return "", &simplecms.UploadError{Kind: kind, Err: err}
	}
	if report != nil {
		report(100)
	}

	objectID := path.Join(string(kind), uuid.NewString())
	s.mu.Lock()
	s.objects[objectID] = &Object{Kind: kind, ContentType: file.ContentType, Data: buf.Bytes()}
	s.mu.Unlock()

	return s.baseURL + objectID + path.Ext(file.Name), nil
}

func (s *Store) Remove(ctx context.Context, objectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removed = append(s.removed, objectID)
	if s.RemoveErr != nil {
		return s.RemoveErr
	}
	if _, ok := s.objects[objectID]; !ok {
		return fmt.Errorf("object %s: %w", objectID, simplecms.ErrNotFound)
	}
	delete(s.objects, objectID)
	return nil
}

func (s *Store) DerivedID(url string) string {
	if !s.Owns(url) {
		return ""
	}
	id := strings.TrimPrefix(url, s.baseURL)
	return strings.TrimSuffix(id, path.Ext(id))
}

func (s *Store) Owns(url string) bool {
	return strings.HasPrefix(url, s.baseURL) && len(url) > len(s.baseURL)
}

// Object returns the stored object by id
func (s *Store) Object(objectID string) (*Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.objects[objectID]
	return o, ok
}

// Len returns the number of stored objects
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// Removed returns the object ids passed to Remove, in call order
func (s *Store) Removed() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.removed...)
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

var _ simplecms.MediaStore = (*Store)(nil)
