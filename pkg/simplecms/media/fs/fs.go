// Package fs stores media on the local filesystem and serves it under a
// URL prefix. Intended for development and single-host deployments.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/tendant/simple-cms/pkg/simplecms"
	"github.com/tendant/simple-cms/pkg/simplecms/media/objectkey"
	"github.com/tendant/simple-cms/pkg/simplecms/progress"
)

// Config options for the filesystem backend
type Config struct {
	BaseDir   string // Base directory for storing files
	URLPrefix string // Public URL prefix the files are served under
	Generator objectkey.Generator
}

// Store is a filesystem implementation of simplecms.MediaStore
type Store struct {
	baseDir   string
	urlPrefix string
	keys      objectkey.Generator
}

// New creates a new filesystem media store
func New(config Config) (*Store, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}
	if config.URLPrefix == "" {
		return nil, errors.New("url prefix is required")
	}
	if err := os.MkdirAll(config.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	if config.Generator == nil {
		config.Generator = objectkey.NewRecommendedGenerator("")
	}

	return &Store{
		baseDir:   filepath.Clean(config.BaseDir),
		urlPrefix: strings.TrimSuffix(config.URLPrefix, "/") + "/",
		keys:      config.Generator,
	}, nil
}

// Upload writes the file below the base directory
func (s *Store) Upload(ctx context.Context, file *simplecms.File, kind simplecms.MediaKind, report simplecms.ProgressFunc) (string, error) {
	key := s.keys.GenerateKey(string(kind), uuid.New(), file.Name)
	name := key + strings.ToLower(path.Ext(file.Name))
	filePath := filepath.Join(s.baseDir, filepath.FromSlash(name))

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return "", &simplecms.UploadError{Kind: kind, Err: fmt.Errorf("failed to create directory: %w", err)}
	}

	out, err := os.Create(filePath)
	if err != nil {
		return "", &simplecms.UploadError{Kind: kind, Err: fmt.Errorf("failed to create file: %w", err)}
	}

	reader := progress.NewReader(file.Reader, file.Size, report)
	_, err = io.Copy(out, &contextReader{ctx: ctx, r: reader})
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(filePath)
		return "", &simplecms.UploadError{Kind: kind, Err: fmt.Errorf("failed to write file: %w", err)}
	}
	if report != nil {
		report(100)
	}

	return s.urlPrefix + name, nil
}

// Remove deletes the file stored under objectID, whatever its extension
func (s *Store) Remove(ctx context.Context, objectID string) error {
	base, err := s.resolve(objectID)
	if err != nil {
		return err
	}

	matches, err := s.objectFiles(base)
	if err != nil {
		return fmt.Errorf("failed to look up object: %w", err)
	}
	if len(matches) == 0 {
		return fmt.Errorf("object %s: %w", objectID, simplecms.ErrNotFound)
	}

	for _, m := range matches {
		if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete file: %w", err)
		}
	}
	s.cleanupEmptyDirectories(filepath.Dir(base))
	return nil
}

// DerivedID strips the URL prefix and the file extension
func (s *Store) DerivedID(url string) string {
	if !s.Owns(url) {
		return ""
	}
	name := strings.TrimPrefix(url, s.urlPrefix)
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	return strings.TrimSuffix(name, path.Ext(name))
}

// Owns reports whether url lies below the URL prefix
func (s *Store) Owns(url string) bool {
	return strings.HasPrefix(url, s.urlPrefix) && len(url) > len(s.urlPrefix)
}

// Handler serves the stored files. Mount it at the path of the URL prefix.
func (s *Store) Handler() http.Handler {
	return http.FileServer(http.Dir(s.baseDir))
}

// resolve maps an object id to a path inside the base directory.
func (s *Store) resolve(objectID string) (string, error) {
	if objectID == "" {
		return "", errors.New("object id is required")
	}
	p := filepath.Join(s.baseDir, filepath.FromSlash(objectID))
	rel, err := filepath.Rel(s.baseDir, p)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("object id %q escapes the base directory", objectID)
	}
	return p, nil
}

// objectFiles lists the files stored under base, with or without an
// extension. Names are compared literally; object ids come from URLs and
// must never be read as patterns.
func (s *Store) objectFiles(base string) ([]string, error) {
	dir, name := filepath.Split(base)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var matches []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		n := e.Name()
		if n == name || strings.TrimSuffix(n, filepath.Ext(n)) == name {
			matches = append(matches, filepath.Join(dir, n))
		}
	}
	return matches, nil
}

// cleanupEmptyDirectories recursively removes empty directories up to baseDir
func (s *Store) cleanupEmptyDirectories(dir string) {
	if dir == s.baseDir || !strings.HasPrefix(dir, s.baseDir) {
		return
	}
	if entries, err := os.ReadDir(dir); err == nil && len(entries) == 0 {
		if os.Remove(dir) == nil {
			s.cleanupEmptyDirectories(filepath.Dir(dir))
		}
	}
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
