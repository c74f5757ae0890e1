// Package objectkey generates object keys for media stores that address
// objects by path. Keys never carry a file extension so that the key can be
// recovered from a public URL after its extension was stripped.
package objectkey

import (
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Generator defines the interface for object key generation strategies
type Generator interface {
	// GenerateKey creates an object key for a media file of the given kind
	GenerateKey(kind string, objectID uuid.UUID, fileName string) string
}

// FlatGenerator places every object directly under its kind:
// {folder}/{kind}/{objectID}
type FlatGenerator struct {
	Folder string
}

func NewFlatGenerator(folder string) *FlatGenerator {
	return &FlatGenerator{Folder: strings.Trim(folder, "/")}
}

func (g *FlatGenerator) GenerateKey(kind string, objectID uuid.UUID, fileName string) string {
	key := fmt.Sprintf("%s/%s", sanitizePathComponent(kind), objectID)
	if g.Folder != "" {
		key = g.Folder + "/" + key
	}
	return key
}

// GitLikeGenerator provides Git-style sharded storage per media kind
// {folder}/{kind}/objects/ab/cd1234ef5678_filename
type GitLikeGenerator struct {
	Folder string
	// ShardLength controls how many characters to use for sharding (default: 2)
	ShardLength int
}

func NewGitLikeGenerator(folder string) *GitLikeGenerator {
	return &GitLikeGenerator{
		Folder:      strings.Trim(folder, "/"),
		ShardLength: 2,
	}
}

func (g *GitLikeGenerator) GenerateKey(kind string, objectID uuid.UUID, fileName string) string {
	objectIDStr := strings.ReplaceAll(objectID.String(), "-", "")

	shardLength := g.ShardLength
	if shardLength <= 0 || shardLength > len(objectIDStr) {
		shardLength = 2
	}
	shardDir := objectIDStr[:shardLength]
	remaining := objectIDStr[shardLength:]

	filename := remaining
	if base := baseName(fileName); base != "" {
		filename = fmt.Sprintf("%s_%s", remaining, base)
	}

	key := fmt.Sprintf("%s/objects/%s/%s", sanitizePathComponent(kind), shardDir, filename)
	if g.Folder != "" {
		key = g.Folder + "/" + key
	}
	return key
}

// Generator names accepted by NewGenerator.
const (
	GitLike = "git-like"
	Flat    = "flat"
)

// NewGenerator returns the generator registered under name. An empty name
// selects the recommended one.
func NewGenerator(name, folder string) (Generator, error) {
	switch name {
	case "", GitLike:
		return NewGitLikeGenerator(folder), nil
	case Flat:
		return NewFlatGenerator(folder), nil
	}
	return nil, fmt.Errorf("unknown object key generator %q (use %q or %q)", name, GitLike, Flat)
}

// NewRecommendedGenerator returns the recommended generator for new installations
func NewRecommendedGenerator(folder string) Generator {
	return NewGitLikeGenerator(folder)
}

// baseName returns the sanitized file name without directory or extension.
func baseName(fileName string) string {
	name := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	name = strings.TrimSuffix(name, path.Ext(name))
	return sanitizeFilename(name)
}

func sanitizeFilename(filename string) string {
	// Dots are replaced as well; a dot would be mistaken for an extension.
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "_",
		".", "_",
		"#", "_",
		"%", "_",
		"[", "_",
		"]", "_",
		"{", "_",
		"}", "_",
	)
	return replacer.Replace(filename)
}

func sanitizePathComponent(component string) string {
	return strings.ToLower(sanitizeFilename(component))
}
