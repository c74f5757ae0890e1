package cloud

import (
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultImageWidth is the width used by OptimizedImageURL when none is given.
const DefaultImageWidth = 800

const transformCacheSize = 1024

// Transformer rewrites delivery URLs to request optimized renditions.
// Rewritten URLs are memoised.
type Transformer struct {
	images *lru.Cache[string, string]
	videos *lru.Cache[string, string]
}

// NewTransformer creates a transformer with bounded caches.
func NewTransformer() *Transformer {
	images, _ := lru.New[string, string](transformCacheSize)
	videos, _ := lru.New[string, string](transformCacheSize)
	return &Transformer{images: images, videos: videos}
}

// ImageURL inserts a width, automatic quality and automatic format
// transformation. URLs of other hosts are returned unchanged.
func (t *Transformer) ImageURL(url string, width int) string {
	if !isDelivery(url) {
		return url
	}
	if width <= 0 {
		width = DefaultImageWidth
	}
	key := fmt.Sprintf("%s_%d", url, width)
	if cached, ok := t.images.Get(key); ok {
		return cached
	}
	optimized := strings.Replace(url, "/upload/", fmt.Sprintf("/upload/w_%d,q_auto,f_auto/", width), 1)
	t.images.Add(key, optimized)
	return optimized
}

// VideoURL inserts an automatic quality transformation.
func (t *Transformer) VideoURL(url string) string {
	if !isDelivery(url) {
		return url
	}
	if cached, ok := t.videos.Get(url); ok {
		return cached
	}
	optimized := strings.Replace(url, "/upload/", "/upload/q_auto/", 1)
	t.videos.Add(url, optimized)
	return optimized
}

func isDelivery(url string) bool {
	return url != "" && strings.Contains(url, "cloudinary.com") && strings.Contains(url, "/upload/")
}
