package simplecms

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrphans(t *testing.T) {
	owns := func(url string) bool { return strings.HasPrefix(url, "https://cdn.example/") }
	hosted := func(name string) string { return "https://cdn.example/" + name }

	tests := []struct {
		name string
		prev *Article
		next *Article
		want []OrphanedMedia
	}{
		{
			name: "no previous record",
			prev: nil,
			next: &Article{ImageURL: hosted("a")},
		},
		{
			name: "unchanged slots",
			prev: &Article{ImageURL: hosted("a"), VideoURL: hosted("v")},
			next: &Article{ImageURL: hosted("a"), VideoURL: hosted("v")},
		},
		{
			name: "image replaced",
			prev: &Article{ImageURL: hosted("a"), VideoURL: hosted("v")},
			next: &Article{ImageURL: hosted("b"), VideoURL: hosted("v")},
			want: []OrphanedMedia{{Kind: MediaKindImage, URL: hosted("a")}},
		},
		{
			name: "video cleared",
			prev: &Article{VideoURL: hosted("v")},
			next: &Article{},
			want: []OrphanedMedia{{Kind: MediaKindVideo, URL: hosted("v")}},
		},
		{
			name: "external url is never orphaned",
			prev: &Article{ImageURL: "https://images.unsplash.com/x"},
			next: &Article{ImageURL: hosted("b")},
		},
		{
			name: "both slots replaced",
			prev: &Article{ImageURL: hosted("a"), VideoURL: hosted("v")},
			next: &Article{ImageURL: hosted("b"), VideoURL: "https://videos.example/w"},
			want: []OrphanedMedia{
				{Kind: MediaKindImage, URL: hosted("a")},
				{Kind: MediaKindVideo, URL: hosted("v")},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Orphans(tt.prev, tt.next, owns))
		})
	}
}

func TestReleased(t *testing.T) {
	owns := func(url string) bool { return strings.HasPrefix(url, "https://cdn.example/") }
	deleted := &Article{ImageURL: "https://cdn.example/i", VideoURL: "https://elsewhere/v"}

	assert.Equal(t, []OrphanedMedia{{Kind: MediaKindImage, URL: "https://cdn.example/i"}}, Released(deleted, owns))
	assert.Nil(t, Released(&Article{}, owns))
}

func TestCanDeleteCategory(t *testing.T) {
	articles := []*Article{{Category: "innovation"}, {Category: "project"}}

	assert.False(t, CanDeleteCategory(articles, "innovation"))
	assert.True(t, CanDeleteCategory(articles, "update"))
	assert.True(t, CanDeleteCategory(nil, "innovation"))
}
