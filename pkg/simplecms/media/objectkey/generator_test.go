package objectkey

import (
	"path"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestFlatGenerator(t *testing.T) {
	objectID := uuid.MustParse("987fcdeb-51a2-43d1-9f12-345678901234")

	assert.Equal(t, "image/987fcdeb-51a2-43d1-9f12-345678901234", NewFlatGenerator("").GenerateKey("image", objectID, "a.png"))
	assert.Equal(t, "blog/video/987fcdeb-51a2-43d1-9f12-345678901234", NewFlatGenerator("/blog/").GenerateKey("video", objectID, ""))
}

func TestGitLikeGenerator(t *testing.T) {
	objectID := uuid.MustParse("987fcdeb-51a2-43d1-9f12-345678901234")

	tests := []struct {
		name     string
		folder   string
		kind     string
		fileName string
		expected string
	}{
		{
			name:     "without filename",
			kind:     "image",
			expected: "image/objects/98/7fcdeb51a243d19f12345678901234",
		},
		{
			name:     "filename loses its extension",
			kind:     "image",
			fileName: "cover.png",
			expected: "image/objects/98/7fcdeb51a243d19f12345678901234_cover",
		},
		{
			name:     "dots and spaces are sanitized",
			folder:   "blog",
			kind:     "video",
			fileName: "my trip.final.mp4",
			expected: "blog/video/objects/98/7fcdeb51a243d19f12345678901234_my_trip_final",
		},
		{
			name:     "pattern characters are sanitized",
			kind:     "image",
			fileName: "photo[1]{a}*?.png",
			expected: "image/objects/98/7fcdeb51a243d19f12345678901234_photo_1__a___",
		},
		{
			name:     "directories are dropped",
			kind:     "image",
			fileName: `C:\Users\me\photo.jpg`,
			expected: "image/objects/98/7fcdeb51a243d19f12345678901234_photo",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := NewGitLikeGenerator(tt.folder).GenerateKey(tt.kind, objectID, tt.fileName)
			assert.Equal(t, tt.expected, key)
			assert.Empty(t, path.Ext(key))
		})
	}
}

func TestGitLikeGeneratorShardLength(t *testing.T) {
	gen := &GitLikeGenerator{ShardLength: 3}
	key := gen.GenerateKey("image", uuid.MustParse("987fcdeb-51a2-43d1-9f12-345678901234"), "")
	assert.True(t, strings.HasPrefix(key, "image/objects/987/"))

	gen = &GitLikeGenerator{ShardLength: 99}
	key = gen.GenerateKey("image", uuid.MustParse("987fcdeb-51a2-43d1-9f12-345678901234"), "")
	assert.True(t, strings.HasPrefix(key, "image/objects/98/"))
}

func TestNewGenerator(t *testing.T) {
	tests := []struct {
		name    string
		want    Generator
		wantErr bool
	}{
		{"", &GitLikeGenerator{Folder: "blog", ShardLength: 2}, false},
		{GitLike, &GitLikeGenerator{Folder: "blog", ShardLength: 2}, false},
		{Flat, &FlatGenerator{Folder: "blog"}, false},
		{"tenant-aware", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen, err := NewGenerator(tt.name, "blog")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, gen)
		})
	}
}
