package cloud

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-cms/pkg/simplecms"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, options ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{
		CloudName:    "demo",
		UploadPreset: "blog_uploads",
		APIBase:      srv.URL,
	}, append([]Option{WithHTTPClient(srv.Client())}, options...)...)
	require.NoError(t, err)
	c.now = func() time.Time { return time.Unix(1700000000, 0) }
	return c
}

func TestNewValidation(t *testing.T) {
	_, err := New(Config{UploadPreset: "p"})
	assert.Error(t, err)
	_, err = New(Config{CloudName: "demo"})
	assert.Error(t, err)

	c, err := New(Config{CloudName: "demo", UploadPreset: "p", APIKey: "k", APISecret: "s"})
	require.NoError(t, err)
	assert.NotNil(t, c.signer)
}

func TestUpload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/demo/auto/upload", r.URL.Path)
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		assert.Equal(t, "blog_uploads", r.FormValue("upload_preset"))

		f, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "cover.jpg", hdr.Filename)
		assert.Equal(t, "jpegdata", string(data))

		_ = json.NewEncoder(w).Encode(map[string]string{
			"secure_url":    "https://res.cloudinary.com/demo/image/upload/v1700/abc123.jpg",
			"public_id":     "abc123",
			"resource_type": "image",
		})
	})

	var mu sync.Mutex
	var reports []float64
	got, err := c.Upload(context.Background(), &simplecms.File{
		Name:   "cover.jpg",
		Size:   8,
		Reader: strings.NewReader("jpegdata"),
	}, simplecms.MediaKindImage, func(p float64) {
		mu.Lock()
		reports = append(reports, p)
		mu.Unlock()
	})
	require.NoError(t, err)
	assert.Equal(t, "https://res.cloudinary.com/demo/image/upload/v1700/abc123.jpg", got)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, reports)
	assert.Equal(t, 100.0, reports[len(reports)-1])
}

func TestUploadRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Upload preset not found"}}`))
	})

	_, err := c.Upload(context.Background(), &simplecms.File{Name: "a.mp4", Reader: strings.NewReader("v")}, simplecms.MediaKindVideo, nil)

	var uerr *simplecms.UploadError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, simplecms.MediaKindVideo, uerr.Kind)
	assert.Contains(t, err.Error(), "Upload preset not found")
}

func TestUploadMissingURL(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		_, _ = w.Write([]byte(`{"public_id":"x"}`))
	})

	url, err := c.Upload(context.Background(), &simplecms.File{Reader: strings.NewReader("v")}, simplecms.MediaKindImage, nil)
	assert.ErrorIs(t, err, simplecms.ErrUploadFailed)
	assert.Empty(t, url)
}

func TestRemoveWithoutSigner(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	assert.ErrorIs(t, c.Remove(context.Background(), "abc"), simplecms.ErrRemoveUnsupported)
}

func TestRemoveSigned(t *testing.T) {
	var paths []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		paths = append(paths, r.URL.Path)

		assert.Equal(t, "blog/cat", r.PostForm.Get("public_id"))
		assert.Equal(t, "key", r.PostForm.Get("api_key"))
		want := SecretSigner{Key: "key", Secret: "secret"}.Sign(url.Values{
			"public_id": {"blog/cat"},
			"timestamp": {"1700000000"},
		})
		assert.Equal(t, want, r.PostForm.Get("signature"))

		if strings.Contains(r.URL.Path, "/image/") {
			_, _ = w.Write([]byte(`{"result":"not found"}`))
			return
		}
		_, _ = w.Write([]byte(`{"result":"ok"}`))
	}, WithSigner(SecretSigner{Key: "key", Secret: "secret"}))

	require.NoError(t, c.Remove(context.Background(), "blog/cat"))
	assert.Equal(t, []string{"/demo/image/destroy", "/demo/video/destroy"}, paths)
}

func TestRemoveNotFoundAnywhere(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":"not found"}`))
	}, WithSigner(SecretSigner{Key: "key", Secret: "secret"}))

	assert.ErrorIs(t, c.Remove(context.Background(), "gone"), simplecms.ErrNotFound)
}

func TestRemoveUnauthorized(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid Signature"}}`))
	}, WithSigner(SecretSigner{Key: "key", Secret: "wrong"}))

	assert.ErrorIs(t, c.Remove(context.Background(), "x"), simplecms.ErrRemoveUnsupported)
}

func TestSecretSignerKnownValue(t *testing.T) {
	// sha1("public_id=sample&timestamp=1315060510abcd")
	s := SecretSigner{Key: "1234", Secret: "abcd"}
	got := s.Sign(url.Values{"timestamp": {"1315060510"}, "public_id": {"sample"}})
	assert.Equal(t, "c3470533147774275dd37996cc4d0e68fd03cd4f", got)
}

func TestDerivedID(t *testing.T) {
	c, err := New(Config{CloudName: "demo", UploadPreset: "p"})
	require.NoError(t, err)

	tests := []struct {
		url  string
		want string
	}{
		{"https://res.cloudinary.com/demo/image/upload/v1234567890/folder/public-id.jpg", "folder/public-id"},
		{"https://res.cloudinary.com/demo/video/upload/clip.mp4", "clip"},
		{"https://res.cloudinary.com/demo/image/upload/v12/my.photo.final.png", "my.photo.final"},
		{"https://res.cloudinary.com/demo/image/upload/v12", "v12"},
		{"https://res.cloudinary.com/demo/image/upload/", ""},
		{"https://res.cloudinary.com/demo/image/fetch/x.jpg", ""},
		{"https://res.cloudinary.com/other/image/upload/x.jpg", ""},
		{"https://images.unsplash.com/photo-1677442136019", ""},
		{"not a url", ""},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, c.DerivedID(tt.url))
		})
	}
}

func TestTransformer(t *testing.T) {
	tr := NewTransformer()
	src := "https://res.cloudinary.com/demo/image/upload/v1/cat.jpg"

	assert.Equal(t, "https://res.cloudinary.com/demo/image/upload/w_800,q_auto,f_auto/v1/cat.jpg", tr.ImageURL(src, 0))
	assert.Equal(t, "https://res.cloudinary.com/demo/image/upload/w_400,q_auto,f_auto/v1/cat.jpg", tr.ImageURL(src, 400))
	assert.Equal(t, tr.ImageURL(src, 400), tr.ImageURL(src, 400))
	assert.Equal(t, "https://res.cloudinary.com/demo/video/upload/q_auto/clip.mp4", tr.VideoURL("https://res.cloudinary.com/demo/video/upload/clip.mp4"))

	assert.Equal(t, "https://images.unsplash.com/x", tr.ImageURL("https://images.unsplash.com/x", 400))
	assert.Equal(t, "", tr.VideoURL(""))
}
