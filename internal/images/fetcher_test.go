package images

import (
	"context"
	"image"
	"image/color"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{R: 200, G: 180, B: 40, A: 255})
	require.NoError(t, imaging.Save(img, path))
}

func TestResolveLocal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "front.png")
	writePNG(t, path, 40, 60)

	local, err := NewResolver(0).Resolve(context.Background(), path)
	require.NoError(t, err)
	defer local.Cleanup()

	assert.Equal(t, path, local.Path)
	assert.Equal(t, 40, local.Width)
	assert.Equal(t, 60, local.Height)
}

func TestResolveMissingLocal(t *testing.T) {
	_, err := NewResolver(0).Resolve(context.Background(), filepath.Join(t.TempDir(), "missing.jpg"))
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestResolveDirectory(t *testing.T) {
	_, err := NewResolver(0).Resolve(context.Background(), t.TempDir())
	assert.ErrorContains(t, err, "is a directory")
}

func TestResolveDownscales(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "spine.png")
	writePNG(t, path, 400, 100)

	r := NewResolver(100)
	r.TempDir = dir
	local, err := r.Resolve(context.Background(), path)
	require.NoError(t, err)

	assert.NotEqual(t, path, local.Path)
	w, h, err := Dimensions(local.Path)
	require.NoError(t, err)
	assert.Equal(t, 100, w)
	assert.Equal(t, 25, h)

	scaled := local.Path
	local.Cleanup()
	_, err = os.Stat(scaled)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(path)
	assert.NoError(t, err, "caller's file must survive cleanup")
}

func TestResolveRemote(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.png")
	writePNG(t, src, 10, 10)
	data, err := os.ReadFile(src)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	r := NewResolver(0)
	r.TempDir = dir

	local, err := r.Resolve(context.Background(), srv.URL+"/covers/front.png")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(local.Path, ".png"))
	assert.Equal(t, 10, local.Width)

	downloaded := local.Path
	local.Cleanup()
	_, err = os.Stat(downloaded)
	assert.True(t, os.IsNotExist(err))

	_, err = r.Resolve(context.Background(), srv.URL+"/missing.png")
	assert.ErrorContains(t, err, "status 404")
}

func TestResolveRemoteTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chunk := make([]byte, 1<<20)
		for range 11 {
			_, _ = w.Write(chunk)
		}
	}))
	defer srv.Close()

	r := NewResolver(0)
	r.TempDir = t.TempDir()
	_, err := r.Resolve(context.Background(), srv.URL+"/huge.jpg")
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestIsRemote(t *testing.T) {
	assert.True(t, IsRemote("https://example.org/a.jpg"))
	assert.True(t, IsRemote("http://example.org/a.jpg"))
	assert.False(t, IsRemote("/tmp/a.jpg"))
	assert.False(t, IsRemote("ftp://example.org/a.jpg"))
}

func TestDimensionsRejectsNonImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))
	_, _, err := Dimensions(path)
	assert.ErrorIs(t, err, image.ErrFormat)
}
