// Package images turns cover image references into local files the OCR
// runtime can read.
package images

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	// register WebP so phone exports decode
	_ "golang.org/x/image/webp"
)

// MaxDownloadBytes caps a single remote image.
const MaxDownloadBytes = 10 << 20

// ErrTooLarge is returned when a remote image exceeds MaxDownloadBytes.
var ErrTooLarge = errors.New("image exceeds download limit")

// Resolver fetches remote references and optionally downscales images.
type Resolver struct {
	HTTPClient *http.Client
	// MaxDimension bounds the longest side; 0 keeps images untouched.
	MaxDimension int
	TempDir      string
}

// NewResolver creates a resolver with a 30s download timeout.
func NewResolver(maxDimension int) *Resolver {
	return &Resolver{
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		MaxDimension: maxDimension,
	}
}

// Local is a resolved image on disk.
type Local struct {
	Path   string
	Ref    string
	Width  int
	Height int
	temps  []string
}

// Cleanup removes temp files created while resolving.
func (l *Local) Cleanup() {
	for _, p := range l.temps {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			slog.Warn("Failed to remove temp image", "path", p, "error", err)
		}
	}
	l.temps = nil
}

// IsRemote reports whether ref is an http(s) URL.
func IsRemote(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// Resolve returns a local path for ref. The caller must call Cleanup.
func (r *Resolver) Resolve(ctx context.Context, ref string) (*Local, error) {
	local := &Local{Ref: ref}

	if IsRemote(ref) {
		path, err := r.download(ctx, ref)
		if err != nil {
			return nil, err
		}
		local.Path = path
		local.temps = append(local.temps, path)
	} else {
		info, err := os.Stat(ref)
		if err != nil {
			return nil, fmt.Errorf("failed to open image %s: %w", ref, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("image path %s is a directory", ref)
		}
		local.Path = ref
	}

	width, height, err := Dimensions(local.Path)
	if err != nil {
		slog.Warn("Failed to get image dimensions", "path", local.Path, "error", err)
		return local, nil
	}
	local.Width, local.Height = width, height

	if r.MaxDimension > 0 && (width > r.MaxDimension || height > r.MaxDimension) {
		scaled, err := r.downscale(local.Path)
		if err != nil {
			slog.Warn("Failed to downscale image, using original", "path", local.Path, "error", err)
			return local, nil
		}
		local.Path = scaled
		local.temps = append(local.temps, scaled)
		slog.Debug("Downscaled image", "ref", ref, "width", width, "height", height, "max", r.MaxDimension)
	}
	return local, nil
}

func (r *Resolver) download(ctx context.Context, ref string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create image request: %w", err)
	}
	resp, err := r.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image URL returned status %d", resp.StatusCode)
	}
	if resp.ContentLength > MaxDownloadBytes {
		return "", ErrTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxDownloadBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read image data: %w", err)
	}
	if len(data) > MaxDownloadBytes {
		return "", ErrTooLarge
	}

	f, err := os.CreateTemp(r.TempDir, "cover-*"+extensionFor(ref))
	if err != nil {
		return "", fmt.Errorf("failed to create temp image: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write temp image: %w", err)
	}

	slog.Debug("Downloaded image", "url", ref, "bytes", len(data), "path", f.Name())
	return f.Name(), nil
}

func (r *Resolver) downscale(path string) (string, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}
	fitted := imaging.Fit(img, r.MaxDimension, r.MaxDimension, imaging.Lanczos)

	f, err := os.CreateTemp(r.TempDir, "cover-scaled-*.jpg")
	if err != nil {
		return "", fmt.Errorf("failed to create temp image: %w", err)
	}
	defer f.Close()
	if err := imaging.Encode(f, fitted, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to encode image: %w", err)
	}
	return f.Name(), nil
}

// Dimensions reads the image header only.
func Dimensions(path string) (int, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer file.Close()

	cfg, _, err := image.DecodeConfig(file)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}

func extensionFor(ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ".img"
	}
	switch ext := strings.ToLower(filepath.Ext(u.Path)); ext {
	case ".jpg", ".jpeg", ".png", ".webp", ".gif", ".bmp", ".tif", ".tiff":
		return ext
	default:
		return ".img"
	}
}
