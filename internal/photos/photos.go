// Package photos stores location photos and hands back public URLs.
package photos

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/dante-alig/lovelyplace-back/internal/catalog"
)

var ErrNotFound = errors.New("photo not found")

type Store interface {
	// Upload stores the content and returns its public URL.
	Upload(ctx context.Context, filename, contentType string, r io.Reader) (string, error)
	Delete(ctx context.Context, url string) error
}

const maxPhotoBytes = 10 << 20

var allowedExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true}

// FS keeps photos in a directory served under BaseURL.
type FS struct {
	dir     string
	baseURL string
	logger  *slog.Logger
}

func NewFS(dir, baseURL string, logger *slog.Logger) (*FS, error) {
	if dir == "" {
		return nil, errors.New("photos dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create photos dir: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FS{dir: dir, baseURL: strings.TrimRight(baseURL, "/"), logger: logger}, nil
}

func (s *FS) Dir() string { return s.dir }

func (s *FS) Upload(ctx context.Context, filename, contentType string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ext := extFor(filename, contentType)
	if !allowedExt[ext] {
		return "", fmt.Errorf("unsupported photo type %q (%s)", filename, contentType)
	}

	name := catalog.NewID() + ext
	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create photo: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	n, err := io.Copy(tmp, io.LimitReader(r, maxPhotoBytes+1))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("write photo: %w", err)
	}
	if n > maxPhotoBytes {
		return "", fmt.Errorf("photo larger than %d bytes", maxPhotoBytes)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return "", fmt.Errorf("store photo: %w", err)
	}
	s.logger.Debug("photo stored", "name", name, "bytes", n)
	return s.baseURL + "/" + name, nil
}

// Delete removes the photo addressed by u. Only the last path segment is
// used, so URLs cannot escape the photos directory.
func (s *FS) Delete(ctx context.Context, u string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name := nameFromURL(u)
	if name == "" || name == "." || name == ".." {
		return ErrNotFound
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete photo: %w", err)
	}
	return nil
}

func nameFromURL(u string) string {
	p := u
	if parsed, err := url.Parse(u); err == nil {
		p = parsed.Path
	}
	return path.Base(strings.TrimRight(p, "/"))
}

func extFor(filename, contentType string) string {
	if ext := strings.ToLower(filepath.Ext(filename)); ext != "" {
		return ext
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		for _, e := range exts {
			if allowedExt[e] {
				return e
			}
		}
	}
	return ""
}
