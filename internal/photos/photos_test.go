package photos

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFS_UploadDelete(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFS(dir, "http://localhost:8090/photos/", nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	u, err := s.Upload(ctx, "terrasse.JPG", "image/jpeg", strings.NewReader("jpegbytes"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !strings.HasPrefix(u, "http://localhost:8090/photos/") || !strings.HasSuffix(u, ".jpg") {
		t.Fatalf("url = %s", u)
	}
	b, err := os.ReadFile(filepath.Join(dir, filepath.Base(u)))
	if err != nil || string(b) != "jpegbytes" {
		t.Fatalf("stored %q, %v", b, err)
	}

	if err := s.Delete(ctx, u); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, u); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete err = %v", err)
	}
}

func TestFS_ContentTypeFallbackAndRejects(t *testing.T) {
	s, _ := NewFS(t.TempDir(), "/photos", nil)
	ctx := context.Background()

	u, err := s.Upload(ctx, "blob", "image/png", strings.NewReader("png"))
	if err != nil || !strings.HasSuffix(u, ".png") {
		t.Fatalf("url = %s, %v", u, err)
	}
	if _, err := s.Upload(ctx, "script.sh", "text/x-sh", strings.NewReader("#!")); err == nil {
		t.Fatal("non-image must be rejected")
	}
}

func TestFS_DeleteCannotEscape(t *testing.T) {
	root := t.TempDir()
	outside := filepath.Join(root, "secret.jpg")
	if err := os.WriteFile(outside, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	s, _ := NewFS(filepath.Join(root, "photos"), "/photos", nil)
	if err := s.Delete(context.Background(), "/photos/../secret.jpg"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
	if _, err := os.Stat(outside); err != nil {
		t.Fatal("file outside the photos dir was removed")
	}
}
