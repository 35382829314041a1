package media

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"studio-portal/internal/models"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Ada's Newborn", "adas-newborn"},
		{"  Zoë & Léa — Cake Smash!  ", "zoe-lea-cake-smash"},
		{"Spring 2026", "spring-2026"},
		{"***", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Fatalf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestArchiveName(t *testing.T) {
	tests := []struct {
		title, child, want string
	}{
		{"Ada's Newborn", "Ada", "adas-newborn-photos.zip"},
		{"", "Mila Rose", "mila-rose-photos.zip"},
		{"!!!", "Mila", "mila-photos.zip"},
		{"", "", FallbackArchiveName},
	}
	for _, tt := range tests {
		if got := ArchiveName(tt.title, tt.child); got != tt.want {
			t.Fatalf("ArchiveName(%q, %q) = %q, want %q", tt.title, tt.child, got, tt.want)
		}
	}
}

func TestResolvePath(t *testing.T) {
	root := t.TempDir()
	if _, err := ResolvePath(root, "s1", "a.jpg"); err != nil {
		t.Fatalf("valid path: %v", err)
	}
	for _, tc := range []struct{ session, file string }{
		{"s1", "../s2/a.jpg"},
		{"s1", "../../etc/passwd"},
		{"../s2", "a.jpg"},
		{"s1", ""},
		{"", "a.jpg"},
	} {
		if _, err := ResolvePath(root, tc.session, tc.file); !errors.Is(err, ErrInvalidPath) {
			t.Fatalf("ResolvePath(%q, %q): expected ErrInvalidPath, got %v", tc.session, tc.file, err)
		}
	}
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
}

func TestThumbnail(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "s1", "proof.png"), 200, 100)
	th := NewThumbnailer(root, 50)

	data, err := th.Thumbnail("s1", "proof.png")
	if err != nil {
		t.Fatalf("thumbnail: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("thumbnail is not a jpeg: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 50 || b.Dy() != 25 {
		t.Fatalf("expected 50x25, got %dx%d", b.Dx(), b.Dy())
	}

	// Cached: deleting the source does not matter.
	os.Remove(filepath.Join(root, "s1", "proof.png"))
	again, err := th.Thumbnail("s1", "proof.png")
	if err != nil || !bytes.Equal(again, data) {
		t.Fatalf("expected cached thumbnail, err=%v", err)
	}
}

func TestThumbnailErrors(t *testing.T) {
	root := t.TempDir()
	th := NewThumbnailer(root, 0)
	if th.Size != 300 {
		t.Fatalf("expected default size 300, got %d", th.Size)
	}
	if _, err := th.Thumbnail("s1", "notes.txt"); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	if _, err := th.Thumbnail("s1", "missing.jpg"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	if _, err := th.Thumbnail("s1", "../x.jpg"); !errors.Is(err, ErrInvalidPath) {
		t.Fatalf("expected ErrInvalidPath, got %v", err)
	}
}

func TestWriteArchive(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "finals"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "finals", "a.jpg"), []byte("local-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/b.jpg" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("remote-bytes"))
	}))
	defer remote.Close()

	assets := []models.FinalAsset{
		{Filename: "a.jpg", URL: "finals/a.jpg"},
		{Filename: "b.jpg", URL: remote.URL + "/b.jpg"},
	}
	var buf bytes.Buffer
	if err := WriteArchive(context.Background(), &buf, assets, NewSourceOpener(root)); err != nil {
		t.Fatalf("write archive: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("read zip: %v", err)
	}
	want := map[string]string{"a.jpg": "local-bytes", "b.jpg": "remote-bytes"}
	if len(zr.File) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(zr.File))
	}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		body, _ := io.ReadAll(rc)
		rc.Close()
		if string(body) != want[f.Name] {
			t.Fatalf("%s = %q, want %q", f.Name, body, want[f.Name])
		}
	}
}

func TestWriteArchiveFailures(t *testing.T) {
	root := t.TempDir()
	opener := NewSourceOpener(root)

	err := WriteArchive(context.Background(), io.Discard, []models.FinalAsset{{Filename: "x.jpg", URL: "../outside.jpg"}}, opener)
	if !errors.Is(err, ErrInvalidPath) {
		t.Fatalf("expected ErrInvalidPath, got %v", err)
	}

	err = WriteArchive(context.Background(), io.Discard, []models.FinalAsset{{Filename: "x.jpg", URL: "finals/missing.jpg"}}, opener)
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist, got %v", err)
	}

	var buf bytes.Buffer
	err = WriteArchive(context.Background(), &buf, []models.FinalAsset{
		{Filename: "a/x.jpg", URL: "finals/a.jpg"},
		{Filename: "b/x.jpg", URL: "finals/b.jpg"},
	}, opener)
	if !errors.Is(err, ErrDuplicateEntry) {
		t.Fatalf("expected ErrDuplicateEntry, got %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected nothing written, got %d bytes", buf.Len())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = WriteArchive(ctx, io.Discard, []models.FinalAsset{{Filename: "x.jpg", URL: "finals/x.jpg"}}, opener)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
