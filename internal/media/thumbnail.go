// Package media serves session images: proof thumbnails, archive naming and
// zip packaging of delivered finals.
package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/nfnt/resize"
)

var (
	// ErrUnsupported is returned for files that cannot be thumbnailed.
	ErrUnsupported = errors.New("unsupported image format")
	// ErrInvalidPath is returned when a filename escapes the session folder.
	ErrInvalidPath = errors.New("invalid file path")
)

// IsImageFile reports whether ext (with dot) can be decoded for thumbnails.
func IsImageFile(ext string) bool {
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg", ".png", ".gif":
		return true
	}
	return false
}

// Thumbnailer renders and caches JPEG thumbnails of the proofs stored under
// Root/<sessionID>/.
type Thumbnailer struct {
	Root string
	Size uint

	mu    sync.RWMutex
	cache map[string][]byte
}

// NewThumbnailer returns a Thumbnailer bounded to size×size pixels.
func NewThumbnailer(root string, size uint) *Thumbnailer {
	if size == 0 {
		size = 300
	}
	return &Thumbnailer{Root: root, Size: size, cache: make(map[string][]byte)}
}

// ResolvePath joins sessionID and filename under root, refusing anything that
// would land outside the session folder.
func ResolvePath(root, sessionID, filename string) (string, error) {
	if sessionID == "" || filename == "" || strings.ContainsAny(sessionID, `/\`) {
		return "", ErrInvalidPath
	}
	base := filepath.Clean(filepath.Join(root, sessionID))
	full := filepath.Clean(filepath.Join(base, filename))
	if !strings.HasPrefix(full, base+string(filepath.Separator)) {
		return "", ErrInvalidPath
	}
	return full, nil
}

// Thumbnail returns the JPEG thumbnail of one proof.
func (t *Thumbnailer) Thumbnail(sessionID, filename string) ([]byte, error) {
	path, err := ResolvePath(t.Root, sessionID, filename)
	if err != nil {
		return nil, err
	}
	if !IsImageFile(filepath.Ext(path)) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(path))
	}

	t.mu.RLock()
	cached, ok := t.cache[path]
	t.mu.RUnlock()
	if ok {
		return cached, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	thumb := resize.Thumbnail(t.Size, t.Size, img, resize.Lanczos3)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}

	t.mu.Lock()
	t.cache[path] = buf.Bytes()
	t.mu.Unlock()
	return buf.Bytes(), nil
}
