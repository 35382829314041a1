package media

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"studio-portal/internal/models"
)

// Opener fetches the bytes of a final asset.
type Opener interface {
	Open(ctx context.Context, asset models.FinalAsset) (io.ReadCloser, error)
}

// SourceOpener reads http(s) URLs with Client and anything else as a path
// relative to Root.
type SourceOpener struct {
	Root   string
	Client *http.Client
}

// NewSourceOpener returns an opener for local files under root and remote URLs.
func NewSourceOpener(root string) *SourceOpener {
	return &SourceOpener{Root: root, Client: &http.Client{Timeout: 2 * time.Minute}}
}

// Open implements Opener.
func (o *SourceOpener) Open(ctx context.Context, asset models.FinalAsset) (io.ReadCloser, error) {
	if strings.HasPrefix(asset.URL, "http://") || strings.HasPrefix(asset.URL, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, asset.URL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := o.Client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("fetch %s: status %d", asset.URL, resp.StatusCode)
		}
		return resp.Body, nil
	}

	rel := strings.TrimPrefix(asset.URL, "file://")
	base := filepath.Clean(o.Root)
	full := filepath.Clean(filepath.Join(base, rel))
	if !strings.HasPrefix(full, base+string(filepath.Separator)) {
		return nil, ErrInvalidPath
	}
	return os.Open(full)
}

// ErrDuplicateEntry is returned when two assets would share an archive entry.
var ErrDuplicateEntry = errors.New("duplicate archive entry")

func entryName(filename string) string {
	return path.Base(filepath.ToSlash(filename))
}

// WriteArchive streams a zip of assets to w, one entry per asset named after
// its filename. Entry names are checked before anything is written; the
// first asset that cannot be read aborts the archive.
func WriteArchive(ctx context.Context, w io.Writer, assets []models.FinalAsset, opener Opener) error {
	seen := make(map[string]string, len(assets))
	for _, asset := range assets {
		name := entryName(asset.Filename)
		if prev, dup := seen[name]; dup {
			return fmt.Errorf("%w: %q and %q both archive as %q", ErrDuplicateEntry, prev, asset.Filename, name)
		}
		seen[name] = asset.Filename
	}

	zw := zip.NewWriter(w)
	for _, asset := range assets {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := addEntry(ctx, zw, asset, opener); err != nil {
			return fmt.Errorf("archive %s: %w", asset.Filename, err)
		}
	}
	return zw.Close()
}

func addEntry(ctx context.Context, zw *zip.Writer, asset models.FinalAsset, opener Opener) error {
	rc, err := opener.Open(ctx, asset)
	if err != nil {
		return err
	}
	defer rc.Close()

	// Finals are already-compressed images; storing avoids wasted CPU.
	entry, err := zw.CreateHeader(&zip.FileHeader{
		Name:     entryName(asset.Filename),
		Method:   zip.Store,
		Modified: time.Now(),
	})
	if err != nil {
		return err
	}
	_, err = io.Copy(entry, rc)
	return err
}
