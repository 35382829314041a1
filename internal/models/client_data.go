package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidData marks a document that fails schema validation at the store
// boundary.
var ErrInvalidData = errors.New("invalid session data")

// SelectionItem is one image the client picked, with their notes for the editor.
type SelectionItem struct {
	Filename   string    `json:"filename"`
	FaceSwap   bool      `json:"face_swap"`
	Note       string    `json:"note"`
	SelectedAt time.Time `json:"selected_at"`
}

// RevisionStatus is the client's verdict on one edited version.
type RevisionStatus string

const (
	RevisionPending  RevisionStatus = "pending"
	RevisionApproved RevisionStatus = "approved"
	RevisionRejected RevisionStatus = "rejected"
)

// Valid reports whether s is a known revision status.
func (s RevisionStatus) Valid() bool {
	return s == RevisionPending || s == RevisionApproved || s == RevisionRejected
}

// RevisionItem is one edited version of a selected image.
type RevisionItem struct {
	Filename      string         `json:"filename"`
	Version       int            `json:"version"`
	Status        RevisionStatus `json:"status"`
	ClientComment string         `json:"client_comment,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// ClientData is the JSON document stored in the sessions.client_data column.
type ClientData struct {
	SelectionManifest []SelectionItem `json:"selection_manifest"`
	RevisionHistory   []RevisionItem  `json:"revision_history"`
}

// Validate enforces the manifest and history schema.
func (d ClientData) Validate() error {
	seen := make(map[string]struct{}, len(d.SelectionManifest))
	for _, item := range d.SelectionManifest {
		if item.Filename == "" {
			return fmt.Errorf("%w: selection with empty filename", ErrInvalidData)
		}
		if _, dup := seen[item.Filename]; dup {
			return fmt.Errorf("%w: duplicate selection %q", ErrInvalidData, item.Filename)
		}
		seen[item.Filename] = struct{}{}
	}
	for _, rev := range d.RevisionHistory {
		if rev.Filename == "" {
			return fmt.Errorf("%w: revision with empty filename", ErrInvalidData)
		}
		if rev.Version < 1 {
			return fmt.Errorf("%w: revision %q has version %d", ErrInvalidData, rev.Filename, rev.Version)
		}
		if !rev.Status.Valid() {
			return fmt.Errorf("%w: revision %q has status %q", ErrInvalidData, rev.Filename, rev.Status)
		}
	}
	return nil
}

// Clone returns a deep copy with non-nil slices.
func (d ClientData) Clone() ClientData {
	out := ClientData{
		SelectionManifest: make([]SelectionItem, len(d.SelectionManifest)),
		RevisionHistory:   make([]RevisionItem, len(d.RevisionHistory)),
	}
	copy(out.SelectionManifest, d.SelectionManifest)
	copy(out.RevisionHistory, d.RevisionHistory)
	return out
}

// Value implements driver.Valuer.
func (d ClientData) Value() (driver.Value, error) {
	b, err := json.Marshal(d.Clone())
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner. NULL and empty documents decode to an empty
// manifest and history.
func (d *ClientData) Scan(src any) error {
	*d = ClientData{}
	if err := scanJSON(src, d); err != nil {
		return fmt.Errorf("scan client_data: %w", err)
	}
	*d = d.Clone()
	return nil
}

// FinalAsset is one delivered image.
type FinalAsset struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

// Assets is the JSON document stored in the sessions.assets column.
type Assets struct {
	PreviewURL string       `json:"preview_url,omitempty"`
	ReviewURL  string       `json:"review_url,omitempty"`
	FinalURL   string       `json:"final_url,omitempty"`
	Finals     []FinalAsset `json:"finals"`
}

// Validate requires unique, addressable final assets. Filenames name the
// entries of the delivery archive, so they may not contain path separators.
func (a Assets) Validate() error {
	seen := make(map[string]struct{}, len(a.Finals))
	for _, f := range a.Finals {
		if f.Filename == "" || f.URL == "" {
			return fmt.Errorf("%w: final asset needs filename and url", ErrInvalidData)
		}
		if strings.ContainsAny(f.Filename, `/\`) || f.Filename == "." || f.Filename == ".." {
			return fmt.Errorf("%w: final asset filename %q must be a plain file name", ErrInvalidData, f.Filename)
		}
		if _, dup := seen[f.Filename]; dup {
			return fmt.Errorf("%w: duplicate final asset %q", ErrInvalidData, f.Filename)
		}
		seen[f.Filename] = struct{}{}
	}
	return nil
}

// Clone returns a deep copy with a non-nil Finals slice.
func (a Assets) Clone() Assets {
	out := a
	out.Finals = make([]FinalAsset, len(a.Finals))
	copy(out.Finals, a.Finals)
	return out
}

// Value implements driver.Valuer.
func (a Assets) Value() (driver.Value, error) {
	b, err := json.Marshal(a.Clone())
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (a *Assets) Scan(src any) error {
	*a = Assets{}
	if err := scanJSON(src, a); err != nil {
		return fmt.Errorf("scan assets: %w", err)
	}
	*a = a.Clone()
	return nil
}

func scanJSON(src any, dst any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		return nil
	case string:
		b = []byte(v)
	case []byte:
		b = v
	default:
		return fmt.Errorf("unsupported type %T", src)
	}
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, dst)
}
