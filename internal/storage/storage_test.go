package storage

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"studio-portal/internal/models"
)

type fixture struct {
	db      *DB
	owner   models.Principal
	other   models.Principal
	session *models.Session
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	db, err := InitDB(ctx, filepath.Join(t.TempDir(), "nested", "portal.db"))
	if err != nil {
		t.Fatalf("init db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	f := fixture{db: db}
	for i, email := range []string{"jane@example.com", "eve@example.com"} {
		u := &models.User{ID: "user-" + string(rune('1'+i)), Email: email, PasswordHash: "x", Role: models.RoleClient}
		if err := db.CreateUser(ctx, u); err != nil {
			t.Fatalf("create user: %v", err)
		}
		c := &models.Client{ID: "client-" + string(rune('1'+i)), UserID: u.ID, FullName: "Client " + email}
		if err := db.CreateClient(ctx, c); err != nil {
			t.Fatalf("create client: %v", err)
		}
	}
	f.owner = models.Principal{UserID: "user-1", Role: models.RoleClient}
	f.other = models.Principal{UserID: "user-2", Role: models.RoleClient}

	if err := db.SaveOccasion(ctx, &models.Occasion{ID: "newborn", Name: "Newborn", Active: true}); err != nil {
		t.Fatalf("save occasion: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	f.session = &models.Session{
		ID:           "s1",
		ClientID:     "client-1",
		OccasionID:   "newborn",
		Title:        "Ada",
		CurrentStage: models.StageSelecting,
		Status:       models.StatusActive,
		PackageLimit: 3,
		ClientData:   models.ClientData{}.Clone(),
		Assets:       models.Assets{}.Clone(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := db.InsertSession(ctx, f.session); err != nil {
		t.Fatalf("insert session: %v", err)
	}
	return f
}

func TestReadSessionOwnershipFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s, err := f.db.ReadSession(ctx, "s1", f.owner)
	if err != nil {
		t.Fatalf("read own session: %v", err)
	}
	if s.OwnerUserID != "user-1" || s.Occasion != "Newborn" || s.ClientName == "" {
		t.Fatalf("unexpected joined fields %+v", s)
	}
	if s.ClientData.SelectionManifest == nil || s.Assets.Finals == nil {
		t.Fatal("documents should decode with non-nil slices")
	}

	if _, err := f.db.ReadSession(ctx, "s1", f.other); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for another user, got %v", err)
	}
	if _, err := f.db.ReadSession(ctx, "s1", models.Principal{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for anonymous, got %v", err)
	}
	if _, err := f.db.ReadSession(ctx, "missing", f.owner); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing id, got %v", err)
	}
}

func TestWriteSessionAppliesPatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	later := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	f.db.SetClock(func() time.Time { return later })

	data := models.ClientData{SelectionManifest: []models.SelectionItem{{Filename: "a.jpg", Note: "smile"}}}
	status := models.StatusSubmitted
	stage := models.StageReviewing
	err := f.db.WriteSession(ctx, "s1", f.owner, models.SessionPatch{
		ClientData: &data, Status: &status, Stage: &stage, ExpectedRevision: 0,
	})
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	s, err := f.db.ReadSession(ctx, "s1", f.owner)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if s.Revision != 1 || s.Status != models.StatusSubmitted || s.CurrentStage != models.StageReviewing {
		t.Fatalf("patch not applied: rev=%d %s/%d", s.Revision, s.Status, s.CurrentStage)
	}
	if len(s.ClientData.SelectionManifest) != 1 || s.ClientData.SelectionManifest[0].Note != "smile" {
		t.Fatalf("manifest not stored: %+v", s.ClientData)
	}
	if !s.UpdatedAt.Equal(later) {
		t.Fatalf("updated_at = %v, want %v", s.UpdatedAt, later)
	}
}

func TestWriteSessionConflictAndOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	status := models.StatusSubmitted

	if err := f.db.WriteSession(ctx, "s1", f.other, models.SessionPatch{Status: &status}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign write, got %v", err)
	}
	if err := f.db.WriteSession(ctx, "s1", f.owner, models.SessionPatch{Status: &status, ExpectedRevision: 0}); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := f.db.WriteSession(ctx, "s1", f.owner, models.SessionPatch{Status: &status, ExpectedRevision: 0}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for stale revision, got %v", err)
	}
	if err := f.db.UpdateSession(ctx, "missing", models.SessionPatch{Status: &status}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing session, got %v", err)
	}
}

func TestWriteSessionValidatesDocuments(t *testing.T) {
	f := newFixture(t)
	bad := models.ClientData{SelectionManifest: []models.SelectionItem{{Filename: "a.jpg"}, {Filename: "a.jpg"}}}
	err := f.db.WriteSession(context.Background(), "s1", f.owner, models.SessionPatch{ClientData: &bad})
	if !errors.Is(err, models.ErrInvalidData) {
		t.Fatalf("expected ErrInvalidData, got %v", err)
	}
}

func TestListSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	second := *f.session
	second.ID = "s2"
	second.UpdatedAt = f.session.UpdatedAt.Add(time.Hour)
	second.OccasionID = ""
	if err := f.db.InsertSession(ctx, &second); err != nil {
		t.Fatalf("insert: %v", err)
	}
	foreign := *f.session
	foreign.ID = "s3"
	foreign.ClientID = "client-2"
	if err := f.db.InsertSession(ctx, &foreign); err != nil {
		t.Fatalf("insert: %v", err)
	}

	own, err := f.db.ListSessionsForUser(ctx, f.owner)
	if err != nil {
		t.Fatalf("list own: %v", err)
	}
	if len(own) != 2 || own[0].ID != "s2" || own[1].ID != "s1" {
		t.Fatalf("expected [s2 s1], got %d sessions", len(own))
	}

	all, err := f.db.ListAllSessions(ctx)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(all))
	}
}

func TestInsertSessionRejectsZeroLimit(t *testing.T) {
	f := newFixture(t)
	s := *f.session
	s.ID = "bad"
	s.PackageLimit = 0
	if err := f.db.InsertSession(context.Background(), &s); !errors.Is(err, models.ErrInvalidData) {
		t.Fatalf("expected ErrInvalidData, got %v", err)
	}
}

func TestUsersAndInquiries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.db.UserByEmail(ctx, "  JANE@example.com ")
	if err != nil || u.ID != "user-1" {
		t.Fatalf("lookup by email: %v %+v", err, u)
	}
	if _, err := f.db.UserByEmail(ctx, "nobody@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	in := &models.Inquiry{ID: "i1", Name: "Mia", Email: "mia@example.com", SessionType: "Newborn", Message: "Due in May"}
	if err := f.db.SaveInquiry(ctx, in); err != nil {
		t.Fatalf("save inquiry: %v", err)
	}
	list, err := f.db.ListInquiries(ctx)
	if err != nil || len(list) != 1 || list[0].Message != "Due in May" {
		t.Fatalf("list inquiries: %v %+v", err, list)
	}
}

func TestSaveOccasionKeepsSessionsLinked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.db.SaveOccasion(ctx, &models.Occasion{ID: "newborn", Name: "Newborn Bliss", Active: false}); err != nil {
		t.Fatalf("update occasion: %v", err)
	}
	s, err := f.db.ReadSession(ctx, "s1", f.owner)
	if err != nil {
		t.Fatalf("read session: %v", err)
	}
	if s.OccasionID != "newborn" || s.Occasion != "Newborn Bliss" {
		t.Fatalf("session lost its occasion link: id=%q name=%q", s.OccasionID, s.Occasion)
	}
	active, err := f.db.ListActiveOccasions(ctx)
	if err != nil {
		t.Fatalf("list occasions: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("expected deactivated occasion to be hidden, got %+v", active)
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.db.Migrate(ctx); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	var count int
	if err := f.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 recorded migration, got %d", count)
	}
}

func TestApplyMigrationsRollsBackFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fsys := fstest.MapFS{
		"m/0001_ok.sql":  {Data: []byte("-- +migrate Up\nCREATE TABLE extra (id TEXT);\n-- +migrate Down\nDROP TABLE extra;")},
		"m/0002_bad.sql": {Data: []byte("-- +migrate Up\nCREATE TABLE nope (;\n")},
	}
	err := applyMigrations(ctx, f.db.DB, fsys, "m")
	if err == nil || !strings.Contains(err.Error(), "0002_bad.sql") {
		t.Fatalf("expected failure naming 0002_bad.sql, got %v", err)
	}

	var count int
	if err := f.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM schema_migrations WHERE name = ?", "0002_bad.sql").Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatal("failed migration was recorded")
	}
}

func TestUpSection(t *testing.T) {
	got := upSection("-- +migrate Up\nCREATE TABLE a (id INT);\n-- +migrate Down\nDROP TABLE a;")
	if strings.Contains(got, "DROP") || !strings.Contains(got, "CREATE TABLE a") {
		t.Fatalf("unexpected up section %q", got)
	}
	if upSection("SELECT 1;") != "SELECT 1;" {
		t.Fatal("content without markers should be returned whole")
	}
}
