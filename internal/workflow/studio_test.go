package workflow

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"studio-portal/internal/models"
)

func TestCreateSessionFromPackage(t *testing.T) {
	store := newMemStore()
	st := NewStudio(store)

	sess, err := st.CreateSession(context.Background(), staff, NewSession{
		ClientID: "client-1",
		Title:    "  Spring minis ",
		Package:  "mini session",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sess.PackageLimit != 5 || sess.Title != "Spring minis" {
		t.Fatalf("unexpected session %+v", sess)
	}
	if sess.CurrentStage != models.StageSelecting || sess.Status != models.StatusActive {
		t.Fatalf("new session should start selecting/active, got %d/%s", sess.CurrentStage, sess.Status)
	}
	if _, err := store.LoadSession(context.Background(), sess.ID); err != nil {
		t.Fatalf("session not stored: %v", err)
	}
}

func TestCreateSessionValidation(t *testing.T) {
	st := NewStudio(newMemStore())
	ctx := context.Background()
	tests := []struct {
		name string
		p    models.Principal
		in   NewSession
		want error
	}{
		{name: "client caller", p: owner, in: NewSession{ClientID: "c", PackageLimit: 3}, want: ErrForbidden},
		{name: "anonymous", in: NewSession{ClientID: "c", PackageLimit: 3}, want: ErrNotAuthenticated},
		{name: "no client", p: staff, in: NewSession{PackageLimit: 3}, want: ErrInvalidInput},
		{name: "unknown package", p: staff, in: NewSession{ClientID: "c", Package: "Platinum"}, want: ErrInvalidInput},
		{name: "no limit", p: staff, in: NewSession{ClientID: "c"}, want: ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := st.CreateSession(ctx, tt.p, tt.in); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestStudioDrivesFullWorkflow(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(activeSession("s1", 2))
	events := &recorder{}
	svc := NewService(store, WithNotifier(events))
	st := NewStudio(store, WithNotifier(events))

	sel, err := svc.Selection(ctx, owner, "s1")
	if err != nil {
		t.Fatalf("selection: %v", err)
	}
	sel.Toggle("a.jpg")
	if err := sel.Submit(ctx); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := st.PublishRevision(ctx, staff, "s1", "a.jpg"); err != nil {
		t.Fatalf("publish before editing: %v", err)
	}
	if _, err := st.StartEditing(ctx, staff, "s1"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("editing after publish should be invalid, got %v", err)
	}
	if _, err := st.PublishRevision(ctx, staff, "s1", "a.jpg"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("publishing over a pending version should fail, got %v", err)
	}
	if _, err := st.PublishRevision(ctx, staff, "s1", "zzz.jpg"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("publishing an unselected image should fail, got %v", err)
	}

	rm, err := svc.Review(ctx, owner, "s1")
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if err := rm.Reject(ctx, "a.jpg", "warmer please"); err != nil {
		t.Fatalf("reject: %v", err)
	}

	v2, err := st.PublishRevision(ctx, staff, "s1", "a.jpg")
	if err != nil {
		t.Fatalf("publish v2: %v", err)
	}
	if v2.Version != 2 || v2.Status != models.RevisionPending {
		t.Fatalf("unexpected v2 %+v", v2)
	}
	if store.get("s1").Status != models.StatusReadyForReview {
		t.Fatalf("expected ready_for_review, got %s", store.get("s1").Status)
	}

	if _, err := st.SetFinals(ctx, staff, "s1", []models.FinalAsset{{Filename: "a.jpg", URL: "finals/a.jpg"}}); err != nil {
		t.Fatalf("set finals: %v", err)
	}
	if d, _ := svc.Delivery(ctx, owner, "s1"); d.Unlocked || len(d.Assets) != 0 {
		t.Fatalf("finals visible before approval: %+v", d)
	}

	rm, err = svc.Review(ctx, owner, "s1")
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if err := rm.Approve(ctx, "a.jpg"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := rm.ApproveAll(ctx); err != nil {
		t.Fatalf("approve all: %v", err)
	}
	d, err := svc.Delivery(ctx, owner, "s1")
	if err != nil {
		t.Fatalf("delivery: %v", err)
	}
	if !d.Unlocked || len(d.Assets) != 1 || d.ArchiveName != "adas-newborn-photos.zip" {
		t.Fatalf("unexpected delivery %+v", d)
	}

	want := []string{
		EventSelectionSubmitted,
		EventRevisionPublished,
		EventRevisionRejected,
		EventRevisionPublished,
		EventFinalsUpdated,
		EventRevisionApproved,
		EventStageAdvanced,
	}
	if got := events.types(); !reflect.DeepEqual(got, want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
}

func TestStartEditing(t *testing.T) {
	s := activeSession("s1", 2, "a.jpg")
	s.Status = models.StatusSubmitted
	s.CurrentStage = models.StageReviewing
	store := newMemStore(s)
	st := NewStudio(store)

	sess, err := st.StartEditing(context.Background(), staff, "s1")
	if err != nil {
		t.Fatalf("start editing: %v", err)
	}
	if sess.Status != models.StatusEditing || store.get("s1").Status != models.StatusEditing {
		t.Fatalf("expected editing, got %s", sess.Status)
	}
	if _, err := st.StartEditing(context.Background(), staff, "s1"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("second start should be invalid, got %v", err)
	}
}
