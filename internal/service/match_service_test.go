package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"care-match/internal/domain"
)

type matchFixture struct {
	svc      *MatchService
	profiles *mockProfileRepo
	matches  *mockMatchRepo
	recs     *recordingInvalidator
	clock    time.Time
}

func newMatchFixture() *matchFixture {
	profiles := newMockProfileRepo()
	profiles.addPatient(profile(domain.OwnerPatient, "p1", 70, 40, 60, 50), nil)
	profiles.addCaregiver("c1", profile("", "", 72, 45, 58, 50), nil)
	profiles.addCaregiver("c2", profile("", "", 30, 80, 20, 90), nil)
	profiles.addCaregiver("c3", nil, nil)

	f := &matchFixture{
		profiles: profiles,
		matches:  newMockMatchRepo(),
		recs:     &recordingInvalidator{},
		clock:    time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	f.svc = NewMatchService(profiles, f.matches, NewRuleScorer(DefaultRuleScorerConfig()), f.recs, zap.NewNop())
	seq := 0
	f.svc.newID = func() string {
		seq++
		return fmt.Sprintf("id-%03d", seq)
	}
	f.svc.now = func() time.Time {
		f.clock = f.clock.Add(time.Minute)
		return f.clock
	}
	return f
}

func TestMatchCreate(t *testing.T) {
	f := newMatchFixture()
	ctx := context.Background()

	rec, err := f.svc.Create(ctx, "p1", "c1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Status != domain.MatchActive {
		t.Fatalf("expected active status, got %s", rec.Status)
	}
	if rec.StartedAt == nil || rec.EndedAt != nil {
		t.Fatalf("expected started_at set and ended_at empty, got %v/%v", rec.StartedAt, rec.EndedAt)
	}
	if rec.ScorerVersion != RuleScorerVersion {
		t.Fatalf("expected scorer version %s, got %s", RuleScorerVersion, rec.ScorerVersion)
	}
	if rec.Score <= 0 || rec.Grade != domain.GradeForScore(rec.Score) {
		t.Fatalf("unexpected score/grade %v/%s", rec.Score, rec.Grade)
	}
	if len(rec.Features) != 10 {
		t.Fatalf("expected feature snapshot of 10, got %d", len(rec.Features))
	}

	entries, err := f.svc.Entries(ctx, rec.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 || entries[0].Status != domain.MatchActive || entries[0].Reason != "match created" {
		t.Fatalf("unexpected history %+v", entries)
	}
	if len(f.recs.patients) != 1 || f.recs.patients[0] != "p1" {
		t.Fatalf("expected cache invalidation for p1, got %v", f.recs.patients)
	}
}

func TestMatchCreateErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("duplicate active", func(t *testing.T) {
		f := newMatchFixture()
		if _, err := f.svc.Create(ctx, "p1", "c1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := f.svc.Create(ctx, "p1", "c1"); !errors.Is(err, domain.ErrDuplicateActiveMatch) {
			t.Fatalf("expected DUPLICATE_ACTIVE_MATCH, got %v", err)
		}
		if len(f.matches.records) != 1 {
			t.Fatalf("expected a single stored match, got %d", len(f.matches.records))
		}
	})

	t.Run("unique index race", func(t *testing.T) {
		f := newMatchFixture()
		f.matches.raceOnCreate = true
		if _, err := f.svc.Create(ctx, "p1", "c1"); !errors.Is(err, domain.ErrDuplicateActiveMatch) {
			t.Fatalf("expected DUPLICATE_ACTIVE_MATCH, got %v", err)
		}
		if len(f.recs.patients) != 0 {
			t.Fatalf("failed create must not invalidate cache")
		}
	})

	t.Run("unknown patient", func(t *testing.T) {
		f := newMatchFixture()
		if _, err := f.svc.Create(ctx, "ghost", "c1"); !errors.Is(err, domain.ErrPatientNotFound) {
			t.Fatalf("expected PATIENT_NOT_FOUND, got %v", err)
		}
	})

	t.Run("unknown caregiver", func(t *testing.T) {
		f := newMatchFixture()
		if _, err := f.svc.Create(ctx, "p1", "ghost"); !errors.Is(err, domain.ErrCaregiverNotFound) {
			t.Fatalf("expected CAREGIVER_NOT_FOUND, got %v", err)
		}
	})

	t.Run("caregiver without profile", func(t *testing.T) {
		f := newMatchFixture()
		if _, err := f.svc.Create(ctx, "p1", "c3"); !errors.Is(err, domain.ErrProfileMissing) {
			t.Fatalf("expected PROFILE_MISSING, got %v", err)
		}
	})
}

func TestMatchCancel(t *testing.T) {
	f := newMatchFixture()
	ctx := context.Background()
	rec, err := f.svc.Create(ctx, "p1", "c1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := f.svc.Cancel(ctx, rec.ID, "   "); domain.CodeOf(err) != domain.CodeInvalidInput {
		t.Fatalf("expected INVALID_INPUT for blank reason, got %v", err)
	}

	cancelled, err := f.svc.Cancel(ctx, rec.ID, "family moved")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cancelled.Status != domain.MatchCancelled || cancelled.Reason != "family moved" {
		t.Fatalf("unexpected record %+v", cancelled)
	}
	if cancelled.EndedAt == nil || !cancelled.UpdatedAt.After(cancelled.CreatedAt) {
		t.Fatalf("expected ended_at and updated_at to be set")
	}

	before := f.matches.records[rec.ID]
	if _, err := f.svc.Cancel(ctx, rec.ID, "again"); !errors.Is(err, domain.ErrAlreadyTerminal) {
		t.Fatalf("expected ALREADY_TERMINAL, got %v", err)
	}
	if _, err := f.svc.Complete(ctx, rec.ID, ""); !errors.Is(err, domain.ErrAlreadyTerminal) {
		t.Fatalf("expected ALREADY_TERMINAL on complete, got %v", err)
	}
	after := f.matches.records[rec.ID]
	if after.Status != before.Status || after.Reason != before.Reason || !after.UpdatedAt.Equal(before.UpdatedAt) {
		t.Fatalf("terminal record changed: %+v -> %+v", before, after)
	}

	entries, err := f.svc.Entries(ctx, rec.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 || entries[1].Status != domain.MatchCancelled || entries[1].Reason != "family moved" {
		t.Fatalf("unexpected history %+v", entries)
	}

	if _, err := f.svc.Create(ctx, "p1", "c1"); err != nil {
		t.Fatalf("expected new active match after cancel, got %v", err)
	}
}

func TestMatchComplete(t *testing.T) {
	f := newMatchFixture()
	ctx := context.Background()
	rec, err := f.svc.Create(ctx, "p1", "c1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	done, err := f.svc.Complete(ctx, rec.ID, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if done.Status != domain.MatchCompleted || done.Reason != "match completed" || done.EndedAt == nil {
		t.Fatalf("unexpected record %+v", done)
	}
	if len(f.recs.patients) != 2 {
		t.Fatalf("expected invalidation on create and complete, got %v", f.recs.patients)
	}
}

func TestMatchUnknownID(t *testing.T) {
	f := newMatchFixture()
	ctx := context.Background()
	if _, err := f.svc.Cancel(ctx, "missing", "reason"); !errors.Is(err, domain.ErrMatchNotFound) {
		t.Fatalf("expected MATCH_NOT_FOUND on cancel, got %v", err)
	}
	if _, err := f.svc.Complete(ctx, "missing", ""); !errors.Is(err, domain.ErrMatchNotFound) {
		t.Fatalf("expected MATCH_NOT_FOUND on complete, got %v", err)
	}
	if _, err := f.svc.Entries(ctx, "missing"); !errors.Is(err, domain.ErrMatchNotFound) {
		t.Fatalf("expected MATCH_NOT_FOUND on entries, got %v", err)
	}
}

func TestMatchHistory(t *testing.T) {
	f := newMatchFixture()
	ctx := context.Background()
	first, err := f.svc.Create(ctx, "p1", "c1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := f.svc.Create(ctx, "p1", "c2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.svc.Cancel(ctx, first.ID, "not a fit"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	views, err := f.svc.History(ctx, "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(views))
	}
	if views[0].ID != second.ID || views[1].ID != first.ID {
		t.Fatalf("expected newest first, got %s, %s", views[0].ID, views[1].ID)
	}
	if views[1].Status != domain.MatchCancelled {
		t.Fatalf("expected cancelled status on first match, got %s", views[1].Status)
	}
	if views[0].Caregiver == nil || views[0].Caregiver.CaregiverID != "c2" {
		t.Fatalf("expected caregiver display for c2, got %+v", views[0].Caregiver)
	}

	empty, err := f.svc.History(ctx, "nobody")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty history, got %d", len(empty))
	}
}

func TestMatchHistoryDisplayErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("lookup failure leaves display empty", func(t *testing.T) {
		f := newMatchFixture()
		if _, err := f.svc.Create(ctx, "p1", "c1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		f.profiles.displayErr = errors.New("profile service down")
		views, err := f.svc.History(ctx, "p1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(views) != 1 || views[0].Caregiver != nil {
			t.Fatalf("expected one view without caregiver display, got %+v", views)
		}
	})

	for _, ctxErr := range []error{context.Canceled, context.DeadlineExceeded} {
		t.Run(ctxErr.Error(), func(t *testing.T) {
			f := newMatchFixture()
			if _, err := f.svc.Create(ctx, "p1", "c1"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			f.profiles.displayErr = fmt.Errorf("fetch display: %w", ctxErr)
			views, err := f.svc.History(ctx, "p1")
			if !errors.Is(err, ctxErr) {
				t.Fatalf("expected %v, got %v", ctxErr, err)
			}
			if views != nil {
				t.Fatalf("expected no partial views, got %+v", views)
			}
		})
	}
}

func TestMatchPreview(t *testing.T) {
	f := newMatchFixture()
	res, err := f.svc.Preview(context.Background(), " p1 ", "c1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.PatientID != "p1" || res.CaregiverID != "c1" || res.Caregiver.CaregiverID != "c1" {
		t.Fatalf("unexpected result ids %+v", res)
	}
	if len(f.matches.records) != 0 {
		t.Fatalf("preview must not persist matches")
	}
}
