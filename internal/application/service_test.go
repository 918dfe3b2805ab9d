package application_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	dbfs "github.com/guildops/recruit/db"
	"github.com/guildops/recruit/internal/application"
	"github.com/guildops/recruit/internal/booking"
	dbpkg "github.com/guildops/recruit/internal/db"
	sqlite "github.com/guildops/recruit/internal/repository/sqlite"
	"github.com/guildops/recruit/pkg/models"
)

const testSettings = `{
	"tracks": ["engineering", "design"],
	"questions": [
		{"key": "essay", "type": "text", "track": "all", "required": true, "word_limit": 500},
		{"key": "resume", "type": "file", "track": "all", "required": true},
		{"key": "portfolio", "type": "file", "track": "design", "required": true},
		{"key": "fun_fact", "type": "text", "track": "all", "required": false, "word_limit": 50}
	]
}`

type memStore struct{}

func (memStore) Upload(ctx context.Context, r io.Reader, filename string) (string, error) {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	return "/uploads/" + filename, nil
}

type fixture struct {
	svc     *application.Service
	repo    *sqlite.SQLiteRepo
	engine  *booking.Engine
	cycleID int64
	dueAt   int64
	cleanup func()
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	d, err := dbpkg.New(ctx, "file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbpkg.Migrate(ctx, d, dbfs.Migrations); err != nil {
		d.Close()
		t.Fatalf("failed to migrate: %v", err)
	}

	repo := sqlite.New(d)
	dueAt := time.Now().Add(72 * time.Hour).Unix()
	cycleID, err := repo.CreateCycle(ctx, &models.Cycle{
		Slug:             "spring-2026",
		Name:             "Spring 2026",
		PortalOpenAt:     time.Now().Add(-time.Hour).Unix(),
		PortalCloseAt:    time.Now().Add(96 * time.Hour).Unix(),
		ApplicationDueAt: dueAt,
		Settings:         testSettings,
	})
	if err != nil {
		d.Close()
		t.Fatalf("CreateCycle error: %v", err)
	}
	if err := repo.SetActiveCycle(ctx, cycleID); err != nil {
		d.Close()
		t.Fatalf("SetActiveCycle error: %v", err)
	}

	// seed applicant rows so application inserts satisfy the user FK
	for _, email := range []string{"alice@example.com", "bob@example.com"} {
		if _, err := repo.CreateUser(ctx, &models.User{Name: email, Email: email, PasswordHash: "hash"}); err != nil {
			d.Close()
			t.Fatalf("CreateUser error: %v", err)
		}
	}

	svc := application.NewService(repo, repo, repo, repo, repo, memStore{}, nil)

	return &fixture{
		svc:     svc,
		repo:    repo,
		engine:  booking.NewEngine(d, nil),
		cycleID: cycleID,
		dueAt:   dueAt,
		cleanup: func() { d.Close() },
	}
}

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("word ", n))
}

func alice() models.Identity {
	return models.Identity{UserID: 1, Email: "alice@example.com", Name: "Alice"}
}

func TestGetWithoutActiveCycle(t *testing.T) {
	ctx := context.Background()

	// fresh db with no activated cycle
	d, err := dbpkg.New(ctx, "file:noactive?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	defer d.Close()
	if err := dbpkg.Migrate(ctx, d, dbfs.Migrations); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	repo := sqlite.New(d)
	svc := application.NewService(repo, repo, repo, repo, repo, memStore{}, nil)

	if _, err := svc.Get(ctx, alice()); !errors.Is(err, application.ErrNoActiveCycle) {
		t.Fatalf("expected ErrNoActiveCycle, got %v", err)
	}
}

func TestSaveCreatesAndMergesDraft(t *testing.T) {
	f := setup(t)
	defer f.cleanup()
	ctx := context.Background()

	app, err := f.svc.Save(ctx, alice(), "engineering", map[string]string{"essay": "first pass"})
	if err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if app.Stage != models.StageDraft {
		t.Fatalf("expected draft stage, got %s", app.Stage)
	}

	// second save merges answers without dropping the first
	app, err = f.svc.Save(ctx, alice(), "", map[string]string{"fun_fact": "juggles"})
	if err != nil {
		t.Fatalf("Save merge error: %v", err)
	}
	if app.Answers["essay"] != "first pass" || app.Answers["fun_fact"] != "juggles" {
		t.Fatalf("answers not merged: %#v", app.Answers)
	}
	if app.Track != "engineering" {
		t.Fatalf("track lost on merge: %q", app.Track)
	}

	got, err := f.svc.Get(ctx, alice())
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got == nil || got.Answers["essay"] != "first pass" {
		t.Fatalf("Get wrong result: %#v", got)
	}
}

func TestSubmitCollectsEveryViolation(t *testing.T) {
	f := setup(t)
	defer f.cleanup()
	ctx := context.Background()

	// essay over the 500 word limit, resume missing entirely
	if _, err := f.svc.Save(ctx, alice(), "engineering", map[string]string{"essay": words(600)}); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	_, err := f.svc.Submit(ctx, alice())
	if err == nil {
		t.Fatalf("expected submit to fail")
	}
	var gate *application.SubmitError
	if !errors.As(err, &gate) {
		t.Fatalf("expected SubmitError, got %T: %v", err, err)
	}
	if len(gate.MissingFields) != 1 || gate.MissingFields[0] != "resume" {
		t.Fatalf("expected resume missing, got %#v", gate.MissingFields)
	}
	if len(gate.OverLimit) != 1 || gate.OverLimit[0] != "essay" {
		t.Fatalf("expected essay over limit, got %#v", gate.OverLimit)
	}
}

func TestSubmitTrackScopedRequirements(t *testing.T) {
	f := setup(t)
	defer f.cleanup()
	ctx := context.Background()

	// the engineering track never sees the design-only portfolio question
	if _, err := f.svc.Save(ctx, alice(), "engineering", map[string]string{"essay": words(100)}); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if _, err := f.svc.AttachFile(ctx, alice(), "resume", "resume.pdf", strings.NewReader("pdf")); err != nil {
		t.Fatalf("AttachFile error: %v", err)
	}

	app, err := f.svc.Submit(ctx, alice())
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if app.Stage != models.StageSubmitted || app.SubmittedAt == nil {
		t.Fatalf("unexpected submitted application: %#v", app)
	}

	// a design applicant with the same answers is short the portfolio
	bob := models.Identity{UserID: 2, Email: "bob@example.com", Name: "Bob"}
	if _, err := f.svc.Save(ctx, bob, "design", map[string]string{"essay": words(100)}); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if _, err := f.svc.AttachFile(ctx, bob, "resume", "resume.pdf", strings.NewReader("pdf")); err != nil {
		t.Fatalf("AttachFile error: %v", err)
	}
	_, err = f.svc.Submit(ctx, bob)
	var gate *application.SubmitError
	if !errors.As(err, &gate) {
		t.Fatalf("expected SubmitError, got %v", err)
	}
	if len(gate.MissingFields) != 1 || gate.MissingFields[0] != "portfolio" {
		t.Fatalf("expected portfolio missing, got %#v", gate.MissingFields)
	}
}

func TestSubmitIsFinal(t *testing.T) {
	f := setup(t)
	defer f.cleanup()
	ctx := context.Background()

	if _, err := f.svc.Save(ctx, alice(), "engineering", map[string]string{"essay": words(50)}); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if _, err := f.svc.AttachFile(ctx, alice(), "resume", "resume.pdf", strings.NewReader("pdf")); err != nil {
		t.Fatalf("AttachFile error: %v", err)
	}
	if _, err := f.svc.Submit(ctx, alice()); err != nil {
		t.Fatalf("Submit error: %v", err)
	}

	if _, err := f.svc.Submit(ctx, alice()); !errors.Is(err, application.ErrAlreadySubmitted) {
		t.Fatalf("expected ErrAlreadySubmitted on resubmit, got %v", err)
	}
	if _, err := f.svc.Save(ctx, alice(), "", map[string]string{"essay": "edited"}); !errors.Is(err, application.ErrAlreadySubmitted) {
		t.Fatalf("expected ErrAlreadySubmitted on post-submit save, got %v", err)
	}
	if _, err := f.svc.AttachFile(ctx, alice(), "resume", "v2.pdf", strings.NewReader("pdf")); !errors.Is(err, application.ErrAlreadySubmitted) {
		t.Fatalf("expected ErrAlreadySubmitted on post-submit upload, got %v", err)
	}
}

func TestSubmitAfterDeadline(t *testing.T) {
	f := setup(t)
	defer f.cleanup()
	ctx := context.Background()

	if _, err := f.svc.Save(ctx, alice(), "engineering", map[string]string{"essay": words(50)}); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if _, err := f.svc.AttachFile(ctx, alice(), "resume", "resume.pdf", strings.NewReader("pdf")); err != nil {
		t.Fatalf("AttachFile error: %v", err)
	}

	f.svc.SetNow(func() time.Time { return time.Unix(f.dueAt+1, 0) })
	if _, err := f.svc.Submit(ctx, alice()); !errors.Is(err, application.ErrDeadlinePassed) {
		t.Fatalf("expected ErrDeadlinePassed, got %v", err)
	}
}

func TestStageTransitions(t *testing.T) {
	f := setup(t)
	defer f.cleanup()
	ctx := context.Background()

	if _, err := f.svc.Save(ctx, alice(), "engineering", map[string]string{"essay": words(50)}); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if _, err := f.svc.AttachFile(ctx, alice(), "resume", "resume.pdf", strings.NewReader("pdf")); err != nil {
		t.Fatalf("AttachFile error: %v", err)
	}
	app, err := f.svc.Submit(ctx, alice())
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}

	// submitted can only move to under_review without an override
	if _, err := f.svc.SetStage(ctx, app.ID, models.StageAdvanced, false); !errors.Is(err, application.ErrInvalidStage) {
		t.Fatalf("expected ErrInvalidStage skipping review, got %v", err)
	}
	if _, err := f.svc.SetStage(ctx, app.ID, models.StageUnderReview, false); err != nil {
		t.Fatalf("SetStage under_review error: %v", err)
	}
	if _, err := f.svc.SetStage(ctx, app.ID, models.StageHeld, false); err != nil {
		t.Fatalf("SetStage held error: %v", err)
	}
	if _, err := f.svc.SetStage(ctx, app.ID, models.StageAdvanced, false); err != nil {
		t.Fatalf("SetStage advanced from held error: %v", err)
	}

	// moving backwards needs the override
	if _, err := f.svc.SetStage(ctx, app.ID, models.StageDraft, false); !errors.Is(err, application.ErrInvalidStage) {
		t.Fatalf("expected ErrInvalidStage moving backwards, got %v", err)
	}
	if _, err := f.svc.SetStage(ctx, app.ID, models.StageDraft, true); err != nil {
		t.Fatalf("override SetStage error: %v", err)
	}

	if _, err := f.svc.SetStage(ctx, app.ID, models.Stage("bogus"), true); !errors.Is(err, application.ErrInvalidStage) {
		t.Fatalf("expected ErrInvalidStage for unknown stage, got %v", err)
	}
}

func TestSummarize(t *testing.T) {
	f := setup(t)
	defer f.cleanup()
	ctx := context.Background()

	if _, err := f.svc.Save(ctx, alice(), "engineering", map[string]string{"essay": words(50)}); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if _, err := f.svc.AttachFile(ctx, alice(), "resume", "resume.pdf", strings.NewReader("pdf")); err != nil {
		t.Fatalf("AttachFile error: %v", err)
	}
	app, err := f.svc.Submit(ctx, alice())
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}

	for i, rv := range []*models.Review{
		{Scores: map[string]float64{"technical": 4, "communication": 3}, Recommend: models.RecommendAdvance},
		{Scores: map[string]float64{"technical": 2}, Recommend: models.RecommendHold},
	} {
		rv.CycleID = f.cycleID
		rv.ApplicationID = app.ID
		rv.ReviewerEmail = []string{"r1@example.com", "r2@example.com"}[i]
		rv.Phase = "screen"
		if _, err := f.repo.UpsertReview(ctx, rv); err != nil {
			t.Fatalf("UpsertReview error: %v", err)
		}
	}

	// hang a referral off a coffee-chat booking
	slotID, err := f.repo.CreateSlot(ctx, &models.Slot{
		CycleID:     f.cycleID,
		Kind:        models.SlotCoffeeChat,
		HostName:    "Host",
		HostEmail:   "host@example.com",
		StartTime:   time.Now().Add(48 * time.Hour).Unix(),
		EndTime:     time.Now().Add(49 * time.Hour).Unix(),
		MaxBookings: 1,
	})
	if err != nil {
		t.Fatalf("CreateSlot error: %v", err)
	}
	b, err := f.engine.Book(ctx, slotID, alice())
	if err != nil {
		t.Fatalf("Book error: %v", err)
	}
	if _, err := f.repo.UpsertReferral(ctx, &models.CoffeeChatReferral{
		CycleID:        f.cycleID,
		BookingID:      b.ID,
		ApplicantEmail: alice().Email,
		HostEmail:      "host@example.com",
		Signal:         models.SignalReferral,
	}); err != nil {
		t.Fatalf("UpsertReferral error: %v", err)
	}

	sum, err := f.svc.Summarize(ctx, app.ID)
	if err != nil {
		t.Fatalf("Summarize error: %v", err)
	}
	if sum.ReviewCount != 2 {
		t.Fatalf("expected 2 reviews, got %d", sum.ReviewCount)
	}
	if sum.ScoreMeans["technical"] != 3 {
		t.Fatalf("expected technical mean 3, got %v", sum.ScoreMeans["technical"])
	}
	if sum.ScoreMeans["communication"] != 3 {
		t.Fatalf("expected communication mean 3, got %v", sum.ScoreMeans["communication"])
	}
	if sum.Recommendations[models.RecommendAdvance] != 1 || sum.Recommendations[models.RecommendHold] != 1 {
		t.Fatalf("unexpected recommendation tally: %#v", sum.Recommendations)
	}
	if sum.ReferralSignals[models.SignalReferral] != 1 {
		t.Fatalf("unexpected referral signals: %#v", sum.ReferralSignals)
	}

	if _, err := f.svc.Summarize(ctx, 9999); !errors.Is(err, application.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
