package sqlite_test

import (
	"context"
	"sync"
	"testing"

	dbfs "github.com/guildops/recruit/db"
	dbpkg "github.com/guildops/recruit/internal/db"
	sqlite "github.com/guildops/recruit/internal/repository/sqlite"
	"github.com/guildops/recruit/pkg/models"
)

func setupRepo(t *testing.T) (*sqlite.SQLiteRepo, func()) {
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
	return repo, func() { d.Close() }
}

func seedCycle(t *testing.T, repo *sqlite.SQLiteRepo, slug string) int64 {
	t.Helper()
	ctx := context.Background()
	id, err := repo.CreateCycle(ctx, &models.Cycle{
		Slug:             slug,
		Name:             "Cycle " + slug,
		PortalOpenAt:     1000,
		PortalCloseAt:    9000,
		ApplicationDueAt: 5000,
	})
	if err != nil {
		t.Fatalf("CreateCycle error: %v", err)
	}
	return id
}

func seedUser(t *testing.T, repo *sqlite.SQLiteRepo, email string) int64 {
	t.Helper()
	id, err := repo.CreateUser(context.Background(), &models.User{Name: email, Email: email, PasswordHash: "hash"})
	if err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}
	return id
}

func TestUserCRUD(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := repo.CreateUser(ctx, nil); err == nil {
		t.Fatalf("expected error when creating nil user")
	}

	got, err := repo.GetUserByID(ctx, 9999)
	if err != nil {
		t.Fatalf("expected no error when getting non-existing ID")
	}
	if got != nil {
		t.Fatalf("expected nil when getting non-existing ID got: %#v", got)
	}

	u := &models.User{Name: "Alice", Email: "alice@example.com", PasswordHash: "hash"}
	id, err := repo.CreateUser(ctx, u)
	if err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}
	if id == 0 {
		t.Fatalf("expected non-zero id")
	}

	got, err = repo.GetUserByID(ctx, id)
	if err != nil {
		t.Fatalf("GetUserByID error: %v", err)
	}
	if got == nil || got.Email != u.Email {
		t.Fatalf("GetUserByID wrong result: %#v", got)
	}

	byEmail, err := repo.GetUserByEmail(ctx, u.Email)
	if err != nil {
		t.Fatalf("GetUserByEmail error: %v", err)
	}
	if byEmail == nil || byEmail.ID != id {
		t.Fatalf("GetUserByEmail wrong result: %#v", byEmail)
	}

	// duplicate email must be rejected by the unique constraint
	if _, err := repo.CreateUser(ctx, &models.User{Name: "Alice2", Email: "alice@example.com", PasswordHash: "hash"}); err == nil {
		t.Fatalf("expected error on duplicate email")
	}
}

func TestActiveCycleUniqueness(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()
	ctx := context.Background()

	// No active cycle yet: (nil, nil) means portal closed, not an error.
	active, err := repo.GetActiveCycle(ctx)
	if err != nil {
		t.Fatalf("GetActiveCycle error: %v", err)
	}
	if active != nil {
		t.Fatalf("expected no active cycle, got %#v", active)
	}

	a := seedCycle(t, repo, "spring-2026")
	b := seedCycle(t, repo, "fall-2026")

	if err := repo.SetActiveCycle(ctx, a); err != nil {
		t.Fatalf("SetActiveCycle error: %v", err)
	}
	active, err = repo.GetActiveCycle(ctx)
	if err != nil || active == nil || active.ID != a {
		t.Fatalf("expected cycle %d active, got %#v (err %v)", a, active, err)
	}

	// Activating another cycle demotes the first in the same transaction.
	if err := repo.SetActiveCycle(ctx, b); err != nil {
		t.Fatalf("SetActiveCycle error: %v", err)
	}
	cycles, err := repo.ListCycles(ctx)
	if err != nil {
		t.Fatalf("ListCycles error: %v", err)
	}
	activeCount := 0
	for _, c := range cycles {
		if c.IsActive {
			activeCount++
			if c.ID != b {
				t.Fatalf("wrong cycle active: %d", c.ID)
			}
		}
	}
	if activeCount != 1 {
		t.Fatalf("expected exactly one active cycle, got %d", activeCount)
	}

	// Activating a non-existing cycle must not demote the current one.
	if err := repo.SetActiveCycle(ctx, 9999); err == nil {
		t.Fatalf("expected error activating non-existing cycle")
	}
	active, err = repo.GetActiveCycle(ctx)
	if err != nil || active == nil || active.ID != b {
		t.Fatalf("active cycle lost after failed activation: %#v (err %v)", active, err)
	}
}

func TestActiveCycleConcurrentActivation(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()
	ctx := context.Background()

	ids := make([]int64, 5)
	for i := range ids {
		ids[i] = seedCycle(t, repo, "cycle-"+string(rune('a'+i)))
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			if err := repo.SetActiveCycle(ctx, id); err != nil {
				t.Errorf("SetActiveCycle(%d) error: %v", id, err)
			}
		}(id)
	}
	wg.Wait()

	cycles, err := repo.ListCycles(ctx)
	if err != nil {
		t.Fatalf("ListCycles error: %v", err)
	}
	activeCount := 0
	for _, c := range cycles {
		if c.IsActive {
			activeCount++
		}
	}
	if activeCount != 1 {
		t.Fatalf("expected exactly one active cycle after concurrent activation, got %d", activeCount)
	}
}

func TestSlotListAndDelete(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()
	ctx := context.Background()

	cycleID := seedCycle(t, repo, "spring-2026")

	mk := func(kind models.SlotKind, host string, start int64) int64 {
		id, err := repo.CreateSlot(ctx, &models.Slot{
			CycleID:     cycleID,
			Kind:        kind,
			HostName:    host,
			HostEmail:   host + "@example.com",
			StartTime:   start,
			EndTime:     start + 1800,
			MaxBookings: 1,
		})
		if err != nil {
			t.Fatalf("CreateSlot error: %v", err)
		}
		return id
	}

	s1 := mk(models.SlotCoffeeChat, "bob", 2000)
	mk(models.SlotInterviewRound1, "carol", 3000)
	mk(models.SlotCoffeeChat, "bob", 1000)

	all, err := repo.ListByCycle(ctx, cycleID, "", false)
	if err != nil {
		t.Fatalf("ListByCycle error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 slots, got %d", len(all))
	}
	if all[0].StartTime > all[1].StartTime {
		t.Fatalf("slots not ordered by start time")
	}

	coffee, err := repo.ListByCycle(ctx, cycleID, models.SlotCoffeeChat, true)
	if err != nil {
		t.Fatalf("ListByCycle kind filter error: %v", err)
	}
	if len(coffee) != 2 {
		t.Fatalf("expected 2 coffee chat slots, got %d", len(coffee))
	}
	if coffee[0].ActiveBookings == nil || *coffee[0].ActiveBookings != 0 {
		t.Fatalf("expected zero active bookings annotation, got %#v", coffee[0].ActiveBookings)
	}
	if coffee[0].AvailableSpots == nil || *coffee[0].AvailableSpots != 1 {
		t.Fatalf("expected one available spot, got %#v", coffee[0].AvailableSpots)
	}

	mine, err := repo.ListByHostEmail(ctx, "bob@example.com", cycleID)
	if err != nil {
		t.Fatalf("ListByHostEmail error: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("expected 2 slots for host, got %d", len(mine))
	}

	if err := repo.DeleteSlot(ctx, s1); err != nil {
		t.Fatalf("DeleteSlot error: %v", err)
	}
	if err := repo.DeleteSlot(ctx, s1); err == nil {
		t.Fatalf("expected error deleting already-deleted slot")
	}
}

func TestApplicationStageAndAnswers(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()
	ctx := context.Background()

	cycleID := seedCycle(t, repo, "spring-2026")
	userID := seedUser(t, repo, "grace@example.com")

	appID, err := repo.CreateApplication(ctx, &models.Application{
		CycleID: cycleID,
		UserID:  userID,
		Track:   "engineering",
		Stage:   models.StageDraft,
		Answers: map[string]string{"essay": "hello"},
	})
	if err != nil {
		t.Fatalf("CreateApplication error: %v", err)
	}

	// one application per user per cycle
	if _, err := repo.CreateApplication(ctx, &models.Application{CycleID: cycleID, UserID: userID, Track: "engineering", Stage: models.StageDraft}); err == nil {
		t.Fatalf("expected error on second application for same user and cycle")
	}

	if err := repo.UpdateAnswers(ctx, appID, "design", map[string]string{"essay": "updated", "why": "because"}); err != nil {
		t.Fatalf("UpdateAnswers error: %v", err)
	}
	if err := repo.UpdateFiles(ctx, appID, map[string]string{"resume": "/uploads/x.pdf"}); err != nil {
		t.Fatalf("UpdateFiles error: %v", err)
	}

	submittedAt := int64(123456)
	if err := repo.SetStage(ctx, appID, models.StageSubmitted, &submittedAt); err != nil {
		t.Fatalf("SetStage error: %v", err)
	}

	got, err := repo.GetByUser(ctx, cycleID, userID)
	if err != nil {
		t.Fatalf("GetByUser error: %v", err)
	}
	if got == nil {
		t.Fatalf("expected application")
	}
	if got.Track != "design" || got.Answers["essay"] != "updated" || got.Answers["why"] != "because" {
		t.Fatalf("answers not persisted: %#v", got)
	}
	if got.Files["resume"] != "/uploads/x.pdf" {
		t.Fatalf("files not persisted: %#v", got.Files)
	}
	if got.Stage != models.StageSubmitted || got.SubmittedAt == nil || *got.SubmittedAt != submittedAt {
		t.Fatalf("stage not persisted: %#v", got)
	}

	list, err := repo.ListApplicationsByCycle(ctx, cycleID)
	if err != nil {
		t.Fatalf("ListApplicationsByCycle error: %v", err)
	}
	if len(list) != 1 || list[0].ID != appID {
		t.Fatalf("unexpected list: %#v", list)
	}
}

func TestReviewUpsertRevisesInPlace(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()
	ctx := context.Background()

	cycleID := seedCycle(t, repo, "spring-2026")
	userID := seedUser(t, repo, "grace@example.com")
	appID, err := repo.CreateApplication(ctx, &models.Application{CycleID: cycleID, UserID: userID, Track: "engineering", Stage: models.StageSubmitted})
	if err != nil {
		t.Fatalf("CreateApplication error: %v", err)
	}

	first, err := repo.UpsertReview(ctx, &models.Review{
		CycleID:       cycleID,
		ApplicationID: appID,
		ReviewerEmail: "reviewer@example.com",
		Phase:         "screen",
		Scores:        map[string]float64{"technical": 3},
		Recommend:     models.RecommendHold,
	})
	if err != nil {
		t.Fatalf("UpsertReview error: %v", err)
	}

	second, err := repo.UpsertReview(ctx, &models.Review{
		CycleID:       cycleID,
		ApplicationID: appID,
		ReviewerEmail: "reviewer@example.com",
		Phase:         "screen",
		Scores:        map[string]float64{"technical": 5},
		Recommend:     models.RecommendAdvance,
		Notes:         "much stronger on second read",
	})
	if err != nil {
		t.Fatalf("UpsertReview revise error: %v", err)
	}
	if second != first {
		t.Fatalf("expected revision to keep id %d, got %d", first, second)
	}

	reviews, err := repo.ListReviewsByApplication(ctx, appID)
	if err != nil {
		t.Fatalf("ListReviewsByApplication error: %v", err)
	}
	if len(reviews) != 1 {
		t.Fatalf("expected one review after revision, got %d", len(reviews))
	}
	if reviews[0].Scores["technical"] != 5 || reviews[0].Recommend != models.RecommendAdvance {
		t.Fatalf("revision not applied: %#v", reviews[0])
	}

	// a different phase is a separate review
	if _, err := repo.UpsertReview(ctx, &models.Review{
		CycleID:       cycleID,
		ApplicationID: appID,
		ReviewerEmail: "reviewer@example.com",
		Phase:         "final",
		Scores:        map[string]float64{"technical": 4},
	}); err != nil {
		t.Fatalf("UpsertReview second phase error: %v", err)
	}
	reviews, err = repo.ListReviewsByApplication(ctx, appID)
	if err != nil {
		t.Fatalf("ListReviewsByApplication error: %v", err)
	}
	if len(reviews) != 2 {
		t.Fatalf("expected two reviews across phases, got %d", len(reviews))
	}
}

func TestWhitelist(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()
	ctx := context.Background()

	cycleID := seedCycle(t, repo, "spring-2026")

	if err := repo.AddWhitelisted(ctx, cycleID, []string{"Dana@Example.com", "erin@example.com"}); err != nil {
		t.Fatalf("AddWhitelisted error: %v", err)
	}
	// re-adding is idempotent
	if err := repo.AddWhitelisted(ctx, cycleID, []string{"dana@example.com"}); err != nil {
		t.Fatalf("AddWhitelisted repeat error: %v", err)
	}

	ok, err := repo.IsWhitelisted(ctx, cycleID, "DANA@example.com")
	if err != nil {
		t.Fatalf("IsWhitelisted error: %v", err)
	}
	if !ok {
		t.Fatalf("expected dana to be whitelisted regardless of case")
	}

	ok, err = repo.IsWhitelisted(ctx, cycleID, "frank@example.com")
	if err != nil {
		t.Fatalf("IsWhitelisted error: %v", err)
	}
	if ok {
		t.Fatalf("frank should not be whitelisted")
	}
}
