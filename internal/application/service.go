// Package application owns the applicant's draft to decision state machine:
// draft saves, the submission gate, admin stage transitions, and the
// review/referral aggregation surface admins decide from.
package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/guildops/recruit/internal/files"
	"github.com/guildops/recruit/internal/questions"
	"github.com/guildops/recruit/pkg/models"
	"github.com/guildops/recruit/pkg/repository"
)

var (
	ErrNoActiveCycle    = errors.New("no recruitment cycle is currently open")
	ErrNotFound         = errors.New("application not found")
	ErrAlreadySubmitted = errors.New("application has already been submitted")
	ErrDeadlinePassed   = errors.New("the application deadline has passed")
	ErrInvalidStage     = errors.New("invalid stage transition")
)

// SubmitError carries the complete set of gate violations so the caller can
// render every problem at once instead of one per attempt.
type SubmitError struct {
	MissingFields []string
	OverLimit     []string
}

func (e *SubmitError) Error() string {
	var parts []string
	if len(e.MissingFields) > 0 {
		parts = append(parts, fmt.Sprintf("missing required fields: %s", strings.Join(e.MissingFields, ", ")))
	}
	if len(e.OverLimit) > 0 {
		parts = append(parts, fmt.Sprintf("over word limit: %s", strings.Join(e.OverLimit, ", ")))
	}
	return strings.Join(parts, "; ")
}

type Service struct {
	apps      repository.ApplicationRepo
	cycles    repository.CycleRepo
	reviews   repository.ReviewRepo
	referrals repository.ReferralRepo
	bookings  repository.BookingRepo
	store     files.Store
	logger    *slog.Logger
	nowFn     func() time.Time
}

func NewService(
	apps repository.ApplicationRepo,
	cycles repository.CycleRepo,
	reviews repository.ReviewRepo,
	referrals repository.ReferralRepo,
	bookings repository.BookingRepo,
	store files.Store,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		apps:      apps,
		cycles:    cycles,
		reviews:   reviews,
		referrals: referrals,
		bookings:  bookings,
		store:     store,
		logger:    logger,
		nowFn:     time.Now,
	}
}

// SetNow overrides the service clock. Tests only.
func (s *Service) SetNow(fn func() time.Time) {
	if fn != nil {
		s.nowFn = fn
	}
}

// Get returns the caller's application under the active cycle, or
// ErrNoActiveCycle when the portal is closed. A missing application is not
// an error on the read path; callers get (nil, nil).
func (s *Service) Get(ctx context.Context, id models.Identity) (*models.Application, error) {
	cycle, err := s.activeCycle(ctx)
	if err != nil {
		return nil, err
	}

	return s.apps.GetByUser(ctx, cycle.ID, id.UserID)
}

// Save upserts the applicant's draft answers. The first save moves the
// application from not_started to draft; once submitted, answers are frozen.
func (s *Service) Save(ctx context.Context, id models.Identity, track string, answers map[string]string) (*models.Application, error) {
	cycle, err := s.activeCycle(ctx)
	if err != nil {
		return nil, err
	}

	app, err := s.apps.GetByUser(ctx, cycle.ID, id.UserID)
	if err != nil {
		return nil, err
	}

	if app == nil {
		app = &models.Application{
			CycleID: cycle.ID,
			UserID:  id.UserID,
			Track:   track,
			Stage:   models.StageDraft,
			Answers: answers,
		}
		appID, err := s.apps.CreateApplication(ctx, app)
		if err != nil {
			return nil, err
		}
		app.ID = appID
		return app, nil
	}

	if app.Stage != models.StageNotStarted && app.Stage != models.StageDraft {
		return nil, ErrAlreadySubmitted
	}

	if track == "" {
		track = app.Track
	}
	merged := app.Answers
	if merged == nil {
		merged = map[string]string{}
	}
	for k, v := range answers {
		merged[k] = v
	}
	if err := s.apps.UpdateAnswers(ctx, app.ID, track, merged); err != nil {
		return nil, err
	}
	if app.Stage == models.StageNotStarted {
		if err := s.apps.SetStage(ctx, app.ID, models.StageDraft, nil); err != nil {
			return nil, err
		}
	}

	app.Track = track
	app.Answers = merged
	app.Stage = models.StageDraft
	return app, nil
}

// AttachFile uploads a file answer and records the returned URL under the
// question key. Only the URL is stored; the bytes live in the file store.
func (s *Service) AttachFile(ctx context.Context, id models.Identity, key, filename string, r io.Reader) (*models.Application, error) {
	cycle, err := s.activeCycle(ctx)
	if err != nil {
		return nil, err
	}

	app, err := s.apps.GetByUser(ctx, cycle.ID, id.UserID)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, ErrNotFound
	}
	if app.Stage != models.StageNotStarted && app.Stage != models.StageDraft {
		return nil, ErrAlreadySubmitted
	}

	url, err := s.store.Upload(ctx, r, filename)
	if err != nil {
		return nil, fmt.Errorf("upload file: %w", err)
	}

	if app.Files == nil {
		app.Files = map[string]string{}
	}
	app.Files[key] = url
	if err := s.apps.UpdateFiles(ctx, app.ID, app.Files); err != nil {
		return nil, err
	}

	return app, nil
}

// Submit is the hard gate into the review pipeline. It validates against the
// question set configured for the applicant's track and collects every
// violation before failing, so one response shows the whole fix list.
func (s *Service) Submit(ctx context.Context, id models.Identity) (*models.Application, error) {
	cycle, err := s.activeCycle(ctx)
	if err != nil {
		return nil, err
	}

	app, err := s.apps.GetByUser(ctx, cycle.ID, id.UserID)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, ErrNotFound
	}
	if app.Stage != models.StageNotStarted && app.Stage != models.StageDraft {
		return nil, ErrAlreadySubmitted
	}

	now := s.nowFn().UTC()
	if now.Unix() > cycle.ApplicationDueAt {
		return nil, ErrDeadlinePassed
	}

	cfg, err := questions.Parse(cycle.Settings)
	if err != nil {
		return nil, err
	}

	gateErr := &SubmitError{}
	for _, f := range cfg.ForTrack(app.Track) {
		if f.Required {
			if f.Type == questions.TypeFile {
				if strings.TrimSpace(app.Files[f.Key]) == "" {
					gateErr.MissingFields = append(gateErr.MissingFields, f.Key)
				}
			} else if strings.TrimSpace(app.Answers[f.Key]) == "" {
				gateErr.MissingFields = append(gateErr.MissingFields, f.Key)
			}
		}
		if f.WordLimit > 0 && questions.WordCount(app.Answers[f.Key]) > f.WordLimit {
			gateErr.OverLimit = append(gateErr.OverLimit, f.Key)
		}
	}
	if len(gateErr.MissingFields) > 0 || len(gateErr.OverLimit) > 0 {
		return nil, gateErr
	}

	submittedAt := now.UnixMilli()
	if err := s.apps.SetStage(ctx, app.ID, models.StageSubmitted, &submittedAt); err != nil {
		return nil, err
	}

	s.logger.Info("application submitted",
		slog.Int64("application_id", app.ID),
		slog.Int64("user_id", id.UserID),
		slog.String("track", app.Track),
	)

	app.Stage = models.StageSubmitted
	app.SubmittedAt = &submittedAt
	return app, nil
}

// forward transitions an admin decision may take without an override.
var forwardStages = map[models.Stage][]models.Stage{
	models.StageSubmitted:   {models.StageUnderReview},
	models.StageUnderReview: {models.StageAdvanced, models.StageHeld, models.StageRejected},
	models.StageHeld:        {models.StageAdvanced, models.StageRejected},
}

// SetStage drives the decision pipeline. Without override the stage only
// moves forward from submitted; override lets an admin set any stage and is
// expected to be audited by the caller.
func (s *Service) SetStage(ctx context.Context, applicationID int64, stage models.Stage, override bool) (*models.Application, error) {
	if !models.ValidStage(stage) {
		return nil, ErrInvalidStage
	}

	app, err := s.apps.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, ErrNotFound
	}

	if !override {
		allowed := false
		for _, next := range forwardStages[app.Stage] {
			if next == stage {
				allowed = true
				break
			}
		}
		if !allowed {
			return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStage, app.Stage, stage)
		}
	}

	if err := s.apps.SetStage(ctx, applicationID, stage, nil); err != nil {
		return nil, err
	}

	app.Stage = stage
	return app, nil
}

// Summary is the aggregation read-model offered to admins: per-category
// score means, the recommendation distribution, and the coffee-chat referral
// signal distribution. It never writes a stage; the decision stays with a
// human.
type Summary struct {
	ApplicationID   int64                         `json:"application_id"`
	Stage           models.Stage                  `json:"stage"`
	ReviewCount     int                           `json:"review_count"`
	ScoreMeans      map[string]float64            `json:"score_means"`
	Recommendations map[models.Recommendation]int `json:"recommendations"`
	ReferralSignals map[models.ReferralSignal]int `json:"referral_signals"`
	Reviews         []models.Review               `json:"reviews"`
	Referrals       []models.CoffeeChatReferral   `json:"referrals"`
}

func (s *Service) Summarize(ctx context.Context, applicationID int64) (*Summary, error) {
	app, err := s.apps.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, ErrNotFound
	}

	reviews, err := s.reviews.ListReviewsByApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	sum := &Summary{
		ApplicationID:   app.ID,
		Stage:           app.Stage,
		ReviewCount:     len(reviews),
		ScoreMeans:      map[string]float64{},
		Recommendations: map[models.Recommendation]int{},
		ReferralSignals: map[models.ReferralSignal]int{},
		Reviews:         reviews,
	}

	counts := map[string]int{}
	for _, rv := range reviews {
		for category, score := range rv.Scores {
			sum.ScoreMeans[category] += score
			counts[category]++
		}
		if rv.Recommend != "" {
			sum.Recommendations[rv.Recommend]++
		}
	}
	for category, total := range sum.ScoreMeans {
		sum.ScoreMeans[category] = total / float64(counts[category])
	}

	// Referral signals hang off the applicant's coffee-chat bookings, not
	// the application row, so walk the bookings.
	userBookings, err := s.bookings.ListByUser(ctx, app.CycleID, app.UserID)
	if err != nil {
		return nil, err
	}
	for _, b := range userBookings {
		if b.SlotKind != models.SlotCoffeeChat {
			continue
		}
		ref, err := s.referrals.GetByBooking(ctx, b.ID)
		if err != nil {
			return nil, err
		}
		if ref == nil {
			continue
		}
		sum.ReferralSignals[ref.Signal]++
		sum.Referrals = append(sum.Referrals, *ref)
	}

	return sum, nil
}

func (s *Service) activeCycle(ctx context.Context) (*models.Cycle, error) {
	cycle, err := s.cycles.GetActiveCycle(ctx)
	if err != nil {
		return nil, err
	}
	if cycle == nil {
		return nil, ErrNoActiveCycle
	}
	return cycle, nil
}
