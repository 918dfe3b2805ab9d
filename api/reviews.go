package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/guildops/recruit/pkg/models"
	"github.com/guildops/recruit/pkg/repository"
)

type ReviewsHandler struct {
	reviewRepo    repository.ReviewRepo
	referralRepo  repository.ReferralRepo
	bookingRepo   repository.BookingRepo
	slotRepo      repository.SlotRepo
	appRepo       repository.ApplicationRepo
	whitelistRepo repository.WhitelistRepo
	queue         Queue
}

func NewReviewsHandler(
	rr repository.ReviewRepo,
	fr repository.ReferralRepo,
	br repository.BookingRepo,
	sr repository.SlotRepo,
	ar repository.ApplicationRepo,
	wr repository.WhitelistRepo,
	q Queue,
) *ReviewsHandler {
	return &ReviewsHandler{
		reviewRepo:    rr,
		referralRepo:  fr,
		bookingRepo:   br,
		slotRepo:      sr,
		appRepo:       ar,
		whitelistRepo: wr,
		queue:         q,
	}
}

type reviewRequest struct {
	ApplicationID int64                 `json:"application_id"`
	Phase         string                `json:"phase"`
	Scores        map[string]float64    `json:"scores"`
	Recommend     models.Recommendation `json:"recommendation,omitempty"`
	Notes         string                `json:"notes,omitempty"`
}

// UpsertReview stores the calling admin's review for an application phase.
// Re-submission revises the same review; it never duplicates.
func (h *ReviewsHandler) UpsertReview(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())

	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.ApplicationID <= 0 || req.Phase == "" {
		writeError(w, "application_id and phase are required", http.StatusBadRequest)
		return
	}
	switch req.Recommend {
	case "", models.RecommendAdvance, models.RecommendHold, models.RecommendReject:
	default:
		writeError(w, "recommendation must be advance, hold or reject", http.StatusBadRequest)
		return
	}

	app, err := h.appRepo.GetApplication(r.Context(), req.ApplicationID)
	if err != nil {
		logger.Error("get application", "err", err)
		writeError(w, "failed to load application", http.StatusInternalServerError)
		return
	}
	if app == nil {
		writeError(w, "application not found", http.StatusNotFound)
		return
	}

	rv := &models.Review{
		CycleID:       app.CycleID,
		ApplicationID: req.ApplicationID,
		ReviewerEmail: id.Email,
		Phase:         req.Phase,
		Scores:        req.Scores,
		Recommend:     req.Recommend,
		Notes:         req.Notes,
	}

	rvID, err := h.reviewRepo.UpsertReview(r.Context(), rv)
	if err != nil {
		logger.Error("upsert review", "err", err)
		writeError(w, "failed to store review", http.StatusInternalServerError)
		return
	}
	rv.ID = rvID

	enqueueAudit(r, h.queue, "review.upsert", "application", req.ApplicationID, map[string]any{"phase": req.Phase})

	writeJSON(w, rv, http.StatusOK)
}

type referralRequest struct {
	BookingID int64                 `json:"booking_id"`
	Signal    models.ReferralSignal `json:"signal"`
	Notes     string                `json:"notes,omitempty"`
}

// UpsertReferral records the host's post-chat signal. The caller must be
// the host recorded on the booking's slot; anyone else is refused no matter
// what the payload claims.
func (h *ReviewsHandler) UpsertReferral(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())

	var req referralRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.BookingID <= 0 {
		writeError(w, "booking_id is required", http.StatusBadRequest)
		return
	}
	if !models.ValidSignal(req.Signal) {
		writeError(w, "signal must be referral, neutral or deferral", http.StatusBadRequest)
		return
	}

	b, err := h.bookingRepo.GetBooking(r.Context(), req.BookingID)
	if err != nil {
		logger.Error("get booking", "err", err)
		writeError(w, "failed to load booking", http.StatusInternalServerError)
		return
	}
	if b == nil {
		writeError(w, "booking not found", http.StatusNotFound)
		return
	}
	if b.SlotKind != models.SlotCoffeeChat {
		writeError(w, "referrals apply to coffee chat bookings only", http.StatusBadRequest)
		return
	}

	slot, err := h.slotRepo.GetSlot(r.Context(), b.SlotID)
	if err != nil || slot == nil {
		logger.Error("get slot", "err", err)
		writeError(w, "failed to load slot", http.StatusInternalServerError)
		return
	}
	if !strings.EqualFold(slot.HostEmail, id.Email) {
		writeError(w, "only the host who conducted this chat may leave a referral", http.StatusForbidden)
		return
	}

	ref := &models.CoffeeChatReferral{
		CycleID:        b.CycleID,
		BookingID:      b.ID,
		ApplicantEmail: b.ApplicantEmail,
		HostEmail:      slot.HostEmail,
		Signal:         req.Signal,
		Notes:          req.Notes,
	}
	if app, err := h.appRepo.GetByUser(r.Context(), b.CycleID, b.UserID); err == nil && app != nil {
		ref.ApplicationID = &app.ID
	}

	refID, err := h.referralRepo.UpsertReferral(r.Context(), ref)
	if err != nil {
		logger.Error("upsert referral", "err", err)
		writeError(w, "failed to store referral", http.StatusInternalServerError)
		return
	}
	ref.ID = refID

	enqueueAudit(r, h.queue, "referral.upsert", "booking", b.ID, map[string]any{"signal": req.Signal})

	writeJSON(w, ref, http.StatusOK)
}

type whitelistRequest struct {
	CycleID int64    `json:"cycle_id"`
	Emails  []string `json:"emails"`
}

func (h *ReviewsHandler) AddWhitelisted(w http.ResponseWriter, r *http.Request) {
	var req whitelistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.CycleID <= 0 || len(req.Emails) == 0 {
		writeError(w, "cycle_id and emails are required", http.StatusBadRequest)
		return
	}

	if err := h.whitelistRepo.AddWhitelisted(r.Context(), req.CycleID, req.Emails); err != nil {
		logger.Error("add whitelist", "err", err)
		writeError(w, "failed to update whitelist", http.StatusInternalServerError)
		return
	}

	enqueueAudit(r, h.queue, "whitelist.add", "cycle", req.CycleID, map[string]any{"count": len(req.Emails)})

	writeJSON(w, map[string]any{"added": len(req.Emails)}, http.StatusOK)
}
