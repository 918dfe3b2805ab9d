package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/guildops/recruit/internal/booking"
	"github.com/guildops/recruit/internal/notify"
	"github.com/guildops/recruit/pkg/models"
	"github.com/guildops/recruit/pkg/repository"
)

type BookingsHandler struct {
	engine      *booking.Engine
	bookingRepo repository.BookingRepo
	slotRepo    repository.SlotRepo
	cycleRepo   repository.CycleRepo
	queue       Queue
}

func NewBookingsHandler(engine *booking.Engine, br repository.BookingRepo, sr repository.SlotRepo, cr repository.CycleRepo, q Queue) *BookingsHandler {
	return &BookingsHandler{engine: engine, bookingRepo: br, slotRepo: sr, cycleRepo: cr, queue: q}
}

type bookRequest struct {
	SlotID int64 `json:"slot_id"`
}

// Book reserves a spot. The engine serializes the capacity check and insert
// at the storage layer; the handler only translates errors and fires the
// best-effort side effects after the commit.
func (h *BookingsHandler) Book(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())

	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.SlotID <= 0 {
		writeError(w, "slot_id is required", http.StatusBadRequest)
		return
	}

	b, err := h.engine.Book(r.Context(), req.SlotID, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.notifyBooking(r, b, "confirmed")
	enqueueAudit(r, h.queue, "booking.create", "booking", b.ID, map[string]any{"slot_id": b.SlotID, "kind": b.SlotKind})

	writeJSON(w, b, http.StatusCreated)
}

// Cancel releases a booking. Applicants are held to the lead-time window;
// admins are not. Both run through the same engine transition.
func (h *BookingsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())

	bookingID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	b, err := h.engine.Cancel(r.Context(), bookingID, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.notifyBooking(r, b, "cancelled")
	enqueueAudit(r, h.queue, "booking.cancel", "booking", b.ID, map[string]any{"by_admin": id.IsAdmin})

	writeJSON(w, b, http.StatusOK)
}

// MyBookings lists the caller's bookings under the active cycle.
func (h *BookingsHandler) MyBookings(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())

	cycle, err := h.cycleRepo.GetActiveCycle(r.Context())
	if err != nil {
		logger.Error("get active cycle", "err", err)
		writeError(w, "failed to load active cycle", http.StatusInternalServerError)
		return
	}
	if cycle == nil {
		writeJSON(w, map[string]any{"items": []models.Booking{}, "total": 0}, http.StatusOK)
		return
	}

	items, err := h.bookingRepo.ListByUser(r.Context(), cycle.ID, id.UserID)
	if err != nil {
		logger.Error("list bookings", "err", err)
		writeError(w, "failed to list bookings", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []models.Booking{}
	}

	writeJSON(w, map[string]any{"items": items, "total": len(items)}, http.StatusOK)
}

// SlotBookings is the host/admin roster for one slot.
func (h *BookingsHandler) SlotBookings(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())

	slotID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	slot, err := h.slotRepo.GetSlot(r.Context(), slotID)
	if err != nil {
		logger.Error("get slot", "err", err)
		writeError(w, "failed to load slot", http.StatusInternalServerError)
		return
	}
	if slot == nil {
		writeError(w, "slot not found", http.StatusNotFound)
		return
	}
	if !id.IsAdmin && !strings.EqualFold(slot.HostEmail, id.Email) {
		writeError(w, "only the slot host may view its bookings", http.StatusForbidden)
		return
	}

	items, err := h.bookingRepo.ListBySlot(r.Context(), slotID)
	if err != nil {
		logger.Error("list slot bookings", "err", err)
		writeError(w, "failed to list bookings", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []models.Booking{}
	}

	writeJSON(w, map[string]any{"items": items, "total": len(items)}, http.StatusOK)
}

func (h *BookingsHandler) notifyBooking(r *http.Request, b *models.Booking, what string) {
	slot, err := h.slotRepo.GetSlot(r.Context(), b.SlotID)
	if err != nil || slot == nil {
		logger.Error("load slot for notification", "err", err)
		return
	}

	start := time.Unix(slot.StartTime, 0).UTC().Format(time.RFC1123)
	enqueueEmail(r, h.queue, notify.Message{
		To:      b.ApplicantEmail,
		Subject: fmt.Sprintf("Your %s booking is %s", b.SlotKind, what),
		Body:    fmt.Sprintf("Hi %s,\n\nYour %s with %s on %s is %s.\n", b.ApplicantName, b.SlotKind, slot.HostName, start, what),
	})
}
