package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/guildops/recruit/pkg/models"
	"github.com/guildops/recruit/pkg/repository"
)

type SlotsHandler struct {
	slotRepo  repository.SlotRepo
	cycleRepo repository.CycleRepo
	queue     Queue
}

func NewSlotsHandler(sr repository.SlotRepo, cr repository.CycleRepo, q Queue) *SlotsHandler {
	return &SlotsHandler{slotRepo: sr, cycleRepo: cr, queue: q}
}

type slotRequest struct {
	CycleID         int64           `json:"cycle_id"`
	Kind            models.SlotKind `json:"kind"`
	HostName        string          `json:"host_name"`
	HostEmail       string          `json:"host_email"`
	StartTime       int64           `json:"start_time"`
	EndTime         int64           `json:"end_time"`
	DurationMinutes int             `json:"duration_minutes"`
	Location        string          `json:"location"`
	ForTrack        string          `json:"for_track"`
	MaxBookings     int             `json:"max_bookings"`
}

func (h *SlotsHandler) CreateSlot(w http.ResponseWriter, r *http.Request) {
	var req slotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request", http.StatusBadRequest)
		return
	}

	if !models.ValidSlotKind(req.Kind) {
		writeError(w, "kind must be one of coffee_chat, interview_round1, interview_round2", http.StatusBadRequest)
		return
	}
	if req.MaxBookings < 1 {
		writeError(w, "max_bookings must be at least 1", http.StatusBadRequest)
		return
	}
	if req.StartTime <= 0 || req.EndTime <= 0 || req.StartTime >= req.EndTime {
		writeError(w, "start_time must be before end_time", http.StatusBadRequest)
		return
	}
	if req.HostName == "" || req.HostEmail == "" {
		writeError(w, "host_name and host_email are required", http.StatusBadRequest)
		return
	}

	cycle, err := h.cycleRepo.GetCycle(r.Context(), req.CycleID)
	if err != nil {
		logger.Error("get cycle", "err", err)
		writeError(w, "failed to load cycle", http.StatusInternalServerError)
		return
	}
	if cycle == nil {
		writeError(w, "cycle not found", http.StatusNotFound)
		return
	}

	if req.DurationMinutes <= 0 {
		req.DurationMinutes = int((req.EndTime - req.StartTime) / 60)
	}

	s := &models.Slot{
		CycleID:         req.CycleID,
		Kind:            req.Kind,
		HostName:        req.HostName,
		HostEmail:       req.HostEmail,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		DurationMinutes: req.DurationMinutes,
		Location:        req.Location,
		ForTrack:        req.ForTrack,
		MaxBookings:     req.MaxBookings,
	}

	id, err := h.slotRepo.CreateSlot(r.Context(), s)
	if err != nil {
		logger.Error("create slot", "err", err)
		writeError(w, "failed to create slot", http.StatusInternalServerError)
		return
	}
	s.ID = id

	enqueueAudit(r, h.queue, "slot.create", "slot", id, map[string]any{"kind": s.Kind})

	writeJSON(w, s, http.StatusCreated)
}

// ListSlots renders availability. With include_bookings each slot carries
// live active_bookings and available_spots counted from confirmed bookings.
func (h *SlotsHandler) ListSlots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var cycleID int64
	if raw := q.Get("cycle_id"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v <= 0 {
			writeError(w, "invalid cycle_id", http.StatusBadRequest)
			return
		}
		cycleID = v
	} else {
		// default to the active cycle; a closed portal lists nothing
		cycle, err := h.cycleRepo.GetActiveCycle(r.Context())
		if err != nil {
			logger.Error("get active cycle", "err", err)
			writeError(w, "failed to load active cycle", http.StatusInternalServerError)
			return
		}
		if cycle == nil {
			writeJSON(w, map[string]any{"items": []models.Slot{}, "total": 0}, http.StatusOK)
			return
		}
		cycleID = cycle.ID
	}

	kind := models.SlotKind(q.Get("kind"))
	if kind != "" && !models.ValidSlotKind(kind) {
		writeError(w, "invalid kind", http.StatusBadRequest)
		return
	}

	withBookings := q.Get("include_bookings") == "true"

	slots, err := h.slotRepo.ListByCycle(r.Context(), cycleID, kind, withBookings)
	if err != nil {
		logger.Error("list slots", "err", err)
		writeError(w, "failed to list slots", http.StatusInternalServerError)
		return
	}
	if slots == nil {
		slots = []models.Slot{}
	}

	writeJSON(w, map[string]any{"items": slots, "total": len(slots)}, http.StatusOK)
}

// MySlots is the host-facing view. Hosts see their own slots; admins may
// ask for anyone's.
func (h *SlotsHandler) MySlots(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())

	hostEmail := r.URL.Query().Get("host_email")
	if hostEmail == "" {
		hostEmail = id.Email
	}
	if hostEmail != id.Email && !id.IsAdmin {
		writeError(w, "you may only list your own slots", http.StatusForbidden)
		return
	}

	var cycleID int64
	if raw := r.URL.Query().Get("cycle_id"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v <= 0 {
			writeError(w, "invalid cycle_id", http.StatusBadRequest)
			return
		}
		cycleID = v
	}

	slots, err := h.slotRepo.ListByHostEmail(r.Context(), hostEmail, cycleID)
	if err != nil {
		logger.Error("list host slots", "err", err)
		writeError(w, "failed to list slots", http.StatusInternalServerError)
		return
	}
	if slots == nil {
		slots = []models.Slot{}
	}

	writeJSON(w, map[string]any{"items": slots, "total": len(slots)}, http.StatusOK)
}

func (h *SlotsHandler) DeleteSlot(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.slotRepo.DeleteSlot(r.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, "slot not found", http.StatusNotFound)
			return
		}
		// Confirmed bookings block deletion; tell the admin why.
		writeError(w, err.Error(), http.StatusConflict)
		return
	}

	enqueueAudit(r, h.queue, "slot.delete", "slot", id, nil)

	w.WriteHeader(http.StatusNoContent)
}
