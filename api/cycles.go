package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/guildops/recruit/internal/questions"
	"github.com/guildops/recruit/pkg/models"
	"github.com/guildops/recruit/pkg/repository"
)

type CyclesHandler struct {
	cycleRepo repository.CycleRepo
	queue     Queue
}

func NewCyclesHandler(cr repository.CycleRepo, q Queue) *CyclesHandler {
	return &CyclesHandler{cycleRepo: cr, queue: q}
}

type cycleRequest struct {
	Slug             string          `json:"slug"`
	Name             string          `json:"name"`
	PortalOpenAt     int64           `json:"portal_open_at"`
	PortalCloseAt    int64           `json:"portal_close_at"`
	ApplicationDueAt int64           `json:"application_due_at"`
	Settings         json.RawMessage `json:"settings,omitempty"`
}

func (req *cycleRequest) validate(ctx *http.Request) string {
	if req.Slug == "" || req.Name == "" {
		return "slug and name are required"
	}
	if req.PortalOpenAt <= 0 || req.PortalCloseAt <= 0 {
		return "portal_open_at and portal_close_at are required"
	}
	if req.PortalOpenAt >= req.PortalCloseAt {
		return "portal_open_at must be before portal_close_at"
	}
	if req.ApplicationDueAt <= 0 {
		return "application_due_at is required"
	}
	if len(req.Settings) > 0 {
		if err := questions.ValidateSettings(ctx.Context(), req.Settings); err != nil {
			return err.Error()
		}
	}
	return ""
}

func (h *CyclesHandler) CreateCycle(w http.ResponseWriter, r *http.Request) {
	var req cycleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request", http.StatusBadRequest)
		return
	}
	if msg := req.validate(r); msg != "" {
		writeError(w, msg, http.StatusBadRequest)
		return
	}

	c := &models.Cycle{
		Slug:             req.Slug,
		Name:             req.Name,
		PortalOpenAt:     req.PortalOpenAt,
		PortalCloseAt:    req.PortalCloseAt,
		ApplicationDueAt: req.ApplicationDueAt,
		Settings:         string(req.Settings),
	}

	id, err := h.cycleRepo.CreateCycle(r.Context(), c)
	if err != nil {
		logger.Error("create cycle", "err", err)
		writeError(w, "failed to create cycle", http.StatusInternalServerError)
		return
	}
	c.ID = id

	h.audit(r, "cycle.create", id)

	writeJSON(w, c, http.StatusCreated)
}

func (h *CyclesHandler) UpdateCycle(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	existing, err := h.cycleRepo.GetCycle(r.Context(), id)
	if err != nil {
		logger.Error("get cycle", "err", err)
		writeError(w, "failed to load cycle", http.StatusInternalServerError)
		return
	}
	if existing == nil {
		writeError(w, "cycle not found", http.StatusNotFound)
		return
	}

	var req cycleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request", http.StatusBadRequest)
		return
	}
	if msg := req.validate(r); msg != "" {
		writeError(w, msg, http.StatusBadRequest)
		return
	}

	existing.Slug = req.Slug
	existing.Name = req.Name
	existing.PortalOpenAt = req.PortalOpenAt
	existing.PortalCloseAt = req.PortalCloseAt
	existing.ApplicationDueAt = req.ApplicationDueAt
	if len(req.Settings) > 0 {
		existing.Settings = string(req.Settings)
	}

	if err := h.cycleRepo.UpdateCycle(r.Context(), existing); err != nil {
		logger.Error("update cycle", "err", err)
		writeError(w, "failed to update cycle", http.StatusInternalServerError)
		return
	}

	h.audit(r, "cycle.update", id)

	writeJSON(w, existing, http.StatusOK)
}

// ActivateCycle flips the single active cycle. The repo does the
// demote-all-promote-one in one transaction, so concurrent activations and
// readers always see exactly one active cycle.
func (h *CyclesHandler) ActivateCycle(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.cycleRepo.SetActiveCycle(r.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, "cycle not found", http.StatusNotFound)
			return
		}
		logger.Error("activate cycle", "err", err)
		writeError(w, "failed to activate cycle", http.StatusInternalServerError)
		return
	}

	cycle, err := h.cycleRepo.GetCycle(r.Context(), id)
	if err != nil {
		logger.Error("get cycle", "err", err)
		writeError(w, "failed to load cycle", http.StatusInternalServerError)
		return
	}

	h.audit(r, "cycle.activate", id)

	writeJSON(w, cycle, http.StatusOK)
}

// ActiveCycle is the scope-resolution read used by every applicant-facing
// page. No active cycle is a normal "portal closed" answer, not an error.
func (h *CyclesHandler) ActiveCycle(w http.ResponseWriter, r *http.Request) {
	cycle, err := h.cycleRepo.GetActiveCycle(r.Context())
	if err != nil {
		logger.Error("get active cycle", "err", err)
		writeError(w, "failed to load active cycle", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{"cycle": cycle}, http.StatusOK)
}

func (h *CyclesHandler) ListCycles(w http.ResponseWriter, r *http.Request) {
	cycles, err := h.cycleRepo.ListCycles(r.Context())
	if err != nil {
		logger.Error("list cycles", "err", err)
		writeError(w, "failed to list cycles", http.StatusInternalServerError)
		return
	}
	if cycles == nil {
		cycles = []models.Cycle{}
	}

	writeJSON(w, cycles, http.StatusOK)
}

func (h *CyclesHandler) audit(r *http.Request, action string, cycleID int64) {
	enqueueAudit(r, h.queue, action, "cycle", cycleID, nil)
}

// pathID parses the {name} path variable as a positive integer id.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, "invalid "+name, http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
