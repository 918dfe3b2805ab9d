package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/guildops/recruit/internal/application"
	"github.com/guildops/recruit/internal/notify"
	"github.com/guildops/recruit/pkg/models"
	"github.com/guildops/recruit/pkg/repository"
)

// maxUploadBytes caps application file uploads.
const maxUploadBytes = 10 << 20

type ApplicationsHandler struct {
	svc     *application.Service
	appRepo repository.ApplicationRepo
	queue   Queue
}

func NewApplicationsHandler(svc *application.Service, ar repository.ApplicationRepo, q Queue) *ApplicationsHandler {
	return &ApplicationsHandler{svc: svc, appRepo: ar, queue: q}
}

// MyApplication returns the caller's application under the active cycle;
// null when nothing has been started yet.
func (h *ApplicationsHandler) MyApplication(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())

	app, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, map[string]any{"application": app}, http.StatusOK)
}

type saveRequest struct {
	Track   string            `json:"track"`
	Answers map[string]string `json:"answers"`
}

func (h *ApplicationsHandler) Save(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())

	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request", http.StatusBadRequest)
		return
	}

	app, err := h.svc.Save(r.Context(), id, req.Track, req.Answers)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, app, http.StatusOK)
}

// UploadFile accepts a multipart file for the question key in the path and
// records the stored URL on the draft.
func (h *ApplicationsHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	key := mux.Vars(r)["key"]
	if key == "" {
		writeError(w, "question key is required", http.StatusBadRequest)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, "invalid multipart upload", http.StatusBadRequest)
		return
	}
	f, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer f.Close()

	app, err := h.svc.AttachFile(r.Context(), id, key, header.Filename, f)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	enqueueAudit(r, h.queue, "application.file", "application", app.ID, map[string]any{"key": key})

	writeJSON(w, app, http.StatusOK)
}

func (h *ApplicationsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())

	app, err := h.svc.Submit(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	enqueueAudit(r, h.queue, "application.submit", "application", app.ID, map[string]any{"track": app.Track})
	enqueueEmail(r, h.queue, notify.Message{
		To:      id.Email,
		Subject: "Application received",
		Body:    "Hi " + id.Name + ",\n\nWe received your application. You can book a coffee chat while it is under review.\n",
	})

	writeJSON(w, app, http.StatusOK)
}

func (h *ApplicationsHandler) ListApplications(w http.ResponseWriter, r *http.Request) {
	cycleID, err := strconv.ParseInt(r.URL.Query().Get("cycle_id"), 10, 64)
	if err != nil || cycleID <= 0 {
		writeError(w, "cycle_id is required", http.StatusBadRequest)
		return
	}

	items, err := h.appRepo.ListApplicationsByCycle(r.Context(), cycleID)
	if err != nil {
		logger.Error("list applications", "err", err)
		writeError(w, "failed to list applications", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []models.Application{}
	}

	writeJSON(w, map[string]any{"items": items, "total": len(items)}, http.StatusOK)
}

type stageRequest struct {
	Stage    models.Stage `json:"stage"`
	Override bool         `json:"override"`
}

// SetStage is the admin decision action. Overrides are allowed but always
// recorded as such in the audit trail.
func (h *ApplicationsHandler) SetStage(w http.ResponseWriter, r *http.Request) {
	appID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req stageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request", http.StatusBadRequest)
		return
	}

	app, err := h.svc.SetStage(r.Context(), appID, req.Stage, req.Override)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	enqueueAudit(r, h.queue, "application.stage", "application", app.ID, map[string]any{"stage": req.Stage, "override": req.Override})

	writeJSON(w, app, http.StatusOK)
}

// Summary exposes the aggregated recommendation surface for one
// application. It is read-only; deciding remains a human action.
func (h *ApplicationsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	appID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	sum, err := h.svc.Summarize(r.Context(), appID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, sum, http.StatusOK)
}
