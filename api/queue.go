package api

import (
	"context"
	"net/http"

	"github.com/guildops/recruit/internal/audit"
	"github.com/guildops/recruit/internal/jobs"
	"github.com/guildops/recruit/internal/notify"
)

// Queue is the handler-side view of the background job queue. Notification
// and audit side effects go through it after a state change commits; a
// failed enqueue is logged and never fails the request.
type Queue interface {
	Enqueue(ctx context.Context, typ string, payload any, priority int, maxAttempts int) (int64, error)
}

// nopQueue drops everything; used when no worker pool is wired (tests).
type nopQueue struct{}

func (nopQueue) Enqueue(context.Context, string, any, int, int) (int64, error) { return 0, nil }

func enqueueEmail(r *http.Request, q Queue, m notify.Message) {
	if q == nil {
		return
	}
	if _, err := q.Enqueue(r.Context(), jobs.TypeEmail, m, 100, 3); err != nil {
		logger.Error("enqueue email", "err", err)
	}
}

func enqueueAudit(r *http.Request, q Queue, action, resourceType string, resourceID int64, meta map[string]any) {
	if q == nil {
		return
	}
	id, _ := IdentityFrom(r.Context())
	ev := audit.Event(id.UserID, action, resourceType, resourceID, meta)
	if _, err := q.Enqueue(r.Context(), jobs.TypeAudit, ev, 200, 3); err != nil {
		logger.Error("enqueue audit", "err", err)
	}
}
