// Package audit records who did what to which resource. Recording is
// fire-and-forget from the core's perspective; callers enqueue events
// through the job queue and never block a request on the write.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/guildops/recruit/internal/db"
	"github.com/guildops/recruit/pkg/models"
)

type Recorder struct {
	conn   *db.DB
	logger *slog.Logger
}

func NewRecorder(conn *db.DB, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{conn: conn, logger: logger}
}

// Record persists one audit event. Meta must be a JSON document; empty
// means no detail.
func (r *Recorder) Record(ctx context.Context, ev models.AuditEvent) error {
	if ev.Meta == "" {
		ev.Meta = "{}"
	}
	_, err := r.conn.Exec(ctx, `INSERT INTO audit_events (actor_id, action, resource_type, resource_id, meta, created) VALUES (?, ?, ?, ?, ?, strftime('%s','now'))`,
		ev.ActorID, ev.Action, ev.ResourceType, ev.ResourceID, ev.Meta)
	if err != nil {
		return err
	}

	r.logger.Info("audit",
		slog.Int64("actor_id", ev.ActorID),
		slog.String("action", ev.Action),
		slog.String("resource", ev.ResourceType),
		slog.Int64("resource_id", ev.ResourceID),
	)
	return nil
}

// Event builds an audit payload with JSON-encoded meta, for enqueueing.
func Event(actorID int64, action, resourceType string, resourceID int64, meta map[string]any) models.AuditEvent {
	ev := models.AuditEvent{
		ActorID:      actorID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
	if len(meta) > 0 {
		if b, err := json.Marshal(meta); err == nil {
			ev.Meta = string(b)
		}
	}
	return ev
}
