package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/guildops/recruit/internal/audit"
	"github.com/guildops/recruit/internal/notify"
	"github.com/guildops/recruit/pkg/models"
)

// Handlers wires the queue's job types to their collaborators.
func Handlers(sender notify.Sender, recorder *audit.Recorder) map[string]Handler {
	return map[string]Handler{
		TypeEmail: EmailHandler(sender),
		TypeAudit: AuditHandler(recorder),
	}
}

func EmailHandler(sender notify.Sender) Handler {
	return func(ctx context.Context, j *Job) error {
		var m notify.Message
		if err := json.Unmarshal(j.Payload, &m); err != nil {
			return fmt.Errorf("decode email payload: %w", err)
		}
		return sender.SendEmail(ctx, m)
	}
}

func AuditHandler(recorder *audit.Recorder) Handler {
	return func(ctx context.Context, j *Job) error {
		var ev models.AuditEvent
		if err := json.Unmarshal(j.Payload, &ev); err != nil {
			return fmt.Errorf("decode audit payload: %w", err)
		}
		return recorder.Record(ctx, ev)
	}
}
