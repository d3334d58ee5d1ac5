package database

import (
	"context"
	"time"

	"github.com/agrion/agrion/model"
)

func (q queries) RecordAuditEvent(ctx context.Context, event model.AuditEvent) (model.AuditEvent, error) {
	if event.EventID == "" {
		event.EventID = model.GenerateUUIDWithSuffix("audit")
	}
	event.CreatedAt = time.Now().UTC()

	_, err := q.db.ExecContext(ctx, `
		INSERT INTO agrion.audit_events (event_id, actor_id, action, resource_type, resource_id, details, risk_level, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, event.EventID, event.ActorID, event.Action, event.ResourceType, event.ResourceID, event.Details, event.RiskLevel, event.CreatedAt)
	if err != nil {
		return model.AuditEvent{}, storageError(err, "failed to record audit event")
	}
	return event, nil
}
