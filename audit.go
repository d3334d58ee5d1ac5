package agrion

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/agrion/agrion/database"
	"github.com/agrion/agrion/internal/notification"
	"github.com/agrion/agrion/model"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

// AuditSink receives audit events after the transaction that produced them has committed.
type AuditSink interface {
	LogEvent(ctx context.Context, event model.AuditEvent) error
}

// LogSink writes audit events to the structured log.
type LogSink struct{}

func (LogSink) LogEvent(_ context.Context, event model.AuditEvent) error {
	logrus.WithFields(logrus.Fields{
		"event_id":      event.EventID,
		"actor_id":      event.ActorID,
		"action":        event.Action,
		"resource_type": event.ResourceType,
		"resource_id":   event.ResourceID,
		"risk_level":    event.RiskLevel,
	}).Info(event.Details)
	return nil
}

// QueueSink hands audit events to the workers, which log them and forward them as webhooks.
type QueueSink struct {
	queue *Queue
}

func NewQueueSink(queue *Queue) *QueueSink {
	return &QueueSink{queue: queue}
}

func (s *QueueSink) LogEvent(ctx context.Context, event model.AuditEvent) error {
	return s.queue.EnqueueAuditEvent(ctx, event)
}

// ProcessAuditEvent consumes a queued audit event.
func (a *Agrion) ProcessAuditEvent(ctx context.Context, task *asynq.Task) error {
	var event model.AuditEvent
	if err := json.Unmarshal(task.Payload(), &event); err != nil {
		return fmt.Errorf("invalid audit event payload: %w", err)
	}
	if err := (LogSink{}).LogEvent(ctx, event); err != nil {
		return err
	}
	a.sendWebhook(ctx, EventAuditRecorded, event)
	return nil
}

// stageAudit persists event inside tx and keeps it for dispatch once tx commits.
func stageAudit(ctx context.Context, tx database.Store, staged *[]model.AuditEvent, event model.AuditEvent) error {
	recorded, err := tx.RecordAuditEvent(ctx, event)
	if err != nil {
		return err
	}
	*staged = append(*staged, recorded)
	return nil
}

// dispatchAudit delivers committed events to the sink without blocking the caller.
// Sink failures are reported through notification.NotifyError and never surface to the caller.
func (a *Agrion) dispatchAudit(ctx context.Context, events []model.AuditEvent) {
	if len(events) == 0 || a.auditSink == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Orchestrator.AuditDispatchDuration())
		defer cancel()
		for _, event := range events {
			if err := a.auditSink.LogEvent(ctx, event); err != nil {
				notification.NotifyError(fmt.Errorf("audit sink rejected event %s (%s): %w", event.EventID, event.Action, err))
			}
		}
	}()
}
