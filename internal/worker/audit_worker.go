package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/inventory-auth/internal/events"
)

// AuditedEvents lists the event types written to the audit log.
var AuditedEvents = []events.EventType{
	events.EventLoginSucceeded,
	events.EventLoginFailed,
	events.EventUserRegistered,
	events.EventPasswordChanged,
	events.EventRolesUpdated,
	events.EventAccountStatusSet,
}

// StartAuditWorker subscribes an audit logger to every authentication event.
func StartAuditWorker(dispatcher events.Dispatcher, logger *zap.Logger) {
	if dispatcher == nil || logger == nil {
		return
	}
	audit := logger.Named("audit")
	for _, eventType := range AuditedEvents {
		dispatcher.Subscribe(eventType, func(_ context.Context, event events.Event) error {
			audit.Info("auth event",
				zap.String("event_id", event.ID),
				zap.String("type", string(event.Type)),
				zap.String("subject", event.Subject),
				zap.String("actor", event.Actor),
				zap.Time("at", event.Timestamp),
				zap.Any("payload", event.Payload),
			)
			return nil
		})
	}
}
