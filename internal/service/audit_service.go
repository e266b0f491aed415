package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/mindboost/academy-auth/internal/events"
)

// AuditService writes a structured audit line for every auth event. Emails,
// passwords and token material never reach the audit log.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger.Named("audit"),
	}
}

// RegisterHandlers subscribes to every auth event.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	for _, eventType := range events.AllEventTypes() {
		a.dispatcher.Subscribe(eventType, a.handle)
	}
}

func (a *AuditService) handle(_ context.Context, event events.Event) error {
	fields := []zap.Field{
		zap.String("event", string(event.Type)),
		zap.String("event_id", event.ID),
		zap.Time("at", event.Timestamp),
	}
	if event.Actor.UserID != "" {
		fields = append(fields, zap.String("user_id", event.Actor.UserID))
	}
	if event.Actor.Role != "" {
		fields = append(fields, zap.String("role", string(event.Actor.Role)))
	}

	switch payload := event.Payload.(type) {
	case events.LoginFailedPayload:
		fields = append(fields, zap.String("reason", payload.Reason))
	case events.RoleAssignedPayload:
		fields = append(fields,
			zap.String("target_user_id", payload.TargetUserID),
			zap.String("old_role", string(payload.OldRole)),
			zap.String("new_role", string(payload.NewRole)))
	}

	if event.Type == events.EventLoginFailed {
		a.logger.Warn("auth event", fields...)
		return nil
	}
	a.logger.Info("auth event", fields...)
	return nil
}
