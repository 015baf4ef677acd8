package service

import (
	"context"
	"time"

	"referrals/internal/referral/models"
	dErrors "referrals/pkg/domain-errors"
	"referrals/pkg/platform/middleware/metadata"
	"referrals/pkg/requestcontext"
)

// emit writes a lifecycle event to the outbox inside the caller's transaction,
// so the event commits or rolls back together with the change it describes.
func (s *Service) emit(ctx context.Context, st Store, eventType models.EventType, aggregateID string, payload any, now time.Time) error {
	event, err := models.NewOutboxEvent(eventType, aggregateID, payload, now)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode event")
	}
	if err := st.AppendOutbox(ctx, event); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record event")
	}
	return nil
}

func (s *Service) logAudit(ctx context.Context, event models.EventType, attributes ...any) {
	if s.logger == nil {
		return
	}
	attributes = append(attributes, "actor", requestcontext.Actor(ctx))
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	if ip := metadata.GetClientIP(ctx); ip != "" {
		attributes = append(attributes, "client_ip", ip, "device", metadata.GetDevice(ctx))
	}
	args := append(attributes, "event", string(event), "log_type", "audit")
	s.logger.InfoContext(ctx, string(event), args...)
}
