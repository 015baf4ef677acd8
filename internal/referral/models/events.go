package models

import (
	"encoding/json"
	"time"

	id "referrals/pkg/domain"
)

type EventType string

const (
	EventCodeCreated       EventType = "referral_code.created"
	EventCodeUpdated       EventType = "referral_code.updated"
	EventCodeDeleted       EventType = "referral_code.deleted"
	EventCodeArchived      EventType = "referral_code.archived"
	EventReferralRedeemed  EventType = "referral.redeemed"
	EventReferralCompleted EventType = "referral.completed"
	EventReferralCancelled EventType = "referral.cancelled"
)

// OutboxEvent is written in the same transaction as the change it describes
// and relayed to the message bus afterwards.
type OutboxEvent struct {
	ID          id.EventID      `json:"id"`
	Type        EventType       `json:"type"`
	AggregateID string          `json:"aggregate_id"`
	Payload     json.RawMessage `json:"payload"`
	OccurredAt  time.Time       `json:"occurred_at"`
	PublishedAt *time.Time      `json:"published_at,omitempty"`
}

// NewOutboxEvent marshals payload into a fresh event.
func NewOutboxEvent(eventType EventType, aggregateID string, payload any, now time.Time) (OutboxEvent, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return OutboxEvent{}, err
	}
	return OutboxEvent{
		ID:          id.NewEventID(),
		Type:        eventType,
		AggregateID: aggregateID,
		Payload:     body,
		OccurredAt:  now,
	}, nil
}
