package domain

import (
	"context"
	"encoding/json"
	"time"

	"mystore/internal/core/id"
)

// Event is a fact recorded atomically with the change that produced it.
type Event struct {
	AggregateType string
	AggregateID   id.ID
	EventType     string
	Payload       any
}

// EventPublisher writes events inside the caller's transaction.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// BatchPublisher is implemented by publishers that can write several
// events in one round trip.
type BatchPublisher interface {
	PublishBatch(ctx context.Context, events []Event) error
}

// AuditAction is the kind of change recorded in the audit log.
type AuditAction string

const (
	AuditCreate AuditAction = "create"
	AuditUpdate AuditAction = "update"
	AuditDelete AuditAction = "delete"
	AuditPurge  AuditAction = "purge"
	AuditAdjust AuditAction = "adjust"
)

// AuditRecorder appends audit entries inside the caller's transaction.
type AuditRecorder interface {
	RecordChange(ctx context.Context, entityType string, entityID id.ID, action AuditAction, changes map[string]any) error
}

// AuditRecord is one stored audit entry with its change set decoded.
type AuditRecord struct {
	ID         id.ID
	EntityType string
	EntityID   id.ID
	Action     AuditAction
	UserID     string
	UserEmail  string
	RequestID  string
	Changes    json.RawMessage
	CreatedAt  time.Time
}

// AuditReader returns the newest entries for an entity first.
type AuditReader interface {
	GetEntityHistory(ctx context.Context, entityType string, entityID id.ID, limit int) ([]AuditRecord, error)
}

// NopPublisher drops events.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// NopAudit drops audit entries.
type NopAudit struct{}

func (NopAudit) RecordChange(context.Context, string, id.ID, AuditAction, map[string]any) error {
	return nil
}
