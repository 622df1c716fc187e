package domain

import (
	"time"

	"github.com/google/uuid"
)

// NotificationEvent names a user-facing event.
type NotificationEvent string

const (
	EventInvoiceSubmitted  NotificationEvent = "invoice.submitted"
	EventInvoiceApproved   NotificationEvent = "invoice.approved"
	EventInvoicePaid       NotificationEvent = "invoice.paid"
	EventPayoutScheduled   NotificationEvent = "payout.scheduled"
	EventPayoutCompleted   NotificationEvent = "payout.completed"
	EventPayoutFailed      NotificationEvent = "payout.failed"
	EventCardIssued        NotificationEvent = "card.issued"
	EventCardStatusChanged NotificationEvent = "card.status_changed"
)

// Notification is one fire-and-forget message to a user.
type Notification struct {
	ID         uuid.UUID         `json:"id"`
	UserID     string            `json:"user_id"`
	Event      NotificationEvent `json:"event"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// Effects are side effects produced by a committed domain operation.
// They are dispatched by the caller after commit and never roll it back.
type Effects struct {
	Notifications []Notification
	Audits        []AuditLog
}

// Notify queues a notification.
func (e *Effects) Notify(userID string, event NotificationEvent, metadata map[string]string) {
	e.Notifications = append(e.Notifications, Notification{
		ID:         uuid.New(),
		UserID:     userID,
		Event:      event,
		Metadata:   metadata,
		OccurredAt: time.Now().UTC(),
	})
}

// Audit queues an audit record.
func (e *Effects) Audit(actorID string, action AuditAction, resourceType, resourceID string, metadata map[string]string) {
	e.Audits = append(e.Audits, AuditLog{
		ID:           uuid.New(),
		ActorID:      actorID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Metadata:     metadata,
		CreatedAt:    time.Now().UTC(),
	})
}

// Empty reports whether there is nothing to dispatch.
func (e Effects) Empty() bool {
	return len(e.Notifications) == 0 && len(e.Audits) == 0
}
