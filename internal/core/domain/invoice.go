package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceStatus is the invoice lifecycle.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusSubmitted InvoiceStatus = "submitted"
	InvoiceStatusApproved  InvoiceStatus = "approved"
	InvoiceStatusScheduled InvoiceStatus = "scheduled"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusFailed    InvoiceStatus = "failed"
)

// IsTerminal returns true for paid and failed.
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusFailed
}

// CanTransition reports whether the invoice may move forward from s to next.
func (s InvoiceStatus) CanTransition(next InvoiceStatus) bool {
	switch s {
	case InvoiceStatusDraft:
		return next == InvoiceStatusSubmitted || next == InvoiceStatusApproved
	case InvoiceStatusSubmitted:
		switch next {
		case InvoiceStatusApproved, InvoiceStatusPaid, InvoiceStatusFailed:
			return true
		}
	case InvoiceStatusApproved:
		switch next {
		case InvoiceStatusScheduled, InvoiceStatusPaid, InvoiceStatusFailed:
			return true
		}
	case InvoiceStatusScheduled:
		return next == InvoiceStatusPaid || next == InvoiceStatusFailed
	case InvoiceStatusPaid, InvoiceStatusFailed:
		return false
	}
	return false
}

// Label is the timeline text recorded when entering s.
func (s InvoiceStatus) Label() string {
	switch s {
	case InvoiceStatusDraft:
		return "Draft"
	case InvoiceStatusSubmitted:
		return "Submitted"
	case InvoiceStatusApproved:
		return "Approved"
	case InvoiceStatusScheduled:
		return "Scheduled"
	case InvoiceStatusPaid:
		return "Paid"
	case InvoiceStatusFailed:
		return "Failed"
	}
	return string(s)
}

// TimelineEntry records one status transition.
type TimelineEntry struct {
	Label string    `json:"label"`
	At    time.Time `json:"at"`
}

// Invoice is a contractor's request for payment.
type Invoice struct {
	ID           uuid.UUID       `json:"id"`
	ContractorID uuid.UUID       `json:"contractor_id"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	Description  string          `json:"description,omitempty"`
	Status       InvoiceStatus   `json:"status"`
	DueDate      *time.Time      `json:"due_date,omitempty"`
	Timeline     []TimelineEntry `json:"timeline"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Transition moves the invoice to next and appends exactly one timeline entry.
func (i *Invoice) Transition(next InvoiceStatus, at time.Time) error {
	if !i.Status.CanTransition(next) {
		return &TransitionError{Entity: "invoice", From: string(i.Status), To: string(next)}
	}
	i.Status = next
	i.Timeline = append(i.Timeline, TimelineEntry{Label: next.Label(), At: at})
	i.UpdatedAt = at
	return nil
}
