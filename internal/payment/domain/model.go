package domain

import (
	"time"

	"gorm.io/datatypes"
)

const (
	ProviderStripe = "stripe"

	EventTypeCheckoutCompleted = "checkout.session.completed"

	PaymentStatusPaid = "paid"
)

// EventRecord is the idempotency ledger row for one provider event.
type EventRecord struct {
	ID              int64          `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Provider        string         `json:"provider" gorm:"type:varchar(32);not null;uniqueIndex:ux_payment_events_provider_event_id,priority:1"`
	ProviderEventID string         `json:"provider_event_id" gorm:"type:varchar(255);not null;uniqueIndex:ux_payment_events_provider_event_id,priority:2"`
	EventType       string         `json:"event_type" gorm:"type:text;not null"`
	Slug            string         `json:"slug" gorm:"type:text;not null;default:'';index"`
	Payload         datatypes.JSON `json:"payload" gorm:"not null"`
	ReceivedAt      time.Time      `json:"received_at" gorm:"not null"`
	ProcessedAt     *time.Time     `json:"processed_at"`
}

func (EventRecord) TableName() string { return "payment_events" }

// SessionMetadata is the typed contract carried through the provider
// session and back on the notification.
type SessionMetadata struct {
	Slug string `json:"slug"`
}

// Notification is a verified, parsed checkout completion.
type Notification struct {
	Provider      string
	EventID       string
	EventType     string
	SessionID     string
	Metadata      SessionMetadata
	CustomerEmail string
	PaymentStatus string
	AmountTotal   int64
	Currency      string
	OccurredAt    time.Time
	RawPayload    []byte
}

func (n *Notification) Paid() bool {
	return n != nil && n.PaymentStatus == PaymentStatusPaid
}

type LineItem struct {
	PriceID  string
	Quantity int
}

type SessionRequest struct {
	Metadata       SessionMetadata
	LineItem       LineItem
	SuccessURL     string
	CancelURL      string
	CustomerEmail  string
	IdempotencyKey string
}

type Session struct {
	ID            string
	URL           string
	PaymentStatus string
	CustomerEmail string
	Metadata      SessionMetadata
}
