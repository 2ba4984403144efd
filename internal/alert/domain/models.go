package domain

import (
	"context"
	"time"
)

// PaymentReceived is posted when a menu transitions to paid.
type PaymentReceived struct {
	Restaurant    string
	Slug          string
	CustomerEmail string
	AmountLabel   string
	At            time.Time
}

// DeliveryFailure is posted when a delivery job ends in failed.
type DeliveryFailure struct {
	Slug     string
	JobID    string
	Stage    string
	Error    string
	Attempts int
}

// HelpRequest is a contact form submission.
type HelpRequest struct {
	Name       string
	Restaurant string
	Message    string
	At         time.Time
}

type Service interface {
	PaymentReceived(ctx context.Context, alert PaymentReceived) error
	DeliveryFailed(ctx context.Context, alert DeliveryFailure) error
	HelpRequested(ctx context.Context, req HelpRequest) error
}
