package domain

import "errors"

var (
	ErrInvalidEmail          = errors.New("invalid_email")
	ErrEmailRequired         = errors.New("email_required")
	ErrOwnershipNotConfirmed = errors.New("ownership_not_confirmed")
	ErrSessionIDRequired     = errors.New("session_id_required")
	ErrPaymentIncomplete     = errors.New("payment_incomplete")
	ErrInvalidKind           = errors.New("invalid_deliverable_kind")
	ErrActorRequired         = errors.New("actor_required")
)
