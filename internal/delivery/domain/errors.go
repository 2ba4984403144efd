package domain

import "errors"

var (
	ErrJobNotFound    = errors.New("delivery_job_not_found")
	ErrJobNotRunnable = errors.New("delivery_job_not_runnable")
	ErrInvalidStatus  = errors.New("invalid_delivery_status")
	ErrNoRecipient    = errors.New("delivery_recipient_missing")
)
