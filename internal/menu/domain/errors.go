package domain

import "errors"

var (
	ErrNotFound             = errors.New("menu_not_found")
	ErrConflict             = errors.New("menu_conflict")
	ErrNotPaid              = errors.New("menu_not_paid")
	ErrInvalidSlug          = errors.New("invalid_slug")
	ErrInvalidRestaurant    = errors.New("invalid_restaurant")
	ErrInvalidContent       = errors.New("invalid_content")
	ErrDeliverablesNotFound = errors.New("deliverables_not_found")
	ErrInvalidTransition    = errors.New("invalid_state_transition")
)
