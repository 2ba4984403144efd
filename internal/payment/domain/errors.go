package domain

import "errors"

var (
	ErrInvalidSignature   = errors.New("invalid_signature")
	ErrInvalidPayload     = errors.New("invalid_payload")
	ErrInvalidEvent       = errors.New("invalid_event")
	ErrEventIgnored       = errors.New("event_ignored")
	ErrInvalidMetadata    = errors.New("invalid_session_metadata")
	ErrInvalidConfig      = errors.New("invalid_config")
	ErrInvalidProvider    = errors.New("invalid_provider")
	ErrProviderNotFound   = errors.New("provider_not_found")
	ErrGatewayUnavailable = errors.New("gateway_unavailable")
	ErrGatewayRejected    = errors.New("gateway_rejected")
	ErrSessionNotFound    = errors.New("session_not_found")
)
