package domain

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInvalidToken       = errors.New("invalid_token")
	ErrTokenSecretMissing = errors.New("operator_token_secret_missing")
	ErrInvalidEmail       = errors.New("invalid_email")
	ErrInvalidRole        = errors.New("invalid_role")
	ErrOperatorExists     = errors.New("operator_exists")
	ErrOperatorNotFound   = errors.New("operator_not_found")
)
