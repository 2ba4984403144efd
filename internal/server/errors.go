package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/menusready/internal/auth/password"
	"github.com/smallbiznis/menusready/internal/authorization"
	deliverydomain "github.com/smallbiznis/menusready/internal/delivery/domain"
	menudomain "github.com/smallbiznis/menusready/internal/menu/domain"
	operatordomain "github.com/smallbiznis/menusready/internal/operator/domain"
	paymentdomain "github.com/smallbiznis/menusready/internal/payment/domain"
	publicationdomain "github.com/smallbiznis/menusready/internal/publication/domain"
	"github.com/smallbiznis/menusready/pkg/db/pagination"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
	ErrRateLimited    = errors.New("rate_limited")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

// classifyErrorForLog feeds the request logger's error_type and error_code.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if code, field, message, ok := validationDetails(err); ok {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{Field: field, Code: code, Message: message},
			},
		}
	}

	switch {
	case errors.Is(err, paymentdomain.ErrInvalidSignature):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_signature",
			Message: "invalid signature",
		}
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, operatordomain.ErrInvalidCredentials),
		errors.Is(err, operatordomain.ErrInvalidToken),
		errors.Is(err, publicationdomain.ErrActorRequired):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, authorization.ErrInvalidRole):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, publicationdomain.ErrPaymentIncomplete):
		return http.StatusForbidden, errorPayload{
			Type:    "payment_incomplete",
			Message: "payment not completed",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, menudomain.ErrNotPaid):
		return http.StatusConflict, errorPayload{
			Type:    "not_paid",
			Message: "menu is not paid",
		}
	case errors.Is(err, menudomain.ErrConflict),
		errors.Is(err, operatordomain.ErrOperatorExists):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, paymentdomain.ErrGatewayUnavailable):
		return http.StatusInternalServerError, errorPayload{
			Type:    "gateway_unavailable",
			Message: "payment provider unavailable, please try again",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

type validationRule struct {
	err     error
	field   string
	message string
}

var validationRules = []validationRule{
	{ErrInvalidRequest, "request", "invalid request"},
	{menudomain.ErrInvalidSlug, "slug", "slug is missing or malformed"},
	{menudomain.ErrInvalidRestaurant, "restaurant", "restaurant name is required"},
	{menudomain.ErrInvalidContent, "categories", "menu content is invalid"},
	{paymentdomain.ErrInvalidMetadata, "slug", "slug is required"},
	{publicationdomain.ErrEmailRequired, "email", "email is required"},
	{publicationdomain.ErrInvalidEmail, "email", "email is invalid"},
	{publicationdomain.ErrOwnershipNotConfirmed, "confirmOwnership", "ownership must be confirmed"},
	{publicationdomain.ErrSessionIDRequired, "session_id", "session_id is required"},
	{deliverydomain.ErrInvalidStatus, "status", "unknown delivery status"},
	{pagination.ErrInvalidPageToken, "page_token", "page_token is invalid"},
	{operatordomain.ErrInvalidEmail, "email", "email is invalid"},
	{operatordomain.ErrInvalidRole, "role", "unknown role"},
	{password.ErrTooShort, "password", "password is too short"},
}

func validationDetails(err error) (string, string, string, bool) {
	for _, rule := range validationRules {
		if errors.Is(err, rule.err) {
			return rule.err.Error(), rule.field, rule.message, true
		}
	}
	return "", "", "", false
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, menudomain.ErrNotFound),
		errors.Is(err, menudomain.ErrDeliverablesNotFound),
		errors.Is(err, publicationdomain.ErrInvalidKind),
		errors.Is(err, paymentdomain.ErrProviderNotFound),
		errors.Is(err, deliverydomain.ErrJobNotFound),
		errors.Is(err, operatordomain.ErrOperatorNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}
