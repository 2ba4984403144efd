package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/smallbiznis/menusready/internal/payment/domain"
)

const maxWebhookBody = 1 << 20

// HandlePaymentWebhook acknowledges every verified notification with 200.
// Only a bad signature or a storage failure makes the provider retry.
func (s *Server) HandlePaymentWebhook(c *gin.Context) {
	provider := strings.ToLower(strings.TrimSpace(c.Param("provider")))
	if provider != s.gateway.Provider() {
		AbortWithError(c, paymentdomain.ErrProviderNotFound)
		return
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	signature := strings.TrimSpace(c.GetHeader(s.gateway.SignatureHeader()))
	if signature == "" {
		AbortWithError(c, paymentdomain.ErrInvalidSignature)
		return
	}

	result, err := s.publications.HandlePaymentNotification(c.Request.Context(), payload, signature)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"received": true,
		"status":   result.Status,
	})
}
