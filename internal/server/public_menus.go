package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	publicationdomain "github.com/smallbiznis/menusready/internal/publication/domain"
	"go.uber.org/zap"
)

type checkoutRequest struct {
	Slug         string `json:"slug"`
	BuyerContact string `json:"buyerContact"`
	Email        string `json:"email"`
}

func (s *Server) CreateCheckout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.Slug) == "" {
		AbortWithError(c, newValidationError("slug", "required", "slug is required"))
		return
	}
	contact := req.BuyerContact
	if strings.TrimSpace(contact) == "" {
		contact = req.Email
	}

	intent, err := s.publications.CreateCheckoutIntent(c.Request.Context(), req.Slug, contact)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, intent)
}

func (s *Server) GetPreview(c *gin.Context) {
	clientID := s.previewClientID(c)
	view, err := s.publications.ViewPreview(c.Request.Context(), c.Param("slug"), clientID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, view)
}

func (s *Server) GetPreviewStatus(c *gin.Context) {
	clientID := s.previewClientID(c)
	view, err := s.publications.PreviewStatus(c.Request.Context(), c.Param("slug"), clientID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, gin.H{
		"published": view.Published,
		"preview":   view.Expiry,
	})
}

func (s *Server) DownloadDeliverable(c *gin.Context) {
	download, err := s.publications.GetDeliverable(c.Request.Context(), c.Param("slug"), c.Param("kind"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+download.Filename+`"`)
	c.Header("Cache-Control", "private, max-age=300")
	c.Data(http.StatusOK, download.ContentType, download.Data)
}

func (s *Server) PublishFree(c *gin.Context) {
	var req publicationdomain.PublishFreeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	result, err := s.publications.PublishFree(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) VerifySession(c *gin.Context) {
	sessionID := strings.TrimSpace(c.Query("session_id"))
	if sessionID == "" {
		AbortWithError(c, publicationdomain.ErrSessionIDRequired)
		return
	}
	result, err := s.publications.VerifySession(c.Request.Context(), sessionID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// SubmitHelpRequest always answers 200 so the form provider never retries.
func (s *Server) SubmitHelpRequest(c *gin.Context) {
	var req publicationdomain.HelpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.log.Warn("help request unreadable", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}
	_ = s.publications.SubmitHelpRequest(c.Request.Context(), req)
	c.JSON(http.StatusOK, gin.H{"received": true})
}
