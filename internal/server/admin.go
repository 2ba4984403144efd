package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/menusready/internal/audit/domain"
	menudomain "github.com/smallbiznis/menusready/internal/menu/domain"
	operatordomain "github.com/smallbiznis/menusready/internal/operator/domain"
	publicationdomain "github.com/smallbiznis/menusready/internal/publication/domain"
)

func (s *Server) AdminLogin(c *gin.Context) {
	var req operatordomain.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		AbortWithError(c, newValidationError("credentials", "required", "email and password are required"))
		return
	}

	token, err := s.operators.Login(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.recordAudit(c, auditdomain.Entry{
		ActorType:  auditdomain.ActorTypeOperator,
		Action:     auditdomain.ActionOperatorLogin,
		TargetType: auditdomain.TargetOperator,
		Metadata:   map[string]any{"email": req.Email},
	})
	c.JSON(http.StatusOK, token)
}

func (s *Server) AdminCreateMenu(c *gin.Context) {
	var req publicationdomain.CreateMenuRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	menu, err := s.publications.CreateMenu(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.recordAudit(c, auditdomain.Entry{
		Action:     auditdomain.ActionMenuCreate,
		TargetType: auditdomain.TargetMenu,
		TargetID:   menu.Slug,
		Metadata:   map[string]any{"restaurant": menu.Restaurant},
	})
	c.JSON(http.StatusCreated, menu)
}

func (s *Server) AdminUpdateContent(c *gin.Context) {
	var content menudomain.Content
	if err := c.ShouldBindJSON(&content); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	menu, err := s.publications.UpdateContent(c.Request.Context(), c.Param("slug"), content)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.recordAudit(c, auditdomain.Entry{
		Action:     auditdomain.ActionMenuUpdateContent,
		TargetType: auditdomain.TargetMenu,
		TargetID:   menu.Slug,
		Metadata:   map[string]any{"categories": len(content.Categories)},
	})
	c.JSON(http.StatusOK, menu)
}

// AdminRegenerate answers 200 with the outcome even when generation failed;
// the outcome carries the failed stage and the job stays retryable.
func (s *Server) AdminRegenerate(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	outcome, err := s.publications.Regenerate(c.Request.Context(), c.Param("slug"), actor.Subject())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.recordAudit(c, auditdomain.Entry{
		Action:     auditdomain.ActionMenuRegenerate,
		TargetType: auditdomain.TargetMenu,
		TargetID:   outcome.Slug,
		Metadata:   map[string]any{"status": string(outcome.Status), "stage": string(outcome.Stage)},
	})
	c.JSON(http.StatusOK, outcome)
}

func (s *Server) AdminListDeliveries(c *gin.Context) {
	limit, err := parseOptionalInt(c.Query("limit"))
	if err != nil {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "limit must be a positive integer"))
		return
	}
	req := publicationdomain.ListDeliveriesRequest{
		Status:    strings.TrimSpace(c.Query("status")),
		Slug:      strings.TrimSpace(c.Query("slug")),
		PageToken: strings.TrimSpace(c.Query("page_token")),
	}
	if limit != nil {
		req.Limit = *limit
	}

	resp, err := s.publications.ListDeliveries(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) AdminRetryDeliveries(c *gin.Context) {
	result, err := s.publications.RetryDeliveries(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.recordAudit(c, auditdomain.Entry{
		Action:     auditdomain.ActionDeliveriesRetry,
		TargetType: auditdomain.TargetDeliverySweep,
		Metadata: map[string]any{
			"due":       result.Due,
			"succeeded": result.Succeeded,
			"failed":    result.Failed,
			"locked":    result.Locked,
		},
	})
	c.JSON(http.StatusOK, result)
}

func (s *Server) AdminListAuditLogs(c *gin.Context) {
	if s.audit == nil {
		AbortWithError(c, ErrNotFound)
		return
	}
	pageSize, err := parseOptionalInt(c.Query("page_size"))
	if err != nil {
		AbortWithError(c, newValidationError("page_size", "invalid_page_size", "page_size must be a positive integer"))
		return
	}
	req := auditdomain.ListRequest{
		Action:     strings.TrimSpace(c.Query("action")),
		TargetType: strings.TrimSpace(c.Query("target_type")),
		TargetID:   strings.TrimSpace(c.Query("target_id")),
		PageToken:  strings.TrimSpace(c.Query("page_token")),
	}
	if pageSize != nil {
		req.PageSize = *pageSize
	}

	resp, err := s.audit.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// recordAudit writes an audit entry for a completed admin action. Write
// failures are logged by the audit service and do not fail the request.
func (s *Server) recordAudit(c *gin.Context, entry auditdomain.Entry) {
	if s.audit == nil {
		return
	}
	entry.IPAddress = c.ClientIP()
	entry.UserAgent = c.Request.UserAgent()
	_ = s.audit.Record(c.Request.Context(), entry)
}
