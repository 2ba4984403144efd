package server

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/smallbiznis/menusready/internal/authorization"
	obscontext "github.com/smallbiznis/menusready/internal/observability/context"
	"go.uber.org/zap"
)

const (
	contextActorKey     = "operator_actor"
	previewClientCookie = "preview_client"
	previewClientMaxAge = 30 * 24 * 60 * 60
)

// OperatorRequired resolves the bearer token to an operator actor.
func (s *Server) OperatorRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		actor, err := s.operators.Authenticate(c.Request.Context(), raw)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(contextActorKey, actor)
		c.Request = c.Request.WithContext(obscontext.WithActor(c.Request.Context(), "operator", actor.OperatorID))
		c.Next()
	}
}

func (s *Server) RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if err := s.operators.Authorize(c.Request.Context(), actor, permission); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func actorFromContext(c *gin.Context) (authorization.Actor, bool) {
	value, ok := c.Get(contextActorKey)
	if !ok {
		return authorization.Actor{}, false
	}
	actor, ok := value.(authorization.Actor)
	return actor, ok
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// rateLimit keys public POST routes by client IP. Limiter failures let the
// request through.
func (s *Server) rateLimit(route string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter == nil {
			c.Next()
			return
		}
		res, err := s.limiter.Allow(c.Request.Context(), route+":"+c.ClientIP())
		if err != nil {
			s.log.Warn("rate limiter unavailable", zap.String("route", route), zap.Error(err))
			c.Next()
			return
		}
		if res.Limit > 0 {
			c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		}
		if !res.Allowed {
			if res.RetryAfter > 0 {
				c.Header("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
			}
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}

// previewClientID returns the caller's preview client id, issuing a new
// cookie when none or a malformed one was sent.
func (s *Server) previewClientID(c *gin.Context) string {
	if raw, err := c.Cookie(previewClientCookie); err == nil {
		if id, err := uuid.Parse(strings.TrimSpace(raw)); err == nil {
			return id.String()
		}
	}
	id := uuid.NewString()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(previewClientCookie, id, previewClientMaxAge, "/", "", s.cfg.SecureCookies, true)
	return id
}
