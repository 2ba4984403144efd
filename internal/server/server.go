package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	auditdomain "github.com/smallbiznis/menusready/internal/audit/domain"
	"github.com/smallbiznis/menusready/internal/authorization"
	"github.com/smallbiznis/menusready/internal/config"
	"github.com/smallbiznis/menusready/internal/observability"
	obsmiddleware "github.com/smallbiznis/menusready/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/menusready/internal/observability/metrics"
	obstracing "github.com/smallbiznis/menusready/internal/observability/tracing"
	operatordomain "github.com/smallbiznis/menusready/internal/operator/domain"
	paymentdomain "github.com/smallbiznis/menusready/internal/payment/domain"
	publicationdomain "github.com/smallbiznis/menusready/internal/publication/domain"
	"github.com/smallbiznis/menusready/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, cfg config.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	if origins := allowedOrigins(cfg); len(origins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
			AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-Id"},
			ExposeHeaders:    []string{"Content-Disposition", "X-Request-Id", "Retry-After"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

// allowedOrigins defaults to the app URL so the hosted frontend works
// without extra configuration.
func allowedOrigins(cfg config.Config) []string {
	if len(cfg.CORSAllowedOrigins) > 0 {
		return cfg.CORSAllowedOrigins
	}
	if origin := strings.TrimRight(strings.TrimSpace(cfg.AppURL), "/"); origin != "" {
		return []string{origin}
	}
	return nil
}

func registerGin(obsCfg observability.Config, cfg config.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, cfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	addr := strings.TrimSpace(cfg.HTTPAddress)
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	log          *zap.Logger
	publications publicationdomain.Service
	operators    operatordomain.Service
	gateway      paymentdomain.Gateway
	limiter      ratelimit.Limiter
	audit        auditdomain.Service
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	Log          *zap.Logger
	Publications publicationdomain.Service
	Operators    operatordomain.Service
	Gateway      paymentdomain.Gateway
	Limiter      ratelimit.Limiter   `optional:"true"`
	Audit        auditdomain.Service `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		log:          p.Log.Named("http.server"),
		publications: p.Publications,
		operators:    p.Operators,
		gateway:      p.Gateway,
		limiter:      p.Limiter,
		audit:        p.Audit,
	}
	s.RegisterPublicRoutes()
	s.RegisterAdminRoutes()
	return s
}

func (s *Server) RegisterPublicRoutes() {
	api := s.engine.Group("/api")
	api.POST("/checkout", s.rateLimit("checkout"), s.CreateCheckout)
	api.POST("/webhooks/:provider", s.HandlePaymentWebhook)
	api.GET("/menus/:slug/preview", s.GetPreview)
	api.GET("/menus/:slug/preview/status", s.GetPreviewStatus)
	api.GET("/menus/:slug/deliverables/:kind", s.DownloadDeliverable)
	api.POST("/publish-free", s.rateLimit("publish_free"), s.PublishFree)
	api.GET("/verify-session", s.VerifySession)
	api.POST("/help-requests", s.rateLimit("help"), s.SubmitHelpRequest)
}

func (s *Server) RegisterAdminRoutes() {
	admin := s.engine.Group("/admin")
	admin.POST("/login", s.rateLimit("admin_login"), s.AdminLogin)

	authed := admin.Group("")
	authed.Use(s.OperatorRequired())
	authed.POST("/menus", s.RequirePermission(authorization.PermMenusCreate), s.AdminCreateMenu)
	authed.PUT("/menus/:slug/content", s.RequirePermission(authorization.PermMenusUpdateContent), s.AdminUpdateContent)
	authed.POST("/menus/:slug/regenerate", s.RequirePermission(authorization.PermMenusRegenerate), s.AdminRegenerate)
	authed.GET("/deliveries", s.RequirePermission(authorization.PermDeliveriesRead), s.AdminListDeliveries)
	authed.POST("/deliveries/retry", s.RequirePermission(authorization.PermDeliveriesRetry), s.AdminRetryDeliveries)
	authed.GET("/audit-logs", s.RequirePermission(authorization.PermAuditRead), s.AdminListAuditLogs)
}
