package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/kograph/internal/apikey"
	apikeydomain "github.com/smallbiznis/kograph/internal/apikey/domain"
	"github.com/smallbiznis/kograph/internal/audit"
	auditdomain "github.com/smallbiznis/kograph/internal/audit/domain"
	"github.com/smallbiznis/kograph/internal/authorization"
	"github.com/smallbiznis/kograph/internal/changefeed"
	"github.com/smallbiznis/kograph/internal/checkout"
	checkoutdomain "github.com/smallbiznis/kograph/internal/checkout/domain"
	"github.com/smallbiznis/kograph/internal/config"
	"github.com/smallbiznis/kograph/internal/identity"
	identitydomain "github.com/smallbiznis/kograph/internal/identity/domain"
	"github.com/smallbiznis/kograph/internal/ledger"
	"github.com/smallbiznis/kograph/internal/moderation"
	moderationdomain "github.com/smallbiznis/kograph/internal/moderation/domain"
	"github.com/smallbiznis/kograph/internal/notification"
	notificationdomain "github.com/smallbiznis/kograph/internal/notification/domain"
	"github.com/smallbiznis/kograph/internal/observability"
	obsmiddleware "github.com/smallbiznis/kograph/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/kograph/internal/observability/metrics"
	obstracing "github.com/smallbiznis/kograph/internal/observability/tracing"
	"github.com/smallbiznis/kograph/internal/overview"
	"github.com/smallbiznis/kograph/internal/payment"
	paymentdomain "github.com/smallbiznis/kograph/internal/payment/domain"
	"github.com/smallbiznis/kograph/internal/ratelimit"
	"github.com/smallbiznis/kograph/internal/settings"
	settingsdomain "github.com/smallbiznis/kograph/internal/settings/domain"
	"github.com/smallbiznis/kograph/internal/withdrawal"
	withdrawaldomain "github.com/smallbiznis/kograph/internal/withdrawal/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	identity.Module,
	authorization.Module,
	audit.Module,
	ledger.Module,
	apikey.Module,
	checkout.Module,
	payment.Module,
	withdrawal.Module,
	settings.Module,
	notification.Module,
	moderation.Module,
	overview.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	addr := cfg.HTTPAddr
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
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", addr))
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
	engine        *gin.Engine
	cfg           config.Config
	identitySvc   identitydomain.Service
	authzSvc      authorization.Service
	auditSvc      auditdomain.Service
	apiKeySvc     apikeydomain.Service
	checkoutSvc   checkoutdomain.Service
	paymentSvc    paymentdomain.Service
	withdrawalSvc withdrawaldomain.Service
	settingsSvc   settingsdomain.Service
	notifySvc     notificationdomain.Service
	moderationSvc moderationdomain.Service
	overviewSvc   *overview.Service
	limiter       *ratelimit.Limiter
	changes       *changefeed.Hub
	obsMetrics    *obsmetrics.Metrics
	policy        *config.PolicyHolder
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	IdentitySvc     identitydomain.Service
	AuthzSvc        authorization.Service
	AuditSvc        auditdomain.Service
	APIKeySvc       apikeydomain.Service
	CheckoutSvc     checkoutdomain.Service
	PaymentSvc      paymentdomain.Service
	WithdrawalSvc   withdrawaldomain.Service
	SettingsSvc     settingsdomain.Service
	NotificationSvc notificationdomain.Service
	ModerationSvc   moderationdomain.Service
	OverviewSvc     *overview.Service
	Limiter         *ratelimit.Limiter   `optional:"true"`
	Changes         *changefeed.Hub      `optional:"true"`
	ObsMetrics      *obsmetrics.Metrics  `optional:"true"`
	Policy          *config.PolicyHolder `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		identitySvc:   p.IdentitySvc,
		authzSvc:      p.AuthzSvc,
		auditSvc:      p.AuditSvc,
		apiKeySvc:     p.APIKeySvc,
		checkoutSvc:   p.CheckoutSvc,
		paymentSvc:    p.PaymentSvc,
		withdrawalSvc: p.WithdrawalSvc,
		settingsSvc:   p.SettingsSvc,
		notifySvc:     p.NotificationSvc,
		moderationSvc: p.ModerationSvc,
		overviewSvc:   p.OverviewSvc,
		limiter:       p.Limiter,
		changes:       p.Changes,
		obsMetrics:    p.ObsMetrics,
		policy:        p.Policy,
	}

	svc.registerPublicRoutes()
	svc.registerUserRoutes()
	svc.registerAdminRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerPublicRoutes() {
	api := s.engine.Group("/api")

	api.POST("/saweria/callback", s.WebhookRateLimit(), s.HandleSaweriaCallback)
	api.POST("/v1/checkout", s.APIKeyRequired(), s.APICheckoutRateLimit(), s.CreateAPICheckout)
}

func (s *Server) registerUserRoutes() {
	api := s.engine.Group("/api", s.AuthRequired())

	api.POST("/checkouts/create", s.CreateCheckout)
	api.POST("/withdrawals/request", s.RequestWithdrawal)
	api.POST("/api-keys/create", s.CreateAPIKey)
	api.POST("/api-keys/revoke", s.RevokeAPIKey)
	api.POST("/settings/default-amount", s.SetDefaultAmount)

	me := api.Group("/me")
	{
		me.GET("/overview", s.GetOverview)
		me.GET("/notifications", s.ListNotifications)
		me.GET("/events", s.StreamEvents)
	}
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/api/admin", s.AuthRequired())

	admin.GET("/me", s.AdminMe)

	admin.GET("/users", s.authorizeAction(authorization.ObjectUser, authorization.ActionUserView), s.ListUsers)
	admin.POST("/users/action", s.authorizeAction(authorization.ObjectUser, authorization.ActionUserModerate), s.UserAction)

	admin.GET("/audit", s.authorizeAction(authorization.ObjectAuditLog, authorization.ActionAuditLogView), s.ListAuditLogs)

	admin.GET("/withdrawals", s.authorizeAction(authorization.ObjectWithdrawal, authorization.ActionWithdrawalView), s.ListWithdrawals)
	admin.POST("/withdrawals/update", s.authorizeAction(authorization.ObjectWithdrawal, authorization.ActionWithdrawalUpdate), s.UpdateWithdrawal)
}
