package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/actorcontext"
	authinternal "github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/auth"
	"github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/config"
	directorydomain "github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/directory/domain"
	invoicedomain "github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/invoice/domain"
	messagingdomain "github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/messaging/domain"
	"github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/messaging/hub"
	notificationdomain "github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/notification/domain"
	"github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/observability/logger"
	"github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/observability/metrics"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Config          config.Config
	Log             *zap.Logger
	DB              *gorm.DB
	Verifier        *authinternal.TokenVerifier
	InvoiceSvc      invoicedomain.Service
	NotificationSvc notificationdomain.Service
	MessageSvc      messagingdomain.Service
	DirectorySvc    directorydomain.Service
	Hub             *hub.Hub
	HTTPMetrics     *metrics.HTTPMetrics
}

// Server owns the HTTP surface of the marketplace billing API.
type Server struct {
	cfg             config.Config
	log             *zap.Logger
	db              *gorm.DB
	verifier        *authinternal.TokenVerifier
	invoiceSvc      invoicedomain.Service
	notificationSvc notificationdomain.Service
	messageSvc      messagingdomain.Service
	directorySvc    directorydomain.Service
	hub             *hub.Hub
	httpMetrics     *metrics.HTTPMetrics
	loginLimiter    *rateLimiter
}

func NewServer(p Params) *Server {
	return &Server{
		cfg:             p.Config,
		log:             p.Log.Named("server"),
		db:              p.DB,
		verifier:        p.Verifier,
		invoiceSvc:      p.InvoiceSvc,
		notificationSvc: p.NotificationSvc,
		messageSvc:      p.MessageSvc,
		directorySvc:    p.DirectorySvc,
		hub:             p.Hub,
		httpMetrics:     p.HTTPMetrics,
		loginLimiter:    newRateLimiter(10, time.Minute),
	}
}

func NewEngine(s *Server) *gin.Engine {
	if s.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(logger.GinMiddleware(logger.MiddlewareConfig{SkipPaths: []string{"/healthz", "/metrics"}}))
	if s.httpMetrics != nil {
		engine.Use(metrics.GinMiddleware(s.httpMetrics))
	}

	s.RegisterRoutes(engine)
	return engine
}

func (s *Server) RegisterRoutes(engine *gin.Engine) {
	engine.GET("/healthz", s.Healthz)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	engine.POST("/api/auth/login", loginRateLimit(s.loginLimiter), s.Login)

	api := engine.Group("/api", s.AuthRequired())
	{
		invoices := api.Group("/invoices")
		invoices.POST("", RequireRole(actorcontext.RoleClient), s.CreateInvoice)
		invoices.GET("/pending", s.ListPendingInvoices)
		invoices.GET("/summary", RequireRole(actorcontext.RoleInfluencer), s.InvoiceSummary)
		invoices.GET("/:id", s.GetInvoice)
		invoices.POST("/:id/pay", RequireRole(actorcontext.RoleClient), s.MarkInvoicePaid)

		notifications := api.Group("/notifications")
		notifications.GET("", s.ListNotifications)
		notifications.POST("/read-all", s.MarkAllNotificationsRead)
		notifications.POST("/:id/read", s.MarkNotificationRead)
		notifications.DELETE("/:id", s.DeleteNotification)

		projects := api.Group("/projects")
		projects.GET("/:id/messages", s.ListProjectMessages)
		projects.POST("/:id/messages", s.PostProjectMessage)

		api.GET("/ws", s.ServeWebsocket)
	}
}

func (s *Server) Healthz(c *gin.Context) {
	sqlDB, err := s.db.DB()
	if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

var Module = fx.Module("server",
	fx.Provide(NewServer),
	fx.Provide(NewEngine),
	fx.Invoke(runHTTP),
)

func runHTTP(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, engine *gin.Engine) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
