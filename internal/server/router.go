package server

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/open-pageflow/pageflow/internal/api/handler"
	"github.com/open-pageflow/pageflow/internal/api/middleware"
)

type Options struct {
	Env        string
	AuthSecret string
	AppSecret  string
	Logger     *zap.Logger

	HealthHandler     *handler.HealthHandler
	AuthHandler       *handler.AuthHandler
	PageHandler       *handler.PageHandler
	SubscriberHandler *handler.SubscriberHandler
	FlowHandler       *handler.FlowHandler
	AutomationHandler *handler.AutomationHandler
	BroadcastHandler  *handler.BroadcastHandler
	StatsHandler      *handler.StatsHandler
	WebhookHandler    *handler.WebhookHandler

	RateLimit   middleware.RateLimitOption
	IPRateLimit middleware.IPRateLimitOption
}

func NewRouter(opts Options) *gin.Engine {
	if opts.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization", middleware.HeaderRequestID},
		MaxAge:       12 * time.Hour,
	}))

	api := router.Group("/api")

	opts.HealthHandler.Register(api)

	public := api.Group("")
	if opts.IPRateLimit.Enabled {
		public.Use(middleware.IPRateLimit(opts.IPRateLimit))
	}
	opts.AuthHandler.Register(public)

	// O handshake de inscrição não é assinado; apenas o POST de eventos é.
	opts.WebhookHandler.RegisterVerify(api)
	signed := api.Group("")
	signed.Use(middleware.VerifySignature(opts.AppSecret, opts.Logger))
	opts.WebhookHandler.RegisterReceive(signed)

	protected := api.Group("")
	if opts.RateLimit.Enabled {
		protected.Use(middleware.RateLimit(opts.RateLimit))
	}
	protected.Use(middleware.Auth(opts.AuthSecret))

	opts.PageHandler.Register(protected)
	opts.SubscriberHandler.Register(protected)
	opts.FlowHandler.Register(protected)
	opts.AutomationHandler.Register(protected)
	opts.BroadcastHandler.Register(protected)
	opts.StatsHandler.Register(protected)

	return router
}
