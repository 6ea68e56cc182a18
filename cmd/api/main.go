package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/open-pageflow/pageflow/internal/api/handler"
	"github.com/open-pageflow/pageflow/internal/api/middleware"
	"github.com/open-pageflow/pageflow/internal/app"
	"github.com/open-pageflow/pageflow/internal/config"
	"github.com/open-pageflow/pageflow/internal/engine"
	"github.com/open-pageflow/pageflow/internal/logger"
	"github.com/open-pageflow/pageflow/internal/messenger"
	"github.com/open-pageflow/pageflow/internal/server"
	"github.com/open-pageflow/pageflow/internal/service/auth"
	"github.com/open-pageflow/pageflow/internal/service/automation"
	"github.com/open-pageflow/pageflow/internal/service/broadcast"
	"github.com/open-pageflow/pageflow/internal/service/flow"
	"github.com/open-pageflow/pageflow/internal/service/message"
	"github.com/open-pageflow/pageflow/internal/service/page"
	"github.com/open-pageflow/pageflow/internal/service/stats"
	"github.com/open-pageflow/pageflow/internal/service/subscriber"
	"github.com/open-pageflow/pageflow/internal/storage"
	"github.com/open-pageflow/pageflow/internal/webhook"
)

func main() {
	// .env é opcional; em produção as variáveis vêm do ambiente.
	_ = godotenv.Load()

	cfg := config.Load()

	logr, err := logger.New(cfg.App.Env, cfg.Log.Level)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logr.Sync()

	logr.Info("iniciando aplicação",
		zap.String("env", cfg.App.Env),
		zap.String("log_level", cfg.Log.Level),
		zap.String("port", cfg.App.Port),
		zap.String("db_driver", cfg.Storage.Driver),
	)

	repos, err := storage.NewRepositories(cfg, logr)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	sender := messenger.NewClient(
		cfg.Facebook.GraphBaseURL,
		time.Duration(cfg.Facebook.SendTimeoutSeconds)*time.Second,
		logr,
	)
	walker := engine.NewWalker(sender, repos.Message, logr)

	logr.Info("inicializando sistema de webhooks")
	processor := webhook.NewProcessor(
		repos.Page, repos.Subscriber, repos.Message, repos.Automation, repos.Flow,
		walker, repos.Deduper,
		time.Duration(cfg.Webhook.DedupTTLMin)*time.Minute,
		logr,
	)
	webhookPool := webhook.NewPool(repos.EventQueue, processor, logr, cfg.Webhook.Workers)
	go webhookPool.Start(context.Background())
	logr.Info("webhook pool iniciada", zap.Int("workers", cfg.Webhook.Workers))

	logr.Debug("inicializando serviços")
	authService := auth.NewService(repos.Account, repos.StateStore, cfg.JWT.Secret, cfg.JWT.ExpHours, auth.FacebookOAuth{
		AppID:        cfg.Facebook.AppID,
		AppSecret:    cfg.Facebook.AppSecret,
		RedirectURL:  cfg.Facebook.OAuthRedirectURL,
		GraphBaseURL: cfg.Facebook.GraphBaseURL,
	}, logr)
	pageService := page.NewService(repos.Page, logr)
	subscriberService := subscriber.NewService(repos.Subscriber, logr)
	flowService := flow.NewService(repos.Flow, logr)
	automationService := automation.NewService(repos.Automation, repos.Flow, logr)
	messageService := message.NewService(repos.Message, repos.Subscriber, logr)
	statsService := stats.NewService(repos.Page, repos.Subscriber, repos.Flow, repos.Broadcast, repos.Message, logr)
	broadcastService := broadcast.NewService(
		repos.Broadcast, repos.Page, repos.Subscriber, repos.Message, sender, repos.Locks,
		cfg.Broadcast.Workers,
		time.Duration(cfg.Broadcast.DeadlineSeconds)*time.Second,
		time.Duration(cfg.Broadcast.LockTTLSeconds)*time.Second,
		logr,
	)
	logr.Debug("serviços inicializados")

	router := server.NewRouter(server.Options{
		Env:        cfg.App.Env,
		AuthSecret: cfg.JWT.Secret,
		AppSecret:  cfg.Facebook.AppSecret,
		Logger:     logr,

		HealthHandler:     handler.NewHealthHandler(),
		AuthHandler:       handler.NewAuthHandler(authService, cfg.JWT.Secret),
		PageHandler:       handler.NewPageHandler(pageService),
		SubscriberHandler: handler.NewSubscriberHandler(subscriberService, messageService),
		FlowHandler:       handler.NewFlowHandler(flowService),
		AutomationHandler: handler.NewAutomationHandler(automationService),
		BroadcastHandler:  handler.NewBroadcastHandler(broadcastService),
		StatsHandler:      handler.NewStatsHandler(statsService),
		WebhookHandler:    handler.NewWebhookHandler(repos.EventQueue, cfg.Facebook.VerifyToken, logr),

		RateLimit: middleware.RateLimitOption{
			Enabled:  cfg.RateLimit.Enabled,
			Requests: cfg.RateLimit.Requests,
			Window:   time.Duration(cfg.RateLimit.WindowSeconds) * time.Second,
			Prefix:   cfg.RateLimit.Prefix,
			Logger:   logr,
			Limiter:  repos.RateLimiter,
		},
		IPRateLimit: middleware.IPRateLimitOption{
			Enabled:        cfg.RateLimit.Enabled,
			Requests:       cfg.RateLimit.Requests,
			WindowSeconds:  cfg.RateLimit.WindowSeconds,
			Limiter:        repos.RateLimiter,
			Logger:         logr,
			SkipPrivateIPs: true,
		},
	})

	application := app.New(cfg, logr, router)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := application.Run(context.Background()); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logr.Info("sinal de encerramento recebido")
	case err := <-errCh:
		if err != nil {
			logr.Error("servidor finalizado com erro", zap.Error(err))
		}
	}

	logr.Info("iniciando shutdown graceful")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	webhookPool.Stop()
	logr.Info("webhook pool encerrada")

	if err := repos.Close(); err != nil {
		logr.Warn("erro ao liberar recursos de storage", zap.Error(err))
	}

	if err := application.Shutdown(shutdownCtx); err != nil {
		logr.Error("erro ao encerrar servidor", zap.Error(err))
	} else {
		logr.Info("servidor encerrado com sucesso")
	}
}
