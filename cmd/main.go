package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"incluverse/backend/internal/api/handler"
	"incluverse/backend/internal/app"
	"incluverse/backend/internal/complaint"
	"incluverse/backend/internal/config"
	"incluverse/backend/internal/events"
	"incluverse/backend/internal/telegram"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	cfg.SetupLogging()
	if err := cfg.CheckSecrets(); err != nil {
		log.WithError(err).Fatal("refusing to start")
	}
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	log.Info("starting IncluVerse grievance backend")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Event fan-out, optionally shared with other instances
	hub := events.NewHub()
	var publisher complaint.Publisher = hub
	var relay *events.Relay
	if cfg.EventsRelay {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		relay = events.NewRelay(rdb, cfg.EventsChannel, hub)
		publisher = relay
	}

	// 2. Complaint engine
	a, err := app.New(cfg, publisher)
	if err != nil {
		log.WithError(err).Fatal("failed to build complaint engine")
	}
	if _, err := a.Service.Load(ctx); err != nil {
		// writes stay blocked until storage can be read
		log.WithError(err).Error("complaint collection could not be loaded")
	}

	// 3. HTTP API
	auth := handler.NewAuth(cfg.JWTSecret, cfg.ResponderKeyHash)
	if cfg.ResponderKeyHash == "" {
		log.Warn("RESPONDER_KEY_HASH is empty, responder tokens cannot be issued")
	}
	h := handler.NewHandler(a.Service, a.Signal, hub, a.Localizer, auth)
	h.PublicURL = cfg.PublicURL
	server := &http.Server{
		Addr:           cfg.HTTPAddr,
		Handler:        handler.NewRouter(h),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	// 4. Background loops
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error { return a.Service.WatchConnectivity(gctx, a.Signal) })
	if a.Prober != nil {
		g.Go(func() error { return a.Prober.Run(gctx) })
	}
	if relay != nil {
		g.Go(func() error { return relay.Listen(gctx) })
	}
	startTelegram(gctx, g, cfg, a, hub)

	g.Go(func() error {
		log.WithField("addr", cfg.HTTPAddr).Info("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("server stopped with error")
	}
	log.Info("server stopped")
}

// startTelegram runs the citizen bot and, with TELEGRAM_CHAT_ID, mirrors
// lifecycle events into that chat. Both are optional.
func startTelegram(ctx context.Context, g *errgroup.Group, cfg *config.Config, a *app.App, hub *events.Hub) {
	if cfg.TelegramBotToken == "" {
		log.Info("TELEGRAM_BOT_TOKEN not set, telegram bot disabled")
		return
	}
	bot, err := telegram.NewBotService(cfg.TelegramBotToken, a.Service, a.Localizer)
	if err != nil {
		log.WithError(err).Error("telegram bot disabled")
		return
	}
	g.Go(func() error { return bot.Run(ctx) })

	if cfg.TelegramChatID == 0 {
		return
	}
	notifier := telegram.NewNotifier(bot.Sender, cfg.TelegramChatID, a.Localizer, "en")
	notifier.Run()
	g.Go(func() error {
		if !hub.Register(notifier) {
			notifier.Close()
		}
		return nil
	})
}
