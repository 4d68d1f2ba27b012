package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // Subscriber zones must resolve on hosts without a zoneinfo database

	"daily365_bot/internal/app"
	"daily365_bot/internal/domain/clock"
	"daily365_bot/internal/domain/delivery"
	"daily365_bot/internal/infra/config"
	idb "daily365_bot/internal/infra/database"
	"daily365_bot/internal/infra/events"
	"daily365_bot/internal/infra/logger"
	"daily365_bot/internal/infra/scheduler"
	"daily365_bot/internal/infra/telegram"
	"daily365_bot/internal/infra/web"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const (
	passTimeout     = 10 * time.Minute
	pollTimeout     = 10 * time.Second
	shutdownTimeout = 15 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("FATAL: Could not load application configuration: %v", err)
	}
	logger.Init(cfg)
	mainLogger := logger.Component("main")

	mainLogger.WithFields(logrus.Fields{
		"environment": cfg.Environment,
		"db_driver":   cfg.DatabaseDriver,
		"timezone":    cfg.SchedulerTimezone,
		"cron_spec":   cfg.CronSpecDelivery,
	}).Info("Daily365 bot starting...")

	// Initialize Database Connection
	db, err := idb.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not connect to database")
	}
	defer db.Close()
	if err := idb.Migrate(db, cfg.DatabaseDriver); err != nil {
		mainLogger.WithError(err).Fatal("Could not apply database migrations")
	}
	mainLogger.Info("Database connection established and schema up to date.")

	// Initialize Repositories
	subscriberRepo := idb.NewSubscriberRepository(db)
	contentRepo := idb.NewContentRepository(db)
	settingsRepo := idb.NewSettingsRepository(db)
	adminRepo := idb.NewAdminRepository(db)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	created, err := idb.Bootstrap(ctx, contentRepo, settingsRepo)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not seed content slots")
	}
	if created > 0 {
		mainLogger.WithField("created", created).Info("Seeded empty content slots")
	}

	// Initialize Telegram Bot
	botLogger := logger.Component("telebot")
	bot, err := telebot.NewBot(telebot.Settings{
		Token:  cfg.TelegramToken,
		Poller: &telebot.LongPoller{Timeout: pollTimeout},
		// getUpdates holds the connection for pollTimeout; sends are bounded by ctx in the gateway.
		Client: &http.Client{Timeout: pollTimeout + cfg.DeliveryTimeout},
		OnError: func(err error, c telebot.Context) { // Global error handler
			entry := botLogger.WithError(err)
			if c != nil && c.Sender() != nil {
				entry = entry.WithField("sender_id", c.Sender().ID)
			}
			entry.Error("Unhandled bot error")
		},
	})
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not create Telegram bot")
	}

	var publisher delivery.EventPublisher = delivery.NopPublisher{}
	if cfg.AMQPURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPQueue, logger.Component("events"))
		if err != nil {
			mainLogger.WithError(err).Fatal("Could not connect to AMQP broker")
		}
		defer amqpPublisher.Close()
		publisher = amqpPublisher
		mainLogger.WithField("queue", cfg.AMQPQueue).Info("Delivery events enabled.")
	}

	// Initialize Services
	processLocation := clock.ResolveLocation(cfg.SchedulerTimezone)
	deliveryService := app.NewDeliveryService(
		subscriberRepo,
		contentRepo,
		telegram.NewGateway(bot, cfg.DeliveryRatePerSecond),
		publisher,
		clock.SystemClock{},
		app.DeliveryOptions{
			ProcessLocation: processLocation,
			DeliveryTimeout: cfg.DeliveryTimeout,
			Workers:         cfg.DeliveryWorkers,
		},
		logger.Component("delivery"),
	)
	subscriberService := app.NewSubscriberService(subscriberRepo, settingsRepo)
	adminService := app.NewAdminService(adminRepo, contentRepo, settingsRepo, subscriberRepo, cfg.AdminPassword)

	// Initialize DeliveryScheduler
	deliveryScheduler := scheduler.NewDeliveryScheduler(
		deliveryService,
		logger.Component("scheduler"),
		processLocation,
		cfg.CronSpecDelivery,
		passTimeout,
	)
	if err := deliveryScheduler.Start(); err != nil {
		mainLogger.WithError(err).Fatal("Could not start delivery scheduler")
	}

	// Register Handlers
	telegram.NewCommands(subscriberService, adminService, logger.Component("commands")).Register(ctx, bot)
	mainLogger.Info("Bot command handlers registered.")

	console, err := web.NewServer(adminService, cfg.WebAdminPassword, cfg.SessionTimeout, logger.Component("web"))
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not build web console")
	}
	httpServer := &http.Server{
		Addr:              cfg.WebListenAddr,
		Handler:           console.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		mainLogger.WithField("addr", cfg.WebListenAddr).Info("Web console listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			mainLogger.WithError(err).Error("Web console stopped")
			stop()
		}
	}()

	// Start bot in a goroutine so it doesn't block graceful shutdown handling
	go bot.Start()

	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		mainLogger.WithError(err).Warn("sd_notify READY failed")
	} else if ok {
		mainLogger.Debug("Notified systemd: ready")
	}
	mainLogger.Info("Application setup complete.")

	<-ctx.Done()

	mainLogger.Info("Shutting down application...")
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	// Stop waits for an in-flight pass so no send is left half-recorded.
	deliveryScheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		mainLogger.WithError(err).Warn("Web console did not shut down cleanly")
	}
	bot.Stop()

	mainLogger.Info("Application shut down gracefully.")
}
