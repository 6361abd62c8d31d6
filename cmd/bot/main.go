package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"exam_countdown_bot/internal/broadcast"
	"exam_countdown_bot/internal/config"
	"exam_countdown_bot/internal/feature/commands"
	"exam_countdown_bot/internal/feature/lifecycle"
	"exam_countdown_bot/internal/line"
	"exam_countdown_bot/internal/logging"
	"exam_countdown_bot/internal/store"
	"exam_countdown_bot/internal/telemetry"
	"exam_countdown_bot/internal/webhook"
)

const (
	mongoConnectTimeout    = 10 * time.Second
	mongoIndexTimeout      = 5 * time.Second
	mongoDisconnectTimeout = 5 * time.Second
	serverShutdownTimeout  = 10 * time.Second
)

func main() {
	configOnly := flag.Bool("config-only", false, "load and print configuration then exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Error("configuration error", logging.Fields{"error": err})
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.Setup(cfg)
	if err != nil {
		logging.Error("logger setup error", logging.Fields{"error": err})
		fmt.Fprintf(os.Stderr, "logger setup error: %v\n", err)
		os.Exit(1)
	}

	if *configOnly {
		logging.Info("configuration check", logging.Fields{"event": "config_only"})
		fmt.Println("configuration check: ok")
		fmt.Println(cfg.FormatRedacted())
		return
	}

	logger.WithFields(logging.Fields{
		"event":    "startup",
		"mongo_db": cfg.MongoDB,
	}).Info("configuration loaded")

	telemetry.Init()

	// A failed Mongo connection degrades the bot instead of aborting boot:
	// every store operation then reports ErrUnavailable and handlers skip
	// the dependent work, matching how the webhook keeps answering even
	// when persistence is down.
	connectCtx, cancelConnect := context.WithTimeout(context.Background(), mongoConnectTimeout)
	mongoManager, err := store.NewManager(connectCtx, cfg)
	cancelConnect()
	if err != nil {
		logger.WithError(err).Error("mongo connection error, continuing without persistence")
		mongoManager = nil
	} else {
		logger.WithField("event", "mongo_connect").Info("connected to mongo")

		indexCtx, cancelIndexes := context.WithTimeout(context.Background(), mongoIndexTimeout)
		if err := mongoManager.EnsureBaseIndexes(indexCtx); err != nil {
			cancelIndexes()
			logger.WithError(err).Error("mongo index setup error")
			fmt.Fprintf(os.Stderr, "mongo index setup error: %v\n", err)
			os.Exit(1)
		}
		cancelIndexes()

		logger.WithField("event", "mongo_indexes").Info("ensured base mongo indexes")
	}

	chatRepo := store.NewChatRepository(nil)
	statsProvider := store.NewStatsProvider(nil)
	if mongoManager != nil {
		chatRepo = store.NewChatRepository(mongoManager.Chats())
		statsProvider = store.NewStatsProvider(mongoManager.Chats())
	}

	lineClient, err := line.NewClient(cfg, logger)
	if err != nil {
		logger.WithError(err).Error("line client setup error")
		fmt.Fprintf(os.Stderr, "line client setup error: %v\n", err)
		os.Exit(1)
	}

	logger.WithField("event", "line_ready").Info("line messaging client initialized")

	commandHandler := commands.NewHandler(chatRepo, lineClient, logger)
	lifecycleHandler := lifecycle.NewHandler(chatRepo, lineClient, logger)
	dispatcher := broadcast.NewDispatcher(chatRepo, lineClient, logger)
	scheduler := broadcast.NewScheduler(dispatcher, cfg.BroadcastHour, cfg.BroadcastMinute, logger)

	server := webhook.NewServer(cfg.HTTPPort, webhook.Deps{
		ChannelSecret: cfg.ChannelSecret,
		CronSecret:    cfg.CronSecret,
		Commands:      commandHandler,
		Lifecycle:     lifecycleHandler,
		Broadcaster:   dispatcher,
		MongoChecker:  mongoManager,
		Stats:         statsProvider,
	}, logger)

	signalCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	schedulerCtx, cancelScheduler := context.WithCancel(context.Background())
	schedulerDone := make(chan struct{})

	go func() {
		if err := scheduler.Run(schedulerCtx); err != nil {
			logger.WithError(err).Error("scheduler error")
		}
		close(schedulerDone)
	}()

	serverDone := make(chan struct{})

	go func() {
		if err := server.ListenAndServe(); err != nil {
			logger.WithError(err).Error("webhook server error")
		}
		close(serverDone)
	}()

	select {
	case <-signalCtx.Done():
		logger.WithField("event", "shutdown_signal").Info("received termination signal, stopping")
	case <-serverDone:
		logger.WithField("event", "server_stopped_early").Warn("webhook server stopped before shutdown signal")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), serverShutdownTimeout)
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("webhook server shutdown error")
	}
	cancelShutdown()

	cancelScheduler()

	waitCtx, cancelWait := context.WithTimeout(context.Background(), serverShutdownTimeout)
	select {
	case <-schedulerDone:
	case <-waitCtx.Done():
		logger.WithField("event", "scheduler_shutdown_timeout").Warn("timed out waiting for scheduler to stop")
	}
	cancelWait()

	disconnectCtx, cancelDisconnect := context.WithTimeout(context.Background(), mongoDisconnectTimeout)
	if err := mongoManager.Close(disconnectCtx); err != nil {
		logger.WithError(err).Error("mongo disconnect error")
	} else if mongoManager != nil {
		logger.WithField("event", "mongo_disconnect").Info("mongo client disconnected")
	}
	cancelDisconnect()

	logger.WithField("event", "shutdown_complete").Info("shutdown complete")
}
