package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"github.com/Meet0004/email-sync-system-intern/internal/config"
	"github.com/Meet0004/email-sync-system-intern/internal/database"
	"github.com/Meet0004/email-sync-system-intern/internal/email"
	"github.com/Meet0004/email-sync-system-intern/internal/llm"
	"github.com/Meet0004/email-sync-system-intern/internal/notify"
	"github.com/Meet0004/email-sync-system-intern/internal/pipeline"
	"github.com/Meet0004/email-sync-system-intern/internal/reply"
	"github.com/Meet0004/email-sync-system-intern/internal/server"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup logger
	logger := setupLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting email sync service")

	// Connect to database; this is the one unrecoverable startup failure.
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("database migrations completed")

	// Reset the reply context to the default set on every start
	if err := db.ReplaceSnippets(ctx, reply.DefaultSnippets); err != nil {
		logger.Error("failed to seed snippets", "error", err)
		os.Exit(1)
	}

	// Notification sinks
	var sinks []notify.Notifier
	if cfg.SlackEnabled() {
		sinks = append(sinks, notify.NewWebhookNotifier(cfg.SlackWebhookURL))
		logger.Info("slack webhook notifications enabled")
	}
	if cfg.TelegramEnabled() {
		tg, err := notify.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			logger.Error("failed to create telegram notifier", "error", err)
			os.Exit(1)
		}
		sinks = append(sinks, tg)
		logger.Info("telegram notifications enabled")
	}
	var notifier pipeline.Notifier
	if len(sinks) > 0 {
		notifier = notify.NewFanout(sinks...)
	}

	// Reply engine with optional structured generation
	var completer reply.Completer
	if cfg.LLMEnabled() {
		completer = llm.NewClient(llm.Config{
			BaseURL: cfg.LLMBaseURL,
			APIKey:  cfg.LLMAPIKey,
			Model:   cfg.LLMModel,
		})
		logger.Info("llm reply generation enabled")
	}
	replyEngine := reply.NewEngine(db, completer, logger)

	// One coordinator per account with credentials
	manager := pipeline.NewManager(logger)
	active, skipped := cfg.ActiveAccounts()
	for _, acc := range skipped {
		logger.Warn("skipping account without credentials", "account", acc.ID)
	}
	for _, acc := range active {
		if acc.Host == "" {
			host, err := email.ResolveIMAPHost(acc.Email)
			if err != nil {
				logger.Warn("skipping account, cannot resolve IMAP host", "account", acc.ID, "error", err)
				continue
			}
			acc.Host = host
			acc.TLS = true
		}
		manager.Add(acc, email.ClientConfig{
			Account:           acc,
			BacklogWindow:     cfg.BacklogWindow,
			ReconnectDelay:    cfg.ReconnectDelay,
			KeepaliveInterval: cfg.KeepaliveInterval,
			DialTimeout:       cfg.IMAPDialTimeout,
		}, db, notifier)
	}

	runCtx, cancel := context.WithCancel(ctx)
	manager.StartAll(runCtx)

	// HTTP façade
	httpServer := server.New(cfg.HTTPAddr, db, replyEngine, manager, logger)
	httpErr := make(chan error, 1)
	go func() {
		httpErr <- httpServer.Start()
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-httpErr:
		if err != nil {
			logger.Error("http server failed", "error", err)
		}
	}

	logger.Info("shutting down...")
	manager.StopAll()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}

	logger.Info("service stopped")
}

func setupLogger(level, format string) *slog.Logger {
	var handler slog.Handler
	logLevel := parseLevel(level)

	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: logLevel,
		})
	} else {
		// Pretty colored output for console
		handler = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      logLevel,
			TimeFormat: time.DateTime,
		})
	}

	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
