package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Fi44er/payments_admin/config"
	"github.com/Fi44er/payments_admin/db"
	"github.com/Fi44er/payments_admin/internal/bot"
	"github.com/Fi44er/payments_admin/internal/casino"
	"github.com/Fi44er/payments_admin/internal/events"
	"github.com/Fi44er/payments_admin/internal/limiter"
	"github.com/Fi44er/payments_admin/internal/metrics"
	"github.com/Fi44er/payments_admin/internal/repository"
	"github.com/Fi44er/payments_admin/internal/server"
	"github.com/Fi44er/payments_admin/internal/service"
	"github.com/Fi44er/payments_admin/utils"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	cfg, err := config.LoadConfig(".env")
	logger := utils.InitLogger(cfg.LogLevel)
	if err != nil {
		logger.Fatal("Failed to load config: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.ConnectDb(cfg.DB_URL, logger)
	if err != nil {
		logger.Fatal(err)
	}
	if err := db.Migrate(database, true, logger); err != nil {
		logger.Fatal(err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	repo := repository.NewRepository(database, logger)
	resolver := casino.NewResolver(repo, casino.FallbacksFromConfig(cfg.Casino), logger)
	forwarder := casino.NewForwarder(resolver, cfg.Casino, m, logger)
	svc := service.NewService(repo, forwarder, &cfg, m, logger)

	if err := svc.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		logger.Fatal("Failed to provision admin user: ", err)
	}

	if cfg.RedisAddr != "" {
		rdb, err := limiter.ConnectRedis(cfg.RedisAddr)
		if err != nil {
			logger.Warnf("Login throttling disabled: %v", err)
		} else {
			defer rdb.Close()
			svc.SetLimiter(limiter.New(rdb, cfg.LoginMaxAttempts, cfg.LoginWindow))
		}
	}

	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic != "" {
		publisher := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		defer publisher.Close()
		svc.SetPublisher(publisher)
	}

	if cfg.TelegramBotToken != "" {
		api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
		if err != nil {
			logger.Fatal("Failed to create bot API: ", err)
		}
		updates := api.GetUpdatesChan(tgbotapi.NewUpdate(0))
		defer api.StopReceivingUpdates()

		adminBot := bot.NewBot(api, svc, cfg.AdminChatID, logger)
		svc.SetNotifier(adminBot)
		go adminBot.Start(ctx, updates)
	} else {
		logger.Warn("TELEGRAM_BOT_TOKEN is empty, Telegram notifications are disabled")
	}

	srv := server.New(&cfg, svc, repo, m, registry, logger)
	if err := srv.Run(ctx); err != nil {
		logger.Errorf("Server stopped with error: %v", err)
	}
	svc.Wait()
	logger.Info("Shutdown complete")
}
