package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"habitTracker/internal/bot"
	"habitTracker/internal/config"
	"habitTracker/internal/dialog"
	"habitTracker/internal/handlers"
	"habitTracker/internal/logger"
	"habitTracker/internal/middleware"
	"habitTracker/internal/repository/habit/inmemory"
	"habitTracker/internal/repository/habit/postgres"
	"habitTracker/internal/service"
	"habitTracker/internal/telegram"
	"habitTracker/internal/worker"

	"github.com/go-chi/chi/v5"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("загрузка конфигурации: %v", err)
	}

	if err := logger.Init(cfg.Logging.Development); err != nil {
		log.Fatalf("инициализация логгера: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var repo service.HabitRepository
	switch cfg.Repository.Type {
	case "postgres":
		if err := postgres.Migrate(cfg.Database.URL); err != nil {
			logger.Error("Миграции не применились", err)
			os.Exit(1)
		}

		pg, err := postgres.New(ctx, cfg.Database.URL, &postgres.PoolOptions{
			MaxConns:    int32(cfg.Database.MaxConnections),
			MinConns:    int32(cfg.Database.MinConnections),
			IdleTimeout: cfg.Database.IdleTimeout,
		})
		if err != nil {
			logger.Error("Подключение к PostgreSQL не удалось", err)
			os.Exit(1)
		}
		defer pg.Close()
		repo = pg
	default:
		logger.Info("Используется хранилище в памяти")
		repo = inmemory.NewHabitStorage()
	}

	habitService := service.NewHabitService(repo)
	statsService := service.NewStatsService(repo)
	dialogs := dialog.NewController(&habitService)

	client := telegram.NewClient(cfg.Telegram.Token)
	router := bot.NewRouter(&habitService, &statsService, dialogs, time.Now)
	poller := bot.NewPoller(client, router, cfg.Telegram.PollTimeout)

	var interval, sendTimeout *time.Duration
	if cfg.Reminders.Interval > 0 {
		interval = &cfg.Reminders.Interval
	}
	if cfg.Reminders.SendTimeout > 0 {
		sendTimeout = &cfg.Reminders.SendTimeout
	}
	reminderWorker := worker.NewReminderWorker(&habitService, client, interval, sendTimeout)
	go reminderWorker.Start(ctx)

	// служебный HTTP: /health и отладочная статистика
	habitHandler := handlers.NewHabitHandler(&habitService, &statsService, time.Now)
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Get("/health", habitHandler.HealthCheck)
	r.Get("/debug/stats/{userID}", habitHandler.UserStats)

	srv := &http.Server{Addr: cfg.GetServerAddr(), Handler: r}
	go func() {
		logger.Info("HTTP: Служебный сервер запущен")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP: Сервер остановился с ошибкой", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if err := poller.Run(ctx); err != nil {
		logger.Error("Бот остановлен по неустранимой ошибке", err)
		os.Exit(1)
	}
}
