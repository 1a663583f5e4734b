// Package main - точка входа API-процесса PeerCall Hub.
//
// Server обслуживает:
// - Ссылки подтверждения/отклонения матчей из email-уведомлений
// - REST API для чтения матчей и статистики последнего прохода
// - Health-check и метрики
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/peercall/peercall-hub/config"
	"github.com/peercall/peercall-hub/internal/application/command"
	"github.com/peercall/peercall-hub/internal/application/query"
	"github.com/peercall/peercall-hub/internal/infrastructure/notify"
	"github.com/peercall/peercall-hub/internal/infrastructure/persistence/postgres"
	"github.com/peercall/peercall-hub/internal/infrastructure/persistence/redis"
	httpapi "github.com/peercall/peercall-hub/internal/interface/http"
	"github.com/peercall/peercall-hub/internal/interface/http/handlers"
	"github.com/peercall/peercall-hub/pkg/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := setupSlog(cfg)
	httpLog := logger.New(logger.Options{
		Level: logger.ParseLevel(cfg.Observability.LogLevel),
	})

	log.Info("starting PeerCall Hub API server",
		"env", string(cfg.App.Environment),
		"version", cfg.App.Version,
		"timezone", cfg.App.Timezone,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ПОДКЛЮЧЕНИЕ К БАЗЕ ДАННЫХ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	log.Info("database connection established")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. МИГРАЦИИ СХЕМЫ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("checking database migrations...")
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("database schema is up to date")

	// ─────────────────────────────────────────────────────────────────────────
	// 5. REDIS (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	var statsCache *redis.AllocationStatsCache
	var redisCache *redis.Cache

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
		redisCfg.DialTimeout = cfg.Redis.DialTimeout
		redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
		redisCfg.WriteTimeout = cfg.Redis.WriteTimeout

		redisCache, err = redis.NewCache(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, stats endpoint disabled", "error", err)
		} else {
			defer redisCache.Close()
			statsCache = redis.NewAllocationStatsCache(redisCache)
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. РЕПОЗИТОРИИ
	// ─────────────────────────────────────────────────────────────────────────
	userRepo := postgres.NewUserRepository(dbConn)
	matchRepo := postgres.NewMatchRepository(dbConn, userRepo)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. УВЕДОМЛЕНИЯ
	// Подтверждение второго участника и отклонение рассылают уведомления,
	// поэтому шлюзы нужны и API-процессу.
	// ─────────────────────────────────────────────────────────────────────────
	notifier := buildNotifier(cfg, httpLog)

	// ─────────────────────────────────────────────────────────────────────────
	// 8. APPLICATION-СЛОЙ
	// ─────────────────────────────────────────────────────────────────────────
	confirmHandler := command.NewConfirmMatchHandler(matchRepo, userRepo, notifier, log)
	declineHandler := command.NewDeclineMatchHandler(matchRepo, userRepo, notifier, log)
	getMatchHandler := query.NewGetMatchHandler(matchRepo)

	var statsHandler *query.GetAllocationStatsHandler
	if statsCache != nil {
		statsHandler = query.NewGetAllocationStatsHandler(statsCache)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. HEALTH CHECKS
	// ─────────────────────────────────────────────────────────────────────────
	healthChecker := handlers.NewCompositeHealthChecker(cfg.App.Version)
	healthChecker.AddCheck("database", handlers.NewDatabaseCheck(dbConn))
	if redisCache != nil {
		healthChecker.AddCheck("cache", handlers.NewCacheCheck(redisCache))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 10. HTTP-СЕРВЕР
	// ─────────────────────────────────────────────────────────────────────────
	serverCfg := httpapi.DefaultConfig()
	serverCfg.Host = cfg.HTTP.Host
	serverCfg.Port = cfg.HTTP.Port
	serverCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	serverCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	serverCfg.IdleTimeout = cfg.HTTP.IdleTimeout
	serverCfg.EnableMetrics = cfg.Observability.MetricsEnabled

	server := httpapi.NewServer(serverCfg, httpapi.Dependencies{
		ConfirmMatchHandler:       confirmHandler,
		DeclineMatchHandler:       declineHandler,
		GetMatchHandler:           getMatchHandler,
		GetAllocationStatsHandler: statsHandler,
		Logger:                    httpLog,
		HealthChecker:             healthChecker,
	})

	errCh := server.StartAsync()
	log.Info("PeerCall Hub API server is running", "address", server.Address())

	// ─────────────────────────────────────────────────────────────────────────
	// 11. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server stopped unexpectedly: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("shutdown completed successfully")
	return nil
}

// buildNotifier собирает composite-нотификатор из сконфигурированных шлюзов.
// Шлюз без учётных данных не подключается: канал просто пропускается.
func buildNotifier(cfg *config.Config, log *logger.Logger) *notify.Service {
	var sms notify.SMSSender
	if cfg.Twilio.AccountSID != "" {
		twilioCfg := notify.DefaultTwilioConfig(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.FromNumber)
		twilioCfg.BaseURL = cfg.Twilio.BaseURL
		twilioCfg.Timeout = cfg.Twilio.RequestTimeout
		sms = notify.NewTwilioClient(twilioCfg)
	}

	var email notify.EmailSender
	if cfg.SendGrid.APIKey != "" {
		sendgridCfg := notify.DefaultSendGridConfig(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName)
		sendgridCfg.BaseURL = cfg.SendGrid.BaseURL
		sendgridCfg.Timeout = cfg.SendGrid.RequestTimeout
		email = notify.NewSendGridClient(sendgridCfg)
	}

	return notify.NewService(notify.ServiceParams{
		SMS:     sms,
		Email:   email,
		Flags:   cfg.Features,
		BaseURL: cfg.HTTP.PublicBaseURL,
		Logger:  log,
	})
}

// setupSlog настраивает структурированное логирование.
func setupSlog(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.App.Debug {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)

	return log
}
