// Package main - точка входа фонового процесса (Worker) PeerCall Hub.
//
// Worker отвечает за проходы подбора:
// - Генерация матчей: еженедельное распределение пар по общим слотам
// - Завершение: закрытие прошедших подтверждённых звонков
// - Автоотмена: отмена неподтверждённых матчей в день звонка
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/peercall/peercall-hub/config"
	"github.com/peercall/peercall-hub/internal/domain/matching"
	"github.com/peercall/peercall-hub/internal/infrastructure/notify"
	"github.com/peercall/peercall-hub/internal/infrastructure/persistence/postgres"
	"github.com/peercall/peercall-hub/internal/infrastructure/persistence/redis"
	"github.com/peercall/peercall-hub/internal/infrastructure/scheduler"
	"github.com/peercall/peercall-hub/internal/infrastructure/scheduler/jobs"
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
	notifyLog := logger.New(logger.Options{
		Level: logger.ParseLevel(cfg.Observability.LogLevel),
	})

	log.Info("starting PeerCall Hub worker",
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
	// Без Redis проходы работают, но без кеша статистики и блокировки прохода.
	// ─────────────────────────────────────────────────────────────────────────
	var statsStore jobs.StatsStore
	var passLock jobs.PassLocker

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

		redisCache, err := redis.NewCache(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, stats cache and pass lock disabled", "error", err)
		} else {
			defer redisCache.Close()
			statsCache := redis.NewAllocationStatsCache(redisCache)
			statsStore = statsCache
			passLock = statsCache
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. РЕПОЗИТОРИИ И ДОМЕННЫЕ СЕРВИСЫ
	// ─────────────────────────────────────────────────────────────────────────
	userRepo := postgres.NewUserRepository(dbConn)
	matchRepo := postgres.NewMatchRepository(dbConn, userRepo)

	allocator := matching.NewAllocator(matching.AllocatorParams{
		Weights: matching.Weights{
			Shared:              cfg.Matching.WeightSharedAvailability,
			NoPriorMatch:        cfg.Matching.WeightNoPriorMatch,
			DeadlineApproaching: cfg.Matching.WeightDeadlineApproaching,
		},
		Horizon: cfg.Matching.Horizon(),
	})

	notifier := buildNotifier(cfg, notifyLog)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ПЛАНИРОВЩИК И ПРОХОДЫ
	// ─────────────────────────────────────────────────────────────────────────
	schedCfg := scheduler.DefaultConfig()
	schedCfg.Logger = log
	schedCfg.Timezone = cfg.App.Location
	schedCfg.JobTimeout = cfg.Scheduler.JobTimeout
	sched := scheduler.New(schedCfg)

	generateSchedule, err := scheduler.NewCronSchedule(cfg.Scheduler.GenerateCron, cfg.App.Location)
	if err != nil {
		return fmt.Errorf("invalid generation cron expression: %w", err)
	}

	generateJob := jobs.NewGenerateMatchesJob(jobs.GenerateMatchesParams{
		Users:     userRepo,
		Matches:   matchRepo,
		Allocator: allocator,
		Notifier:  notifier,
		Stats:     statsStore,
		Lock:      passLock,
		Logger:    log,
	})
	if err := sched.Register(generateJob, generateSchedule); err != nil {
		return fmt.Errorf("failed to register generation pass: %w", err)
	}

	completeJob := jobs.NewCompleteMatchesJob(jobs.CompleteMatchesParams{
		Matches:  matchRepo,
		Notifier: notifier,
		Logger:   log,
	})
	if err := sched.Register(completeJob, scheduler.NewIntervalSchedule(cfg.Scheduler.CompleteInterval)); err != nil {
		return fmt.Errorf("failed to register completion pass: %w", err)
	}

	if cfg.Features.IsEnabled(config.FeatureMatchingAutoCancel, config.FeatureContext{}) {
		autoCancelSchedule, err := scheduler.NewCronSchedule(cfg.Scheduler.AutoCancelCron, cfg.App.Location)
		if err != nil {
			return fmt.Errorf("invalid auto-cancel cron expression: %w", err)
		}

		autoCancelJob := jobs.NewAutoCancelMatchesJob(jobs.AutoCancelMatchesParams{
			Matches:  matchRepo,
			Notifier: notifier,
			Logger:   log,
		})
		if err := sched.Register(autoCancelJob, autoCancelSchedule); err != nil {
			return fmt.Errorf("failed to register auto-cancel pass: %w", err)
		}
	} else {
		log.Info("auto-cancel pass disabled by feature flag")
	}

	if !cfg.Scheduler.Enabled {
		log.Warn("scheduler disabled by configuration, worker will idle")
	} else {
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		log.Info("scheduler started", "jobs", len(sched.ListJobs()))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. МЕТРИКИ
	// ─────────────────────────────────────────────────────────────────────────
	if cfg.Observability.MetricsEnabled {
		go serveMetrics(cfg.Observability.MetricsPort, log)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("PeerCall Hub worker is running", "timezone", cfg.App.Timezone)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	sig := <-sigCh
	log.Info("received shutdown signal", "signal", sig.String())

	if sched.IsRunning() {
		if err := sched.Stop(); err != nil {
			log.Error("failed to stop scheduler", "error", err)
		}
	}

	log.Info("shutdown completed successfully")
	return nil
}

// serveMetrics отдаёт Prometheus-метрики проходов на отдельном порту.
func serveMetrics(port int, log *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%d", port)
	log.Info("serving metrics", "address", addr)

	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error("metrics server stopped", "error", err)
	}
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
