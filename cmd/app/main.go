package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	_ "loyalty-points-backend/docs"
	rcache "loyalty-points-backend/internal/cache/redis"
	"loyalty-points-backend/internal/common/cache"
	"loyalty-points-backend/internal/common/config"
	"loyalty-points-backend/internal/common/logger"
	"loyalty-points-backend/internal/common/middleware"
	"loyalty-points-backend/internal/domain/ledger"
	apphttp "loyalty-points-backend/internal/http"
	"loyalty-points-backend/internal/platform/kafka"
	"loyalty-points-backend/internal/platform/postgres"
	rplatform "loyalty-points-backend/internal/platform/redis"
	"loyalty-points-backend/internal/platform/telegram"
	pgrepo "loyalty-points-backend/internal/repository/postgres"
	"loyalty-points-backend/internal/service/analytics"
	"loyalty-points-backend/internal/service/attribution"
	"loyalty-points-backend/internal/service/education"
	"loyalty-points-backend/internal/service/leaderboard"
	ledgersvc "loyalty-points-backend/internal/service/ledger"
	"loyalty-points-backend/internal/service/retention"
	"loyalty-points-backend/internal/service/rewards"
	usersvc "loyalty-points-backend/internal/service/user"
	"loyalty-points-backend/internal/workers"
	"loyalty-points-backend/migrations"
)

// @title           Loyalty Points API
// @version         1.0
// @description     Points ledger, rewards and leaderboards for a Telegram Mini App. All endpoints require init_data authentication.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey TelegramInitData
// @in header
// @name init_data
// @description Telegram Mini App init_data string for authentication

// @tag.name points
// @tag.description Welcome bonus, daily check-in and daily spin

// @tag.name leaderboard
// @tag.description Windowed leaderboards and weekly rank

// @tag.name admin
// @tag.description Adjustments, analytics and nudge bookkeeping

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Init("loyalty-points-backend", false, false)
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load config")
	}

	logger.Init("loyalty-points-backend", cfg.Debug, cfg.Pretty)
	log := logger.With("main")
	log.Info().Bool("debug", cfg.Debug).Msg("Starting loyalty points backend")

	cal, err := ledger.NewCalendar(cfg.Ledger.Timezone)
	if err != nil {
		log.Fatal().Err(err).Str("timezone", cfg.Ledger.Timezone).Msg("Invalid ledger timezone")
	}

	if cfg.Postgres.RunMigrations {
		if err := migrations.Up(cfg.PostgresURL()); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply migrations")
		}
		log.Info().Msg("Migrations applied")
	}

	pg, err := postgres.NewClient(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pg.Close()

	var rdb *rplatform.Client
	if cfg.Redis.Host != "" {
		rdb, err = rplatform.Open(ctx, cfg.RedisAddr(), cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
	} else {
		log.Warn().Msg("REDIS_HOST is empty: caches, wallet proofs and reward reconciliation are disabled")
	}

	events := kafka.New(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	defer events.Close()

	// Repositories
	ledgerRepo := pgrepo.NewLedgerRepository(pg.GetDB())
	userRepo := pgrepo.NewUserRepository(pg.GetDB())
	checkinRepo := pgrepo.NewCheckinRepository(pg.GetDB())
	attributionRepo := pgrepo.NewAttributionRepository(pg.GetDB())
	educationRepo := pgrepo.NewEducationRepository(pg.GetDB())
	standingsRepo := pgrepo.NewStandingsRepository(pg.Sqlx())
	analyticsRepo := pgrepo.NewAnalyticsRepository(pg.Sqlx())

	writer := ledgersvc.NewWriter(ledgerRepo, cal, events)

	var (
		rewardQueue    *workers.RewardQueue
		queue          rewards.Queue
		standingsCache leaderboard.StandingsCache
		analyticsCache analytics.Cache
	)
	if rdb != nil {
		rewardQueue = workers.NewRewardQueue(rdb, cfg.Workers.Stream, cfg.Workers.DeadStream)
		queue = rewardQueue
		standingsCache = rcache.NewLeaderboardCache(rdb, cfg.Redis.LeaderboardTTL)
		analyticsCache = cache.NewCacheService(rdb, cfg.Redis.AnalyticsTTL)
	}
	reconciler := rewards.NewReconciler(writer, queue)

	// Services
	users := usersvc.NewService(userRepo, ledgerRepo)
	boards := leaderboard.NewService(standingsRepo, standingsCache, cal)
	rewardSvc := rewards.NewService(writer, userRepo, checkinRepo, reconciler, rewards.Config{
		Welcome:   cfg.Rewards.Welcome,
		Wallet:    cfg.Rewards.Wallet,
		Channel:   cfg.Rewards.Channel,
		ChannelID: cfg.Telegram.ChannelID,
	}).WithChatMembers(telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.APIBaseURL))
	if rdb != nil {
		rewardSvc.WithProofVerifier(rewards.NewProofVerifier(rdb, cfg.TonProof.Domain, cfg.TonProof.PayloadTTL))
	}
	attributionSvc := attribution.NewService(userRepo, attributionRepo, analyticsRepo, standingsRepo, reconciler, cal, cfg.Rewards.Referral)
	educationSvc := education.NewService(educationRepo, reconciler)
	analyticsSvc := analytics.NewService(analyticsRepo, boards, userRepo, analyticsCache, cfg.Redis.AnalyticsTTL, cal)
	retentionSvc := retention.NewService(analyticsRepo, cal)

	// Workers
	var reclaimer workers.Reclaimer
	if rdb != nil {
		worker := workers.NewRewardStreamWorker(rdb, rewardQueue, writer, workers.StreamConfig{
			Group:       cfg.Workers.Group,
			Consumer:    cfg.Workers.Consumer,
			MaxAttempts: cfg.Workers.MaxAttempts,
			ReclaimIdle: cfg.Workers.ReclaimIdle,
		})
		if err := worker.EnsureGroup(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to create reconciliation consumer group")
		}
		go worker.Start(ctx)
		reclaimer = worker
	}

	scheduler, err := workers.NewScheduler(ctx, reclaimer, boards, workers.ScheduleConfig{
		ReclaimEvery: cfg.Workers.ReclaimEvery,
		WarmEvery:    cfg.Workers.WarmCacheEvery,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create scheduler")
	}
	scheduler.Start()

	// HTTP
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	limit := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst).Handler()

	checks := map[string]apphttp.Check{"postgres": pg.HealthCheck}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	router := apphttp.NewRouter(apphttp.RouterConfig{
		Origin:      cfg.Server.Origin,
		BotToken:    cfg.Telegram.BotToken,
		InitDataTTL: cfg.Telegram.InitDataTTL,
		AdminIDs:    cfg.AdminIDs(),
		Profiles:    users,
		Checks:      checks,
	}, []apphttp.Registrar{
		apphttp.NewUserHandlers(users),
		apphttp.NewPointsHandlers(rewardSvc, limit),
		apphttp.NewTonProofHandlers(rewardSvc, limit),
		apphttp.NewChannelHandlers(rewardSvc, limit),
		apphttp.NewAttributionHandlers(attributionSvc),
		apphttp.NewEducationHandlers(educationSvc),
		apphttp.NewLeaderboardHandlers(boards),
	}, []apphttp.Registrar{
		apphttp.NewAdminHandlers(writer, analyticsSvc, retentionSvc, attributionSvc, cal),
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := scheduler.Shutdown(); err != nil {
		log.Error().Err(err).Msg("Scheduler shutdown failed")
	}

	log.Info().Msg("Server exited")
}
