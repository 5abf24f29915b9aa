package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/paradox-backend/internal/config"
	"github.com/stemsi/paradox-backend/internal/database"
	"github.com/stemsi/paradox-backend/internal/handler"
	"github.com/stemsi/paradox-backend/internal/logger"
	"github.com/stemsi/paradox-backend/internal/middleware"
	"github.com/stemsi/paradox-backend/internal/progress"
	"github.com/stemsi/paradox-backend/internal/questionbank"
	"github.com/stemsi/paradox-backend/internal/repository"
	"github.com/stemsi/paradox-backend/internal/router"
	"github.com/stemsi/paradox-backend/internal/service"
	"github.com/stemsi/paradox-backend/internal/validator"
	"github.com/stemsi/paradox-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Bool("require_lockdown", cfg.RequireLockdownBrowser).
		Msg("Starting Terminal Paradox backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	bank, err := questionbank.Defaults()
	if err != nil {
		log.Fatal().Err(err).Msg("Bundled question bank is invalid")
	}

	// ─── Initialize Repositories ───────────────────────────────────────
	participantRepo := repository.NewParticipantRepository(pool)
	adminRepo := repository.NewAdminRepository(pool)
	gameRepo := repository.NewGameSessionRepository(pool)
	settingRepo := repository.NewSettingRepository(pool)
	slotRepo := repository.NewQuestionSlotRepository(pool)
	activityRepo := repository.NewActivityRepository(pool)
	dashboardRepo := repository.NewDashboardRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, rdb)
	participantService := service.NewParticipantService(participantRepo, authService.Verifier(), log)
	adminService := service.NewAdminService(adminRepo, authService.Verifier())
	gateService := service.NewGateService(settingRepo, rdb, cfg.ParticipantSessionTTL, log)
	gameService := service.NewGameStateService(gameRepo, rdb, cfg.GamePollInterval, log)
	questionService := service.NewQuestionService(slotRepo, rdb, bank, log)
	roundService := service.NewRoundService(
		gameService,
		participantService,
		questionService,
		activityRepo,
		progress.NewSimulatedJudge(cfg.JudgeDelay),
		rdb,
		log,
	)
	dashboardService := service.NewDashboardService(dashboardRepo)
	monitorService := service.NewMonitorService(participantService, dashboardService)

	access := &middleware.Access{
		Game:            gameService,
		Gate:            gateService,
		RequireLockdown: cfg.RequireLockdownBrowser,
	}

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:         handler.NewAuthHandler(authService, participantService, adminService, gateService, roundService, log),
		Game:         handler.NewGameHandler(gameService, access, log, cfg.AllowedOrigins),
		Gate:         handler.NewGateHandler(gateService, cfg),
		Round:        handler.NewRoundHandler(roundService, questionService, log, cfg.AllowedOrigins),
		AdminGame:    handler.NewAdminGameHandler(gameService),
		Participants: handler.NewParticipantManagementHandler(participantService, roundService, log),
		Question:     handler.NewQuestionHandler(questionService),
		Dashboard:    handler.NewDashboardHandler(dashboardService),
		Monitor:      handler.NewMonitorHandler(rdb, participantService, monitorService, log),
		System:       handler.NewSystemHandler(pool, rdb, log),
	}

	// ─── Seed Question Bank ───────────────────────────────────────────
	// Empty slots get the bundled defaults before traffic arrives.
	if n, err := questionService.SeedIfEmpty(ctx); err != nil {
		log.Warn().Err(err).Msg("Question seeding failed")
	} else if n > 0 {
		log.Info().Int("slots", n).Msg("Seeded default questions")
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	progressWorker := worker.NewProgressWorker(participantRepo, rdb, log)
	activityWorker := worker.NewActivityWorker(activityRepo, rdb, log)

	workers.Go(func() { gameService.Run(workerCtx) })
	workers.Go(func() { progressWorker.Start(workerCtx) })
	workers.Go(func() { activityWorker.Start(workerCtx) })

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(router.Deps{
		Auth:   authService,
		Access: access,
		Redis:  rdb,
		Log:    log,
	}, handlers, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Close live attempts so no countdown fires after the queues drain.
	roundService.Shutdown()

	// 3. Stop background workers and wait for their final flush.
	workerCancel()
	drained := make(chan struct{})
	go func() {
		workers.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(worker.ShutdownFlush + time.Second):
		log.Warn().Msg("Workers did not drain in time")
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
