package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/paradox-backend/internal/config"
	"github.com/stemsi/paradox-backend/internal/handler"
	"github.com/stemsi/paradox-backend/internal/logger"
	"github.com/stemsi/paradox-backend/internal/middleware"
	"github.com/stemsi/paradox-backend/internal/model"
	"github.com/stemsi/paradox-backend/internal/response"
	"github.com/stemsi/paradox-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth         *handler.AuthHandler
	Game         *handler.GameHandler
	Gate         *handler.GateHandler
	Round        *handler.RoundHandler
	AdminGame    *handler.AdminGameHandler
	Participants *handler.ParticipantManagementHandler
	Question     *handler.QuestionHandler
	Dashboard    *handler.DashboardHandler
	Monitor      *handler.MonitorHandler
	System       *handler.SystemHandler
}

// Deps carries the shared services the middleware chain needs.
type Deps struct {
	Auth   *service.AuthService
	Access *middleware.Access
	Redis  *redis.Client
	Log    zerolog.Logger
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(deps Deps, handlers *Handlers, cfg *config.Config) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// Empty AllowedOrigins allows every origin so dev works without config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "X-RateLimit-Remaining", "Retry-After"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())
	router.Use(logger.Requests(deps.Log))
	router.Use(middleware.Brotli())

	router.GET("/health", handlers.System.Health)

	requireParticipant := []gin.HandlerFunc{
		middleware.RequireParticipantJWT(deps.Auth),
		middleware.CheckParticipantSession(deps.Auth, deps.Log),
	}
	adminOnly := middleware.RequireAdminRole(model.AdminRoleAdmin)

	loginLimiter := middleware.NewRateLimiter(deps.Redis, "login", 30, time.Minute, deps.Log)
	registerLimiter := middleware.NewRateLimiter(deps.Redis, "register", 10, time.Minute, deps.Log)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(middleware.CacheControl(0))
	{
		auth.POST("/participant/register", registerLimiter.Middleware(), handlers.Auth.Register)
		auth.POST("/participant/login", loginLimiter.Middleware(), handlers.Auth.ParticipantLogin)
		auth.POST("/admin/login", loginLimiter.Middleware(), handlers.Auth.AdminLogin)

		auth.POST("/participant/logout", append(requireParticipant, handlers.Auth.ParticipantLogout)...)
		auth.GET("/participant/me", append(requireParticipant, handlers.Auth.GetParticipantProfile)...)
		auth.GET("/admin/me", middleware.RequireAdminJWT(deps.Auth), handlers.Auth.GetAdminProfile)
	}

	// Navigation answers for signed-out visitors too, so it sits outside the
	// participant group.
	router.POST("/api/v1/participant/navigation",
		middleware.CacheControl(0),
		middleware.OptionalJWT(deps.Auth),
		handlers.Game.Navigate,
	)

	// ─── 2. Participant Group (JWT + live session) ─────────────────────
	participantAPI := router.Group("/api/v1/participant")
	participantAPI.Use(middleware.CacheControl(0))
	participantAPI.Use(requireParticipant...)
	{
		participantAPI.GET("/game", handlers.Game.GetSnapshot)
		participantAPI.GET("/gate", handlers.Gate.GetGateStatus)
		participantAPI.POST("/gate/entry", handlers.Gate.SubmitEntry)
		participantAPI.GET("/leaderboard", handlers.Monitor.GetLeaderboard)
		participantAPI.GET("/questions/:type/:door",
			middleware.RequireRoundAccess(deps.Access),
			handlers.Round.GetQuestions,
		)

		rounds := participantAPI.Group("/rounds")
		rounds.Use(middleware.RequireRoundAccess(deps.Access))
		{
			rounds.GET("/current", handlers.Round.GetCurrent)
			rounds.POST("/current/language", handlers.Round.SelectLanguage)
			rounds.POST("/current/begin", handlers.Round.Begin)
			rounds.POST("/current/answers", handlers.Round.Answer)
			rounds.POST("/current/hints/:index", handlers.Round.RevealHint)
			rounds.POST("/current/run/:index", handlers.Round.RunTests)
			rounds.POST("/current/submit", handlers.Round.Submit)
			rounds.POST("/:type/:door/start", handlers.Round.StartRound)
		}
	}

	// ─── 3. WebSocket Group (token in query) ───────────────────────────
	ws := router.Group("/ws/v1/participant")
	ws.Use(requireParticipant...)
	{
		ws.GET("/game", handlers.Game.GameStream)
		ws.GET("/rounds/stream", middleware.RequireRoundAccess(deps.Access), handlers.Round.RoundStream)
	}

	// ─── 4. Admin Group (JWT + role) ───────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.CacheControl(0))
	adminAPI.Use(middleware.RequireAdminJWT(deps.Auth))
	{
		// Game control
		adminAPI.GET("/game", handlers.AdminGame.GetGame)
		adminAPI.POST("/game/start", adminOnly, handlers.AdminGame.StartGame)
		adminAPI.POST("/game/stop", adminOnly, handlers.AdminGame.StopGame)
		adminAPI.PUT("/game/round", adminOnly, handlers.AdminGame.SetActiveRound)
		adminAPI.POST("/game/broadcast", adminOnly, handlers.AdminGame.SendBroadcast)

		// Entry/exit gate
		adminAPI.GET("/gate", handlers.Gate.GetSettings)
		adminAPI.PUT("/gate", adminOnly, handlers.Gate.UpdateSettings)
		adminAPI.GET("/gate/lockdown-profile", adminOnly, handlers.Gate.DownloadLockdownProfile)

		// Participant management
		adminAPI.GET("/participants", handlers.Participants.ListParticipants)
		adminAPI.GET("/participants/:id", handlers.Participants.GetParticipant)
		adminAPI.POST("/participants", adminOnly, handlers.Participants.CreateParticipant)
		adminAPI.PUT("/participants/:id", adminOnly, handlers.Participants.UpdateParticipant)
		adminAPI.DELETE("/participants/:id", adminOnly, handlers.Participants.DeleteParticipant)

		// Question bank
		adminAPI.GET("/questions", handlers.Question.ListSlots)
		adminAPI.POST("/questions/seed", adminOnly, handlers.Question.SeedDefaults)
		adminAPI.GET("/questions/:type/:door", handlers.Question.GetSlot)
		adminAPI.PUT("/questions/:type/:door", adminOnly, handlers.Question.SaveSlot)

		// Dashboard & monitoring
		adminAPI.GET("/dashboard", handlers.Dashboard.GetStats)
		adminAPI.GET("/leaderboard", handlers.Monitor.GetLeaderboard)
		adminAPI.GET("/monitor", handlers.Monitor.LeaderboardSSE)
		adminAPI.GET("/system/metrics", handlers.System.GetMetrics)
	}

	return router
}
