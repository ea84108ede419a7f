package api

import (
	"log/slog"
	"time"

	"outpass/internal/api/handlers"
	"outpass/internal/api/middleware"
	"outpass/internal/auth"
	"outpass/internal/core"
	"outpass/internal/storage"

	"github.com/gin-gonic/gin"
)

// RouterConfig holds dependencies for the API router
type RouterConfig struct {
	Storage         storage.Storage
	Manager         *core.OutpassManager
	Validator       *core.ScanValidator
	Reconciler      *core.LogReconciler
	Clock           core.Clock
	LoginSigningKey string
	TokenIssuer     string
	LoginTTL        time.Duration
	Logger          *slog.Logger
}

// NewRouter creates and configures the Gin router
func NewRouter(config RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery(config.Logger))
	router.Use(middleware.Logging(config.Logger))
	router.Use(middleware.ContentType())

	// Health check (no auth)
	healthHandler := handlers.NewHealthHandler()
	router.GET("/health", healthHandler.GetHealth)

	v1 := router.Group("/v1")

	// Registration and login (no auth)
	authHandler := handlers.NewAuthHandler(
		config.Storage,
		config.LoginSigningKey,
		config.TokenIssuer,
		config.LoginTTL,
		config.Logger,
	)
	v1.POST("/auth/register", authHandler.Register)
	v1.POST("/auth/login", authHandler.Login)

	// Student endpoints
	studentsHandler := handlers.NewStudentsHandler(
		config.Storage,
		config.Manager,
		config.Reconciler,
		config.Logger,
	)
	student := v1.Group("/student")
	student.Use(middleware.RequireRole(config.LoginSigningKey, config.TokenIssuer, auth.RoleStudent))
	{
		student.POST("/outpasses", studentsHandler.CreateOutpass)
		student.GET("/outpasses", studentsHandler.ListOutpasses)
		student.GET("/outpasses/active", studentsHandler.GetActiveOutpass)
		student.GET("/outpasses/:id", studentsHandler.GetOutpass)
		student.POST("/outpasses/:id/qr", studentsHandler.RefreshQR)
		student.POST("/outpasses/:id/return", studentsHandler.ConfirmReturn)
		student.GET("/notifications", studentsHandler.ListNotifications)
		student.GET("/stats", studentsHandler.GetStats)
	}

	// Warden endpoints
	wardensHandler := handlers.NewWardensHandler(
		config.Storage,
		config.Manager,
		config.Clock,
		config.Logger,
	)
	warden := v1.Group("/warden")
	warden.Use(middleware.RequireRole(config.LoginSigningKey, config.TokenIssuer, auth.RoleWarden))
	{
		warden.GET("/outpasses/pending", wardensHandler.ListPending)
		warden.GET("/outpasses", wardensHandler.ListOutpasses)
		warden.POST("/outpasses/:id/approve", wardensHandler.Approve)
		warden.POST("/outpasses/:id/reject", wardensHandler.Reject)
		warden.GET("/dashboard", wardensHandler.GetDashboard)
		warden.GET("/students/:rollNumber", wardensHandler.GetStudent)
	}

	// Watchman endpoints
	watchmenHandler := handlers.NewWatchmenHandler(
		config.Storage,
		config.Validator,
		config.Reconciler,
		config.Clock,
		config.Logger,
	)
	watchman := v1.Group("/watchman")
	watchman.Use(middleware.RequireRole(config.LoginSigningKey, config.TokenIssuer, auth.RoleWatchman))
	{
		watchman.POST("/scan/validate", watchmenHandler.ValidateScan)
		watchman.POST("/scan", watchmenHandler.Scan)
		watchman.GET("/logs/today", watchmenHandler.ListTodayLogs)
		watchman.GET("/logs/mine", watchmenHandler.ListMyLogs)
		watchman.GET("/logs/pending-returns", watchmenHandler.ListPendingReturns)
		watchman.GET("/dashboard", watchmenHandler.GetDashboard)
	}

	return router
}
