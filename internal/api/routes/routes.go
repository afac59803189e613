// Package routes handles the setup and configuration of API routes
package routes

import (
	"database/sql"

	_ "contextguard/docs" // Import swagger docs
	"contextguard/internal/api/handlers"
	"contextguard/internal/api/middleware"
	"contextguard/internal/auth"
	"contextguard/internal/config"
	"contextguard/internal/email"
	"contextguard/internal/metrics"
	"contextguard/internal/repository/postgres"
	"contextguard/internal/trust"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// SetupRoutes configures all API routes and their handlers
func SetupRoutes(cfg *config.Config, db *sql.DB) *gin.Engine {
	// Create router
	r := gin.Default()

	// Initialize health handler for basic routes
	healthHandler := handlers.NewHealthHandler(db)

	// Routes without rate limiting
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/metrics", metrics.Handler())

	// Apply rate limiting to all other routes
	r.Use(middleware.NewRateLimiter(cfg).Middleware())

	// Initialize repositories
	userRepo := postgres.NewUserRepository(db)
	preferenceRepo := postgres.NewPreferenceRepository(db)
	baselineRepo := postgres.NewTrustBaselineRepository(db)
	suspiciousRepo := postgres.NewSuspiciousLoginRepository(db)
	auditRepo := postgres.NewAuditLogRepository(db)
	refreshTokenRepo := postgres.NewRefreshTokenRepository(db)
	loginAttemptRepo := postgres.NewLoginAttemptRepository(db)
	emailVerifyRepo := postgres.NewEmailVerificationRepository(db)

	// Initialize services
	authService := auth.NewService(cfg, refreshTokenRepo)
	emailService := email.NewService(cfg.Email)
	engine := trust.NewEngine(baselineRepo, suspiciousRepo, cfg.Trust.BlockThreshold)
	verifier := trust.NewVerifier(suspiciousRepo, baselineRepo)
	dispatcher := trust.NewDispatcher(cfg.Email.AppURL)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(authService, userRepo)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(
		userRepo,
		preferenceRepo,
		loginAttemptRepo,
		emailVerifyRepo,
		baselineRepo,
		auditRepo,
		authService,
		engine,
		dispatcher,
		emailService,
		cfg,
	)
	verifyHandler := handlers.NewVerifyHandler(verifier, auditRepo)
	preferenceHandler := handlers.NewPreferenceHandler(preferenceRepo)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Health check (no authentication required)
		v1.GET("/health", healthHandler.Health)

		// Auth routes
		auth := v1.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
			auth.GET("/verify-email", authHandler.VerifyEmail)
			auth.POST("/resend-verification", authHandler.ResendVerification)

			// Email callback links, reachable without a session
			auth.GET("/verify/login", verifyHandler.VerifyLogin)
			auth.GET("/verify/block", verifyHandler.BlockLogin)
		}

		// Preference routes (requires authentication)
		preferences := v1.Group("/preferences")
		preferences.Use(authMiddleware.AuthRequired())
		{
			preferences.GET("", preferenceHandler.GetPreference)
			preferences.PUT("", preferenceHandler.UpdatePreference)
		}
	}

	return r
}
