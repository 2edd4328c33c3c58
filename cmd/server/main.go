package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/connectorzzz/advisor-api/internal/config"
	"github.com/connectorzzz/advisor-api/internal/handler"
	"github.com/connectorzzz/advisor-api/internal/middleware"
	"github.com/connectorzzz/advisor-api/internal/repository"
	"github.com/connectorzzz/advisor-api/internal/service"
)

func main() {
	// ── Logging ──────────────────────────────────────────
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// ── Config ───────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	log.Info().Str("env", cfg.Env).Str("port", cfg.Port).Msg("Starting Advisor API")

	ctx := context.Background()

	// ── Remote collaborators ─────────────────────────────
	advisorClient := service.NewAdvisorClient(
		cfg.AnalyzeWebhookURL,
		cfg.CoverLetterWebhookURL,
		cfg.ImproveCVWebhookURL,
	)
	chatbotClient := service.NewChatbotClient(cfg.ChatbotWebhookURL)

	var tracker service.Tracker = service.NopTracker{}
	if ga := service.NewGATracker(cfg.GAMeasurementID, cfg.GAAPISecret); ga.Enabled() {
		tracker = ga
		log.Info().Msg("Usage tracking enabled")
	}

	statsService, err := service.NewStatsService(ctx, cfg.GAPropertyID, cfg.GAClientEmail, cfg.GAPrivateKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize analytics reader")
	}
	if !statsService.Enabled() {
		log.Warn().Msg("Analytics credentials missing; /api/stats will return errors")
	}

	// ── Stores ───────────────────────────────────────────
	flowRepo := repository.NewFlowRepo(time.Hour)
	chatRepo := repository.NewChatSessionRepo()

	// ── Handlers ─────────────────────────────────────────
	authHandler := handler.NewAuthHandler()
	advisorHandler := handler.NewAdvisorHandler(advisorClient, tracker)
	flowHandler := handler.NewFlowHandler(flowRepo, advisorClient, tracker)
	chatHandler := handler.NewChatHandler(chatRepo, chatbotClient)
	statsHandler := handler.NewStatsHandler(statsService)

	// ── Middleware ────────────────────────────────────────
	authMiddleware, err := middleware.NewAuthMiddleware(cfg.FirebaseProjectID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Firebase auth")
	}
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS)

	// ── Router ───────────────────────────────────────────
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger())

	// CORS
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check (unauthenticated)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "advisor-api",
			"time":    time.Now().UTC(),
		})
	})

	api := r.Group("/", rateLimiter.Limit())
	{
		// Advisor calls and the guided screen flow work without sign-in,
		// mirroring the public upload screen.
		api.POST("/analyze", advisorHandler.Analyze)
		api.POST("/cover-letter", advisorHandler.CoverLetter)
		api.POST("/improve-cv", advisorHandler.ImproveCV)

		api.POST("/flows", flowHandler.Create)
		api.GET("/flows/:id", flowHandler.Get)
		api.POST("/flows/:id/submit", flowHandler.Submit)
		api.POST("/flows/:id/cover-letter", flowHandler.CoverLetter)
		api.POST("/flows/:id/fix-cv", flowHandler.FixCV)
		api.POST("/flows/:id/back", flowHandler.Back)
		api.POST("/flows/:id/reset", flowHandler.Reset)

		// Dashboard numbers
		api.GET("/api/stats", statsHandler.Get)

		// Chat accepts anonymous requests; the handler answers them with a
		// local sign-in notice instead of calling the webhook.
		chat := api.Group("/chat", authMiddleware.AuthenticateOptional())
		{
			chat.GET("/session", chatHandler.GetSession)
			chat.POST("/messages", chatHandler.SendMessage)
			chat.DELETE("/session", chatHandler.ClearSession)
		}

		// Profile requires a verified Google identity
		authed := api.Group("/", authMiddleware.Authenticate())
		{
			authed.POST("/auth/google", authHandler.GoogleSignIn)
			authed.GET("/profile", authHandler.GetProfile)
		}
	}

	// ── Server ───────────────────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 150 * time.Second, // analyze proxies a slow LLM workflow
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	log.Info().Str("port", cfg.Port).Msg("Advisor API server running")

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

// requestLogger logs every request with zerolog
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		if status >= 400 {
			event = log.Warn()
		}
		if status >= 500 {
			event = log.Error()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("latency", latency).
			Str("ip", c.ClientIP()).
			Msg(fmt.Sprintf("%s %s", c.Request.Method, path))
	}
}
