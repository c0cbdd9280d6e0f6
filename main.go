package main

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"snaplink-be/internal/cache"
	"snaplink-be/internal/clicks"
	"snaplink-be/internal/config"
	"snaplink-be/internal/controllers"
	"snaplink-be/internal/database"
	"snaplink-be/internal/jwt"
	"snaplink-be/internal/middleware"
	"snaplink-be/internal/repository"
	"snaplink-be/internal/service"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// Load configuration
	cfg := config.Load()

	// Connect to database
	db, err := database.NewConnection(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Run database migrations
	if err := database.RunMigrations(db); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	// Initialize the cache. Redis failures are not fatal: the cache is
	// advisory and the service always falls back to the database, so a
	// missing Redis only costs latency, never correctness.
	var cacheClient cache.Cache
	if cfg.RedisURL != "" {
		cacheClient, err = cache.NewRedisCache(cfg.RedisURL)
		if err != nil {
			logger.Warn("failed to connect to Redis, falling back to in-memory cache", zap.Error(err))
			cacheClient = cache.NewMemoryCache()
		} else {
			logger.Info("connected to Redis cache")
		}
	} else {
		logger.Info("no REDIS_URL configured, using in-memory cache")
		cacheClient = cache.NewMemoryCache()
	}

	// Initialize repository and services
	urlRepo := repository.NewURLRepository(db)
	urlService := service.NewURLService(urlRepo, cacheClient, logger, cfg.BaseURL)

	jwtService := jwt.NewJWTService(cfg.JWTSecret, time.Duration(cfg.JWTTTL)*time.Hour)

	// Background click recorder; drained on shutdown
	recorder := clicks.NewRecorder(urlService, logger)
	defer recorder.Stop()

	// Initialize controllers
	shortenerController := controllers.NewShortenerController(urlService, recorder)
	adminController := controllers.NewAdminController(urlService)
	qrcodeController := controllers.NewQRCodeController(cfg.BaseURL)

	// Initialize rate limiters
	generalRateLimiter := middleware.NewRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	shortenRateLimiter := middleware.NewRateLimiter(rate.Limit(cfg.RateLimitShortenRPS), cfg.RateLimitShortenBurst)
	redirectRateLimiter := middleware.NewRateLimiter(rate.Limit(cfg.RateLimitRedirectRPS), cfg.RateLimitRedirectBurst)

	router := gin.New()
	router.Use(middleware.RequestLogger(logger), gin.Recovery())

	// Health check endpoint (no rate limiting)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	// Redirect endpoint with lenient rate limiting
	router.GET("/:shortCode", redirectRateLimiter.LimitMiddleware(), shortenerController.RedirectToURL)

	// API v1 routes group with general rate limiting
	api := router.Group("/api/v1")
	api.Use(generalRateLimiter.LimitMiddleware())
	{
		// Creation and deletion work for anonymous callers too
		optional := api.Group("")
		optional.Use(middleware.OptionalAuthMiddleware(jwtService))
		{
			optional.POST("/shorten", shortenRateLimiter.LimitMiddleware(), shortenerController.CreateShortURL)
			optional.DELETE("/url/:shortCode", shortenerController.DeleteURL)
		}

		// Public lookups
		api.GET("/redirect/:shortCode", redirectRateLimiter.LimitMiddleware(), shortenerController.GetOriginalURLPublic)
		api.GET("/url/:shortCode", shortenerController.GetURLInfo)
		api.GET("/url/:shortCode/stats", shortenerController.GetURLStats)
		api.GET("/qrcode/:shortCode", qrcodeController.GenerateQRCode)

		// Routes that require a valid token
		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(jwtService))
		{
			protected.GET("/urls", shortenerController.GetUserURLs)

			admin := protected.Group("/admin")
			admin.Use(middleware.RequireAdmin())
			{
				admin.GET("/urls", adminController.ListURLs)
				admin.DELETE("/urls/:shortCode", adminController.DeleteURL)
			}
		}
	}

	logger.Info("server starting", zap.String("port", cfg.Port))
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
