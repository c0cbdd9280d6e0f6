package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                   string
	DatabaseURL            string
	BaseURL                string  // Public base URL short links are built from
	RedisURL               string  // Empty means run with the in-memory cache
	JWTSecret              string  // Secret key for JWT token verification
	JWTTTL                 int     // JWT token lifetime in hours (used by token tooling and tests)
	RateLimitRPS           float64 // Rate limit for general API endpoints (requests per second)
	RateLimitBurst         int     // Burst size for rate limiting
	RateLimitShortenRPS    float64 // Rate limit for URL creation (stricter)
	RateLimitShortenBurst  int     // Burst size for URL creation
	RateLimitRedirectRPS   float64 // Rate limit for redirects (more lenient)
	RateLimitRedirectBurst int     // Burst size for redirects
}

func Load() *Config {
	// Try to load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or defaults")
	}

	return &Config{
		Port:                   getEnv("PORT", "8080"),
		DatabaseURL:            getEnv("DATABASE_URL", ""),
		BaseURL:                getEnv("BASE_URL", "http://localhost:8080"),
		RedisURL:               getEnv("REDIS_URL", ""),
		JWTSecret:              getEnv("JWT_SECRET", ""),
		JWTTTL:                 getEnvInt("JWT_TTL_HOURS", 24),
		RateLimitRPS:           getEnvFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst:         getEnvInt("RATE_LIMIT_BURST", 20),
		RateLimitShortenRPS:    getEnvFloat("RATE_LIMIT_SHORTEN_RPS", 2),
		RateLimitShortenBurst:  getEnvInt("RATE_LIMIT_SHORTEN_BURST", 5),
		RateLimitRedirectRPS:   getEnvFloat("RATE_LIMIT_REDIRECT_RPS", 30),
		RateLimitRedirectBurst: getEnvInt("RATE_LIMIT_REDIRECT_BURST", 60),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
