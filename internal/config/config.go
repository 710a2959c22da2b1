package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds everything the service reads from the environment.
type Config struct {
	Env       string
	Port      string
	DBURL     string
	RedisAddr string
	JWTSecret string

	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
	FailedAttemptTTL time.Duration

	// Classifier thresholds. BruteForceThreshold must stay above
	// RepeatedFailureThreshold; the classifier constructor enforces it.
	RepeatedFailureThreshold int64
	BruteForceThreshold      int64
}

func Load() *Config {
	return &Config{
		Env:       getEnv("ENV", "development"),
		Port:      getEnv("PORT", "8080"),
		DBURL:     mustGetEnv("DB_URL"),
		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
		JWTSecret: mustGetEnv("JWT_SECRET"),

		AccessTokenTTL:   minutes(getEnvAsInt("ACCESS_TOKEN_EXPIRY", 60)),
		RefreshTokenTTL:  minutes(getEnvAsInt("REFRESH_TOKEN_EXPIRY", 10080)),
		FailedAttemptTTL: minutes(getEnvAsInt("FAILED_ATTEMPT_TTL", 60)),

		RepeatedFailureThreshold: int64(getEnvAsInt("REPEATED_FAILURE_THRESHOLD", 5)),
		BruteForceThreshold:      int64(getEnvAsInt("BRUTE_FORCE_THRESHOLD", 10)),
	}
}

func minutes(n int) time.Duration {
	return time.Duration(n) * time.Minute
}

func getEnv(key string, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func mustGetEnv(key string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	log.Fatalf("Missing required environment variable: %s", key)
	return ""
}

func getEnvAsInt(key string, defaultVal int) int {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		log.Printf("Invalid value for %s, using default %d", key, defaultVal)
		return defaultVal
	}
	return val
}
