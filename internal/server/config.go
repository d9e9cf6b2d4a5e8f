package server

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the HTTP surface settings read from the environment.
type Config struct {
	Port            string
	ConfigPath      string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// Load reads .env (when present) and the process environment.
func Load() Config {
	_ = godotenv.Load()
	return Config{
		Port:            getEnv("PORT", "8080"),
		ConfigPath:      getEnv("RECOMMENDER_CONFIG", ""),
		RequestTimeout:  time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 10)) * time.Second,
		ShutdownTimeout: time.Duration(getEnvInt("SHUTDOWN_TIMEOUT_SECONDS", 10)) * time.Second,
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return defaultVal
	}
	return n
}
