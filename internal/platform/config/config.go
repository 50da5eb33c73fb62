package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the daemon's runtime settings.
type Config struct {
	Port      string
	LogLevel  string
	LogFormat string

	// BufferingTimeout is the watchdog period after which prolonged
	// buffering is treated as a stall requiring recovery.
	BufferingTimeout time.Duration
}

// Load seeds the environment from a .env file (missing files are fine; the
// system environment then wins) and resolves every setting with its default.
// Pass paths to load specific files; with no paths, ".env" is used.
func Load(paths ...string) Config {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	_ = godotenv.Load(paths...)

	return Config{
		Port:             getEnv("PORT", "8080"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "json"),
		BufferingTimeout: time.Duration(getEnvInt("BUFFERING_TIMEOUT_SECONDS", 30)) * time.Second,
	}
}

// getEnv returns the value of the environment variable named by key, or
// fallback if the variable is unset or empty.
func getEnv(key, fallback string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return fallback
}

// getEnvInt returns the integer value of the environment variable named by
// key, or fallback if the variable is unset, empty, or not a valid integer.
func getEnvInt(key string, fallback int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return fallback
}
