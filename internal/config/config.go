package config

import (
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost          string
	DBPort          string
	DBUser          string
	DBPassword      string
	DBName          string
	DBDisabled      string
	ServerPort      string
	UploadDir       string
	MaxUploadSize   string
	SessionMaxAge   string
	CleanupInterval string
}

func Load() *Config {
	godotenv.Load()

	return &Config{
		DBHost:          getEnv("DB_HOST", "localhost"),
		DBPort:          getEnv("DB_PORT", "5432"),
		DBUser:          getEnv("DB_USER", "postgres"),
		DBPassword:      getEnv("DB_PASSWORD", "postgres"),
		DBName:          getEnv("DB_NAME", "hearmeout"),
		DBDisabled:      getEnv("DB_DISABLED", "false"),
		ServerPort:      getEnv("SERVER_PORT", "3001"),
		UploadDir:       getEnv("UPLOAD_DIR", "uploads"),
		MaxUploadSize:   getEnv("MAX_UPLOAD_SIZE", "5242880"),
		SessionMaxAge:   getEnv("SESSION_MAX_AGE", "24h"),
		CleanupInterval: getEnv("CLEANUP_INTERVAL", "1h"),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
