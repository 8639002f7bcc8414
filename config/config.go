package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
type Config struct {
	ListenAddr      string
	DBDriver        string // "sqlite" (embedded, the default) or "mysql"
	DBPath          string // sqlite database file
	DBHost          string
	DBPort          string
	DBUser          string
	DBPassword      string
	DBName          string
	UploadDir       string // Base directory for all uploads
	AudioUploadDir  string // Subdirectory for audio files: UploadDir/audio
	CORSAllowOrigin string
	MaxUploadSize   int64 // Upload request body cap, in bytes
	LogLevel        string
	LogPath         string
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}

	uploadBase := getEnv("UPLOAD_DIR", "uploads")

	return &Config{
		ListenAddr:      getEnv("LISTEN_ADDR", ":8080"),
		DBDriver:        getEnv("DB_DRIVER", "sqlite"),
		DBPath:          getEnv("DB_PATH", "tracks.db"),
		DBHost:          getEnv("DB_HOST", "127.0.0.1"),
		DBPort:          getEnv("DB_PORT", "3306"),
		DBUser:          getEnv("DB_USER", "root"),
		DBPassword:      os.Getenv("DB_PASSWORD"), // no hardcoded default for the password
		DBName:          getEnv("DB_NAME", "demodrop"),
		UploadDir:       uploadBase,
		AudioUploadDir:  filepath.Join(uploadBase, "audio"),
		CORSAllowOrigin: getEnv("CORS_ALLOW_ORIGIN", "*"),
		MaxUploadSize:   int64(getEnvInt("MAX_UPLOAD_SIZE_MB", 100)) << 20,
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogPath:         getEnv("LOG_PATH", ""),
	}
}
