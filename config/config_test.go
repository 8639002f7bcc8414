package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "tracks.db", cfg.DBPath)
	assert.Equal(t, "uploads", cfg.UploadDir)
	assert.Equal(t, filepath.Join("uploads", "audio"), cfg.AudioUploadDir)
	assert.Equal(t, "*", cfg.CORSAllowOrigin)
	assert.Equal(t, int64(100<<20), cfg.MaxUploadSize)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9090")
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("UPLOAD_DIR", "/srv/demodrop")
	t.Setenv("MAX_UPLOAD_SIZE_MB", "5")
	t.Setenv("CORS_ALLOW_ORIGIN", "https://demos.example.org")

	cfg := Load()

	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, "mysql", cfg.DBDriver)
	assert.Equal(t, "/srv/demodrop", cfg.UploadDir)
	assert.Equal(t, filepath.Join("/srv/demodrop", "audio"), cfg.AudioUploadDir)
	assert.Equal(t, int64(5<<20), cfg.MaxUploadSize)
	assert.Equal(t, "https://demos.example.org", cfg.CORSAllowOrigin)
}

func TestGetEnvIntIgnoresGarbage(t *testing.T) {
	t.Setenv("MAX_UPLOAD_SIZE_MB", "not-a-number")

	cfg := Load()
	assert.Equal(t, int64(100<<20), cfg.MaxUploadSize)
}
