package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnvFile(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, "blocking", cfg.DeploymentType)
	assert.False(t, cfg.Webhook())
	assert.Equal(t, "stockfish", cfg.EnginePath)
	assert.Equal(t, 2, cfg.EnginePoolSize)
	assert.Equal(t, 0.5, cfg.EngineTimeLimit)
	assert.Equal(t, 500*time.Millisecond, cfg.EngineTimeBudget())
	assert.Equal(t, 60*time.Second, cfg.PipelineTimeout)
	assert.Equal(t, "gemini-2.5-flash", cfg.GeminiModel)
	assert.False(t, cfg.MinioEnabled())
	assert.False(t, cfg.GeminiEnabled())
	assert.Equal(t, "0.0.0.0:7000", cfg.Addr())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "8088")
	t.Setenv("DEPLOYMENT_TYPE", "webhook")
	t.Setenv("APP_ENV", "local")
	t.Setenv("ENGINE_TIME_LIMIT", "1.5")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("SESSION_TTL", "24h")
	t.Setenv("GEMINI_API_KEY", "k")

	cfg, err := Load(noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, 8088, cfg.Port)
	assert.True(t, cfg.Webhook())
	assert.True(t, cfg.Local())
	assert.Equal(t, 1500*time.Millisecond, cfg.EngineTimeBudget())
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.True(t, cfg.GeminiEnabled())
}

func TestLoad_RejectsStreaming(t *testing.T) {
	t.Setenv("DEPLOYMENT_TYPE", "streaming")

	_, err := Load(noEnvFile(t))
	assert.ErrorContains(t, err, "DeploymentType")
}

func TestLoad_MinioNeedsCredentials(t *testing.T) {
	t.Setenv("MINIO_ENDPOINT", "minio.local:9000")

	_, err := Load(noEnvFile(t))
	assert.Error(t, err)

	t.Setenv("MINIO_BUCKET_NAME", "boards")
	t.Setenv("MINIO_BUCKET_ACCESS_KEY", "ak")
	t.Setenv("MINIO_BUKCET_SECRET_KEY", "sk")
	cfg, err := Load(noEnvFile(t))
	require.NoError(t, err)
	assert.True(t, cfg.MinioEnabled())
}

func TestLoad_PipelineMustCoverEngineSearch(t *testing.T) {
	t.Setenv("ENGINE_TIME_LIMIT", "5")
	t.Setenv("PIPELINE_TIMEOUT", "10s")

	_, err := Load(noEnvFile(t))
	assert.ErrorContains(t, err, "PIPELINE_TIMEOUT")

	t.Setenv("PIPELINE_TIMEOUT", "12s")
	cfg, err := Load(noEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.EngineTimeBudget())
}

func TestLoad_BadValue(t *testing.T) {
	t.Setenv("ENGINE_POOL_SIZE", "many")

	_, err := Load(noEnvFile(t))
	assert.ErrorContains(t, err, "loading config")
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("CHESS_ENGINE_PATH=/opt/stockfish\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("CHESS_ENGINE_PATH") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/opt/stockfish", cfg.EnginePath)
}
