package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainconfig "github.com/zhaizeyu/smart-mind/domain/config"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "smartmind.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ServerAddress)
	assert.Equal(t, DriverFile, cfg.StorageDriver)
	assert.Equal(t, "mindmap", cfg.MapID)
	assert.Equal(t, "data/history.json", cfg.HistoryPath)
	assert.Equal(t, "echo", cfg.AI.Provider)
	assert.Equal(t, 30*time.Second, cfg.AI.Timeout)
	assert.True(t, cfg.EnableCORS)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	// Arrange
	t.Setenv("STORAGE_DRIVER", "sqlite")
	t.Setenv("DATA_DIR", "/var/smartmind")
	t.Setenv("SMARTMIND_AI_PROVIDER", "docker")
	t.Setenv("SMARTMIND_AI_TIMEOUT", "12.5")
	t.Setenv("ASK_RATE_LIMIT", "5")
	t.Setenv("ENABLE_CORS", "false")

	// Act
	cfg, err := LoadConfig()

	// Assert
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.StorageDriver)
	assert.Equal(t, "/var/smartmind/history.json", cfg.HistoryPath)
	assert.Equal(t, "docker", cfg.AI.Provider)
	assert.Equal(t, 12500*time.Millisecond, cfg.AI.Timeout)
	assert.Equal(t, 5, cfg.AskRateLimit)
	assert.False(t, cfg.EnableCORS)
}

func TestLoadConfig_FileOverlayBelowEnv(t *testing.T) {
	// Arrange
	path := writeYAML(t, `
storage:
  driver: badger
  data_dir: ./state
ai:
  provider: http
  base_url: http://ai.local/ask
  timeout: 5s
layout:
  level_gap: 300
`)
	t.Setenv("SMARTMIND_CONFIG", path)
	t.Setenv("SMARTMIND_AI_MODEL", "qwen")

	// Act
	cfg, err := LoadConfig()

	// Assert
	require.NoError(t, err)
	assert.Equal(t, DriverBadger, cfg.StorageDriver)
	assert.Equal(t, "./state", cfg.DataDir)
	assert.Equal(t, "http", cfg.AI.Provider)
	assert.Equal(t, "http://ai.local/ask", cfg.AI.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.AI.Timeout)
	assert.Equal(t, "qwen", cfg.AI.Model)
	assert.Equal(t, 300.0, cfg.Layout.LevelGap)
	assert.Equal(t, 180.0, cfg.Layout.SiblingGap)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown driver", env: map[string]string{"STORAGE_DRIVER": "mongo"}},
		{name: "auth without secret", env: map[string]string{"ENABLE_AUTH": "true"}},
		{name: "production without secret", env: map[string]string{"ENVIRONMENT": "production"}},
		{name: "missing config file", env: map[string]string{"SMARTMIND_CONFIG": "/nonexistent/smartmind.yaml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := LoadConfig()

			assert.Error(t, err)
		})
	}
}

func TestReadFile_RejectsNegativeGap(t *testing.T) {
	path := writeYAML(t, "layout:\n  sibling_gap: -10\n")

	_, err := ReadFile(path)

	assert.Error(t, err)
}

func TestReadFile_LayoutKeepsExplicitZero(t *testing.T) {
	// Arrange
	path := writeYAML(t, "layout:\n  start_x: 0\n  start_y: 0\n  root_gap: 120\n")

	// Act
	fc, err := ReadFile(path)

	// Assert
	require.NoError(t, err)
	require.NotNil(t, fc.Layout)
	want := domainconfig.DefaultLayoutConfig()
	want.StartX = 0
	want.StartY = 0
	want.RootGap = 120
	assert.Equal(t, want, *fc.Layout)
}
