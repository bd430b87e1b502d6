package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
app:
  name: legalmind
logger:
  level: debug
mysql:
  address: db:3306
  username: app
  database: legalmind
kafka:
  brokers:
    - broker-1:9092
    - broker-2:9092
  topic: document-processing
processing:
  chunkSize: 500
  chunkOverlap: 50
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "legalmind", cfg.App.Name)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "db:3306", cfg.MySQL.Address)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 500, cfg.Processing.ChunkSize)
	assert.Equal(t, 50, cfg.Processing.ChunkOverlap)
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "app:\n  name: legalmind\n"))
	require.NoError(t, err)

	assert.Equal(t, 1000, cfg.Processing.ChunkSize)
	assert.Equal(t, 200, cfg.Processing.ChunkOverlap)
	assert.Equal(t, 120, cfg.Processing.ConsistencyWaitAttempts)
	assert.Equal(t, 1, cfg.Processing.ConsistencyWaitInterval)
	assert.Equal(t, 5, cfg.Processing.RetrievalTopK)
	assert.Equal(t, 6, cfg.Processing.FallbackChunkLimit)
	assert.Equal(t, 10, cfg.Processing.HistoryFetchLimit)
	assert.Equal(t, 5, cfg.Processing.HistoryWindow)
	assert.Equal(t, ":8080", cfg.Server.Address)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadConfigMalformedYAML(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "app: [unclosed"))
	require.Error(t, err)
}
