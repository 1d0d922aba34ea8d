package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const watcherConfigTemplate = `
providers:
  openai:
    type: openai
    model: gpt-4o
    api_key: test-key
queue:
  enabled: true
  max_size: %d
  concurrency: 2
`

func writeWatcherConfig(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestConfigWatcherReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeWatcherConfig(t, path, fmt.Sprintf(watcherConfigTemplate, 10))

	cw, err := NewConfigWatcher(path, zap.NewNop())
	require.NoError(t, err)
	defer cw.Close()

	updates := cw.Subscribe()
	require.Equal(t, int64(10), cw.GetCurrentConfig().Queue.MaxSize)

	writeWatcherConfig(t, path, fmt.Sprintf(watcherConfigTemplate, 25))

	select {
	case cfg := <-updates:
		assert.Equal(t, int64(25), cfg.Queue.MaxSize)
	case <-time.After(2 * time.Second):
		t.Fatal("no config update received after file change")
	}
	assert.Equal(t, int64(25), cw.GetCurrentConfig().Queue.MaxSize)
}

func TestConfigWatcherKeepsCurrentConfigOnInvalidReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeWatcherConfig(t, path, fmt.Sprintf(watcherConfigTemplate, 10))

	cw, err := NewConfigWatcher(path, zap.NewNop())
	require.NoError(t, err)
	defer cw.Close()

	writeWatcherConfig(t, path, `
providers:
  openai:
    type: unsupported
    model: gpt-4o
`)

	// The invalid file must never replace the last good config.
	assert.Never(t, func() bool {
		return cw.GetCurrentConfig().Queue.MaxSize != 10
	}, 500*time.Millisecond, 50*time.Millisecond)
}
