package config

import (
	"fmt"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

var _ Watcher = (*ConfigWatcher)(nil)

// ConfigWatcher reloads the YAML file when it changes on disk and fans
// the new config out to subscribers. The server subscribes to retune the
// admission queue bound without a restart; settings that need a restart
// (the listen port) are only logged.
type ConfigWatcher struct {
	// atomic.Value so readers never block on a reload in progress
	currentConfig atomic.Value
	configPath    string
	watcher       *fsnotify.Watcher
	logger        *zap.Logger
	subscribers   []chan<- *Config
}

// NewConfigWatcher loads the file, starts watching it, and runs the
// reload loop until Close.
func NewConfigWatcher(configPath string, logger *zap.Logger) (*ConfigWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	cw := &ConfigWatcher{
		configPath: configPath,
		watcher:    watcher,
		logger:     logger,
	}

	initialConfig, err := LoadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load initial config: %w", err)
	}
	cw.currentConfig.Store(initialConfig)

	if err := watcher.Add(configPath); err != nil {
		return nil, fmt.Errorf("failed to watch config file: %w", err)
	}

	go cw.watchConfig()
	return cw, nil
}

// Subscribe returns a channel that receives each successfully reloaded
// config. The channel is buffered by one; a subscriber that falls behind
// misses updates rather than blocking the reload loop.
func (cw *ConfigWatcher) Subscribe() <-chan *Config {
	ch := make(chan *Config, 1)
	cw.subscribers = append(cw.subscribers, ch)
	return ch
}

// GetCurrentConfig returns the most recently loaded valid configuration.
func (cw *ConfigWatcher) GetCurrentConfig() *Config {
	return cw.currentConfig.Load().(*Config)
}

func (cw *ConfigWatcher) watchConfig() {
	for {
		select {
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Write == fsnotify.Write {
				cw.handleConfigChange()
			}
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			cw.logger.Error("Config watcher error", zap.Error(err))
		}
	}
}

// handleConfigChange reloads and validates the file. A file that fails
// to load or validate is rejected; the last good config stays current.
func (cw *ConfigWatcher) handleConfigChange() {
	cw.logger.Info("Detected config file change, reloading...",
		zap.String("path", cw.configPath))

	newConfig, err := LoadFile(cw.configPath)
	if err != nil {
		cw.logger.Error("Failed to load new config, keeping current one",
			zap.String("path", cw.configPath),
			zap.Error(err))
		return
	}

	if err := newConfig.Validate(); err != nil {
		cw.logger.Error("Invalid new configuration, keeping current one",
			zap.String("path", cw.configPath),
			zap.Error(err))
		return
	}

	cw.currentConfig.Store(newConfig)

	for _, sub := range cw.subscribers {
		select {
		case sub <- newConfig:
		default:
		}
	}

	cw.logger.Info("Configuration reloaded successfully",
		zap.Int64("queue_max_size", newConfig.Queue.MaxSize))
}

func (cw *ConfigWatcher) Close() error {
	return cw.watcher.Close()
}
