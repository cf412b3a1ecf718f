package config

import (
	"bytes"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/teilomillet/chatline/internal/util"
	"go.uber.org/zap"
)

// reloadDelay coalesces the burst of events a single editor save produces.
const reloadDelay = 100 * time.Millisecond

// Verify at compile time that ConfigWatcher implements Watcher
var _ Watcher = (*ConfigWatcher)(nil)

// ConfigWatcher reloads the configuration file when it changes and publishes
// each valid result as a fresh snapshot.
type ConfigWatcher struct {
	current    atomic.Pointer[Config]
	configPath string
	watcher    *fsnotify.Watcher
	logger     *zap.Logger

	mu          sync.Mutex
	subscribers []chan *Config
	done        chan struct{}
	closeOnce   sync.Once
}

// NewConfigWatcher loads configPath and starts watching it.
func NewConfigWatcher(configPath string, logger *zap.Logger) (*ConfigWatcher, error) {
	initial, err := LoadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load initial config: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(configPath); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch config file: %w", err)
	}

	cw := &ConfigWatcher{
		configPath: configPath,
		watcher:    watcher,
		logger:     logger,
		done:       make(chan struct{}),
	}
	cw.current.Store(initial)

	go cw.watchConfig()
	return cw, nil
}

// Subscribe returns a channel that receives every new snapshot. A slow
// subscriber skips intermediate snapshots but always gets the latest.
func (cw *ConfigWatcher) Subscribe() <-chan *Config {
	ch := make(chan *Config, 1)
	cw.mu.Lock()
	cw.subscribers = append(cw.subscribers, ch)
	cw.mu.Unlock()
	return ch
}

// GetCurrentConfig returns the latest snapshot.
func (cw *ConfigWatcher) GetCurrentConfig() *Config {
	return cw.current.Load()
}

func (cw *ConfigWatcher) watchConfig() {
	reload := util.Debounce(cw.reload, reloadDelay)
	for {
		select {
		case <-cw.done:
			return
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				reload()
			}
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			cw.logger.Error("Config watcher error", zap.Error(err))
		}
	}
}

func (cw *ConfigWatcher) reload() {
	select {
	case <-cw.done:
		return
	default:
	}
	cw.logger.Info("Detected config file change, reloading...")

	data, err := os.ReadFile(cw.configPath)
	if err != nil {
		cw.logger.Error("Failed to read new config", zap.Error(err))
		return
	}
	// Editors truncate before writing; wait for the write that carries content
	if len(bytes.TrimSpace(data)) == 0 {
		cw.logger.Debug("Ignoring empty config file write")
		return
	}

	next, err := Load(bytes.NewReader(data))
	if err != nil {
		// Keep serving the previous snapshot
		cw.logger.Error("Failed to load new config", zap.Error(err))
		return
	}
	next.CheckCredentials(cw.logger)
	cw.current.Store(next)

	cw.mu.Lock()
	for _, sub := range cw.subscribers {
		// Replace an unread snapshot so the subscriber ends up with the latest
		select {
		case <-sub:
		default:
		}
		sub <- next
	}
	cw.mu.Unlock()

	cw.logger.Info("Configuration reloaded successfully")
}

// Close stops watching and closes subscriber channels.
func (cw *ConfigWatcher) Close() error {
	var err error
	cw.closeOnce.Do(func() {
		close(cw.done)
		err = cw.watcher.Close()
		cw.mu.Lock()
		for _, sub := range cw.subscribers {
			close(sub)
		}
		cw.subscribers = nil
		cw.mu.Unlock()
	})
	return err
}
