package mocks

import (
	"sync"
	"sync/atomic"

	"github.com/teilomillet/chatline/config"
)

// MockConfigWatcher is a config.Watcher whose snapshots are set by tests.
type MockConfigWatcher struct {
	current atomic.Pointer[config.Config]

	mu          sync.Mutex
	subscribers []chan *config.Config
}

var _ config.Watcher = (*MockConfigWatcher)(nil)

// NewMockConfigWatcher starts with cfg as the current snapshot.
func NewMockConfigWatcher(cfg *config.Config) *MockConfigWatcher {
	m := &MockConfigWatcher{}
	m.current.Store(cfg)
	return m
}

func (m *MockConfigWatcher) GetCurrentConfig() *config.Config {
	return m.current.Load()
}

// Subscribe returns a channel that receives every later snapshot.
func (m *MockConfigWatcher) Subscribe() <-chan *config.Config {
	ch := make(chan *config.Config, 1)

	m.mu.Lock()
	m.subscribers = append(m.subscribers, ch)
	m.mu.Unlock()
	return ch
}

func (m *MockConfigWatcher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.subscribers {
		close(ch)
	}
	m.subscribers = nil
	return nil
}

// UpdateConfig publishes cfg as if the file had been reloaded. A
// subscriber that has not read the previous snapshot gets only the latest.
func (m *MockConfigWatcher) UpdateConfig(cfg *config.Config) {
	m.current.Store(cfg)

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.subscribers {
		select {
		case <-ch:
		default:
		}
		ch <- cfg
	}
}
