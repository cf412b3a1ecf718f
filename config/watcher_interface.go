package config

// Watcher hands out configuration snapshots. A snapshot returned by
// GetCurrentConfig is never modified; reloads produce a new one.
type Watcher interface {
	GetCurrentConfig() *Config
	Subscribe() <-chan *Config
	Close() error
}
