package config

import (
	"os"
	"path/filepath"
	"time"
)

// TestConfig returns a config suitable for testing. Paths point into a fresh
// temporary directory so tests never touch the user's data.
func TestConfig() *Config {
	dir, err := os.MkdirTemp("", "lumina-test-*")
	if err != nil {
		dir = os.TempDir()
	}
	def := defaultConfig()
	return &Config{
		API: APIConfig{
			BaseURL:   "http://127.0.0.1:0",
			Timeout:   5 * time.Second,
			UserAgent: "lumina-test/1.0",
		},
		Database: DatabaseConfig{
			Path:        filepath.Join(dir, "test.db"),
			Timeout:     1 * time.Second,
			SearchIndex: filepath.Join(dir, "index.bleve"),
		},
		List: ListConfig{
			Debounce:       10 * time.Millisecond,
			PageSize:       10,
			CompactWidth:   100,
			SentinelRows:   2,
			CacheRetention: time.Hour,
			ImportWorkers:  2,
		},
		UI:   def.UI,
		Keys: def.Keys,
		Log:  LogConfig{Level: "off"},
	}
}
