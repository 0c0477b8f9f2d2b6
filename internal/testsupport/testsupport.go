package testsupport

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"scribe/internal/config"
	"scribe/internal/jobs"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.MediaDir = filepath.Join(base, "media")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Pipeline.RetryBaseDelaySeconds = 0

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithMinutesDisabled turns off minutes generation on the test config.
func WithMinutesDisabled() ConfigOption {
	return func(cfg *config.Config) {
		cfg.Minutes.Enabled = false
	}
}

// MustOpenStore opens a job store for the test config and closes it on cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *jobs.Store {
	t.Helper()

	store, err := jobs.Open(cfg)
	if err != nil {
		t.Fatalf("open job store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// SeedJob creates a job whose source file exists under the media dir.
func SeedJob(t testing.TB, cfg *config.Config, store *jobs.Store) *jobs.Job {
	t.Helper()

	ref := WriteMediaFile(t, cfg, "recording.wav", []byte("RIFFfakewav"))
	job, err := store.Create(context.Background(), ref, "en", true)
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	return job
}

// WriteMediaFile writes a file into the media dir and returns its reference
// (the path relative to the media dir).
func WriteMediaFile(t testing.TB, cfg *config.Config, name string, data []byte) string {
	t.Helper()

	if err := os.MkdirAll(cfg.Paths.MediaDir, 0o755); err != nil {
		t.Fatalf("mkdir media dir: %v", err)
	}
	path := filepath.Join(cfg.Paths.MediaDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write media file: %v", err)
	}
	return name
}
