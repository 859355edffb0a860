// Package testutil provides shared test helpers for setting up registries.
package testutil

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/gzuuus/nostr-daily-news-mcp/internal/registry"
)

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestRegistry creates a registry persisted into a temp directory, booted
// from hard-coded defaults.
func TestRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	return TestRegistryWithProbe(t, nil)
}

// TestRegistryWithProbe is TestRegistry with a feed URL probe installed.
func TestRegistryWithProbe(t *testing.T, probe registry.Prober) *registry.Registry {
	t.Helper()
	dir := t.TempDir()
	store := registry.NewFileStore(filepath.Join(dir, "config.json"), "")
	return registry.New(store, probe, Logger())
}
