package registry

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/gzuuus/nostr-daily-news-mcp/internal/checksum"
)

const reloadDebounce = 200 * time.Millisecond

// Watch reloads the registry when the config file is edited outside this
// process, until ctx is cancelled. Events are debounced because editors fire
// several write events per save, and events caused by our own persists are
// ignored by comparing the file checksum against the last saved one.
//
// The parent directory is watched rather than the file itself: the atomic
// save replaces the file by rename, which would invalidate a file watch.
func Watch(ctx context.Context, reg *Registry, path string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		return err
	}
	target := filepath.Clean(path)

	logger.Info("watcher: started", slog.String("config", target))

	var reloadTimer *time.Timer
	var reloadCh <-chan time.Time

	scheduleReload := func() {
		if reloadTimer == nil {
			reloadTimer = time.NewTimer(reloadDebounce)
			reloadCh = reloadTimer.C
		} else {
			reloadTimer.Reset(reloadDebounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reloadCh:
			reload(reg, target, logger)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			scheduleReload()

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher: error", slog.String("error", err.Error()))
		}
	}
}

func reload(reg *Registry, path string, logger *slog.Logger) {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("watcher: read config failed", slog.String("error", err.Error()))
		return
	}
	if checksum.Sum(data) == reg.SavedChecksum() {
		logger.Debug("watcher: ignoring own write", slog.String("config", path))
		return
	}
	if err := reg.Replace(data); err != nil {
		logger.Warn("watcher: reload failed, keeping current registry",
			slog.String("error", err.Error()))
		return
	}
	logger.Info("watcher: registry reloaded", slog.String("config", path))
}
