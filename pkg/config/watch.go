package config

import (
	"context"
	"fmt"

	"github.com/fsnotify/fsnotify"
)

// OnReload receives a freshly reloaded and validated Config after the
// watched file changes. A daemon's OnReload typically only reads the
// handful of fields it lets change without a restart (e.g.
// Broadcaster.BatchCap, Scheduler's intervals) and applies them to its
// already-running components.
type OnReload func(cfg *Config)

// Watch watches configPath for writes and calls onReload with the
// newly loaded config each time it changes, until ctx is cancelled. A
// reload that fails to load or validate is skipped silently: onReload is
// not called for that event and nothing is logged. Watch itself only
// returns the watcher's setup errors.
func Watch(ctx context.Context, configPath string, onReload OnReload) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}

	if err := watcher.Add(configPath); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch config file %s: %w", configPath, err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				cfg, err := Load(configPath)
				if err != nil {
					continue
				}
				onReload(cfg)
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return nil
}
