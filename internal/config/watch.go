// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/elroyic/Podcast-Generator-sub001/internal/log"
)

// WatchSeedFile watches the seed file and invokes onChange with the re-parsed
// contents after each write. Editors often replace files via rename, so the
// parent directory is watched and events are filtered by name. Changes take
// effect on the next article (the callback swaps live settings).
func WatchSeedFile(ctx context.Context, path string, onChange func(*SeedFile)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return err
	}

	logger := log.WithComponent("config-watch")
	go func() {
		defer func() { _ = watcher.Close() }()
		// Debounce: editors fire multiple events per save.
		var pending *time.Timer
		reload := func() {
			sf, err := LoadSeedFile(path)
			if err != nil {
				logger.Warn().Err(err).Str("path", path).Msg("seed file reload failed, keeping previous settings")
				return
			}
			logger.Info().Str("path", path).Msg("seed file reloaded")
			onChange(sf)
		}
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(evt.Name) != filepath.Clean(path) {
					continue
				}
				if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) && !evt.Has(fsnotify.Rename) {
					continue
				}
				if pending != nil {
					pending.Stop()
				}
				pending = time.AfterFunc(200*time.Millisecond, reload)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn().Err(err).Msg("seed file watcher error")
			}
		}
	}()
	return nil
}
