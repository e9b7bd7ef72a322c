package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"remindbot/pkg/logx"
)

// Watch blocks, reloading the config whenever the file changes and invoking
// onChange with each valid new config. Invalid files are logged and the
// previous config stays in effect. Watch returns when ctx is done.
//
// The parent directory is watched (not the file itself) so editors that
// replace the file via rename keep triggering events.
func Watch(ctx context.Context, path string, log logx.Logger, onChange func(Config)) error {
	dir := filepath.Dir(path)
	file := filepath.Base(path)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}

	// Debounce to avoid reading partial writes.
	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	reload := func() {
		cfg, err := Load(path)
		if err != nil {
			log.Warn("config reload rejected", logx.String("path", path), logx.Err(err))
			return
		}
		log.Info("config reloaded", logx.String("path", path))
		onChange(cfg)
	}
	debounce := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(250*time.Millisecond, reload)
	}

	for {
		select {
		case <-ctx.Done():
			timerMu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timerMu.Unlock()
			return nil
		case ev := <-w.Events:
			if ev.Name != filepath.Join(dir, file) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				debounce()
			}
		case <-w.Errors:
			// keep watching
		}
	}
}
