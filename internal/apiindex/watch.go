package apiindex

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/kennyg/ctxkit/internal/logger"
)

// DefaultDebounce is how long Watch waits for writes to settle
const DefaultDebounce = 200 * time.Millisecond

// Watch regenerates the index whenever the source file changes until ctx
// is cancelled. The source directory is watched rather than the file so
// editors that save by rename are picked up. report is called after every
// run, including the initial one.
func Watch(ctx context.Context, c Config, debounce time.Duration, report func(*Result, error)) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create file watcher")
	}
	defer watcher.Close()

	source, err := filepath.Abs(c.Source)
	if err != nil {
		return errors.Wrapf(err, "failed to resolve %s", c.Source)
	}
	if err := watcher.Add(filepath.Dir(source)); err != nil {
		return errors.Wrapf(err, "failed to watch %s", filepath.Dir(source))
	}
	logger.G(ctx).WithField("source", source).Info("watching for changes")

	report(Generate(ctx, c))

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			name, err := filepath.Abs(event.Name)
			if err != nil || name != source {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			logger.G(ctx).WithField("op", event.Op.String()).Debug("source changed")
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			report(Generate(ctx, c))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.G(ctx).WithError(err).Warn("file watcher error")
		}
	}
}
