package cli

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/askiada/go-cellflow/internal/config"
	"github.com/askiada/go-cellflow/pkg/sheet"
)

// watchSheet applies the sheet file to the running sheet every time it is written, until ctx
// is done. The parent directory is watched so that files replaced by a rename are seen.
func watchSheet(ctx context.Context, path string, sh *sheet.Sheet, logger *slog.Logger) error {
	path, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrapf(err, "unable to resolve %s", path)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "unable to create watcher")
	}
	defer watcher.Close()

	err = watcher.Add(filepath.Dir(path))
	if err != nil {
		return errors.Wrapf(err, "unable to watch %s", filepath.Dir(path))
	}

	logger = logger.With(slog.String("file", path))
	logger.Info("watching sheet file")

	target := filepath.Base(path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if filepath.Base(event.Name) != target || event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			cfg, err := config.Load(path)
			if err != nil {
				// editors write files in several steps
				logger.Warn("unable to reload sheet file", slog.Any("error", err))

				continue
			}

			err = applySheet(ctx, sh, cfg, logger)
			if err != nil && ctx.Err() == nil {
				return err
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			logger.Warn("watcher error", slog.Any("error", err))
		}
	}
}
