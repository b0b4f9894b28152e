package cli

import (
	"io"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/askiada/go-cellflow/internal/config"
)

const (
	formatText = "text"
	formatJSON = "json"
)

var ErrLogFormat = errors.New("unknown log format")

// newLogger writes to wrt with the level of the flag, or of the sheet file when the flag is
// not set.
func newLogger(wrt io.Writer, opts *rootOptions, cfg config.Sheet) (*slog.Logger, error) {
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}

	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}

	handlerOpts := &slog.HandlerOptions{Level: level}

	switch opts.logFormat {
	case formatText, "":
		return slog.New(slog.NewTextHandler(wrt, handlerOpts)), nil
	case formatJSON:
		return slog.New(slog.NewJSONHandler(wrt, handlerOpts)), nil
	default:
		return nil, errors.Wrapf(ErrLogFormat, "%q", opts.logFormat)
	}
}
