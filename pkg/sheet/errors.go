package sheet

import "github.com/pkg/errors"

var (
	ErrUnknownCell    = errors.New("unknown cell")
	ErrDuplicateCell  = errors.New("duplicate cell")
	ErrAlreadyRunning = errors.New("sheet is already running")
	ErrClosed         = errors.New("sheet is closed")
)
