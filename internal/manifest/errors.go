package manifest

import "errors"

var (
	// ErrLocalModeUnsupported is returned when a manifest is requested for local execution.
	ErrLocalModeUnsupported = errors.New("manifest publishing is not supported in local mode")
	// ErrPublisherUsed is returned when a publisher is run a second time.
	ErrPublisherUsed = errors.New("publisher has already run")
)
