package resource

import (
	"fmt"
	"strings"
)

// ExecutionMode selects which rendering of a deferred value is produced.
// A single resolution pass always runs in exactly one mode.
type ExecutionMode int

const (
	// ModePublish renders symbolic manifest expressions such as {api.bindings.http.url}.
	ModePublish ExecutionMode = iota
	// ModeRun renders concrete values from allocated endpoints and provisioned outputs.
	ModeRun
)

// String returns the string representation of the mode
func (m ExecutionMode) String() string {
	switch m {
	case ModePublish:
		return "publish"
	case ModeRun:
		return "local"
	default:
		return "unknown"
	}
}

// ParseMode parses the CLI spelling of a mode. "run" is accepted as an alias of "local".
func ParseMode(s string) (ExecutionMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "publish":
		return ModePublish, nil
	case "local", "run":
		return ModeRun, nil
	default:
		return ModePublish, fmt.Errorf("unknown mode %q (expected publish or local)", s)
	}
}
