package resource

import "fmt"

// HookType identifies a resource lifecycle event
type HookType string

const (
	HookAdded         HookType = "added"
	HookRemoved       HookType = "removed"
	HookBeforePublish HookType = "before_publish"
)

// HookFunc receives the registry the event happened in and the resource it concerns
type HookFunc func(reg *Registry, r *Resource) error

// hookRegistry manages the lifecycle hooks of one resource
type hookRegistry struct {
	hooks map[HookType][]HookFunc
}

func newHookRegistry() *hookRegistry {
	return &hookRegistry{
		hooks: make(map[HookType][]HookFunc),
	}
}

// Register adds a hook for the given type
func (h *hookRegistry) Register(hookType HookType, fn HookFunc) {
	h.hooks[hookType] = append(h.hooks[hookType], fn)
}

// HasHooks returns true if there are any hooks registered for the given type
func (h *hookRegistry) HasHooks(hookType HookType) bool {
	return len(h.hooks[hookType]) > 0
}

// Run executes hooks in registration order and stops at the first error
func (h *hookRegistry) Run(hookType HookType, reg *Registry, r *Resource) error {
	for _, fn := range h.hooks[hookType] {
		if err := fn(reg, r); err != nil {
			return fmt.Errorf("%s hook for resource '%s': %w", hookType, r.Name, err)
		}
	}
	return nil
}
