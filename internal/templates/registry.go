package templates

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// NotFoundError reports a module template lookup that matched nothing. Known holds the
// registered names at the time of the lookup so callers can offer suggestions.
type NotFoundError struct {
	Name  string
	Known []string
}

func (e *NotFoundError) Error() string {
	if len(e.Known) == 0 {
		return fmt.Sprintf("no module template named %q (none registered)", e.Name)
	}
	return fmt.Sprintf("no module template named %q (available: %s)", e.Name, strings.Join(e.Known, ", "))
}

// Registry is the set of module templates bicep resources can be rendered from. It is safe for
// concurrent use.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]*Template
}

func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]*Template)}
}

// NewBuiltinRegistry returns a registry preloaded with the storage and keyvault modules.
func NewBuiltinRegistry() (*Registry, error) {
	r := NewRegistry()
	for _, tmpl := range BuiltinTemplates() {
		if err := r.Register(tmpl); err != nil {
			return nil, fmt.Errorf("builtin module %s: %w", tmpl.Name, err)
		}
	}
	return r, nil
}

// Register adds tmpl after validating it. Names are unique.
func (r *Registry) Register(tmpl *Template) error {
	if err := tmpl.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.modules[tmpl.Name]; dup {
		return fmt.Errorf("module template %s is already registered", tmpl.Name)
	}
	r.modules[tmpl.Name] = tmpl
	return nil
}

// Get returns the named template or a *NotFoundError.
func (r *Registry) Get(name string) (*Template, error) {
	r.mu.RLock()
	tmpl, ok := r.modules[name]
	r.mu.RUnlock()
	if !ok {
		return nil, &NotFoundError{Name: name, Known: r.Names()}
	}
	return tmpl, nil
}

func (r *Registry) Exists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.modules[name]
	return ok
}

// List returns the templates ordered by name.
func (r *Registry) List() []*Template {
	r.mu.RLock()
	out := make([]*Template, 0, len(r.modules))
	for _, tmpl := range r.modules {
		out = append(out, tmpl)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *Registry) Names() []string {
	list := r.List()
	names := make([]string, 0, len(list))
	for _, tmpl := range list {
		names = append(names, tmpl.Name)
	}
	return names
}
