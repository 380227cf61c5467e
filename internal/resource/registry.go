package resource

import (
	"fmt"
)

// Registry is the ordered, name-unique collection of resources that make up an application.
// Iteration order is first-insertion order; substitution keeps the replaced position.
//
// A Registry is built by a single configuration pass and read by a single commit pass. It is
// not safe for concurrent mutation.
type Registry struct {
	entries []*Resource
	byName  map[string]*Resource
	frozen  bool
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]*Resource),
	}
}

// Add appends r and fires its added hooks. A hook error rolls the addition back.
func (reg *Registry) Add(r *Resource) error {
	if reg.frozen {
		return ErrRegistryFrozen
	}
	if r == nil || r.Name == "" {
		return configurationf(CodeInvalidResource, "", "resource name must not be empty")
	}
	if _, exists := reg.byName[r.Name]; exists {
		return DuplicateNameError{Name: r.Name}
	}

	reg.entries = append(reg.entries, r)
	reg.byName[r.Name] = r

	if err := r.fire(HookAdded, reg); err != nil {
		reg.drop(r)
		return err
	}
	return nil
}

// Remove deletes r from the registry and fires its removed hooks.
func (reg *Registry) Remove(r *Resource) error {
	if reg.frozen {
		return ErrRegistryFrozen
	}
	if r == nil {
		return configurationf(CodeResourceNotRegistered, "", "resource is nil")
	}
	if reg.indexOf(r) < 0 {
		return configurationf(CodeResourceNotRegistered, r.Name, "resource is not registered")
	}
	reg.drop(r)
	return r.fire(HookRemoved, reg)
}

// Substitute replaces old, in place, with replacements in the given order. Each replacement
// receives old's annotations ahead of its own. Replacement names may reuse old's name but must
// not collide with any other registered resource or with each other.
func (reg *Registry) Substitute(old *Resource, replacements ...*Resource) error {
	if reg.frozen {
		return ErrRegistryFrozen
	}
	if old == nil {
		return SubstitutionError{Reason: "resource is nil"}
	}
	pos := reg.indexOf(old)
	if pos < 0 {
		return SubstitutionError{Name: old.Name, Reason: "resource is not registered"}
	}
	if len(replacements) == 0 {
		return SubstitutionError{Name: old.Name, Reason: "no replacement resources given"}
	}

	names := make(map[string]bool, len(replacements))
	for _, n := range replacements {
		if n == nil || n.Name == "" {
			return SubstitutionError{Name: old.Name, Reason: "replacement resource name must not be empty"}
		}
		if names[n.Name] {
			return SubstitutionError{Name: old.Name, Reason: fmt.Sprintf("replacement name '%s' is used twice", n.Name)}
		}
		names[n.Name] = true
		if existing, ok := reg.byName[n.Name]; ok && existing != old {
			return SubstitutionError{Name: old.Name, Reason: fmt.Sprintf("replacement name '%s' collides with an existing resource", n.Name)}
		}
		for _, e := range old.Endpoints() {
			if _, dup := n.Endpoint(e.Name); dup {
				return DuplicateEndpointError{Resource: n.Name, Endpoint: e.Name}
			}
		}
	}

	for _, n := range replacements {
		carried := old.Annotations()
		n.annotations = append(carried, n.annotations...)
	}

	entries := make([]*Resource, 0, len(reg.entries)-1+len(replacements))
	entries = append(entries, reg.entries[:pos]...)
	entries = append(entries, replacements...)
	entries = append(entries, reg.entries[pos+1:]...)
	reg.entries = entries

	delete(reg.byName, old.Name)
	for _, n := range replacements {
		reg.byName[n.Name] = n
	}

	if err := old.fire(HookRemoved, reg); err != nil {
		return err
	}
	for _, n := range replacements {
		if err := n.fire(HookAdded, reg); err != nil {
			return err
		}
	}
	return nil
}

// Get finds a resource by name
func (reg *Registry) Get(name string) (*Resource, bool) {
	r, ok := reg.byName[name]
	return r, ok
}

// Contains reports whether r itself (not just its name) is registered.
func (reg *Registry) Contains(r *Resource) bool {
	return reg.indexOf(r) >= 0
}

// Resources returns the resources in registry order
func (reg *Registry) Resources() []*Resource {
	out := make([]*Resource, len(reg.entries))
	copy(out, reg.entries)
	return out
}

// Names returns the resource names in registry order
func (reg *Registry) Names() []string {
	names := make([]string, len(reg.entries))
	for i, r := range reg.entries {
		names[i] = r.Name
	}
	return names
}

// Len returns the number of registered resources
func (reg *Registry) Len() int {
	return len(reg.entries)
}

// RunBeforePublish fires the before-publish hooks of every resource once, in registry order.
// Hooks may substitute resources; replacements inserted at or after the current position are
// visited too.
func (reg *Registry) RunBeforePublish() error {
	if reg.frozen {
		return ErrRegistryFrozen
	}
	visited := make(map[*Resource]bool)
	for i := 0; i < len(reg.entries); i++ {
		r := reg.entries[i]
		if visited[r] {
			continue
		}
		visited[r] = true
		if err := r.fire(HookBeforePublish, reg); err != nil {
			return err
		}
		// A substitution may have shifted r's position; restart from the same index so the
		// replacements are visited.
		if reg.indexOf(r) < 0 {
			i--
		}
	}
	return nil
}

// Freeze rejects every later mutation. It is called when a commit starts.
func (reg *Registry) Freeze() {
	reg.frozen = true
}

// Frozen reports whether the registry has been frozen
func (reg *Registry) Frozen() bool {
	return reg.frozen
}

func (reg *Registry) indexOf(r *Resource) int {
	for i, e := range reg.entries {
		if e == r {
			return i
		}
	}
	return -1
}

func (reg *Registry) drop(r *Resource) {
	pos := reg.indexOf(r)
	if pos < 0 {
		return
	}
	reg.entries = append(reg.entries[:pos:pos], reg.entries[pos+1:]...)
	if reg.byName[r.Name] == r {
		delete(reg.byName, r.Name)
	}
}
