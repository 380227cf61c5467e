package resource

import (
	"strings"
)

// Resource is a named, typed configuration unit. Its behavior is extended by attaching
// annotations and by the capability records a resource kind fills in.
type Resource struct {
	Type         string
	Name         string
	Capabilities Capabilities

	annotations []Annotation
	hooks       *hookRegistry
}

// New creates a new resource with no annotations.
func New(typ, name string) *Resource {
	return &Resource{
		Type:  typ,
		Name:  name,
		hooks: newHookRegistry(),
	}
}

// Annotate appends an annotation. Attachment order is the order callbacks run in.
func (r *Resource) Annotate(a Annotation) {
	r.annotations = append(r.annotations, a)
}

// Annotations returns a copy of the annotation list in attachment order.
func (r *Resource) Annotations() []Annotation {
	out := make([]Annotation, len(r.annotations))
	copy(out, r.annotations)
	return out
}

// Endpoints returns the currently declared endpoints in declaration order.
func (r *Resource) Endpoints() []*Endpoint {
	var endpoints []*Endpoint
	for _, a := range r.annotations {
		if e, ok := a.(*Endpoint); ok {
			endpoints = append(endpoints, e)
		}
	}
	return endpoints
}

// Endpoint finds a declared endpoint by name, case-insensitively.
func (r *Resource) Endpoint(name string) (*Endpoint, bool) {
	for _, e := range r.Endpoints() {
		if strings.EqualFold(e.Name, name) {
			return e, true
		}
	}
	return nil, false
}

// AddEndpoint declares an endpoint. Names must be unique ignoring case.
func (r *Resource) AddEndpoint(e *Endpoint) error {
	if e.Name == "" {
		return configurationf(CodeInvalidEndpoint, r.Name, "endpoint name must not be empty")
	}
	if _, exists := r.Endpoint(e.Name); exists {
		return DuplicateEndpointError{Resource: r.Name, Endpoint: e.Name}
	}
	r.Annotate(e)
	return nil
}

// MarkExternalHTTPEndpoints exposes every http/https endpoint declared so far.
func (r *Resource) MarkExternalHTTPEndpoints() {
	for _, e := range r.Endpoints() {
		if e.IsHTTP() {
			e.External = true
		}
	}
}

// EndpointReference returns a reference to one of the resource's endpoints. The endpoint
// does not need to be declared yet.
func (r *Resource) EndpointReference(name string) EndpointReference {
	return EndpointReference{Owner: r, EndpointName: name}
}

// EndpointReferenceTo returns the annotation recording references from r to target, if any.
func (r *Resource) EndpointReferenceTo(target *Resource) (*EndpointReferenceAnnotation, bool) {
	for _, a := range r.annotations {
		if ref, ok := a.(*EndpointReferenceAnnotation); ok && ref.Target.Name == target.Name {
			return ref, true
		}
	}
	return nil, false
}

// NewEndpointReferenceAnnotation creates an annotation for target requesting the given names.
func NewEndpointReferenceAnnotation(target *Resource, names ...string) *EndpointReferenceAnnotation {
	a := &EndpointReferenceAnnotation{Target: target}
	a.Request(names...)
	return a
}

// SetField sets a KeyValue in bucket, replacing an existing entry with the same key in place.
func (r *Resource) SetField(bucket, key string, value any) {
	for _, a := range r.annotations {
		if kv, ok := a.(*KeyValue); ok && kv.Bucket == bucket && kv.Key == key {
			kv.Value = value
			return
		}
	}
	r.Annotate(&KeyValue{Bucket: bucket, Key: key, Value: value})
}

// Field returns the value of a KeyValue annotation.
func (r *Resource) Field(bucket, key string) (any, bool) {
	for _, a := range r.annotations {
		if kv, ok := a.(*KeyValue); ok && kv.Bucket == bucket && kv.Key == key {
			return kv.Value, true
		}
	}
	return nil, false
}

// KeyValues returns the KeyValue annotations of a bucket in attachment order.
func (r *Resource) KeyValues(bucket string) []*KeyValue {
	var out []*KeyValue
	for _, a := range r.annotations {
		if kv, ok := a.(*KeyValue); ok && kv.Bucket == bucket {
			out = append(out, kv)
		}
	}
	return out
}

// Buckets returns the distinct KeyValue buckets in first-appearance order.
func (r *Resource) Buckets() []string {
	seen := make(map[string]bool)
	var buckets []string
	for _, a := range r.annotations {
		if kv, ok := a.(*KeyValue); ok && !seen[kv.Bucket] {
			seen[kv.Bucket] = true
			buckets = append(buckets, kv.Bucket)
		}
	}
	return buckets
}

// AddArgs appends values to the Args annotation of bucket.
func (r *Resource) AddArgs(bucket string, values ...any) {
	for _, a := range r.annotations {
		if args, ok := a.(*Args); ok && args.Bucket == bucket {
			args.Values = append(args.Values, values...)
			return
		}
	}
	r.Annotate(&Args{Bucket: bucket, Values: append([]any(nil), values...)})
}

// Args returns the values of a bucket, concatenated across Args annotations.
func (r *Resource) Args(bucket string) []any {
	var out []any
	for _, a := range r.annotations {
		if args, ok := a.(*Args); ok && args.Bucket == bucket {
			out = append(out, args.Values...)
		}
	}
	return out
}

// OnAdded registers a hook fired when the resource enters a registry.
func (r *Resource) OnAdded(fn HookFunc) {
	r.hooks.Register(HookAdded, fn)
}

// OnRemoved registers a hook fired when the resource leaves a registry.
func (r *Resource) OnRemoved(fn HookFunc) {
	r.hooks.Register(HookRemoved, fn)
}

// BeforePublish registers a hook fired once before the registry is frozen for commit.
func (r *Resource) BeforePublish(fn HookFunc) {
	r.hooks.Register(HookBeforePublish, fn)
}

func (r *Resource) fire(hookType HookType, reg *Registry) error {
	if r.hooks == nil {
		return nil
	}
	return r.hooks.Run(hookType, reg, r)
}
