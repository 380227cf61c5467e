package resource

import (
	"sort"
	"strings"
)

// Annotation is a typed piece of metadata attached to a resource.
//
// The set of variants is closed: *EnvironmentCallback, *Environment, *Endpoint,
// *EndpointReferenceAnnotation, *KeyValue and *Args. Consumers dispatch with a type switch.
type Annotation interface {
	annotation()
}

// Well-known KeyValue and Args buckets.
const (
	// BucketFields holds the resource-specific manifest fields (image, path, command...).
	BucketFields = "fields"
	// BucketArgs holds command-line arguments emitted as the manifest "args" array.
	BucketArgs = "args"
	// BucketParams holds deployment module parameters emitted as the "params" object.
	BucketParams = "params"
)

// EnvVar is one (key, value) pair produced by an environment callback. Value is either a
// literal or a ValueProvider.
type EnvVar struct {
	Key   string
	Value any
}

// EnvironmentContext is the read-only view handed to environment callbacks. It exposes the
// pairs accumulated by callbacks that ran earlier for the same resource.
type EnvironmentContext struct {
	Mode     ExecutionMode
	Resource *Resource
	current  map[string]any
}

// NewEnvironmentContext creates a context over a snapshot of the accumulated values.
func NewEnvironmentContext(mode ExecutionMode, r *Resource, accumulated map[string]any) EnvironmentContext {
	snapshot := make(map[string]any, len(accumulated))
	for k, v := range accumulated {
		snapshot[k] = v
	}
	return EnvironmentContext{Mode: mode, Resource: r, current: snapshot}
}

// Lookup returns a value written by an earlier callback.
func (c EnvironmentContext) Lookup(key string) (any, bool) {
	v, ok := c.current[key]
	return v, ok
}

// Keys returns the accumulated keys in sorted order.
func (c EnvironmentContext) Keys() []string {
	keys := make([]string, 0, len(c.current))
	for k := range c.current {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// EnvironmentFunc is a pure reducer: it reads the context and returns the pairs to merge.
type EnvironmentFunc func(ctx EnvironmentContext) ([]EnvVar, error)

// EnvironmentCallback defers environment values until resolution time.
type EnvironmentCallback struct {
	Label string
	Fn    EnvironmentFunc
}

// Environment is a literal environment entry.
type Environment struct {
	Key   string
	Value any
}

// Endpoint is a declared network listening point.
type Endpoint struct {
	Name       string
	Protocol   string // tcp, udp
	Scheme     string // http, https, tcp...
	Transport  string // http, http2...
	Port       *int
	TargetPort *int
	External   bool
	Proxied    bool
	Allocated  *AllocatedEndpoint
}

// AllocatedEndpoint is the concrete address assigned to an endpoint when running locally.
type AllocatedEndpoint struct {
	Host string
	Port int
}

// IsHTTP reports whether the endpoint speaks http or https.
func (e *Endpoint) IsHTTP() bool {
	s := strings.ToLower(e.Scheme)
	return s == "http" || s == "https"
}

// EndpointReferenceAnnotation records that the owning resource consumes the endpoints of
// Target. There is at most one per (source, target) pair.
type EndpointReferenceAnnotation struct {
	Target          *Resource
	UseAllEndpoints bool
	names           []string
}

// EndpointNames returns the requested endpoint names in request order.
func (a *EndpointReferenceAnnotation) EndpointNames() []string {
	out := make([]string, len(a.names))
	copy(out, a.names)
	return out
}

// Request widens the requested name set. Names are compared case-insensitively.
func (a *EndpointReferenceAnnotation) Request(names ...string) {
	for _, n := range names {
		if !a.Requests(n) {
			a.names = append(a.names, n)
		}
	}
}

// Requests reports whether name is selected by this annotation.
func (a *EndpointReferenceAnnotation) Requests(name string) bool {
	for _, n := range a.names {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}

// Includes reports whether an endpoint with the given name survives the filter.
func (a *EndpointReferenceAnnotation) Includes(name string) bool {
	return a.UseAllEndpoints || a.Requests(name)
}

// KeyValue is a bucketed key/value pair.
type KeyValue struct {
	Bucket string
	Key    string
	Value  any
}

// Args is an ordered list of values in a bucket.
type Args struct {
	Bucket string
	Values []any
}

func (*EnvironmentCallback) annotation() {}
func (*Environment) annotation() {}
func (*Endpoint) annotation() {}
func (*EndpointReferenceAnnotation) annotation() {}
func (*KeyValue) annotation() {}
func (*Args) annotation() {}
