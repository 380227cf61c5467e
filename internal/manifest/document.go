package manifest

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/conduit-lang/apphost/internal/environment"
	"github.com/conduit-lang/apphost/internal/resource"
)

// SchemaURL is written to the $schema field of every manifest.
const SchemaURL = "https://json.schemastore.org/aspire-8.0.json"

// Entry is the ordered JSON object describing one resource.
type Entry = orderedmap.OrderedMap[string, any]

// Document is the manifest. Resources keep registry order when serialized.
type Document struct {
	Schema    string                                 `json:"$schema"`
	Resources *orderedmap.OrderedMap[string, *Entry] `json:"resources"`
}

// NewDocument creates an empty manifest
func NewDocument() *Document {
	return &Document{
		Schema:    SchemaURL,
		Resources: orderedmap.New[string, *Entry](),
	}
}

// Resource returns the entry of a resource by name
func (d *Document) Resource(name string) (*Entry, bool) {
	return d.Resources.Get(name)
}

// Names returns the resource names in manifest order
func (d *Document) Names() []string {
	names := make([]string, 0, d.Resources.Len())
	for pair := d.Resources.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// Serialize converts the document to indented JSON. The output is deterministic for a
// deterministic registry.
func (d *Document) Serialize() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize manifest: %w", err)
	}
	return append(data, '\n'), nil
}

// Binding is the manifest form of an endpoint.
type Binding struct {
	Scheme     string `json:"scheme"`
	Protocol   string `json:"protocol"`
	Transport  string `json:"transport"`
	Port       *int   `json:"port,omitempty"`
	TargetPort *int   `json:"targetPort,omitempty"`
	External   bool   `json:"external,omitempty"`
}

// buildBindings collapses endpoints to one binding per URI scheme; the first endpoint declared
// with a scheme wins.
func buildBindings(r *resource.Resource) *orderedmap.OrderedMap[string, Binding] {
	bindings := orderedmap.New[string, Binding]()
	for _, ep := range r.Endpoints() {
		scheme := strings.ToLower(ep.Scheme)
		if _, exists := bindings.Get(scheme); exists {
			continue
		}
		bindings.Set(scheme, Binding{
			Scheme:     scheme,
			Protocol:   defaultString(strings.ToLower(ep.Protocol), "tcp"),
			Transport:  defaultString(ep.Transport, defaultTransport(scheme)),
			Port:       ep.Port,
			TargetPort: ep.TargetPort,
			External:   ep.External,
		})
	}
	return bindings
}

func defaultTransport(scheme string) string {
	switch scheme {
	case "http", "https":
		return "http"
	default:
		return scheme
	}
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// buildEntry writes the declared fields of r followed by the computed blocks: connection
// string, environment and bindings, in that order.
func buildEntry(rd *resource.Renderer, r *resource.Resource, env *environment.Resolution) (*Entry, error) {
	entry := orderedmap.New[string, any]()
	entry.Set("type", r.Type)

	for _, kv := range r.KeyValues(resource.BucketFields) {
		v, err := renderField(rd, r, kv.Key, kv.Value)
		if err != nil {
			return nil, err
		}
		entry.Set(kv.Key, v)
	}

	for _, bucket := range r.Buckets() {
		if bucket == resource.BucketFields {
			continue
		}
		nested := orderedmap.New[string, any]()
		for _, kv := range r.KeyValues(bucket) {
			v, err := renderField(rd, r, bucket+"."+kv.Key, kv.Value)
			if err != nil {
				return nil, err
			}
			nested.Set(kv.Key, v)
		}
		entry.Set(bucket, nested)
	}

	if args := r.Args(resource.BucketArgs); len(args) > 0 {
		rendered := make([]string, len(args))
		for i, a := range args {
			s, err := environment.RenderValue(rd, r, fmt.Sprintf("args[%d]", i), a)
			if err != nil {
				return nil, err
			}
			rendered[i] = s
		}
		entry.Set("args", rendered)
	}

	if expr := r.ConnectionStringExpression(); r.HasConnectionString() && expr != nil {
		s, err := rd.Render(expr)
		if err != nil {
			return nil, fmt.Errorf("resolve connection string of resource '%s': %w", r.Name, err)
		}
		entry.Set("connectionString", s)
	}

	if env != nil && len(env.Env) > 0 {
		entry.Set("env", env.Env)
	}

	if bindings := buildBindings(r); bindings.Len() > 0 {
		entry.Set("bindings", bindings)
	}
	return entry, nil
}

// renderField renders a declared field. Unlike environment values, fields keep their JSON
// type: numbers stay numbers and maps become objects.
func renderField(rd *resource.Renderer, r *resource.Resource, key string, value any) (any, error) {
	switch v := value.(type) {
	case nil, string, bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, float32, float64:
		return v, nil
	case []string:
		return v, nil
	case resource.ValueProvider:
		return environment.RenderValue(rd, r, key, v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			rendered, err := renderField(rd, r, fmt.Sprintf("%s[%d]", key, i), item)
			if err != nil {
				return nil, err
			}
			out[i] = rendered
		}
		return out, nil
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := orderedmap.New[string, any]()
		for _, k := range keys {
			rendered, err := renderField(rd, r, key+"."+k, v[k])
			if err != nil {
				return nil, err
			}
			out.Set(k, rendered)
		}
		return out, nil
	default:
		return nil, resource.UnsupportedValueError{Resource: r.Name, Key: key, Value: value}
	}
}
