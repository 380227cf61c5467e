package environment

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/conduit-lang/apphost/internal/resource"
)

// Resolution is the resolved environment of one resource.
type Resolution struct {
	Resource *resource.Resource
	// Env maps each variable to its rendered value.
	Env map[string]string
	// Dependencies lists the other resources reached while rendering, in discovery order.
	Dependencies []*resource.Resource
}

// Keys returns the variable names in sorted order.
func (r *Resolution) Keys() []string {
	keys := make([]string, 0, len(r.Env))
	for k := range r.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Resolver runs environment callbacks and renders the values they produce.
type Resolver struct {
	mode   resource.ExecutionMode
	logger *zap.Logger
}

// NewResolver creates a resolver locked to mode. A nil logger is replaced by a no-op logger.
func NewResolver(mode resource.ExecutionMode, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{mode: mode, logger: logger}
}

// Mode returns the mode values are rendered in
func (rv *Resolver) Mode() resource.ExecutionMode {
	return rv.mode
}

// NewRenderer returns a renderer in the resolver's mode that logs truncated cycles.
func (rv *Resolver) NewRenderer(owner *resource.Resource) *resource.Renderer {
	return resource.NewRenderer(rv.mode).OnCycle(func(r *resource.Resource) {
		rv.logger.Debug("expansion cycle truncated",
			zap.String("resource", owner.Name),
			zap.String("reentered", r.Name))
	})
}

// Collect runs every environment annotation of r in attachment order and returns the
// unrendered values. Later writes to a key overwrite earlier ones.
func (rv *Resolver) Collect(r *resource.Resource) (map[string]any, error) {
	acc := make(map[string]any)
	for _, a := range r.Annotations() {
		switch ann := a.(type) {
		case *resource.Environment:
			acc[ann.Key] = ann.Value
		case *resource.EnvironmentCallback:
			if ann.Fn == nil {
				continue
			}
			vars, err := ann.Fn(resource.NewEnvironmentContext(rv.mode, r, acc))
			if err != nil {
				return nil, fmt.Errorf("environment callback %q on resource '%s': %w", ann.Label, r.Name, err)
			}
			for _, v := range vars {
				acc[v.Key] = v.Value
			}
		}
	}
	return acc, nil
}

// Resolve collects and renders the environment of r.
func (rv *Resolver) Resolve(r *resource.Resource) (*Resolution, error) {
	rd := rv.NewRenderer(r)
	return rv.ResolveWith(rd, r)
}

// ResolveWith resolves the environment of r with a caller-provided renderer, so the
// dependencies found here join those found while rendering other fields of r.
func (rv *Resolver) ResolveWith(rd *resource.Renderer, r *resource.Resource) (*Resolution, error) {
	acc, err := rv.Collect(r)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(acc))
	for k := range acc {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := make(map[string]string, len(acc))
	for _, k := range keys {
		s, err := RenderValue(rd, r, k, acc[k])
		if err != nil {
			return nil, err
		}
		env[k] = s
	}

	rv.logger.Debug("resolved environment",
		zap.String("resource", r.Name),
		zap.Int("variables", len(env)),
		zap.String("mode", rv.mode.String()))

	return &Resolution{
		Resource:     r,
		Env:          env,
		Dependencies: withoutSelf(rd.Dependencies(), r),
	}, nil
}

// RenderValue renders one environment or manifest value. Strings, bools and numbers of any
// built-in kind pass through in their decimal form, ValueProviders render in rd's mode, and
// anything else, nil included, is an UnsupportedValueError naming key.
func RenderValue(rd *resource.Renderer, r *resource.Resource, key string, value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case int, int8, int16, int32, int64:
		return strconv.FormatInt(reflect.ValueOf(v).Int(), 10), nil
	case uint, uint8, uint16, uint32, uint64:
		return strconv.FormatUint(reflect.ValueOf(v).Uint(), 10), nil
	case float32:
		return formatFloat(float64(v), 32), nil
	case float64:
		return formatFloat(v, 64), nil
	case resource.ValueProvider:
		if isNilProvider(v) {
			break
		}
		s, err := rd.Render(v)
		if err != nil {
			return "", fmt.Errorf("resolve '%s' on resource '%s': %w", key, r.Name, err)
		}
		return s, nil
	}
	return "", resource.UnsupportedValueError{Resource: r.Name, Key: key, Value: value}
}

// formatFloat writes whole numbers without a fraction or exponent.
func formatFloat(v float64, bits int) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, bits)
}

func isNilProvider(v resource.ValueProvider) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Ptr && rv.IsNil()
}

func withoutSelf(deps []*resource.Resource, self *resource.Resource) []*resource.Resource {
	out := deps[:0]
	for _, d := range deps {
		if d != self {
			out = append(out, d)
		}
	}
	return out
}
