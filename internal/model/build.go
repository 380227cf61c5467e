package model

import (
	"fmt"
	"sort"
	"strings"

	"github.com/conduit-lang/apphost/internal/catalog"
	"github.com/conduit-lang/apphost/internal/resource"
)

// kindAliases maps the short kind names accepted in model files to manifest types.
var kindAliases = map[string]string{
	"container":        catalog.TypeContainer,
	"executable":       catalog.TypeExecutable,
	"project":          catalog.TypeProject,
	"dockerfile":       catalog.TypeDockerfile,
	"value":            catalog.TypeValue,
	"parameter":        catalog.TypeParameter,
	"connectionstring": catalog.TypeParameter,
	"bicep":            catalog.TypeBicep,
}

// Kinds returns every kind name accepted in a model file, sorted.
func Kinds() []string {
	kinds := make([]string, 0, len(kindAliases))
	for k := range kindAliases {
		kinds = append(kinds, k)
	}
	kinds = append(kinds, catalog.Types()...)
	sort.Strings(kinds)
	return kinds
}

// UnknownNameError reports a reference to a resource or kind that does not exist. Known lists
// the valid names so callers can suggest close matches.
type UnknownNameError struct {
	What  string
	Name  string
	Where string
	Known []string
}

func (e *UnknownNameError) Error() string {
	return fmt.Sprintf("%s: unknown %s '%s'", e.Where, e.What, e.Name)
}

// Code implements resource.Coded
func (e *UnknownNameError) Code() string {
	switch e.What {
	case "kind":
		return resource.CodeUnknownType
	case "template":
		return resource.CodeUnknownTemplate
	default:
		return resource.CodeDanglingReference
	}
}

// Is matches resource.ErrConfiguration
func (e *UnknownNameError) Is(target error) bool {
	return target == resource.ErrConfiguration
}

type builder struct {
	app      *catalog.App
	byName   map[string]*catalog.Builder
	names    []string
	building string
}

// Build adds every resource of f to app. Resources are created first and configured second,
// so references may point forward in the file.
func Build(app *catalog.App, f *File) error {
	b := &builder{
		app:    app,
		byName: make(map[string]*catalog.Builder),
	}
	for i := range f.Resources {
		b.names = append(b.names, f.Resources[i].Name)
	}

	for i := range f.Resources {
		if err := b.create(&f.Resources[i]); err != nil {
			return err
		}
	}
	for i := range f.Resources {
		if err := b.configure(&f.Resources[i]); err != nil {
			return err
		}
	}
	return app.Err()
}

func (b *builder) create(spec *ResourceSpec) error {
	where := fmt.Sprintf("resource '%s'", spec.Name)
	if strings.TrimSpace(spec.Name) == "" {
		return &resource.ConfigurationError{ErrCode: resource.CodeInvalidResource, Message: "resource name is required"}
	}

	kind := strings.ToLower(spec.Type)
	typ, ok := kindAliases[kind]
	if !ok {
		for _, t := range catalog.Types() {
			if spec.Type == t {
				typ, ok = t, true
			}
		}
	}
	if !ok {
		return &UnknownNameError{What: "kind", Name: spec.Type, Where: where, Known: Kinds()}
	}

	var rb *catalog.Builder
	switch {
	case typ == catalog.TypeContainer:
		rb = b.app.AddContainer(spec.Name, spec.Image)
	case typ == catalog.TypeExecutable:
		rb = b.app.AddExecutable(spec.Name, spec.Command, spec.WorkingDirectory)
	case typ == catalog.TypeProject:
		rb = b.app.AddProject(spec.Name, spec.Path)
	case typ == catalog.TypeDockerfile:
		rb = b.app.AddDockerfile(spec.Name, spec.Context, spec.Path)
	case typ == catalog.TypeValue:
		// The real expression is set once every resource exists.
		rb = b.app.AddValue(spec.Name, "")
	case kind == "connectionstring":
		rb = b.app.AddConnectionString(spec.Name)
	case typ == catalog.TypeParameter:
		rb = b.app.AddParameter(spec.Name, spec.Secret)
	case typ == catalog.TypeBicep:
		if spec.Template == "" {
			return &resource.ConfigurationError{
				ErrCode:  resource.CodeMissingField,
				Resource: spec.Name,
				Message:  "bicep resources require a template",
			}
		}
		if !b.app.Templates().Exists(spec.Template) {
			return &UnknownNameError{What: "template", Name: spec.Template, Where: where, Known: b.app.Templates().Names()}
		}
		rb = b.app.AddBicep(spec.Name, spec.Template)
	}

	b.byName[spec.Name] = rb
	return nil
}

func (b *builder) configure(spec *ResourceSpec) error {
	rb := b.byName[spec.Name]
	b.building = spec.Name

	for _, ep := range spec.Endpoints {
		rb.WithEndpoint(endpointFromSpec(ep))
	}
	if spec.External {
		rb.MarkExternalHTTPEndpoints()
	}

	if spec.ConnectionString != "" {
		format, providers, err := b.interpolate("connectionString", spec.ConnectionString)
		if err != nil {
			return err
		}
		rb.WithConnectionString(format, providers...)
	}
	if spec.Value != "" {
		rb.WithValue(spec.Value)
	}

	for i, arg := range spec.Args {
		v, err := b.value(fmt.Sprintf("args[%d]", i), arg)
		if err != nil {
			return err
		}
		rb.WithArgs(v)
	}

	for _, key := range sortedKeys(spec.Env) {
		v, err := b.value("env."+key, spec.Env[key])
		if err != nil {
			return err
		}
		rb.WithEnvironment(key, v)
	}

	for _, key := range sortedKeys(spec.Params) {
		v, err := b.value("params."+key, spec.Params[key])
		if err != nil {
			return err
		}
		rb.WithParameter(key, v)
	}

	if spec.BuildArgs != nil {
		rb.WithField("buildArgs", spec.BuildArgs)
	}

	outputs := make([]string, 0, len(spec.Outputs))
	for name := range spec.Outputs {
		outputs = append(outputs, name)
	}
	sort.Strings(outputs)
	for _, name := range outputs {
		rb.WithOutputValue(name, spec.Outputs[name])
	}

	for _, ref := range spec.References {
		if err := b.reference(rb, ref); err != nil {
			return err
		}
	}

	if df := spec.Dockerfile; df != nil {
		rb.WithDockerfile(df.Context, df.Path, df.BuildArgs)
	}
	return nil
}

func (b *builder) reference(rb *catalog.Builder, ref ReferenceSpec) error {
	target, err := b.lookup(ref.Resource, "references")
	if err != nil {
		return err
	}
	switch {
	case len(ref.Endpoints) > 0:
		rb.WithEndpointReference(target, ref.Endpoints...)
	case ref.ConnectionName != "":
		rb.WithNamedReference(target, ref.ConnectionName)
	case ref.Optional:
		rb.WithOptionalReference(target)
	default:
		rb.WithReference(target)
	}
	return nil
}

func (b *builder) lookup(name, field string) (*catalog.Builder, error) {
	target, ok := b.byName[name]
	if !ok {
		return nil, &UnknownNameError{
			What:  "resource",
			Name:  name,
			Where: fmt.Sprintf("resource '%s' %s", b.building, field),
			Known: b.names,
		}
	}
	return target, nil
}

// value converts a model value into a literal or a provider. Only strings are interpolated.
func (b *builder) value(field string, v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return v, nil
	}
	format, providers, err := b.interpolate(field, s)
	if err != nil {
		return nil, err
	}
	if len(providers) == 0 {
		if !strings.ContainsAny(s, "{}") {
			return s, nil
		}
		return resource.NewReferenceExpression(format), nil
	}
	if format == "{0}" {
		return providers[0], nil
	}
	return resource.NewReferenceExpression(format, providers...), nil
}

func (b *builder) interpolate(field, s string) (string, []any, error) {
	in, err := Interpolate(s)
	if err != nil {
		return "", nil, fmt.Errorf("resource '%s' %s: %w", b.building, field, err)
	}
	if in.IsLiteral() {
		return in.Format, nil, nil
	}

	providers := make([]any, len(in.Placeholders))
	for i, p := range in.Placeholders {
		provider, err := b.provider(field, p)
		if err != nil {
			return "", nil, err
		}
		providers[i] = provider
	}
	return in.Format, providers, nil
}

func (b *builder) provider(field string, p Placeholder) (resource.ValueProvider, error) {
	target, err := b.lookup(p.Resource, field)
	if err != nil {
		return nil, err
	}

	switch p.Kind {
	case KindOutput:
		return target.Output(p.Path[0]), nil
	case KindConnectionString:
		return target.ConnectionString(), nil
	case KindValue:
		return target.Value(), nil
	case KindBinding:
		ref := target.Endpoint(p.Path[0])
		if len(p.Path) == 1 {
			return ref, nil
		}
		prop, ok := resource.ParseEndpointProperty(p.Path[1])
		if !ok {
			return nil, fmt.Errorf("resource '%s' %s: unknown endpoint property '%s' in %s", b.building, field, p.Path[1], p)
		}
		return ref.Property(prop), nil
	default:
		return nil, fmt.Errorf("resource '%s' %s: unsupported placeholder %s", b.building, field, p)
	}
}

func endpointFromSpec(spec EndpointSpec) *resource.Endpoint {
	ep := &resource.Endpoint{
		Name:      spec.Name,
		Scheme:    spec.Scheme,
		Protocol:  spec.Protocol,
		Transport: spec.Transport,
		External:  spec.External,
		Proxied:   true,
	}
	if ep.Scheme == "" {
		ep.Scheme = spec.Name
	}
	if spec.Port != 0 {
		port := spec.Port
		ep.Port = &port
	}
	if spec.TargetPort != 0 {
		target := spec.TargetPort
		ep.TargetPort = &target
	}
	return ep
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
