package catalog

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/conduit-lang/apphost/internal/manifest"
	"github.com/conduit-lang/apphost/internal/resource"
	"github.com/conduit-lang/apphost/internal/templates"
)

// App is the application being described. It owns the resource registry and collects the
// errors raised by builder calls so a chain of calls can be checked once with Err.
type App struct {
	registry  *resource.Registry
	templates *templates.Registry
	engine    *templates.Engine
	logger    *zap.Logger

	modules map[*resource.Resource]*templates.Template
	errs    []error
}

// Option configures an App
type Option func(*App)

// WithLogger sets the logger used by the app and by publishers it creates.
func WithLogger(logger *zap.Logger) Option {
	return func(a *App) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithTemplates replaces the built-in module template registry.
func WithTemplates(reg *templates.Registry) Option {
	return func(a *App) {
		if reg != nil {
			a.templates = reg
		}
	}
}

// NewApp creates an empty application
func NewApp(opts ...Option) (*App, error) {
	a := &App{
		registry: resource.NewRegistry(),
		engine:   templates.NewEngine(),
		logger:   zap.NewNop(),
		modules:  make(map[*resource.Resource]*templates.Template),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.templates == nil {
		reg, err := templates.NewBuiltinRegistry()
		if err != nil {
			return nil, err
		}
		a.templates = reg
	}
	return a, nil
}

// Registry returns the resource registry
func (a *App) Registry() *resource.Registry {
	return a.registry
}

// Templates returns the module template registry
func (a *App) Templates() *templates.Registry {
	return a.templates
}

// Err returns every error recorded by builder calls, joined, or nil.
func (a *App) Err() error {
	return errors.Join(a.errs...)
}

func (a *App) fail(err error) {
	if err != nil {
		a.errs = append(a.errs, err)
	}
}

// Resource returns a builder for a resource that is already registered.
func (a *App) Resource(name string) (*Builder, bool) {
	r, ok := a.registry.Get(name)
	if !ok {
		return nil, false
	}
	return &Builder{app: a, res: r}, true
}

// Rules returns the validation rules for the built-in kinds plus the module parameter check.
func (a *App) Rules() *manifest.Rules {
	rules := manifest.NewRules(Schemas()...)
	rules.AddRule(a.checkModuleParameters)
	return rules
}

// checkModuleParameters reports module parameters the module template does not declare.
func (a *App) checkModuleParameters(_ *resource.Registry, r *resource.Resource, errs *manifest.ValidationErrors) {
	tmpl, ok := a.modules[r]
	if !ok {
		return
	}
	declared := make(map[string]bool, len(tmpl.Variables))
	for _, v := range tmpl.Variables {
		declared[v.Name] = true
	}
	for _, kv := range r.KeyValues(resource.BucketParams) {
		if !declared[kv.Key] {
			errs.Add(r.Name, "params."+kv.Key, resource.CodeUnknownParameter,
				fmt.Sprintf("template '%s' does not declare parameter '%s'", tmpl.Name, kv.Key))
		}
	}
}

// Publisher creates a publisher for the app's registry. Rules and Logger default to the app's.
func (a *App) Publisher(opts manifest.Options) *manifest.Publisher {
	if opts.Rules == nil {
		opts.Rules = a.Rules()
	}
	if opts.Logger == nil {
		opts.Logger = a.logger
	}
	return manifest.NewPublisher(a.registry, opts)
}

func (a *App) add(typ, name string) *Builder {
	r := resource.New(typ, name)
	b := &Builder{app: a, res: r}
	if err := a.registry.Add(r); err != nil {
		a.fail(err)
	}
	a.logger.Debug("resource added", zap.String("resource", name), zap.String("type", typ))
	return b
}

// AddContainer adds a container image.
func (a *App) AddContainer(name, image string) *Builder {
	b := a.add(TypeContainer, name)
	b.res.SetField(resource.BucketFields, "image", image)
	return b
}

// AddExecutable adds a process started from command in workingDirectory.
func (a *App) AddExecutable(name, command, workingDirectory string, args ...any) *Builder {
	b := a.add(TypeExecutable, name)
	b.res.SetField(resource.BucketFields, "command", command)
	if workingDirectory != "" {
		b.res.SetField(resource.BucketFields, "workingDirectory", workingDirectory)
	}
	if len(args) > 0 {
		b.res.AddArgs(resource.BucketArgs, args...)
	}
	return b
}

// AddProject adds a source project at path.
func (a *App) AddProject(name, path string) *Builder {
	b := a.add(TypeProject, name)
	b.res.SetField(resource.BucketFields, "path", path)
	return b
}

// AddDockerfile adds an image built from a Dockerfile at path with build context contextDir.
func (a *App) AddDockerfile(name, contextDir, path string) *Builder {
	b := a.add(TypeDockerfile, name)
	b.res.SetField(resource.BucketFields, "path", path)
	b.res.SetField(resource.BucketFields, "context", contextDir)
	return b
}

// AddValue adds a resource whose only content is a connection string built from format and
// providers, as in resource.NewReferenceExpression.
func (a *App) AddValue(name, format string, providers ...any) *Builder {
	return a.add(TypeValue, name).WithConnectionString(format, providers...)
}

// AddParameter adds an externally supplied input value.
func (a *App) AddParameter(name string, secret bool) *Builder {
	b := a.add(TypeParameter, name)
	b.res.Capabilities.Parameter = &resource.ParameterCapability{Secret: secret}
	b.res.SetField(resource.BucketFields, "value", fmt.Sprintf("{%s.inputs.value}", name))

	input := map[string]any{"type": "string"}
	if secret {
		input["secret"] = true
	}
	b.res.SetField("inputs", "value", input)
	return b
}

// AddConnectionString adds a secret parameter that dependents receive as a connection string.
func (a *App) AddConnectionString(name string) *Builder {
	b := a.AddParameter(name, true)
	ref := resource.ParameterReference{Resource: b.res}
	b.res.Capabilities.ConnectionString = &resource.ConnectionStringCapability{
		Expression: func() *resource.ReferenceExpression {
			return resource.NewReferenceExpression("{0}", ref)
		},
	}
	return b
}

// AddBicep adds an infrastructure module rendered from the named template. The module file is
// generated next to the manifest as <name>.module.bicep.
func (a *App) AddBicep(name, templateName string) *Builder {
	tmpl, err := a.templates.Get(templateName)
	if err != nil {
		b := a.add(TypeBicep, name)
		a.fail(&resource.ConfigurationError{
			ErrCode:  resource.CodeUnknownTemplate,
			Resource: name,
			Message:  err.Error(),
		})
		return b
	}
	return a.AddBicepTemplate(name, tmpl)
}

// AddBicepTemplate adds an infrastructure module rendered from tmpl.
func (a *App) AddBicepTemplate(name string, tmpl *templates.Template) *Builder {
	b := a.add(TypeBicep, name)
	a.modules[b.res] = tmpl
	b.res.SetField(resource.BucketFields, "path", name+".module.bicep")
	b.res.Capabilities.Outputs = &resource.OutputsCapability{Values: make(map[string]string)}
	b.res.Capabilities.Template = resource.TemplateGeneratorFunc(func(r *resource.Resource) ([]resource.GeneratedFile, error) {
		return a.renderModule(tmpl, r)
	})
	return b
}

func (a *App) renderModule(tmpl *templates.Template, r *resource.Resource) ([]resource.GeneratedFile, error) {
	vars := make(map[string]interface{})
	for _, kv := range r.KeyValues(resource.BucketParams) {
		vars[kv.Key] = kv.Value
	}
	rendered, err := a.engine.Render(tmpl, &templates.TemplateContext{
		ResourceName: r.Name,
		Variables:    vars,
	})
	if err != nil {
		return nil, err
	}
	files := make([]resource.GeneratedFile, len(rendered))
	for i, f := range rendered {
		files[i] = resource.GeneratedFile{Path: f.Path, Content: f.Content}
	}
	return files, nil
}
