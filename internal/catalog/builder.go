package catalog

import (
	"fmt"

	"github.com/conduit-lang/apphost/internal/environment"
	"github.com/conduit-lang/apphost/internal/resource"
)

// Builder configures one resource. Every method returns the builder; failures are recorded on
// the owning App and reported by App.Err.
type Builder struct {
	app *App
	res *resource.Resource
}

// Resource returns the resource being built
func (b *Builder) Resource() *resource.Resource {
	return b.res
}

// Name returns the resource name
func (b *Builder) Name() string {
	return b.res.Name
}

// WithEnvironment sets an environment variable to a literal or a resource.ValueProvider.
func (b *Builder) WithEnvironment(key string, value any) *Builder {
	environment.Set(b.res, key, value)
	return b
}

// WithEnvironmentCallback adds a deferred environment callback.
func (b *Builder) WithEnvironmentCallback(label string, fn resource.EnvironmentFunc) *Builder {
	environment.AddCallback(b.res, label, fn)
	return b
}

// WithArgs appends command-line arguments.
func (b *Builder) WithArgs(values ...any) *Builder {
	b.res.AddArgs(resource.BucketArgs, values...)
	return b
}

// WithField sets a declared manifest field.
func (b *Builder) WithField(key string, value any) *Builder {
	b.res.SetField(resource.BucketFields, key, value)
	return b
}

// WithParameter sets a module parameter.
func (b *Builder) WithParameter(key string, value any) *Builder {
	b.res.SetField(resource.BucketParams, key, value)
	return b
}

// WithConnectionString sets the connection string dependents receive, replacing any earlier
// one. format and providers are as in resource.NewReferenceExpression; a malformed format is
// recorded as AH110.
func (b *Builder) WithConnectionString(format string, providers ...any) *Builder {
	expr := resource.NewReferenceExpression(format, providers...)
	if err := expr.Validate(); err != nil {
		b.app.fail(&resource.ConfigurationError{
			ErrCode:  resource.CodeInvalidExpression,
			Resource: b.res.Name,
			Message:  "connection string: " + err.Error(),
		})
		return b
	}
	b.res.Capabilities.ConnectionString = &resource.ConnectionStringCapability{
		Expression: func() *resource.ReferenceExpression { return expr },
	}
	return b
}

// WithEndpoint declares an endpoint.
func (b *Builder) WithEndpoint(ep *resource.Endpoint) *Builder {
	b.app.fail(b.res.AddEndpoint(ep))
	return b
}

// WithHTTPEndpoint declares the "http" endpoint. A zero port leaves it unset.
func (b *Builder) WithHTTPEndpoint(port, targetPort int) *Builder {
	return b.WithEndpoint(newEndpoint("http", "http", port, targetPort))
}

// WithHTTPSEndpoint declares the "https" endpoint. A zero port leaves it unset.
func (b *Builder) WithHTTPSEndpoint(port, targetPort int) *Builder {
	return b.WithEndpoint(newEndpoint("https", "https", port, targetPort))
}

func newEndpoint(name, scheme string, port, targetPort int) *resource.Endpoint {
	ep := &resource.Endpoint{Name: name, Scheme: scheme, Protocol: "tcp", Proxied: true}
	if port != 0 {
		ep.Port = &port
	}
	if targetPort != 0 {
		ep.TargetPort = &targetPort
	}
	return ep
}

// MarkExternalHTTPEndpoints exposes every http and https endpoint outside the application.
func (b *Builder) MarkExternalHTTPEndpoints() *Builder {
	b.res.MarkExternalHTTPEndpoints()
	return b
}

// WithReference gives this resource target's connection string when target has one, and the
// URLs of all of target's endpoints otherwise.
func (b *Builder) WithReference(target *Builder) *Builder {
	if target.res.HasConnectionString() {
		b.app.fail(environment.ReferenceConnectionString(b.res, target.res))
		return b
	}
	environment.ReferenceAllEndpoints(b.res, target.res)
	return b
}

// WithOptionalReference gives this resource target's connection string, resolving to an empty
// string when target has none to offer.
func (b *Builder) WithOptionalReference(target *Builder) *Builder {
	b.app.fail(environment.ReferenceConnectionString(b.res, target.res, environment.Optional()))
	return b
}

// WithNamedReference gives this resource target's connection string under
// ConnectionStrings__{connectionName}.
func (b *Builder) WithNamedReference(target *Builder, connectionName string) *Builder {
	b.app.fail(environment.ReferenceConnectionString(b.res, target.res, environment.WithConnectionName(connectionName)))
	return b
}

// WithEndpointReference gives this resource the URLs of the named endpoints of target.
func (b *Builder) WithEndpointReference(target *Builder, names ...string) *Builder {
	environment.ReferenceEndpoints(b.res, target.res, names...)
	return b
}

// Endpoint returns a reference to one of this resource's endpoints.
func (b *Builder) Endpoint(name string) resource.EndpointReference {
	return b.res.EndpointReference(name)
}

// ConnectionString returns a provider for this resource's connection string.
func (b *Builder) ConnectionString() resource.ConnectionStringReference {
	if !b.res.HasConnectionString() {
		b.app.fail(&resource.ConfigurationError{
			ErrCode:  resource.CodeMissingCapability,
			Resource: b.res.Name,
			Message:  "resource does not expose a connection string",
		})
	}
	return resource.ConnectionStringReference{Target: b.res}
}

// Output returns a provider for a module output. The module template must declare it.
func (b *Builder) Output(name string) resource.OutputReference {
	tmpl, ok := b.app.modules[b.res]
	if !ok {
		b.app.fail(&resource.ConfigurationError{
			ErrCode:  resource.CodeMissingCapability,
			Resource: b.res.Name,
			Message:  "resource does not produce outputs",
		})
	} else if !tmpl.HasOutput(name) {
		b.app.fail(&resource.ConfigurationError{
			ErrCode:  resource.CodeUnknownOutput,
			Resource: b.res.Name,
			Message:  fmt.Sprintf("template '%s' does not declare output '%s'", tmpl.Name, name),
		})
	}
	return resource.OutputReference{Resource: b.res, Name: name}
}

// WithOutputValue records the deployed value of a module output for local runs.
func (b *Builder) WithOutputValue(name, value string) *Builder {
	outputs := b.res.Capabilities.Outputs
	if outputs == nil {
		b.app.fail(&resource.ConfigurationError{
			ErrCode:  resource.CodeMissingCapability,
			Resource: b.res.Name,
			Message:  "resource does not produce outputs",
		})
		return b
	}
	outputs.Values[name] = value
	return b
}

// Value returns a provider for a parameter's value.
func (b *Builder) Value() resource.ParameterReference {
	if b.res.Capabilities.Parameter == nil {
		b.app.fail(&resource.ConfigurationError{
			ErrCode:  resource.CodeMissingCapability,
			Resource: b.res.Name,
			Message:  "resource is not a parameter",
		})
	}
	return resource.ParameterReference{Resource: b.res}
}

// WithValue supplies a parameter's value for local runs.
func (b *Builder) WithValue(value string) *Builder {
	p := b.res.Capabilities.Parameter
	if p == nil {
		b.app.fail(&resource.ConfigurationError{
			ErrCode:  resource.CodeMissingCapability,
			Resource: b.res.Name,
			Message:  "resource is not a parameter",
		})
		return b
	}
	p.Value = value
	return b
}

// WithDockerfile replaces the project with a dockerfile.v0 resource of the same name right
// before publishing. The replacement keeps every annotation of the project; its path field
// becomes the Dockerfile path.
func (b *Builder) WithDockerfile(contextDir, dockerfile string, buildArgs map[string]any) *Builder {
	b.res.BeforePublish(func(reg *resource.Registry, r *resource.Resource) error {
		df := resource.New(TypeDockerfile, r.Name)
		if err := reg.Substitute(r, df); err != nil {
			return err
		}
		df.SetField(resource.BucketFields, "path", dockerfile)
		df.SetField(resource.BucketFields, "context", contextDir)
		if len(buildArgs) > 0 {
			df.SetField(resource.BucketFields, "buildArgs", buildArgs)
		}
		b.res = df
		return nil
	})
	return b
}
