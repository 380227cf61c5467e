package environment

import (
	"fmt"

	"github.com/conduit-lang/apphost/internal/resource"
)

// ServiceVariableName returns the variable carrying the URL of target's endpoint, following
// the service discovery convention services__{target}__{endpoint}__0.
func ServiceVariableName(target, endpoint string) string {
	return fmt.Sprintf("services__%s__%s__0", target, endpoint)
}

// ConnectionStringVariableName returns the variable a dependent receives target's connection
// string in: target's override when it has one, otherwise ConnectionStrings__{connectionName}.
// An empty connectionName defaults to target's name.
func ConnectionStringVariableName(target *resource.Resource, connectionName string) string {
	if cs := target.Capabilities.ConnectionString; cs != nil && cs.EnvironmentVariable != "" {
		return cs.EnvironmentVariable
	}
	if connectionName == "" {
		connectionName = target.Name
	}
	return "ConnectionStrings__" + connectionName
}

// Set attaches a literal environment entry. value must be a literal or a ValueProvider; any
// other type is reported when the environment is resolved.
func Set(r *resource.Resource, key string, value any) {
	r.Annotate(&resource.Environment{Key: key, Value: value})
}

// AddCallback attaches a deferred environment callback.
func AddCallback(r *resource.Resource, label string, fn resource.EnvironmentFunc) {
	r.Annotate(&resource.EnvironmentCallback{Label: label, Fn: fn})
}

// ReferenceOption customizes a connection-string reference.
type ReferenceOption func(*referenceOptions)

type referenceOptions struct {
	connectionName string
	optional       bool
}

// WithConnectionName overrides the name used in ConnectionStrings__{name}.
func WithConnectionName(name string) ReferenceOption {
	return func(o *referenceOptions) { o.connectionName = name }
}

// Optional makes an empty connection string resolve to "" instead of failing.
func Optional() ReferenceOption {
	return func(o *referenceOptions) { o.optional = true }
}

// ReferenceConnectionString gives source target's connection string.
func ReferenceConnectionString(source, target *resource.Resource, opts ...ReferenceOption) error {
	if !target.HasConnectionString() {
		return &resource.ConfigurationError{
			ErrCode:  resource.CodeMissingCapability,
			Resource: target.Name,
			Message:  fmt.Sprintf("resource '%s' does not expose a connection string", target.Name),
		}
	}

	var o referenceOptions
	for _, opt := range opts {
		opt(&o)
	}

	key := ConnectionStringVariableName(target, o.connectionName)
	ref := resource.ConnectionStringReference{Target: target, Optional: o.optional}

	AddCallback(source, "connection-string:"+target.Name, func(resource.EnvironmentContext) ([]resource.EnvVar, error) {
		return []resource.EnvVar{{Key: key, Value: ref}}, nil
	})
	return nil
}

// ReferenceEndpoints gives source the URLs of the named endpoints of target.
//
// Every (source, target) pair gets exactly one EndpointReferenceAnnotation and one environment
// callback no matter how often it is referenced; later calls only widen the name set.
func ReferenceEndpoints(source, target *resource.Resource, names ...string) {
	ann := endpointReferenceAnnotation(source, target)
	ann.Request(names...)
}

// ReferenceAllEndpoints gives source the URLs of every endpoint target declares at resolution
// time.
func ReferenceAllEndpoints(source, target *resource.Resource) {
	ann := endpointReferenceAnnotation(source, target)
	ann.UseAllEndpoints = true
}

func endpointReferenceAnnotation(source, target *resource.Resource) *resource.EndpointReferenceAnnotation {
	if ann, ok := source.EndpointReferenceTo(target); ok {
		return ann
	}

	ann := resource.NewEndpointReferenceAnnotation(target)
	source.Annotate(ann)
	AddCallback(source, "endpoints:"+target.Name, func(resource.EnvironmentContext) ([]resource.EnvVar, error) {
		return serviceVariables(ann), nil
	})
	return ann
}

// serviceVariables reads the target's currently declared endpoints and filters them against
// the annotation's requested set.
func serviceVariables(ann *resource.EndpointReferenceAnnotation) []resource.EnvVar {
	var vars []resource.EnvVar
	for _, ep := range ann.Target.Endpoints() {
		if !ann.Includes(ep.Name) {
			continue
		}
		vars = append(vars, resource.EnvVar{
			Key:   ServiceVariableName(ann.Target.Name, ep.Name),
			Value: ann.Target.EndpointReference(ep.Name),
		})
	}
	return vars
}
