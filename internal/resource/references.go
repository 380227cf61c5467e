package resource

import "fmt"

// ConnectionStringReference is the deferred connection string of Target. A non-optional
// reference fails when the connection string turns out to be empty.
type ConnectionStringReference struct {
	Target   *Resource
	Optional bool
}

func (c ConnectionStringReference) Value() (string, error) { return valueOf(c) }

// Expression renders Target's connection-string expression symbolically.
func (c ConnectionStringReference) Expression() string { return expressionOf(c) }

func (c ConnectionStringReference) expand(rd *Renderer) (string, error) {
	target := c.Target
	if target == nil {
		return "", resolutionf(CodeInconsistentReference, "", "connection string reference has no target")
	}
	rd.depend(target)

	if !rd.enter(target) {
		// Re-entering an expansion already in progress stops here.
		if rd.Mode() == ModePublish {
			return fmt.Sprintf("{%s.connectionString}", target.Name), nil
		}
		return "", nil
	}
	defer rd.leave(target)

	expr := target.ConnectionStringExpression()
	value := ""
	if !expr.IsEmpty() {
		s, err := rd.Render(expr)
		if err != nil {
			return "", err
		}
		value = s
	}

	if value == "" && !c.Optional {
		return "", resolutionf(CodeConnectionStringUnavailable, target.Name,
			"connection string for resource '%s' is not available", target.Name)
	}
	return value, nil
}

// OutputReference is a named output of a deployment module, e.g. {storage.outputs.blobEndpoint}.
type OutputReference struct {
	Resource *Resource
	Name     string
}

func (o OutputReference) Value() (string, error) { return valueOf(o) }
func (o OutputReference) Expression() string { return expressionOf(o) }

func (o OutputReference) expand(rd *Renderer) (string, error) {
	if o.Resource == nil {
		return "", resolutionf(CodeInconsistentReference, "", "output reference '%s' has no resource", o.Name)
	}
	rd.depend(o.Resource)
	if rd.Mode() == ModePublish {
		return fmt.Sprintf("{%s.outputs.%s}", o.Resource.Name, o.Name), nil
	}
	outputs := o.Resource.Capabilities.Outputs
	if outputs != nil {
		if v, ok := outputs.Values[o.Name]; ok {
			return v, nil
		}
	}
	return "", resolutionf(CodeOutputUnavailable, o.Resource.Name,
		"output '%s' of resource '%s' is not available", o.Name, o.Resource.Name)
}

// ParameterReference is the value of a parameter resource, e.g. {password.value}.
type ParameterReference struct {
	Resource *Resource
}

func (p ParameterReference) Value() (string, error) { return valueOf(p) }
func (p ParameterReference) Expression() string { return expressionOf(p) }

func (p ParameterReference) expand(rd *Renderer) (string, error) {
	if p.Resource == nil {
		return "", resolutionf(CodeInconsistentReference, "", "parameter reference has no resource")
	}
	rd.depend(p.Resource)
	if rd.Mode() == ModePublish {
		return fmt.Sprintf("{%s.value}", p.Resource.Name), nil
	}
	param := p.Resource.Capabilities.Parameter
	if param == nil || param.Value == "" {
		return "", resolutionf(CodeParameterUnavailable, p.Resource.Name,
			"value for parameter '%s' is not available", p.Resource.Name)
	}
	return param.Value, nil
}
