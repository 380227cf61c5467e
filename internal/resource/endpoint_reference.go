package resource

import (
	"fmt"
	"strconv"
)

// EndpointProperty selects one facet of an endpoint.
type EndpointProperty string

const (
	PropertyURL        EndpointProperty = "url"
	PropertyHost       EndpointProperty = "host"
	PropertyPort       EndpointProperty = "port"
	PropertyScheme     EndpointProperty = "scheme"
	PropertyTargetPort EndpointProperty = "targetPort"
)

// ParseEndpointProperty maps a manifest property name to an EndpointProperty.
func ParseEndpointProperty(s string) (EndpointProperty, bool) {
	switch EndpointProperty(s) {
	case PropertyURL, PropertyHost, PropertyPort, PropertyScheme, PropertyTargetPort:
		return EndpointProperty(s), true
	}
	return "", false
}

// EndpointReference points at a named endpoint of Owner. It resolves against whatever
// endpoint the owner declares under that name at resolution time. As a ValueProvider it
// renders the endpoint URL.
type EndpointReference struct {
	Owner        *Resource
	EndpointName string
}

// Endpoint returns the owner's currently declared endpoint.
func (e EndpointReference) Endpoint() (*Endpoint, bool) {
	if e.Owner == nil {
		return nil, false
	}
	return e.Owner.Endpoint(e.EndpointName)
}

// Property returns a provider for a single property of the endpoint.
func (e EndpointReference) Property(p EndpointProperty) EndpointReferenceExpression {
	return EndpointReferenceExpression{Ref: e, Property: p}
}

func (e EndpointReference) Value() (string, error) { return valueOf(e) }
func (e EndpointReference) Expression() string { return expressionOf(e) }

func (e EndpointReference) expand(rd *Renderer) (string, error) {
	return e.Property(PropertyURL).expand(rd)
}

// EndpointReferenceExpression is one property of an endpoint reference.
type EndpointReferenceExpression struct {
	Ref      EndpointReference
	Property EndpointProperty
}

func (x EndpointReferenceExpression) Value() (string, error) { return valueOf(x) }
func (x EndpointReferenceExpression) Expression() string { return expressionOf(x) }

func (x EndpointReferenceExpression) expand(rd *Renderer) (string, error) {
	owner := x.Ref.Owner
	if owner == nil {
		return "", resolutionf(CodeInconsistentReference, "", "endpoint reference '%s' has no owner", x.Ref.EndpointName)
	}
	rd.depend(owner)
	if rd.Mode() == ModePublish {
		return fmt.Sprintf("{%s.bindings.%s.%s}", owner.Name, x.Ref.EndpointName, x.Property), nil
	}

	ep, ok := x.Ref.Endpoint()
	if !ok {
		return "", resolutionf(CodeInconsistentReference, owner.Name,
			"endpoint '%s' is not declared on resource '%s'", x.Ref.EndpointName, owner.Name)
	}
	if ep.Allocated == nil {
		return "", resolutionf(CodeEndpointNotAllocated, owner.Name,
			"endpoint '%s' for resource '%s' is not allocated", ep.Name, owner.Name)
	}

	switch x.Property {
	case PropertyURL:
		return fmt.Sprintf("%s://%s:%d", ep.Scheme, ep.Allocated.Host, ep.Allocated.Port), nil
	case PropertyHost:
		return ep.Allocated.Host, nil
	case PropertyPort:
		return strconv.Itoa(ep.Allocated.Port), nil
	case PropertyScheme:
		return ep.Scheme, nil
	case PropertyTargetPort:
		if ep.TargetPort != nil {
			return strconv.Itoa(*ep.TargetPort), nil
		}
		return strconv.Itoa(ep.Allocated.Port), nil
	default:
		return "", resolutionf(CodeInconsistentReference, owner.Name, "unknown endpoint property '%s'", x.Property)
	}
}
