package manifest

import (
	"fmt"
	"strings"

	"github.com/conduit-lang/apphost/internal/resource"
)

// Schema lists the structural requirements of one resource type.
type Schema struct {
	Type string
	// Required names fields of the resource.BucketFields bucket that must be present and,
	// for strings, non-empty.
	Required []string
	// ConnectionString requires a non-empty connection-string expression.
	ConnectionString bool
}

// RuleFunc is an additional check run against every resource.
type RuleFunc func(reg *resource.Registry, r *resource.Resource, errs *ValidationErrors)

// Rules is the set of checks Validate runs. The built-in checks (identity, endpoints,
// references) always run; schemas and extra rules are contributed by resource kinds.
type Rules struct {
	schemas map[string]Schema
	extra   []RuleFunc
}

// NewRules creates a rule set with the given schemas
func NewRules(schemas ...Schema) *Rules {
	rules := &Rules{schemas: make(map[string]Schema)}
	for _, s := range schemas {
		rules.AddSchema(s)
	}
	return rules
}

// AddSchema registers or replaces the schema of a type
func (rs *Rules) AddSchema(s Schema) {
	rs.schemas[s.Type] = s
}

// AddRule appends a custom rule
func (rs *Rules) AddRule(fn RuleFunc) {
	rs.extra = append(rs.extra, fn)
}

// Schema returns the schema registered for a type
func (rs *Rules) Schema(typ string) (Schema, bool) {
	s, ok := rs.schemas[typ]
	return s, ok
}

func (rs *Rules) check(reg *resource.Registry, r *resource.Resource, errs *ValidationErrors) {
	checkIdentity(r, errs)
	checkEndpoints(r, errs)
	checkReferences(reg, r, errs)

	if s, ok := rs.schemas[r.Type]; ok {
		checkSchema(s, r, errs)
	}
	for _, fn := range rs.extra {
		fn(reg, r, errs)
	}
}

func checkIdentity(r *resource.Resource, errs *ValidationErrors) {
	if strings.TrimSpace(r.Type) == "" {
		errs.Add(r.Name, "type", resource.CodeUnknownType, "resource type is required")
	}
}

func checkEndpoints(r *resource.Resource, errs *ValidationErrors) {
	for _, ep := range r.Endpoints() {
		if strings.TrimSpace(ep.Scheme) == "" {
			errs.Add(r.Name, "bindings."+ep.Name, resource.CodeInvalidEndpoint, "endpoint scheme is required")
		}
		if ep.Port != nil && (*ep.Port <= 0 || *ep.Port > 65535) {
			errs.Add(r.Name, "bindings."+ep.Name, resource.CodeInvalidEndpoint, fmt.Sprintf("port %d is out of range", *ep.Port))
		}
		if ep.TargetPort != nil && (*ep.TargetPort <= 0 || *ep.TargetPort > 65535) {
			errs.Add(r.Name, "bindings."+ep.Name, resource.CodeInvalidEndpoint, fmt.Sprintf("target port %d is out of range", *ep.TargetPort))
		}
	}
}

// checkReferences reports endpoint references whose target is no longer in the registry.
func checkReferences(reg *resource.Registry, r *resource.Resource, errs *ValidationErrors) {
	for _, a := range r.Annotations() {
		ref, ok := a.(*resource.EndpointReferenceAnnotation)
		if !ok {
			continue
		}
		if _, exists := reg.Get(ref.Target.Name); !exists {
			errs.Add(r.Name, "env", resource.CodeDanglingReference,
				fmt.Sprintf("references endpoints of '%s', which is not part of the application", ref.Target.Name))
		}
	}
}

func checkSchema(s Schema, r *resource.Resource, errs *ValidationErrors) {
	for _, field := range s.Required {
		v, ok := r.Field(resource.BucketFields, field)
		if !ok || v == nil {
			errs.Add(r.Name, field, resource.CodeMissingField, fmt.Sprintf("required field '%s' is missing", field))
			continue
		}
		if str, isString := v.(string); isString && strings.TrimSpace(str) == "" {
			errs.Add(r.Name, field, resource.CodeEmptyField, fmt.Sprintf("required field '%s' must not be empty", field))
		}
	}
	if s.ConnectionString && r.ConnectionStringExpression().IsEmpty() {
		errs.Add(r.Name, "connectionString", resource.CodeMissingConnection, "a connection string is required")
	}
}
