// Package resource defines the application model: resources, their annotations, the values
// that are only known at resolution time, and the ordered registry that holds them.
//
// # Overview
//
// A Resource is a named, typed configuration unit. Everything that is decided after the
// resource is created is recorded as an Annotation:
//
//   - *EnvironmentCallback and *Environment contribute environment variables
//   - *Endpoint declares a network listening point
//   - *EndpointReferenceAnnotation records consumption of another resource's endpoints
//   - *KeyValue and *Args carry resource-specific manifest fields
//
// Optional behaviors (connection string, parameter value, module outputs, file templates)
// are explicit Capabilities records rather than interfaces a kind must implement.
//
// # Deferred values
//
// A ValueProvider has two renderings: Value, the concrete runtime value, and Expression, the
// symbolic manifest form. A Renderer evaluates providers for one pass in one mode, so the two
// renderings are never mixed:
//
//	rd := resource.NewRenderer(resource.ModePublish)
//	s, err := rd.Render(resource.ConnectionStringReference{Target: db})
//	// s == "{db-server.outputs.host}:5432"
//	deps := rd.Dependencies() // [db, db-server]
//
// # Registry
//
// The Registry preserves first-insertion order, rejects duplicate names and supports
// Substitute, which replaces one resource by several in the same position.
package resource
