// Package environment wires resources together through environment variables.
//
// ReferenceConnectionString and ReferenceEndpoints install the deferred callbacks that hand a
// dependent the connection string or endpoint URLs of another resource. A Resolver later runs
// those callbacks in attachment order and renders the accumulated values in a single mode.
package environment
