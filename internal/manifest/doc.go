// Package manifest validates a resource registry and commits it to a deployment manifest.
//
// A Publisher runs the commit state machine once: it fires the before-publish hooks, freezes
// the registry, validates every resource against a Rules set, resolves every resource in
// publish mode and only then writes generated module files and the manifest document. A
// failure at any phase leaves the output directory without a manifest.
//
// Plan performs the same work without writing; the dependency Graph it returns can be
// exported as DOT or Mermaid text.
package manifest
