// Package model loads a declarative application description from YAML or TOML and builds it
// into a catalog.App.
//
// Strings may reference other resources with placeholders:
//
//	{storage.outputs.blobEndpoint}   module output
//	{api.bindings.http.url}          endpoint property (url, host, port, scheme, targetPort)
//	{db.connectionString}            connection string
//	{password.value}                 parameter value
//
// Placeholders become typed value providers, so they render symbolically in a manifest and
// take part in dependency discovery.
package model
