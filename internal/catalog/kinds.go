package catalog

import (
	"github.com/conduit-lang/apphost/internal/manifest"
)

// Manifest type strings of the built-in resource kinds.
const (
	TypeContainer  = "container.v0"
	TypeExecutable = "executable.v0"
	TypeProject    = "project.v0"
	TypeDockerfile = "dockerfile.v0"
	TypeValue      = "value.v0"
	TypeParameter  = "parameter.v0"
	TypeBicep      = "azure.bicep.v0"
)

// Schemas returns the structural requirements of every built-in kind.
func Schemas() []manifest.Schema {
	return []manifest.Schema{
		{Type: TypeContainer, Required: []string{"image"}},
		{Type: TypeExecutable, Required: []string{"command"}},
		{Type: TypeProject, Required: []string{"path"}},
		{Type: TypeDockerfile, Required: []string{"path", "context"}},
		{Type: TypeValue, ConnectionString: true},
		{Type: TypeParameter, Required: []string{"value"}},
		{Type: TypeBicep, Required: []string{"path"}},
	}
}

// Types lists the built-in type strings.
func Types() []string {
	schemas := Schemas()
	types := make([]string, len(schemas))
	for i, s := range schemas {
		types[i] = s.Type
	}
	return types
}
