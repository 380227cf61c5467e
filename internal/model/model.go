package model

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Format identifies the encoding of an app model file.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("unsupported app model file %s: expected .yaml, .yml or .toml", path)
	}
}

// File is a declarative description of an application.
type File struct {
	Resources []ResourceSpec `yaml:"resources" toml:"resources"`
}

// ResourceSpec describes one resource. Which fields apply depends on Type.
type ResourceSpec struct {
	Name string `yaml:"name" toml:"name"`
	Type string `yaml:"type" toml:"type"`

	Image            string `yaml:"image,omitempty" toml:"image,omitempty"`
	Command          string `yaml:"command,omitempty" toml:"command,omitempty"`
	WorkingDirectory string `yaml:"workingDirectory,omitempty" toml:"workingDirectory,omitempty"`
	Path             string `yaml:"path,omitempty" toml:"path,omitempty"`
	Context          string `yaml:"context,omitempty" toml:"context,omitempty"`
	Template         string `yaml:"template,omitempty" toml:"template,omitempty"`

	// ConnectionString is the connection string of a value resource; it may contain
	// placeholders.
	ConnectionString string `yaml:"connectionString,omitempty" toml:"connectionString,omitempty"`
	Secret           bool   `yaml:"secret,omitempty" toml:"secret,omitempty"`
	// Value is a parameter's value for local runs.
	Value string `yaml:"value,omitempty" toml:"value,omitempty"`

	Args      []any             `yaml:"args,omitempty" toml:"args,omitempty"`
	Env       map[string]any    `yaml:"env,omitempty" toml:"env,omitempty"`
	Params    map[string]any    `yaml:"params,omitempty" toml:"params,omitempty"`
	BuildArgs map[string]any    `yaml:"buildArgs,omitempty" toml:"buildArgs,omitempty"`
	Outputs   map[string]string `yaml:"outputs,omitempty" toml:"outputs,omitempty"`

	Endpoints  []EndpointSpec  `yaml:"endpoints,omitempty" toml:"endpoints,omitempty"`
	External   bool            `yaml:"external,omitempty" toml:"external,omitempty"`
	References []ReferenceSpec `yaml:"references,omitempty" toml:"references,omitempty"`

	Dockerfile *DockerfileSpec `yaml:"dockerfile,omitempty" toml:"dockerfile,omitempty"`
}

// EndpointSpec describes an endpoint.
type EndpointSpec struct {
	Name       string `yaml:"name" toml:"name"`
	Scheme     string `yaml:"scheme,omitempty" toml:"scheme,omitempty"`
	Protocol   string `yaml:"protocol,omitempty" toml:"protocol,omitempty"`
	Transport  string `yaml:"transport,omitempty" toml:"transport,omitempty"`
	Port       int    `yaml:"port,omitempty" toml:"port,omitempty"`
	TargetPort int    `yaml:"targetPort,omitempty" toml:"targetPort,omitempty"`
	External   bool   `yaml:"external,omitempty" toml:"external,omitempty"`
}

// ReferenceSpec makes the owning resource depend on another one. A bare string names the
// resource and takes the default reference.
type ReferenceSpec struct {
	Resource       string   `yaml:"resource" toml:"resource"`
	Endpoints      []string `yaml:"endpoints,omitempty" toml:"endpoints,omitempty"`
	ConnectionName string   `yaml:"connectionName,omitempty" toml:"connectionName,omitempty"`
	Optional       bool     `yaml:"optional,omitempty" toml:"optional,omitempty"`
}

// DockerfileSpec publishes a project as a Dockerfile build.
type DockerfileSpec struct {
	Path      string         `yaml:"path" toml:"path"`
	Context   string         `yaml:"context" toml:"context"`
	BuildArgs map[string]any `yaml:"buildArgs,omitempty" toml:"buildArgs,omitempty"`
}

// UnmarshalYAML accepts either a resource name or a mapping.
func (r *ReferenceSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		r.Resource = node.Value
		return nil
	}
	type plain ReferenceSpec
	return node.Decode((*plain)(r))
}

// UnmarshalTOML accepts either a resource name or a table.
func (r *ReferenceSpec) UnmarshalTOML(data any) error {
	switch v := data.(type) {
	case string:
		r.Resource = v
		return nil
	case map[string]any:
		for key, value := range v {
			var ok bool
			switch key {
			case "resource":
				r.Resource, ok = value.(string)
			case "connectionName":
				r.ConnectionName, ok = value.(string)
			case "optional":
				r.Optional, ok = value.(bool)
			case "endpoints":
				var items []any
				items, ok = value.([]any)
				for _, item := range items {
					name, isString := item.(string)
					if !isString {
						ok = false
						break
					}
					r.Endpoints = append(r.Endpoints, name)
				}
			default:
				return fmt.Errorf("unknown reference key %q", key)
			}
			if !ok {
				return fmt.Errorf("invalid value for reference key %q", key)
			}
		}
		return nil
	default:
		return fmt.Errorf("reference must be a string or a table, got %T", data)
	}
}

// Load reads an app model file, choosing the decoder from the extension.
func Load(path string) (*File, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read app model: %w", err)
	}
	f, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes an app model. Unknown keys are rejected.
func Parse(data []byte, format Format) (*File, error) {
	var f File
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case FormatTOML:
		md, err := toml.Decode(string(data), &f)
		if err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
		if undecoded := unknownTOMLKeys(md); len(undecoded) > 0 {
			return nil, fmt.Errorf("unknown keys in TOML: %s", strings.Join(undecoded, ", "))
		}
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	return &f, nil
}

// unknownTOMLKeys lists undecoded keys, ignoring the free-form maps and the tables handled by
// ReferenceSpec.UnmarshalTOML.
func unknownTOMLKeys(md toml.MetaData) []string {
	var keys []string
	for _, key := range md.Undecoded() {
		if freeForm(key) {
			continue
		}
		keys = append(keys, key.String())
	}
	return keys
}

func freeForm(key toml.Key) bool {
	for _, part := range key {
		switch part {
		case "env", "params", "buildArgs", "outputs", "references":
			return true
		}
	}
	return false
}
