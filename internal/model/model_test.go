package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlModel = `resources:
  - name: cache
    type: container
    image: redis:7
    endpoints:
      - name: tcp
        targetPort: 6379
  - name: api
    type: project
    path: api/api.csproj
    env:
      LOG_LEVEL: debug
      WORKERS: 4
    references:
      - cache
      - resource: worker
        endpoints: [http]
      - resource: db
        connectionName: primary
        optional: true
`

const tomlModel = `
[[resources]]
name = "cache"
type = "container"
image = "redis:7"

  [[resources.endpoints]]
  name = "tcp"
  targetPort = 6379

[[resources]]
name = "api"
type = "project"
path = "api/api.csproj"
references = ["cache", { resource = "worker", endpoints = ["http"] }, { resource = "db", connectionName = "primary", optional = true }]

  [resources.env]
  LOG_LEVEL = "debug"
  WORKERS = 4
`

func assertModel(t *testing.T, f *File) {
	t.Helper()
	require.Len(t, f.Resources, 2)

	cache := f.Resources[0]
	assert.Equal(t, "cache", cache.Name)
	assert.Equal(t, "container", cache.Type)
	assert.Equal(t, "redis:7", cache.Image)
	require.Len(t, cache.Endpoints, 1)
	assert.Equal(t, EndpointSpec{Name: "tcp", TargetPort: 6379}, cache.Endpoints[0])

	api := f.Resources[1]
	assert.Equal(t, "api/api.csproj", api.Path)
	assert.Equal(t, "debug", api.Env["LOG_LEVEL"])
	assert.EqualValues(t, 4, api.Env["WORKERS"])
	assert.Equal(t, []ReferenceSpec{
		{Resource: "cache"},
		{Resource: "worker", Endpoints: []string{"http"}},
		{Resource: "db", ConnectionName: "primary", Optional: true},
	}, api.References)
}

func TestParseYAML(t *testing.T) {
	f, err := Parse([]byte(yamlModel), FormatYAML)
	require.NoError(t, err)
	assertModel(t, f)
}

func TestParseTOML(t *testing.T) {
	f, err := Parse([]byte(tomlModel), FormatTOML)
	require.NoError(t, err)
	assertModel(t, f)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	t.Run("yaml", func(t *testing.T) {
		_, err := Parse([]byte("resources:\n  - name: cache\n    type: container\n    imag: redis\n"), FormatYAML)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "imag")
	})

	t.Run("toml", func(t *testing.T) {
		_, err := Parse([]byte("[[resources]]\nname = \"cache\"\ntype = \"container\"\nimag = \"redis\"\n"), FormatTOML)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown keys in TOML")
		assert.Contains(t, err.Error(), "imag")
	})

	t.Run("toml reference key", func(t *testing.T) {
		_, err := Parse([]byte("[[resources]]\nname = \"api\"\ntype = \"project\"\nreferences = [{ resource = \"db\", alias = \"x\" }]\n"), FormatTOML)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown reference key "alias"`)
	})

	t.Run("unsupported format", func(t *testing.T) {
		_, err := Parse([]byte("{}"), Format("json"))
		assert.Error(t, err)
	})
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{"apphost.yaml", FormatYAML, false},
		{"deploy/App.YML", FormatYAML, false},
		{"apphost.toml", FormatTOML, false},
		{"apphost.json", "", true},
		{"apphost", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := FormatFromPath(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "apphost.toml")
	require.NoError(t, os.WriteFile(path, []byte(tomlModel), 0644))

	f, err := Load(path)
	require.NoError(t, err)
	assertModel(t, f)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read app model")

	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("resources: [\n"), 0644))
	_, err = Load(broken)
	require.Error(t, err)
	assert.Contains(t, err.Error(), broken)
}
