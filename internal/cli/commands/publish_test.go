package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const storageApp = `resources:
  - name: storage
    type: bicep
    template: storage
  - name: blobs
    type: value
    connectionString: "{storage.outputs.blobEndpoint}"
  - name: web
    type: project
    path: web/web.csproj
    endpoints:
      - name: http
        port: 8080
    external: true
    references:
      - blobs
`

type manifestFile struct {
	Schema    string                    `json:"$schema"`
	Resources map[string]map[string]any `json:"resources"`
}

func readManifest(t *testing.T, path string) manifestFile {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var m manifestFile
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func TestNewPublishCommand(t *testing.T) {
	cmd := NewPublishCommand()

	assert.Equal(t, "publish", cmd.Use)
	for _, flag := range []string{"json", "dry-run", "output-path", "mode", "app", "watch"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "expected --%s flag", flag)
	}
	assert.NotNil(t, cmd.Flags().ShorthandLookup("o"))
	assert.NotNil(t, cmd.Flags().ShorthandLookup("f"))
}

func TestRunPublish(t *testing.T) {
	dir := writeApp(t, "apphost.yaml", storageApp)

	stdout, stderr, err := runCLI(t, dir, "publish", "-o", "out")
	require.NoError(t, err, stderr)

	assert.Contains(t, stdout, "Published 3 resource(s)")
	assert.Contains(t, stdout, "storage.module.bicep")
	assert.FileExists(t, filepath.Join(dir, "out", "storage.module.bicep"))

	m := readManifest(t, filepath.Join(dir, "out", "manifest.json"))
	assert.NotEmpty(t, m.Schema)
	require.Contains(t, m.Resources, "storage")
	require.Contains(t, m.Resources, "blobs")
	require.Contains(t, m.Resources, "web")

	assert.Equal(t, "azure.bicep.v0", m.Resources["storage"]["type"])
	assert.Equal(t, "storage.module.bicep", m.Resources["storage"]["path"])
	assert.Equal(t, "{storage.outputs.blobEndpoint}", m.Resources["blobs"]["connectionString"])

	web := m.Resources["web"]
	assert.Equal(t, "project.v0", web["type"])
	env, ok := web["env"].(map[string]any)
	require.True(t, ok, "web should have an env block")
	assert.Equal(t, "{storage.outputs.blobEndpoint}", env["ConnectionStrings__blobs"])

	bindings, ok := web["bindings"].(map[string]any)
	require.True(t, ok, "web should have bindings")
	http, ok := bindings["http"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "http", http["scheme"])
	assert.Equal(t, true, http["external"])
	assert.Equal(t, float64(8080), http["port"])
}

func TestRunPublish_TOML(t *testing.T) {
	dir := writeApp(t, "apphost.toml", `[[resources]]
name = "cache"
type = "container"
image = "redis:7"

[[resources.endpoints]]
name = "tcp"
targetPort = 6379

[[resources]]
name = "api"
type = "container"
image = "example/api:1.0"
references = ["cache"]
`)

	_, stderr, err := runCLI(t, dir, "publish", "-f", "apphost.toml")
	require.NoError(t, err, stderr)

	m := readManifest(t, filepath.Join(dir, "manifest.json"))
	env, ok := m.Resources["api"]["env"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "{cache.bindings.tcp.url}", env["services__cache__tcp__0"])
}

func TestRunPublish_DryRun(t *testing.T) {
	dir := writeApp(t, "apphost.yaml", storageApp)

	stdout, stderr, err := runCLI(t, dir, "publish", "--dry-run", "-o", "out")
	require.NoError(t, err, stderr)

	assert.Contains(t, stdout, "3 resource(s) valid, nothing written")
	assert.NoDirExists(t, filepath.Join(dir, "out"))
}

func TestRunPublish_ValidationFailure(t *testing.T) {
	dir := writeApp(t, "apphost.yaml", `resources:
  - name: storage
    type: bicep
    template: storage
    params:
      sku: Standard_LRS
  - name: cache
    type: container
    image: ""
`)

	_, stderr, err := runCLI(t, dir, "publish")
	require.Error(t, err)

	assert.Contains(t, stderr, "VALIDATION FAILED")
	assert.Contains(t, stderr, "2 problem(s)")
	assert.Contains(t, stderr, "AH206")
	assert.Contains(t, stderr, "AH201")
	assert.Contains(t, stderr, "No manifest was written.")
	assert.NoFileExists(t, filepath.Join(dir, "manifest.json"))
	assert.NoFileExists(t, filepath.Join(dir, "storage.module.bicep"))
}

func TestRunPublish_ValidationFailureJSON(t *testing.T) {
	dir := writeApp(t, "apphost.yaml", `resources:
  - name: cache
    type: container
    image: ""
`)

	_, stderr, err := runCLI(t, dir, "publish", "--json")
	require.Error(t, err)

	var payload struct {
		Error      string `json:"error"`
		Violations []struct {
			Resource string `json:"resource"`
			Field    string `json:"field"`
			Code     string `json:"code"`
		} `json:"violations"`
	}
	require.NoError(t, json.Unmarshal([]byte(stderr), &payload), stderr)
	assert.Equal(t, "validation_failed", payload.Error)
	require.Len(t, payload.Violations, 1)
	assert.Equal(t, "cache", payload.Violations[0].Resource)
	assert.Equal(t, "image", payload.Violations[0].Field)
	assert.Equal(t, "AH201", payload.Violations[0].Code)
}

func TestRunPublish_UnknownReference(t *testing.T) {
	dir := writeApp(t, "apphost.yaml", `resources:
  - name: storage
    type: bicep
    template: storage
  - name: web
    type: project
    path: web/web.csproj
    references:
      - strage
`)

	_, stderr, err := runCLI(t, dir, "publish")
	require.Error(t, err)

	assert.Contains(t, stderr, "RESOURCE NOT FOUND")
	assert.Contains(t, stderr, "Cannot find resource 'strage'.")
	assert.Contains(t, stderr, "Did you mean: storage?")
}

func TestRunPublish_UnknownKindJSON(t *testing.T) {
	dir := writeApp(t, "apphost.yaml", `resources:
  - name: cache
    type: contaner
    image: redis:7
`)

	_, stderr, err := runCLI(t, dir, "publish", "--json")
	require.Error(t, err)

	var payload errorJSON
	require.NoError(t, json.Unmarshal([]byte(stderr), &payload), stderr)
	assert.Equal(t, "publish_failed", payload.Error)
	assert.Equal(t, "AH202", payload.Code)
	assert.Contains(t, payload.Message, "unknown kind 'contaner'")
}

func TestRunPublish_UnknownKindSuggestion(t *testing.T) {
	dir := writeApp(t, "apphost.yaml", `resources:
  - name: cache
    type: contaner
    image: redis:7
`)

	_, stderr, err := runCLI(t, dir, "publish")
	require.Error(t, err)

	assert.Contains(t, stderr, "UNKNOWN RESOURCE KIND")
	assert.Contains(t, stderr, "container")
}

func TestRunPublish_LocalModeUnsupported(t *testing.T) {
	dir := writeApp(t, "apphost.yaml", storageApp)

	_, stderr, err := runCLI(t, dir, "publish", "--mode", "local")
	require.Error(t, err)

	assert.Contains(t, stderr, "not supported in local mode")
	assert.NoFileExists(t, filepath.Join(dir, "manifest.json"))
}

func TestRunPublish_InvalidMode(t *testing.T) {
	dir := writeApp(t, "apphost.yaml", storageApp)

	_, stderr, err := runCLI(t, dir, "publish", "--mode", "staging")
	require.Error(t, err)
	assert.Contains(t, stderr, "CONFIGURATION ERROR")
}

func TestRunPublish_MissingAppFile(t *testing.T) {
	_, stderr, err := runCLI(t, t.TempDir(), "publish")
	require.Error(t, err)
	assert.Contains(t, stderr, "PUBLISH FAILED")
	assert.Contains(t, stderr, "apphost.yaml")
}

func TestRunPublish_SettingsFile(t *testing.T) {
	dir := writeApp(t, "apphost.yaml", storageApp)
	settings := "publish:\n  output_path: deploy\n  manifest_name: aspire-manifest.json\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".apphost.yaml"), []byte(settings), 0644))

	_, stderr, err := runCLI(t, dir, "publish")
	require.NoError(t, err, stderr)

	assert.FileExists(t, filepath.Join(dir, "deploy", "aspire-manifest.json"))
}

func TestRunPublish_Watch(t *testing.T) {
	dir := writeApp(t, "apphost.yaml", storageApp)

	oldWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	color.NoColor = true
	t.Cleanup(func() {
		_ = os.Chdir(oldWd)
		color.NoColor = false
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"publish", "--watch", "-o", "out"})
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	manifestPath := filepath.Join(dir, "out", "manifest.json")
	hasResource := func(name string) bool {
		data, err := os.ReadFile(manifestPath)
		if err != nil {
			return false
		}
		var m manifestFile
		if json.Unmarshal(data, &m) != nil {
			return false
		}
		_, ok := m.Resources[name]
		return ok
	}
	require.Eventually(t, func() bool { return hasResource("web") }, 5*time.Second, 20*time.Millisecond)

	updated := storageApp + "  - name: cache\n    type: container\n    image: redis:7\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "apphost.yaml"), []byte(updated), 0644))
	require.Eventually(t, func() bool { return hasResource("cache") }, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err, stderr.String())
	case <-time.After(5 * time.Second):
		t.Fatal("publish --watch did not stop after cancellation")
	}

	assert.Contains(t, stdout.String(), "Watching")
	assert.Contains(t, stdout.String(), "Published 4 resource(s)")
}

func TestRunPublish_UnknownTemplate(t *testing.T) {
	dir := writeApp(t, "apphost.yaml", `resources:
  - name: vault
    type: bicep
    template: keyvalt
`)

	_, stderr, err := runCLI(t, dir, "publish")
	require.Error(t, err)

	assert.Contains(t, stderr, "UNKNOWN TEMPLATE")
	assert.Contains(t, stderr, "Did you mean: keyvault?")
	assert.Contains(t, stderr, "Available: keyvault, storage")
	assert.NoFileExists(t, filepath.Join(dir, "manifest.json"))
}

func TestRunPublish_WarnsAboutCycles(t *testing.T) {
	dir := writeApp(t, "apphost.yaml", `resources:
  - name: api
    type: container
    image: api:1
    endpoints:
      - name: http
        targetPort: 8080
    references:
      - worker
  - name: worker
    type: container
    image: worker:1
    endpoints:
      - name: http
        targetPort: 8081
    references:
      - api
`)

	_, stderr, err := runCLI(t, dir, "publish")
	require.NoError(t, err, stderr)

	assert.Contains(t, stderr, "Reference cycle: api → worker → api")
	assert.FileExists(t, filepath.Join(dir, "manifest.json"))
}
