package environment

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/apphost/internal/logging"
	"github.com/conduit-lang/apphost/internal/resource"
)

func endpoint(r *resource.Resource, name, scheme string, port int) {
	ep := &resource.Endpoint{Name: name, Scheme: scheme}
	if port != 0 {
		ep.Allocated = &resource.AllocatedEndpoint{Host: "localhost", Port: port}
	}
	if err := r.AddEndpoint(ep); err != nil {
		panic(err)
	}
}

func connectionString(r *resource.Resource, format string, providers ...any) {
	expr := resource.NewReferenceExpression(format, providers...)
	r.Capabilities.ConnectionString = &resource.ConnectionStringCapability{
		Expression: func() *resource.ReferenceExpression { return expr },
	}
}

func countAnnotations[T resource.Annotation](r *resource.Resource) int {
	n := 0
	for _, a := range r.Annotations() {
		if _, ok := a.(T); ok {
			n++
		}
	}
	return n
}

func TestReferenceEndpoints(t *testing.T) {
	a := resource.New("project.v0", "A")
	b := resource.New("project.v0", "B")
	endpoint(b, "http", "http", 5000)
	endpoint(b, "grpc", "https", 5001)
	endpoint(b, "metrics", "http", 9090)

	ReferenceEndpoints(a, b, "http")
	ReferenceEndpoints(a, b, "grpc", "HTTP")

	assert.Equal(t, 1, countAnnotations[*resource.EndpointReferenceAnnotation](a))
	assert.Equal(t, 1, countAnnotations[*resource.EnvironmentCallback](a))

	ann, ok := a.EndpointReferenceTo(b)
	require.True(t, ok)
	assert.Equal(t, []string{"http", "grpc"}, ann.EndpointNames())

	res, err := NewResolver(resource.ModePublish, nil).Resolve(a)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"services__B__http__0": "{B.bindings.http.url}",
		"services__B__grpc__0": "{B.bindings.grpc.url}",
	}, res.Env)
	assert.Equal(t, []*resource.Resource{b}, res.Dependencies)

	res, err = NewResolver(resource.ModeRun, nil).Resolve(a)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5000", res.Env["services__B__http__0"])
	assert.Equal(t, "https://localhost:5001", res.Env["services__B__grpc__0"])
}

func TestReferenceAllEndpointsSeesLaterEndpoints(t *testing.T) {
	a := resource.New("project.v0", "A")
	b := resource.New("project.v0", "B")

	ReferenceAllEndpoints(a, b)
	endpoint(b, "http", "http", 0)
	endpoint(b, "admin", "http", 0)

	res, err := NewResolver(resource.ModePublish, nil).Resolve(a)
	require.NoError(t, err)
	assert.Equal(t, []string{"services__B__admin__0", "services__B__http__0"}, res.Keys())
}

func TestReferenceConnectionString(t *testing.T) {
	password := resource.New("parameter.v0", "password")
	password.Capabilities.Parameter = &resource.ParameterCapability{Value: "secret", Secret: true}

	b := resource.New("container.v0", "B")
	endpoint(b, "tcp", "tcp", 5432)
	connectionString(b, "{0}:{1}", b.EndpointReference("tcp").Property(resource.PropertyHost), resource.ParameterReference{Resource: password})

	a := resource.New("project.v0", "A")
	require.NoError(t, ReferenceConnectionString(a, b))

	res, err := NewResolver(resource.ModePublish, nil).Resolve(a)
	require.NoError(t, err)
	assert.Equal(t, "{B.bindings.tcp.host}:{password.value}", res.Env["ConnectionStrings__B"])
	assert.Equal(t, []*resource.Resource{b, password}, res.Dependencies)

	res, err = NewResolver(resource.ModeRun, nil).Resolve(a)
	require.NoError(t, err)
	assert.Equal(t, "localhost:secret", res.Env["ConnectionStrings__B"])
}

func TestReferenceConnectionStringNames(t *testing.T) {
	db := resource.New("container.v0", "db")
	connectionString(db, "Server=db")

	t.Run("connection name", func(t *testing.T) {
		a := resource.New("project.v0", "A")
		require.NoError(t, ReferenceConnectionString(a, db, WithConnectionName("orders")))
		res, err := NewResolver(resource.ModePublish, nil).Resolve(a)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"ConnectionStrings__orders": "Server=db"}, res.Env)
	})

	t.Run("variable override", func(t *testing.T) {
		cache := resource.New("container.v0", "cache")
		connectionString(cache, "redis://cache")
		cache.Capabilities.ConnectionString.EnvironmentVariable = "REDIS_URL"

		a := resource.New("project.v0", "A")
		require.NoError(t, ReferenceConnectionString(a, cache, WithConnectionName("ignored")))
		res, err := NewResolver(resource.ModePublish, nil).Resolve(a)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"REDIS_URL": "redis://cache"}, res.Env)
	})

	t.Run("missing capability", func(t *testing.T) {
		a := resource.New("project.v0", "A")
		err := ReferenceConnectionString(a, resource.New("container.v0", "plain"))
		require.Error(t, err)
		assert.Equal(t, resource.CodeMissingCapability, resource.CodeOf(err))
		assert.True(t, errors.Is(err, resource.ErrConfiguration))
	})

	t.Run("optional empty", func(t *testing.T) {
		empty := resource.New("value.v0", "empty")
		connectionString(empty, "")

		a := resource.New("project.v0", "A")
		require.NoError(t, ReferenceConnectionString(a, empty, Optional()))
		res, err := NewResolver(resource.ModeRun, nil).Resolve(a)
		require.NoError(t, err)
		assert.Equal(t, "", res.Env["ConnectionStrings__empty"])

		b := resource.New("project.v0", "B")
		require.NoError(t, ReferenceConnectionString(b, empty))
		_, err = NewResolver(resource.ModeRun, nil).Resolve(b)
		assert.Equal(t, resource.CodeConnectionStringUnavailable, resource.CodeOf(err))
	})
}

func TestCollectOrder(t *testing.T) {
	r := resource.New("project.v0", "web")
	Set(r, "MODE", "dev")
	AddCallback(r, "override", func(ctx resource.EnvironmentContext) ([]resource.EnvVar, error) {
		prev, ok := ctx.Lookup("MODE")
		if !ok || prev != "dev" {
			return nil, errors.New("earlier value not visible")
		}
		return []resource.EnvVar{{Key: "MODE", Value: "prod"}, {Key: "PREVIOUS", Value: prev}}, nil
	})
	Set(r, "PORT", 8080)

	acc, err := NewResolver(resource.ModePublish, nil).Collect(r)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"MODE": "prod", "PREVIOUS": "dev", "PORT": 8080}, acc)
}

func TestCallbackError(t *testing.T) {
	r := resource.New("project.v0", "web")
	AddCallback(r, "secrets", func(resource.EnvironmentContext) ([]resource.EnvVar, error) {
		return nil, errors.New("vault unreachable")
	})

	_, err := NewResolver(resource.ModePublish, nil).Resolve(r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `environment callback "secrets" on resource 'web'`)
	assert.Contains(t, err.Error(), "vault unreachable")
}

func TestRenderValue(t *testing.T) {
	r := resource.New("project.v0", "web")
	rd := resource.NewRenderer(resource.ModePublish)

	tests := []struct {
		value any
		want  string
	}{
		{"text", "text"},
		{true, "true"},
		{42, "42"},
		{int64(7), "7"},
		{int32(-5), "-5"},
		{uint(9), "9"},
		{uint64(18446744073709551615), "18446744073709551615"},
		{float32(2.5), "2.5"},
		{float64(3), "3"},
		{1.5, "1.5"},
		{resource.Literal("lit"), "lit"},
	}
	for _, tt := range tests {
		got, err := RenderValue(rd, r, "KEY", tt.value)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	for _, bad := range []any{[]int{1}, nil, (*resource.ReferenceExpression)(nil)} {
		_, err := RenderValue(rd, r, "KEY", bad)
		assert.Equal(t, resource.CodeUnsupportedValue, resource.CodeOf(err), "value %#v", bad)
	}
}

func TestResolverLogsCycles(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.NewWriter(&buf, "debug")
	require.NoError(t, err)

	a := resource.New("value.v0", "a")
	b := resource.New("value.v0", "b")
	connectionString(a, "{0}", resource.ConnectionStringReference{Target: b})
	connectionString(b, "b;{0}", resource.ConnectionStringReference{Target: a})

	web := resource.New("project.v0", "web")
	require.NoError(t, ReferenceConnectionString(web, a))

	res, err := NewResolver(resource.ModePublish, logger).Resolve(web)
	require.NoError(t, err)
	assert.Equal(t, "b;{a.connectionString}", res.Env["ConnectionStrings__a"])
	assert.Contains(t, buf.String(), "expansion cycle truncated")
	assert.Contains(t, buf.String(), `"reentered":"a"`)
}
