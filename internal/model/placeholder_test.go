package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterpolate(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		format       string
		placeholders []string
	}{
		{"literal", "redis:7", "redis:7", nil},
		{"whole output", "{storage.outputs.blobEndpoint}", "{0}", []string{"{storage.outputs.blobEndpoint}"}},
		{
			"embedded bindings",
			"Host={cache.bindings.tcp.host};Port={cache.bindings.tcp.port}",
			"Host={0};Port={1}",
			[]string{"{cache.bindings.tcp.host}", "{cache.bindings.tcp.port}"},
		},
		{"endpoint without property", "{api.bindings.http}", "{0}", []string{"{api.bindings.http}"}},
		{"connection string and value", "{db.connectionString};pw={password.value}", "{0};pw={1}", []string{"{db.connectionString}", "{password.value}"}},
		{"escaped braces", "{{storage.outputs.blobEndpoint}}", "{{storage.outputs.blobEndpoint}}", nil},
		{"braces around plain text", "{not a reference}", "{{not a reference}}", nil},
		{"unknown kind", "{web.inputs.value}", "{{web.inputs.value}}", nil},
		{"unclosed brace", "a{b", "a{{b", nil},
		{"stray closing brace", "a}b", "a}}b", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := Interpolate(tt.input)
			require.NoError(t, err)

			assert.Equal(t, tt.format, in.Format)
			assert.Equal(t, len(tt.placeholders) == 0, in.IsLiteral())
			var got []string
			for _, p := range in.Placeholders {
				got = append(got, p.String())
			}
			assert.Equal(t, tt.placeholders, got)
		})
	}
}

func TestInterpolatePlaceholderParts(t *testing.T) {
	in, err := Interpolate("{cache.bindings.tcp.port}")
	require.NoError(t, err)
	require.Len(t, in.Placeholders, 1)

	p := in.Placeholders[0]
	assert.Equal(t, "cache", p.Resource)
	assert.Equal(t, KindBinding, p.Kind)
	assert.Equal(t, []string{"tcp", "port"}, p.Path)
}

func TestInterpolateMalformed(t *testing.T) {
	for _, input := range []string{
		"{storage.outputs}",
		"{storage.outputs.a.b}",
		"{api.bindings}",
		"{api.bindings.http.url.extra}",
		"{db.connectionString.extra}",
		"{password.value.x}",
	} {
		t.Run(input, func(t *testing.T) {
			_, err := Interpolate(input)
			assert.Error(t, err)
		})
	}
}
