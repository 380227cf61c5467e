package resource

import (
	"errors"
	"testing"
)

func allocated(r *Resource, name, scheme string, port int) {
	r.AddEndpoint(&Endpoint{
		Name:      name,
		Scheme:    scheme,
		Allocated: &AllocatedEndpoint{Host: "localhost", Port: port},
	})
}

func withConnectionString(r *Resource, format string, providers ...any) {
	expr := NewReferenceExpression(format, providers...)
	r.Capabilities.ConnectionString = &ConnectionStringCapability{
		Expression: func() *ReferenceExpression { return expr },
	}
}

func TestReferenceExpression(t *testing.T) {
	tests := []struct {
		name      string
		format    string
		providers []any
		want      string
		wantErr   bool
	}{
		{"literal", "plain", nil, "plain", false},
		{"positional", "{0}:{1}", []any{"host", 5432}, "host:5432", false},
		{"reordered", "{1}-{0}-{1}", []any{"a", "b"}, "b-a-b", false},
		{"escaped braces", "{{literal}} {0}", []any{"x"}, "{literal} x", false},
		{"out of range", "{1}", []any{"x"}, "", true},
		{"not a number", "{name}", nil, "", true},
		{"unterminated", "{0", []any{"x"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr := NewReferenceExpression(tt.format, tt.providers...)
			got, err := expr.Value()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Value() error = %v; wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Value() = %q; want %q", got, tt.want)
			}
			if err := expr.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v; wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && expr.Expression() != "" {
				t.Errorf("Expression() = %q; want empty for a malformed format", expr.Expression())
			}
		})
	}
}

func TestReferenceExpressionIsEmpty(t *testing.T) {
	var nilExpr *ReferenceExpression
	if !nilExpr.IsEmpty() {
		t.Error("nil expression should be empty")
	}
	if !NewReferenceExpression("").IsEmpty() {
		t.Error("empty format without providers should be empty")
	}
	if NewReferenceExpression("{0}", "x").IsEmpty() {
		t.Error("expression with a provider is not empty")
	}
}

func TestEndpointReference(t *testing.T) {
	api := New("project.v0", "api")
	allocated(api, "http", "http", 5000)
	target := 8080
	api.AddEndpoint(&Endpoint{Name: "grpc", Scheme: "https", TargetPort: &target})

	tests := []struct {
		provider   ValueProvider
		expression string
		value      string
		code       string
	}{
		{api.EndpointReference("http"), "{api.bindings.http.url}", "http://localhost:5000", ""},
		{api.EndpointReference("http").Property(PropertyHost), "{api.bindings.http.host}", "localhost", ""},
		{api.EndpointReference("http").Property(PropertyPort), "{api.bindings.http.port}", "5000", ""},
		{api.EndpointReference("http").Property(PropertyTargetPort), "{api.bindings.http.targetPort}", "5000", ""},
		{api.EndpointReference("http").Property(PropertyScheme), "{api.bindings.http.scheme}", "http", ""},
		{api.EndpointReference("grpc"), "{api.bindings.grpc.url}", "", CodeEndpointNotAllocated},
		{api.EndpointReference("missing"), "{api.bindings.missing.url}", "", CodeInconsistentReference},
	}

	for _, tt := range tests {
		t.Run(tt.expression, func(t *testing.T) {
			if got := tt.provider.Expression(); got != tt.expression {
				t.Errorf("Expression() = %q; want %q", got, tt.expression)
			}
			got, err := tt.provider.Value()
			if tt.code != "" {
				if CodeOf(err) != tt.code {
					t.Fatalf("Value() error = %v; want code %s", err, tt.code)
				}
				if !errors.Is(err, ErrResolution) {
					t.Errorf("expected a resolution error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Value() unexpected error: %v", err)
			}
			if got != tt.value {
				t.Errorf("Value() = %q; want %q", got, tt.value)
			}
		})
	}
}

func TestEndpointReferenceResolvesLate(t *testing.T) {
	api := New("project.v0", "api")
	ref := api.EndpointReference("http")

	// Declared after the reference was taken.
	allocated(api, "http", "http", 7000)

	got, err := ref.Value()
	if err != nil {
		t.Fatalf("Value() unexpected error: %v", err)
	}
	if got != "http://localhost:7000" {
		t.Errorf("Value() = %q", got)
	}
}

func TestConnectionStringReference(t *testing.T) {
	db := New("container.v0", "db")
	allocated(db, "tcp", "tcp", 5432)
	password := New("parameter.v0", "password")
	password.Capabilities.Parameter = &ParameterCapability{Value: "secret", Secret: true}
	withConnectionString(db, "Host={0};Port={1};Password={2}",
		db.EndpointReference("tcp").Property(PropertyHost),
		db.EndpointReference("tcp").Property(PropertyPort),
		ParameterReference{Resource: password})

	ref := ConnectionStringReference{Target: db}

	wantExpr := "Host={db.bindings.tcp.host};Port={db.bindings.tcp.port};Password={password.value}"
	if got := ref.Expression(); got != wantExpr {
		t.Errorf("Expression() = %q; want %q", got, wantExpr)
	}
	got, err := ref.Value()
	if err != nil {
		t.Fatalf("Value() unexpected error: %v", err)
	}
	if got != "Host=localhost;Port=5432;Password=secret" {
		t.Errorf("Value() = %q", got)
	}

	rd := NewRenderer(ModePublish)
	rd.Render(ref)
	deps := rd.Dependencies()
	if len(deps) != 2 || deps[0] != db || deps[1] != password {
		t.Errorf("Dependencies() = %v; want [db password]", names(deps))
	}
}

func TestConnectionStringReferenceEmpty(t *testing.T) {
	empty := New("value.v0", "empty")
	withConnectionString(empty, "")

	_, err := ConnectionStringReference{Target: empty}.Value()
	if CodeOf(err) != CodeConnectionStringUnavailable {
		t.Errorf("expected %s, got %v", CodeConnectionStringUnavailable, err)
	}

	got, err := ConnectionStringReference{Target: empty, Optional: true}.Value()
	if err != nil || got != "" {
		t.Errorf("optional reference = %q, %v; want empty, nil", got, err)
	}

	none := New("container.v0", "none")
	if _, err := (ConnectionStringReference{Target: none}).Value(); CodeOf(err) != CodeConnectionStringUnavailable {
		t.Errorf("resource without capability: expected %s, got %v", CodeConnectionStringUnavailable, err)
	}
}

func TestConnectionStringCycle(t *testing.T) {
	a := New("value.v0", "a")
	b := New("value.v0", "b")
	withConnectionString(a, "{0}", ConnectionStringReference{Target: b})
	withConnectionString(b, "b;{0}", ConnectionStringReference{Target: a})

	var reentered []string
	rd := NewRenderer(ModePublish).OnCycle(func(r *Resource) { reentered = append(reentered, r.Name) })
	got, err := rd.Render(ConnectionStringReference{Target: a})
	if err != nil {
		t.Fatalf("publish render: unexpected error: %v", err)
	}
	if got != "b;{a.connectionString}" {
		t.Errorf("publish render = %q", got)
	}
	if len(reentered) != 1 || reentered[0] != "a" {
		t.Errorf("cycle callback saw %v; want [a]", reentered)
	}

	got, err = ConnectionStringReference{Target: a}.Value()
	if err != nil {
		t.Fatalf("run render: unexpected error: %v", err)
	}
	if got != "b;" {
		t.Errorf("run render = %q; want %q", got, "b;")
	}
}

func TestOutputReference(t *testing.T) {
	storage := New("azure.bicep.v0", "storage")
	storage.Capabilities.Outputs = &OutputsCapability{Values: map[string]string{
		"blobEndpoint": "https://acct.blob.core.windows.net/",
	}}

	ref := OutputReference{Resource: storage, Name: "blobEndpoint"}
	if got := ref.Expression(); got != "{storage.outputs.blobEndpoint}" {
		t.Errorf("Expression() = %q", got)
	}
	if got, err := ref.Value(); err != nil || got != "https://acct.blob.core.windows.net/" {
		t.Errorf("Value() = %q, %v", got, err)
	}

	missing := OutputReference{Resource: storage, Name: "queueEndpoint"}
	if _, err := missing.Value(); CodeOf(err) != CodeOutputUnavailable {
		t.Errorf("expected %s, got %v", CodeOutputUnavailable, err)
	}
}

func TestParameterReference(t *testing.T) {
	p := New("parameter.v0", "apikey")
	p.Capabilities.Parameter = &ParameterCapability{Secret: true}
	ref := ParameterReference{Resource: p}

	if got := ref.Expression(); got != "{apikey.value}" {
		t.Errorf("Expression() = %q", got)
	}
	if _, err := ref.Value(); CodeOf(err) != CodeParameterUnavailable {
		t.Errorf("expected %s, got %v", CodeParameterUnavailable, err)
	}

	p.Capabilities.Parameter.Value = "k-123"
	if got, err := ref.Value(); err != nil || got != "k-123" {
		t.Errorf("Value() = %q, %v", got, err)
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    ExecutionMode
		wantErr bool
	}{
		{"", ModePublish, false},
		{"publish", ModePublish, false},
		{"LOCAL", ModeRun, false},
		{"run", ModeRun, false},
		{"deploy", ModePublish, true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseMode(%q) = %v, %v; want %v, err=%v", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
	if ModeRun.String() != "local" || ModePublish.String() != "publish" {
		t.Errorf("unexpected mode names %s, %s", ModePublish, ModeRun)
	}
}

func names(rs []*Resource) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Name
	}
	return out
}
