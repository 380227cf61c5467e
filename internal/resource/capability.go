package resource

// Capabilities is the explicit record of optional behaviors a resource kind supports.
// A nil field means the resource does not carry that capability.
type Capabilities struct {
	ConnectionString *ConnectionStringCapability
	Parameter        *ParameterCapability
	Outputs          *OutputsCapability
	Template         TemplateGenerator
}

// ConnectionStringCapability describes how dependents connect to the resource.
type ConnectionStringCapability struct {
	// Expression builds the connection string. It is called lazily at resolution time and may
	// return nil when the resource has nothing to offer.
	Expression func() *ReferenceExpression
	// EnvironmentVariable overrides the ConnectionStrings__{name} variable dependents receive.
	EnvironmentVariable string
}

// ParameterCapability backs parameter resources. Value is only known in run mode.
type ParameterCapability struct {
	Value  string
	Secret bool
}

// OutputsCapability holds the outputs a deployment module produced, keyed by output name.
// Publish mode never reads it.
type OutputsCapability struct {
	Values map[string]string
}

// GeneratedFile is a file produced by a TemplateGenerator, relative to the output directory.
type GeneratedFile struct {
	Path    string
	Content string
}

// TemplateGenerator produces deployment module files for a resource during commit.
type TemplateGenerator interface {
	Generate(r *Resource) ([]GeneratedFile, error)
}

// TemplateGeneratorFunc adapts a function to TemplateGenerator.
type TemplateGeneratorFunc func(r *Resource) ([]GeneratedFile, error)

// Generate calls f(r).
func (f TemplateGeneratorFunc) Generate(r *Resource) ([]GeneratedFile, error) {
	return f(r)
}

// HasConnectionString reports whether the resource carries the connection-string capability.
func (r *Resource) HasConnectionString() bool {
	return r.Capabilities.ConnectionString != nil
}

// ConnectionStringExpression returns the connection-string expression, or nil.
func (r *Resource) ConnectionStringExpression() *ReferenceExpression {
	cs := r.Capabilities.ConnectionString
	if cs == nil || cs.Expression == nil {
		return nil
	}
	return cs.Expression()
}
