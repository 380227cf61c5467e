package resource

import (
	"fmt"
	"strconv"
	"strings"
)

// ValueProvider is a value known only at resolution time. Value returns the concrete runtime
// value; Expression returns the symbolic form written into manifests.
type ValueProvider interface {
	Value() (string, error)
	Expression() string
}

// Referrer is implemented by providers defined outside this package that point at other
// resources, so they take part in dependency discovery.
type Referrer interface {
	ReferencedResources() []*Resource
}

// expander is implemented by the providers of this package. It renders through a Renderer so
// nested expansions share one mode, one dependency list and one cycle guard.
type expander interface {
	expand(rd *Renderer) (string, error)
}

// Renderer evaluates value providers for a single pass in a single mode. It records every
// resource reached while rendering and guards against re-entering an expansion in progress.
type Renderer struct {
	mode      ExecutionMode
	expanding map[*Resource]bool
	seen      map[*Resource]bool
	deps      []*Resource
	onCycle   func(*Resource)
}

// NewRenderer creates a renderer locked to mode.
func NewRenderer(mode ExecutionMode) *Renderer {
	return &Renderer{
		mode:      mode,
		expanding: make(map[*Resource]bool),
		seen:      make(map[*Resource]bool),
	}
}

// OnCycle registers a callback invoked when an in-progress expansion is re-entered.
func (rd *Renderer) OnCycle(fn func(*Resource)) *Renderer {
	rd.onCycle = fn
	return rd
}

// Mode returns the mode the renderer is locked to.
func (rd *Renderer) Mode() ExecutionMode {
	return rd.mode
}

// Render evaluates v in the renderer's mode.
func (rd *Renderer) Render(v ValueProvider) (string, error) {
	if e, ok := v.(expander); ok {
		return e.expand(rd)
	}
	if ref, ok := v.(Referrer); ok {
		for _, r := range ref.ReferencedResources() {
			rd.depend(r)
		}
	}
	if rd.mode == ModePublish {
		return v.Expression(), nil
	}
	return v.Value()
}

// Dependencies returns the resources reached so far, in discovery order.
func (rd *Renderer) Dependencies() []*Resource {
	out := make([]*Resource, len(rd.deps))
	copy(out, rd.deps)
	return out
}

func (rd *Renderer) depend(r *Resource) {
	if r == nil || rd.seen[r] {
		return
	}
	rd.seen[r] = true
	rd.deps = append(rd.deps, r)
}

// enter marks r as expanding. It returns false when r is already being expanded; the caller
// must then skip the expansion.
func (rd *Renderer) enter(r *Resource) bool {
	if rd.expanding[r] {
		if rd.onCycle != nil {
			rd.onCycle(r)
		}
		return false
	}
	rd.expanding[r] = true
	return true
}

func (rd *Renderer) leave(r *Resource) {
	delete(rd.expanding, r)
}

func valueOf(v ValueProvider) (string, error) {
	return NewRenderer(ModeRun).Render(v)
}

// expressionOf renders v symbolically. A render error yields ""; callers that need the error
// render through a Renderer or check ReferenceExpression.Validate first.
func expressionOf(v ValueProvider) string {
	s, err := NewRenderer(ModePublish).Render(v)
	if err != nil {
		return ""
	}
	return s
}

// Literal is a ValueProvider whose value and expression are the same string.
type Literal string

func (l Literal) Value() (string, error) { return string(l), nil }
func (l Literal) Expression() string { return string(l) }

// ReferenceExpression is a format string over positionally aligned providers. Placeholders are
// written {0}, {1}...; {{ and }} produce literal braces.
type ReferenceExpression struct {
	Format    string
	Providers []ValueProvider
}

// NewReferenceExpression creates an expression. Plain strings in providers become Literals.
func NewReferenceExpression(format string, providers ...any) *ReferenceExpression {
	expr := &ReferenceExpression{Format: format}
	for _, p := range providers {
		switch v := p.(type) {
		case ValueProvider:
			expr.Providers = append(expr.Providers, v)
		case string:
			expr.Providers = append(expr.Providers, Literal(v))
		default:
			expr.Providers = append(expr.Providers, Literal(fmt.Sprint(v)))
		}
	}
	return expr
}

// RawExpressions returns the symbolic form of each provider, aligned with Providers.
func (e *ReferenceExpression) RawExpressions() []string {
	raw := make([]string, len(e.Providers))
	for i, p := range e.Providers {
		raw[i] = expressionOf(p)
	}
	return raw
}

// Value formats the template with each provider's runtime value.
func (e *ReferenceExpression) Value() (string, error) { return valueOf(e) }

// Expression formats the template with each provider's symbolic form.
func (e *ReferenceExpression) Expression() string { return expressionOf(e) }

// Validate reports a malformed format: an unterminated placeholder, or one that is not an index
// into Providers.
func (e *ReferenceExpression) Validate() error {
	if e == nil {
		return nil
	}
	_, err := formatTemplate(e.Format, make([]string, len(e.Providers)))
	return err
}

// IsEmpty reports whether the expression can only render to "".
func (e *ReferenceExpression) IsEmpty() bool {
	return e == nil || (e.Format == "" && len(e.Providers) == 0)
}

func (e *ReferenceExpression) expand(rd *Renderer) (string, error) {
	args := make([]string, len(e.Providers))
	for i, p := range e.Providers {
		s, err := rd.Render(p)
		if err != nil {
			return "", err
		}
		args[i] = s
	}
	return formatTemplate(e.Format, args)
}

// formatTemplate substitutes {n} placeholders with args[n].
func formatTemplate(format string, args []string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(format); i++ {
		c := format[i]
		switch {
		case c == '{' && i+1 < len(format) && format[i+1] == '{':
			b.WriteByte('{')
			i++
		case c == '}' && i+1 < len(format) && format[i+1] == '}':
			b.WriteByte('}')
			i++
		case c == '{':
			end := strings.IndexByte(format[i:], '}')
			if end < 0 {
				return "", fmt.Errorf("unterminated placeholder in format %q", format)
			}
			n, err := strconv.Atoi(format[i+1 : i+end])
			if err != nil || n < 0 || n >= len(args) {
				return "", fmt.Errorf("invalid placeholder %q in format %q", format[i:i+end+1], format)
			}
			b.WriteString(args[n])
			i += end
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}
