package model

import (
	"fmt"
	"regexp"
	"strings"
)

// PlaceholderKind is what a placeholder points at.
type PlaceholderKind string

const (
	KindOutput           PlaceholderKind = "outputs"
	KindBinding          PlaceholderKind = "bindings"
	KindConnectionString PlaceholderKind = "connectionString"
	KindValue            PlaceholderKind = "value"
)

var placeholderPattern = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9_-]*)\.(outputs|bindings|connectionString|value)(?:\.(.+))?$`)

// Placeholder is a reference to another resource inside a string, such as
// {storage.outputs.blobEndpoint} or {api.bindings.http.url}.
type Placeholder struct {
	Resource string
	Kind     PlaceholderKind
	// Path holds the segments after the kind: the output name, or endpoint and property.
	Path []string
}

func (p Placeholder) String() string {
	parts := append([]string{p.Resource, string(p.Kind)}, p.Path...)
	return "{" + strings.Join(parts, ".") + "}"
}

// Interpolation is a string split into a format and the placeholders it references. Format
// uses the {n} positional syntax of resource.NewReferenceExpression.
type Interpolation struct {
	Format       string
	Placeholders []Placeholder
}

// IsLiteral reports whether the string contained no placeholders
func (i Interpolation) IsLiteral() bool {
	return len(i.Placeholders) == 0
}

// Interpolate parses the placeholders of s. Braces that do not enclose a placeholder are kept
// literally; {{ and }} escape a brace.
func Interpolate(s string) (Interpolation, error) {
	var format strings.Builder
	var placeholders []Placeholder

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '{' && i+1 < len(s) && s[i+1] == '{':
			format.WriteString("{{")
			i++
		case c == '}' && i+1 < len(s) && s[i+1] == '}':
			format.WriteString("}}")
			i++
		case c == '{':
			end := strings.IndexByte(s[i+1:], '}')
			if end < 0 {
				format.WriteString("{{")
				continue
			}
			body := s[i+1 : i+1+end]
			p, ok, err := parsePlaceholder(body)
			if err != nil {
				return Interpolation{}, err
			}
			if !ok {
				format.WriteString("{{")
				continue
			}
			fmt.Fprintf(&format, "{%d}", len(placeholders))
			placeholders = append(placeholders, p)
			i += end + 1
		case c == '}':
			format.WriteString("}}")
		default:
			format.WriteByte(c)
		}
	}

	return Interpolation{Format: format.String(), Placeholders: placeholders}, nil
}

// parsePlaceholder returns ok=false for text that is not shaped like a placeholder, and an
// error for text that is but is malformed.
func parsePlaceholder(body string) (Placeholder, bool, error) {
	m := placeholderPattern.FindStringSubmatch(body)
	if m == nil {
		return Placeholder{}, false, nil
	}

	p := Placeholder{Resource: m[1], Kind: PlaceholderKind(m[2])}
	if m[3] != "" {
		p.Path = strings.Split(m[3], ".")
	}

	switch p.Kind {
	case KindOutput:
		if len(p.Path) != 1 {
			return p, true, fmt.Errorf("placeholder {%s}: expected {resource.outputs.name}", body)
		}
	case KindBinding:
		if len(p.Path) < 1 || len(p.Path) > 2 {
			return p, true, fmt.Errorf("placeholder {%s}: expected {resource.bindings.endpoint.property}", body)
		}
	case KindConnectionString, KindValue:
		if len(p.Path) != 0 {
			return p, true, fmt.Errorf("placeholder {%s}: unexpected segments after %s", body, p.Kind)
		}
	}
	return p, true, nil
}
