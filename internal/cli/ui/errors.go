package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Severity selects the symbol and palette of a Notice.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

type palette struct {
	symbol string
	head   color.Attribute
}

var palettes = map[Severity]palette{
	SeverityError:   {"❌", color.FgRed},
	SeverityWarning: {"⚠️", color.FgYellow},
	SeverityInfo:    {"ℹ️", color.FgCyan},
}

// Notice is a terminal message about a failed or noteworthy command. It renders as
//
//	❌ RESOURCE NOT FOUND
//	   Cannot find resource 'strage'.
//
//	   Did you mean: storage?
//
//	   → See all resources: apphost graph
type Notice struct {
	Severity    Severity
	Title       string
	Message     string
	Detail      string
	Suggestions []string
	Hints       []string
}

// Render formats n, with colors unless noColor is set.
func (n Notice) Render(noColor bool) string {
	p := palettes[n.Severity]
	head := style(noColor, p.head, color.Bold)
	body := style(noColor, p.head)

	var b strings.Builder
	if n.Title == "" {
		head.Fprintf(&b, "%s %s\n", p.symbol, n.Message)
	} else {
		head.Fprintf(&b, "%s %s\n", p.symbol, strings.ToUpper(n.Title))
		if n.Message != "" {
			body.Fprintf(&b, "   %s\n", n.Message)
		}
	}
	if n.Detail != "" {
		body.Fprintf(&b, "\n   %s\n", n.Detail)
	}
	if len(n.Suggestions) > 0 {
		style(noColor, color.FgYellow).Fprintf(&b, "\n   Did you mean: %s?\n", strings.Join(n.Suggestions, ", "))
	}
	if len(n.Hints) > 0 {
		b.WriteString("\n")
		hint := style(noColor, color.FgCyan)
		for _, h := range n.Hints {
			hint.Fprintf(&b, "   → %s\n", h)
		}
	}
	return b.String()
}

// Write renders n to w.
func (n Notice) Write(w io.Writer, noColor bool) {
	fmt.Fprint(w, n.Render(noColor))
}

const publishHelp = "Get help: apphost publish --help"

// UnknownName reports a reference to a resource, kind or template the model does not define.
func UnknownName(what, name string, known, suggestions []string) Notice {
	switch what {
	case "resource":
		return Notice{
			Title:       "resource not found",
			Message:     fmt.Sprintf("Cannot find resource '%s'.", name),
			Suggestions: suggestions,
			Hints:       []string{"See all resources: apphost graph", publishHelp},
		}
	case "kind":
		return Notice{
			Title:       "unknown resource kind",
			Message:     fmt.Sprintf("Resource kind '%s' is not supported.", name),
			Detail:      "Available: " + strings.Join(known, ", "),
			Suggestions: suggestions,
			Hints:       []string{publishHelp},
		}
	}
	return Notice{
		Title:       "unknown " + what,
		Message:     fmt.Sprintf("No %s named '%s'.", what, name),
		Detail:      "Available: " + strings.Join(known, ", "),
		Suggestions: suggestions,
		Hints:       []string{publishHelp},
	}
}

// InvalidModel lists every validation violation found before publishing.
func InvalidModel(violations []string) Notice {
	var detail strings.Builder
	for _, v := range violations {
		detail.WriteString("- " + v + "\n   ")
	}
	detail.WriteString("\n   No manifest was written.")
	return Notice{
		Title:   "validation failed",
		Message: fmt.Sprintf("%d problem(s) found in the application model.", len(violations)),
		Detail:  detail.String(),
		Hints:   []string{"Inspect dependencies: apphost graph", publishHelp},
	}
}

// PublishFailed reports an error raised while resolving or writing the manifest.
func PublishFailed(message string) Notice {
	return Notice{
		Title:   "publish failed",
		Message: message,
		Detail:  "No manifest was written.",
		Hints:   []string{publishHelp},
	}
}

// ConfigInvalid reports a problem with flags, the config file or the model file location.
func ConfigInvalid(message string) Notice {
	return Notice{
		Title:   "configuration error",
		Message: message,
		Hints:   []string{"View config: cat .apphost.yaml", "Get help: apphost --help"},
	}
}

func Warning(message string) Notice {
	return Notice{Severity: SeverityWarning, Message: message}
}

func Info(message string) Notice {
	return Notice{Severity: SeverityInfo, Message: message}
}

// FormatSuccess returns a green check line without a trailing newline.
func FormatSuccess(message string, noColor bool) string {
	return style(noColor, color.FgGreen, color.Bold).Sprintf("✓ %s", message)
}

func WriteSuccess(w io.Writer, message string, noColor bool) {
	fmt.Fprintln(w, FormatSuccess(message, noColor))
}
