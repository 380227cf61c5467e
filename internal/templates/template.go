package templates

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"
)

// VariableType is the bicep type of a module parameter.
type VariableType string

const (
	VariableTypeString VariableType = "string"
	VariableTypeInt    VariableType = "int"
	VariableTypeBool   VariableType = "bool"
	VariableTypeObject VariableType = "object"
)

// Template is an infrastructure module: a set of files, usually a single .bicep, rendered
// with text/template against the parameters of the resource that uses it.
type Template struct {
	Name        string
	Description string
	Version     string
	Variables   []*TemplateVariable
	Files       []*TemplateFile
	// Outputs names the values the deployed module exposes.
	Outputs  []string
	Metadata map[string]interface{}
}

// TemplateVariable is a declared module parameter.
type TemplateVariable struct {
	Name        string
	Description string
	Type        VariableType
	Default     interface{}
	// DefaultExpression is emitted verbatim and takes precedence over Default.
	DefaultExpression string
	Required          bool
	Secure            bool
}

// TemplateFile is one output file. TargetPath is always rendered; Content only when Template
// is set. A non-empty Condition must render to "true" for the file to be produced.
type TemplateFile struct {
	TargetPath string
	Content    string
	Template   bool
	Condition  string
}

// TemplateContext is the data a module file renders against.
type TemplateContext struct {
	ResourceName string
	Variables    map[string]interface{}
	Template     *Template
}

// RenderedFile is one rendered file, its path relative to the output directory.
type RenderedFile struct {
	Path    string
	Content string
}

type Engine struct {
	funcs template.FuncMap
}

func NewEngine() *Engine {
	return &Engine{
		funcs: template.FuncMap{
			"upper":   strings.ToUpper,
			"lower":   strings.ToLower,
			"quote":   func(s string) string { return bicepLiteral(s) },
			"literal": bicepLiteral,
			"default": func(def, val interface{}) interface{} {
				if val == nil || val == "" {
					return def
				}
				return val
			},
		},
	}
}

// Render renders every file of tmpl. Nothing is written to disk.
func (e *Engine) Render(tmpl *Template, ctx *TemplateContext) ([]RenderedFile, error) {
	if ctx == nil {
		return nil, fmt.Errorf("module %s: no render context", tmpl.Name)
	}
	for _, v := range tmpl.Variables {
		if _, ok := ctx.Variables[v.Name]; v.Required && !ok {
			return nil, fmt.Errorf("module %s: required parameter %s not provided", tmpl.Name, v.Name)
		}
	}
	if ctx.Template == nil {
		ctx.Template = tmpl
	}

	var files []RenderedFile
	for _, f := range tmpl.Files {
		if f.Condition != "" {
			cond, err := e.renderString(f.Condition, ctx)
			if err != nil {
				return nil, fmt.Errorf("condition of %s: %w", f.TargetPath, err)
			}
			if strings.TrimSpace(cond) != "true" {
				continue
			}
		}

		path, err := e.renderString(f.TargetPath, ctx)
		if err != nil {
			return nil, fmt.Errorf("target path %s: %w", f.TargetPath, err)
		}
		if path, err = relativePath(path); err != nil {
			return nil, err
		}

		content := f.Content
		if f.Template {
			if content, err = e.renderString(f.Content, ctx); err != nil {
				return nil, fmt.Errorf("render %s: %w", f.TargetPath, err)
			}
		}
		files = append(files, RenderedFile{Path: path, Content: content})
	}
	return files, nil
}

// WriteFiles writes rendered files under targetDir as one batch and returns their paths.
// Every path is checked before anything touches the disk, and each file is staged in a
// temporary file beside its target. Targets are replaced only once all files are staged. If a
// rename fails, the files already moved into place are removed, so a failed batch leaves no
// new files behind.
func WriteFiles(targetDir string, files []RenderedFile) ([]string, error) {
	paths := make([]string, len(files))
	seen := make(map[string]bool, len(files))
	for i, f := range files {
		path, err := SafeJoin(targetDir, f.Path)
		if err != nil {
			return nil, err
		}
		if seen[path] {
			return nil, fmt.Errorf("invalid target path: %s is generated more than once", f.Path)
		}
		seen[path] = true
		paths[i] = path
	}

	staged := make([]string, 0, len(files))
	for i, f := range files {
		tmp, err := stage(paths[i], f.Content)
		if err != nil {
			removeAll(staged)
			return nil, err
		}
		staged = append(staged, tmp)
	}

	for i, tmp := range staged {
		if err := os.Rename(tmp, paths[i]); err != nil {
			removeAll(paths[:i])
			removeAll(staged[i:])
			return nil, fmt.Errorf("write %s: %w", paths[i], err)
		}
	}
	return paths, nil
}

// stage writes content to a temporary file in the directory of path.
func stage(path, content string) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create directory for %s: %w", path, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("stage %s: %w", path, err)
	}
	_, werr := tmp.WriteString(content)
	cerr := tmp.Close()
	if werr == nil {
		werr = cerr
	}
	if werr == nil {
		werr = os.Chmod(tmp.Name(), 0644)
	}
	if werr != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("stage %s: %w", path, werr)
	}
	return tmp.Name(), nil
}

func removeAll(paths []string) {
	for _, p := range paths {
		_ = os.Remove(p)
	}
}

// SafeJoin joins a relative path onto targetDir and rejects results outside of it.
func SafeJoin(targetDir, relPath string) (string, error) {
	cleaned, err := relativePath(relPath)
	if err != nil {
		return "", err
	}
	if cleaned == "." {
		return "", fmt.Errorf("invalid target path: %s names the output directory itself", relPath)
	}
	return filepath.Join(targetDir, cleaned), nil
}

// relativePath cleans p and rejects absolute paths and paths climbing out with "..".
func relativePath(p string) (string, error) {
	cleaned := filepath.Clean(p)
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid target path: %s attempts to write outside output directory", p)
	}
	return cleaned, nil
}

func (e *Engine) renderString(text string, ctx *TemplateContext) (string, error) {
	t, err := template.New("").Funcs(e.funcs).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, ctx); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// bicepLiteral renders a Go value as a bicep literal.
func bicepLiteral(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return "'" + strings.ReplaceAll(val, "'", "\\'") + "'"
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// Validate checks that the module is complete and its parameter and output names are unique.
func (t *Template) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("template name is required")
	}
	if t.Version == "" {
		return fmt.Errorf("template version is required")
	}
	if len(t.Files) == 0 {
		return fmt.Errorf("template must have at least one file")
	}

	varNames := make(map[string]bool)
	for _, v := range t.Variables {
		if v.Name == "" {
			return fmt.Errorf("variable name is required")
		}
		if varNames[v.Name] {
			return fmt.Errorf("duplicate variable name: %s", v.Name)
		}
		varNames[v.Name] = true
	}

	outputs := make(map[string]bool)
	for _, o := range t.Outputs {
		if o == "" {
			return fmt.Errorf("output name is required")
		}
		if outputs[o] {
			return fmt.Errorf("duplicate output name: %s", o)
		}
		outputs[o] = true
	}

	for _, f := range t.Files {
		if f.TargetPath == "" {
			return fmt.Errorf("file target path is required")
		}
		if f.Content == "" {
			return fmt.Errorf("file content is required for %s", f.TargetPath)
		}
	}

	return nil
}

// HasOutput reports whether the module declares the named output.
func (t *Template) HasOutput(name string) bool {
	for _, o := range t.Outputs {
		if o == name {
			return true
		}
	}
	return false
}
