package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/conduit-lang/apphost/internal/catalog"
	"github.com/conduit-lang/apphost/internal/cli/config"
	"github.com/conduit-lang/apphost/internal/cli/ui"
	"github.com/conduit-lang/apphost/internal/logging"
	"github.com/conduit-lang/apphost/internal/manifest"
	"github.com/conduit-lang/apphost/internal/model"
	"github.com/conduit-lang/apphost/internal/resource"
)

// session is an app model loaded from disk together with the settings and logger it was
// loaded with.
type session struct {
	cfg    *config.Config
	logger *zap.Logger
	app    *catalog.App
	file   string
}

// loadSession reads the settings file, builds the logger and loads the app model. appFile
// overrides app.file from the settings when set.
func loadSession(appFile string) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, &configError{err: err}
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	path, err := resolveAppFile(cfg, appFile)
	if err != nil {
		return nil, err
	}

	f, err := model.Load(path)
	if err != nil {
		return nil, err
	}

	app, err := catalog.NewApp(catalog.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	if err := model.Build(app, f); err != nil {
		return nil, err
	}

	logger.Debug("app model loaded",
		zap.String("file", path),
		zap.Int("resources", app.Registry().Len()))

	return &session{cfg: cfg, logger: logger, app: app, file: path}, nil
}

// newLogger builds the logger described by the settings; --verbose forces debug.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(level, cfg.Log.Format)
	if err != nil {
		return nil, &configError{err: err}
	}
	return logger, nil
}

func resolveAppFile(cfg *config.Config, appFile string) (string, error) {
	if appFile == "" {
		appFile = cfg.App.File
	}
	return config.ResolveAppFile(appFile)
}

// publisher creates a publisher from the session settings. Empty arguments fall back to the
// settings file.
func (s *session) publisher(outputPath, mode string) (*manifest.Publisher, error) {
	if outputPath == "" {
		outputPath = s.cfg.Publish.OutputPath
	}
	if mode == "" {
		mode = s.cfg.Publish.Mode
	}
	m, err := resource.ParseMode(mode)
	if err != nil {
		return nil, &configError{err: err}
	}
	return s.app.Publisher(manifest.Options{
		OutputPath:   outputPath,
		ManifestName: s.cfg.Publish.ManifestName,
		Mode:         m,
	}), nil
}

// configError marks a problem with the settings rather than with the app model.
type configError struct {
	err error
}

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

// reportedError wraps an error that has already been written to the user.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// errorJSON is the --json form of an error that is not a validation failure.
type errorJSON struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// reportError writes err to w in the format matching its kind and returns it wrapped so that
// Execute does not print it again.
func reportError(w io.Writer, err error, asJSON bool) error {
	if err == nil {
		return nil
	}
	noColor := color.NoColor

	var verrs *manifest.ValidationErrors
	var unknown *model.UnknownNameError
	var cfgErr *configError

	switch {
	case asJSON:
		var payload any
		if errors.As(err, &verrs) {
			payload = verrs
		} else {
			payload = errorJSON{Error: "publish_failed", Code: resource.CodeOf(err), Message: err.Error()}
		}
		if encErr := writeJSON(w, payload); encErr != nil {
			return encErr
		}

	case errors.As(err, &verrs):
		lines := make([]string, len(verrs.Violations))
		for i, v := range verrs.Violations {
			lines[i] = fmt.Sprintf("[%s] %s", v.Code, v)
		}
		ui.InvalidModel(lines).Write(w, noColor)

	case errors.As(err, &unknown):
		suggestions := ui.SuggestNames(unknown.Name, unknown.Known)
		ui.UnknownName(unknown.What, unknown.Name, unknown.Known, suggestions).Write(w, noColor)

	case errors.As(err, &cfgErr):
		ui.ConfigInvalid(err.Error()).Write(w, noColor)

	default:
		ui.PublishFailed(err.Error()).Write(w, noColor)
	}
	return &reportedError{err: err}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
