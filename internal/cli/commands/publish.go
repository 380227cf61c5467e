package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/apphost/internal/cli/config"
	"github.com/conduit-lang/apphost/internal/cli/ui"
	"github.com/conduit-lang/apphost/internal/manifest"
	"github.com/conduit-lang/apphost/internal/watch"
)

var (
	publishJSON       bool
	publishDryRun     bool
	publishOutputPath string
	publishMode       string
	publishAppFile    string
	publishWatch      bool
)

// NewPublishCommand creates the publish command
func NewPublishCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Write the deployment manifest for an application",
		Long: `Load the app model, validate every resource and write manifest.json.

The publish process:
  1. Before-publish hooks - e.g. projects become Dockerfile builds
  2. Validation - every problem is reported at once
  3. Resolution - environment and bindings rendered as expressions
  4. Commit - module files and the manifest are written

Nothing is written if any step fails.`,
		Example: `  # Publish apphost.yaml to the current directory
  apphost publish

  # Publish a TOML model into out/
  apphost publish -f infra/apphost.toml -o out

  # Validate and resolve without writing anything
  apphost publish --dry-run

  # Report errors as JSON (useful for tooling)
  apphost publish --json

  # Publish again every time apphost.yaml changes
  apphost publish --watch`,
		Args: cobra.NoArgs,
		RunE: runPublish,
	}

	cmd.Flags().BoolVar(&publishJSON, "json", false, "Output the result or errors in JSON format")
	cmd.Flags().BoolVar(&publishDryRun, "dry-run", false, "Validate and resolve without writing files")
	cmd.Flags().StringVarP(&publishOutputPath, "output-path", "o", "", "Directory to write the manifest to (default from .apphost.yaml, else .)")
	cmd.Flags().StringVar(&publishMode, "mode", "", "Execution mode: publish or local")
	cmd.Flags().StringVarP(&publishAppFile, "app", "f", "", "App model file (default apphost.yaml)")
	cmd.Flags().BoolVarP(&publishWatch, "watch", "w", false, "Publish again whenever the app model file changes")

	return cmd
}

// publishSummary is the --json form of a successful publish.
type publishSummary struct {
	RunID     string   `json:"runId"`
	Manifest  string   `json:"manifest,omitempty"`
	Files     []string `json:"files"`
	Resources []string `json:"resources"`
}

func runPublish(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if publishWatch {
		return watchAndPublish(ctx, cmd)
	}
	return publishOnce(ctx, cmd)
}

// watchAndPublish publishes once and then again after every change to the app model file,
// until ctx is cancelled. Failed runs are reported and watching continues.
func watchAndPublish(ctx context.Context, cmd *cobra.Command) error {
	errOut := cmd.ErrOrStderr()

	cfg, err := config.Load()
	if err != nil {
		return reportError(errOut, &configError{err: err}, publishJSON)
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return reportError(errOut, err, publishJSON)
	}
	defer func() { _ = logger.Sync() }()

	path, err := resolveAppFile(cfg, publishAppFile)
	if err != nil {
		return reportError(errOut, err, publishJSON)
	}

	w, err := watch.NewFileWatcher([]string{path}, watch.WithLogger(logger))
	if err != nil {
		return reportError(errOut, err, publishJSON)
	}
	defer w.Close()

	// Errors are reported by publishOnce itself.
	_ = publishOnce(ctx, cmd)
	if !publishJSON {
		fmt.Fprintln(cmd.OutOrStdout())
		ui.Info(fmt.Sprintf("Watching %s for changes (Ctrl+C to stop)", path)).Write(cmd.OutOrStdout(), color.NoColor)
	}

	return w.Run(ctx, func(ctx context.Context, changed []string) error {
		logger.Info("app model changed, publishing again", zap.Strings("files", changed))
		_ = publishOnce(ctx, cmd)
		return nil
	})
}

func publishOnce(ctx context.Context, cmd *cobra.Command) error {
	errOut := cmd.ErrOrStderr()

	s, err := loadSession(publishAppFile)
	if err != nil {
		return reportError(errOut, err, publishJSON)
	}
	defer func() { _ = s.logger.Sync() }()

	p, err := s.publisher(publishOutputPath, publishMode)
	if err != nil {
		return reportError(errOut, err, publishJSON)
	}

	res, err := publish(ctx, p, publishDryRun)
	if err != nil {
		return reportError(errOut, err, publishJSON)
	}

	out := cmd.OutOrStdout()
	if publishJSON {
		return writeJSON(out, publishSummary{
			RunID:     res.RunID,
			Manifest:  res.ManifestPath,
			Files:     nonNil(res.Files),
			Resources: res.Document.Names(),
		})
	}

	printPublishResult(out, res, publishDryRun)
	for _, cycle := range res.Graph.Cycles() {
		ui.Warning("Reference cycle: "+strings.Join(cycle, " → ")).Write(errOut, color.NoColor)
	}
	return nil
}

func publish(ctx context.Context, p *manifest.Publisher, dryRun bool) (*manifest.Result, error) {
	if dryRun {
		return p.Plan(ctx)
	}
	return p.Publish(ctx)
}

func printPublishResult(w io.Writer, res *manifest.Result, dryRun bool) {
	noColor := color.NoColor

	table := ui.NewTable(w, noColor, "RESOURCE", "TYPE", "DEPENDS ON")
	for _, node := range res.Graph.Nodes {
		table.AddRow(node.Name, node.Type, strings.Join(res.Graph.DependenciesOf(node.Name), ", "))
	}
	table.Render()
	fmt.Fprintln(w)

	if len(res.Files) > 0 {
		fmt.Fprintln(w, "Generated files:")
		list := ui.NewList(w, noColor)
		for _, f := range res.Files {
			list.Add(f)
		}
		list.Render()
		fmt.Fprintln(w)
	}

	if dryRun {
		ui.WriteSuccess(w, fmt.Sprintf("%d resource(s) valid, nothing written", table.Len()), noColor)
		return
	}

	kv := ui.NewPairs(w, noColor)
	kv.Add("Run", res.RunID)
	kv.Add("Manifest", res.ManifestPath)
	kv.Render()
	fmt.Fprintln(w)
	ui.WriteSuccess(w, fmt.Sprintf("Published %d resource(s)", table.Len()), noColor)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
