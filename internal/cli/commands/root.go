package commands

import (
	"errors"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/apphost/internal/cli/ui"
)

var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// verbose turns on debug logging for every command.
var verbose bool

// NewRootCommand assembles apphost and its subcommands.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "apphost",
		Short: "Describe distributed applications and publish deployment manifests",
		Long: color.CyanString(`apphost - application model and manifest publisher

Describe the containers, projects, parameters and cloud modules of an application in
apphost.yaml (or apphost.toml) and publish them as a single manifest.json that deployment
tools consume.

Features:
  • Connection strings and service discovery wired between resources
  • Every validation problem reported in one pass
  • Atomic manifest writes
  • Bicep modules generated for cloud resources`),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(NewPublishCommand())
	rootCmd.AddCommand(NewGraphCommand())
	rootCmd.AddCommand(NewEnvCommand())

	return rootCmd
}

// NewVersionCommand prints the build stamp injected with -ldflags.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			p := ui.NewPairs(cmd.OutOrStdout(), color.NoColor)
			p.Add("apphost", Version)
			p.Add("Git commit", GitCommit)
			p.Add("Build date", BuildDate)
			p.Add("Go version", goVer)
			p.Render()
		},
	}
}

// Execute runs the root command. Errors already reported by a command are not printed again.
func Execute() error {
	rootCmd := NewRootCommand()
	err := rootCmd.Execute()
	var reported *reportedError
	if err != nil && !errors.As(err, &reported) {
		color.New(color.FgRed, color.Bold).Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
	}
	return err
}
