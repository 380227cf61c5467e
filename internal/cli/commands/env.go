package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/apphost/internal/environment"
	"github.com/conduit-lang/apphost/internal/model"
	"github.com/conduit-lang/apphost/internal/resource"
)

var (
	envMode    string
	envHost    string
	envJSON    bool
	envAppFile string
)

// NewEnvCommand creates the env command
func NewEnvCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "env <resource>",
		Short: "Print the resolved environment of one resource",
		Long: `Resolve the environment variables a resource receives.

In local mode every endpoint is allocated on --host at its port (or target port) and values
render as concrete URLs. In publish mode values render as manifest expressions.`,
		Example: `  # Variables web would see when running locally
  apphost env web

  # The same variables as they appear in the manifest
  apphost env web --mode publish

  # Export into the current shell
  eval "$(apphost env web)"`,
		Args: cobra.ExactArgs(1),
		RunE: runEnv,
	}

	cmd.Flags().StringVar(&envMode, "mode", "local", "Execution mode: publish or local")
	cmd.Flags().StringVar(&envHost, "host", "localhost", "Host endpoints are allocated on in local mode")
	cmd.Flags().BoolVar(&envJSON, "json", false, "Output variables as a JSON object")
	cmd.Flags().StringVarP(&envAppFile, "app", "f", "", "App model file (default apphost.yaml)")

	return cmd
}

func runEnv(cmd *cobra.Command, args []string) error {
	errOut := cmd.ErrOrStderr()

	mode, err := resource.ParseMode(envMode)
	if err != nil {
		return reportError(errOut, &configError{err: err}, envJSON)
	}

	s, err := loadSession(envAppFile)
	if err != nil {
		return reportError(errOut, err, envJSON)
	}
	defer func() { _ = s.logger.Sync() }()

	reg := s.app.Registry()
	r, ok := reg.Get(args[0])
	if !ok {
		return reportError(errOut, &model.UnknownNameError{
			What:  "resource",
			Name:  args[0],
			Where: "env",
			Known: reg.Names(),
		}, envJSON)
	}

	if mode == resource.ModeRun {
		allocateEndpoints(reg, envHost)
	}

	res, err := environment.NewResolver(mode, s.logger).Resolve(r)
	if err != nil {
		return reportError(errOut, err, envJSON)
	}

	out := cmd.OutOrStdout()
	if envJSON {
		return writeJSON(out, res.Env)
	}
	for _, key := range res.Keys() {
		fmt.Fprintf(out, "%s=%s\n", key, shellQuote(res.Env[key]))
	}
	return nil
}

// allocateEndpoints gives every unallocated endpoint that declares a port an address on host.
// Endpoints without a port stay unallocated and fail to resolve.
func allocateEndpoints(reg *resource.Registry, host string) {
	for _, r := range reg.Resources() {
		for _, ep := range r.Endpoints() {
			if ep.Allocated != nil {
				continue
			}
			port := ep.Port
			if port == nil {
				port = ep.TargetPort
			}
			if port == nil {
				continue
			}
			ep.Allocated = &resource.AllocatedEndpoint{Host: host, Port: *port}
		}
	}
}

// shellQuote single-quotes s for POSIX shells when it holds anything but safe characters.
func shellQuote(s string) string {
	safe := s != ""
	for _, c := range s {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || strings.ContainsRune("-_./:@=,+", c)) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
