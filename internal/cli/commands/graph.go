package commands

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/apphost/internal/cli/ui"
	"github.com/conduit-lang/apphost/internal/manifest"
)

var (
	graphFormat  string
	graphAppFile string
)

// NewGraphCommand creates the graph command
func NewGraphCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Show the resource dependency graph",
		Long: `Resolve the app model without writing anything and print which resources depend on
which. Reference cycles are legal and are listed after the graph.`,
		Example: `  # Table of resources and their dependencies
  apphost graph

  # Graphviz output
  apphost graph --format dot | dot -Tsvg > graph.svg

  # Mermaid flowchart for a README
  apphost graph --format mermaid`,
		Args: cobra.NoArgs,
		RunE: runGraph,
	}

	cmd.Flags().StringVar(&graphFormat, "format", "table", "Output format: table, dot, mermaid or json")
	cmd.Flags().StringVarP(&graphAppFile, "app", "f", "", "App model file (default apphost.yaml)")

	return cmd
}

func runGraph(cmd *cobra.Command, args []string) error {
	asJSON := graphFormat == "json"
	errOut := cmd.ErrOrStderr()

	switch graphFormat {
	case "table", "dot", "mermaid", "json":
	default:
		return reportError(errOut, &configError{
			err: fmt.Errorf("unknown graph format %q: expected table, dot, mermaid or json", graphFormat),
		}, false)
	}

	s, err := loadSession(graphAppFile)
	if err != nil {
		return reportError(errOut, err, asJSON)
	}
	defer func() { _ = s.logger.Sync() }()

	p, err := s.publisher("", "publish")
	if err != nil {
		return reportError(errOut, err, asJSON)
	}
	res, err := p.Plan(cmd.Context())
	if err != nil {
		return reportError(errOut, err, asJSON)
	}

	out := cmd.OutOrStdout()
	g := res.Graph
	switch graphFormat {
	case "dot":
		fmt.Fprint(out, g.DOT())
	case "mermaid":
		fmt.Fprint(out, g.Mermaid())
	case "json":
		return writeJSON(out, struct {
			*manifest.Graph
			Cycles [][]string `json:"cycles"`
		}{Graph: g, Cycles: nonNilCycles(g.Cycles())})
	default:
		printGraphTable(cmd, g)
	}
	return nil
}

func printGraphTable(cmd *cobra.Command, g *manifest.Graph) {
	out := cmd.OutOrStdout()
	noColor := color.NoColor

	table := ui.NewTable(out, noColor, "RESOURCE", "TYPE", "DEPENDS ON")
	for _, node := range g.Nodes {
		table.AddRow(node.Name, node.Type, strings.Join(g.DependenciesOf(node.Name), ", "))
	}
	table.Render()

	cycles := g.Cycles()
	if len(cycles) == 0 {
		return
	}
	fmt.Fprintln(out)
	ui.Header(out, "Reference cycles", noColor)
	list := ui.NewList(out, noColor)
	for _, c := range cycles {
		list.Add(strings.Join(c, " → "))
	}
	list.Render()
}

func nonNilCycles(c [][]string) [][]string {
	if c == nil {
		return [][]string{}
	}
	return c
}
