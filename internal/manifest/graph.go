package manifest

import (
	"fmt"
	"strings"
)

type GraphNode struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// GraphEdge means "From depends on To".
type GraphEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Graph is the resource dependency graph discovered while resolving the manifest. Nodes keep
// registry order; edges keep discovery order.
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

func (g *Graph) addNode(name, typ string) {
	g.Nodes = append(g.Nodes, GraphNode{Name: name, Type: typ})
}

func (g *Graph) addEdge(from, to string) {
	for _, e := range g.Edges {
		if e.From == from && e.To == to {
			return
		}
	}
	g.Edges = append(g.Edges, GraphEdge{From: from, To: to})
}

// DependenciesOf returns the direct dependencies of a resource
func (g *Graph) DependenciesOf(name string) []string {
	var deps []string
	for _, e := range g.Edges {
		if e.From == name {
			deps = append(deps, e.To)
		}
	}
	return deps
}

// Cycles returns every elementary reference cycle reachable by walking edges from each node in
// order. Reference cycles are legal; they are reported for diagnostics only.
func (g *Graph) Cycles() [][]string {
	const (
		white = iota
		grey
		black
	)
	color := make(map[string]int, len(g.Nodes))
	var stack []string
	var cycles [][]string

	var visit func(n string)
	visit = func(n string) {
		color[n] = grey
		stack = append(stack, n)
		for _, next := range g.DependenciesOf(n) {
			switch color[next] {
			case white:
				visit(next)
			case grey:
				for i := len(stack) - 1; i >= 0; i-- {
					if stack[i] == next {
						cycle := append([]string(nil), stack[i:]...)
						cycles = append(cycles, append(cycle, next))
						break
					}
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[n] = black
	}

	for _, n := range g.Nodes {
		if color[n.Name] == white {
			visit(n.Name)
		}
	}
	return cycles
}

// DOT exports Graphviz DOT text.
func (g *Graph) DOT() string {
	var b strings.Builder
	b.WriteString("digraph apphost {\n")
	b.WriteString("  rankdir=LR;\n")

	aliases := make(map[string]string, len(g.Nodes))
	for i, n := range g.Nodes {
		alias := fmt.Sprintf("n%d", i)
		aliases[n.Name] = alias
		label := escapeQuotes(n.Name)
		if n.Type != "" {
			label = label + "\\n(" + escapeQuotes(n.Type) + ")"
		}
		b.WriteString(fmt.Sprintf("  %s [label=\"%s\"];\n", alias, label))
	}
	for _, e := range g.Edges {
		from, okFrom := aliases[e.From]
		to, okTo := aliases[e.To]
		if !okFrom || !okTo {
			continue
		}
		b.WriteString(fmt.Sprintf("  %s -> %s;\n", from, to))
	}
	b.WriteString("}\n")
	return b.String()
}

// Mermaid exports Mermaid graph text.
func (g *Graph) Mermaid() string {
	var b strings.Builder
	b.WriteString("graph TD\n")

	aliases := make(map[string]string, len(g.Nodes))
	for i, n := range g.Nodes {
		alias := fmt.Sprintf("n%d", i)
		aliases[n.Name] = alias
		label := escapeQuotes(n.Name)
		if n.Type != "" {
			label = label + "<br/>(" + escapeQuotes(n.Type) + ")"
		}
		b.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", alias, label))
	}
	for _, e := range g.Edges {
		from, okFrom := aliases[e.From]
		to, okTo := aliases[e.To]
		if !okFrom || !okTo {
			continue
		}
		b.WriteString(fmt.Sprintf("    %s --> %s\n", from, to))
	}
	return b.String()
}

func escapeQuotes(s string) string {
	return strings.ReplaceAll(s, "\"", "\\\"")
}
