package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleGraph() *Graph {
	g := &Graph{}
	g.addNode("storage", "azure.bicep.v0")
	g.addNode("blobs", "value.v0")
	g.addNode("web", "project.v0")
	g.addEdge("blobs", "storage")
	g.addEdge("web", "blobs")
	g.addEdge("web", "storage")
	g.addEdge("web", "blobs")
	return g
}

func TestGraphEdgesAreDeduplicated(t *testing.T) {
	g := sampleGraph()

	assert.Len(t, g.Edges, 3)
	assert.Equal(t, []string{"blobs", "storage"}, g.DependenciesOf("web"))
	assert.Nil(t, g.DependenciesOf("storage"))
}

func TestGraphDOT(t *testing.T) {
	want := `digraph apphost {
  rankdir=LR;
  n0 [label="storage\n(azure.bicep.v0)"];
  n1 [label="blobs\n(value.v0)"];
  n2 [label="web\n(project.v0)"];
  n1 -> n0;
  n2 -> n1;
  n2 -> n0;
}
`
	assert.Equal(t, want, sampleGraph().DOT())
}

func TestGraphMermaid(t *testing.T) {
	want := `graph TD
    n0["storage<br/>(azure.bicep.v0)"]
    n1["blobs<br/>(value.v0)"]
    n2["web<br/>(project.v0)"]
    n1 --> n0
    n2 --> n1
    n2 --> n0
`
	assert.Equal(t, want, sampleGraph().Mermaid())
}

func TestGraphEscapesQuotes(t *testing.T) {
	g := &Graph{}
	g.addNode(`say "hi"`, "")

	assert.Contains(t, g.DOT(), `n0 [label="say \"hi\""];`)
	assert.Contains(t, g.Mermaid(), `n0["say \"hi\""]`)
}

func TestGraphCycles(t *testing.T) {
	t.Run("acyclic", func(t *testing.T) {
		assert.Empty(t, sampleGraph().Cycles())
	})

	t.Run("two cycles", func(t *testing.T) {
		g := &Graph{}
		for _, n := range []string{"a", "b", "c", "d"} {
			g.addNode(n, "")
		}
		g.addEdge("a", "b")
		g.addEdge("b", "a")
		g.addEdge("c", "d")
		g.addEdge("d", "c")

		assert.Equal(t, [][]string{{"a", "b", "a"}, {"c", "d", "c"}}, g.Cycles())
	})

	t.Run("self reference", func(t *testing.T) {
		g := &Graph{}
		g.addNode("a", "")
		g.addEdge("a", "a")

		assert.Equal(t, [][]string{{"a", "a"}}, g.Cycles())
	})
}
