package store_test

import (
	"testing"

	"github.com/dominikbraun/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-mlprep/internal/store"
)

func newGraph(t *testing.T) (graph.Graph[string, string], store.CustomStore[string, string]) {
	t.Helper()

	s := store.NewMemoryStore[string, string]()
	g := graph.NewWithStore(graph.StringHash, s, graph.Directed(), graph.PreventCycles())

	for _, v := range []string{"start", "read", "transform", "end"} {
		require.NoError(t, g.AddVertex(v))
	}

	require.NoError(t, g.AddEdge("start", "read"))
	require.NoError(t, g.AddEdge("read", "transform"))
	require.NoError(t, g.AddEdge("transform", "end"))

	return g, s
}

func TestUpdateVertex(t *testing.T) {
	t.Parallel()

	g, s := newGraph(t)

	require.NoError(t, s.UpdateVertex("read", graph.VertexAttribute("xlabel", "12ms")))

	_, properties, err := g.VertexWithProperties("read")
	require.NoError(t, err)
	assert.Equal(t, "12ms", properties.Attributes["xlabel"])
}

func TestUpdateVertexNotFound(t *testing.T) {
	t.Parallel()

	_, s := newGraph(t)

	err := s.UpdateVertex("write", graph.VertexAttribute("xlabel", "1s"))
	require.ErrorIs(t, err, graph.ErrVertexNotFound)
}

func TestVertexPropertiesAreCopied(t *testing.T) {
	t.Parallel()

	g, s := newGraph(t)
	require.NoError(t, s.UpdateVertex("read", graph.VertexAttribute("xlabel", "12ms")))

	_, properties, err := g.VertexWithProperties("read")
	require.NoError(t, err)

	delete(properties.Attributes, "xlabel")

	_, properties, err = g.VertexWithProperties("read")
	require.NoError(t, err)
	assert.Equal(t, "12ms", properties.Attributes["xlabel"])
}

func TestCreatesCycle(t *testing.T) {
	t.Parallel()

	g, s := newGraph(t)

	cycle, err := s.CreatesCycle("end", "start")
	require.NoError(t, err)
	assert.True(t, cycle)

	cycle, err = s.CreatesCycle("start", "end")
	require.NoError(t, err)
	assert.False(t, cycle)

	err = g.AddEdge("end", "read")
	require.ErrorIs(t, err, graph.ErrEdgeCreatesCycle)
}

func TestRemoveVertex(t *testing.T) {
	t.Parallel()

	g, _ := newGraph(t)

	require.ErrorIs(t, g.RemoveVertex("read"), graph.ErrVertexHasEdges)

	require.NoError(t, g.AddVertex("orphan"))
	require.NoError(t, g.RemoveVertex("orphan"))

	_, err := g.Vertex("orphan")
	require.ErrorIs(t, err, graph.ErrVertexNotFound)
}

func TestListEdges(t *testing.T) {
	t.Parallel()

	_, s := newGraph(t)

	edges, err := s.ListEdges()
	require.NoError(t, err)
	assert.Len(t, edges, 3)

	count, err := s.VertexCount()
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}
