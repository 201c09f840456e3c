package graph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libshade/libshade/graph"
	"github.com/libshade/libshade/model"
)

func sampleModel() *model.CodeModel {
	m := model.NewCodeModel()

	iface := model.NewClass("com.lib.Worker")
	iface.Interface = true
	iface.AddMethod(&model.Method{Name: "work", Abstract: true, Return: model.Void})
	_ = m.AddClass(iface)

	base := model.NewClass("com.lib.Base")
	_ = m.AddClass(base)

	impl := model.NewClass("com.lib.core.Engine")
	impl.Super = "com.lib.Base"
	impl.Interfaces = []string{"com.lib.Worker"}
	impl.AddField(&model.Field{Name: "parent", Access: "private", Type: model.ClassType("com.lib.Base")})
	work := &model.Method{Name: "work", Access: "public", Return: model.Void}
	impl.AddMethod(work)
	run := &model.Method{Name: "run", Access: "public", Return: model.Primitive("int")}
	run.AddParameter("count", model.Primitive("int"))
	run.Append(
		model.Invoke("com.lib.core.Engine", "work", "work()", "this"),
		model.Return("count"),
	)
	impl.AddMethod(run)
	_ = m.AddClass(impl)

	return m
}

func TestGraph_AddEdgeRequiresEndpoints(t *testing.T) {
	g := graph.New()
	g.AddNode(&graph.Node{ID: "cls:A", Kind: graph.ClassNode, Attrs: graph.ClassAttrs{Name: "A"}})

	err := g.AddEdge("cls:A", "cls:B", graph.Inherits)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cls:B")

	err = g.AddEdge("cls:C", "cls:A", graph.Inherits)
	require.Error(t, err)

	// no half-registered edges remain
	assert.Empty(t, g.Edges())
}

func TestGraph_AddEdgeIdempotent(t *testing.T) {
	g := graph.New()
	g.AddNode(&graph.Node{ID: "cls:A", Kind: graph.ClassNode, Attrs: graph.ClassAttrs{Name: "A"}})
	g.AddNode(&graph.Node{ID: "cls:B", Kind: graph.ClassNode, Attrs: graph.ClassAttrs{Name: "B"}})

	require.NoError(t, g.AddEdge("cls:A", "cls:B", graph.Invokes))
	require.NoError(t, g.AddEdge("cls:A", "cls:B", graph.Invokes))

	assert.Len(t, g.Edges(), 1)
	assert.Equal(t, 1, g.OutDegree("cls:A", graph.Invokes))
}

func TestGraph_RemoveNodeDropsTouchingEdges(t *testing.T) {
	g := graph.New()
	g.AddNode(&graph.Node{ID: "cls:A", Kind: graph.ClassNode, Attrs: graph.ClassAttrs{Name: "A"}})
	g.AddNode(&graph.Node{ID: "cls:B", Kind: graph.ClassNode, Attrs: graph.ClassAttrs{Name: "B"}})
	require.NoError(t, g.AddEdge("cls:A", "cls:B", graph.Inherits))
	require.NoError(t, g.AddEdge("cls:B", "cls:A", graph.Invokes))

	require.True(t, g.RemoveNode("cls:B"))
	assert.Empty(t, g.Edges())
	assert.False(t, g.HasNode("cls:B"))
	assert.True(t, g.HasNode("cls:A"))
}

func TestBuild_ContainmentForest(t *testing.T) {
	g := graph.Build(sampleModel(), nil)

	// every non-package node has exactly one containment parent
	for _, kind := range []graph.NodeKind{graph.ClassNode, graph.MethodNode, graph.FieldNode, graph.ParameterNode} {
		for _, node := range g.NodesByKind(kind) {
			parents := 0
			for _, ek := range graph.EdgeKinds {
				if ek.IsContainment() {
					parents += g.InDegree(node.ID, ek)
				}
			}
			assert.Equal(t, 1, parents, "node %s", node.ID)
		}
	}

	// sub-packages chain up to a root package
	for _, node := range g.NodesByKind(graph.PackageNode) {
		seen := map[string]bool{}
		id := node.ID
		for {
			if seen[id] {
				t.Fatalf("containment cycle through %s", id)
			}
			seen[id] = true
			parent, ok := g.ContainmentParent(id)
			if !ok {
				break
			}
			id = parent
		}
	}
}

func TestBuild_NoDanglingEdges(t *testing.T) {
	g := graph.Build(sampleModel(), nil)
	for _, edge := range g.Edges() {
		assert.True(t, g.HasNode(edge.Src), "dangling source %s", edge.Src)
		assert.True(t, g.HasNode(edge.Dst), "dangling destination %s", edge.Dst)
	}
}

func TestBuild_ReferenceEdges(t *testing.T) {
	g := graph.Build(sampleModel(), nil)

	engine := graph.ClassID("com.lib.core.Engine")
	assert.True(t, g.HasEdge(engine, graph.ClassID("com.lib.Base"), graph.Inherits))
	assert.True(t, g.HasEdge(engine, graph.ClassID("com.lib.Worker"), graph.Implements))

	runID := graph.MethodID("com.lib.core.Engine", "run(int)")
	workID := graph.MethodID("com.lib.core.Engine", "work()")
	assert.True(t, g.HasEdge(runID, workID, graph.Invokes))

	fieldID := graph.FieldID("com.lib.core.Engine", "parent")
	assert.True(t, g.HasEdge(fieldID, graph.ClassID("com.lib.Base"), graph.FieldRef))
}

func TestBuild_FilterExcludesClasses(t *testing.T) {
	filter := map[string]bool{"com.lib.core.Engine": true}
	g := graph.Build(sampleModel(), filter)

	assert.True(t, g.HasNode(graph.ClassID("com.lib.core.Engine")))
	assert.False(t, g.HasNode(graph.ClassID("com.lib.Base")))

	// reference edges into excluded classes are dropped, not dangling
	for _, edge := range g.Edges() {
		assert.True(t, g.HasNode(edge.Src))
		assert.True(t, g.HasNode(edge.Dst))
	}
}

func TestGraph_CloneIndependence(t *testing.T) {
	g := graph.Build(sampleModel(), nil)
	clone := g.Clone()

	require.Equal(t, g.TotalNodes(), clone.TotalNodes())
	require.Equal(t, len(g.Edges()), len(clone.Edges()))

	before, err := g.Fingerprint()
	require.NoError(t, err)
	cloned, err := clone.Fingerprint()
	require.NoError(t, err)
	require.Equal(t, before, cloned)

	clone.AddNode(&graph.Node{ID: graph.ClassID("com.lib.Extra"), Kind: graph.ClassNode, Attrs: graph.ClassAttrs{Name: "com.lib.Extra"}})
	assert.False(t, g.HasNode(graph.ClassID("com.lib.Extra")))
	mutated, err := clone.Fingerprint()
	require.NoError(t, err)
	assert.NotEqual(t, before, mutated)
}
