package perturb_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libshade/libshade/entropy"
	"github.com/libshade/libshade/graph"
	"github.com/libshade/libshade/model"
	"github.com/libshade/libshade/perturb"
)

// libraryModel builds a small two-class library with one cross-class call,
// enough structure for every adding operator to find a target.
func libraryModel(t *testing.T) *model.CodeModel {
	t.Helper()
	m := model.NewCodeModel()

	alpha := model.NewClass("com.acme.util.Alpha")
	alpha.AddField(&model.Field{Name: "count", Access: "private", Type: model.Primitive("int"), Init: "0"})
	work := &model.Method{Name: "work", Access: "public", Return: model.Void}
	work.AddParameter("n", model.Primitive("int"))
	work.Append(model.FieldWrite("com.acme.util.Alpha", "count", "this", "n"))
	alpha.AddMethod(work)
	require.NoError(t, m.AddClass(alpha))

	beta := model.NewClass("com.acme.util.Beta")
	beta.AddField(&model.Field{Name: "helper", Access: "private", Type: model.ClassType("com.acme.util.Alpha"), Init: "null"})
	ctor := &model.Method{Name: model.ConstructorName, Access: "public", Constructor: true, Return: model.Void}
	ctor.Append(
		model.Raw("super();"),
		model.Invoke("com.acme.util.Alpha", "work", "work(int)", "helper", "1"),
	)
	beta.AddMethod(ctor)
	require.NoError(t, m.AddClass(beta))
	return m
}

func newContext(t *testing.T, m *model.CodeModel) *perturb.Context {
	t.Helper()
	state := perturb.NewState(m, nil)
	return &perturb.Context{
		State: state,
		Graph: graph.Build(m, state.Filter),
		Calc:  entropy.NewCalculator(entropy.DefaultMu),
		Rng:   rand.New(rand.NewSource(7)),
	}
}

func totalFields(m *model.CodeModel) int {
	n := 0
	for _, c := range m.Classes {
		n += len(c.Fields)
	}
	return n
}

func totalMethods(m *model.CodeModel) int {
	n := 0
	for _, c := range m.Classes {
		n += len(c.Methods)
	}
	return n
}

func TestAddPackages(t *testing.T) {
	ctx := newContext(t, libraryModel(t))
	before := ctx.Graph.NodeCount(graph.PackageNode)

	applied := perturb.AddPackages(ctx, 2)

	assert.Equal(t, 2, applied)
	assert.Equal(t, before+2, ctx.Graph.NodeCount(graph.PackageNode))
	assert.Len(t, ctx.ExtraPackages, 2)
	for _, pkg := range ctx.ExtraPackages {
		id := graph.PackageID(pkg)
		require.True(t, ctx.Graph.HasNode(id))
		_, ok := ctx.Graph.ContainmentParent(id)
		assert.True(t, ok, "synthesized package %s must be contained", pkg)
	}

	// synthesized packages survive a graph rebuild
	ctx.RebuildGraph()
	for _, pkg := range ctx.ExtraPackages {
		assert.True(t, ctx.Graph.HasNode(graph.PackageID(pkg)))
	}
}

func TestAddClasses(t *testing.T) {
	ctx := newContext(t, libraryModel(t))
	before := len(ctx.Model.Classes)

	applied := perturb.AddClasses(ctx, 1)

	require.Equal(t, 1, applied)
	require.Len(t, ctx.Model.Classes, before+1)

	records := ctx.Log.Records()
	require.Len(t, records, 1)
	added := ctx.Model.Class(records[0].Target)
	require.NotNil(t, added)
	assert.True(t, ctx.Filter[added.Name])
	assert.True(t, ctx.Graph.HasNode(graph.ClassID(added.Name)))

	ctors := added.Constructors()
	require.Len(t, ctors, 1)
	assert.Equal(t, "super();", ctors[0].Body[0].Text)

	// the class is linked to an existing class, never an island
	require.NotNil(t, added.GetField("linked"))
	assert.True(t, ctx.Graph.HasEdge(
		graph.FieldID(added.Name, "linked"),
		graph.ClassID(added.GetField("linked").Type.Name),
		graph.FieldRef,
	))
}

func TestAddMethods(t *testing.T) {
	ctx := newContext(t, libraryModel(t))
	before := totalMethods(ctx.Model)

	applied := perturb.AddMethods(ctx, 2)

	assert.Equal(t, 2, applied)
	assert.Equal(t, before+2, totalMethods(ctx.Model))
	for _, record := range ctx.Log.Records() {
		require.Equal(t, "add_method", record.Operation)
		class := ctx.Model.Class(record.Target)
		require.NotNil(t, class)
		method := class.GetMethod(record.After)
		require.NotNil(t, method)
		assert.True(t, ctx.Graph.HasNode(graph.MethodID(class.Name, record.After)))
		if !method.Return.IsVoid() {
			last := method.Body[len(method.Body)-1]
			assert.Equal(t, model.InstrReturn, last.Kind)
		}
	}
}

func TestAddFields(t *testing.T) {
	ctx := newContext(t, libraryModel(t))
	before := totalFields(ctx.Model)
	calc := entropy.NewCalculator(entropy.DefaultMu)
	entropyBefore := calc.GraphEntropy(ctx.Graph)

	applied := perturb.AddFields(ctx, 2)

	assert.Equal(t, 2, applied)
	assert.Equal(t, before+2, totalFields(ctx.Model))
	assert.Equal(t, applied, ctx.Log.Len())

	entropyAfter := calc.GraphEntropy(ctx.Graph)
	assert.Greater(t, entropyAfter, entropyBefore)

	for _, record := range ctx.Log.Records() {
		require.Equal(t, "add_field", record.Operation)
		require.NotNil(t, ctx.Model.Class(record.Target))
	}
}

func TestAddParameters_RewritesEveryCallSite(t *testing.T) {
	ctx := newContext(t, libraryModel(t))

	// Alpha#work(int) is the only eligible method; Beta carries only a
	// constructor. Its single caller is the Beta constructor.
	oldDesc := "work(int)"
	oldID := graph.MethodID("com.acme.util.Alpha", oldDesc)
	callerID := graph.MethodID("com.acme.util.Beta", "<init>()")
	require.True(t, ctx.Graph.HasEdge(callerID, oldID, graph.Invokes))

	applied := perturb.AddParameters(ctx, 1)
	require.Equal(t, 1, applied)

	records := ctx.Log.Records()
	require.Len(t, records, 1)
	record := records[0]
	assert.Equal(t, "com.acme.util.Alpha", record.Target)
	assert.Equal(t, oldDesc, record.Before)

	alpha := ctx.Model.Class("com.acme.util.Alpha")
	assert.Nil(t, alpha.GetMethod(oldDesc))
	method := alpha.GetMethod(record.After)
	require.NotNil(t, method)
	require.Len(t, method.Params, 2)
	extra := method.Params[1]

	// every call site carries the new descriptor plus a default argument
	assert.Empty(t, ctx.Model.CallSites("com.acme.util.Alpha", oldDesc))
	sites := ctx.Model.CallSites("com.acme.util.Alpha", record.After)
	require.Len(t, sites, 1)
	ins := sites[0].Instruction()
	require.Len(t, ins.Args, 2)
	assert.Equal(t, model.DefaultValue(extra.Type), ins.Args[1])

	// the rebuilt method node keeps its inbound invocation edge
	newID := graph.MethodID("com.acme.util.Alpha", record.After)
	assert.False(t, ctx.Graph.HasNode(oldID))
	require.True(t, ctx.Graph.HasNode(newID))
	assert.True(t, ctx.Graph.HasEdge(callerID, newID, graph.Invokes))
}

func TestAddParameters_RecursiveMethodKeepsSelfEdge(t *testing.T) {
	m := model.NewCodeModel()
	loop := model.NewClass("com.acme.util.Loop")
	step := &model.Method{Name: "step", Access: "public", Return: model.Void}
	step.AddParameter("n", model.Primitive("int"))
	step.Append(model.Invoke("com.acme.util.Loop", "step", "step(int)", "this", "n"))
	loop.AddMethod(step)
	require.NoError(t, m.AddClass(loop))

	ctx := newContext(t, m)
	oldID := graph.MethodID("com.acme.util.Loop", "step(int)")
	require.True(t, ctx.Graph.HasEdge(oldID, oldID, graph.Invokes))

	require.Equal(t, 1, perturb.AddParameters(ctx, 1))

	records := ctx.Log.Records()
	require.Len(t, records, 1)
	newID := graph.MethodID("com.acme.util.Loop", records[0].After)
	assert.False(t, ctx.Graph.HasNode(oldID))
	require.True(t, ctx.Graph.HasNode(newID))

	// the self-invocation follows the method onto its new id
	assert.True(t, ctx.Graph.HasEdge(newID, newID, graph.Invokes))
	assert.Empty(t, ctx.Graph.Predecessors(oldID, graph.Invokes))
}
