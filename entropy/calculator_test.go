package entropy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libshade/libshade/entropy"
	"github.com/libshade/libshade/graph"
	"github.com/libshade/libshade/model"
)

func libraryModel() *model.CodeModel {
	m := model.NewCodeModel()

	thin := model.NewClass("com.lib.Thin")
	_ = m.AddClass(thin)

	rich := model.NewClass("com.lib.Rich")
	rich.AddField(&model.Field{Name: "cache", Access: "private", Type: model.Primitive("int")})
	rich.AddField(&model.Field{Name: "peer", Access: "private", Type: model.ClassType("com.lib.Thin")})
	compute := &model.Method{Name: "compute", Access: "public", Return: model.Primitive("int")}
	compute.AddParameter("seed", model.Primitive("int"))
	compute.AddParameter("scale", model.Primitive("double"))
	rich.AddMethod(compute)
	rich.AddMethod(&model.Method{Name: "reset", Access: "public", Return: model.Void})
	_ = m.AddClass(rich)

	return m
}

func TestCalculator_ThinClassScoresLowest(t *testing.T) {
	g := graph.Build(libraryModel(), nil)
	calc := entropy.NewCalculator(entropy.DefaultMu)

	ranked := calc.ClassesSortedByEntropy(g)
	require.Len(t, ranked, 2)
	assert.Equal(t, "com.lib.Thin", ranked[0].Name)
	assert.Equal(t, "com.lib.Rich", ranked[1].Name)
	assert.Less(t, ranked[0].Entropy, ranked[1].Entropy)
}

func TestCalculator_MonotoneUnderAddition(t *testing.T) {
	g := graph.Build(libraryModel(), nil)
	calc := entropy.NewCalculator(entropy.DefaultMu)
	before := calc.GraphEntropy(g)

	// attach a fresh method to the thin class
	classID := graph.ClassID("com.lib.Thin")
	methodID := graph.MethodID("com.lib.Thin", "extra()")
	g.AddNode(&graph.Node{ID: methodID, Kind: graph.MethodNode, Attrs: graph.MethodAttrs{
		Name: "extra", Class: "com.lib.Thin", Descriptor: "extra()", Return: "void",
	}})
	require.NoError(t, g.AddEdge(classID, methodID, graph.ContainsMethod))

	after := calc.GraphEntropy(g)
	assert.Greater(t, after, before)

	// attaching a field raises it again
	fieldID := graph.FieldID("com.lib.Thin", "aux0")
	g.AddNode(&graph.Node{ID: fieldID, Kind: graph.FieldNode, Attrs: graph.FieldAttrs{
		Name: "aux0", Class: "com.lib.Thin", Type: "int",
	}})
	require.NoError(t, g.AddEdge(classID, fieldID, graph.ContainsField))
	assert.Greater(t, calc.GraphEntropy(g), after)
}

func TestCalculator_ExternalCouplingCounts(t *testing.T) {
	m := libraryModel()
	g := graph.Build(m, nil)
	calc := entropy.NewCalculator(entropy.DefaultMu)

	entropies := map[string]entropy.ClassEntropy{}
	for _, ce := range calc.ClassEntropies(g) {
		entropies[ce.Name] = ce
	}

	// the Rich.peer field references Thin, so both sides carry external mass
	assert.Greater(t, entropies["com.lib.Thin"].External, 0.0)
	assert.Greater(t, entropies["com.lib.Rich"].External, 0.0)
	assert.Zero(t, entropies["com.lib.Thin"].Internal)
}

func TestCalculator_PackageEntropyIsClassMean(t *testing.T) {
	g := graph.Build(libraryModel(), nil)
	calc := entropy.NewCalculator(entropy.DefaultMu)

	sum := 0.0
	for _, ce := range calc.ClassEntropies(g) {
		sum += ce.Entropy
	}
	mean := sum / 2

	for _, pe := range calc.PackagesSortedByEntropy(g) {
		switch pe.Name {
		case "com.lib":
			assert.InDelta(t, mean, pe.Entropy, 1e-9)
		case "com":
			// no directly contained classes
			assert.Zero(t, pe.Entropy)
		}
	}
}

func TestCalculator_InvalidMuFallsBack(t *testing.T) {
	calc := entropy.NewCalculator(1.5)
	assert.Equal(t, entropy.DefaultMu, calc.Mu())
}
