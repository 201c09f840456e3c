package firefly_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libshade/libshade/firefly"
	"github.com/libshade/libshade/graph"
)

func TestFirefly_ActionDecode(t *testing.T) {
	tests := []struct {
		name     string
		position [firefly.Dimensions]float64
		wantKind graph.NodeKind
		wantOp   firefly.Operation
	}{
		{
			name:     "low values decode to package add",
			position: [firefly.Dimensions]float64{0.2, 0.5, 0},
			wantKind: graph.PackageNode,
			wantOp:   firefly.OpAdd,
		},
		{
			name:     "negative operation dimension decodes to merge",
			position: [firefly.Dimensions]float64{2.7, -0.4, 1},
			wantKind: graph.MethodNode,
			wantOp:   firefly.OpMerge,
		},
		{
			name:     "kind dimension above range clamps to parameter",
			position: [firefly.Dimensions]float64{9.0, 1, -2},
			wantKind: graph.ParameterNode,
			wantOp:   firefly.OpAdd,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := &firefly.Firefly{Position: tc.position}
			action := f.Action()
			assert.Equal(t, tc.wantKind, action.NodeKind)
			assert.Equal(t, tc.wantOp, action.Operation)
			assert.Greater(t, action.Ratio, 0.0)
			assert.LessOrEqual(t, action.Ratio, 1.0)
		})
	}
}

func TestFirefly_DecodeDeterministic(t *testing.T) {
	f := &firefly.Firefly{Position: [firefly.Dimensions]float64{3.3, -0.1, 0.7}}
	first := f.Action()
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, f.Action())
	}
}

func TestFirefly_RatioMonotone(t *testing.T) {
	low := &firefly.Firefly{Position: [firefly.Dimensions]float64{0, 1, -3}}
	high := &firefly.Firefly{Position: [firefly.Dimensions]float64{0, 1, 3}}
	assert.Less(t, low.Action().Ratio, high.Action().Ratio)
}

func TestAlgorithm_IterateBeforeInitialize(t *testing.T) {
	a := firefly.New(5, 1, nil)
	err := a.Iterate(graph.New())
	assert.ErrorIs(t, err, firefly.ErrNotInitialized)
	err = a.IterateWithoutIntensityUpdate(graph.New())
	assert.ErrorIs(t, err, firefly.ErrNotInitialized)
	assert.Nil(t, a.Best())
}

func TestAlgorithm_InitializeSeedsWithinBounds(t *testing.T) {
	a := firefly.New(20, 42, nil)
	a.Initialize()
	swarm := a.Swarm()
	require.Len(t, swarm, 20)
	for _, f := range swarm {
		action := f.Action()
		assert.GreaterOrEqual(t, int(action.NodeKind), 0)
		assert.LessOrEqual(t, int(action.NodeKind), 4)
	}
}

func TestAlgorithm_IterateTracksEvaluator(t *testing.T) {
	// intensity equals the ratio dimension, so the brightest firefly is
	// the one with the highest third coordinate
	evaluate := func(g *graph.Graph, f *firefly.Firefly) float64 {
		return f.Action().Ratio
	}
	a := firefly.New(10, 7, evaluate)
	a.Initialize()
	require.NoError(t, a.Iterate(graph.New()))

	best := a.Best()
	require.NotNil(t, best)
	for _, f := range a.Swarm() {
		assert.LessOrEqual(t, f.Intensity, best.Intensity)
	}
}

func TestAlgorithm_SwarmMovesWithUniformIntensities(t *testing.T) {
	a := firefly.New(6, 11, nil)
	a.Initialize()

	before := make([][firefly.Dimensions]float64, 0, 6)
	for _, f := range a.Swarm() {
		before = append(before, f.Position)
	}
	require.NoError(t, a.IterateWithoutIntensityUpdate(graph.New()))
	for i, f := range a.Swarm() {
		assert.NotEqual(t, before[i], f.Position)
	}
}

func TestAlgorithm_BestKeepsExploring(t *testing.T) {
	// only the best member ever receives an intensity, as in black-box
	// mode, yet its position must still change between iterations
	a := firefly.New(6, 23, nil)
	a.Initialize()

	seen := map[[firefly.Dimensions]float64]bool{}
	for i := 0; i < 10; i++ {
		require.NoError(t, a.IterateWithoutIntensityUpdate(graph.New()))
		best := a.Best()
		require.NotNil(t, best)
		seen[best.Position] = true
		a.UpdateIntensityWithDetectionScore(best, 0.4)
	}
	assert.Greater(t, len(seen), 1)
}

func TestAlgorithm_DetectionScoreClamped(t *testing.T) {
	a := firefly.New(3, 1, nil)
	a.Initialize()
	f := a.Swarm()[0]

	a.UpdateIntensityWithDetectionScore(f, 0.3)
	assert.InDelta(t, 0.7, f.Intensity, 1e-9)

	a.UpdateIntensityWithDetectionScore(f, 1.8)
	assert.Zero(t, f.Intensity)

	a.UpdateIntensityWithDetectionScore(f, -0.5)
	assert.Equal(t, 1.0, f.Intensity)
}

func TestAlgorithm_SeedReproducible(t *testing.T) {
	a := firefly.New(8, 99, nil)
	b := firefly.New(8, 99, nil)
	a.Initialize()
	b.Initialize()
	for i := range a.Swarm() {
		assert.Equal(t, a.Swarm()[i].Position, b.Swarm()[i].Position)
	}
}
