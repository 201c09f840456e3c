package attack_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libshade/libshade/attack"
	"github.com/libshade/libshade/entropy"
	"github.com/libshade/libshade/graph"
	"github.com/libshade/libshade/model"
)

// scriptedDetector replays a fixed verdict sequence, then repeats the last
// one. A nil sequence makes every call fail.
type scriptedDetector struct {
	verdicts []attack.Detection
	calls    int
}

func (d *scriptedDetector) Detect(_ context.Context, _, _, _ string) (attack.Detection, error) {
	d.calls++
	if len(d.verdicts) == 0 {
		return attack.Detection{}, errors.New("detector unavailable")
	}
	idx := d.calls - 1
	if idx >= len(d.verdicts) {
		idx = len(d.verdicts) - 1
	}
	return d.verdicts[idx], nil
}

type stubReifier struct {
	calls int
}

func (r *stubReifier) Reify(_ context.Context, _ *model.CodeModel, outputDir string) (string, error) {
	r.calls++
	return outputDir, nil
}

func libraryModel(t *testing.T) *model.CodeModel {
	t.Helper()
	m := model.NewCodeModel()

	codec := model.NewClass("com.sample.codec.Encoder")
	codec.AddField(&model.Field{Name: "level", Access: "private", Type: model.Primitive("int"), Init: "0"})
	codec.AddField(&model.Field{Name: "name", Access: "private", Type: model.ClassType(model.StringClass), Init: `"fast"`})
	encode := &model.Method{Name: "encode", Access: "public", Return: model.Primitive("int")}
	encode.AddParameter("size", model.Primitive("int"))
	encode.Append(
		model.FieldWrite("com.sample.codec.Encoder", "level", "this", "size"),
		model.Return("size"),
	)
	codec.AddMethod(encode)
	require.NoError(t, m.AddClass(codec))

	buffer := model.NewClass("com.sample.codec.Buffer")
	fill := &model.Method{Name: "fill", Access: "public", Return: model.Void}
	fill.AddParameter("n", model.Primitive("int"))
	fill.Append(model.Invoke("com.sample.codec.Encoder", "encode", "encode(int)", "sink", "n"))
	buffer.AddField(&model.Field{Name: "sink", Access: "private", Type: model.ClassType("com.sample.codec.Encoder"), Init: "null"})
	buffer.AddMethod(fill)
	require.NoError(t, m.AddClass(buffer))
	return m
}

func libraryCandidates() []string {
	return []string{"com.sample.codec.Encoder", "com.sample.codec.Buffer"}
}

func plusConfig() attack.Config {
	cfg := attack.DefaultConfig()
	cfg.Mode = attack.ModeBlackBoxPlus
	cfg.MaxIterations = 8
	cfg.SwarmSize = 6
	cfg.Seed = 3
	return cfg
}

func blackBoxConfig() attack.Config {
	cfg := attack.DefaultConfig()
	cfg.MaxIterations = 6
	cfg.SwarmSize = 6
	cfg.Seed = 3
	cfg.OutputDir = "stub-artifact"
	return cfg
}

func TestNew_RequiresCodeModel(t *testing.T) {
	_, err := attack.New(plusConfig(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not initialized")
}

func TestNew_BlackBoxRequiresCollaborators(t *testing.T) {
	_, err := attack.New(blackBoxConfig(), libraryModel(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "detector")

	_, err = attack.New(blackBoxConfig(), libraryModel(t),
		attack.WithDetector(&scriptedDetector{}),
		attack.WithReifier(&stubReifier{}))
	require.NoError(t, err)
}

func TestEngine_BlackBoxPlusEntropyNeverDecreases(t *testing.T) {
	m := libraryModel(t)
	cfg := plusConfig()

	filter := map[string]bool{}
	for _, name := range libraryCandidates() {
		filter[name] = true
	}
	calc := entropy.NewCalculator(cfg.Mu)
	initial := calc.GraphEntropy(graph.Build(m.Clone(), filter))

	engine, err := attack.New(cfg, m)
	require.NoError(t, err)

	result, err := engine.Run(context.Background(), libraryCandidates(), "lib.jar", "codec")
	require.NoError(t, err)

	assert.Equal(t, cfg.MaxIterations, result.TotalIterations)
	assert.GreaterOrEqual(t, result.FinalEntropy, initial)
	assert.False(t, result.Evaded)
	for _, rec := range result.Iterations {
		assert.Equal(t, float64(-1), rec.Confidence)
	}
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, "codec", result.LibraryName)
}

func TestEngine_BlackBoxAcceptsBelowThreshold(t *testing.T) {
	detector := &scriptedDetector{verdicts: []attack.Detection{
		{Detected: true, Confidence: 0.9},
		{Detected: true, Confidence: 0.9},
		{Detected: true, Confidence: 0.9},
		{Detected: true, Confidence: 0.9},
		{Detected: true, Confidence: 0.2},
	}}
	reifier := &stubReifier{}

	engine, err := attack.New(blackBoxConfig(), libraryModel(t),
		attack.WithDetector(detector),
		attack.WithReifier(reifier))
	require.NoError(t, err)

	result, err := engine.Run(context.Background(), libraryCandidates(), "lib.jar", "codec")
	require.NoError(t, err)

	assert.Equal(t, attack.PhaseExhausted, result.Phase)
	assert.False(t, result.Evaded)
	assert.GreaterOrEqual(t, result.SuccessfulIterations, 1)
	assert.Equal(t, "stub-artifact", result.ArtifactPath)
	require.NotNil(t, result.LastDetection)
	assert.InDelta(t, 0.2, result.LastDetection.Confidence, 1e-9)

	for _, rec := range result.Iterations {
		if rec.Confidence >= 0.5 {
			assert.False(t, rec.Accepted, "iteration %d", rec.Index)
		} else if rec.Confidence >= 0 {
			assert.True(t, rec.Accepted, "iteration %d", rec.Index)
		}
	}
}

func TestEngine_BlackBoxStopsOnEvasion(t *testing.T) {
	detector := &scriptedDetector{verdicts: []attack.Detection{
		{Detected: true, Confidence: 0.9},
		{Detected: true, Confidence: 0.8},
		{Detected: false, Confidence: 0.1},
	}}

	engine, err := attack.New(blackBoxConfig(), libraryModel(t),
		attack.WithDetector(detector),
		attack.WithReifier(&stubReifier{}))
	require.NoError(t, err)

	result, err := engine.Run(context.Background(), libraryCandidates(), "lib.jar", "codec")
	require.NoError(t, err)

	assert.True(t, result.Evaded)
	assert.Equal(t, attack.PhaseConverged, result.Phase)
	assert.Equal(t, 3, result.TotalIterations)
	assert.Equal(t, 3, detector.calls)
}

func TestEngine_DegradesAfterRepeatedCollaboratorFailures(t *testing.T) {
	detector := &scriptedDetector{} // every call errors
	reifier := &stubReifier{}

	engine, err := attack.New(blackBoxConfig(), libraryModel(t),
		attack.WithDetector(detector),
		attack.WithReifier(reifier))
	require.NoError(t, err)

	result, err := engine.Run(context.Background(), libraryCandidates(), "lib.jar", "codec")
	require.NoError(t, err)

	// three consecutive failures degrade the mode; the detector is never
	// queried again afterwards
	assert.Equal(t, 3, detector.calls)
	assert.Equal(t, blackBoxConfig().MaxIterations, result.TotalIterations)
	assert.Equal(t, attack.PhaseExhausted, result.Phase)
	for _, rec := range result.Iterations {
		assert.Equal(t, float64(-1), rec.Confidence)
	}
}

func TestEngine_CancellationStopsAtIterationBoundary(t *testing.T) {
	engine, err := attack.New(plusConfig(), libraryModel(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := engine.Run(ctx, libraryCandidates(), "lib.jar", "codec")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, result.TotalIterations)
	assert.Equal(t, attack.PhaseExhausted, result.Phase)
}

func TestEngine_VersionLevelEvasion(t *testing.T) {
	cfg := blackBoxConfig()
	cfg.Level = attack.LevelVersion
	cfg.TargetVersion = "2.4.1"

	// still detected, but the target version vanished from the report
	detector := &scriptedDetector{verdicts: []attack.Detection{
		{Detected: true, Confidence: 0.9, Versions: []string{"2.4.1"}},
		{Detected: true, Confidence: 0.9, Versions: []string{"2.3.0"}},
	}}

	engine, err := attack.New(cfg, libraryModel(t),
		attack.WithDetector(detector),
		attack.WithReifier(&stubReifier{}))
	require.NoError(t, err)

	result, err := engine.Run(context.Background(), libraryCandidates(), "lib.jar", "codec")
	require.NoError(t, err)

	assert.True(t, result.Evaded)
	assert.Equal(t, 2, result.TotalIterations)
}
