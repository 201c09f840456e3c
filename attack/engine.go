// Package attack ties the heterogeneous graph, the entropy metric, the
// firefly swarm and the perturbation operators into the iterative attack
// loop that rewrites an embedded library until a detector stops
// recognizing it.
package attack

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/libshade/libshade/entropy"
	"github.com/libshade/libshade/firefly"
	"github.com/libshade/libshade/graph"
	"github.com/libshade/libshade/model"
	"github.com/libshade/libshade/perturb"
)

// degradeAfter is how many consecutive external-collaborator failures the
// black-box loop tolerates before degrading to black-box-plus.
const degradeAfter = 3

// Engine runs one attack against one program/library pair. Engines are
// single-threaded and own their code model handle; run concurrent attacks
// with independent engines over independent models.
type Engine struct {
	cfg     Config
	mode    Mode // may degrade at runtime, cfg.Mode stays as configured
	calc    *entropy.Calculator
	applier *perturb.Applier
	swarm   *firefly.Algorithm
	state   *perturb.State
	rng     *rand.Rand

	detector  Detector
	decoupler Decoupler
	reifier   Reifier
	logger    *Logger

	phase   Phase
	current *graph.Graph
}

// Option configures an engine.
type Option func(*Engine)

// WithDetector wires the external detection tool.
func WithDetector(d Detector) Option {
	return func(e *Engine) { e.detector = d }
}

// WithDecoupler wires the library-class identification collaborator.
func WithDecoupler(d Decoupler) Option {
	return func(e *Engine) { e.decoupler = d }
}

// WithReifier wires the artifact writer.
func WithReifier(r Reifier) Option {
	return func(e *Engine) { e.reifier = r }
}

// WithLogger replaces the default silent logger.
func WithLogger(l *Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an engine over a code model. A missing code model is the one
// fatal initialization error; everything later degrades instead of
// aborting.
func New(cfg Config, m *model.CodeModel, opts ...Option) (*Engine, error) {
	if m == nil {
		return nil, fmt.Errorf("attack: code model collaborator not initialized")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("attack: %w", err)
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	calc := entropy.NewCalculator(cfg.Mu)
	e := &Engine{
		cfg:     cfg,
		mode:    cfg.Mode,
		calc:    calc,
		applier: perturb.NewApplier(calc, rng),
		rng:     rng,
		logger:  NewSilentLogger(),
		state:   perturb.NewState(m, nil),
	}
	for _, opt := range opts {
		opt(e)
	}
	if cfg.Mode == ModeBlackBox && (e.detector == nil || e.reifier == nil) {
		return nil, fmt.Errorf("attack: black_box mode requires a detector and a reifier")
	}
	return e, nil
}

// Phase reports the engine's current state-machine position.
func (e *Engine) Phase() Phase {
	return e.phase
}

// Run executes the attack: decouple, build the graph, seed the swarm, then
// iterate until evasion, early convergence, exhaustion or cancellation.
func (e *Engine) Run(ctx context.Context, candidates []string, libraryPath, libraryName string) (*Result, error) {
	result := newResult(libraryName)

	e.phase = PhaseDecouple
	e.decouple(candidates)

	e.phase = PhaseBuildGraph
	e.state.Log = &perturb.Log{}
	e.current = graph.Build(e.state.Model, e.state.Filter)
	e.logger.Info("graph built: %d nodes over %d classes", e.current.TotalNodes(), e.current.NodeCount(graph.ClassNode))

	e.phase = PhaseInitSwarm
	e.swarm = firefly.New(e.cfg.SwarmSize, e.cfg.Seed, e.entropyEvaluator())
	e.swarm.Initialize()

	e.phase = PhaseIterate
	externalFailures := 0
	bestConfidence := 2.0
	bestEntropy := -1.0

	for i := 0; i < e.cfg.MaxIterations; i++ {
		// cooperative cancellation, only at iteration boundaries
		if err := ctx.Err(); err != nil {
			e.finish(ctx, result, PhaseExhausted)
			return result, err
		}

		var rec IterationRecord
		var err error
		if e.mode == ModeBlackBox {
			rec, err = e.iterateBlackBox(ctx, result, libraryPath, libraryName)
			if err != nil {
				externalFailures++
				if externalFailures >= degradeAfter {
					e.logger.Warn("external collaborator failing repeatedly, degrading to %s", ModeBlackBoxPlus)
					e.mode = ModeBlackBoxPlus
				}
			} else {
				externalFailures = 0
			}
		} else {
			rec = e.iterateBlackBoxPlus()
		}
		rec.Index = i
		result.TotalIterations++
		result.Iterations = append(result.Iterations, rec)
		if rec.Accepted {
			result.SuccessfulIterations++
			if e.mode == ModeBlackBox && rec.Confidence >= 0 && rec.Confidence < bestConfidence {
				bestConfidence = rec.Confidence
				result.BestIteration = i
			}
			if e.mode == ModeBlackBoxPlus && rec.Entropy > bestEntropy {
				bestEntropy = rec.Entropy
				result.BestIteration = i
			}
		}

		if result.Evaded {
			e.finish(ctx, result, PhaseConverged)
			return result, nil
		}
		if result.SuccessRate() >= e.cfg.TargetSuccessRate {
			e.logger.Info("success rate %.2f reached target %.2f after %d iterations",
				result.SuccessRate(), e.cfg.TargetSuccessRate, result.TotalIterations)
			e.finish(ctx, result, PhaseConverged)
			return result, nil
		}
	}

	e.finish(ctx, result, PhaseExhausted)
	return result, nil
}

// decouple narrows the candidate set to library classes, falling back to
// the full candidate set when identification yields nothing.
func (e *Engine) decouple(candidates []string) {
	filter := map[string]bool{}
	if e.decoupler != nil {
		identified, err := e.decoupler.IdentifyLibraryClasses(candidates)
		if err != nil {
			e.logger.Warn("decoupler failed: %v", err)
		} else {
			filter = identified
		}
	}
	if len(filter) == 0 {
		for _, name := range candidates {
			filter[name] = true
		}
	}
	e.state.Filter = filter
}

// entropyEvaluator scores a firefly by applying its action to scratch
// copies of the graph and model and measuring the resulting entropy. The
// real state is never touched during evaluation.
func (e *Engine) entropyEvaluator() firefly.Evaluator {
	return func(g *graph.Graph, f *firefly.Firefly) float64 {
		outcome, err := e.applier.Apply(f, g, e.scratchState())
		if err != nil {
			return 0
		}
		return e.calc.GraphEntropy(outcome.Graph)
	}
}

func (e *Engine) scratchState() *perturb.State {
	filter := make(map[string]bool, len(e.state.Filter))
	for k, v := range e.state.Filter {
		filter[k] = v
	}
	return &perturb.State{
		Model:         e.state.Model.Clone(),
		Filter:        filter,
		ExtraPackages: append([]string{}, e.state.ExtraPackages...),
		Log:           &perturb.Log{},
	}
}

// iterateBlackBox runs one swarm step, applies the best action, reifies
// the mutated model, queries the detector and decides acceptance from its
// confidence. A returned error marks an external-collaborator failure; the
// iteration then counts as failed but the loop continues.
func (e *Engine) iterateBlackBox(ctx context.Context, result *Result, libraryPath, libraryName string) (IterationRecord, error) {
	rec := IterationRecord{Confidence: -1}

	// true fitness for the new positions arrives only after detection, so
	// the swarm moves on the intensities it already carries
	if err := e.swarm.IterateWithoutIntensityUpdate(e.current); err != nil {
		e.logger.Error("swarm iteration failed: %v", err)
		return rec, nil
	}
	best := e.swarm.Best()

	outcome, err := e.applier.Apply(best, e.current, e.state)
	if err != nil {
		e.logger.Warn("perturbation failed: %v", err)
		return rec, nil
	}
	e.fillRecord(&rec, outcome)

	limited, cancel := context.WithTimeout(ctx, time.Duration(e.cfg.CollaboratorLimit))
	defer cancel()

	artifact, err := e.reifier.Reify(limited, e.state.Model, e.cfg.OutputDir)
	if err != nil {
		e.logger.Warn("reification failed: %v", err)
		return rec, err
	}
	result.ArtifactPath = artifact

	det, err := e.detector.Detect(limited, artifact, libraryPath, libraryName)
	if err != nil {
		// timeout or crash counts as a failed detection attempt, not fatal
		e.logger.Warn("detection failed: %v", err)
		return rec, err
	}
	result.LastDetection = &det
	rec.Confidence = det.Confidence
	e.swarm.UpdateIntensityWithDetectionScore(best, det.Confidence)

	switch {
	case evaded(e.cfg, det):
		e.logger.Info("detector evaded (confidence %.2f)", det.Confidence)
		e.accept(outcome)
		rec.Accepted = true
		result.Evaded = true
	case det.Confidence < e.cfg.AcceptThreshold:
		e.accept(outcome)
		rec.Accepted = true
	default:
		// graph mutation discarded; the code model deliberately keeps its
		// changes; the attack never walks backward in code-space
	}
	return rec, nil
}

// iterateBlackBoxPlus runs one swarm step and accepts the mutation iff the
// graph entropy strictly increased.
func (e *Engine) iterateBlackBoxPlus() IterationRecord {
	rec := IterationRecord{Confidence: -1}

	if err := e.swarm.Iterate(e.current); err != nil {
		e.logger.Error("swarm iteration failed: %v", err)
		return rec
	}
	best := e.swarm.Best()

	outcome, err := e.applier.Apply(best, e.current, e.state)
	if err != nil {
		e.logger.Warn("perturbation failed: %v", err)
		return rec
	}
	e.fillRecord(&rec, outcome)

	before := e.calc.GraphEntropy(e.current)
	after := e.calc.GraphEntropy(outcome.Graph)
	rec.Entropy = after
	if after > before {
		e.accept(outcome)
		rec.Accepted = true
	}
	return rec
}

func (e *Engine) fillRecord(rec *IterationRecord, outcome *perturb.Outcome) {
	rec.Operation = outcome.Action.Operation.String()
	rec.NodeKind = outcome.Action.NodeKind.String()
	rec.Requested = outcome.Requested
	rec.Applied = outcome.Applied
	e.logger.Debug("%s %s: requested %d applied %d, nodes %d -> %d",
		rec.Operation, rec.NodeKind, rec.Requested, rec.Applied, outcome.NodesBefore, outcome.NodesAfter)
}

func (e *Engine) accept(outcome *perturb.Outcome) {
	e.current = outcome.Graph
}

// finish closes out the run: final entropy, modification log, and a final
// artifact even on exhaustion so there is always an output to inspect.
func (e *Engine) finish(ctx context.Context, result *Result, phase Phase) {
	e.phase = phase
	result.Phase = phase
	result.FinalEntropy = e.calc.GraphEntropy(e.current)
	result.Modifications = e.state.Log.Records()
	if e.reifier != nil && result.ArtifactPath == "" {
		limited, cancel := context.WithTimeout(ctx, time.Duration(e.cfg.CollaboratorLimit))
		defer cancel()
		artifact, err := e.reifier.Reify(limited, e.state.Model, e.cfg.OutputDir)
		if err != nil {
			e.logger.Error("final reification failed: %v", err)
			return
		}
		result.ArtifactPath = artifact
	}
}

// CurrentGraph exposes the accepted graph, mainly for reporting and tests.
func (e *Engine) CurrentGraph() *graph.Graph {
	return e.current
}

// ModificationLog exposes the accumulated modification records.
func (e *Engine) ModificationLog() *perturb.Log {
	return e.state.Log
}
