package firefly

import (
	"errors"
	"math"
	"math/rand"

	"github.com/libshade/libshade/graph"
)

// DefaultSwarmSize is the fixed swarm size the attack uses.
const DefaultSwarmSize = 30

// ErrNotInitialized is returned when the swarm is iterated before
// Initialize.
var ErrNotInitialized = errors.New("firefly: algorithm not initialized")

// Evaluator scores one firefly's action against a graph and returns its
// light intensity. In black-box-plus mode this is the entropy the action
// would produce; in black-box mode intensities come from the detector via
// UpdateIntensityWithDetectionScore instead.
type Evaluator func(g *graph.Graph, f *Firefly) float64

// Algorithm is the swarm state machine: Uninitialized until Initialize,
// then Ready, then iterating. The swarm persists across attack iterations.
type Algorithm struct {
	swarm       []*Firefly
	rng         *rand.Rand
	evaluate    Evaluator
	size        int
	beta0       float64 // attraction at distance zero
	gamma       float64 // attraction decay with squared distance
	alpha       float64 // random jitter amplitude
	initialized bool
}

// New creates an algorithm with the given swarm size, random seed and
// evaluator. A non-positive size falls back to the default.
func New(size int, seed int64, evaluate Evaluator) *Algorithm {
	if size <= 0 {
		size = DefaultSwarmSize
	}
	return &Algorithm{
		size:     size,
		rng:      rand.New(rand.NewSource(seed)),
		evaluate: evaluate,
		beta0:    1.0,
		gamma:    1.0,
		alpha:    0.2,
	}
}

// Initialize seeds the swarm with uniformly random positions inside the
// decode bounds and moves the algorithm into the Ready state.
func (a *Algorithm) Initialize() {
	a.swarm = make([]*Firefly, a.size)
	for i := range a.swarm {
		f := &Firefly{}
		for d := 0; d < Dimensions; d++ {
			span := upperBounds[d] - lowerBounds[d]
			f.Position[d] = lowerBounds[d] + a.rng.Float64()*span
		}
		a.swarm[i] = f
	}
	a.initialized = true
}

// Swarm exposes the current swarm members.
func (a *Algorithm) Swarm() []*Firefly {
	return a.swarm
}

// Iterate recomputes every firefly's intensity with the evaluator, then
// moves the swarm one step.
func (a *Algorithm) Iterate(g *graph.Graph) error {
	if !a.initialized {
		return ErrNotInitialized
	}
	if a.evaluate != nil {
		for _, f := range a.swarm {
			f.Intensity = a.evaluate(g, f)
		}
	}
	a.move()
	return nil
}

// IterateWithoutIntensityUpdate moves the swarm using the intensities it
// already carries. Used in black-box mode where the true fitness for the
// new positions is only known after the detector has been queried.
func (a *Algorithm) IterateWithoutIntensityUpdate(g *graph.Graph) error {
	if !a.initialized {
		return ErrNotInitialized
	}
	a.move()
	return nil
}

// UpdateIntensityWithDetectionScore sets a firefly's intensity from a
// detector confidence: lower confidence means brighter. Clamped to [0,1].
func (a *Algorithm) UpdateIntensityWithDetectionScore(f *Firefly, confidence float64) {
	intensity := 1 - confidence
	if intensity < 0 {
		intensity = 0
	}
	if intensity > 1 {
		intensity = 1
	}
	f.Intensity = intensity
}

// Best returns the firefly with maximum intensity, first-found on ties,
// or nil before initialization.
func (a *Algorithm) Best() *Firefly {
	var best *Firefly
	for _, f := range a.swarm {
		if best == nil || f.Intensity > best.Intensity {
			best = f
		}
	}
	return best
}

// move applies one classic firefly step: every firefly drifts toward each
// brighter one with distance-decayed attraction, then every firefly, the
// brightest included, takes a bounded random step. The swarm keeps
// exploring even when intensities are uniform or only one member is lit.
func (a *Algorithm) move() {
	for _, fi := range a.swarm {
		for _, fj := range a.swarm {
			if fj.Intensity <= fi.Intensity {
				continue
			}
			dist2 := 0.0
			for d := 0; d < Dimensions; d++ {
				delta := fj.Position[d] - fi.Position[d]
				dist2 += delta * delta
			}
			beta := a.beta0 * math.Exp(-a.gamma*dist2)
			for d := 0; d < Dimensions; d++ {
				fi.Position[d] += beta * (fj.Position[d] - fi.Position[d])
			}
		}
		for d := 0; d < Dimensions; d++ {
			jitter := a.alpha * (a.rng.Float64() - 0.5)
			fi.Position[d] = clamp(fi.Position[d]+jitter, lowerBounds[d], upperBounds[d])
		}
	}
}
