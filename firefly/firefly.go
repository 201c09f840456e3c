// Package firefly implements the swarm metaheuristic that drives
// perturbation selection. Each firefly encodes one candidate action:
// which operator family to run, against which node type, and how hard.
package firefly

import (
	"math"

	"github.com/libshade/libshade/graph"
)

// Operation selects an operator family.
type Operation int

const (
	OpAdd Operation = iota
	OpMerge
)

func (o Operation) String() string {
	if o == OpMerge {
		return "merge"
	}
	return "add"
}

// Action is the decoded form of a firefly position.
type Action struct {
	Operation Operation
	NodeKind  graph.NodeKind
	Ratio     float64 // perturbation ratio in (0,1]
}

// Position dimensions.
const (
	dimNodeKind = 0
	dimOp       = 1
	dimRatio    = 2
	Dimensions  = 3
)

// Position bounds keep movement from drifting into regions that decode
// degenerately.
var (
	lowerBounds = [Dimensions]float64{0, -1, -4}
	upperBounds = [Dimensions]float64{4.999, 1, 4}
)

// Firefly is one swarm member: a continuous position plus the light
// intensity standing in for fitness. Brighter fireflies attract others.
type Firefly struct {
	Position  [Dimensions]float64
	Intensity float64
}

// Action decodes the position into a concrete action. The mapping is
// monotonic and deterministic in every dimension: the same position always
// decodes to the same action.
func (f *Firefly) Action() Action {
	kindValue := clamp(f.Position[dimNodeKind], lowerBounds[dimNodeKind], upperBounds[dimNodeKind])
	kind := graph.NodeKind(int(math.Floor(kindValue)))

	op := OpAdd
	if f.Position[dimOp] < 0 {
		op = OpMerge
	}

	// logistic transform keeps the ratio strictly inside (0,1]
	ratio := 1.0 / (1.0 + math.Exp(-f.Position[dimRatio]))
	if ratio <= 0 {
		ratio = math.SmallestNonzeroFloat64
	}
	return Action{Operation: op, NodeKind: kind, Ratio: ratio}
}

// Clone copies the firefly.
func (f *Firefly) Clone() *Firefly {
	cp := *f
	return &cp
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
