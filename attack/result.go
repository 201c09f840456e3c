package attack

import (
	"github.com/google/uuid"

	"github.com/libshade/libshade/perturb"
)

// Phase is the engine's position in its state machine.
type Phase int

const (
	PhaseDecouple Phase = iota
	PhaseBuildGraph
	PhaseInitSwarm
	PhaseIterate
	PhaseConverged
	PhaseExhausted
)

func (p Phase) String() string {
	switch p {
	case PhaseDecouple:
		return "decouple"
	case PhaseBuildGraph:
		return "build_graph"
	case PhaseInitSwarm:
		return "init_swarm"
	case PhaseIterate:
		return "iterate"
	case PhaseConverged:
		return "converged"
	case PhaseExhausted:
		return "exhausted"
	}
	return "unknown"
}

// IterationRecord captures one loop iteration for diagnostics.
type IterationRecord struct {
	Index      int
	Operation  string
	NodeKind   string
	Requested  int
	Applied    int
	Entropy    float64
	Accepted   bool
	Confidence float64 // black-box mode only, -1 when unset
}

// Result is the terminal outcome of one attack run. The last detection is
// carried so an orchestrator never re-runs a query it already has.
type Result struct {
	RunID                string
	LibraryName          string
	Evaded               bool
	Phase                Phase
	TotalIterations      int
	SuccessfulIterations int
	BestIteration        int
	FinalEntropy         float64
	ArtifactPath         string
	LastDetection        *Detection
	Iterations           []IterationRecord
	Modifications        []perturb.Record
}

// newResult starts a result with a fresh run identifier.
func newResult(libraryName string) *Result {
	return &Result{
		RunID:         uuid.NewString(),
		LibraryName:   libraryName,
		BestIteration: -1,
	}
}

// SuccessRate is the share of accepted iterations so far.
func (r *Result) SuccessRate() float64 {
	if r.TotalIterations == 0 {
		return 0
	}
	return float64(r.SuccessfulIterations) / float64(r.TotalIterations)
}
