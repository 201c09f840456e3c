package perturb

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/libshade/libshade/entropy"
	"github.com/libshade/libshade/firefly"
	"github.com/libshade/libshade/graph"
)

// Omega damps the perturbation count derived from a firefly's ratio.
const Omega = 0.5

// Outcome reports one applied perturbation: the mutated graph clone, the
// decoded action, how many operator attempts succeeded, and the node-count
// delta for the mutated kind (diagnostics only).
type Outcome struct {
	Graph       *graph.Graph
	Action      firefly.Action
	Requested   int // k
	Applied     int
	NodesBefore int
	NodesAfter  int
}

// Applier turns one firefly into a concrete mutation: it decodes the
// action, computes the perturbation count, clones the graph, dispatches to
// the matching operator family and reports before/after node counts.
type Applier struct {
	calc *entropy.Calculator
	rng  *rand.Rand
}

// NewApplier creates an applier sharing the attack's entropy calculator
// and random source.
func NewApplier(calc *entropy.Calculator, rng *rand.Rand) *Applier {
	return &Applier{calc: calc, rng: rng}
}

// Count derives k from the action ratio and the current population of the
// targeted node kind, damped by Omega. At least one attempt is always made.
func (a *Applier) Count(action firefly.Action, g *graph.Graph) int {
	k := int(math.Floor(Omega * action.Ratio * float64(g.NodeCount(action.NodeKind))))
	if k < 1 {
		k = 1
	}
	return k
}

// Apply executes the firefly's action against a clone of the graph and the
// shared code model. The input graph is never mutated; the model is (and is
// deliberately not rolled back when the caller rejects the clone).
func (a *Applier) Apply(f *firefly.Firefly, g *graph.Graph, state *State) (*Outcome, error) {
	action := f.Action()
	k := a.Count(action, g)
	ctx := &Context{
		State: state,
		Graph: g.Clone(),
		Calc:  a.calc,
		Rng:   a.rng,
	}
	before := ctx.Graph.NodeCount(action.NodeKind)

	var applied int
	switch {
	case action.Operation == firefly.OpAdd:
		applied = a.dispatchAdd(ctx, action.NodeKind, k)
	case action.Operation == firefly.OpMerge:
		applied = a.dispatchMerge(ctx, action.NodeKind, k)
	default:
		return nil, fmt.Errorf("apply: unknown operation %v", action.Operation)
	}

	return &Outcome{
		Graph:       ctx.Graph,
		Action:      action,
		Requested:   k,
		Applied:     applied,
		NodesBefore: before,
		NodesAfter:  ctx.Graph.NodeCount(action.NodeKind),
	}, nil
}

func (a *Applier) dispatchAdd(ctx *Context, kind graph.NodeKind, k int) int {
	switch kind {
	case graph.PackageNode:
		return AddPackages(ctx, k)
	case graph.ClassNode:
		return AddClasses(ctx, k)
	case graph.MethodNode:
		return AddMethods(ctx, k)
	case graph.FieldNode:
		return AddFields(ctx, k)
	case graph.ParameterNode:
		return AddParameters(ctx, k)
	}
	return 0
}

func (a *Applier) dispatchMerge(ctx *Context, kind graph.NodeKind, k int) int {
	switch kind {
	case graph.PackageNode:
		return MergePackages(ctx, k)
	case graph.ClassNode:
		return MergeClasses(ctx, k)
	case graph.MethodNode:
		return MergeMethods(ctx, k)
	case graph.FieldNode:
		return MergeFields(ctx, k)
	case graph.ParameterNode:
		return MergeParameters(ctx, k)
	}
	return 0
}
