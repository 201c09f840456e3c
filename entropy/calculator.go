// Package entropy scores the structural entropy of a heterogeneous program
// graph. Low-entropy classes are structurally thin relative to the library's
// overall signature and are therefore the preferred perturbation targets:
// cheap to disturb without destabilizing behavior.
package entropy

import (
	"math"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/libshade/libshade/graph"
)

// DefaultMu balances internal cohesion against external coupling.
const DefaultMu = 0.5

// ClassEntropy is the per-class breakdown of the graph entropy.
type ClassEntropy struct {
	ID       string // class node id
	Name     string // qualified class name
	Internal float64
	External float64
	Entropy  float64
}

// Calculator computes per-class and aggregate entropies for a fixed μ.
// Results are cached by graph fingerprint since the attack loop re-scores
// the same graph several times per iteration.
type Calculator struct {
	mu    float64
	cache *lru.Cache[uint64, []ClassEntropy]
}

// NewCalculator creates a calculator; μ outside (0,1) falls back to the
// default.
func NewCalculator(mu float64) *Calculator {
	if mu <= 0 || mu >= 1 {
		mu = DefaultMu
	}
	cache, _ := lru.New[uint64, []ClassEntropy](128)
	return &Calculator{mu: mu, cache: cache}
}

// Mu returns the configured balance coefficient.
func (c *Calculator) Mu() float64 {
	return c.mu
}

// GraphEntropy aggregates the per-class entropies into a single scalar.
func (c *Calculator) GraphEntropy(g *graph.Graph) float64 {
	total := 0.0
	for _, ce := range c.ClassEntropies(g) {
		total += ce.Entropy
	}
	return total
}

// ClassEntropies computes the per-class breakdown in class node id order.
func (c *Calculator) ClassEntropies(g *graph.Graph) []ClassEntropy {
	if fp, err := g.Fingerprint(); err == nil {
		if cached, ok := c.cache.Get(fp); ok {
			return cached
		}
		entropies := c.computeClassEntropies(g)
		c.cache.Add(fp, entropies)
		return entropies
	}
	return c.computeClassEntropies(g)
}

func (c *Calculator) computeClassEntropies(g *graph.Graph) []ClassEntropy {
	classes := g.NodesByKind(graph.ClassNode)
	out := make([]ClassEntropy, 0, len(classes))
	for _, node := range classes {
		attrs, _ := node.Attrs.(graph.ClassAttrs)
		internal := c.internalTerm(g, node.ID)
		external := c.externalTerm(g, node.ID)
		out = append(out, ClassEntropy{
			ID:       node.ID,
			Name:     attrs.Name,
			Internal: internal,
			External: external,
			Entropy:  c.mu*internal + (1-c.mu)*external,
		})
	}
	return out
}

// internalTerm scores the member fan-out of a class: methods, fields and
// the parameters of its methods. Strictly increasing in every count, which
// gives the monotonicity-under-addition property the attack relies on.
func (c *Calculator) internalTerm(g *graph.Graph, classID string) float64 {
	methods := g.Neighbors(classID, graph.ContainsMethod)
	fields := g.OutDegree(classID, graph.ContainsField)
	params := 0
	for _, methodID := range methods {
		params += g.OutDegree(methodID, graph.ContainsParameter)
	}
	return weight(len(methods)) + weight(fields) + weight(params)
}

// externalTerm scores the reference coupling of a class: invocations in and
// out of its methods, field references in and out, and its inheritance and
// interface relations.
func (c *Calculator) externalTerm(g *graph.Graph, classID string) float64 {
	invokesOut, invokesIn := 0, 0
	for _, methodID := range g.Neighbors(classID, graph.ContainsMethod) {
		invokesOut += g.OutDegree(methodID, graph.Invokes)
		invokesIn += g.InDegree(methodID, graph.Invokes)
	}
	refsOut := 0
	for _, fieldID := range g.Neighbors(classID, graph.ContainsField) {
		refsOut += g.OutDegree(fieldID, graph.FieldRef)
	}
	refsIn := g.InDegree(classID, graph.FieldRef)
	hierarchy := g.OutDegree(classID, graph.Inherits) + g.InDegree(classID, graph.Inherits) +
		g.OutDegree(classID, graph.Implements) + g.InDegree(classID, graph.Implements)
	return weight(invokesOut+invokesIn) + weight(refsOut+refsIn) + weight(hierarchy)
}

// weight maps a fan count onto a logarithmic information scale.
func weight(n int) float64 {
	if n <= 0 {
		return 0
	}
	return math.Log2(1 + float64(n))
}

// ClassesSortedByEntropy returns the per-class entropies ascending; ties
// break on class name so target selection stays deterministic.
func (c *Calculator) ClassesSortedByEntropy(g *graph.Graph) []ClassEntropy {
	entropies := append([]ClassEntropy{}, c.ClassEntropies(g)...)
	sort.SliceStable(entropies, func(i, j int) bool {
		if entropies[i].Entropy != entropies[j].Entropy {
			return entropies[i].Entropy < entropies[j].Entropy
		}
		return entropies[i].Name < entropies[j].Name
	})
	return entropies
}

// PackageEntropy is the per-package aggregate: the arithmetic mean of the
// entropies of the classes the package directly contains.
type PackageEntropy struct {
	ID      string
	Name    string
	Entropy float64
}

// PackagesSortedByEntropy returns package entropies ascending by entropy,
// ties broken by name. Packages without classes score zero.
func (c *Calculator) PackagesSortedByEntropy(g *graph.Graph) []PackageEntropy {
	byClass := map[string]float64{}
	for _, ce := range c.ClassEntropies(g) {
		byClass[ce.ID] = ce.Entropy
	}
	var out []PackageEntropy
	for _, pkg := range g.NodesByKind(graph.PackageNode) {
		attrs, _ := pkg.Attrs.(graph.PackageAttrs)
		classes := g.Neighbors(pkg.ID, graph.ContainsClass)
		sum := 0.0
		for _, classID := range classes {
			sum += byClass[classID]
		}
		mean := 0.0
		if len(classes) > 0 {
			mean = sum / float64(len(classes))
		}
		out = append(out, PackageEntropy{ID: pkg.ID, Name: attrs.Name, Entropy: mean})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Entropy != out[j].Entropy {
			return out[i].Entropy < out[j].Entropy
		}
		return out[i].Name < out[j].Name
	})
	return out
}
