package perturb

import (
	"math/rand"
	"strconv"

	"github.com/libshade/libshade/entropy"
	"github.com/libshade/libshade/graph"
	"github.com/libshade/libshade/model"
)

// State is the mutable attack-scoped state the operators share: the code
// model, the set of class names currently treated as library classes, the
// synthesized packages that exist only in the graph, and the modification
// log. One State belongs to exactly one attack instance.
type State struct {
	Model         *model.CodeModel
	Filter        map[string]bool // qualified names of library classes
	ExtraPackages []string        // synthesized packages with no classes yet
	Log           *Log

	temps int // counter for synthesized local names, unique per attack
}

func (s *State) nextTemp() int {
	n := s.temps
	s.temps++
	return n
}

// NewState builds operator state over a model; filter may be nil to cover
// every class.
func NewState(m *model.CodeModel, filter map[string]bool) *State {
	if filter == nil {
		filter = map[string]bool{}
		for _, c := range m.Classes {
			filter[c.Name] = true
		}
	}
	return &State{Model: m, Filter: filter, Log: &Log{}}
}

// Context carries everything one operator application needs: the graph
// clone under mutation plus the shared state, entropy calculator and
// random source.
type Context struct {
	*State
	Graph *graph.Graph
	Calc  *entropy.Calculator
	Rng   *rand.Rand
}

// RebuildGraph reconstructs the graph view from the code model after a
// structural mutation that invalidates node identities (renames, merges).
func (c *Context) RebuildGraph() {
	g := graph.Build(c.Model, c.Filter)
	for _, pkg := range c.ExtraPackages {
		graph.EnsurePackage(g, pkg)
	}
	c.Graph = g
}

// typePool returns the candidate types for synthesized members: primitives,
// Object and String, plus the library class types currently in the graph.
func (c *Context) typePool() []model.TypeRef {
	pool := []model.TypeRef{
		model.Primitive("int"),
		model.Primitive("long"),
		model.Primitive("boolean"),
		model.Primitive("double"),
		model.ClassType(model.ObjectClass),
		model.ClassType(model.StringClass),
	}
	for _, node := range c.Graph.NodesByKind(graph.ClassNode) {
		attrs, ok := node.Attrs.(graph.ClassAttrs)
		if !ok || attrs.Interface {
			continue
		}
		pool = append(pool, model.ClassType(attrs.Name))
	}
	return pool
}

// pickType draws one type from the pool.
func (c *Context) pickType() model.TypeRef {
	pool := c.typePool()
	return pool[c.Rng.Intn(len(pool))]
}

// uniqueClassName finds an unused qualified class name under pkg.
func (c *Context) uniqueClassName(pkg, base string) string {
	for i := 0; ; i++ {
		name := base + strconv.Itoa(i)
		qualified := name
		if pkg != "" {
			qualified = pkg + "." + name
		}
		if c.Model.Class(qualified) == nil && !c.Graph.HasNode(graph.ClassID(qualified)) {
			return qualified
		}
	}
}

// uniqueFieldName finds an unused field name on the class.
func uniqueFieldName(class *model.Class, base string) string {
	for i := 0; ; i++ {
		name := base + strconv.Itoa(i)
		if class.GetField(name) == nil {
			return name
		}
	}
}

// uniqueMethodName finds a method name no descriptor of the class uses.
func uniqueMethodName(class *model.Class, base string) string {
	for i := 0; ; i++ {
		name := base + strconv.Itoa(i)
		taken := false
		for _, m := range class.Methods {
			if m.Name == name {
				taken = true
				break
			}
		}
		if !taken {
			return name
		}
	}
}
