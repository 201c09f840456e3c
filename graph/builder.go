package graph

import (
	"sort"
	"strings"

	"github.com/libshade/libshade/model"
)

// Build constructs the heterogeneous graph for the given classes of a code
// model. When filter is non-empty only classes whose qualified name is in
// the filter contribute nodes; reference edges into classes outside the
// filter are dropped rather than dangling.
func Build(m *model.CodeModel, filter map[string]bool) *Graph {
	g := New()
	included := func(name string) bool {
		if len(filter) == 0 {
			return m.Class(name) != nil
		}
		return filter[name]
	}

	// package forest first so containment edges always find their parent
	packages := map[string]bool{}
	for _, class := range m.Classes {
		if !included(class.Name) {
			continue
		}
		for pkg := class.Package; pkg != ""; pkg = parentPackage(pkg) {
			packages[pkg] = true
		}
	}
	names := make([]string, 0, len(packages))
	for pkg := range packages {
		names = append(names, pkg)
	}
	sort.Strings(names)
	for _, pkg := range names {
		g.AddNode(&Node{ID: PackageID(pkg), Kind: PackageNode, Attrs: PackageAttrs{Name: pkg}})
	}
	for _, pkg := range names {
		if parent := parentPackage(pkg); parent != "" {
			_ = g.AddEdge(PackageID(parent), PackageID(pkg), ContainsPackage)
		}
	}

	// class, method, field and parameter nodes with containment edges
	for _, class := range m.Classes {
		if !included(class.Name) {
			continue
		}
		addClassNodes(g, class)
	}

	// reference edges in a second pass once every node exists
	for _, class := range m.Classes {
		if !included(class.Name) {
			continue
		}
		addReferenceEdges(g, m, class, included)
	}
	return g
}

// AddClassSubtree inserts the containment subtree of one class into an
// existing graph. Used by perturbation operators that synthesize classes.
func AddClassSubtree(g *Graph, class *model.Class) {
	if pkg := class.Package; pkg != "" && !g.HasNode(PackageID(pkg)) {
		EnsurePackage(g, pkg)
	}
	addClassNodes(g, class)
}

// EnsurePackage inserts the package node and its ancestor chain if absent.
func EnsurePackage(g *Graph, pkg string) {
	var missing []string
	for p := pkg; p != "" && !g.HasNode(PackageID(p)); p = parentPackage(p) {
		missing = append(missing, p)
	}
	for i := len(missing) - 1; i >= 0; i-- {
		p := missing[i]
		g.AddNode(&Node{ID: PackageID(p), Kind: PackageNode, Attrs: PackageAttrs{Name: p}})
		if parent := parentPackage(p); parent != "" {
			_ = g.AddEdge(PackageID(parent), PackageID(p), ContainsPackage)
		}
	}
}

func addClassNodes(g *Graph, class *model.Class) {
	classID := ClassID(class.Name)
	g.AddNode(&Node{ID: classID, Kind: ClassNode, Attrs: ClassAttrs{
		Name:       class.Name,
		Package:    class.Package,
		Super:      class.SuperName(),
		Interfaces: append([]string{}, class.Interfaces...),
		Interface:  class.Interface,
	}})
	if class.Package != "" {
		_ = g.AddEdge(PackageID(class.Package), classID, ContainsClass)
	}

	for _, field := range class.Fields {
		fieldID := FieldID(class.Name, field.Name)
		g.AddNode(&Node{ID: fieldID, Kind: FieldNode, Attrs: FieldAttrs{
			Name:  field.Name,
			Class: class.Name,
			Type:  field.Type.String(),
		}})
		_ = g.AddEdge(classID, fieldID, ContainsField)
	}

	for _, method := range class.Methods {
		descriptor := method.Descriptor()
		methodID := MethodID(class.Name, descriptor)
		g.AddNode(&Node{ID: methodID, Kind: MethodNode, Attrs: MethodAttrs{
			Name:        method.Name,
			Class:       class.Name,
			Descriptor:  descriptor,
			Return:      method.Return.String(),
			Constructor: method.Constructor,
		}})
		_ = g.AddEdge(classID, methodID, ContainsMethod)
		for _, param := range method.Params {
			paramID := ParameterID(class.Name, descriptor, param.Index)
			g.AddNode(&Node{ID: paramID, Kind: ParameterNode, Attrs: ParameterAttrs{
				Name:     param.Name,
				MethodID: methodID,
				Index:    param.Index,
				Type:     param.Type.String(),
			}})
			_ = g.AddEdge(methodID, paramID, ContainsParameter)
		}
	}
}

func addReferenceEdges(g *Graph, m *model.CodeModel, class *model.Class, included func(string) bool) {
	classID := ClassID(class.Name)
	if class.Super != "" && included(class.Super) {
		_ = g.AddEdge(classID, ClassID(class.Super), Inherits)
	}
	for _, iface := range class.Interfaces {
		if included(iface) {
			_ = g.AddEdge(classID, ClassID(iface), Implements)
		}
	}
	for _, field := range class.Fields {
		if !field.Type.Primitive && included(field.Type.Name) {
			_ = g.AddEdge(FieldID(class.Name, field.Name), ClassID(field.Type.Name), FieldRef)
		}
	}
	for _, method := range class.Methods {
		methodID := MethodID(class.Name, method.Descriptor())
		for i := range method.Body {
			ins := &method.Body[i]
			if ins.Kind != model.InstrInvoke || !included(ins.TargetClass) {
				continue
			}
			calleeID := MethodID(ins.TargetClass, ins.TargetDesc)
			if g.HasNode(calleeID) {
				_ = g.AddEdge(methodID, calleeID, Invokes)
			}
		}
	}
}

func parentPackage(pkg string) string {
	if idx := strings.LastIndex(pkg, "."); idx >= 0 {
		return pkg[:idx]
	}
	return ""
}
