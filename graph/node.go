package graph

import "strconv"

// NodeKind enumerates the five node types of the heterogeneous graph.
type NodeKind int

const (
	PackageNode NodeKind = iota
	ClassNode
	MethodNode
	FieldNode
	ParameterNode
	nodeKindCount
)

// NodeKinds lists all node kinds in declaration order.
var NodeKinds = []NodeKind{PackageNode, ClassNode, MethodNode, FieldNode, ParameterNode}

func (k NodeKind) String() string {
	switch k {
	case PackageNode:
		return "package"
	case ClassNode:
		return "class"
	case MethodNode:
		return "method"
	case FieldNode:
		return "field"
	case ParameterNode:
		return "parameter"
	}
	return "unknown"
}

// idPrefix namespaces node identifiers per kind.
func (k NodeKind) idPrefix() string {
	switch k {
	case PackageNode:
		return "pkg:"
	case ClassNode:
		return "cls:"
	case MethodNode:
		return "mth:"
	case FieldNode:
		return "fld:"
	case ParameterNode:
		return "prm:"
	}
	return "unk:"
}

// Attributes is the per-kind payload of a node. The variants guarantee at
// compile time that e.g. a method node always carries a signature and a
// parameter node always references its owning method.
type Attributes interface {
	nodeAttributes()
}

// PackageAttrs describes a package node.
type PackageAttrs struct {
	Name string // qualified package name
}

// ClassAttrs describes a class node.
type ClassAttrs struct {
	Name       string // qualified class name
	Package    string
	Super      string
	Interfaces []string
	Interface  bool
}

// MethodAttrs describes a method node.
type MethodAttrs struct {
	Name        string
	Class       string // qualified owning class
	Descriptor  string
	Return      string
	Constructor bool
}

// FieldAttrs describes a field node.
type FieldAttrs struct {
	Name  string
	Class string // qualified owning class
	Type  string
}

// ParameterAttrs describes a parameter node.
type ParameterAttrs struct {
	Name     string
	MethodID string // id of the owning method node
	Index    int
	Type     string
}

func (PackageAttrs) nodeAttributes()   {}
func (ClassAttrs) nodeAttributes()     {}
func (MethodAttrs) nodeAttributes()    {}
func (FieldAttrs) nodeAttributes()     {}
func (ParameterAttrs) nodeAttributes() {}

// Node is one vertex of the heterogeneous graph. Identity is the ID; the
// attribute payload is value-like.
type Node struct {
	ID    string
	Kind  NodeKind
	Attrs Attributes
}

// PackageID builds the node identifier for a package.
func PackageID(name string) string { return PackageNode.idPrefix() + name }

// ClassID builds the node identifier for a class.
func ClassID(qualified string) string { return ClassNode.idPrefix() + qualified }

// MethodID builds the node identifier for a method descriptor within a class.
func MethodID(class, descriptor string) string {
	return MethodNode.idPrefix() + class + "#" + descriptor
}

// FieldID builds the node identifier for a field within a class.
func FieldID(class, name string) string {
	return FieldNode.idPrefix() + class + "#" + name
}

// ParameterID builds the node identifier for a parameter position of a
// method.
func ParameterID(class, descriptor string, index int) string {
	return ParameterNode.idPrefix() + class + "#" + descriptor + "#" + strconv.Itoa(index)
}
