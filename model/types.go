package model

import "strings"

// ConstructorName is the synthetic method name used for constructors,
// mirroring the JVM convention.
const ConstructorName = "<init>"

// ObjectClass is the implicit root of every class hierarchy.
const ObjectClass = "java.lang.Object"

// StringClass is the qualified name of java.lang.String.
const StringClass = "java.lang.String"

// TypeRef references a declared type: a primitive, a class by qualified
// name, or an array of either.
type TypeRef struct {
	Name      string // primitive keyword or qualified class name
	Primitive bool
	Dims      int // array dimensions, 0 for scalar
}

// Void is the absent return type.
var Void = TypeRef{Name: "void", Primitive: true}

// Primitive builds a primitive type reference.
func Primitive(name string) TypeRef {
	return TypeRef{Name: name, Primitive: true}
}

// ClassType builds a reference type for the given qualified class name.
func ClassType(qualified string) TypeRef {
	return TypeRef{Name: qualified}
}

// IsVoid reports whether the type is void.
func (t TypeRef) IsVoid() bool {
	return t.Primitive && t.Name == "void" && t.Dims == 0
}

// String renders the type as Java source.
func (t TypeRef) String() string {
	return t.Name + strings.Repeat("[]", t.Dims)
}

// SimpleName returns the unqualified class name.
func (t TypeRef) SimpleName() string {
	if idx := strings.LastIndex(t.Name, "."); idx >= 0 {
		return t.Name[idx+1:]
	}
	return t.Name
}

// DefaultValue returns a type-correct Java expression producing a default
// value for the type. Reference types default to null, primitives to their
// zero literal.
func DefaultValue(t TypeRef) string {
	if t.Dims > 0 || !t.Primitive {
		return "null"
	}
	switch t.Name {
	case "boolean":
		return "false"
	case "char":
		return "'\\0'"
	case "long":
		return "0L"
	case "float":
		return "0.0f"
	case "double":
		return "0.0d"
	case "void":
		return ""
	default: // byte, short, int
		return "0"
	}
}

// SimpleClassName returns the unqualified part of a qualified class name.
func SimpleClassName(qualified string) string {
	if idx := strings.LastIndex(qualified, "."); idx >= 0 {
		return qualified[idx+1:]
	}
	return qualified
}

// PackageOf returns the package part of a qualified class name, or "" for
// a class in the default package.
func PackageOf(qualified string) string {
	if idx := strings.LastIndex(qualified, "."); idx >= 0 {
		return qualified[:idx]
	}
	return ""
}
