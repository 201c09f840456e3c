package model

import (
	"strings"
)

// Parameter represents one formal method parameter.
type Parameter struct {
	Name  string
	Type  TypeRef
	Index int
}

// Method represents a class method or constructor with an editable body.
type Method struct {
	Name        string
	Owner       string // qualified name of the declaring class
	Access      string // "public", "protected", "private" or "" for package
	Static      bool
	Final       bool
	Abstract    bool
	Constructor bool
	Params      []*Parameter
	Return      TypeRef
	Body        []Instruction
}

// Descriptor builds the signature identity of a method: name plus the
// comma-joined parameter type list. Two methods with equal descriptors
// collide within one class.
func (m *Method) Descriptor() string {
	return MethodDescriptor(m.Name, m.Params)
}

// MethodDescriptor builds a descriptor from a name and parameter list.
func MethodDescriptor(name string, params []*Parameter) string {
	types := make([]string, len(params))
	for i, p := range params {
		types[i] = p.Type.String()
	}
	return name + "(" + strings.Join(types, ",") + ")"
}

// AddParameter appends a formal parameter, assigning its index.
func (m *Method) AddParameter(name string, t TypeRef) *Parameter {
	p := &Parameter{Name: name, Type: t, Index: len(m.Params)}
	m.Params = append(m.Params, p)
	return p
}

// Append adds instructions at the end of the body.
func (m *Method) Append(instructions ...Instruction) {
	m.Body = append(m.Body, instructions...)
}

// Prepend inserts instructions at the start of the body.
func (m *Method) Prepend(instructions ...Instruction) {
	m.Body = append(append([]Instruction{}, instructions...), m.Body...)
}

// Clone returns a deep copy of the method.
func (m *Method) Clone() *Method {
	out := &Method{
		Name:        m.Name,
		Owner:       m.Owner,
		Access:      m.Access,
		Static:      m.Static,
		Final:       m.Final,
		Abstract:    m.Abstract,
		Constructor: m.Constructor,
		Return:      m.Return,
		Params:      make([]*Parameter, len(m.Params)),
		Body:        make([]Instruction, len(m.Body)),
	}
	for i, p := range m.Params {
		cp := *p
		out.Params[i] = &cp
	}
	for i, ins := range m.Body {
		out.Body[i] = ins.Clone()
	}
	return out
}

// Field represents a class field.
type Field struct {
	Name   string
	Owner  string // qualified name of the declaring class
	Access string
	Static bool
	Final  bool
	Type   TypeRef
	Init   string // initializer expression, optional
}

// Clone returns a copy of the field.
func (f *Field) Clone() *Field {
	cp := *f
	return &cp
}
