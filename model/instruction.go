package model

import (
	"fmt"
	"strings"
)

// InstrKind discriminates the editable instruction variants a method body
// is composed of. Raw statements are opaque; the structured kinds are the
// ones call-site and field-access rewriting operate on.
type InstrKind int

const (
	InstrRaw InstrKind = iota
	InstrLocal
	InstrInvoke
	InstrFieldRead
	InstrFieldWrite
	InstrReturn
)

// Instruction is one editable statement of a method body. Only the fields
// relevant to its Kind are populated.
type Instruction struct {
	Kind InstrKind

	// InstrRaw
	Text string

	// InstrLocal: LocalType LocalName = Expr;
	LocalType TypeRef
	LocalName string

	// InstrLocal / InstrFieldWrite / InstrReturn right-hand side expression
	Expr string

	// InstrInvoke: [Assign =] Receiver.TargetMethod(Args) resolved against
	// TargetClass. TargetDesc identifies the callee signature and is kept in
	// sync by every signature rewrite. Constructors use ConstructorName and
	// render as "new TargetClass(Args)".
	TargetClass  string
	TargetMethod string
	TargetDesc   string
	Receiver     string
	Args         []string
	Assign       string

	// InstrFieldRead: Assign = FieldRecv.FieldName;
	// InstrFieldWrite: FieldRecv.FieldName = Expr;
	FieldClass string
	FieldName  string
	FieldRecv  string
}

// Invoke builds a call instruction against the given callee descriptor.
func Invoke(targetClass, targetMethod, targetDesc, receiver string, args ...string) Instruction {
	return Instruction{
		Kind:         InstrInvoke,
		TargetClass:  targetClass,
		TargetMethod: targetMethod,
		TargetDesc:   targetDesc,
		Receiver:     receiver,
		Args:         args,
	}
}

// Raw builds an opaque statement instruction.
func Raw(text string) Instruction {
	return Instruction{Kind: InstrRaw, Text: text}
}

// Return builds a return statement; expr may be empty for void methods.
func Return(expr string) Instruction {
	return Instruction{Kind: InstrReturn, Expr: expr}
}

// Local builds a local variable declaration with an initializer.
func Local(t TypeRef, name, expr string) Instruction {
	return Instruction{Kind: InstrLocal, LocalType: t, LocalName: name, Expr: expr}
}

// FieldRead builds "assign = recv.field" resolved against the declaring class.
func FieldRead(fieldClass, fieldName, recv, assign string) Instruction {
	return Instruction{Kind: InstrFieldRead, FieldClass: fieldClass, FieldName: fieldName, FieldRecv: recv, Assign: assign}
}

// FieldWrite builds "recv.field = expr" resolved against the declaring class.
func FieldWrite(fieldClass, fieldName, recv, expr string) Instruction {
	return Instruction{Kind: InstrFieldWrite, FieldClass: fieldClass, FieldName: fieldName, FieldRecv: recv, Expr: expr}
}

// Clone returns a deep copy of the instruction.
func (i Instruction) Clone() Instruction {
	out := i
	if i.Args != nil {
		out.Args = make([]string, len(i.Args))
		copy(out.Args, i.Args)
	}
	return out
}

// Render emits the instruction as a Java statement without the trailing
// newline. Raw text is emitted verbatim.
func (i Instruction) Render() string {
	switch i.Kind {
	case InstrRaw:
		return i.Text
	case InstrLocal:
		return fmt.Sprintf("%s %s = %s;", i.LocalType.String(), i.LocalName, i.Expr)
	case InstrReturn:
		if i.Expr == "" {
			return "return;"
		}
		return fmt.Sprintf("return %s;", i.Expr)
	case InstrFieldRead:
		return fmt.Sprintf("%s = %s.%s;", i.Assign, i.FieldRecv, i.FieldName)
	case InstrFieldWrite:
		return fmt.Sprintf("%s.%s = %s;", i.FieldRecv, i.FieldName, i.Expr)
	case InstrInvoke:
		call := i.renderCall()
		if i.Assign != "" {
			return fmt.Sprintf("%s = %s;", i.Assign, call)
		}
		return call + ";"
	}
	return ""
}

func (i Instruction) renderCall() string {
	args := strings.Join(i.Args, ", ")
	if i.TargetMethod == ConstructorName {
		return fmt.Sprintf("new %s(%s)", i.TargetClass, args)
	}
	receiver := i.Receiver
	if receiver == "" {
		// static call resolved against the declaring class
		receiver = i.TargetClass
	}
	return fmt.Sprintf("%s.%s(%s)", receiver, i.TargetMethod, args)
}
