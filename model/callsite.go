package model

import "fmt"

// CallSite locates one invoke instruction inside a method body.
type CallSite struct {
	Caller *Class
	Method *Method
	Index  int // position within Method.Body
}

// Instruction returns a pointer to the located invoke instruction.
func (s CallSite) Instruction() *Instruction {
	return &s.Method.Body[s.Index]
}

// CallSites enumerates every invoke of the given class+descriptor across
// all method bodies of the model.
func (m *CodeModel) CallSites(class, descriptor string) []CallSite {
	var out []CallSite
	for _, c := range m.Classes {
		for _, mt := range c.Methods {
			for i := range mt.Body {
				ins := &mt.Body[i]
				if ins.Kind == InstrInvoke && ins.TargetClass == class && ins.TargetDesc == descriptor {
					out = append(out, CallSite{Caller: c, Method: mt, Index: i})
				}
			}
		}
	}
	return out
}

// AppendCallArgument rewrites every call site of class+descriptor to pass
// one extra trailing argument and retargets the sites at the callee's new
// descriptor. Returns the number of sites rewritten.
func (m *CodeModel) AppendCallArgument(class, descriptor, newDescriptor, arg string) int {
	sites := m.CallSites(class, descriptor)
	for _, s := range sites {
		ins := s.Instruction()
		ins.Args = append(ins.Args, arg)
		ins.TargetDesc = newDescriptor
	}
	return len(sites)
}

// RetargetCalls rewrites every call site of class+descriptor to invoke a
// different class, method name and descriptor, leaving arguments untouched.
// Used after a member move or a collision rename.
func (m *CodeModel) RetargetCalls(class, descriptor, newClass, newMethod, newDescriptor string) int {
	sites := m.CallSites(class, descriptor)
	for _, s := range sites {
		ins := s.Instruction()
		ins.TargetClass = newClass
		ins.TargetMethod = newMethod
		ins.TargetDesc = newDescriptor
	}
	return len(sites)
}

// FieldAccessSite locates one field read or write inside a method body.
type FieldAccessSite struct {
	Caller *Class
	Method *Method
	Index  int
}

// Instruction returns a pointer to the located field access.
func (s FieldAccessSite) Instruction() *Instruction {
	return &s.Method.Body[s.Index]
}

// FieldAccesses enumerates every read and write of class.field across all
// method bodies of the model.
func (m *CodeModel) FieldAccesses(class, field string) []FieldAccessSite {
	var out []FieldAccessSite
	for _, c := range m.Classes {
		for _, mt := range c.Methods {
			for i := range mt.Body {
				ins := &mt.Body[i]
				if (ins.Kind == InstrFieldRead || ins.Kind == InstrFieldWrite) &&
					ins.FieldClass == class && ins.FieldName == field {
					out = append(out, FieldAccessSite{Caller: c, Method: mt, Index: i})
				}
			}
		}
	}
	return out
}

// RerouteFieldAccesses rewrites every access of class.field to go through a
// slot of a wrapper field instead: reads become "x = recv.wrapper.slot",
// writes become "recv.wrapper.slot = v". The rewritten sites stay structured
// field accesses, now resolved against the wrapper class, so later rewrites
// still find them. Returns the number of rewritten sites.
func (m *CodeModel) RerouteFieldAccesses(class, field, wrapperClass, wrapperField, slot string) int {
	sites := m.FieldAccesses(class, field)
	for _, s := range sites {
		ins := s.Instruction()
		ins.FieldClass = wrapperClass
		ins.FieldRecv = fmt.Sprintf("%s.%s", ins.FieldRecv, wrapperField)
		ins.FieldName = slot
	}
	return len(sites)
}
