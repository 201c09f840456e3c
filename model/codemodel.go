package model

import (
	"fmt"
	"sort"
	"strings"
)

// CodeModel owns the mutable class set of one program under attack. Each
// attack instance receives its own handle, so concurrent attacks never share
// analysis state.
type CodeModel struct {
	Classes  []*Class
	classMap map[string]int // qualified name -> position
}

// NewCodeModel creates an empty code model.
func NewCodeModel() *CodeModel {
	return &CodeModel{classMap: map[string]int{}}
}

// Class retrieves a class by qualified name.
func (m *CodeModel) Class(qualified string) *Class {
	if m.classMap == nil {
		return nil
	}
	if idx, ok := m.classMap[qualified]; ok && idx < len(m.Classes) {
		return m.Classes[idx]
	}
	return nil
}

// AddClass adds a class; a class with the same qualified name must not exist.
func (m *CodeModel) AddClass(class *Class) error {
	if m.classMap == nil {
		m.classMap = map[string]int{}
	}
	if _, ok := m.classMap[class.Name]; ok {
		return fmt.Errorf("class %s already present", class.Name)
	}
	m.Classes = append(m.Classes, class)
	m.classMap[class.Name] = len(m.Classes) - 1
	return nil
}

// RemoveClass removes a class by qualified name.
func (m *CodeModel) RemoveClass(qualified string) bool {
	if m.classMap == nil {
		return false
	}
	idx, ok := m.classMap[qualified]
	if !ok {
		return false
	}
	m.Classes = append(m.Classes[:idx], m.Classes[idx+1:]...)
	delete(m.classMap, qualified)
	for i := idx; i < len(m.Classes); i++ {
		m.classMap[m.Classes[i].Name] = i
	}
	return true
}

// Packages returns the sorted distinct package names of all classes.
func (m *CodeModel) Packages() []string {
	seen := map[string]bool{}
	for _, c := range m.Classes {
		seen[c.Package] = true
	}
	out := make([]string, 0, len(seen))
	for pkg := range seen {
		out = append(out, pkg)
	}
	sort.Strings(out)
	return out
}

// ClassesInPackage returns the classes declared directly in the package.
func (m *CodeModel) ClassesInPackage(pkg string) []*Class {
	var out []*Class
	for _, c := range m.Classes {
		if c.Package == pkg {
			out = append(out, c)
		}
	}
	return out
}

// Interfaces returns all interface declarations in the model.
func (m *CodeModel) Interfaces() []*Class {
	var out []*Class
	for _, c := range m.Classes {
		if c.Interface {
			out = append(out, c)
		}
	}
	return out
}

// Clone returns a deep copy of the model.
func (m *CodeModel) Clone() *CodeModel {
	out := NewCodeModel()
	for _, c := range m.Classes {
		_ = out.AddClass(c.Clone())
	}
	return out
}

// RenameClass changes a class's qualified name and rewrites every reference
// to the old name across the model: call targets, field-access owners,
// declared field/parameter/return/local types, superclass and interface
// declarations. Returns an error if the new name is already taken.
func (m *CodeModel) RenameClass(old, newName string) error {
	class := m.Class(old)
	if class == nil {
		return fmt.Errorf("class %s not found", old)
	}
	if m.Class(newName) != nil {
		return fmt.Errorf("class %s already present", newName)
	}
	idx := m.classMap[old]
	delete(m.classMap, old)
	class.Name = newName
	class.Package = PackageOf(newName)
	m.classMap[newName] = idx

	rename := func(t *TypeRef) {
		if !t.Primitive && t.Name == old {
			t.Name = newName
		}
	}
	for _, c := range m.Classes {
		if c.Super == old {
			c.Super = newName
		}
		for i, iface := range c.Interfaces {
			if iface == old {
				c.Interfaces[i] = newName
			}
		}
		for _, f := range c.Fields {
			rename(&f.Type)
			if f.Owner == old {
				f.Owner = newName
			}
			// initializer expressions may name the class too
			if strings.Contains(f.Init, old) {
				f.Init = strings.ReplaceAll(f.Init, old, newName)
			}
		}
		for _, mt := range c.Methods {
			rename(&mt.Return)
			if mt.Owner == old {
				mt.Owner = newName
			}
			for _, p := range mt.Params {
				rename(&p.Type)
			}
			for i := range mt.Body {
				ins := &mt.Body[i]
				if ins.TargetClass == old {
					ins.TargetClass = newName
				}
				if ins.FieldClass == old {
					ins.FieldClass = newName
				}
				// descriptors embed parameter type names
				if strings.Contains(ins.TargetDesc, old) {
					ins.TargetDesc = strings.ReplaceAll(ins.TargetDesc, old, newName)
				}
				rename(&ins.LocalType)
				// qualified names may appear in rendered expressions
				if strings.Contains(ins.Text, old) {
					ins.Text = strings.ReplaceAll(ins.Text, old, newName)
				}
			}
		}
		c.Reindex()
	}
	return nil
}
