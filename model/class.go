package model

// Class represents a Java class or interface with mutable members.
type Class struct {
	Name       string // qualified name
	Package    string
	Access     string
	Abstract   bool
	Final      bool
	Interface  bool
	Super      string // qualified superclass name, "" means java.lang.Object
	Interfaces []string
	Fields     []*Field
	Methods    []*Method

	fieldMap  map[string]int // name -> position
	methodMap map[string]int // descriptor -> position
}

// NewClass creates an empty public class in the package derived from its
// qualified name.
func NewClass(qualified string) *Class {
	return &Class{
		Name:      qualified,
		Package:   PackageOf(qualified),
		Access:    "public",
		fieldMap:  map[string]int{},
		methodMap: map[string]int{},
	}
}

// SimpleName returns the unqualified class name.
func (c *Class) SimpleName() string {
	return SimpleClassName(c.Name)
}

// SuperName returns the declared superclass or java.lang.Object.
func (c *Class) SuperName() string {
	if c.Super == "" {
		return ObjectClass
	}
	return c.Super
}

// GetField retrieves a field by name.
func (c *Class) GetField(name string) *Field {
	if c.fieldMap == nil {
		return nil
	}
	if idx, ok := c.fieldMap[name]; ok && idx < len(c.Fields) {
		return c.Fields[idx]
	}
	return nil
}

// GetMethod retrieves a method by descriptor.
func (c *Class) GetMethod(descriptor string) *Method {
	if c.methodMap == nil {
		return nil
	}
	if idx, ok := c.methodMap[descriptor]; ok && idx < len(c.Methods) {
		return c.Methods[idx]
	}
	return nil
}

// AddField adds a field to the class and indexes it by name.
func (c *Class) AddField(field *Field) {
	if c.fieldMap == nil {
		c.fieldMap = map[string]int{}
	}
	field.Owner = c.Name
	c.Fields = append(c.Fields, field)
	c.fieldMap[field.Name] = len(c.Fields) - 1
}

// RemoveField removes a field by name.
func (c *Class) RemoveField(name string) bool {
	if c.fieldMap == nil {
		return false
	}
	idx, ok := c.fieldMap[name]
	if !ok {
		return false
	}
	c.Fields = append(c.Fields[:idx], c.Fields[idx+1:]...)
	delete(c.fieldMap, name)
	for i := idx; i < len(c.Fields); i++ {
		c.fieldMap[c.Fields[i].Name] = i
	}
	return true
}

// AddMethod adds a method to the class and indexes it by descriptor.
func (c *Class) AddMethod(method *Method) {
	if c.methodMap == nil {
		c.methodMap = map[string]int{}
	}
	method.Owner = c.Name
	c.Methods = append(c.Methods, method)
	c.methodMap[method.Descriptor()] = len(c.Methods) - 1
}

// RemoveMethod removes a method by descriptor.
func (c *Class) RemoveMethod(descriptor string) bool {
	if c.methodMap == nil {
		return false
	}
	idx, ok := c.methodMap[descriptor]
	if !ok {
		return false
	}
	c.Methods = append(c.Methods[:idx], c.Methods[idx+1:]...)
	delete(c.methodMap, descriptor)
	for i := idx; i < len(c.Methods); i++ {
		c.methodMap[c.Methods[i].Descriptor()] = i
	}
	return true
}

// Reindex rebuilds the member lookup maps. Callers that mutate member
// names or signatures in place must reindex before the next lookup.
func (c *Class) Reindex() {
	c.fieldMap = make(map[string]int, len(c.Fields))
	for i, f := range c.Fields {
		c.fieldMap[f.Name] = i
	}
	c.methodMap = make(map[string]int, len(c.Methods))
	for i, m := range c.Methods {
		c.methodMap[m.Descriptor()] = i
	}
}

// Constructors returns the constructor methods of the class.
func (c *Class) Constructors() []*Method {
	var out []*Method
	for _, m := range c.Methods {
		if m.Constructor {
			out = append(out, m)
		}
	}
	return out
}

// Implements reports whether the class declares the given interface.
func (c *Class) Implements(iface string) bool {
	for _, name := range c.Interfaces {
		if name == iface {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the class.
func (c *Class) Clone() *Class {
	out := &Class{
		Name:       c.Name,
		Package:    c.Package,
		Access:     c.Access,
		Abstract:   c.Abstract,
		Final:      c.Final,
		Interface:  c.Interface,
		Super:      c.Super,
		Interfaces: append([]string{}, c.Interfaces...),
		fieldMap:   map[string]int{},
		methodMap:  map[string]int{},
	}
	for _, f := range c.Fields {
		out.AddField(f.Clone())
	}
	for _, m := range c.Methods {
		out.AddMethod(m.Clone())
	}
	return out
}
