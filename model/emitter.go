package model

import (
	"fmt"
	"strings"
)

// Emitter renders a mutated class back into Java source. It is the
// reification half of the code-model contract: the attack engine mutates
// the model, the emitter writes it out as loadable source again.
type Emitter struct{}

// Emit renders one class declaration as a compilation unit.
func (e *Emitter) Emit(class *Class) ([]byte, error) {
	if class == nil {
		return nil, fmt.Errorf("emit: nil class")
	}
	builder := &strings.Builder{}
	if class.Package != "" {
		fmt.Fprintf(builder, "package %s;\n\n", class.Package)
	}

	builder.WriteString(classHeader(class))
	builder.WriteString(" {\n")

	for _, field := range class.Fields {
		builder.WriteString("    ")
		builder.WriteString(e.fieldDecl(field))
		builder.WriteString("\n")
	}
	if len(class.Fields) > 0 && len(class.Methods) > 0 {
		builder.WriteString("\n")
	}

	for i, method := range class.Methods {
		if i > 0 {
			builder.WriteString("\n")
		}
		e.emitMethod(builder, class, method)
	}

	builder.WriteString("}\n")
	return []byte(builder.String()), nil
}

func classHeader(class *Class) string {
	parts := []string{}
	if class.Access != "" {
		parts = append(parts, class.Access)
	}
	if class.Abstract && !class.Interface {
		parts = append(parts, "abstract")
	}
	if class.Final {
		parts = append(parts, "final")
	}
	if class.Interface {
		parts = append(parts, "interface")
	} else {
		parts = append(parts, "class")
	}
	parts = append(parts, class.SimpleName())
	if class.Super != "" && class.Super != ObjectClass {
		parts = append(parts, "extends", class.Super)
	}
	if len(class.Interfaces) > 0 {
		keyword := "implements"
		if class.Interface {
			keyword = "extends"
		}
		parts = append(parts, keyword, strings.Join(class.Interfaces, ", "))
	}
	return strings.Join(parts, " ")
}

func (e *Emitter) fieldDecl(field *Field) string {
	parts := []string{}
	if field.Access != "" {
		parts = append(parts, field.Access)
	}
	if field.Static {
		parts = append(parts, "static")
	}
	if field.Final {
		parts = append(parts, "final")
	}
	parts = append(parts, field.Type.String(), field.Name)
	decl := strings.Join(parts, " ")
	if field.Init != "" {
		decl += " = " + field.Init
	}
	return decl + ";"
}

func (e *Emitter) emitMethod(builder *strings.Builder, class *Class, method *Method) {
	parts := []string{}
	if method.Access != "" {
		parts = append(parts, method.Access)
	}
	if method.Static {
		parts = append(parts, "static")
	}
	if method.Final {
		parts = append(parts, "final")
	}
	if method.Abstract {
		parts = append(parts, "abstract")
	}
	if method.Constructor {
		parts = append(parts, class.SimpleName())
	} else {
		parts = append(parts, method.Return.String(), method.Name)
	}

	params := make([]string, len(method.Params))
	for i, p := range method.Params {
		params[i] = p.Type.String() + " " + p.Name
	}
	builder.WriteString("    ")
	builder.WriteString(strings.Join(parts, " "))
	fmt.Fprintf(builder, "(%s)", strings.Join(params, ", "))

	if method.Abstract || (class.Interface && len(method.Body) == 0) {
		builder.WriteString(";\n")
		return
	}
	builder.WriteString(" {\n")
	for _, ins := range method.Body {
		builder.WriteString("        ")
		builder.WriteString(ins.Render())
		builder.WriteString("\n")
	}
	builder.WriteString("    }\n")
}

// EmitModel renders every class of the model keyed by its source path
// relative to a source root (package directories plus SimpleName.java).
func (e *Emitter) EmitModel(m *CodeModel) (map[string][]byte, error) {
	out := make(map[string][]byte, len(m.Classes))
	for _, class := range m.Classes {
		src, err := e.Emit(class)
		if err != nil {
			return nil, fmt.Errorf("emit %s: %w", class.Name, err)
		}
		path := class.SimpleName() + ".java"
		if class.Package != "" {
			path = strings.ReplaceAll(class.Package, ".", "/") + "/" + path
		}
		out[path] = src
	}
	return out, nil
}
