package java

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/libshade/libshade/model"
)

// bodyScope tracks the reference types visible inside one method body so
// invocation receivers can be resolved to their declaring class.
type bodyScope struct {
	class     *model.Class
	vars      map[string]model.TypeRef
	pkg       string
	importMap map[string]string
}

// parseBody lowers a method body into the instruction list. Statements the
// parser can resolve become structured instructions; everything else is
// kept verbatim as raw text.
func parseBody(bodyNode *sitter.Node, source []byte, class *model.Class, method *model.Method, pkg string, importMap map[string]string) []model.Instruction {
	sc := &bodyScope{
		class:     class,
		vars:      make(map[string]model.TypeRef, len(method.Params)),
		pkg:       pkg,
		importMap: importMap,
	}
	for _, p := range method.Params {
		sc.vars[p.Name] = p.Type
	}

	var body []model.Instruction
	for j := uint32(0); j < bodyNode.NamedChildCount(); j++ {
		body = append(body, parseStatement(bodyNode.NamedChild(int(j)), source, sc)...)
	}
	return body
}

func parseStatement(node *sitter.Node, source []byte, sc *bodyScope) []model.Instruction {
	switch node.Type() {
	case "local_variable_declaration":
		return parseLocalDeclaration(node, source, sc)
	case "expression_statement":
		expr := node.NamedChild(0)
		if expr == nil {
			return []model.Instruction{model.Raw(node.Content(source))}
		}
		if ins, ok := parseExpressionStatement(expr, source, sc); ok {
			ins.Text = node.Content(source)
			return []model.Instruction{ins}
		}
		return []model.Instruction{model.Raw(node.Content(source))}
	case "return_statement":
		if expr := node.NamedChild(0); expr != nil {
			return []model.Instruction{model.Return(expr.Content(source))}
		}
		return []model.Instruction{model.Return("")}
	}
	return []model.Instruction{model.Raw(node.Content(source))}
}

// parseLocalDeclaration lowers "T x = expr;". Initializers that are calls
// split into a declaration plus a structured invocation so the call site
// stays rewritable.
func parseLocalDeclaration(node *sitter.Node, source []byte, sc *bodyScope) []model.Instruction {
	typeNode := node.ChildByFieldName("type")
	if typeNode == nil {
		return []model.Instruction{model.Raw(node.Content(source))}
	}
	localType := parseTypeRef(typeNode, source, sc.pkg, sc.importMap)

	var out []model.Instruction
	for j := uint32(0); j < node.NamedChildCount(); j++ {
		child := node.NamedChild(int(j))
		if child.Type() != "variable_declarator" {
			continue
		}
		nameNode := child.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := nameNode.Content(source)
		sc.vars[name] = localType

		valueNode := child.ChildByFieldName("value")
		if valueNode == nil {
			out = append(out, model.Local(localType, name, model.DefaultValue(localType)))
			continue
		}
		switch valueNode.Type() {
		case "method_invocation", "object_creation_expression":
			if call, ok := parseCall(valueNode, source, sc); ok {
				call.Assign = name
				call.Text = localType.String() + " " + name + " = " + valueNode.Content(source) + ";"
				out = append(out,
					model.Local(localType, name, model.DefaultValue(localType)),
					call)
				continue
			}
		case "field_access":
			if fieldClass, fieldName, recv, ok := resolveFieldAccess(valueNode, source, sc); ok {
				out = append(out,
					model.Local(localType, name, model.DefaultValue(localType)),
					model.FieldRead(fieldClass, fieldName, recv, name))
				continue
			}
		}
		out = append(out, model.Local(localType, name, valueNode.Content(source)))
	}
	if len(out) == 0 {
		return []model.Instruction{model.Raw(node.Content(source))}
	}
	return out
}

func parseExpressionStatement(expr *sitter.Node, source []byte, sc *bodyScope) (model.Instruction, bool) {
	switch expr.Type() {
	case "method_invocation", "object_creation_expression":
		return parseCall(expr, source, sc)
	case "assignment_expression":
		return parseAssignment(expr, source, sc)
	}
	return model.Instruction{}, false
}

func parseAssignment(expr *sitter.Node, source []byte, sc *bodyScope) (model.Instruction, bool) {
	left := expr.ChildByFieldName("left")
	right := expr.ChildByFieldName("right")
	if left == nil || right == nil {
		return model.Instruction{}, false
	}

	// an invocation on the right keeps call-site structure regardless of
	// what the left-hand side is
	switch right.Type() {
	case "method_invocation", "object_creation_expression":
		if call, ok := parseCall(right, source, sc); ok {
			call.Assign = left.Content(source)
			return call, true
		}
		return model.Instruction{}, false
	}

	if fieldClass, fieldName, recv, ok := resolveFieldLValue(left, source, sc); ok {
		return model.FieldWrite(fieldClass, fieldName, recv, right.Content(source)), true
	}
	if right.Type() == "field_access" && left.Type() == "identifier" {
		if fieldClass, fieldName, recv, ok := resolveFieldAccess(right, source, sc); ok {
			return model.FieldRead(fieldClass, fieldName, recv, left.Content(source)), true
		}
	}
	return model.Instruction{}, false
}

// parseCall lowers a method invocation or constructor call. The descriptor
// is left open for the link pass.
func parseCall(expr *sitter.Node, source []byte, sc *bodyScope) (model.Instruction, bool) {
	if expr.Type() == "object_creation_expression" {
		typeNode := expr.ChildByFieldName("type")
		if typeNode == nil {
			return model.Instruction{}, false
		}
		target := qualifyType(typeName(typeNode, source), sc.pkg, sc.importMap)
		return model.Invoke(target, model.ConstructorName, "", "", callArguments(expr, source)...), true
	}

	nameNode := expr.ChildByFieldName("name")
	if nameNode == nil {
		return model.Instruction{}, false
	}
	targetClass, receiver, ok := resolveReceiver(expr.ChildByFieldName("object"), source, sc)
	if !ok {
		return model.Instruction{}, false
	}
	return model.Invoke(targetClass, nameNode.Content(source), "", receiver, callArguments(expr, source)...), true
}

func callArguments(expr *sitter.Node, source []byte) []string {
	argsNode := expr.ChildByFieldName("arguments")
	if argsNode == nil {
		return nil
	}
	var args []string
	for j := uint32(0); j < argsNode.NamedChildCount(); j++ {
		args = append(args, argsNode.NamedChild(int(j)).Content(source))
	}
	return args
}

// resolveReceiver maps an invocation receiver to its declaring class. A
// nil receiver is a call on the enclosing class.
func resolveReceiver(objNode *sitter.Node, source []byte, sc *bodyScope) (targetClass, receiver string, ok bool) {
	if objNode == nil {
		return sc.class.Name, "this", true
	}
	switch objNode.Type() {
	case "this":
		return sc.class.Name, "this", true
	case "identifier":
		name := objNode.Content(source)
		if t, found := sc.vars[name]; found {
			if t.Primitive || t.Dims > 0 {
				return "", "", false
			}
			return t.Name, name, true
		}
		if field := sc.class.GetField(name); field != nil {
			if field.Type.Primitive || field.Type.Dims > 0 {
				return "", "", false
			}
			return field.Type.Name, name, true
		}
		// a capitalized bare identifier is a static call on a class
		if name != "" && name[0] >= 'A' && name[0] <= 'Z' {
			return qualifyType(name, sc.pkg, sc.importMap), name, true
		}
	}
	return "", "", false
}

// resolveFieldLValue resolves "this.f" or a bare field identifier on the
// left of an assignment.
func resolveFieldLValue(left *sitter.Node, source []byte, sc *bodyScope) (fieldClass, fieldName, recv string, ok bool) {
	switch left.Type() {
	case "field_access":
		return resolveFieldAccess(left, source, sc)
	case "identifier":
		name := left.Content(source)
		if _, local := sc.vars[name]; local {
			return "", "", "", false
		}
		if sc.class.GetField(name) != nil {
			return sc.class.Name, name, "this", true
		}
	}
	return "", "", "", false
}

// resolveFieldAccess resolves "recv.f" where recv is this or a known
// variable of a class declared in scope.
func resolveFieldAccess(node *sitter.Node, source []byte, sc *bodyScope) (fieldClass, fieldName, recv string, ok bool) {
	objNode := node.ChildByFieldName("object")
	fieldNode := node.ChildByFieldName("field")
	if objNode == nil || fieldNode == nil {
		return "", "", "", false
	}
	name := fieldNode.Content(source)
	switch objNode.Type() {
	case "this":
		if sc.class.GetField(name) != nil {
			return sc.class.Name, name, "this", true
		}
	case "identifier":
		recvName := objNode.Content(source)
		if t, found := sc.vars[recvName]; found && !t.Primitive && t.Dims == 0 {
			return t.Name, name, recvName, true
		}
	}
	return "", "", "", false
}
