package java

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/libshade/libshade/model"
)

var primitiveNames = map[string]bool{
	"boolean": true,
	"byte":    true,
	"char":    true,
	"short":   true,
	"int":     true,
	"long":    true,
	"float":   true,
	"double":  true,
	"void":    true,
}

var javaLangNames = map[string]bool{
	"Object":        true,
	"String":        true,
	"Integer":       true,
	"Long":          true,
	"Boolean":       true,
	"Double":        true,
	"Float":         true,
	"Character":     true,
	"Byte":          true,
	"Short":         true,
	"Math":          true,
	"System":        true,
	"StringBuilder": true,
	"Exception":     true,
	"RuntimeException": true,
	"Throwable":     true,
	"Comparable":    true,
	"Runnable":      true,
	"Iterable":      true,
}

// parsePackageDeclaration extracts the package name from a compilation unit.
func parsePackageDeclaration(node *sitter.Node, source []byte) string {
	if node.Type() != "package_declaration" {
		return ""
	}
	nameNode := node.NamedChild(0)
	if nameNode == nil {
		return ""
	}
	return nameNode.Content(source)
}

// parseImportDeclaration extracts simple-name to package bindings.
func parseImportDeclaration(node *sitter.Node, source []byte) map[string]string {
	imports := make(map[string]string)
	if node.Type() != "import_declaration" {
		return imports
	}
	importNode := node.NamedChild(0)
	if importNode == nil {
		return imports
	}
	scopeNode := importNode.ChildByFieldName("scope")
	nameNode := importNode.ChildByFieldName("name")
	if scopeNode != nil && nameNode != nil {
		imports[nameNode.Content(source)] = scopeNode.Content(source)
	}
	return imports
}

// parseTypeDeclaration extracts a class or interface into the code model.
func parseTypeDeclaration(node *sitter.Node, source []byte, pkg string, importMap map[string]string) *model.Class {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	simpleName := nameNode.Content(source)
	qualified := simpleName
	if pkg != "" {
		qualified = pkg + "." + simpleName
	}

	class := model.NewClass(qualified)
	class.Interface = node.Type() == "interface_declaration"

	mods := parseModifiers(node, source)
	class.Access = accessOf(mods)
	class.Abstract = mods["abstract"]
	class.Final = mods["final"]

	if superNode := node.ChildByFieldName("superclass"); superNode != nil {
		for _, t := range collectTypeNodes(superNode) {
			class.Super = qualifyType(typeName(t, source), pkg, importMap)
		}
	}
	if ifaceNode := node.ChildByFieldName("interfaces"); ifaceNode != nil {
		for _, t := range collectTypeNodes(ifaceNode) {
			class.Interfaces = append(class.Interfaces, qualifyType(typeName(t, source), pkg, importMap))
		}
	}
	// interfaces carry their extended interfaces in a dedicated child node
	for j := uint32(0); j < node.NamedChildCount(); j++ {
		child := node.NamedChild(int(j))
		if child.Type() != "extends_interfaces" {
			continue
		}
		for _, t := range collectTypeNodes(child) {
			class.Interfaces = append(class.Interfaces, qualifyType(typeName(t, source), pkg, importMap))
		}
	}

	bodyNode := node.ChildByFieldName("body")
	if bodyNode == nil {
		return class
	}
	for j := uint32(0); j < bodyNode.NamedChildCount(); j++ {
		child := bodyNode.NamedChild(int(j))
		switch child.Type() {
		case "field_declaration":
			for _, field := range parseFieldDeclaration(child, source, pkg, importMap) {
				class.AddField(field)
			}
		case "method_declaration":
			if method := parseMethodDeclaration(child, source, class, pkg, importMap); method != nil {
				class.AddMethod(method)
			}
		case "constructor_declaration":
			if ctor := parseConstructorDeclaration(child, source, class, pkg, importMap); ctor != nil {
				class.AddMethod(ctor)
			}
		}
	}
	return class
}

// parseFieldDeclaration extracts one or more fields from a declaration
// statement, one per declarator.
func parseFieldDeclaration(node *sitter.Node, source []byte, pkg string, importMap map[string]string) []*model.Field {
	typeNode := node.ChildByFieldName("type")
	if typeNode == nil {
		return nil
	}
	fieldType := parseTypeRef(typeNode, source, pkg, importMap)
	mods := parseModifiers(node, source)

	var fields []*model.Field
	for j := uint32(0); j < node.NamedChildCount(); j++ {
		child := node.NamedChild(int(j))
		if child.Type() != "variable_declarator" {
			continue
		}
		nameNode := child.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		field := &model.Field{
			Name:   nameNode.Content(source),
			Access: accessOf(mods),
			Static: mods["static"],
			Final:  mods["final"],
			Type:   fieldType,
		}
		if valueNode := child.ChildByFieldName("value"); valueNode != nil {
			field.Init = valueNode.Content(source)
		}
		fields = append(fields, field)
	}
	return fields
}

// parseMethodDeclaration extracts a method, including its body statements.
func parseMethodDeclaration(node *sitter.Node, source []byte, class *model.Class, pkg string, importMap map[string]string) *model.Method {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	mods := parseModifiers(node, source)
	method := &model.Method{
		Name:     nameNode.Content(source),
		Access:   accessOf(mods),
		Static:   mods["static"],
		Final:    mods["final"],
		Abstract: mods["abstract"] || (class.Interface && node.ChildByFieldName("body") == nil),
		Return:   model.Void,
	}
	if typeNode := node.ChildByFieldName("type"); typeNode != nil {
		method.Return = parseTypeRef(typeNode, source, pkg, importMap)
	}
	parseFormalParameters(node, source, method, pkg, importMap)

	if bodyNode := node.ChildByFieldName("body"); bodyNode != nil {
		method.Body = parseBody(bodyNode, source, class, method, pkg, importMap)
	}
	return method
}

// parseConstructorDeclaration extracts a constructor.
func parseConstructorDeclaration(node *sitter.Node, source []byte, class *model.Class, pkg string, importMap map[string]string) *model.Method {
	mods := parseModifiers(node, source)
	ctor := &model.Method{
		Name:        model.ConstructorName,
		Access:      accessOf(mods),
		Constructor: true,
		Return:      model.Void,
	}
	parseFormalParameters(node, source, ctor, pkg, importMap)

	if bodyNode := node.ChildByFieldName("body"); bodyNode != nil {
		ctor.Body = parseBody(bodyNode, source, class, ctor, pkg, importMap)
	}
	return ctor
}

func parseFormalParameters(node *sitter.Node, source []byte, method *model.Method, pkg string, importMap map[string]string) {
	parametersNode := node.ChildByFieldName("parameters")
	if parametersNode == nil {
		return
	}
	for j := uint32(0); j < parametersNode.NamedChildCount(); j++ {
		paramNode := parametersNode.NamedChild(int(j))
		if paramNode.Type() != "formal_parameter" && paramNode.Type() != "spread_parameter" {
			continue
		}
		paramTypeNode := paramNode.ChildByFieldName("type")
		paramNameNode := paramNode.ChildByFieldName("name")
		if paramTypeNode == nil || paramNameNode == nil {
			continue
		}
		method.AddParameter(paramNameNode.Content(source), parseTypeRef(paramTypeNode, source, pkg, importMap))
	}
}

// parseTypeRef converts a type node into a model type reference.
func parseTypeRef(node *sitter.Node, source []byte, pkg string, importMap map[string]string) model.TypeRef {
	if node.Type() == "array_type" {
		elem := node.ChildByFieldName("element")
		if elem != nil {
			ref := parseTypeRef(elem, source, pkg, importMap)
			ref.Dims = strings.Count(node.Content(source), "[]")
			return ref
		}
	}
	name := typeName(node, source)
	if primitiveNames[name] {
		return model.Primitive(name)
	}
	return model.ClassType(qualifyType(name, pkg, importMap))
}

// typeName strips generic arguments from a type node's text.
func typeName(node *sitter.Node, source []byte) string {
	name := node.Content(source)
	if idx := strings.Index(name, "<"); idx >= 0 {
		name = name[:idx]
	}
	return strings.TrimSpace(name)
}

// qualifyType resolves a simple type name against the imports, java.lang
// and finally the current package.
func qualifyType(name, pkg string, importMap map[string]string) string {
	if name == "" || strings.Contains(name, ".") {
		return name
	}
	if scope, ok := importMap[name]; ok {
		return scope + "." + name
	}
	if javaLangNames[name] {
		return "java.lang." + name
	}
	if pkg != "" {
		return pkg + "." + name
	}
	return name
}

// collectTypeNodes walks a subtree and returns the concrete type nodes,
// skipping wrapper nodes like super_interfaces and type_list.
func collectTypeNodes(node *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	switch node.Type() {
	case "type_identifier", "scoped_type_identifier", "generic_type":
		return []*sitter.Node{node}
	}
	for j := uint32(0); j < node.NamedChildCount(); j++ {
		out = append(out, collectTypeNodes(node.NamedChild(int(j)))...)
	}
	return out
}

// parseModifiers collects the modifier keywords preceding a declaration.
func parseModifiers(node *sitter.Node, source []byte) map[string]bool {
	mods := make(map[string]bool)
	first := node.NamedChild(0)
	if first == nil || first.Type() != "modifiers" {
		return mods
	}
	for _, word := range strings.Fields(first.Content(source)) {
		if !strings.HasPrefix(word, "@") {
			mods[word] = true
		}
	}
	return mods
}

func accessOf(mods map[string]bool) string {
	switch {
	case mods["public"]:
		return "public"
	case mods["protected"]:
		return "protected"
	case mods["private"]:
		return "private"
	}
	return ""
}
