package perturb

import (
	"fmt"
	"strconv"

	"github.com/libshade/libshade/graph"
	"github.com/libshade/libshade/model"
)

// The adding operators grow the library's structure: they rank candidate
// containers by ascending entropy, take the top k, and attach one fresh
// child to each. A single failed attempt is logged and skipped; it never
// aborts the rest of the batch.

// AddPackages synthesizes k fresh sub-packages under the lowest-entropy
// packages. Pure graph structure; the code model has no package entity.
func AddPackages(ctx *Context, k int) int {
	ranked := ctx.Calc.PackagesSortedByEntropy(ctx.Graph)
	applied := 0
	for i := 0; i < len(ranked) && applied < k; i++ {
		parent := ranked[i]
		name := ctx.uniquePackageName(parent.Name)
		ctx.Graph.AddNode(&graph.Node{
			ID:    graph.PackageID(name),
			Kind:  graph.PackageNode,
			Attrs: graph.PackageAttrs{Name: name},
		})
		if err := ctx.Graph.AddEdge(parent.ID, graph.PackageID(name), graph.ContainsPackage); err != nil {
			ctx.Graph.RemoveNode(graph.PackageID(name))
			continue
		}
		ctx.ExtraPackages = append(ctx.ExtraPackages, name)
		ctx.Log.Append(Record{
			Operation: "add_package",
			Target:    name,
			Before:    parent.Name,
			After:     name,
		})
		applied++
	}
	return applied
}

// uniquePackageName finds an unused sub-package name under parent.
func (c *Context) uniquePackageName(parent string) string {
	for i := 0; ; i++ {
		name := "aux" + strconv.Itoa(i)
		qualified := name
		if parent != "" {
			qualified = parent + "." + name
		}
		if !c.Graph.HasNode(graph.PackageID(qualified)) {
			return qualified
		}
	}
}

// AddClasses synthesizes k fresh classes under the lowest-entropy packages.
// Each new class chains a default constructor to its superclass, implements
// an existing interface when one is present, and acquires a field
// referencing an existing class, so it never enters the graph as an island.
func AddClasses(ctx *Context, k int) int {
	ranked := ctx.Calc.PackagesSortedByEntropy(ctx.Graph)
	interfaces := ctx.Model.Interfaces()
	applied := 0
	for i := 0; i < len(ranked) && applied < k; i++ {
		pkg := ranked[i]
		qualified := ctx.uniqueClassName(pkg.Name, "Support")
		class := model.NewClass(qualified)

		ctor := &model.Method{
			Name:        model.ConstructorName,
			Access:      "public",
			Constructor: true,
			Return:      model.Void,
		}
		ctor.Append(model.Raw("super();"))
		class.AddMethod(ctor)

		var iface *model.Class
		if len(interfaces) > 0 {
			iface = interfaces[ctx.Rng.Intn(len(interfaces))]
			class.Interfaces = append(class.Interfaces, iface.Name)
			implementInterface(class, iface)
		}

		refTarget := randomLibraryClass(ctx, qualified)
		if refTarget != "" {
			class.AddField(&model.Field{
				Name:   "linked",
				Access: "private",
				Type:   model.ClassType(refTarget),
				Init:   "null",
			})
		}

		if err := ctx.Model.AddClass(class); err != nil {
			ctx.Log.Append(Record{Operation: "add_class", Target: qualified, After: "skipped: " + err.Error()})
			continue
		}
		ctx.Filter[qualified] = true

		graph.AddClassSubtree(ctx.Graph, class)
		if iface != nil && ctx.Graph.HasNode(graph.ClassID(iface.Name)) {
			_ = ctx.Graph.AddEdge(graph.ClassID(qualified), graph.ClassID(iface.Name), graph.Implements)
		}
		if refTarget != "" && ctx.Graph.HasNode(graph.ClassID(refTarget)) {
			_ = ctx.Graph.AddEdge(graph.FieldID(qualified, "linked"), graph.ClassID(refTarget), graph.FieldRef)
		}

		affected := []string{}
		if iface != nil {
			affected = append(affected, iface.Name)
		}
		if refTarget != "" {
			affected = append(affected, refTarget)
		}
		ctx.Log.Append(Record{
			Operation: "add_class",
			Target:    qualified,
			Before:    pkg.Name,
			After:     qualified,
			Affected:  affected,
		})
		applied++
	}
	return applied
}

// implementInterface adds stub implementations for every interface method
// so the synthesized class stays well-typed.
func implementInterface(class *model.Class, iface *model.Class) {
	for _, m := range iface.Methods {
		stub := m.Clone()
		stub.Abstract = false
		stub.Access = "public"
		stub.Body = nil
		for _, p := range stub.Params {
			if !p.Type.Primitive && p.Type.Dims == 0 {
				stub.Append(useParameter(p))
			}
		}
		if !stub.Return.IsVoid() {
			stub.Append(model.Return(model.DefaultValue(stub.Return)))
		}
		class.AddMethod(stub)
	}
}

// randomLibraryClass picks an existing non-interface class other than self.
func randomLibraryClass(ctx *Context, self string) string {
	var candidates []string
	for _, node := range ctx.Graph.NodesByKind(graph.ClassNode) {
		attrs, ok := node.Attrs.(graph.ClassAttrs)
		if !ok || attrs.Interface || attrs.Name == self {
			continue
		}
		candidates = append(candidates, attrs.Name)
	}
	if len(candidates) == 0 {
		return ""
	}
	return candidates[ctx.Rng.Intn(len(candidates))]
}

// AddMethods synthesizes k fresh methods on the lowest-entropy classes.
// Every reference-typed parameter is consumed in the body so the method
// cannot be trivially eliminated as dead code.
func AddMethods(ctx *Context, k int) int {
	ranked := ctx.Calc.ClassesSortedByEntropy(ctx.Graph)
	applied := 0
	for i := 0; i < len(ranked) && applied < k; i++ {
		class := ctx.Model.Class(ranked[i].Name)
		if class == nil || class.Interface {
			continue
		}
		name := uniqueMethodName(class, "derive")
		method := &model.Method{
			Name:   name,
			Access: "public",
			Return: ctx.pickType(),
		}
		paramCount := 1 + ctx.Rng.Intn(3)
		for p := 0; p < paramCount; p++ {
			method.AddParameter("arg"+strconv.Itoa(p), ctx.pickType())
		}
		for _, p := range method.Params {
			if !p.Type.Primitive && p.Type.Dims == 0 {
				method.Append(useParameter(p))
			}
		}
		if !method.Return.IsVoid() {
			method.Append(model.Return(model.DefaultValue(method.Return)))
		}
		class.AddMethod(method)

		descriptor := method.Descriptor()
		methodID := graph.MethodID(class.Name, descriptor)
		ctx.Graph.AddNode(&graph.Node{ID: methodID, Kind: graph.MethodNode, Attrs: graph.MethodAttrs{
			Name:       name,
			Class:      class.Name,
			Descriptor: descriptor,
			Return:     method.Return.String(),
		}})
		if err := ctx.Graph.AddEdge(graph.ClassID(class.Name), methodID, graph.ContainsMethod); err != nil {
			ctx.Log.Append(Record{Operation: "add_method", Target: methodID, After: "skipped: " + err.Error()})
			class.RemoveMethod(descriptor)
			ctx.Graph.RemoveNode(methodID)
			continue
		}
		for _, p := range method.Params {
			paramID := graph.ParameterID(class.Name, descriptor, p.Index)
			ctx.Graph.AddNode(&graph.Node{ID: paramID, Kind: graph.ParameterNode, Attrs: graph.ParameterAttrs{
				Name: p.Name, MethodID: methodID, Index: p.Index, Type: p.Type.String(),
			}})
			_ = ctx.Graph.AddEdge(methodID, paramID, graph.ContainsParameter)
		}
		ctx.Log.Append(Record{
			Operation: "add_method",
			Target:    class.Name,
			After:     descriptor,
		})
		applied++
	}
	return applied
}

// useParameter builds a cheap use of a reference-typed parameter.
func useParameter(p *model.Parameter) model.Instruction {
	call := model.Invoke(model.ObjectClass, "hashCode", "hashCode()", p.Name)
	return model.Raw(fmt.Sprintf("if (%s != null) { %s }", p.Name, call.Render()))
}

// AddFields synthesizes k fresh fields on the lowest-entropy classes.
func AddFields(ctx *Context, k int) int {
	ranked := ctx.Calc.ClassesSortedByEntropy(ctx.Graph)
	applied := 0
	for i := 0; i < len(ranked) && applied < k; i++ {
		class := ctx.Model.Class(ranked[i].Name)
		if class == nil || class.Interface {
			continue
		}
		name := uniqueFieldName(class, "aux")
		fieldType := ctx.pickType()
		field := &model.Field{
			Name:   name,
			Access: "private",
			Type:   fieldType,
			Init:   model.DefaultValue(fieldType),
		}
		class.AddField(field)

		fieldID := graph.FieldID(class.Name, name)
		ctx.Graph.AddNode(&graph.Node{ID: fieldID, Kind: graph.FieldNode, Attrs: graph.FieldAttrs{
			Name: name, Class: class.Name, Type: fieldType.String(),
		}})
		if err := ctx.Graph.AddEdge(graph.ClassID(class.Name), fieldID, graph.ContainsField); err != nil {
			ctx.Log.Append(Record{Operation: "add_field", Target: fieldID, After: "skipped: " + err.Error()})
			class.RemoveField(name)
			ctx.Graph.RemoveNode(fieldID)
			continue
		}
		if !fieldType.Primitive && ctx.Graph.HasNode(graph.ClassID(fieldType.Name)) {
			_ = ctx.Graph.AddEdge(fieldID, graph.ClassID(fieldType.Name), graph.FieldRef)
		}
		ctx.Log.Append(Record{
			Operation: "add_field",
			Target:    class.Name,
			After:     name + " " + fieldType.String(),
		})
		applied++
	}
	return applied
}

// AddParameters appends one parameter to k methods, biased toward methods
// owned by low-entropy classes. The body is rewritten to consume the new
// parameter and every call site of the old signature is rewritten to pass
// a type-correct default argument.
func AddParameters(ctx *Context, k int) int {
	ranked := ctx.Calc.ClassesSortedByEntropy(ctx.Graph)
	applied := 0
	for i := 0; i < len(ranked) && applied < k; i++ {
		class := ctx.Model.Class(ranked[i].Name)
		if class == nil || class.Interface {
			continue
		}
		for _, method := range class.Methods {
			if applied >= k {
				break
			}
			if method.Constructor || method.Abstract {
				continue
			}
			if err := appendParameter(ctx, class, method); err != nil {
				ctx.Log.Append(Record{
					Operation: "add_parameter",
					Target:    class.Name + "#" + method.Descriptor(),
					After:     "skipped: " + err.Error(),
				})
				continue
			}
			applied++
			break // one method per class pass keeps the bias spread
		}
	}
	return applied
}

func appendParameter(ctx *Context, class *model.Class, method *model.Method) error {
	oldDescriptor := method.Descriptor()
	oldMethodID := graph.MethodID(class.Name, oldDescriptor)

	paramType := ctx.pickType()
	paramName := "extra" + strconv.Itoa(len(method.Params))
	param := method.AddParameter(paramName, paramType)
	if !paramType.Primitive && paramType.Dims == 0 {
		method.Prepend(useParameter(param))
	} else {
		method.Prepend(model.Raw(fmt.Sprintf("%s sink%d = %s;", paramType.String(), param.Index, paramName)))
	}
	class.Reindex()

	newDescriptor := method.Descriptor()
	rewritten := ctx.Model.AppendCallArgument(class.Name, oldDescriptor, newDescriptor, model.DefaultValue(paramType))

	// the method node id embeds the descriptor; rebuild its subtree and
	// restore the invocation edges that referenced the old id
	inbound := append([]string{}, ctx.Graph.Predecessors(oldMethodID, graph.Invokes)...)
	outbound := append([]string{}, ctx.Graph.Neighbors(oldMethodID, graph.Invokes)...)
	ctx.Graph.RemoveNode(oldMethodID)
	for _, paramID := range collectParamIDs(ctx.Graph, class.Name, oldDescriptor, len(method.Params)) {
		ctx.Graph.RemoveNode(paramID)
	}
	newMethodID := graph.MethodID(class.Name, newDescriptor)
	ctx.Graph.AddNode(&graph.Node{ID: newMethodID, Kind: graph.MethodNode, Attrs: graph.MethodAttrs{
		Name:       method.Name,
		Class:      class.Name,
		Descriptor: newDescriptor,
		Return:     method.Return.String(),
	}})
	if err := ctx.Graph.AddEdge(graph.ClassID(class.Name), newMethodID, graph.ContainsMethod); err != nil {
		return err
	}
	for _, p := range method.Params {
		paramID := graph.ParameterID(class.Name, newDescriptor, p.Index)
		ctx.Graph.AddNode(&graph.Node{ID: paramID, Kind: graph.ParameterNode, Attrs: graph.ParameterAttrs{
			Name: p.Name, MethodID: newMethodID, Index: p.Index, Type: p.Type.String(),
		}})
		_ = ctx.Graph.AddEdge(newMethodID, paramID, graph.ContainsParameter)
	}
	for _, src := range inbound {
		// a recursive method invokes itself under the new id
		if src == oldMethodID {
			src = newMethodID
		}
		_ = ctx.Graph.AddEdge(src, newMethodID, graph.Invokes)
	}
	for _, dst := range outbound {
		if dst == oldMethodID {
			dst = newMethodID
		}
		_ = ctx.Graph.AddEdge(newMethodID, dst, graph.Invokes)
	}

	ctx.Log.Append(Record{
		Operation: "add_parameter",
		Target:    class.Name,
		Before:    oldDescriptor,
		After:     newDescriptor,
		Affected:  []string{fmt.Sprintf("%d call sites", rewritten)},
	})
	return nil
}

// collectParamIDs lists the stale parameter node ids of the old descriptor.
func collectParamIDs(g *graph.Graph, class, descriptor string, max int) []string {
	var out []string
	for i := 0; i < max; i++ {
		id := graph.ParameterID(class, descriptor, i)
		if g.HasNode(id) {
			out = append(out, id)
		}
	}
	return out
}
