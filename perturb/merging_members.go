package perturb

import (
	"fmt"

	"github.com/libshade/libshade/model"
)

// MergeMethods combines two methods of a low-entropy class under one merged
// signature guarded by a boolean discriminator, mirroring the constructor
// merge strategy. Return-type mismatches are resolved through a synthesized
// two-slot wrapper.
func MergeMethods(ctx *Context, k int) int {
	applied := 0
	for attempt := 0; attempt < k; attempt++ {
		ranked := ctx.Calc.ClassesSortedByEntropy(ctx.Graph)
		merged := false
		for _, ce := range ranked {
			class := ctx.Model.Class(ce.Name)
			if class == nil || class.Interface {
				continue
			}
			a, b := pickMethodPair(class)
			if a == nil {
				continue
			}
			if err := mergeMethodPair(ctx, class, a, b); err != nil {
				ctx.Log.Append(Record{
					Operation: "merge_methods",
					Target:    class.Name + "#" + a.Descriptor(),
					After:     "skipped: " + err.Error(),
				})
				continue
			}
			merged = true
			applied++
			break
		}
		if !merged {
			break
		}
	}
	return applied
}

// pickMethodPair finds two mergeable methods: plain instance or plain
// static pairs with matching voidness, no constructors, no abstracts.
func pickMethodPair(class *model.Class) (*model.Method, *model.Method) {
	var eligible []*model.Method
	for _, m := range class.Methods {
		if m.Constructor || m.Abstract {
			continue
		}
		eligible = append(eligible, m)
	}
	for i := 0; i < len(eligible); i++ {
		for j := i + 1; j < len(eligible); j++ {
			a, b := eligible[i], eligible[j]
			if a.Static != b.Static {
				continue
			}
			if a.Return.IsVoid() != b.Return.IsVoid() {
				continue
			}
			return a, b
		}
	}
	return nil, nil
}

func mergeMethodPair(ctx *Context, class *model.Class, a, b *model.Method) error {
	aDesc, bDesc := a.Descriptor(), b.Descriptor()

	sameReturn := a.Return == b.Return
	var wrapper *model.Class
	if !sameReturn {
		w, err := synthesizeWrapper(ctx, class.Package, a.Return, b.Return)
		if err != nil {
			return fmt.Errorf("wrapper for %s/%s: %w", aDesc, bDesc, err)
		}
		wrapper = w
	}

	merged := &model.Method{
		Name:   uniqueMethodName(class, a.Name+"Blend"),
		Access: "public",
		Static: a.Static,
		Return: a.Return,
	}
	if wrapper != nil {
		merged.Return = model.ClassType(wrapper.Name)
	}

	aBody := cloneBody(a.Body)
	for _, p := range a.Params {
		merged.AddParameter(p.Name, p.Type)
	}
	bBody := cloneBody(b.Body)
	for _, p := range b.Params {
		name := p.Name
		if paramNameTaken(merged.Params, name) {
			renamed := "alt" + capitalize(name)
			renameToken(bBody, name, renamed)
			name = renamed
		}
		merged.AddParameter(name, p.Type)
	}
	flag := merged.AddParameter("selector", model.Primitive("boolean"))

	if wrapper != nil {
		wrapReturns(aBody, wrapper, true)
		wrapReturns(bBody, wrapper, false)
	}

	merged.Append(model.Raw("if (" + flag.Name + ") {"))
	merged.Append(aBody...)
	merged.Append(model.Raw("} else {"))
	merged.Append(bBody...)
	merged.Append(model.Raw("}"))
	if !merged.Return.IsVoid() {
		// both branches return; this guards the fall-through path
		merged.Append(model.Return(model.DefaultValue(merged.Return)))
	}

	class.AddMethod(merged)
	mergedDesc := merged.Descriptor()

	retargetMergedCalls(ctx, class.Name, aDesc, merged, b.Params, wrapper, "slotA", true)
	retargetMergedCalls(ctx, class.Name, bDesc, merged, a.Params, wrapper, "slotB", false)

	class.RemoveMethod(aDesc)
	class.RemoveMethod(bDesc)
	class.Reindex()
	ctx.RebuildGraph()

	ctx.Log.Append(Record{
		Operation: "merge_methods",
		Target:    class.Name,
		Before:    aDesc + " + " + bDesc,
		After:     mergedDesc,
	})
	return nil
}

// wrapReturns rewrites every return in a branch body to produce the
// wrapper, populating the branch's slot and defaulting the other.
func wrapReturns(body []model.Instruction, wrapper *model.Class, first bool) {
	slotA := wrapper.GetField("slotA")
	slotB := wrapper.GetField("slotB")
	for i := range body {
		if body[i].Kind != model.InstrReturn {
			continue
		}
		expr := body[i].Expr
		if first {
			body[i].Expr = wrapperNew(wrapper, expr, model.DefaultValue(slotB.Type))
		} else {
			body[i].Expr = wrapperNew(wrapper, model.DefaultValue(slotA.Type), expr)
		}
	}
}

// retargetMergedCalls rewrites every call site of one original method onto
// the merged signature: defaults fill the other branch's parameters and
// the discriminator selects the original behavior. When a wrapper return
// was introduced, the invoke stays structured: its result lands in a fresh
// wrapper local and a field read routes the branch slot back into the
// originally assigned variable.
func retargetMergedCalls(ctx *Context, class, oldDesc string, merged *model.Method, otherParams []*model.Parameter, wrapper *model.Class, slot string, first bool) {
	mergedDesc := merged.Descriptor()
	sites := ctx.Model.CallSites(class, oldDesc)
	// reverse order keeps earlier site indexes valid across insertions
	for n := len(sites) - 1; n >= 0; n-- {
		site := sites[n]
		ins := site.Instruction()
		defaults := make([]string, 0, len(otherParams))
		for _, p := range otherParams {
			defaults = append(defaults, model.DefaultValue(p.Type))
		}
		if first {
			ins.Args = append(ins.Args, defaults...)
			ins.Args = append(ins.Args, "true")
		} else {
			ins.Args = append(append(defaults, ins.Args...), "false")
		}
		ins.TargetMethod = merged.Name
		ins.TargetDesc = mergedDesc
		if wrapper != nil && ins.Assign != "" {
			assign := ins.Assign
			tmp := fmt.Sprintf("blend%d", ctx.nextTemp())
			ins.Assign = wrapper.Name + " " + tmp
			read := model.FieldRead(wrapper.Name, slot, tmp, assign)
			body := append(site.Method.Body, model.Instruction{})
			copy(body[site.Index+2:], body[site.Index+1:])
			body[site.Index+1] = read
			site.Method.Body = body
		}
	}
}

// MergeFields replaces two fields of a low-entropy class with one field of
// a synthesized two-slot wrapper type and reroutes every read and write
// through the corresponding slot. Constant modifiers are stripped, since a
// wrapper cannot carry a compile-time constant.
func MergeFields(ctx *Context, k int) int {
	applied := 0
	for attempt := 0; attempt < k; attempt++ {
		ranked := ctx.Calc.ClassesSortedByEntropy(ctx.Graph)
		merged := false
		for _, ce := range ranked {
			class := ctx.Model.Class(ce.Name)
			if class == nil || class.Interface {
				continue
			}
			f1, f2 := pickFieldPair(class)
			if f1 == nil {
				continue
			}
			if err := mergeFieldPair(ctx, class, f1, f2); err != nil {
				ctx.Log.Append(Record{
					Operation: "merge_fields",
					Target:    class.Name + "#" + f1.Name,
					After:     "skipped: " + err.Error(),
				})
				continue
			}
			merged = true
			applied++
			break
		}
		if !merged {
			break
		}
	}
	return applied
}

func pickFieldPair(class *model.Class) (*model.Field, *model.Field) {
	for i := 0; i < len(class.Fields); i++ {
		for j := i + 1; j < len(class.Fields); j++ {
			if class.Fields[i].Static == class.Fields[j].Static {
				return class.Fields[i], class.Fields[j]
			}
		}
	}
	return nil, nil
}

func mergeFieldPair(ctx *Context, class *model.Class, f1, f2 *model.Field) error {
	wrapper, err := synthesizeWrapper(ctx, class.Package, f1.Type, f2.Type)
	if err != nil {
		return fmt.Errorf("wrapper for %s/%s: %w", f1.Name, f2.Name, err)
	}
	mergedName := uniqueFieldName(class, f1.Name+capitalize(f2.Name))
	mergedField := &model.Field{
		Name:   mergedName,
		Access: "public",
		Static: f1.Static,
		// Final deliberately stripped: the wrapper is mutated through its slots
		Type: model.ClassType(wrapper.Name),
		Init: wrapperNew(wrapper, initOrDefault(f1), initOrDefault(f2)),
	}
	class.AddField(mergedField)

	reads1 := ctx.Model.RerouteFieldAccesses(class.Name, f1.Name, wrapper.Name, mergedName, "slotA")
	reads2 := ctx.Model.RerouteFieldAccesses(class.Name, f2.Name, wrapper.Name, mergedName, "slotB")

	name1, name2 := f1.Name, f2.Name
	class.RemoveField(name1)
	class.RemoveField(name2)
	class.Reindex()
	ctx.RebuildGraph()

	ctx.Log.Append(Record{
		Operation: "merge_fields",
		Target:    class.Name,
		Before:    name1 + " + " + name2,
		After:     mergedName + " " + wrapper.Name,
		Affected:  []string{fmt.Sprintf("%d accesses rerouted", reads1+reads2)},
	})
	return nil
}

func initOrDefault(f *model.Field) string {
	if f.Init != "" {
		return f.Init
	}
	return model.DefaultValue(f.Type)
}

// MergeParameters replaces two parameters of one method with a single
// wrapper-typed parameter. The body is prefixed with unwrapping locals and
// every call site constructs the wrapper around its two original arguments.
func MergeParameters(ctx *Context, k int) int {
	applied := 0
	for attempt := 0; attempt < k; attempt++ {
		ranked := ctx.Calc.ClassesSortedByEntropy(ctx.Graph)
		merged := false
		for _, ce := range ranked {
			class := ctx.Model.Class(ce.Name)
			if class == nil || class.Interface {
				continue
			}
			for _, method := range class.Methods {
				if method.Constructor || method.Abstract || len(method.Params) < 2 {
					continue
				}
				if err := mergeParameterPair(ctx, class, method); err != nil {
					ctx.Log.Append(Record{
						Operation: "merge_parameters",
						Target:    class.Name + "#" + method.Descriptor(),
						After:     "skipped: " + err.Error(),
					})
					continue
				}
				merged = true
				applied++
				break
			}
			if merged {
				break
			}
		}
		if !merged {
			break
		}
	}
	return applied
}

func mergeParameterPair(ctx *Context, class *model.Class, method *model.Method) error {
	oldDesc := method.Descriptor()
	p1, p2 := method.Params[0], method.Params[1]

	wrapper, err := synthesizeWrapper(ctx, class.Package, p1.Type, p2.Type)
	if err != nil {
		return fmt.Errorf("wrapper for %s: %w", oldDesc, err)
	}

	packed := &model.Parameter{Name: "packed", Type: model.ClassType(wrapper.Name)}
	rest := method.Params[2:]
	method.Params = append([]*model.Parameter{packed}, rest...)
	for i, p := range method.Params {
		p.Index = i
	}
	method.Prepend(
		model.Local(p1.Type, p1.Name, "packed.slotA"),
		model.Local(p2.Type, p2.Name, "packed.slotB"),
	)
	class.Reindex()
	newDesc := method.Descriptor()

	sites := ctx.Model.CallSites(class.Name, oldDesc)
	for _, site := range sites {
		ins := site.Instruction()
		if len(ins.Args) < 2 {
			continue
		}
		packedArg := wrapperNew(wrapper, ins.Args[0], ins.Args[1])
		ins.Args = append([]string{packedArg}, ins.Args[2:]...)
		ins.TargetDesc = newDesc
	}
	ctx.RebuildGraph()

	ctx.Log.Append(Record{
		Operation: "merge_parameters",
		Target:    class.Name,
		Before:    oldDesc,
		After:     newDesc,
		Affected:  []string{fmt.Sprintf("%d call sites", len(sites))},
	})
	return nil
}
