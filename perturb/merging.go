package perturb

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/libshade/libshade/entropy"
	"github.com/libshade/libshade/model"
)

// The merging operators fold a low-entropy source into a compatible target.
// A merge either applies fully (code model, graph view and every call
// site) or not at all: incompatible or unresolvable pairs are abandoned
// before the first mutation.

// MergePackages relocates the classes of the lowest-entropy packages into
// higher-ranked target packages. A simple-name collision blocks relocation
// of that one class only; an emptied source package is pruned.
func MergePackages(ctx *Context, k int) int {
	ranked := ctx.Calc.PackagesSortedByEntropy(ctx.Graph)
	var candidates []string
	for _, pe := range ranked {
		if len(ctx.Model.ClassesInPackage(pe.Name)) > 0 {
			candidates = append(candidates, pe.Name)
		}
	}
	applied := 0
	for i := 0; i+1 < len(candidates) && applied < k; i += 2 {
		source, target := candidates[i], candidates[i+1]
		moved := relocatePackageClasses(ctx, source, target)
		if moved == 0 {
			continue
		}
		ctx.Log.Append(Record{
			Operation: "merge_packages",
			Target:    source,
			Before:    source,
			After:     target,
			Affected:  []string{fmt.Sprintf("%d classes relocated", moved)},
		})
		applied++
	}
	if applied > 0 {
		ctx.RebuildGraph()
	}
	return applied
}

func relocatePackageClasses(ctx *Context, source, target string) int {
	moved := 0
	for _, class := range ctx.Model.ClassesInPackage(source) {
		newName := target + "." + class.SimpleName()
		if ctx.Model.Class(newName) != nil {
			continue // collision blocks this one class only
		}
		oldName := class.Name
		if err := ctx.Model.RenameClass(oldName, newName); err != nil {
			continue
		}
		if ctx.Filter[oldName] {
			delete(ctx.Filter, oldName)
			ctx.Filter[newName] = true
		}
		moved++
	}
	return moved
}

// MergeClasses folds the lowest-entropy classes into compatible targets:
// fields and non-constructor methods move over (renamed on collision, with
// every call site rewritten), constructors merge behind a boolean
// discriminator, and every reference to the source class is retargeted.
func MergeClasses(ctx *Context, k int) int {
	applied := 0
	for attempt := 0; attempt < k; attempt++ {
		ranked := ctx.Calc.ClassesSortedByEntropy(ctx.Graph)
		source, target := pickMergePair(ctx, ranked)
		if source == nil || target == nil {
			break
		}
		if err := mergeClassPair(ctx, source, target); err != nil {
			ctx.Log.Append(Record{
				Operation: "merge_classes",
				Target:    source.Name,
				After:     "skipped: " + err.Error(),
			})
			continue
		}
		applied++
	}
	return applied
}

func pickMergePair(ctx *Context, ranked []entropy.ClassEntropy) (*model.Class, *model.Class) {
	for i := 0; i < len(ranked); i++ {
		source := ctx.Model.Class(ranked[i].Name)
		if source == nil || source.Interface {
			continue
		}
		for j := i + 1; j < len(ranked); j++ {
			target := ctx.Model.Class(ranked[j].Name)
			if target == nil || target.Interface {
				continue
			}
			if ClassesCompatible(ctx.Model, source, target) {
				return source, target
			}
		}
	}
	return nil, nil
}

// ClassesCompatible checks the merge precondition: matching superclasses,
// and for any interface implemented by both classes, identical member sets
// implementing that interface. Incompatible pairs must be rejected before
// any mutation.
func ClassesCompatible(m *model.CodeModel, source, target *model.Class) bool {
	if source.Interface || target.Interface || source.Name == target.Name {
		return false
	}
	if source.SuperName() != target.SuperName() {
		return false
	}
	for _, ifaceName := range source.Interfaces {
		if !target.Implements(ifaceName) {
			continue
		}
		iface := m.Class(ifaceName)
		if iface == nil {
			continue
		}
		for _, im := range iface.Methods {
			d := im.Descriptor()
			if (source.GetMethod(d) != nil) != (target.GetMethod(d) != nil) {
				return false
			}
		}
	}
	return true
}

func mergeClassPair(ctx *Context, source, target *model.Class) error {
	if !ClassesCompatible(ctx.Model, source, target) {
		return fmt.Errorf("classes %s and %s are incompatible", source.Name, target.Name)
	}
	var affected []string

	sharedIfaceMethods := sharedInterfaceDescriptors(ctx.Model, source, target)

	for _, field := range source.Fields {
		newName := field.Name
		if target.GetField(newName) != nil {
			newName = uniqueFieldName(target, field.Name+"M")
			affected = append(affected, fmt.Sprintf("field %s renamed %s", field.Name, newName))
		}
		moved := field.Clone()
		moved.Name = newName
		target.AddField(moved)
		for _, site := range ctx.Model.FieldAccesses(source.Name, field.Name) {
			ins := site.Instruction()
			ins.FieldClass = target.Name
			ins.FieldName = newName
		}
	}

	for _, method := range source.Methods {
		if method.Constructor {
			continue
		}
		descriptor := method.Descriptor()
		if sharedIfaceMethods[descriptor] {
			// target already carries an identical interface implementation;
			// renaming would change dispatch, so the source copy is dropped
			ctx.Model.RetargetCalls(source.Name, descriptor, target.Name, method.Name, descriptor)
			continue
		}
		moved := method.Clone()
		if target.GetMethod(descriptor) != nil {
			moved.Name = uniqueMethodName(target, method.Name+"M")
			affected = append(affected, fmt.Sprintf("method %s renamed %s", method.Name, moved.Name))
		}
		target.AddMethod(moved)
		ctx.Model.RetargetCalls(source.Name, descriptor, target.Name, moved.Name, moved.Descriptor())
	}

	mergeConstructors(ctx, source, target)

	ctx.Model.RemoveClass(source.Name)
	retargetClassRefs(ctx.Model, source.Name, target.Name)
	delete(ctx.Filter, source.Name)
	target.Reindex()
	ctx.RebuildGraph()

	ctx.Log.Append(Record{
		Operation: "merge_classes",
		Target:    target.Name,
		Before:    source.Name,
		After:     target.Name,
		Affected:  affected,
	})
	return nil
}

// sharedInterfaceDescriptors collects descriptors of methods implementing
// an interface both classes declare.
func sharedInterfaceDescriptors(m *model.CodeModel, source, target *model.Class) map[string]bool {
	out := map[string]bool{}
	for _, ifaceName := range source.Interfaces {
		if !target.Implements(ifaceName) {
			continue
		}
		iface := m.Class(ifaceName)
		if iface == nil {
			continue
		}
		for _, im := range iface.Methods {
			out[im.Descriptor()] = true
		}
	}
	return out
}

// mergeConstructors pairs source constructors with target constructors and
// produces merged constructors carrying a trailing boolean discriminator:
// true runs the original target logic, false the original source logic.
// Every existing constructor call site is rewritten to pass the flag.
func mergeConstructors(ctx *Context, source, target *model.Class) {
	targetCtors := target.Constructors()
	sourceCtors := source.Constructors()

	for i, sctor := range sourceCtors {
		var tctor *model.Method
		if i < len(targetCtors) {
			tctor = targetCtors[i]
		}

		merged := &model.Method{
			Name:        model.ConstructorName,
			Access:      "public",
			Constructor: true,
			Return:      model.Void,
		}
		var targetBody []model.Instruction
		var tParams []*model.Parameter
		if tctor != nil {
			tParams = tctor.Params
			targetBody = cloneBody(tctor.Body)
		} else {
			targetBody = []model.Instruction{model.Raw("super();")}
		}
		for _, p := range tParams {
			merged.AddParameter(p.Name, p.Type)
		}
		sourceBody := cloneBody(sctor.Body)
		for _, p := range sctor.Params {
			name := p.Name
			if paramNameTaken(merged.Params, name) {
				renamed := "src" + capitalize(name)
				renameToken(sourceBody, name, renamed)
				name = renamed
			}
			merged.AddParameter(name, p.Type)
		}
		flag := merged.AddParameter("selector", model.Primitive("boolean"))

		merged.Append(model.Raw("if (" + flag.Name + ") {"))
		merged.Append(targetBody...)
		merged.Append(model.Raw("} else {"))
		merged.Append(sourceBody...)
		merged.Append(model.Raw("}"))

		mergedDesc := merged.Descriptor()

		// rewrite target ctor sites: same leading args, defaults for the
		// source half, flag true
		if tctor != nil {
			oldDesc := tctor.Descriptor()
			for _, site := range ctx.Model.CallSites(target.Name, oldDesc) {
				ins := site.Instruction()
				for _, p := range sctor.Params {
					ins.Args = append(ins.Args, model.DefaultValue(p.Type))
				}
				ins.Args = append(ins.Args, "true")
				ins.TargetDesc = mergedDesc
			}
			target.RemoveMethod(oldDesc)
		}

		// rewrite source ctor sites: defaults for the target half first,
		// then the original args, flag false
		for _, site := range ctx.Model.CallSites(source.Name, sctor.Descriptor()) {
			ins := site.Instruction()
			leading := make([]string, 0, len(tParams))
			for _, p := range tParams {
				leading = append(leading, model.DefaultValue(p.Type))
			}
			ins.Args = append(append(leading, ins.Args...), "false")
			ins.TargetClass = target.Name
			ins.TargetDesc = mergedDesc
		}

		target.AddMethod(merged)
	}
}

func cloneBody(body []model.Instruction) []model.Instruction {
	out := make([]model.Instruction, len(body))
	for i, ins := range body {
		out[i] = ins.Clone()
	}
	return out
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func paramNameTaken(params []*model.Parameter, name string) bool {
	for _, p := range params {
		if p.Name == name {
			return true
		}
	}
	return false
}

// renameToken rewrites identifier occurrences across instruction fields
// with word-boundary matching, so "x" never corrupts "max".
func renameToken(body []model.Instruction, old, newName string) {
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(old) + `\b`)
	replace := func(s string) string { return re.ReplaceAllString(s, newName) }
	for i := range body {
		ins := &body[i]
		ins.Text = replace(ins.Text)
		ins.Expr = replace(ins.Expr)
		ins.Receiver = replace(ins.Receiver)
		ins.Assign = replace(ins.Assign)
		ins.FieldRecv = replace(ins.FieldRecv)
		ins.LocalName = replace(ins.LocalName)
		for j := range ins.Args {
			ins.Args[j] = replace(ins.Args[j])
		}
	}
}

// retargetClassRefs rewrites every type reference to a removed class onto
// its merge target: supertypes, member types, locals, call targets and
// field owners.
func retargetClassRefs(m *model.CodeModel, old, newName string) {
	swap := func(t *model.TypeRef) {
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
			swap(&f.Type)
			if strings.Contains(f.Init, old) {
				f.Init = strings.ReplaceAll(f.Init, old, newName)
			}
		}
		for _, mt := range c.Methods {
			swap(&mt.Return)
			for _, p := range mt.Params {
				swap(&p.Type)
			}
			for i := range mt.Body {
				ins := &mt.Body[i]
				if ins.TargetClass == old {
					ins.TargetClass = newName
				}
				if ins.FieldClass == old {
					ins.FieldClass = newName
				}
				swap(&ins.LocalType)
				if strings.Contains(ins.TargetDesc, old) {
					ins.TargetDesc = strings.ReplaceAll(ins.TargetDesc, old, newName)
				}
				if strings.Contains(ins.Text, old) {
					ins.Text = strings.ReplaceAll(ins.Text, old, newName)
				}
			}
		}
		c.Reindex()
	}
}
