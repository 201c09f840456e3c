package perturb

import (
	"github.com/libshade/libshade/model"
)

// synthesizeWrapper creates a public two-slot carrier class used to unify
// two merged fields or parameters of different types. The wrapper carries
// a no-argument constructor and a two-argument constructor populating both
// slots, so call-site rewrites can construct it inline.
func synthesizeWrapper(ctx *Context, pkg string, slotA, slotB model.TypeRef) (*model.Class, error) {
	qualified := ctx.uniqueClassName(pkg, "PairHolder")
	wrapper := model.NewClass(qualified)

	wrapper.AddField(&model.Field{Name: "slotA", Access: "public", Type: slotA})
	wrapper.AddField(&model.Field{Name: "slotB", Access: "public", Type: slotB})

	noArg := &model.Method{
		Name:        model.ConstructorName,
		Access:      "public",
		Constructor: true,
		Return:      model.Void,
	}
	noArg.Append(model.Raw("super();"))
	wrapper.AddMethod(noArg)

	full := &model.Method{
		Name:        model.ConstructorName,
		Access:      "public",
		Constructor: true,
		Return:      model.Void,
	}
	full.AddParameter("a", slotA)
	full.AddParameter("b", slotB)
	full.Append(
		model.Raw("super();"),
		model.FieldWrite(qualified, "slotA", "this", "a"),
		model.FieldWrite(qualified, "slotB", "this", "b"),
	)
	wrapper.AddMethod(full)

	if err := ctx.Model.AddClass(wrapper); err != nil {
		return nil, err
	}
	ctx.Filter[qualified] = true
	return wrapper, nil
}

// wrapperNew renders a constructor call for the wrapper populating both
// slots.
func wrapperNew(wrapper *model.Class, a, b string) string {
	return "new " + wrapper.Name + "(" + a + ", " + b + ")"
}
