package vm

import (
	"github.com/wudi/gscript/bytecode"
	"github.com/wudi/gscript/values"
)

// loadGlobal implements LoadName (spec §4.4: "in __module_init__, let x =
// expr compiles to StoreName"; reads of module-level names resolve the
// same way). A name not yet assigned by __module_init__ falls back to its
// compile-time GlobalBinding default so forward references within
// __module_init__ itself still see a defined value.
func (vm *VirtualMachine) loadGlobal(ctx *ExecutionContext, pin *bytecode.Module, name string) (values.Value, error) {
	if g, ok := ctx.globals[pin]; ok {
		if v, ok := g[name]; ok {
			return v, nil
		}
	}
	for _, gb := range pin.Globals {
		if gb.Name == name {
			return vm.normalizeConst(ctx, gb.Initial, pin), nil
		}
	}
	return values.Nil, errUnknownMember("undefined global %q in module %s", name, pin.Name)
}

func (vm *VirtualMachine) storeGlobal(ctx *ExecutionContext, pin *bytecode.Module, name string, v values.Value) {
	g, ok := ctx.globals[pin]
	if !ok {
		g = make(map[string]values.Value)
		ctx.globals[pin] = g
	}
	g[name] = v
}
