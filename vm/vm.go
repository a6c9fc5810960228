package vm

import (
	"time"

	"github.com/wudi/gscript/bytecode"
	"github.com/wudi/gscript/errs"
	"github.com/wudi/gscript/types"
	"github.com/wudi/gscript/values"
)

// HostContext is the narrow handle CallHost passes to a registered native
// function (spec §4.5: "createObject, createString, getObject, __str__,
// typeName, objectId"). ExecutionContext implements it via the methods
// below plus the types.Runtime embedding it already provides.
type HostContext interface {
	NewString(s string) values.Value
	Stringify(v values.Value) (string, error)
	StringOf(v values.Value) (string, error)
	NewList(elements []values.Value) values.Value
	NewDict() values.Value
	NewTuple(elements []values.Value) values.Value
	NewObject(mk func(id int64) types.Object) values.Value
	GetObject(v values.Value) (any, error)
	TypeName(v values.Value) string
	ObjectID(v values.Value) (int64, error)
	Print(s string)
	LoadModule(name string) (values.Value, error)
	CollectGarbage() (swept int, ran bool)
}

// NativeFunc is a host-registered global function (print, loadModule, ...).
type NativeFunc func(hc HostContext, args []values.Value) (values.Value, error)

// Scheduler dispatches SpawnFunc/Await (spec §4.7); the runtime façade
// wires scheduler.TaskSystem in as this interface. A nil Scheduler makes
// SpawnFunc/Await fail with a RuntimeError, which only matters when a host
// opts into EnableCoroutines without also wiring a scheduler.
type Scheduler interface {
	Spawn(fn func() (values.Value, error)) int64
	Await(handle int64) (values.Value, error)
}

// Options configures a VirtualMachine (spec §5's optional GC sketch).
type Options struct {
	EnableGC bool
}

// VirtualMachine executes compiled Modules against ExecutionContexts (spec
// §4.5), following the teacher's big-switch executeInstruction dispatch
// loop shape.
type VirtualMachine struct {
	opts      Options
	Natives   map[string]NativeFunc
	Scheduler Scheduler
	Modules   map[string]*bytecode.Module // by name, for loadModule/imports
	gc        *gcState
}

func New(opts Options) *VirtualMachine {
	vm := &VirtualMachine{
		opts:    opts,
		Natives: make(map[string]NativeFunc),
		Modules: make(map[string]*bytecode.Module),
	}
	if opts.EnableGC {
		vm.gc = newGCState()
	}
	return vm
}

func (vm *VirtualMachine) RegisterHost(name string, fn NativeFunc) { vm.Natives[name] = fn }

// RunFunction implements spec §4.5's runFunction: begin a context, drive
// resume() to completion (honoring sleep wake times), run delete hooks,
// return the final return value.
func (vm *VirtualMachine) RunFunction(ctx *ExecutionContext, pin *bytecode.Module, name string, args []values.Value) (values.Value, error) {
	ctx.bind(vm)
	if err := vm.ensureModuleInit(ctx, pin); err != nil {
		return values.Nil, err
	}
	funcIdx, ok := pin.FunctionIndex[name]
	if !ok {
		return values.Nil, errUnknownMember("function %q not found in module %s", name, pin.Name)
	}
	pushCallFrame(ctx, pin, funcIdx, args)
	ctx.State = Running

	for {
		state, err := vm.Resume(ctx, 1<<30)
		if err != nil {
			return values.Nil, err
		}
		if state == Completed {
			break
		}
		if state == Suspended {
			if wait := time.Until(ctx.WakeTime); wait > 0 {
				time.Sleep(wait)
			}
			ctx.State = Running
		}
	}
	vm.runDeleteHooks(ctx)
	if vm.gc != nil {
		vm.collect(ctx)
	}
	return ctx.ReturnValue, nil
}

// callAndRun pushes a frame and drives it (and anything it calls) to
// completion without surfacing intermediate Suspended states — used by
// host-triggered synchronous calls such as a __str__ hook invocation, which
// have no budget/suspension contract of their own. The called function's
// result is returned directly: it is taken back off the caller frame's
// stack, or, with no caller frame, ctx.ReturnValue is restored afterwards.
func (vm *VirtualMachine) callAndRun(ctx *ExecutionContext, pin *bytecode.Module, funcIdx int, args []values.Value) (values.Value, error) {
	ctx.bind(vm)
	targetDepth := len(ctx.Frames)
	saved := ctx.ReturnValue
	pushCallFrame(ctx, pin, funcIdx, args)
	for len(ctx.Frames) > targetDepth {
		if _, err := vm.step(ctx); err != nil {
			return values.Nil, err
		}
	}
	if caller := ctx.currentFrame(); caller != nil {
		v, _ := caller.pop()
		return v, nil
	}
	v := ctx.ReturnValue
	ctx.ReturnValue = saved
	return v, nil
}

// Resume executes up to stepBudget instructions then returns the current
// coroutine state (spec §4.5 resume).
func (vm *VirtualMachine) Resume(ctx *ExecutionContext, stepBudget int) (CoroutineState, error) {
	for i := 0; i < stepBudget; i++ {
		if len(ctx.Frames) == 0 {
			ctx.State = Completed
			return Completed, nil
		}
		suspended, err := vm.step(ctx)
		if err != nil {
			ctx.State = Completed
			return Completed, err
		}
		if suspended {
			ctx.State = Suspended
			return Suspended, nil
		}
		if len(ctx.Frames) == 0 {
			ctx.State = Completed
			return Completed, nil
		}
	}
	return ctx.State, nil
}

// step executes exactly one instruction of the current frame, returning
// true if it suspended the coroutine (Sleep/Yield).
func (vm *VirtualMachine) step(ctx *ExecutionContext) (bool, error) {
	frame := ctx.currentFrame()
	if frame == nil {
		return false, nil
	}
	if frame.IP < 0 || frame.IP >= len(frame.Pin.Functions[frame.FunctionIdx].Code) {
		if err := vm.doReturn(ctx, values.Int(0)); err != nil {
			return false, err
		}
		return false, nil
	}
	inst := frame.Pin.Functions[frame.FunctionIdx].Code[frame.IP]
	advance, suspended, err := vm.executeInstruction(ctx, frame, inst)
	if err != nil {
		return false, decorateError(frame, inst, err)
	}
	if suspended {
		return true, nil
	}
	if advance && ctx.currentFrame() == frame {
		frame.IP++
	}
	return false, nil
}

func (vm *VirtualMachine) ensureModuleInit(ctx *ExecutionContext, pin *bytecode.Module) error {
	if ctx.moduleInitDone[pin] {
		return nil
	}
	if ctx.moduleInitInProgress[pin] {
		return errs.NewRuntime(errs.ErrModuleInitCycle, "module %s re-entered its own __module_init__", pin.Name)
	}
	ctx.moduleInitInProgress[pin] = true
	defer delete(ctx.moduleInitInProgress, pin)

	if _, ok := pin.FunctionIndex["__module_init__"]; ok {
		if _, err := vm.callAndRun(ctx, pin, pin.FunctionIndex["__module_init__"], nil); err != nil {
			return err
		}
	}
	ctx.moduleInitDone[pin] = true
	return nil
}

// loadModule implements the loadModule host function (spec §4.5/§6):
// resolve pin by name, run its __module_init__ at most once, memoize the
// resulting ModuleObject per-context so repeated loadModule calls for the
// same name return the same heap Ref.
func (vm *VirtualMachine) loadModule(ctx *ExecutionContext, name string) (values.Value, error) {
	if mod, ok := ctx.moduleCache[name]; ok {
		return values.Ref(mod.ObjectID()), nil
	}
	pin, ok := vm.Modules[name]
	if !ok {
		return values.Nil, errs.NewRuntime(errs.ErrModuleNotFound, "module %q not found", name)
	}
	if err := vm.ensureModuleInit(ctx, pin); err != nil {
		return values.Nil, err
	}
	var mod *types.ModuleObject
	id := ctx.admit(func(id int64) types.Object {
		mod = types.NewModuleObject(id, name, pin)
		return mod
	})
	ctx.moduleCache[name] = mod
	return values.Ref(id), nil
}

// runDeleteHooks implements spec §4.7: one pass over the heap collecting
// every ScriptInstance whose class chain defines __delete__, invoked once
// each as a fresh top-level call; a hook failure aborts only that hook.
func (vm *VirtualMachine) runDeleteHooks(ctx *ExecutionContext) {
	for _, t := range vm.collectDeleteHooks(ctx) {
		_, _ = vm.callAndRun(ctx, t.pin, t.funcIdx, []values.Value{t.self})
	}
}
