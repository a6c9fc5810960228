// Package vm implements the stack-based virtual machine: ExecutionContext,
// Frame, value normalization, and the big-switch instruction dispatch loop
// (spec §4.5), grounded on the teacher's vm package dispatch-loop idiom.
package vm

import (
	"time"

	"github.com/google/uuid"

	"github.com/wudi/gscript/bytecode"
	"github.com/wudi/gscript/types"
	"github.com/wudi/gscript/values"
)

// CoroutineState is an ExecutionContext's scheduling state (spec §3).
type CoroutineState int

const (
	Running CoroutineState = iota
	Suspended
	Completed
)

// Frame is one function-call activation (spec §3).
type Frame struct {
	FunctionName string
	FunctionIdx  int
	IP           int
	Pin          *bytecode.Module
	Locals       []values.Value
	Captures     []*types.UpvalueCellObject
	Stack        []values.Value

	ReplaceReturnWithInstance bool
	ConstructorInstance       values.Value
}

func (f *Frame) push(v values.Value) { f.Stack = append(f.Stack, v) }

func (f *Frame) pop() (values.Value, bool) {
	n := len(f.Stack)
	if n == 0 {
		return values.Nil, false
	}
	v := f.Stack[n-1]
	f.Stack = f.Stack[:n-1]
	return v, true
}

func (f *Frame) popN(n int) ([]values.Value, bool) {
	if len(f.Stack) < n {
		return nil, false
	}
	args := make([]values.Value, n)
	copy(args, f.Stack[len(f.Stack)-n:])
	f.Stack = f.Stack[:len(f.Stack)-n]
	return args, true
}

// ExecutionContext is per-coroutine state (spec §3): frame stack, runtime
// string pool, object heap, module-init tracking, module-object cache,
// return value, completion flag, sleep/yield wake time.
type ExecutionContext struct {
	TraceID uuid.UUID

	Frames []*Frame

	// Strings is the runtime string pool, seeded from each Module's
	// compile-time Strings on first observation and appended to by
	// NewString. stringIndex dedupes so repeated construction of the same
	// content doesn't grow the pool unboundedly.
	Strings     []string
	stringIndex map[string]int

	Heap         map[int64]types.Object
	nextObjectID int64

	moduleInitDone       map[*bytecode.Module]bool
	moduleInitInProgress map[*bytecode.Module]bool
	moduleCache          map[string]*types.ModuleObject

	// globals holds each Module's runtime `let` globals, keyed by module
	// pin then name (spec §3: "module-level runtime globals").
	globals map[*bytecode.Module]map[string]values.Value

	ReturnValue values.Value
	State       CoroutineState
	WakeTime    time.Time

	stringifying map[int64]bool

	Out func(string) // sink for print/printf output; nil falls back to stdout

	ownerVM *VirtualMachine
}

// NewExecutionContext creates an empty context (spec §3's "created per
// top-level VM call" lifecycle). out may be nil to discard script output.
func NewExecutionContext(out func(string)) *ExecutionContext {
	return &ExecutionContext{
		TraceID:              uuid.New(),
		stringIndex:          make(map[string]int),
		Heap:                 make(map[int64]types.Object),
		moduleInitDone:       make(map[*bytecode.Module]bool),
		moduleInitInProgress: make(map[*bytecode.Module]bool),
		moduleCache:          make(map[string]*types.ModuleObject),
		globals:              make(map[*bytecode.Module]map[string]values.Value),
		stringifying:         make(map[int64]bool),
		Out:                  out,
	}
}

// bind records which VirtualMachine is driving this context, so Stringify
// (required by types.Runtime/HostContext) can dispatch __str__ hooks that
// need the full instruction-execution machinery. Idempotent.
func (ctx *ExecutionContext) bind(vm *VirtualMachine) { ctx.ownerVM = vm }

func (ctx *ExecutionContext) currentFrame() *Frame {
	if len(ctx.Frames) == 0 {
		return nil
	}
	return ctx.Frames[len(ctx.Frames)-1]
}

func (ctx *ExecutionContext) pushFrame(f *Frame) { ctx.Frames = append(ctx.Frames, f) }

func (ctx *ExecutionContext) popFrame() *Frame {
	n := len(ctx.Frames)
	if n == 0 {
		return nil
	}
	f := ctx.Frames[n-1]
	ctx.Frames = ctx.Frames[:n-1]
	return f
}

// nextID hands out a unique non-zero object id (spec §3, §8 invariant 5).
func (ctx *ExecutionContext) nextID() int64 {
	ctx.nextObjectID++
	return ctx.nextObjectID
}

// admit assigns the next object id and stores mk(id)'s result under it —
// mk must build the object using that same id so ObjectID() matches the
// heap key (spec §8 invariant 5: object ids are unique and stable).
func (ctx *ExecutionContext) admit(mk func(id int64) types.Object) int64 {
	id := ctx.nextID()
	ctx.Heap[id] = mk(id)
	if ctx.ownerVM != nil && ctx.ownerVM.gc != nil {
		ctx.ownerVM.gc.noteAllocation(id)
	}
	return id
}

// NewObject implements HostContext: lets a host module (hostlib/db's
// db.open, for instance) admit its own types.Object implementation onto
// the heap the same way built-in Lists/Dicts/Tuples are admitted, so its
// handle values participate in GC and CallMethod dispatch identically to
// any other Ref.
func (ctx *ExecutionContext) NewObject(mk func(id int64) types.Object) values.Value {
	return values.Ref(ctx.admit(mk))
}

// internString seeds the runtime string pool from a Module's constant-pool
// string body, deduping against any identical content already present.
func (ctx *ExecutionContext) internString(s string) int64 {
	if i, ok := ctx.stringIndex[s]; ok {
		return int64(i)
	}
	i := len(ctx.Strings)
	ctx.Strings = append(ctx.Strings, s)
	ctx.stringIndex[s] = i
	return int64(i)
}

// NewString implements types.Runtime: allocates (or reuses) a runtime
// string pool slot and returns a String-tagged Value for it.
func (ctx *ExecutionContext) NewString(s string) values.Value {
	return values.StringIdx(ctx.internString(s))
}

// StringOf implements types.Runtime: resolves a String-tagged Value back to
// its Go string content.
func (ctx *ExecutionContext) StringOf(v values.Value) (string, error) {
	if !v.IsString() {
		return "", errTypeMismatch("expected a String value")
	}
	if v.Payload < 0 || int(v.Payload) >= len(ctx.Strings) {
		return "", errOutOfRange("string pool index %d out of range", v.Payload)
	}
	return ctx.Strings[v.Payload], nil
}

// NewList implements types.Runtime.
func (ctx *ExecutionContext) NewList(elements []values.Value) values.Value {
	id := ctx.admit(func(id int64) types.Object { return types.NewListObject(id, elements) })
	return values.Ref(id)
}

// NewDict implements types.Runtime.
func (ctx *ExecutionContext) NewDict() values.Value {
	id := ctx.admit(func(id int64) types.Object { return types.NewDictObject(id) })
	return values.Ref(id)
}

// NewTuple implements types.Runtime.
func (ctx *ExecutionContext) NewTuple(elements []values.Value) values.Value {
	id := ctx.admit(func(id int64) types.Object { return types.NewTupleObject(id, elements) })
	return values.Ref(id)
}
