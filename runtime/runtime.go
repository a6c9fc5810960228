// Package runtime is the embeddable façade (spec §1: "a reusable runtime
// façade any Go program embeds"): load source from disk, compile its
// transitive import tree, and invoke named entry points against a shared
// VirtualMachine. Grounded on the teacher's vmfactory.VMFactory/runtime
// Bootstrap pattern — one-time host wiring plus a cached compiled-module
// table guarded by a mutex — generalized from PHP's global registry
// bootstrap to this language's host-function/module-pin model.
package runtime

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/wudi/gscript/bytecode"
	"github.com/wudi/gscript/compiler"
	"github.com/wudi/gscript/errs"
	"github.com/wudi/gscript/host"
	dbhost "github.com/wudi/gscript/hostlib/db"
	"github.com/wudi/gscript/parser"
	"github.com/wudi/gscript/preprocess"
	"github.com/wudi/gscript/scheduler"
	"github.com/wudi/gscript/values"
	"github.com/wudi/gscript/vm"
)

// sourceExt is this language's source file suffix, used both to derive a
// bare module's canonical name and to resolve an import spec to a file on
// disk (spec.md doesn't name one; ".gs" follows the module's own name).
const sourceExt = ".gs"

// Options configures a Runtime: import search paths, worker-pool size, the
// GC and coroutine opt-ins, and the output sink are all host-supplied.
type Options struct {
	// SearchPaths is tried, in order, after a module spec's own directory,
	// when resolving an import to a file (spec §4.3).
	SearchPaths []string

	// Workers bounds the task scheduler's concurrent goroutine count
	// (spec §4.7). Ignored unless EnableCoroutines is set; <= 0 means 4.
	Workers int

	// EnableGC opts into the VM's generational mark-sweep sketch (spec
	// §5) — worthwhile only when a host reuses one ExecutionContext
	// across many RunFunction calls (a REPL, a long-lived server loop).
	EnableGC bool

	// EnableCoroutines gates spawn/await/sleep/yield (spec §9, open
	// question 4); disabled by default, matching the compiler's default.
	EnableCoroutines bool

	// Out receives print/printf output; nil falls back to stdout.
	Out func(string)
}

// Runtime owns one VirtualMachine and the cache of every module compiled
// into it so far, keyed by canonical import spec (spec §4.3's Resolver
// canonicalization).
type Runtime struct {
	mu      sync.RWMutex
	opts    Options
	vm      *vm.VirtualMachine
	modules map[string]*bytecode.Module
}

// New builds a Runtime: a fresh VirtualMachine with the global host
// functions (print/printf/str/type/id/loadModule/system.gc) and the db
// host module registered, plus a task scheduler when coroutines are
// enabled.
func New(opts Options) *Runtime {
	m := vm.New(vm.Options{EnableGC: opts.EnableGC})
	host.Register(m)
	dbhost.Register(m)
	if opts.EnableCoroutines {
		workers := opts.Workers
		if workers <= 0 {
			workers = 4
		}
		m.Scheduler = scheduler.New(workers)
	}
	return &Runtime{opts: opts, vm: m, modules: make(map[string]*bytecode.Module)}
}

func (rt *Runtime) getModule(name string) (*bytecode.Module, bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	mod, ok := rt.modules[name]
	return mod, ok
}

func (rt *Runtime) setModule(name string, mod *bytecode.Module) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.modules[name] = mod
	rt.vm.Modules[name] = mod
}

func moduleNameFor(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// LoadFile compiles path and every module it (transitively) imports,
// caching each under its canonical import spec so a later loadModule call
// resolves without recompiling (spec §4.3/§4.4). Calling LoadFile again
// for a path already compiled recompiles it (a hot-reload: spec §1's
// "supports hot reload of a module's bytecode").
func (rt *Runtime) LoadFile(path string) (*bytecode.Module, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.NewImport(errs.ErrModuleNotFound, "reading %s: %v", path, err)
	}
	name := moduleNameFor(path)
	resolver := preprocess.NewResolver(rt.opts.SearchPaths)
	resolver.Enter(name)
	defer resolver.Leave(name)
	return rt.compileTree(resolver, name, string(src), filepath.Dir(path), true)
}

// compileTree preprocesses+parses+compiles one source body, then
// recursively compiles every import spec Preprocess newly discovered in
// it, sharing resolver across the whole walk so a cycle anywhere in the
// tree is caught (spec §4.3's ErrImportCycle). force recompiles even if
// name is already cached (only true for the initial LoadFile entry).
func (rt *Runtime) compileTree(resolver *preprocess.Resolver, name, source, dir string, force bool) (*bytecode.Module, error) {
	if !force {
		if mod, ok := rt.getModule(name); ok {
			return mod, nil
		}
	}

	pre, err := preprocess.Preprocess(source, resolver)
	if err != nil {
		return nil, err
	}
	prog, err := parser.Parse(pre)
	if err != nil {
		return nil, err
	}
	mod, err := compiler.Compile(prog, name, compiler.Options{EnableCoroutines: rt.opts.EnableCoroutines})
	if err != nil {
		return nil, err
	}
	rt.setModule(name, mod)

	for _, spec := range resolver.Take() {
		if _, ok := rt.getModule(spec); ok {
			continue
		}
		childPath, err := rt.findModuleFile(spec, dir)
		if err != nil {
			return nil, err
		}
		childSrc, err := os.ReadFile(childPath)
		if err != nil {
			return nil, errs.NewImport(errs.ErrModuleNotFound, "reading %s: %v", childPath, err)
		}
		resolver.Enter(spec)
		_, err = rt.compileTree(resolver, spec, string(childSrc), filepath.Dir(childPath), false)
		resolver.Leave(spec)
		if err != nil {
			return nil, err
		}
	}
	return mod, nil
}

// findModuleFile resolves a canonical import spec ("a/b/c") to a source
// file: dir (the importing file's own directory) first, then each of
// rt.opts.SearchPaths in order, each tried with and without sourceExt.
func (rt *Runtime) findModuleFile(spec, dir string) (string, error) {
	candidates := append([]string{dir}, rt.opts.SearchPaths...)
	for _, base := range candidates {
		for _, p := range []string{spec, spec + sourceExt} {
			full := filepath.Join(base, p)
			if st, err := os.Stat(full); err == nil && !st.IsDir() {
				return full, nil
			}
		}
	}
	return "", errs.NewImport(errs.ErrModuleNotFound, "module %q not found on any search path", spec)
}

// NewContext creates a fresh ExecutionContext wired to rt's Out sink
// (spec §3's "created per top-level VM call" lifecycle).
func (rt *Runtime) NewContext() *vm.ExecutionContext {
	return vm.NewExecutionContext(rt.opts.Out)
}

// Run invokes funcName in mod against ctx (spec §4.5's runFunction). ctx
// is supplied by the caller rather than created internally because a
// String-tagged result Value is only meaningful against the runtime
// string pool of the context that produced it — a caller wanting to
// render the result (via ctx.Stringify) needs that same ctx.
func (rt *Runtime) Run(ctx *vm.ExecutionContext, mod *bytecode.Module, funcName string, args []values.Value) (values.Value, error) {
	return rt.vm.RunFunction(ctx, mod, funcName, args)
}

// RunMain loads path and invokes its "main" function with no arguments —
// the shape `cmd/gscript run <file>` drives (spec.md §6's CLI surface),
// which renders the result with ctx.Stringify once Run returns.
func (rt *Runtime) RunMain(path string) (values.Value, *vm.ExecutionContext, error) {
	mod, err := rt.LoadFile(path)
	if err != nil {
		return values.Nil, nil, err
	}
	ctx := rt.NewContext()
	v, err := rt.Run(ctx, mod, "main", nil)
	return v, ctx, err
}

// VM exposes the underlying VirtualMachine, for a host that needs to
// register additional native functions beyond host.Register's defaults.
func (rt *Runtime) VM() *vm.VirtualMachine { return rt.vm }
