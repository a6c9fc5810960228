package vm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/gscript/compiler"
	"github.com/wudi/gscript/host"
	"github.com/wudi/gscript/parser"
	"github.com/wudi/gscript/scheduler"
	"github.com/wudi/gscript/values"
	"github.com/wudi/gscript/vm"
)

// compileAndRun parses+compiles src (with coroutines enabled so spawn/
// await/sleep/yield tests can share the same helper), runs its "main"
// against m, and returns the result.
func compileAndRun(t *testing.T, m *vm.VirtualMachine, src string) (values.Value, *vm.ExecutionContext, error) {
	t.Helper()
	prog, err := parser.Parse(src)
	require.NoError(t, err)
	mod, err := compiler.Compile(prog, "test", compiler.Options{EnableCoroutines: true})
	require.NoError(t, err)
	ctx := vm.NewExecutionContext(nil)
	v, err := m.RunFunction(ctx, mod, "main", nil)
	return v, ctx, err
}

func newVM(t *testing.T) *vm.VirtualMachine {
	t.Helper()
	m := vm.New(vm.Options{})
	host.Register(m)
	m.Scheduler = scheduler.New(4)
	return m
}

func TestVMArithmetic(t *testing.T) {
	m := newVM(t)
	v, _, err := compileAndRun(t, m, `fn main(){ let a=1; let b=2; return a+b; }`)
	require.NoError(t, err)
	assert.Equal(t, values.Int(3), v)
}

func TestVMRecursiveFib(t *testing.T) {
	m := newVM(t)
	v, _, err := compileAndRun(t, m, `fn fib(n){ if(n<2){return n;} return fib(n-1)+fib(n-2); } fn main(){ return fib(10); }`)
	require.NoError(t, err)
	assert.Equal(t, values.Int(55), v)
}

func TestVMClassConstructorAndMethod(t *testing.T) {
	m := newVM(t)
	src := `class P { x=0; fn __new__(self,v){ self.x=v; } fn double(self){ return self.x+self.x; } } fn main(){ let p=P(21); return p.double(); }`
	v, _, err := compileAndRun(t, m, src)
	require.NoError(t, err)
	assert.Equal(t, values.Int(42), v)
}

func TestVMInheritanceOverride(t *testing.T) {
	m := newVM(t)
	src := `class A{ fn __new__(self){} fn who(self){return "A";} } class B extends A{ fn __new__(self){} fn who(self){return "B";} } fn main(){ let b=B(); return b.who(); }`
	v, ctx, err := compileAndRun(t, m, src)
	require.NoError(t, err)
	s, err := ctx.Stringify(v)
	require.NoError(t, err)
	assert.Equal(t, "B", s)
}

func TestVMListIteration(t *testing.T) {
	m := newVM(t)
	v, _, err := compileAndRun(t, m, `fn main(){ let xs=[10,20,30]; let s=0; for(x in xs){ s=s+x; } return s; }`)
	require.NoError(t, err)
	assert.Equal(t, values.Int(60), v)
}

func TestVMDictIteration(t *testing.T) {
	m := newVM(t)
	src := `fn main(){ let d={}; d.set(1, 10); d.set(2, 20); d.set(3, 30); let s=0; for(i in [0,1,2]){ s=s+d.value_at(i); } return s; }`
	v, _, err := compileAndRun(t, m, src)
	require.NoError(t, err)
	assert.Equal(t, values.Int(60), v)
}

func TestVMSpawnAwait(t *testing.T) {
	m := newVM(t)
	src := `fn worker(){ return 21; } fn main(){ let h = spawn worker(); return await h; }`
	v, _, err := compileAndRun(t, m, src)
	require.NoError(t, err)
	assert.Equal(t, values.Int(21), v)
}

func TestVMSpawnAwaitTwice(t *testing.T) {
	m := newVM(t)
	src := `fn worker(n){ return n*n; } fn main(){ let a = spawn worker(3); let b = spawn worker(4); return (await a) + (await b); }`
	v, _, err := compileAndRun(t, m, src)
	require.NoError(t, err)
	assert.Equal(t, values.Int(25), v)
}

func TestVMSleepSuspendsAndResumes(t *testing.T) {
	m := newVM(t)
	src := `fn main(){ sleep(1); return 7; }`
	v, _, err := compileAndRun(t, m, src)
	require.NoError(t, err)
	assert.Equal(t, values.Int(7), v)
}

func TestVMYieldSuspendsAndResumes(t *testing.T) {
	m := newVM(t)
	src := `fn worker(){ yield; return 9; } fn main(){ let h = spawn worker(); return await h; }`
	v, _, err := compileAndRun(t, m, src)
	require.NoError(t, err)
	assert.Equal(t, values.Int(9), v)
}

func TestVMDeleteHookRunsOnFinalSweep(t *testing.T) {
	m := newVM(t)
	var printed []string

	prog, err := parser.Parse(`class Resource{ fn __new__(self){} fn __delete__(self){ print("closed"); } } fn main(){ let r=Resource(); return 1; }`)
	require.NoError(t, err)
	mod, err := compiler.Compile(prog, "test", compiler.Options{EnableCoroutines: true})
	require.NoError(t, err)

	ctx := vm.NewExecutionContext(func(s string) { printed = append(printed, s) })
	v, err := m.RunFunction(ctx, mod, "main", nil)
	require.NoError(t, err)
	assert.Equal(t, values.Int(1), v)
	require.Len(t, printed, 1)
	assert.Contains(t, printed[0], "closed")
}

func TestVMCircularStringifyGuard(t *testing.T) {
	m := newVM(t)
	src := `fn main(){ let l=[1,2]; l.push(l); return l; }`
	v, ctx, err := compileAndRun(t, m, src)
	require.NoError(t, err)
	s, err := ctx.Stringify(v)
	require.NoError(t, err)
	assert.Contains(t, s, "[Circular]")
}

func TestVMModuleInitRunsOnce(t *testing.T) {
	m := newVM(t)
	src := `let counter = 0; fn bump(){ counter = counter + 1; return counter; } fn main(){ return bump() + bump(); }`
	v, _, err := compileAndRun(t, m, src)
	require.NoError(t, err)
	assert.Equal(t, values.Int(3), v)
}
