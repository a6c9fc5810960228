package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/gscript/parser"
)

func TestCompileArithmetic(t *testing.T) {
	prog, err := parser.Parse(`fn main(){ let a=1; let b=2; return a+b; }`)
	require.NoError(t, err)
	mod, err := Compile(prog, "test", Options{})
	require.NoError(t, err)

	idx, ok := mod.FunctionIndex["main"]
	require.True(t, ok)
	fn := mod.Functions[idx]
	assert.Equal(t, 2, fn.LocalCount)
	assert.NotEmpty(t, fn.Code)
}

func TestCompileRecursiveFib(t *testing.T) {
	prog, err := parser.Parse(`fn fib(n){ if(n<2){return n;} return fib(n-1)+fib(n-2); } fn main(){ return fib(10); }`)
	require.NoError(t, err)
	mod, err := Compile(prog, "test", Options{})
	require.NoError(t, err)
	_, ok := mod.FunctionIndex["fib"]
	assert.True(t, ok)
	_, ok = mod.FunctionIndex["main"]
	assert.True(t, ok)
}

func TestCompileClassConstructor(t *testing.T) {
	src := `class P { x=0; fn __new__(self,v){ self.x=v; } fn double(self){ return self.x+self.x; } } fn main(){ let p=P(21); return p.double(); }`
	prog, err := parser.Parse(src)
	require.NoError(t, err)
	mod, err := Compile(prog, "test", Options{})
	require.NoError(t, err)

	classIdx, ok := mod.ClassIndex["P"]
	require.True(t, ok)
	cls := mod.Classes[classIdx]
	assert.Equal(t, -1, cls.BaseClassIdx)
	require.Len(t, cls.Attributes, 1)
	assert.Equal(t, "x", cls.Attributes[0].Name)
	require.Len(t, cls.Methods, 2)

	_, ok = mod.FunctionIndex["P::__new__"]
	assert.True(t, ok)
	_, ok = mod.FunctionIndex["P::double"]
	assert.True(t, ok)
}

func TestCompileInheritance(t *testing.T) {
	src := `class A{ fn __new__(self){} fn who(self){return "A";} } class B extends A{ fn __new__(self){} fn who(self){return "B";} } fn main(){ let b=B(); return b.who(); }`
	prog, err := parser.Parse(src)
	require.NoError(t, err)
	mod, err := Compile(prog, "test", Options{})
	require.NoError(t, err)

	aIdx := mod.ClassIndex["A"]
	bIdx := mod.ClassIndex["B"]
	assert.Equal(t, aIdx, mod.Classes[bIdx].BaseClassIdx)
}

func TestCompileListIteration(t *testing.T) {
	src := `fn main(){ let xs=[10,20,30]; let s=0; for(x in xs){ s=s+x; } return s; }`
	prog, err := parser.Parse(src)
	require.NoError(t, err)
	_, err = Compile(prog, "test", Options{})
	require.NoError(t, err)
}

func TestCompileDictIteration(t *testing.T) {
	src := `fn main(){ let d={1:"a",2:"b"}; let out=""; for(k,v in d){ out = out + str(k) + v; } return out; }`
	prog, err := parser.Parse(src)
	require.NoError(t, err)
	_, err = Compile(prog, "test", Options{})
	require.NoError(t, err)
}

func TestCompileDuplicateFunctionIsError(t *testing.T) {
	src := `fn main(){ return 0; } fn main(){ return 1; }`
	prog, err := parser.Parse(src)
	require.NoError(t, err)
	_, err = Compile(prog, "test", Options{})
	assert.Error(t, err)
}

func TestCompileMissingConstructorIsError(t *testing.T) {
	src := `class P { x=0; } fn main(){ return 0; }`
	prog, err := parser.Parse(src)
	require.NoError(t, err)
	_, err = Compile(prog, "test", Options{})
	assert.Error(t, err)
}

func TestCompileUnknownBaseClassIsError(t *testing.T) {
	src := `class B extends Missing { fn __new__(self){} } fn main(){ return 0; }`
	prog, err := parser.Parse(src)
	require.NoError(t, err)
	_, err = Compile(prog, "test", Options{})
	assert.Error(t, err)
}

func TestCompileBreakOutsideLoopIsError(t *testing.T) {
	src := `fn main(){ break; return 0; }`
	prog, err := parser.Parse(src)
	require.NoError(t, err)
	_, err = Compile(prog, "test", Options{})
	assert.Error(t, err)
}

func TestCompileCoroutineDisabledByDefault(t *testing.T) {
	src := `fn worker(){ return 1; } fn main(){ let h = spawn worker(); return await h; }`
	prog, err := parser.Parse(src)
	if err != nil {
		// Parser itself may reject coroutine syntax in some positions;
		// either rejection point satisfies the disabled-by-default contract.
		return
	}
	_, err = Compile(prog, "test", Options{})
	assert.Error(t, err)
}

func TestCompileCoroutineEnabled(t *testing.T) {
	src := `fn worker(){ return 1; } fn main(){ let h = spawn worker(); return await h; }`
	prog, err := parser.Parse(src)
	require.NoError(t, err)
	_, err = Compile(prog, "test", Options{EnableCoroutines: true})
	assert.NoError(t, err)
}
