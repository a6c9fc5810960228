package bytecode_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/gscript/bytecode"
	"github.com/wudi/gscript/compiler"
	"github.com/wudi/gscript/parser"
)

// compileModule is a small helper shared by this file's round-trip tests;
// it exercises the real compiler rather than hand-building a Module, so
// the serialized form matches what the CLI's `compile` subcommand
// actually emits.
func compileModule(t *testing.T, src string) *bytecode.Module {
	t.Helper()
	prog, err := parser.Parse(src)
	require.NoError(t, err)
	mod, err := compiler.Compile(prog, "roundtrip", compiler.Options{})
	require.NoError(t, err)
	return mod
}

func TestSerializeDeserializeRoundTripArithmetic(t *testing.T) {
	mod := compileModule(t, `fn main(){ let a=1; let b=2; return a+b; }`)
	text := bytecode.Serialize(mod)
	assert.Contains(t, text, "GSBC1\n")

	got, err := bytecode.Deserialize(text)
	require.NoError(t, err)
	assertModulesEquivalent(t, mod, got)
}

func TestSerializeDeserializeRoundTripClasses(t *testing.T) {
	mod := compileModule(t, `class P { x=0; fn __new__(self,v){ self.x=v; } fn double(self){ return self.x+self.x; } } fn main(){ let p=P(21); return p.double(); }`)
	text := bytecode.Serialize(mod)

	got, err := bytecode.Deserialize(text)
	require.NoError(t, err)
	assertModulesEquivalent(t, mod, got)
}

func TestSerializeDeserializeRoundTripGlobalsAndStrings(t *testing.T) {
	mod := compileModule(t, `let greeting = "hello"; fn main(){ return greeting; }`)
	text := bytecode.Serialize(mod)

	got, err := bytecode.Deserialize(text)
	require.NoError(t, err)
	assertModulesEquivalent(t, mod, got)
}

func TestDeserializeRejectsBadBanner(t *testing.T) {
	_, err := bytecode.Deserialize("NOTGSBC\n0\n0\n0\n0\n0\n")
	assert.Error(t, err)
}

// assertModulesEquivalent checks the round-trip property (spec §8
// invariant 1) field by field rather than via reflect.DeepEqual on the
// whole Module, since the module Name and each function's StackDepth are
// not written to GSBC1 text and so do not survive the round trip.
func assertModulesEquivalent(t *testing.T, want, got *bytecode.Module) {
	t.Helper()
	assert.Equal(t, want.Constants, got.Constants)
	assert.Equal(t, want.Strings, got.Strings)
	assert.Equal(t, want.Globals, got.Globals)
	require.Equal(t, len(want.Functions), len(got.Functions))
	for i := range want.Functions {
		assert.Equal(t, want.Functions[i].Name, got.Functions[i].Name)
		assert.Equal(t, want.Functions[i].Params, got.Functions[i].Params)
		assert.Equal(t, want.Functions[i].LocalCount, got.Functions[i].LocalCount)
		assert.Equal(t, want.Functions[i].Code, got.Functions[i].Code)
	}
	require.Equal(t, len(want.Classes), len(got.Classes))
	for i := range want.Classes {
		assert.Equal(t, want.Classes[i], got.Classes[i])
	}
	assert.Equal(t, want.FunctionIndex, got.FunctionIndex)
	assert.Equal(t, want.ClassIndex, got.ClassIndex)
}
