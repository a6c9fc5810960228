package preprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRewriteBareImport(t *testing.T) {
	r := NewResolver(nil)
	out, err := Preprocess("import mathutil;\n", r)
	require.NoError(t, err)
	assert.Equal(t, "let mathutil = loadModule(\"mathutil\");\n", out)
}

func TestRewriteImportWithAlias(t *testing.T) {
	r := NewResolver(nil)
	out, err := Preprocess("import a.b.c as util;\n", r)
	require.NoError(t, err)
	assert.Equal(t, "let util = loadModule(\"a.b.c\");\n", out)
}

func TestRewriteFromImportSingleName(t *testing.T) {
	r := NewResolver(nil)
	out, err := Preprocess("from mathutil import square;\n", r)
	require.NoError(t, err)
	assert.Equal(t, "let square = loadModule(\"mathutil\", \"square\");\n", out)
}

func TestRewriteFromImportMultiNameRequiresAlias(t *testing.T) {
	r := NewResolver(nil)
	_, err := Preprocess("from mathutil import square, cube;\n", r)
	assert.Error(t, err)

	r2 := NewResolver(nil)
	out, err := Preprocess("from mathutil import square, cube as m;\n", r2)
	require.NoError(t, err)
	assert.Equal(t, "let m = loadModule(\"mathutil\", \"square\", \"cube\");\n", out)
}

func TestRewriteFromImportStarRequiresAlias(t *testing.T) {
	r := NewResolver(nil)
	_, err := Preprocess("from mathutil import *;\n", r)
	assert.Error(t, err)

	r2 := NewResolver(nil)
	out, err := Preprocess("from mathutil import * as m;\n", r2)
	require.NoError(t, err)
	assert.Equal(t, "let m = loadModule(\"mathutil\");\n", out)
}

func TestResolveDetectsImportCycle(t *testing.T) {
	r := NewResolver(nil)
	_, err := r.Resolve("a")
	require.NoError(t, err)
	r.Enter("a")
	_, err = r.Resolve("a")
	assert.Error(t, err)
	r.Leave("a")
	_, err = r.Resolve("a")
	assert.NoError(t, err)
}

func TestResolverTakeDrainsDiscoveredSpecsOnce(t *testing.T) {
	r := NewResolver(nil)
	_, err := Preprocess("import a;\nimport b;\n", r)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, r.Take())
	assert.Empty(t, r.Take())
}

func TestNonImportLinesPassThroughUnchanged(t *testing.T) {
	r := NewResolver(nil)
	src := "fn main(){ return 1; }\n"
	out, err := Preprocess(src, r)
	require.NoError(t, err)
	assert.Equal(t, src, out)
}
