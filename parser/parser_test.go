package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/gscript/ast"
)

func TestParseTopLevelRejectsNonDeclaration(t *testing.T) {
	_, err := Parse(`1 + 1;`)
	assert.Error(t, err)
}

func TestParseFuncDeclWithParamsAndBody(t *testing.T) {
	prog, err := Parse(`fn add(a, b){ return a + b; }`)
	require.NoError(t, err)
	require.Len(t, prog.Functions, 1)
	fn := prog.Functions[0]
	assert.Equal(t, "add", fn.Name)
	assert.Equal(t, []string{"a", "b"}, fn.Params)
	require.Len(t, fn.Body, 1)
	ret, ok := fn.Body[0].(*ast.ReturnStmt)
	require.True(t, ok)
	bin, ok := ret.Value.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "+", bin.Op)
}

func TestParseLetStmt(t *testing.T) {
	prog, err := Parse(`let x = 42;`)
	require.NoError(t, err)
	require.Len(t, prog.TopLevel, 1)
	let := prog.TopLevel[0].(*ast.LetStmt)
	assert.Equal(t, "x", let.Name)
	lit, ok := let.Value.(*ast.IntLit)
	require.True(t, ok)
	assert.Equal(t, int64(42), lit.Value)
}

func TestParseTopLevelLetRejectsSpawnAwait(t *testing.T) {
	_, err := Parse(`fn worker(){ return 1; } let h = spawn worker();`)
	assert.Error(t, err)
}

func TestParseClassDeclWithAttrsAndMethods(t *testing.T) {
	src := `class Point extends Shape { x=0; y=0; fn __new__(self,a,b){ self.x=a; self.y=b; } fn sum(self){ return self.x+self.y; } }`
	prog, err := Parse(src)
	require.NoError(t, err)
	require.Len(t, prog.Classes, 1)
	cls := prog.Classes[0]
	assert.Equal(t, "Point", cls.Name)
	assert.Equal(t, "Shape", cls.Extends)
	require.Len(t, cls.Attributes, 2)
	assert.Equal(t, "x", cls.Attributes[0].Name)
	require.Len(t, cls.Methods, 2)
	assert.Equal(t, "__new__", cls.Methods[0].Name)
	assert.Equal(t, "sum", cls.Methods[1].Name)
}

func TestParseIfElifElse(t *testing.T) {
	src := `fn main(){ if(1){ return 1; } elif(2){ return 2; } else { return 3; } }`
	prog, err := Parse(src)
	require.NoError(t, err)
	fn := prog.Functions[0]
	stmt, ok := fn.Body[0].(*ast.IfStmt)
	require.True(t, ok)
	require.Len(t, stmt.Branches, 2)
	require.Len(t, stmt.Else, 1)
}

func TestParseWhileLoop(t *testing.T) {
	prog, err := Parse(`fn main(){ while(1){ break; } }`)
	require.NoError(t, err)
	_, ok := prog.Functions[0].Body[0].(*ast.WhileStmt)
	assert.True(t, ok)
}

func TestParseForListLoop(t *testing.T) {
	prog, err := Parse(`fn main(){ for(x in xs){ continue; } }`)
	require.NoError(t, err)
	stmt, ok := prog.Functions[0].Body[0].(*ast.ForListStmt)
	require.True(t, ok)
	assert.Equal(t, "x", stmt.Var)
}

func TestParseForRangeLoopFromCallExpr(t *testing.T) {
	prog, err := Parse(`fn main(){ for(i in range(0, 10)){ continue; } }`)
	require.NoError(t, err)
	stmt, ok := prog.Functions[0].Body[0].(*ast.ForRangeStmt)
	require.True(t, ok)
	assert.Equal(t, "i", stmt.Var)
	start, ok := stmt.Start.(*ast.IntLit)
	require.True(t, ok)
	assert.Equal(t, int64(0), start.Value)
}

func TestParseForRangeLoopSingleArgDefaultsStartToZero(t *testing.T) {
	prog, err := Parse(`fn main(){ for(i in range(10)){ continue; } }`)
	require.NoError(t, err)
	stmt, ok := prog.Functions[0].Body[0].(*ast.ForRangeStmt)
	require.True(t, ok)
	start, ok := stmt.Start.(*ast.IntLit)
	require.True(t, ok)
	assert.Equal(t, int64(0), start.Value)
}

func TestParseForDictLoop(t *testing.T) {
	prog, err := Parse(`fn main(){ for(k, v in d){ continue; } }`)
	require.NoError(t, err)
	stmt, ok := prog.Functions[0].Body[0].(*ast.ForDictStmt)
	require.True(t, ok)
	assert.Equal(t, "k", stmt.KeyVar)
	assert.Equal(t, "v", stmt.ValVar)
}

func TestParseSleepStmt(t *testing.T) {
	prog, err := Parse(`fn main(){ sleep(10); }`)
	require.NoError(t, err)
	stmt, ok := prog.Functions[0].Body[0].(*ast.SleepStmt)
	require.True(t, ok)
	lit, ok := stmt.Ms.(*ast.IntLit)
	require.True(t, ok)
	assert.Equal(t, int64(10), lit.Value)
}

func TestParseYieldStmt(t *testing.T) {
	prog, err := Parse(`fn main(){ yield; }`)
	require.NoError(t, err)
	_, ok := prog.Functions[0].Body[0].(*ast.YieldStmt)
	assert.True(t, ok)
}

func TestParseSpawnRequiresCallExpr(t *testing.T) {
	_, err := Parse(`fn main(){ let h = spawn 1; }`)
	assert.Error(t, err)
}

func TestParseSpawnAndAwait(t *testing.T) {
	prog, err := Parse(`fn worker(){ return 1; } fn main(){ let h = spawn worker(); return await h; }`)
	require.NoError(t, err)
	mainFn := prog.Functions[1]
	let, ok := mainFn.Body[0].(*ast.LetStmt)
	require.True(t, ok)
	spawn, ok := let.Value.(*ast.SpawnExpr)
	require.True(t, ok)
	assert.Equal(t, "worker", spawn.Call.Callee.(*ast.Ident).Name)

	ret, ok := mainFn.Body[1].(*ast.ReturnStmt)
	require.True(t, ok)
	_, ok = ret.Value.(*ast.AwaitExpr)
	assert.True(t, ok)
}

func TestParseListLiteral(t *testing.T) {
	prog, err := Parse(`fn main(){ return [1, 2, 3]; }`)
	require.NoError(t, err)
	ret := prog.Functions[0].Body[0].(*ast.ReturnStmt)
	lit, ok := ret.Value.(*ast.ListLit)
	require.True(t, ok)
	assert.Len(t, lit.Elements, 3)
}

func TestParseEmptyListLiteral(t *testing.T) {
	prog, err := Parse(`fn main(){ return []; }`)
	require.NoError(t, err)
	ret := prog.Functions[0].Body[0].(*ast.ReturnStmt)
	lit, ok := ret.Value.(*ast.ListLit)
	require.True(t, ok)
	assert.Empty(t, lit.Elements)
}

func TestParseDictLiteral(t *testing.T) {
	prog, err := Parse(`fn main(){ return {1: 10, 2: 20}; }`)
	require.NoError(t, err)
	ret := prog.Functions[0].Body[0].(*ast.ReturnStmt)
	lit, ok := ret.Value.(*ast.DictLit)
	require.True(t, ok)
	require.Len(t, lit.Entries, 2)
}

func TestParseMethodCallVsPropertyAccess(t *testing.T) {
	prog, err := Parse(`fn main(){ let a = obj.attr; let b = obj.method(1, 2); }`)
	require.NoError(t, err)
	let1 := prog.Functions[0].Body[0].(*ast.LetStmt)
	_, ok := let1.Value.(*ast.PropertyExpr)
	assert.True(t, ok)

	let2 := prog.Functions[0].Body[1].(*ast.LetStmt)
	call, ok := let2.Value.(*ast.MethodCallExpr)
	require.True(t, ok)
	assert.Equal(t, "method", call.Name)
	assert.Len(t, call.Args, 2)
}

func TestParseIndexExprAndAssignTargets(t *testing.T) {
	prog, err := Parse(`fn main(){ xs[0] = 1; obj.attr = 2; y = 3; }`)
	require.NoError(t, err)
	body := prog.Functions[0].Body

	a0, ok := body[0].(*ast.ExprStmt).X.(*ast.Assign)
	require.True(t, ok)
	_, ok = a0.Object.(*ast.Ident)
	require.True(t, ok)
	_, ok = a0.Index.(*ast.IntLit)
	require.True(t, ok)

	a1 := body[1].(*ast.ExprStmt).X.(*ast.Assign)
	assert.Equal(t, "attr", a1.Member)

	a2 := body[2].(*ast.ExprStmt).X.(*ast.Assign)
	assert.Equal(t, "y", a2.Name)
}

func TestParseInvalidAssignmentTargetIsError(t *testing.T) {
	_, err := Parse(`fn main(){ 1 = 2; }`)
	assert.Error(t, err)
}

func TestParseUnaryMinus(t *testing.T) {
	prog, err := Parse(`fn main(){ return -1; }`)
	require.NoError(t, err)
	ret := prog.Functions[0].Body[0].(*ast.ReturnStmt)
	u, ok := ret.Value.(*ast.UnaryExpr)
	require.True(t, ok)
	assert.Equal(t, "-", u.Op)
}

func TestParseOperatorPrecedence(t *testing.T) {
	prog, err := Parse(`fn main(){ return 1 + 2 * 3; }`)
	require.NoError(t, err)
	ret := prog.Functions[0].Body[0].(*ast.ReturnStmt)
	bin, ok := ret.Value.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "+", bin.Op)
	_, ok = bin.Left.(*ast.IntLit)
	require.True(t, ok)
	rhs, ok := bin.Right.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "*", rhs.Op)
}

func TestParseParenthesizedExprOverridesPrecedence(t *testing.T) {
	prog, err := Parse(`fn main(){ return (1 + 2) * 3; }`)
	require.NoError(t, err)
	ret := prog.Functions[0].Body[0].(*ast.ReturnStmt)
	bin, ok := ret.Value.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "*", bin.Op)
	_, ok = bin.Left.(*ast.BinaryExpr)
	assert.True(t, ok)
}

func TestParseUnterminatedBlockIsError(t *testing.T) {
	_, err := Parse(`fn main(){ return 1;`)
	assert.Error(t, err)
}

func TestParseReturnWithNoValue(t *testing.T) {
	prog, err := Parse(`fn main(){ return; }`)
	require.NoError(t, err)
	ret, ok := prog.Functions[0].Body[0].(*ast.ReturnStmt)
	require.True(t, ok)
	assert.Nil(t, ret.Value)
}
