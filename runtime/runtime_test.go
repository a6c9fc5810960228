package runtime

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/wudi/gscript/errs"
	"github.com/wudi/gscript/values"
)

func writeSource(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

// These mirror spec.md's end-to-end scenarios, each a source program and
// its main() return value.

func TestRunMainArithmetic(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "prog.gs", `fn main(){ let a=1; let b=2; return a+b; }`)
	rt := New(Options{})
	v, _, err := rt.RunMain(path)
	if err != nil {
		t.Fatalf("RunMain: %v", err)
	}
	if v != values.Int(3) {
		t.Fatalf("main() = %v, want Int(3)", v)
	}
}

func TestRunMainRecursiveFib(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "prog.gs", `fn fib(n){ if(n<2){return n;} return fib(n-1)+fib(n-2); } fn main(){ return fib(10); }`)
	rt := New(Options{})
	v, _, err := rt.RunMain(path)
	if err != nil {
		t.Fatalf("RunMain: %v", err)
	}
	if v != values.Int(55) {
		t.Fatalf("fib(10) = %v, want Int(55)", v)
	}
}

func TestRunMainClassConstructorAndMethod(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "prog.gs", `class P { x=0; fn __new__(self,v){ self.x=v; } fn double(self){ return self.x+self.x; } } fn main(){ let p=P(21); return p.double(); }`)
	rt := New(Options{})
	v, _, err := rt.RunMain(path)
	if err != nil {
		t.Fatalf("RunMain: %v", err)
	}
	if v != values.Int(42) {
		t.Fatalf("p.double() = %v, want Int(42)", v)
	}
}

func TestRunMainInheritanceOverride(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "prog.gs", `class A{ fn __new__(self){} fn who(self){return "A";} } class B extends A{ fn __new__(self){} fn who(self){return "B";} } fn main(){ let b=B(); return b.who(); }`)
	rt := New(Options{})
	v, ctx, err := rt.RunMain(path)
	if err != nil {
		t.Fatalf("RunMain: %v", err)
	}
	s, err := ctx.Stringify(v)
	if err != nil {
		t.Fatalf("Stringify: %v", err)
	}
	if s != "B" {
		t.Fatalf("b.who() = %q, want \"B\"", s)
	}
}

func TestRunMainListIteration(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "prog.gs", `fn main(){ let xs=[10,20,30]; let s=0; for(x in xs){ s=s+x; } return s; }`)
	rt := New(Options{})
	v, _, err := rt.RunMain(path)
	if err != nil {
		t.Fatalf("RunMain: %v", err)
	}
	if v != values.Int(60) {
		t.Fatalf("sum(xs) = %v, want Int(60)", v)
	}
}

func TestLoadFileResolvesImport(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "mathutil.gs", `fn square(n){ return n*n; } fn main(){ return 0; }`)
	entry := writeSource(t, dir, "prog.gs", "import mathutil;\nfn main(){ return mathutil.square(6); }")

	rt := New(Options{SearchPaths: []string{dir}})
	v, _, err := rt.RunMain(entry)
	if err != nil {
		t.Fatalf("RunMain: %v", err)
	}
	if v != values.Int(36) {
		t.Fatalf("mathutil.square(6) = %v, want Int(36)", v)
	}
}

func TestLoadFileMissingFileIsModuleNotFound(t *testing.T) {
	rt := New(Options{})
	_, err := rt.LoadFile(filepath.Join(t.TempDir(), "missing.gs"))
	if !errors.Is(err, errs.ErrModuleNotFound) {
		t.Fatalf("LoadFile err = %v, want ErrModuleNotFound", err)
	}
}
