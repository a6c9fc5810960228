// Package compiler turns a parsed Program into a bytecode.Module (spec §4.4):
// three passes — index declarations, pre-declare methods and resolve class
// shapes, then compile every body — followed by scope analysis, constant
// folding of class-attribute defaults, and loop-label patching done inline
// during codegen.
package compiler

import (
	"fmt"

	"github.com/wudi/gscript/ast"
	"github.com/wudi/gscript/bytecode"
	"github.com/wudi/gscript/errs"
	"github.com/wudi/gscript/opcodes"
)

// Options gates language features the compiler otherwise rejects.
type Options struct {
	// EnableCoroutines allows spawn/await/sleep/yield to compile to their
	// opcodes instead of raising errs.ErrCoroutineDisabled (spec §9,
	// open question 4; disabled by default).
	EnableCoroutines bool
}

const moduleInitName = "__module_init__"

// methodName mangles a class method into its backing function name
// (spec §4.4 step 2): "Class::method".
func methodName(class, method string) string {
	return class + "::" + method
}

type compiler struct {
	opts Options

	mod *bytecode.Module

	stringPool map[string]int32
	constPool  []bytecode.Const

	functionNames map[string]int // declared function name -> Functions index (reserved, body filled in later)
	classNames    map[string]int
	globalNames   map[string]bool // names declared by top-level `let`

	errs errs.List
}

// Compile produces a bytecode.Module from prog, or a non-nil errs.List
// (satisfying error) describing every problem found.
func Compile(prog *ast.Program, moduleName string, opts Options) (*bytecode.Module, error) {
	c := &compiler{
		opts:          opts,
		mod:           &bytecode.Module{Name: moduleName},
		stringPool:    make(map[string]int32),
		functionNames: make(map[string]int),
		classNames:    make(map[string]int),
		globalNames:   make(map[string]bool),
	}

	c.pass1Index(prog)
	if c.errs.HasErrors() {
		return nil, c.errs
	}

	c.pass2Declare(prog)
	if c.errs.HasErrors() {
		return nil, c.errs
	}

	c.pass3Compile(prog)
	if c.errs.HasErrors() {
		return nil, c.errs
	}

	c.mod.Constants = c.constPool
	c.mod.Strings = make([]string, len(c.stringPool))
	for s, idx := range c.stringPool {
		c.mod.Strings[idx] = s
	}
	c.mod.BuildIndex()
	return c.mod, nil
}

// ---- pass 1: index classes/functions, collect top-level global names ----

func (c *compiler) pass1Index(prog *ast.Program) {
	for _, fn := range prog.Functions {
		if _, dup := c.functionNames[fn.Name]; dup {
			c.errf(errs.ErrDuplicateName, pos(fn.Pos), "duplicate function %q", fn.Name)
			continue
		}
		c.functionNames[fn.Name] = -1 // index assigned once the slot is reserved in pass 2
	}
	for _, cls := range prog.Classes {
		if _, dup := c.classNames[cls.Name]; dup {
			c.errf(errs.ErrDuplicateName, pos(cls.Pos), "duplicate class %q", cls.Name)
			continue
		}
		if _, dup := c.functionNames[cls.Name]; dup {
			c.errf(errs.ErrDuplicateName, pos(cls.Pos), "name %q already used by a function", cls.Name)
			continue
		}
		c.classNames[cls.Name] = -1
	}

	declaredGlobals := make(map[string]bool)
	for _, stmt := range prog.TopLevel {
		let, ok := stmt.(*ast.LetStmt)
		if !ok {
			continue
		}
		if declaredGlobals[let.Name] {
			c.errf(errs.ErrDuplicateName, pos(let.Pos), "duplicate top-level let %q", let.Name)
			continue
		}
		declaredGlobals[let.Name] = true
		c.globalNames[let.Name] = true
	}
}

// ---- pass 2: reserve function slots (including mangled methods), resolve
// base classes, evaluate attribute defaults ----

func (c *compiler) pass2Declare(prog *ast.Program) {
	// Reserve a Functions slot (body filled in during pass 3) for every
	// free function first, so forward references resolve.
	for _, fn := range prog.Functions {
		idx := len(c.mod.Functions)
		c.mod.Functions = append(c.mod.Functions, bytecode.FunctionBytecode{Name: fn.Name, Params: fn.Params})
		c.functionNames[fn.Name] = idx
	}

	// Reserve the synthetic module-init function.
	moduleInitIdx := len(c.mod.Functions)
	c.mod.Functions = append(c.mod.Functions, bytecode.FunctionBytecode{Name: moduleInitName})
	c.functionNames[moduleInitName] = moduleInitIdx

	// Reserve mangled method slots for every class, and a ClassBytecode
	// descriptor whose BaseClassIdx/Attributes get filled in below.
	classIdxByName := make(map[string]int, len(prog.Classes))
	for i, cls := range prog.Classes {
		classIdxByName[cls.Name] = i
		c.classNames[cls.Name] = i
	}

	for _, cls := range prog.Classes {
		hasNew := false
		methodBindings := make([]bytecode.ClassMethodBinding, 0, len(cls.Methods))
		for _, m := range cls.Methods {
			if m.Name == "__new__" {
				hasNew = true
				if len(m.Params) == 0 || m.Params[0] == "" {
					c.errf(errs.ErrMissingNew, pos(m.Pos), "class %q: __new__ must declare a self parameter", cls.Name)
				}
			}
			mangled := methodName(cls.Name, m.Name)
			idx := len(c.mod.Functions)
			c.mod.Functions = append(c.mod.Functions, bytecode.FunctionBytecode{Name: mangled, Params: m.Params})
			methodBindings = append(methodBindings, bytecode.ClassMethodBinding{Name: m.Name, FunctionIndex: idx})
		}
		if !hasNew {
			c.errf(errs.ErrMissingNew, pos(cls.Pos), "class %q does not define __new__", cls.Name)
		}

		baseIdx := -1
		if cls.Extends != "" {
			bi, ok := classIdxByName[cls.Extends]
			if !ok {
				c.errf(errs.ErrUnknownBaseClass, pos(cls.Pos), "class %q extends unknown class %q", cls.Name, cls.Extends)
			} else {
				baseIdx = bi
			}
		}

		attrs := make([]bytecode.ClassAttributeBinding, 0, len(cls.Attributes))
		seenAttr := make(map[string]bool, len(cls.Attributes))
		for _, a := range cls.Attributes {
			if seenAttr[a.Name] {
				c.errf(errs.ErrDuplicateName, pos(a.Pos), "class %q: duplicate attribute %q", cls.Name, a.Name)
				continue
			}
			seenAttr[a.Name] = true
			def, err := c.evalConstExpr(a.Default)
			if err != nil {
				c.errf(errs.ErrInvalidInitializer, pos(a.Pos), "class %q attribute %q: %v", cls.Name, a.Name, err)
				continue
			}
			attrs = append(attrs, bytecode.ClassAttributeBinding{Name: a.Name, Default: def})
		}

		c.mod.Classes = append(c.mod.Classes, bytecode.ClassBytecode{
			Name:         cls.Name,
			BaseClassIdx: baseIdx,
			Attributes:   attrs,
			Methods:      methodBindings,
		})
	}

	// Record a GlobalBinding per top-level let, so a module export can
	// materialize before __module_init__ runs (e.g. a forward reference
	// within __module_init__ itself) and so from-import sees a known
	// export name even before init executes. Unlike a class attribute
	// default, a top-level let's initializer need not be const-evaluable —
	// its real value comes from __module_init__'s StoreName at runtime, so
	// a non-literal initializer just falls back to nil here rather than
	// raising a compile error.
	for _, stmt := range prog.TopLevel {
		let, ok := stmt.(*ast.LetStmt)
		if !ok {
			continue
		}
		init, err := c.evalConstExpr(let.Value)
		if err != nil {
			init = bytecode.NilConst()
		}
		c.mod.Globals = append(c.mod.Globals, bytecode.GlobalBinding{Name: let.Name, Initial: init})
	}
}

// evalConstExpr implements the restricted constant evaluator (spec §4.4
// step 2): literal int, literal string, or a symbolic name resolving to a
// known function or class. A plain global-variable reference is rejected —
// module globals are only assigned at __module_init__ runtime and have no
// representation in the constant pool ahead of that.
func (c *compiler) evalConstExpr(e ast.Expr) (bytecode.Const, error) {
	switch v := e.(type) {
	case nil:
		return bytecode.NilConst(), nil
	case *ast.IntLit:
		return bytecode.IntConst(v.Value), nil
	case *ast.StringLit:
		return bytecode.StringConst(v.Value), nil
	case *ast.Ident:
		if idx, ok := c.functionNames[v.Name]; ok {
			return bytecode.FunctionConst(int64(idx)), nil
		}
		if idx, ok := c.classNames[v.Name]; ok {
			return bytecode.ClassConst(int64(idx)), nil
		}
		return bytecode.Const{}, fmt.Errorf("%q is not a literal, function, or class", v.Name)
	default:
		return bytecode.Const{}, fmt.Errorf("initializer must be a literal or a function/class name")
	}
}

// ---- pass 3: compile every body ----

func (c *compiler) pass3Compile(prog *ast.Program) {
	for _, fn := range prog.Functions {
		idx := c.functionNames[fn.Name]
		c.compileFunction(&c.mod.Functions[idx], fn.Params, fn.Body, false, "")
	}

	for _, cls := range prog.Classes {
		clsIdx := c.classNames[cls.Name]
		for _, m := range cls.Methods {
			fnIdx := -1
			for _, mb := range c.mod.Classes[clsIdx].Methods {
				if mb.Name == m.Name {
					fnIdx = mb.FunctionIndex
					break
				}
			}
			if fnIdx < 0 {
				continue
			}
			c.compileFunction(&c.mod.Functions[fnIdx], m.Params, m.Body, false, cls.Name)
		}
	}

	miIdx := c.functionNames[moduleInitName]
	c.compileFunction(&c.mod.Functions[miIdx], nil, prog.TopLevel, true, "")
}

// ---- shared helpers ----

func (c *compiler) errf(cause error, p errs.Position, format string, args ...any) {
	c.errs.Add(errs.NewCompile(cause, p, format, args...))
}

func pos(p ast.Position) errs.Position {
	return errs.Position{Line: p.Line, Column: p.Column}
}

func (c *compiler) strIdx(s string) int32 {
	if idx, ok := c.stringPool[s]; ok {
		return idx
	}
	idx := int32(len(c.stringPool))
	c.stringPool[s] = idx
	return idx
}

func (c *compiler) pushConst(k bytecode.Const) int32 {
	idx := int32(len(c.constPool))
	c.constPool = append(c.constPool, k)
	return idx
}

func (c *compiler) emit(fn *bytecode.FunctionBytecode, op opcodes.Opcode, a, b int32) int {
	fn.Code = append(fn.Code, opcodes.Instruction{Op: op, A: a, B: b})
	return len(fn.Code) - 1
}
