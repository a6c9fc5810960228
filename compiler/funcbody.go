package compiler

import (
	"github.com/wudi/gscript/ast"
	"github.com/wudi/gscript/bytecode"
	"github.com/wudi/gscript/errs"
	"github.com/wudi/gscript/opcodes"
)

// loopCtx collects the break/continue jump sites emitted inside one loop
// body, patched once the loop's continue-target and end label are known
// (spec §4.4: "Patches all break/continue jumps collected in a
// LoopContext").
type loopCtx struct {
	breakJumps    []int
	continueJumps []int
}

// fnScope is the per-body compilation state: the flat local-slot namespace
// (spec §4.4 — branches and loop bodies all contribute to one scope), the
// loop-context stack for break/continue, and whether this body is
// __module_init__ (where `let` targets module globals by name instead of a
// local slot).
type fnScope struct {
	c            *compiler
	fn           *bytecode.FunctionBytecode
	isModuleInit bool
	className    string

	locals   map[string]int32 // name -> slot, only meaningful when !isModuleInit
	declared map[string]bool  // names declared so far, in either mode
	nextSlot int32

	loops []*loopCtx
}

func (c *compiler) compileFunction(fn *bytecode.FunctionBytecode, params []string, body []ast.Stmt, isModuleInit bool, className string) {
	fs := &fnScope{
		c:            c,
		fn:           fn,
		isModuleInit: isModuleInit,
		className:    className,
		locals:       make(map[string]int32),
		declared:     make(map[string]bool),
	}
	if !isModuleInit {
		for _, p := range params {
			fs.locals[p] = fs.nextSlot
			fs.declared[p] = true
			fs.nextSlot++
		}
	}

	for _, stmt := range body {
		fs.compileStmt(stmt)
	}

	// Implicit fall-off return (spec §4.4): harmless after an explicit
	// return, since Return always ends the frame before this executes.
	zero := c.pushConst(bytecode.IntConst(0))
	c.emit(fn, opcodes.OpPushConst, zero, 0)
	c.emit(fn, opcodes.OpReturn, 0, 0)

	fn.LocalCount = int(fs.nextSlot)
}

func (fs *fnScope) freshSlot() int32 {
	s := fs.nextSlot
	fs.nextSlot++
	return s
}

// declareOrReuse binds name to a slot, assigning a fresh one only the first
// time name is seen in this scope — reused by for-loop variables that
// shadow an earlier `let` of the same name in the same flat scope.
func (fs *fnScope) declareOrReuse(name string) int32 {
	if slot, ok := fs.locals[name]; ok {
		return slot
	}
	slot := fs.freshSlot()
	fs.locals[name] = slot
	fs.declared[name] = true
	return slot
}

func (fs *fnScope) errf(cause error, p ast.Position, format string, args ...any) {
	fs.c.errf(cause, pos(p), format, args...)
}

// ---- statements ----

func (fs *fnScope) compileStmt(s ast.Stmt) {
	switch v := s.(type) {
	case *ast.LetStmt:
		fs.compileLet(v)
	case *ast.ExprStmt:
		fs.compileExprStmt(v)
	case *ast.ReturnStmt:
		if v.Value != nil {
			fs.compileExpr(v.Value)
		} else {
			zero := fs.c.pushConst(bytecode.IntConst(0))
			fs.c.emit(fs.fn, opcodes.OpPushConst, zero, 0)
		}
		fs.c.emit(fs.fn, opcodes.OpReturn, 0, 0)
	case *ast.IfStmt:
		fs.compileIf(v)
	case *ast.WhileStmt:
		fs.compileWhile(v)
	case *ast.ForRangeStmt:
		fs.compileForRange(v)
	case *ast.ForListStmt:
		fs.compileForList(v)
	case *ast.ForDictStmt:
		fs.compileForDict(v)
	case *ast.BreakStmt:
		fs.compileBreak(v)
	case *ast.ContinueStmt:
		fs.compileContinue(v)
	case *ast.SleepStmt:
		fs.compileSleep(v)
	case *ast.YieldStmt:
		if !fs.c.opts.EnableCoroutines {
			fs.errf(errs.ErrCoroutineDisabled, v.Pos, "yield is not enabled")
			return
		}
		fs.c.emit(fs.fn, opcodes.OpYield, 0, 0)
	default:
		fs.errf(nil, ast.Position{}, "unsupported statement %T", s)
	}
}

func (fs *fnScope) compileLet(v *ast.LetStmt) {
	if fs.declared[v.Name] {
		fs.errf(errs.ErrDuplicateName, v.Pos, "duplicate local %q", v.Name)
		return
	}
	fs.compileExpr(v.Value)
	if fs.isModuleInit {
		fs.declared[v.Name] = true
		idx := fs.c.strIdx(v.Name)
		fs.c.emit(fs.fn, opcodes.OpStoreName, idx, 0)
		return
	}
	slot := fs.freshSlot()
	fs.locals[v.Name] = slot
	fs.declared[v.Name] = true
	fs.c.emit(fs.fn, opcodes.OpStoreLocal, slot, 0)
}

func (fs *fnScope) compileExprStmt(v *ast.ExprStmt) {
	if assign, ok := v.X.(*ast.Assign); ok {
		fs.compileAssignStatement(assign)
		return
	}
	fs.compileExpr(v.X)
	fs.c.emit(fs.fn, opcodes.OpPop, 0, 0)
}

// compileAssignStatement compiles an assignment used for effect, discarding
// whatever value (if any) the underlying store opcode leaves behind.
func (fs *fnScope) compileAssignStatement(a *ast.Assign) {
	switch {
	case a.Object != nil && a.Member != "":
		fs.compileExpr(a.Object)
		fs.compileExpr(a.Value)
		idx := fs.c.strIdx(a.Member)
		fs.c.emit(fs.fn, opcodes.OpStoreAttr, idx, 0)
		fs.c.emit(fs.fn, opcodes.OpPop, 0, 0) // StoreAttr pushes the value back
	case a.Object != nil && a.Index != nil:
		fs.compileExpr(a.Object)
		fs.compileExpr(a.Index)
		fs.compileExpr(a.Value)
		idx := fs.c.strIdx("set")
		fs.c.emit(fs.fn, opcodes.OpCallMethod, idx, 2)
		fs.c.emit(fs.fn, opcodes.OpPop, 0, 0) // CallMethod pushes its result back
	default:
		fs.compileExpr(a.Value)
		fs.storeName(a.Name, a.Pos)
	}
}

// storeName emits the store for a plain identifier target, resolved
// local-first then outer-global.
func (fs *fnScope) storeName(name string, p ast.Position) {
	if !fs.isModuleInit {
		if slot, ok := fs.locals[name]; ok {
			fs.c.emit(fs.fn, opcodes.OpStoreLocal, slot, 0)
			return
		}
	}
	if fs.isModuleInit && fs.declared[name] {
		idx := fs.c.strIdx(name)
		fs.c.emit(fs.fn, opcodes.OpStoreName, idx, 0)
		return
	}
	if !fs.isModuleInit && fs.c.globalNames[name] {
		idx := fs.c.strIdx(name)
		fs.c.emit(fs.fn, opcodes.OpStoreName, idx, 0)
		return
	}
	fs.errf(errs.ErrUseBeforeDeclare, p, "cannot assign to undeclared name %q", name)
}

func (fs *fnScope) compileIf(v *ast.IfStmt) {
	var endJumps []int
	for _, br := range v.Branches {
		fs.compileExpr(br.Cond)
		jf := fs.c.emit(fs.fn, opcodes.OpJumpIfFalse, 0, 0)
		for _, st := range br.Body {
			fs.compileStmt(st)
		}
		endJumps = append(endJumps, fs.c.emit(fs.fn, opcodes.OpJump, 0, 0))
		fs.patchJump(jf, len(fs.fn.Code))
	}
	if v.Else != nil {
		for _, st := range v.Else {
			fs.compileStmt(st)
		}
	}
	end := len(fs.fn.Code)
	for _, j := range endJumps {
		fs.patchJump(j, end)
	}
}

func (fs *fnScope) patchJump(instIdx, target int) {
	fs.fn.Code[instIdx].A = int32(target)
}

func (fs *fnScope) compileWhile(v *ast.WhileStmt) {
	start := len(fs.fn.Code)
	fs.compileExpr(v.Cond)
	jf := fs.c.emit(fs.fn, opcodes.OpJumpIfFalse, 0, 0)

	lc := &loopCtx{}
	fs.loops = append(fs.loops, lc)
	for _, st := range v.Body {
		fs.compileStmt(st)
	}
	fs.loops = fs.loops[:len(fs.loops)-1]

	for _, j := range lc.continueJumps {
		fs.patchJump(j, start)
	}
	fs.c.emit(fs.fn, opcodes.OpJump, int32(start), 0)
	end := len(fs.fn.Code)
	fs.patchJump(jf, end)
	for _, j := range lc.breakJumps {
		fs.patchJump(j, end)
	}
}

// compileForRange desugars `for (v in range(start, end))` into an
// init/cond/increment loop over a dedicated counter slot (spec §4.4).
func (fs *fnScope) compileForRange(v *ast.ForRangeStmt) {
	varSlot := fs.declareOrReuse(v.Var)
	endSlot := fs.freshSlot()

	fs.compileExpr(v.Start)
	fs.c.emit(fs.fn, opcodes.OpStoreLocal, varSlot, 0)
	fs.compileExpr(v.End)
	fs.c.emit(fs.fn, opcodes.OpStoreLocal, endSlot, 0)

	start := len(fs.fn.Code)
	fs.c.emit(fs.fn, opcodes.OpLoadLocal, varSlot, 0)
	fs.c.emit(fs.fn, opcodes.OpLoadLocal, endSlot, 0)
	fs.c.emit(fs.fn, opcodes.OpLessThan, 0, 0)
	jf := fs.c.emit(fs.fn, opcodes.OpJumpIfFalse, 0, 0)

	lc := &loopCtx{}
	fs.loops = append(fs.loops, lc)
	for _, st := range v.Body {
		fs.compileStmt(st)
	}
	fs.loops = fs.loops[:len(fs.loops)-1]

	continueIP := len(fs.fn.Code)
	fs.c.emit(fs.fn, opcodes.OpLoadLocal, varSlot, 0)
	one := fs.c.pushConst(bytecode.IntConst(1))
	fs.c.emit(fs.fn, opcodes.OpPushConst, one, 0)
	fs.c.emit(fs.fn, opcodes.OpAdd, 0, 0)
	fs.c.emit(fs.fn, opcodes.OpStoreLocal, varSlot, 0)
	fs.c.emit(fs.fn, opcodes.OpJump, int32(start), 0)

	end := len(fs.fn.Code)
	fs.patchJump(jf, end)
	for _, j := range lc.continueJumps {
		fs.patchJump(j, continueIP)
	}
	for _, j := range lc.breakJumps {
		fs.patchJump(j, end)
	}
}

// compileForList desugars `for (v in expr)` via size()/get() (spec §4.4).
func (fs *fnScope) compileForList(v *ast.ForListStmt) {
	listSlot := fs.freshSlot()
	sizeSlot := fs.freshSlot()
	idxSlot := fs.freshSlot()
	varSlot := fs.declareOrReuse(v.Var)

	fs.compileExpr(v.List)
	fs.c.emit(fs.fn, opcodes.OpStoreLocal, listSlot, 0)

	fs.c.emit(fs.fn, opcodes.OpLoadLocal, listSlot, 0)
	sizeIdx := fs.c.strIdx("size")
	fs.c.emit(fs.fn, opcodes.OpCallMethod, sizeIdx, 0)
	fs.c.emit(fs.fn, opcodes.OpStoreLocal, sizeSlot, 0)

	zero := fs.c.pushConst(bytecode.IntConst(0))
	fs.c.emit(fs.fn, opcodes.OpPushConst, zero, 0)
	fs.c.emit(fs.fn, opcodes.OpStoreLocal, idxSlot, 0)

	start := len(fs.fn.Code)
	fs.c.emit(fs.fn, opcodes.OpLoadLocal, idxSlot, 0)
	fs.c.emit(fs.fn, opcodes.OpLoadLocal, sizeSlot, 0)
	fs.c.emit(fs.fn, opcodes.OpLessThan, 0, 0)
	jf := fs.c.emit(fs.fn, opcodes.OpJumpIfFalse, 0, 0)

	fs.c.emit(fs.fn, opcodes.OpLoadLocal, listSlot, 0)
	fs.c.emit(fs.fn, opcodes.OpLoadLocal, idxSlot, 0)
	getIdx := fs.c.strIdx("get")
	fs.c.emit(fs.fn, opcodes.OpCallMethod, getIdx, 1)
	fs.c.emit(fs.fn, opcodes.OpStoreLocal, varSlot, 0)

	lc := &loopCtx{}
	fs.loops = append(fs.loops, lc)
	for _, st := range v.Body {
		fs.compileStmt(st)
	}
	fs.loops = fs.loops[:len(fs.loops)-1]

	continueIP := len(fs.fn.Code)
	fs.c.emit(fs.fn, opcodes.OpLoadLocal, idxSlot, 0)
	one := fs.c.pushConst(bytecode.IntConst(1))
	fs.c.emit(fs.fn, opcodes.OpPushConst, one, 0)
	fs.c.emit(fs.fn, opcodes.OpAdd, 0, 0)
	fs.c.emit(fs.fn, opcodes.OpStoreLocal, idxSlot, 0)
	fs.c.emit(fs.fn, opcodes.OpJump, int32(start), 0)

	end := len(fs.fn.Code)
	fs.patchJump(jf, end)
	for _, j := range lc.continueJumps {
		fs.patchJump(j, continueIP)
	}
	for _, j := range lc.breakJumps {
		fs.patchJump(j, end)
	}
}

// compileForDict desugars `for (k, v in expr)` via size()/key_at()/value_at()
// (spec §4.4).
func (fs *fnScope) compileForDict(v *ast.ForDictStmt) {
	dictSlot := fs.freshSlot()
	sizeSlot := fs.freshSlot()
	idxSlot := fs.freshSlot()
	keySlot := fs.declareOrReuse(v.KeyVar)
	valSlot := fs.declareOrReuse(v.ValVar)

	fs.compileExpr(v.Dict)
	fs.c.emit(fs.fn, opcodes.OpStoreLocal, dictSlot, 0)

	fs.c.emit(fs.fn, opcodes.OpLoadLocal, dictSlot, 0)
	sizeIdx := fs.c.strIdx("size")
	fs.c.emit(fs.fn, opcodes.OpCallMethod, sizeIdx, 0)
	fs.c.emit(fs.fn, opcodes.OpStoreLocal, sizeSlot, 0)

	zero := fs.c.pushConst(bytecode.IntConst(0))
	fs.c.emit(fs.fn, opcodes.OpPushConst, zero, 0)
	fs.c.emit(fs.fn, opcodes.OpStoreLocal, idxSlot, 0)

	start := len(fs.fn.Code)
	fs.c.emit(fs.fn, opcodes.OpLoadLocal, idxSlot, 0)
	fs.c.emit(fs.fn, opcodes.OpLoadLocal, sizeSlot, 0)
	fs.c.emit(fs.fn, opcodes.OpLessThan, 0, 0)
	jf := fs.c.emit(fs.fn, opcodes.OpJumpIfFalse, 0, 0)

	fs.c.emit(fs.fn, opcodes.OpLoadLocal, dictSlot, 0)
	fs.c.emit(fs.fn, opcodes.OpLoadLocal, idxSlot, 0)
	keyAtIdx := fs.c.strIdx("key_at")
	fs.c.emit(fs.fn, opcodes.OpCallMethod, keyAtIdx, 1)
	fs.c.emit(fs.fn, opcodes.OpStoreLocal, keySlot, 0)

	fs.c.emit(fs.fn, opcodes.OpLoadLocal, dictSlot, 0)
	fs.c.emit(fs.fn, opcodes.OpLoadLocal, idxSlot, 0)
	valAtIdx := fs.c.strIdx("value_at")
	fs.c.emit(fs.fn, opcodes.OpCallMethod, valAtIdx, 1)
	fs.c.emit(fs.fn, opcodes.OpStoreLocal, valSlot, 0)

	lc := &loopCtx{}
	fs.loops = append(fs.loops, lc)
	for _, st := range v.Body {
		fs.compileStmt(st)
	}
	fs.loops = fs.loops[:len(fs.loops)-1]

	continueIP := len(fs.fn.Code)
	fs.c.emit(fs.fn, opcodes.OpLoadLocal, idxSlot, 0)
	one := fs.c.pushConst(bytecode.IntConst(1))
	fs.c.emit(fs.fn, opcodes.OpPushConst, one, 0)
	fs.c.emit(fs.fn, opcodes.OpAdd, 0, 0)
	fs.c.emit(fs.fn, opcodes.OpStoreLocal, idxSlot, 0)
	fs.c.emit(fs.fn, opcodes.OpJump, int32(start), 0)

	end := len(fs.fn.Code)
	fs.patchJump(jf, end)
	for _, j := range lc.continueJumps {
		fs.patchJump(j, continueIP)
	}
	for _, j := range lc.breakJumps {
		fs.patchJump(j, end)
	}
}

func (fs *fnScope) compileBreak(v *ast.BreakStmt) {
	if len(fs.loops) == 0 {
		fs.errf(errs.ErrBreakOutsideLoop, v.Pos, "break outside loop")
		return
	}
	lc := fs.loops[len(fs.loops)-1]
	j := fs.c.emit(fs.fn, opcodes.OpJump, 0, 0)
	lc.breakJumps = append(lc.breakJumps, j)
}

func (fs *fnScope) compileContinue(v *ast.ContinueStmt) {
	if len(fs.loops) == 0 {
		fs.errf(errs.ErrBreakOutsideLoop, v.Pos, "continue outside loop")
		return
	}
	lc := fs.loops[len(fs.loops)-1]
	j := fs.c.emit(fs.fn, opcodes.OpJump, 0, 0)
	lc.continueJumps = append(lc.continueJumps, j)
}

func (fs *fnScope) compileSleep(v *ast.SleepStmt) {
	if !fs.c.opts.EnableCoroutines {
		fs.errf(errs.ErrCoroutineDisabled, v.Pos, "sleep is not enabled")
		return
	}
	fs.compileExpr(v.Ms)
	fs.c.emit(fs.fn, opcodes.OpSleep, 0, 0)
}

// ---- expressions ----

func (fs *fnScope) compileExpr(e ast.Expr) {
	switch v := e.(type) {
	case *ast.IntLit:
		idx := fs.c.pushConst(bytecode.IntConst(v.Value))
		fs.c.emit(fs.fn, opcodes.OpPushConst, idx, 0)
	case *ast.StringLit:
		idx := fs.c.pushConst(bytecode.StringConst(v.Value))
		fs.c.emit(fs.fn, opcodes.OpPushConst, idx, 0)
	case *ast.Ident:
		fs.compileIdentLoad(v)
	case *ast.UnaryExpr:
		fs.compileUnary(v)
	case *ast.BinaryExpr:
		fs.compileExpr(v.Left)
		fs.compileExpr(v.Right)
		fs.c.emit(fs.fn, binaryOp(v.Op), 0, 0)
	case *ast.Assign:
		fs.compileAssignExpr(v)
	case *ast.CallExpr:
		fs.compileCall(v)
	case *ast.PropertyExpr:
		fs.compileExpr(v.Object)
		idx := fs.c.strIdx(v.Name)
		fs.c.emit(fs.fn, opcodes.OpLoadAttr, idx, 0)
	case *ast.MethodCallExpr:
		// `system.gc(...)`-shaped calls: an undeclared identifier used as a
		// namespace prefix dispatches to a registered host function named
		// "ident.method" instead of an object method (spec §6's
		// system.gc(generation)).
		if ident, ok := v.Object.(*ast.Ident); ok && !fs.isKnownName(ident.Name) {
			for _, a := range v.Args {
				fs.compileExpr(a)
			}
			idx := fs.c.strIdx(ident.Name + "." + v.Name)
			fs.c.emit(fs.fn, opcodes.OpCallHost, idx, int32(len(v.Args)))
			return
		}
		fs.compileExpr(v.Object)
		for _, a := range v.Args {
			fs.compileExpr(a)
		}
		idx := fs.c.strIdx(v.Name)
		fs.c.emit(fs.fn, opcodes.OpCallMethod, idx, int32(len(v.Args)))
	case *ast.IndexExpr:
		fs.compileExpr(v.Object)
		fs.compileExpr(v.Index)
		idx := fs.c.strIdx("get")
		fs.c.emit(fs.fn, opcodes.OpCallMethod, idx, 1)
	case *ast.ListLit:
		for _, el := range v.Elements {
			fs.compileExpr(el)
		}
		fs.c.emit(fs.fn, opcodes.OpMakeList, int32(len(v.Elements)), 0)
	case *ast.DictLit:
		for _, entry := range v.Entries {
			fs.compileExpr(entry.Key)
			fs.compileExpr(entry.Value)
		}
		fs.c.emit(fs.fn, opcodes.OpMakeDict, int32(len(v.Entries)), 0)
	case *ast.SpawnExpr:
		fs.compileSpawn(v)
	case *ast.AwaitExpr:
		if !fs.c.opts.EnableCoroutines {
			fs.errf(errs.ErrCoroutineDisabled, v.Pos, "await is not enabled")
			return
		}
		fs.compileExpr(v.Handle)
		fs.c.emit(fs.fn, opcodes.OpAwait, 0, 0)
	default:
		fs.errf(nil, ast.Position{}, "unsupported expression %T", e)
	}
}

func (fs *fnScope) compileUnary(v *ast.UnaryExpr) {
	switch v.Op {
	case "-":
		zero := fs.c.pushConst(bytecode.IntConst(0))
		fs.c.emit(fs.fn, opcodes.OpPushConst, zero, 0)
		fs.compileExpr(v.X)
		fs.c.emit(fs.fn, opcodes.OpSub, 0, 0)
	case "!":
		fs.compileExpr(v.X)
		zero := fs.c.pushConst(bytecode.IntConst(0))
		fs.c.emit(fs.fn, opcodes.OpPushConst, zero, 0)
		fs.c.emit(fs.fn, opcodes.OpEqual, 0, 0)
	default:
		fs.errf(nil, v.Pos, "unknown unary operator %q", v.Op)
	}
}

func binaryOp(op string) opcodes.Opcode {
	switch op {
	case "+":
		return opcodes.OpAdd
	case "-":
		return opcodes.OpSub
	case "*":
		return opcodes.OpMul
	case "/":
		return opcodes.OpDiv
	case "<":
		return opcodes.OpLessThan
	case ">":
		return opcodes.OpGreaterThan
	case "==":
		return opcodes.OpEqual
	case "!=":
		return opcodes.OpNotEqual
	case "<=":
		return opcodes.OpLessEqual
	case ">=":
		return opcodes.OpGreaterEqual
	default:
		return opcodes.OpNop
	}
}

// compileAssignExpr handles an assignment used in expression position,
// leaving a value on the stack: for StoreAttr/CallMethod("set") targets the
// underlying opcode already returns one; for a plain name target (which
// otherwise leaves nothing, per the opcode table) the stored value is
// reloaded so the expression still yields something.
func (fs *fnScope) compileAssignExpr(a *ast.Assign) {
	switch {
	case a.Object != nil && a.Member != "":
		fs.compileExpr(a.Object)
		fs.compileExpr(a.Value)
		idx := fs.c.strIdx(a.Member)
		fs.c.emit(fs.fn, opcodes.OpStoreAttr, idx, 0)
	case a.Object != nil && a.Index != nil:
		fs.compileExpr(a.Object)
		fs.compileExpr(a.Index)
		fs.compileExpr(a.Value)
		idx := fs.c.strIdx("set")
		fs.c.emit(fs.fn, opcodes.OpCallMethod, idx, 2)
	default:
		fs.compileExpr(a.Value)
		fs.storeName(a.Name, a.Pos)
		fs.compileIdentLoad(&ast.Ident{Pos: a.Pos, Name: a.Name})
	}
}

func (fs *fnScope) compileIdentLoad(v *ast.Ident) {
	if !fs.isModuleInit {
		if slot, ok := fs.locals[v.Name]; ok {
			fs.c.emit(fs.fn, opcodes.OpLoadLocal, slot, 0)
			return
		}
	}
	if fs.isModuleInit && fs.declared[v.Name] {
		idx := fs.c.strIdx(v.Name)
		fs.c.emit(fs.fn, opcodes.OpLoadName, idx, 0)
		return
	}
	if !fs.isModuleInit && fs.c.globalNames[v.Name] {
		idx := fs.c.strIdx(v.Name)
		fs.c.emit(fs.fn, opcodes.OpLoadName, idx, 0)
		return
	}
	if idx, ok := fs.c.functionNames[v.Name]; ok && v.Name != moduleInitName {
		cidx := fs.c.pushConst(bytecode.FunctionConst(int64(idx)))
		fs.c.emit(fs.fn, opcodes.OpPushConst, cidx, 0)
		return
	}
	if idx, ok := fs.c.classNames[v.Name]; ok {
		cidx := fs.c.pushConst(bytecode.ClassConst(int64(idx)))
		fs.c.emit(fs.fn, opcodes.OpPushConst, cidx, 0)
		return
	}
	fs.errf(errs.ErrUseBeforeDeclare, v.Pos, "use of undeclared name %q", v.Name)
}

// isKnownName reports whether name resolves to a local, a global, a
// function, or a class in the current scope — i.e. compileIdentLoad can
// load it as a value. An unknown bare identifier in call position is
// instead treated as a registered host function name (print, str, ...).
func (fs *fnScope) isKnownName(name string) bool {
	if !fs.isModuleInit {
		if _, ok := fs.locals[name]; ok {
			return true
		}
	}
	if fs.isModuleInit && fs.declared[name] {
		return true
	}
	if !fs.isModuleInit && fs.c.globalNames[name] {
		return true
	}
	if _, ok := fs.c.functionNames[name]; ok {
		return true
	}
	if _, ok := fs.c.classNames[name]; ok {
		return true
	}
	return false
}

// compileCall resolves the fast paths (direct call to a known function or
// class) before falling back to a value call (spec §4.5: CallValue handles
// both a Function ref and a Class ref). A call to a bare identifier that
// names neither a function, a class, nor any declared variable dispatches
// to a registered host function instead (spec §6's print/printf/str/type/
// id/loadModule).
func (fs *fnScope) compileCall(v *ast.CallExpr) {
	if ident, ok := v.Callee.(*ast.Ident); ok {
		if idx, ok := fs.c.functionNames[ident.Name]; ok && ident.Name != moduleInitName {
			for _, a := range v.Args {
				fs.compileExpr(a)
			}
			fs.c.emit(fs.fn, opcodes.OpCallFunc, int32(idx), int32(len(v.Args)))
			return
		}
		if idx, ok := fs.c.classNames[ident.Name]; ok {
			for _, a := range v.Args {
				fs.compileExpr(a)
			}
			fs.c.emit(fs.fn, opcodes.OpNewInstance, int32(idx), int32(len(v.Args)))
			return
		}
		if !fs.isKnownName(ident.Name) {
			for _, a := range v.Args {
				fs.compileExpr(a)
			}
			idx := fs.c.strIdx(ident.Name)
			fs.c.emit(fs.fn, opcodes.OpCallHost, idx, int32(len(v.Args)))
			return
		}
	}
	fs.compileExpr(v.Callee)
	for _, a := range v.Args {
		fs.compileExpr(a)
	}
	fs.c.emit(fs.fn, opcodes.OpCallValue, int32(len(v.Args)), 0)
}

// compileSpawn requires a direct function reference (spec's SpawnFunc takes
// a compile-time function index, not a runtime value).
func (fs *fnScope) compileSpawn(v *ast.SpawnExpr) {
	if !fs.c.opts.EnableCoroutines {
		fs.errf(errs.ErrCoroutineDisabled, v.Pos, "spawn is not enabled")
		return
	}
	ident, ok := v.Call.Callee.(*ast.Ident)
	if !ok {
		fs.errf(nil, v.Pos, "spawn requires a direct function call")
		return
	}
	idx, ok := fs.c.functionNames[ident.Name]
	if !ok {
		fs.errf(errs.ErrUseBeforeDeclare, v.Pos, "spawn of unknown function %q", ident.Name)
		return
	}
	for _, a := range v.Call.Args {
		fs.compileExpr(a)
	}
	fs.c.emit(fs.fn, opcodes.OpSpawnFunc, int32(idx), int32(len(v.Call.Args)))
}
