package bytecode

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/wudi/gscript/errs"
	"github.com/wudi/gscript/opcodes"
)

// Serialize renders m in the GSBC1 text format (spec §6): a literal
// "GSBC1" banner line followed by integer-prefixed lists for constants,
// strings, functions, classes, and globals, in that order.
func Serialize(m *Module) string {
	var b strings.Builder
	b.WriteString("GSBC1\n")

	fmt.Fprintf(&b, "%d\n", len(m.Constants))
	for _, c := range m.Constants {
		writeConst(&b, c)
	}

	fmt.Fprintf(&b, "%d\n", len(m.Strings))
	for _, s := range m.Strings {
		fmt.Fprintf(&b, "%s\n", quote(s))
	}

	fmt.Fprintf(&b, "%d\n", len(m.Functions))
	for _, fn := range m.Functions {
		fmt.Fprintf(&b, "%s\n", quote(fn.Name))
		fmt.Fprintf(&b, "%d\n", len(fn.Params))
		for _, p := range fn.Params {
			fmt.Fprintf(&b, "%s\n", quote(p))
		}
		fmt.Fprintf(&b, "%d\n", fn.LocalCount)
		fmt.Fprintf(&b, "%d\n", len(fn.Code))
		for _, inst := range fn.Code {
			fmt.Fprintf(&b, "%d %d %d\n", inst.Op, inst.A, inst.B)
		}
	}

	fmt.Fprintf(&b, "%d\n", len(m.Classes))
	for _, cls := range m.Classes {
		fmt.Fprintf(&b, "%s\n", quote(cls.Name))
		fmt.Fprintf(&b, "%d\n", cls.BaseClassIdx)
		fmt.Fprintf(&b, "%d\n", len(cls.Attributes))
		for _, a := range cls.Attributes {
			fmt.Fprintf(&b, "%s ", quote(a.Name))
			writeConst(&b, a.Default)
		}
		fmt.Fprintf(&b, "%d\n", len(cls.Methods))
		for _, meth := range cls.Methods {
			fmt.Fprintf(&b, "%s %d\n", quote(meth.Name), meth.FunctionIndex)
		}
	}

	fmt.Fprintf(&b, "%d\n", len(m.Globals))
	for _, g := range m.Globals {
		fmt.Fprintf(&b, "%s ", quote(g.Name))
		writeConst(&b, g.Initial)
	}

	return b.String()
}

func writeConst(b *strings.Builder, c Const) {
	switch c.Kind {
	case ConstNil:
		fmt.Fprintf(b, "nil\n")
	case ConstInt:
		fmt.Fprintf(b, "int %d\n", c.Int)
	case ConstString:
		fmt.Fprintf(b, "str %s\n", quote(c.Str))
	case ConstFunctionIdx:
		fmt.Fprintf(b, "fn %d\n", c.Int)
	case ConstClassIdx:
		fmt.Fprintf(b, "class %d\n", c.Int)
	case ConstModuleName:
		fmt.Fprintf(b, "module %s\n", quote(c.Str))
	}
}

func quote(s string) string {
	return strconv.Quote(s)
}

func unquote(s string) (string, error) {
	return strconv.Unquote(s)
}

// reader walks the GSBC1 text form line by line. It intentionally has no
// lookahead beyond "one token/line at a time", mirroring the simplicity of
// the format itself.
type reader struct {
	sc   *bufio.Scanner
	line int
}

func newReader(text string) *reader {
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return &reader{sc: sc}
}

func (r *reader) nextLine() (string, error) {
	if !r.sc.Scan() {
		if err := r.sc.Err(); err != nil {
			return "", errs.NewCompile(nil, errs.Position{}, "bytecode read error: %v", err)
		}
		return "", errs.NewCompile(nil, errs.Position{}, "unexpected end of bytecode")
	}
	r.line++
	return r.sc.Text(), nil
}

func (r *reader) nextInt() (int, error) {
	line, err := r.nextLine()
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return 0, errs.NewCompile(nil, errs.Position{Line: r.line}, "expected integer, got %q", line)
	}
	return n, nil
}

func (r *reader) readConst() (Const, error) {
	line, err := r.nextLine()
	if err != nil {
		return Const{}, err
	}
	fields := strings.SplitN(strings.TrimSpace(line), " ", 2)
	switch fields[0] {
	case "nil":
		return NilConst(), nil
	case "int":
		n, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return Const{}, errs.NewCompile(nil, errs.Position{Line: r.line}, "bad int constant: %q", line)
		}
		return IntConst(n), nil
	case "str":
		s, err := unquote(fields[1])
		if err != nil {
			return Const{}, errs.NewCompile(nil, errs.Position{Line: r.line}, "bad string constant: %q", line)
		}
		return StringConst(s), nil
	case "fn":
		n, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return Const{}, errs.NewCompile(nil, errs.Position{Line: r.line}, "bad function constant: %q", line)
		}
		return FunctionConst(n), nil
	case "class":
		n, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return Const{}, errs.NewCompile(nil, errs.Position{Line: r.line}, "bad class constant: %q", line)
		}
		return ClassConst(n), nil
	case "module":
		s, err := unquote(fields[1])
		if err != nil {
			return Const{}, errs.NewCompile(nil, errs.Position{Line: r.line}, "bad module constant: %q", line)
		}
		return Const{Kind: ConstModuleName, Str: s}, nil
	default:
		return Const{}, errs.NewCompile(nil, errs.Position{Line: r.line}, "unknown constant tag %q", fields[0])
	}
}

// Deserialize parses the GSBC1 text format, the inverse of Serialize.
// Round-trip property (spec §8 invariant 1): Deserialize(Serialize(m))
// is equivalent to m for any module produced by the compiler.
func Deserialize(text string) (*Module, error) {
	r := newReader(text)
	banner, err := r.nextLine()
	if err != nil {
		return nil, err
	}
	if banner != "GSBC1" {
		return nil, errs.NewCompile(nil, errs.Position{}, "not a GSBC1 bytecode stream")
	}

	m := &Module{}

	nConsts, err := r.nextInt()
	if err != nil {
		return nil, err
	}
	for i := 0; i < nConsts; i++ {
		c, err := r.readConst()
		if err != nil {
			return nil, err
		}
		m.Constants = append(m.Constants, c)
	}

	nStrings, err := r.nextInt()
	if err != nil {
		return nil, err
	}
	for i := 0; i < nStrings; i++ {
		line, err := r.nextLine()
		if err != nil {
			return nil, err
		}
		s, err := unquote(strings.TrimSpace(line))
		if err != nil {
			return nil, errs.NewCompile(nil, errs.Position{Line: r.line}, "bad string literal: %q", line)
		}
		m.Strings = append(m.Strings, s)
	}

	nFuncs, err := r.nextInt()
	if err != nil {
		return nil, err
	}
	for i := 0; i < nFuncs; i++ {
		fn := FunctionBytecode{}
		nameLine, err := r.nextLine()
		if err != nil {
			return nil, err
		}
		fn.Name, err = unquote(strings.TrimSpace(nameLine))
		if err != nil {
			return nil, errs.NewCompile(nil, errs.Position{Line: r.line}, "bad function name: %q", nameLine)
		}
		nParams, err := r.nextInt()
		if err != nil {
			return nil, err
		}
		for j := 0; j < nParams; j++ {
			pLine, err := r.nextLine()
			if err != nil {
				return nil, err
			}
			pName, err := unquote(strings.TrimSpace(pLine))
			if err != nil {
				return nil, errs.NewCompile(nil, errs.Position{Line: r.line}, "bad parameter name: %q", pLine)
			}
			fn.Params = append(fn.Params, pName)
		}
		fn.LocalCount, err = r.nextInt()
		if err != nil {
			return nil, err
		}
		nCode, err := r.nextInt()
		if err != nil {
			return nil, err
		}
		for j := 0; j < nCode; j++ {
			line, err := r.nextLine()
			if err != nil {
				return nil, err
			}
			var opN int
			var a, b int32
			if _, err := fmt.Sscanf(line, "%d %d %d", &opN, &a, &b); err != nil {
				return nil, errs.NewCompile(nil, errs.Position{Line: r.line}, "bad instruction: %q", line)
			}
			fn.Code = append(fn.Code, opcodes.Instruction{Op: opcodes.Opcode(opN), A: a, B: b})
		}
		m.Functions = append(m.Functions, fn)
	}

	nClasses, err := r.nextInt()
	if err != nil {
		return nil, err
	}
	for i := 0; i < nClasses; i++ {
		cls := ClassBytecode{}
		nameLine, err := r.nextLine()
		if err != nil {
			return nil, err
		}
		cls.Name, err = unquote(strings.TrimSpace(nameLine))
		if err != nil {
			return nil, errs.NewCompile(nil, errs.Position{Line: r.line}, "bad class name: %q", nameLine)
		}
		cls.BaseClassIdx, err = r.nextInt()
		if err != nil {
			return nil, err
		}
		nAttrs, err := r.nextInt()
		if err != nil {
			return nil, err
		}
		for j := 0; j < nAttrs; j++ {
			line, err := r.nextLine()
			if err != nil {
				return nil, err
			}
			name, rest, err := splitQuotedHead(line)
			if err != nil {
				return nil, err
			}
			def, err := parseInlineConst(rest)
			if err != nil {
				return nil, errs.NewCompile(nil, errs.Position{Line: r.line}, "bad attribute default: %q", line)
			}
			cls.Attributes = append(cls.Attributes, ClassAttributeBinding{Name: name, Default: def})
		}
		nMethods, err := r.nextInt()
		if err != nil {
			return nil, err
		}
		for j := 0; j < nMethods; j++ {
			line, err := r.nextLine()
			if err != nil {
				return nil, err
			}
			name, rest, err := splitQuotedHead(line)
			if err != nil {
				return nil, err
			}
			idx, err := strconv.Atoi(strings.TrimSpace(rest))
			if err != nil {
				return nil, errs.NewCompile(nil, errs.Position{Line: r.line}, "bad method index: %q", line)
			}
			cls.Methods = append(cls.Methods, ClassMethodBinding{Name: name, FunctionIndex: idx})
		}
		m.Classes = append(m.Classes, cls)
	}

	nGlobals, err := r.nextInt()
	if err != nil {
		return nil, err
	}
	for i := 0; i < nGlobals; i++ {
		line, err := r.nextLine()
		if err != nil {
			return nil, err
		}
		name, rest, err := splitQuotedHead(line)
		if err != nil {
			return nil, err
		}
		init, err := parseInlineConst(rest)
		if err != nil {
			return nil, errs.NewCompile(nil, errs.Position{Line: r.line}, "bad global initializer: %q", line)
		}
		m.Globals = append(m.Globals, GlobalBinding{Name: name, Initial: init})
	}

	m.BuildIndex()
	return m, nil
}

// splitQuotedHead splits a line of the form `"name" rest...` into the
// unquoted name and the remainder.
func splitQuotedHead(line string) (string, string, error) {
	line = strings.TrimSpace(line)
	if len(line) == 0 || line[0] != '"' {
		return "", "", errs.NewCompile(nil, errs.Position{}, "expected quoted name in %q", line)
	}
	end := -1
	for i := 1; i < len(line); i++ {
		if line[i] == '\\' {
			i++
			continue
		}
		if line[i] == '"' {
			end = i
			break
		}
	}
	if end < 0 {
		return "", "", errs.NewCompile(nil, errs.Position{}, "unterminated quoted name in %q", line)
	}
	name, err := unquote(line[:end+1])
	if err != nil {
		return "", "", err
	}
	return name, strings.TrimSpace(line[end+1:]), nil
}

func parseInlineConst(rest string) (Const, error) {
	fields := strings.SplitN(strings.TrimSpace(rest), " ", 2)
	switch fields[0] {
	case "nil":
		return NilConst(), nil
	case "int":
		n, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return Const{}, err
		}
		return IntConst(n), nil
	case "str":
		s, err := unquote(fields[1])
		if err != nil {
			return Const{}, err
		}
		return StringConst(s), nil
	case "fn":
		n, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return Const{}, err
		}
		return FunctionConst(n), nil
	case "class":
		n, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return Const{}, err
		}
		return ClassConst(n), nil
	default:
		return Const{}, fmt.Errorf("unknown inline constant tag %q", fields[0])
	}
}
