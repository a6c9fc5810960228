package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/mattn/go-isatty"

	"github.com/wudi/gscript/compiler"
	"github.com/wudi/gscript/parser"
	"github.com/wudi/gscript/preprocess"
	"github.com/wudi/gscript/runtime"
	"github.com/wudi/gscript/vm"
)

// runREPL drives the `-a` interactive shell (spec §6's CLI surface,
// teacher's cmd/hey/main.go -a flag): read one line at a time, compile
// it inside a `fn __repl__(){ ... }` wrapper preceded by every earlier
// `let`/`fn`/`class`/import line, and print str(result) for a bare
// expression. Uses
// chzyer/readline for history/editing when stdin is a terminal
// (mattn/go-isatty), falling back to a bare line scanner otherwise so
// piped input still works.
func runREPL() error {
	rt := runtime.New(runtime.Options{EnableCoroutines: true})
	session := &replSession{
		rt:       rt,
		ctx:      rt.NewContext(),
		resolver: preprocess.NewResolver(nil),
	}

	if isatty.IsTerminal(os.Stdin.Fd()) {
		return session.runInteractive()
	}
	return session.runPiped()
}

// replSession accumulates every declaration line (let/fn/class/import)
// entered so far into prelude, so each new compile carries the whole
// session's declared state forward. A bare expression line is compiled
// against the current prelude but never added to it, so printing its
// value doesn't also replay earlier side-effecting statements.
type replSession struct {
	rt       *runtime.Runtime
	ctx      *vm.ExecutionContext
	resolver *preprocess.Resolver
	prelude  []string
	seq      int
}

func (s *replSession) runInteractive() error {
	rl, err := readline.New("gscript > ")
	if err != nil {
		return err
	}
	defer rl.Close()

	fmt.Println("gscript interactive shell. Type exit or quit to leave.")
	for {
		line, err := rl.Readline()
		if err != nil { // io.EOF on Ctrl-D, readline.ErrInterrupt on Ctrl-C
			return nil
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "exit" || trimmed == "quit" {
			return nil
		}
		if trimmed == "" {
			continue
		}
		s.evalLine(trimmed)
	}
}

func (s *replSession) runPiped() error {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line == "exit" || line == "quit" {
			continue
		}
		s.evalLine(line)
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return err
	}
	return nil
}

func isDeclLine(line string) bool {
	for _, prefix := range []string{"let ", "fn ", "class ", "import ", "from "} {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

// evalLine compiles s.prelude plus line as one __repl__ function body
// and runs it against the session's shared context. A declaration line
// is appended to the prelude once it compiles and runs successfully,
// so it's part of every subsequent line's module; a bare expression
// line is evaluated standalone and its value printed.
func (s *replSession) evalLine(line string) {
	decl := isDeclLine(line)
	body := strings.Join(s.prelude, " ")
	if decl {
		body += " " + line + " return nil;"
	} else {
		body += " return " + strings.TrimSuffix(line, ";") + ";"
	}

	s.seq++
	name := fmt.Sprintf("__repl_%d__", s.seq)
	source := "fn __repl__(){ " + body + " }"

	pre, err := preprocess.Preprocess(source, s.resolver)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	prog, err := parser.Parse(pre)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	mod, err := compiler.Compile(prog, name, compiler.Options{EnableCoroutines: true})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	s.rt.VM().Modules[name] = mod

	v, err := s.rt.Run(s.ctx, mod, "__repl__", nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	if decl {
		s.prelude = append(s.prelude, line)
		return
	}
	if str, err := s.ctx.Stringify(v); err == nil && str != "nil" {
		fmt.Println(str)
	}
}
