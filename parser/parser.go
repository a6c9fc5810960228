// Package parser is a recursive-descent, single-pass parser turning a
// token stream into an ast.Program (spec §4.2).
package parser

import (
	"strconv"

	"github.com/wudi/gscript/ast"
	"github.com/wudi/gscript/errs"
	"github.com/wudi/gscript/lexer"
	"github.com/wudi/gscript/token"
)

// precedence levels, lowest to highest (spec §4.2).
const (
	lowest int = iota
	assignPrec
	equalsPrec
	comparePrec
	sumPrec
	productPrec
	unaryPrec
	callPrec
)

var precedences = map[token.Type]int{
	token.Assign:       assignPrec,
	token.Equal:        equalsPrec,
	token.NotEqual:     equalsPrec,
	token.Less:         comparePrec,
	token.LessEqual:    comparePrec,
	token.Greater:      comparePrec,
	token.GreaterEqual: comparePrec,
	token.Plus:         sumPrec,
	token.Minus:        sumPrec,
	token.Star:         productPrec,
	token.Slash:        productPrec,
	token.LParen:       callPrec,
	token.Dot:          callPrec,
	token.LBracket:     callPrec,
}

// Parser is a hand-rolled two-token-lookahead recursive-descent parser.
type Parser struct {
	lex *lexer.Lexer

	curToken  token.Token
	peekToken token.Token

	err error
}

// New constructs a Parser over source.
func New(source string) (*Parser, error) {
	p := &Parser{lex: lexer.New(source)}
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Parser) nextToken() error {
	p.curToken = p.peekToken
	tok, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.peekToken = tok
	return nil
}

func (p *Parser) pos() ast.Position {
	return ast.Position{Line: p.curToken.Line, Column: p.curToken.Column}
}

func (p *Parser) curIs(t token.Type) bool  { return p.curToken.Type == t }
func (p *Parser) peekIs(t token.Type) bool { return p.peekToken.Type == t }

func (p *Parser) expect(t token.Type) error {
	if !p.peekIs(t) {
		return errs.NewParse(errs.Position{Line: p.peekToken.Line, Column: p.peekToken.Column},
			"expected %s, got %s", t, p.peekToken.Type)
	}
	return p.nextToken()
}

func (p *Parser) parseErrorf(format string, args ...any) error {
	return errs.NewParse(errs.Position{Line: p.curToken.Line, Column: p.curToken.Column}, format, args...)
}

// Parse runs the parser to completion and returns the Program.
func Parse(source string) (*ast.Program, error) {
	p, err := New(source)
	if err != nil {
		return nil, err
	}
	return p.ParseProgram()
}

// ParseProgram parses top-level forms: only `class`, `fn`, or `let` are
// permitted (spec §4.2).
func (p *Parser) ParseProgram() (*ast.Program, error) {
	prog := &ast.Program{}
	for !p.curIs(token.End) {
		switch p.curToken.Type {
		case token.Class:
			cls, err := p.parseClassDecl()
			if err != nil {
				return nil, err
			}
			prog.Classes = append(prog.Classes, cls)
		case token.Fn:
			fn, err := p.parseFuncDecl()
			if err != nil {
				return nil, err
			}
			prog.Functions = append(prog.Functions, fn)
		case token.Let:
			let, err := p.parseLetStmt()
			if err != nil {
				return nil, err
			}
			if _, ok := let.Value.(*ast.SpawnExpr); ok {
				return nil, p.parseErrorf("top-level let may not use spawn/await")
			}
			if _, ok := let.Value.(*ast.AwaitExpr); ok {
				return nil, p.parseErrorf("top-level let may not use spawn/await")
			}
			prog.TopLevel = append(prog.TopLevel, let)
		default:
			return nil, p.parseErrorf("top-level forms must be class, fn, or let; got %s", p.curToken.Type)
		}
		if err := p.nextToken(); err != nil {
			return nil, err
		}
	}
	return prog, nil
}

func (p *Parser) parseFuncDecl() (*ast.FuncDecl, error) {
	fn := &ast.FuncDecl{Pos: p.pos()}
	if err := p.expect(token.Ident); err != nil {
		return nil, err
	}
	fn.Name = p.curToken.Text
	if err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	params, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	fn.Params = params
	if err := p.expect(token.LBrace); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	fn.Body = body
	return fn, nil
}

func (p *Parser) parseParamList() ([]string, error) {
	var params []string
	if p.peekIs(token.RParen) {
		return params, p.nextToken()
	}
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	for {
		if !p.curIs(token.Ident) {
			return nil, p.parseErrorf("expected parameter name, got %s", p.curToken.Type)
		}
		params = append(params, p.curToken.Text)
		if p.peekIs(token.Comma) {
			if err := p.nextToken(); err != nil {
				return nil, err
			}
			if err := p.nextToken(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if err := p.expect(token.RParen); err != nil {
		return nil, err
	}
	return params, nil
}

// parseBlock parses statements until the matching `}`, leaving curToken on
// the closing brace.
func (p *Parser) parseBlock() ([]ast.Stmt, error) {
	var stmts []ast.Stmt
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	for !p.curIs(token.RBrace) {
		if p.curIs(token.End) {
			return nil, p.parseErrorf("unterminated block")
		}
		stmt, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
		if err := p.nextToken(); err != nil {
			return nil, err
		}
	}
	return stmts, nil
}

func (p *Parser) parseClassDecl() (*ast.ClassDecl, error) {
	cls := &ast.ClassDecl{Pos: p.pos()}
	if err := p.expect(token.Ident); err != nil {
		return nil, err
	}
	cls.Name = p.curToken.Text
	if p.peekIs(token.Extends) {
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		if err := p.expect(token.Ident); err != nil {
			return nil, err
		}
		cls.Extends = p.curToken.Text
	}
	if err := p.expect(token.LBrace); err != nil {
		return nil, err
	}
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	for !p.curIs(token.RBrace) {
		if p.curIs(token.End) {
			return nil, p.parseErrorf("unterminated class body")
		}
		switch p.curToken.Type {
		case token.Fn:
			m, err := p.parseFuncDecl()
			if err != nil {
				return nil, err
			}
			cls.Methods = append(cls.Methods, m)
		case token.Ident:
			attr := &ast.AttrDecl{Pos: p.pos(), Name: p.curToken.Text}
			if err := p.expect(token.Assign); err != nil {
				return nil, err
			}
			if err := p.nextToken(); err != nil {
				return nil, err
			}
			val, err := p.parseExpr(lowest)
			if err != nil {
				return nil, err
			}
			attr.Default = val
			if err := p.expect(token.Semicolon); err != nil {
				return nil, err
			}
			cls.Attributes = append(cls.Attributes, attr)
		default:
			return nil, p.parseErrorf("class body must alternate fn methods and name = expr attributes, got %s", p.curToken.Type)
		}
		if err := p.nextToken(); err != nil {
			return nil, err
		}
	}
	return cls, nil
}

func (p *Parser) parseStmt() (ast.Stmt, error) {
	switch p.curToken.Type {
	case token.Let:
		return p.parseLetStmt()
	case token.Return:
		return p.parseReturnStmt()
	case token.If:
		return p.parseIfStmt()
	case token.While:
		return p.parseWhileStmt()
	case token.For:
		return p.parseForStmt()
	case token.Break:
		return &ast.BreakStmt{Pos: p.pos()}, nil
	case token.Continue:
		return &ast.ContinueStmt{Pos: p.pos()}, nil
	case token.Sleep:
		return p.parseSleepStmt()
	case token.Yield:
		y := &ast.YieldStmt{Pos: p.pos()}
		if err := p.expect(token.Semicolon); err != nil {
			return nil, err
		}
		return y, nil
	default:
		pos := p.pos()
		x, err := p.parseExpr(lowest)
		if err != nil {
			return nil, err
		}
		if err := p.expect(token.Semicolon); err != nil {
			return nil, err
		}
		return &ast.ExprStmt{Pos: pos, X: x}, nil
	}
}

func (p *Parser) parseLetStmt() (*ast.LetStmt, error) {
	let := &ast.LetStmt{Pos: p.pos()}
	if err := p.expect(token.Ident); err != nil {
		return nil, err
	}
	let.Name = p.curToken.Text
	if err := p.expect(token.Assign); err != nil {
		return nil, err
	}
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	val, err := p.parseExpr(lowest)
	if err != nil {
		return nil, err
	}
	let.Value = val
	if err := p.expect(token.Semicolon); err != nil {
		return nil, err
	}
	return let, nil
}

func (p *Parser) parseReturnStmt() (*ast.ReturnStmt, error) {
	ret := &ast.ReturnStmt{Pos: p.pos()}
	if p.peekIs(token.Semicolon) {
		return ret, p.nextToken()
	}
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	val, err := p.parseExpr(lowest)
	if err != nil {
		return nil, err
	}
	ret.Value = val
	return ret, p.expect(token.Semicolon)
}

func (p *Parser) parseSleepStmt() (*ast.SleepStmt, error) {
	s := &ast.SleepStmt{Pos: p.pos()}
	if err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	ms, err := p.parseExpr(lowest)
	if err != nil {
		return nil, err
	}
	s.Ms = ms
	if err := p.expect(token.RParen); err != nil {
		return nil, err
	}
	return s, p.expect(token.Semicolon)
}

func (p *Parser) parseIfStmt() (*ast.IfStmt, error) {
	stmt := &ast.IfStmt{Pos: p.pos()}
	for {
		if err := p.expect(token.LParen); err != nil {
			return nil, err
		}
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		cond, err := p.parseExpr(lowest)
		if err != nil {
			return nil, err
		}
		if err := p.expect(token.RParen); err != nil {
			return nil, err
		}
		if err := p.expect(token.LBrace); err != nil {
			return nil, err
		}
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		stmt.Branches = append(stmt.Branches, ast.IfBranch{Cond: cond, Body: body})
		if p.peekIs(token.Elif) {
			if err := p.nextToken(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if p.peekIs(token.Else) {
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		if err := p.expect(token.LBrace); err != nil {
			return nil, err
		}
		elseBody, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		stmt.Else = elseBody
	}
	return stmt, nil
}

func (p *Parser) parseWhileStmt() (*ast.WhileStmt, error) {
	stmt := &ast.WhileStmt{Pos: p.pos()}
	if err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr(lowest)
	if err != nil {
		return nil, err
	}
	stmt.Cond = cond
	if err := p.expect(token.RParen); err != nil {
		return nil, err
	}
	if err := p.expect(token.LBrace); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	stmt.Body = body
	return stmt, nil
}

// parseForStmt disambiguates `for (k in range(...))`, `for (k in expr)`,
// and `for (k, v in expr)` (spec §4.2).
func (p *Parser) parseForStmt() (ast.Stmt, error) {
	pos := p.pos()
	if err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	if err := p.expect(token.Ident); err != nil {
		return nil, err
	}
	firstVar := p.curToken.Text

	if p.peekIs(token.Comma) {
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		if err := p.expect(token.Ident); err != nil {
			return nil, err
		}
		valVar := p.curToken.Text
		if err := p.expect(token.In); err != nil {
			return nil, err
		}
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		dictExpr, err := p.parseExpr(lowest)
		if err != nil {
			return nil, err
		}
		if err := p.expect(token.RParen); err != nil {
			return nil, err
		}
		if err := p.expect(token.LBrace); err != nil {
			return nil, err
		}
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		return &ast.ForDictStmt{Pos: pos, KeyVar: firstVar, ValVar: valVar, Dict: dictExpr, Body: body}, nil
	}

	if err := p.expect(token.In); err != nil {
		return nil, err
	}
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	iterExpr, err := p.parseExpr(lowest)
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.RParen); err != nil {
		return nil, err
	}
	if err := p.expect(token.LBrace); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	if call, ok := iterExpr.(*ast.CallExpr); ok {
		if ident, ok := call.Callee.(*ast.Ident); ok && ident.Name == "range" {
			switch len(call.Args) {
			case 2:
				return &ast.ForRangeStmt{Pos: pos, Var: firstVar, Start: call.Args[0], End: call.Args[1], Body: body}, nil
			case 1:
				return &ast.ForRangeStmt{Pos: pos, Var: firstVar, Start: &ast.IntLit{Value: 0}, End: call.Args[0], Body: body}, nil
			}
		}
	}
	return &ast.ForListStmt{Pos: pos, Var: firstVar, List: iterExpr, Body: body}, nil
}

// ---- Expressions: precedence-climbing Pratt parser ----

func (p *Parser) peekPrecedence() int {
	if pr, ok := precedences[p.peekToken.Type]; ok {
		return pr
	}
	return lowest
}

func (p *Parser) parseExpr(precedence int) (ast.Expr, error) {
	left, err := p.parsePrefix()
	if err != nil {
		return nil, err
	}
	for !p.peekIs(token.Semicolon) && precedence < p.peekPrecedence() {
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		left, err = p.parseInfix(left)
		if err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (p *Parser) parsePrefix() (ast.Expr, error) {
	switch p.curToken.Type {
	case token.Int:
		n, err := strconv.ParseInt(p.curToken.Text, 10, 64)
		if err != nil {
			return nil, p.parseErrorf("invalid integer literal %q", p.curToken.Text)
		}
		return &ast.IntLit{Pos: p.pos(), Value: n}, nil
	case token.String:
		return &ast.StringLit{Pos: p.pos(), Value: p.curToken.Text}, nil
	case token.Ident, token.Str:
		return &ast.Ident{Pos: p.pos(), Name: p.curToken.Text}, nil
	case token.Minus, token.Bang:
		op := p.curToken.Text
		pos := p.pos()
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		x, err := p.parseExpr(unaryPrec)
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Pos: pos, Op: op, X: x}, nil
	case token.LParen:
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		x, err := p.parseExpr(lowest)
		if err != nil {
			return nil, err
		}
		if err := p.expect(token.RParen); err != nil {
			return nil, err
		}
		return x, nil
	case token.LBracket:
		return p.parseListLit()
	case token.LBrace:
		return p.parseDictLit()
	case token.Spawn:
		pos := p.pos()
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		callee, err := p.parseExpr(unaryPrec)
		if err != nil {
			return nil, err
		}
		call, ok := callee.(*ast.CallExpr)
		if !ok {
			return nil, p.parseErrorf("spawn requires a function call expression")
		}
		return &ast.SpawnExpr{Pos: pos, Call: call}, nil
	case token.Await:
		pos := p.pos()
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		handle, err := p.parseExpr(unaryPrec)
		if err != nil {
			return nil, err
		}
		return &ast.AwaitExpr{Pos: pos, Handle: handle}, nil
	default:
		return nil, p.parseErrorf("unexpected token %s in expression", p.curToken.Type)
	}
}

func (p *Parser) parseListLit() (ast.Expr, error) {
	lit := &ast.ListLit{Pos: p.pos()}
	if p.peekIs(token.RBracket) {
		return lit, p.nextToken()
	}
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	for {
		el, err := p.parseExpr(lowest)
		if err != nil {
			return nil, err
		}
		lit.Elements = append(lit.Elements, el)
		if p.peekIs(token.Comma) {
			if err := p.nextToken(); err != nil {
				return nil, err
			}
			if err := p.nextToken(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	return lit, p.expect(token.RBracket)
}

func (p *Parser) parseDictLit() (ast.Expr, error) {
	lit := &ast.DictLit{Pos: p.pos()}
	if p.peekIs(token.RBrace) {
		return lit, p.nextToken()
	}
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	for {
		key, err := p.parseExpr(lowest)
		if err != nil {
			return nil, err
		}
		if err := p.expect(token.Colon); err != nil {
			return nil, err
		}
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		val, err := p.parseExpr(lowest)
		if err != nil {
			return nil, err
		}
		lit.Entries = append(lit.Entries, ast.DictEntry{Key: key, Value: val})
		if p.peekIs(token.Comma) {
			if err := p.nextToken(); err != nil {
				return nil, err
			}
			if err := p.nextToken(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	return lit, p.expect(token.RBrace)
}

func (p *Parser) parseInfix(left ast.Expr) (ast.Expr, error) {
	switch p.curToken.Type {
	case token.Assign:
		return p.parseAssign(left)
	case token.Plus, token.Minus, token.Star, token.Slash,
		token.Equal, token.NotEqual, token.Less, token.LessEqual, token.Greater, token.GreaterEqual:
		op := p.curToken.Text
		pos := p.pos()
		precedence := precedences[p.curToken.Type]
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		right, err := p.parseExpr(precedence)
		if err != nil {
			return nil, err
		}
		return &ast.BinaryExpr{Pos: pos, Op: op, Left: left, Right: right}, nil
	case token.LParen:
		return p.parseCall(left)
	case token.Dot:
		return p.parseProperty(left)
	case token.LBracket:
		return p.parseIndex(left)
	default:
		return nil, p.parseErrorf("unexpected infix token %s", p.curToken.Type)
	}
}

// parseAssign re-derives the assignment target shape from the already
// parsed left-hand expression, matching only identifier/property/index
// targets; any other LHS is a ParseError (spec §4.2).
func (p *Parser) parseAssign(left ast.Expr) (ast.Expr, error) {
	pos := p.pos()
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	value, err := p.parseExpr(assignPrec - 1)
	if err != nil {
		return nil, err
	}
	switch t := left.(type) {
	case *ast.Ident:
		return &ast.Assign{Pos: pos, Name: t.Name, Value: value}, nil
	case *ast.PropertyExpr:
		return &ast.Assign{Pos: pos, Object: t.Object, Member: t.Name, Value: value}, nil
	case *ast.IndexExpr:
		return &ast.Assign{Pos: pos, Object: t.Object, Index: t.Index, Value: value}, nil
	default:
		return nil, p.parseErrorf("invalid assignment target")
	}
}

func (p *Parser) parseCall(callee ast.Expr) (ast.Expr, error) {
	pos := p.pos()
	args, err := p.parseArgList()
	if err != nil {
		return nil, err
	}
	if prop, ok := callee.(*ast.PropertyExpr); ok {
		return &ast.MethodCallExpr{Pos: pos, Object: prop.Object, Name: prop.Name, Args: args}, nil
	}
	return &ast.CallExpr{Pos: pos, Callee: callee, Args: args}, nil
}

func (p *Parser) parseArgList() ([]ast.Expr, error) {
	var args []ast.Expr
	if p.peekIs(token.RParen) {
		return args, p.nextToken()
	}
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	for {
		arg, err := p.parseExpr(lowest)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.peekIs(token.Comma) {
			if err := p.nextToken(); err != nil {
				return nil, err
			}
			if err := p.nextToken(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	return args, p.expect(token.RParen)
}

func (p *Parser) parseProperty(object ast.Expr) (ast.Expr, error) {
	pos := p.pos()
	if err := p.expect(token.Ident); err != nil {
		return nil, err
	}
	return &ast.PropertyExpr{Pos: pos, Object: object, Name: p.curToken.Text}, nil
}

func (p *Parser) parseIndex(object ast.Expr) (ast.Expr, error) {
	pos := p.pos()
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	idx, err := p.parseExpr(lowest)
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.RBracket); err != nil {
		return nil, err
	}
	return &ast.IndexExpr{Pos: pos, Object: object, Index: idx}, nil
}
