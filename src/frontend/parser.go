// parser.go implements a hand-written recursive descent parser for SrcLang.
// The parser pulls tokens from the concurrent lexer and produces the syntax
// tree consumed by the semantic analyzer and the intermediate code generator.
// Child lists of a node (parameters, arguments, statements) are ordered
// slices; the grammar needs one token of lookahead.

package frontend

import (
	"fmt"
	"strconv"

	"slc/src/ir"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// parser holds the token stream and the current read position.
type parser struct {
	items []item // All tokens of the source stream, ending with itemEOF.
	pos   int    // Index of the next token to be consumed.
}

// ---------------------
// ----- functions -----
// ---------------------

// Parse scans and parses the source code src and returns the root node of
// the resulting syntax tree.
func Parse(src string) (*ir.Node, error) {
	l := newLexer(src, lexGlobal)
	go l.run()

	p := parser{items: make([]item, 0, 256)}
	for {
		tok := l.nextItem()
		if tok.typ == itemError {
			return nil, fmt.Errorf("%s", tok.val)
		}
		p.items = append(p.items, tok)
		if tok.typ == itemEOF {
			break
		}
	}
	return p.parseProgram()
}

// cur returns the next token without consuming it.
func (p *parser) cur() item {
	return p.items[p.pos]
}

// next consumes and returns the next token.
func (p *parser) next() item {
	tok := p.items[p.pos]
	if tok.typ != itemEOF {
		p.pos++
	}
	return tok
}

// expect consumes the next token and verifies that it has type typ.
func (p *parser) expect(typ itemType, what string) (item, error) {
	tok := p.next()
	if tok.typ != typ {
		return tok, fmt.Errorf("expected %s, got %s", what, tok.String())
	}
	return tok, nil
}

// node allocates a syntax tree node positioned at token tok.
func node(typ ir.NodeType, data interface{}, tok item, children ...*ir.Node) *ir.Node {
	return &ir.Node{
		Typ:      typ,
		Line:     tok.line,
		Pos:      tok.pos,
		Data:     data,
		Children: children,
	}
}

// parseProgram parses a sequence of method definitions and extern
// declarations until end of file.
func (p *parser) parseProgram() (*ir.Node, error) {
	root := node(ir.PROGRAM, nil, p.cur())
	for {
		tok := p.cur()
		switch tok.typ {
		case itemEOF:
			return root, nil
		case METHOD:
			m, err := p.parseMethod(false)
			if err != nil {
				return nil, err
			}
			root.Children = append(root.Children, m)
		case EXTERN:
			p.next()
			m, err := p.parseMethod(true)
			if err != nil {
				return nil, err
			}
			root.Children = append(root.Children, m)
		default:
			return nil, fmt.Errorf("expected method or extern declaration, got %s", tok.String())
		}
	}
}

// parseMethod parses a method header and, unless extern is set, its body.
// Extern declarations are terminated by a semicolon instead of a body.
func (p *parser) parseMethod(extern bool) (*ir.Node, error) {
	kw, err := p.expect(METHOD, "keyword \"method\"")
	if err != nil {
		return nil, err
	}
	name, err := p.expect(IDENTIFIER, "method name")
	if err != nil {
		return nil, err
	}
	if _, err = p.expect(itemType('('), `"("`); err != nil {
		return nil, err
	}
	params, err := p.parseParams()
	if err != nil {
		return nil, err
	}

	// An omitted return type means the method returns nothing.
	ret := node(ir.TYPE_DATA, "void", p.cur())
	if p.cur().typ == itemType(':') {
		p.next()
		tok, err := p.expect(TYPE, "return type")
		if err != nil {
			return nil, err
		}
		ret = node(ir.TYPE_DATA, tok.val, tok)
	}

	m := node(ir.METHOD, nil, kw, node(ir.IDENTIFIER_DATA, name.val, name), ret, params)
	if extern {
		_, err = p.expect(itemType(';'), `";"`)
		return m, err
	}

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	m.Children = append(m.Children, body)
	return m, nil
}

// parseParams parses a possibly empty parameter list including the closing
// parenthesis.
func (p *parser) parseParams() (*ir.Node, error) {
	list := node(ir.PARAMETER_LIST, nil, p.cur())
	if p.cur().typ == itemType(')') {
		p.next()
		return list, nil
	}
	for {
		name, err := p.expect(IDENTIFIER, "parameter name")
		if err != nil {
			return nil, err
		}
		if _, err = p.expect(itemType(':'), `":"`); err != nil {
			return nil, err
		}
		typ, err := p.parseValueType()
		if err != nil {
			return nil, err
		}
		list.Children = append(list.Children, node(ir.PARAMETER, name.val, name, typ))

		tok := p.next()
		if tok.typ == itemType(')') {
			return list, nil
		}
		if tok.typ != itemType(',') {
			return nil, fmt.Errorf(`expected "," or ")", got %s`, tok.String())
		}
	}
}

// parseValueType parses a value type annotation. "void" only makes sense as
// a return type and is rejected here.
func (p *parser) parseValueType() (*ir.Node, error) {
	tok, err := p.expect(TYPE, "type")
	if err != nil {
		return nil, err
	}
	if tok.val == "void" {
		return nil, fmt.Errorf("type \"void\" is only valid as a return type, at line %d:%d", tok.line, tok.pos)
	}
	return node(ir.TYPE_DATA, tok.val, tok), nil
}

// parseBlock parses a braced statement list.
func (p *parser) parseBlock() (*ir.Node, error) {
	open, err := p.expect(itemType('{'), `"{"`)
	if err != nil {
		return nil, err
	}
	list := node(ir.STATEMENT_LIST, nil, open)
	for {
		if p.cur().typ == itemType('}') {
			p.next()
			return list, nil
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		list.Children = append(list.Children, stmt)
	}
}

// parseStatement parses a single statement.
func (p *parser) parseStatement() (*ir.Node, error) {
	tok := p.cur()
	switch tok.typ {
	case VAR:
		return p.parseDeclaration()
	case IF:
		return p.parseIf()
	case WHILE:
		return p.parseWhile()
	case RETURN:
		return p.parseReturn()
	case IDENTIFIER:
		// Assignment or call statement, decided by the following token.
		name := p.next()
		switch p.cur().typ {
		case ASSIGN:
			p.next()
			expr, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if _, err = p.expect(itemType(';'), `";"`); err != nil {
				return nil, err
			}
			return node(ir.ASSIGNMENT_STATEMENT, nil, name,
				node(ir.IDENTIFIER_DATA, name.val, name), expr), nil
		case itemType('('):
			call, err := p.parseCall(name)
			if err != nil {
				return nil, err
			}
			_, err = p.expect(itemType(';'), `";"`)
			return call, err
		default:
			return nil, fmt.Errorf(`expected ":=" or "(" after identifier, got %s`, p.cur().String())
		}
	case itemEOF:
		return nil, fmt.Errorf(`expected statement, got EOF: missing "}"?`)
	default:
		return nil, fmt.Errorf("expected statement, got %s", tok.String())
	}
}

// parseDeclaration parses a local variable declaration. Initialisers are
// mandatory; a variable is never default initialised.
func (p *parser) parseDeclaration() (*ir.Node, error) {
	kw := p.next() // var
	name, err := p.expect(IDENTIFIER, "variable name")
	if err != nil {
		return nil, err
	}
	if _, err = p.expect(itemType(':'), `":"`); err != nil {
		return nil, err
	}
	typ, err := p.parseValueType()
	if err != nil {
		return nil, err
	}
	if _, err = p.expect(ASSIGN, `":="`); err != nil {
		return nil, err
	}
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err = p.expect(itemType(';'), `";"`); err != nil {
		return nil, err
	}
	return node(ir.DECLARATION, nil, kw,
		node(ir.IDENTIFIER_DATA, name.val, name), typ, expr), nil
}

// parseIf parses an if statement with an optional else block.
func (p *parser) parseIf() (*ir.Node, error) {
	kw := p.next() // if
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	n := node(ir.IF_STATEMENT, nil, kw, cond, then)
	if p.cur().typ == ELSE {
		p.next()
		els, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, els)
	}
	return n, nil
}

// parseWhile parses a while statement.
func (p *parser) parseWhile() (*ir.Node, error) {
	kw := p.next() // while
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return node(ir.WHILE_STATEMENT, nil, kw, cond, body), nil
}

// parseReturn parses a return statement with an optional value.
func (p *parser) parseReturn() (*ir.Node, error) {
	kw := p.next() // return
	n := node(ir.RETURN_STATEMENT, nil, kw)
	if p.cur().typ != itemType(';') {
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, expr)
	}
	_, err := p.expect(itemType(';'), `";"`)
	return n, err
}

// parseCall parses the argument list of a call to the method named by the
// already consumed identifier token name.
func (p *parser) parseCall(name item) (*ir.Node, error) {
	open := p.next() // (
	args := node(ir.ARGUMENT_LIST, nil, open)
	if p.cur().typ == itemType(')') {
		p.next()
	} else {
		for {
			expr, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			args.Children = append(args.Children, expr)
			tok := p.next()
			if tok.typ == itemType(')') {
				break
			}
			if tok.typ != itemType(',') {
				return nil, fmt.Errorf(`expected "," or ")", got %s`, tok.String())
			}
		}
	}
	return node(ir.METHOD_CALL, nil, name,
		node(ir.IDENTIFIER_DATA, name.val, name), args), nil
}

// binaryLevels orders binary operators from loosest to tightest binding.
// Every level is left associative.
var binaryLevels = [...][]itemType{
	{OR},
	{AND},
	{EQ, NEQ},
	{itemType('<'), LE, itemType('>'), GE},
	{itemType('+'), itemType('-')},
	{itemType('*'), itemType('/'), itemType('%')},
}

// parseExpression parses an expression using precedence climbing.
func (p *parser) parseExpression() (*ir.Node, error) {
	return p.parseBinary(0)
}

// parseBinary parses binary operators of precedence level and tighter.
func (p *parser) parseBinary(level int) (*ir.Node, error) {
	if level >= len(binaryLevels) {
		return p.parseUnary()
	}
	left, err := p.parseBinary(level + 1)
	if err != nil {
		return nil, err
	}
	for {
		tok := p.cur()
		if !containsType(binaryLevels[level], tok.typ) {
			return left, nil
		}
		p.next()
		right, err := p.parseBinary(level + 1)
		if err != nil {
			return nil, err
		}
		left = node(ir.EXPRESSION, tok.val, tok, left, right)
	}
}

// parseUnary parses the unary operators. Unary minus is encoded as the
// subtraction 0 - x and logical not as a one child expression.
func (p *parser) parseUnary() (*ir.Node, error) {
	tok := p.cur()
	switch tok.typ {
	case itemType('-'):
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return node(ir.EXPRESSION, "-", tok, node(ir.INTEGER_DATA, 0, tok), x), nil
	case itemType('!'):
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return node(ir.EXPRESSION, "!", tok, x), nil
	default:
		return p.parsePrimary()
	}
}

// parsePrimary parses literals, identifiers, calls and parenthesised
// expressions.
func (p *parser) parsePrimary() (*ir.Node, error) {
	tok := p.next()
	switch tok.typ {
	case INTEGER:
		v, err := strconv.Atoi(tok.val)
		if err != nil {
			return nil, fmt.Errorf("illegal integer literal %q at line %d:%d", tok.val, tok.line, tok.pos)
		}
		return node(ir.INTEGER_DATA, v, tok), nil
	case TRUE:
		return node(ir.BOOL_DATA, true, tok), nil
	case FALSE:
		return node(ir.BOOL_DATA, false, tok), nil
	case IDENTIFIER:
		if p.cur().typ == itemType('(') {
			return p.parseCall(tok)
		}
		return node(ir.IDENTIFIER_DATA, tok.val, tok), nil
	case itemType('('):
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		_, err = p.expect(itemType(')'), `")"`)
		return expr, err
	default:
		return nil, fmt.Errorf("expected expression, got %s", tok.String())
	}
}

// containsType returns true if the itemType typ is present in set.
func containsType(set []itemType, typ itemType) bool {
	for _, e1 := range set {
		if e1 == typ {
			return true
		}
	}
	return false
}
