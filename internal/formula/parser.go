package formula

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/efp"
)

// node is one of the *Node types below.
type node interface{}

type literalNode struct {
	value Value
}

type refNode struct {
	id string
}

type rangeNode struct {
	from, to cellRef
}

type unaryNode struct {
	op      string
	operand node
}

type percentNode struct {
	operand node
}

type binaryNode struct {
	op          string
	left, right node
}

type callNode struct {
	name string
	args []node
}

// parser builds the syntax tree of a formula from the tokens of the Excel tokenizer.
type parser struct {
	tokens []efp.Token
	pos    int
}

func parse(formula string) (node, error) {
	ps := efp.ExcelParser()

	var tokens []efp.Token

	for i, token := range ps.Parse(formula) {
		// the tokenizer keeps the leading "=" as an operator
		if token.TType == efp.TokenTypeWhitespace || (i == 0 && token.TType == efp.TokenTypeOperatorInfix && token.TValue == "=") {
			continue
		}

		tokens = append(tokens, token)
	}

	if len(tokens) == 0 {
		return nil, errors.Wrap(ErrSyntax, "empty formula")
	}

	p := &parser{tokens: tokens}

	root, err := p.comparison()
	if err != nil {
		return nil, err
	}

	if tok, ok := p.peek(); ok {
		return nil, errors.Wrapf(ErrSyntax, "unexpected %q", tok.TValue)
	}

	return root, nil
}

func (p *parser) peek() (efp.Token, bool) {
	if p.pos >= len(p.tokens) {
		return efp.Token{}, false
	}

	return p.tokens[p.pos], true
}

func (p *parser) next() (efp.Token, bool) {
	tok, ok := p.peek()
	if ok {
		p.pos++
	}

	return tok, ok
}

// infix reads a binary operator among ops.
func (p *parser) infix(ops ...string) (string, bool) {
	tok, ok := p.peek()
	if !ok || tok.TType != efp.TokenTypeOperatorInfix {
		return "", false
	}

	for _, op := range ops {
		if tok.TValue == op {
			p.pos++

			return op, true
		}
	}

	return "", false
}

func (p *parser) binary(operand func() (node, error), ops ...string) (node, error) {
	left, err := operand()
	if err != nil {
		return nil, err
	}

	for {
		op, ok := p.infix(ops...)
		if !ok {
			return left, nil
		}

		right, err := operand()
		if err != nil {
			return nil, err
		}

		left = binaryNode{op: op, left: left, right: right}
	}
}

func (p *parser) comparison() (node, error) {
	return p.binary(p.concatenation, "=", "<>", "<", ">", "<=", ">=")
}

func (p *parser) concatenation() (node, error) {
	return p.binary(p.additive, "&")
}

func (p *parser) additive() (node, error) {
	return p.binary(p.multiplicative, "+", "-")
}

func (p *parser) multiplicative() (node, error) {
	return p.binary(p.exponent, "*", "/")
}

func (p *parser) exponent() (node, error) {
	return p.binary(p.percent, "^")
}

func (p *parser) percent() (node, error) {
	operand, err := p.prefix()
	if err != nil {
		return nil, err
	}

	for {
		tok, ok := p.peek()
		if !ok || tok.TType != efp.TokenTypeOperatorPostfix {
			return operand, nil
		}

		p.pos++
		operand = percentNode{operand: operand}
	}
}

func (p *parser) prefix() (node, error) {
	tok, ok := p.peek()
	if ok && tok.TType == efp.TokenTypeOperatorPrefix {
		p.pos++

		operand, err := p.prefix()
		if err != nil {
			return nil, err
		}

		return unaryNode{op: tok.TValue, operand: operand}, nil
	}

	return p.primary()
}

func (p *parser) primary() (node, error) {
	tok, ok := p.next()
	if !ok {
		return nil, errors.Wrap(ErrSyntax, "unexpected end of formula")
	}

	switch tok.TType {
	case efp.TokenTypeOperand:
		return operand(tok)
	case efp.TokenTypeFunction:
		if tok.TSubType != efp.TokenSubTypeStart {
			break
		}

		return p.call(strings.ToUpper(tok.TValue))
	case efp.TokenTypeSubexpression:
		if tok.TSubType != efp.TokenSubTypeStart {
			break
		}

		inner, err := p.comparison()
		if err != nil {
			return nil, err
		}

		closing, ok := p.next()
		if !ok || closing.TType != efp.TokenTypeSubexpression || closing.TSubType != efp.TokenSubTypeStop {
			return nil, errors.Wrap(ErrSyntax, "missing closing parenthesis")
		}

		return inner, nil
	}

	return nil, errors.Wrapf(ErrSyntax, "unexpected %q", tok.TValue)
}

func (p *parser) call(name string) (node, error) {
	call := callNode{name: name}

	if tok, ok := p.peek(); ok && tok.TType == efp.TokenTypeFunction && tok.TSubType == efp.TokenSubTypeStop {
		p.pos++

		return call, nil
	}

	for {
		arg, err := p.comparison()
		if err != nil {
			return nil, err
		}

		call.args = append(call.args, arg)

		tok, ok := p.next()
		switch {
		case !ok:
			return nil, errors.Wrapf(ErrSyntax, "missing closing parenthesis of %s", name)
		case tok.TType == efp.TokenTypeArgument:
			continue
		case tok.TType == efp.TokenTypeFunction && tok.TSubType == efp.TokenSubTypeStop:
			return call, nil
		default:
			return nil, errors.Wrapf(ErrSyntax, "unexpected %q in %s", tok.TValue, name)
		}
	}
}

func operand(tok efp.Token) (node, error) {
	switch tok.TSubType {
	case efp.TokenSubTypeNumber:
		n, err := strconv.ParseFloat(tok.TValue, 64)
		if err != nil {
			return nil, errors.Wrapf(ErrSyntax, "invalid number %q", tok.TValue)
		}

		return literalNode{value: Number(n)}, nil
	case efp.TokenSubTypeText:
		return literalNode{value: Text(tok.TValue)}, nil
	case efp.TokenSubTypeLogical:
		return literalNode{value: Bool(strings.EqualFold(tok.TValue, "TRUE"))}, nil
	case efp.TokenSubTypeRange:
		if strings.EqualFold(tok.TValue, "TRUE") || strings.EqualFold(tok.TValue, "FALSE") {
			return literalNode{value: Bool(strings.EqualFold(tok.TValue, "TRUE"))}, nil
		}

		return reference(tok.TValue)
	default:
		return nil, errors.Wrapf(ErrValue, "unsupported operand %q", tok.TValue)
	}
}

// reference parses A1, $A$1, Sheet1!A1 or A1:B3. The sheet is ignored.
func reference(text string) (node, error) {
	if idx := strings.LastIndex(text, "!"); idx >= 0 {
		text = text[idx+1:]
	}

	from, to, isRange := strings.Cut(text, ":")

	start, err := parseCellRef(from)
	if err != nil {
		return nil, err
	}

	if !isRange {
		return refNode{id: start.String()}, nil
	}

	end, err := parseCellRef(to)
	if err != nil {
		return nil, err
	}

	return rangeNode{from: start, to: end}, nil
}
